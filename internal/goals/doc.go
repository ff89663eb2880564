// Package goals is Goal Clustering: it detects goal statements, links
// later memories to the goal they relate to, and tracks the emotional
// trajectory of progress toward it.
package goals
