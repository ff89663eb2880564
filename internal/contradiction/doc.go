// Package contradiction is the Contradiction Engine: it decides whether
// a newly extracted fact conflicts with a user's existing facts, and if
// so, how the conflict should be resolved.
package contradiction
