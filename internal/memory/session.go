package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// SessionStrategy selects how a session ID is derived when the caller
// doesn't supply one explicitly (spec SPEC_FULL.md §C "session detection
// strategies").
type SessionStrategy string

const (
	// SessionStrategyGitDirectory derives the ID from the enclosing git
	// repository's root directory name.
	SessionStrategyGitDirectory SessionStrategy = "git-directory"
	// SessionStrategyManual requires an explicit ManualID, falling back
	// to git-directory if none is set.
	SessionStrategyManual SessionStrategy = "manual"
	// SessionStrategyHash hashes the git remote URL, useful when the
	// working directory name isn't stable across clones.
	SessionStrategyHash SessionStrategy = "hash"
)

// SessionDetector picks a session ID for start_session when the caller
// doesn't provide one.
type SessionDetector struct {
	Strategy SessionStrategy
	ManualID string
	Prefix   string // default: "daemon-"
	cacheDir string
	cacheID  string
}

// NewSessionDetector returns a detector using strategy, with the
// conventional "daemon-" prefix.
func NewSessionDetector(strategy SessionStrategy) *SessionDetector {
	return &SessionDetector{
		Strategy: strategy,
		Prefix:   "daemon-",
	}
}

// DetectSessionID returns a session ID per the configured strategy.
func (d *SessionDetector) DetectSessionID() string {
	switch d.Strategy {
	case SessionStrategyManual:
		if d.ManualID != "" {
			return d.ManualID
		}
		return d.detectGitDirectory()
	case SessionStrategyHash:
		return d.detectGitHash()
	case SessionStrategyGitDirectory:
		fallthrough
	default:
		return d.detectGitDirectory()
	}
}

// detectGitDirectory returns "{prefix}{sanitized git root dir name}",
// falling back to the current directory name outside a git repo. Cached
// per working directory since git root lookup shells out.
func (d *SessionDetector) detectGitDirectory() string {
	cwd, _ := os.Getwd()
	if d.cacheDir == cwd && d.cacheID != "" {
		return d.cacheID
	}

	gitRoot := findGitRoot(cwd)
	dirName := cwd
	if gitRoot != "" {
		dirName = gitRoot
	}
	d.cacheDir = cwd
	d.cacheID = d.Prefix + sanitizeDirectoryName(filepath.Base(dirName))
	return d.cacheID
}

// detectGitHash returns "{prefix}{8-byte hex sha256 of the git remote
// URL}", falling back to detectGitDirectory if there's no git remote.
func (d *SessionDetector) detectGitHash() string {
	cwd, _ := os.Getwd()
	gitRoot := findGitRoot(cwd)
	if gitRoot == "" {
		return d.detectGitDirectory()
	}

	cmd := exec.Command("git", "-C", gitRoot, "config", "--get", "remote.origin.url")
	output, err := cmd.Output()
	if err != nil {
		return d.detectGitDirectory()
	}

	remoteURL := strings.TrimSpace(string(output))
	if remoteURL == "" {
		return d.detectGitDirectory()
	}

	hash := sha256.Sum256([]byte(remoteURL))
	return d.Prefix + hex.EncodeToString(hash[:8])
}

// findGitRoot walks up from startDir looking for a .git directory or
// file (worktrees/submodules use a file), returning "" if none is found
// before the filesystem root.
func findGitRoot(startDir string) string {
	dir := startDir
	for {
		gitDir := filepath.Join(dir, ".git")
		if _, err := os.Stat(gitDir); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// sanitizeDirectoryName lowercases name and folds anything outside
// [a-z0-9-_] to a hyphen (spaces and dots) or drops it entirely.
func sanitizeDirectoryName(name string) string {
	var result strings.Builder
	for _, r := range name {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_':
			result.WriteRune(r)
		case r == ' ' || r == '.':
			result.WriteRune('-')
		}
	}
	return strings.ToLower(result.String())
}
