package memory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSessionDetector(t *testing.T) {
	t.Run("GitDirectoryStrategy", func(t *testing.T) {
		detector := NewSessionDetector(SessionStrategyGitDirectory)
		sessionID := detector.DetectSessionID()

		if !strings.HasPrefix(sessionID, "daemon-") {
			t.Errorf("Expected daemon- prefix, got %s", sessionID)
		}
		if len(sessionID) <= len("daemon-") {
			t.Errorf("Session ID too short: %s", sessionID)
		}
	})

	t.Run("ManualStrategy", func(t *testing.T) {
		detector := NewSessionDetector(SessionStrategyManual)
		detector.ManualID = "custom-session-123"

		sessionID := detector.DetectSessionID()
		if sessionID != "custom-session-123" {
			t.Errorf("Expected custom session ID, got %s", sessionID)
		}
	})

	t.Run("ManualStrategyFallback", func(t *testing.T) {
		detector := NewSessionDetector(SessionStrategyManual)

		sessionID := detector.DetectSessionID()
		if !strings.HasPrefix(sessionID, "daemon-") {
			t.Errorf("Expected fallback to git-directory strategy, got %s", sessionID)
		}
	})

	t.Run("CachingBehavior", func(t *testing.T) {
		detector := NewSessionDetector(SessionStrategyGitDirectory)

		sessionID1 := detector.DetectSessionID()
		sessionID2 := detector.DetectSessionID()

		if sessionID1 != sessionID2 {
			t.Errorf("Session ID should be cached: %s != %s", sessionID1, sessionID2)
		}
	})

	t.Run("CustomPrefix", func(t *testing.T) {
		detector := NewSessionDetector(SessionStrategyGitDirectory)
		detector.Prefix = "custom-"

		_ = detector.DetectSessionID()
		detector.cacheDir = ""

		sessionID := detector.DetectSessionID()
		if !strings.HasPrefix(sessionID, "custom-") {
			t.Errorf("Expected custom- prefix, got %s", sessionID)
		}
	})
}

func TestFindGitRoot(t *testing.T) {
	t.Run("NoGitDirectory", func(t *testing.T) {
		tmpDir := t.TempDir()
		root := findGitRoot(tmpDir)
		if root != "" {
			t.Errorf("Expected empty string for non-git directory, got %s", root)
		}
	})

	t.Run("WithGitDirectory", func(t *testing.T) {
		tmpDir := t.TempDir()
		gitDir := filepath.Join(tmpDir, ".git")
		_ = os.Mkdir(gitDir, 0755)

		root := findGitRoot(tmpDir)
		if root != tmpDir {
			t.Errorf("Expected %s, got %s", tmpDir, root)
		}
	})

	t.Run("NestedDirectory", func(t *testing.T) {
		tmpDir := t.TempDir()
		gitDir := filepath.Join(tmpDir, ".git")
		_ = os.Mkdir(gitDir, 0755)

		nestedDir := filepath.Join(tmpDir, "src", "pkg")
		_ = os.MkdirAll(nestedDir, 0755)

		root := findGitRoot(nestedDir)
		if root != tmpDir {
			t.Errorf("Expected %s, got %s", tmpDir, root)
		}
	})
}

func TestSanitizeDirectoryName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", "simple"},
		{"with-hyphen", "with-hyphen"},
		{"with_underscore", "with_underscore"},
		{"WithCaps", "withcaps"},
		{"with spaces", "with-spaces"},
		{"with.dots", "with-dots"},
		{"special!@#chars", "specialchars"},
		{"123-numbers", "123-numbers"},
		{"", ""},
	}

	for _, tt := range tests {
		result := sanitizeDirectoryName(tt.input)
		if result != tt.expected {
			t.Errorf("sanitizeDirectoryName(%q) = %q, expected %q", tt.input, result, tt.expected)
		}
	}
}
