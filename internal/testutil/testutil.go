// Package testutil provides testing utilities for miseq tests.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// SkipIfNoShell skips the test on platforms without a POSIX shell, which
// the fake mise binaries need.
func SkipIfNoShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake mise requires a POSIX shell")
	}
}

// SetupProject creates a temporary project directory containing files.
// The files map contains relative paths to file contents. The directory is
// automatically cleaned up when the test completes.
func SetupProject(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for path, content := range files {
		WriteFile(t, dir, path, content)
	}
	return dir
}

// WriteFile creates or replaces a file below dir, creating parent
// directories as needed.
func WriteFile(t *testing.T, dir, path, content string) {
	t.Helper()

	fullPath := filepath.Join(dir, path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
}

// WriteFakeMise writes script as an executable named mise into dir and
// returns its path. The test is skipped where shell scripts cannot run.
func WriteFakeMise(t *testing.T, dir, script string) string {
	t.Helper()
	SkipIfNoShell(t)

	bin := filepath.Join(dir, "mise")
	if err := os.WriteFile(bin, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write fake mise: %v", err)
	}
	return bin
}

// WaitFor polls cond until it returns true, failing the test after timeout.
func WaitFor(t *testing.T, timeout time.Duration, cond func() bool, what string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
