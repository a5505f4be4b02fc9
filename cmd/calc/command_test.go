package calc

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dupmtree/dupm/cmd"
	"github.com/dupmtree/dupm/internal/logger"
)

func init() {
	logger.Init("error", "text", io.Discard)
}

// computedFingerprint runs "hash" on path and extracts the fingerprint from
// its output, so calc tests never need to reach into internal/merkle
// directly.
func computedFingerprint(t *testing.T, path string) string {
	t.Helper()
	var buf bytes.Buffer
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"hash", path})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("hash %q: %v", path, err)
	}
	out := buf.String()
	after := strings.SplitN(out, ": ", 2)[1]
	return strings.SplitN(after, " ", 2)[0]
}

func TestCalcCmdMatchingFingerprint(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("test content"), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	expected := computedFingerprint(t, testFile)

	var buf bytes.Buffer
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"calc", testFile, expected})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("rootCmd.Execute() error = %v, output: %s", err, buf.String())
	}
	if !strings.Contains(buf.String(), "match:") {
		t.Errorf("output should indicate a match, got %q", buf.String())
	}
}

func TestCalcCmdMismatchingFingerprint(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("test content"), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	var buf bytes.Buffer
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"calc", testFile, "not-the-right-fingerprint"})

	if err := rootCmd.Execute(); err == nil {
		t.Error("rootCmd.Execute() expected error for mismatching fingerprint")
	}
	if !strings.Contains(buf.String(), "mismatch!") {
		t.Errorf("output should indicate a mismatch, got %q", buf.String())
	}
}

func TestCalcCmdDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "file.txt"), []byte("content"), 0o644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	expected := computedFingerprint(t, tmpDir)

	var buf bytes.Buffer
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"calc", tmpDir, expected})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("rootCmd.Execute() error = %v, output: %s", err, buf.String())
	}
	if !strings.Contains(buf.String(), "match:") {
		t.Errorf("output should indicate a match, got %q", buf.String())
	}
}

func TestCalcCmdNonexistentPath(t *testing.T) {
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetArgs([]string{"calc", "/nonexistent/path/that/does/not/exist", "anything"})

	if err := rootCmd.Execute(); err == nil {
		t.Error("rootCmd.Execute() expected error for nonexistent path")
	}
}

func TestCalcCmdInvalidArgs(t *testing.T) {
	if calcCmd.Args == nil {
		t.Fatal("calcCmd should have Args validator set")
	}
	if err := calcCmd.Args(calcCmd, []string{}); err == nil {
		t.Error("calcCmd.Args() expected error for no args")
	}
	if err := calcCmd.Args(calcCmd, []string{"arg1"}); err == nil {
		t.Error("calcCmd.Args() expected error for one arg")
	}
	if err := calcCmd.Args(calcCmd, []string{"arg1", "arg2", "arg3"}); err == nil {
		t.Error("calcCmd.Args() expected error for too many args")
	}
	if err := calcCmd.Args(calcCmd, []string{"path", "fingerprint"}); err != nil {
		t.Errorf("calcCmd.Args() unexpected error for valid args: %v", err)
	}
}

func TestCalcCmdWithExcludeFlag(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "keep.txt"), []byte("keep"), 0o644); err != nil {
		t.Fatalf("failed to create keep.txt: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "exclude.txt"), []byte("exclude"), 0o644); err != nil {
		t.Fatalf("failed to create exclude.txt: %v", err)
	}

	var hashBuf bytes.Buffer
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetOut(&hashBuf)
	rootCmd.SetErr(&hashBuf)
	rootCmd.SetArgs([]string{"hash", "-e", "exclude.txt", tmpDir})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("hash with exclude: %v", err)
	}
	after := strings.SplitN(hashBuf.String(), ": ", 2)[1]
	expected := strings.SplitN(after, " ", 2)[0]

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"calc", "-e", "exclude.txt", tmpDir, expected})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("rootCmd.Execute() with exclude flag error = %v, output: %s", err, buf.String())
	}
	if !strings.Contains(buf.String(), "match:") {
		t.Errorf("output should indicate a match, got %q", buf.String())
	}
}
