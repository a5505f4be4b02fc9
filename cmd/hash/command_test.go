package hash

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

func TestHashCmdFile(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("test content"), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	var buf bytes.Buffer
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"hash", testFile})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("rootCmd.Execute() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, testFile) {
		t.Errorf("output should contain file path, got %q", output)
	}
	if !strings.Contains(output, "(f):") {
		t.Errorf("output should indicate file type, got %q", output)
	}
}

func TestHashCmdDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "file.txt"), []byte("content"), 0o644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	var buf bytes.Buffer
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"hash", tmpDir})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("rootCmd.Execute() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, tmpDir) {
		t.Errorf("output should contain directory path, got %q", output)
	}
	if !strings.Contains(output, "(d):") {
		t.Errorf("output should indicate directory type, got %q", output)
	}
}

func TestHashCmdNonexistent(t *testing.T) {
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetArgs([]string{"hash", "/nonexistent/path/that/does/not/exist"})

	if err := rootCmd.Execute(); err == nil {
		t.Error("rootCmd.Execute() expected error for nonexistent path")
	}
}

func TestHashCmdIdenticalFilesShareFingerprint(t *testing.T) {
	tmpA := filepath.Join(t.TempDir(), "a.txt")
	tmpB := filepath.Join(t.TempDir(), "b.txt")
	if err := os.WriteFile(tmpA, []byte("identical"), 0o644); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.WriteFile(tmpB, []byte("identical"), 0o644); err != nil {
		t.Fatalf("write b: %v", err)
	}

	hashOf := func(path string) string {
		var buf bytes.Buffer
		rootCmd := cmd.GetRootCmd()
		rootCmd.SetOut(&buf)
		rootCmd.SetErr(&buf)
		rootCmd.SetArgs([]string{"hash", path})
		if err := rootCmd.Execute(); err != nil {
			t.Fatalf("rootCmd.Execute() error = %v", err)
		}
		return buf.String()
	}

	outA := hashOf(tmpA)
	outB := hashOf(tmpB)
	fa := strings.SplitN(strings.SplitN(outA, ": ", 2)[1], " ", 2)[0]
	fb := strings.SplitN(strings.SplitN(outB, ": ", 2)[1], " ", 2)[0]
	if fa != fb {
		t.Errorf("identical files should produce the same fingerprint, got %q and %q", fa, fb)
	}
}

func TestHashCmdWithExcludeFlag(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "keep.txt"), []byte("keep"), 0o644); err != nil {
		t.Fatalf("failed to create keep.txt: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "exclude.txt"), []byte("exclude"), 0o644); err != nil {
		t.Fatalf("failed to create exclude.txt: %v", err)
	}

	var buf bytes.Buffer
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"hash", "-e", "exclude.txt", tmpDir})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("rootCmd.Execute() with exclude flag error = %v", err)
	}
	if !strings.Contains(buf.String(), tmpDir) {
		t.Errorf("output should contain directory path, got %q", buf.String())
	}
}

func TestHashCmdInvalidArgs(t *testing.T) {
	if hashCmd.Args == nil {
		t.Fatal("hashCmd should have Args validator set")
	}
	if err := hashCmd.Args(hashCmd, []string{}); err == nil {
		t.Error("hashCmd.Args() expected error for no args")
	}
	if err := hashCmd.Args(hashCmd, []string{"arg1", "arg2"}); err == nil {
		t.Error("hashCmd.Args() expected error for too many args")
	}
	if err := hashCmd.Args(hashCmd, []string{"path"}); err != nil {
		t.Errorf("hashCmd.Args() unexpected error for valid args: %v", err)
	}
}
