package size

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/dupmtree/dupm/cmd"
	"github.com/dupmtree/dupm/internal/logger"
)

func init() {
	logger.Init("error", "text", io.Discard)
}

func TestSizeCmdBytesToNotation(t *testing.T) {
	var buf bytes.Buffer
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"size", "262144"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("rootCmd.Execute() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "256K" {
		t.Errorf("got %q, want 256K", buf.String())
	}
}

func TestSizeCmdNotationToBytes(t *testing.T) {
	var buf bytes.Buffer
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"size", "2G"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("rootCmd.Execute() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "2147483648" {
		t.Errorf("got %q, want 2147483648", buf.String())
	}
}

func TestSizeCmdInvalidNotation(t *testing.T) {
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetArgs([]string{"size", "not-a-size"})

	if err := rootCmd.Execute(); err == nil {
		t.Error("expected an error for invalid size notation")
	}
}
