package cmd

import (
	"bytes"
	"strings"
	"testing"

	"sshm/internal/version"
)

func TestVersionCmd(t *testing.T) {
	cmd := newVersionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != version.Version {
		t.Fatalf("version output = %q, want %q", got, version.Version)
	}
}
