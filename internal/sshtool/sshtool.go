// Package sshtool is the exec boundary to the SSH client tools. Every
// external invocation (ssh, ssh-keygen, ssh-copy-id) is built and run
// here, so the rest of the app never touches os/exec and tests can
// substitute a fake Runner. Exit 0 is success; anything else surfaces as
// an errdefs.ToolError carrying the child's stderr.
package sshtool

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"sshm/internal/config"
	"sshm/internal/errdefs"
)

// Runner executes one external command. ExecRunner is the real
// implementation; tests substitute their own.
type Runner interface {
	// Output runs name with args and returns captured stdout and stderr.
	Output(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
	// Interactive runs name with args attached to the caller's terminal.
	Interactive(name string, args ...string) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Output(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func (ExecRunner) Interactive(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Tool builds and runs SSH tool invocations for one configuration.
type Tool struct {
	Run    Runner
	SSH    string
	Keygen string
	CopyID string

	// ConfigPath is passed as -F. Left empty for the user's default
	// config, because -F suppresses the system-wide client config.
	ConfigPath string

	// ExtraArgs are appended to every ssh invocation.
	ExtraArgs []string
}

// New builds a Tool from the app config.
func New(cfg *config.Config) *Tool {
	t := &Tool{
		Run:       ExecRunner{},
		SSH:       cfg.SSHBinary,
		Keygen:    cfg.KeygenBinary,
		CopyID:    cfg.CopyIDBinary,
		ExtraArgs: cfg.ExtraSSHArgs(),
	}
	home, err := os.UserHomeDir()
	if err != nil || cfg.SSHConfig != filepath.Join(home, ".ssh", "config") {
		t.ConfigPath = cfg.SSHConfig
	}
	return t
}

// sshArgs assembles the common prefix of an ssh invocation.
func (t *Tool) sshArgs(extra ...string) []string {
	var args []string
	if t.ConfigPath != "" {
		args = append(args, "-F", t.ConfigPath)
	}
	args = append(args, t.ExtraArgs...)
	return append(args, extra...)
}

// ConnectArgs returns the argv for an interactive session with alias.
func (t *Tool) ConnectArgs(alias string) (string, []string) {
	return t.SSH, t.sshArgs(alias)
}

// Connect attaches an interactive ssh session to the caller's terminal.
func (t *Tool) Connect(alias string) error {
	name, args := t.ConnectArgs(alias)
	if err := t.Run.Interactive(name, args...); err != nil {
		return &errdefs.ToolError{Tool: t.SSH, Err: err}
	}
	return nil
}

// ResolveOutput runs `ssh -G alias` and returns its stdout: the client's
// own view of the effective configuration for alias.
func (t *Tool) ResolveOutput(ctx context.Context, alias string) (string, error) {
	args := t.sshArgs("-G", alias)
	stdout, stderr, err := t.Run.Output(ctx, t.SSH, args...)
	if err != nil {
		return "", &errdefs.ToolError{Tool: t.SSH, Stderr: strings.TrimSpace(stderr), Err: err}
	}
	return stdout, nil
}

// Probe runs one batch-mode reachability check. The client-side connect
// timeout and the context deadline are both set by the caller; stderr
// comes back trimmed for diagnostics whether or not the probe succeeded.
func (t *Tool) Probe(ctx context.Context, alias string, connectTimeout time.Duration) (string, error) {
	secs := int(connectTimeout / time.Second)
	if secs < 1 {
		secs = 1
	}
	args := t.sshArgs(
		"-o", "BatchMode=yes",
		"-o", fmt.Sprintf("ConnectTimeout=%d", secs),
		alias, "exit", "0",
	)
	_, stderr, err := t.Run.Output(ctx, t.SSH, args...)
	diag := strings.TrimSpace(stderr)
	if err != nil {
		return diag, &errdefs.ToolError{Tool: t.SSH, Stderr: diag, Err: err}
	}
	return diag, nil
}

// StartForward runs a foreground port forward (-N) until interrupted.
// direction is the ssh forwarding flag: "-L", "-R" or "-D".
func (t *Tool) StartForward(direction, spec, alias string) error {
	args := t.sshArgs("-N", direction, spec, alias)
	if err := t.Run.Interactive(t.SSH, args...); err != nil {
		return &errdefs.ToolError{Tool: t.SSH, Err: err}
	}
	return nil
}

// GenerateKey creates an ed25519 keypair at path with no passphrase.
func (t *Tool) GenerateKey(ctx context.Context, path, comment string) error {
	args := []string{"-t", "ed25519", "-f", path, "-N", ""}
	if comment != "" {
		args = append(args, "-C", comment)
	}
	_, stderr, err := t.Run.Output(ctx, t.Keygen, args...)
	if err != nil {
		return &errdefs.ToolError{Tool: t.Keygen, Stderr: strings.TrimSpace(stderr), Err: err}
	}
	return nil
}

// CopyKey installs the public key on the target host via ssh-copy-id,
// attached to the terminal since it may prompt for a password. target is
// user@host form; port 0 means the default.
func (t *Tool) CopyKey(target string, port int, pubPath string) error {
	var args []string
	if pubPath != "" {
		args = append(args, "-i", pubPath)
	}
	if port != 0 && port != 22 {
		args = append(args, "-p", fmt.Sprintf("%d", port))
	}
	args = append(args, target)
	if err := t.Run.Interactive(t.CopyID, args...); err != nil {
		return &errdefs.ToolError{Tool: t.CopyID, Err: err}
	}
	return nil
}
