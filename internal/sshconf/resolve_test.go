package sshconf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sshm/internal/errdefs"
	"sshm/internal/sshtool"
)

type fakeRunner struct {
	stdout string
	stderr string
	err    error
	calls  [][]string
}

func (f *fakeRunner) Output(ctx context.Context, name string, args ...string) (string, string, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.stdout, f.stderr, f.err
}

func (f *fakeRunner) Interactive(name string, args ...string) error { return nil }

func newResolveRegistry(t *testing.T, content string, run *fakeRunner) *Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return New(path, &sshtool.Tool{Run: run, SSH: "ssh", ConfigPath: path})
}

const resolveOutput = "user deploy\n" +
	"hostname web.example.com\n" +
	"port 2222\n" +
	"identityfile ~/.ssh/web_ed25519\n" +
	"identityfile ~/.ssh/id_rsa\n" +
	"serveraliveinterval 60\n"

func TestResolve_ParsesEffectiveConfig(t *testing.T) {
	run := &fakeRunner{stdout: resolveOutput}
	r := newResolveRegistry(t, "Host web\n  HostName web.example.com\n", run)

	v, err := r.Resolve(context.Background(), "web")
	if err != nil {
		t.Fatalf("expected resolve to succeed, got %v", err)
	}
	if v.HostName != "web.example.com" || v.User != "deploy" || v.Port != 2222 {
		t.Fatalf("unexpected resolved values: %+v", v)
	}
	if len(v.IdentityFiles) != 2 || v.IdentityFiles[0] != "~/.ssh/web_ed25519" {
		t.Fatalf("expected identity files in order, got %v", v.IdentityFiles)
	}
	if v.Target() != "deploy@web.example.com" {
		t.Fatalf("expected target deploy@web.example.com, got %q", v.Target())
	}

	if len(run.calls) != 1 {
		t.Fatalf("expected one ssh invocation, got %d", len(run.calls))
	}
	args := run.calls[0]
	if args[0] != "ssh" {
		t.Fatalf("expected ssh binary, got %q", args[0])
	}
	found := false
	for i, a := range args {
		if a == "-G" && i+1 < len(args) && args[i+1] == "web" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected -G web in argv, got %v", args)
	}
}

func TestResolve_UnknownAliasSkipsSSH(t *testing.T) {
	run := &fakeRunner{stdout: resolveOutput}
	r := newResolveRegistry(t, "Host web\n  HostName web.example.com\n", run)

	_, err := r.Resolve(context.Background(), "ghost")
	if _, ok := errdefs.AsNotFound(err); !ok {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if len(run.calls) != 0 {
		t.Fatalf("expected ssh not to run for an unknown alias, got %v", run.calls)
	}
}

func TestResolve_ToolFailure(t *testing.T) {
	run := &fakeRunner{stderr: "ssh: bad option", err: errors.New("exit status 255")}
	r := newResolveRegistry(t, "Host web\n  HostName web.example.com\n", run)

	_, err := r.Resolve(context.Background(), "web")
	te, ok := errdefs.AsTool(err)
	if !ok {
		t.Fatalf("expected ToolError, got %v", err)
	}
	if te.Stderr != "ssh: bad option" {
		t.Fatalf("expected stderr captured, got %q", te.Stderr)
	}
}

func TestParseResolved_EmptyAndJunkLines(t *testing.T) {
	v := parseResolved("\nhostname only.example.com\nnoise\nport x\n")
	if v.HostName != "only.example.com" {
		t.Fatalf("expected hostname parsed, got %q", v.HostName)
	}
	if v.Port != 0 {
		t.Fatalf("expected unparseable port ignored, got %d", v.Port)
	}
	if (Resolved{HostName: "h"}).Target() != "h" {
		t.Fatal("expected target without user to be bare hostname")
	}
}
