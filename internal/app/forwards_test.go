package app

import (
	"fmt"
	"net"
	"os"
	"strings"
	"testing"

	"sshm/internal/forwards"
	"sshm/internal/terminal"
)

func seedForward(t *testing.T, f *fixture, fw forwards.Forward) {
	t.Helper()
	if err := f.app.Fwd.Add(fw); err != nil {
		t.Fatalf("seed forward: %v", err)
	}
}

var nginxForward = forwards.Forward{
	Type: forwards.Local, Spec: "8080:localhost:80", Host: "web", Description: "nginx",
}

func TestForwards_OpenFromHosts(t *testing.T) {
	f := newFixture(t, twoHosts, keys("f", "q", "q")...)
	seedForward(t, f, nginxForward)
	if err := f.app.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	out := f.buf.String()
	for _, want := range []string{"port forwards", "1 saved", "8080:localhost:80 -> web", "nginx", "enter start"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%q", want, out)
		}
	}
	if len(f.run.interactiveCalls()) != 0 {
		t.Error("browsing forwards must run nothing")
	}
}

func TestForwards_StartRunsForeground(t *testing.T) {
	f := newFixture(t, twoHosts, keys("f", kEnter, "q", "q")...)
	seedForward(t, f, nginxForward)
	if err := f.app.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	runs := f.run.interactiveCalls()
	if len(runs) != 1 {
		t.Fatalf("expected one ssh run, got %v", runs)
	}
	want := []string{"ssh", "-F", f.app.Reg.Path(), "-N", "-L", "8080:localhost:80", "web"}
	if strings.Join(runs[0], " ") != strings.Join(want, " ") {
		t.Errorf("argv = %v, want %v", runs[0], want)
	}
	out := f.buf.String()
	if !strings.Contains(out, "· ssh -N -L 8080:localhost:80 web") {
		t.Errorf("expected command echo, got:\n%q", out)
	}
	if !strings.Contains(out, "forward ended") {
		t.Errorf("expected end note, got:\n%q", out)
	}
}

func TestForwards_StartUnresolvableHost(t *testing.T) {
	f := newFixture(t, twoHosts, keys("f", kEnter, "q", "q")...)
	seedForward(t, f, forwards.Forward{Type: forwards.Local, Spec: "8080:localhost:80", Host: "ghost"})
	if err := f.app.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(f.buf.String(), `host "ghost" not found`) {
		t.Errorf("expected resolve failure in footer, got:\n%q", f.buf.String())
	}
	if len(f.run.interactiveCalls()) != 0 {
		t.Error("unresolvable forward must not start ssh")
	}
}

func TestForwards_AddSavesRow(t *testing.T) {
	f := newFixture(t, twoHosts, keys("fa", "29000:localhost:9000", kEnter, "3web", kEnter, "sqq")...)
	if err := f.app.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	rows, err := f.app.Fwd.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].Spec != "9000:localhost:9000" || rows[0].Type != forwards.Local {
		t.Fatalf("rows = %v", rows)
	}
	if !strings.Contains(f.buf.String(), "saved L 9000:localhost:9000 -> web") {
		t.Errorf("expected confirmation, got:\n%q", f.buf.String())
	}
}

func TestForwards_AddBadSpecStaysInForm(t *testing.T) {
	f := newFixture(t, twoHosts, keys("fa", "2nonsense", kEnter, "3web", kEnter, "s2", terminal.Ctrl('u'), "8080:localhost:80", kEnter, "sqq")...)
	if err := f.app.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(f.buf.String(), `"nonsense" is not [bind:]port:host:hostport`) {
		t.Errorf("expected inline spec message, got:\n%q", f.buf.String())
	}
	rows, err := f.app.Fwd.List()
	if err != nil || len(rows) != 1 || rows[0].Spec != "8080:localhost:80" {
		t.Fatalf("rows = %v, err %v", rows, err)
	}
}

func TestForwards_EditReplacesRow(t *testing.T) {
	f := newFixture(t, twoHosts, keys("f", "e2", terminal.Ctrl('u'), "9090:localhost:80", kEnter, "s", "qq")...)
	seedForward(t, f, nginxForward)
	if err := f.app.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	rows, err := f.app.Fwd.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].Spec != "9090:localhost:80" {
		t.Fatalf("rows = %v", rows)
	}
	if !strings.Contains(f.buf.String(), "updated L 9090:localhost:80 -> web") {
		t.Errorf("expected confirmation, got:\n%q", f.buf.String())
	}
}

func TestForwards_DeleteRemovesRow(t *testing.T) {
	f := newFixture(t, twoHosts, keys("f", "dy", "qq")...)
	seedForward(t, f, nginxForward)
	if err := f.app.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	rows, err := f.app.Fwd.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("rows = %v, want none", rows)
	}
	if !strings.Contains(f.buf.String(), "deleted L 8080:localhost:80 -> web") {
		t.Errorf("expected confirmation, got:\n%q", f.buf.String())
	}
}

func TestForwards_DeleteDeclined(t *testing.T) {
	f := newFixture(t, twoHosts, keys("f", "dn", "qq")...)
	seedForward(t, f, nginxForward)
	if err := f.app.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	rows, err := f.app.Fwd.List()
	if err != nil || len(rows) != 1 {
		t.Fatalf("rows = %v, err %v", rows, err)
	}
}

func TestForwards_MalformedFileReportedInHosts(t *testing.T) {
	f := newFixture(t, twoHosts, keys("fq")...)
	if err := os.WriteFile(f.app.Fwd.Path(), []byte("not a forward\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := f.app.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(f.buf.String(), "line 1") {
		t.Errorf("expected malformed-line report, got:\n%q", f.buf.String())
	}
}

func TestForwards_ActiveListenerGetsGreenDot(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	f := newFixture(t, twoHosts, keys("f", "q", "q")...)
	seedForward(t, f, forwards.Forward{
		Type: forwards.Local, Spec: fmt.Sprintf("%d:localhost:80", port), Host: "web",
	})
	if err := f.app.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(f.buf.String(), "●") {
		t.Errorf("expected active dot, got:\n%q", f.buf.String())
	}
}

func TestForwards_RemoteRowsGetUndecidedDot(t *testing.T) {
	f := newFixture(t, twoHosts, keys("f", "q", "q")...)
	seedForward(t, f, forwards.Forward{Type: forwards.Remote, Spec: "8080:localhost:80", Host: "web"})
	if err := f.app.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	out := f.buf.String()
	if !strings.Contains(out, "-R 8080:localhost:80 -> web") {
		t.Errorf("expected remote row drawn, got:\n%q", out)
	}
	if strings.Contains(out, "●") {
		t.Errorf("remote forward must not claim an active listener, got:\n%q", out)
	}
}
