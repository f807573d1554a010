package forwards

import (
	"net"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"sshm/internal/errdefs"
)

func newTestStore(t *testing.T, content string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forwards")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}
	return NewStore(path)
}

func TestList_ParsesLinesInOrder(t *testing.T) {
	s := newTestStore(t, "L|8080:localhost:80|web|nginx tunnel\n"+
		"D|1080|jump|socks\n"+
		"R|9000:localhost:3000|ci|\n")
	list, err := s.List()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := []Forward{
		{Type: Local, Spec: "8080:localhost:80", Host: "web", Description: "nginx tunnel"},
		{Type: Dynamic, Spec: "1080", Host: "jump", Description: "socks"},
		{Type: Remote, Spec: "9000:localhost:3000", Host: "ci", Description: ""},
	}
	if !reflect.DeepEqual(list, want) {
		t.Fatalf("expected %+v, got %+v", want, list)
	}
}

func TestList_MissingFileReadsEmpty(t *testing.T) {
	s := newTestStore(t, "")
	list, err := s.List()
	if err != nil {
		t.Fatalf("expected missing file to read as empty, got %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no forwards, got %v", list)
	}
}

func TestList_MalformedLineNamesLineNumber(t *testing.T) {
	s := newTestStore(t, "L|8080:localhost:80|web|ok\nnot a forward\n")
	_, err := s.List()
	if err == nil {
		t.Fatal("expected malformed line to fail the load")
	}
	if _, ok := errdefs.AsValidation(err); !ok {
		t.Fatalf("expected ValidationError in chain, got %v", err)
	}
	if want := "line 2"; !strings.Contains(err.Error(), want) {
		t.Fatalf("expected error to name %q, got %q", want, err.Error())
	}
}

func TestAdd_AppendsAndRoundTrips(t *testing.T) {
	s := newTestStore(t, "")
	f := Forward{Type: Local, Spec: "5432:localhost:5432", Host: "db", Description: "postgres"}
	if err := s.Add(f); err != nil {
		t.Fatalf("expected add to succeed, got %v", err)
	}
	list, err := s.List()
	if err != nil {
		t.Fatalf("list after add: %v", err)
	}
	if len(list) != 1 || list[0] != f {
		t.Fatalf("expected %+v back, got %+v", f, list)
	}
}

func TestAdd_DuplicateRejectedBeforeWrite(t *testing.T) {
	content := "L|8080:localhost:80|web|first\n"
	s := newTestStore(t, content)
	err := s.Add(Forward{Type: Local, Spec: "8080:localhost:80", Host: "web", Description: "second"})
	if _, ok := errdefs.AsValidation(err); !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	data, _ := os.ReadFile(s.Path())
	if string(data) != content {
		t.Fatalf("expected store untouched, got %q", string(data))
	}
}

func TestAdd_RejectsPipeInFields(t *testing.T) {
	s := newTestStore(t, "")
	err := s.Add(Forward{Type: Local, Spec: "8080:localhost:80", Host: "web", Description: "a|b"})
	if _, ok := errdefs.AsValidation(err); !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestRemove_DeletesMatch(t *testing.T) {
	s := newTestStore(t, "L|8080:localhost:80|web|a\nD|1080|jump|b\n")
	if err := s.Remove(Forward{Type: Local, Spec: "8080:localhost:80", Host: "web", Description: "a"}); err != nil {
		t.Fatalf("expected remove to succeed, got %v", err)
	}
	list, err := s.List()
	if err != nil {
		t.Fatalf("list after remove: %v", err)
	}
	if len(list) != 1 || list[0].Host != "jump" {
		t.Fatalf("expected only jump left, got %+v", list)
	}
}

func TestRemove_UnknownForward(t *testing.T) {
	s := newTestStore(t, "L|8080:localhost:80|web|a\n")
	err := s.Remove(Forward{Type: Dynamic, Spec: "1080", Host: "jump"})
	if _, ok := errdefs.AsNotFound(err); !ok {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		f    Forward
		ok   bool
	}{
		{"local", Forward{Type: Local, Spec: "8080:localhost:80", Host: "web"}, true},
		{"local with bind", Forward{Type: Local, Spec: "127.0.0.1:8080:localhost:80", Host: "web"}, true},
		{"remote", Forward{Type: Remote, Spec: "9000:localhost:3000", Host: "ci"}, true},
		{"dynamic", Forward{Type: Dynamic, Spec: "1080", Host: "jump"}, true},
		{"dynamic with bind", Forward{Type: Dynamic, Spec: "localhost:1080", Host: "jump"}, true},
		{"bad type", Forward{Type: "X", Spec: "1080", Host: "jump"}, false},
		{"empty host", Forward{Type: Dynamic, Spec: "1080", Host: " "}, false},
		{"local missing parts", Forward{Type: Local, Spec: "8080:localhost", Host: "web"}, false},
		{"port out of range", Forward{Type: Dynamic, Spec: "70000", Host: "jump"}, false},
		{"port not numeric", Forward{Type: Local, Spec: "http:localhost:80", Host: "web"}, false},
	}
	for _, tt := range tests {
		err := tt.f.Validate()
		if tt.ok && err != nil {
			t.Fatalf("%s: expected valid, got %v", tt.name, err)
		}
		if !tt.ok && err == nil {
			t.Fatalf("%s: expected rejection", tt.name)
		}
	}
}

func TestLocalPort(t *testing.T) {
	tests := []struct {
		f    Forward
		port int
		ok   bool
	}{
		{Forward{Type: Local, Spec: "8080:localhost:80"}, 8080, true},
		{Forward{Type: Local, Spec: "127.0.0.1:8080:localhost:80"}, 8080, true},
		{Forward{Type: Dynamic, Spec: "1080"}, 1080, true},
		{Forward{Type: Dynamic, Spec: "localhost:1080"}, 1080, true},
		{Forward{Type: Remote, Spec: "9000:localhost:3000"}, 9000, true},
		{Forward{Type: Local, Spec: "nope"}, 0, false},
	}
	for _, tt := range tests {
		port, ok := tt.f.LocalPort()
		if port != tt.port || ok != tt.ok {
			t.Fatalf("LocalPort(%+v): expected (%d, %v), got (%d, %v)", tt.f, tt.port, tt.ok, port, ok)
		}
	}
}

func TestActive_DetectsListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	f := Forward{Type: Dynamic, Spec: strconv.Itoa(port), Host: "jump"}
	if !Active(f) {
		t.Fatal("expected live listener to read as active")
	}

	ln.Close()
	if Active(f) {
		t.Fatal("expected closed listener to read as inactive")
	}
}

func TestActive_RemoteNeverActive(t *testing.T) {
	if Active(Forward{Type: Remote, Spec: "9000:localhost:3000", Host: "ci"}) {
		t.Fatal("expected remote forwards to read as inactive")
	}
}

func TestLabel(t *testing.T) {
	f := Forward{Type: Local, Spec: "8080:localhost:80", Host: "web", Description: "nginx"}
	if got := f.Label(); got != "L 8080:localhost:80 -> web  (nginx)" {
		t.Fatalf("unexpected label %q", got)
	}
	f.Description = ""
	if got := f.Label(); got != "L 8080:localhost:80 -> web" {
		t.Fatalf("unexpected label %q", got)
	}
}
