package lineedit

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"sshm/internal/terminal"
	"sshm/internal/termstyle"
)

var (
	kEnter = terminal.Key{Kind: terminal.KeyEnter}
	kEsc   = terminal.Key{Kind: terminal.KeyEscape}
	kBack  = terminal.Key{Kind: terminal.KeyBackspace}
	kDel   = terminal.Key{Kind: terminal.KeyDelete}
	kLeft  = terminal.Key{Kind: terminal.KeyLeft}
	kRight = terminal.Key{Kind: terminal.KeyRight}
	kHome  = terminal.Key{Kind: terminal.KeyHome}
	kEnd   = terminal.Key{Kind: terminal.KeyEnd}
)

func runes(s string) []terminal.Key {
	var keys []terminal.Key
	for _, r := range s {
		keys = append(keys, terminal.Rune(r))
	}
	return keys
}

func newTestEditor(cols int, keys ...terminal.Key) (*Editor, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	term := &terminal.Terminal{
		In:   terminal.Keys(keys...),
		Out:  buf,
		Cols: func() int { return cols },
	}
	return New(term, termstyle.Forced(false)), buf
}

func read(t *testing.T, e *Editor, prompt, initial string) Result {
	t.Helper()
	r, err := e.Read(prompt, initial)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return r
}

// --- Editing semantics ---

func TestRead_TypedTextAccepted(t *testing.T) {
	e, _ := newTestEditor(80, append(runes("hi"), kEnter)...)
	r := read(t, e, "> ", "")
	if r.Text != "hi" || r.Empty || r.Cancelled {
		t.Fatalf("expected text hi, got %+v", r)
	}
}

func TestRead_InitialTextEditable(t *testing.T) {
	e, _ := newTestEditor(80, kBack, kEnter)
	r := read(t, e, "> ", "web")
	if r.Text != "we" {
		t.Fatalf("expected backspace on initial text, got %+v", r)
	}
}

func TestRead_EscapeReturnsInitialUnchanged(t *testing.T) {
	e, _ := newTestEditor(80, append(runes("xyz"), kEsc)...)
	r := read(t, e, "> ", "web")
	if !r.Cancelled {
		t.Fatalf("expected cancelled result, got %+v", r)
	}
	if r.Text != "web" {
		t.Fatalf("expected initial text back on cancel, got %q", r.Text)
	}
}

func TestRead_EmptyEnter(t *testing.T) {
	e, _ := newTestEditor(80, kEnter)
	r := read(t, e, "> ", "")
	if !r.Empty || r.Text != "" {
		t.Fatalf("expected empty result, got %+v", r)
	}
}

func TestRead_ClearedToEmpty(t *testing.T) {
	e, _ := newTestEditor(80, kBack, kEnter)
	r := read(t, e, "> ", "x")
	if !r.Empty {
		t.Fatalf("expected cleared field to report empty, got %+v", r)
	}
}

func TestRead_InsertInMiddle(t *testing.T) {
	e, _ := newTestEditor(80, kLeft, terminal.Rune('b'), kEnter)
	r := read(t, e, "> ", "ac")
	if r.Text != "abc" {
		t.Fatalf("expected abc, got %q", r.Text)
	}
}

func TestRead_DeleteAtCursor(t *testing.T) {
	e, _ := newTestEditor(80, kHome, kDel, kEnter)
	r := read(t, e, "> ", "abc")
	if r.Text != "bc" {
		t.Fatalf("expected bc, got %q", r.Text)
	}
}

func TestRead_HomeAndEnd(t *testing.T) {
	e, _ := newTestEditor(80, kHome, terminal.Rune('x'), kEnd, terminal.Rune('y'), kEnter)
	r := read(t, e, "> ", "ab")
	if r.Text != "xaby" {
		t.Fatalf("expected xaby, got %q", r.Text)
	}
}

func TestRead_CtrlAAndE(t *testing.T) {
	e, _ := newTestEditor(80, terminal.Ctrl('a'), terminal.Rune('x'), terminal.Ctrl('e'), terminal.Rune('y'), kEnter)
	r := read(t, e, "> ", "ab")
	if r.Text != "xaby" {
		t.Fatalf("expected xaby, got %q", r.Text)
	}
}

func TestRead_CtrlUKillsToStart(t *testing.T) {
	e, _ := newTestEditor(80, terminal.Ctrl('u'), terminal.Rune('z'), kEnter)
	r := read(t, e, "> ", "abc")
	if r.Text != "z" {
		t.Fatalf("expected z, got %q", r.Text)
	}
}

func TestRead_CtrlUMidLineKeepsTail(t *testing.T) {
	e, _ := newTestEditor(80, kLeft, terminal.Ctrl('u'), kEnter)
	r := read(t, e, "> ", "abc")
	if r.Text != "c" {
		t.Fatalf("expected c, got %q", r.Text)
	}
}

func TestRead_CtrlKKillsToEnd(t *testing.T) {
	e, _ := newTestEditor(80, kHome, kRight, terminal.Ctrl('k'), kEnter)
	r := read(t, e, "> ", "abc")
	if r.Text != "a" {
		t.Fatalf("expected a, got %q", r.Text)
	}
}

func TestRead_CtrlWKillsWordBack(t *testing.T) {
	e, _ := newTestEditor(80, terminal.Ctrl('w'), kEnter)
	r := read(t, e, "> ", "ssh web")
	if r.Text != "ssh " {
		t.Fatalf("expected trailing word killed, got %q", r.Text)
	}

	e, _ = newTestEditor(80, terminal.Ctrl('w'), terminal.Ctrl('w'), kEnter)
	r = read(t, e, "> ", "ssh web")
	if r.Text != "" {
		t.Fatalf("expected both words killed, got %q", r.Text)
	}
}

func TestRead_UnicodeRunes(t *testing.T) {
	e, _ := newTestEditor(80, append(runes("héllo"), kEnter)...)
	r := read(t, e, "> ", "")
	if r.Text != "héllo" {
		t.Fatalf("expected héllo, got %q", r.Text)
	}
}

func TestRead_ReadErrorPropagates(t *testing.T) {
	e, _ := newTestEditor(80)
	_, err := e.Read("> ", "")
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF from exhausted input, got %v", err)
	}
}

// --- Viewport ---

func TestClampView_KeepsCursorVisible(t *testing.T) {
	for width := 1; width <= 6; width++ {
		v := 0
		for cur := 0; cur <= 12; cur++ {
			v = clampView(cur, v, width)
			if v < 0 || cur < v || cur >= v+width {
				t.Fatalf("width %d cur %d: viewStart %d breaks the window", width, cur, v)
			}
		}
		for cur := 12; cur >= 0; cur-- {
			v = clampView(cur, v, width)
			if cur < v || cur >= v+width {
				t.Fatalf("width %d cur %d: viewStart %d breaks the window going left", width, cur, v)
			}
		}
	}
}

func TestClampView_StaysPutWhenVisible(t *testing.T) {
	if got := clampView(3, 2, 5); got != 2 {
		t.Fatalf("expected window untouched while cursor visible, got %d", got)
	}
}

func TestWindow_EdgeEllipses(t *testing.T) {
	buf := []rune("abcdefghij")
	tests := []struct {
		viewStart, width int
		want             string
	}{
		{0, 20, "abcdefghij"},
		{0, 5, "abcd…"},
		{2, 5, "…def…"},
		{5, 5, "…ghij"},
		{0, 1, "…"},
		{6, 4, "…hij"},
	}
	for _, tt := range tests {
		if got := window(buf, tt.viewStart, tt.width); got != tt.want {
			t.Fatalf("window(start=%d, width=%d): expected %q, got %q", tt.viewStart, tt.width, tt.want, got)
		}
	}
}

func TestWindow_EmptyBuffer(t *testing.T) {
	if got := window(nil, 0, 5); got != "" {
		t.Fatalf("expected empty window, got %q", got)
	}
}

func TestRead_LongContentScrollsNotTruncates(t *testing.T) {
	long := "abcdefghijklmnop"
	e, buf := newTestEditor(10, append(runes(long), kEnter)...)
	r := read(t, e, "> ", "")
	if r.Text != long {
		t.Fatalf("expected full text back despite narrow terminal, got %q", r.Text)
	}
	if !strings.Contains(buf.String(), "…") {
		t.Fatal("expected a left-edge ellipsis once content scrolled")
	}
}

func TestRead_TinyTerminalNoCrash(t *testing.T) {
	e, _ := newTestEditor(3, append(runes("abcdef"), kEnter)...)
	r := read(t, e, "> ", "")
	if r.Text != "abcdef" {
		t.Fatalf("expected text intact on tiny terminal, got %q", r.Text)
	}
}

func TestRead_ClearsRowOnReturn(t *testing.T) {
	e, buf := newTestEditor(80, kEnter)
	read(t, e, "> ", "web")
	if !strings.HasSuffix(buf.String(), "\r\033[2K") {
		t.Fatalf("expected the row cleared before returning, got %q", buf.String())
	}
}

func TestRead_PromptDrawn(t *testing.T) {
	e, buf := newTestEditor(80, kEnter)
	read(t, e, "alias> ", "web")
	if !strings.Contains(buf.String(), "alias> web") {
		t.Fatalf("expected prompt and content drawn, got %q", buf.String())
	}
}
