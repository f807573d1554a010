package terminal

import (
	"bytes"
	"testing"
)

func newBufTerm() (*Terminal, *bytes.Buffer) {
	var buf bytes.Buffer
	t := &Terminal{Out: &buf, Cols: func() int { return 80 }}
	return t, &buf
}

func TestClearLine_ReturnsToColumnOne(t *testing.T) {
	term, buf := newBufTerm()
	term.ClearLine()
	if got := buf.String(); got != "\r\033[2K" {
		t.Fatalf("ClearLine emitted %q", got)
	}
}

func TestMoveCursorUp(t *testing.T) {
	term, buf := newBufTerm()
	term.MoveCursorUp(3)
	if got := buf.String(); got != "\033[3A\r" {
		t.Fatalf("MoveCursorUp(3) emitted %q", got)
	}

	buf.Reset()
	term.MoveCursorUp(0)
	if got := buf.String(); got != "\r" {
		t.Fatalf("MoveCursorUp(0) emitted %q, want just carriage return", got)
	}
}

func TestMoveCursorDown(t *testing.T) {
	term, buf := newBufTerm()
	term.MoveCursorDown(2)
	if got := buf.String(); got != "\033[2B\r" {
		t.Fatalf("MoveCursorDown(2) emitted %q", got)
	}
}

func TestClearLinesDown_SingleLine(t *testing.T) {
	term, buf := newBufTerm()
	term.ClearLinesDown(1)
	if got := buf.String(); got != "\r\033[2K\r" {
		t.Fatalf("ClearLinesDown(1) emitted %q", got)
	}
}

func TestClearLinesDown_ReturnsToStartLine(t *testing.T) {
	term, buf := newBufTerm()
	term.ClearLinesDown(3)
	want := "\r\033[2K\033[1B" + "\r\033[2K\033[1B" + "\r\033[2K" + "\033[2A\r"
	if got := buf.String(); got != want {
		t.Fatalf("ClearLinesDown(3) emitted %q, want %q", got, want)
	}
}

func TestClearLinesDown_ZeroIsNoop(t *testing.T) {
	term, buf := newBufTerm()
	term.ClearLinesDown(0)
	if buf.Len() != 0 {
		t.Fatalf("ClearLinesDown(0) emitted %q", buf.String())
	}
}

func TestCursorToColumn(t *testing.T) {
	term, buf := newBufTerm()
	term.CursorToColumn(1)
	if got := buf.String(); got != "\r" {
		t.Fatalf("CursorToColumn(1) emitted %q", got)
	}

	buf.Reset()
	term.CursorToColumn(5)
	if got := buf.String(); got != "\r\033[4C" {
		t.Fatalf("CursorToColumn(5) emitted %q", got)
	}
}

func TestCursorVisibility(t *testing.T) {
	term, buf := newBufTerm()
	term.HideCursor()
	term.ShowCursor()
	if got := buf.String(); got != "\033[?25l\033[?25h" {
		t.Fatalf("visibility toggles emitted %q", got)
	}
}

func TestPrintln_EmitsCRLF(t *testing.T) {
	term, buf := newBufTerm()
	term.Println("x")
	if got := buf.String(); got != "x\r\n" {
		t.Fatalf("Println emitted %q", got)
	}
}
