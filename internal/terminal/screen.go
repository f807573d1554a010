package terminal

import "fmt"

// Drawing primitives. Every method documents where the cursor ends; the
// views' partial-redraw math depends on those positions holding exactly.

// ClearLine erases the current line. Cursor ends at column 1 of the same
// line.
func (t *Terminal) ClearLine() {
	fmt.Fprint(t.Out, "\r\033[2K")
}

// MoveCursorUp moves n lines up. Cursor ends at column 1. n <= 0 only
// returns the cursor to column 1.
func (t *Terminal) MoveCursorUp(n int) {
	if n > 0 {
		fmt.Fprintf(t.Out, "\033[%dA", n)
	}
	fmt.Fprint(t.Out, "\r")
}

// MoveCursorDown moves n lines down. Cursor ends at column 1. n <= 0 only
// returns the cursor to column 1.
func (t *Terminal) MoveCursorDown(n int) {
	if n > 0 {
		fmt.Fprintf(t.Out, "\033[%dB", n)
	}
	fmt.Fprint(t.Out, "\r")
}

// ClearLinesDown erases the current line and the n-1 lines below it.
// Cursor ends at column 1 of the line it started on.
func (t *Terminal) ClearLinesDown(n int) {
	if n <= 0 {
		return
	}
	for i := 0; i < n; i++ {
		fmt.Fprint(t.Out, "\r\033[2K")
		if i < n-1 {
			fmt.Fprint(t.Out, "\033[1B")
		}
	}
	if n > 1 {
		fmt.Fprintf(t.Out, "\033[%dA", n-1)
	}
	fmt.Fprint(t.Out, "\r")
}

// CursorToColumn puts the cursor at the 1-based column col of the current
// line.
func (t *Terminal) CursorToColumn(col int) {
	if col <= 1 {
		fmt.Fprint(t.Out, "\r")
		return
	}
	fmt.Fprintf(t.Out, "\r\033[%dC", col-1)
}

// HideCursor makes the cursor invisible until ShowCursor.
func (t *Terminal) HideCursor() {
	fmt.Fprint(t.Out, "\033[?25l")
}

// ShowCursor makes the cursor visible again.
func (t *Terminal) ShowCursor() {
	fmt.Fprint(t.Out, "\033[?25h")
}
