// Package terminal owns the raw-mode lifecycle, key decoding, and the
// line-level drawing primitives every interactive view builds on. Each
// primitive documents where it leaves the cursor; that contract is the
// basis for all partial-redraw math in the views.
package terminal

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Terminal bundles the decoded key source and the ANSI sink one
// interactive surface runs on. Tests construct it directly with Keys(...)
// and a bytes.Buffer; Start wires it to the real TTY.
type Terminal struct {
	In  KeyReader
	Out io.Writer

	// Cols reports the current terminal width. Queried at every full
	// redraw so resizes take effect on the next repaint.
	Cols func() int
}

// Print writes s at the cursor.
func (t *Terminal) Print(s string) {
	io.WriteString(t.Out, s)
}

// Println writes s and moves to column 1 of the next line. Raw mode needs
// the explicit carriage return.
func (t *Terminal) Println(s string) {
	io.WriteString(t.Out, s+"\r\n")
}

// Printf formats into the terminal at the cursor.
func (t *Terminal) Printf(format string, args ...any) {
	fmt.Fprintf(t.Out, format, args...)
}

// ReadKey blocks for exactly one logical key.
func (t *Terminal) ReadKey() (Key, error) {
	return t.In.ReadKey()
}

// Session owns the raw TTY for the life of the interactive app.
type Session struct {
	Term *Terminal

	fd      int
	restore *term.State
}

// Start puts the controlling terminal into raw mode and returns a Session
// whose Term reads keys from it. Callers must End the session before the
// process exits.
func Start() (*Session, error) {
	fd := int(os.Stdin.Fd())
	if _, _, err := term.GetSize(fd); err != nil {
		return nil, fmt.Errorf("get terminal size (is this a terminal?): %w", err)
	}
	st, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("set raw mode: %w", err)
	}
	s := &Session{fd: fd, restore: st}
	s.Term = &Terminal{
		In:   &keyDecoder{src: &ttySource{fd: fd}},
		Out:  os.Stdout,
		Cols: s.width,
	}
	return s, nil
}

// End restores cooked mode, re-shows the cursor, and resets styling.
func (s *Session) End() {
	if s.restore == nil {
		return
	}
	term.Restore(s.fd, s.restore)
	s.restore = nil
	os.Stdout.WriteString("\033[?25h\033[0m")
}

// Cooked temporarily restores the cooked terminal, runs fn (typically an
// exec'd child inheriting the TTY), then re-enters raw mode. The fn error
// passes through; a raw-mode failure on re-entry takes precedence.
func (s *Session) Cooked(fn func() error) error {
	if s.restore == nil {
		return fn()
	}
	term.Restore(s.fd, s.restore)
	os.Stdout.WriteString("\033[?25h\033[0m")
	err := fn()
	st, rawErr := term.MakeRaw(s.fd)
	if rawErr != nil {
		s.restore = nil
		return fmt.Errorf("re-enter raw mode: %w", rawErr)
	}
	s.restore = st
	return err
}

func (s *Session) width() int {
	cols, _, err := term.GetSize(s.fd)
	if err != nil || cols <= 0 {
		return 80
	}
	return cols
}
