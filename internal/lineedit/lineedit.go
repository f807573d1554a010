// Package lineedit reads one line of input on the raw terminal with
// cursor movement and horizontal scrolling. Long content slides under a
// fixed window; an ellipsis in the first or last cell marks hidden text
// on that side.
package lineedit

import (
	"sshm/internal/terminal"
	"sshm/internal/termstyle"
	"sshm/internal/textmetrics"
)

// Result of one line edit. Cancelling returns the initial text untouched;
// Empty reports an accepted empty line, which callers treat as clearing
// or keeping a field rather than as an error.
type Result struct {
	Text      string
	Cancelled bool
	Empty     bool
}

// Editor reads lines on one terminal.
type Editor struct {
	Term  *terminal.Terminal
	Style termstyle.Palette
}

func New(term *terminal.Terminal, style termstyle.Palette) *Editor {
	return &Editor{Term: term, Style: style}
}

// Read edits a line in place on the current terminal row. Enter accepts,
// Escape cancels and reports the initial text. The row is cleared before
// returning so the caller repaints or prints the outcome itself.
func (e *Editor) Read(prompt, initial string) (Result, error) {
	buf := []rune(initial)
	cur := len(buf)
	viewStart := 0

	for {
		width := e.fieldWidth(prompt)
		viewStart = clampView(cur, viewStart, width)
		e.drawLine(prompt, buf, cur, viewStart, width)

		k, err := e.Term.ReadKey()
		if err != nil {
			e.Term.ClearLine()
			return Result{}, err
		}
		switch k.Kind {
		case terminal.KeyEnter:
			e.Term.ClearLine()
			text := string(buf)
			return Result{Text: text, Empty: text == ""}, nil
		case terminal.KeyEscape:
			e.Term.ClearLine()
			return Result{Text: initial, Cancelled: true}, nil
		case terminal.KeyBackspace:
			if cur > 0 {
				buf = append(buf[:cur-1], buf[cur:]...)
				cur--
			}
		case terminal.KeyDelete:
			if cur < len(buf) {
				buf = append(buf[:cur], buf[cur+1:]...)
			}
		case terminal.KeyLeft:
			if cur > 0 {
				cur--
			}
		case terminal.KeyRight:
			if cur < len(buf) {
				cur++
			}
		case terminal.KeyHome:
			cur = 0
		case terminal.KeyEnd:
			cur = len(buf)
		case terminal.KeyCtrl:
			switch k.Rune {
			case 'a':
				cur = 0
			case 'e':
				cur = len(buf)
			case 'u':
				buf = append(buf[:0], buf[cur:]...)
				cur = 0
			case 'k':
				buf = buf[:cur]
			case 'w':
				buf, cur = killWordBack(buf, cur)
			}
		case terminal.KeyRune:
			buf = append(buf, 0)
			copy(buf[cur+1:], buf[cur:])
			buf[cur] = k.Rune
			cur++
		}
	}
}

// killWordBack removes the word before the cursor along with any spaces
// between it and the cursor.
func killWordBack(buf []rune, cur int) ([]rune, int) {
	i := cur
	for i > 0 && buf[i-1] == ' ' {
		i--
	}
	for i > 0 && buf[i-1] != ' ' {
		i--
	}
	return append(buf[:i], buf[cur:]...), i
}

// clampView slides the window start the minimal distance that restores
// viewStart <= cur < viewStart+width.
func clampView(cur, viewStart, width int) int {
	if width < 1 {
		width = 1
	}
	if cur < viewStart {
		return cur
	}
	if cur >= viewStart+width {
		return cur - width + 1
	}
	return viewStart
}

// window renders the visible slice of the buffer. Cells at a clipped edge
// show an ellipsis in place of the hidden run's nearest rune.
func window(buf []rune, viewStart, width int) string {
	if width < 1 {
		width = 1
	}
	end := viewStart + width
	if end > len(buf) {
		end = len(buf)
	}
	if viewStart > end {
		viewStart = end
	}
	vis := append([]rune{}, buf[viewStart:end]...)
	if len(vis) > 0 && viewStart > 0 {
		vis[0] = '…'
	}
	if len(vis) > 0 && end < len(buf) {
		vis[len(vis)-1] = '…'
	}
	return string(vis)
}

func (e *Editor) drawLine(prompt string, buf []rune, cur, viewStart, width int) {
	e.Term.ClearLine()
	e.Term.Print(e.Style.Cyan(prompt) + window(buf, viewStart, width))
	e.Term.CursorToColumn(textmetrics.VisibleWidth(prompt) + (cur - viewStart) + 1)
}

// fieldWidth is the room left for content after the prompt, keeping one
// free cell so the cursor can sit past the last rune.
func (e *Editor) fieldWidth(prompt string) int {
	cols := e.Term.Cols()
	if cols <= 0 {
		cols = 80
	}
	w := cols - textmetrics.VisibleWidth(prompt) - 1
	if w < 1 {
		w = 1
	}
	return w
}
