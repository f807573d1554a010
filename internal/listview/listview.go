// Package listview runs a full-list terminal view: a header, a body of
// selectable rows, and a footer, repainted in place as the selection
// moves. Key handlers decide per key how much of the view to repaint,
// which keeps footer-only updates from flickering the whole screen.
package listview

import (
	"sshm/internal/terminal"
	"sshm/internal/textmetrics"
)

// Outcome tells the controller what a key handler changed.
type Outcome int

const (
	// Noop repaints nothing.
	Noop Outcome = iota
	// Refresh reloads the backing data and repaints every region.
	Refresh
	// Partial repaints the footer only. Header and body lines are never
	// touched on this path.
	Partial
	// Exit erases the view and ends the loop.
	Exit
)

// Drawer renders a fixed region as lines.
type Drawer func() []string

// BodyDrawer renders the row region. sel is the selected row, -1 when
// the list is empty.
type BodyDrawer func(sel int) []string

// Refresher reloads backing data before a full repaint.
type Refresher func() error

// KeyHandler reacts to one key press. sel is the selected row, -1 when
// the list is empty. Domain failures belong in the handler's own footer
// state; a non-nil error ends the view.
type KeyHandler func(sel int) (Outcome, error)

// View wires the regions, data source and key map of one list screen.
type View struct {
	Term   *terminal.Terminal
	Header Drawer
	Body   BodyDrawer
	Footer Drawer
	Rows   func() int
	Reload Refresher
	Keys   map[terminal.Key]KeyHandler

	sel         int
	headerLines int
	bodyLines   int
	footerLines int
}

// Run draws the view and dispatches keys until a handler exits or input
// fails. Arrows and j/k move the selection with wrap, Home and End jump
// to the edges; every other key goes through the key map. The view
// erases itself before returning, leaving the cursor where it started.
func (v *View) Run() error {
	v.headerLines, v.bodyLines, v.footerLines = 0, 0, 0
	v.sel = 0
	v.clampSel()

	v.Term.HideCursor()
	defer v.Term.ShowCursor()
	v.drawFull()

	for {
		k, err := v.Term.ReadKey()
		if err != nil {
			v.erase()
			return err
		}
		if v.navigate(k) {
			continue
		}
		h, ok := v.Keys[k]
		if !ok {
			continue
		}
		out, err := h(v.sel)
		if err != nil {
			v.erase()
			return err
		}
		switch out {
		case Refresh:
			if v.Reload != nil {
				if err := v.Reload(); err != nil {
					v.erase()
					return err
				}
			}
			v.clampSel()
			v.drawFull()
		case Partial:
			v.drawFooter()
		case Exit:
			v.erase()
			return nil
		}
	}
}

func (v *View) navigate(k terminal.Key) bool {
	n := v.Rows()
	switch {
	case k.Kind == terminal.KeyUp || (k.Kind == terminal.KeyRune && k.Rune == 'k'):
		if n > 0 {
			v.sel = (v.sel - 1 + n) % n
		}
	case k.Kind == terminal.KeyDown || (k.Kind == terminal.KeyRune && k.Rune == 'j'):
		if n > 0 {
			v.sel = (v.sel + 1) % n
		}
	case k.Kind == terminal.KeyHome:
		if n > 0 {
			v.sel = 0
		}
	case k.Kind == terminal.KeyEnd:
		if n > 0 {
			v.sel = n - 1
		}
	default:
		return false
	}
	if n > 0 {
		v.drawBodyFooter()
	}
	return true
}

func (v *View) clampSel() {
	n := v.Rows()
	if n == 0 {
		v.sel = -1
		return
	}
	if v.sel < 0 {
		v.sel = 0
	}
	if v.sel >= n {
		v.sel = n - 1
	}
}

// drawFull repaints every region in place. When the view shrank, the
// lines the old frame left below are cleared.
func (v *View) drawFull() {
	old := v.headerLines + v.bodyLines + v.footerLines
	if old > 0 {
		v.Term.MoveCursorUp(old)
	}
	header := v.render(v.Header())
	body := v.render(v.Body(v.sel))
	footer := v.render(v.Footer())
	v.paint(header)
	v.paint(body)
	v.paint(footer)
	v.headerLines, v.bodyLines, v.footerLines = len(header), len(body), len(footer)
	if leftover := old - (len(header) + len(body) + len(footer)); leftover > 0 {
		v.Term.ClearLinesDown(leftover)
	}
}

// drawBodyFooter repaints the selection-dependent regions, leaving the
// header untouched.
func (v *View) drawBodyFooter() {
	old := v.bodyLines + v.footerLines
	if old > 0 {
		v.Term.MoveCursorUp(old)
	}
	body := v.render(v.Body(v.sel))
	footer := v.render(v.Footer())
	v.paint(body)
	v.paint(footer)
	v.bodyLines, v.footerLines = len(body), len(footer)
	if leftover := old - (len(body) + len(footer)); leftover > 0 {
		v.Term.ClearLinesDown(leftover)
	}
}

// drawFooter repaints the footer alone.
func (v *View) drawFooter() {
	old := v.footerLines
	if old > 0 {
		v.Term.MoveCursorUp(old)
	}
	footer := v.render(v.Footer())
	v.paint(footer)
	v.footerLines = len(footer)
	if leftover := old - len(footer); leftover > 0 {
		v.Term.ClearLinesDown(leftover)
	}
}

func (v *View) paint(lines []string) {
	for _, line := range lines {
		v.Term.ClearLine()
		v.Term.Print(line + "\r\n")
	}
}

func (v *View) render(raw []string) []string {
	width := v.Term.Cols()
	if width <= 0 {
		width = 80
	}
	out := make([]string, len(raw))
	for i, s := range raw {
		out[i] = textmetrics.Truncate(s, width, "…")
	}
	return out
}

func (v *View) erase() {
	total := v.headerLines + v.bodyLines + v.footerLines
	if total == 0 {
		return
	}
	v.Term.MoveCursorUp(total)
	v.Term.ClearLinesDown(total)
	v.headerLines, v.bodyLines, v.footerLines = 0, 0, 0
}
