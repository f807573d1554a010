// Package menu draws interactive pick lists on the raw terminal. A menu
// renders below the cursor, repaints itself in place as the selection
// moves, and erases itself completely before returning, leaving the
// cursor on the line where it started.
package menu

import (
	"strings"

	"sshm/internal/terminal"
	"sshm/internal/termstyle"
	"sshm/internal/textmetrics"
)

// Glyphs are the markers a menu draws with. Injected so callers control
// the look; DefaultGlyphs covers every modern terminal font.
type Glyphs struct {
	Pointer   string
	Checked   string
	Unchecked string
	Connector string
}

func DefaultGlyphs() Glyphs {
	return Glyphs{
		Pointer:   "▸",
		Checked:   "[x]",
		Unchecked: "[ ]",
		Connector: "│",
	}
}

// Option is one selectable row. Detail lines render under the label,
// prefixed with the connector glyph.
type Option struct {
	Label  string
	Detail []string
}

// Opt builds a plain single-line option.
func Opt(label string) Option {
	return Option{Label: label}
}

// Choice is the outcome of a single-select menu. Cancelling is a normal
// result, not an error.
type Choice struct {
	Index     int
	Cancelled bool
}

// MultiChoice is the outcome of a multi-select menu. None reports a
// confirm with nothing ticked, distinct from cancelling.
type MultiChoice struct {
	Indices   []int
	Cancelled bool
	None      bool
}

// Menu renders pick lists on one terminal.
type Menu struct {
	Term   *terminal.Terminal
	Style  termstyle.Palette
	Glyphs Glyphs
}

func New(term *terminal.Terminal, style termstyle.Palette) *Menu {
	return &Menu{Term: term, Style: style, Glyphs: DefaultGlyphs()}
}

// Pick runs a single-select menu. Enter returns the highlighted index;
// Escape or q cancels. Arrows and j/k move, wrapping at both ends.
func (m *Menu) Pick(title string, opts []Option) (Choice, error) {
	if len(opts) == 0 {
		return Choice{Index: -1, Cancelled: true}, nil
	}
	m.Term.HideCursor()
	defer m.Term.ShowCursor()

	cur := 0
	drawn := 0
	for {
		drawn = m.draw(m.frame(title, opts, cur, nil, false), drawn)
		k, err := m.Term.ReadKey()
		if err != nil {
			m.erase(drawn)
			return Choice{}, err
		}
		switch {
		case isUp(k):
			cur = (cur - 1 + len(opts)) % len(opts)
		case isDown(k):
			cur = (cur + 1) % len(opts)
		case k.Kind == terminal.KeyEnter:
			m.erase(drawn)
			return Choice{Index: cur}, nil
		case isCancel(k):
			m.erase(drawn)
			return Choice{Index: -1, Cancelled: true}, nil
		}
	}
}

// PickMulti runs a multi-select menu. Space toggles the highlighted row,
// Enter confirms, Escape or q cancels even with rows ticked. With withAll
// an All row is prepended: toggling it ticks or clears every option, and
// its own checkbox always mirrors whether every option is ticked.
// Returned indices refer to opts and never include the All row.
func (m *Menu) PickMulti(title string, opts []Option, withAll bool) (MultiChoice, error) {
	if len(opts) == 0 {
		return MultiChoice{Cancelled: true}, nil
	}
	m.Term.HideCursor()
	defer m.Term.ShowCursor()

	rows := opts
	if withAll {
		rows = append([]Option{Opt("All")}, opts...)
	}
	sel := make([]bool, len(opts))
	allSelected := func() bool {
		for _, s := range sel {
			if !s {
				return false
			}
		}
		return true
	}

	cur := 0
	drawn := 0
	for {
		checks := make([]bool, len(rows))
		for i := range opts {
			if withAll {
				checks[i+1] = sel[i]
			} else {
				checks[i] = sel[i]
			}
		}
		if withAll {
			checks[0] = allSelected()
		}

		drawn = m.draw(m.frame(title, rows, cur, checks, true), drawn)
		k, err := m.Term.ReadKey()
		if err != nil {
			m.erase(drawn)
			return MultiChoice{}, err
		}
		switch {
		case isUp(k):
			cur = (cur - 1 + len(rows)) % len(rows)
		case isDown(k):
			cur = (cur + 1) % len(rows)
		case k.Kind == terminal.KeyRune && k.Rune == ' ':
			if withAll && cur == 0 {
				set := !allSelected()
				for i := range sel {
					sel[i] = set
				}
			} else {
				i := cur
				if withAll {
					i--
				}
				sel[i] = !sel[i]
			}
		case k.Kind == terminal.KeyEnter:
			m.erase(drawn)
			var indices []int
			for i, s := range sel {
				if s {
					indices = append(indices, i)
				}
			}
			if len(indices) == 0 {
				return MultiChoice{None: true}, nil
			}
			return MultiChoice{Indices: indices}, nil
		case isCancel(k):
			m.erase(drawn)
			return MultiChoice{Cancelled: true}, nil
		}
	}
}

func isUp(k terminal.Key) bool {
	return k.Kind == terminal.KeyUp || (k.Kind == terminal.KeyRune && k.Rune == 'k')
}

func isDown(k terminal.Key) bool {
	return k.Kind == terminal.KeyDown || (k.Kind == terminal.KeyRune && k.Rune == 'j')
}

func isCancel(k terminal.Key) bool {
	return k.Kind == terminal.KeyEscape || (k.Kind == terminal.KeyRune && k.Rune == 'q')
}

// frame renders the full menu as lines. checks is nil for single-select.
func (m *Menu) frame(title string, rows []Option, cur int, checks []bool, multi bool) []string {
	width := m.Term.Cols()
	if width <= 0 {
		width = 80
	}
	gutter := textmetrics.VisibleWidth(m.Glyphs.Pointer)

	lines := []string{textmetrics.Truncate(m.Style.Bold(title), width, "…")}
	for i, r := range rows {
		marker := strings.Repeat(" ", gutter)
		if i == cur {
			marker = m.Style.Cyan(m.Glyphs.Pointer)
		}
		line := marker + " "
		if multi {
			box := m.Glyphs.Unchecked
			if checks[i] {
				box = m.Glyphs.Checked
			}
			line += box + " "
		}
		if i == cur {
			line += m.Style.Bold(r.Label)
		} else {
			line += r.Label
		}
		lines = append(lines, textmetrics.Truncate(line, width, "…"))

		indent := strings.Repeat(" ", gutter+1)
		for _, d := range r.Detail {
			cont := indent + m.Style.Gray(m.Glyphs.Connector+" "+d)
			lines = append(lines, textmetrics.Truncate(cont, width, "…"))
		}
	}
	return lines
}

// draw repaints the menu in place. prevDrawn is the height of the frame
// already on screen, 0 on the first paint. The cursor ends on the line
// below the menu.
func (m *Menu) draw(lines []string, prevDrawn int) int {
	if prevDrawn > 0 {
		m.Term.MoveCursorUp(prevDrawn)
	}
	for _, line := range lines {
		m.Term.ClearLine()
		m.Term.Print(line + "\r\n")
	}
	return len(lines)
}

// erase removes the menu, leaving the cursor at the line the menu
// started on.
func (m *Menu) erase(drawn int) {
	if drawn == 0 {
		return
	}
	m.Term.MoveCursorUp(drawn)
	m.Term.ClearLinesDown(drawn)
}
