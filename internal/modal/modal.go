// Package modal runs a small field-editing form on the raw terminal.
// Fields are edited one at a time by number; the form tracks which
// values differ from the snapshot taken on entry and guards quitting
// while changes are unsaved.
package modal

import (
	"fmt"

	"sshm/internal/errdefs"
	"sshm/internal/lineedit"
	"sshm/internal/terminal"
	"sshm/internal/termstyle"
	"sshm/internal/textmetrics"
)

// Field is one editable form slot. Value is the starting content; the
// form never mutates the caller's slice.
type Field struct {
	Label string
	Value string
}

// Result of a form session. Values holds every field in order after a
// save; a cancelled session carries no values.
type Result struct {
	Values    []string
	Cancelled bool
}

// Form renders field editors on one terminal.
type Form struct {
	Term  *terminal.Terminal
	Style termstyle.Palette
	edit  *lineedit.Editor
}

func New(term *terminal.Terminal, style termstyle.Palette) *Form {
	return &Form{Term: term, Style: style, edit: lineedit.New(term, style)}
}

// Run drives the form until saved or cancelled. Digits 1..9 edit the
// matching field below the form, s saves, c or d discards edits back to
// the entry snapshot, q or Escape leaves: silently when nothing changed,
// after a confirm when edits would be lost. check runs on save; a
// ValidationError is shown inline and editing continues, any other
// error ends the form.
func (f *Form) Run(title string, fields []Field, check func(values []string) error) (Result, error) {
	snap := make([]string, len(fields))
	values := make([]string, len(fields))
	for i, fld := range fields {
		snap[i] = fld.Value
		values[i] = fld.Value
	}

	f.Term.HideCursor()
	defer f.Term.ShowCursor()

	msg := ""
	msgErr := false
	drawn := 0
	for {
		drawn = f.draw(title, fields, values, snap, msg, msgErr, drawn)
		k, err := f.Term.ReadKey()
		if err != nil {
			f.erase(drawn)
			return Result{}, err
		}
		msg, msgErr = "", false

		switch {
		case k.Kind == terminal.KeyRune && k.Rune >= '1' && k.Rune <= '9':
			i := int(k.Rune - '1')
			if i >= len(fields) {
				continue
			}
			f.Term.ShowCursor()
			r, err := f.edit.Read(fields[i].Label+": ", values[i])
			f.Term.HideCursor()
			if err != nil {
				f.erase(drawn)
				return Result{}, err
			}
			if !r.Cancelled {
				values[i] = r.Text
			}
		case k.Kind == terminal.KeyRune && (k.Rune == 'c' || k.Rune == 'd'):
			copy(values, snap)
			msg = "changes discarded"
		case k.Kind == terminal.KeyRune && k.Rune == 's':
			if check != nil {
				if err := check(values); err != nil {
					if _, ok := errdefs.AsValidation(err); ok {
						msg, msgErr = err.Error(), true
						continue
					}
					f.erase(drawn)
					return Result{}, err
				}
			}
			f.erase(drawn)
			return Result{Values: values}, nil
		case k.Kind == terminal.KeyEscape || (k.Kind == terminal.KeyRune && k.Rune == 'q'):
			if equal(values, snap) {
				f.erase(drawn)
				return Result{Cancelled: true}, nil
			}
			ok, err := f.confirmDiscard()
			if err != nil {
				f.erase(drawn)
				return Result{}, err
			}
			if ok {
				f.erase(drawn)
				return Result{Cancelled: true}, nil
			}
		}
	}
}

func equal(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// confirmDiscard asks on the line below the form and clears it again.
// Only y confirms; anything else keeps editing.
func (f *Form) confirmDiscard() (bool, error) {
	f.Term.ClearLine()
	f.Term.Print(f.Style.Yellow("discard unsaved changes? [y/N] "))
	k, err := f.Term.ReadKey()
	f.Term.ClearLine()
	if err != nil {
		return false, err
	}
	return k.Kind == terminal.KeyRune && (k.Rune == 'y' || k.Rune == 'Y'), nil
}

// draw repaints the form in place. The height is fixed for a given field
// set: title, one line per field, a hint line and a message line.
func (f *Form) draw(title string, fields []Field, values, snap []string, msg string, msgErr bool, prevDrawn int) int {
	width := f.Term.Cols()
	if width <= 0 {
		width = 80
	}
	labelWidth := 0
	for _, fld := range fields {
		if w := len(fld.Label); w > labelWidth {
			labelWidth = w
		}
	}

	lines := []string{f.Style.Bold(title)}
	for i, fld := range fields {
		mark := " "
		if values[i] != snap[i] {
			mark = f.Style.Yellow("*")
		}
		lines = append(lines, fmt.Sprintf("  %d.%s %-*s  %s", i+1, mark, labelWidth, fld.Label, values[i]))
	}
	hint := fmt.Sprintf("[1-%d] edit   s save   c discard   q cancel", len(fields))
	lines = append(lines, f.Style.Dim(hint))
	switch {
	case msg != "" && msgErr:
		lines = append(lines, f.Style.Red(msg))
	case msg != "":
		lines = append(lines, msg)
	default:
		lines = append(lines, "")
	}

	if prevDrawn > 0 {
		f.Term.MoveCursorUp(prevDrawn)
	}
	for _, line := range lines {
		f.Term.ClearLine()
		f.Term.Print(textmetrics.Truncate(line, width, "…") + "\r\n")
	}
	return len(lines)
}

func (f *Form) erase(drawn int) {
	if drawn == 0 {
		return
	}
	f.Term.MoveCursorUp(drawn)
	f.Term.ClearLinesDown(drawn)
}

// Labels builds a field list from label/value pairs, a convenience for
// callers assembling forms from host entries.
func Labels(pairs ...string) []Field {
	fields := make([]Field, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		fields = append(fields, Field{Label: pairs[i], Value: pairs[i+1]})
	}
	return fields
}
