// Package textmetrics measures and shapes strings the way the terminal
// displays them: ANSI escape sequences occupy no columns, wide runes
// occupy two.
package textmetrics

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const escape = 0x1b

// escapeEnd returns the index just past the escape sequence starting at i.
// rs[i] must be the escape rune. CSI sequences end at a final byte in
// 0x40..0x7E, OSC sequences at BEL or ESC-backslash, anything else after
// one more rune. An unterminated sequence runs to the end of the slice.
func escapeEnd(rs []rune, i int) int {
	j := i + 1
	if j >= len(rs) {
		return j
	}
	switch rs[j] {
	case '[':
		for j++; j < len(rs); j++ {
			if rs[j] >= 0x40 && rs[j] <= 0x7e {
				return j + 1
			}
		}
		return j
	case ']':
		for j++; j < len(rs); j++ {
			if rs[j] == '\a' {
				return j + 1
			}
			if rs[j] == escape && j+1 < len(rs) && rs[j+1] == '\\' {
				return j + 2
			}
		}
		return j
	default:
		return j + 1
	}
}

// VisibleWidth returns the display columns s occupies.
func VisibleWidth(s string) int {
	rs := []rune(s)
	w := 0
	for i := 0; i < len(rs); {
		if rs[i] == escape {
			i = escapeEnd(rs, i)
			continue
		}
		w += runewidth.RuneWidth(rs[i])
		i++
	}
	return w
}

// StripEscapes removes every escape sequence from s.
func StripEscapes(s string) string {
	if !strings.ContainsRune(s, escape) {
		return s
	}
	rs := []rune(s)
	var b strings.Builder
	for i := 0; i < len(rs); {
		if rs[i] == escape {
			i = escapeEnd(rs, i)
			continue
		}
		b.WriteRune(rs[i])
		i++
	}
	return b.String()
}

// Truncate cuts s down to at most maxWidth display columns. Escape
// sequences are copied whole and never split. When anything was cut,
// ellipsis replaces the tail and the result still fits maxWidth.
func Truncate(s string, maxWidth int, ellipsis string) string {
	if maxWidth <= 0 {
		return ""
	}
	if VisibleWidth(s) <= maxWidth {
		return s
	}
	budget := maxWidth - VisibleWidth(ellipsis)
	if budget < 0 {
		budget = 0
		ellipsis = ""
	}
	rs := []rune(s)
	var b strings.Builder
	w := 0
	for i := 0; i < len(rs); {
		if rs[i] == escape {
			end := escapeEnd(rs, i)
			b.WriteString(string(rs[i:end]))
			i = end
			continue
		}
		rw := runewidth.RuneWidth(rs[i])
		if w+rw > budget {
			break
		}
		w += rw
		b.WriteRune(rs[i])
		i++
	}
	b.WriteString(ellipsis)
	return b.String()
}

// PadToWidth pads s with spaces to the given visible width. Strings at or
// beyond the width come back unchanged.
func PadToWidth(s string, width int) string {
	gap := width - VisibleWidth(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}
