package sshconf

import "strings"

// LineInfo classifies one config line relative to a target alias.
type LineInfo struct {
	Raw      string
	IsHost   bool // line opens a host block
	InTarget bool // line belongs to the target's block
}

// blockScanner is a line state machine over an SSH config file. Feeding it
// lines in order yields, for each line, whether that line sits inside the
// block whose Host patterns contain the target alias. Host patterns are
// space-separated; an inline comment terminates the pattern list.
type blockScanner struct {
	target   string
	inTarget bool
}

func newBlockScanner(target string) *blockScanner {
	return &blockScanner{target: target}
}

func (s *blockScanner) feed(line string) LineInfo {
	key, val, ok := splitDirective(strings.TrimSpace(stripInlineComment(line)))
	if ok && strings.EqualFold(key, "Host") {
		s.inTarget = false
		for _, pat := range strings.Fields(val) {
			if pat == s.target {
				s.inTarget = true
				break
			}
		}
		return LineInfo{Raw: line, IsHost: true, InTarget: s.inTarget}
	}
	return LineInfo{Raw: line, InTarget: s.inTarget}
}

// stripInlineComment drops a trailing # comment unless the # sits inside
// quotes.
func stripInlineComment(s string) string {
	inSingle := false
	inDouble := false
	for i, r := range s {
		switch r {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '#':
			if !inSingle && !inDouble {
				return strings.TrimRight(s[:i], " \t")
			}
		}
	}
	return s
}

// splitDirective splits "Key Value", "Key=Value" or tab-separated forms.
// Keys are matched case-insensitively by callers.
func splitDirective(line string) (key, val string, ok bool) {
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	if i := strings.IndexAny(line, " \t="); i >= 0 {
		key = strings.TrimSpace(line[:i])
		val = strings.TrimSpace(line[i+1:])
		if key == "" {
			return "", "", false
		}
		return key, val, true
	}
	return "", "", false
}

// isLiteralPattern reports whether a Host pattern names exactly one host:
// no negation, no wildcard metacharacters, no whitespace.
func isLiteralPattern(p string) bool {
	if p == "" || strings.HasPrefix(p, "!") {
		return false
	}
	if strings.ContainsAny(p, "*?[]") {
		return false
	}
	return !strings.ContainsAny(p, " \t")
}
