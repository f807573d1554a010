package sshconf

import (
	"fmt"
	"strconv"
	"strings"

	"sshm/internal/errdefs"
)

// DefaultPort is the port ssh assumes when a block sets none.
const DefaultPort = 22

const tagsPrefix = "# Tags:"

// defaultIndent matches the most common hand-written ssh config style.
const defaultIndent = "  "

// HostEntry is the managed view of one host block. Unknown directives in
// the underlying block are preserved by Update but not modeled here.
type HostEntry struct {
	Alias        string
	HostName     string
	User         string
	Port         int // 0 means unset
	IdentityFile string
	Tags         []string
}

// EffectivePort returns the port the entry would connect on.
func (e HostEntry) EffectivePort() int {
	if e.Port == 0 {
		return DefaultPort
	}
	return e.Port
}

// HasTag reports whether the entry carries the given tag.
func (e HostEntry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ValidateAlias rejects aliases that would not survive as a literal Host
// pattern.
func ValidateAlias(alias string) error {
	if strings.TrimSpace(alias) == "" {
		return errdefs.Validationf("alias", "must not be empty")
	}
	if !isLiteralPattern(alias) {
		return errdefs.Validationf("alias", "%q contains pattern characters or whitespace", alias)
	}
	return nil
}

// ValidatePort rejects ports outside the TCP range. 0 is accepted as unset.
func ValidatePort(port int) error {
	if port < 0 || port > 65535 {
		return errdefs.Validationf("port", "%d is not between 1 and 65535", port)
	}
	return nil
}

// parseTags splits a "# Tags: a,b,c" comment into its tag list.
func parseTags(line string) ([]string, bool) {
	trim := strings.TrimSpace(line)
	if !strings.HasPrefix(trim, tagsPrefix) {
		return nil, false
	}
	var tags []string
	for _, t := range strings.Split(trim[len(tagsPrefix):], ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags, true
}

func formatTags(tags []string) string {
	return tagsPrefix + " " + strings.Join(tags, ",")
}

// parseBlock extracts the managed fields from one host block. The first
// occurrence of a directive wins, matching ssh's own first-value-wins rule.
// alias selects which pattern of the Host line the entry represents.
func parseBlock(lines []string, alias string) HostEntry {
	e := HostEntry{Alias: alias}
	seen := map[string]bool{}
	for _, line := range lines {
		if tags, ok := parseTags(line); ok && !seen["tags"] {
			e.Tags = tags
			seen["tags"] = true
			continue
		}
		key, val, ok := splitDirective(strings.TrimSpace(stripInlineComment(line)))
		if !ok {
			continue
		}
		switch k := strings.ToLower(key); k {
		case "hostname":
			if !seen[k] {
				e.HostName = val
				seen[k] = true
			}
		case "user":
			if !seen[k] {
				e.User = val
				seen[k] = true
			}
		case "port":
			if !seen[k] {
				if p, err := strconv.Atoi(val); err == nil {
					e.Port = p
				}
				seen[k] = true
			}
		case "identityfile":
			if !seen[k] {
				e.IdentityFile = val
				seen[k] = true
			}
		}
	}
	return e
}

// renderBlock produces a fresh block for the entry with canonical directive
// casing. The tags comment, when present, is the first line inside the block.
func renderBlock(e HostEntry, indent string) []string {
	if indent == "" {
		indent = defaultIndent
	}
	lines := []string{"Host " + e.Alias}
	if len(e.Tags) > 0 {
		lines = append(lines, indent+formatTags(e.Tags))
	}
	if e.HostName != "" {
		lines = append(lines, indent+"HostName "+e.HostName)
	}
	if e.User != "" {
		lines = append(lines, indent+"User "+e.User)
	}
	if e.Port != 0 {
		lines = append(lines, indent+"Port "+strconv.Itoa(e.Port))
	}
	if e.IdentityFile != "" {
		lines = append(lines, indent+"IdentityFile "+e.IdentityFile)
	}
	return lines
}

// detectIndent returns the leading whitespace of the first indented line.
func detectIndent(lines []string) string {
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" || len(trimmed) == len(line) {
			continue
		}
		return line[:len(line)-len(trimmed)]
	}
	return defaultIndent
}

// updateBlock rewrites a host block for the new entry state. Managed
// directives are rewritten in place, unknown directives and comments are
// kept verbatim, and newly set fields are appended after the last kept
// line. oldAlias is the pattern being edited on the Host line; renames
// swap only that pattern.
func updateBlock(lines []string, oldAlias string, e HostEntry) []string {
	indent := detectIndent(lines)
	written := map[string]bool{}
	var out []string

	for i, line := range lines {
		if i == 0 {
			out = append(out, rewriteHostLine(line, oldAlias, e.Alias))
			if len(e.Tags) > 0 {
				out = append(out, indent+formatTags(e.Tags))
			}
			written["tags"] = true
			continue
		}
		if _, ok := parseTags(line); ok {
			continue
		}
		key, _, ok := splitDirective(strings.TrimSpace(stripInlineComment(line)))
		if !ok {
			out = append(out, line)
			continue
		}
		k := strings.ToLower(key)
		val, managed := managedValue(e, k)
		if !managed || written[k] {
			out = append(out, line)
			continue
		}
		written[k] = true
		if val == "" {
			continue
		}
		lead := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		out = append(out, lead+canonicalKey(k)+" "+val)
	}

	// Newly set fields land after the last non-blank line so trailing
	// blanks keep separating this block from the next.
	last := len(out)
	for last > 0 && strings.TrimSpace(out[last-1]) == "" {
		last--
	}
	var added []string
	for _, k := range []string{"hostname", "user", "port", "identityfile"} {
		if written[k] {
			continue
		}
		if val, _ := managedValue(e, k); val != "" {
			added = append(added, indent+canonicalKey(k)+" "+val)
		}
	}
	if len(added) > 0 {
		out = append(out[:last], append(added, out[last:]...)...)
	}
	return out
}

func rewriteHostLine(line, oldAlias, newAlias string) string {
	if oldAlias == newAlias {
		return line
	}
	lead := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
	body := stripInlineComment(strings.TrimSpace(line))
	comment := strings.TrimSpace(line)[len(body):]
	_, val, _ := splitDirective(body)
	fields := strings.Fields(val)
	for i, f := range fields {
		if f == oldAlias {
			fields[i] = newAlias
		}
	}
	rewritten := lead + "Host " + strings.Join(fields, " ")
	if comment != "" {
		rewritten += " " + strings.TrimSpace(comment)
	}
	return rewritten
}

func managedValue(e HostEntry, key string) (string, bool) {
	switch key {
	case "hostname":
		return e.HostName, true
	case "user":
		return e.User, true
	case "port":
		if e.Port == 0 {
			return "", true
		}
		return strconv.Itoa(e.Port), true
	case "identityfile":
		return e.IdentityFile, true
	}
	return "", false
}

func canonicalKey(key string) string {
	switch key {
	case "hostname":
		return "HostName"
	case "user":
		return "User"
	case "port":
		return "Port"
	case "identityfile":
		return "IdentityFile"
	}
	return key
}

// Summary renders a one-line description used by list rows and prompts.
func (e HostEntry) Summary() string {
	target := e.HostName
	if target == "" {
		target = e.Alias
	}
	if e.User != "" {
		target = e.User + "@" + target
	}
	if e.Port != 0 && e.Port != DefaultPort {
		target = fmt.Sprintf("%s:%d", target, e.Port)
	}
	return target
}
