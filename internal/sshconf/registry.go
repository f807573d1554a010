// Package sshconf reads and edits the user's SSH client config as the
// durable store of managed hosts. Every mutation rewrites only the target
// host block, leaves the rest of the file byte-for-byte intact, and lands
// atomically with a .bak copy of the previous contents.
//
// The file has a single writer: this process. Concurrent edits from other
// programs are out of scope and no file locking is attempted.
package sshconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sshm/internal/errdefs"
	"sshm/internal/sshtool"
)

// Registry is a handle on one SSH config file.
type Registry struct {
	path string
	tool *sshtool.Tool
}

func New(path string, tool *sshtool.Tool) *Registry {
	return &Registry{path: path, tool: tool}
}

// Path returns the config file location.
func (r *Registry) Path() string { return r.path }

// Exists reports whether the config file is present.
func (r *Registry) Exists() bool {
	_, err := os.Stat(r.path)
	return err == nil
}

// Create writes an empty config file with ssh's expected permissions, so a
// first run starts from a real file. An existing file is never touched.
func (r *Registry) Create() error {
	if r.Exists() {
		return nil
	}
	return r.writeLines(nil)
}

// load returns the file's lines. A missing file reads as empty.
func (r *Registry) load() ([]string, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ssh config %s: %w", r.path, err)
	}
	return splitLines(string(data)), nil
}

func splitLines(data string) []string {
	if data == "" {
		return nil
	}
	data = strings.TrimSuffix(data, "\n")
	return strings.Split(data, "\n")
}

// rawBlock is one host block's span within the file. end is exclusive and
// includes any trailing lines up to the next Host line.
type rawBlock struct {
	start, end int
	patterns   []string
}

func scanBlocks(lines []string) []rawBlock {
	var blocks []rawBlock
	for i, line := range lines {
		key, val, ok := splitDirective(strings.TrimSpace(stripInlineComment(line)))
		if !ok || !strings.EqualFold(key, "Host") {
			continue
		}
		if n := len(blocks); n > 0 {
			blocks[n-1].end = i
		}
		blocks = append(blocks, rawBlock{start: i, end: len(lines), patterns: strings.Fields(val)})
	}
	return blocks
}

// blockSpan locates the block whose patterns contain alias, driving the
// line scanner over the whole file. The first matching block wins.
func blockSpan(lines []string, alias string) (start, end int, ok bool) {
	s := newBlockScanner(alias)
	start = -1
	for i, line := range lines {
		info := s.feed(line)
		if info.InTarget {
			if start < 0 {
				start = i
			}
			end = i + 1
			continue
		}
		if start >= 0 {
			break
		}
	}
	return start, end, start >= 0
}

// Aliases returns every literal Host pattern in file order. Wildcard and
// negated patterns are configuration, not hosts, and are skipped.
func (r *Registry) Aliases() ([]string, error) {
	lines, err := r.load()
	if err != nil {
		return nil, err
	}
	var aliases []string
	for _, b := range scanBlocks(lines) {
		for _, p := range b.patterns {
			if isLiteralPattern(p) {
				aliases = append(aliases, p)
			}
		}
	}
	return aliases, nil
}

// Entries parses every literal host into its managed view, in file order.
func (r *Registry) Entries() ([]HostEntry, error) {
	lines, err := r.load()
	if err != nil {
		return nil, err
	}
	var entries []HostEntry
	for _, b := range scanBlocks(lines) {
		for _, p := range b.patterns {
			if isLiteralPattern(p) {
				entries = append(entries, parseBlock(lines[b.start:b.end], p))
			}
		}
	}
	return entries, nil
}

// Entry returns the managed view of one alias.
func (r *Registry) Entry(alias string) (HostEntry, error) {
	lines, err := r.load()
	if err != nil {
		return HostEntry{}, err
	}
	start, end, ok := blockSpan(lines, alias)
	if !ok {
		return HostEntry{}, errdefs.NotFound("host", alias)
	}
	return parseBlock(lines[start:end], alias), nil
}

// ExplicitValue returns the value a directive has inside the alias's own
// block, if set there. Values inherited from wildcard blocks or ssh
// defaults are not reported. A missing alias reads as not found.
func (r *Registry) ExplicitValue(alias, key string) (string, bool, error) {
	lines, err := r.load()
	if err != nil {
		return "", false, err
	}
	s := newBlockScanner(alias)
	for _, line := range lines {
		info := s.feed(line)
		if !info.InTarget || info.IsHost {
			continue
		}
		k, v, ok := splitDirective(strings.TrimSpace(stripInlineComment(line)))
		if ok && strings.EqualFold(k, key) {
			return v, true, nil
		}
	}
	return "", false, nil
}

// Add appends a new host block. The duplicate check runs before anything
// is written so a rejected add leaves the file untouched.
func (r *Registry) Add(e HostEntry) error {
	if err := ValidateAlias(e.Alias); err != nil {
		return err
	}
	if err := ValidatePort(e.Port); err != nil {
		return err
	}
	lines, err := r.load()
	if err != nil {
		return err
	}
	if _, _, ok := blockSpan(lines, e.Alias); ok {
		return errdefs.Validationf("alias", "host %q already exists", e.Alias)
	}
	out := trimTrailingBlank(lines)
	if len(out) > 0 {
		out = append(out, "")
	}
	out = append(out, renderBlock(e, defaultIndent)...)
	return r.writeLines(out)
}

// Update rewrites the alias's block for the new entry state. Unknown
// directives in the block are preserved in place. Renames swap the alias
// on the Host line and are rejected when the new name is already taken
// by another block.
func (r *Registry) Update(alias string, e HostEntry) error {
	if err := ValidateAlias(e.Alias); err != nil {
		return err
	}
	if err := ValidatePort(e.Port); err != nil {
		return err
	}
	lines, err := r.load()
	if err != nil {
		return err
	}
	start, end, ok := blockSpan(lines, alias)
	if !ok {
		return errdefs.NotFound("host", alias)
	}
	if e.Alias != alias {
		if s, _, taken := blockSpan(lines, e.Alias); taken && s != start {
			return errdefs.Validationf("alias", "host %q already exists", e.Alias)
		}
	}
	block := updateBlock(lines[start:end], alias, e)
	return r.writeLines(splice(lines, start, end, block))
}

// RemoveBlock deletes the alias's block. Blank lines that would be left
// doubled at the seam are swallowed so the file keeps single-blank
// separation between blocks.
func (r *Registry) RemoveBlock(alias string) error {
	lines, err := r.load()
	if err != nil {
		return err
	}
	start, end, ok := blockSpan(lines, alias)
	if !ok {
		return errdefs.NotFound("host", alias)
	}
	out := append([]string{}, lines[:start]...)
	rest := lines[end:]
	for len(rest) > 0 && strings.TrimSpace(rest[0]) == "" &&
		(len(out) == 0 || strings.TrimSpace(out[len(out)-1]) == "") {
		rest = rest[1:]
	}
	out = append(out, rest...)
	return r.writeLines(trimTrailingBlank(out))
}

// ReplaceBlock swaps the alias's block for the given lines verbatim.
func (r *Registry) ReplaceBlock(alias string, block []string) error {
	lines, err := r.load()
	if err != nil {
		return err
	}
	start, end, ok := blockSpan(lines, alias)
	if !ok {
		return errdefs.NotFound("host", alias)
	}
	return r.writeLines(splice(lines, start, end, block))
}

// IdentityFileRefs counts how many hosts reference the given identity file.
// Used before deleting a key pair to spot remaining users.
func (r *Registry) IdentityFileRefs(path string) (int, error) {
	entries, err := r.Entries()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.IdentityFile == path {
			n++
		}
	}
	return n, nil
}

func splice(lines []string, start, end int, insert []string) []string {
	out := append([]string{}, lines[:start]...)
	out = append(out, insert...)
	return append(out, lines[end:]...)
}

func trimTrailingBlank(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// writeLines lands the new contents atomically: current contents to .bak,
// new contents to a temp file, then rename over the original. The file is
// kept private (0600) as ssh expects.
func (r *Registry) writeLines(lines []string) error {
	data := strings.Join(lines, "\n")
	if data != "" {
		data += "\n"
	}
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	if cur, err := os.ReadFile(r.path); err == nil {
		if err := os.WriteFile(r.path+".bak", cur, 0o600); err != nil {
			return fmt.Errorf("write backup %s: %w", r.path+".bak", err)
		}
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(data), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", r.path, err)
	}
	return nil
}
