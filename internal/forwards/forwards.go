// Package forwards keeps the user's saved SSH tunnels in a small
// pipe-delimited store next to the ssh config. One line per tunnel:
//
//	type|spec|host|description
//
// where type is L (local), R (remote) or D (dynamic) and spec uses ssh's
// own -L/-R/-D syntax. The store has a single writer, like the ssh config
// itself.
package forwards

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sshm/internal/errdefs"
)

// Type selects the ssh forwarding mode.
type Type string

const (
	Local   Type = "L"
	Remote  Type = "R"
	Dynamic Type = "D"
)

// Name returns the human name of the forwarding mode.
func (t Type) Name() string {
	switch t {
	case Local:
		return "local"
	case Remote:
		return "remote"
	case Dynamic:
		return "dynamic"
	}
	return string(t)
}

// Flag returns the ssh option that establishes this forward type.
func (t Type) Flag() string { return "-" + string(t) }

// Forward is one saved tunnel definition.
type Forward struct {
	Type        Type
	Spec        string
	Host        string
	Description string
}

// Label renders the forward for list rows.
func (f Forward) Label() string {
	s := fmt.Sprintf("%s %s -> %s", f.Type, f.Spec, f.Host)
	if f.Description != "" {
		s += "  (" + f.Description + ")"
	}
	return s
}

// LocalPort returns the port a local or dynamic forward listens on.
func (f Forward) LocalPort() (int, bool) {
	parts := strings.Split(f.Spec, ":")
	var p string
	switch f.Type {
	case Local, Remote:
		switch len(parts) {
		case 3:
			p = parts[0]
		case 4:
			p = parts[1]
		default:
			return 0, false
		}
	case Dynamic:
		p = parts[len(parts)-1]
	default:
		return 0, false
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return 0, false
	}
	return port, true
}

// Validate checks the forward before it is stored.
func (f Forward) Validate() error {
	switch f.Type {
	case Local, Remote, Dynamic:
	default:
		return errdefs.Validationf("type", "%q is not one of L, R, D", string(f.Type))
	}
	if strings.TrimSpace(f.Host) == "" {
		return errdefs.Validationf("host", "must not be empty")
	}
	for _, field := range []string{f.Spec, f.Host, f.Description} {
		if strings.Contains(field, "|") {
			return errdefs.Validationf("forward", "fields must not contain %q", "|")
		}
	}
	return validateSpec(f.Type, f.Spec)
}

func validateSpec(t Type, spec string) error {
	parts := strings.Split(spec, ":")
	switch t {
	case Local, Remote:
		if len(parts) != 3 && len(parts) != 4 {
			return errdefs.Validationf("spec", "%q is not [bind:]port:host:hostport", spec)
		}
		local := parts[0]
		if len(parts) == 4 {
			local = parts[1]
		}
		if err := checkPort(local); err != nil {
			return err
		}
		return checkPort(parts[len(parts)-1])
	case Dynamic:
		if len(parts) != 1 && len(parts) != 2 {
			return errdefs.Validationf("spec", "%q is not [bind:]port", spec)
		}
		return checkPort(parts[len(parts)-1])
	}
	return nil
}

func checkPort(s string) error {
	p, err := strconv.Atoi(s)
	if err != nil || p < 1 || p > 65535 {
		return errdefs.Validationf("spec", "port %q is not between 1 and 65535", s)
	}
	return nil
}

// Store is a handle on one forwards file.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the store file location.
func (s *Store) Path() string { return s.path }

// List returns every saved forward in file order. A missing file reads as
// empty; a malformed line fails the whole load so a broken store is never
// silently rewritten.
func (s *Store) List() ([]Forward, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read forwards %s: %w", s.path, err)
	}
	var out []Forward
	for i, line := range strings.Split(strings.TrimSuffix(string(data), "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		f, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", s.path, i+1, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func parseLine(line string) (Forward, error) {
	parts := strings.Split(line, "|")
	if len(parts) != 4 {
		return Forward{}, errdefs.Validationf("forward", "expected 4 fields, got %d", len(parts))
	}
	f := Forward{
		Type:        Type(strings.TrimSpace(parts[0])),
		Spec:        strings.TrimSpace(parts[1]),
		Host:        strings.TrimSpace(parts[2]),
		Description: strings.TrimSpace(parts[3]),
	}
	if err := f.Validate(); err != nil {
		return Forward{}, err
	}
	return f, nil
}

// Add appends a forward. Duplicates of an existing type+spec+host triple
// are rejected before anything is written.
func (s *Store) Add(f Forward) error {
	if err := f.Validate(); err != nil {
		return err
	}
	list, err := s.List()
	if err != nil {
		return err
	}
	for _, cur := range list {
		if cur.Type == f.Type && cur.Spec == f.Spec && cur.Host == f.Host {
			return errdefs.Validationf("forward", "%s %s on %q already saved", cur.Type, cur.Spec, cur.Host)
		}
	}
	return s.write(append(list, f))
}

// Remove deletes the forward matching all four fields.
func (s *Store) Remove(f Forward) error {
	list, err := s.List()
	if err != nil {
		return err
	}
	out := list[:0]
	found := false
	for _, cur := range list {
		if cur == f {
			found = true
			continue
		}
		out = append(out, cur)
	}
	if !found {
		return errdefs.NotFound("forward", f.Label())
	}
	return s.write(out)
}

func (s *Store) write(list []Forward) error {
	var b strings.Builder
	for _, f := range list {
		fmt.Fprintf(&b, "%s|%s|%s|%s\n", f.Type, f.Spec, f.Host, f.Description)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(s.path), err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// activeProbeTimeout bounds the listener check so drawing a list of
// forwards never stalls.
const activeProbeTimeout = 200 * time.Millisecond

// Active reports whether something is listening on the forward's local
// port. Remote forwards listen on the far end, which cannot be checked
// from here.
func Active(f Forward) bool {
	if f.Type == Remote {
		return false
	}
	port, ok := f.LocalPort()
	if !ok {
		return false
	}
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), activeProbeTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
