package sshconf

import (
	"context"
	"strconv"
	"strings"

	"sshm/internal/errdefs"
)

// Resolved carries the effective connection parameters ssh computed for an
// alias, after wildcard blocks, Include files and built-in defaults.
type Resolved struct {
	HostName      string
	User          string
	Port          int
	IdentityFiles []string
}

// Target renders the resolved endpoint as user@hostname.
func (v Resolved) Target() string {
	if v.User == "" {
		return v.HostName
	}
	return v.User + "@" + v.HostName
}

// Resolve asks ssh itself for the alias's effective configuration rather
// than re-implementing the client's matching rules. The alias must exist
// as a literal host in the file; ssh -G would otherwise happily resolve
// any name at all.
func (r *Registry) Resolve(ctx context.Context, alias string) (Resolved, error) {
	lines, err := r.load()
	if err != nil {
		return Resolved{}, err
	}
	if _, _, ok := blockSpan(lines, alias); !ok {
		return Resolved{}, errdefs.NotFound("host", alias)
	}
	out, err := r.tool.ResolveOutput(ctx, alias)
	if err != nil {
		return Resolved{}, err
	}
	return parseResolved(out), nil
}

// parseResolved reads ssh -G output, one lowercase "key value" pair per
// line.
func parseResolved(out string) Resolved {
	var v Resolved
	for _, line := range strings.Split(out, "\n") {
		key, val, ok := strings.Cut(strings.TrimSpace(line), " ")
		if !ok {
			continue
		}
		switch key {
		case "hostname":
			v.HostName = val
		case "user":
			v.User = val
		case "port":
			if p, err := strconv.Atoi(val); err == nil {
				v.Port = p
			}
		case "identityfile":
			v.IdentityFiles = append(v.IdentityFiles, val)
		}
	}
	return v
}
