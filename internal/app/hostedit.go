package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sshm/internal/config"
	"sshm/internal/errdefs"
	"sshm/internal/listview"
	"sshm/internal/menu"
	"sshm/internal/modal"
	"sshm/internal/sshconf"
)

// --- Add, edit, clone ---

func (h *hostsView) onAdd(int) (listview.Outcome, error) {
	h.msg = nil
	entry, saved, err := h.editHost("add host", sshconf.HostEntry{}, "")
	if err != nil {
		return listview.Noop, err
	}
	if !saved {
		return listview.Partial, nil
	}
	if err := h.app.Reg.Add(entry); err != nil {
		h.msg = h.app.report(err)
		return listview.Refresh, nil
	}
	h.app.Trace.HostAdded(entry.Alias)
	h.msg = h.app.ok("added " + entry.Alias)
	return listview.Refresh, nil
}

func (h *hostsView) onClone(sel int) (listview.Outcome, error) {
	h.msg = nil
	e, ok := h.current(sel)
	if !ok {
		return listview.Noop, nil
	}
	src := e
	src.Alias = ""
	entry, saved, err := h.editHost("clone "+e.Alias, src, "")
	if err != nil {
		return listview.Noop, err
	}
	if !saved {
		return listview.Partial, nil
	}
	if err := h.app.Reg.Add(entry); err != nil {
		h.msg = h.app.report(err)
		return listview.Refresh, nil
	}
	h.app.Trace.HostAdded(entry.Alias)
	h.msg = h.app.ok("added " + entry.Alias + " (from " + e.Alias + ")")
	return listview.Refresh, nil
}

func (h *hostsView) onEdit(sel int) (listview.Outcome, error) {
	h.msg = nil
	e, ok := h.current(sel)
	if !ok {
		return listview.Noop, nil
	}
	a := h.app
	entry, saved, err := h.editHost("edit "+e.Alias, e, e.Alias)
	if err != nil {
		return listview.Noop, err
	}
	if !saved {
		return listview.Partial, nil
	}

	// A rename can leave alias-named key files behind. Offer to carry
	// them along before the block is rewritten.
	renameKey := false
	oldKey := h.keyPath(e.Alias)
	if entry.Alias != e.Alias && fileExists(oldKey) {
		renameKey, err = a.confirm(fmt.Sprintf("rename key files %s -> %s as well?", filepath.Base(oldKey), entry.Alias))
		if err != nil {
			return listview.Noop, err
		}
		if renameKey && config.ExpandTilde(entry.IdentityFile) == oldKey {
			entry.IdentityFile = filepath.Join(filepath.Dir(entry.IdentityFile), entry.Alias)
		}
	}

	if err := a.Reg.Update(e.Alias, entry); err != nil {
		h.msg = a.report(err)
		return listview.Refresh, nil
	}
	if renameKey {
		newKey := h.keyPath(entry.Alias)
		if err := os.Rename(oldKey, newKey); err != nil {
			h.msg = a.report(err)
		} else {
			os.Rename(oldKey+".pub", newKey+".pub")
		}
	}
	if entry.Alias != e.Alias {
		delete(h.status, e.Alias)
	}
	a.Trace.HostUpdated(e.Alias, entry.Alias)
	h.msg = append(a.ok("updated "+entry.Alias), h.msg...)
	return listview.Refresh, nil
}

// editHost runs the host form and returns the parsed entry on save.
// oldAlias is empty for new hosts; an unchanged alias never counts as a
// duplicate.
func (h *hostsView) editHost(title string, e sshconf.HostEntry, oldAlias string) (sshconf.HostEntry, bool, error) {
	res, err := h.form.Run(title, hostFields(e), func(values []string) error {
		entry, err := parseHostForm(values)
		if err != nil {
			return err
		}
		return h.checkAlias(entry.Alias, oldAlias)
	})
	if err != nil || res.Cancelled {
		return sshconf.HostEntry{}, false, err
	}
	entry, err := parseHostForm(res.Values)
	if err != nil {
		return sshconf.HostEntry{}, false, err
	}
	return entry, true, nil
}

func hostFields(e sshconf.HostEntry) []modal.Field {
	port := ""
	if e.Port != 0 {
		port = strconv.Itoa(e.Port)
	}
	return []modal.Field{
		{Label: "Alias", Value: e.Alias},
		{Label: "HostName", Value: e.HostName},
		{Label: "User", Value: e.User},
		{Label: "Port", Value: port},
		{Label: "IdentityFile", Value: e.IdentityFile},
		{Label: "Tags", Value: strings.Join(e.Tags, ", ")},
	}
}

func parseHostForm(values []string) (sshconf.HostEntry, error) {
	e := sshconf.HostEntry{
		Alias:        strings.TrimSpace(values[0]),
		HostName:     strings.TrimSpace(values[1]),
		User:         strings.TrimSpace(values[2]),
		IdentityFile: strings.TrimSpace(values[4]),
	}
	if err := sshconf.ValidateAlias(e.Alias); err != nil {
		return e, err
	}
	if p := strings.TrimSpace(values[3]); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return e, errdefs.Validationf("port", "port must be a number, got %q", p)
		}
		if err := sshconf.ValidatePort(n); err != nil {
			return e, err
		}
		e.Port = n
	}
	for _, t := range strings.Split(values[5], ",") {
		if t = strings.TrimSpace(t); t != "" {
			e.Tags = append(e.Tags, t)
		}
	}
	return e, nil
}

func (h *hostsView) checkAlias(alias, oldAlias string) error {
	if alias == oldAlias {
		return nil
	}
	aliases, err := h.app.Reg.Aliases()
	if err != nil {
		return err
	}
	for _, a := range aliases {
		if a == alias {
			return errdefs.Validationf("alias", "host %q already exists", alias)
		}
	}
	return nil
}

// --- Delete ---

func (h *hostsView) onDelete(sel int) (listview.Outcome, error) {
	h.msg = nil
	e, ok := h.current(sel)
	if !ok {
		return listview.Noop, nil
	}
	a := h.app
	confirmed, err := a.confirm(fmt.Sprintf("delete host %q?", e.Alias))
	if err != nil {
		return listview.Noop, err
	}
	if !confirmed {
		return listview.Partial, nil
	}
	if err := a.Reg.RemoveBlock(e.Alias); err != nil {
		h.msg = a.report(err)
		return listview.Refresh, nil
	}
	a.Trace.HostRemoved(e.Alias)
	delete(h.status, e.Alias)
	h.msg = a.ok("deleted " + e.Alias)
	h.msg = append(h.msg, h.cleanupKey(e)...)
	return listview.Refresh, nil
}

// cleanupKey offers to delete e's identity file once no remaining host
// references it. Declining, or any failure to look, leaves the key alone.
func (h *hostsView) cleanupKey(e sshconf.HostEntry) []string {
	if e.IdentityFile == "" {
		return nil
	}
	a := h.app
	path := config.ExpandTilde(e.IdentityFile)
	if !fileExists(path) {
		return nil
	}
	refs, err := a.Reg.IdentityFileRefs(e.IdentityFile)
	if err != nil || refs > 0 {
		return nil
	}
	confirmed, err := a.confirm(fmt.Sprintf("key %s is no longer referenced, delete it?", e.IdentityFile))
	if err != nil || !confirmed {
		return nil
	}
	if err := os.Remove(path); err != nil {
		return a.report(err)
	}
	os.Remove(path + ".pub")
	return a.ok("removed " + e.IdentityFile)
}

// --- Key management ---

func (h *hostsView) onKeys(sel int) (listview.Outcome, error) {
	h.msg = nil
	e, ok := h.current(sel)
	if !ok {
		return listview.Noop, nil
	}
	choice, err := h.menu.Pick("keys for "+e.Alias, []menu.Option{
		{Label: "generate key", Detail: []string{"ssh-keygen -t ed25519 -f " + h.keyPath(e.Alias)}},
		{Label: "copy public key to host", Detail: []string{"ssh-copy-id, may ask for the password"}},
	})
	if err != nil {
		return listview.Noop, err
	}
	switch choice.Index {
	case 0:
		return h.generateKey(e)
	case 1:
		return h.copyKey(e)
	}
	return listview.Partial, nil
}

func (h *hostsView) generateKey(e sshconf.HostEntry) (listview.Outcome, error) {
	a := h.app
	path := h.keyPath(e.Alias)
	if fileExists(path) {
		confirmed, err := a.confirm(fmt.Sprintf("overwrite existing key %s?", path))
		if err != nil {
			return listview.Noop, err
		}
		if !confirmed {
			return listview.Partial, nil
		}
		// ssh-keygen stops to ask about existing files and its stdin is
		// not wired up here, so clear them first.
		os.Remove(path)
		os.Remove(path + ".pub")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := a.spin("generating key for "+e.Alias, func() error {
		return a.Tool.GenerateKey(ctx, path, e.Alias)
	})
	if err != nil {
		h.msg = a.report(err)
		return listview.Partial, nil
	}
	a.Trace.KeyGenerated(path)
	h.msg = a.ok("generated " + path)

	if e.IdentityFile == "" {
		confirmed, err := a.confirm("set it as IdentityFile for " + e.Alias + "?")
		if err != nil {
			return listview.Noop, err
		}
		if confirmed {
			e.IdentityFile = path
			if err := a.Reg.Update(e.Alias, e); err != nil {
				h.msg = append(h.msg, a.report(err)...)
			}
			return listview.Refresh, nil
		}
	}
	return listview.Partial, nil
}

// copyKey resolves the connection target up front, then hands the
// terminal to ssh-copy-id, which may prompt for a password.
func (h *hostsView) copyKey(e sshconf.HostEntry) (listview.Outcome, error) {
	a := h.app
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	res, err := a.Reg.Resolve(ctx, e.Alias)
	if err != nil {
		h.msg = a.report(err)
		return listview.Partial, nil
	}
	pub := ""
	if e.IdentityFile != "" {
		pub = config.ExpandTilde(e.IdentityFile) + ".pub"
	}
	target := res.Target()
	port := res.Port
	h.action = func() {
		a.Term.Println(a.Style.Dim("· ssh-copy-id " + target))
		if err := a.cooked(func() error { return a.Tool.CopyKey(target, port, pub) }); err != nil {
			h.msg = a.report(err)
			return
		}
		a.Trace.KeyCopied(e.Alias, pub)
		h.msg = a.ok("key installed on " + e.Alias)
	}
	return listview.Exit, nil
}

func (h *hostsView) keyPath(alias string) string {
	return filepath.Join(h.app.Cfg.SSHDir, alias)
}
