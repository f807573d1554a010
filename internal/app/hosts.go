package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"sshm/internal/lineedit"
	"sshm/internal/listview"
	"sshm/internal/menu"
	"sshm/internal/modal"
	"sshm/internal/probe"
	"sshm/internal/sshconf"
	"sshm/internal/terminal"
	"sshm/internal/textmetrics"
)

// hostsView is the main screen: every managed host, one per row, with
// the last known probe state as a status dot.
type hostsView struct {
	app  *App
	view *listview.View
	menu *menu.Menu
	edit *lineedit.Editor
	form *modal.Form

	hosts   []sshconf.HostEntry
	visible []sshconf.HostEntry
	filter  string
	status  map[string]probe.Result

	msg    []string
	action func()
	quit   bool
}

func newHostsView(a *App) *hostsView {
	h := &hostsView{
		app:    a,
		menu:   menu.New(a.Term, a.Style),
		edit:   lineedit.New(a.Term, a.Style),
		form:   modal.New(a.Term, a.Style),
		status: map[string]probe.Result{},
	}
	h.view = &listview.View{
		Term:   a.Term,
		Header: h.header,
		Body:   h.body,
		Footer: h.footer,
		Rows:   func() int { return len(h.visible) },
		Reload: h.reload,
		Keys: map[terminal.Key]listview.KeyHandler{
			{Kind: terminal.KeyEnter}:  h.onConnect,
			terminal.Rune('a'):         h.onAdd,
			terminal.Rune('e'):         h.onEdit,
			terminal.Rune('c'):         h.onClone,
			terminal.Rune('d'):         h.onDelete,
			terminal.Rune('t'):         h.onProbe,
			terminal.Rune('T'):         h.onProbeMany,
			terminal.Rune('f'):         h.onForwards,
			terminal.Rune('i'):         h.onKeys,
			terminal.Rune('/'):         h.onFilter,
			terminal.Rune('y'):         h.onCopy,
			terminal.Rune('r'):         h.onReload,
			terminal.Rune('q'):         h.onQuit,
			{Kind: terminal.KeyEscape}: h.onEscape,
		},
	}
	return h
}

// run shows the view until it exits. A pending action, if any, is left in
// h.action for the caller to execute while the view is off screen.
func (h *hostsView) run() error {
	h.action = nil
	if err := h.reload(); err != nil {
		return err
	}
	return h.view.Run()
}

func (h *hostsView) reload() error {
	entries, err := h.app.Reg.Entries()
	if err != nil {
		return err
	}
	h.hosts = entries
	h.refilter()
	return nil
}

// refilter narrows the visible rows with a fuzzy match over alias,
// hostname and tags. Match order is the ranking fuzzy assigns.
func (h *hostsView) refilter() {
	if h.filter == "" {
		h.visible = h.hosts
		return
	}
	keys := make([]string, len(h.hosts))
	for i, e := range h.hosts {
		keys[i] = e.Alias + " " + e.HostName + " " + strings.Join(e.Tags, " ")
	}
	var vis []sshconf.HostEntry
	for _, m := range fuzzy.Find(h.filter, keys) {
		vis = append(vis, h.hosts[m.Index])
	}
	h.visible = vis
}

func (h *hostsView) current(sel int) (sshconf.HostEntry, bool) {
	if sel < 0 || sel >= len(h.visible) {
		return sshconf.HostEntry{}, false
	}
	return h.visible[sel], true
}

// --- Drawers ---

func (h *hostsView) header() []string {
	s := h.app.Style
	count := fmt.Sprintf("  %d hosts", len(h.visible))
	if h.filter != "" {
		count = fmt.Sprintf("  %d/%d hosts  filter:%s", len(h.visible), len(h.hosts), h.filter)
	}
	return []string{s.Bold("sshm") + s.Dim(count), ""}
}

func (h *hostsView) body(sel int) []string {
	s := h.app.Style
	if len(h.visible) == 0 {
		if h.filter != "" {
			return []string{s.Dim("  no hosts match the filter")}
		}
		return []string{s.Dim("  no hosts yet (a to add one)")}
	}

	aliasW, targetW := 0, 0
	for _, e := range h.visible {
		if w := textmetrics.VisibleWidth(e.Alias); w > aliasW {
			aliasW = w
		}
		if w := textmetrics.VisibleWidth(e.Summary()); w > targetW {
			targetW = w
		}
	}

	lines := make([]string, 0, len(h.visible))
	for i, e := range h.visible {
		marker := "  "
		if i == sel {
			marker = s.Cyan("▸") + " "
		}
		line := fmt.Sprintf("%s%s %s  %s",
			marker, h.dot(e.Alias),
			textmetrics.PadToWidth(e.Alias, aliasW),
			textmetrics.PadToWidth(e.Summary(), targetW))
		if len(e.Tags) > 0 {
			line += "  " + s.Dim(strings.Join(e.Tags, ","))
		}
		lines = append(lines, strings.TrimRight(line, " "))
	}
	return lines
}

func (h *hostsView) dot(alias string) string {
	r, ok := h.status[alias]
	switch {
	case !ok:
		return h.app.Style.GrayDot()
	case r.OK:
		return h.app.Style.GreenDot()
	default:
		return h.app.Style.RedDot()
	}
}

func (h *hostsView) footer() []string {
	hint := "enter connect   a add   e edit   c clone   d delete   t/T probe   f forwards   i keys   / filter   y copy   q quit"
	lines := []string{"", h.app.Style.Dim(hint)}
	return append(lines, h.msg...)
}

// --- Leaving the view ---

func (h *hostsView) onQuit(int) (listview.Outcome, error) {
	h.quit = true
	return listview.Exit, nil
}

// onEscape clears an active filter first; with no filter it quits.
func (h *hostsView) onEscape(sel int) (listview.Outcome, error) {
	if h.filter != "" {
		h.filter = ""
		h.msg = nil
		return listview.Refresh, nil
	}
	return h.onQuit(sel)
}

func (h *hostsView) onReload(int) (listview.Outcome, error) {
	h.msg = nil
	return listview.Refresh, nil
}

func (h *hostsView) onConnect(sel int) (listview.Outcome, error) {
	h.msg = nil
	e, ok := h.current(sel)
	if !ok {
		return listview.Noop, nil
	}
	a := h.app
	h.action = func() {
		a.Trace.Connect(e.Alias, e.Summary())
		a.Term.Println(a.Style.Dim("· ssh " + e.Alias))
		if err := a.cooked(func() error { return a.Tool.Connect(e.Alias) }); err != nil {
			h.msg = a.report(err)
			return
		}
		h.msg = a.note("session with " + e.Alias + " ended")
	}
	return listview.Exit, nil
}

func (h *hostsView) onForwards(int) (listview.Outcome, error) {
	h.msg = nil
	h.action = func() {
		if err := h.app.runForwards(); err != nil {
			h.msg = h.app.report(err)
		}
	}
	return listview.Exit, nil
}

// --- Filter and clipboard ---

func (h *hostsView) onFilter(int) (listview.Outcome, error) {
	h.msg = nil
	r, err := h.edit.Read("filter: ", h.filter)
	if err != nil {
		return listview.Noop, err
	}
	if r.Cancelled {
		h.filter = ""
	} else {
		h.filter = r.Text
	}
	return listview.Refresh, nil
}

func (h *hostsView) onCopy(sel int) (listview.Outcome, error) {
	h.msg = nil
	e, ok := h.current(sel)
	if !ok {
		return listview.Noop, nil
	}
	a := h.app
	name, args := a.Tool.ConnectArgs(e.Alias)
	cmdline := strings.Join(append([]string{name}, args...), " ")
	if err := a.Clip(cmdline); err != nil {
		h.msg = a.note("clipboard unavailable: " + err.Error())
	} else {
		h.msg = a.ok("copied: " + cmdline)
	}
	return listview.Partial, nil
}

// --- Probing ---

func (h *hostsView) onProbe(sel int) (listview.Outcome, error) {
	h.msg = nil
	e, ok := h.current(sel)
	if !ok {
		return listview.Noop, nil
	}
	a := h.app
	var r probe.Result
	a.spin("probing "+e.Alias, func() error {
		r = a.Prober.Probe(context.Background(), e.Alias)
		return nil
	})
	h.status[e.Alias] = r
	a.Trace.Probe(e.Alias, r.OK, r.Elapsed)
	h.msg = h.probeMsg(r)
	return listview.Refresh, nil
}

func (h *hostsView) onProbeMany(int) (listview.Outcome, error) {
	h.msg = nil
	if len(h.visible) == 0 {
		return listview.Noop, nil
	}
	opts := make([]menu.Option, len(h.visible))
	for i, e := range h.visible {
		opts[i] = menu.Opt(e.Alias + "  " + h.app.Style.Dim(e.Summary()))
	}
	choice, err := h.menu.PickMulti("probe which hosts?", opts, true)
	if err != nil {
		return listview.Noop, err
	}
	if choice.Cancelled || choice.None {
		return listview.Partial, nil
	}
	aliases := make([]string, len(choice.Indices))
	for i, idx := range choice.Indices {
		aliases[i] = h.visible[idx].Alias
	}
	h.msg = h.probeBatch(aliases)
	return listview.Refresh, nil
}

// probeBatch probes aliases concurrently, animating progress on the
// resting line while results stream in. All probes are joined before the
// summary renders.
func (h *hostsView) probeBatch(aliases []string) []string {
	a := h.app
	ch := a.Prober.All(context.Background(), aliases)
	start := time.Now()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	done, reachable := 0, 0
	for done < len(aliases) {
		select {
		case r := <-ch:
			done++
			if r.OK {
				reachable++
			}
			h.status[r.Alias] = r
			a.Trace.Probe(r.Alias, r.OK, r.Elapsed)
		case <-tick.C:
			a.Term.ClearLine()
			a.Term.Printf("probing %d/%d  %s", done, len(aliases),
				a.Style.Dim(time.Since(start).Round(time.Second).String()))
		}
	}
	a.Term.ClearLine()

	elapsed := time.Since(start).Round(100 * time.Millisecond)
	if reachable == len(aliases) {
		return a.ok(fmt.Sprintf("all %d hosts reachable in %s", len(aliases), elapsed))
	}
	return []string{a.Style.RedX() + " " +
		fmt.Sprintf("%d of %d hosts unreachable (%s)", len(aliases)-reachable, len(aliases), elapsed)}
}

func (h *hostsView) probeMsg(r probe.Result) []string {
	a := h.app
	if r.OK {
		return a.ok(fmt.Sprintf("%s reachable in %s", r.Alias, r.Elapsed.Round(time.Millisecond)))
	}
	lines := []string{a.Style.RedX() + " " + r.Alias + " unreachable"}
	for _, l := range strings.Split(r.Detail, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, a.Style.Dim("    "+strings.TrimSpace(l)))
		}
	}
	return lines
}
