package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"sshm/internal/forwards"
	"sshm/internal/listview"
	"sshm/internal/modal"
	"sshm/internal/terminal"
	"sshm/internal/textmetrics"
)

// forwardsView lists the saved port forwards with a live local-listener
// indicator. Remote forwards get the undecided dot: their listener is on
// the other end.
type forwardsView struct {
	app  *App
	view *listview.View
	form *modal.Form

	rows   []forwards.Forward
	active map[int]bool

	msg    []string
	action func()
	back   bool
}

// runForwards shows the forwards screen until the user goes back.
// Starting a forward hands the terminal to ssh between view sessions,
// the same pattern the hosts view uses for connect.
func (a *App) runForwards() error {
	f := newForwardsView(a)
	for {
		f.action = nil
		if err := f.reload(); err != nil {
			return err
		}
		if err := f.view.Run(); err != nil {
			return err
		}
		if f.back {
			return nil
		}
		if f.action != nil {
			f.action()
		}
	}
}

func newForwardsView(a *App) *forwardsView {
	f := &forwardsView{app: a, form: modal.New(a.Term, a.Style)}
	f.view = &listview.View{
		Term:   a.Term,
		Header: f.header,
		Body:   f.body,
		Footer: f.footer,
		Rows:   func() int { return len(f.rows) },
		Reload: f.reload,
		Keys: map[terminal.Key]listview.KeyHandler{
			{Kind: terminal.KeyEnter}:  f.onStart,
			terminal.Rune('a'):         f.onAdd,
			terminal.Rune('e'):         f.onEdit,
			terminal.Rune('d'):         f.onDelete,
			terminal.Rune('r'):         f.onReload,
			terminal.Rune('q'):         f.onBack,
			{Kind: terminal.KeyEscape}: f.onBack,
		},
	}
	return f
}

func (f *forwardsView) reload() error {
	rows, err := f.app.Fwd.List()
	if err != nil {
		return err
	}
	f.rows = rows
	f.refreshActive()
	return nil
}

// refreshActive re-checks listener state for every saved forward. The
// checks dial concurrently so a page of forwards settles within one
// probe timeout, not one per row.
func (f *forwardsView) refreshActive() {
	f.active = make(map[int]bool, len(f.rows))
	var wg sync.WaitGroup
	var mu sync.Mutex
	for i, fw := range f.rows {
		if fw.Type == forwards.Remote {
			continue
		}
		wg.Add(1)
		go func(i int, fw forwards.Forward) {
			defer wg.Done()
			on := forwards.Active(fw)
			mu.Lock()
			f.active[i] = on
			mu.Unlock()
		}(i, fw)
	}
	wg.Wait()
}

func (f *forwardsView) current(sel int) (forwards.Forward, bool) {
	if sel < 0 || sel >= len(f.rows) {
		return forwards.Forward{}, false
	}
	return f.rows[sel], true
}

// --- Drawers ---

func (f *forwardsView) header() []string {
	s := f.app.Style
	return []string{s.Bold("port forwards") + s.Dim(fmt.Sprintf("  %d saved", len(f.rows))), ""}
}

func (f *forwardsView) body(sel int) []string {
	s := f.app.Style
	if len(f.rows) == 0 {
		return []string{s.Dim("  no forwards yet (a to add one)")}
	}

	specW, hostW := 0, 0
	for _, fw := range f.rows {
		if w := textmetrics.VisibleWidth(fw.Spec); w > specW {
			specW = w
		}
		if w := textmetrics.VisibleWidth(fw.Host); w > hostW {
			hostW = w
		}
	}

	lines := make([]string, 0, len(f.rows))
	for i, fw := range f.rows {
		marker := "  "
		if i == sel {
			marker = s.Cyan("▸") + " "
		}
		line := fmt.Sprintf("%s%s %s %s -> %s",
			marker, f.dot(i, fw), s.Bold(fw.Type.Flag()),
			textmetrics.PadToWidth(fw.Spec, specW),
			textmetrics.PadToWidth(fw.Host, hostW))
		if fw.Description != "" {
			line += "  " + s.Dim(fw.Description)
		}
		lines = append(lines, strings.TrimRight(line, " "))
	}
	return lines
}

func (f *forwardsView) dot(i int, fw forwards.Forward) string {
	s := f.app.Style
	switch {
	case fw.Type == forwards.Remote:
		return s.YellowDot()
	case f.active[i]:
		return s.GreenDot()
	default:
		return s.GrayDot()
	}
}

func (f *forwardsView) footer() []string {
	hint := "enter start   a add   e edit   d delete   r refresh   q back"
	lines := []string{"", f.app.Style.Dim(hint)}
	return append(lines, f.msg...)
}

// --- Handlers ---

func (f *forwardsView) onBack(int) (listview.Outcome, error) {
	f.back = true
	return listview.Exit, nil
}

func (f *forwardsView) onReload(int) (listview.Outcome, error) {
	f.msg = nil
	return listview.Refresh, nil
}

// onStart verifies the alias still resolves, then runs the forward in
// the foreground until the user interrupts it.
func (f *forwardsView) onStart(sel int) (listview.Outcome, error) {
	f.msg = nil
	fw, ok := f.current(sel)
	if !ok {
		return listview.Noop, nil
	}
	a := f.app
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if _, err := a.Reg.Resolve(ctx, fw.Host); err != nil {
		f.msg = a.report(err)
		return listview.Partial, nil
	}
	a.Trace.ForwardStarted(string(fw.Type), fw.Spec, fw.Host)
	f.action = func() {
		a.Term.Println(a.Style.Dim(fmt.Sprintf("· ssh -N %s %s %s  (interrupt to stop)",
			fw.Type.Flag(), fw.Spec, fw.Host)))
		if err := a.cooked(func() error { return a.Tool.StartForward(fw.Type.Flag(), fw.Spec, fw.Host) }); err != nil {
			f.msg = a.report(err)
			return
		}
		f.msg = a.note("forward ended")
	}
	return listview.Exit, nil
}

func (f *forwardsView) onAdd(int) (listview.Outcome, error) {
	f.msg = nil
	fw, saved, err := f.editForward("add forward", forwards.Forward{Type: forwards.Local})
	if err != nil {
		return listview.Noop, err
	}
	if !saved {
		return listview.Partial, nil
	}
	if err := f.app.Fwd.Add(fw); err != nil {
		f.msg = f.app.report(err)
		return listview.Refresh, nil
	}
	f.app.Trace.ForwardSaved(string(fw.Type), fw.Spec, fw.Host)
	f.msg = f.app.ok("saved " + fw.Label())
	return listview.Refresh, nil
}

func (f *forwardsView) onEdit(sel int) (listview.Outcome, error) {
	f.msg = nil
	old, ok := f.current(sel)
	if !ok {
		return listview.Noop, nil
	}
	fw, saved, err := f.editForward("edit forward", old)
	if err != nil {
		return listview.Noop, err
	}
	if !saved || fw == old {
		return listview.Partial, nil
	}
	if err := f.app.Fwd.Remove(old); err != nil {
		f.msg = f.app.report(err)
		return listview.Refresh, nil
	}
	if err := f.app.Fwd.Add(fw); err != nil {
		f.app.Fwd.Add(old)
		f.msg = f.app.report(err)
		return listview.Refresh, nil
	}
	f.app.Trace.ForwardSaved(string(fw.Type), fw.Spec, fw.Host)
	f.msg = f.app.ok("updated " + fw.Label())
	return listview.Refresh, nil
}

func (f *forwardsView) onDelete(sel int) (listview.Outcome, error) {
	f.msg = nil
	fw, ok := f.current(sel)
	if !ok {
		return listview.Noop, nil
	}
	a := f.app
	confirmed, err := a.confirm(fmt.Sprintf("delete forward %s?", fw.Label()))
	if err != nil {
		return listview.Noop, err
	}
	if !confirmed {
		return listview.Partial, nil
	}
	if err := a.Fwd.Remove(fw); err != nil {
		f.msg = a.report(err)
		return listview.Refresh, nil
	}
	a.Trace.ForwardRemoved(string(fw.Type), fw.Spec, fw.Host)
	f.msg = a.ok("deleted " + fw.Label())
	return listview.Refresh, nil
}

// editForward runs the forward form; validation happens on save so bad
// specs are reported inline while the form stays open.
func (f *forwardsView) editForward(title string, fw forwards.Forward) (forwards.Forward, bool, error) {
	fields := []modal.Field{
		{Label: "Type (L/R/D)", Value: string(fw.Type)},
		{Label: "Spec", Value: fw.Spec},
		{Label: "Host", Value: fw.Host},
		{Label: "Description", Value: fw.Description},
	}
	res, err := f.form.Run(title, fields, func(values []string) error {
		_, err := parseForwardForm(values)
		return err
	})
	if err != nil || res.Cancelled {
		return forwards.Forward{}, false, err
	}
	out, err := parseForwardForm(res.Values)
	if err != nil {
		return forwards.Forward{}, false, err
	}
	return out, true, nil
}

func parseForwardForm(values []string) (forwards.Forward, error) {
	fw := forwards.Forward{
		Type:        forwards.Type(strings.ToUpper(strings.TrimSpace(values[0]))),
		Spec:        strings.TrimSpace(values[1]),
		Host:        strings.TrimSpace(values[2]),
		Description: strings.TrimSpace(values[3]),
	}
	return fw, fw.Validate()
}
