// Package app is the interactive layer of sshm: the hosts list, the
// forwards list, and the flows they open (connect, edit, probe, key
// management). Views read keys and paint through one terminal; anything
// durable goes through the registry and stores underneath.
package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"sshm/internal/config"
	"sshm/internal/errdefs"
	"sshm/internal/forwards"
	"sshm/internal/probe"
	"sshm/internal/sshconf"
	"sshm/internal/sshtool"
	"sshm/internal/terminal"
	"sshm/internal/termstyle"
	"sshm/internal/tracelog"
)

// App bundles the components one interactive run works with.
type App struct {
	Term   *terminal.Terminal
	Style  termstyle.Palette
	Cfg    *config.Config
	Tool   *sshtool.Tool
	Reg    *sshconf.Registry
	Fwd    *forwards.Store
	Prober *probe.Prober
	Trace  *tracelog.Logger

	// Cooked runs fn with the terminal back in cooked mode, for children
	// that take over the TTY. The CLI wires it to the raw-mode session;
	// tests leave it nil and fn runs as-is.
	Cooked func(fn func() error) error

	// Clip installs text into the system clipboard. Swapped in tests.
	Clip func(text string) error
}

// New wires the application over one configuration. The terminal and
// palette come from the caller so tests can run headless.
func New(term *terminal.Terminal, style termstyle.Palette, cfg *config.Config, trace *tracelog.Logger) *App {
	tool := sshtool.New(cfg)
	return &App{
		Term:   term,
		Style:  style,
		Cfg:    cfg,
		Tool:   tool,
		Reg:    sshconf.New(cfg.SSHConfig, tool),
		Fwd:    forwards.NewStore(cfg.ForwardsFile),
		Prober: probe.New(tool, cfg.ProbeTimeout()),
		Trace:  trace,
		Clip:   clipboard.WriteAll,
	}
}

// Run drives the interactive UI until the user quits. Flows that hand the
// terminal to a child (connect, ssh-copy-id, foreground forwards) run
// between two view sessions, so the view is off screen while the child
// owns the TTY.
func (a *App) Run() error {
	if err := a.firstRun(); err != nil {
		return err
	}
	h := newHostsView(a)
	for {
		if err := h.run(); err != nil {
			return err
		}
		if h.quit {
			return nil
		}
		if h.action != nil {
			h.action()
		}
	}
}

// firstRun offers to create the SSH config file when it is missing, so
// the rest of the app works against a real file.
func (a *App) firstRun() error {
	if a.Reg.Exists() {
		return nil
	}
	a.Term.Println(a.Style.Yellow("no SSH config at " + a.Reg.Path()))
	ok, err := a.confirm("create it now?")
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := a.Reg.Create(); err != nil {
		return err
	}
	a.Term.Println(a.Style.GreenCheck() + " created " + a.Reg.Path())
	return nil
}

func (a *App) cooked(fn func() error) error {
	if a.Cooked == nil {
		return fn()
	}
	return a.Cooked(fn)
}

// confirm draws a one-line prompt at the cursor and reads one key. Only y
// confirms; every other key is the safe answer. The line is cleared
// before returning.
func (a *App) confirm(prompt string) (bool, error) {
	a.Term.Print(a.Style.Yellow(prompt + " [y/N] "))
	k, err := a.Term.ReadKey()
	a.Term.ClearLine()
	if err != nil {
		return false, err
	}
	return k.Kind == terminal.KeyRune && (k.Rune == 'y' || k.Rune == 'Y'), nil
}

// spin runs fn while animating a progress line at the cursor. The line is
// cleared once fn returns.
func (a *App) spin(label string, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	frames := []string{"|", "/", "-", "\\"}
	start := time.Now()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for i := 0; ; i++ {
		select {
		case err := <-done:
			a.Term.ClearLine()
			return err
		case <-tick.C:
			a.Term.ClearLine()
			a.Term.Printf("%s %s %s",
				a.Style.Cyan(frames[i%len(frames)]),
				label,
				a.Style.Dim(time.Since(start).Round(time.Second).String()))
		}
	}
}

// report renders an error as footer lines. Tool failures carry their
// captured stderr indented under the headline; everything else is a
// single line.
func (a *App) report(err error) []string {
	if err == nil {
		return nil
	}
	if te, ok := errdefs.AsTool(err); ok {
		lines := []string{a.Style.RedX() + " " + fmt.Sprintf("%s failed (%v)", te.Tool, te.Err)}
		for _, l := range strings.Split(te.Stderr, "\n") {
			if strings.TrimSpace(l) != "" {
				lines = append(lines, a.Style.Dim("    "+strings.TrimSpace(l)))
			}
		}
		return lines
	}
	return []string{a.Style.RedX() + " " + err.Error()}
}

func (a *App) ok(text string) []string {
	return []string{a.Style.GreenCheck() + " " + text}
}

func (a *App) note(text string) []string {
	return []string{a.Style.Dim(text)}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
