// Package sessionlog runs a command under a pseudo-terminal, mirrors the
// session to the real terminal, and appends a raw copy of the output to a
// log file. Keystrokes are forwarded untouched and window resizes propagate
// to the child, so the recorded session behaves exactly like a plain one.
package sessionlog

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"
	"golang.org/x/term"
)

// LogPath returns the file a new session log for alias gets under dir.
// Names sort chronologically and stay unique across concurrent sessions
// to the same host.
func LogPath(dir, alias string, now time.Time) string {
	alias = strings.ReplaceAll(alias, string(os.PathSeparator), "_")
	name := fmt.Sprintf("%s-%s-%s.log", alias, now.Format("20060102-150405"), uuid.NewString()[:8])
	return filepath.Join(dir, name)
}

// Run executes command under a pseudo-terminal sized to the current one and
// tees everything the child writes to logPath. The child's exit error is
// returned as-is so callers can surface its exit code.
func Run(command string, args []string, logPath string) error {
	fd := int(os.Stdin.Fd())

	cols, rows, err := term.GetSize(fd)
	if err != nil {
		return fmt.Errorf("get terminal size (is this a terminal?): %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	logf, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open session log: %w", err)
	}
	defer logf.Close()

	started := time.Now()
	fmt.Fprint(logf, header(command, args, started))

	cmd := exec.Command(command, args...)
	ptm, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		return fmt.Errorf("start %s: %w", command, err)
	}
	defer ptm.Close()

	// Raw mode so every keystroke reaches the child unmangled.
	restore, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("set raw mode: %w", err)
	}
	defer func() {
		term.Restore(fd, restore)
		os.Stdout.WriteString("\r")
	}()

	// Keep the child's window size in step with ours.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGWINCH)
	defer signal.Stop(sigCh)
	go watchResize(sigCh, ptm, fd)

	// Forward keystrokes. The goroutine unblocks when the process exits
	// and stdin is all the child ever reads from us.
	go io.Copy(ptm, os.Stdin)

	// Mirror output until the pty closes. On Linux the read fails with
	// EIO once the child exits; that is the normal end of session.
	tee := &teeWriter{out: os.Stdout, log: logf}
	io.Copy(tee, ptm)

	waitErr := cmd.Wait()
	fmt.Fprint(logf, footer(started, time.Now(), waitErr))
	return waitErr
}

// watchResize relays SIGWINCH to the child pty.
func watchResize(sigCh <-chan os.Signal, ptm *os.File, fd int) {
	for range sigCh {
		cols, rows, err := term.GetSize(fd)
		if err != nil {
			continue
		}
		pty.Setsize(ptm, &pty.Winsize{
			Rows: uint16(rows),
			Cols: uint16(cols),
		})
	}
}

// teeWriter mirrors everything to the terminal and appends a copy to the
// log. A failed log write disables further logging instead of breaking the
// live session.
type teeWriter struct {
	out io.Writer
	log io.Writer
	err error
}

func (t *teeWriter) Write(p []byte) (int, error) {
	if t.log != nil && t.err == nil {
		if _, err := t.log.Write(p); err != nil {
			t.err = err
		}
	}
	return t.out.Write(p)
}

func header(command string, args []string, started time.Time) string {
	line := command
	if len(args) > 0 {
		line += " " + strings.Join(args, " ")
	}
	return fmt.Sprintf("# %s started %s\n", line, started.Format(time.RFC3339))
}

func footer(started, ended time.Time, waitErr error) string {
	status := "ok"
	if waitErr != nil {
		status = waitErr.Error()
	}
	return fmt.Sprintf("\n# session ended %s after %s (%s)\n",
		ended.Format(time.RFC3339), ended.Sub(started).Round(time.Second), status)
}
