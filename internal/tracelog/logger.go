package tracelog

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger writes structured JSONL entries to a trace file, one line per
// host or tunnel action. All methods are safe for concurrent use. When
// disabled (w is nil), all methods are no-ops.
type Logger struct {
	mu    sync.Mutex
	w     *os.File
	runID string
}

// New creates a Logger that appends to logPath. If enabled is false or
// the file cannot be opened, returns a no-op logger (safe to call methods
// on). Every entry of this process shares one generated run id.
func New(enabled bool, logPath string) *Logger {
	if !enabled {
		return &Logger{}
	}
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return &Logger{}
	}
	return &Logger{w: f, runID: uuid.NewString()}
}

// Nop returns a disabled logger. All methods are no-ops.
func Nop() *Logger {
	return &Logger{}
}

// RunID returns the id stamped on this process's entries. Empty when
// disabled.
func (l *Logger) RunID() string {
	return l.runID
}

// entry is the common envelope for all log lines.
type entry struct {
	Timestamp string `json:"ts"`
	RunID     string `json:"run_id"`
	Event     string `json:"event"`
}

// Connect logs an interactive session start.
func (l *Logger) Connect(alias, target string) {
	l.log(struct {
		entry
		Alias  string `json:"alias"`
		Target string `json:"target,omitempty"`
	}{
		entry:  l.entry("connect"),
		Alias:  alias,
		Target: target,
	})
}

// Probe logs one reachability check result.
func (l *Logger) Probe(alias string, ok bool, elapsed time.Duration) {
	l.log(struct {
		entry
		Alias     string `json:"alias"`
		OK        bool   `json:"ok"`
		ElapsedMS int64  `json:"elapsed_ms"`
	}{
		entry:     l.entry("probe"),
		Alias:     alias,
		OK:        ok,
		ElapsedMS: elapsed.Milliseconds(),
	})
}

// HostAdded logs a new host block.
func (l *Logger) HostAdded(alias string) {
	l.log(struct {
		entry
		Alias string `json:"alias"`
	}{
		entry: l.entry("host_added"),
		Alias: alias,
	})
}

// HostUpdated logs an edit. from is set when the edit renamed the alias.
func (l *Logger) HostUpdated(from, alias string) {
	if from == alias {
		from = ""
	}
	l.log(struct {
		entry
		Alias string `json:"alias"`
		From  string `json:"renamed_from,omitempty"`
	}{
		entry: l.entry("host_updated"),
		Alias: alias,
		From:  from,
	})
}

// HostRemoved logs a deleted host block.
func (l *Logger) HostRemoved(alias string) {
	l.log(struct {
		entry
		Alias string `json:"alias"`
	}{
		entry: l.entry("host_removed"),
		Alias: alias,
	})
}

// ForwardSaved logs a tunnel written to the store.
func (l *Logger) ForwardSaved(kind, spec, host string) {
	l.forwardEvent("forward_saved", kind, spec, host)
}

// ForwardRemoved logs a tunnel deleted from the store.
func (l *Logger) ForwardRemoved(kind, spec, host string) {
	l.forwardEvent("forward_removed", kind, spec, host)
}

// ForwardStarted logs a tunnel handed to ssh -f.
func (l *Logger) ForwardStarted(kind, spec, host string) {
	l.forwardEvent("forward_started", kind, spec, host)
}

func (l *Logger) forwardEvent(event, kind, spec, host string) {
	l.log(struct {
		entry
		Kind string `json:"kind"`
		Spec string `json:"spec"`
		Host string `json:"host"`
	}{
		entry: l.entry(event),
		Kind:  kind,
		Spec:  spec,
		Host:  host,
	})
}

// KeyGenerated logs a new key pair.
func (l *Logger) KeyGenerated(path string) {
	l.log(struct {
		entry
		Path string `json:"path"`
	}{
		entry: l.entry("key_generated"),
		Path:  path,
	})
}

// KeyCopied logs a public key installed on a host.
func (l *Logger) KeyCopied(alias, key string) {
	l.log(struct {
		entry
		Alias string `json:"alias"`
		Key   string `json:"key,omitempty"`
	}{
		entry: l.entry("key_copied"),
		Alias: alias,
		Key:   key,
	})
}

// Close closes the underlying file.
func (l *Logger) Close() error {
	if l.w == nil {
		return nil
	}
	return l.w.Close()
}

func (l *Logger) entry(event string) entry {
	return entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		RunID:     l.runID,
		Event:     event,
	}
}

func (l *Logger) log(v any) {
	if l.w == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	data = append(data, '\n')
	l.mu.Lock()
	l.w.Write(data)
	l.mu.Unlock()
}
