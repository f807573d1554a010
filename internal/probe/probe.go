// Package probe runs batch-mode SSH reachability checks. Probes carry a
// hard context deadline on top of ssh's own connect timeout so a wedged
// client process can never hang the UI.
package probe

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// deadlineGrace is added to the client connect timeout for the context
// deadline. It covers process startup and key exchange on slow hosts.
const deadlineGrace = 2 * time.Second

// Pinger runs one reachability check and returns trimmed stderr for
// diagnostics. *sshtool.Tool satisfies it.
type Pinger interface {
	Probe(ctx context.Context, alias string, connectTimeout time.Duration) (string, error)
}

// Result is the outcome of probing one alias. Index is the alias's
// position in the probed list.
type Result struct {
	Alias   string
	Index   int
	OK      bool
	Elapsed time.Duration
	Detail  string
}

// Prober checks reachability for a set of hosts.
type Prober struct {
	Ping    Pinger
	Timeout time.Duration
}

func New(ping Pinger, timeout time.Duration) *Prober {
	return &Prober{Ping: ping, Timeout: timeout}
}

// Probe checks one alias. Failures are results, not errors: the Detail
// field carries stderr or the timeout notice.
func (p *Prober) Probe(ctx context.Context, alias string) Result {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout+deadlineGrace)
	defer cancel()

	start := time.Now()
	stderr, err := p.Ping.Probe(ctx, alias, p.Timeout)
	r := Result{Alias: alias, Elapsed: time.Since(start), Detail: stderr}
	if err == nil {
		r.OK = true
		return r
	}
	if ctx.Err() == context.DeadlineExceeded {
		r.Detail = fmt.Sprintf("no response within %s", p.Timeout+deadlineGrace)
		return r
	}
	if r.Detail == "" {
		r.Detail = err.Error()
	}
	return r
}

// All probes every alias concurrently, one goroutine each, and streams
// results as they complete. The channel closes once every probe has
// reported; a slow or failed host never blocks the rest. The whole batch
// therefore finishes within roughly one probe deadline, not one per host.
func (p *Prober) All(ctx context.Context, aliases []string) <-chan Result {
	ch := make(chan Result, len(aliases))
	var wg sync.WaitGroup
	for i, alias := range aliases {
		wg.Add(1)
		go func(i int, alias string) {
			defer wg.Done()
			r := p.Probe(ctx, alias)
			r.Index = i
			ch <- r
		}(i, alias)
	}
	go func() {
		wg.Wait()
		close(ch)
	}()
	return ch
}

// Collect drains a result stream and returns the results in probed order.
func Collect(ch <-chan Result) []Result {
	var out []Result
	for r := range ch {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
