package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sshm/internal/probe"
	"sshm/internal/termstyle"
)

func newTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <alias>|all",
		Short: "Probe reachability of one host, or of every host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doTest(cmd, args[0])
		},
	}
}

func doTest(cmd *cobra.Command, target string) error {
	cfg, tool, reg, err := openRegistry()
	if err != nil {
		return err
	}
	style := termstyle.FromMode(cfg.Color)
	prober := probe.New(tool, cfg.ProbeTimeout())
	trace := openTrace(cfg)
	defer trace.Close()
	out := cmd.OutOrStdout()

	if target != "all" {
		if _, err := reg.Entry(target); err != nil {
			return err
		}
		r := prober.Probe(cmd.Context(), target)
		trace.Probe(r.Alias, r.OK, r.Elapsed)
		printProbe(out, style, r)
		if !r.OK {
			return fmt.Errorf("%s unreachable", target)
		}
		return nil
	}

	aliases, err := reg.Aliases()
	if err != nil {
		return err
	}
	if len(aliases) == 0 {
		fmt.Fprintln(out, "no hosts to probe")
		return nil
	}

	down := 0
	for _, r := range probe.Collect(prober.All(cmd.Context(), aliases)) {
		trace.Probe(r.Alias, r.OK, r.Elapsed)
		printProbe(out, style, r)
		if !r.OK {
			down++
		}
	}
	if down > 0 {
		return fmt.Errorf("%d of %d hosts unreachable", down, len(aliases))
	}
	return nil
}

func printProbe(w io.Writer, style termstyle.Palette, r probe.Result) {
	if r.OK {
		fmt.Fprintf(w, "%s %s %s\n", style.GreenDot(), r.Alias,
			style.Dim(r.Elapsed.Round(time.Millisecond).String()))
		return
	}
	fmt.Fprintf(w, "%s %s\n", style.RedDot(), r.Alias)
	for _, line := range strings.Split(r.Detail, "\n") {
		if strings.TrimSpace(line) != "" {
			fmt.Fprintf(w, "    %s\n", style.Dim(strings.TrimSpace(line)))
		}
	}
}
