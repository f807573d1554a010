package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sshm/internal/config"
	"sshm/internal/forwards"
	"sshm/internal/termstyle"
	"sshm/internal/textmetrics"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print hosts or forwards without entering the UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listHosts(cmd)
		},
	}
	cmd.AddCommand(newListHostsCmd(), newListForwardsCmd())
	return cmd
}

func newListHostsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hosts",
		Short: "Print every managed host",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listHosts(cmd)
		},
	}
}

func newListForwardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forwards",
		Short: "Print every saved port forward",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listForwards(cmd)
		},
	}
}

func listHosts(cmd *cobra.Command) error {
	cfg, _, reg, err := openRegistry()
	if err != nil {
		return err
	}
	entries, err := reg.Entries()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "no hosts configured")
		return nil
	}

	style := termstyle.FromMode(cfg.Color)
	aliasW := 0
	for _, e := range entries {
		if w := textmetrics.VisibleWidth(e.Alias); w > aliasW {
			aliasW = w
		}
	}
	for _, e := range entries {
		line := textmetrics.PadToWidth(e.Alias, aliasW) + "  " + e.Summary()
		if len(e.Tags) > 0 {
			line += "  " + style.Dim(strings.Join(e.Tags, ","))
		}
		fmt.Fprintln(out, strings.TrimRight(line, " "))
	}
	return nil
}

func listForwards(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	rows, err := forwards.NewStore(cfg.ForwardsFile).List()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "no forwards saved")
		return nil
	}

	style := termstyle.FromMode(cfg.Color)
	for _, fw := range rows {
		dot := style.GrayDot()
		switch {
		case fw.Type == forwards.Remote:
			dot = style.YellowDot()
		case forwards.Active(fw):
			dot = style.GreenDot()
		}
		fmt.Fprintf(out, "%s %s\n", dot, fw.Label())
	}
	return nil
}
