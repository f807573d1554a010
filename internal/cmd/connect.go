package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"sshm/internal/sessionlog"
)

func newConnectCmd() *cobra.Command {
	var logFlag bool

	cmd := &cobra.Command{
		Use:   "connect <alias>",
		Short: "Open an SSH session to a managed host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doConnect(args[0], logFlag)
		},
	}
	cmd.Flags().BoolVar(&logFlag, "log", false, "record the raw session to the log directory")

	return cmd
}

func doConnect(alias string, record bool) error {
	cfg, tool, reg, err := openRegistry()
	if err != nil {
		return err
	}
	entry, err := reg.Entry(alias)
	if err != nil {
		return err
	}

	trace := openTrace(cfg)
	defer trace.Close()
	trace.Connect(alias, entry.Summary())

	if record {
		name, args := tool.ConnectArgs(alias)
		return sessionlog.Run(name, args, sessionlog.LogPath(cfg.LogDir, alias, time.Now()))
	}
	return tool.Connect(alias)
}
