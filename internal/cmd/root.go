// Package cmd wires the sshm command tree. The bare invocation runs the
// interactive UI; subcommands cover the same actions for scripts.
package cmd

import (
	"github.com/spf13/cobra"

	"sshm/internal/app"
	"sshm/internal/config"
	"sshm/internal/terminal"
	"sshm/internal/termstyle"
	"sshm/internal/version"
)

// NewRootCmd creates the root cobra command with all subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sshm",
		Short: "Interactive SSH host manager",
		Long: "sshm manages the Host blocks of your SSH client config: browse,\n" +
			"connect, probe, edit and port-forward from one interactive list,\n" +
			"or run the same actions as subcommands.",
		Version: version.Version,
		// The UI owns the screen; cobra must not paint usage or errors
		// over it after a failure.
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive()
		},
	}

	rootCmd.AddCommand(
		newConnectCmd(),
		newAddCmd(),
		newTestCmd(),
		newListCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// runInteractive holds the raw terminal for the life of the UI. Children
// that take over the TTY (ssh, ssh-copy-id) run through the session's
// cooked wrapper.
func runInteractive() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	sess, err := terminal.Start()
	if err != nil {
		return err
	}
	defer sess.End()

	trace := openTrace(cfg)
	defer trace.Close()

	a := app.New(sess.Term, termstyle.FromMode(cfg.Color), cfg, trace)
	a.Cooked = sess.Cooked
	return a.Run()
}
