package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sshm/internal/sshconf"
)

func newAddCmd() *cobra.Command {
	var (
		hostName string
		user     string
		port     int
		identity string
		tags     []string
	)

	cmd := &cobra.Command{
		Use:   "add <alias>",
		Short: "Add a host block to the SSH config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doAdd(cmd, sshconf.HostEntry{
				Alias:        args[0],
				HostName:     hostName,
				User:         user,
				Port:         port,
				IdentityFile: identity,
				Tags:         tags,
			})
		},
	}
	cmd.Flags().StringVar(&hostName, "hostname", "", "HostName directive (address to connect to)")
	cmd.Flags().StringVar(&user, "user", "", "User directive")
	cmd.Flags().IntVar(&port, "port", 0, "Port directive")
	cmd.Flags().StringVar(&identity, "identity", "", "IdentityFile directive")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag the host, repeatable")

	return cmd
}

func doAdd(cmd *cobra.Command, entry sshconf.HostEntry) error {
	cfg, _, reg, err := openRegistry()
	if err != nil {
		return err
	}
	if err := reg.Add(entry); err != nil {
		return err
	}

	trace := openTrace(cfg)
	defer trace.Close()
	trace.HostAdded(entry.Alias)

	fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", entry.Alias, entry.Summary())
	return nil
}
