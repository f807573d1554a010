package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"sshm/internal/config"
)

// cliEnv points every path the commands touch at a fresh temp dir:
// SSH config, SSH dir and app config all live under it, so tests never
// see the developer's real files.
func cliEnv(t *testing.T, sshConfig string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config")
	if sshConfig != "" {
		if err := os.WriteFile(path, []byte(sshConfig), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv(config.EnvAppConfig, filepath.Join(dir, "sshm.yaml"))
	t.Setenv(config.EnvSSHConfig, path)
	t.Setenv(config.EnvSSHDir, dir)
	return dir
}

func runCmd(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out, errs bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errs)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
