package cmd

import (
	"sshm/internal/config"
	"sshm/internal/sshconf"
	"sshm/internal/sshtool"
	"sshm/internal/tracelog"
)

// openTrace builds the activity logger from config. Disabled tracing
// yields a no-op logger, so callers can always defer Close.
func openTrace(cfg *config.Config) *tracelog.Logger {
	return tracelog.New(cfg.TraceLog != "", cfg.TraceLog)
}

// openRegistry loads the config and builds the tool and registry around
// it, the common preamble of the non-interactive subcommands.
func openRegistry() (*config.Config, *sshtool.Tool, *sshconf.Registry, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	tool := sshtool.New(cfg)
	return cfg, tool, sshconf.New(cfg.SSHConfig, tool), nil
}
