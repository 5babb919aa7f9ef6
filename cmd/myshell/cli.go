package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"jobshell/internal/config"
	"jobshell/internal/shell"
)

type cliConfig struct {
	configPath  string
	historyFile string
	debug       bool
}

type command struct {
	*cobra.Command
	code int
}

func rootCmd() *command {
	cli := &cliConfig{}
	c := &command{}

	c.Command = &cobra.Command{
		Use:           "myshell",
		Short:         "Interactive shell with job control",
		Example:       "myshell --config ~/.myshell.yml --debug",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := runShell(cli)
			c.code = code
			return err
		},
	}

	c.Flags().StringVar(&cli.configPath, "config", "config.yml", "Path to YAML config file")
	c.Flags().StringVar(&cli.historyFile, "history-file", "", "Override the history file from config")
	c.Flags().BoolVar(&cli.debug, "debug", false, "Enable debug logs")

	return c
}

func (c *command) execute() (int, error) {
	if err := c.Execute(); err != nil {
		return 1, err
	}

	return c.code, nil
}

func runShell(cli *cliConfig) (int, error) {
	cfg, err := config.Load(cli.configPath)
	if err != nil {
		return 1, fmt.Errorf("loading config: %w", err)
	}

	if cli.historyFile != "" {
		cfg.HistoryFile = cli.historyFile
	}

	level, err := cfg.Level()
	if err != nil {
		return 1, err
	}
	if cli.debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	s, err := shell.New(cfg, logger)
	if err != nil {
		return 1, fmt.Errorf("initializing shell: %w", err)
	}

	return s.Run(), nil
}
