package main

import (
	"fmt"
	"io"
	"os"

	"github.com/seismotools/markereditor/internal/config"
	"github.com/seismotools/markereditor/internal/database"
	"github.com/seismotools/markereditor/internal/handlers"
	"github.com/seismotools/markereditor/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigDir string
	LogLevel  string
}

func newRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "markeredit [script]",
		Short: "Edit seismic event and phase markers",
		Long: `Run a marker editing session. Commands are read one per line from the
script file, or from standard input when no file or "-" is given.

Example:
  :EVENT: 2024-01-01T10:00:00Z Crete lat=35 lon=25 mag=5.1
  :PHASE: 2024-01-01T10:00:30Z P event=0
  :TABLE:`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(opts, cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(cmd, args)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", ".", "directory containing "+config.FileName)
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error), overrides the config file")

	cmd.AddCommand(newSetupDBCommand())
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func loadConfig(opts *RootOptions, stderr io.Writer) error {
	if err := config.Load(opts.ConfigDir); err != nil {
		fmt.Fprintf(stderr, "Failed to load config, using defaults: %v\n", err)
	}
	if opts.LogLevel != "" {
		viper.Set("logLevel", opts.LogLevel)
	}
	return nil
}

func runScript(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		in = f
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	return handlers.RunScript(s.dispatcher, in, cmd.OutOrStdout())
}

func newSetupDBCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "setupdb",
		Short: "Create the station inventory schema",
		Long: `Connect to the configured station inventory database and migrate its
schema. Postgres falls back to an in-memory SQLite database when the server
is unreachable.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return setupDB(cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func setupDB(out, logOut io.Writer) error {
	cfg := config.GetStorageConfig()
	m := database.NewManager(logging.NewZerolog(logOut, config.GetString("logLevel"), "database"))

	var err error
	switch cfg.Type {
	case "postgres":
		err = m.Connect()
	case "sqlite":
		err = m.ConnectSqlite(cfg.SQLite.Path)
	default:
		return fmt.Errorf("storage type %q has no database", cfg.Type)
	}
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Setup(); err != nil {
		return err
	}

	target := "postgres"
	if m.Local {
		target = "sqlite"
		if cfg.SQLite.Path != "" && cfg.Type == "sqlite" {
			target += " " + cfg.SQLite.Path
		} else {
			target += " (in memory)"
		}
	}
	fmt.Fprintf(out, "station inventory ready: %s\n", target)
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "markeredit %s (built %s)\n", Version, BuildDate)
		},
	}
}
