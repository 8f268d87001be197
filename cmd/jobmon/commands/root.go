package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ytget/jobmon/internal/config"
	"github.com/ytget/jobmon/internal/logging"
)

const cliExecutable = "jobmon"

// globalOptions carries the persistent flags and what PersistentPreRunE builds from them
type globalOptions struct {
	configFile     string
	verbosityCount int

	file   *config.File
	logger zerolog.Logger
}

// NewCommand constructs the top-level jobmon CLI command, loading the
// configuration and building the logger before any subcommand runs.
func NewCommand(version string) *cobra.Command {
	opts := &globalOptions{logger: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:   cliExecutable,
		Short: "Run background file jobs and watch their progress",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			file, err := config.LoadFromFile(opts.configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			base, err := zerolog.ParseLevel(file.Logging.Level)
			if err != nil {
				return fmt.Errorf("parse log level: %w", err)
			}
			level := logging.VerbosityLevel(base, opts.verbosityCount)

			logger, err := logging.New(level.String(), file.Logging.Format, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}

			opts.file = file
			opts.logger = logger
			return nil
		},
	}

	cmd.SilenceUsage = true

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Configuration file path (TOML)")
	cmd.PersistentFlags().CountVarP(&opts.verbosityCount, "verbosity", "v", "Increase logging verbosity (repeatable)")

	cmd.AddGroup(&cobra.Group{ID: "jobs", Title: "Job Commands"})
	cmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands"})

	cmd.AddCommand(newSimulateCommand(opts))
	cmd.AddCommand(newCopyCommand(opts))
	cmd.AddCommand(newMoveCommand(opts))
	cmd.AddCommand(newDeleteCommand(opts))
	cmd.AddCommand(newConfigCommand(opts))
	cmd.AddCommand(newVersionCommand(version))

	return cmd
}

func newConfigCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "config",
		Short:   "Print the effective configuration as TOML",
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := opts.file.Encode()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Print the jobmon version",
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cliExecutable, version)
			return err
		},
	}
}
