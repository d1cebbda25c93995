package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/nysig/internal/config"
	"github.com/roach88/nysig/internal/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Config and Logger are set by the root command before any subcommand
	// runs.
	Config *config.Config
	Logger *zerolog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the nysig CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "nysig",
		Short: "nysig - NYSE trading signal engine",
		Long: `Evaluate a pre-computed market analysis against an ordered set of
declarative trading rules and emit trading signals for the NYSE session.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.setup(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ./"+config.DefaultPath+" if present)")

	// Add subcommands
	cmd.AddCommand(NewEvaluateCommand(opts))
	cmd.AddCommand(NewRulesCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// setup loads configuration and builds the logger. Logs go to stderr so
// that stdout stays parseable with --format json.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadWithEnv(config.Resolve(o.ConfigPath))
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}

	level := cfg.Log.Level
	if o.Verbose {
		level = "debug"
	}
	l, err := logger.New(logger.Config{
		Level:  level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "configure logging", err)
	}

	o.Config = cfg
	o.Logger = &l
	return nil
}

// config returns the loaded configuration, or the defaults when the root
// command has not run (subcommands built directly in tests).
func (o *RootOptions) config() *config.Config {
	if o.Config == nil {
		return config.Default()
	}
	return o.Config
}

// logger returns the configured logger, or a disabled one.
func (o *RootOptions) logger() zerolog.Logger {
	if o.Logger == nil {
		return zerolog.Nop()
	}
	return *o.Logger
}

// formatter builds an OutputFormatter bound to cmd's writers.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
