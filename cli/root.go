package cli

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dosada05/court-scheduler/logging"
)

const defaultPlayerGap = 15 * time.Minute

type rootOptions struct {
	debug     bool
	logLevel  string
	logFormat string

	logger *slog.Logger
}

// NewRootCmd creates the root cobra command for the courtctl CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "courtctl",
		Short: "Plan and check tournament court schedules",
		Long:  "courtctl schedules a tournament day from a YAML file, re-validates published slots and applies disruptions offline.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.debug {
				opts.logLevel = "debug"
			}
			opts.logger = logging.NewLoggerWithWriter(logging.ParseLevel(opts.logLevel), opts.logFormat, cmd.ErrOrStderr())
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newOptimizeCmd(opts),
		newValidateCmd(opts),
		newAdjustCmd(opts),
		newTokenCmd(opts),
	)

	return root
}
