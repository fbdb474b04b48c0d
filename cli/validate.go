package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dosada05/court-scheduler/config"
	"github.com/Dosada05/court-scheduler/scheduling"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var minGap time.Duration

	cmd := &cobra.Command{
		Use:   "validate <tournament.yaml>",
		Short: "Check the slots listed in a tournament file for conflicts",
		Long:  "validate reports court double-bookings and participants scheduled closer than the minimum gap. It exits non-zero when conflicts are found.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tf, err := config.LoadTournamentFile(args[0])
			if err != nil {
				return err
			}

			gap := tf.PlayerGap(defaultPlayerGap)
			if cmd.Flags().Changed("min-gap") {
				gap = minGap
			}

			slots := tf.Slots()
			scheduling.SortSlots(slots)
			conflicts := scheduling.Validate(slots, gap)
			opts.logger.Debug("validated slots", "slots", len(slots), "conflicts", len(conflicts), "min_gap", gap)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Checked %d slots with a %s minimum gap\n", len(slots), gap)
			printConflicts(w, conflicts)
			if len(conflicts) > 0 {
				return fmt.Errorf("%d conflicts found", len(conflicts))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&minGap, "min-gap", defaultPlayerGap, "Minimum gap between a participant's matches (overrides the file)")
	return cmd
}
