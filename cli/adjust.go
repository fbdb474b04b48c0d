package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Dosada05/court-scheduler/config"
	"github.com/Dosada05/court-scheduler/models"
	"github.com/Dosada05/court-scheduler/scheduling"
)

func newAdjustCmd(opts *rootOptions) *cobra.Command {
	var (
		matchID int
		delay   int
		start   string
		court   int
		reason  string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "adjust <tournament.yaml>",
		Short: "Apply a delay, reschedule or court change to the slots of a tournament file",
		Long: "adjust applies exactly one of --delay, --start or --court to --match and prints the shifted schedule.\n" +
			"Later matches are pushed back; nothing is pulled forward.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tf, err := config.LoadTournamentFile(args[0])
			if err != nil {
				return err
			}

			ev := models.AdjustmentEvent{MatchID: matchID, Reason: reason}
			set := 0
			if cmd.Flags().Changed("delay") {
				ev.Type, ev.Minutes = models.AdjustmentDelay, delay
				set++
			}
			if cmd.Flags().Changed("start") {
				t, err := tf.At(start)
				if err != nil {
					return err
				}
				ev.Type, ev.NewStartTime = models.AdjustmentReschedule, &t
				set++
			}
			if cmd.Flags().Changed("court") {
				ev.Type, ev.NewCourt = models.AdjustmentCourtChange, court
				set++
			}
			if set != 1 {
				return fmt.Errorf("exactly one of --delay, --start or --court is required")
			}

			slots := tf.Slots()
			scheduling.SortSlots(slots)
			current := scheduling.Schedule{TournamentID: tf.TournamentID, Constraints: tf.Constraints(), Slots: slots}

			result, err := scheduling.Apply(current, ev)
			if err != nil {
				return err
			}
			opts.logger.Info("adjustment applied", "match_id", matchID, "type", string(ev.Type), "cascade", len(result.CascadeMatchIDs))

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			if len(result.CascadeMatchIDs) > 0 {
				fmt.Fprintf(w, "Shifted: %v\n", result.CascadeMatchIDs)
			}
			for _, rec := range result.Recommendations {
				fmt.Fprintf(w, "- %s\n", rec)
			}
			printSlots(w, result.Slots)
			return nil
		},
	}

	cmd.Flags().IntVar(&matchID, "match", 0, "Match to adjust")
	cmd.Flags().IntVar(&delay, "delay", 0, "Delay the match by this many minutes")
	cmd.Flags().StringVar(&start, "start", "", "Move the match to this time of day (HH:MM)")
	cmd.Flags().IntVar(&court, "court", 0, "Move the match to this court")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded with the adjustment")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("match")
	return cmd
}
