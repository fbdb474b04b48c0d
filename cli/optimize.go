package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Dosada05/court-scheduler/config"
	"github.com/Dosada05/court-scheduler/export"
	"github.com/Dosada05/court-scheduler/models"
	"github.com/Dosada05/court-scheduler/scheduling"
)

func newOptimizeCmd(opts *rootOptions) *cobra.Command {
	var (
		out    string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "optimize <tournament.yaml>",
		Short: "Allocate every match of a tournament file to courts and times",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tf, err := config.LoadTournamentFile(args[0])
			if err != nil {
				return err
			}
			matches, err := tf.Matches(cmd.Context())
			if err != nil {
				return fmt.Errorf("build matches: %w", err)
			}

			c := tf.Constraints()
			alloc := scheduling.Allocate(tf.TournamentID, matches, c)
			conflicts := scheduling.Validate(alloc.Slots, tf.PlayerGap(defaultPlayerGap))
			opts.logger.Info("allocation finished",
				slog.Int("tournament_id", tf.TournamentID),
				slog.Int("scheduled", alloc.ScheduledCount),
				slog.Int("total", alloc.TotalMatches))

			schedule := scheduling.Schedule{TournamentID: tf.TournamentID, Constraints: c, Slots: alloc.Slots}
			if out != "" {
				f, err := export.Generate(schedule)
				if err != nil {
					return fmt.Errorf("build workbook: %w", err)
				}
				defer f.Close()
				if err := f.SaveAs(out); err != nil {
					return fmt.Errorf("write workbook: %w", err)
				}
				opts.logger.Info("workbook written", slog.String("path", out))
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"allocation": alloc, "conflicts": conflicts})
			}
			printAllocation(w, alloc, conflicts)
			if out != "" {
				fmt.Fprintf(w, "Workbook: %s\n", out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the schedule as an xlsx workbook")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the allocation as JSON")
	return cmd
}

func printAllocation(w io.Writer, alloc scheduling.Allocation, conflicts []scheduling.Conflict) {
	fmt.Fprintf(w, "Scheduled %d/%d matches (%.1f%%), court utilization %.1f%%\n",
		alloc.ScheduledCount, alloc.TotalMatches, alloc.UtilizationPercent, alloc.CourtUtilization)
	if len(alloc.UnscheduledMatchIDs) > 0 {
		fmt.Fprintf(w, "Unscheduled: %v\n", alloc.UnscheduledMatchIDs)
	}
	printSlots(w, alloc.Slots)
	printConflicts(w, conflicts)
}

func printSlots(w io.Writer, slots []models.ScheduleSlot) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COURT\tSTART\tEND\tMATCH\tROUND\tPLAYERS")
	for _, s := range slots {
		match := "-"
		switch {
		case s.MatchID != nil:
			match = fmt.Sprintf("M%d", *s.MatchID)
		case s.IsLunchBreak:
			match = "lunch"
		case s.IsBreak:
			match = "break"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.CourtName, s.Start.Format("15:04"), s.End.Format("15:04"),
			match, s.RoundLabel, players(s))
	}
	tw.Flush()
}

func players(s models.ScheduleSlot) string {
	if s.MatchID == nil {
		return ""
	}
	label := func(id *int) string {
		if id == nil {
			return "TBD"
		}
		return fmt.Sprintf("#%d", *id)
	}
	return label(s.Participant1ID) + " vs " + label(s.Participant2ID)
}

func printConflicts(w io.Writer, conflicts []scheduling.Conflict) {
	if len(conflicts) == 0 {
		fmt.Fprintln(w, "No conflicts")
		return
	}
	fmt.Fprintf(w, "%d conflicts:\n", len(conflicts))
	for _, c := range conflicts {
		fmt.Fprintf(w, "  [%s] %s\n", c.Type, c.Description)
	}
}
