package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Dosada05/court-scheduler/brackets"
	"github.com/Dosada05/court-scheduler/models"
)

// Date is a wrapper around time.Time for YAML date parsing.
type Date struct {
	Time time.Time
}

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	t, err := time.Parse("2006-01-02", value.Value)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", value.Value, err)
	}
	d.Time = t
	return nil
}

// Clock is a wall-clock time of day written as "HH:MM".
type Clock struct {
	Hour, Minute int
	set          bool
}

func (c *Clock) UnmarshalYAML(value *yaml.Node) error {
	t, err := time.Parse("15:04", value.Value)
	if err != nil {
		return fmt.Errorf("invalid time of day %q (want HH:MM): %w", value.Value, err)
	}
	*c = Clock{Hour: t.Hour(), Minute: t.Minute(), set: true}
	return nil
}

func (c Clock) IsSet() bool {
	return c.set
}

// On places the clock time on the given day.
func (c Clock) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, day.Location())
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Duration accepts Go duration strings such as "45m" or "1h30m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	v, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	d.Duration = v
	return nil
}

type Courts struct {
	Count int      `yaml:"count"`
	Names []string `yaml:"names"`
}

type Hours struct {
	Open       Clock `yaml:"open"`
	Close      Clock `yaml:"close"`
	LunchStart Clock `yaml:"lunch_start"`
	LunchEnd   Clock `yaml:"lunch_end"`
}

type Durations struct {
	Match      Duration `yaml:"match"`
	Turnaround Duration `yaml:"turnaround"`
	Rest       Duration `yaml:"rest"`
	Break      Duration `yaml:"break"`
}

type MatchEntry struct {
	ID           int    `yaml:"id"`
	Round        string `yaml:"round"`
	Sequence     int    `yaml:"sequence"`
	Participants []int  `yaml:"participants"`
}

// SlotEntry is an explicitly placed slot, used to re-validate a published day.
type SlotEntry struct {
	MatchID      int    `yaml:"match_id"`
	Court        int    `yaml:"court"`
	Start        Clock  `yaml:"start"`
	End          Clock  `yaml:"end"`
	Round        string `yaml:"round"`
	Participants []int  `yaml:"participants"`
	Break        bool   `yaml:"break"`
	Lunch        bool   `yaml:"lunch"`
}

// TournamentFile describes one tournament day for the command line tools.
type TournamentFile struct {
	TournamentID          int          `yaml:"tournament_id"`
	Date                  Date         `yaml:"date"`
	Timezone              string       `yaml:"timezone"`
	Courts                Courts       `yaml:"courts"`
	Hours                 Hours        `yaml:"hours"`
	Durations             Durations    `yaml:"durations"`
	MaxConsecutiveMatches int          `yaml:"max_consecutive_matches"`
	MinPlayerGap          *Duration    `yaml:"min_player_gap"`
	Format                string       `yaml:"format"`
	Legs                  int          `yaml:"legs"`
	Participants          []int        `yaml:"participants"`
	MatchEntries          []MatchEntry `yaml:"matches"`
	SlotEntries           []SlotEntry  `yaml:"slots"`

	loc *time.Location
}

// LoadFromBytes parses YAML bytes into a TournamentFile and validates it.
func LoadFromBytes(data []byte) (*TournamentFile, error) {
	var tf TournamentFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing tournament file: %w", err)
	}
	if err := tf.validate(); err != nil {
		return nil, err
	}
	return &tf, nil
}

// LoadTournamentFile reads and parses a YAML tournament file.
func LoadTournamentFile(path string) (*TournamentFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tournament file: %w", err)
	}
	return LoadFromBytes(data)
}

func (tf *TournamentFile) day() time.Time {
	loc := tf.loc
	if loc == nil {
		loc = time.UTC
	}
	d := tf.Date.Time
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// At parses an "HH:MM" time of day on the tournament date.
func (tf *TournamentFile) At(clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time of day %q (want HH:MM): %w", clock, err)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute(), set: true}.On(tf.day()), nil
}

// Constraints returns the scheduling limits of the day.
func (tf *TournamentFile) Constraints() models.Constraints {
	day := tf.day()
	c := models.Constraints{
		CourtCount:            tf.Courts.Count,
		CourtNames:            tf.Courts.Names,
		OperatingStart:        tf.Hours.Open.On(day),
		OperatingEnd:          tf.Hours.Close.On(day),
		MatchDuration:         tf.Durations.Match.Duration,
		TurnaroundDuration:    tf.Durations.Turnaround.Duration,
		RestDuration:          tf.Durations.Rest.Duration,
		BreakDuration:         tf.Durations.Break.Duration,
		MaxConsecutiveMatches: tf.MaxConsecutiveMatches,
	}
	if tf.Hours.LunchStart.IsSet() {
		c.LunchStart = tf.Hours.LunchStart.On(day)
	}
	if tf.Hours.LunchEnd.IsSet() {
		c.LunchEnd = tf.Hours.LunchEnd.On(day)
	}
	return c
}

// PlayerGap returns the validator threshold, falling back to the given default.
func (tf *TournamentFile) PlayerGap(fallback time.Duration) time.Duration {
	if tf.MinPlayerGap == nil {
		return fallback
	}
	return tf.MinPlayerGap.Duration
}

// Matches returns the explicit match list, or generates one from the format
// and participants when no matches are listed.
func (tf *TournamentFile) Matches(ctx context.Context) ([]models.Match, error) {
	if len(tf.MatchEntries) > 0 {
		out := make([]models.Match, 0, len(tf.MatchEntries))
		for i, e := range tf.MatchEntries {
			seq := e.Sequence
			if seq == 0 {
				seq = i + 1
			}
			m := models.Match{
				ID:           e.ID,
				TournamentID: tf.TournamentID,
				RoundLabel:   e.Round,
				Sequence:     seq,
				Status:       models.MatchStatusUnscheduled,
			}
			m.Participant1ID, m.Participant2ID = participantPair(e.Participants)
			out = append(out, m)
		}
		return out, nil
	}

	if tf.Format == "" {
		return nil, fmt.Errorf("tournament file lists no matches and no format to generate them")
	}
	gen, err := brackets.ForFormat(tf.Format)
	if err != nil {
		return nil, err
	}
	return gen.GenerateBracket(ctx, brackets.GenerateBracketParams{
		TournamentID: tf.TournamentID,
		Participants: tf.Participants,
		Legs:         tf.Legs,
	})
}

// Slots returns the explicitly placed slots in file order.
func (tf *TournamentFile) Slots() []models.ScheduleSlot {
	day := tf.day()
	c := tf.Constraints()
	out := make([]models.ScheduleSlot, 0, len(tf.SlotEntries))
	for i, e := range tf.SlotEntries {
		s := models.ScheduleSlot{
			TournamentID: tf.TournamentID,
			CourtNumber:  e.Court,
			CourtName:    c.CourtName(e.Court),
			Start:        e.Start.On(day),
			End:          e.End.On(day),
			RoundLabel:   e.Round,
			IsBreak:      e.Break || e.Lunch,
			IsLunchBreak: e.Lunch,
		}
		switch {
		case e.Lunch:
			s.ID = models.LunchSlotID(tf.TournamentID, e.Court)
		case e.Break:
			s.ID = fmt.Sprintf("t%d-c%d-break%d", tf.TournamentID, e.Court, i+1)
		default:
			id := e.MatchID
			s.ID = models.MatchSlotID(tf.TournamentID, id)
			s.MatchID = &id
			s.Participant1ID, s.Participant2ID = participantPair(e.Participants)
		}
		out = append(out, s)
	}
	return out
}

func participantPair(ids []int) (*int, *int) {
	var p1, p2 *int
	if len(ids) > 0 {
		v := ids[0]
		p1 = &v
	}
	if len(ids) > 1 {
		v := ids[1]
		p2 = &v
	}
	return p1, p2
}

func (tf *TournamentFile) validate() error {
	if tf.TournamentID <= 0 {
		return fmt.Errorf("tournament_id must be positive, got %d", tf.TournamentID)
	}
	if tf.Date.Time.IsZero() {
		return fmt.Errorf("date is required")
	}
	if tf.Timezone != "" {
		loc, err := time.LoadLocation(tf.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone %q: %w", tf.Timezone, err)
		}
		tf.loc = loc
	}
	if !tf.Hours.Open.IsSet() || !tf.Hours.Close.IsSet() {
		return fmt.Errorf("hours.open and hours.close are required")
	}
	if tf.Hours.LunchStart.IsSet() != tf.Hours.LunchEnd.IsSet() {
		return fmt.Errorf("hours.lunch_start and hours.lunch_end must be set together")
	}
	if err := tf.Constraints().Validate(); err != nil {
		return err
	}
	if tf.MinPlayerGap != nil && tf.MinPlayerGap.Duration < 0 {
		return fmt.Errorf("min_player_gap cannot be negative")
	}

	if tf.Format != "" {
		if _, err := brackets.ForFormat(tf.Format); err != nil {
			return err
		}
		if len(tf.MatchEntries) == 0 && len(tf.Participants) < 2 {
			return fmt.Errorf("format %q needs at least 2 participants", tf.Format)
		}
	}

	seen := make(map[int]bool, len(tf.MatchEntries))
	for _, m := range tf.MatchEntries {
		if m.ID <= 0 {
			return fmt.Errorf("match id must be positive, got %d", m.ID)
		}
		if seen[m.ID] {
			return fmt.Errorf("match %d is listed twice", m.ID)
		}
		seen[m.ID] = true
		if len(m.Participants) > 2 {
			return fmt.Errorf("match %d has %d participants, at most 2 allowed", m.ID, len(m.Participants))
		}
	}

	for i, s := range tf.SlotEntries {
		if s.Court < 1 || s.Court > tf.Courts.Count {
			return fmt.Errorf("slot %d: court %d does not exist", i+1, s.Court)
		}
		if !s.Start.IsSet() || !s.End.IsSet() {
			return fmt.Errorf("slot %d: start and end are required", i+1)
		}
		if !s.End.On(tf.day()).After(s.Start.On(tf.day())) {
			return fmt.Errorf("slot %d: end %s must be after start %s", i+1, s.End, s.Start)
		}
		if !s.Break && !s.Lunch && s.MatchID <= 0 {
			return fmt.Errorf("slot %d: match_id is required unless the slot is a break", i+1)
		}
		if len(s.Participants) > 2 {
			return fmt.Errorf("slot %d has %d participants, at most 2 allowed", i+1, len(s.Participants))
		}
	}

	return nil
}
