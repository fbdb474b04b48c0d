package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidConstraints = errors.New("invalid scheduling constraints")

// Constraints are the operational limits of one optimization run.
type Constraints struct {
	CourtCount     int
	CourtNames     []string
	OperatingStart time.Time
	OperatingEnd   time.Time
	LunchStart     time.Time
	LunchEnd       time.Time

	MatchDuration      time.Duration
	BreakDuration      time.Duration
	TurnaroundDuration time.Duration
	RestDuration       time.Duration
	// MaxConsecutiveMatches is the number of back-to-back matches a participant may
	// play before BreakDuration is added on top of RestDuration. Zero disables it.
	MaxConsecutiveMatches int
}

// Courts returns the courts numbered from 1, named from CourtNames when present.
func (c Constraints) Courts() []Court {
	courts := make([]Court, c.CourtCount)
	for i := range courts {
		name := fmt.Sprintf("Court %d", i+1)
		if i < len(c.CourtNames) && c.CourtNames[i] != "" {
			name = c.CourtNames[i]
		}
		courts[i] = Court{Number: i + 1, Name: name}
	}
	return courts
}

func (c Constraints) CourtName(number int) string {
	if number < 1 || number > c.CourtCount {
		return ""
	}
	return c.Courts()[number-1].Name
}

func (c Constraints) HasLunch() bool {
	return !c.LunchStart.IsZero() && c.LunchEnd.After(c.LunchStart)
}

// OverlapsLunch reports whether [start, end) intersects the lunch window.
func (c Constraints) OverlapsLunch(start, end time.Time) bool {
	if !c.HasLunch() {
		return false
	}
	return start.Before(c.LunchEnd) && c.LunchStart.Before(end)
}

// WithinOperatingHours reports whether [start, end) fits the operating window.
func (c Constraints) WithinOperatingHours(start, end time.Time) bool {
	return !start.Before(c.OperatingStart) && !end.After(c.OperatingEnd)
}

// AvailableCourtTime is the total court time outside lunch across all courts.
func (c Constraints) AvailableCourtTime() time.Duration {
	perCourt := c.OperatingEnd.Sub(c.OperatingStart)
	if c.HasLunch() {
		perCourt -= c.LunchEnd.Sub(c.LunchStart)
	}
	if perCourt < 0 {
		return 0
	}
	return perCourt * time.Duration(c.CourtCount)
}

func (c Constraints) Validate() error {
	switch {
	case c.CourtCount <= 0:
		return fmt.Errorf("%w: court count must be positive, got %d", ErrInvalidConstraints, c.CourtCount)
	case c.OperatingStart.IsZero() || c.OperatingEnd.IsZero():
		return fmt.Errorf("%w: operating start and end are required", ErrInvalidConstraints)
	case !c.OperatingEnd.After(c.OperatingStart):
		return fmt.Errorf("%w: operating end %s must be after start %s", ErrInvalidConstraints,
			c.OperatingEnd.Format(time.RFC3339), c.OperatingStart.Format(time.RFC3339))
	case c.MatchDuration <= 0:
		return fmt.Errorf("%w: match duration must be positive", ErrInvalidConstraints)
	case c.BreakDuration < 0 || c.TurnaroundDuration < 0 || c.RestDuration < 0:
		return fmt.Errorf("%w: break, turnaround and rest durations cannot be negative", ErrInvalidConstraints)
	case c.MaxConsecutiveMatches < 0:
		return fmt.Errorf("%w: max consecutive matches cannot be negative", ErrInvalidConstraints)
	}
	if !c.LunchStart.IsZero() || !c.LunchEnd.IsZero() {
		if !c.HasLunch() {
			return fmt.Errorf("%w: lunch end must be after lunch start", ErrInvalidConstraints)
		}
		if c.LunchStart.Before(c.OperatingStart) || c.LunchEnd.After(c.OperatingEnd) {
			return fmt.Errorf("%w: lunch break must lie within operating hours", ErrInvalidConstraints)
		}
	}
	return nil
}

type constraintsJSON struct {
	CourtCount            int        `json:"court_count"`
	CourtNames            []string   `json:"court_names,omitempty"`
	OperatingStart        time.Time  `json:"operating_start"`
	OperatingEnd          time.Time  `json:"operating_end"`
	LunchStart            *time.Time `json:"lunch_start,omitempty"`
	LunchEnd              *time.Time `json:"lunch_end,omitempty"`
	MatchDuration         string     `json:"match_duration"`
	BreakDuration         string     `json:"break_duration,omitempty"`
	TurnaroundDuration    string     `json:"turnaround_duration,omitempty"`
	RestDuration          string     `json:"rest_duration,omitempty"`
	MaxConsecutiveMatches int        `json:"max_consecutive_matches,omitempty"`
}

// MarshalJSON writes durations as Go duration strings ("45m0s").
func (c Constraints) MarshalJSON() ([]byte, error) {
	out := constraintsJSON{
		CourtCount:            c.CourtCount,
		CourtNames:            c.CourtNames,
		OperatingStart:        c.OperatingStart,
		OperatingEnd:          c.OperatingEnd,
		MatchDuration:         c.MatchDuration.String(),
		BreakDuration:         c.BreakDuration.String(),
		TurnaroundDuration:    c.TurnaroundDuration.String(),
		RestDuration:          c.RestDuration.String(),
		MaxConsecutiveMatches: c.MaxConsecutiveMatches,
	}
	if c.HasLunch() {
		out.LunchStart = &c.LunchStart
		out.LunchEnd = &c.LunchEnd
	}
	return json.Marshal(out)
}

func (c *Constraints) UnmarshalJSON(data []byte) error {
	var in constraintsJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	durations := []struct {
		name  string
		raw   string
		field *time.Duration
	}{
		{"match_duration", in.MatchDuration, &c.MatchDuration},
		{"break_duration", in.BreakDuration, &c.BreakDuration},
		{"turnaround_duration", in.TurnaroundDuration, &c.TurnaroundDuration},
		{"rest_duration", in.RestDuration, &c.RestDuration},
	}
	for _, d := range durations {
		if d.raw == "" {
			*d.field = 0
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.raw, err)
		}
		*d.field = v
	}

	c.CourtCount = in.CourtCount
	c.CourtNames = in.CourtNames
	c.OperatingStart = in.OperatingStart
	c.OperatingEnd = in.OperatingEnd
	c.LunchStart, c.LunchEnd = time.Time{}, time.Time{}
	if in.LunchStart != nil {
		c.LunchStart = *in.LunchStart
	}
	if in.LunchEnd != nil {
		c.LunchEnd = *in.LunchEnd
	}
	c.MaxConsecutiveMatches = in.MaxConsecutiveMatches
	return nil
}
