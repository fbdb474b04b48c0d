package models

import (
	"errors"
	"fmt"
	"time"
)

type AdjustmentType string

const (
	AdjustmentDelay       AdjustmentType = "delay"
	AdjustmentReschedule  AdjustmentType = "reschedule"
	AdjustmentCourtChange AdjustmentType = "court_change"
)

var ErrInvalidAdjustment = errors.New("invalid adjustment event")

// AdjustmentEvent is a disruption applied to the current schedule.
// Only the fields of its Type are read: Minutes for delay, NewStartTime for
// reschedule, NewCourt for court_change.
type AdjustmentEvent struct {
	Type         AdjustmentType `json:"type"`
	MatchID      int            `json:"match_id"`
	Minutes      int            `json:"minutes,omitempty"`
	NewStartTime *time.Time     `json:"new_start_time,omitempty"`
	NewCourt     int            `json:"new_court,omitempty"`
	Reason       string         `json:"reason"`
}

func (e AdjustmentEvent) Validate() error {
	if e.MatchID <= 0 {
		return fmt.Errorf("%w: match_id is required", ErrInvalidAdjustment)
	}
	switch e.Type {
	case AdjustmentDelay:
		if e.Minutes <= 0 {
			return fmt.Errorf("%w: delay minutes must be positive, got %d", ErrInvalidAdjustment, e.Minutes)
		}
	case AdjustmentReschedule:
		if e.NewStartTime == nil || e.NewStartTime.IsZero() {
			return fmt.Errorf("%w: reschedule requires new_start_time", ErrInvalidAdjustment)
		}
	case AdjustmentCourtChange:
		if e.NewCourt <= 0 {
			return fmt.Errorf("%w: court_change requires new_court", ErrInvalidAdjustment)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidAdjustment, e.Type)
	}
	return nil
}
