package models

import "time"

type MatchStatus string

const (
	MatchStatusUnscheduled MatchStatus = "unscheduled"
	MatchStatusScheduled   MatchStatus = "scheduled"
	MatchStatusOngoing     MatchStatus = "ongoing"
	MatchStatusCompleted   MatchStatus = "completed"
	MatchStatusCancelled   MatchStatus = "cancelled"
)

// Match is the engine's working copy of a match row owned by the store.
type Match struct {
	ID             int         `json:"id" db:"id"`
	TournamentID   int         `json:"tournament_id" db:"tournament_id"`
	RoundLabel     string      `json:"round_label" db:"round_label"`
	Sequence       int         `json:"sequence" db:"sequence"`
	Participant1ID *int        `json:"participant1_id,omitempty" db:"participant1_id"`
	Participant2ID *int        `json:"participant2_id,omitempty" db:"participant2_id"`
	Status         MatchStatus `json:"status" db:"status"`
	CourtNumber    *int        `json:"court_number,omitempty" db:"court_number"`
	ScheduledAt    *time.Time  `json:"scheduled_at,omitempty" db:"scheduled_time"`
	ScheduledEnd   *time.Time  `json:"scheduled_end,omitempty" db:"scheduled_end_time"`
	ActualStart    *time.Time  `json:"actual_start,omitempty" db:"actual_start_time"`
	ActualEnd      *time.Time  `json:"actual_end,omitempty" db:"actual_end_time"`
}

// Participants returns the resolved participant IDs of the match.
// Bracket placeholders that are not decided yet are skipped.
func (m Match) Participants() []int {
	ids := make([]int, 0, 2)
	if m.Participant1ID != nil {
		ids = append(ids, *m.Participant1ID)
	}
	if m.Participant2ID != nil {
		ids = append(ids, *m.Participant2ID)
	}
	return ids
}

// MatchScheduleUpdate is one row of the batch write-back to the store.
type MatchScheduleUpdate struct {
	MatchID      int         `json:"match_id"`
	CourtNumber  *int        `json:"court_number"`
	ScheduledAt  *time.Time  `json:"scheduled_time"`
	ScheduledEnd *time.Time  `json:"scheduled_end_time"`
	Status       MatchStatus `json:"status"`
}

// ScheduleUpdates converts placed slots into write-back rows. Matches listed in
// unscheduled are cleared back to MatchStatusUnscheduled.
func ScheduleUpdates(slots []ScheduleSlot, unscheduled []int) []MatchScheduleUpdate {
	updates := make([]MatchScheduleUpdate, 0, len(slots)+len(unscheduled))
	for _, s := range slots {
		if s.MatchID == nil {
			continue
		}
		court, start, end := s.CourtNumber, s.Start, s.End
		updates = append(updates, MatchScheduleUpdate{
			MatchID:      *s.MatchID,
			CourtNumber:  &court,
			ScheduledAt:  &start,
			ScheduledEnd: &end,
			Status:       MatchStatusScheduled,
		})
	}
	for _, id := range unscheduled {
		updates = append(updates, MatchScheduleUpdate{MatchID: id, Status: MatchStatusUnscheduled})
	}
	return updates
}
