package models

import (
	"fmt"
	"time"
)

type Court struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

// ScheduleSlot binds a court and a time interval, optionally to a match.
// A slot without MatchID is a break block.
type ScheduleSlot struct {
	ID             string    `json:"id"`
	TournamentID   int       `json:"tournament_id"`
	CourtNumber    int       `json:"court_number"`
	CourtName      string    `json:"court_name"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	MatchID        *int      `json:"match_id,omitempty"`
	RoundLabel     string    `json:"round_label,omitempty"`
	Participant1ID *int      `json:"participant1_id,omitempty"`
	Participant2ID *int      `json:"participant2_id,omitempty"`
	IsBreak        bool      `json:"is_break"`
	IsLunchBreak   bool      `json:"is_lunch_break"`
}

func MatchSlotID(tournamentID, matchID int) string {
	return fmt.Sprintf("t%d-m%d", tournamentID, matchID)
}

func LunchSlotID(tournamentID, court int) string {
	return fmt.Sprintf("t%d-c%d-lunch", tournamentID, court)
}

// Participants returns the participant IDs bound to the slot.
func (s ScheduleSlot) Participants() []int {
	ids := make([]int, 0, 2)
	if s.Participant1ID != nil {
		ids = append(ids, *s.Participant1ID)
	}
	if s.Participant2ID != nil {
		ids = append(ids, *s.Participant2ID)
	}
	return ids
}

// SharesParticipant reports whether both slots involve at least one common participant.
func (s ScheduleSlot) SharesParticipant(other ScheduleSlot) bool {
	for _, a := range s.Participants() {
		for _, b := range other.Participants() {
			if a == b {
				return true
			}
		}
	}
	return false
}

// Overlaps reports whether the half-open intervals [Start, End) intersect.
func (s ScheduleSlot) Overlaps(other ScheduleSlot) bool {
	return s.Start.Before(other.End) && other.Start.Before(s.End)
}

func (s ScheduleSlot) IsMatch() bool {
	return s.MatchID != nil
}
