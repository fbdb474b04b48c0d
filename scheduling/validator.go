package scheduling

import (
	"fmt"
	"time"

	"github.com/Dosada05/court-scheduler/models"
)

type ConflictType string

const (
	ConflictCourt  ConflictType = "court"
	ConflictPlayer ConflictType = "player"
)

// Conflict is one violation found in an existing schedule.
type Conflict struct {
	Type        ConflictType `json:"type"`
	SlotIDs     []string     `json:"slot_ids"`
	MatchIDs    []int        `json:"match_ids,omitempty"`
	Description string       `json:"description"`
}

// Validate scans slots for court double-booking and for participants whose
// matches are closer than minGap. minGap is a loose floor for hand-edited
// schedules and is configured separately from the allocator's rest duration.
// The input is never modified.
func Validate(slots []models.ScheduleSlot, minGap time.Duration) []Conflict {
	conflicts := make([]Conflict, 0)
	conflicts = append(conflicts, checkCourtOverlaps(slots)...)
	conflicts = append(conflicts, checkParticipantRest(slots, minGap)...)
	return conflicts
}

func checkCourtOverlaps(slots []models.ScheduleSlot) []Conflict {
	var conflicts []Conflict
	for i := 0; i < len(slots); i++ {
		for j := i + 1; j < len(slots); j++ {
			a, b := slots[i], slots[j]
			if a.CourtNumber != b.CourtNumber || !a.Overlaps(b) {
				continue
			}
			conflicts = append(conflicts, Conflict{
				Type:     ConflictCourt,
				SlotIDs:  []string{a.ID, b.ID},
				MatchIDs: matchIDs(a, b),
				Description: fmt.Sprintf("court %d is double-booked: %s overlaps %s",
					a.CourtNumber, describeSlot(a), describeSlot(b)),
			})
		}
	}
	return conflicts
}

func checkParticipantRest(slots []models.ScheduleSlot, minGap time.Duration) []Conflict {
	var conflicts []Conflict
	for i := 0; i < len(slots); i++ {
		for j := i + 1; j < len(slots); j++ {
			a, b := slots[i], slots[j]
			if !a.IsMatch() || !b.IsMatch() || !a.SharesParticipant(b) {
				continue
			}
			first, second := a, b
			if second.Start.Before(first.Start) {
				first, second = second, first
			}
			gap := second.Start.Sub(first.End)
			if gap >= minGap {
				continue
			}
			conflicts = append(conflicts, Conflict{
				Type:     ConflictPlayer,
				SlotIDs:  []string{first.ID, second.ID},
				MatchIDs: matchIDs(first, second),
				Description: fmt.Sprintf("participant rest too short between %s and %s: %s, minimum %s",
					describeSlot(first), describeSlot(second), gap, minGap),
			})
		}
	}
	return conflicts
}

func matchIDs(slots ...models.ScheduleSlot) []int {
	ids := make([]int, 0, len(slots))
	for _, s := range slots {
		if s.MatchID != nil {
			ids = append(ids, *s.MatchID)
		}
	}
	return ids
}

func describeSlot(s models.ScheduleSlot) string {
	span := fmt.Sprintf("%s-%s", s.Start.Format("15:04"), s.End.Format("15:04"))
	switch {
	case s.IsLunchBreak:
		return "lunch break " + span
	case s.MatchID == nil:
		return "break " + span
	default:
		return fmt.Sprintf("match %d %s", *s.MatchID, span)
	}
}
