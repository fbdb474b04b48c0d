package scheduling

import (
	"fmt"
	"time"

	"github.com/Dosada05/court-scheduler/models"
)

var testDay = time.Date(2026, 6, 6, 0, 0, 0, 0, time.UTC)

// at returns the test day at "HH:MM".
func at(clock string) time.Time {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		panic(err)
	}
	return testDay.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
}

func intPtr(v int) *int { return &v }

func baseConstraints() models.Constraints {
	return models.Constraints{
		CourtCount:         4,
		OperatingStart:     at("09:00"),
		OperatingEnd:       at("18:00"),
		MatchDuration:      45 * time.Minute,
		TurnaroundDuration: 10 * time.Minute,
		RestDuration:       30 * time.Minute,
	}
}

// distinctMatches builds n matches of the same round with no shared participants.
func distinctMatches(n int, round string) []models.Match {
	matches := make([]models.Match, n)
	for i := range matches {
		matches[i] = models.Match{
			ID:             i + 1,
			TournamentID:   1,
			RoundLabel:     round,
			Sequence:       i + 1,
			Participant1ID: intPtr(100 + 2*i),
			Participant2ID: intPtr(101 + 2*i),
			Status:         models.MatchStatusUnscheduled,
		}
	}
	return matches
}

func matchSlot(matchID, court int, start string, length time.Duration, participants ...int) models.ScheduleSlot {
	s := models.ScheduleSlot{
		ID:           models.MatchSlotID(1, matchID),
		TournamentID: 1,
		CourtNumber:  court,
		CourtName:    fmt.Sprintf("Court %d", court),
		Start:        at(start),
		End:          at(start).Add(length),
		MatchID:      intPtr(matchID),
		RoundLabel:   "Group A",
	}
	if len(participants) > 0 {
		s.Participant1ID = intPtr(participants[0])
	}
	if len(participants) > 1 {
		s.Participant2ID = intPtr(participants[1])
	}
	return s
}

func slotByMatch(slots []models.ScheduleSlot, matchID int) models.ScheduleSlot {
	for _, s := range slots {
		if s.MatchID != nil && *s.MatchID == matchID {
			return s
		}
	}
	panic(fmt.Sprintf("no slot for match %d", matchID))
}
