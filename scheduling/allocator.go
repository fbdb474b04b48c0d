package scheduling

import (
	"math"
	"sort"
	"time"

	"github.com/Dosada05/court-scheduler/models"
)

// Allocation is the output of one full optimization run.
// A partially placed match list is a normal result, not an error.
type Allocation struct {
	TournamentID        int                   `json:"tournament_id"`
	Slots               []models.ScheduleSlot `json:"slots"`
	UnscheduledMatchIDs []int                 `json:"unscheduled_match_ids"`
	ScheduledCount      int                   `json:"scheduled_count"`
	TotalMatches        int                   `json:"total_matches"`
	UtilizationPercent  float64               `json:"utilization_percent"`
	CourtUtilization    float64               `json:"court_utilization_percent"`
}

type participantState struct {
	free    time.Time
	lastEnd time.Time
	streak  int
}

type allocator struct {
	tournamentID int
	c            models.Constraints
	courts       []models.Court
	courtFree    map[int]time.Time
	players      map[int]*participantState
}

// Allocate places matches greedily, in priority order, on the earliest feasible
// (court, window) pair. Constraints are assumed valid.
func Allocate(tournamentID int, matches []models.Match, c models.Constraints) Allocation {
	a := &allocator{
		tournamentID: tournamentID,
		c:            c,
		courts:       c.Courts(),
		courtFree:    make(map[int]time.Time, c.CourtCount),
		players:      make(map[int]*participantState),
	}
	for _, court := range a.courts {
		a.courtFree[court.Number] = c.OperatingStart
	}

	ordered := orderMatches(matches)

	result := Allocation{
		TournamentID:        tournamentID,
		Slots:               make([]models.ScheduleSlot, 0, len(ordered)+c.CourtCount),
		UnscheduledMatchIDs: []int{},
		TotalMatches:        len(ordered),
	}

	var busy time.Duration
	for _, m := range ordered {
		slot, ok := a.place(m)
		if !ok {
			result.UnscheduledMatchIDs = append(result.UnscheduledMatchIDs, m.ID)
			continue
		}
		result.Slots = append(result.Slots, slot)
		busy += slot.End.Sub(slot.Start)
	}
	result.ScheduledCount = len(result.Slots)

	if c.HasLunch() {
		for _, court := range a.courts {
			result.Slots = append(result.Slots, models.ScheduleSlot{
				ID:           models.LunchSlotID(tournamentID, court.Number),
				TournamentID: tournamentID,
				CourtNumber:  court.Number,
				CourtName:    court.Name,
				Start:        c.LunchStart,
				End:          c.LunchEnd,
				IsBreak:      true,
				IsLunchBreak: true,
			})
		}
	}
	SortSlots(result.Slots)

	if result.TotalMatches > 0 {
		result.UtilizationPercent = roundPercent(float64(result.ScheduledCount) / float64(result.TotalMatches))
	}
	if avail := c.AvailableCourtTime(); avail > 0 {
		result.CourtUtilization = roundPercent(float64(busy) / float64(avail))
	}
	return result
}

func (a *allocator) place(m models.Match) (models.ScheduleSlot, bool) {
	minParticipant := a.c.OperatingStart
	for _, p := range m.Participants() {
		if st, ok := a.players[p]; ok && st.free.After(minParticipant) {
			minParticipant = st.free
		}
	}

	bestCourt := -1
	var bestStart time.Time
	for _, court := range a.courts {
		start := laterOf(a.courtFree[court.Number], minParticipant)
		start, ok := fitWindow(a.c, start, a.c.MatchDuration)
		if !ok {
			continue
		}
		if bestCourt < 0 || start.Before(bestStart) {
			bestCourt = court.Number
			bestStart = start
		}
	}
	if bestCourt < 0 {
		return models.ScheduleSlot{}, false
	}

	end := bestStart.Add(a.c.MatchDuration)
	a.courtFree[bestCourt] = end.Add(a.c.TurnaroundDuration)
	for _, p := range m.Participants() {
		a.markPlayed(p, bestStart, end)
	}

	return newMatchSlot(a.tournamentID, m, bestCourt, a.c.CourtName(bestCourt), bestStart, end), true
}

// markPlayed records a match for a participant. After MaxConsecutiveMatches
// back-to-back matches BreakDuration is added on top of the rest time.
func (a *allocator) markPlayed(participant int, start, end time.Time) {
	st, ok := a.players[participant]
	if !ok {
		st = &participantState{}
		a.players[participant] = st
	}

	if !st.lastEnd.IsZero() && start.Sub(st.lastEnd) < a.c.RestDuration+a.c.BreakDuration {
		st.streak++
	} else {
		st.streak = 1
	}
	st.lastEnd = end

	rest := a.c.RestDuration
	if a.c.MaxConsecutiveMatches > 0 && st.streak >= a.c.MaxConsecutiveMatches {
		rest += a.c.BreakDuration
	}
	st.free = end.Add(rest)
}

// fitWindow moves a candidate start out of the lunch window and reports whether
// a match of length d still ends within operating hours.
func fitWindow(c models.Constraints, start time.Time, d time.Duration) (time.Time, bool) {
	if start.Before(c.OperatingStart) {
		start = c.OperatingStart
	}
	if c.OverlapsLunch(start, start.Add(d)) {
		start = c.LunchEnd
	}
	if start.Add(d).After(c.OperatingEnd) {
		return start, false
	}
	return start, true
}

func orderMatches(matches []models.Match) []models.Match {
	ordered := make([]models.Match, len(matches))
	copy(ordered, matches)
	sort.SliceStable(ordered, func(i, j int) bool {
		pi, pj := ClassifyRound(ordered[i].RoundLabel), ClassifyRound(ordered[j].RoundLabel)
		if pi != pj {
			return pi < pj
		}
		if ordered[i].Sequence != ordered[j].Sequence {
			return ordered[i].Sequence < ordered[j].Sequence
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

func newMatchSlot(tournamentID int, m models.Match, court int, courtName string, start, end time.Time) models.ScheduleSlot {
	id := m.ID
	return models.ScheduleSlot{
		ID:             models.MatchSlotID(tournamentID, m.ID),
		TournamentID:   tournamentID,
		CourtNumber:    court,
		CourtName:      courtName,
		Start:          start,
		End:            end,
		MatchID:        &id,
		RoundLabel:     m.RoundLabel,
		Participant1ID: copyID(m.Participant1ID),
		Participant2ID: copyID(m.Participant2ID),
	}
}

// SortSlots orders slots by start time, then court number.
func SortSlots(slots []models.ScheduleSlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		if !slots[i].Start.Equal(slots[j].Start) {
			return slots[i].Start.Before(slots[j].Start)
		}
		return slots[i].CourtNumber < slots[j].CourtNumber
	})
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

func copyID(id *int) *int {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func roundPercent(ratio float64) float64 {
	return math.Round(ratio*10000) / 100
}
