package scheduling

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Dosada05/court-scheduler/models"
)

var (
	ErrMatchNotFound = errors.New("match not found in current schedule")
	ErrInfeasible    = errors.New("requested placement is infeasible")
)

// closingWarning is how close to OperatingEnd a shifted match must end before
// a recommendation is emitted.
const closingWarning = 30 * time.Minute

// Schedule is the current per-tournament assignment and the constraints it was built with.
type Schedule struct {
	TournamentID int                   `json:"tournament_id"`
	Constraints  models.Constraints    `json:"constraints"`
	Slots        []models.ScheduleSlot `json:"slots"`
}

// Clone returns a deep copy so callers never share slot memory.
func (s Schedule) Clone() Schedule {
	return Schedule{
		TournamentID: s.TournamentID,
		Constraints:  s.Constraints,
		Slots:        cloneSlots(s.Slots),
	}
}

type AdjustmentResult struct {
	Success         bool                   `json:"success"`
	Event           models.AdjustmentEvent `json:"event"`
	Slots           []models.ScheduleSlot  `json:"updated_slots"`
	CascadeMatchIDs []int                  `json:"cascade_match_ids"`
	Recommendations []string               `json:"recommendations"`
}

// Apply runs one adjustment event against the schedule. The input schedule is
// never modified; on error the caller keeps its current schedule.
//
// Cascades only push matches later. Matches left behind on a vacated court or
// behind a shortened gap are not pulled forward.
func Apply(current Schedule, ev models.AdjustmentEvent) (AdjustmentResult, error) {
	if err := ev.Validate(); err != nil {
		return AdjustmentResult{}, err
	}

	c := current.Constraints
	slots := cloneSlots(current.Slots)
	idx := indexOfMatch(slots, ev.MatchID)
	if idx < 0 {
		return AdjustmentResult{}, fmt.Errorf("%w: match %d", ErrMatchNotFound, ev.MatchID)
	}

	target := &slots[idx]
	length := target.End.Sub(target.Start)
	orderKey := target.Start
	strict := true

	switch ev.Type {
	case models.AdjustmentDelay:
		start, ok := fitWindow(c, target.Start.Add(time.Duration(ev.Minutes)*time.Minute), length)
		if !ok {
			return AdjustmentResult{}, fmt.Errorf("%w: delaying match %d by %d minutes runs past closing at %s",
				ErrInfeasible, ev.MatchID, ev.Minutes, c.OperatingEnd.Format("15:04"))
		}
		target.Start, target.End = start, start.Add(length)
		// A delayed match keeps its place in the running order.
		strict = false
	case models.AdjustmentReschedule:
		start := *ev.NewStartTime
		target.Start, target.End = start, start.Add(length)
		orderKey = start
	case models.AdjustmentCourtChange:
		if ev.NewCourt > c.CourtCount {
			return AdjustmentResult{}, fmt.Errorf("%w: court %d does not exist (%d courts)", ErrInfeasible, ev.NewCourt, c.CourtCount)
		}
		target.CourtNumber = ev.NewCourt
		target.CourtName = c.CourtName(ev.NewCourt)
	}

	if err := checkPlacement(c, *target); err != nil {
		return AdjustmentResult{}, fmt.Errorf("%w: match %d: %v", ErrInfeasible, ev.MatchID, err)
	}

	moved, err := cascade(c, slots, idx, orderKey, strict)
	if err != nil {
		return AdjustmentResult{}, err
	}
	SortSlots(slots)

	cascadeIDs := make([]int, 0, len(moved))
	for _, s := range moved {
		cascadeIDs = append(cascadeIDs, *s.MatchID)
	}

	return AdjustmentResult{
		Success:         true,
		Event:           ev,
		Slots:           slots,
		CascadeMatchIDs: cascadeIDs,
		Recommendations: recommend(c, slots, current.Slots, ev, moved),
	}, nil
}

func checkPlacement(c models.Constraints, s models.ScheduleSlot) error {
	if !c.WithinOperatingHours(s.Start, s.End) {
		return fmt.Errorf("%s-%s is outside operating hours %s-%s",
			s.Start.Format("15:04"), s.End.Format("15:04"),
			c.OperatingStart.Format("15:04"), c.OperatingEnd.Format("15:04"))
	}
	if c.OverlapsLunch(s.Start, s.End) {
		return fmt.Errorf("%s-%s overlaps the lunch break %s-%s",
			s.Start.Format("15:04"), s.End.Format("15:04"),
			c.LunchStart.Format("15:04"), c.LunchEnd.Format("15:04"))
	}
	return nil
}

// cascade walks match slots in running order and pushes every slot whose court
// or participants are held by a slot touched by this event. The pinned slot is
// the one the event placed explicitly; in strict mode any conflict with a slot
// that stays ahead of it rejects the event.
func cascade(c models.Constraints, slots []models.ScheduleSlot, pinned int, pinnedKey time.Time, strict bool) ([]models.ScheduleSlot, error) {
	order := make([]int, 0, len(slots))
	for i := range slots {
		if slots[i].IsMatch() {
			order = append(order, i)
		}
	}
	key := func(i int) time.Time {
		if i == pinned {
			return pinnedKey
		}
		return slots[i].Start
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		ka, kb := key(ia), key(ib)
		if !ka.Equal(kb) {
			return ka.Before(kb)
		}
		if ia == pinned || ib == pinned {
			return ia == pinned
		}
		return slots[ia].CourtNumber < slots[ib].CourtNumber
	})

	var (
		courtAny     = make(map[int]time.Time)
		courtTouched = make(map[int]time.Time)
		playerAny    = make(map[int]time.Time)
		playerTouch  = make(map[int]time.Time)
		touched      = map[int]bool{pinned: true}
		moved        []models.ScheduleSlot
	)

	for _, i := range order {
		s := &slots[i]
		required := courtAny[s.CourtNumber]
		fromTouched := courtTouched[s.CourtNumber]
		for _, p := range s.Participants() {
			required = laterOf(required, playerAny[p])
			fromTouched = laterOf(fromTouched, playerTouch[p])
		}

		switch {
		case i == pinned:
			if strict && required.After(s.Start) {
				return nil, fmt.Errorf("%w: match %d at %s conflicts with a match that stays ahead of it (free from %s)",
					ErrInfeasible, *s.MatchID, s.Start.Format("15:04"), required.Format("15:04"))
			}
		case fromTouched.After(s.Start):
			length := s.End.Sub(s.Start)
			start, ok := fitWindow(c, required, length)
			if !ok {
				return nil, fmt.Errorf("%w: match %d would be pushed past closing at %s",
					ErrInfeasible, *s.MatchID, c.OperatingEnd.Format("15:04"))
			}
			s.Start, s.End = start, start.Add(length)
			touched[i] = true
			moved = append(moved, *s)
		}

		courtReady := s.End.Add(c.TurnaroundDuration)
		playerReady := s.End.Add(c.RestDuration)
		courtAny[s.CourtNumber] = laterOf(courtAny[s.CourtNumber], courtReady)
		if touched[i] {
			courtTouched[s.CourtNumber] = laterOf(courtTouched[s.CourtNumber], courtReady)
		}
		for _, p := range s.Participants() {
			playerAny[p] = laterOf(playerAny[p], playerReady)
			if touched[i] {
				playerTouch[p] = laterOf(playerTouch[p], playerReady)
			}
		}
	}
	return moved, nil
}

func recommend(c models.Constraints, updated, previous []models.ScheduleSlot, ev models.AdjustmentEvent, moved []models.ScheduleSlot) []string {
	recs := make([]string, 0, 4)
	before := make(map[int]models.ScheduleSlot, len(previous))
	for _, s := range previous {
		if s.MatchID != nil {
			before[*s.MatchID] = s
		}
	}

	if len(moved) == 0 {
		recs = append(recs, "no downstream matches affected")
	} else {
		recs = append(recs, fmt.Sprintf("%d downstream matches shifted; consider reassigning to an idle court", len(moved)))

		var maxShift time.Duration
		maxShiftMatch := 0
		windowStart, windowEnd := moved[0].Start, moved[0].End
		for _, s := range moved {
			if shift := s.Start.Sub(before[*s.MatchID].Start); shift > maxShift {
				maxShift, maxShiftMatch = shift, *s.MatchID
			}
			if s.Start.Before(windowStart) {
				windowStart = s.Start
			}
			if s.End.After(windowEnd) {
				windowEnd = s.End
			}
		}
		recs = append(recs, fmt.Sprintf("largest shift is %d minutes (match %d)", int(maxShift.Minutes()), maxShiftMatch))

		for _, court := range idleCourts(c, updated, windowStart, windowEnd) {
			recs = append(recs, fmt.Sprintf("%s is idle between %s and %s",
				court.Name, windowStart.Format("15:04"), windowEnd.Format("15:04")))
		}
	}

	for _, s := range updated {
		if s.MatchID == nil {
			continue
		}
		prev, ok := before[*s.MatchID]
		if !ok || prev.End.Equal(s.End) {
			continue
		}
		if left := c.OperatingEnd.Sub(s.End); left < closingWarning {
			recs = append(recs, fmt.Sprintf("match %d now ends at %s, %d minutes before closing",
				*s.MatchID, s.End.Format("15:04"), int(left.Minutes())))
		}
	}

	if ev.Type == models.AdjustmentCourtChange {
		if prev, ok := before[ev.MatchID]; ok && prev.CourtNumber != ev.NewCourt {
			recs = append(recs, fmt.Sprintf("%s has an open window from %s; later matches there were not moved forward",
				prev.CourtName, prev.Start.Format("15:04")))
		}
	}
	return recs
}

// idleCourts returns courts with no match overlapping [from, to).
func idleCourts(c models.Constraints, slots []models.ScheduleSlot, from, to time.Time) []models.Court {
	busy := make(map[int]bool)
	for _, s := range slots {
		if s.IsMatch() && s.Start.Before(to) && from.Before(s.End) {
			busy[s.CourtNumber] = true
		}
	}
	var idle []models.Court
	for _, court := range c.Courts() {
		if !busy[court.Number] {
			idle = append(idle, court)
		}
	}
	return idle
}

func indexOfMatch(slots []models.ScheduleSlot, matchID int) int {
	for i, s := range slots {
		if s.MatchID != nil && *s.MatchID == matchID {
			return i
		}
	}
	return -1
}

func cloneSlots(slots []models.ScheduleSlot) []models.ScheduleSlot {
	out := make([]models.ScheduleSlot, len(slots))
	for i, s := range slots {
		s.MatchID = copyID(s.MatchID)
		s.Participant1ID = copyID(s.Participant1ID)
		s.Participant2ID = copyID(s.Participant2ID)
		out[i] = s
	}
	return out
}
