package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/court-scheduler/models"
)

const matchLength = 45 * time.Minute

func scheduleOf(c models.Constraints, slots ...models.ScheduleSlot) Schedule {
	SortSlots(slots)
	return Schedule{TournamentID: 1, Constraints: c, Slots: slots}
}

func delay(matchID, minutes int) models.AdjustmentEvent {
	return models.AdjustmentEvent{Type: models.AdjustmentDelay, MatchID: matchID, Minutes: minutes, Reason: "late arrival"}
}

func reschedule(matchID int, start string) models.AdjustmentEvent {
	t := at(start)
	return models.AdjustmentEvent{Type: models.AdjustmentReschedule, MatchID: matchID, NewStartTime: &t, Reason: "operator request"}
}

func courtChange(matchID, court int) models.AdjustmentEvent {
	return models.AdjustmentEvent{Type: models.AdjustmentCourtChange, MatchID: matchID, NewCourt: court, Reason: "court outage"}
}

func TestApplyDelaySoleOccupant(t *testing.T) {
	c := baseConstraints()
	current := scheduleOf(c,
		matchSlot(1, 1, "09:00", matchLength, 1, 2),
		matchSlot(2, 2, "09:00", matchLength, 3, 4),
		matchSlot(3, 2, "09:55", matchLength, 5, 6),
	)

	result, err := Apply(current, delay(1, 30))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Empty(t, result.CascadeMatchIDs)
	assert.Equal(t, at("09:30"), slotByMatch(result.Slots, 1).Start)
	assert.Equal(t, at("10:15"), slotByMatch(result.Slots, 1).End)
	assert.Equal(t, at("09:00"), slotByMatch(result.Slots, 2).Start)
	assert.Equal(t, at("09:55"), slotByMatch(result.Slots, 3).Start)
	assert.Contains(t, result.Recommendations, "no downstream matches affected")
}

func TestApplyDelayPushesSameCourt(t *testing.T) {
	c := baseConstraints()
	c.CourtCount = 2
	current := scheduleOf(c,
		matchSlot(1, 1, "09:00", matchLength, 1, 2),
		matchSlot(2, 1, "09:55", matchLength, 3, 4),
		matchSlot(3, 1, "10:50", matchLength, 5, 6),
		matchSlot(4, 2, "09:00", matchLength, 7, 8),
	)

	result, err := Apply(current, delay(1, 30))
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3}, result.CascadeMatchIDs)
	assert.Equal(t, at("10:25"), slotByMatch(result.Slots, 2).Start)
	assert.Equal(t, at("11:20"), slotByMatch(result.Slots, 3).Start)
	assert.Equal(t, at("09:00"), slotByMatch(result.Slots, 4).Start)
	assert.Contains(t, result.Recommendations, "2 downstream matches shifted; consider reassigning to an idle court")
	assert.Contains(t, result.Recommendations, "Court 2 is idle between 10:25 and 12:05")
}

func TestApplyDelayPushesSharedParticipant(t *testing.T) {
	c := baseConstraints()
	current := scheduleOf(c,
		matchSlot(1, 1, "09:00", matchLength, 1, 2),
		matchSlot(2, 2, "10:15", matchLength, 1, 3),
		matchSlot(3, 3, "10:15", matchLength, 4, 5),
	)

	result, err := Apply(current, delay(1, 20))
	require.NoError(t, err)

	assert.Equal(t, []int{2}, result.CascadeMatchIDs)
	assert.Equal(t, at("10:35"), slotByMatch(result.Slots, 2).Start, "rest after 10:05")
	assert.Equal(t, at("10:15"), slotByMatch(result.Slots, 3).Start)
	assert.Empty(t, Validate(result.Slots, c.RestDuration))
}

func TestApplyDelayNeverPullsEarlier(t *testing.T) {
	c := baseConstraints()
	current := scheduleOf(c,
		matchSlot(1, 1, "09:00", matchLength, 1, 2),
		matchSlot(2, 1, "12:00", matchLength, 3, 4),
	)

	result, err := Apply(current, delay(1, 15))
	require.NoError(t, err)
	assert.Empty(t, result.CascadeMatchIDs)
	assert.Equal(t, at("12:00"), slotByMatch(result.Slots, 2).Start)
}

func TestApplyDelayPastClosingIsInfeasible(t *testing.T) {
	c := baseConstraints()
	c.OperatingEnd = at("11:00")
	current := scheduleOf(c,
		matchSlot(1, 1, "09:00", matchLength, 1, 2),
		matchSlot(2, 1, "09:55", matchLength, 3, 4),
	)
	before := current.Clone()

	_, err := Apply(current, delay(1, 30))
	require.ErrorIs(t, err, ErrInfeasible)
	assert.Equal(t, before, current)
}

func TestApplyDelayAcrossLunch(t *testing.T) {
	c := baseConstraints()
	c.LunchStart, c.LunchEnd = at("12:00"), at("13:00")
	current := scheduleOf(c, matchSlot(1, 1, "11:00", matchLength, 1, 2))

	result, err := Apply(current, delay(1, 30))
	require.NoError(t, err)
	assert.Equal(t, at("13:00"), slotByMatch(result.Slots, 1).Start)
}

func TestApplyRescheduleIntoLunchIsInfeasible(t *testing.T) {
	c := baseConstraints()
	c.LunchStart, c.LunchEnd = at("12:00"), at("13:00")
	current := scheduleOf(c,
		matchSlot(1, 1, "09:00", matchLength, 1, 2),
		matchSlot(2, 2, "09:00", matchLength, 3, 4),
	)
	before := current.Clone()

	_, err := Apply(current, reschedule(1, "12:15"))

	require.ErrorIs(t, err, ErrInfeasible)
	assert.Equal(t, before, current, "schedule must be left unchanged")
}

func TestApplyRescheduleConflictsWithEarlierMatch(t *testing.T) {
	c := baseConstraints()
	current := scheduleOf(c,
		matchSlot(1, 1, "09:00", matchLength, 1, 2),
		matchSlot(2, 1, "10:00", matchLength, 3, 4),
	)

	_, err := Apply(current, reschedule(2, "09:30"))
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestApplyReschedulePushesLaterMatches(t *testing.T) {
	c := baseConstraints()
	current := scheduleOf(c,
		matchSlot(1, 1, "09:00", matchLength, 1, 2),
		matchSlot(2, 1, "09:55", matchLength, 3, 4),
		matchSlot(3, 2, "09:00", matchLength, 5, 6),
	)

	result, err := Apply(current, reschedule(1, "09:30"))
	require.NoError(t, err)
	assert.Equal(t, []int{2}, result.CascadeMatchIDs)
	assert.Equal(t, at("10:25"), slotByMatch(result.Slots, 2).Start)

	result, err = Apply(current, reschedule(3, "09:50"))
	require.NoError(t, err)
	assert.Empty(t, result.CascadeMatchIDs)
}

func TestApplyCourtChangeOntoBusyCourt(t *testing.T) {
	c := baseConstraints()
	current := scheduleOf(c,
		matchSlot(1, 1, "09:00", matchLength, 1, 2),
		matchSlot(2, 1, "09:55", matchLength, 3, 4),
		matchSlot(3, 2, "09:00", matchLength, 5, 6),
	)

	result, err := Apply(current, courtChange(3, 1))
	require.NoError(t, err)

	assert.Equal(t, at("09:00"), slotByMatch(result.Slots, 3).Start)
	assert.Equal(t, []int{1, 2}, result.CascadeMatchIDs, "the moved match keeps its time and the occupants yield")
	assert.Equal(t, at("09:55"), slotByMatch(result.Slots, 1).Start)
	assert.Equal(t, at("10:50"), slotByMatch(result.Slots, 2).Start)
	assert.Empty(t, Validate(result.Slots, c.RestDuration))
}

func TestApplyRescheduleOutsideOperatingHours(t *testing.T) {
	c := baseConstraints()
	current := scheduleOf(c, matchSlot(1, 1, "09:00", matchLength, 1, 2))

	_, err := Apply(current, reschedule(1, "17:30"))
	assert.ErrorIs(t, err, ErrInfeasible)

	_, err = Apply(current, reschedule(1, "08:30"))
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestApplyCourtChangeIsPushOnly(t *testing.T) {
	c := baseConstraints()
	c.CourtCount = 2
	current := scheduleOf(c,
		matchSlot(1, 1, "10:00", matchLength, 1, 2),
		matchSlot(2, 1, "10:55", matchLength, 3, 4),
		matchSlot(3, 2, "10:30", matchLength, 5, 6),
	)

	result, err := Apply(current, courtChange(1, 2))
	require.NoError(t, err)

	moved := slotByMatch(result.Slots, 1)
	assert.Equal(t, 2, moved.CourtNumber)
	assert.Equal(t, at("10:00"), moved.Start)

	assert.Equal(t, []int{3}, result.CascadeMatchIDs)
	assert.Equal(t, at("10:55"), slotByMatch(result.Slots, 3).Start)

	// Intentional: the vacated court keeps its later match where it was.
	assert.Equal(t, at("10:55"), slotByMatch(result.Slots, 2).Start)
	assert.Contains(t, result.Recommendations, "Court 1 has an open window from 10:00; later matches there were not moved forward")
}

func TestApplyCourtChangeUnknownCourt(t *testing.T) {
	current := scheduleOf(baseConstraints(), matchSlot(1, 1, "09:00", matchLength, 1, 2))

	_, err := Apply(current, courtChange(1, 9))
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestApplyUnknownMatch(t *testing.T) {
	current := scheduleOf(baseConstraints(), matchSlot(1, 1, "09:00", matchLength, 1, 2))

	_, err := Apply(current, delay(42, 10))
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestApplyInvalidEvent(t *testing.T) {
	current := scheduleOf(baseConstraints(), matchSlot(1, 1, "09:00", matchLength, 1, 2))

	_, err := Apply(current, models.AdjustmentEvent{Type: models.AdjustmentDelay, MatchID: 1})
	assert.ErrorIs(t, err, models.ErrInvalidAdjustment)

	_, err = Apply(current, models.AdjustmentEvent{Type: "teleport", MatchID: 1})
	assert.ErrorIs(t, err, models.ErrInvalidAdjustment)
}

func TestApplyClosingWarning(t *testing.T) {
	c := baseConstraints()
	c.OperatingEnd = at("11:00")
	current := scheduleOf(c, matchSlot(1, 1, "09:30", matchLength, 1, 2))

	result, err := Apply(current, delay(1, 40))
	require.NoError(t, err)
	assert.Contains(t, result.Recommendations, "match 1 now ends at 10:55, 5 minutes before closing")
}
