package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/court-scheduler/models"
)

func TestAllocateFourCourtsEightMatches(t *testing.T) {
	c := baseConstraints()
	result := Allocate(1, distinctMatches(8, "Group A"), c)

	require.Empty(t, result.UnscheduledMatchIDs)
	require.Len(t, result.Slots, 8)
	assert.Equal(t, 8, result.ScheduledCount)
	assert.Equal(t, 100.0, result.UtilizationPercent)

	starts := make(map[time.Time]int)
	for _, s := range result.Slots {
		starts[s.Start]++
	}
	assert.Equal(t, 4, starts[at("09:00")])
	assert.Equal(t, 4, starts[at("09:55")])

	t.Run("ties go to the lowest court", func(t *testing.T) {
		for i := 1; i <= 4; i++ {
			s := slotByMatch(result.Slots, i)
			assert.Equal(t, i, s.CourtNumber)
			assert.Equal(t, at("09:00"), s.Start)
		}
	})
}

func TestAllocatePartialWhenWindowCloses(t *testing.T) {
	c := baseConstraints()
	c.CourtCount = 2
	c.OperatingEnd = at("11:00")

	result := Allocate(1, distinctMatches(5, "Group A"), c)

	assert.Equal(t, 4, result.ScheduledCount)
	assert.Equal(t, []int{5}, result.UnscheduledMatchIDs)
	assert.Equal(t, 80.0, result.UtilizationPercent)
	for _, s := range result.Slots {
		assert.False(t, s.End.After(c.OperatingEnd), "slot %s ends after closing", s.ID)
	}
}

func TestAllocateRespectsRoundPriority(t *testing.T) {
	c := baseConstraints()
	c.CourtCount = 1
	matches := []models.Match{
		{ID: 1, RoundLabel: "Final", Sequence: 1},
		{ID: 2, RoundLabel: "Semifinal", Sequence: 2},
		{ID: 3, RoundLabel: "Semifinal", Sequence: 1},
		{ID: 4, RoundLabel: "Group B", Sequence: 1},
	}

	result := Allocate(1, matches, c)
	require.Len(t, result.Slots, 4)

	var order []int
	for _, s := range result.Slots {
		order = append(order, *s.MatchID)
	}
	assert.Equal(t, []int{4, 3, 2, 1}, order)
}

func TestAllocateParticipantRest(t *testing.T) {
	c := baseConstraints()
	c.CourtCount = 2
	matches := []models.Match{
		{ID: 1, RoundLabel: "Group A", Sequence: 1, Participant1ID: intPtr(1), Participant2ID: intPtr(2)},
		{ID: 2, RoundLabel: "Group A", Sequence: 2, Participant1ID: intPtr(1), Participant2ID: intPtr(3)},
	}

	result := Allocate(1, matches, c)
	first := slotByMatch(result.Slots, 1)
	second := slotByMatch(result.Slots, 2)

	assert.Equal(t, at("09:00"), first.Start)
	assert.Equal(t, at("10:15"), second.Start, "participant 1 rests 30 minutes after 09:45")
	assert.Equal(t, 1, second.CourtNumber, "equal candidates resolve to the lowest court")
}

func TestAllocateUnresolvedParticipantsUseCourtOnly(t *testing.T) {
	c := baseConstraints()
	c.CourtCount = 1
	matches := []models.Match{
		{ID: 1, RoundLabel: "Semifinal", Sequence: 1},
		{ID: 2, RoundLabel: "Semifinal", Sequence: 2},
	}

	result := Allocate(1, matches, c)
	assert.Equal(t, at("09:00"), slotByMatch(result.Slots, 1).Start)
	assert.Equal(t, at("09:55"), slotByMatch(result.Slots, 2).Start)
}

func TestAllocateSkipsLunchBreak(t *testing.T) {
	c := baseConstraints()
	c.CourtCount = 1
	c.OperatingEnd = at("14:00")
	c.LunchStart = at("11:30")
	c.LunchEnd = at("12:30")
	c.MatchDuration = time.Hour
	c.TurnaroundDuration = 0

	result := Allocate(1, distinctMatches(4, "Group A"), c)

	assert.Equal(t, 3, result.ScheduledCount)
	assert.Equal(t, []int{4}, result.UnscheduledMatchIDs)
	assert.Equal(t, at("12:30"), slotByMatch(result.Slots, 3).Start)

	var lunch []models.ScheduleSlot
	for _, s := range result.Slots {
		if s.IsLunchBreak {
			lunch = append(lunch, s)
		}
	}
	require.Len(t, lunch, 1)
	assert.Nil(t, lunch[0].MatchID)
	assert.True(t, lunch[0].IsBreak)
	assert.Equal(t, c.LunchStart, lunch[0].Start)
}

func TestAllocateForcedRestAfterConsecutiveMatches(t *testing.T) {
	c := baseConstraints()
	c.CourtCount = 3
	c.MatchDuration = 30 * time.Minute
	c.TurnaroundDuration = 0
	c.RestDuration = 0
	c.BreakDuration = 30 * time.Minute
	c.MaxConsecutiveMatches = 2

	matches := []models.Match{
		{ID: 1, RoundLabel: "Group", Sequence: 1, Participant1ID: intPtr(1), Participant2ID: intPtr(2)},
		{ID: 2, RoundLabel: "Group", Sequence: 2, Participant1ID: intPtr(1), Participant2ID: intPtr(3)},
		{ID: 3, RoundLabel: "Group", Sequence: 3, Participant1ID: intPtr(1), Participant2ID: intPtr(4)},
	}

	result := Allocate(1, matches, c)
	assert.Equal(t, at("09:00"), slotByMatch(result.Slots, 1).Start)
	assert.Equal(t, at("09:30"), slotByMatch(result.Slots, 2).Start)
	assert.Equal(t, at("10:30"), slotByMatch(result.Slots, 3).Start)
}

func TestAllocateInvariants(t *testing.T) {
	configs := map[string]func(models.Constraints) models.Constraints{
		"default": func(c models.Constraints) models.Constraints { return c },
		"lunch": func(c models.Constraints) models.Constraints {
			c.LunchStart, c.LunchEnd = at("12:00"), at("13:00")
			return c
		},
		"two courts short day": func(c models.Constraints) models.Constraints {
			c.CourtCount = 2
			c.OperatingEnd = at("13:00")
			c.LunchStart, c.LunchEnd = at("11:00"), at("11:40")
			return c
		},
	}

	for name, mutate := range configs {
		t.Run(name, func(t *testing.T) {
			c := mutate(baseConstraints())
			matches := roundRobinMatches(6)
			result := Allocate(1, matches, c)

			for _, s := range result.Slots {
				if s.IsLunchBreak {
					continue
				}
				assert.False(t, s.Start.Before(c.OperatingStart), "%s starts before opening", s.ID)
				assert.False(t, s.End.After(c.OperatingEnd), "%s ends after closing", s.ID)
				assert.False(t, c.OverlapsLunch(s.Start, s.End), "%s overlaps lunch", s.ID)
			}

			assert.Empty(t, Validate(result.Slots, c.RestDuration), "allocator output must validate cleanly")
			assert.Equal(t, result.TotalMatches, result.ScheduledCount+len(result.UnscheduledMatchIDs))
		})
	}
}

func TestAllocateIsDeterministic(t *testing.T) {
	c := baseConstraints()
	c.CourtCount = 3
	c.LunchStart, c.LunchEnd = at("12:00"), at("12:45")
	matches := roundRobinMatches(6)

	first := Allocate(1, matches, c)
	second := Allocate(1, matches, c)
	assert.Equal(t, first, second)
}

func TestAllocateDoesNotMutateInput(t *testing.T) {
	matches := []models.Match{
		{ID: 2, RoundLabel: "Final"},
		{ID: 1, RoundLabel: "Group"},
	}
	Allocate(1, matches, baseConstraints())
	assert.Equal(t, 2, matches[0].ID)
}

// roundRobinMatches pairs every participant with every other one.
func roundRobinMatches(participants int) []models.Match {
	var matches []models.Match
	id := 1
	for i := 1; i <= participants; i++ {
		for j := i + 1; j <= participants; j++ {
			matches = append(matches, models.Match{
				ID:             id,
				TournamentID:   1,
				RoundLabel:     "Group A",
				Sequence:       id,
				Participant1ID: intPtr(i),
				Participant2ID: intPtr(j),
			})
			id++
		}
	}
	return matches
}
