package brackets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/court-scheduler/models"
)

const (
	FormatRoundRobin        = "round_robin"
	FormatSingleElimination = "single_elimination"
)

var (
	ErrNotEnoughParticipants = errors.New("not enough participants (minimum 2)")
	ErrDuplicateParticipant  = errors.New("duplicate participant")
	ErrUnknownFormat         = errors.New("unknown bracket format")
)

type GenerateBracketParams struct {
	TournamentID int
	// Participants are seeded in order; the first entry is the top seed.
	Participants []int
	// Legs is how many times each pair meets in a round robin (1 or 2).
	Legs int
	// FirstMatchID numbers the generated matches; zero starts at 1.
	FirstMatchID int
}

// BracketGenerator produces the unscheduled matches of one tournament format.
type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]models.Match, error)

	GetName() string
}

// ForFormat returns the generator registered for a format name.
func ForFormat(format string) (BracketGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatRoundRobin, "roundrobin":
		return NewRoundRobinGenerator(), nil
	case FormatSingleElimination, "singleelimination":
		return NewSingleEliminationGenerator(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func checkParticipants(ids []int) error {
	if len(ids) < 2 {
		return fmt.Errorf("%w: found %d", ErrNotEnoughParticipants, len(ids))
	}
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: %d", ErrDuplicateParticipant, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

type matchBuilder struct {
	tournamentID int
	nextID       int
	sequence     int
	matches      []models.Match
}

func newMatchBuilder(params GenerateBracketParams) *matchBuilder {
	first := params.FirstMatchID
	if first <= 0 {
		first = 1
	}
	return &matchBuilder{tournamentID: params.TournamentID, nextID: first}
}

func (b *matchBuilder) add(label string, p1, p2 *int) int {
	id := b.nextID
	b.nextID++
	b.sequence++
	b.matches = append(b.matches, models.Match{
		ID:             id,
		TournamentID:   b.tournamentID,
		RoundLabel:     label,
		Sequence:       b.sequence,
		Participant1ID: p1,
		Participant2ID: p2,
		Status:         models.MatchStatusUnscheduled,
	})
	return id
}

func intPtr(v int) *int {
	return &v
}
