package brackets

import (
	"context"
	"fmt"
	"math/bits"

	"github.com/Dosada05/court-scheduler/models"
)

// node is one side of a bracket pairing: a known participant, the winner of an
// earlier match, or an empty bye position.
type node struct {
	participantID *int
	sourceMatchID int
	isBye         bool
}

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// GenerateBracket builds a knockout bracket padded to the next power of two.
// Top seeds receive the byes and advance straight to round two; a bye is never
// emitted as a match. Later rounds have undecided participants.
func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]models.Match, error) {
	if err := checkParticipants(params.Participants); err != nil {
		return nil, fmt.Errorf("SingleEliminationGenerator: %w", err)
	}

	n := len(params.Participants)
	numRounds := bits.Len(uint(n - 1))
	size := 1 << numRounds

	current := make([]node, size)
	for i, pos := range seedPositions(size) {
		if pos < n {
			current[i] = node{participantID: intPtr(params.Participants[pos])}
		} else {
			current[i] = node{isBye: true}
		}
	}

	b := newMatchBuilder(params)
	for r := 1; r <= numRounds; r++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		label := RoundLabel(numRounds - r + 1)
		next := make([]node, 0, len(current)/2)

		for i := 0; i < len(current); i += 2 {
			a, c := current[i], current[i+1]
			switch {
			case a.isBye && c.isBye:
				next = append(next, node{isBye: true})
			case c.isBye:
				next = append(next, a)
			case a.isBye:
				next = append(next, c)
			default:
				id := b.add(label, a.participantID, c.participantID)
				next = append(next, node{sourceMatchID: id})
			}
		}
		current = next
	}

	if len(current) != 1 {
		return nil, fmt.Errorf("SingleEliminationGenerator: bracket did not converge, %d nodes left", len(current))
	}
	return b.matches, nil
}

// RoundLabel names a knockout round by how many rounds remain including it.
func RoundLabel(remaining int) string {
	switch remaining {
	case 1:
		return "Final"
	case 2:
		return "Semifinal"
	case 3:
		return "Quarterfinal"
	}
	return fmt.Sprintf("Round of %d", 1<<remaining)
}

// seedPositions returns, for each bracket slot, the zero-based seed placed there,
// so that seed 1 and seed 2 can only meet in the final.
func seedPositions(size int) []int {
	order := []int{0}
	for len(order) < size {
		total := len(order) * 2
		expanded := make([]int, 0, total)
		for _, s := range order {
			expanded = append(expanded, s, total-1-s)
		}
		order = expanded
	}
	return order
}
