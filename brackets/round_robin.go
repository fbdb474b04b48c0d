package brackets

import (
	"context"
	"fmt"

	"github.com/Dosada05/court-scheduler/models"
)

const groupLabel = "Group"

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() BracketGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// GenerateBracket pairs every participant with every other one, Legs times.
// Pairings are laid out in rounds with the circle method so nobody plays twice
// in one round; the second leg swaps sides.
func (g *RoundRobinGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]models.Match, error) {
	if err := checkParticipants(params.Participants); err != nil {
		return nil, fmt.Errorf("RoundRobinGenerator: %w", err)
	}

	legs := params.Legs
	if legs != 2 {
		legs = 1
	}

	ring := make([]*int, len(params.Participants))
	for i, id := range params.Participants {
		ring[i] = intPtr(id)
	}
	if len(ring)%2 == 1 {
		ring = append(ring, nil) // bye
	}

	rounds := len(ring) - 1
	half := len(ring) / 2
	b := newMatchBuilder(params)

	for leg := 1; leg <= legs; leg++ {
		order := append([]*int(nil), ring...)
		for r := 0; r < rounds; r++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for i := 0; i < half; i++ {
				home, away := order[i], order[len(order)-1-i]
				if home == nil || away == nil {
					continue
				}
				if leg == 2 {
					home, away = away, home
				}
				b.add(groupLabel, home, away)
			}
			// Rotate everyone but the first entry one position clockwise.
			last := order[len(order)-1]
			copy(order[2:], order[1:len(order)-1])
			order[1] = last
		}
	}

	return b.matches, nil
}
