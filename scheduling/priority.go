package scheduling

import "strings"

// Priority orders rounds; lower values are scheduled earlier.
type Priority int

const (
	PriorityGroup Priority = iota
	PriorityRoundOf16
	PriorityQuarterfinal
	PrioritySemifinal
	PriorityThirdPlace
	PriorityFinal
)

// Checked top to bottom: "semifinal" and "quarterfinal" both contain "final".
var roundPriorities = []struct {
	keywords []string
	priority Priority
}{
	{[]string{"group", "pool", "round robin", "round-robin", "league"}, PriorityGroup},
	{[]string{"quarter"}, PriorityQuarterfinal},
	{[]string{"semi"}, PrioritySemifinal},
	{[]string{"third", "3rd", "bronze"}, PriorityThirdPlace},
	{[]string{"round of 16", "last 16", "eighth", "1/8"}, PriorityRoundOf16},
	{[]string{"final"}, PriorityFinal},
}

// ClassifyRound maps a free-text round label to its priority tier.
// Unknown labels are treated as group stage.
func ClassifyRound(label string) Priority {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" {
		return PriorityGroup
	}
	for _, rp := range roundPriorities {
		for _, kw := range rp.keywords {
			if strings.Contains(l, kw) {
				return rp.priority
			}
		}
	}
	return PriorityGroup
}

func (p Priority) String() string {
	switch p {
	case PriorityGroup:
		return "group"
	case PriorityRoundOf16:
		return "round_of_16"
	case PriorityQuarterfinal:
		return "quarterfinal"
	case PrioritySemifinal:
		return "semifinal"
	case PriorityThirdPlace:
		return "third_place"
	case PriorityFinal:
		return "final"
	default:
		return "unknown"
	}
}
