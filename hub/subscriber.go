package hub

import (
	"sort"
	"time"
)

// State is a subscriber's position in its lifecycle. Connections that have not
// passed admission yet are never stored by the hub.
type State string

const (
	StateAdmitted     State = "admitted"
	StateActive       State = "active"
	StateEvicted      State = "evicted"
	StateDisconnected State = "disconnected"
)

type subscriber struct {
	connID       string
	userID       int
	state        State
	send         chan []byte
	rooms        map[int]struct{}
	joinedAt     time.Time
	lastActivity time.Time
	latency      time.Duration
	// recent holds inbound message times inside the current rate window.
	recent []time.Time
}

func newSubscriber(connID string, userID int, buffer int, now time.Time) *subscriber {
	return &subscriber{
		connID:       connID,
		userID:       userID,
		state:        StateAdmitted,
		send:         make(chan []byte, buffer),
		rooms:        make(map[int]struct{}),
		joinedAt:     now,
		lastActivity: now,
	}
}

// recordMessage adds one inbound message and returns how many messages fall in
// the sliding window ending at now.
func (s *subscriber) recordMessage(now time.Time, window time.Duration) int {
	s.lastActivity = now
	cutoff := now.Add(-window)
	kept := s.recent[:0]
	for _, t := range s.recent {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	s.recent = append(kept, now)
	return len(s.recent)
}

func (s *subscriber) idleSince(now time.Time) time.Duration {
	return now.Sub(s.lastActivity)
}

func (s *subscriber) info() SubscriberInfo {
	rooms := make([]int, 0, len(s.rooms))
	for id := range s.rooms {
		rooms = append(rooms, id)
	}
	sort.Ints(rooms)
	return SubscriberInfo{
		ConnectionID:  s.connID,
		UserID:        s.userID,
		State:         s.state,
		TournamentIDs: rooms,
		JoinedAt:      s.joinedAt,
		LastActivity:  s.lastActivity,
		Latency:       s.latency,
	}
}

// SubscriberInfo is a read-only snapshot of one subscriber.
type SubscriberInfo struct {
	ConnectionID  string        `json:"connection_id"`
	UserID        int           `json:"user_id"`
	State         State         `json:"state"`
	TournamentIDs []int         `json:"tournament_ids"`
	JoinedAt      time.Time     `json:"joined_at"`
	LastActivity  time.Time     `json:"last_activity"`
	Latency       time.Duration `json:"latency"`
}
