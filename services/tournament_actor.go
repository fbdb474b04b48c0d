package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Dosada05/court-scheduler/models"
	"github.com/Dosada05/court-scheduler/scheduling"
)

type (
	optimizeCommand struct {
		ctx         context.Context
		matches     []models.Match
		constraints models.Constraints
		minGap      time.Duration
		reply       chan optimizeReply
	}
	optimizeReply struct {
		allocation scheduling.Allocation
		schedule   scheduling.Schedule
		conflicts  []scheduling.Conflict
		// writeErr is set when the store rejected the new schedule.
		writeErr error
	}
	adjustCommand struct {
		ctx   context.Context
		event models.AdjustmentEvent
		reply chan adjustReply
	}
	adjustReply struct {
		result   scheduling.AdjustmentResult
		err      error
		writeErr error
	}
	snapshotCommand struct {
		reply chan snapshotReply
	}
	snapshotReply struct {
		schedule scheduling.Schedule
		ok       bool
	}
)

// writeBackFunc stores match schedule updates for one tournament.
type writeBackFunc func(ctx context.Context, tournamentID int, updates []models.MatchScheduleUpdate) error

// tournamentActor owns one tournament's current schedule. Commands are handled
// one at a time and each write-back finishes before the next command starts,
// so the store commits schedules in the order they were computed.
type tournamentActor struct {
	id        int
	commands  chan any
	quit      <-chan struct{}
	writeBack writeBackFunc
	current   *scheduling.Schedule
}

func newTournamentActor(id int, quit <-chan struct{}, writeBack writeBackFunc) *tournamentActor {
	return &tournamentActor{
		id:        id,
		commands:  make(chan any),
		quit:      quit,
		writeBack: writeBack,
	}
}

func (a *tournamentActor) send(ctx context.Context, cmd any) error {
	select {
	case a.commands <- cmd:
		return nil
	case <-a.quit:
		return ErrServiceClosed
	case <-ctx.Done():
		return fmt.Errorf("tournament %d: %w", a.id, ctx.Err())
	}
}

func (a *tournamentActor) run() {
	for {
		select {
		case <-a.quit:
			return
		case cmd := <-a.commands:
			a.handle(cmd)
		}
	}
}

func (a *tournamentActor) handle(cmd any) {
	switch c := cmd.(type) {
	case optimizeCommand:
		alloc := scheduling.Allocate(a.id, c.matches, c.constraints)
		sched := scheduling.Schedule{TournamentID: a.id, Constraints: c.constraints, Slots: alloc.Slots}
		kept := sched.Clone()
		a.current = &kept
		c.reply <- optimizeReply{
			allocation: alloc,
			schedule:   sched,
			conflicts:  scheduling.Validate(alloc.Slots, c.minGap),
			writeErr:   a.writeBack(c.ctx, a.id, models.ScheduleUpdates(alloc.Slots, alloc.UnscheduledMatchIDs)),
		}
	case adjustCommand:
		if a.current == nil {
			c.reply <- adjustReply{err: fmt.Errorf("%w: tournament %d", ErrTournamentNotScheduled, a.id)}
			return
		}
		result, err := scheduling.Apply(*a.current, c.event)
		if err != nil {
			c.reply <- adjustReply{err: err}
			return
		}
		a.current = &scheduling.Schedule{TournamentID: a.id, Constraints: a.current.Constraints, Slots: result.Slots}
		result.Slots = a.current.Clone().Slots
		c.reply <- adjustReply{
			result:   result,
			writeErr: a.writeBack(c.ctx, a.id, models.ScheduleUpdates(movedSlots(result, c.event.MatchID), nil)),
		}
	case snapshotCommand:
		if a.current == nil {
			c.reply <- snapshotReply{}
			return
		}
		c.reply <- snapshotReply{schedule: a.current.Clone(), ok: true}
	}
}

// movedSlots returns the slots of the adjusted match and its cascade.
func movedSlots(result scheduling.AdjustmentResult, matchID int) []models.ScheduleSlot {
	changed := make(map[int]bool, len(result.CascadeMatchIDs)+1)
	changed[matchID] = true
	for _, id := range result.CascadeMatchIDs {
		changed[id] = true
	}
	var moved []models.ScheduleSlot
	for _, slot := range result.Slots {
		if slot.MatchID != nil && changed[*slot.MatchID] {
			moved = append(moved, slot)
		}
	}
	return moved
}
