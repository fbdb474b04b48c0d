package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/court-scheduler/export"
	"github.com/Dosada05/court-scheduler/models"
	"github.com/Dosada05/court-scheduler/repositories"
	"github.com/Dosada05/court-scheduler/scheduling"
	"github.com/Dosada05/court-scheduler/storage"
	"golang.org/x/sync/errgroup"
)

// Events broadcast to tournament subscribers.
const (
	EventScheduleOptimized = "schedule_optimized"
	EventScheduleAdjusted  = "schedule_adjusted"
)

// Broadcaster fans an event out to a tournament's live subscribers.
type Broadcaster interface {
	Broadcast(tournamentID int, event string, payload any) (int, error)
}

// Archiver keeps a copy of each exported schedule.
type Archiver interface {
	Store(ctx context.Context, tournamentID int, generatedAt time.Time, contentType string, data []byte) (*storage.UploadResult, error)
}

type OptimizeResult struct {
	TournamentID        int                   `json:"tournament_id"`
	Slots               []models.ScheduleSlot `json:"slots"`
	UnscheduledMatchIDs []int                 `json:"unscheduled_match_ids"`
	ScheduledCount      int                   `json:"scheduled_count"`
	TotalMatches        int                   `json:"total_matches"`
	UtilizationPercent  float64               `json:"utilization_percent"`
	CourtUtilization    float64               `json:"court_utilization_percent"`
	Conflicts           []scheduling.Conflict `json:"conflicts"`
	Delivered           int                   `json:"delivered"`
	ArchiveURL          string                `json:"archive_url,omitempty"`
	// PublishError is set when the schedule was computed but writing it back,
	// broadcasting or archiving failed. The in-memory schedule is kept.
	PublishError string `json:"publish_error,omitempty"`
}

type AdjustmentOutcome struct {
	scheduling.AdjustmentResult
	Delivered    int    `json:"delivered"`
	PublishError string `json:"publish_error,omitempty"`
}

type ScheduleService interface {
	Optimize(ctx context.Context, tournamentID int, c models.Constraints) (*OptimizeResult, error)
	ApplyAdjustment(ctx context.Context, tournamentID int, ev models.AdjustmentEvent) (*AdjustmentOutcome, error)
	Validate(ctx context.Context, tournamentID int) ([]scheduling.Conflict, error)
	Schedule(ctx context.Context, tournamentID int) (*scheduling.Schedule, error)
	Shutdown(ctx context.Context) error
}

type ScheduleServiceConfig struct {
	// MinPlayerGap is the validator threshold, independent of the rest
	// duration used while allocating.
	MinPlayerGap time.Duration
}

type scheduleService struct {
	cfg         ScheduleServiceConfig
	matchRepo   repositories.MatchRepository
	broadcaster Broadcaster
	archive     Archiver
	logger      *slog.Logger
	now         func() time.Time

	mu     sync.Mutex
	actors map[int]*tournamentActor
	closed bool
	quit   chan struct{}
	wg     sync.WaitGroup
}

// NewScheduleService wires the scheduling engine to its collaborators. archive
// may be nil when object storage is not configured.
func NewScheduleService(
	cfg ScheduleServiceConfig,
	matchRepo repositories.MatchRepository,
	broadcaster Broadcaster,
	archive Archiver,
	logger *slog.Logger,
) ScheduleService {
	return &scheduleService{
		cfg:         cfg,
		matchRepo:   matchRepo,
		broadcaster: broadcaster,
		archive:     archive,
		logger:      logger.With("component", "schedule_service"),
		now:         time.Now,
		actors:      make(map[int]*tournamentActor),
		quit:        make(chan struct{}),
	}
}

func (s *scheduleService) Optimize(ctx context.Context, tournamentID int, c models.Constraints) (*OptimizeResult, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID, models.MatchStatusUnscheduled, models.MatchStatusScheduled)
	if err != nil {
		return nil, fmt.Errorf("failed to load matches for tournament %d: %w", tournamentID, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: tournament %d", ErrNoMatchesToSchedule, tournamentID)
	}

	actor, err := s.actorFor(tournamentID)
	if err != nil {
		return nil, err
	}
	reply := make(chan optimizeReply, 1)
	if err := actor.send(ctx, optimizeCommand{ctx: ctx, matches: matches, constraints: c, minGap: s.cfg.MinPlayerGap, reply: reply}); err != nil {
		return nil, err
	}
	out := <-reply

	result := &OptimizeResult{
		TournamentID:        tournamentID,
		Slots:               out.allocation.Slots,
		UnscheduledMatchIDs: out.allocation.UnscheduledMatchIDs,
		ScheduledCount:      out.allocation.ScheduledCount,
		TotalMatches:        out.allocation.TotalMatches,
		UtilizationPercent:  out.allocation.UtilizationPercent,
		CourtUtilization:    out.allocation.CourtUtilization,
		Conflicts:           out.conflicts,
	}
	s.logger.Info("schedule optimized",
		slog.Int("tournament_id", tournamentID),
		slog.Int("scheduled", result.ScheduledCount),
		slog.Int("unscheduled", len(result.UnscheduledMatchIDs)),
		slog.Float64("utilization_percent", result.UtilizationPercent))

	payload := map[string]any{
		"slots":                 result.Slots,
		"unscheduled_match_ids": result.UnscheduledMatchIDs,
		"utilization_percent":   result.UtilizationPercent,
	}

	var g errgroup.Group
	g.Go(func() error {
		n, err := s.broadcast(tournamentID, EventScheduleOptimized, payload)
		result.Delivered = n
		return err
	})
	if s.archive != nil {
		g.Go(func() error {
			url, err := s.store(ctx, out.schedule)
			result.ArchiveURL = url
			return err
		})
	}
	if err := errors.Join(out.writeErr, g.Wait()); err != nil {
		result.PublishError = err.Error()
		s.logger.Error("schedule computed but not fully published",
			slog.Int("tournament_id", tournamentID), slog.Any("error", err))
	}
	return result, nil
}

func (s *scheduleService) ApplyAdjustment(ctx context.Context, tournamentID int, ev models.AdjustmentEvent) (*AdjustmentOutcome, error) {
	if err := ev.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	actor, err := s.actorFor(tournamentID)
	if err != nil {
		return nil, err
	}
	reply := make(chan adjustReply, 1)
	if err := actor.send(ctx, adjustCommand{ctx: ctx, event: ev, reply: reply}); err != nil {
		return nil, err
	}
	out := <-reply
	if out.err != nil {
		s.logger.Info("adjustment rejected",
			slog.Int("tournament_id", tournamentID),
			slog.String("type", string(ev.Type)),
			slog.Int("match_id", ev.MatchID),
			slog.Any("error", out.err))
		return nil, mapEngineError(out.err)
	}

	outcome := &AdjustmentOutcome{AdjustmentResult: out.result}
	s.logger.Info("adjustment applied",
		slog.Int("tournament_id", tournamentID),
		slog.String("type", string(ev.Type)),
		slog.Int("match_id", ev.MatchID),
		slog.Any("cascade", out.result.CascadeMatchIDs))

	n, err := s.broadcast(tournamentID, EventScheduleAdjusted, out.result)
	outcome.Delivered = n
	if err := errors.Join(out.writeErr, err); err != nil {
		outcome.PublishError = err.Error()
		s.logger.Error("adjustment applied but not fully published",
			slog.Int("tournament_id", tournamentID), slog.Any("error", err))
	}
	return outcome, nil
}

func (s *scheduleService) Validate(ctx context.Context, tournamentID int) ([]scheduling.Conflict, error) {
	sched, err := s.Schedule(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return scheduling.Validate(sched.Slots, s.cfg.MinPlayerGap), nil
}

// Schedule returns the current schedule. When the tournament has not been
// optimized in this process it is rebuilt from the match store, without
// constraints, so it can be read and validated but not adjusted.
func (s *scheduleService) Schedule(ctx context.Context, tournamentID int) (*scheduling.Schedule, error) {
	actor, err := s.actorFor(tournamentID)
	if err != nil {
		return nil, err
	}
	reply := make(chan snapshotReply, 1)
	if err := actor.send(ctx, snapshotCommand{reply: reply}); err != nil {
		return nil, err
	}
	if out := <-reply; out.ok {
		return &out.schedule, nil
	}

	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID, models.MatchStatusScheduled, models.MatchStatusOngoing, models.MatchStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to load scheduled matches for tournament %d: %w", tournamentID, err)
	}
	slots := slotsFromMatches(tournamentID, matches)
	if len(slots) == 0 {
		return nil, fmt.Errorf("%w: tournament %d", ErrTournamentNotScheduled, tournamentID)
	}
	return &scheduling.Schedule{TournamentID: tournamentID, Slots: slots}, nil
}

// Shutdown stops every tournament actor and waits for them to exit.
func (s *scheduleService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.quit)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("schedule service shutdown: %w", ctx.Err())
	}
}

func (s *scheduleService) actorFor(tournamentID int) (*tournamentActor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrServiceClosed
	}
	a, ok := s.actors[tournamentID]
	if !ok {
		a = newTournamentActor(tournamentID, s.quit, s.persist)
		s.actors[tournamentID] = a
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			a.run()
		}()
	}
	return a, nil
}

// persist runs on the tournament actor.
func (s *scheduleService) persist(ctx context.Context, tournamentID int, updates []models.MatchScheduleUpdate) error {
	if err := s.matchRepo.UpdateSchedule(ctx, tournamentID, updates); err != nil {
		return fmt.Errorf("write back schedule: %w", err)
	}
	return nil
}

func (s *scheduleService) broadcast(tournamentID int, event string, payload any) (int, error) {
	if s.broadcaster == nil {
		return 0, nil
	}
	n, err := s.broadcaster.Broadcast(tournamentID, event, payload)
	if err != nil {
		return n, fmt.Errorf("broadcast %s: %w", event, err)
	}
	return n, nil
}

func (s *scheduleService) store(ctx context.Context, sched scheduling.Schedule) (string, error) {
	data, err := export.Bytes(sched)
	if err != nil {
		return "", fmt.Errorf("export schedule: %w", err)
	}
	res, err := s.archive.Store(ctx, sched.TournamentID, s.now(), export.ContentType, data)
	if err != nil {
		return "", err
	}
	return res.Location, nil
}

func mapEngineError(err error) error {
	switch {
	case errors.Is(err, scheduling.ErrMatchNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, scheduling.ErrInfeasible):
		return fmt.Errorf("%w: %w", ErrInfeasible, err)
	case errors.Is(err, models.ErrInvalidAdjustment):
		return fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	return err
}

// slotsFromMatches rebuilds slots from stored court and time assignments.
// Rows without a court, start or end are skipped.
func slotsFromMatches(tournamentID int, matches []models.Match) []models.ScheduleSlot {
	slots := make([]models.ScheduleSlot, 0, len(matches))
	for _, m := range matches {
		if m.CourtNumber == nil || m.ScheduledAt == nil || m.ScheduledEnd == nil {
			continue
		}
		id := m.ID
		slots = append(slots, models.ScheduleSlot{
			ID:             models.MatchSlotID(tournamentID, m.ID),
			TournamentID:   tournamentID,
			CourtNumber:    *m.CourtNumber,
			CourtName:      fmt.Sprintf("Court %d", *m.CourtNumber),
			Start:          *m.ScheduledAt,
			End:            *m.ScheduledEnd,
			MatchID:        &id,
			RoundLabel:     m.RoundLabel,
			Participant1ID: m.Participant1ID,
			Participant2ID: m.Participant2ID,
		})
	}
	scheduling.SortSlots(slots)
	return slots
}
