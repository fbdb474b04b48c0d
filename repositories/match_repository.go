package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/court-scheduler/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchCourtConflict = errors.New("match court assignment conflicts with an existing row")
)

type MatchRepository interface {
	ListByTournament(ctx context.Context, tournamentID int, statuses ...models.MatchStatus) ([]models.Match, error)
	UpdateSchedule(ctx context.Context, tournamentID int, updates []models.MatchScheduleUpdate) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, tournament_id, round_label, sequence, participant1_id, participant2_id,
		       status, court_number, scheduled_time, scheduled_end_time, actual_start_time, actual_end_time`

// listMatchesQuery builds the tournament match query; statuses become an
// ANY($2) filter when present.
func listMatchesQuery(tournamentID int, statuses []models.MatchStatus) (string, []interface{}) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(matchColumns)
	b.WriteString("\n\t\tFROM matches\n\t\tWHERE tournament_id = $1")

	args := []interface{}{tournamentID}
	if len(statuses) > 0 {
		names := make([]string, len(statuses))
		for i, s := range statuses {
			names[i] = string(s)
		}
		b.WriteString(" AND status = ANY($2)")
		args = append(args, pq.Array(names))
	}
	b.WriteString(" ORDER BY sequence ASC, id ASC")
	return b.String(), args
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, statuses ...models.MatchStatus) ([]models.Match, error) {
	query, args := listMatchesQuery(tournamentID, statuses)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]models.Match, 0)
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(
			&m.ID,
			&m.TournamentID,
			&m.RoundLabel,
			&m.Sequence,
			&m.Participant1ID,
			&m.Participant2ID,
			&m.Status,
			&m.CourtNumber,
			&m.ScheduledAt,
			&m.ScheduledEnd,
			&m.ActualStart,
			&m.ActualEnd,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match for tournament %d: %w", tournamentID, err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches for tournament %d: %w", tournamentID, err)
	}
	return matches, nil
}

// UpdateSchedule writes court, times and status for every update in one
// transaction. A row missing from the tournament rolls the batch back.
func (r *postgresMatchRepository) UpdateSchedule(ctx context.Context, tournamentID int, updates []models.MatchScheduleUpdate) (err error) {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schedule transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE matches
		SET court_number = $1, scheduled_time = $2, scheduled_end_time = $3, status = $4
		WHERE id = $5 AND tournament_id = $6`)
	if err != nil {
		return fmt.Errorf("failed to prepare schedule update: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		result, execErr := stmt.ExecContext(ctx, u.CourtNumber, u.ScheduledAt, u.ScheduledEnd, u.Status, u.MatchID, tournamentID)
		if execErr != nil {
			return handleMatchError(execErr, u.MatchID)
		}
		if err = checkAffectedRows(result, fmt.Errorf("%w: id %d in tournament %d", ErrMatchNotFound, u.MatchID, tournamentID)); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schedule for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func handleMatchError(err error, matchID int) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: match %d (%s)", ErrMatchCourtConflict, matchID, pqErr.Constraint)
		case "23514": // check_violation
			return fmt.Errorf("match %d violates %s: %w", matchID, pqErr.Constraint, err)
		}
	}
	return fmt.Errorf("failed to update schedule for match %d: %w", matchID, err)
}
