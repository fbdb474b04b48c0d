package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"
)

// ScheduleArchive stores exported schedule workbooks under a key prefix. Only
// the latest workbook of each tournament is kept; storing a new one prunes
// the previous object.
type ScheduleArchive struct {
	uploader FileUploader
	prefix   string
	logger   *slog.Logger

	mu     sync.Mutex
	latest map[int]string
}

func NewScheduleArchive(uploader FileUploader, prefix string, logger *slog.Logger) *ScheduleArchive {
	if prefix == "" {
		prefix = "schedules"
	}
	return &ScheduleArchive{
		uploader: uploader,
		prefix:   prefix,
		logger:   logger.With("component", "schedule_archive"),
		latest:   make(map[int]string),
	}
}

// Key returns the object key for a tournament's workbook generated at t.
func (a *ScheduleArchive) Key(tournamentID int, t time.Time) string {
	return path.Join(a.prefix, fmt.Sprintf("tournament-%d", tournamentID), t.UTC().Format("20060102T150405Z")+".xlsx")
}

func (a *ScheduleArchive) Store(ctx context.Context, tournamentID int, generatedAt time.Time, contentType string, data []byte) (*UploadResult, error) {
	key := a.Key(tournamentID, generatedAt)
	res, err := a.uploader.Upload(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("archive schedule for tournament %d: %w", tournamentID, err)
	}

	a.mu.Lock()
	previous := a.latest[tournamentID]
	a.latest[tournamentID] = res.Key
	a.mu.Unlock()

	if previous != "" && previous != res.Key {
		// A failed prune leaves an orphaned object, not a broken archive.
		if err := a.uploader.Delete(ctx, previous); err != nil {
			a.logger.Warn("prune previous schedule",
				slog.Int("tournament_id", tournamentID),
				slog.String("key", previous),
				slog.Any("error", err))
		}
	}
	return res, nil
}
