package main

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/asdwsxzc123/jiale-mrp/pkg/logger"
	"github.com/asdwsxzc123/jiale-mrp/pkg/metrics"
)

const (
	defaultRetentionDays     = 30
	defaultRetentionInterval = time.Hour
)

type retentionRepository interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type RetentionParams struct {
	Logger   *logger.Logger
	DB       dbClient
	Repo     retentionRepository
	Metrics  *metrics.Relay
	Days     int
	Interval time.Duration
}

// RetentionSweeper prunes published outbox rows between publish batches.
// Unpublished and dead-lettered rows are never touched.
type RetentionSweeper struct {
	logg      *logger.Logger
	db        dbClient
	repo      retentionRepository
	metrics   *metrics.Relay
	retention time.Duration
	interval  time.Duration
	lastRun   time.Time
}

func NewRetentionSweeper(params RetentionParams) (*RetentionSweeper, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repo == nil {
		return nil, errors.New("outbox repository is required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultRetentionInterval
	}
	return &RetentionSweeper{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repo,
		metrics:   params.Metrics,
		retention: time.Duration(positiveOr(params.Days, defaultRetentionDays)) * 24 * time.Hour,
		interval:  interval,
	}, nil
}

// MaybeSweep runs at most once per interval. Failures are logged and retried
// on the next interval.
func (r *RetentionSweeper) MaybeSweep(ctx context.Context, now time.Time) {
	if !r.lastRun.IsZero() && now.Sub(r.lastRun) < r.interval {
		return
	}
	r.lastRun = now

	cutoff := now.UTC().Add(-r.retention)
	var deleted int64
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := r.repo.DeletePublishedBefore(ctx, tx, cutoff)
		deleted = n
		return err
	})
	if err != nil {
		r.logg.Error(ctx, "outbox retention sweep failed", err)
		return
	}
	r.metrics.Pruned(deleted)
	if deleted > 0 {
		r.logg.Info(r.logg.WithFields(ctx, map[string]any{
			"deleted": deleted,
			"cutoff":  cutoff.Format(time.RFC3339),
		}), "outbox retention sweep completed")
	}
}
