package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/avencore/datahaven/internal/models"
	"github.com/avencore/datahaven/pkg/logger"
)

const (
	defaultAuditRetention = 90 * 24 * time.Hour
	defaultUsageResetSpec = "0 0 * * *"
	defaultAuditPruneSpec = "30 0 * * *"
)

// Cleaner coordinates background maintenance tasks: resetting the daily external
// request counters on data sources and pruning stale audit records.
type Cleaner struct {
	db   *gorm.DB
	cron *cron.Cron
	now  func() time.Time
	log  *zap.Logger

	retention      time.Duration
	usageResetSpec string
	auditPruneSpec string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for retention comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithAuditRetention adjusts how long audit records are retained before pruning.
func WithAuditRetention(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.retention = d
		}
	}
}

// WithUsageResetSchedule overrides the cron specification for the daily counter reset.
func WithUsageResetSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.usageResetSpec = spec
		}
	}
}

// WithAuditPruneSchedule overrides the cron specification for audit pruning.
func WithAuditPruneSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditPruneSpec = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults.
func NewCleaner(db *gorm.DB, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:             db,
		now:            time.Now,
		retention:      defaultAuditRetention,
		usageResetSpec: defaultUsageResetSpec,
		auditPruneSpec: defaultAuditPruneSpec,
		log:            logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers maintenance jobs with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.db == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.usageResetSpec, func() {
		ctx := context.Background()
		if _, err := ResetUsageCounters(ctx, c.db); err != nil {
			c.log.Warn("usage counter reset failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	if c.retention > 0 {
		if _, err := c.cron.AddFunc(c.auditPruneSpec, func() {
			ctx := context.Background()
			if _, err := PruneAuditRecords(ctx, c.db, c.now().Add(-c.retention)); err != nil {
				c.log.Warn("audit prune failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all maintenance routines sequentially. Primarily used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.db == nil {
		return nil
	}

	var errs error

	if _, err := ResetUsageCounters(ctx, c.db); err != nil {
		errs = multierr.Append(errs, err)
	}

	if c.retention > 0 {
		if _, err := PruneAuditRecords(ctx, c.db, c.now().Add(-c.retention)); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// ResetUsageCounters zeroes the per-day external request counter on every source.
// Lifetime totals are left untouched.
func ResetUsageCounters(ctx context.Context, db *gorm.DB) (int64, error) {
	if db == nil {
		return 0, errors.New("reset usage counters: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).
		Model(&models.Source{}).
		Where("external_requests > 0").
		Update("external_requests", 0)
	if result.Error != nil {
		return 0, fmt.Errorf("reset usage counters: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// PruneAuditRecords removes audit records created before the cutoff.
func PruneAuditRecords(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("prune audit records: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("prune audit records: %w", result.Error)
	}

	return result.RowsAffected, nil
}
