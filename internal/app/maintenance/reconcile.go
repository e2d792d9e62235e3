package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ArtificalManny/sharesync/internal/services"
	"github.com/ArtificalManny/sharesync/pkg/logger"
)

const defaultReconcileSpec = "@hourly"

// Reconciler periodically verifies the denormalised point totals against the
// append-only ledger and rebuilds them when they drift. The ledger is the
// source of truth; totals are a disposable read model.
type Reconciler struct {
	points *services.PointsService
	cron   *cron.Cron
	now    func() time.Time
	log    *zap.Logger

	schedule string
}

// Option customises the Reconciler.
type Option func(*Reconciler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(r *Reconciler) {
		if c != nil {
			r.cron = c
		}
	}
}

// WithNow overrides the clock used for scheduling.
func WithNow(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// WithSchedule overrides the cron specification for the reconcile job.
func WithSchedule(spec string) Option {
	return func(r *Reconciler) {
		if spec != "" {
			r.schedule = spec
		}
	}
}

// NewReconciler constructs a Reconciler with sensible defaults.
func NewReconciler(points *services.PointsService, opts ...Option) *Reconciler {
	reconciler := &Reconciler{
		points:   points,
		now:      time.Now,
		schedule: defaultReconcileSpec,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(reconciler)
	}

	if reconciler.cron == nil {
		reconciler.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return reconciler
}

// Start registers the reconcile job with the cron scheduler and launches it.
func (r *Reconciler) Start() error {
	if r.points == nil {
		return nil
	}

	if _, err := r.cron.AddFunc(r.schedule, func() {
		if err := r.RunOnce(context.Background()); err != nil {
			r.log.Warn("points reconcile failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	r.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (r *Reconciler) Stop() context.Context {
	if r.cron == nil {
		return context.Background()
	}
	return r.cron.Stop()
}

// RunOnce checks totals against the ledger and rebuilds on any mismatch.
// Primarily used in tests and during graceful shutdown.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if r.points == nil {
		return nil
	}

	var errs error

	stats, err := r.points.Reconcile(ctx)
	if err != nil {
		return multierr.Append(errs, err)
	}

	if stats.Mismatches > 0 {
		r.log.Warn("point totals drifted from ledger",
			zap.Int64("users", stats.Users),
			zap.Int64("mismatches", stats.Mismatches))
		if err := r.points.Rebuild(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}
