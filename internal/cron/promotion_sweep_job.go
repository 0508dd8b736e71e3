package cron

import (
	"context"
	"fmt"

	"github.com/agoralabs/bazaar-backend/internal/promotions"
	"github.com/agoralabs/bazaar-backend/pkg/logger"
)

// PromotionSweepJob expires past-due promotions and backfills freed active
// slots from each store's queue.
type PromotionSweepJob struct {
	promos promotions.Service
	logg   *logger.Logger
}

// NewPromotionSweepJob builds the sweep job.
func NewPromotionSweepJob(promos promotions.Service, logg *logger.Logger) (*PromotionSweepJob, error) {
	if promos == nil {
		return nil, fmt.Errorf("promotion service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &PromotionSweepJob{promos: promos, logg: logg}, nil
}

// Name identifies the job in logs and metrics.
func (j *PromotionSweepJob) Name() string { return "promotion-sweep" }

// Run performs one sweep.
func (j *PromotionSweepJob) Run(ctx context.Context) error {
	report, err := j.promos.ExpireStale(ctx)
	if err != nil {
		return fmt.Errorf("expire stale promotions: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"expired":   report.Expired,
		"activated": report.Activated,
		"failed":    report.Failed,
	})
	j.logg.Info(logCtx, "promotion sweep complete")
	if report.Failed > 0 {
		return fmt.Errorf("%d promotions failed to expire", report.Failed)
	}
	return nil
}
