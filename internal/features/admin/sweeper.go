package admin

import (
	"context"
	"time"

	"edushare/internal/config"
	"edushare/internal/features/resource"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// RegisterSweeper schedules the nightly orphaned-blob sweep. Orphans are
// blobs written by uploads that crashed before the record insert.
func RegisterSweeper(lc fx.Lifecycle, resources resource.ResourceService, cfg *config.Config, logger *zap.Logger) {
	if !cfg.OrphanSweep {
		logger.Info("orphan sweep disabled")
		return
	}

	scheduler := cron.New()

	_, err := scheduler.AddFunc("30 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if _, err := resources.SweepOrphans(ctx); err != nil {
			logger.Error("orphan sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Error("failed to schedule orphan sweep", zap.Error(err))
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			scheduler.Stop()
			return nil
		},
	})
}
