// Package worker holds the background loops of the dashboard. The only
// one today is the stats worker, which keeps the fleet-stats snapshot
// warm in redis so dashboard loads never pay for a full aggregation.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"prospector/engine"
	"prospector/models"
	"prospector/store"
)

// StatsCacheKey is where the snapshot lives in redis.
const StatsCacheKey = "prospector:dashboard:stats"

// StatsSnapshot is the cached dashboard payload.
type StatsSnapshot struct {
	Stats      *engine.FleetStats `json:"stats"`
	Chart      engine.ChartData   `json:"chart"`
	ComputedAt time.Time          `json:"computed_at"`
}

// StatsWorker recomputes the fleet stats on an interval and caches the
// result. When redis is not configured the worker is simply not started.
type StatsWorker struct {
	Drafts     store.DraftStore
	Aggregator *engine.Aggregator
	Redis      *redis.Client
	Interval   time.Duration
	ChartDays  int
	Logger     *logrus.Logger
}

func NewStatsWorker(drafts store.DraftStore, agg *engine.Aggregator, rdb *redis.Client, interval time.Duration, logger *logrus.Logger) *StatsWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &StatsWorker{
		Drafts:     drafts,
		Aggregator: agg,
		Redis:      rdb,
		Interval:   interval,
		ChartDays:  14,
		Logger:     logger,
	}
}

func (sw *StatsWorker) Start(ctx context.Context) {
	sw.Logger.WithField("interval", sw.Interval.String()).Info("stats worker started")

	sw.refresh(ctx)

	ticker := time.NewTicker(sw.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sw.Logger.Info("stats worker shutting down")
			return
		case <-ticker.C:
			sw.refresh(ctx)
		}
	}
}

func (sw *StatsWorker) refresh(ctx context.Context) {
	sent, err := sw.Drafts.ListByStatus(ctx, models.DraftStatusSent, "sent_at", 0)
	if err != nil {
		sw.Logger.WithError(err).Error("stats refresh: listing sent drafts failed")
		return
	}
	enriched, stats, err := sw.Aggregator.AggregateHistory(ctx, sent)
	if err != nil {
		sw.Logger.WithError(err).Error("stats refresh: aggregation failed")
		return
	}

	snapshot := StatsSnapshot{
		Stats:      stats,
		Chart:      sw.Aggregator.ActivitySeries(enriched, sw.ChartDays),
		ComputedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		sw.Logger.WithError(err).Error("stats refresh: encoding snapshot failed")
		return
	}

	// Expire at twice the interval so a stalled worker cannot pin stale
	// numbers on the dashboard forever.
	if err := sw.Redis.Set(ctx, StatsCacheKey, raw, 2*sw.Interval).Err(); err != nil {
		sw.Logger.WithError(err).Error("stats refresh: cache write failed")
		return
	}
	sw.Logger.WithField("total_sent", stats.TotalSent).Debug("stats snapshot refreshed")
}
