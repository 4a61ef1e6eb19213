package controller

import (
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"prospector/engine"
	"prospector/models"
	"prospector/store"
	"prospector/worker"
)

// DashboardController serves the engagement overview: fleet stats, the
// 14-day activity chart and the queue counts. Stats come from the redis
// cache kept warm by the stats worker when one is configured, with a
// live computation as fallback.
type DashboardController struct {
	Drafts     store.DraftStore
	Aggregator *engine.Aggregator
	Redis      *redis.Client
	Logger     *logrus.Logger
}

func NewDashboardController(drafts store.DraftStore, agg *engine.Aggregator, rdb *redis.Client, logger *logrus.Logger) *DashboardController {
	return &DashboardController{Drafts: drafts, Aggregator: agg, Redis: rdb, Logger: logger}
}

const chartDays = 14

// GetDashboard returns the dashboard payload.
func (dc *DashboardController) GetDashboard(c *fiber.Ctx) error {
	pending, err := dc.Drafts.CountByStatus(c.Context(), models.DraftStatusPending)
	if err != nil {
		return fail(c, err)
	}
	sentCount, err := dc.Drafts.CountByStatus(c.Context(), models.DraftStatusSent)
	if err != nil {
		return fail(c, err)
	}
	rejectedCount, err := dc.Drafts.CountByStatus(c.Context(), models.DraftStatusRejected)
	if err != nil {
		return fail(c, err)
	}

	counts := fiber.Map{
		"pending":  pending,
		"sent":     sentCount,
		"rejected": rejectedCount,
	}

	if cached := dc.cachedSnapshot(c); cached != nil {
		return c.JSON(fiber.Map{
			"stats":  cached.Stats,
			"chart":  cached.Chart,
			"counts": counts,
			"cached": true,
		})
	}

	sent, err := dc.Drafts.ListByStatus(c.Context(), models.DraftStatusSent, "sent_at", 0)
	if err != nil {
		return fail(c, err)
	}
	enriched, stats, err := dc.Aggregator.AggregateHistory(c.Context(), sent)
	if err != nil {
		return fail(c, err)
	}
	chart := dc.Aggregator.ActivitySeries(enriched, chartDays)

	return c.JSON(fiber.Map{
		"stats":  stats,
		"chart":  chart,
		"counts": counts,
		"cached": false,
	})
}

// GetStats returns the bare queue counters without the aggregated
// engagement payload. The header polls this between websocket pushes.
func (dc *DashboardController) GetStats(c *fiber.Ctx) error {
	pending, err := dc.Drafts.CountByStatus(c.Context(), models.DraftStatusPending)
	if err != nil {
		return fail(c, err)
	}
	sent, err := dc.Drafts.CountByStatus(c.Context(), models.DraftStatusSent)
	if err != nil {
		return fail(c, err)
	}
	rejected, err := dc.Drafts.CountByStatus(c.Context(), models.DraftStatusRejected)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"pending":  pending,
		"sent":     sent,
		"rejected": rejected,
		"total":    pending + sent + rejected,
	})
}

// GetKanban returns the board view over the most recent drafts.
func (dc *DashboardController) GetKanban(c *fiber.Ctx) error {
	recent, err := dc.Drafts.ListRecent(c.Context(), engine.KanbanLimit)
	if err != nil {
		return fail(c, err)
	}
	board := engine.BuildKanban(recent)

	return c.JSON(fiber.Map{
		"columns": board,
		"counts": fiber.Map{
			"pending": len(board.Pending),
			"sent":    len(board.Sent),
			"replied": len(board.Replied),
			"bounced": len(board.Bounced),
		},
	})
}

func (dc *DashboardController) cachedSnapshot(c *fiber.Ctx) *worker.StatsSnapshot {
	if dc.Redis == nil {
		return nil
	}
	raw, err := dc.Redis.Get(c.Context(), worker.StatsCacheKey).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		dc.Logger.WithError(err).Warn("stats cache read failed, computing live")
		return nil
	}
	var snapshot worker.StatsSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		dc.Logger.WithError(err).Warn("stats cache entry unreadable, computing live")
		return nil
	}
	return &snapshot
}
