package controller

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"prospector/models"
	"prospector/store"
)

// StatsWS streams the live queue counts to the dashboard header. The
// client gets one snapshot on connect and a fresh one every interval
// until it hangs up.
type StatsWS struct {
	Drafts   store.DraftStore
	Interval time.Duration
	Logger   *logrus.Logger
}

func NewStatsWS(drafts store.DraftStore, interval time.Duration, logger *logrus.Logger) *StatsWS {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &StatsWS{Drafts: drafts, Interval: interval, Logger: logger}
}

type queueCounts struct {
	Pending  int64  `json:"pending"`
	Sent     int64  `json:"sent"`
	Rejected int64  `json:"rejected"`
	At       string `json:"at"`
}

// Handle runs one client connection.
func (s *StatsWS) Handle(c *websocket.Conn) {
	defer c.Close()

	if err := s.push(c); err != nil {
		return
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for range ticker.C {
		if err := s.push(c); err != nil {
			return
		}
	}
}

func (s *StatsWS) push(c *websocket.Conn) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	counts := queueCounts{At: time.Now().UTC().Format(time.RFC3339)}
	var err error
	if counts.Pending, err = s.Drafts.CountByStatus(ctx, models.DraftStatusPending); err != nil {
		s.Logger.WithError(err).Warn("queue count failed")
		return err
	}
	if counts.Sent, err = s.Drafts.CountByStatus(ctx, models.DraftStatusSent); err != nil {
		s.Logger.WithError(err).Warn("queue count failed")
		return err
	}
	if counts.Rejected, err = s.Drafts.CountByStatus(ctx, models.DraftStatusRejected); err != nil {
		s.Logger.WithError(err).Warn("queue count failed")
		return err
	}

	return c.WriteJSON(counts)
}
