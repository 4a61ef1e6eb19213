package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"prospector/models"
	"prospector/store"
)

// StepStats is the engagement breakdown for one step of the outreach
// sequence. Step 0 is the initial send, 1.. the follow-up ordinals.
// Only pixel-tracked drafts count toward the open-rate denominator, so
// Tracked is reported next to Sent to keep the denominator explicit.
type StepStats struct {
	FollowupNumber int     `json:"followup_number"`
	Sent           int     `json:"sent"`
	Tracked        int     `json:"tracked"`
	Opened         int     `json:"opened"`
	Replied        int     `json:"replied"`
	OpenRate       float64 `json:"open_rate"`
}

// FleetStats are the engagement metrics across every sent draft. The
// fleet-wide rates use all sent drafts as denominator, pixel or not;
// the per-step breakdown narrows to tracked drafts.
type FleetStats struct {
	TotalSent    int     `json:"total_sent"`
	TotalOpened  int     `json:"total_opened"`
	TotalBounced int     `json:"total_bounced"`
	TotalReplied int     `json:"total_replied"`
	OpenRate     float64 `json:"open_rate"`
	BounceRate   float64 `json:"bounce_rate"`
	ReplyRate    float64 `json:"reply_rate"`

	AvgResponseHours float64     `json:"avg_response_hours"`
	AvgResponseTime  string      `json:"avg_response_time"`
	Steps            []StepStats `json:"steps"`
}

// ChartData is the daily activity series the dashboard plots.
type ChartData struct {
	Labels  []string `json:"labels"`
	Sends   []int    `json:"sends"`
	Opens   []int    `json:"opens"`
	Replies []int    `json:"replies"`
}

// Aggregator joins sent drafts with their open-tracking records and
// follow-ups. Pure with respect to its inputs: any lookup failure other
// than a plain miss aborts the aggregation, no partial results.
type Aggregator struct {
	opens     store.OpenStore
	followups store.FollowupStore
}

func NewAggregator(opens store.OpenStore, followups store.FollowupStore) *Aggregator {
	return &Aggregator{opens: opens, followups: followups}
}

// AggregateHistory enriches each sent draft with its open counts and
// follow-up tallies and computes the fleet-wide stats over the whole
// input.
func (a *Aggregator) AggregateHistory(ctx context.Context, sent []models.Draft) ([]models.Draft, *FleetStats, error) {
	enriched := make([]models.Draft, len(sent))
	stats := &FleetStats{TotalSent: len(sent)}
	steps := make(map[int]*StepStats)

	var responseHours []float64

	for i, draft := range sent {
		if draft.PixelID != "" {
			record, err := a.opens.Get(ctx, draft.PixelID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return nil, nil, &AggregationError{Stage: "open-tracking lookup", Err: err}
			}
			if record != nil {
				draft.OpenCount = record.OpenCount
				draft.FirstOpenedAt = record.FirstOpenedAt
				draft.LastOpenedAt = record.LastOpenedAt
			}
		}

		followups, err := a.followups.ListByDraft(ctx, draft.ID)
		if err != nil {
			return nil, nil, &AggregationError{Stage: "followup lookup", Err: err}
		}
		draft.TotalFollowups = len(followups)
		for _, f := range followups {
			switch f.Status {
			case models.FollowupStatusScheduled:
				draft.ScheduledFollowups++
			case models.FollowupStatusSent:
				draft.SentFollowups++
			case models.FollowupStatusCancelled:
				draft.CancelledFollowups++
			case models.FollowupStatusFailed:
				draft.FailedFollowups++
			}
		}

		if draft.OpenCount > 0 {
			stats.TotalOpened++
		}
		if draft.HasBounce {
			stats.TotalBounced++
		}
		if draft.HasReply {
			stats.TotalReplied++
		}

		step := stepFor(steps, draft.FollowupNumber)
		step.Sent++
		if draft.PixelID != "" {
			step.Tracked++
			if draft.OpenCount > 0 {
				step.Opened++
			}
		}
		if draft.HasReply {
			step.Replied++
		}

		if draft.SentAt != nil && draft.ReplyReceivedAt != nil {
			responseHours = append(responseHours, draft.ReplyReceivedAt.Sub(*draft.SentAt).Hours())
		}

		enriched[i] = draft
	}

	if stats.TotalSent > 0 {
		stats.OpenRate = round1(float64(stats.TotalOpened) / float64(stats.TotalSent) * 100)
		stats.BounceRate = round1(float64(stats.TotalBounced) / float64(stats.TotalSent) * 100)
		stats.ReplyRate = round1(float64(stats.TotalReplied) / float64(stats.TotalSent) * 100)
	}

	for _, step := range steps {
		if step.Tracked > 0 {
			step.OpenRate = round1(float64(step.Opened) / float64(step.Tracked) * 100)
		}
		stats.Steps = append(stats.Steps, *step)
	}
	sort.Slice(stats.Steps, func(i, j int) bool {
		return stats.Steps[i].FollowupNumber < stats.Steps[j].FollowupNumber
	})

	if len(responseHours) > 0 {
		var total float64
		for _, h := range responseHours {
			total += h
		}
		stats.AvgResponseHours = total / float64(len(responseHours))
	}
	stats.AvgResponseTime = FormatResponseTime(stats.AvgResponseHours)

	return enriched, stats, nil
}

// ActivitySeries buckets enriched drafts into a per-day chart over the
// last N days: sends by sent_at, opens by first_opened_at (falling back
// to sent_at when the pixel record carries no timestamp), replies by
// reply_received_at.
func (a *Aggregator) ActivitySeries(enriched []models.Draft, days int) ChartData {
	sends := make(map[string]int)
	opens := make(map[string]int)
	replies := make(map[string]int)

	for _, draft := range enriched {
		if draft.SentAt != nil {
			sends[dayKey(*draft.SentAt)]++
		}
		if draft.OpenCount > 0 {
			openDay := draft.FirstOpenedAt
			if openDay == nil {
				openDay = draft.SentAt
			}
			if openDay != nil {
				opens[dayKey(*openDay)]++
			}
		}
		if draft.ReplyReceivedAt != nil {
			replies[dayKey(*draft.ReplyReceivedAt)]++
		}
	}

	chart := ChartData{}
	today := time.Now().UTC()
	for i := days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		key := dayKey(day)
		// Short label, the year adds nothing to a two-week chart.
		chart.Labels = append(chart.Labels, day.Format("01-02"))
		chart.Sends = append(chart.Sends, sends[key])
		chart.Opens = append(chart.Opens, opens[key])
		chart.Replies = append(chart.Replies, replies[key])
	}
	return chart
}

// FormatResponseTime renders an hour count as hours under a day,
// otherwise as days, one decimal either way.
func FormatResponseTime(hours float64) string {
	if hours < 24 {
		return fmt.Sprintf("%.1f hours", hours)
	}
	return fmt.Sprintf("%.1f days", hours/24)
}

func stepFor(steps map[int]*StepStats, number int) *StepStats {
	if step, ok := steps[number]; ok {
		return step
	}
	step := &StepStats{FollowupNumber: number}
	steps[number] = step
	return step
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
