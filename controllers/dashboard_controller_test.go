package controller

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospector/engine"
	"prospector/models"
	"prospector/store"
)

func TestGetDashboardComputesLiveWithoutRedis(t *testing.T) {
	drafts := store.NewMemoryDraftStore()
	opens := store.NewMemoryOpenStore()
	drafts.Seed(
		&models.Draft{ID: "p1", Status: models.DraftStatusPending},
		&models.Draft{ID: "s1", Status: models.DraftStatusSent, SentAt: ts(0), PixelID: "px-1"},
		&models.Draft{ID: "s2", Status: models.DraftStatusSent, SentAt: ts(1)},
		&models.Draft{ID: "r1", Status: models.DraftStatusRejected},
	)
	opens.Seed(&models.OpenRecord{PixelID: "px-1", OpenCount: 1})

	agg := engine.NewAggregator(opens, store.NewMemoryFollowupStore())
	dc := NewDashboardController(drafts, agg, nil, quietLogger())

	app := fiber.New()
	app.Get("/dashboard", dc.GetDashboard)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["cached"])

	counts := body["counts"].(map[string]interface{})
	assert.EqualValues(t, 1, counts["pending"])
	assert.EqualValues(t, 2, counts["sent"])
	assert.EqualValues(t, 1, counts["rejected"])

	stats := body["stats"].(map[string]interface{})
	assert.EqualValues(t, 2, stats["total_sent"])
	assert.EqualValues(t, 50.0, stats["open_rate"])

	chart := body["chart"].(map[string]interface{})
	assert.Len(t, chart["labels"].([]interface{}), 14)
}

func TestGetStatsReturnsQueueCounters(t *testing.T) {
	drafts := store.NewMemoryDraftStore()
	drafts.Seed(
		&models.Draft{ID: "p1", Status: models.DraftStatusPending},
		&models.Draft{ID: "p2", Status: models.DraftStatusPending},
		&models.Draft{ID: "s1", Status: models.DraftStatusSent},
		&models.Draft{ID: "r1", Status: models.DraftStatusRejected},
	)

	agg := engine.NewAggregator(store.NewMemoryOpenStore(), store.NewMemoryFollowupStore())
	dc := NewDashboardController(drafts, agg, nil, quietLogger())

	app := fiber.New()
	app.Get("/stats", dc.GetStats)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.EqualValues(t, 2, body["pending"])
	assert.EqualValues(t, 1, body["sent"])
	assert.EqualValues(t, 1, body["rejected"])
	assert.EqualValues(t, 4, body["total"])
}

func TestGetKanbanBucketsRecentDrafts(t *testing.T) {
	drafts := store.NewMemoryDraftStore()
	drafts.Seed(
		&models.Draft{ID: "p1", Status: models.DraftStatusPending, CreatedAt: ts(0)},
		&models.Draft{ID: "s1", Status: models.DraftStatusSent, CreatedAt: ts(1)},
		&models.Draft{ID: "s2", Status: models.DraftStatusSent, HasReply: true, CreatedAt: ts(2)},
		&models.Draft{ID: "s3", Status: models.DraftStatusSent, HasBounce: true, HasReply: true, CreatedAt: ts(3)},
		&models.Draft{ID: "r1", Status: models.DraftStatusRejected, CreatedAt: ts(4)},
	)

	agg := engine.NewAggregator(store.NewMemoryOpenStore(), store.NewMemoryFollowupStore())
	dc := NewDashboardController(drafts, agg, nil, quietLogger())

	app := fiber.New()
	app.Get("/kanban", dc.GetKanban)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/kanban", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	columns := body["columns"].(map[string]interface{})
	assert.Len(t, columns["pending"].([]interface{}), 1)
	assert.Len(t, columns["sent"].([]interface{}), 1)
	assert.Len(t, columns["replied"].([]interface{}), 1)

	// Bounce outranks reply, and rejected drafts never reach the board.
	bounced := columns["bounced"].([]interface{})
	require.Len(t, bounced, 1)
	assert.Equal(t, "s3", bounced[0].(map[string]interface{})["id"])

	counts := body["counts"].(map[string]interface{})
	assert.EqualValues(t, 1, counts["pending"])
	assert.EqualValues(t, 1, counts["bounced"])
}
