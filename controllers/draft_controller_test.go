package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospector/engine"
	"prospector/gateway"
	"prospector/models"
	"prospector/store"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newDraftApp(drafts *store.MemoryDraftStore, gwCfg gateway.Config) *fiber.App {
	log := quietLogger()
	status := engine.NewStatusEngine(drafts, store.NewMemoryFollowupStore(), log)
	gw := gateway.NewClient(gwCfg, gateway.StaticTokenMinter{Token: "t"}, log)
	dc := NewDraftController(drafts, status, gw, log)

	app := fiber.New()
	app.Get("/drafts", dc.ListPending)
	app.Get("/drafts/:id", dc.GetDraft)
	app.Post("/drafts/:id/send", dc.SendDraft)
	app.Post("/drafts/:id/reject", dc.RejectDraft)
	app.Post("/drafts/delete", dc.DeleteMany)
	app.Post("/drafts/:id/edit", dc.EditDraft)
	return app
}

func ts(offsetMinutes int) *time.Time {
	t := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC).Add(time.Duration(offsetMinutes) * time.Minute)
	return &t
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func jsonReq(method, path string, payload interface{}) *http.Request {
	var body bytes.Buffer
	if payload != nil {
		json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestListPendingCollapsesVersionGroups(t *testing.T) {
	drafts := store.NewMemoryDraftStore()
	drafts.Seed(
		&models.Draft{ID: "d1", Status: models.DraftStatusPending, VersionGroupID: "g1", CreatedAt: ts(0)},
		&models.Draft{ID: "d2", Status: models.DraftStatusPending, VersionGroupID: "g1", CreatedAt: ts(10)},
		&models.Draft{ID: "solo", Status: models.DraftStatusPending, CreatedAt: ts(5)},
		&models.Draft{ID: "sent", Status: models.DraftStatusSent, CreatedAt: ts(20)},
	)
	app := newDraftApp(drafts, gateway.Config{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/drafts", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.EqualValues(t, 2, body["total"])
	list := body["drafts"].([]interface{})
	first := list[0].(map[string]interface{})
	assert.Equal(t, "d2", first["id"])
	assert.EqualValues(t, 2, first["version_count"])
}

func TestGetDraftNumbersVersions(t *testing.T) {
	drafts := store.NewMemoryDraftStore()
	drafts.Seed(
		&models.Draft{ID: "d1", Status: models.DraftStatusPending, VersionGroupID: "g1", CreatedAt: ts(0)},
		&models.Draft{ID: "d2", Status: models.DraftStatusPending, VersionGroupID: "g1", CreatedAt: ts(10)},
	)
	app := newDraftApp(drafts, gateway.Config{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/drafts/d2", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	versions := body["versions"].([]interface{})
	require.Len(t, versions, 2)
	oldest := versions[0].(map[string]interface{})
	assert.Equal(t, "d1", oldest["id"])
	assert.EqualValues(t, 1, oldest["version_number"])
	target := versions[1].(map[string]interface{})
	assert.Equal(t, "d2", target["id"])
	assert.Equal(t, true, target["is_current"])
}

func TestGetDraftNotFound(t *testing.T) {
	app := newDraftApp(store.NewMemoryDraftStore(), gateway.Config{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/drafts/ghost", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSendDraftLiveMarksSentAndRejectsSibling(t *testing.T) {
	drafts := store.NewMemoryDraftStore()
	drafts.Seed(
		&models.Draft{ID: "d1", Status: models.DraftStatusPending, VersionGroupID: "g1", CreatedAt: ts(0)},
		&models.Draft{ID: "d2", Status: models.DraftStatusPending, VersionGroupID: "g1", CreatedAt: ts(10)},
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"message_id": "m-1", "pixel_id": "px-1"})
	}))
	defer srv.Close()

	app := newDraftApp(drafts, gateway.Config{SendMailURL: srv.URL, AutoFollowupURL: srv.URL})

	resp, err := app.Test(jsonReq(http.MethodPost, "/drafts/d2/send", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "m-1", body["message_id"])
	assert.EqualValues(t, 1, body["auto_rejected_versions"])

	sent, _ := drafts.Get(context.Background(), "d2")
	assert.Equal(t, models.DraftStatusSent, sent.Status)
	sibling, _ := drafts.Get(context.Background(), "d1")
	assert.Equal(t, models.DraftStatusRejected, sibling.Status)
	assert.True(t, sibling.AutoRejected)
}

func TestSendDraftTestModeChangesNothing(t *testing.T) {
	drafts := store.NewMemoryDraftStore()
	drafts.Seed(&models.Draft{ID: "d1", Status: models.DraftStatusPending})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"message_id": "test"})
	}))
	defer srv.Close()

	app := newDraftApp(drafts, gateway.Config{SendMailURL: srv.URL})

	resp, err := app.Test(jsonReq(http.MethodPost, "/drafts/d1/send", map[string]interface{}{
		"test_mode":  true,
		"test_email": "me@example.com",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	draft, _ := drafts.Get(context.Background(), "d1")
	assert.Equal(t, models.DraftStatusPending, draft.Status)
}

func TestSendDraftTestModeRequiresEmail(t *testing.T) {
	drafts := store.NewMemoryDraftStore()
	drafts.Seed(&models.Draft{ID: "d1", Status: models.DraftStatusPending})
	app := newDraftApp(drafts, gateway.Config{})

	resp, err := app.Test(jsonReq(http.MethodPost, "/drafts/d1/send", map[string]interface{}{
		"test_mode": true,
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSendDraftUpstreamFailureLeavesDraftPending(t *testing.T) {
	drafts := store.NewMemoryDraftStore()
	drafts.Seed(&models.Draft{ID: "d1", Status: models.DraftStatusPending})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": "smtp down"})
	}))
	defer srv.Close()

	app := newDraftApp(drafts, gateway.Config{SendMailURL: srv.URL})

	resp, err := app.Test(jsonReq(http.MethodPost, "/drafts/d1/send", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	draft, _ := drafts.Get(context.Background(), "d1")
	assert.Equal(t, models.DraftStatusPending, draft.Status)
}

func TestRejectDraft(t *testing.T) {
	drafts := store.NewMemoryDraftStore()
	drafts.Seed(&models.Draft{ID: "d1", Status: models.DraftStatusPending})
	app := newDraftApp(drafts, gateway.Config{})

	resp, err := app.Test(jsonReq(http.MethodPost, "/drafts/d1/reject", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	draft, _ := drafts.Get(context.Background(), "d1")
	assert.Equal(t, models.DraftStatusRejected, draft.Status)
}

func TestEditDraftCreatesRevision(t *testing.T) {
	drafts := store.NewMemoryDraftStore()
	drafts.Seed(&models.Draft{ID: "d1", To: "lead@example.com", Subject: "S", Body: "B", Status: models.DraftStatusPending, VersionGroupID: "g1"})
	app := newDraftApp(drafts, gateway.Config{})

	resp, err := app.Test(jsonReq(http.MethodPost, "/drafts/d1/edit", map[string]string{
		"subject": "New subject",
		"body":    "New body",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	newID := body["draft_id"].(string)
	revision, err := drafts.Get(context.Background(), newID)
	require.NoError(t, err)
	assert.Equal(t, "g1", revision.VersionGroupID)
	assert.True(t, revision.ManuallyEdited)
}

func TestEditDraftBlankSubject(t *testing.T) {
	drafts := store.NewMemoryDraftStore()
	drafts.Seed(&models.Draft{ID: "d1", Status: models.DraftStatusPending})
	app := newDraftApp(drafts, gateway.Config{})

	resp, err := app.Test(jsonReq(http.MethodPost, "/drafts/d1/edit", map[string]string{
		"subject": "  ",
		"body":    "body",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteManyEndpoint(t *testing.T) {
	drafts := store.NewMemoryDraftStore()
	drafts.Seed(
		&models.Draft{ID: "d1", Status: models.DraftStatusPending},
		&models.Draft{ID: "d2", Status: models.DraftStatusRejected},
	)
	app := newDraftApp(drafts, gateway.Config{})

	resp, err := app.Test(jsonReq(http.MethodPost, "/drafts/delete", map[string]interface{}{
		"draft_ids": []string{"d1", "ghost", "d2"},
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.EqualValues(t, 2, body["deleted_count"])
	assert.Len(t, body["errors"].([]interface{}), 1)

	_, err = drafts.Get(context.Background(), "d1")
	assert.Error(t, err)
}
