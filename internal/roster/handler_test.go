package roster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, *Service) {
	t.Helper()
	svc, _, _ := newTestService()
	handler := NewHandler(slog.New(slog.DiscardHandler), svc)
	r := chi.NewRouter()
	r.Route("/roster", handler.MountRoutes)
	return r, svc
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.ContentLength = int64(buf.Len())
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHandlerCreate(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/roster/", map[string]any{
		"kind": "WRESTLER",
		"name": "dusty mercer",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Dusty Mercer", body["name"])
	assert.Equal(t, string(StatusUnemployed), body["status"])
}

func TestHandlerCreateValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/roster/", map[string]any{"kind": "WRESTLER"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/roster/", map[string]any{"kind": "MASCOT", "name": "Rally Hawk"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Whitespace survives the required check but normalizes to nothing.
	rec = doJSON(t, router, http.MethodPost, "/roster/", map[string]any{"kind": "WRESTLER", "name": "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["detail"], ErrNameRequired.Error())
}

func TestHandlerTransition(t *testing.T) {
	router, svc := newTestRouter(t)
	entity := createWrestler(t, svc, nil)

	at := day(t, "2024-01-01")
	rec := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/roster/%s/transitions/employ", entity.ID),
		map[string]any{"effective_at": at.Format(time.RFC3339)})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, string(StatusEmployed), body["status"])
}

func TestHandlerTransitionRejectedIsConflict(t *testing.T) {
	router, svc := newTestRouter(t)
	entity := createWrestler(t, svc, nil)

	rec := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/roster/%s/transitions/suspend", entity.ID), nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Transition Rejected", body["title"])
	assert.Contains(t, body["detail"], ErrCannotBeSuspended.Error())
}

func TestHandlerTransitionUnknown(t *testing.T) {
	router, svc := newTestRouter(t)
	entity := createWrestler(t, svc, nil)

	rec := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/roster/%s/transitions/promote", entity.ID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerJoinRequiresGroupID(t *testing.T) {
	router, svc := newTestRouter(t)
	entity := createWrestler(t, svc, nil)

	rec := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/roster/%s/transitions/join", entity.ID),
		map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	start := day(t, "2024-01-01")
	stable, err := svc.Create(context.Background(), CreateParams{Kind: EntityStable, Name: "The Vanguard", StartAt: &start})
	require.NoError(t, err)

	rec = doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/roster/%s/transitions/join", entity.ID),
		map[string]any{"group_id": stable.ID})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerGetNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/roster/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/roster/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerStatusAt(t *testing.T) {
	router, svc := newTestRouter(t)
	entity := createWrestler(t, svc, nil)
	_, err := svc.Employ(context.Background(), entity.ID, day(t, "2024-01-01"))
	require.NoError(t, err)
	_, err = svc.Suspend(context.Background(), entity.ID, day(t, "2024-02-01"))
	require.NoError(t, err)

	at := day(t, "2024-01-15").Format(time.RFC3339)
	rec := doJSON(t, router, http.MethodGet,
		fmt.Sprintf("/roster/%s/status?at=%s", entity.ID, at), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(StatusEmployed), decodeBody(t, rec)["status"])

	rec = doJSON(t, router, http.MethodGet,
		fmt.Sprintf("/roster/%s/status?at=yesterday", entity.ID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerHistory(t *testing.T) {
	router, svc := newTestRouter(t)
	entity := createWrestler(t, svc, nil)
	_, err := svc.Employ(context.Background(), entity.ID, day(t, "2024-01-01"))
	require.NoError(t, err)
	_, err = svc.Release(context.Background(), entity.ID, day(t, "2024-03-01"))
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodGet,
		fmt.Sprintf("/roster/%s/history/employment", entity.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items, ok := decodeBody(t, rec)["items"].([]any)
	require.True(t, ok)
	assert.Len(t, items, 1)

	// Tracked nowhere on a wrestler.
	rec = doJSON(t, router, http.MethodGet,
		fmt.Sprintf("/roster/%s/history/activity", entity.ID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet,
		fmt.Sprintf("/roster/%s/history/bogus", entity.ID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerListAndPagination(t *testing.T) {
	router, svc := newTestRouter(t)
	ctx := context.Background()
	start := day(t, "2024-01-01")
	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, CreateParams{Kind: EntityWrestler, Name: fmt.Sprintf("wrestler %c", 'a'+i), StartAt: &start})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, CreateParams{Kind: EntityTitle, Name: "World Title"})
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodGet, "/roster/?kind=wrestler&page=1&per_page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	pagination, ok := body["pagination"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3), pagination["total"])
}

func TestHandlerDeleteAndRestore(t *testing.T) {
	router, svc := newTestRouter(t)
	entity := createWrestler(t, svc, nil)

	rec := doJSON(t, router, http.MethodDelete, "/roster/"+entity.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/roster/"+entity.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/roster/"+entity.ID.String()+"/restore", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandlerDebut(t *testing.T) {
	router, svc := newTestRouter(t)
	start := day(t, "2024-01-01")
	entity := createWrestler(t, svc, &start)

	rec := doJSON(t, router, http.MethodGet, "/roster/"+entity.ID.String()+"/debut", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, decodeBody(t, rec)["debut"])

	fresh := createWrestler(t, svc, nil)
	rec = doJSON(t, router, http.MethodGet, "/roster/"+fresh.ID.String()+"/debut", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decodeBody(t, rec)["debut"])
}

func TestHandlerLastStint(t *testing.T) {
	router, svc := newTestRouter(t)
	entity := createWrestler(t, svc, nil)

	rec := doJSON(t, router, http.MethodGet, "/roster/"+entity.ID.String()+"/last-stint", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decodeBody(t, rec)["period"])

	_, err := svc.Employ(context.Background(), entity.ID, day(t, "2024-01-01"))
	require.NoError(t, err)
	_, err = svc.Release(context.Background(), entity.ID, day(t, "2024-03-01"))
	require.NoError(t, err)

	rec = doJSON(t, router, http.MethodGet, "/roster/"+entity.ID.String()+"/last-stint", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	period, ok := decodeBody(t, rec)["period"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(KindEmployment), period["kind"])
	assert.NotNil(t, period["ended_at"])
}
