package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/flashdeck/internal/codec"
	"github.com/conorfennell/flashdeck/internal/deck"
	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/scheduler"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *deck.Deck) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := func() time.Time { return t0 }
	d := deck.New(domain.ReviewData{}, deck.WithClock(clock), deck.WithLogger(logger))
	s := NewServer(d, logger)
	s.now = clock
	return s, d
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestReviewFlow(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/cards/current", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPost, "/cards", `{"question": "Q", "answer": "A"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	added := decode[domain.Card](t, rec)

	rec = do(t, s, http.MethodGet, "/cards/current", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, added.ID, decode[domain.Card](t, rec).ID)

	rec = do(t, s, http.MethodPost, "/cards/current/known", "")
	require.Equal(t, http.StatusOK, rec.Code)
	known := decode[domain.Card](t, rec)
	assert.Equal(t, 1, known.Interval)
	assert.Equal(t, domain.At(t0.Add(24*time.Hour)), known.NextReviewAt)

	rec = do(t, s, http.MethodPost, "/cards/current/unknown", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[domain.Card](t, rec).Interval)

	rec = do(t, s, http.MethodGet, "/snapshot", "")
	snap := decode[domain.ReviewData](t, rec)
	assert.Len(t, snap.Cards, 1)
	assert.Len(t, snap.Reviews, 2)
}

func TestPostCardValidation(t *testing.T) {
	s, _ := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/cards", `{"question": ""}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/cards", `not json`).Code)
}

func TestDeleteCard(t *testing.T) {
	s, d := newTestServer(t)
	card, err := d.AddCard(context.Background(), "Q", "A")
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, "/cards/"+card.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodDelete, "/cards/"+card.ID, "").Code)
	assert.Empty(t, decode[[]domain.Card](t, do(t, s, http.MethodGet, "/cards", "")))
}

func TestDueAndStats(t *testing.T) {
	s, d := newTestServer(t)
	d.AddCard(context.Background(), "Q", "A")

	due := decode[scheduler.Counts](t, do(t, s, http.MethodGet, "/due", ""))
	assert.Equal(t, scheduler.Counts{DueNow: 1, Total: 1}, due)

	rec := do(t, s, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalReviews":0`)
}

func TestExportImportRoundTrip(t *testing.T) {
	s, d := newTestServer(t)
	d.AddCard(context.Background(), "Q", "A")
	d.MarkKnown(context.Background())

	rec := do(t, s, http.MethodGet, "/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "flashcards-export-2025-06-15.json")
	exported := rec.Body.String()

	rec = do(t, s, http.MethodPost, "/import/validate", exported)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[codec.Result](t, rec)
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Warnings)

	rec = do(t, s, http.MethodPost, "/import", exported)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cards": 1}`, rec.Body.String())
	// The export's history is already in the log.
	assert.Len(t, d.Reviews(), 1)
}

func TestImportRejected(t *testing.T) {
	s, d := newTestServer(t)
	d.AddCard(context.Background(), "keep", "me")

	rec := do(t, s, http.MethodPost, "/import", `{"cards": [{"question": "Q"}]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[errorBody](t, rec)
	require.Len(t, body.Issues, 1)
	assert.Equal(t, codec.KindField, body.Issues[0].Kind)

	assert.Equal(t, http.StatusUnprocessableEntity, do(t, s, http.MethodPost, "/import", `"nope"`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/import", `{`).Code)
	assert.Equal(t, "keep", d.Cards()[0].Question)
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, s, http.MethodPut, "/due", "").Code)
}
