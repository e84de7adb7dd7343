// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	json "github.com/goccy/go-json"

	"github.com/vidpulse/vidpulse/internal/config"
	"github.com/vidpulse/vidpulse/internal/database"
	"github.com/vidpulse/vidpulse/internal/etl"
	"github.com/vidpulse/vidpulse/internal/ingest"
	"github.com/vidpulse/vidpulse/internal/models"
	"github.com/vidpulse/vidpulse/internal/popular"
	"github.com/vidpulse/vidpulse/internal/ratelimit"
	"github.com/vidpulse/vidpulse/internal/trending"
)

func ptrFloat(v float64) *float64 { return &v }

// fakeAPIStore backs both the handler Store and the popular catalog.
type fakeAPIStore struct {
	videos    map[int64]*models.Video
	views24h  int64
	snapshots int64
	pingErr   error
}

func (f *fakeAPIStore) GetVideo(_ context.Context, id int64) (*models.Video, error) {
	v, ok := f.videos[id]
	if !ok {
		return nil, database.ErrVideoNotFound
	}
	return v, nil
}

func (f *fakeAPIStore) CountViewsSince(context.Context, time.Time) (int64, error) {
	return f.views24h, nil
}

func (f *fakeAPIStore) SnapshotCount(context.Context) (int64, error) {
	return f.snapshots, nil
}

func (f *fakeAPIStore) Ping(context.Context) error { return f.pingErr }

type fakeSearcher struct {
	videos []models.Video
	err    error
}

func (f *fakeSearcher) FindWithinRadius(context.Context, float64, float64, float64) ([]models.Video, error) {
	return f.videos, f.err
}

type fakeSignalStore struct {
	views map[int64][]models.ViewEvent
}

func (f *fakeSignalStore) ViewEventsSince(context.Context, time.Time) (map[int64][]models.ViewEvent, error) {
	return f.views, nil
}

type fakeSnapshotStore struct {
	snap *models.PopularitySnapshot
}

func (f *fakeSnapshotStore) GetLatestSnapshot(context.Context) (*models.PopularitySnapshot, error) {
	return f.snap, nil
}

type fakeETLStore struct {
	mu       sync.Mutex
	counts   []database.DailyViewCount
	replaced []*models.PopularitySnapshot

	replaceErr error
}

func (f *fakeETLStore) GetDailyViewCounts(context.Context, time.Time) ([]database.DailyViewCount, error) {
	return f.counts, nil
}

func (f *fakeETLStore) ReplaceLatestSnapshot(_ context.Context, snap *models.PopularitySnapshot) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaced = append(f.replaced, snap)
	return nil
}

func (f *fakeETLStore) replaceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.replaced)
}

type fakePublisher struct {
	mu        sync.Mutex
	published []*message.Message
	err       error
}

func (f *fakePublisher) Publish(_ string, messages ...*message.Message) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, messages...)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

// handlerFixture wires the full handler stack over in-memory fakes.
type handlerFixture struct {
	cfg       *config.Config
	store     *fakeAPIStore
	searcher  *fakeSearcher
	signals   *fakeSignalStore
	snapshots *fakeSnapshotStore
	etlStore  *fakeETLStore
	publisher *fakePublisher
	handler   http.Handler
}

func newHandlerFixture(mutate func(*config.Config)) *handlerFixture {
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}

	f := &handlerFixture{
		cfg:       cfg,
		store:     &fakeAPIStore{videos: map[int64]*models.Video{}},
		searcher:  &fakeSearcher{},
		signals:   &fakeSignalStore{views: map[int64][]models.ViewEvent{}},
		snapshots: &fakeSnapshotStore{},
		etlStore:  &fakeETLStore{},
		publisher: &fakePublisher{},
	}

	engine := trending.New(f.searcher, f.signals, &cfg.Trending)
	popularSvc := popular.New(f.store, f.snapshots)
	aggregator := etl.NewAggregator(f.etlStore, &cfg.ETL, popularSvc.SetLatest)
	scheduler := etl.NewScheduler(aggregator, &cfg.ETL)
	tracker := ingest.NewTracker(f.publisher)

	h := NewHandlers(
		cfg,
		f.store,
		engine,
		popularSvc,
		tracker,
		scheduler,
		ratelimit.NewSlidingWindowLimiter(cfg.RateLimit.ActionMax, cfg.RateLimit.ActionWindow),
		ratelimit.NewFixedWindowLimiter(cfg.RateLimit.LoginMaxAttempts, cfg.RateLimit.LoginWindow),
	)
	f.handler = NewRouter(cfg, h)
	return f
}

func (f *handlerFixture) do(method, target string, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return resp
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) APIResponse {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
		Meta    *APIMeta        `json:"meta"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode envelope %q: %v", w.Body.String(), err)
	}
	if resp.Data != nil {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			t.Fatalf("failed to decode payload %q: %v", resp.Data, err)
		}
	}
	return APIResponse{Success: resp.Success, Error: resp.Error, Meta: resp.Meta}
}

func TestHandleTrendingLocal_RanksByScore(t *testing.T) {
	f := newHandlerFixture(nil)
	now := time.Now().UTC()

	// Same location and age; likes are the only differentiating signal.
	f.searcher.videos = []models.Video{
		{ID: 1, Title: "quiet", Latitude: ptrFloat(35.66), Longitude: ptrFloat(139.70), CreatedAt: now, LikeCount: 0},
		{ID: 2, Title: "loud", Latitude: ptrFloat(35.66), Longitude: ptrFloat(139.70), CreatedAt: now, LikeCount: 99},
	}

	w := f.do("GET", "/api/v1/trending/local?lat=35.65&lon=139.70", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var payload TrendingResponse
	resp := decodeData(t, w, &payload)
	if !resp.Success {
		t.Fatal("expected success envelope")
	}
	if len(payload.Videos) != 2 {
		t.Fatalf("got %d videos, want 2", len(payload.Videos))
	}
	if payload.Videos[0].Video.ID != 2 {
		t.Errorf("top video = %d, want 2 (more likes)", payload.Videos[0].Video.ID)
	}
	if payload.Videos[0].Rank != 1 || payload.Videos[1].Rank != 2 {
		t.Errorf("ranks = %d,%d, want 1,2", payload.Videos[0].Rank, payload.Videos[1].Rank)
	}
	if payload.RadiusKm != f.cfg.Trending.DefaultRadiusKm {
		t.Errorf("echoed radius = %v, want default %v", payload.RadiusKm, f.cfg.Trending.DefaultRadiusKm)
	}
	if resp.Meta == nil || resp.Meta.Count != 2 {
		t.Errorf("meta count missing or wrong: %+v", resp.Meta)
	}
}

func TestHandleTrendingLocal_EmptyAreaIsEmptyList(t *testing.T) {
	f := newHandlerFixture(nil)

	w := f.do("GET", "/api/v1/trending/local?lat=0&lon=0", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var payload TrendingResponse
	decodeData(t, w, &payload)
	if payload.Videos == nil {
		t.Error("videos should be an empty list, not null")
	}
	if len(payload.Videos) != 0 {
		t.Errorf("got %d videos, want 0", len(payload.Videos))
	}
}

func TestHandleTrendingLocal_ValidationFailure(t *testing.T) {
	f := newHandlerFixture(nil)

	tests := []struct {
		name   string
		target string
	}{
		{"missing coordinates", "/api/v1/trending/local"},
		{"latitude out of range", "/api/v1/trending/local?lat=99&lon=0"},
		{"radius out of range", "/api/v1/trending/local?lat=0&lon=0&radius_km=9000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do("GET", tt.target, "")
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			resp := decodeEnvelope(t, w)
			if resp.Success {
				t.Error("expected error envelope")
			}
			if resp.Error == nil || resp.Error.Code != ErrCodeValidationFailed {
				t.Errorf("error = %+v, want code %s", resp.Error, ErrCodeValidationFailed)
			}
		})
	}
}

func TestHandleTrendingLocal_SearchFailure(t *testing.T) {
	f := newHandlerFixture(nil)
	f.searcher.err = fmt.Errorf("index rebuild failed")

	w := f.do("GET", "/api/v1/trending/local?lat=0&lon=0", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if resp.Error == nil || resp.Error.Code != ErrCodeInternalError {
		t.Errorf("error = %+v, want code %s", resp.Error, ErrCodeInternalError)
	}
}

func TestHandlePopularVideos_EmptyBeforeFirstRun(t *testing.T) {
	f := newHandlerFixture(nil)

	w := f.do("GET", "/api/v1/videos/popular", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var payload PopularResponse
	resp := decodeData(t, w, &payload)
	if !resp.Success {
		t.Fatal("expected success envelope")
	}
	if payload.ComputedAt != nil {
		t.Error("computed_at should be absent before the first run")
	}
	if payload.Videos == nil || len(payload.Videos) != 0 {
		t.Errorf("videos = %v, want empty list", payload.Videos)
	}
}

func TestHandlePopularVideos_ReturnsLeaderboard(t *testing.T) {
	f := newHandlerFixture(nil)
	f.store.videos[1] = &models.Video{ID: 1, Title: "first"}
	f.store.videos[2] = &models.Video{ID: 2, Title: "second"}
	f.snapshots.snap = &models.PopularitySnapshot{
		ID:         "snap-1",
		ComputedAt: time.Date(2026, 8, 30, 2, 0, 0, 0, time.UTC),
		Entries: []models.SnapshotEntry{
			{Rank: 1, VideoID: 1, Score: 120},
			{Rank: 2, VideoID: 2, Score: 45},
		},
		IsLatest: true,
	}

	w := f.do("GET", "/api/v1/videos/popular", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var payload PopularResponse
	decodeData(t, w, &payload)
	if payload.ComputedAt == nil {
		t.Fatal("computed_at missing")
	}
	if len(payload.Videos) != 2 {
		t.Fatalf("got %d entries, want 2", len(payload.Videos))
	}
	if payload.Videos[0].Video.Title != "first" || payload.Videos[0].Score != 120 {
		t.Errorf("top entry = %+v, want video 'first' with score 120", payload.Videos[0])
	}
}

func TestHandleTrackView_Accepted(t *testing.T) {
	f := newHandlerFixture(nil)
	f.store.videos[7] = &models.Video{ID: 7, Title: "clip"}

	w := f.do("POST", "/api/v1/videos/7/view", `{"user_id": 42}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}

	var payload struct {
		EventID string `json:"event_id"`
		VideoID int64  `json:"video_id"`
	}
	resp := decodeData(t, w, &payload)
	if !resp.Success {
		t.Fatal("expected success envelope")
	}
	if payload.EventID == "" {
		t.Error("event_id missing")
	}
	if payload.VideoID != 7 {
		t.Errorf("video_id = %d, want 7", payload.VideoID)
	}
	if f.publisher.count() != 1 {
		t.Errorf("published %d events, want 1", f.publisher.count())
	}
}

func TestHandleTrackView_AnonymousBodyOptional(t *testing.T) {
	f := newHandlerFixture(nil)
	f.store.videos[7] = &models.Video{ID: 7}

	w := f.do("POST", "/api/v1/videos/7/view", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 without a body: %s", w.Code, w.Body.String())
	}
}

func TestHandleTrackView_InvalidID(t *testing.T) {
	f := newHandlerFixture(nil)

	for _, id := range []string{"abc", "0", "-3"} {
		w := f.do("POST", "/api/v1/videos/"+id+"/view", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("id %q: status = %d, want 400", id, w.Code)
		}
	}
	if f.publisher.count() != 0 {
		t.Errorf("published %d events, want 0", f.publisher.count())
	}
}

func TestHandleTrackView_UnknownVideo(t *testing.T) {
	f := newHandlerFixture(nil)

	w := f.do("POST", "/api/v1/videos/999/view", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if resp.Error == nil || resp.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v, want code %s", resp.Error, ErrCodeNotFound)
	}
	if f.publisher.count() != 0 {
		t.Errorf("published %d events, want 0", f.publisher.count())
	}
}

func TestHandleTrackView_RateLimited(t *testing.T) {
	f := newHandlerFixture(func(cfg *config.Config) {
		cfg.RateLimit.ActionMax = 2
		cfg.RateLimit.ActionWindow = time.Hour
	})
	f.store.videos[7] = &models.Video{ID: 7}

	for i := 0; i < 2; i++ {
		if w := f.do("POST", "/api/v1/videos/7/view", `{"user_id": 42}`); w.Code != http.StatusAccepted {
			t.Fatalf("view %d: status = %d, want 202", i+1, w.Code)
		}
	}

	w := f.do("POST", "/api/v1/videos/7/view", `{"user_id": 42}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if resp.Error == nil || resp.Error.Code != ErrCodeTooManyRequests {
		t.Fatalf("error = %+v, want code %s", resp.Error, ErrCodeTooManyRequests)
	}
	details, ok := resp.Error.Details.(map[string]interface{})
	if !ok {
		t.Fatalf("details = %T, want object", resp.Error.Details)
	}
	if details["max"] != float64(2) {
		t.Errorf("details.max = %v, want 2", details["max"])
	}
	if _, ok := details["reset_at"]; !ok {
		t.Error("details.reset_at missing")
	}
	if f.publisher.count() != 2 {
		t.Errorf("published %d events, want 2 (rejected view not queued)", f.publisher.count())
	}
}

func TestHandleTrackView_LimitKeyedPerUser(t *testing.T) {
	f := newHandlerFixture(func(cfg *config.Config) {
		cfg.RateLimit.ActionMax = 1
		cfg.RateLimit.ActionWindow = time.Hour
	})
	f.store.videos[7] = &models.Video{ID: 7}

	if w := f.do("POST", "/api/v1/videos/7/view", `{"user_id": 1}`); w.Code != http.StatusAccepted {
		t.Fatalf("user 1: status = %d, want 202", w.Code)
	}
	// A different user has a separate budget.
	if w := f.do("POST", "/api/v1/videos/7/view", `{"user_id": 2}`); w.Code != http.StatusAccepted {
		t.Fatalf("user 2: status = %d, want 202", w.Code)
	}
	if w := f.do("POST", "/api/v1/videos/7/view", `{"user_id": 1}`); w.Code != http.StatusTooManyRequests {
		t.Fatalf("user 1 again: status = %d, want 429", w.Code)
	}
}

func TestHandleETLRun_TriggersAggregation(t *testing.T) {
	f := newHandlerFixture(nil)
	f.etlStore.counts = []database.DailyViewCount{
		{VideoID: 1, Day: time.Now().UTC().Truncate(24 * time.Hour), Views: 10},
	}

	w := f.do("POST", "/api/v1/etl/run", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if f.etlStore.replaceCount() != 1 {
		t.Errorf("snapshot replaced %d times, want 1", f.etlStore.replaceCount())
	}

	// The committed snapshot immediately backs the leaderboard.
	f.store.videos[1] = &models.Video{ID: 1, Title: "clip"}
	lw := f.do("GET", "/api/v1/videos/popular", "")
	var payload PopularResponse
	decodeData(t, lw, &payload)
	if len(payload.Videos) != 1 || payload.Videos[0].Video.ID != 1 {
		t.Errorf("leaderboard = %+v, want video 1", payload.Videos)
	}
}

func TestHandleETLRun_RateLimitedAfterFailures(t *testing.T) {
	f := newHandlerFixture(func(cfg *config.Config) {
		cfg.RateLimit.LoginMaxAttempts = 2
		cfg.RateLimit.LoginWindow = time.Hour
	})
	f.etlStore.replaceErr = fmt.Errorf("disk full")

	for i := 0; i < 2; i++ {
		if w := f.do("POST", "/api/v1/etl/run", ""); w.Code != http.StatusInternalServerError {
			t.Fatalf("attempt %d: status = %d, want 500", i+1, w.Code)
		}
	}

	w := f.do("POST", "/api/v1/etl/run", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 after exhausting attempts", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if resp.Error == nil || resp.Error.Code != ErrCodeTooManyRequests {
		t.Errorf("error = %+v, want code %s", resp.Error, ErrCodeTooManyRequests)
	}
}

func TestHandleETLRun_SuccessResetsAttempts(t *testing.T) {
	f := newHandlerFixture(func(cfg *config.Config) {
		cfg.RateLimit.LoginMaxAttempts = 1
		cfg.RateLimit.LoginWindow = time.Hour
	})

	// Each successful run clears the window, so repeated triggers stay
	// within a one-attempt budget.
	for i := 0; i < 3; i++ {
		if w := f.do("POST", "/api/v1/etl/run", ""); w.Code != http.StatusOK {
			t.Fatalf("trigger %d: status = %d, want 200", i+1, w.Code)
		}
	}
}

func TestHandleHealth_OK(t *testing.T) {
	f := newHandlerFixture(nil)
	f.store.snapshots = 3
	f.store.views24h = 1200

	w := f.do("GET", "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var payload map[string]interface{}
	resp := decodeData(t, w, &payload)
	if !resp.Success {
		t.Fatal("expected success envelope")
	}
	if payload["status"] != "ok" || payload["database"] != "up" {
		t.Errorf("health = %v, want status ok and database up", payload)
	}
	if payload["snapshots"] != float64(3) {
		t.Errorf("snapshots = %v, want 3", payload["snapshots"])
	}
	if payload["views_24h"] != float64(1200) {
		t.Errorf("views_24h = %v, want 1200", payload["views_24h"])
	}
}

func TestHandleHealth_DegradedWhenDatabaseDown(t *testing.T) {
	f := newHandlerFixture(nil)
	f.store.pingErr = fmt.Errorf("connection refused")

	w := f.do("GET", "/api/v1/health", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if resp.Success {
		t.Error("expected error envelope")
	}
	details, ok := resp.Error.Details.(map[string]interface{})
	if !ok {
		t.Fatalf("details = %T, want object", resp.Error.Details)
	}
	if details["status"] != "degraded" || details["database"] != "down" {
		t.Errorf("details = %v, want degraded/down", details)
	}
}

func TestRouter_UnknownEndpoint(t *testing.T) {
	f := newHandlerFixture(nil)

	w := f.do("GET", "/api/v1/nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if resp.Error == nil || resp.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v, want code %s", resp.Error, ErrCodeNotFound)
	}
}

func TestRouter_ResponsesCarryRequestID(t *testing.T) {
	f := newHandlerFixture(nil)

	r := httptest.NewRequest("GET", "/api/v1/health", nil)
	r.Header.Set("X-Request-ID", "req-abc-123")
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)

	if got := w.Header().Get("X-Request-ID"); got != "req-abc-123" {
		t.Errorf("X-Request-ID header = %q, want upstream value echoed", got)
	}
	var payload map[string]interface{}
	resp := decodeData(t, w, &payload)
	if resp.Meta == nil || resp.Meta.RequestID != "req-abc-123" {
		t.Errorf("meta request_id = %+v, want req-abc-123", resp.Meta)
	}
}
