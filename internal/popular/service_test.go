// VidPulse - Geo-Aware Trending Analytics for Short Video
// Copyright 2026 VidPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vidpulse/vidpulse

package popular

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vidpulse/vidpulse/internal/database"
	"github.com/vidpulse/vidpulse/internal/models"
)

type fakeCatalog struct {
	videos map[int64]*models.Video
}

func (f *fakeCatalog) GetVideo(_ context.Context, id int64) (*models.Video, error) {
	v, ok := f.videos[id]
	if !ok {
		return nil, database.ErrVideoNotFound
	}
	return v, nil
}

type fakeSnapshotStore struct {
	snap  *models.PopularitySnapshot
	err   error
	loads int
}

func (f *fakeSnapshotStore) GetLatestSnapshot(_ context.Context) (*models.PopularitySnapshot, error) {
	f.loads++
	return f.snap, f.err
}

func testSnapshot() *models.PopularitySnapshot {
	return &models.PopularitySnapshot{
		ID:         "snap-1",
		ComputedAt: time.Date(2026, 8, 30, 2, 0, 0, 0, time.UTC),
		Entries: []models.SnapshotEntry{
			{Rank: 1, VideoID: 1, Score: 80},
			{Rank: 2, VideoID: 2, Score: 70},
			{Rank: 3, VideoID: 3, Score: 10},
		},
		IsLatest: true,
	}
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{videos: map[int64]*models.Video{
		1: {ID: 1, Title: "first"},
		2: {ID: 2, Title: "second"},
		3: {ID: 3, Title: "third"},
	}}
}

func TestGetTopVideos_NoSnapshotYet(t *testing.T) {
	svc := New(testCatalog(), &fakeSnapshotStore{})

	snap, entries, err := svc.GetTopVideos(context.Background())
	if err != nil {
		t.Fatalf("GetTopVideos: %v", err)
	}
	if snap != nil || entries != nil {
		t.Errorf("Expected nil results before the first run, got %v / %v", snap, entries)
	}
}

func TestGetTopVideos_HydratesFromStore(t *testing.T) {
	store := &fakeSnapshotStore{snap: testSnapshot()}
	svc := New(testCatalog(), store)

	snap, entries, err := svc.GetTopVideos(context.Background())
	if err != nil {
		t.Fatalf("GetTopVideos: %v", err)
	}
	if snap.ID != "snap-1" {
		t.Errorf("Expected snapshot snap-1, got %s", snap.ID)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[0].Video.Title != "first" || entries[0].Rank != 1 {
		t.Errorf("Unexpected first entry: %+v", entries[0])
	}

	// Second read hits the cache, not the store.
	if _, _, err := svc.GetTopVideos(context.Background()); err != nil {
		t.Fatal(err)
	}
	if store.loads != 1 {
		t.Errorf("Expected 1 store load, got %d", store.loads)
	}
}

func TestGetTopVideos_SkipsDeletedVideos(t *testing.T) {
	catalog := testCatalog()
	delete(catalog.videos, 2)
	svc := New(catalog, &fakeSnapshotStore{snap: testSnapshot()})

	_, entries, err := svc.GetTopVideos(context.Background())
	if err != nil {
		t.Fatalf("GetTopVideos: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected deleted video skipped, got %d entries", len(entries))
	}
	if entries[0].Video.ID != 1 || entries[1].Video.ID != 3 {
		t.Errorf("Unexpected surviving entries: %+v", entries)
	}
}

func TestSetLatest_SwapsCache(t *testing.T) {
	store := &fakeSnapshotStore{snap: testSnapshot()}
	svc := New(testCatalog(), store)

	if _, _, err := svc.GetTopVideos(context.Background()); err != nil {
		t.Fatal(err)
	}

	fresh := testSnapshot()
	fresh.ID = "snap-2"
	fresh.Entries = fresh.Entries[:1]
	svc.SetLatest(fresh)

	snap, entries, err := svc.GetTopVideos(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.ID != "snap-2" || len(entries) != 1 {
		t.Errorf("Expected swapped snapshot snap-2 with 1 entry, got %s with %d", snap.ID, len(entries))
	}
	if store.loads != 1 {
		t.Errorf("SetLatest should not cause store loads, got %d", store.loads)
	}
}

func TestGetTopVideos_StoreFailure(t *testing.T) {
	svc := New(testCatalog(), &fakeSnapshotStore{err: errors.New("database down")})

	if _, _, err := svc.GetTopVideos(context.Background()); err == nil {
		t.Error("Expected error when the snapshot load fails")
	}
}
