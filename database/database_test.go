package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func newTestManager(t *testing.T, opts ...Option) *DatabaseManager {
	t.Helper()
	dm, err := NewDatabaseManager(filepath.Join(t.TempDir(), "test.db"), opts...)
	if err != nil {
		t.Fatalf("Failed to create database manager: %v", err)
	}
	t.Cleanup(func() { dm.Close() })
	return dm
}

// TestDatabaseManager tests database initialization and schema creation
func TestDatabaseManager(t *testing.T) {
	dm := newTestManager(t)

	version, err := GetSchemaVersion(dm.DB)
	if err != nil {
		t.Fatalf("Failed to get schema version: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("Expected schema version %d, got %d", SchemaVersion, version)
	}

	stats, err := dm.GetStats()
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats.DislikeCount != 0 {
		t.Errorf("Expected 0 dislikes, got %d", stats.DislikeCount)
	}
	if stats.LastDislikeAt != nil {
		t.Errorf("Expected no last dislike time, got %v", stats.LastDislikeAt)
	}
}

// TestSchemaIdempotency tests that schema creation is idempotent
func TestSchemaIdempotency(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		db, err := sql.Open("sqlite", dbPath)
		if err != nil {
			t.Fatalf("Failed to open database: %v", err)
		}

		if err := InitSchema(db, nil); err != nil {
			t.Fatalf("Failed to initialize schema on iteration %d: %v", i, err)
		}

		version, err := GetSchemaVersion(db)
		if err != nil {
			t.Fatalf("Failed to get schema version: %v", err)
		}
		if version != SchemaVersion {
			t.Errorf("Expected schema version %d, got %d", SchemaVersion, version)
		}

		db.Close()
	}
}

func TestMigrateDown(t *testing.T) {
	dm := newTestManager(t)
	ctx := context.Background()

	if err := dm.Set(ctx, KindTrack, Track{URI: "spotify:track:a", Name: "A"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := MigrateDown(dm.DB, 1, nil); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}
	version, _ := GetSchemaVersion(dm.DB)
	if version != 1 {
		t.Errorf("Expected version 1 after rollback, got %d", version)
	}

	// Data written before the rollback survives in the version 1 table
	var n int
	if err := dm.DB.QueryRow("SELECT COUNT(*) FROM dislikes").Scan(&n); err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 row after rollback, got %d", n)
	}

	if err := MigrateDown(dm.DB, 1, nil); err == nil {
		t.Error("Expected error when target is not below current version")
	}

	if err := MigrateUp(dm.DB, nil); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	disliked, err := dm.IsDisliked(ctx, Track{URI: "spotify:track:a"})
	if err != nil || !disliked {
		t.Errorf("Expected record after migrating up again, got %v, %v", disliked, err)
	}
}

func TestSetUnsetIsDisliked(t *testing.T) {
	dm := newTestManager(t)
	ctx := context.Background()

	tracks := []Track{
		{URI: "spotify:track:1", Name: "One"},
		{URI: "spotify:track:2", Name: "Two"},
		{URI: "spotify:track:3", Name: ""},
	}

	for _, tr := range tracks {
		disliked, err := dm.IsDisliked(ctx, tr)
		if err != nil {
			t.Fatalf("IsDisliked failed: %v", err)
		}
		if disliked {
			t.Errorf("Track %s should not be disliked yet", tr.URI)
		}

		if err := dm.Set(ctx, KindTrack, tr); err != nil {
			t.Fatalf("Set(%s) failed: %v", tr.URI, err)
		}
		disliked, err = dm.IsDisliked(ctx, tr)
		if err != nil || !disliked {
			t.Errorf("Track %s should be disliked after Set, got %v (%v)", tr.URI, disliked, err)
		}

		if err := dm.Unset(ctx, KindTrack, tr.URI); err != nil {
			t.Fatalf("Unset(%s) failed: %v", tr.URI, err)
		}
		disliked, err = dm.IsDisliked(ctx, tr)
		if err != nil || disliked {
			t.Errorf("Track %s should not be disliked after Unset, got %v (%v)", tr.URI, disliked, err)
		}
	}
}

func TestSetIsIdempotent(t *testing.T) {
	var now int64 = 1_700_000_000
	dm := newTestManager(t, WithNow(func() time.Time { return time.Unix(now, 0) }))
	ctx := context.Background()

	track := Track{URI: "spotify:track:x", Name: "Old name"}
	if err := dm.Set(ctx, KindTrack, track); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	now += 60
	track.Name = "New name"
	if err := dm.Set(ctx, KindTrack, track); err != nil {
		t.Fatalf("Second Set failed: %v", err)
	}

	count, err := dm.Count(ctx, "")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 record after repeated Set, got %d", count)
	}

	e, err := dm.Get(ctx, KindTrack, track.URI)
	if err != nil || e == nil {
		t.Fatalf("Get failed: %v, %v", e, err)
	}
	if e.Name != "New name" {
		t.Errorf("Expected refreshed name, got %q", e.Name)
	}
	if e.CreatedAt.Unix() != 1_700_000_000 {
		t.Errorf("Expected creation time kept, got %v", e.CreatedAt.Unix())
	}
	if e.UpdatedAt.Unix() != 1_700_000_060 {
		t.Errorf("Expected updated time bumped, got %v", e.UpdatedAt.Unix())
	}
}

func TestUnsetMissingIsNoop(t *testing.T) {
	dm := newTestManager(t)
	if err := dm.Unset(context.Background(), KindTrack, "spotify:track:missing"); err != nil {
		t.Errorf("Unset of missing record should not fail: %v", err)
	}
}

func TestInvalidEntities(t *testing.T) {
	dm := newTestManager(t)
	ctx := context.Background()

	tests := []struct {
		name string
		kind Kind
		uri  string
	}{
		{"empty uri", KindTrack, ""},
		{"unknown kind", Kind("SONG"), "spotify:track:1"},
		{"empty kind", Kind(""), "spotify:track:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dm.Set(ctx, tt.kind, Track{URI: tt.uri})
			if !errors.Is(err, ErrInvalidEntity) {
				t.Errorf("Set: expected ErrInvalidEntity, got %v", err)
			}
			err = dm.Unset(ctx, tt.kind, tt.uri)
			if !errors.Is(err, ErrInvalidEntity) {
				t.Errorf("Unset: expected ErrInvalidEntity, got %v", err)
			}
		})
	}

	disliked, err := dm.IsDisliked(ctx, Track{})
	if err != nil || disliked {
		t.Errorf("Empty track should never be disliked, got %v (%v)", disliked, err)
	}
}

func TestStoreFailureIsWrapped(t *testing.T) {
	dm := newTestManager(t)
	dm.Close()

	_, err := dm.IsDisliked(context.Background(), Track{URI: "spotify:track:1"})
	if !errors.Is(err, ErrStore) {
		t.Errorf("Expected ErrStore after close, got %v", err)
	}
	if _, err := dm.Find(context.Background(), 10, 1, ""); !errors.Is(err, ErrStore) {
		t.Errorf("Expected ErrStore from Find after close, got %v", err)
	}
}

func TestGetMissing(t *testing.T) {
	dm := newTestManager(t)
	e, err := dm.Get(context.Background(), KindTrack, "spotify:track:none")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if e != nil {
		t.Errorf("Expected nil entity, got %+v", e)
	}
}

func TestStatsAndVacuum(t *testing.T) {
	dm := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		tr := Track{URI: fmt.Sprintf("spotify:track:%d", i), Name: fmt.Sprintf("Track %d", i)}
		if err := dm.Set(ctx, KindTrack, tr); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	stats, err := dm.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.DislikeCount != 5 {
		t.Errorf("Expected 5 dislikes, got %d", stats.DislikeCount)
	}
	if stats.KindCounts[KindTrack] != 5 {
		t.Errorf("Expected 5 TRACK dislikes, got %d", stats.KindCounts[KindTrack])
	}
	if stats.LastDislikeAt == nil {
		t.Error("Expected last dislike time")
	}
	if stats.SchemaVersion != SchemaVersion {
		t.Errorf("Expected schema version %d, got %d", SchemaVersion, stats.SchemaVersion)
	}
	if stats.DatabaseSize <= 0 {
		t.Errorf("Expected positive database size, got %d", stats.DatabaseSize)
	}

	if err := dm.Vacuum(); err != nil {
		t.Errorf("Vacuum failed: %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	ctx := context.Background()

	dm, err := NewDatabaseManager(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database manager: %v", err)
	}
	if err := dm.Set(ctx, KindTrack, Track{URI: "spotify:track:keep", Name: "Keep"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	dm.Close()

	dm, err = NewDatabaseManager(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer dm.Close()

	disliked, err := dm.IsDisliked(ctx, Track{URI: "spotify:track:keep"})
	if err != nil || !disliked {
		t.Errorf("Expected record to survive reopen, got %v (%v)", disliked, err)
	}
}
