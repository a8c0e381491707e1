package services_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/vilaw/vilaw-web/internal/models"
	"github.com/vilaw/vilaw-web/internal/services"
)

func TestBoltDBSessions(t *testing.T) {
	db, err := services.NewBoltDB(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("NewBoltDB() error = %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	started := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

	var keys []string
	for i, id := range []string{"a", "b", "c"} {
		key, err := db.AddSession(ctx, models.SessionRecord{
			ID:        id,
			Backend:   "vilaw",
			State:     "awaiting_first_chunk",
			StartedAt: started.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("AddSession(%s) error = %v", id, err)
		}
		keys = append(keys, key)
	}

	err = db.UpdateSession(ctx, keys[1], models.SessionRecord{
		ID:        "b",
		Backend:   "vilaw",
		State:     "failed",
		Error:     "connection failed: EOF",
		StartedAt: started.Add(time.Second),
		EndedAt:   started.Add(2 * time.Second),
	})
	if err != nil {
		t.Fatalf("UpdateSession() error = %v", err)
	}
	if err := db.UpdateSession(ctx, "missing", models.SessionRecord{ID: "x"}); err != nil {
		t.Fatalf("UpdateSession() of a missing key error = %v", err)
	}

	recs, err := db.Sessions(ctx, 0)
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("Sessions() returned %d records, want 3", len(recs))
	}
	for i, want := range []string{"c", "b", "a"} {
		if recs[i].ID != want {
			t.Errorf("Sessions()[%d].ID = %q, want %q", i, recs[i].ID, want)
		}
	}
	if recs[1].State != "failed" || recs[1].Error == "" {
		t.Errorf("updated record = %+v", recs[1])
	}

	recs, err = db.Sessions(ctx, 2)
	if err != nil {
		t.Fatalf("Sessions(2) error = %v", err)
	}
	if len(recs) != 2 || recs[0].ID != "c" {
		t.Errorf("Sessions(2) = %+v", recs)
	}
}
