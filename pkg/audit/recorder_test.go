package audit

import (
	"context"
	"testing"
	"time"
)

func testEvent(api14 string) Event {
	return Event{
		API14:            api14,
		PolicyID:         "tx-rrc-w3a",
		PolicyVersion:    "2026.1",
		District:         "08a",
		County:           "midland",
		ResolutionMethod: "exact_in_county",
		PolicyComplete:   true,
		StepCount:        5,
	}
}

func TestRecorderStampsAndStores(t *testing.T) {
	storage := NewMemoryStorage()
	recorder := NewRecorder(storage, nil, nil)

	if err := recorder.Record(context.Background(), testEvent("42-329-00001-00-00")); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := recorder.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	events, err := storage.Query(context.Background(), nil)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	e := events[0]
	if e.ID == "" {
		t.Error("missing event id")
	}
	if e.Time.IsZero() || e.Time.Location() != time.UTC {
		t.Errorf("time = %v, want a UTC timestamp", e.Time)
	}
	if e.PayloadHash == "" || len(e.PayloadHash) != 64 {
		t.Errorf("payload hash = %q, want a sha256 hex digest", e.PayloadHash)
	}
}

func TestRecorderDisabled(t *testing.T) {
	storage := NewMemoryStorage()
	recorder := NewRecorder(storage, &RecorderConfig{
		Enabled:      false,
		AsyncBuffer:  10,
		WriteTimeout: time.Second,
	}, nil)

	if err := recorder.Record(context.Background(), testEvent("42-329-00001-00-00")); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	recorder.Close()

	events, _ := storage.Query(context.Background(), nil)
	if len(events) != 0 {
		t.Errorf("disabled recorder stored %d events", len(events))
	}
}

func TestHashExcludesItself(t *testing.T) {
	event := testEvent("42-329-00001-00-00")

	first, err := hashEvent(&event)
	if err != nil {
		t.Fatal(err)
	}
	event.PayloadHash = first
	second, err := hashEvent(&event)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("hash should be stable regardless of the stored hash field")
	}

	event.StepCount++
	changed, _ := hashEvent(&event)
	if changed == first {
		t.Error("hash should change when the payload changes")
	}
}

func TestMemoryStorageQuery(t *testing.T) {
	storage := NewMemoryStorage()
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, api := range []string{"42-1", "42-2", "42-1"} {
		e := testEvent(api)
		e.ID = api
		e.Time = base.Add(time.Duration(i) * time.Hour)
		storage.Store(ctx, &e)
	}

	t.Run("filter by api14", func(t *testing.T) {
		events, err := storage.Query(ctx, &Query{API14: "42-1"})
		if err != nil {
			t.Fatal(err)
		}
		if len(events) != 2 {
			t.Fatalf("got %d events, want 2", len(events))
		}
		if !events[0].Time.After(events[1].Time) {
			t.Error("events not newest first")
		}
	})

	t.Run("time window", func(t *testing.T) {
		events, _ := storage.Query(ctx, &Query{Since: base.Add(90 * time.Minute)})
		if len(events) != 1 {
			t.Errorf("got %d events, want 1", len(events))
		}
	})

	t.Run("limit and offset", func(t *testing.T) {
		events, _ := storage.Query(ctx, &Query{Limit: 1, Offset: 1})
		if len(events) != 1 {
			t.Errorf("got %d events, want 1", len(events))
		}
	})
}

func TestPruner(t *testing.T) {
	storage := NewMemoryStorage()
	ctx := context.Background()

	old := testEvent("42-old")
	old.Time = time.Now().UTC().AddDate(-2, 0, 0)
	storage.Store(ctx, &old)

	fresh := testEvent("42-new")
	fresh.Time = time.Now().UTC()
	storage.Store(ctx, &fresh)

	pruner, err := NewPruner(storage, 365, nil)
	if err != nil {
		t.Fatal(err)
	}

	removed, err := pruner.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	events, _ := storage.Query(ctx, nil)
	if len(events) != 1 || events[0].API14 != "42-new" {
		t.Errorf("surviving events = %v", events)
	}

	if _, err := NewPruner(storage, 0, nil); err == nil {
		t.Error("expected zero retention to be rejected")
	}
}
