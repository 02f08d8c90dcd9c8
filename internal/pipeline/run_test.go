package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgallion1/bookdigest/internal/book"
)

func TestRunLifecycle(t *testing.T) {
	r := newRun("r1", "d1", ModeSummary, nil)
	r.setGroups([]Group{{ID: "g1", ChapterIDs: []string{"c1"}, Titles: []string{"One"}}})
	r.setStage(StatusProcessing, "grouped", 20)
	r.setProgress(10)
	if got := r.Snapshot().Progress; got != 20 {
		t.Errorf("progress must not decrease, got %d", got)
	}
	r.setProgress(150)
	if got := r.Snapshot().Progress; got != 99 {
		t.Errorf("progress before completion is capped at 99, got %d", got)
	}

	r.setGroupLoading(0)
	if !r.Snapshot().Groups[0].IsLoading {
		t.Error("group should be loading")
	}
	r.setGroupResult(0, "text", nil, false, 50)
	r.complete(&Result{Connections: "c"})

	snap := r.Snapshot()
	if snap.Status != StatusCompleted || snap.Progress != 100 {
		t.Fatalf("unexpected final state %s %d", snap.Status, snap.Progress)
	}
	if snap.Result == nil || len(snap.Result.Groups) != 1 || snap.Result.Groups[0].Summary != "text" {
		t.Fatalf("result missing groups: %+v", snap.Result)
	}

	// Terminal runs ignore further transitions.
	r.fail(errors.New("late"))
	if got := r.Snapshot(); got.Status != StatusCompleted || got.Error != "" {
		t.Errorf("terminal run changed: %s %q", got.Status, got.Error)
	}
}

func TestRunSnapshotIsolation(t *testing.T) {
	r := newRun("r1", "d1", ModeSummary, nil)
	r.setGroups([]Group{{ID: "g1", ChapterIDs: []string{"c1"}}})

	snap := r.Snapshot()
	snap.Groups[0].ChapterIDs[0] = "mutated"
	if r.Snapshot().Groups[0].ChapterIDs[0] != "c1" {
		t.Error("snapshot shares memory with the run")
	}
}

func TestRunFailAndCancelErrorText(t *testing.T) {
	failed := newRun("r1", "d1", ModeSummary, nil)
	failed.setGroups([]Group{{ID: "g1"}})
	failed.setGroupLoading(0)
	failed.fail(errors.New("backend down"))
	snap := failed.Snapshot()
	if snap.Status != StatusFailed || snap.Error != "backend down" || snap.Groups[0].IsLoading {
		t.Errorf("unexpected failed snapshot %+v", snap)
	}

	cancelled := newRun("r2", "d1", ModeSummary, nil)
	cancelled.markCancelled()
	if snap := cancelled.Snapshot(); snap.Status != StatusCancelled || snap.Error != "" {
		t.Errorf("unexpected cancelled snapshot %+v", snap)
	}
}

func TestRunWaitHonorsContext(t *testing.T) {
	r := newRun("r1", "d1", ModeSummary, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := r.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline, got %v", err)
	}
}

func TestRunStoreCleanup(t *testing.T) {
	s := NewRunStore(time.Minute)
	old := newRun("old", "d1", ModeSummary, nil)
	old.complete(&Result{})
	old.updatedAt = time.Now().Add(-2 * time.Minute)
	active := newRun("active", "d1", ModeSummary, nil)
	active.updatedAt = time.Now().Add(-2 * time.Minute)
	s.Put(old)
	s.Put(active)

	if n := s.Cleanup(); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if s.Get("old") != nil {
		t.Error("finished run should be evicted")
	}
	if s.Get("active") == nil {
		t.Error("unfinished run must be kept")
	}
}

func TestDocumentStoreCleanup(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewDocumentStore(time.Hour)
	s.now = func() time.Time { return now }

	s.Put(&book.Document{ID: "a"})
	s.Put(&book.Document{ID: "b"})
	now = now.Add(50 * time.Minute)
	if s.Get("a") == nil {
		t.Fatal("document a missing")
	}
	now = now.Add(20 * time.Minute)

	if n := s.Cleanup(); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if s.Get("a") == nil || s.Get("b") != nil {
		t.Error("access should refresh the TTL")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d", s.Len())
	}
}

func TestRunIDsAreUniqueAndOrdered(t *testing.T) {
	prev := ""
	for i := 0; i < 1000; i++ {
		id := newRunID()
		if len(id) != 26 {
			t.Fatalf("unexpected id %q", id)
		}
		if id <= prev {
			t.Fatalf("ids not increasing: %q then %q", prev, id)
		}
		prev = id
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeSummary {
		t.Errorf("empty mode = %q, %v", m, err)
	}
	if m, err := ParseMode("combined-mindmap"); err != nil || m != ModeCombinedMindMap {
		t.Errorf("combined mode = %q, %v", m, err)
	}
	if _, err := ParseMode("poster"); err == nil {
		t.Error("expected error")
	}
}
