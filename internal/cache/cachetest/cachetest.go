// Package cachetest holds behaviour checks shared by every cache.Store.
package cachetest

import (
	"context"
	"errors"
	"testing"

	"github.com/dgallion1/bookdigest/internal/artifact"
	"github.com/dgallion1/bookdigest/internal/cache"
)

// Run exercises st. The store must start empty.
func Run(t *testing.T, st cache.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		_, ok, err := st.Get(ctx, cache.Key{DocID: "doc-miss", Kind: cache.KindConnections})
		if err != nil || ok {
			t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("set overwrites", func(t *testing.T) {
		key := cache.Key{DocID: "doc-a", Kind: cache.KindSummary, GroupID: "g1"}
		if err := st.Set(ctx, key, cache.Entry{Text: "first", Members: []string{"c1"}}); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if err := st.Set(ctx, key, cache.Entry{Text: "second", Members: []string{"c1", "c2"}}); err != nil {
			t.Fatalf("Set: %v", err)
		}
		got, ok, err := st.Get(ctx, key)
		if err != nil || !ok {
			t.Fatalf("Get: ok=%v err=%v", ok, err)
		}
		if got.Text != "second" || len(got.Members) != 2 {
			t.Errorf("expected overwritten entry, got %+v", got)
		}
		if got.UpdatedAt.IsZero() {
			t.Error("expected UpdatedAt to be stamped")
		}
	})

	t.Run("whole-book kinds ignore group", func(t *testing.T) {
		if err := st.Set(ctx, cache.Key{DocID: "doc-a", Kind: cache.KindOverallSummary, GroupID: "ignored"}, cache.Entry{Text: "book"}); err != nil {
			t.Fatalf("Set: %v", err)
		}
		got, ok, err := st.Get(ctx, cache.Key{DocID: "doc-a", Kind: cache.KindOverallSummary})
		if err != nil || !ok || got.Text != "book" {
			t.Fatalf("expected whole-book hit, got %+v ok=%v err=%v", got, ok, err)
		}
	})

	t.Run("mind map round trip", func(t *testing.T) {
		m := &artifact.MindMap{NodeData: &artifact.Node{ID: "root", Topic: "T", Children: []*artifact.Node{{ID: "1", Topic: "a"}}}}
		key := cache.Key{DocID: "doc-a", Kind: cache.KindMindMap, GroupID: "g1"}
		if err := st.Set(ctx, key, cache.Entry{MindMap: m}); err != nil {
			t.Fatalf("Set: %v", err)
		}
		got, ok, err := st.Get(ctx, key)
		if err != nil || !ok || got.MindMap == nil || got.MindMap.NodeData.Children[0].Topic != "a" {
			t.Fatalf("unexpected mind map entry %+v ok=%v err=%v", got, ok, err)
		}
	})

	t.Run("invalid keys", func(t *testing.T) {
		bad := []cache.Key{
			{Kind: cache.KindSummary, GroupID: "g"},
			{DocID: "d", Kind: cache.KindSummary},
			{DocID: "d", Kind: "bogus"},
			{DocID: "d", Kind: cache.KindAll},
		}
		for _, k := range bad {
			if err := st.Set(ctx, k, cache.Entry{Text: "x"}); !errors.Is(err, cache.ErrInvalidKey) {
				t.Errorf("Set(%+v): expected ErrInvalidKey, got %v", k, err)
			}
		}
	})

	t.Run("invalidate group", func(t *testing.T) {
		key := cache.Key{DocID: "doc-b", Kind: cache.KindSummary, GroupID: "g9"}
		if err := st.Set(ctx, key, cache.Entry{Text: "x"}); err != nil {
			t.Fatalf("Set: %v", err)
		}
		removed, err := st.InvalidateGroup(ctx, "doc-b", cache.KindSummary, "g9")
		if err != nil || !removed {
			t.Fatalf("InvalidateGroup: removed=%v err=%v", removed, err)
		}
		removed, err = st.InvalidateGroup(ctx, "doc-b", cache.KindSummary, "g9")
		if err != nil || removed {
			t.Fatalf("second InvalidateGroup: removed=%v err=%v", removed, err)
		}
	})

	t.Run("invalidate by kind and all", func(t *testing.T) {
		doc := "doc-c"
		seed := []cache.Key{
			{DocID: doc, Kind: cache.KindSummary, GroupID: "g1"},
			{DocID: doc, Kind: cache.KindSummary, GroupID: "g2"},
			{DocID: doc, Kind: cache.KindConnections},
			{DocID: doc, Kind: cache.KindOverallSummary},
			{DocID: "other", Kind: cache.KindSummary, GroupID: "g1"},
		}
		for _, k := range seed {
			if err := st.Set(ctx, k, cache.Entry{Text: "x"}); err != nil {
				t.Fatalf("Set: %v", err)
			}
		}
		n, err := st.Invalidate(ctx, doc, cache.KindSummary)
		if err != nil || n != 2 {
			t.Fatalf("Invalidate summary: n=%d err=%v", n, err)
		}
		n, err = st.Invalidate(ctx, doc, cache.KindAll)
		if err != nil || n != 2 {
			t.Fatalf("Invalidate all: n=%d err=%v", n, err)
		}
		if _, ok, _ := st.Get(ctx, seed[4]); !ok {
			t.Error("other document's entry must survive")
		}
		if _, err := st.Invalidate(ctx, doc, "bogus"); err == nil {
			t.Error("expected error for unknown kind")
		}
	})
}
