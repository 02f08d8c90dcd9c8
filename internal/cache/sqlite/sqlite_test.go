package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dgallion1/bookdigest/internal/cache"
	"github.com/dgallion1/bookdigest/internal/cache/cachetest"
)

func TestSQLiteStore(t *testing.T) {
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer st.Close()
	cachetest.Run(t, st)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	st, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	key := cache.Key{DocID: "d1", Kind: cache.KindConnections}
	if err := st.Set(ctx, key, cache.Entry{Text: "links"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	got, ok, err := st.Get(ctx, key)
	if err != nil || !ok || got.Text != "links" {
		t.Fatalf("expected persisted entry, got %+v ok=%v err=%v", got, ok, err)
	}
}
