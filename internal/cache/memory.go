package cache

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Memory is an in-process Store for tests and the CLI's --no-cache mode.
type Memory struct {
	mu      sync.RWMutex
	entries map[Key]Entry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[Key]Entry), now: time.Now}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Get(ctx context.Context, key Key) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}
	key, err := key.Normalize()
	if err != nil {
		return Entry{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	return copyEntry(e), true, nil
}

func (m *Memory) Set(ctx context.Context, key Key, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := key.Normalize()
	if err != nil {
		return err
	}
	e = copyEntry(e)
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = m.now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = e
	return nil
}

func (m *Memory) Invalidate(ctx context.Context, docID string, kind Kind) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if _, err := ParseKind(string(kind)); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for k := range m.entries {
		if k.DocID == docID && (kind == KindAll || k.Kind == kind) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) InvalidateGroup(ctx context.Context, docID string, kind Kind, groupID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key, err := Key{DocID: docID, Kind: kind, GroupID: groupID}.Normalize()
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	delete(m.entries, key)
	return ok, nil
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func copyEntry(e Entry) Entry {
	e.Members = slices.Clone(e.Members)
	if e.MindMap != nil {
		e.MindMap = e.MindMap.Clone()
	}
	return e
}
