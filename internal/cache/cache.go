// Package cache stores stage outputs keyed by document, stage kind and
// processing group.
package cache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgallion1/bookdigest/internal/artifact"
)

// Kind names a pipeline stage whose output is cached.
type Kind string

const (
	KindSummary               Kind = "summary"
	KindMindMap               Kind = "mindmap"
	KindConnections           Kind = "connections"
	KindOverallSummary        Kind = "overall_summary"
	KindCharacterRelationship Kind = "character_relationship"
	KindCombinedMindMap       Kind = "combined_mindmap"
	KindMergedMindMap         Kind = "merged_mindmap"

	// KindAll selects every kind in Invalidate.
	KindAll Kind = "all"
)

var kinds = []Kind{
	KindSummary, KindMindMap,
	KindConnections, KindOverallSummary, KindCharacterRelationship,
	KindCombinedMindMap, KindMergedMindMap,
}

// Kinds lists the concrete cache kinds.
func Kinds() []Kind { return slices.Clone(kinds) }

// PerGroup reports whether entries of k are keyed by group id.
func (k Kind) PerGroup() bool {
	return k == KindSummary || k == KindMindMap
}

// ParseKind validates a kind name. "all" is accepted.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if k == KindAll || slices.Contains(kinds, k) {
		return k, nil
	}
	return "", fmt.Errorf("unknown cache kind %q", s)
}

// Key addresses one cache entry.
type Key struct {
	DocID   string
	Kind    Kind
	GroupID string
}

// ErrInvalidKey is returned for keys that cannot address an entry.
var ErrInvalidKey = errors.New("invalid cache key")

// Normalize drops the group id from whole-book kinds and validates the rest.
func (k Key) Normalize() (Key, error) {
	if k.DocID == "" {
		return k, fmt.Errorf("%w: empty document id", ErrInvalidKey)
	}
	if !slices.Contains(kinds, k.Kind) {
		return k, fmt.Errorf("%w: kind %q", ErrInvalidKey, k.Kind)
	}
	if !k.Kind.PerGroup() {
		k.GroupID = ""
	} else if k.GroupID == "" {
		return k, fmt.Errorf("%w: %s requires a group id", ErrInvalidKey, k.Kind)
	}
	return k, nil
}

func (k Key) String() string {
	if k.GroupID == "" {
		return k.DocID + "/" + string(k.Kind)
	}
	return k.DocID + "/" + string(k.Kind) + "/" + k.GroupID
}

// Entry is one cached stage result. Members lists the chapter ids the entry
// was computed from; a mismatch against the current group marks it stale.
type Entry struct {
	Text      string            `json:"text,omitempty"`
	MindMap   *artifact.MindMap `json:"mindmap,omitempty"`
	Members   []string          `json:"members,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Matches reports whether the entry was built from exactly members.
// Entries without recorded members always match.
func (e Entry) Matches(members []string) bool {
	if len(e.Members) == 0 {
		return true
	}
	return slices.Equal(e.Members, members)
}

// Store is the cache backend. Set overwrites. Invalidate with KindAll removes
// every entry of the document and returns the number removed.
type Store interface {
	Get(ctx context.Context, key Key) (Entry, bool, error)
	Set(ctx context.Context, key Key, e Entry) error
	Invalidate(ctx context.Context, docID string, kind Kind) (int, error)
	InvalidateGroup(ctx context.Context, docID string, kind Kind, groupID string) (bool, error)
	Close() error
}
