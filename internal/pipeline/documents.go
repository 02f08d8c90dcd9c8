package pipeline

import (
	"sync"
	"time"

	"github.com/dgallion1/bookdigest/internal/book"
)

type docEntry struct {
	doc      *book.Document
	lastSeen time.Time
}

// DocumentStore keeps loaded books in memory, evicting those not accessed
// within the TTL.
type DocumentStore struct {
	mu   sync.Mutex
	docs map[string]*docEntry
	ttl  time.Duration
	now  func() time.Time
}

func NewDocumentStore(ttl time.Duration) *DocumentStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DocumentStore{docs: make(map[string]*docEntry), ttl: ttl, now: time.Now}
}

// Put stores doc, replacing any document with the same id.
func (s *DocumentStore) Put(doc *book.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = &docEntry{doc: doc, lastSeen: s.now()}
}

// Get returns the document and refreshes its TTL.
func (s *DocumentStore) Get(id string) *book.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.docs[id]
	if !ok {
		return nil
	}
	e.lastSeen = s.now()
	return e.doc
}

func (s *DocumentStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// Cleanup removes expired documents.
func (s *DocumentStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, e := range s.docs {
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.docs, id)
			removed++
		}
	}
	return removed
}
