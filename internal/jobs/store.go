// Package jobs keeps the URL lists submitted for each scrape job until
// the pipeline consumes them. This is transient session state, not a
// durable record; job progress and articles live in the record store.
package jobs

import (
	"sync"

	"github.com/regscope/regscope/internal/models"
)

// URLStore maps job IDs to their submitted URL items.
type URLStore struct {
	mu   sync.RWMutex
	urls map[string][]models.URLItem
}

// NewURLStore builds an empty store.
func NewURLStore() *URLStore {
	return &URLStore{urls: map[string][]models.URLItem{}}
}

// Put stores the URL list for a job, replacing any previous list.
func (s *URLStore) Put(jobID string, items []models.URLItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls[jobID] = items
}

// Get returns the URL list for a job.
func (s *URLStore) Get(jobID string) ([]models.URLItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items, ok := s.urls[jobID]
	return items, ok
}

// Clear removes a job's URL list once the pipeline has finished with it.
func (s *URLStore) Clear(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.urls, jobID)
}
