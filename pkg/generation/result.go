package generation

import (
	"sync"

	"github.com/modelforge/modelforge/pkg/models"
)

// ResultSlot is the per-session "current result" cell. Rapid repeated
// generate triggers can complete out of order; the slot fences writes
// with a monotonic sequence so a stale completion never overwrites a
// newer result.
type ResultSlot struct {
	mu      sync.Mutex
	nextSeq uint64
	lastSeq uint64
	current *models.GenerationResult
}

// NewResultSlot creates an empty slot.
func NewResultSlot() *ResultSlot {
	return &ResultSlot{}
}

// Begin reserves a sequence number for a dispatch about to start.
func (s *ResultSlot) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	return s.nextSeq
}

// Commit stores the result if seq belongs to the newest dispatch seen so
// far. Returns false when the completion is stale and was dropped.
func (s *ResultSlot) Commit(seq uint64, result models.GenerationResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.lastSeq {
		return false
	}

	s.lastSeq = seq
	r := result
	s.current = &r
	return true
}

// Current returns the latest result, if any.
func (s *ResultSlot) Current() (models.GenerationResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return models.GenerationResult{}, false
	}
	return *s.current, true
}

// HasRealResult reports whether the slot holds a non-placeholder asset.
// The payment gate uses this to decide if there is anything to sell.
func (s *ResultSlot) HasRealResult() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && !s.current.IsPlaceholder
}

// Clear empties the slot, used on sign-out.
func (s *ResultSlot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}
