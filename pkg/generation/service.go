package generation

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/modelforge/modelforge/pkg/cache"
	"github.com/modelforge/modelforge/pkg/models"
)

// Service is the top-level generation controller: it owns the per-user
// result slots and runs the validate → build → dispatch → commit flow.
// Session state is explicit here instead of living in ambient globals.
type Service struct {
	dispatcher *Dispatcher
	enhancer   *PromptEnhancer
	cache      *cache.Client

	mu    sync.Mutex
	slots map[int]*ResultSlot
}

// NewService creates the generation service. cache may be nil in tests;
// it is only used for daily stats counters.
func NewService(dispatcher *Dispatcher, enhancer *PromptEnhancer, cache *cache.Client) *Service {
	return &Service{
		dispatcher: dispatcher,
		enhancer:   enhancer,
		cache:      cache,
		slots:      make(map[int]*ResultSlot),
	}
}

// Slot returns the result slot for a user, creating it on first use.
func (s *Service) Slot(userID int) *ResultSlot {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[userID]
	if !ok {
		slot = NewResultSlot()
		s.slots[userID] = slot
	}
	return slot
}

// HasRealResult reports whether the user has a non-placeholder model.
func (s *Service) HasRealResult(userID int) bool {
	return s.Slot(userID).HasRealResult()
}

// CurrentResult returns the user's latest result, if any.
func (s *Service) CurrentResult(userID int) (models.GenerationResult, bool) {
	return s.Slot(userID).Current()
}

// ClearSession drops the user's result slot, used on sign-out.
func (s *Service) ClearSession(userID int) {
	s.Slot(userID).Clear()
}

// Generate runs one full generation for a user. Validation failures
// return a zero result and the validation error; nothing is dispatched
// and the slot is untouched. Dispatch failures return the placeholder
// result together with the failure kind. In every dispatched case
// exactly one result is committed to the slot, unless a newer dispatch
// finished first, in which case the stale result is dropped.
func (s *Service) Generate(ctx context.Context, userID int, form models.GenerateForm) (models.GenerationResult, error) {
	req, err := ValidateForm(form)
	if err != nil {
		return models.GenerationResult{}, err
	}

	req.Prompt = s.enhancer.Enhance(ctx, req.Prompt)

	slot := s.Slot(userID)
	seq := slot.Begin()

	payload := BuildPayload(req, userID)
	result, dispatchErr := s.dispatcher.Dispatch(ctx, payload)

	if !slot.Commit(seq, result) {
		log.Printf("⚠️  Dropped stale generation result for user %d (request %s)", userID, payload.RequestID)
		// The newer dispatch owns the slot; report this invocation's
		// outcome to its caller anyway.
	}

	s.recordOutcome(ctx, result)

	return result, dispatchErr
}

// recordOutcome bumps the daily stats counters read by the nightly
// summary job. Best effort.
func (s *Service) recordOutcome(ctx context.Context, result models.GenerationResult) {
	if s.cache == nil {
		return
	}

	day := time.Now().UTC().Format("2006-01-02")
	outcome := "success"
	if result.IsPlaceholder {
		outcome = "placeholder"
	}

	key := fmt.Sprintf("stats:gen:%s:%s", day, outcome)
	if _, err := s.cache.Incr(ctx, key); err != nil {
		log.Printf("⚠️  Failed to record generation stats: %v", err)
	}
}
