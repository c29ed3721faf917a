// Package memory provides an in-memory run store for development and
// tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/placescout/placescout/internal/scout"
)

// RunStore keeps runs and their results in process memory.
type RunStore struct {
	mu      sync.RWMutex
	runs    map[string]scout.Run
	results map[string]*scout.RunResult
	order   []string
}

// NewRunStore constructs an empty RunStore.
func NewRunStore() *RunStore {
	return &RunStore{
		runs:    make(map[string]scout.Run),
		results: make(map[string]*scout.RunResult),
	}
}

// CreateRun registers a new run. The ID must be unused.
func (s *RunStore) CreateRun(_ context.Context, run scout.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	s.runs[run.ID] = run
	s.order = append(s.order, run.ID)
	return nil
}

// UpdateRunStatus transitions a run's status.
func (s *RunStore) UpdateRunStatus(_ context.Context, id string, status scout.RunStatus, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return scout.ErrRunNotFound
	}
	run.Status = status
	run.ErrorText = errText
	s.runs[id] = run
	return nil
}

// CompleteRun records the terminal status and, when present, the result.
func (s *RunStore) CompleteRun(_ context.Context, id string, status scout.RunStatus, errText string, result *scout.RunResult, duration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return scout.ErrRunNotFound
	}
	now := time.Now().UTC()
	run.Status = status
	run.ErrorText = errText
	run.FinishedAt = &now
	run.DurationMs = duration.Milliseconds()
	if result != nil {
		run.ResultCount = result.TotalResults
		s.results[id] = result
	}
	s.runs[id] = run
	return nil
}

// GetRun fetches a run by ID.
func (s *RunStore) GetRun(_ context.Context, id string) (scout.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return scout.Run{}, scout.ErrRunNotFound
	}
	return run, nil
}

// GetRunResult fetches a completed run's result. A known run without a
// result yet returns nil.
func (s *RunStore) GetRunResult(_ context.Context, id string) (*scout.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.runs[id]; !ok {
		return nil, scout.ErrRunNotFound
	}
	return s.results[id], nil
}

// ListRuns returns up to limit runs, newest first.
func (s *RunStore) ListRuns(_ context.Context, limit int) ([]scout.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.order) {
		limit = len(s.order)
	}
	runs := make([]scout.Run, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(runs) < limit; i-- {
		runs = append(runs, s.runs[s.order[i]])
	}
	return runs, nil
}
