package main

import (
	"context"
	"github.com/myrjola/whodunit/internal/interrogation"
	"log/slog"
	"sync"
	"time"
)

// caseIDSessionKey binds a browser session to its case.
const caseIDSessionKey = "caseID"

type registeredCase struct {
	engine   *interrogation.Engine
	lastUsed time.Time
}

// caseRegistry holds the cases in progress keyed by case ID. The session only stores the ID because the engine
// holds live state such as the per-suspect locks.
//
// Cases idle for longer than maxIdle are evicted by the sweeper. maxIdle matches the session idle timeout so that a
// case outlives every session that can still reach it.
type caseRegistry struct {
	mu      sync.Mutex
	cases   map[string]*registeredCase
	maxIdle time.Duration
	now     func() time.Time
}

func newCaseRegistry(maxIdle time.Duration) *caseRegistry {
	return &caseRegistry{
		mu:      sync.Mutex{},
		cases:   make(map[string]*registeredCase),
		maxIdle: maxIdle,
		now:     time.Now,
	}
}

// get returns the case and marks it as used.
func (r *caseRegistry) get(id string) (*interrogation.Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rc, ok := r.cases[id]
	if !ok {
		return nil, false
	}
	rc.lastUsed = r.now()
	return rc.engine, true
}

func (r *caseRegistry) put(engine *interrogation.Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cases[engine.Case().ID()] = &registeredCase{engine: engine, lastUsed: r.now()}
}

func (r *caseRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cases, id)
}

func (r *caseRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cases)
}

// evictIdle removes the cases not used within maxIdle and returns how many were removed.
func (r *caseRegistry) evictIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	deadline := r.now().Add(-r.maxIdle)
	evicted := 0
	for id, rc := range r.cases {
		if rc.lastUsed.Before(deadline) {
			delete(r.cases, id)
			evicted++
		}
	}
	return evicted
}

// sweep evicts idle cases every interval until ctx is done.
func (r *caseRegistry) sweep(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	logger = logger.With(slog.String("source", "cases"))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := r.evictIdle(); evicted > 0 {
				logger.LogAttrs(ctx, slog.LevelInfo, "evicted idle cases",
					slog.Int("evicted", evicted), slog.Int("remaining", r.count()))
			}
		}
	}
}
