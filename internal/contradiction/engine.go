// Package contradiction varies a suspect's scripted answer when the detective keeps returning to the same topic.
//
// A guilty suspect's scripted answers drift apart under repeated questioning while an innocent suspect's answers stay
// put. Which list is used is decided by the suspect's guilt when the engine is created.
package contradiction

import (
	"github.com/myrjola/whodunit/internal/errors"
	"github.com/myrjola/whodunit/internal/models"
	"log/slog"
	"slices"
	"sync"
)

var ErrUnknownTopic = errors.NewSentinel("unknown topic")

type key struct {
	suspect string
	topic   string
}

// Engine counts how many times each (suspect, topic) pair has been asked about.
type Engine struct {
	mu       sync.Mutex
	variants map[key][]string
	counts   map[key]int
}

// NewEngine registers the topics of the suspects. Topics without answers for the suspect's guilt are skipped.
func NewEngine(suspects []models.Suspect) *Engine {
	e := &Engine{
		mu:       sync.Mutex{},
		variants: make(map[key][]string),
		counts:   make(map[key]int),
	}
	for _, s := range suspects {
		for _, topic := range s.Topics {
			answers := topic.Answers.Select(s.Guilty)
			if len(answers) == 0 {
				continue
			}
			e.variants[key{suspect: s.Name, topic: topic.Name}] = slices.Clone(answers)
		}
	}
	return e
}

// Has reports whether the topic is registered for the suspect.
func (e *Engine) Has(suspect, topic string) bool {
	_, ok := e.variants[key{suspect: suspect, topic: topic}]
	return ok
}

// Next returns the scripted answer for the current number of askings and counts this asking.
//
// The first call returns the first variant. Once the variants are exhausted, the last one is repeated.
func (e *Engine) Next(suspect, topic string) (string, error) {
	k := key{suspect: suspect, topic: topic}
	variants, ok := e.variants[k]
	if !ok {
		return "", errors.Wrap(ErrUnknownTopic, "next variant",
			slog.String("suspect", suspect), slog.String("topic", topic))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	count := e.counts[k]
	e.counts[k] = count + 1
	return variants[min(count, len(variants)-1)], nil
}

// Count returns how many times the topic has been asked about.
func (e *Engine) Count(suspect, topic string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counts[key{suspect: suspect, topic: topic}]
}
