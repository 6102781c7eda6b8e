// Package session keeps the append-only conversation history of every suspect.
package session

import (
	"github.com/myrjola/whodunit/internal/errors"
	"github.com/myrjola/whodunit/internal/models"
	"log/slog"
	"slices"
	"sync"
)

var (
	ErrDuplicateSession = errors.NewSentinel("session already exists")
	ErrInvalidRole      = errors.NewSentinel("invalid role")
)

// Store owns one history per suspect. Histories start with the persona prompt as the only system turn and only grow
// by appending detective and suspect turns.
type Store struct {
	mu        sync.RWMutex
	histories map[string][]models.Turn
}

func NewStore() *Store {
	return &Store{
		mu:        sync.RWMutex{},
		histories: make(map[string][]models.Turn),
	}
}

// Create seeds the history of the suspect with the persona prompt.
func (s *Store) Create(suspect, personaPrompt string) ([]models.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.histories[suspect]; ok {
		return nil, errors.Wrap(ErrDuplicateSession, "create session", slog.String("suspect", suspect))
	}
	history := []models.Turn{{Role: models.RoleSystem, Content: personaPrompt, Position: 0}}
	s.histories[suspect] = history
	return slices.Clone(history), nil
}

// Append adds a detective or suspect turn to the end of the suspect's history.
func (s *Store) Append(suspect string, role models.Role, text string) (models.Turn, error) {
	if role != models.RoleDetective && role != models.RoleSuspect {
		return models.Turn{}, errors.Wrap(ErrInvalidRole, "append turn",
			slog.String("suspect", suspect), slog.String("role", string(role)))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	history, ok := s.histories[suspect]
	if !ok {
		return models.Turn{}, errors.Wrap(models.ErrUnknownSuspect, "append turn", slog.String("suspect", suspect))
	}
	turn := models.Turn{
		Role:     role,
		Content:  text,
		Position: int64(len(history)),
	}
	s.histories[suspect] = append(history, turn)
	return turn, nil
}

// History returns a copy of the suspect's turns in order.
func (s *Store) History(suspect string) ([]models.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history, ok := s.histories[suspect]
	if !ok {
		return nil, errors.Wrap(models.ErrUnknownSuspect, "get history", slog.String("suspect", suspect))
	}
	return slices.Clone(history), nil
}
