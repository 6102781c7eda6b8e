// Package accusation decides the outcome of accusing a suspect.
package accusation

import (
	"github.com/myrjola/whodunit/internal/casefile"
	"github.com/myrjola/whodunit/internal/errors"
	"github.com/myrjola/whodunit/internal/models"
	"log/slog"
	"strings"
)

// Match finds the suspect the accused name refers to.
//
// The comparison ignores case and surrounding whitespace. An exact name match wins; otherwise the input must be
// part of exactly one suspect name, so "doyle" finds "Brian Doyle".
func Match(names []string, accused string) (string, error) {
	accused = strings.ToLower(strings.TrimSpace(accused))
	if accused == "" {
		return "", errors.Wrap(models.ErrUnknownSuspect, "empty accusation")
	}

	var partial []string
	for _, name := range names {
		lower := strings.ToLower(name)
		if lower == accused {
			return name, nil
		}
		if strings.Contains(lower, accused) {
			partial = append(partial, name)
		}
	}

	switch len(partial) {
	case 1:
		return partial[0], nil
	case 0:
		return "", errors.Wrap(models.ErrUnknownSuspect, "no suspect matches", slog.String("accused", accused))
	default:
		return "", errors.Wrap(models.ErrUnknownSuspect, "accusation is ambiguous",
			slog.String("accused", accused), slog.Any("candidates", partial))
	}
}

// Resolve compares the accused suspect against the murderer of the case.
//
// The verdict always reveals the murderer and their catch, whether the accusation was correct or not.
func Resolve(c *casefile.Case, accused string) (models.Verdict, error) {
	name, err := Match(c.Names(), accused)
	if err != nil {
		return models.Verdict{}, err
	}
	guilty := c.Guilty()
	return models.Verdict{
		Accused:    name,
		Correct:    name == guilty.Name,
		GuiltyName: guilty.Name,
		Catch:      guilty.Catch,
	}, nil
}
