package casefile

import (
	"github.com/google/uuid"
	"github.com/myrjola/whodunit/internal/errors"
	"github.com/myrjola/whodunit/internal/models"
	"github.com/myrjola/whodunit/internal/random"
	"log/slog"
	"slices"
	"strings"
)

var ErrInvalidCase = errors.NewSentinel("invalid case")

// Case is one run of a scenario with the murderer decided. It is immutable after [New].
type Case struct {
	id        string
	scenario  string
	title     string
	victim    string
	detective string
	scene     string
	evidence  []string
	suspects  []models.Suspect
	guiltyIdx int
}

// New creates a case from the scenario.
//
// If guiltyName is empty, the murderer is drawn uniformly at random among the suspects. Otherwise, it must name one of
// the suspects (case-insensitively).
func New(scenario Scenario, guiltyName string) (*Case, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}

	var (
		guiltyIdx int
		err       error
	)
	if guiltyName = strings.TrimSpace(guiltyName); guiltyName == "" {
		if guiltyIdx, err = random.Intn(len(scenario.Suspects)); err != nil {
			return nil, errors.Wrap(err, "draw murderer")
		}
	} else {
		guiltyIdx = slices.IndexFunc(scenario.Suspects, func(s models.Suspect) bool {
			return strings.EqualFold(s.Name, guiltyName)
		})
		if guiltyIdx == -1 {
			return nil, errors.Wrap(ErrInvalidCase, "murderer is not a suspect", slog.String("guilty", guiltyName))
		}
	}

	suspects := make([]models.Suspect, len(scenario.Suspects))
	for i, s := range scenario.Suspects {
		suspects[i] = s.Clone()
		suspects[i].Guilty = i == guiltyIdx
	}

	return &Case{
		id:        uuid.NewString(),
		scenario:  scenario.Name,
		title:     scenario.Title,
		victim:    scenario.Victim,
		detective: scenario.Detective,
		scene:     scenario.Scene,
		evidence:  slices.Clone(scenario.Evidence),
		suspects:  suspects,
		guiltyIdx: guiltyIdx,
	}, nil
}

func (c *Case) ID() string { return c.id }
func (c *Case) Scenario() string { return c.scenario }
func (c *Case) Title() string { return c.title }
func (c *Case) Victim() string { return c.victim }
func (c *Case) Detective() string { return c.detective }
func (c *Case) Scene() string { return c.scene }

// Evidence returns the clues known at the start of the investigation.
func (c *Case) Evidence() []string {
	return slices.Clone(c.evidence)
}

// Names returns the suspect names in scenario order.
func (c *Case) Names() []string {
	names := make([]string, len(c.suspects))
	for i, s := range c.suspects {
		names[i] = s.Name
	}
	return names
}

// Suspects returns copies of the suspects in scenario order.
func (c *Case) Suspects() []models.Suspect {
	suspects := make([]models.Suspect, len(c.suspects))
	for i, s := range c.suspects {
		suspects[i] = s.Clone()
	}
	return suspects
}

// Suspect looks up a suspect by exact name, ignoring case and surrounding whitespace.
func (c *Case) Suspect(name string) (models.Suspect, error) {
	name = strings.TrimSpace(name)
	for _, s := range c.suspects {
		if strings.EqualFold(s.Name, name) {
			return s.Clone(), nil
		}
	}
	return models.Suspect{}, errors.Wrap(models.ErrUnknownSuspect, "look up suspect", slog.String("name", name))
}

// Guilty returns the murderer.
func (c *Case) Guilty() models.Suspect {
	return c.suspects[c.guiltyIdx].Clone()
}

// Catch returns the flaw in the named suspect's story.
func (c *Case) Catch(name string) (string, error) {
	s, err := c.Suspect(name)
	if err != nil {
		return "", err
	}
	return s.Catch, nil
}
