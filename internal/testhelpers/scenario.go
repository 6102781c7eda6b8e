package testhelpers

import (
	"github.com/myrjola/whodunit/internal/casefile"
	"github.com/myrjola/whodunit/internal/models"
)

// Scenario returns a small scenario with suspects A, B and C. Every suspect has a "night" topic triggered by
// "11pm", "power" or "where were you" with two guilty answers and one innocent answer.
func Scenario() casefile.Scenario {
	suspect := func(name string) models.Suspect {
		return models.Suspect{
			Name:        name,
			Role:        "Role of " + name,
			Personality: "Personality of " + name,
			PublicStory: "Public story of " + name,
			PrivateFacts: models.Variants{
				Guilty:   name + " did it.",
				Innocent: name + " is innocent.",
			},
			Topics: []models.Topic{
				{
					Name:     "night",
					Keywords: []string{"11pm", "power", "where were you"},
					Answers: models.VariantLists{
						Guilty:   []string{name + " guilty variant 0", name + " guilty variant 1"},
						Innocent: []string{name + " innocent variant 0"},
					},
				},
			},
			Examples: []string{"Example of " + name},
			Catch:    name + "'s catch",
			Guilty:   false,
		}
	}
	return casefile.Scenario{
		Name:      "test",
		Title:     "Test case",
		Victim:    "Victim",
		Detective: "Inspector Test",
		Scene:     "The scene.",
		Evidence:  []string{"A clue."},
		Suspects:  []models.Suspect{suspect("A"), suspect("B"), suspect("C")},
	}
}

// Case creates a case from [Scenario] with guilty as the murderer.
func Case(t TB, guilty string) *casefile.Case {
	t.Helper()
	c, err := casefile.New(Scenario(), guilty)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// TB is the subset of [testing.TB] needed by the helpers.
type TB interface {
	Helper()
	Fatal(args ...any)
}
