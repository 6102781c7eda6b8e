package models

import (
	"github.com/myrjola/whodunit/internal/errors"
	"slices"
)

// ErrUnknownSuspect is returned when a name does not refer to any suspect of the case.
var ErrUnknownSuspect = errors.NewSentinel("unknown suspect")

// Variants holds a text in its guilty and innocent form.
type Variants struct {
	Guilty   string `yaml:"guilty"`
	Innocent string `yaml:"innocent"`
}

// Select returns the guilty or the innocent text.
func (v Variants) Select(guilty bool) string {
	if guilty {
		return v.Guilty
	}
	return v.Innocent
}

// VariantLists holds the ordered scripted answers of a topic for both guilt variants.
type VariantLists struct {
	Guilty   []string `yaml:"guilty"`
	Innocent []string `yaml:"innocent"`
}

// Select returns the guilty or the innocent answers.
func (v VariantLists) Select(guilty bool) []string {
	if guilty {
		return v.Guilty
	}
	return v.Innocent
}

// Topic is a sensitive subject the detective may press a suspect on.
//
// Keywords decide whether a question is about the topic. Answers are surfaced in order on repeated
// askings, the last one repeating once exhausted.
type Topic struct {
	Name     string       `yaml:"name"`
	Keywords []string     `yaml:"keywords"`
	Answers  VariantLists `yaml:"answers"`
}

// Suspect is a person the detective can question.
type Suspect struct {
	Name         string   `yaml:"name"`
	Role         string   `yaml:"role"`
	Personality  string   `yaml:"personality"`
	PublicStory  string   `yaml:"public_story"`
	PrivateFacts Variants `yaml:"private_facts"`
	Topics       []Topic  `yaml:"topics"`
	Examples     []string `yaml:"examples"`
	// Catch is the flaw in the suspect's story that gives them away when they are the murderer.
	Catch string `yaml:"catch"`
	// Guilty is decided when the case is created.
	Guilty bool `yaml:"-"`
}

// Clone returns a deep copy so that the case data can't be modified through the returned value.
func (s Suspect) Clone() Suspect {
	c := s
	c.Examples = slices.Clone(s.Examples)
	c.Topics = make([]Topic, len(s.Topics))
	for i, t := range s.Topics {
		c.Topics[i] = Topic{
			Name:     t.Name,
			Keywords: slices.Clone(t.Keywords),
			Answers: VariantLists{
				Guilty:   slices.Clone(t.Answers.Guilty),
				Innocent: slices.Clone(t.Answers.Innocent),
			},
		}
	}
	return c
}
