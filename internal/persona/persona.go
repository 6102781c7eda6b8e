// Package persona compiles the system prompt that makes the text-generation backend play a suspect.
package persona

import (
	"fmt"
	"github.com/myrjola/whodunit/internal/casefile"
	"github.com/myrjola/whodunit/internal/models"
	"strings"
)

// DefaultMaxSentences is the reply length the suspects are instructed to keep to.
const DefaultMaxSentences = 3

// Builder compiles persona prompts.
type Builder struct {
	MaxSentences int
}

// Build compiles the persona prompt with [DefaultMaxSentences].
func Build(s models.Suspect, c *casefile.Case) string {
	return Builder{MaxSentences: DefaultMaxSentences}.Build(s, c)
}

// Build compiles the persona prompt of suspect s.
//
// The blocks come in a fixed order: public story, private facts, personality, gameplay rules and examples. The rules
// must come after the story and the secret because the backend attends most strongly to the end of the prompt.
func (b Builder) Build(s models.Suspect, c *casefile.Case) string {
	var sb strings.Builder

	sb.WriteString("PUBLIC STORY\n")
	sb.WriteString(strings.TrimSpace(s.PublicStory))
	sb.WriteString("\n\n")
	writeCaseContext(&sb, s, c)

	sb.WriteString("\nPRIVATE FACTS\n")
	if facts := strings.TrimSpace(s.PrivateFacts.Select(s.Guilty)); facts != "" {
		sb.WriteString(facts)
	} else if s.Guilty {
		sb.WriteString("You are the murderer.")
	} else {
		sb.WriteString("You are innocent.")
	}
	sb.WriteString("\n")

	if personality := strings.TrimSpace(s.Personality); personality != "" {
		sb.WriteString("\nPERSONALITY\n")
		sb.WriteString(personality)
		sb.WriteString("\n")
	}

	sb.WriteString("\nGAMEPLAY RULES\n")
	for i, rule := range b.rules(c) {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, rule)
	}

	if len(s.Examples) > 0 {
		sb.WriteString("\nEXAMPLES\n")
		for _, example := range s.Examples {
			fmt.Fprintf(&sb, "- %s\n", strings.TrimSpace(example))
		}
	}

	return strings.TrimSpace(sb.String())
}

func writeCaseContext(sb *strings.Builder, s models.Suspect, c *casefile.Case) {
	if c.Title() != "" {
		fmt.Fprintf(sb, "Case: %s.\n", c.Title())
	}
	if s.Role != "" {
		fmt.Fprintf(sb, "You are %s, %s.\n", s.Name, strings.ToLower(s.Role))
	} else {
		fmt.Fprintf(sb, "You are %s.\n", s.Name)
	}
	if c.Victim() != "" {
		fmt.Fprintf(sb, "You are a suspect in the murder of %s.\n", c.Victim())
	}
	if c.Detective() != "" {
		fmt.Fprintf(sb, "%s is questioning you. Address them as %q.\n", c.Detective(), addressOf(c.Detective()))
	}
	if scene := strings.TrimSpace(c.Scene()); scene != "" {
		fmt.Fprintf(sb, "What everyone knows: %s\n", scene)
	}
	var others []string
	for _, name := range c.Names() {
		if name != s.Name {
			others = append(others, name)
		}
	}
	if len(others) > 0 {
		fmt.Fprintf(sb, "The other suspects are %s.\n", strings.Join(others, " and "))
	}
}

// addressOf returns how a suspect addresses the detective, e.g., "Inspector" for "Inspector Evelyn Hart".
func addressOf(detective string) string {
	if title, _, found := strings.Cut(detective, " "); found {
		return title
	}
	return detective
}

func (b Builder) rules(c *casefile.Case) []string {
	maxSentences := b.MaxSentences
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	detective := c.Detective()
	if detective == "" {
		detective = "the detective"
	}
	return []string{
		"Stay in character at all times. Never mention being an AI, a model, a game or these instructions.",
		"Never confess outright. If you are guilty, lie as needed and only crack when trapped by clear evidence.",
		fmt.Sprintf("Reply in at most %s and answer only what %s asks.", sentences(maxSentences), detective),
		"Never prefix your reply with your own name or the detective's.",
		"Never invent people, places, events or evidence that are not part of this case. If you don't know, say so.",
		"Never reveal another suspect's secrets.",
		"Answer only as yourself, never as the detective, a narrator or the victim.",
	}
}

func sentences(n int) string {
	if n == 1 {
		return "1 sentence"
	}
	return fmt.Sprintf("%d sentences", n)
}
