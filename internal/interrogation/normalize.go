package interrogation

import (
	"github.com/myrjola/whodunit/internal/persona"
	"strings"
)

// DefaultMaxSentences is the sentence limit of a reply when none is configured.
const DefaultMaxSentences = persona.DefaultMaxSentences

// Normalize shortens a generated reply to at most maxSentences sentences.
//
// Line breaks become spaces and the reply is split on periods. Blank fragments are dropped and the remaining ones
// are joined with ". ". The result ends with a period unless it already ends with ".", "!" or "?". An empty string
// is returned when nothing is left.
func Normalize(reply string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	reply = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(reply)

	fragments := make([]string, 0, maxSentences)
	for _, fragment := range strings.Split(reply, ".") {
		if fragment = strings.TrimSpace(fragment); fragment == "" {
			continue
		}
		fragments = append(fragments, fragment)
		if len(fragments) == maxSentences {
			break
		}
	}

	short := strings.Join(fragments, ". ")
	if short == "" {
		return ""
	}
	if !strings.ContainsAny(short[len(short)-1:], ".!?") {
		short += "."
	}
	return short
}
