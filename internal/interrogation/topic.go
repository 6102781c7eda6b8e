package interrogation

import (
	"github.com/myrjola/whodunit/internal/models"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DetectTopic returns the first topic of the suspect with a keyword in the question.
//
// Matching ignores case and a keyword has to start at a word boundary, so "power" matches "power outage" and
// "powerless" but "11pm" does not match "211pm".
func DetectTopic(topics []models.Topic, question string) (models.Topic, bool) {
	question = strings.ToLower(question)
	for _, topic := range topics {
		for _, keyword := range topic.Keywords {
			if containsWord(question, strings.ToLower(strings.TrimSpace(keyword))) {
				return topic, true
			}
		}
	}
	return models.Topic{}, false //nolint:exhaustruct // not found
}

func containsWord(s, keyword string) bool {
	if keyword == "" {
		return false
	}
	offset := 0
	for {
		i := strings.Index(s[offset:], keyword)
		if i == -1 {
			return false
		}
		i += offset
		if i == 0 {
			return true
		}
		if r, _ := utf8.DecodeLastRuneInString(s[:i]); !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return true
		}
		offset = i + 1
	}
}
