package interrogation_test

import (
	"github.com/myrjola/whodunit/internal/interrogation"
	"github.com/myrjola/whodunit/internal/models"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestDetectTopic(t *testing.T) {
	topics := []models.Topic{
		{Name: "night", Keywords: []string{"11pm", "Power", "where were you"}, Answers: models.VariantLists{}},
		{Name: "will", Keywords: []string{"inheritance", "power of attorney"}, Answers: models.VariantLists{}},
		{Name: "blank", Keywords: []string{"", "  "}, Answers: models.VariantLists{}},
	}
	tests := []struct {
		name     string
		question string
		want     string
	}{
		{name: "keyword", question: "Where were you at 11pm?", want: "night"},
		{name: "case-insensitive", question: "and the POWER outage?", want: "night"},
		{name: "first declared topic wins", question: "Who holds power of attorney?", want: "night"},
		{name: "second topic", question: "Tell me about the inheritance.", want: "will"},
		{name: "prefix of a word", question: "Were you powerless to stop it?", want: "night"},
		{name: "inside a word", question: "What happened at 211pm?", want: ""},
		{name: "later occurrence at boundary", question: "211pm or 11pm?", want: "night"},
		{name: "no keyword", question: "Did you like him?", want: ""},
		{name: "empty question", question: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			topic, ok := interrogation.DetectTopic(topics, tt.question)
			require.Equal(t, tt.want != "", ok)
			require.Equal(t, tt.want, topic.Name)
		})
	}
}
