package casefile

import (
	"embed"
	"github.com/myrjola/whodunit/internal/errors"
	"github.com/myrjola/whodunit/internal/models"
	"gopkg.in/yaml.v3"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

var ErrScenarioNotFound = errors.NewSentinel("scenario not found")

//go:embed scenarios/*.yaml
var scenarioFS embed.FS

// Scenario is the static description of a murder mystery. It becomes a [Case] once the murderer is decided.
type Scenario struct {
	// Name identifies the scenario, e.g., the file name without extension.
	Name      string           `yaml:"name"`
	Title     string           `yaml:"title"`
	Victim    string           `yaml:"victim"`
	Detective string           `yaml:"detective"`
	Scene     string           `yaml:"scene"`
	Evidence  []string         `yaml:"evidence"`
	Suspects  []models.Suspect `yaml:"suspects"`
}

// Validate checks that the suspect set is usable for a case.
func (s Scenario) Validate() error {
	if len(s.Suspects) == 0 {
		return errors.Wrap(ErrInvalidCase, "no suspects", slog.String("scenario", s.Name))
	}
	seen := make(map[string]bool, len(s.Suspects))
	for i, suspect := range s.Suspects {
		name := strings.ToLower(strings.TrimSpace(suspect.Name))
		if name == "" {
			return errors.Wrap(ErrInvalidCase, "suspect without name", slog.Int("index", i))
		}
		if seen[name] {
			return errors.Wrap(ErrInvalidCase, "duplicate suspect", slog.String("suspect", suspect.Name))
		}
		seen[name] = true
		if err := validateTopics(suspect); err != nil {
			return err
		}
	}
	return nil
}

func validateTopics(suspect models.Suspect) error {
	topics := make(map[string]bool, len(suspect.Topics))
	for _, topic := range suspect.Topics {
		attrs := []slog.Attr{slog.String("suspect", suspect.Name), slog.String("topic", topic.Name)}
		switch {
		case strings.TrimSpace(topic.Name) == "":
			return errors.Wrap(ErrInvalidCase, "topic without name", attrs...)
		case topics[topic.Name]:
			return errors.Wrap(ErrInvalidCase, "duplicate topic", attrs...)
		case !slices.ContainsFunc(topic.Keywords, func(k string) bool { return strings.TrimSpace(k) != "" }):
			return errors.Wrap(ErrInvalidCase, "topic without keywords", attrs...)
		case len(topic.Answers.Guilty) == 0 || len(topic.Answers.Innocent) == 0:
			return errors.Wrap(ErrInvalidCase, "topic needs guilty and innocent answers", attrs...)
		}
		topics[topic.Name] = true
	}
	return nil
}

// Parse decodes a YAML scenario.
func Parse(data []byte) (Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Scenario{}, errors.Wrap(err, "unmarshal scenario")
	}
	return s, nil
}

// Load reads one of the scenarios shipped with the binary.
func Load(name string) (Scenario, error) {
	data, err := scenarioFS.ReadFile(path.Join("scenarios", name+".yaml"))
	if err != nil {
		return Scenario{}, errors.Wrap(ErrScenarioNotFound, "read embedded scenario",
			slog.String("name", name), slog.String("available", strings.Join(List(), ", ")))
	}
	s, err := Parse(data)
	if err != nil {
		return Scenario{}, errors.Wrap(err, "parse embedded scenario", slog.String("name", name))
	}
	if s.Name == "" {
		s.Name = name
	}
	return s, nil
}

// LoadFile reads a scenario from disk.
func LoadFile(filename string) (Scenario, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Scenario{}, errors.Wrap(err, "read scenario file", slog.String("filename", filename))
	}
	s, err := Parse(data)
	if err != nil {
		return Scenario{}, errors.Wrap(err, "parse scenario file", slog.String("filename", filename))
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	return s, nil
}

// List returns the names of the embedded scenarios, sorted.
func List() []string {
	entries, _ := scenarioFS.ReadDir("scenarios")
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
		}
	}
	slices.Sort(names)
	return names
}
