// Package config reads the settings shared by the whodunit binaries from the environment.
package config

import (
	"github.com/myrjola/whodunit/internal/envstruct"
	"github.com/myrjola/whodunit/internal/errors"
	"log/slog"
	"time"
)

const (
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
)

var ErrInvalidConfig = errors.NewSentinel("invalid configuration")

type Config struct {
	// Backend selects the text generation backend, "openai" or "gemini".
	Backend string `env:"WHODUNIT_BACKEND" envDefault:"openai"`
	// OpenAIAPIKey may be empty for local OpenAI-compatible servers.
	OpenAIAPIKey string `env:"OPENAI_API_KEY" envDefault:""`
	// OpenAIBaseURL points the OpenAI backend to a compatible server such as llama.cpp or Ollama, e.g.,
	// http://localhost:8080/v1. Empty uses the OpenAI API.
	OpenAIBaseURL string `env:"WHODUNIT_OPENAI_BASE_URL" envDefault:""`
	OpenAIModel   string `env:"WHODUNIT_OPENAI_MODEL" envDefault:"gpt-3.5-turbo-1106"`
	GeminiAPIKey  string `env:"GEMINI_API_KEY" envDefault:""`
	GeminiModel   string `env:"WHODUNIT_GEMINI_MODEL" envDefault:"gemini-2.0-flash"`

	Temperature    float64       `env:"WHODUNIT_TEMPERATURE" envDefault:"0.6"`
	TopP           float64       `env:"WHODUNIT_TOP_P" envDefault:"0.9"`
	MaxTokens      int           `env:"WHODUNIT_MAX_TOKENS" envDefault:"120"`
	MaxSentences   int           `env:"WHODUNIT_MAX_SENTENCES" envDefault:"3"`
	BackendTimeout time.Duration `env:"WHODUNIT_BACKEND_TIMEOUT" envDefault:"30s"`
	Fallback       string        `env:"WHODUNIT_FALLBACK" envDefault:"Sorry, Inspector, I can't respond right now."`

	// Scenario is the name of an embedded scenario or a path to a scenario YAML file.
	Scenario string `env:"WHODUNIT_SCENARIO" envDefault:"blackwood"`
	// Guilty fixes the murderer. Empty draws one at random.
	Guilty string `env:"WHODUNIT_GUILTY" envDefault:""`

	SQLiteURL string `env:"WHODUNIT_SQLITE_URL" envDefault:"./whodunit.sqlite"`
	Addr      string `env:"WHODUNIT_ADDR" envDefault:"localhost:4000"`
	// PprofAddr serves runtime profiles of the web server when set. Keep it on a loopback address.
	PprofAddr string `env:"WHODUNIT_PPROF_ADDR" envDefault:""`
	LogLevel  string `env:"WHODUNIT_LOG_LEVEL" envDefault:"info"`
}

// Load populates the configuration with lookupEnv, usually [os.LookupEnv], and validates it.
func Load(lookupEnv func(string) (string, bool)) (Config, error) {
	var cfg Config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return Config{}, errors.Wrap(err, "populate config") //nolint:exhaustruct // error path
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err //nolint:exhaustruct // error path
	}
	return cfg, nil
}

// Validate checks the values that can't be checked by parsing alone. Backend credentials are checked by
// [Config.ValidateBackend] since not every command talks to a backend.
func (c Config) Validate() error {
	var errs []error
	if c.MaxSentences <= 0 {
		errs = append(errs, errors.Wrap(ErrInvalidConfig, "max sentences must be positive",
			slog.Int("max_sentences", c.MaxSentences)))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, errors.Wrap(ErrInvalidConfig, "max tokens must be positive",
			slog.Int("max_tokens", c.MaxTokens)))
	}
	if c.BackendTimeout < 0 {
		errs = append(errs, errors.Wrap(ErrInvalidConfig, "backend timeout must not be negative",
			slog.Duration("backend_timeout", c.BackendTimeout)))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateBackend checks that the selected backend can be reached.
func (c Config) ValidateBackend() error {
	switch c.Backend {
	case BackendOpenAI:
		if c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
			return errors.Wrap(ErrInvalidConfig,
				"OPENAI_API_KEY is required unless WHODUNIT_OPENAI_BASE_URL points to a local server")
		}
	case BackendGemini:
		if c.GeminiAPIKey == "" {
			return errors.Wrap(ErrInvalidConfig, "GEMINI_API_KEY is required by the gemini backend")
		}
	default:
		return errors.Wrap(ErrInvalidConfig, "unknown backend", slog.String("backend", c.Backend))
	}
	return nil
}

// Level parses the log level.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, errors.Wrap(ErrInvalidConfig, "parse log level", slog.String("log_level", c.LogLevel))
	}
	return level, nil
}
