package main

import (
	"context"
	"github.com/myrjola/whodunit/internal/ai"
	"github.com/myrjola/whodunit/internal/casefile"
	"github.com/myrjola/whodunit/internal/config"
	"github.com/myrjola/whodunit/internal/errors"
	"github.com/myrjola/whodunit/internal/interrogation"
	"github.com/spf13/cobra"
	"log/slog"
)

func init() {
	playCmd.Flags().String("scenario", "", "embedded scenario name or path to a scenario file (default $WHODUNIT_SCENARIO)")
	playCmd.Flags().String("guilty", "", "fix the murderer instead of drawing one at random (default $WHODUNIT_GUILTY)")
	playCmd.Flags().Bool("record", false, "record the transcript to $WHODUNIT_SQLITE_URL")
}

// newGenerator is replaced in tests.
var newGenerator = func(cfg config.Config, logger *slog.Logger) (interrogation.Generator, error) {
	return ai.New(cfg, logger)
}

var playCmd = &cobra.Command{
	Use:     "play",
	GroupID: "game",
	Short:   "Play a case",
	Long: `Plays a case in the terminal. Pick a suspect from the menu to question them, put a question to everyone at
once with 'lineup <question>' and finish with 'accuse <name>'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var (
			cfg       config.Config
			scenario  casefile.Scenario
			c         *casefile.Case
			generator interrogation.Generator
			engine    *interrogation.Engine
			err       error
		)
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		if cfg, err = loadConfig(); err != nil {
			return err
		}
		logger := newLogger(cfg, cmd.ErrOrStderr())

		scenarioName := cfg.Scenario
		if name, _ := cmd.Flags().GetString("scenario"); name != "" {
			scenarioName = name
		}
		guilty := cfg.Guilty
		if name, _ := cmd.Flags().GetString("guilty"); name != "" {
			guilty = name
		}
		if scenario, err = loadScenario(scenarioName); err != nil {
			return errors.Wrap(err, "load scenario")
		}
		if c, err = casefile.New(scenario, guilty); err != nil {
			return errors.Wrap(err, "create case")
		}
		if generator, err = newGenerator(cfg, logger); err != nil {
			return errors.Wrap(err, "create generator")
		}

		opts := []interrogation.Option{
			interrogation.WithMaxSentences(cfg.MaxSentences),
			interrogation.WithFallback(cfg.Fallback),
			interrogation.WithTimeout(cfg.BackendTimeout),
		}
		if record, _ := cmd.Flags().GetBool("record"); record {
			transcripts, closeDB, openErr := openTranscripts(ctx, cfg, logger)
			if openErr != nil {
				return openErr
			}
			defer func() {
				if closeErr := closeDB(); closeErr != nil {
					logger.LogAttrs(ctx, slog.LevelError, "failed to close transcript database",
						errors.SlogError(closeErr))
				}
			}()
			opts = append(opts, interrogation.WithRecorder(transcripts))
		}

		if engine, err = interrogation.New(ctx, c, generator, logger, opts...); err != nil {
			return errors.Wrap(err, "start interrogation")
		}
		return newGame(engine, cmd.InOrStdin(), cmd.OutOrStdout()).run(ctx)
	},
}
