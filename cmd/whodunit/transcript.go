package main

import (
	"fmt"
	"github.com/myrjola/whodunit/internal/errors"
	"github.com/myrjola/whodunit/internal/models"
	"github.com/myrjola/whodunit/internal/repositories"
	"github.com/spf13/cobra"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"
)

func init() {
	transcriptCmd.Flags().Bool("system", false, "include the persona prompts")
}

var transcriptCmd = &cobra.Command{
	Use:     "transcript [case-id]",
	GroupID: "records",
	Short:   "List recorded cases or print the transcript of one",
	Long:    `Without arguments lists the cases recorded with 'play --record'. With a case ID prints its transcript.`,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		logger := newLogger(cfg, cmd.ErrOrStderr())
		transcripts, closeDB, err := openTranscripts(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := closeDB(); closeErr != nil {
				logger.LogAttrs(ctx, slog.LevelError, "failed to close transcript database", errors.SlogError(closeErr))
			}
		}()

		out := cmd.OutOrStdout()
		if len(args) == 0 {
			var summaries []models.CaseSummary
			if summaries, err = transcripts.List(ctx); err != nil {
				return errors.Wrap(err, "list cases")
			}
			return printCases(out, summaries)
		}

		var transcript *models.Transcript
		if transcript, err = transcripts.Get(ctx, args[0]); err != nil {
			if errors.Is(err, repositories.ErrCaseNotFound) {
				return errors.New(fmt.Sprintf("no case with ID %q", args[0]))
			}
			return errors.Wrap(err, "get transcript")
		}
		includeSystem, _ := cmd.Flags().GetBool("system")
		printTranscript(out, transcript, includeSystem)
		return nil
	},
}

func printCases(out io.Writer, summaries []models.CaseSummary) error {
	if len(summaries) == 0 {
		_, _ = fmt.Fprintln(out, "No recorded cases. Record one with 'whodunit play --record'.")
		return nil
	}
	s := newStyles(out)
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0) //nolint:mnd // column padding
	_, _ = fmt.Fprintln(w, "ID\tScenario\tStarted\tOutcome")
	for _, summary := range summaries {
		outcome := s.muted.Render("open")
		if v := summary.Verdict; v != nil {
			if v.Correct {
				outcome = s.correct.Render("solved: " + v.Accused)
			} else {
				outcome = s.wrong.Render("wrong: " + v.Accused)
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", summary.ID, summary.Scenario,
			summary.StartedAt.Local().Format(time.DateTime), outcome)
	}
	return errors.Wrap(w.Flush(), "flush")
}

func printTranscript(out io.Writer, transcript *models.Transcript, includeSystem bool) {
	s := newStyles(out)
	_, _ = fmt.Fprintf(out, "%s %s\n", s.title.Render("Case "+transcript.Case.ID),
		s.muted.Render(fmt.Sprintf("(%s, %s)", transcript.Case.Scenario,
			transcript.Case.StartedAt.Local().Format(time.DateTime))))
	for _, name := range transcript.Suspects {
		_, _ = fmt.Fprintln(out, "\n"+s.heading.Render("--- "+name+" ---"))
		for _, turn := range transcript.Histories[name] {
			switch turn.Role {
			case models.RoleSystem:
				if includeSystem {
					_, _ = fmt.Fprintln(out, s.hint.Render(turn.Content))
				}
			case models.RoleDetective:
				_, _ = fmt.Fprintf(out, "Detective > %s\n", turn.Content)
			case models.RoleSuspect:
				_, _ = fmt.Fprintf(out, "%s > %s\n", s.suspect.Render(name), turn.Content)
			}
		}
	}
	if v := transcript.Case.Verdict; v != nil {
		_, _ = fmt.Fprintln(out, "\n"+rule)
		_, _ = fmt.Fprintf(out, "Accused %s. The murderer was %s. The catch: %s\n", v.Accused, v.GuiltyName, v.Catch)
	} else {
		_, _ = fmt.Fprintf(out, "\nThe case is open. The murderer is %s.\n", transcript.Case.Guilty)
	}
}
