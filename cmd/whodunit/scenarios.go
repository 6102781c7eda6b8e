package main

import (
	"fmt"
	"github.com/myrjola/whodunit/internal/casefile"
	"github.com/myrjola/whodunit/internal/errors"
	"github.com/spf13/cobra"
	"text/tabwriter"
)

func init() {
	suspectsCmd.Flags().String("scenario", "", "embedded scenario name or path to a scenario file (default $WHODUNIT_SCENARIO)")
}

var scenariosCmd = &cobra.Command{
	Use:     "scenarios",
	GroupID: "game",
	Short:   "List the built-in scenarios",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		s := newStyles(cmd.OutOrStdout())
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0) //nolint:mnd // column padding
		for _, name := range casefile.List() {
			var scenario casefile.Scenario
			if scenario, err = casefile.Load(name); err != nil {
				return errors.Wrap(err, "load scenario")
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", name, s.title.Render(scenario.Title),
				s.muted.Render(fmt.Sprintf("%d suspects", len(scenario.Suspects))))
		}
		return errors.Wrap(w.Flush(), "flush")
	},
}

var suspectsCmd = &cobra.Command{
	Use:     "suspects",
	GroupID: "game",
	Short:   "List the suspects of a scenario",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var (
			scenario casefile.Scenario
			err      error
		)
		name, _ := cmd.Flags().GetString("scenario")
		if name == "" {
			if name, _ = lookupEnv("WHODUNIT_SCENARIO"); name == "" {
				name = "blackwood"
			}
		}
		if scenario, err = loadScenario(name); err != nil {
			return errors.Wrap(err, "load scenario")
		}

		s := newStyles(cmd.OutOrStdout())
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), s.title.Render(scenario.Title))
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0) //nolint:mnd // column padding
		for i, suspect := range scenario.Suspects {
			_, _ = fmt.Fprintf(w, "%d.\t%s\t%s\n", i+1, s.suspect.Render(suspect.Name), s.muted.Render(suspect.Role))
		}
		return errors.Wrap(w.Flush(), "flush")
	},
}
