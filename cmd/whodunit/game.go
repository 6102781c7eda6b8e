package main

import (
	"bufio"
	"context"
	"fmt"
	"github.com/myrjola/whodunit/internal/accusation"
	"github.com/myrjola/whodunit/internal/errors"
	"github.com/myrjola/whodunit/internal/interrogation"
	"github.com/myrjola/whodunit/internal/models"
	"io"
	"strconv"
	"strings"
)

const rule = "══════════════════════════════════════════════════════"

// game is the menu loop of one case played in the terminal.
type game struct {
	engine *interrogation.Engine
	in     *bufio.Scanner
	out    io.Writer
	styles styles
}

func newGame(engine *interrogation.Engine, in io.Reader, out io.Writer) *game {
	return &game{
		engine: engine,
		in:     bufio.NewScanner(in),
		out:    out,
		styles: newStyles(out),
	}
}

// run plays until the detective accuses someone, quits or the input ends.
func (g *game) run(ctx context.Context) error {
	g.intro()
	for {
		g.menu()
		choice, ok := g.prompt("\nInterrogate (number), 'lineup <question>', 'accuse <name>' or 'quit' > ")
		if !ok {
			return nil
		}
		command, rest := splitCommand(choice)

		switch {
		case choice == "":
			continue
		case command == "quit" || command == "exit" || choice == "0":
			g.println("Farewell, Detective.")
			return nil
		case command == "accuse":
			if rest == "" {
				g.println("Whom are you accusing?")
				continue
			}
			done, err := g.accuse(ctx, rest)
			if err != nil || done {
				return err
			}
		case command == "lineup":
			if err := g.lineup(ctx, rest); err != nil {
				return err
			}
		default:
			suspect, ok := g.pick(choice)
			if !ok {
				g.printf("Please pick 1-%d, a suspect name, or accuse.\n", len(g.engine.Suspects()))
				continue
			}
			done, err := g.interrogate(ctx, suspect)
			if err != nil || done {
				return err
			}
		}
	}
}

func (g *game) intro() {
	c := g.engine.Case()
	g.println(g.styles.title.Render(fmt.Sprintf("=== %s ===", c.Title())))
	if c.Scene() != "" {
		g.println("\n" + strings.TrimSpace(c.Scene()))
	}
	if evidence := c.Evidence(); len(evidence) > 0 {
		g.println("\n" + g.styles.heading.Render("Evidence"))
		for _, e := range evidence {
			g.println(g.styles.evidence.Render("- " + e))
		}
	}
	g.println(g.styles.hint.Render("\nAt any time, type 'accuse <name>' to make your accusation or 'quit' to exit."))
}

func (g *game) menu() {
	g.println("\n" + g.styles.heading.Render("Suspects"))
	for i, s := range g.engine.Case().Suspects() {
		g.printf(" %d. %s %s\n", i+1, g.styles.suspect.Render(s.Name), g.styles.muted.Render("("+s.Role+")"))
	}
	g.println(" 0. Quit")
}

// pick resolves a menu choice given as a number or a name.
func (g *game) pick(choice string) (string, bool) {
	names := g.engine.Suspects()
	if n, err := strconv.Atoi(choice); err == nil {
		if n < 1 || n > len(names) {
			return "", false
		}
		return names[n-1], true
	}
	name, err := accusation.Match(names, choice)
	if err != nil {
		return "", false
	}
	return name, true
}

// interrogate questions one suspect until the detective returns to the menu. It reports whether the case is over.
func (g *game) interrogate(ctx context.Context, suspect string) (bool, error) {
	g.println("\n" + g.styles.heading.Render(fmt.Sprintf("--- Interrogating %s ---", suspect)) + " " +
		g.styles.hint.Render("(type 'menu' to switch, 'accuse <name>' to accuse)"))
	for {
		question, ok := g.prompt("Detective > ")
		if !ok {
			return true, nil
		}
		command, rest := splitCommand(question)
		switch {
		case question == "":
			continue
		case command == "menu" || command == "back" || command == "quit" || command == "exit":
			return false, nil
		case command == "accuse":
			if rest == "" {
				rest = suspect
			}
			done, err := g.accuse(ctx, rest)
			if err != nil || done {
				return done, err
			}
		default:
			reply, err := g.engine.Ask(ctx, suspect, question)
			if err != nil {
				return false, errors.Wrap(err, "ask")
			}
			g.printf("%s > %s\n", g.styles.suspect.Render(suspect), reply)
		}
	}
}

func (g *game) lineup(ctx context.Context, question string) error {
	if question == "" {
		g.println("What do you want to ask everyone?")
		return nil
	}
	replies, err := g.engine.AskAll(ctx, question)
	if err != nil {
		return errors.Wrap(err, "line-up")
	}
	for _, r := range replies {
		g.printf("%s > %s\n", g.styles.suspect.Render(r.Suspect), r.Text)
	}
	return nil
}

// accuse closes the case unless the name doesn't match a suspect, in which case the detective may try again.
func (g *game) accuse(ctx context.Context, name string) (bool, error) {
	verdict, err := g.engine.Accuse(ctx, name)
	if errors.Is(err, models.ErrUnknownSuspect) {
		g.printf("No such suspect %q. Choose from %s.\n", name, strings.Join(g.engine.Suspects(), ", "))
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "accuse")
	}

	g.println("\n" + rule)
	if verdict.Correct {
		g.println(g.styles.correct.Render(fmt.Sprintf("CORRECT! %s was the murderer.", verdict.Accused)))
		g.printf("The catch: %s\n", verdict.Catch)
	} else {
		g.println(g.styles.wrong.Render(fmt.Sprintf("Sorry, %s is innocent.", verdict.Accused)))
		g.printf("The real murderer was %s. The catch: %s\n", verdict.GuiltyName, verdict.Catch)
	}
	g.println(rule)
	return true, nil
}

func (g *game) prompt(text string) (string, bool) {
	_, _ = io.WriteString(g.out, text)
	if !g.in.Scan() {
		g.println("")
		return "", false
	}
	return strings.TrimSpace(g.in.Text()), true
}

func (g *game) println(text string) {
	_, _ = fmt.Fprintln(g.out, text)
}

func (g *game) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(g.out, format, args...)
}

// splitCommand splits "accuse Victor Haynes" into "accuse" and "Victor Haynes". The command is lower-cased.
func splitCommand(line string) (string, string) {
	command, rest, _ := strings.Cut(line, " ")
	return strings.ToLower(command), strings.TrimSpace(rest)
}
