package main

import (
	"fmt"
	"github.com/joho/godotenv"
	"github.com/myrjola/whodunit/internal/errors"
	"github.com/spf13/cobra"
	"io/fs"
	"os"
)

func init() {
	// The environment can be configured with a .env file but it is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.AddGroup(gameGroup, recordsGroup)
	rootCmd.AddCommand(playCmd, scenariosCmd, suspectsCmd, transcriptCmd)
}

var rootCmd = &cobra.Command{
	Use:   "whodunit",
	Short: "Interrogate the suspects and catch the murderer",
	Long: `whodunit is a murder mystery played in the terminal. The suspects are impersonated by a text generation
backend. Question them, spot the contradictions and accuse the murderer.

The backend is configured with environment variables or a .env file, see WHODUNIT_BACKEND, OPENAI_API_KEY,
WHODUNIT_OPENAI_BASE_URL and GEMINI_API_KEY.`,
	SilenceUsage: true,
}

var (
	gameGroup = &cobra.Group{
		ID:    "game",
		Title: "Game",
	}
	recordsGroup = &cobra.Group{
		ID:    "records",
		Title: "Records",
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
