package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/tryandromeda/copilot/internal/config"
	"github.com/tryandromeda/copilot/internal/llm"
	"github.com/tryandromeda/copilot/internal/logger"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliDeps carries configuration and collaborators shared by every command.
// Fields left nil are filled by loadDeps before a command runs.
type cliDeps struct {
	cfg      *config.Config
	log      zerolog.Logger
	stateDir string

	newProvider func(apiKey, baseURL string) llm.Provider

	// interactive enables terminal prompts (huh) in the REPL.
	interactive bool
}

// loadDeps reads .copilot config (global and repo), applies the environment
// and builds the logger.
func loadDeps(d *cliDeps) error {
	if d.newProvider == nil {
		d.newProvider = func(apiKey, baseURL string) llm.Provider {
			return llm.NewOpenAIProvider(apiKey, baseURL)
		}
	}
	if d.cfg != nil {
		return nil
	}

	configHome, err := config.ConfigHome()
	if err != nil {
		return fmt.Errorf("could not determine config directory: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("could not determine working directory: %w", err)
	}
	cfg, err := config.LoadWithRepo(configHome, cwd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyEnv()

	stateDir, err := config.StateHome()
	if err != nil {
		return fmt.Errorf("could not determine state directory: %w", err)
	}

	d.cfg = cfg
	d.stateDir = stateDir
	d.log = logger.New(os.Stderr, stateDir)
	return nil
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	app := newCLIApp(&cliDeps{interactive: isTerminal()})
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
