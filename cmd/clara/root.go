package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mymy770/Clara/internal/config"
	"github.com/mymy770/Clara/internal/fsdriver"
	"github.com/mymy770/Clara/internal/llm"
	"github.com/mymy770/Clara/internal/logging"
	"github.com/mymy770/Clara/internal/memory"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "clara",
	Short: "Clara personal assistant",
	Long:  "Clara is a conversational personal assistant with structured memory and a confined workspace.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Settings file (default: config/settings.yaml when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to clara.log")
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadSettings resolves the settings path and initializes logging.
func loadSettings() (config.Settings, error) {
	path := configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultPath); err == nil {
			path = config.DefaultPath
		}
	}
	settings, err := config.Load(path)
	if err != nil {
		return config.Settings{}, err
	}

	if verbose {
		logging.Init(logging.File("clara.log", true))
	} else {
		logging.Init(logging.Console())
	}
	return settings, nil
}

// buildStores opens the memory store and workspace driver from settings.
// CLARA_PG_CN switches the memory backend from SQLite to PostgreSQL.
func buildStores(settings config.Settings) (memory.Store, *fsdriver.Driver, error) {
	var store memory.Store
	if os.Getenv(memory.EnvPgConnStr) != "" {
		pgConfig, err := memory.PgConfigFromEnv()
		if err != nil {
			return nil, nil, err
		}
		pg, err := memory.NewPgStore(pgConfig, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		store = pg
	} else {
		if err := os.MkdirAll(filepath.Dir(settings.Paths.MemoryDB), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create memory directory: %w", err)
		}
		sq, err := memory.NewSQLiteStore(settings.Paths.MemoryDB, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		store = sq
	}

	fs, err := fsdriver.New(settings.Paths.Workspace)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("open workspace: %w", err)
	}
	return store, fs, nil
}

func buildModel(settings config.Settings) (llm.LanguageModel, error) {
	return llm.NewLLM(llm.Config{
		Provider:    settings.Provider,
		Model:       settings.Model,
		BaseURL:     settings.BaseURL,
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
	})
}
