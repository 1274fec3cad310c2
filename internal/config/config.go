// Package config loads Clara's settings from a YAML file with environment
// variable overrides. The controller treats the loaded values as immutable.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the conventional settings location.
const DefaultPath = "config/settings.yaml"

// Paths groups the filesystem locations Clara uses.
type Paths struct {
	MemoryDB    string `yaml:"memory_db"`
	Workspace   string `yaml:"workspace"`
	SessionLogs string `yaml:"session_logs"`
	DebugLogs   string `yaml:"debug_logs"`
}

// Settings is the full application configuration.
type Settings struct {
	Provider     string  `yaml:"provider"`
	Model        string  `yaml:"model"`
	Temperature  float32 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	BaseURL      string  `yaml:"base_url"`
	MaxHistory   int     `yaml:"max_history"`
	SystemPrompt string  `yaml:"system_prompt"`
	Paths        Paths   `yaml:"paths"`
	HTTPAddr     string  `yaml:"http_addr"`
}

// Default returns the settings used when no file is present.
func Default() Settings {
	return Settings{
		Provider:     "openai",
		Model:        "gpt-4o",
		Temperature:  0.7,
		MaxTokens:    4096,
		MaxHistory:   20,
		SystemPrompt: DefaultSystemPrompt,
		Paths: Paths{
			MemoryDB:    "memory/memory.sqlite",
			Workspace:   "workspace",
			SessionLogs: "logs/sessions",
			DebugLogs:   "logs/debug",
		},
		HTTPAddr: ":8000",
	}
}

// Load reads settings from the given YAML file and applies environment
// overrides. An empty path means "use defaults"; a named file that does not
// exist is an error.
func Load(path string) (Settings, error) {
	s := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("read settings: %w", err)
		}
		if err := yaml.Unmarshal(raw, &s); err != nil {
			return Settings{}, fmt.Errorf("parse settings: %w", err)
		}
	}
	s.applyEnv()
	return s, nil
}

func (s *Settings) applyEnv() {
	s.Provider = getEnvWithDefault("CLARA_PROVIDER", s.Provider)
	s.Model = getEnvWithDefault("CLARA_MODEL", s.Model)
	s.BaseURL = getEnvWithDefault("OPENAI_BASE_URL", s.BaseURL)
	s.Paths.MemoryDB = getEnvWithDefault("CLARA_MEMORY_DB", s.Paths.MemoryDB)
	s.Paths.Workspace = getEnvWithDefault("CLARA_WORKSPACE", s.Paths.Workspace)
	s.HTTPAddr = getEnvWithDefault("CLARA_HTTP_ADDR", s.HTTPAddr)

	if v := os.Getenv("CLARA_MAX_HISTORY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.MaxHistory = n
		}
	}
}

// getEnvWithDefault returns the environment variable value or a default
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
