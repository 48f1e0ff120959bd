package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvAPIKey  = "OPENAI_API_KEY"
	EnvBaseURL = "OPENAI_BASE_URL"
	EnvModel   = "COPILOT_MODEL"
)

// Config holds application configuration.
type Config struct {
	// Model is the chat model requested from the provider.
	Model string `json:"model"`

	// Temperature is the sampling temperature. Nil means "use the default".
	Temperature *float32 `json:"temperature,omitempty"`

	// MaxTokens caps completion tokens per provider round.
	MaxTokens int `json:"max_tokens"`

	// MaxSteps bounds tool-invocation rounds per user turn, up to 10.
	MaxSteps int `json:"max_steps"`

	// BaseURL points the provider at an OpenAI-compatible endpoint. Empty uses the default.
	BaseURL string `json:"base_url,omitempty"`

	// APIKey is never read from config files; it comes from the environment or a request header.
	APIKey string `json:"-"`

	// WorkspacesDir is the registry root: workspaces.json lives here and
	// auto-generated workspace paths are created under it.
	WorkspacesDir string `json:"workspaces_dir"`

	// DefaultWorkspaceDir is used when no workspace is current.
	DefaultWorkspaceDir string `json:"default_workspace_dir"`

	// RuntimeCommand is the external code-execution runtime (invoked as "<cmd> run <file>").
	RuntimeCommand string `json:"runtime_command"`

	// TypeCheckCommand is the command plus leading args for the typeCheck tool.
	TypeCheckCommand []string `json:"type_check_command,omitempty"`

	// Bind and Port configure the HTTP front-end.
	Bind string `json:"bind"`
	Port int    `json:"port"`

	// WebRoot serves the web client from disk instead of the embedded copy.
	WebRoot string `json:"web_root,omitempty"`

	// DisabledTools is a list of tool names to exclude from the catalog.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// JournalDisabled turns off the SQLite tool-run journal.
	JournalDisabled bool `json:"journal_disabled,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	temperature := float32(0.7)
	return &Config{
		Model:               "gpt-4",
		Temperature:         &temperature,
		MaxTokens:           2000,
		MaxSteps:            10,
		WorkspacesDir:       "./workspaces",
		DefaultWorkspaceDir: "./workspace",
		RuntimeCommand:      "andromeda",
		TypeCheckCommand:    []string{"deno", "check"},
		Bind:                "127.0.0.1",
		Port:                8080,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both the global directory and the nearest
// repo-level .copilot/config.json found by walking upward from startDir.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .copilot/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".copilot", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ApplyEnv overlays provider settings from the environment.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		c.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		c.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvModel)); v != "" {
		c.Model = v
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the path is empty or the file doesn't exist.
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	// Comments and trailing commas are allowed.
	cfg := &Config{}
	if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated,
// except TypeCheckCommand which is replaced wholesale.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		Model:               pickString(overlay.Model, base.Model),
		MaxTokens:           pickInt(overlay.MaxTokens, base.MaxTokens),
		MaxSteps:            pickInt(overlay.MaxSteps, base.MaxSteps),
		BaseURL:             pickString(overlay.BaseURL, base.BaseURL),
		APIKey:              pickString(overlay.APIKey, base.APIKey),
		WorkspacesDir:       pickString(overlay.WorkspacesDir, base.WorkspacesDir),
		DefaultWorkspaceDir: pickString(overlay.DefaultWorkspaceDir, base.DefaultWorkspaceDir),
		RuntimeCommand:      pickString(overlay.RuntimeCommand, base.RuntimeCommand),
		Bind:                pickString(overlay.Bind, base.Bind),
		Port:                pickInt(overlay.Port, base.Port),
		WebRoot:             pickString(overlay.WebRoot, base.WebRoot),
	}

	result.Temperature = overlay.Temperature
	if result.Temperature == nil {
		result.Temperature = base.Temperature
	}

	result.TypeCheckCommand = overlay.TypeCheckCommand
	if len(result.TypeCheckCommand) == 0 {
		result.TypeCheckCommand = base.TypeCheckCommand
	}

	// Booleans: overlay wins if true, else base
	result.JournalDisabled = base.JournalDisabled || overlay.JournalDisabled

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func pickString(overlay, base string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
