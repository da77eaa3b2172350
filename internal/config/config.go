package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultAPIBaseURL is the generation service base path used when nothing else is configured.
const DefaultAPIBaseURL = "http://localhost:8000/api/v1"

// Config holds all sdlcpilot configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Generation service
	API APIConfig `yaml:"api"`

	// Test case hand-off between flows
	Handoff HandoffConfig `yaml:"handoff"`

	// Generated artifact defaults
	Output OutputConfig `yaml:"output"`

	Batch   BatchConfig   `yaml:"batch"`
	Watch   WatchConfig   `yaml:"watch"`
	Service ServiceConfig `yaml:"service"`

	// Directory for session ids, the hand-off database and logs
	StateDir string `yaml:"state_dir"`

	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the transport client.
type APIConfig struct {
	BaseURL string            `yaml:"base_url"`
	Timeout string            `yaml:"timeout"` // empty = no client-side timeout
	Headers map[string]string `yaml:"headers"`
}

// HandoffConfig selects the hand-off store backend.
type HandoffConfig struct {
	Backend string `yaml:"backend"` // memory, sqlite
	Path    string `yaml:"path"`    // sqlite database, relative to state_dir
}

// OutputConfig configures generated code defaults.
type OutputConfig struct {
	Dir             string `yaml:"dir"`       // where downloads are written
	Extension       string `yaml:"extension"` // source file extension
	ModuleName      string `yaml:"module_name"`
	ServerPath      string `yaml:"server_path"` // output_path hint sent to the service
	IncludeFixtures bool   `yaml:"include_fixtures"`
	IncludeConftest bool   `yaml:"include_conftest"`
}

// BatchConfig configures batch generation.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// WatchConfig configures the requirement watcher.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// ServiceConfig configures the local generation service.
type ServiceConfig struct {
	Addr string `yaml:"addr"`
}

// ValidHandoffBackends lists the supported hand-off stores.
var ValidHandoffBackends = []string{"memory", "sqlite"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "sdlcpilot",
		Version: "0.3.0",

		API: APIConfig{
			BaseURL: DefaultAPIBaseURL,
		},

		Handoff: HandoffConfig{
			Backend: "sqlite",
			Path:    "handoff.db",
		},

		Output: OutputConfig{
			Dir:             ".",
			Extension:       "py",
			ModuleName:      "test_generated",
			IncludeFixtures: true,
		},

		Batch: BatchConfig{Concurrency: 4},
		Watch: WatchConfig{Debounce: "300ms"},

		Service: ServiceConfig{Addr: "127.0.0.1:8000"},

		StateDir: defaultStateDir(),

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".sdlcpilot"
	}
	return filepath.Join(home, ".sdlcpilot")
}

// DefaultPath returns the default location of config.yaml.
func DefaultPath() string {
	if dir := os.Getenv("SDLC_STATE_DIR"); dir != "" {
		return filepath.Join(dir, "config.yaml")
	}
	return filepath.Join(defaultStateDir(), "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// VITE_API_URL is what the browser build used; SDLC_API_URL wins when both are set.
	if url := os.Getenv("VITE_API_URL"); url != "" {
		c.API.BaseURL = url
	}
	if url := os.Getenv("SDLC_API_URL"); url != "" {
		c.API.BaseURL = url
	}
	if backend := os.Getenv("SDLC_HANDOFF"); backend != "" {
		c.Handoff.Backend = backend
	}
	if dir := os.Getenv("SDLC_STATE_DIR"); dir != "" {
		c.StateDir = dir
	}
	if v := os.Getenv("SDLC_DEBUG"); strings.EqualFold(v, "true") || v == "1" {
		c.Logging.DebugMode = true
		c.Logging.Level = "debug"
	}
}

// GetAPITimeout returns the client timeout; zero means none.
func (c *Config) GetAPITimeout() time.Duration {
	if c.API.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// GetWatchDebounce returns the watcher debounce window.
func (c *Config) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 300 * time.Millisecond
	}
	return d
}

// HandoffPath returns the absolute location of the sqlite hand-off database.
func (c *Config) HandoffPath() string {
	if filepath.IsAbs(c.Handoff.Path) {
		return c.Handoff.Path
	}
	return filepath.Join(c.StateDir, c.Handoff.Path)
}

// LogsDir returns the directory category log files are written to.
func (c *Config) LogsDir() string {
	return filepath.Join(c.StateDir, "logs")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url is required (set SDLC_API_URL)")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) URL: %s", c.API.BaseURL)
	}
	if c.API.Timeout != "" {
		if _, err := time.ParseDuration(c.API.Timeout); err != nil {
			return fmt.Errorf("invalid api.timeout %q: %w", c.API.Timeout, err)
		}
	}

	validBackend := false
	for _, b := range ValidHandoffBackends {
		if c.Handoff.Backend == b {
			validBackend = true
			break
		}
	}
	if !validBackend {
		return fmt.Errorf("invalid handoff backend: %s (valid: %v)", c.Handoff.Backend, ValidHandoffBackends)
	}
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch.concurrency must be at least 1, got %d", c.Batch.Concurrency)
	}
	if c.Output.Extension == "" {
		return fmt.Errorf("output.extension is required")
	}
	return nil
}
