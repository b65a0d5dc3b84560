package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains filesystem and IPC endpoint configuration.
type Paths struct {
	SocketPath string `toml:"socket_path"`
	PipeName   string `toml:"pipe_name"`
	LogDir     string `toml:"log_dir"`
}

// Service contains session-manager and scheduler limits for the daemon.
type Service struct {
	MaxSessions            int `toml:"max_sessions"`
	MaxWorkers             int `toml:"max_workers"`
	SessionTimeoutMinutes  int `toml:"session_timeout_minutes"`
	CleanupIntervalMinutes int `toml:"cleanup_interval_minutes"`
}

// Client contains client-side connection and polling behavior.
type Client struct {
	ConnectTimeoutMillis int `toml:"connect_timeout_millis"`
	SpawnWaitSeconds     int `toml:"spawn_wait_seconds"`
	PollIntervalMillis   int `toml:"poll_interval_millis"`
	SessionMinBatch      int `toml:"session_min_batch"`
	PerFileTimeoutSecs   int `toml:"per_file_timeout_seconds"`
	AddFilesChunkSize    int `toml:"add_files_chunk_size"`
}

// Processing contains default conversion options applied when the caller
// does not override them.
type Processing struct {
	RemoveSource    bool   `toml:"remove_source"`
	UpdateMetadata  bool   `toml:"update_metadata"`
	OverwriteOutput bool   `toml:"overwrite_output"`
	SkipNoop        bool   `toml:"skip_noop"`
	NamingFormat    string `toml:"naming_format"`
	OutputDir       string `toml:"output_dir"`
}

// History contains configuration for the batch history database.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration shared by the daemon and the CLI.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Service    Service    `toml:"service"`
	Client     Client     `toml:"client"`
	Processing Processing `toml:"processing"`
	History    History    `toml:"history"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the expanded default config file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/um/config.toml")
}

// Load reads configuration from path (or the default locations when path is
// empty), applies defaults, normalizes paths, and validates the result. It
// returns the config, the resolved path, and whether a file existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("um.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
	}
	if c.History.Enabled && strings.TrimSpace(c.History.Path) != "" {
		if err := os.MkdirAll(filepath.Dir(c.History.Path), 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", filepath.Dir(c.History.Path), err)
		}
	}
	return nil
}

// Endpoint returns the platform IPC address the service listens on.
func (c *Config) Endpoint() string {
	if runtime.GOOS == "windows" {
		return c.Paths.PipeName
	}
	return c.Paths.SocketPath
}

// CreateSample writes the embedded sample configuration to path.
// It refuses to overwrite an existing file.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists: %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Sample returns the embedded sample configuration text.
func Sample() string {
	return sampleConfig
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
