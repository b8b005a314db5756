package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains the HTTP API bind address and access controls.
type Server struct {
	Bind     string `toml:"bind"`
	APIToken string `toml:"api_token"`
	// TrustedProxies controls whether X-Forwarded-For is honoured when
	// resolving the client address of a submission.
	TrustedProxies bool `toml:"trusted_proxies"`
}

// Identity contains the persistent-identity token settings.
type Identity struct {
	Secret          string `toml:"secret"`
	TokenMaxAgeDays int    `toml:"token_max_age_days"`
}

// Matching contains thresholds and scan limits for the match pipeline.
type Matching struct {
	FuzzyScanLimit       int     `toml:"fuzzy_scan_limit"`
	StableScanLimit      int     `toml:"stable_scan_limit"`
	FuzzyThreshold       int     `toml:"fuzzy_threshold"`
	StableFuzzyThreshold int     `toml:"stable_fuzzy_threshold"`
	GPUScoreMin          float64 `toml:"gpu_score_min"`
}

// Trust contains the crowd-blending scorer settings.
type Trust struct {
	WindowDays int `toml:"window_days"`
}

// Paths contains directory configuration for daemon state.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Whorl.
//
// Configuration sections by subsystem:
//   - Server: HTTP bind address, admin API token, proxy trust
//   - Identity: token signing secret and maximum token age
//   - Matching: fuzzy/stable thresholds and candidate scan limits
//   - Trust: scorer window
//   - Paths: state and log directories
//   - Logging: log format and level
type Config struct {
	Server   Server   `toml:"server"`
	Identity Identity `toml:"identity"`
	Matching Matching `toml:"matching"`
	Trust    Trust    `toml:"trust"`
	Paths    Paths    `toml:"paths"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/whorl/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
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

// ResolvePath returns the configuration file Load would read for the given
// override, and whether it exists, without parsing or validating it.
func ResolvePath(path string) (string, bool, error) {
	return resolveConfigPath(path)
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

	defaultPath, err := expandPath("~/.config/whorl/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("whorl.toml")
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
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the SQLite visitor database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "whorl.db")
}

// SocketPath returns the Unix socket the daemon serves RPC on.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "whorl.sock")
}

// LockPath returns the daemon's single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "whorl.lock")
}

// TokenMaxAge returns the identity token age limit as a duration.
func (c *Config) TokenMaxAge() time.Duration {
	return time.Duration(c.Identity.TokenMaxAgeDays) * 24 * time.Hour
}

// TrustWindow returns the scorer's session window as a duration.
func (c *Config) TrustWindow() time.Duration {
	return time.Duration(c.Trust.WindowDays) * 24 * time.Hour
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

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
