package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/codefionn/chatterm/internal/consts"
)

const appName = "chatterm"

// Duration is a time.Duration written as "1.5s" in the config file and
// environment.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// ReconnectConfig controls how a lost relay connection is re-established
type ReconnectConfig struct {
	Enabled     bool     `json:"enabled" env:"ENABLED"`
	MaxAttempts int      `json:"max_attempts" env:"MAX_ATTEMPTS"` // 0 = unlimited
	Delay       Duration `json:"delay" env:"DELAY"`               // initial backoff
	MaxDelay    Duration `json:"max_delay" env:"MAX_DELAY"`       // backoff ceiling
}

// Config represents application configuration
type Config struct {
	ServerURL        string          `json:"server_url" env:"SERVER_URL"`
	Username         string          `json:"username,omitempty" env:"USERNAME"` // skips the login screen when set
	AvatarTemplate   string          `json:"avatar_template" env:"AVATAR_TEMPLATE"`
	LogLevel         string          `json:"log_level" env:"LOG_LEVEL"` // debug, info, warn, error, none
	LogPath          string          `json:"log_path" env:"LOG_PATH"`
	StrictProtocol   bool            `json:"strict_protocol" env:"STRICT_PROTOCOL"`
	SendBuffer       int             `json:"send_buffer" env:"SEND_BUFFER"`
	HandshakeTimeout Duration        `json:"handshake_timeout" env:"HANDSHAKE_TIMEOUT"`
	Reconnect        ReconnectConfig `json:"reconnect" envPrefix:"RECONNECT_"`
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Roaming", appName)
	default:
		if configHome := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); configHome != "" {
			return filepath.Join(configHome, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", appName)
	}
}

func defaultStateDir() string {
	switch runtime.GOOS {
	case "windows":
		if localAppData := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); localAppData != "" {
			return filepath.Join(localAppData, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Local", appName)
	default:
		if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
			return filepath.Join(stateHome, appName)
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".local", "state", appName)
	}
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		ServerURL:        "ws://127.0.0.1:8080",
		AvatarTemplate:   "https://avatars.dicebear.com/api/adventurer-neutral/{name}.svg",
		LogLevel:         "info",
		LogPath:          filepath.Join(defaultStateDir(), appName+".log"),
		SendBuffer:       consts.DefaultSendBuffer,
		HandshakeTimeout: Duration(consts.Timeout10Seconds),
		Reconnect: ReconnectConfig{
			Enabled:     true,
			MaxAttempts: consts.DefaultMaxReconnectAttempts,
			Delay:       Duration(time.Second),
			MaxDelay:    Duration(consts.Timeout30Seconds),
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	// Start with default config
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return default config if file doesn't exist
			return config, nil
		}
		return nil, err
	}

	// Unmarshal into default config (overrides only provided fields)
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// Ensure critical fields have defaults if still empty
	def := DefaultConfig()
	if config.ServerURL == "" {
		config.ServerURL = def.ServerURL
	}
	if config.AvatarTemplate == "" {
		config.AvatarTemplate = def.AvatarTemplate
	}
	if config.LogLevel == "" {
		config.LogLevel = def.LogLevel
	}
	if config.LogPath == "" {
		config.LogPath = def.LogPath
	}

	return config, nil
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetConfigPath returns the default config path
func GetConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("server_url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("server_url %q: scheme must be ws or wss", c.ServerURL)
	}
	if u.Host == "" {
		return fmt.Errorf("server_url %q: missing host", c.ServerURL)
	}
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug", "info", "warn", "warning", "error", "none":
	default:
		return fmt.Errorf("log_level %q: want debug, info, warn, error or none", c.LogLevel)
	}
	if c.SendBuffer < 1 {
		return errors.New("send_buffer must be at least 1")
	}
	if c.Reconnect.MaxAttempts < 0 {
		return errors.New("reconnect.max_attempts must not be negative")
	}
	if c.Reconnect.Delay < 0 || c.Reconnect.MaxDelay < 0 || c.HandshakeTimeout < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}
