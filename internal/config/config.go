package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "CLIPFORGE_CONFIG"
	apiKeyEnv     = "GEMINI_API_KEY"
	modelEnv      = "GEMINI_MODEL"
	baseURLEnv    = "GEMINI_BASE_URL"
	portEnv       = "PORT"

	defaultPort         = 10000
	defaultModel        = "gemini-1.5-flash"
	defaultPollInterval = 2 * time.Second
	defaultPollTimeout  = 5 * time.Minute
)

// Config holds all runtime settings. It is built once at startup and
// handed to constructors; nothing reads the environment after Load.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Gemini GeminiConfig `yaml:"gemini"`
	Tools  ToolsConfig  `yaml:"tools"`

	// WorkRoot is the parent directory for per-request workspaces.
	// Empty means the OS temp dir.
	WorkRoot string `yaml:"workRoot"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type GeminiConfig struct {
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"baseUrl"`

	PollIntervalSec float64 `yaml:"pollIntervalSec"`
	PollTimeoutSec  float64 `yaml:"pollTimeoutSec"`
}

func (g GeminiConfig) PollInterval() time.Duration {
	if g.PollIntervalSec <= 0 {
		return defaultPollInterval
	}
	return time.Duration(g.PollIntervalSec * float64(time.Second))
}

func (g GeminiConfig) PollTimeout() time.Duration {
	if g.PollTimeoutSec <= 0 {
		return defaultPollTimeout
	}
	return time.Duration(g.PollTimeoutSec * float64(time.Second))
}

// ToolsConfig points at the external binaries the pipeline shells out to.
// Empty values resolve from PATH.
type ToolsConfig struct {
	YtDlp   string `yaml:"ytdlp"`
	FFmpeg  string `yaml:"ffmpeg"`
	FFprobe string `yaml:"ffprobe"`
}

// Load reads the optional YAML file named by CLIPFORGE_CONFIG and applies
// environment overrides on top of defaults.
func Load(log *slog.Logger) Config {
	cfg := Config{
		Server: ServerConfig{Port: defaultPort},
		Gemini: GeminiConfig{Model: defaultModel},
	}

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warn("cannot read config file, using defaults", "path", path, "err", err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			log.Warn("cannot parse config file, using defaults", "path", path, "err", err)
		}
	}

	cfg.applyEnvOverrides(log)
	return cfg
}

func (c *Config) applyEnvOverrides(log *slog.Logger) {
	if v := os.Getenv(apiKeyEnv); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv(modelEnv); v != "" {
		c.Gemini.Model = v
	}
	if v := os.Getenv(baseURLEnv); v != "" {
		c.Gemini.BaseURL = v
	}
	if v := os.Getenv(portEnv); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			log.Warn("ignoring invalid PORT", "value", v)
		} else {
			c.Server.Port = p
		}
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = defaultModel
	}
}

func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Gemini.PollIntervalSec < 0 || c.Gemini.PollTimeoutSec < 0 {
		return fmt.Errorf("poll settings must not be negative")
	}
	return nil
}
