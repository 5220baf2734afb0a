package config

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/matheuscscp/ziteboard-sessions/internal/constants"
)

const (
	EnvConfigFile = "ZITEBOARD_SESSIONS_CONFIG"
	EnvAPIKey     = "ZITEBOARD_API_KEY"

	defaultConfigFile = "/etc/ziteboard-sessions/config/config.yaml"
)

type Config struct {
	Ziteboard ZiteboardConfig `yaml:"ziteboard" json:"ziteboard"`
	Lessons   LessonsConfig   `yaml:"lessons" json:"lessons"`
	Store     StoreConfig     `yaml:"store" json:"store"`
	Server    ServerConfig    `yaml:"server" json:"server"`
}

type LessonsConfig struct {
	// DefaultLessonID is looked up once when a requested lesson does not exist.
	DefaultLessonID string `yaml:"defaultLessonID" json:"defaultLessonID"`
}

func Load() (*Config, error) {
	fileName := defaultConfigFile
	if fn := os.Getenv(EnvConfigFile); fn != "" {
		fileName = fn
	}
	var cfg Config
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file '%s': %w", fileName, err)
	}
	if key := os.Getenv(EnvAPIKey); key != "" {
		cfg.Ziteboard.APIKey = key
	}
	if err := cfg.ValidateAndInitialize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) ValidateAndInitialize() error {
	// Apply defaults.
	if c.Ziteboard.TokenExpiryInSeconds == 0 {
		c.Ziteboard.TokenExpiryInSeconds = constants.DefaultTokenExpiryInSeconds
	}
	if c.Store.Driver == "" {
		c.Store.Driver = StoreDriverMemory
	}
	if c.Store.Driver == StoreDriverSQLite && c.Store.Path == "" {
		c.Store.Path = defaultStorePath
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaultServerAddr
	}

	// Validate required fields.
	if c.Ziteboard.URL == "" {
		return fmt.Errorf("ziteboard.url must be set")
	}
	u, err := url.Parse(c.Ziteboard.URL)
	if err != nil {
		return fmt.Errorf("failed to parse ziteboard.url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("ziteboard.url must be an absolute http(s) URL, got '%s'", c.Ziteboard.URL)
	}
	if c.Ziteboard.APIKey == "" {
		return fmt.Errorf("ziteboard.apiKey must be set")
	}
	if c.Ziteboard.TokenExpiryInSeconds < 0 {
		return fmt.Errorf("ziteboard.tokenExpiryInSeconds must be positive, got %d", c.Ziteboard.TokenExpiryInSeconds)
	}
	switch c.Store.Driver {
	case StoreDriverMemory, StoreDriverSQLite:
	default:
		return fmt.Errorf("unsupported store.driver: %s", c.Store.Driver)
	}

	return nil
}
