package config

import (
	"strings"
	"time"
)

type ZiteboardConfig struct {
	URL                  string `yaml:"url" json:"url"`
	APIKey               string `yaml:"apiKey" json:"-"`
	TokenExpiryInSeconds int    `yaml:"tokenExpiryInSeconds" json:"tokenExpiryInSeconds"`
}

// BaseURL returns the configured URL without a trailing slash so paths can be appended.
func (z *ZiteboardConfig) BaseURL() string {
	return strings.TrimRight(z.URL, "/")
}

func (z *ZiteboardConfig) TokenLifetime() time.Duration {
	return time.Duration(z.TokenExpiryInSeconds) * time.Second
}
