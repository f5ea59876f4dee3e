package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds CLI configuration. Fields with an env tag can be set
// through TRIVIACTL_* variables; flags override them.
type Config struct {
	ServerURL string        `env:"SERVER" envDefault:"http://localhost:8080"`
	Token     string        `env:"TOKEN"`
	TokenFile string        `env:"TOKEN_FILE"`
	Output    string        `env:"OUTPUT" envDefault:"text"`
	Timeout   time.Duration `env:"TIMEOUT" envDefault:"30s"`
	Verbose   bool
}

// LoadConfig reads the CLI environment
func LoadConfig() (*Config, error) {
	c := &Config{}
	if err := env.ParseWithOptions(c, env.Options{Prefix: "TRIVIACTL_"}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if c.TokenFile == "" {
		c.TokenFile = defaultTokenFile()
	}
	return c, nil
}

// LoadToken loads the token from file if not already set
func (c *Config) LoadToken() error {
	if c.Token != "" {
		return nil
	}

	data, err := os.ReadFile(c.TokenFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No token file is fine
		}
		return err
	}

	c.Token = strings.TrimSpace(string(data))
	return nil
}

// SaveToken saves the token to the token file
func (c *Config) SaveToken(token string) error {
	c.Token = token

	dir := filepath.Dir(c.TokenFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	return os.WriteFile(c.TokenFile, []byte(token), 0600)
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".triviactl/token"
	}
	return filepath.Join(home, ".triviactl", "token")
}
