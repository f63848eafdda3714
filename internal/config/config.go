package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	BackendURL string `yaml:"backendUrl"`
	ChannelID  string `yaml:"channelId"`
	Username   string `yaml:"username"`
	ListenAddr string `yaml:"listenAddr"`
	BlobDir    string `yaml:"blobDir"`
	LogLevel   string `yaml:"logLevel"`
}

// Load reads the optional YAML config file at path, then applies
// environment variable overrides and validates the result.
// An empty path skips the file and uses env/defaults only.
func Load(path string) (*Config, error) {
	cfg := &Config{
		BackendURL: "http://localhost:8000",
		ChannelID:  "default_client",
		Username:   "user",
		ListenAddr: "localhost:4200",
		BlobDir:    "blobs",
		LogLevel:   "info",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.BackendURL = getEnv("CHATPANEL_BACKEND_URL", cfg.BackendURL)
	cfg.ChannelID = getEnv("CHATPANEL_CHANNEL_ID", cfg.ChannelID)
	cfg.Username = getEnv("CHATPANEL_USERNAME", cfg.Username)
	cfg.ListenAddr = getEnv("CHATPANEL_LISTEN_ADDR", cfg.ListenAddr)
	cfg.BlobDir = getEnv("CHATPANEL_BLOB_DIR", cfg.BlobDir)
	cfg.LogLevel = getEnv("CHATPANEL_LOG_LEVEL", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("backendUrl is required")
	}
	if !strings.HasPrefix(c.BackendURL, "http://") && !strings.HasPrefix(c.BackendURL, "https://") {
		return fmt.Errorf("backendUrl must start with http:// or https://")
	}
	if c.Username == "" {
		return fmt.Errorf("username is required")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listenAddr is required")
	}
	return nil
}

// SocketURL derives the websocket endpoint from the backend base URL.
func (c *Config) SocketURL() string {
	ws := strings.Replace(c.BackendURL, "http", "ws", 1)
	return strings.TrimRight(ws, "/") + "/ws"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
