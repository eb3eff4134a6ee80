package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Gateway     GatewayConfig         `toml:"gateway"`
	Summarizer  SummarizerConfig      `toml:"summarizer"`
	Transcript  TranscriptConfig      `toml:"transcript"`
	Calendar    CalendarConfig        `toml:"calendar"`
	Jira        JiraConfig            `toml:"jira"`
	Notify      map[string]SinkConfig `toml:"notify"`
	Store       StoreConfig           `toml:"store"`
	Log         LogConfig             `toml:"log"`
	Tracing     TracingConfig         `toml:"tracing"`
	Credentials CredentialsConfig     `toml:"credentials"`
	MCP         MCPConfig             `toml:"mcp"`
	A2A         A2AConfig             `toml:"a2a"`
	Digest      DigestConfig          `toml:"digest"`
	Webhooks    WebhooksConfig        `toml:"webhooks"`
}

type GatewayConfig struct {
	Bind      string `toml:"bind"`
	Port      int    `toml:"port"`
	AuthToken string `toml:"auth_token"`
}

type SummarizerConfig struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	APIKeyEnv string `toml:"api_key_env"`
	BaseURL   string `toml:"base_url"`
	MaxTokens int    `toml:"max_tokens"`
}

type TranscriptConfig struct {
	ChunkSize int `toml:"chunk_size"`
}

type CalendarConfig struct {
	BaseURL    string `toml:"base_url"`
	TokenEnv   string `toml:"token_env"`
	CalendarID string `toml:"calendar_id"`
}

type JiraConfig struct {
	BaseURL   string `toml:"base_url"`
	EmailEnv  string `toml:"email_env"`
	TokenEnv  string `toml:"token_env"`
	Project   string `toml:"project"`
	IssueType string `toml:"issue_type"`
}

// SinkConfig is shared by every notification sink; each sink reads the
// fields it cares about and ignores the rest.
type SinkConfig struct {
	Enabled    bool   `toml:"enabled"`
	Token      string `toml:"token"`
	TokenEnv   string `toml:"token_env"`
	WebhookURL string `toml:"webhook_url"`
	Channel    string `toml:"channel"`
	Homeserver string `toml:"homeserver"`
	UserID     string `toml:"user_id"`
	Room       string `toml:"room"`
	Recipient  string `toml:"recipient"`
}

type StoreConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type TracingConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
}

type CredentialsConfig struct {
	MasterKeyEnv string `toml:"master_key_env"`
}

type MCPConfig struct {
	Enabled bool              `toml:"enabled"`
	Servers []MCPServerConfig `toml:"servers"`
}

type MCPServerConfig struct {
	Name    string            `toml:"name"`
	Command string            `toml:"command"`
	Args    []string          `toml:"args"`
	Env     map[string]string `toml:"env"`
	Enabled *bool             `toml:"enabled"`
}

type A2AConfig struct {
	Enabled     bool   `toml:"enabled"`
	AuthToken   string `toml:"auth_token"`
	ExternalURL string `toml:"external_url"`
}

type DigestConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"`
	Prompt   string `toml:"prompt"`
}

type WebhooksConfig struct {
	Secret    string `toml:"secret"`
	SecretEnv string `toml:"secret_env"`
}

func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Bind: "loopback",
			Port: 18790,
		},
		Summarizer: SummarizerConfig{
			Provider:  "anthropic",
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 1024,
		},
		Transcript: TranscriptConfig{
			ChunkSize: 1500,
		},
		Jira: JiraConfig{
			IssueType: "Task",
		},
		Digest: DigestConfig{
			Schedule: "@daily",
			Prompt:   "summarize recent meetings and notify the team",
		},
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(DataDir(), "meetingmcp.db"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

var (
	current *Config
	mu      sync.RWMutex
)

func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.Store.DSN == "" {
		cfg.Store.DSN = filepath.Join(DataDir(), "meetingmcp.db")
	}
	if cfg.Transcript.ChunkSize <= 0 {
		cfg.Transcript.ChunkSize = 1500
	}

	mu.Lock()
	current = cfg
	mu.Unlock()

	return cfg, nil
}

func Current() *Config {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return Default()
	}
	return current
}

func DataDir() string {
	if dir := os.Getenv("MEETINGMCP_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".meetingmcp"
	}
	return filepath.Join(home, ".meetingmcp")
}

func DefaultConfigPath() string {
	return filepath.Join(DataDir(), "meetingmcp.toml")
}

func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0700)
}
