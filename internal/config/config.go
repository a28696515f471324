// ABOUTME: Configuration loading for coven-telegram from environment and an optional file
// ABOUTME: Supports YAML or TOML files with ${VAR} expansion; environment variables win

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Environment variables read by LoadFromEnv.
const (
	EnvConfigFile      = "COVEN_TELEGRAM_CONFIG"
	EnvBotToken        = "CALLME_TELEGRAM_BOT_TOKEN"
	EnvResponseTimeout = "CALLME_RESPONSE_TIMEOUT_MS"
	EnvChatID          = "CALLME_TELEGRAM_CHAT_ID"
	EnvAPIURL          = "CALLME_TELEGRAM_API_URL"
	EnvAgentLabel      = "CALLME_AGENT_LABEL"
	EnvLogLevel        = "CALLME_LOG_LEVEL"
	EnvLogFormat       = "CALLME_LOG_FORMAT"
	EnvLedgerPath      = "CALLME_LEDGER_PATH"
	EnvHTTPAddr        = "CALLME_HTTP_ADDR"
	EnvMCPTransport    = "CALLME_MCP_TRANSPORT"
	EnvMCPToken        = "CALLME_MCP_TOKEN"
)

// Defaults applied when nothing else sets a value.
const (
	DefaultResponseTimeout = 180000 * time.Millisecond
	DefaultAPIURL          = "https://api.telegram.org"
	DefaultAgentLabel      = "Agent"
)

// MCP transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// ConfigurationError reports configuration that prevents startup.
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configErr(key, format string, args ...any) error {
	return &ConfigurationError{Key: key, Err: fmt.Errorf(format, args...)}
}

// Config represents the complete coven-telegram configuration
type Config struct {
	Telegram     TelegramConfig     `yaml:"telegram" toml:"telegram"`
	Conversation ConversationConfig `yaml:"conversation" toml:"conversation"`
	Ledger       LedgerConfig       `yaml:"ledger" toml:"ledger"`
	Server       ServerConfig       `yaml:"server" toml:"server"`
	Logging      LoggingConfig      `yaml:"logging" toml:"logging"`
}

// TelegramConfig holds Bot API settings
type TelegramConfig struct {
	BotToken string `yaml:"bot_token" toml:"bot_token"`
	ChatID   int64  `yaml:"chat_id" toml:"chat_id"` // 0 means bind from the first inbound message
	APIURL   string `yaml:"api_url" toml:"api_url"`

	PollWindow   time.Duration `yaml:"-" toml:"-"`
	PollInterval time.Duration `yaml:"-" toml:"-"`

	// Raw string values for file unmarshaling
	PollWindowRaw   string `yaml:"poll_window" toml:"poll_window"`
	PollIntervalRaw string `yaml:"poll_interval" toml:"poll_interval"`
}

// ConversationConfig holds reply waiting and formatting settings
type ConversationConfig struct {
	ResponseTimeoutMS int64  `yaml:"response_timeout_ms" toml:"response_timeout_ms"`
	AgentLabel        string `yaml:"agent_label" toml:"agent_label"`
}

// ResponseTimeout returns the response window as a duration.
func (c ConversationConfig) ResponseTimeout() time.Duration {
	return time.Duration(c.ResponseTimeoutMS) * time.Millisecond
}

// LedgerConfig holds the optional SQLite ledger location
type LedgerConfig struct {
	Path string `yaml:"path" toml:"path"` // empty disables the ledger
}

// ServerConfig holds the ops HTTP listener and MCP transport settings
type ServerConfig struct {
	HTTPAddr     string `yaml:"http_addr" toml:"http_addr"` // empty disables the ops router
	MCPTransport string `yaml:"mcp_transport" toml:"mcp_transport"`
	MCPToken     string `yaml:"mcp_token" toml:"mcp_token"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// LoadFromEnv loads the file named by COVEN_TELEGRAM_CONFIG, if any, then
// applies environment overrides.
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv(EnvConfigFile))
}

// Load reads the optional configuration file at path, overlays environment
// variables, fills defaults and validates the result. An empty path skips
// the file.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ConfigurationError{Key: EnvConfigFile, Err: fmt.Errorf("reading config file: %w", err)}
	}

	// Expand environment variables in the raw content
	expanded := expandEnvVars(string(data))

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal([]byte(expanded), cfg)
	case ".toml":
		_, err = toml.Decode(expanded, cfg)
	default:
		return configErr(EnvConfigFile, "unsupported config file extension %q (want .yaml, .yml or .toml)", ext)
	}
	if err != nil {
		return &ConfigurationError{Key: EnvConfigFile, Err: fmt.Errorf("parsing config file: %w", err)}
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyEnv overlays set environment variables onto cfg.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str(EnvBotToken, &cfg.Telegram.BotToken)
	str(EnvAPIURL, &cfg.Telegram.APIURL)
	str(EnvAgentLabel, &cfg.Conversation.AgentLabel)
	str(EnvLogLevel, &cfg.Logging.Level)
	str(EnvLogFormat, &cfg.Logging.Format)
	str(EnvLedgerPath, &cfg.Ledger.Path)
	str(EnvHTTPAddr, &cfg.Server.HTTPAddr)
	str(EnvMCPTransport, &cfg.Server.MCPTransport)
	str(EnvMCPToken, &cfg.Server.MCPToken)

	if v, ok := lookup(EnvResponseTimeout); ok && v != "" {
		ms, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return configErr(EnvResponseTimeout, "must be an integer number of milliseconds, got %q", v)
		}
		if ms <= 0 {
			return configErr(EnvResponseTimeout, "must be positive, got %d", ms)
		}
		cfg.Conversation.ResponseTimeoutMS = ms
	}

	if v, ok := lookup(EnvChatID); ok && v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return configErr(EnvChatID, "must be an integer chat id, got %q", v)
		}
		cfg.Telegram.ChatID = id
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Telegram.PollWindowRaw != "" {
		cfg.Telegram.PollWindow, err = time.ParseDuration(cfg.Telegram.PollWindowRaw)
		if err != nil {
			return configErr("telegram.poll_window", "parsing %q: %w", cfg.Telegram.PollWindowRaw, err)
		}
	}

	if cfg.Telegram.PollIntervalRaw != "" {
		cfg.Telegram.PollInterval, err = time.ParseDuration(cfg.Telegram.PollIntervalRaw)
		if err != nil {
			return configErr("telegram.poll_interval", "parsing %q: %w", cfg.Telegram.PollIntervalRaw, err)
		}
	}

	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Telegram.APIURL == "" {
		cfg.Telegram.APIURL = DefaultAPIURL
	}
	if cfg.Conversation.ResponseTimeoutMS == 0 {
		cfg.Conversation.ResponseTimeoutMS = DefaultResponseTimeout.Milliseconds()
	}
	if cfg.Conversation.AgentLabel == "" {
		cfg.Conversation.AgentLabel = DefaultAgentLabel
	}
	if cfg.Server.MCPTransport == "" {
		cfg.Server.MCPTransport = TransportStdio
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// ErrMissingToken is wrapped by the ConfigurationError for a missing bot token.
var ErrMissingToken = errors.New("bot token is required")

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return &ConfigurationError{Key: EnvBotToken, Err: ErrMissingToken}
	}

	if c.Conversation.ResponseTimeoutMS <= 0 {
		return configErr(EnvResponseTimeout, "must be positive, got %d", c.Conversation.ResponseTimeoutMS)
	}

	if c.Telegram.PollWindow < 0 {
		return configErr("telegram.poll_window", "must not be negative")
	}
	if c.Telegram.PollInterval < 0 {
		return configErr("telegram.poll_interval", "must not be negative")
	}

	switch c.Server.MCPTransport {
	case TransportStdio:
	case TransportHTTP:
		if c.Server.HTTPAddr == "" {
			return configErr(EnvHTTPAddr, "is required when %s=%s", EnvMCPTransport, TransportHTTP)
		}
		if c.Server.MCPToken == "" {
			return configErr(EnvMCPToken, "is required when %s=%s", EnvMCPTransport, TransportHTTP)
		}
	default:
		return configErr(EnvMCPTransport, "must be %q or %q, got %q", TransportStdio, TransportHTTP, c.Server.MCPTransport)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return configErr(EnvLogLevel, "unknown level %q", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return configErr(EnvLogFormat, "unknown format %q", c.Logging.Format)
	}

	return nil
}
