package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	return NewFromFile("")
}

// NewFromFile creates a configuration instance, reading the given file when set
// and the standard search paths otherwise
func NewFromFile(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/email-automation/")
		v.AddConfigPath("$HOME/.email-automation")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("EMAIL_AUTOMATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// defaults holds the value of every key that is not set by file or environment
var defaults = map[string]interface{}{
	"llm.provider":           "gemini",
	"llm.embedding_provider": "",

	// Gemini
	"gemini.api_key":         "",
	"gemini.model_name":      "gemini-1.5-flash",
	"gemini.embedding_model": "text-embedding-004",
	"gemini.max_tokens":      2048,
	"gemini.temperature":     0.1,
	"gemini.top_p":           0.9,
	"gemini.max_body_size":   8192,

	// OpenAI
	"openai.api_key":         "",
	"openai.model_name":      "gpt-4o-mini",
	"openai.embedding_model": "text-embedding-3-small",
	"openai.max_tokens":      2048,
	"openai.temperature":     0.1,
	"openai.top_p":           0.9,
	"openai.max_body_size":   8192,

	// Bedrock
	"bedrock.region":             "us-east-1",
	"bedrock.model_id":           "anthropic.claude-3-haiku-20240307-v1:0",
	"bedrock.embedding_model_id": "amazon.titan-embed-text-v2:0",
	"bedrock.max_tokens":         2048,
	"bedrock.temperature":        0.1,
	"bedrock.top_p":              0.9,
	"bedrock.max_body_size":      8192,

	// Anthropic
	"anthropic.api_key":       "",
	"anthropic.model_name":    "claude-3-5-haiku-latest",
	"anthropic.max_tokens":    2048,
	"anthropic.temperature":   0.1,
	"anthropic.max_body_size": 8192,

	// Samsara
	"samsara.api_token":           "",
	"samsara.base_url":            "https://api.samsara.com",
	"samsara.timeout":             "30s",
	"samsara.max_attempts":        3,
	"samsara.requests_per_second": 5,

	// Knowledge base
	"knowledge.index_path":    "./data/knowledge.db",
	"knowledge.chunk_size":    300,
	"knowledge.chunk_overlap": 50,
	"knowledge.top_k":         3,

	// Mailbox
	"mailbox.fetch_limit": 50,
	"mailbox.workers":     5,
	"mailbox.lookback":    "24h",
	"outlook.graph_url":   "https://graph.microsoft.com/v1.0",

	// Workflow
	"workflow.send_mode":       "draft",
	"workflow.ignored_domains": []string{},

	// Server
	"server.listen_address": "0.0.0.0:8000",
	"server.read_timeout":   "30s",
	"server.write_timeout":  "10m",

	// Run history
	"history.type":              "memory",
	"history.enabled":           true,
	"history.retention":         "720h",
	"history.cleanup_frequency": "1h",
	"history.sqlite_path":       "./data/run_history.db",
	"history.mysql_dsn":         "user:password@tcp(localhost:3306)/email_automation?parseTime=true",
	"history.redis_addr":        "localhost:6379",
	"history.redis_key":         "email_automation:runs",

	// Scheduler
	"schedule.enabled": false,
	"schedule.spec":    "@every 15m",

	// Notification
	"notify.smtp.enabled": false,
	"notify.smtp.address": "localhost",
	"notify.smtp.port":    25,
	"notify.smtp.from":    "",
	"notify.smtp.to":      []string{},

	// Logging
	"logging.level":  "info",
	"logging.format": "json",
}

func setDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
