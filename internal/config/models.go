package config

import (
	"fmt"
	"time"
)

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider          string
	EmbeddingProvider string
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey         string
	ModelName      string
	EmbeddingModel string
	MaxTokens      int
	Temperature    float32
	TopP           float32
	MaxBodySize    int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey         string
	ModelName      string
	EmbeddingModel string
	MaxTokens      int
	Temperature    float32
	TopP           float32
	MaxBodySize    int
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region           string
	ModelID          string
	EmbeddingModelID string
	MaxTokens        int
	Temperature      float32
	TopP             float32
	MaxBodySize      int
}

// AnthropicConfig represents the configuration for the Anthropic API
type AnthropicConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	MaxBodySize int
}

// SamsaraConfig represents the configuration for the Samsara fleet API
type SamsaraConfig struct {
	APIToken          string
	BaseURL           string
	Timeout           time.Duration
	MaxAttempts       int
	RequestsPerSecond float64
}

// KnowledgeConfig represents the configuration for the knowledge index
type KnowledgeConfig struct {
	IndexPath    string
	ChunkSize    int
	ChunkOverlap int
	TopK         int
}

// MailboxConfig holds settings shared by both mailbox adapters
type MailboxConfig struct {
	FetchLimit int
	Workers    int
	Lookback   time.Duration
	GraphURL   string
}

// WorkflowConfig holds the workflow engine settings
type WorkflowConfig struct {
	SendMode       string
	IgnoredDomains []string
}

// ServerConfig holds the HTTP API settings
type ServerConfig struct {
	ListenAddress string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
}

// HistoryConfig holds the run history store settings
type HistoryConfig struct {
	Type             string
	Enabled          bool
	Retention        time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
	RedisAddr        string
	RedisKey         string
}

// ScheduleConfig holds the polling schedule
type ScheduleConfig struct {
	Enabled bool
	Spec    string
}

// NotifyConfig holds the SMTP run summary settings
type NotifyConfig struct {
	Enabled bool
	Address string
	Port    int
	From    string
	To      []string
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	embedding := c.GetString("llm.embedding_provider")
	if embedding == "" {
		embedding = c.GetString("llm.provider")
	}
	return LLMConfig{
		Provider:          c.GetString("llm.provider"),
		EmbeddingProvider: embedding,
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:         c.GetString("gemini.api_key"),
		ModelName:      c.GetString("gemini.model_name"),
		EmbeddingModel: c.GetString("gemini.embedding_model"),
		MaxTokens:      c.GetInt("gemini.max_tokens"),
		Temperature:    float32(c.GetFloat64("gemini.temperature")),
		TopP:           float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize:    c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:         c.GetString("openai.api_key"),
		ModelName:      c.GetString("openai.model_name"),
		EmbeddingModel: c.GetString("openai.embedding_model"),
		MaxTokens:      c.GetInt("openai.max_tokens"),
		Temperature:    float32(c.GetFloat64("openai.temperature")),
		TopP:           float32(c.GetFloat64("openai.top_p")),
		MaxBodySize:    c.GetInt("openai.max_body_size"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:           c.GetString("bedrock.region"),
		ModelID:          c.GetString("bedrock.model_id"),
		EmbeddingModelID: c.GetString("bedrock.embedding_model_id"),
		MaxTokens:        c.GetInt("bedrock.max_tokens"),
		Temperature:      float32(c.GetFloat64("bedrock.temperature")),
		TopP:             float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize:      c.GetInt("bedrock.max_body_size"),
	}
}

// GetAnthropic returns the Anthropic configuration
func (c *Config) GetAnthropic() AnthropicConfig {
	return AnthropicConfig{
		APIKey:      c.GetString("anthropic.api_key"),
		ModelName:   c.GetString("anthropic.model_name"),
		MaxTokens:   c.GetInt("anthropic.max_tokens"),
		Temperature: float32(c.GetFloat64("anthropic.temperature")),
		MaxBodySize: c.GetInt("anthropic.max_body_size"),
	}
}

// GetSamsara returns the Samsara configuration
func (c *Config) GetSamsara() (SamsaraConfig, error) {
	timeout, err := c.GetDuration("samsara.timeout")
	if err != nil {
		return SamsaraConfig{}, fmt.Errorf("invalid samsara timeout: %w", err)
	}
	return SamsaraConfig{
		APIToken:          c.GetString("samsara.api_token"),
		BaseURL:           c.GetString("samsara.base_url"),
		Timeout:           timeout,
		MaxAttempts:       c.GetInt("samsara.max_attempts"),
		RequestsPerSecond: c.GetFloat64("samsara.requests_per_second"),
	}, nil
}

// GetKnowledge returns the knowledge index configuration
func (c *Config) GetKnowledge() KnowledgeConfig {
	return KnowledgeConfig{
		IndexPath:    c.GetString("knowledge.index_path"),
		ChunkSize:    c.GetInt("knowledge.chunk_size"),
		ChunkOverlap: c.GetInt("knowledge.chunk_overlap"),
		TopK:         c.GetInt("knowledge.top_k"),
	}
}

// GetMailbox returns the shared mailbox adapter configuration
func (c *Config) GetMailbox() (MailboxConfig, error) {
	lookback, err := c.GetDuration("mailbox.lookback")
	if err != nil {
		return MailboxConfig{}, fmt.Errorf("invalid mailbox lookback: %w", err)
	}
	return MailboxConfig{
		FetchLimit: c.GetInt("mailbox.fetch_limit"),
		Workers:    c.GetInt("mailbox.workers"),
		Lookback:   lookback,
		GraphURL:   c.GetString("outlook.graph_url"),
	}, nil
}

// GetWorkflow returns the workflow engine configuration
func (c *Config) GetWorkflow() WorkflowConfig {
	return WorkflowConfig{
		SendMode:       c.GetString("workflow.send_mode"),
		IgnoredDomains: c.GetStringSlice("workflow.ignored_domains"),
	}
}

// GetServer returns the HTTP server configuration
func (c *Config) GetServer() (ServerConfig, error) {
	readTimeout, err := c.GetDuration("server.read_timeout")
	if err != nil {
		return ServerConfig{}, fmt.Errorf("invalid server read timeout: %w", err)
	}
	writeTimeout, err := c.GetDuration("server.write_timeout")
	if err != nil {
		return ServerConfig{}, fmt.Errorf("invalid server write timeout: %w", err)
	}
	return ServerConfig{
		ListenAddress: c.GetString("server.listen_address"),
		ReadTimeout:   readTimeout,
		WriteTimeout:  writeTimeout,
	}, nil
}

// GetHistory returns the run history configuration
func (c *Config) GetHistory() (HistoryConfig, error) {
	retention, err := c.GetDuration("history.retention")
	if err != nil {
		return HistoryConfig{}, fmt.Errorf("invalid history retention: %w", err)
	}
	cleanupFreq, err := c.GetDuration("history.cleanup_frequency")
	if err != nil {
		return HistoryConfig{}, fmt.Errorf("invalid history cleanup frequency: %w", err)
	}
	return HistoryConfig{
		Type:             c.GetString("history.type"),
		Enabled:          c.GetBool("history.enabled"),
		Retention:        retention,
		CleanupFrequency: cleanupFreq,
		SQLitePath:       c.GetString("history.sqlite_path"),
		MySQLDSN:         c.GetString("history.mysql_dsn"),
		RedisAddr:        c.GetString("history.redis_addr"),
		RedisKey:         c.GetString("history.redis_key"),
	}, nil
}

// GetSchedule returns the polling schedule configuration
func (c *Config) GetSchedule() ScheduleConfig {
	return ScheduleConfig{
		Enabled: c.GetBool("schedule.enabled"),
		Spec:    c.GetString("schedule.spec"),
	}
}

// GetNotify returns the SMTP notification configuration
func (c *Config) GetNotify() NotifyConfig {
	return NotifyConfig{
		Enabled: c.GetBool("notify.smtp.enabled"),
		Address: c.GetString("notify.smtp.address"),
		Port:    c.GetInt("notify.smtp.port"),
		From:    c.GetString("notify.smtp.from"),
		To:      c.GetStringSlice("notify.smtp.to"),
	}
}
