package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone  = "UTC"
	configPathEnv    = "HDC_DIGEST_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	agentAPIKeyEnv   = "OPENAI_API_KEY"
	agentModelEnv    = "OPENAI_MODEL"
	agentEndpointEnv = "OPENAI_ENDPOINT"
	logLevelEnv      = "LOG_LEVEL"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv  = "TELEGRAM_CHAT_ID"

	ScannerAgent = "agent"
	ScannerArxiv = "arxiv"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	Agent         AgentConfig        `yaml:"agent"`
	Logging       LoggingConfig      `yaml:"logging"`
	Digest        DigestConfig       `yaml:"digest"`
	Trends        TrendsConfig       `yaml:"trends"`
	Sections      []SectionConfig    `yaml:"sections"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN selects
// the in-memory store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig defines when serve mode runs the digest.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// AgentConfig defines how to reach the OpenAI-compatible search agent.
type AgentConfig struct {
	Endpoint          string        `yaml:"endpoint"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"apiKey"`
	SystemPrompt      string        `yaml:"systemPrompt"`
	WebSearch         bool          `yaml:"webSearch"`
	RequestsPerMinute int           `yaml:"requestsPerMinute"`
	Timeout           time.Duration `yaml:"timeout"`
}

// LoggingConfig sets the slog level and handler format ("text" or "json").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DigestConfig bounds what each section asks the agent for.
type DigestConfig struct {
	DaysBack           int `yaml:"daysBack"`
	MaxItemsPerSection int `yaml:"maxItemsPerSection"`
}

// TrendsConfig drives the trend analyzer.
type TrendsConfig struct {
	WeeksBack    int            `yaml:"weeksBack"`
	TopN         int            `yaml:"topN"`
	PeriodType   string         `yaml:"periodType"`
	KeywordsOnly bool           `yaml:"keywordsOnly"`
	SampleSize   int            `yaml:"sampleSize"`
	TopicPrompt  string         `yaml:"topicPrompt"`
	Keywords     []KeywordTopic `yaml:"keywords"`
}

// KeywordTopic maps a topic label to the keywords that signal it.
type KeywordTopic struct {
	Topic    string   `yaml:"topic"`
	Keywords []string `yaml:"keywords"`
}

// SectionConfig describes one digest lane and the scanner that fills it.
type SectionConfig struct {
	Name       string            `yaml:"name"`
	Query      string            `yaml:"query"`
	SourceType string            `yaml:"sourceType"`
	Scanner    string            `yaml:"scanner"`
	Categories []CategoryConfig  `yaml:"categories"`
	Options    map[string]string `yaml:"options"`
}

// CategoryConfig holds the concrete endpoints to crawl (e.g., Arxiv category URLs).
type CategoryConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Load reads the YAML file named by HDC_DIGEST_CONFIG (if set) and applies environment overrides.
func Load() Config {
	return LoadFrom(os.Getenv(configPathEnv))
}

// LoadFrom reads YAML configuration from path (if non-empty) and applies environment overrides.
func LoadFrom(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	for i := range cfg.Sections {
		if cfg.Sections[i].Scanner == "" {
			cfg.Sections[i].Scanner = ScannerAgent
		}
	}

	return cfg
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if len(c.Sections) == 0 {
		return fmt.Errorf("config: no sections configured")
	}
	seen := map[string]bool{}
	for _, s := range c.Sections {
		if s.Name == "" {
			return fmt.Errorf("config: section without name")
		}
		if seen[s.Name] {
			return fmt.Errorf("config: duplicate section %q", s.Name)
		}
		seen[s.Name] = true
		if s.Scanner == ScannerAgent && s.Query == "" {
			return fmt.Errorf("config: section %q has no query", s.Name)
		}
	}
	switch c.Trends.PeriodType {
	case "week", "month", "year":
	default:
		return fmt.Errorf("config: unknown trends period type %q", c.Trends.PeriodType)
	}
	if c.Trends.TopN <= 0 || c.Trends.WeeksBack <= 0 {
		return fmt.Errorf("config: trends topN and weeksBack must be positive")
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(agentAPIKeyEnv); v != "" {
		c.Agent.APIKey = v
	}

	if v := os.Getenv(agentModelEnv); v != "" {
		c.Agent.Model = v
	}

	if v := os.Getenv(agentEndpointEnv); v != "" {
		c.Agent.Endpoint = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = strings.TrimSpace(v)
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Agent.Endpoint != "" {
		base.Agent.Endpoint = override.Agent.Endpoint
	}
	if override.Agent.Model != "" {
		base.Agent.Model = override.Agent.Model
	}
	if override.Agent.APIKey != "" {
		base.Agent.APIKey = override.Agent.APIKey
	}
	if override.Agent.SystemPrompt != "" {
		base.Agent.SystemPrompt = override.Agent.SystemPrompt
	}
	if override.Agent.WebSearch {
		base.Agent.WebSearch = true
	}
	if override.Agent.RequestsPerMinute > 0 {
		base.Agent.RequestsPerMinute = override.Agent.RequestsPerMinute
	}
	if override.Agent.Timeout > 0 {
		base.Agent.Timeout = override.Agent.Timeout
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Digest.DaysBack > 0 {
		base.Digest.DaysBack = override.Digest.DaysBack
	}
	if override.Digest.MaxItemsPerSection > 0 {
		base.Digest.MaxItemsPerSection = override.Digest.MaxItemsPerSection
	}

	if override.Trends.WeeksBack > 0 {
		base.Trends.WeeksBack = override.Trends.WeeksBack
	}
	if override.Trends.TopN > 0 {
		base.Trends.TopN = override.Trends.TopN
	}
	if override.Trends.PeriodType != "" {
		base.Trends.PeriodType = override.Trends.PeriodType
	}
	if override.Trends.KeywordsOnly {
		base.Trends.KeywordsOnly = true
	}
	if override.Trends.SampleSize > 0 {
		base.Trends.SampleSize = override.Trends.SampleSize
	}
	if override.Trends.TopicPrompt != "" {
		base.Trends.TopicPrompt = override.Trends.TopicPrompt
	}
	if len(override.Trends.Keywords) > 0 {
		base.Trends.Keywords = override.Trends.Keywords
	}

	if len(override.Sections) > 0 {
		base.Sections = override.Sections
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database:  DatabaseConfig{},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: tz},
		Agent: AgentConfig{
			Endpoint:          "https://api.openai.com/v1/chat/completions",
			Model:             "gpt-4o-mini-search-preview",
			SystemPrompt:      defaultSystemPrompt,
			WebSearch:         true,
			RequestsPerMinute: 20,
			Timeout:           3 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Digest:  DigestConfig{DaysBack: 1, MaxItemsPerSection: 8},
		Trends: TrendsConfig{
			WeeksBack:   52,
			TopN:        15,
			PeriodType:  "week",
			SampleSize:  50,
			TopicPrompt: defaultTopicPrompt,
			Keywords:    defaultKeywords(),
		},
		Sections: []SectionConfig{
			{
				Name:       "Papers",
				Query:      `("hyperdimensional computing" OR hypervector OR "vector symbolic") (paper OR arxiv)`,
				SourceType: "paper",
				Scanner:    ScannerAgent,
			},
			{
				Name:       "News",
				Query:      `("hyperdimensional computing" OR hypervector OR "vector symbolic") news`,
				SourceType: "news",
				Scanner:    ScannerAgent,
			},
			{
				Name:       "Blogs",
				Query:      `("hyperdimensional computing" OR hypervector OR binding bundling) blog`,
				SourceType: "blog",
				Scanner:    ScannerAgent,
			},
		},
	}
}

const defaultSystemPrompt = `You are an expert research assistant focused on Hyperdimensional Computing (HDC).

HDC includes:
- Hypervectors
- Vector Symbolic Architectures (VSA)
- HRR, SPA, MAP, binding, bundling, permutation
- HDC hardware or neuromorphic implementations

It does NOT include:
- Generic "high-dimensional data"
- Ordinary embeddings or vector databases unless explicitly HDC/VSA`

const defaultTopicPrompt = `You are an expert at analyzing research trends in Hyperdimensional Computing (HDC).

Extract key topics, themes, and research directions from the provided content.
Focus on:
- Technical concepts (binding, bundling, permutation, HRR, SPA, MAP, etc.)
- Application domains (neuromorphic computing, hardware, machine learning, etc.)
- Research directions (efficiency, scalability, new architectures, etc.)`

func defaultKeywords() []KeywordTopic {
	return []KeywordTopic{
		{Topic: "binding operations", Keywords: []string{"binding", "bundling"}},
		{Topic: "vector symbolic architectures", Keywords: []string{"VSA", "vector symbolic"}},
		{Topic: "neuromorphic computing", Keywords: []string{"neuromorphic", "brain-inspired"}},
		{Topic: "hardware acceleration", Keywords: []string{"hardware", "FPGA", "ASIC"}},
		{Topic: "machine learning", Keywords: []string{"learning", "classification", "neural"}},
		{Topic: "permutation operations", Keywords: []string{"permutation", "shift"}},
		{Topic: "hypervector encoding", Keywords: []string{"encoding", "hypervector"}},
		{Topic: "similarity search", Keywords: []string{"similarity", "search", "retrieval"}},
		{Topic: "energy efficiency", Keywords: []string{"energy", "efficient", "power"}},
		{Topic: "scalability", Keywords: []string{"scalable", "scale", "large-scale"}},
	}
}
