package config

// Config represents the main Kaiwa configuration. It is constructed once at
// startup and passed explicitly into every component constructor.
type Config struct {
	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// Database path (chat history)
	DatabasePath string `json:"database_path" mapstructure:"database_path"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// AI provider profiles
	AI AIConfig `json:"ai" mapstructure:"ai"`

	// Exchange behavior
	Exchange ExchangeConfig `json:"exchange" mapstructure:"exchange"`

	// Retention
	Retention RetentionConfig `json:"retention" mapstructure:"retention"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`
	File    string `json:"file" mapstructure:"file"`
	Console bool   `json:"console" mapstructure:"console"`
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`
}

// AIConfig holds AI provider configuration
type AIConfig struct {
	Profiles []AIProfile `json:"profiles" mapstructure:"profiles"`
}

// AIProfile represents an AI provider profile
type AIProfile struct {
	ID       string `json:"id" mapstructure:"id"`
	Provider string `json:"provider" mapstructure:"provider"` // anthropic, openai
	APIKey   string `json:"api_key" mapstructure:"api_key"`
	Model    string `json:"model" mapstructure:"model"`
	Priority int    `json:"priority" mapstructure:"priority"`
}

// ExchangeConfig controls the multi-agent exchange loop
type ExchangeConfig struct {
	MinTurns         int    `json:"min_turns" mapstructure:"min_turns"`
	MaxTurns         int    `json:"max_turns" mapstructure:"max_turns"`
	EmptyWindow      int    `json:"empty_window" mapstructure:"empty_window"`
	SnippetLength    int    `json:"snippet_length" mapstructure:"snippet_length"`
	SystemPrompt     string `json:"system_prompt" mapstructure:"system_prompt"`
	ReflectionGoal   bool   `json:"reflection_goal" mapstructure:"reflection_goal"`
	GenerationBudget int    `json:"generation_budget" mapstructure:"generation_budget"` // hard cap on exchange steps
}

// RetentionConfig controls pruning of old exchange threads
type RetentionConfig struct {
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
	Schedule    string `json:"schedule" mapstructure:"schedule"` // cron expression
	KeepThreads int    `json:"keep_threads" mapstructure:"keep_threads"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Pretty:  true,
		},
		Exchange: ExchangeConfig{
			MinTurns:         1,
			MaxTurns:         10,
			EmptyWindow:      2,
			SnippetLength:    100,
			ReflectionGoal:   false,
			GenerationBudget: 25,
		},
		Retention: RetentionConfig{
			Enabled:     false,
			Schedule:    "0 3 * * *",
			KeepThreads: 200,
		},
	}
}
