package config

import (
	"fmt"
	"strings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAPIKey validates an API key format
func (v *Validator) ValidateAPIKey(key string, provider string) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}

	switch provider {
	case "anthropic":
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
	case "openai":
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
	}

	return nil
}

// ValidateProvider validates a provider name
func (v *Validator) ValidateProvider(provider string) error {
	switch provider {
	case "anthropic", "openai":
		return nil
	default:
		return fmt.Errorf("unsupported provider: %s", provider)
	}
}

// ValidateExchange validates exchange limits
func (v *Validator) ValidateExchange(cfg ExchangeConfig) error {
	if cfg.MinTurns < 1 {
		return fmt.Errorf("min_turns must be at least 1")
	}
	if cfg.MaxTurns > 0 && cfg.MaxTurns < cfg.MinTurns {
		return fmt.Errorf("max_turns must be greater than or equal to min_turns")
	}
	if cfg.EmptyWindow < 1 {
		return fmt.Errorf("empty_window must be at least 1")
	}
	if cfg.SnippetLength < 1 {
		return fmt.Errorf("snippet_length must be at least 1")
	}
	if cfg.GenerationBudget < 1 {
		return fmt.Errorf("generation_budget must be at least 1")
	}
	return nil
}

// ValidateConfig validates the complete configuration
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	for _, profile := range cfg.AI.Profiles {
		if err := v.ValidateProvider(profile.Provider); err != nil {
			errors = append(errors, err)
			continue
		}
		if err := v.ValidateAPIKey(profile.APIKey, profile.Provider); err != nil {
			errors = append(errors, err)
		}
	}

	if err := v.ValidateExchange(cfg.Exchange); err != nil {
		errors = append(errors, err)
	}

	if cfg.Retention.Enabled && cfg.Retention.KeepThreads < 1 {
		errors = append(errors, fmt.Errorf("keep_threads must be at least 1"))
	}

	return errors
}
