package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"kaiwa/internal/config"
	"kaiwa/pkg/agent"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Set up an AI provider profile",
	Long: `Interactively configure an AI provider profile. The profile is validated
and written to the config file together with defaults for everything else.`,
	RunE: runConfigure,
}

func init() {
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)
	validator := config.NewValidator()

	provider, err := prompt(reader, "Provider (anthropic/openai)")
	if err != nil {
		return err
	}
	if err := validator.ValidateProvider(provider); err != nil {
		return err
	}

	apiKey, err := prompt(reader, "API key")
	if err != nil {
		return err
	}
	if err := validator.ValidateAPIKey(apiKey, provider); err != nil {
		return err
	}

	model, err := prompt(reader, fmt.Sprintf("Model (empty for %s)", agent.DefaultModel(provider)))
	if err != nil {
		return err
	}

	profile := config.AIProfile{
		ID:       provider,
		Provider: provider,
		APIKey:   apiKey,
		Model:    model,
		Priority: len(cfg.AI.Profiles),
	}

	// Replace an existing profile for the same provider instead of stacking.
	replaced := false
	for i, p := range cfg.AI.Profiles {
		if p.Provider == provider {
			profile.Priority = p.Priority
			cfg.AI.Profiles[i] = profile
			replaced = true
			break
		}
	}
	if !replaced {
		cfg.AI.Profiles = append(cfg.AI.Profiles, profile)
	}

	if errs := validator.ValidateConfig(cfg); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", e)
		}
		return fmt.Errorf("configuration is invalid")
	}

	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Println("\nConfiguration saved.")
	fmt.Println("You can now run a task with: kaiwa ask \"your task\"")

	return nil
}

func prompt(reader *bufio.Reader, label string) (string, error) {
	fmt.Printf("%s: ", label)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
