package cli

import (
	"fmt"
	"sort"

	"kaiwa/internal/config"
	"kaiwa/internal/logger"
	"kaiwa/pkg/agent"
	"kaiwa/pkg/thread"
)

// runtime bundles the pieces every command needs: loaded config, logging,
// and the opened thread store.
type runtime struct {
	cfg    *config.Config
	logger *logger.Logger
	store  *thread.Store
}

func newRuntime() (*runtime, error) {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logCfg := logger.Config{
		Level:   logLevel,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	}
	if cfg.Logging.Level != "" && !rootCmd.PersistentFlags().Changed("log-level") {
		logCfg.Level = cfg.Logging.Level
	}

	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := thread.NewStore(thread.Config{
		DBPath: cfg.DatabasePath,
		Logger: log.GetZerolog(),
	})
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to open thread store: %w", err)
	}

	return &runtime{cfg: cfg, logger: log, store: store}, nil
}

func (r *runtime) close() {
	r.store.Close()
	r.logger.Close()
}

// modelClient builds a client from the highest-priority configured profile.
func (r *runtime) modelClient() (agent.ModelClient, string, error) {
	profiles := r.cfg.AI.Profiles
	if len(profiles) == 0 {
		return nil, "", fmt.Errorf("no AI profiles configured; run 'kaiwa configure' first")
	}

	sorted := make([]config.AIProfile, len(profiles))
	copy(sorted, profiles)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	chosen := sorted[0]

	factory := &agent.ClientFactory{}
	client, err := factory.NewClient(agent.AuthProfile{
		ID:       chosen.ID,
		Provider: chosen.Provider,
		APIKey:   chosen.APIKey,
		Model:    chosen.Model,
		Priority: chosen.Priority,
	})
	if err != nil {
		return nil, "", err
	}

	model := chosen.Model
	if model == "" {
		model = agent.DefaultModel(chosen.Provider)
	}

	return client, model, nil
}
