// Package retention prunes old exchange threads on a cron schedule. The
// top-level thread is never touched; only inner exchange threads beyond the
// configured keep count are dropped.
package retention

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"kaiwa/pkg/thread"
)

// Sweeper deletes the oldest exchange threads, keeping the most recent ones.
type Sweeper struct {
	store    *thread.Store
	schedule string
	keep     int
	logger   zerolog.Logger

	cron    *cron.Cron
	entryID cron.EntryID
}

// Config holds sweeper configuration
type Config struct {
	Store    *thread.Store
	Schedule string // standard 5-field cron expression
	Keep     int    // exchange threads to retain
	Logger   zerolog.Logger
}

// New creates a new retention sweeper
func New(cfg Config) (*Sweeper, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("thread store is required")
	}
	if cfg.Keep < 1 {
		return nil, fmt.Errorf("keep count must be at least 1, got %d", cfg.Keep)
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "0 3 * * *"
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", cfg.Schedule, err)
	}

	return &Sweeper{
		store:    cfg.Store,
		schedule: cfg.Schedule,
		keep:     cfg.Keep,
		logger:   cfg.Logger,
	}, nil
}

// Start schedules the sweep and begins running it.
func (s *Sweeper) Start() error {
	if s.cron != nil {
		return nil
	}

	s.cron = cron.New()
	entryID, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()

		deleted, err := s.Sweep(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("Retention sweep failed")
			return
		}
		if deleted > 0 {
			s.logger.Info().Int("deleted", deleted).Msg("Retention sweep completed")
		}
	})
	if err != nil {
		s.cron = nil
		return fmt.Errorf("failed to schedule retention sweep: %w", err)
	}

	s.entryID = entryID
	s.cron.Start()

	s.logger.Info().
		Str("schedule", s.schedule).
		Int("keep", s.keep).
		Msg("Retention sweeper started")

	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}

	<-s.cron.Stop().Done()
	s.cron = nil
}

// Sweep deletes all but the most recent keep exchange threads and returns
// how many it removed. Roots are monotonically increasing, so the highest
// roots are the newest exchanges.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	roots, err := s.store.Roots(ctx)
	if err != nil {
		return 0, err
	}

	var exchanges []int64
	for _, r := range roots {
		if r != thread.TopLevelRoot {
			exchanges = append(exchanges, r)
		}
	}
	if len(exchanges) <= s.keep {
		return 0, nil
	}

	sort.Slice(exchanges, func(i, j int) bool { return exchanges[i] > exchanges[j] })

	deleted := 0
	for _, root := range exchanges[s.keep:] {
		if err := s.store.DeleteThread(ctx, root); err != nil {
			return deleted, err
		}
		deleted++
	}

	return deleted, nil
}
