package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"kaiwa/pkg/thread"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and stored conversation summary",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := cmd.Context()

	fmt.Printf("Data directory:  %s\n", rt.cfg.DataDir)
	fmt.Printf("Database:        %s\n", rt.cfg.DatabasePath)
	fmt.Printf("AI profiles:     %d\n", len(rt.cfg.AI.Profiles))
	for _, p := range rt.cfg.AI.Profiles {
		model := p.Model
		if model == "" {
			model = "(default)"
		}
		fmt.Printf("  - %s model=%s priority=%d\n", p.Provider, model, p.Priority)
	}

	roots, err := rt.store.Roots(ctx)
	if err != nil {
		return err
	}

	topLevel, err := rt.store.Thread(ctx, thread.TopLevelRoot)
	if err != nil {
		return err
	}

	exchanges := 0
	for _, r := range roots {
		if r != thread.TopLevelRoot {
			exchanges++
		}
	}

	fmt.Printf("Top-level turns: %d\n", len(topLevel))
	fmt.Printf("Exchanges:       %d\n", exchanges)
	if rt.cfg.Retention.Enabled {
		fmt.Printf("Retention:       keep %d, schedule %q\n", rt.cfg.Retention.KeepThreads, rt.cfg.Retention.Schedule)
	} else {
		fmt.Println("Retention:       disabled")
	}

	return nil
}
