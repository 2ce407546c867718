package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"kaiwa/pkg/thread"
)

var historyListRoots bool

var historyCmd = &cobra.Command{
	Use:   "history [root]",
	Short: "Show a persisted conversation thread",
	Long: `Print the messages of a thread in turn order. Without an argument the
top-level conversation is shown; pass an exchange root to inspect the inner
agent conversation behind one of its turns.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().BoolVar(&historyListRoots, "roots", false, "list all thread roots instead of printing messages")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := cmd.Context()

	if historyListRoots {
		roots, err := rt.store.Roots(ctx)
		if err != nil {
			return err
		}
		for _, r := range roots {
			if r == thread.TopLevelRoot {
				fmt.Printf("%d\t(top-level)\n", r)
			} else {
				fmt.Printf("%d\n", r)
			}
		}
		return nil
	}

	root := thread.TopLevelRoot
	if len(args) == 1 {
		root, err = strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid root %q: %w", args[0], err)
		}
	}

	messages, err := rt.store.Thread(ctx, root)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		fmt.Printf("No messages for root %d\n", root)
		return nil
	}

	for _, m := range messages {
		fmt.Printf("[%d] %s: %s\n", m.Turn, m.Role, m.Content)
	}

	return nil
}
