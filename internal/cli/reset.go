package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var resetAll bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete chat history",
	Long: `Delete all persisted chat history after confirmation. With --all, the
entire data directory is removed, including logs and the database file.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetAll, "all", false, "also remove the data directory (logs, database file)")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	scope := "all chat history"
	if resetAll {
		scope = fmt.Sprintf("the data directory %s", rt.cfg.DataDir)
	}

	fmt.Printf("This will delete %s. Continue? [y/N] ", scope)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		rt.close()
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if answer = strings.ToLower(strings.TrimSpace(answer)); answer != "y" && answer != "yes" {
		fmt.Println("Aborted.")
		rt.close()
		return nil
	}

	if !resetAll {
		err := rt.store.Clear(cmd.Context())
		rt.close()
		if err != nil {
			return err
		}
		fmt.Println("Chat history cleared.")
		return nil
	}

	dataDir := rt.cfg.DataDir
	rt.close()

	if err := os.RemoveAll(dataDir); err != nil {
		return fmt.Errorf("failed to remove data directory: %w", err)
	}
	fmt.Printf("Removed %s\n", dataDir)

	return nil
}
