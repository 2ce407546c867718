package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"kaiwa/pkg/scheduler"
	"kaiwa/pkg/thread"
)

var askGoal string

var askCmd = &cobra.Command{
	Use:   "ask [task]",
	Short: "Run a research task through the agent exchange",
	Long: `Submit a task, run the multi-agent exchange to completion, and print the
synthesized response. The full inner conversation is persisted and can be
inspected afterwards with 'kaiwa history'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askGoal, "goal", "", "enable the reflection judge with this goal (defaults to the task when reflection is configured on)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	task := strings.Join(args, " ")

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	client, model, err := rt.modelClient()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	requestTurn, err := rt.store.Append(ctx, thread.TopLevelRoot, "user", task)
	if err != nil {
		return err
	}

	sched, err := scheduler.New(scheduler.Config{
		Store:        rt.store,
		Client:       client,
		Logger:       rt.logger.GetZerolog(),
		Model:        model,
		SystemPrompt: rt.cfg.Exchange.SystemPrompt,
		MinTurns:     rt.cfg.Exchange.MinTurns,
		MaxTurns:     rt.cfg.Exchange.MaxTurns,
		EmptyWindow:  rt.cfg.Exchange.EmptyWindow,
		SnippetLen:   rt.cfg.Exchange.SnippetLength,
		Budget:       rt.cfg.Exchange.GenerationBudget,
	})
	if err != nil {
		return err
	}

	goal := askGoal
	if goal == "" && rt.cfg.Exchange.ReflectionGoal {
		goal = task
	}

	taskHandle, err := sched.Start(ctx, scheduler.Request{
		RequestTurn: requestTurn,
		Task:        task,
		Goal:        goal,
	})
	if err != nil {
		return err
	}

	fmt.Println("Working...")

	// Ctrl-C cancels the exchange; already-persisted turns stay intact.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		fmt.Println("Cancelling...")
		taskHandle.Cancel()
		<-taskHandle.Done()
	case <-taskHandle.Done():
	}

	if err := taskHandle.Err(); err != nil {
		return err
	}

	response, err := rt.store.Message(ctx, thread.TopLevelRoot, taskHandle.Root())
	if err != nil {
		return err
	}
	if response == nil {
		return fmt.Errorf("no response recorded for turn %d", taskHandle.Root())
	}

	fmt.Println()
	fmt.Println(response.Content)

	return nil
}
