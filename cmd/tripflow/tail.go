package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tripflow/tripflow/internal/events"
)

var tailCmd = &cobra.Command{
	Use:   "tail <plan-id>",
	Short: "Watch a plan's progress events",
	Long: `Display the persisted step-transition events for a plan and, in follow
mode, poll for new ones as the plan advances in another process.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		limit, _ := cmd.Flags().GetInt("limit")
		planID := args[0]

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		seen := make(map[string]struct{})
		printNew := func() (bool, error) {
			evts, err := store.GetPlanEvents(ctx, planID, limit)
			if err != nil {
				return false, err
			}
			terminal := false
			for _, e := range evts {
				if _, ok := seen[e.ID]; ok {
					continue
				}
				seen[e.ID] = struct{}{}
				printEvent(e)
				if e.Type == events.EventTypePlanCompleted {
					terminal = true
				}
			}
			return terminal, nil
		}

		terminal, err := printNew()
		if err != nil {
			return err
		}
		if !follow || terminal {
			return nil
		}

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				terminal, err := printNew()
				if err != nil {
					return err
				}
				if terminal {
					return nil
				}
			}
		}
	},
}

func init() {
	tailCmd.Flags().BoolP("follow", "f", false, "Follow mode - poll for new events until the plan completes (Ctrl+C to stop)")
	tailCmd.Flags().IntP("limit", "n", 0, "Maximum number of events to read per poll (0 = all)")
	rootCmd.AddCommand(tailCmd)
}

// printEvent renders one persisted event.
func printEvent(e *events.PlanEvent) {
	gray := color.New(color.FgHiBlack).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	line := fmt.Sprintf("%s %-15s %s", gray(e.Timestamp.Format("15:04:05")), e.Type, e.Message)
	if e.Severity == events.SeverityError {
		line = red(line)
	}
	fmt.Println(line)
}
