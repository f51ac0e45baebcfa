package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tripflow/tripflow/internal/research"
	"github.com/tripflow/tripflow/internal/storage"
	"github.com/tripflow/tripflow/internal/types"
)

var statusCmd = &cobra.Command{
	Use:   "status <plan-id>",
	Short: "Show a plan's current state",
	Long:  `Display a point-in-time snapshot of a plan and its steps, read from the store.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		showEvents, _ := cmd.Flags().GetBool("events")
		ctx := cmd.Context()

		plan, err := store.GetPlan(ctx, args[0])
		if errors.Is(err, storage.ErrPlanNotFound) {
			fmt.Fprintf(os.Stderr, "No plan found with id %s\n", args[0])
			os.Exit(1)
		}
		if err != nil {
			return err
		}

		printPlan(plan)

		if showEvents {
			evts, err := store.GetPlanEvents(ctx, plan.ID, 0)
			if err != nil {
				return fmt.Errorf("failed to load plan events: %w", err)
			}
			gray := color.New(color.FgHiBlack).SprintFunc()
			fmt.Printf("\nEvents:\n")
			for _, e := range evts {
				fmt.Printf("  %s %-15s %s\n", gray(e.Timestamp.Format("15:04:05")), e.Type, e.Message)
			}
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("events", false, "Also show the persisted step-transition events")
	rootCmd.AddCommand(statusCmd)
}

// printPlan renders a plan snapshot with per-step status markers.
func printPlan(plan *types.Plan) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\n%s %s\n", cyan("Plan"), plan.ID)
	fmt.Printf("  Destination: %s\n", plan.Destination)
	fmt.Printf("  Duration:    %d days\n", plan.DurationDays)
	fmt.Printf("  Status:      %s\n", plan.Status)
	fmt.Printf("  Updated:     %s\n\n", plan.UpdatedAt.Format("2006-01-02 15:04:05"))

	for _, step := range plan.Steps {
		marker := gray("○")
		switch step.Status {
		case types.StepStatusInProgress:
			marker = yellow("●")
		case types.StepStatusCompleted:
			marker = green("✓")
		case types.StepStatusFailed:
			marker = red("✗")
		}
		fmt.Printf("  %s %-35s %s\n", marker, step.Description, step.Status)

		if step.Status == types.StepStatusCompleted && len(step.Result) > 0 {
			if result, err := decodeResult(step.Result); err == nil && result.Degraded() {
				fmt.Printf("      %s\n", gray("degraded: "+result.Error))
			}
		}
	}
}

// decodeResult unmarshals a step's opaque payload.
func decodeResult(raw json.RawMessage) (*research.Result, error) {
	var result research.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// summaryLine condenses a plan to one list row.
func summaryLine(plan *types.Plan) string {
	completed := 0
	failed := 0
	for _, s := range plan.Steps {
		switch s.Status {
		case types.StepStatusCompleted:
			completed++
		case types.StepStatusFailed:
			failed++
		}
	}
	line := fmt.Sprintf("%-14s %-12s %2d days  %d/%d steps", plan.ID, plan.Status, plan.DurationDays, completed, len(plan.Steps))
	if failed > 0 {
		line += fmt.Sprintf(" (%d failed)", failed)
	}
	return line + "  " + strings.TrimSpace(plan.Destination)
}
