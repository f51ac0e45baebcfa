package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tripflow/tripflow/internal/ai"
	"github.com/tripflow/tripflow/internal/analyze"
	"github.com/tripflow/tripflow/internal/events"
	"github.com/tripflow/tripflow/internal/hub"
	"github.com/tripflow/tripflow/internal/orchestrator"
	"github.com/tripflow/tripflow/internal/research"
	"github.com/tripflow/tripflow/internal/types"
)

var planCmd = &cobra.Command{
	Use:   "plan \"<request>\"",
	Short: "Create a trip plan from a free-text request and run it",
	Long: `Create a plan from a sentence like "Plan a 5 day trip to Tokyo" and
advance it step by step, streaming progress until the plan completes.

The plan and every step transition are persisted, so an interrupted run
can be inspected later with "tripflow status".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		destination, duration := analyze.AnalyzeRequest(args[0])

		yellow := color.New(color.FgYellow).SprintFunc()

		var gen research.Generator
		client, err := ai.NewClient(ai.Config{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s generation unavailable (%v); itinerary will use templated days\n",
				yellow("!"), err)
		} else {
			gen = client
		}

		providers, err := research.LoadProviderConfig(cfg.ProvidersPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v; continuing with environment provider config\n", yellow("!"), err)
		}

		progressHub := hub.New()
		orch, err := orchestrator.New(&orchestrator.Config{
			Store:      store,
			Hub:        progressHub,
			Researcher: research.New(gen, providers),
			StepDelay:  cfg.StepDelay,
		})
		if err != nil {
			return err
		}

		plan, err := orch.CreatePlan(ctx, destination, duration)
		if err != nil {
			return err
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("\n%s %s: %d days in %s\n\n", cyan("Plan"), plan.ID, plan.DurationDays, plan.Destination)

		sub := progressHub.Subscribe(plan.ID)
		orch.StartAutonomousAdvancement(ctx, plan.ID)

		g, _ := errgroup.WithContext(ctx)
		g.Go(func() error {
			renderEvents(sub)
			return nil
		})
		g.Go(func() error {
			orch.Wait()
			progressHub.Unsubscribe(sub)
			return nil
		})
		if err := g.Wait(); err != nil {
			return err
		}

		final, err := orch.GetPlan(ctx, plan.ID)
		if err != nil {
			return fmt.Errorf("failed to load final plan: %w", err)
		}
		printItinerary(final)
		fmt.Printf("\nPlan %s finished with status %s. Use \"tripflow status %s\" to revisit it.\n",
			final.ID, final.Status, final.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
}

// renderEvents prints hub events until the subscription ends or the
// plan reaches its terminal event.
func renderEvents(sub *hub.Subscriber) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	for {
		select {
		case event := <-sub.Events:
			if event == nil {
				return
			}
			switch event.Type {
			case events.EventTypeStepStarted:
				fmt.Printf("  %s %s\n", gray("…"), event.Message)
			case events.EventTypeStepCompleted:
				fmt.Printf("  %s %s\n", green("✓"), event.Message)
			case events.EventTypeStepFailed:
				fmt.Printf("  %s %s failed: %s\n", red("✗"), event.StepType, event.Message)
			case events.EventTypePlanCompleted:
				fmt.Printf("\n%s %s\n", green("✓"), event.Message)
				return
			}
		case <-sub.Done:
			return
		}
	}
}

// printItinerary prints the itinerary step's text, if it produced one.
func printItinerary(plan *types.Plan) {
	for _, step := range plan.Steps {
		if step.Type != types.StepItineraryGeneration || len(step.Result) == 0 {
			continue
		}
		result, err := decodeResult(step.Result)
		if err != nil || result.Itinerary == "" {
			continue
		}
		fmt.Printf("\n%s\n", strings.TrimSpace(result.Itinerary))
	}
}
