package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored plans",
	RunE: func(cmd *cobra.Command, args []string) error {
		plans, err := store.ListPlans(cmd.Context())
		if err != nil {
			return err
		}

		if len(plans) == 0 {
			gray := color.New(color.FgHiBlack).SprintFunc()
			fmt.Printf("%s\n", gray("No plans yet. Create one with: tripflow plan \"a 5 day trip to Tokyo\""))
			return nil
		}

		for _, plan := range plans {
			fmt.Println(summaryLine(plan))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
