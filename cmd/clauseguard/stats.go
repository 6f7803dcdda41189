package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"clauseguard/internal/usage"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show accumulated token usage",
	Long:  `Prints token usage totals broken down by model, operation, region, and batch.`,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	tracker, err := usage.NewTracker(resolveWorkspace())
	if err != nil {
		return fmt.Errorf("usage tracker: %w", err)
	}

	stats := tracker.Stats()
	fmt.Printf("Total: %d input / %d output / %d tokens\n\n",
		stats.TotalProject.Input, stats.TotalProject.Output, stats.TotalProject.Total)

	printBreakdown("By model", stats.ByModel)
	printBreakdown("By operation", stats.ByOperation)
	printBreakdown("By region", stats.ByRegion)
	printBreakdown("By batch", stats.ByBatch)
	return nil
}

func printBreakdown(title string, m map[string]usage.TokenCounts) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println(title + ":")
	for _, k := range keys {
		c := m[k]
		fmt.Printf("  %-40s %8d in / %8d out / %8d total\n", k, c.Input, c.Output, c.Total)
	}
	fmt.Println()
}
