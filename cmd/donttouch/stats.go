package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var statsDays int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print touch statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStats(time.Now())
	},
}

var pruneKeepDays int

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete touch history older than --keep-days",
	RunE: func(cmd *cobra.Command, args []string) error {
		if pruneKeepDays < 0 {
			return fmt.Errorf("--keep-days must not be negative")
		}
		cutoff := time.Now().AddDate(0, 0, -pruneKeepDays)
		deleted, err := DB.Events().DeleteBefore(cutoff)
		if err != nil {
			return fmt.Errorf("failed to prune events: %w", err)
		}
		fmt.Printf("Deleted %d events older than %s.\n", deleted, cutoff.Format("2006-01-02"))
		return nil
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsDays, "days", 7, "days of history for the daily table")
	pruneCmd.Flags().IntVar(&pruneKeepDays, "keep-days", 90, "days of history to keep")

	rootCmd.AddCommand(statsCmd, pruneCmd)
}

func runStats(now time.Time) error {
	totals, err := DB.Events().Totals()
	if err != nil {
		return fmt.Errorf("failed to read totals: %w", err)
	}
	if totals.TotalTouches == 0 {
		fmt.Println("No touches recorded yet.")
		return nil
	}

	summaries := DB.Summaries()
	streak, err := summaries.Streak(now)
	if err != nil {
		return fmt.Errorf("failed to read streak: %w", err)
	}

	fmt.Printf("Total touches:   %d over %d days (%.1f per day)\n", totals.TotalTouches, totals.DaysWithTouches, totals.AvgPerDay)
	fmt.Printf("Average touch:   %s\n", totals.AvgDuration.Round(100*time.Millisecond))
	fmt.Printf("Touch-free days: %d now, %d best\n", streak.Current, streak.Best)
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "DATE\tTOUCHES\tTOTAL\tFIRST\tLAST")
	fmt.Fprintln(w, "----\t-------\t-----\t-----\t----")
	for i := statsDays - 1; i >= 0; i-- {
		day, err := summaries.Daily(now.AddDate(0, 0, -i))
		if err != nil {
			return fmt.Errorf("failed to read daily stats: %w", err)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", day.Date, day.TotalTouches, day.TotalDuration.Round(time.Second), dash(day.FirstTouch), dash(day.LastTouch))
	}
	w.Flush()

	hours, err := summaries.HourlyPattern(statsDays, now)
	if err != nil {
		return fmt.Errorf("failed to read hourly pattern: %w", err)
	}
	if busiest, ok := busiestHour(hours); ok {
		fmt.Printf("\nBusiest hour: %02d:00 (%d touches)\n", busiest, hours[busiest])
	}
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// busiestHour returns the hour with the most touches, the earliest on ties.
func busiestHour(hours map[int]int) (int, bool) {
	keys := make([]int, 0, len(hours))
	for h := range hours {
		keys = append(keys, h)
	}
	sort.Ints(keys)

	best, found := 0, false
	for _, h := range keys {
		if hours[h] > 0 && (!found || hours[h] > hours[best]) {
			best, found = h, true
		}
	}
	return best, found
}
