package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"microwin/db"
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Show energy efficiency and peak hours",
	Long:  `Summarize completed steps: how estimates compare to real durations for each energy level, and the hours (UTC) when steps get finished most.`,
	RunE:  runInsights,
}

var statusFlag string

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks",
	Long:  `List tasks newest first, optionally only those with a given status.`,
	RunE:  runTasks,
}

func init() {
	tasksCmd.Flags().StringVar(&statusFlag, "status", "", "only list tasks with this status: active, paused or completed")
}

func runInsights(cmd *cobra.Command, args []string) error {
	a, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	insights, err := a.store.Insights()
	if err != nil {
		return fmt.Errorf("failed to load insights: %w", err)
	}
	return printInsights(cmd.OutOrStdout(), insights)
}

func printInsights(out io.Writer, insights *db.Insights) error {
	fmt.Fprintf(out, "Best time to start: %s\n", insights.BestTimeToStart)
	if len(insights.PeakHours) > 0 {
		fmt.Fprintf(out, "Peak hours (UTC):   %s\n", strings.Join(insights.PeakHours, ", "))
	}

	if len(insights.EfficiencyLog) == 0 {
		fmt.Fprintln(out, "No timed steps yet.")
		return nil
	}

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENERGY\tEFFICIENCY\tSTEPS")
	for _, e := range insights.EfficiencyLog {
		fmt.Fprintf(w, "%s\t%.1f%%\t%d\n", e.Level, e.Efficiency, e.Count)
	}
	return w.Flush()
}

func runTasks(cmd *cobra.Command, args []string) error {
	status := db.TaskStatus(statusFlag)
	if status != "" && !status.Valid() {
		return fmt.Errorf("invalid status %q", statusFlag)
	}

	a, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.store.ListTasks(status)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}
	return printTasks(cmd.OutOrStdout(), list, time.Now())
}

func printTasks(out io.Writer, list []*db.Task, now time.Time) error {
	if len(list) == 0 {
		fmt.Fprintln(out, "No tasks.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tENERGY\tUPDATED\tGOAL")
	for _, t := range list {
		energy := t.EnergyLevel
		if energy == "" {
			energy = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Status, energy, formatAge(now, t.UpdatedAt), t.OriginalGoal)
	}
	return w.Flush()
}

// formatAge returns a human-readable relative time string.
func formatAge(now, t time.Time) string {
	duration := now.Sub(t)

	if duration < time.Minute {
		return "just now"
	}

	minutes := int(duration.Minutes())
	if minutes < 60 {
		return fmt.Sprintf("%dm ago", minutes)
	}

	hours := int(duration.Hours())
	if hours < 24 {
		return fmt.Sprintf("%dh ago", hours)
	}

	return fmt.Sprintf("%dd ago", hours/24)
}
