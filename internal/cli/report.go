package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"qms/clinic-queue/internal/models"
	"qms/clinic-queue/internal/queue"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// ReportCmd returns the report command
func ReportCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print daily or monthly queue statistics",
	}
	cmd.AddCommand(reportSubCmd(configPath, queue.FilterDaily, "Statistics for one day"))
	cmd.AddCommand(reportSubCmd(configPath, queue.FilterMonthly, "Statistics for a month with a per day breakdown"))
	return cmd
}

func reportSubCmd(configPath *string, filter, short string) *cobra.Command {
	var dateFlag string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   filter,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath, os.Stderr)
			if err != nil {
				return err
			}
			defer a.close()

			date := a.service.Today()
			if dateFlag != "" {
				if date, err = models.ParseDate(dateFlag); err != nil {
					return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", dateFlag)
				}
			}

			stats, err := a.service.Report(cmd.Context(), filter, date)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(stats)
			}
			switch summary := stats.(type) {
			case queue.DailySummary:
				renderDaily(out, summary)
			case queue.MonthlySummary:
				renderMonthly(out, summary)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dateFlag, "date", "", "date in YYYY-MM-DD (defaults to today in the clinic timezone)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func renderDaily(out io.Writer, summary queue.DailySummary) {
	bold := color.New(color.Bold)
	fmt.Fprintln(out, bold.Sprint(summary.Period))
	fmt.Fprintf(out, "  Total:     %d\n", summary.Total)
	fmt.Fprintf(out, "  Completed: %s\n", color.New(color.FgGreen).Sprint(summary.Completed))
	fmt.Fprintf(out, "  Called:    %s\n", color.New(color.FgYellow).Sprint(summary.Called))
	fmt.Fprintf(out, "  Waiting:   %d\n", summary.Waiting)
	fmt.Fprintf(out, "  Rate:      %s\n", rateString(summary.CompletionRate))
}

func renderMonthly(out io.Writer, summary queue.MonthlySummary) {
	bold := color.New(color.Bold)
	fmt.Fprintln(out, bold.Sprint(summary.Period))
	fmt.Fprintf(out, "  Total: %d  Completed: %d  Rate: %s\n", summary.Total, summary.Completed, rateString(summary.CompletionRate))
	fmt.Fprintln(out)
	for _, day := range summary.PerDay {
		line := fmt.Sprintf("  %s %-3s %4d %4d", day.Date, weekday(day.Date), day.Total, day.Completed)
		if day.Total == 0 {
			line = color.New(color.Faint).Sprint(line)
		}
		fmt.Fprintln(out, strings.TrimRight(line, " "))
	}
}

func rateString(rate float64) string {
	text := fmt.Sprintf("%.1f%%", rate)
	switch {
	case rate >= 80:
		return color.New(color.FgGreen).Sprint(text)
	case rate >= 50:
		return color.New(color.FgYellow).Sprint(text)
	default:
		return color.New(color.FgRed).Sprint(text)
	}
}

func weekday(date string) string {
	parsed, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return ""
	}
	return parsed.Weekday().String()[:3]
}
