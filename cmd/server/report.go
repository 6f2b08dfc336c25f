package main

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/warp/attendance-engine/attendance"
)

var reportDate string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print one day's attendance",
	Long: `Print one day's attendance.

Names and roster membership come from the configured roster backend. With
roster.backend=memory the roster is empty in a fresh process, so every stored
record is listed as "(not on roster)"; use roster.backend=sqlite for a full
report. The sample roster is never seeded by this command.`,
	Example: `  server report                 # today
  server report --date=2025-01-05`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var d attendance.Date
		if reportDate != "" {
			parsed, err := attendance.ParseDate(reportDate)
			if err != nil {
				return err
			}
			d = parsed
		}

		rec, closer, err := openReconciler(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		defer closer.Close()

		report, err := rec.Report(cmd.Context(), d)
		if err != nil {
			return err
		}
		return renderReport(report)
	},
}

var datesCmd = &cobra.Command{
	Use:   "dates",
	Short: "List days with saved attendance, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, closer, err := openReconciler(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		defer closer.Close()

		dates, err := rec.AvailableDates(cmd.Context())
		if err != nil {
			return err
		}
		if len(dates) == 0 {
			pterm.Info.Println("No attendance saved yet")
			return nil
		}
		items := make([]pterm.BulletListItem, len(dates))
		for i, d := range dates {
			items[i] = pterm.BulletListItem{Level: 0, Text: d.String()}
		}
		return pterm.DefaultBulletList.WithItems(items).Render()
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportDate, "date", "", "day to report (YYYY-MM-DD, default today)")
}

func renderReport(r attendance.Report) error {
	pterm.DefaultSection.Println("Attendance for " + r.Date.String())

	data := pterm.TableData{{"ID", "Name", "Status"}}
	for _, e := range r.Entries {
		name := e.Name
		if e.Orphan {
			name += " (not on roster)"
		}
		data = append(data, []string{strconv.FormatInt(int64(e.StudentID), 10), name, statusCell(e.Status)})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}

	pterm.Println()
	pterm.Printf("Total: %d  Present: %d  Absent: %d  Not marked: %d  Rate: %s%%\n",
		r.Total, r.Present, r.Absent, r.Unset, r.Rate.StringFixed(2))
	return nil
}

func statusCell(s attendance.Status) string {
	switch s {
	case attendance.StatusPresent:
		return pterm.Green("Present")
	case attendance.StatusAbsent:
		return pterm.Red("Absent")
	}
	return pterm.Gray("-")
}
