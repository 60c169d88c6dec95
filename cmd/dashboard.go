package cmd

import (
	"fmt"

	"github.com/KaramelBytes/gradeloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var dashJSON bool

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show headline metrics and chart series for the active file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := openService(cmd.Context(), "")
		if err != nil {
			return err
		}
		defer closeFn()

		m, err := svc.Dashboard(cmd.Context(), cfg.Owner)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if dashJSON {
			b, err := utils.PrettyJSON(m)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		if m.NoData {
			fmt.Fprintln(out, m.Message)
			return nil
		}

		fmt.Fprintf(out, "File: %s\n", m.File)
		cards := newTable(out, "Average", "Passed", "Failed", "Last group report")
		cards.Append([]string{fmt.Sprintf("%.1f", m.Cards.Average), fmt.Sprint(m.Cards.Passed), fmt.Sprint(m.Cards.Failed), m.Cards.LastReport})
		cards.Render()

		terms := newTable(out, "Term", "Mean", "Excused absences", "Unexcused absences")
		for i, label := range m.Bars.Labels {
			terms.Append([]string{label, fmt.Sprintf("%.2f", m.Bars.Values[i]),
				fmt.Sprint(m.Attendance.Excused[i]), fmt.Sprint(m.Attendance.Unexcused[i])})
		}
		terms.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.Flags().BoolVar(&dashJSON, "json", false, "print metrics as JSON")
}
