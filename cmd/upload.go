package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file.xlsx|term.csv...>",
	Short: "Store a grades workbook (or CSV term files) and make it the active file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := openService(cmd.Context(), "")
		if err != nil {
			return err
		}
		defer closeFn()

		up, err := svc.Ingest(cmd.Context(), cfg.Owner, args...)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		success(out, "File uploaded: %s", up.File.Name)
		fmt.Fprintf(out, "ID: %s\n", up.File.ID)
		fmt.Fprintf(out, "Students: %d\n", len(up.Roster))
		if c := up.File.Cohort; c != nil {
			fmt.Fprintf(out, "Terms: %s\n", strings.Join(c.Terms.Labels(), ", "))
			fmt.Fprintf(out, "Passed: %d  Failed: %d\n", c.Status.Passed, c.Status.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}
