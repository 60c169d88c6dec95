package cmd

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/gradeloom-cli/internal/render"
	"github.com/KaramelBytes/gradeloom-cli/internal/store"
	"github.com/KaramelBytes/gradeloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	histJSON       bool
	histOutputPath string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse and export previously generated reports",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List generated reports, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := openService(cmd.Context(), "")
		if err != nil {
			return err
		}
		defer closeFn()

		reports, err := svc.Store.ListReports(cmd.Context(), cfg.Owner)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(reports) == 0 {
			fmt.Fprintln(out, "(no reports)")
			return nil
		}
		t := newTable(out, "ID", "Generated", "Kind", "Description", "Narrative")
		for _, r := range reports {
			source := r.Model
			if r.Fallback {
				source = "fallback"
			}
			t.Append([]string{r.ID, r.GeneratedAt.Local().Format("02/01/2006 15:04"), string(r.Kind), r.Description, source})
		}
		t.Render()
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored report's narrative (or the full record with --json)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := openService(cmd.Context(), "")
		if err != nil {
			return err
		}
		defer closeFn()

		r, err := svc.Store.GetReport(cmd.Context(), cfg.Owner, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if histJSON {
			b, err := utils.PrettyJSON(r)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		fmt.Fprintf(out, "%s\n", r.Description)
		fmt.Fprintf(out, "Generated: %s\n", r.GeneratedAt.Local().Format("02/01/2006 15:04"))
		if r.Model != "" {
			fmt.Fprintf(out, "Model: %s\n", r.Model)
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, r.Narrative)
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Write a stored report's PDF to a path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if histOutputPath == "" {
			return fmt.Errorf("--output is required")
		}
		svc, closeFn, err := openService(cmd.Context(), "")
		if err != nil {
			return err
		}
		defer closeFn()

		r, err := svc.Store.GetReport(cmd.Context(), cfg.Owner, args[0])
		if err != nil {
			return err
		}
		pdf, err := reportPDF(svc.Blobs, r)
		if err != nil {
			return err
		}
		if err := copyOut(histOutputPath, pdf); err != nil {
			return err
		}
		success(cmd.OutOrStdout(), "PDF written: %s", histOutputPath)
		return nil
	},
}

// reportPDF returns the stored document of r, rendering it again from the
// narrative when the blob is gone.
func reportPDF(blobs *store.FSStore, r store.Report) ([]byte, error) {
	if r.DocumentKey != "" {
		b, err := blobs.Get(r.DocumentKey)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		warnf("stored PDF %s is missing; rendering it again", r.DocumentKey)
	}
	return render.Bytes(r.Description, r.Narrative)
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyExportCmd)
	historyShowCmd.Flags().BoolVar(&histJSON, "json", false, "print the full record as JSON")
	historyExportCmd.Flags().StringVarP(&histOutputPath, "output", "o", "", "destination PDF path")
}
