package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List, activate or delete uploaded files",
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded files, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := openService(cmd.Context(), "")
		if err != nil {
			return err
		}
		defer closeFn()

		files, err := svc.Store.ListFiles(cmd.Context(), cfg.Owner)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(files) == 0 {
			fmt.Fprintln(out, "(no files)")
			return nil
		}
		t := newTable(out, "", "ID", "Name", "Uploaded", "Students", "Reports")
		for _, f := range files {
			mark := ""
			if f.Active {
				mark = "*"
			}
			t.Append([]string{mark, f.ID, f.Name, f.UploadedAt.Local().Format("02/01/2006 15:04"),
				fmt.Sprint(f.StudentCount), fmt.Sprint(f.ReportCount)})
		}
		t.Render()
		return nil
	},
}

var filesActivateCmd = &cobra.Command{
	Use:   "activate <id>",
	Short: "Make a file the active one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := openService(cmd.Context(), "")
		if err != nil {
			return err
		}
		defer closeFn()
		if err := svc.Store.Activate(cmd.Context(), cfg.Owner, args[0]); err != nil {
			return err
		}
		success(cmd.OutOrStdout(), "Active file: %s", args[0])
		return nil
	},
}

var filesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a file with its roster, report history and stored documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := openService(cmd.Context(), "")
		if err != nil {
			return err
		}
		defer closeFn()
		if err := svc.DeleteFile(cmd.Context(), cfg.Owner, args[0]); err != nil {
			return err
		}
		success(cmd.OutOrStdout(), "File deleted: %s", args[0])
		return nil
	},
}

var filesStudentsCmd = &cobra.Command{
	Use:   "students [id]",
	Short: "List the students of a file (default: the active file)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := openService(cmd.Context(), "")
		if err != nil {
			return err
		}
		defer closeFn()

		ctx := cmd.Context()
		var id string
		if len(args) == 1 {
			id = args[0]
		} else {
			f, err := svc.Store.ActiveOrLatest(ctx, cfg.Owner)
			if err != nil {
				return err
			}
			id = f.ID
		}
		names, err := svc.Store.Students(ctx, cfg.Owner, id)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, n := range names {
			fmt.Fprintf(out, "- %s\n", n)
		}
		if len(names) == 0 {
			fmt.Fprintln(out, "(no students)")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(filesCmd)
	filesCmd.AddCommand(filesListCmd, filesActivateCmd, filesDeleteCmd, filesStudentsCmd)
}
