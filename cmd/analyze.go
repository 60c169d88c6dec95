package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/gradeloom-cli/internal/grades"
	"github.com/KaramelBytes/gradeloom-cli/internal/utils"
	"github.com/KaramelBytes/gradeloom-cli/internal/workbook"
	"github.com/spf13/cobra"
)

var (
	anaStudent    string
	anaJSON       bool
	anaOutputPath string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.xlsx|term.csv...>",
	Short: "Compute cohort or student analytics without storing anything",
	Example: `  gradeloom analyze notas.xlsx
  gradeloom analyze notas.xlsx --student "PÉREZ ANA" --json
  gradeloom analyze T1.csv T2.csv T3.csv -o cohort.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, warnings, err := workbook.Load(args...)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			warnf("%s", w)
		}

		var rep any
		if anaStudent != "" {
			sr, err := grades.AggregateStudent(anaStudent, table)
			if err != nil {
				return err
			}
			if !sr.HasData() {
				warnf("student %q does not appear in any term", anaStudent)
			}
			rep = sr
		} else {
			cr, err := grades.AggregateCohort(table)
			if err != nil {
				return err
			}
			rep = cr
		}

		out := cmd.OutOrStdout()
		if anaJSON || anaOutputPath != "" {
			b, err := utils.PrettyJSON(rep)
			if err != nil {
				return err
			}
			if anaOutputPath != "" {
				if err := copyOut(anaOutputPath, append(b, '\n')); err != nil {
					return err
				}
				success(out, "Analysis written: %s", anaOutputPath)
			}
			if anaJSON {
				fmt.Fprintln(out, string(b))
			}
			return nil
		}
		switch r := rep.(type) {
		case *grades.CohortReport:
			printCohort(out, r)
		case *grades.IndividualReport:
			printStudent(out, r)
		}
		return nil
	},
}

func printCohort(w io.Writer, r *grades.CohortReport) {
	t := newTable(w, "Term", "Mean", "Top", "Low", "Unexcused", "Excused", "Poor behavior")
	for _, tv := range r.Terms {
		s := tv.Value
		t.Append([]string{
			tv.Term,
			fmt.Sprintf("%.2f", s.MeanScore),
			rankedNames(s.TopPerformers),
			rankedNames(s.LowPerformers),
			fmt.Sprint(s.TotalUnexcused),
			fmt.Sprint(s.TotalExcused),
			fmt.Sprint(s.PoorBehaviorCount),
		})
	}
	t.Render()

	fmt.Fprintf(w, "\nPassed: %d  Failed: %d\n", r.Status.Passed, r.Status.Failed)
	if len(r.Status.AtRisk) > 0 {
		fmt.Fprintf(w, "At risk: %s\n", strings.Join(r.Status.AtRisk, ", "))
	}
	printEvolution(w, r.Evolution)
	printProfile(w, r.Profile)
}

func printStudent(w io.Writer, r *grades.IndividualReport) {
	fmt.Fprintf(w, "Student: %s\n", r.Student)
	header := []string{"Term", "Score", "Qualitative"}
	for _, c := range grades.Components {
		header = append(header, c.Label())
	}
	header = append(header, "Unexcused", "Excused", "Behavior")
	t := newTable(w, header...)
	for _, tv := range r.Terms {
		rec := tv.Value.Record
		if rec == nil {
			row := []string{tv.Term, grades.NoData}
			for len(row) < len(header) {
				row = append(row, "")
			}
			t.Append(row)
			continue
		}
		row := []string{tv.Term, fmt.Sprintf("%.2f", rec.Score), rec.Qualitative}
		for _, c := range grades.Components {
			row = append(row, fmt.Sprintf("%.2f", rec.Components.Get(c)))
		}
		row = append(row, fmt.Sprint(rec.Absences.Unexcused), fmt.Sprint(rec.Absences.Excused), rec.Behavior)
		t.Append(row)
	}
	t.Render()
	printEvolution(w, r.Evolution)
	printProfile(w, r.Profile)
}

func printEvolution(w io.Writer, e grades.Evolution) {
	if e.IsEmpty() {
		return
	}
	fmt.Fprintln(w, "\nEvolution:")
	if e.Score != "" {
		fmt.Fprintf(w, "  - Score: %s\n", e.Score)
	}
	for _, c := range grades.Components {
		if tr := e.Component(c); tr != "" {
			fmt.Fprintf(w, "  - %s: %s\n", c.Label(), tr)
		}
	}
}

func printProfile(w io.Writer, p grades.Profile) {
	fmt.Fprintf(w, "Strengths: %s\n", componentList(p.Strengths))
	fmt.Fprintf(w, "Weaknesses: %s\n", componentList(p.Weaknesses))
}

func componentList(cs []grades.Component) string {
	if len(cs) == 0 {
		return "-"
	}
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.Label()
	}
	return strings.Join(names, ", ")
}

func rankedNames(rs []grades.Ranked) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = fmt.Sprintf("%s (%.2f)", r.Student, r.Score)
	}
	return strings.Join(parts, ", ")
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&anaStudent, "student", "", "analyze one student instead of the cohort")
	analyzeCmd.Flags().BoolVar(&anaJSON, "json", false, "print the report as JSON")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "write the report JSON to this path")
}
