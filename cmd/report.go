package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/KaramelBytes/gradeloom-cli/internal/ai"
	"github.com/KaramelBytes/gradeloom-cli/internal/pipeline"
	"github.com/KaramelBytes/gradeloom-cli/internal/store"
	"github.com/spf13/cobra"
)

var (
	repFileID     string
	repDryRun     bool
	repNoAI       bool
	repOutputPath string
	repProvider   string
	repModel      string
	repOllamaHost string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a narrative PDF report for the cohort or one student",
	Example: `  gradeloom report group
  gradeloom report group --dry-run
  gradeloom report student "PÉREZ ANA" -o ana.pdf
  gradeloom report group --provider openrouter --model openai/gpt-4o-mini
  gradeloom report student "PÉREZ ANA" --no-ai --file 3f0c...`,
}

var reportGroupCmd = &cobra.Command{
	Use:   "group",
	Short: "Group report for the active (or --file) upload",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd, store.KindGroup, "")
	},
}

var reportStudentCmd = &cobra.Command{
	Use:   "student <name>",
	Short: "Individual report for one student, matched by exact name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd, store.KindIndividual, args[0])
	},
}

func runReport(cmd *cobra.Command, kind store.ReportKind, student string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	svc, closeFn, err := openService(ctx, repOllamaHost)
	if err != nil {
		return err
	}
	defer closeFn()

	out := cmd.OutOrStdout()
	req := pipeline.ReportRequest{
		Owner:    cfg.Owner,
		Kind:     kind,
		Student:  student,
		FileID:   repFileID,
		Provider: repProvider,
		Model:    repModel,
		NoAI:     repNoAI,
		DryRun:   repDryRun,
	}
	model := repModel
	if model == "" {
		model = cfg.DefaultModel
	}
	if !repDryRun && !repNoAI {
		fmt.Fprintf(out, "⚙ Generating with model=%s ...\n", model)
	}
	res, err := svc.Generate(ctx, req)
	if err != nil {
		return err
	}

	if repDryRun {
		p := res.Prompt
		fmt.Fprintf(out, "File: %s (%s)\n", res.File.Name, res.File.ID)
		fmt.Fprintf(out, "Tokens: total≈%d (instructions≈%d, report≈%d)\n", p.Tokens, p.Breakdown["instructions"], p.Breakdown["report"])
		if !p.FitsContext {
			if mi, ok := ai.LookupModel(model); ok {
				warnf("prompt (%d tokens) exceeds the %s context window (~%d tokens)", p.Tokens, mi.Name, mi.ContextTokens)
			}
		}
		fmt.Fprintln(out, "\n--dry-run: no model call and nothing stored. Prompt preview below --")
		fmt.Fprintln(out, p.Text)
		return nil
	}

	nr := res.Narrative
	if nr.Fallback && nr.Err != nil {
		warnf("%v", explainAIError(nr.Err, normalizeProvider(firstNonEmpty(repProvider, cfg.DefaultProvider)), model))
	}
	if nr.Fallback {
		warnf("narrative unavailable (%s); the report carries the analysis data instead", nr.Reason)
	} else {
		debugf("narrative: %s in %s (prompt tokens %d, completion tokens %d)", nr.Model, nr.Duration.Round(1e6), nr.Usage.PromptTokens, nr.Usage.CompletionTokens)
	}

	success(out, "Report saved: %s", res.Report.Description)
	fmt.Fprintf(out, "ID: %s\n", res.Report.ID)
	if p, err := svc.Blobs.Path(res.Report.DocumentKey); err == nil {
		fmt.Fprintf(out, "PDF: %s\n", p)
	}
	if repOutputPath != "" {
		if err := copyOut(repOutputPath, res.PDF); err != nil {
			return err
		}
		success(out, "PDF written: %s", repOutputPath)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportGroupCmd, reportStudentCmd)
	pf := reportCmd.PersistentFlags()
	pf.StringVar(&repFileID, "file", "", "uploaded file id (default: the active file)")
	pf.BoolVar(&repDryRun, "dry-run", false, "print the prompt and token estimate without calling the model or storing anything")
	pf.BoolVar(&repNoAI, "no-ai", false, "skip the model and use the fallback narrative")
	pf.StringVarP(&repOutputPath, "output", "o", "", "also write the PDF to this path")
	pf.StringVar(&repProvider, "provider", "", "narrative provider: ollama|openrouter (default from config)")
	pf.StringVar(&repModel, "model", "", "model name (default from config)")
	pf.StringVar(&repOllamaHost, "ollama-host", "", "override Ollama host (e.g., http://127.0.0.1:11434)")
}
