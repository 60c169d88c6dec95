package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/KaramelBytes/gradeloom-cli/internal/ai"
	"github.com/spf13/cobra"
)

var modelsHost string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect known models and the models installed in Ollama",
	Example: `  gradeloom models show
  gradeloom models local --ollama-host http://127.0.0.1:11434`,
}

var modelsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the built-in model catalog with context windows",
	RunE: func(cmd *cobra.Command, args []string) error {
		t := newTable(cmd.OutOrStdout(), "Model", "Context tokens")
		for _, mi := range ai.Catalog() {
			t.Append([]string{mi.Name, fmt.Sprint(mi.ContextTokens)})
		}
		t.Render()
		return nil
	},
}

var modelsLocalCmd = &cobra.Command{
	Use:   "local",
	Short: "List models installed in the local Ollama runtime",
	RunE: func(cmd *cobra.Command, args []string) error {
		host := modelsHost
		if host == "" && cfg != nil {
			host = cfg.OllamaHost
		}
		client := ai.NewOllamaClient(host, 10*time.Second, 1, 0, 0)
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()
		names, err := client.Models(ctx)
		if err != nil {
			return explainAIError(err, ai.ProviderOllama, "")
		}
		out := cmd.OutOrStdout()
		if len(names) == 0 {
			fmt.Fprintln(out, "(no local models; install one with 'ollama pull "+ai.DefaultModel+"')")
			return nil
		}
		for _, n := range names {
			mark := ""
			if cfg != nil && n == cfg.DefaultModel {
				mark = " (default)"
			}
			fmt.Fprintf(out, "- %s%s\n", n, mark)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsShowCmd, modelsLocalCmd)
	modelsLocalCmd.Flags().StringVar(&modelsHost, "ollama-host", "", "override Ollama host")
}
