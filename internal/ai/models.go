package ai

import (
	"sort"
	"strings"
)

// DefaultModel is the local model narratives are tuned for.
const DefaultModel = "gemma3:12b"

// ModelInfo is what the CLI knows about a model ahead of time.
type ModelInfo struct {
	Name          string `json:"name"`
	ContextTokens int    `json:"context_tokens"`
}

// Context windows as served by default. Ollama truncates prompts silently at
// num_ctx, so the dry-run warns before that happens.
var models = map[string]ModelInfo{
	"gemma3:4b":                         {Name: "gemma3:4b", ContextTokens: 128000},
	"gemma3:12b":                        {Name: "gemma3:12b", ContextTokens: 128000},
	"gemma3:27b":                        {Name: "gemma3:27b", ContextTokens: 128000},
	"llama3.1:8b":                       {Name: "llama3.1:8b", ContextTokens: 131072},
	"llama3:latest":                     {Name: "llama3:latest", ContextTokens: 8192},
	"mistral:7b-instruct":               {Name: "mistral:7b-instruct", ContextTokens: 8192},
	"qwen2.5:14b":                       {Name: "qwen2.5:14b", ContextTokens: 32768},
	"google/gemma-3-12b-it":             {Name: "google/gemma-3-12b-it", ContextTokens: 131072},
	"openai/gpt-4o-mini":                {Name: "openai/gpt-4o-mini", ContextTokens: 128000},
	"anthropic/claude-3.5-sonnet":       {Name: "anthropic/claude-3.5-sonnet", ContextTokens: 200000},
	"meta-llama/llama-3.1-70b-instruct": {Name: "meta-llama/llama-3.1-70b-instruct", ContextTokens: 131072},
}

// Catalog lists the known models sorted by name.
func Catalog() []ModelInfo {
	out := make([]ModelInfo, 0, len(models))
	for _, mi := range models {
		out = append(out, mi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupModel finds a model by exact name, then by name without its tag.
func LookupModel(name string) (ModelInfo, bool) {
	if mi, ok := models[name]; ok {
		return mi, true
	}
	if base, _, ok := strings.Cut(name, ":"); ok {
		for k, mi := range models {
			if strings.HasPrefix(k, base+":") {
				return mi, true
			}
		}
	}
	return ModelInfo{}, false
}

// FitsContext reports whether a prompt of promptTokens leaves room for
// reserve completion tokens. Unknown models always fit.
func FitsContext(model string, promptTokens, reserve int) bool {
	mi, ok := LookupModel(model)
	if !ok || mi.ContextTokens <= 0 {
		return true
	}
	return promptTokens+reserve <= mi.ContextTokens
}
