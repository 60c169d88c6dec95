// Package narrative turns structured grade reports into prose through a
// language model, with a labelled fallback text whenever the model cannot
// deliver.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/gradeloom-cli/internal/ai"
	"github.com/KaramelBytes/gradeloom-cli/internal/grades"
	"github.com/KaramelBytes/gradeloom-cli/internal/utils"
)

// Reason says why a fallback narrative was used.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonDisabled    Reason = "disabled"
	ReasonUnreachable Reason = "unreachable"
	ReasonTimeout     Reason = "timeout"
	ReasonError       Reason = "error"
)

// Options configures a Generator. Zero values take the defaults noted.
type Options struct {
	Model       string        // ai.DefaultModel
	Temperature float64       // 0.7
	MaxTokens   int           // runtime default
	Timeout     time.Duration // 30 minutes
	Language    Language      // Spanish
	// Host is shown in the unreachable fallback text.
	Host string
}

// Generator writes narratives with an ai.Runtime. A nil runtime is valid and
// always yields the disabled fallback.
type Generator struct {
	rt   ai.Runtime
	opts Options
	tpl  templates
}

// Result is a finished narrative. Text is never empty.
type Result struct {
	Text     string
	Fallback bool
	Reason   Reason
	// Err is the runtime error behind a fallback, if any.
	Err      error
	Model    string
	Usage    ai.Usage
	Duration time.Duration
}

// Prompt is a rendered prompt with its token estimate.
type Prompt struct {
	Text      string
	Tokens    int
	Breakdown map[string]int
	// FitsContext is false when the model's known context window is too small.
	FitsContext bool

	payload []byte
}

func New(rt ai.Runtime, opts Options) (*Generator, error) {
	if opts.Model == "" {
		opts.Model = ai.DefaultModel
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Minute
	}
	if opts.Language == "" {
		opts.Language = Spanish
	}
	tpl, ok := catalog[opts.Language]
	if !ok {
		return nil, fmt.Errorf("unsupported narrative language %q", opts.Language)
	}
	return &Generator{rt: rt, opts: opts, tpl: tpl}, nil
}

// Model returns the model the generator asks for.
func (g *Generator) Model() string { return g.opts.Model }

// GroupTitle is the document title for a cohort report.
func (g *Generator) GroupTitle() string { return g.tpl.groupTitle }

// StudentTitle is the document title for an individual report.
func (g *Generator) StudentTitle(student string) string {
	return fmt.Sprintf(g.tpl.studentTitle, student)
}

// GroupPrompt renders the cohort prompt without calling the runtime.
func (g *Generator) GroupPrompt(rep *grades.CohortReport) (Prompt, error) {
	payload, err := utils.PrettyJSON(rep)
	if err != nil {
		return Prompt{}, err
	}
	return g.measure(g.tpl.groupIntro, g.tpl.groupSections, g.tpl.groupData, payload), nil
}

// IndividualPrompt renders the student prompt without calling the runtime.
func (g *Generator) IndividualPrompt(rep *grades.IndividualReport) (Prompt, error) {
	payload, err := utils.PrettyJSON(rep)
	if err != nil {
		return Prompt{}, err
	}
	return g.measure(g.tpl.studentIntro, g.tpl.studentSections, fmt.Sprintf(g.tpl.studentData, rep.Student), payload), nil
}

func (g *Generator) measure(intro string, sections []string, header string, payload []byte) Prompt {
	text := buildPrompt(intro, sections, header, payload)
	n := utils.CountTokens(text)
	return Prompt{
		Text:   text,
		Tokens: n,
		Breakdown: utils.TokenBreakdown(map[string]string{
			"instructions": intro + strings.Join(sections, "\n"),
			"report":       string(payload),
		}),
		FitsContext: ai.FitsContext(g.opts.Model, n, 2048),
		payload:     payload,
	}
}

// Group writes the cohort narrative. The error is non-nil only when the report
// cannot be serialized; runtime failures produce a fallback Result.
func (g *Generator) Group(ctx context.Context, rep *grades.CohortReport) (Result, error) {
	p, err := g.GroupPrompt(rep)
	if err != nil {
		return Result{}, err
	}
	return g.run(ctx, p.Text, p.payload), nil
}

// Individual writes one student's narrative. See Group for error semantics.
func (g *Generator) Individual(ctx context.Context, rep *grades.IndividualReport) (Result, error) {
	p, err := g.IndividualPrompt(rep)
	if err != nil {
		return Result{}, err
	}
	return g.run(ctx, p.Text, p.payload), nil
}

// lister is implemented by runtimes that can answer a cheap health check.
type lister interface {
	Models(ctx context.Context) ([]string, error)
}

func (g *Generator) run(ctx context.Context, prompt string, payload []byte) Result {
	start := time.Now()
	if g.rt == nil {
		return g.fallback(ReasonDisabled, nil, payload, start)
	}
	if l, ok := g.rt.(lister); ok {
		if _, err := l.Models(ctx); err != nil && ai.IsUnreachable(err) {
			return g.fallback(ReasonUnreachable, err, payload, start)
		}
	}
	cctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()
	resp, err := g.rt.Generate(cctx, ai.Prompt(g.opts.Model, prompt, g.opts.Temperature, g.opts.MaxTokens))
	switch {
	case err != nil && ai.IsTimeout(err):
		return g.fallback(ReasonTimeout, err, payload, start)
	case err != nil && ai.IsUnreachable(err):
		return g.fallback(ReasonUnreachable, err, payload, start)
	case err != nil:
		return g.fallback(ReasonError, err, payload, start)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return g.fallback(ReasonError, errors.New("the model returned an empty response"), payload, start)
	}
	return Result{Text: text, Model: g.opts.Model, Usage: resp.Usage, Duration: time.Since(start)}
}

// Fallback builds the labelled placeholder narrative for reason, embedding the
// serialized report so the document still carries the data.
func (g *Generator) Fallback(reason Reason, cause error, report any) (Result, error) {
	payload, err := utils.PrettyJSON(report)
	if err != nil {
		return Result{}, err
	}
	return g.fallback(reason, cause, payload, time.Now()), nil
}

func (g *Generator) fallback(reason Reason, cause error, payload []byte, start time.Time) Result {
	var head string
	switch reason {
	case ReasonUnreachable:
		hint := ""
		if g.opts.Host != "" {
			hint = " (" + g.opts.Host + ")"
		}
		head = fmt.Sprintf(g.tpl.unreachable, hint)
	case ReasonTimeout:
		head = g.tpl.timeout
	case ReasonDisabled:
		head = g.tpl.disabled
	default:
		msg := "unknown error"
		if cause != nil {
			msg = cause.Error()
		}
		head = fmt.Sprintf(g.tpl.failure, msg)
	}
	var b strings.Builder
	b.WriteString(head)
	b.WriteString("\n\n")
	b.WriteString(g.tpl.reportData)
	b.Write(payload)
	return Result{
		Text:     b.String(),
		Fallback: true,
		Reason:   reason,
		Err:      cause,
		Model:    g.opts.Model,
		Duration: time.Since(start),
	}
}
