package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/KaramelBytes/gradeloom-cli/internal/grades"
	"github.com/KaramelBytes/gradeloom-cli/internal/narrative"
	"github.com/KaramelBytes/gradeloom-cli/internal/render"
	"github.com/KaramelBytes/gradeloom-cli/internal/store"
	"github.com/KaramelBytes/gradeloom-cli/internal/utils"
)

// stampLayout is the timestamp embedded in PDF names.
const stampLayout = "20060102_150405"

// ReportRequest asks for a group or individual report.
type ReportRequest struct {
	Owner   string           `flag:"owner" validate:"notblank"`
	Kind    store.ReportKind `flag:"kind" validate:"required,oneof=group individual"`
	Student string           `flag:"student" validate:"required_if=Kind individual"`
	// FileID selects a file; empty means the owner's active file.
	FileID   string `flag:"file" validate:"omitempty,uuid"`
	Provider string `flag:"provider"`
	Model    string `flag:"model"`
	// NoAI skips the runtime and uses the fallback narrative.
	NoAI bool `flag:"no-ai"`
	// DryRun builds the prompt without generating or persisting anything.
	DryRun bool `flag:"dry-run"`
}

// Outcome is a generated report. With DryRun only File, Title, Data and
// Prompt are set.
type Outcome struct {
	File      store.File
	Title     string
	Data      any
	Prompt    *narrative.Prompt
	Narrative narrative.Result
	PDF       []byte
	Report    store.Report
}

// Generate builds, renders and records one report.
func (s *Service) Generate(ctx context.Context, req ReportRequest) (*Outcome, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	f, err := s.resolveFile(ctx, req.Owner, req.FileID)
	if err != nil {
		return nil, err
	}
	gen, err := s.narrator(req.Provider, req.Model, req.NoAI || req.DryRun)
	if err != nil {
		return nil, err
	}

	out := &Outcome{File: f}
	var (
		cohort  *grades.CohortReport
		student *grades.IndividualReport
		prompt  narrative.Prompt
	)
	switch req.Kind {
	case store.KindGroup:
		if cohort, err = s.cohortOf(ctx, f); err != nil {
			return nil, err
		}
		out.Title, out.Data = gen.GroupTitle(), cohort
		prompt, err = gen.GroupPrompt(cohort)
	case store.KindIndividual:
		table, terr := s.Table(f)
		if terr != nil {
			return nil, terr
		}
		if student, err = grades.AggregateStudent(req.Student, table); err != nil {
			return nil, err
		}
		if !student.HasData() {
			s.warn("student %q does not appear in any term of %s", req.Student, f.Name)
		}
		out.Title, out.Data = gen.StudentTitle(req.Student), student
		prompt, err = gen.IndividualPrompt(student)
	}
	if err != nil {
		return nil, err
	}
	if req.DryRun {
		out.Prompt = &prompt
		return out, nil
	}

	if cohort != nil {
		out.Narrative, err = gen.Group(ctx, cohort)
	} else {
		out.Narrative, err = gen.Individual(ctx, student)
	}
	if err != nil {
		return nil, err
	}

	out.PDF, err = render.Bytes(out.Title, out.Narrative.Text)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(out.Data)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}

	stamp := s.now().Format(stampLayout)
	rec := store.Report{
		Owner:     req.Owner,
		FileID:    f.ID,
		Kind:      req.Kind,
		Data:      data,
		Narrative: out.Narrative.Text,
		Fallback:  out.Narrative.Fallback,
		Model:     out.Narrative.Model,
	}
	var name string
	if req.Kind == store.KindGroup {
		name = fmt.Sprintf("reporte_grupal_%s.pdf", stamp)
		rec.Description = out.Title + " - " + f.Name
	} else {
		name = fmt.Sprintf("reporte_individual_%s_%s.pdf", utils.SafeFileName(req.Student), stamp)
		rec.Student = req.Student
		rec.Description = out.Title
	}
	rec.DocumentKey = store.Key(store.ReportsPrefix, f.ID, name)
	if err := s.Blobs.Put(rec.DocumentKey, out.PDF); err != nil {
		return nil, fmt.Errorf("store pdf: %w", err)
	}
	if out.Report, err = s.Store.CreateReport(ctx, rec); err != nil {
		s.dropBlobs([]string{rec.DocumentKey})
		return nil, err
	}
	return out, nil
}

func (s *Service) narrator(provider, model string, offline bool) (*narrative.Generator, error) {
	if s.Narrator == nil {
		return narrative.New(nil, narrative.Options{Model: model})
	}
	return s.Narrator(provider, model, offline)
}

func (s *Service) resolveFile(ctx context.Context, owner, id string) (store.File, error) {
	if id != "" {
		return s.Store.GetFile(ctx, owner, id)
	}
	f, err := s.Store.ActiveOrLatest(ctx, owner)
	if errors.Is(err, store.ErrNotFound) {
		return store.File{}, fmt.Errorf("no uploaded files; run 'gradeloom upload' first: %w", err)
	}
	return f, err
}

// cohortOf returns the stored cohort report of f, computing and storing it
// when the record predates it.
func (s *Service) cohortOf(ctx context.Context, f store.File) (*grades.CohortReport, error) {
	if f.Cohort != nil {
		return f.Cohort, nil
	}
	table, err := s.Table(f)
	if err != nil {
		return nil, err
	}
	rep, err := grades.AggregateCohort(table)
	if err != nil {
		return nil, err
	}
	if err := s.Store.SetCohortReport(ctx, f.Owner, f.ID, rep); err != nil {
		return nil, err
	}
	return rep, nil
}
