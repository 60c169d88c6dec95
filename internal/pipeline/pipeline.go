// Package pipeline ties the engine to its collaborators: spreadsheets are
// decoded and stored on upload, and reports are analysed, narrated, rendered
// to PDF and recorded in the history on request.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/gradeloom-cli/internal/dashboard"
	"github.com/KaramelBytes/gradeloom-cli/internal/grades"
	"github.com/KaramelBytes/gradeloom-cli/internal/narrative"
	"github.com/KaramelBytes/gradeloom-cli/internal/store"
	"github.com/KaramelBytes/gradeloom-cli/internal/workbook"
)

// NarratorFactory returns the narrative generator for a request. provider and
// model may be empty to use the configured defaults; offline asks for a
// generator without a runtime.
type NarratorFactory func(provider, model string, offline bool) (*narrative.Generator, error)

// Service runs uploads and report generation for one data directory.
type Service struct {
	Store    *store.Store
	Blobs    *store.FSStore
	Narrator NarratorFactory
	// Now defaults to time.Now.
	Now func() time.Time
	// Warn receives non-fatal notices such as skipped sheets.
	Warn func(format string, args ...any)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) warn(format string, args ...any) {
	if s.Warn != nil {
		s.Warn(format, args...)
	}
}

// Upload is the result of Ingest.
type Upload struct {
	File     store.File
	Roster   []string
	Warnings []string
}

// Ingest decodes the spreadsheet at paths (one workbook or several CSV term
// files), stores the sources and records the file as the owner's active one.
// Decoding and aggregation errors abort before anything is written.
func (s *Service) Ingest(ctx context.Context, owner string, paths ...string) (*Upload, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, errors.New("owner is required")
	}
	table, warnings, err := workbook.Load(paths...)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		s.warn("%s", w)
	}
	cohort, err := grades.AggregateCohort(table)
	if err != nil {
		return nil, err
	}

	batch := uuid.NewString()
	keys := make([]string, 0, len(paths))
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		base := filepath.Base(p)
		key := store.Key(store.UploadsPrefix, batch, base)
		if err := s.Blobs.PutFile(key, p); err != nil {
			s.dropBlobs(keys)
			return nil, fmt.Errorf("store upload: %w", err)
		}
		keys = append(keys, key)
		names = append(names, base)
	}

	roster := table.Roster()
	f, err := s.Store.CreateFile(ctx, store.NewFile{
		Owner:   owner,
		Name:    strings.Join(names, ", "),
		Sources: keys,
		Cohort:  cohort,
		Roster:  roster,
	})
	if err != nil {
		s.dropBlobs(keys)
		return nil, err
	}
	return &Upload{File: f, Roster: roster, Warnings: warnings}, nil
}

func (s *Service) dropBlobs(keys []string) {
	for _, k := range keys {
		if err := s.Blobs.Delete(k); err != nil {
			s.warn("could not remove %s: %v", k, err)
		}
	}
}

// Table re-decodes the stored sources of f.
func (s *Service) Table(f store.File) (*grades.Table, error) {
	if len(f.Sources) == 0 {
		return nil, fmt.Errorf("file %s has no stored spreadsheet", f.ID)
	}
	paths := make([]string, 0, len(f.Sources))
	for _, key := range f.Sources {
		p, err := s.Blobs.Path(key)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	table, _, err := workbook.Load(paths...)
	if err != nil {
		return nil, fmt.Errorf("decode stored spreadsheet: %w", err)
	}
	return table, nil
}

// Dashboard returns the metrics of the owner's active file.
func (s *Service) Dashboard(ctx context.Context, owner string) (dashboard.Metrics, error) {
	f, err := s.Store.ActiveOrLatest(ctx, owner)
	if errors.Is(err, store.ErrNotFound) {
		return dashboard.Build(nil, nil), nil
	}
	if err != nil {
		return dashboard.Metrics{}, err
	}
	var last *time.Time
	r, err := s.Store.LatestReport(ctx, owner, store.KindGroup)
	switch {
	case err == nil:
		last = &r.GeneratedAt
	case !errors.Is(err, store.ErrNotFound):
		return dashboard.Metrics{}, err
	}
	return dashboard.Build(&f, last), nil
}

// DeleteFile removes a file with its history and stored blobs.
func (s *Service) DeleteFile(ctx context.Context, owner, fileID string) error {
	keys, err := s.Store.DeleteFile(ctx, owner, fileID)
	if err != nil {
		return err
	}
	var errs []error
	for _, k := range keys {
		if err := s.Blobs.Delete(k); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}
