package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateReport appends r to the history. ID and GeneratedAt are assigned here.
func (s *Store) CreateReport(ctx context.Context, r Report) (Report, error) {
	switch r.Kind {
	case KindGroup:
		r.Student = ""
	case KindIndividual:
		if r.Student == "" {
			return Report{}, errors.New("store: individual report needs a student")
		}
	default:
		return Report{}, fmt.Errorf("store: unknown report kind %q", r.Kind)
	}
	if len(r.Data) == 0 {
		r.Data = []byte("{}")
	}
	r.ID = uuid.NewString()
	r.GeneratedAt = s.now().UTC()
	student := sql.NullString{String: r.Student, Valid: r.Student != ""}
	fallback := 0
	if r.Fallback {
		fallback = 1
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM files WHERE id=$1 AND owner=$2`, r.FileID, r.Owner).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("file %s: %w", r.FileID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO reports (`+reportColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			r.ID, r.Owner, r.FileID, string(r.Kind), student, r.Description, string(r.Data), r.Narrative,
			fallback, r.Model, r.DocumentKey, r.GeneratedAt.UnixNano())
		return err
	})
	if err != nil {
		return Report{}, fmt.Errorf("store: create report: %w", err)
	}
	return r, nil
}

const reportColumns = `id,owner,file_id,kind,student,description,report_json,narrative,fallback,model,document_key,generated_at`

func scanReport(sc scanner) (Report, error) {
	var (
		r        Report
		kind     string
		student  sql.NullString
		data     string
		fallback int
		nanos    int64
	)
	if err := sc.Scan(&r.ID, &r.Owner, &r.FileID, &kind, &student, &r.Description, &data, &r.Narrative,
		&fallback, &r.Model, &r.DocumentKey, &nanos); err != nil {
		return Report{}, err
	}
	r.Kind = ReportKind(kind)
	r.Student = student.String
	r.Data = []byte(data)
	r.Fallback = fallback != 0
	r.GeneratedAt = time.Unix(0, nanos).UTC()
	return r, nil
}

// GetReport returns one of the owner's reports.
func (s *Store) GetReport(ctx context.Context, owner, id string) (Report, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id=$1 AND owner=$2`, id, owner)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Report{}, fmt.Errorf("store: get report: %w", err)
	}
	return r, nil
}

// ListReports returns the owner's reports, newest first.
func (s *Store) ListReports(ctx context.Context, owner string) ([]Report, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE owner=$1 ORDER BY generated_at DESC, id`, owner)
	if err != nil {
		return nil, fmt.Errorf("store: list reports: %w", err)
	}
	defer rows.Close()
	out := []Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list reports: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestReport returns the owner's most recent report of kind.
func (s *Store) LatestReport(ctx context.Context, owner string, kind ReportKind) (Report, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE owner=$1 AND kind=$2 ORDER BY generated_at DESC, id LIMIT 1`, owner, string(kind))
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, fmt.Errorf("no %s reports: %w", kind, ErrNotFound)
	}
	if err != nil {
		return Report{}, fmt.Errorf("store: latest report: %w", err)
	}
	return r, nil
}
