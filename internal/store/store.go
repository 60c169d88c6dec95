package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/gradeloom-cli/internal/grades"
)

// File is one uploaded grades workbook (or set of CSV term files).
type File struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
	Name  string `json:"name"`
	// Sources are blob keys of the uploaded files, in term order.
	Sources    []string             `json:"sources"`
	UploadedAt time.Time            `json:"uploaded_at"`
	Cohort     *grades.CohortReport `json:"cohort,omitempty"`
	Active     bool                 `json:"active"`

	// Filled by ListFiles only.
	StudentCount int `json:"student_count"`
	ReportCount  int `json:"report_count"`
}

// NewFile is the input to CreateFile.
type NewFile struct {
	Owner   string
	Name    string
	Sources []string
	Cohort  *grades.CohortReport
	Roster  []string
}

type ReportKind string

const (
	KindGroup      ReportKind = "group"
	KindIndividual ReportKind = "individual"
)

// Report is one generated report kept in the history.
type Report struct {
	ID          string          `json:"id"`
	Owner       string          `json:"owner"`
	FileID      string          `json:"file_id"`
	Kind        ReportKind      `json:"kind"`
	Student     string          `json:"student,omitempty"`
	Description string          `json:"description"`
	Data        json.RawMessage `json:"data"`
	Narrative   string          `json:"narrative"`
	Fallback    bool            `json:"fallback"`
	Model       string          `json:"model,omitempty"`
	DocumentKey string          `json:"document_key,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// CreateFile stores a new file with its roster and makes it the owner's
// active file.
func (s *Store) CreateFile(ctx context.Context, nf NewFile) (File, error) {
	if nf.Owner == "" || nf.Name == "" {
		return File{}, errors.New("store: owner and name are required")
	}
	sources := nf.Sources
	if sources == nil {
		sources = []string{}
	}
	srcJSON, err := json.Marshal(sources)
	if err != nil {
		return File{}, fmt.Errorf("store: encode sources: %w", err)
	}
	cohortJSON, err := encodeCohort(nf.Cohort)
	if err != nil {
		return File{}, err
	}
	f := File{
		ID:           uuid.NewString(),
		Owner:        nf.Owner,
		Name:         nf.Name,
		Sources:      sources,
		UploadedAt:   s.now().UTC(),
		Cohort:       nf.Cohort,
		Active:       true,
		StudentCount: len(nf.Roster),
	}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE files SET active=0 WHERE owner=$1`, f.Owner); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO files (id,owner,name,sources_json,uploaded_at,cohort_json,active)
			VALUES ($1,$2,$3,$4,$5,$6,1)`,
			f.ID, f.Owner, f.Name, string(srcJSON), f.UploadedAt.UnixNano(), cohortJSON); err != nil {
			return err
		}
		for i, name := range nf.Roster {
			if _, err := tx.ExecContext(ctx, `INSERT INTO students (id,file_id,name,position) VALUES ($1,$2,$3,$4)`,
				uuid.NewString(), f.ID, name, i); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return File{}, fmt.Errorf("store: create file: %w", err)
	}
	return f, nil
}

const fileColumns = `id,owner,name,sources_json,uploaded_at,cohort_json,active`

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(sc scanner, extra ...any) (File, error) {
	var (
		f       File
		srcJSON string
		nanos   int64
		cohort  sql.NullString
		active  int
	)
	dest := append([]any{&f.ID, &f.Owner, &f.Name, &srcJSON, &nanos, &cohort, &active}, extra...)
	if err := sc.Scan(dest...); err != nil {
		return File{}, err
	}
	f.UploadedAt = time.Unix(0, nanos).UTC()
	f.Active = active != 0
	if err := json.Unmarshal([]byte(srcJSON), &f.Sources); err != nil {
		return File{}, fmt.Errorf("decode sources of %s: %w", f.ID, err)
	}
	if cohort.Valid && cohort.String != "" {
		f.Cohort = &grades.CohortReport{}
		if err := json.Unmarshal([]byte(cohort.String), f.Cohort); err != nil {
			return File{}, fmt.Errorf("decode cohort report of %s: %w", f.ID, err)
		}
	}
	return f, nil
}

// GetFile returns the owner's file with the given id.
func (s *Store) GetFile(ctx context.Context, owner, id string) (File, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id=$1 AND owner=$2`, id, owner)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return File{}, fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return File{}, fmt.Errorf("store: get file: %w", err)
	}
	return f, nil
}

// ListFiles returns the owner's files, newest first, with roster and report counts.
func (s *Store) ListFiles(ctx context.Context, owner string) ([]File, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+fileColumns+`,
		(SELECT COUNT(*) FROM students st WHERE st.file_id=files.id),
		(SELECT COUNT(*) FROM reports r WHERE r.file_id=files.id)
		FROM files WHERE owner=$1 ORDER BY uploaded_at DESC, id`, owner)
	if err != nil {
		return nil, fmt.Errorf("store: list files: %w", err)
	}
	defer rows.Close()
	out := []File{}
	for rows.Next() {
		var nStudents, nReports int
		f, err := scanFile(rows, &nStudents, &nReports)
		if err != nil {
			return nil, fmt.Errorf("store: list files: %w", err)
		}
		f.StudentCount, f.ReportCount = nStudents, nReports
		out = append(out, f)
	}
	return out, rows.Err()
}

// Students returns the roster of a file in first-appearance order.
func (s *Store) Students(ctx context.Context, owner, fileID string) ([]string, error) {
	if _, err := s.GetFile(ctx, owner, fileID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM students WHERE file_id=$1 ORDER BY position`, fileID)
	if err != nil {
		return nil, fmt.Errorf("store: students: %w", err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Activate makes fileID the owner's only active file.
func (s *Store) Activate(ctx context.Context, owner, fileID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM files WHERE id=$1 AND owner=$2`, fileID, owner).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("file %s: %w", fileID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE files SET active=0 WHERE owner=$1 AND id<>$2`, owner, fileID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE files SET active=1 WHERE id=$1`, fileID)
		return err
	})
}

// ActiveOrLatest returns the owner's active file. With none active, the most
// recent upload is activated and returned.
func (s *Store) ActiveOrLatest(ctx context.Context, owner string) (File, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE owner=$1 AND active=1 ORDER BY uploaded_at DESC LIMIT 1`, owner)
	f, err := scanFile(row)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return File{}, fmt.Errorf("store: active file: %w", err)
	}
	row = s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE owner=$1 ORDER BY uploaded_at DESC, id LIMIT 1`, owner)
	f, err = scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return File{}, fmt.Errorf("no uploaded files: %w", ErrNotFound)
	}
	if err != nil {
		return File{}, fmt.Errorf("store: latest file: %w", err)
	}
	if err := s.Activate(ctx, owner, f.ID); err != nil {
		return File{}, err
	}
	f.Active = true
	return f, nil
}

// SetCohortReport replaces the stored cohort report of a file.
func (s *Store) SetCohortReport(ctx context.Context, owner, fileID string, rep *grades.CohortReport) error {
	js, err := encodeCohort(rep)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE files SET cohort_json=$1 WHERE id=$2 AND owner=$3`, js, fileID, owner)
	if err != nil {
		return fmt.Errorf("store: set cohort report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("file %s: %w", fileID, ErrNotFound)
	}
	return nil
}

// DeleteFile removes a file with its roster and reports. It returns the blob
// keys (sources and report documents) the caller should delete.
func (s *Store) DeleteFile(ctx context.Context, owner, fileID string) ([]string, error) {
	var keys []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var srcJSON string
		err := tx.QueryRowContext(ctx, `SELECT sources_json FROM files WHERE id=$1 AND owner=$2`, fileID, owner).Scan(&srcJSON)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("file %s: %w", fileID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(srcJSON), &keys); err != nil {
			return fmt.Errorf("decode sources: %w", err)
		}
		rows, err := tx.QueryContext(ctx, `SELECT document_key FROM reports WHERE file_id=$1 AND document_key<>''`, fileID)
		if err != nil {
			return err
		}
		for rows.Next() {
			var k string
			if err := rows.Scan(&k); err != nil {
				rows.Close()
				return err
			}
			keys = append(keys, k)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		for _, q := range []string{
			`DELETE FROM reports WHERE file_id=$1`,
			`DELETE FROM students WHERE file_id=$1`,
			`DELETE FROM files WHERE id=$1`,
		} {
			if _, err := tx.ExecContext(ctx, q, fileID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func encodeCohort(rep *grades.CohortReport) (sql.NullString, error) {
	if rep == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(rep)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("store: encode cohort report: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
