package grades

import "fmt"

// SchemaError reports a term sheet that lacks a required column.
// It is fatal for the whole workbook: no partial report is produced.
type SchemaError struct {
	Term   string
	Column string
}

func (e *SchemaError) Error() string {
	if e.Term == "" {
		return fmt.Sprintf("missing required column %q", e.Column)
	}
	return fmt.Sprintf("term %q: missing required column %q", e.Term, e.Column)
}

// DuplicateStudentError reports a student name listed twice in one term.
// Rows are 1-based positions among the term's data rows.
type DuplicateStudentError struct {
	Term      string
	Student   string
	FirstRow  int
	SecondRow int
}

func (e *DuplicateStudentError) Error() string {
	return fmt.Sprintf("term %q: student %q appears twice (rows %d and %d); names must be unique within a term",
		e.Term, e.Student, e.FirstRow, e.SecondRow)
}

// ValueError reports a cell that cannot be read as the column's type.
// Row is the 1-based line number in the source sheet.
type ValueError struct {
	Term   string
	Row    int
	Column string
	Value  string
	Reason string
}

func (e *ValueError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("term %q row %d: column %q: %s", e.Term, e.Row, e.Column, e.Reason)
	}
	return fmt.Sprintf("term %q row %d: column %q: %s (got %q)", e.Term, e.Row, e.Column, e.Reason, e.Value)
}
