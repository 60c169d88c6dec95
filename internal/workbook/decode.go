package workbook

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/gradeloom-cli/internal/grades"
)

type column int

const (
	colStudent column = iota
	colScore
	colQualitative
	colIndividual
	colGroup
	colProject
	colExam
	colUnexcused
	colExcused
	colBehavior
	numColumns
)

// headers lists the accepted header text per column; the first entry is the
// canonical name used in error messages. The score header keeps the spelling
// found in the school's template.
var headers = [numColumns][]string{
	colStudent:     {"APELLIDOS/NOMBRES", "APELLIDOS Y NOMBRES"},
	colScore:       {"Nota Trimemestre", "Nota Trimestre"},
	colQualitative: {"Cualitativa"},
	colIndividual:  {grades.IndividualContribution.Label()},
	colGroup:       {grades.GroupContribution.Label()},
	colProject:     {grades.Project.Label()},
	colExam:        {grades.Exam.Label()},
	colUnexcused:   {"Falta Injustificada", "Faltas Injustificadas"},
	colExcused:     {"Falta Justificada", "Faltas Justificadas"},
	colBehavior:    {"Comportamiento"},
}

var componentColumns = [...]struct {
	col  column
	comp grades.Component
}{
	{colIndividual, grades.IndividualContribution},
	{colGroup, grades.GroupContribution},
	{colProject, grades.Project},
	{colExam, grades.Exam},
}

// HeaderName returns the canonical header of c.
func (c column) HeaderName() string { return headers[c][0] }

func normHeader(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func matchHeader(cell string) (column, bool) {
	n := normHeader(cell)
	if n == "" {
		return 0, false
	}
	for c := column(0); c < numColumns; c++ {
		for _, h := range headers[c] {
			if n == normHeader(h) {
				return c, true
			}
		}
	}
	return 0, false
}

// Decode validates raw sheets against the grade schema and builds the table.
// Sheets without a single non-blank cell, and sheets with a header but no
// student rows yet, are skipped with a warning. Any other sheet lacking a
// required column fails the whole decode.
func Decode(sheets []Sheet) (*grades.Table, []string, error) {
	tbl := &grades.Table{}
	var warnings []string
	for _, sh := range sheets {
		if blankSheet(sh) {
			warnings = append(warnings, fmt.Sprintf("sheet %q is empty; skipped", sh.Name))
			continue
		}
		term, err := decodeSheet(sh)
		if err != nil {
			return nil, warnings, err
		}
		if len(term.Rows) == 0 {
			warnings = append(warnings, fmt.Sprintf("sheet %q has no student rows yet; skipped", sh.Name))
			continue
		}
		tbl.Terms = append(tbl.Terms, term)
	}
	if err := tbl.Validate(); err != nil {
		return nil, warnings, err
	}
	return tbl, warnings, nil
}

func blankSheet(sh Sheet) bool {
	for _, r := range sh.Rows {
		for _, c := range r {
			if strings.TrimSpace(c) != "" {
				return false
			}
		}
	}
	return true
}

func decodeSheet(sh Sheet) (grades.Term, error) {
	term := grades.Term{Label: sh.Name}

	// The header is the first row naming the student column; title rows above
	// it are ignored.
	hdr := -1
	var idx [numColumns]int
	for i, r := range sh.Rows {
		found := false
		for _, cell := range r {
			if c, ok := matchHeader(cell); ok && c == colStudent {
				found = true
				break
			}
		}
		if found {
			hdr = i
			break
		}
	}
	if hdr < 0 {
		return term, &grades.SchemaError{Term: sh.Name, Column: colStudent.HeaderName()}
	}
	for c := range idx {
		idx[c] = -1
	}
	for j, cell := range sh.Rows[hdr] {
		if c, ok := matchHeader(cell); ok && idx[c] < 0 {
			idx[c] = j
		}
	}
	for c := column(0); c < numColumns; c++ {
		if idx[c] < 0 {
			return term, &grades.SchemaError{Term: sh.Name, Column: c.HeaderName()}
		}
	}

	for i := hdr + 1; i < len(sh.Rows); i++ {
		rec := sh.Rows[i]
		cell := func(c column) string {
			if j := idx[c]; j < len(rec) {
				return strings.TrimSpace(rec[j])
			}
			return ""
		}
		name := cell(colStudent)
		if name == "" {
			continue
		}
		line := sh.line(i)
		r := grades.Row{
			Student:     name,
			Qualitative: cell(colQualitative),
			Behavior:    cell(colBehavior),
		}
		var err error
		if r.Score, err = requireNumber(sh.Name, line, colScore, cell(colScore)); err != nil {
			return term, err
		}
		for _, cc := range componentColumns {
			v, err := requireNumber(sh.Name, line, cc.col, cell(cc.col))
			if err != nil {
				return term, err
			}
			r.Components.Set(cc.comp, v)
		}
		if r.Unexcused, err = optionalCount(sh.Name, line, colUnexcused, cell(colUnexcused)); err != nil {
			return term, err
		}
		if r.Excused, err = optionalCount(sh.Name, line, colExcused, cell(colExcused)); err != nil {
			return term, err
		}
		term.Rows = append(term.Rows, r)
	}
	return term, nil
}

func requireNumber(term string, line int, c column, raw string) (float64, error) {
	if raw == "" {
		return 0, &grades.ValueError{Term: term, Row: line, Column: c.HeaderName(), Reason: "value is required"}
	}
	v, ok := parseNumber(raw)
	if !ok {
		return 0, &grades.ValueError{Term: term, Row: line, Column: c.HeaderName(), Value: raw, Reason: "not a number"}
	}
	return v, nil
}

// optionalCount reads an absence count. Blank cells count as zero.
func optionalCount(term string, line int, c column, raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, ok := parseNumber(raw)
	if !ok || v < 0 || v != math.Trunc(v) {
		return 0, &grades.ValueError{Term: term, Row: line, Column: c.HeaderName(), Value: raw, Reason: "not a non-negative whole number"}
	}
	return int(v), nil
}

// parseNumber accepts '.' or ',' as the decimal separator. When both appear,
// the last one is the decimal separator and the other groups thousands.
func parseNumber(s string) (float64, bool) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "\u00A0", ""))
	raw = strings.ReplaceAll(raw, " ", "")
	cpos := strings.LastIndex(raw, ",")
	dpos := strings.LastIndex(raw, ".")
	switch {
	case cpos >= 0 && dpos >= 0 && cpos > dpos:
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.Replace(raw, ",", ".", 1)
	case cpos >= 0 && dpos >= 0:
		raw = strings.ReplaceAll(raw, ",", "")
	case cpos >= 0:
		if strings.Count(raw, ",") > 1 {
			return 0, false
		}
		raw = strings.Replace(raw, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
