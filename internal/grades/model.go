package grades

import (
	"fmt"
	"strings"
)

// Thresholds shared by the cohort and individual aggregation paths.
const (
	PassThreshold     = 7.0
	StrengthThreshold = 8.5
	WeaknessThreshold = 6.5
)

// PoorBehavior is the behaviour flag value that puts a student on the behaviour roster.
const PoorBehavior = "F"

// Component is one of the four fixed evaluation components.
type Component int

const (
	IndividualContribution Component = iota
	GroupContribution
	Project
	Exam
)

// Components lists the evaluation components in report order.
var Components = [...]Component{IndividualContribution, GroupContribution, Project, Exam}

var componentKeys = [...]string{"individual_contribution", "group_contribution", "project", "exam"}

var componentLabels = [...]string{"Aporte Individual", "Aporte Grupal", "Proyecto", "Examen"}

// Key is the stable identifier used in serialized reports.
func (c Component) Key() string {
	if c < 0 || int(c) >= len(componentKeys) {
		return fmt.Sprintf("component(%d)", int(c))
	}
	return componentKeys[c]
}

// Label is the spreadsheet column header of the component.
func (c Component) Label() string {
	if c < 0 || int(c) >= len(componentLabels) {
		return c.Key()
	}
	return componentLabels[c]
}

func (c Component) String() string { return c.Label() }

func (c Component) MarshalText() ([]byte, error) {
	if c < 0 || int(c) >= len(componentKeys) {
		return nil, fmt.Errorf("unknown component %d", int(c))
	}
	return []byte(componentKeys[c]), nil
}

func (c *Component) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	for i, k := range componentKeys {
		if k == s || strings.EqualFold(componentLabels[i], s) {
			*c = Component(i)
			return nil
		}
	}
	return fmt.Errorf("unknown component %q", s)
}

// ComponentScores holds one value per evaluation component.
type ComponentScores struct {
	IndividualContribution float64 `json:"individual_contribution"`
	GroupContribution      float64 `json:"group_contribution"`
	Project                float64 `json:"project"`
	Exam                   float64 `json:"exam"`
}

// Get returns the value stored for c.
func (s ComponentScores) Get(c Component) float64 {
	switch c {
	case IndividualContribution:
		return s.IndividualContribution
	case GroupContribution:
		return s.GroupContribution
	case Project:
		return s.Project
	case Exam:
		return s.Exam
	}
	return 0
}

// Set stores v for c.
func (s *ComponentScores) Set(c Component, v float64) {
	switch c {
	case IndividualContribution:
		s.IndividualContribution = v
	case GroupContribution:
		s.GroupContribution = v
	case Project:
		s.Project = v
	case Exam:
		s.Exam = v
	}
}

// Row is one student's line in a term sheet.
type Row struct {
	Student     string
	Score       float64
	Qualitative string
	Components  ComponentScores
	Unexcused   int
	Excused     int
	Behavior    string
}

// Term is the table of rows recorded for one academic term.
type Term struct {
	Label string
	Rows  []Row
}

// Find returns the row for student using exact name matching.
func (t Term) Find(student string) (Row, bool) {
	for _, r := range t.Rows {
		if r.Student == student {
			return r, true
		}
	}
	return Row{}, false
}

// Table is the ordered set of terms decoded from one grades workbook.
type Table struct {
	Terms []Term
}

// Validate reports the first student name that appears twice within a term,
// since names are the join key across terms.
func (t *Table) Validate() error {
	if t == nil {
		return nil
	}
	for _, term := range t.Terms {
		seen := make(map[string]int, len(term.Rows))
		for i, r := range term.Rows {
			if first, ok := seen[r.Student]; ok {
				return &DuplicateStudentError{Term: term.Label, Student: r.Student, FirstRow: first + 1, SecondRow: i + 1}
			}
			seen[r.Student] = i
		}
	}
	return nil
}

// Roster lists distinct student names in first-appearance order across terms.
func (t *Table) Roster() []string {
	out := []string{}
	if t == nil {
		return out
	}
	seen := map[string]bool{}
	for _, term := range t.Terms {
		for _, r := range term.Rows {
			if seen[r.Student] {
				continue
			}
			seen[r.Student] = true
			out = append(out, r.Student)
		}
	}
	return out
}
