package grades

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Ranked is a student paired with a term score.
type Ranked struct {
	Student string  `json:"student"`
	Score   float64 `json:"score"`
}

// StudentAbsences lists one student's absence counts in a term.
type StudentAbsences struct {
	Student   string `json:"student"`
	Unexcused int    `json:"unexcused"`
	Excused   int    `json:"excused"`
}

// TermSummary holds the aggregates computed for one term.
type TermSummary struct {
	MeanScore         float64           `json:"mean_score"`
	TopPerformers     []Ranked          `json:"top_performers"`
	LowPerformers     []Ranked          `json:"low_performers"`
	TotalUnexcused    int               `json:"total_unexcused_absences"`
	TotalExcused      int               `json:"total_excused_absences"`
	AbsencesByStudent []StudentAbsences `json:"absences_by_student"`
	PoorBehavior      []string          `json:"poor_behavior_students"`
	PoorBehaviorCount int               `json:"poor_behavior_count"`
	ComponentMeans    ComponentScores   `json:"component_means"`
}

// Evolution maps the tracked series to their trend labels. Empty fields were
// not classified because fewer than two terms had data.
type Evolution struct {
	Score                  Trend `json:"score,omitempty"`
	IndividualContribution Trend `json:"individual_contribution,omitempty"`
	GroupContribution      Trend `json:"group_contribution,omitempty"`
	Project                Trend `json:"project,omitempty"`
	Exam                   Trend `json:"exam,omitempty"`
}

// Component returns the trend recorded for c.
func (e Evolution) Component(c Component) Trend {
	switch c {
	case IndividualContribution:
		return e.IndividualContribution
	case GroupContribution:
		return e.GroupContribution
	case Project:
		return e.Project
	case Exam:
		return e.Exam
	}
	return ""
}

func (e *Evolution) setComponent(c Component, t Trend) {
	switch c {
	case IndividualContribution:
		e.IndividualContribution = t
	case GroupContribution:
		e.GroupContribution = t
	case Project:
		e.Project = t
	case Exam:
		e.Exam = t
	}
}

// IsEmpty reports whether no series was classified.
func (e Evolution) IsEmpty() bool { return e == Evolution{} }

// Profile lists the components averaging at or above StrengthThreshold and
// those at or below WeaknessThreshold.
type Profile struct {
	Strengths  []Component `json:"strengths"`
	Weaknesses []Component `json:"weaknesses"`
}

func profileOf(series map[Component][]float64) Profile {
	p := Profile{Strengths: []Component{}, Weaknesses: []Component{}}
	for _, c := range Components {
		vals := series[c]
		if len(vals) == 0 {
			continue
		}
		switch avg := mean(vals); {
		case avg >= StrengthThreshold:
			p.Strengths = append(p.Strengths, c)
		case avg <= WeaknessThreshold:
			p.Weaknesses = append(p.Weaknesses, c)
		}
	}
	return p
}

// CumulativeStatus is the pass/fail split over each student's mean score
// across every term in which the student appears.
type CumulativeStatus struct {
	Passed int      `json:"passed"`
	Failed int      `json:"failed"`
	AtRisk []string `json:"at_risk"`
}

// CohortReport is the group-level analysis of a workbook.
type CohortReport struct {
	Status    CumulativeStatus    `json:"cumulative_status"`
	Terms     ByTerm[TermSummary] `json:"term_summaries"`
	Evolution Evolution           `json:"evolution"`
	Profile   Profile             `json:"strengths_weaknesses"`
}

// Absences holds a student's absence counts for one term.
type Absences struct {
	Unexcused int `json:"unexcused"`
	Excused   int `json:"excused"`
}

// TermRecord is one student's line for a term as shown in an individual report.
type TermRecord struct {
	Score       float64         `json:"final_score"`
	Qualitative string          `json:"qualitative"`
	Components  ComponentScores `json:"components"`
	Absences    Absences        `json:"absences"`
	Behavior    string          `json:"behavior"`
}

// NoData is the serialized marker for a term in which a student has no row.
const NoData = "no data"

// TermEntry is a TermRecord or, when Record is nil, the NoData marker.
type TermEntry struct {
	Record *TermRecord
}

// HasData reports whether the student had a row in the term.
func (e TermEntry) HasData() bool { return e.Record != nil }

func (e TermEntry) MarshalJSON() ([]byte, error) {
	if e.Record == nil {
		return json.Marshal(NoData)
	}
	return json.Marshal(e.Record)
}

func (e *TermEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != NoData {
			return fmt.Errorf("unexpected term marker %q", s)
		}
		e.Record = nil
		return nil
	}
	var r TermRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	e.Record = &r
	return nil
}

// IndividualReport is the analysis of one student across the workbook.
type IndividualReport struct {
	Student   string            `json:"student"`
	Terms     ByTerm[TermEntry] `json:"terms"`
	Evolution Evolution         `json:"evolution"`
	Profile   Profile           `json:"strengths_weaknesses"`
}

// TermValue pairs a term label with a value.
type TermValue[T any] struct {
	Term  string
	Value T
}

// ByTerm is a term-keyed mapping that keeps the workbook's term order. It
// serializes as a JSON object whose keys appear in that order.
type ByTerm[T any] []TermValue[T]

// Get returns the value stored for term.
func (b ByTerm[T]) Get(term string) (T, bool) {
	for _, tv := range b {
		if tv.Term == term {
			return tv.Value, true
		}
	}
	var zero T
	return zero, false
}

// Labels returns the term labels in order.
func (b ByTerm[T]) Labels() []string {
	out := make([]string, len(b))
	for i, tv := range b {
		out[i] = tv.Term
	}
	return out
}

func (b ByTerm[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, tv := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(tv.Term)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(tv.Value)
		if err != nil {
			return nil, fmt.Errorf("term %q: %w", tv.Term, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (b *ByTerm[T]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*b = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("term mapping: expected object, got %v", tok)
	}
	out := make(ByTerm[T], 0)
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("term mapping: expected key, got %v", kt)
		}
		var v T
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("term %q: %w", key, err)
		}
		out = append(out, TermValue[T]{Term: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*b = out
	return nil
}
