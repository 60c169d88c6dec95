package grades

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(name string, score float64) Row {
	return Row{
		Student:     name,
		Score:       score,
		Qualitative: "AAR",
		Components:  ComponentScores{IndividualContribution: score, GroupContribution: score, Project: score, Exam: score},
		Behavior:    "B",
	}
}

func TestSummarizeBasics(t *testing.T) {
	term := Term{Label: "T1", Rows: []Row{
		{Student: "Ana", Score: 9.0, Components: ComponentScores{9, 8, 10, 9}, Unexcused: 2, Behavior: "A"},
		{Student: "Beto", Score: 5.5, Components: ComponentScores{5, 6, 5, 6}, Excused: 1, Behavior: PoorBehavior},
		{Student: "Caro", Score: 7.25, Components: ComponentScores{7, 7, 7, 8}, Behavior: "B"},
		{Student: "Dani", Score: 8.0, Components: ComponentScores{8, 9, 8, 7}, Unexcused: 1, Excused: 3, Behavior: PoorBehavior},
	}}
	s := Summarize(term)

	assert.Equal(t, 7.44, s.MeanScore)
	assert.Equal(t, []Ranked{{"Ana", 9.0}, {"Dani", 8.0}, {"Caro", 7.25}}, s.TopPerformers)
	assert.Equal(t, []Ranked{{"Beto", 5.5}, {"Caro", 7.25}, {"Dani", 8.0}}, s.LowPerformers)
	assert.Equal(t, 3, s.TotalUnexcused)
	assert.Equal(t, 4, s.TotalExcused)
	assert.Equal(t, []string{"Beto", "Dani"}, s.PoorBehavior)
	assert.Equal(t, 2, s.PoorBehaviorCount)
	assert.Equal(t, ComponentScores{7.25, 7.5, 7.5, 7.5}, s.ComponentMeans)
	assert.Equal(t, []StudentAbsences{
		{Student: "Ana", Unexcused: 2},
		{Student: "Beto", Excused: 1},
		{Student: "Dani", Unexcused: 1, Excused: 3},
	}, s.AbsencesByStudent)
}

func TestSummarizeTieBreaks(t *testing.T) {
	term := Term{Label: "T1", Rows: []Row{
		row("A", 8), row("B", 9), row("C", 8), row("D", 9), row("E", 8), row("F", 9),
	}}
	s := Summarize(term)
	assert.Equal(t, []Ranked{{"B", 9}, {"D", 9}, {"F", 9}}, s.TopPerformers, "earliest rows win ties at the top")
	assert.Equal(t, []Ranked{{"E", 8}, {"C", 8}, {"A", 8}}, s.LowPerformers, "latest rows win ties at the bottom")

	// Seven equal scores: the middle row is in neither list.
	s = Summarize(Term{Label: "T2", Rows: []Row{
		row("A", 7), row("B", 7), row("C", 7), row("D", 7), row("E", 7), row("F", 7), row("G", 7),
	}})
	assert.Equal(t, []Ranked{{"A", 7}, {"B", 7}, {"C", 7}}, s.TopPerformers)
	assert.Equal(t, []Ranked{{"G", 7}, {"F", 7}, {"E", 7}}, s.LowPerformers)
}

func TestSummarizeTopAndLowDisjointWithSixStudents(t *testing.T) {
	term := Term{Label: "T1", Rows: []Row{
		row("A", 7), row("B", 7), row("C", 7), row("D", 7), row("E", 7), row("F", 7),
	}}
	s := Summarize(term)
	require.Len(t, s.TopPerformers, 3)
	require.Len(t, s.LowPerformers, 3)
	seen := map[string]bool{}
	for _, r := range append(s.TopPerformers, s.LowPerformers...) {
		assert.False(t, seen[r.Student], "student %s listed twice", r.Student)
		seen[r.Student] = true
	}
}

func TestSummarizeSmallAndEmptyTerms(t *testing.T) {
	s := Summarize(Term{Label: "T1", Rows: []Row{row("A", 6), row("B", 8)}})
	assert.Equal(t, []Ranked{{"B", 8}, {"A", 6}}, s.TopPerformers)
	assert.Equal(t, []Ranked{{"A", 6}, {"B", 8}}, s.LowPerformers)
	assert.Equal(t, 7.0, s.MeanScore)

	empty := Summarize(Term{Label: "T2"})
	assert.Zero(t, empty.MeanScore)
	assert.NotNil(t, empty.TopPerformers)
	assert.NotNil(t, empty.PoorBehavior)
	assert.Empty(t, empty.AbsencesByStudent)
}
