package grades

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeTermTable() *Table {
	return &Table{Terms: []Term{
		{Label: "T1", Rows: []Row{row("Ana", 6.0), row("Luis", 5.0), row("Eva", 9.0)}},
		{Label: "T2", Rows: []Row{row("Ana", 7.0), row("Eva", 9.0), row("Hugo", 4.0)}},
		{Label: "T3", Rows: []Row{row("Ana", 8.0), row("Luis", 9.0), row("Eva", 9.0)}},
	}}
}

func TestAggregateCohortCumulativeStatus(t *testing.T) {
	rep, err := AggregateCohort(threeTermTable())
	require.NoError(t, err)

	// Ana averages exactly 7.0, Luis averages 7.0 over the two terms he has.
	assert.Equal(t, 3, rep.Status.Passed)
	assert.Equal(t, 1, rep.Status.Failed)
	assert.Equal(t, []string{"Hugo"}, rep.Status.AtRisk)
	assert.Equal(t, len(threeTermTable().Roster()), rep.Status.Passed+rep.Status.Failed)
}

func TestAggregateCohortAtRiskKeepsJoinOrder(t *testing.T) {
	tbl := &Table{Terms: []Term{
		{Label: "T1", Rows: []Row{row("Zoe", 5), row("Abel", 6)}},
		{Label: "T2", Rows: []Row{row("Mia", 3), row("Zoe", 5)}},
	}}
	rep, err := AggregateCohort(tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{"Zoe", "Abel", "Mia"}, rep.Status.AtRisk)
}

func TestAggregateCohortTermsAndEvolution(t *testing.T) {
	rep, err := AggregateCohort(threeTermTable())
	require.NoError(t, err)

	assert.Equal(t, []string{"T1", "T2", "T3"}, rep.Terms.Labels())
	t1, ok := rep.Terms.Get("T1")
	require.True(t, ok)
	assert.Equal(t, 6.67, t1.MeanScore)
	t2, _ := rep.Terms.Get("T2")
	assert.Equal(t, 6.67, t2.MeanScore)
	t3, _ := rep.Terms.Get("T3")
	assert.Equal(t, 8.67, t3.MeanScore)

	assert.Equal(t, TrendVariable, rep.Evolution.Score)
	for _, c := range Components {
		assert.Equal(t, TrendVariable, rep.Evolution.Component(c))
	}
}

func TestAggregateCohortProfile(t *testing.T) {
	strong := func(name string) Row {
		r := row(name, 8)
		r.Components = ComponentScores{IndividualContribution: 9, GroupContribution: 7, Project: 6, Exam: 8.5}
		return r
	}
	tbl := &Table{Terms: []Term{
		{Label: "T1", Rows: []Row{strong("A"), strong("B")}},
		{Label: "T2", Rows: []Row{strong("A"), strong("B")}},
	}}
	rep, err := AggregateCohort(tbl)
	require.NoError(t, err)
	assert.Equal(t, []Component{IndividualContribution, Exam}, rep.Profile.Strengths)
	assert.Equal(t, []Component{Project}, rep.Profile.Weaknesses)
	for _, s := range rep.Profile.Strengths {
		assert.NotContains(t, rep.Profile.Weaknesses, s)
	}
	assert.Equal(t, TrendStableTwo, rep.Evolution.Score)
}

func TestAggregateCohortSingleTermHasNoEvolution(t *testing.T) {
	rep, err := AggregateCohort(&Table{Terms: []Term{{Label: "T1", Rows: []Row{row("A", 8)}}}})
	require.NoError(t, err)
	assert.True(t, rep.Evolution.IsEmpty())
	assert.Len(t, rep.Terms, 1)
}

func TestAggregateCohortIgnoresTermsWithoutRows(t *testing.T) {
	tbl := &Table{Terms: []Term{
		{Label: "T1", Rows: []Row{row("Ana", 9)}},
		{Label: "T2"},
	}}
	rep, err := AggregateCohort(tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{"T1", "T2"}, rep.Terms.Labels())
	assert.True(t, rep.Evolution.IsEmpty(), "one populated term has no evolution")
	assert.Equal(t, Components[:], rep.Profile.Strengths)
	assert.Empty(t, rep.Profile.Weaknesses)

	tbl.Terms = append(tbl.Terms, Term{Label: "T3", Rows: []Row{row("Ana", 9)}})
	rep, err = AggregateCohort(tbl)
	require.NoError(t, err)
	assert.Equal(t, TrendStableTwo, rep.Evolution.Score)
}

func TestAggregateCohortEmpty(t *testing.T) {
	for _, tbl := range []*Table{nil, {}} {
		rep, err := AggregateCohort(tbl)
		require.NoError(t, err)
		assert.Zero(t, rep.Status.Passed)
		assert.Zero(t, rep.Status.Failed)
		assert.Empty(t, rep.Status.AtRisk)
		assert.Empty(t, rep.Terms)
		assert.True(t, rep.Evolution.IsEmpty())
		assert.Empty(t, rep.Profile.Strengths)
		assert.Empty(t, rep.Profile.Weaknesses)
	}
}

func TestAggregateCohortRejectsDuplicateNames(t *testing.T) {
	tbl := &Table{Terms: []Term{{Label: "T2", Rows: []Row{row("Ana", 8), row("Beto", 7), row("Ana", 6)}}}}
	_, err := AggregateCohort(tbl)
	var dup *DuplicateStudentError
	require.True(t, errors.As(err, &dup), "got %v", err)
	assert.Equal(t, "T2", dup.Term)
	assert.Equal(t, "Ana", dup.Student)
	assert.Equal(t, 1, dup.FirstRow)
	assert.Equal(t, 3, dup.SecondRow)
}

func TestAggregateCohortDeterministic(t *testing.T) {
	a, err := AggregateCohort(threeTermTable())
	require.NoError(t, err)
	b, err := AggregateCohort(threeTermTable())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
