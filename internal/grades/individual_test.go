package grades

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateStudentFullHistory(t *testing.T) {
	rep, err := AggregateStudent("Ana", threeTermTable())
	require.NoError(t, err)

	assert.Equal(t, "Ana", rep.Student)
	assert.Equal(t, []string{"T1", "T2", "T3"}, rep.Terms.Labels())
	assert.Equal(t, TrendContinuousGrowth, rep.Evolution.Score)
	assert.Equal(t, TrendContinuousGrowth, rep.Evolution.Exam)

	t2, ok := rep.Terms.Get("T2")
	require.True(t, ok)
	require.True(t, t2.HasData())
	assert.Equal(t, 7.0, t2.Record.Score)
	assert.Equal(t, "AAR", t2.Record.Qualitative)
	assert.Equal(t, "B", t2.Record.Behavior)
	assert.Empty(t, rep.Profile.Strengths)
	assert.Empty(t, rep.Profile.Weaknesses)
}

func TestAggregateStudentMissingTerm(t *testing.T) {
	rep, err := AggregateStudent("Luis", threeTermTable())
	require.NoError(t, err)

	t2, ok := rep.Terms.Get("T2")
	require.True(t, ok)
	assert.False(t, t2.HasData())
	assert.Equal(t, TrendImproved, rep.Evolution.Score)
	// 5 and 9 average to 7: neither a strength nor a weakness.
	assert.Empty(t, rep.Profile.Strengths)
	assert.Empty(t, rep.Profile.Weaknesses)
}

func TestAggregateStudentProfile(t *testing.T) {
	rep, err := AggregateStudent("Eva", threeTermTable())
	require.NoError(t, err)
	assert.Equal(t, []Component{IndividualContribution, GroupContribution, Project, Exam}, rep.Profile.Strengths)

	rep, err = AggregateStudent("Hugo", threeTermTable())
	require.NoError(t, err)
	assert.Equal(t, []Component{IndividualContribution, GroupContribution, Project, Exam}, rep.Profile.Weaknesses)
	assert.True(t, rep.Evolution.IsEmpty(), "one term of data is not enough for a trend")
}

func TestAggregateStudentUnknown(t *testing.T) {
	rep, err := AggregateStudent("Nadie", threeTermTable())
	require.NoError(t, err)

	require.Len(t, rep.Terms, 3)
	for _, tv := range rep.Terms {
		assert.False(t, tv.Value.HasData(), "term %s", tv.Term)
	}
	assert.False(t, rep.HasData())
	assert.True(t, rep.Evolution.IsEmpty())
	assert.Empty(t, rep.Profile.Strengths)
	assert.Empty(t, rep.Profile.Weaknesses)
}

func TestAggregateStudentExactMatch(t *testing.T) {
	rep, err := AggregateStudent("ana", threeTermTable())
	require.NoError(t, err)
	assert.False(t, rep.HasData())
}
