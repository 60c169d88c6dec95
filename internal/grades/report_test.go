package grades

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCohortReportJSONRoundTrip(t *testing.T) {
	rep, err := AggregateCohort(threeTermTable())
	require.NoError(t, err)

	b, err := json.Marshal(rep)
	require.NoError(t, err)

	var back CohortReport
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, *rep, back)
}

func TestIndividualReportJSONRoundTrip(t *testing.T) {
	for _, name := range []string{"Luis", "Nadie"} {
		rep, err := AggregateStudent(name, threeTermTable())
		require.NoError(t, err)

		b, err := json.Marshal(rep)
		require.NoError(t, err)

		var back IndividualReport
		require.NoError(t, json.Unmarshal(b, &back))
		assert.Equal(t, *rep, back)
	}
}

func TestByTermKeepsTermOrder(t *testing.T) {
	b := ByTerm[int]{{Term: "Tercero", Value: 3}, {Term: "Primero", Value: 1}, {Term: "Segundo", Value: 2}}
	out, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, `{"Tercero":3,"Primero":1,"Segundo":2}`, string(out))

	var back ByTerm[int]
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, b, back)

	require.Error(t, json.Unmarshal([]byte(`[1,2]`), &back))
}

func TestIndividualReportNoDataMarker(t *testing.T) {
	rep, err := AggregateStudent("Luis", threeTermTable())
	require.NoError(t, err)
	b, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"T2":"no data"`)
	assert.True(t, strings.Index(string(b), `"T1"`) < strings.Index(string(b), `"T3"`))

	var e TermEntry
	require.Error(t, json.Unmarshal([]byte(`"sin datos"`), &e))
}

func TestComponentText(t *testing.T) {
	b, err := json.Marshal([]Component{Exam, GroupContribution})
	require.NoError(t, err)
	assert.Equal(t, `["exam","group_contribution"]`, string(b))

	var back []Component
	require.NoError(t, json.Unmarshal([]byte(`["exam","Aporte Grupal"]`), &back))
	assert.Equal(t, []Component{Exam, GroupContribution}, back)
	assert.Equal(t, "Proyecto", Project.Label())
}

func TestPrecisionPolicies(t *testing.T) {
	assert.Equal(t, 7.44, StoragePrecision.Round(7.4375))
	assert.Equal(t, 7.4, DisplayPrecision.Round(7.4375))
	assert.Equal(t, 8.0, DisplayPrecision.Round(7.96))
}
