package grades

// AggregateCohort builds the group report for every term of t.
//
// Cumulative status is computed per student from the mean of the scores the
// student actually has, so a term the student is missing from does not count
// as zero. At-risk students are listed in first-appearance order. Terms with
// no rows keep their summary but stay out of the evolution and profile series.
func AggregateCohort(t *Table) (*CohortReport, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	rep := &CohortReport{
		Status:  CumulativeStatus{AtRisk: []string{}},
		Terms:   ByTerm[TermSummary]{},
		Profile: Profile{Strengths: []Component{}, Weaknesses: []Component{}},
	}
	if t == nil || len(t.Terms) == 0 {
		return rep, nil
	}

	rep.Status = cumulativeStatus(t)

	means := make([]float64, 0, len(t.Terms))
	comps := make(map[Component][]float64, len(Components))
	for _, term := range t.Terms {
		s := Summarize(term)
		rep.Terms = append(rep.Terms, TermValue[TermSummary]{Term: term.Label, Value: s})
		if len(term.Rows) == 0 {
			continue
		}
		means = append(means, s.MeanScore)
		for _, c := range Components {
			comps[c] = append(comps[c], s.ComponentMeans.Get(c))
		}
	}

	if trend, ok := Classify(means); ok {
		rep.Evolution.Score = trend
	}
	for _, c := range Components {
		if trend, ok := Classify(comps[c]); ok {
			rep.Evolution.setComponent(c, trend)
		}
	}
	rep.Profile = profileOf(comps)
	return rep, nil
}

func cumulativeStatus(t *Table) CumulativeStatus {
	var order []string
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, term := range t.Terms {
		for _, r := range term.Rows {
			if counts[r.Student] == 0 {
				order = append(order, r.Student)
			}
			sums[r.Student] += r.Score
			counts[r.Student]++
		}
	}
	st := CumulativeStatus{AtRisk: []string{}}
	for _, name := range order {
		if sums[name]/float64(counts[name]) >= PassThreshold {
			st.Passed++
			continue
		}
		st.Failed++
		st.AtRisk = append(st.AtRisk, name)
	}
	return st
}
