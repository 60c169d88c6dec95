package grades

// AggregateStudent builds the report of one student. Terms without a row for
// the student carry the NoData marker; a name found in no term yields a report
// made only of markers, with empty evolution and profile.
func AggregateStudent(student string, t *Table) (*IndividualReport, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	rep := &IndividualReport{
		Student: student,
		Terms:   ByTerm[TermEntry]{},
		Profile: Profile{Strengths: []Component{}, Weaknesses: []Component{}},
	}
	if t == nil {
		return rep, nil
	}

	var scores []float64
	comps := make(map[Component][]float64, len(Components))
	for _, term := range t.Terms {
		row, ok := term.Find(student)
		if !ok {
			rep.Terms = append(rep.Terms, TermValue[TermEntry]{Term: term.Label})
			continue
		}
		rec := &TermRecord{
			Score:       row.Score,
			Qualitative: row.Qualitative,
			Components:  row.Components,
			Absences:    Absences{Unexcused: row.Unexcused, Excused: row.Excused},
			Behavior:    row.Behavior,
		}
		rep.Terms = append(rep.Terms, TermValue[TermEntry]{Term: term.Label, Value: TermEntry{Record: rec}})
		scores = append(scores, row.Score)
		for _, c := range Components {
			comps[c] = append(comps[c], row.Components.Get(c))
		}
	}

	if trend, ok := Classify(scores); ok {
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

// HasData reports whether the student appears in at least one term.
func (r *IndividualReport) HasData() bool {
	for _, tv := range r.Terms {
		if tv.Value.HasData() {
			return true
		}
	}
	return false
}
