package grades

import "sort"

// rankSize is how many students are listed as top and low performers.
const rankSize = 3

// Summarize computes the aggregates of one term.
//
// Both performer lists come from one ordering, by score descending with ties
// in row order. Top performers are its head, low performers its tail read
// backwards, so the two lists never share a student once a term has twice
// rankSize students.
func Summarize(t Term) TermSummary {
	s := TermSummary{
		TopPerformers:     []Ranked{},
		LowPerformers:     []Ranked{},
		AbsencesByStudent: []StudentAbsences{},
		PoorBehavior:      []string{},
	}
	if len(t.Rows) == 0 {
		return s
	}

	scores := make([]float64, len(t.Rows))
	comps := make(map[Component][]float64, len(Components))
	for i, r := range t.Rows {
		scores[i] = r.Score
		for _, c := range Components {
			comps[c] = append(comps[c], r.Components.Get(c))
		}
		s.TotalUnexcused += r.Unexcused
		s.TotalExcused += r.Excused
		if r.Unexcused > 0 || r.Excused > 0 {
			s.AbsencesByStudent = append(s.AbsencesByStudent, StudentAbsences{Student: r.Student, Unexcused: r.Unexcused, Excused: r.Excused})
		}
		if r.Behavior == PoorBehavior {
			s.PoorBehavior = append(s.PoorBehavior, r.Student)
		}
	}
	s.MeanScore = StoragePrecision.Round(mean(scores))
	s.PoorBehaviorCount = len(s.PoorBehavior)
	for _, c := range Components {
		s.ComponentMeans.Set(c, StoragePrecision.Round(mean(comps[c])))
	}

	s.TopPerformers, s.LowPerformers = ranked(t.Rows)
	return s
}

func ranked(rows []Row) (top, low []Ranked) {
	order := make([]Ranked, len(rows))
	for i, r := range rows {
		order[i] = Ranked{Student: r.Student, Score: r.Score}
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].Score > order[j].Score })
	n := min(rankSize, len(order))
	top = append([]Ranked{}, order[:n]...)
	low = make([]Ranked, n)
	for i := 0; i < n; i++ {
		low[i] = order[len(order)-1-i]
	}
	return top, low
}
