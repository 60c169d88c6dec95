// Package dashboard shapes a stored cohort report into the figures shown on
// the dashboard: summary cards, a per-term bar chart, a pass/fail donut and
// per-term attendance totals.
package dashboard

import (
	"time"

	"github.com/KaramelBytes/gradeloom-cli/internal/grades"
	"github.com/KaramelBytes/gradeloom-cli/internal/store"
)

const (
	// NoFileMessage explains an empty dashboard.
	NoFileMessage = "no active file with processed data"
	// NoReports replaces the last report date when no group report exists.
	NoReports = "no reports"
	// DateLayout is dd/mm/yyyy.
	DateLayout = "02/01/2006"
)

// Cards are the headline figures.
type Cards struct {
	Average    float64 `json:"average"`
	Passed     int     `json:"passed"`
	Failed     int     `json:"failed"`
	LastReport string  `json:"last_report"`
}

type Bars struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

type Donut struct {
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

type Attendance struct {
	Labels    []string `json:"labels"`
	Excused   []int    `json:"excused"`
	Unexcused []int    `json:"unexcused"`
}

// Metrics is everything the dashboard renders for one file.
type Metrics struct {
	NoData     bool        `json:"no_data"`
	Message    string      `json:"message,omitempty"`
	File       string      `json:"file,omitempty"`
	Cards      *Cards      `json:"cards,omitempty"`
	Bars       *Bars       `json:"bar_chart,omitempty"`
	Donut      *Donut      `json:"donut_chart,omitempty"`
	Attendance *Attendance `json:"attendance_chart,omitempty"`
}

// Build computes the metrics of file. lastGroup is the generation time of the
// owner's latest group report, or nil when there is none.
func Build(file *store.File, lastGroup *time.Time) Metrics {
	if file == nil || file.Cohort == nil {
		return Metrics{NoData: true, Message: NoFileMessage}
	}
	rep := file.Cohort

	bars := Bars{Labels: []string{}, Values: []float64{}}
	att := Attendance{Labels: []string{}, Excused: []int{}, Unexcused: []int{}}
	for _, tv := range rep.Terms {
		bars.Labels = append(bars.Labels, tv.Term)
		bars.Values = append(bars.Values, tv.Value.MeanScore)
		att.Labels = append(att.Labels, tv.Term)
		att.Excused = append(att.Excused, tv.Value.TotalExcused)
		att.Unexcused = append(att.Unexcused, tv.Value.TotalUnexcused)
	}

	cards := Cards{LastReport: NoReports}
	if len(rep.Terms) > 0 {
		var sum float64
		for _, v := range bars.Values {
			sum += v
		}
		cards.Average = grades.DisplayPrecision.Round(sum / float64(len(bars.Values)))
		cards.Passed = rep.Status.Passed
		cards.Failed = rep.Status.Failed
	}
	if lastGroup != nil {
		cards.LastReport = lastGroup.Format(DateLayout)
	}

	return Metrics{
		File:       file.Name,
		Cards:      &cards,
		Bars:       &bars,
		Donut:      &Donut{Passed: cards.Passed, Failed: cards.Failed},
		Attendance: &att,
	}
}
