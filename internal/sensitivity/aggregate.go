package sensitivity

import "sort"

// SummaryRow is one parameter's scores across every scenario, in the
// scenario order of the summary.
type SummaryRow struct {
	Parameter string
	Scores    []float64
	Mean      float64
}

// Summary is the cross-scenario view for one biomarker: the union of
// scored parameters, zero-filled where a scenario skipped one, filtered
// to those whose maximum score reaches 20% of the global maximum, and
// sorted by mean score.
type Summary struct {
	Biomarker int
	Scenarios []string
	Rows      []SummaryRow
}

// DisplayThreshold is the retention cutoff relative to the global
// maximum score.
const DisplayThreshold = 0.2

// Aggregate merges per-scenario reports for the same biomarker into a
// display summary. Reports must come from scenarios with distinct
// names.
func Aggregate(reports []*Report) *Summary {
	if len(reports) == 0 {
		return &Summary{}
	}

	s := &Summary{Biomarker: reports[0].Biomarker}
	for _, r := range reports {
		s.Scenarios = append(s.Scenarios, r.Scenario.Name)
	}

	// Union of parameter names; missing entries score 0.
	byParam := make(map[string][]float64)
	for i, r := range reports {
		for _, sc := range r.Scores {
			row, ok := byParam[sc.Parameter]
			if !ok {
				row = make([]float64, len(reports))
				byParam[sc.Parameter] = row
			}
			row[i] = sc.Value
		}
	}

	globalMax := 0.0
	for _, row := range byParam {
		for _, v := range row {
			if v > globalMax {
				globalMax = v
			}
		}
	}
	cutoff := DisplayThreshold * globalMax

	for name, row := range byParam {
		max, sum := 0.0, 0.0
		for _, v := range row {
			if v > max {
				max = v
			}
			sum += v
		}
		if max < cutoff {
			continue
		}
		s.Rows = append(s.Rows, SummaryRow{
			Parameter: name,
			Scores:    row,
			Mean:      sum / float64(len(row)),
		})
	}

	sort.SliceStable(s.Rows, func(i, j int) bool { return s.Rows[i].Mean > s.Rows[j].Mean })
	return s
}
