package sensitivity_test

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/neurosim/internal/dynamo"
	"github.com/san-kum/neurosim/internal/integrators"
	"github.com/san-kum/neurosim/internal/model"
	"github.com/san-kum/neurosim/internal/sensitivity"
	"github.com/san-kum/neurosim/internal/sim"
)

// A short age window keeps the 149 integrations of a full sweep cheap.
func sweepScenario() sim.Scenario {
	return sim.Scenario{
		Name:          "sweep-test",
		Sex:           model.Female,
		APOE4:         0,
		Xi:            1,
		AgeStartYears: 30,
		AgeEndYears:   31,
		Samples:       5,
		Tolerances:    dynamo.Tolerances{Abs: 1e-10, Rel: 1e-6},
	}
}

var _ = Describe("Analyzer", func() {
	var analyzer *sensitivity.Analyzer

	BeforeEach(func() {
		analyzer = sensitivity.New(sim.NewRunner(integrators.NewRosenbrock()))
	})

	Describe("option validation", func() {
		It("rejects a non-positive factor", func() {
			_, err := analyzer.Analyze(context.Background(), sweepScenario(), sensitivity.Options{
				Factor:    0,
				Biomarker: dynamo.VarNeurons,
			})
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		})

		It("rejects a state index that is not a biomarker", func() {
			_, err := analyzer.Analyze(context.Background(), sweepScenario(), sensitivity.Options{
				Factor:    1.1,
				Biomarker: dynamo.VarGSK3,
			})
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		})

		It("rejects an invalid scenario before running anything", func() {
			sc := sweepScenario()
			sc.Xi = 5
			_, err := analyzer.Analyze(context.Background(), sc, sensitivity.Options{
				Factor:    1.1,
				Biomarker: dynamo.VarNeurons,
			})
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		})
	})

	Describe("a full sweep", func() {
		It("scores every parameter exactly zero at factor one", func() {
			rep, err := analyzer.Analyze(context.Background(), sweepScenario(), sensitivity.Options{
				Factor:    1,
				Biomarker: dynamo.VarNeurons,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Failures).To(BeEmpty())
			Expect(rep.Scores).To(HaveLen(74))
			for _, s := range rep.Scores {
				Expect(s.Value).To(BeZero(), "parameter %s", s.Parameter)
			}
		})

		It("returns scores sorted by descending influence", func() {
			rep, err := analyzer.Analyze(context.Background(), sweepScenario(), sensitivity.Options{
				Factor:    1.1,
				Biomarker: dynamo.VarABpo,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(len(rep.Scores) + len(rep.Failures)).To(Equal(74))
			Expect(rep.Baseline).To(BeNumerically(">", 0))
			for i := 1; i < len(rep.Scores); i++ {
				Expect(rep.Scores[i].Value).To(BeNumerically("<=", rep.Scores[i-1].Value),
					"scores out of order at %s", rep.Scores[i].Parameter)
			}
		})

		It("reports each finished parameter through OnResult", func() {
			var mu sync.Mutex
			seen := map[string]bool{}

			_, err := analyzer.Analyze(context.Background(), sweepScenario(), sensitivity.Options{
				Factor:    1,
				Biomarker: dynamo.VarNeurons,
				Workers:   4,
				OnResult: func(r sensitivity.Result) {
					mu.Lock()
					seen[r.Parameter] = true
					mu.Unlock()
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).To(HaveLen(74))
		})

		It("is interrupted by context cancellation", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := analyzer.Analyze(ctx, sweepScenario(), sensitivity.Options{
				Factor:    1.1,
				Biomarker: dynamo.VarNeurons,
			})
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Describe("perturbed trajectories", func() {
		It("returns one run per factor, baseline included", func() {
			runs, err := analyzer.PerturbTrajectories(context.Background(), sweepScenario(),
				"d_Fi", []float64{0.9, 1, 1.1})
			Expect(err).NotTo(HaveOccurred())
			Expect(runs).To(HaveLen(3))
			for _, r := range runs {
				Expect(r.Err).NotTo(HaveOccurred())
				Expect(r.Trajectory.Len()).To(Equal(5))
			}
		})

		It("fails fast on an unknown parameter", func() {
			_, err := analyzer.PerturbTrajectories(context.Background(), sweepScenario(),
				"no_such_parameter", []float64{1})
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		})
	})
})

var _ = Describe("Aggregate", func() {
	report := func(name string, scores map[string]float64) *sensitivity.Report {
		rep := &sensitivity.Report{Scenario: sim.Scenario{Name: name}}
		for p, v := range scores {
			rep.Scores = append(rep.Scores, sensitivity.Score{Parameter: p, Value: v})
		}
		return rep
	}

	It("unions parameters and zero-fills scenarios that skipped one", func() {
		summary := sensitivity.Aggregate([]*sensitivity.Report{
			report("a", map[string]float64{"p1": 100, "p2": 50}),
			report("b", map[string]float64{"p1": 80}),
		})

		Expect(summary.Scenarios).To(Equal([]string{"a", "b"}))
		Expect(summary.Rows).To(HaveLen(2))
		Expect(summary.Rows[0].Parameter).To(Equal("p1"))
		Expect(summary.Rows[0].Mean).To(BeNumerically("~", 90, 1e-9))
		Expect(summary.Rows[1].Parameter).To(Equal("p2"))
		Expect(summary.Rows[1].Scores).To(Equal([]float64{50, 0}))
	})

	It("drops parameters below the display threshold", func() {
		summary := sensitivity.Aggregate([]*sensitivity.Report{
			report("a", map[string]float64{"big": 100, "small": 100 * sensitivity.DisplayThreshold / 2}),
		})

		Expect(summary.Rows).To(HaveLen(1))
		Expect(summary.Rows[0].Parameter).To(Equal("big"))
	})

	It("keeps a parameter whose peak in any one scenario clears the threshold", func() {
		summary := sensitivity.Aggregate([]*sensitivity.Report{
			report("a", map[string]float64{"p1": 100, "p2": 0}),
			report("b", map[string]float64{"p1": 0, "p2": 100 * sensitivity.DisplayThreshold}),
		})

		Expect(summary.Rows).To(HaveLen(2))
	})

	It("orders rows by mean score", func() {
		summary := sensitivity.Aggregate([]*sensitivity.Report{
			report("a", map[string]float64{"low": 30, "high": 90, "mid": 60}),
		})

		var names []string
		for _, row := range summary.Rows {
			names = append(names, row.Parameter)
		}
		Expect(names).To(Equal([]string{"high", "mid", "low"}))
	})

	It("handles an empty input", func() {
		summary := sensitivity.Aggregate(nil)
		Expect(summary.Rows).To(BeEmpty())
	})
})
