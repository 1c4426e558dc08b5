package sensitivity

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/san-kum/neurosim/internal/dynamo"
	"github.com/san-kum/neurosim/internal/model"
	"github.com/san-kum/neurosim/internal/sim"
)

// Biomarkers observable by the analysis: plaque load, intracellular
// tangle load, neuron density.
var Biomarkers = map[string]int{
	"AB":  dynamo.VarABpo,
	"tau": dynamo.VarNFTi,
	"N":   dynamo.VarNeurons,
}

// ValidBiomarker reports whether idx is one of the three observed
// outputs.
func ValidBiomarker(idx int) bool {
	return idx == dynamo.VarABpo || idx == dynamo.VarNFTi || idx == dynamo.VarNeurons
}

// Options configures one OAT sweep.
type Options struct {
	// Factor multiplies (and, separately, divides) each parameter.
	Factor float64
	// Biomarker is the observed state index (3, 6 or 8).
	Biomarker int
	// Workers is the fan-out width; 0 means NumCPU.
	Workers int
	// Timeout bounds each individual integration; 0 means none. A
	// timed-out run is recorded like any other integration failure.
	Timeout time.Duration
	// OnResult, if set, is called after each parameter finishes, from
	// worker goroutines.
	OnResult func(Result)
}

func (o Options) validate() error {
	if o.Factor <= 0 {
		return fmt.Errorf("%w: perturbation factor must be positive, got %g", dynamo.ErrInvalidParameter, o.Factor)
	}
	if !ValidBiomarker(o.Biomarker) {
		return fmt.Errorf("%w: biomarker index %d (want 3, 6 or 8)", dynamo.ErrInvalidParameter, o.Biomarker)
	}
	return nil
}

// Result is the outcome for one parameter: either a score or the
// failure that disqualified it.
type Result struct {
	Parameter string
	Score     float64
	Err       error
	Direction string // "up" or "down" when Err is set
}

// Score is one row of the sensitivity table.
type Score struct {
	Parameter string
	Value     float64
}

// Failure records a skipped parameter with enough context to reproduce
// the failing run.
type Failure struct {
	Parameter string
	Direction string
	Err       error
}

// Report is the sensitivity table for one scenario and biomarker.
// Scores are sorted by descending value; parameters whose perturbed
// runs failed appear only in Failures.
type Report struct {
	Scenario  sim.Scenario
	Biomarker int
	Baseline  float64
	Scores    []Score
	Failures  []Failure
}

// Analyzer runs one-at-a-time perturbation sweeps through a Runner.
type Analyzer struct {
	runner *sim.Runner
}

func New(runner *sim.Runner) *Analyzer {
	return &Analyzer{runner: runner}
}

// Analyze perturbs every scalar parameter of the scenario's parameter
// set by Factor in both directions, reruns the full pipeline for each
// direction, and scores each parameter as 100 times the mean relative
// change of the biomarker's final value. A failed baseline aborts the
// whole scenario; a failed perturbed run only skips its parameter.
//
// Every trial owns a freshly derived parameter set; no state is shared
// between in-flight evaluations, so parameters are swept concurrently.
func (a *Analyzer) Analyze(ctx context.Context, sc sim.Scenario, opts Options) (*Report, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	baseline, err := a.run(ctx, sc, opts.Timeout, nil)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: baseline run: %w", sc.Name, err)
	}
	base := baseline.Final(opts.Biomarker)

	p, err := sc.Parameters()
	if err != nil {
		return nil, err
	}
	names := p.Names()

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(names) {
		workers = len(names)
	}

	results := make([]Result, len(names))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				res := a.evaluate(ctx, sc, names[idx], base, opts)
				results[idx] = res
				if opts.OnResult != nil {
					opts.OnResult(res)
				}
			}
		}()
	}
	for idx := range names {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rep := &Report{Scenario: sc, Biomarker: opts.Biomarker, Baseline: base}
	for _, res := range results {
		if res.Err != nil {
			rep.Failures = append(rep.Failures, Failure{Parameter: res.Parameter, Direction: res.Direction, Err: res.Err})
			continue
		}
		rep.Scores = append(rep.Scores, Score{Parameter: res.Parameter, Value: res.Score})
	}
	sort.SliceStable(rep.Scores, func(i, j int) bool { return rep.Scores[i].Value > rep.Scores[j].Value })
	return rep, nil
}

// evaluate scores a single parameter: one run with the value multiplied
// by the factor, one with it divided.
func (a *Analyzer) evaluate(ctx context.Context, sc sim.Scenario, name string, base float64, opts Options) Result {
	p, err := sc.Parameters()
	if err != nil {
		return Result{Parameter: name, Err: err}
	}
	orig, ok := p.Value(name)
	if !ok {
		return Result{Parameter: name, Err: fmt.Errorf("%w: unknown parameter %q", dynamo.ErrInvalidParameter, name)}
	}

	pUp, err := p.WithValue(name, orig*opts.Factor)
	if err != nil {
		return Result{Parameter: name, Err: err, Direction: "up"}
	}
	up, err := a.run(ctx, sc, opts.Timeout, pUp)
	if err != nil {
		return Result{Parameter: name, Err: err, Direction: "up"}
	}
	pDown, err := p.WithValue(name, orig/opts.Factor)
	if err != nil {
		return Result{Parameter: name, Err: err, Direction: "down"}
	}
	down, err := a.run(ctx, sc, opts.Timeout, pDown)
	if err != nil {
		return Result{Parameter: name, Err: err, Direction: "down"}
	}

	relUp := math.Abs((up.Final(opts.Biomarker) - base) / base)
	relDown := math.Abs((down.Final(opts.Biomarker) - base) / base)
	return Result{Parameter: name, Score: 100 * (relUp + relDown) / 2}
}

// run executes one pipeline evaluation under the per-run timeout.
// p==nil means the scenario baseline. Abandoning a timed-out run never
// affects the others in flight: each run carries its own context.
func (a *Analyzer) run(ctx context.Context, sc sim.Scenario, timeout time.Duration, p *model.Parameters) (*dynamo.Trajectory, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if p == nil {
		return a.runner.Run(runCtx, sc)
	}
	return a.runner.RunWith(runCtx, sc, p)
}
