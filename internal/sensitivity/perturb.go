package sensitivity

import (
	"context"
	"fmt"

	"github.com/san-kum/neurosim/internal/dynamo"
	"github.com/san-kum/neurosim/internal/sim"
)

// PerturbedRun is one trajectory of a perturbation family, labelled by
// the factor applied to the parameter (factor 1 is the original).
type PerturbedRun struct {
	Factor     float64
	Trajectory *dynamo.Trajectory
	Err        error
}

// PerturbTrajectories integrates the scenario once per factor with the
// named parameter scaled by that factor, for plotting how a single
// parameter bends the trajectories. Factors usually include 1 for the
// reference curve. Individual integration failures are recorded on the
// run, not returned; callers plot what succeeded.
func (a *Analyzer) PerturbTrajectories(ctx context.Context, sc sim.Scenario, name string, factors []float64) ([]PerturbedRun, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	base, err := sc.Parameters()
	if err != nil {
		return nil, err
	}
	orig, ok := base.Value(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown parameter %q", dynamo.ErrInvalidParameter, name)
	}

	runs := make([]PerturbedRun, len(factors))
	for i, f := range factors {
		p, err := base.WithValue(name, orig*f)
		if err != nil {
			runs[i] = PerturbedRun{Factor: f, Err: err}
			continue
		}
		tr, err := a.runner.RunWith(ctx, sc, p)
		runs[i] = PerturbedRun{Factor: f, Trajectory: tr, Err: err}
		if ctx.Err() != nil {
			return runs, ctx.Err()
		}
	}
	return runs, nil
}
