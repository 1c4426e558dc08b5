package integrators

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/neurosim/internal/dynamo"
)

// stepper produces one trial step of size h. It returns the advanced
// state and a weighted error ratio: at most 1 means the step meets the
// requested tolerances.
type stepper interface {
	name() string
	// errOrder is the order of the embedded error estimate, used for
	// step-size control exponents.
	errOrder() float64
	attempt(sys dynamo.System, t float64, y dynamo.State, h float64, tol dynamo.Tolerances, st *dynamo.Stats) (dynamo.State, float64, error)
}

// Step-size control shared by both steppers.
const (
	safety   = 0.9
	minScale = 0.2
	maxScale = 10.0

	defaultMaxSteps = 5_000_000
)

// driver owns the adaptive stepping loop shared by the steppers: clamp
// the step to land exactly on each sample age, retry rejected steps
// with a shrunken h, and give up when h underflows or the step budget
// runs out.
type driver struct {
	s        stepper
	maxSteps int
}

func (d *driver) Name() string { return d.s.name() }

func (d *driver) Integrate(ctx context.Context, sys dynamo.System, y0 dynamo.State, t0, t1 float64, samples int, tol dynamo.Tolerances) (*dynamo.Trajectory, dynamo.Stats, error) {
	var st dynamo.Stats
	if samples < 2 {
		return nil, st, fmt.Errorf("%w: need at least 2 samples, got %d", dynamo.ErrInvalidParameter, samples)
	}
	if !(t1 > t0) {
		return nil, st, fmt.Errorf("%w: empty age interval [%g,%g]", dynamo.ErrInvalidParameter, t0, t1)
	}
	if tol.Abs <= 0 || tol.Rel <= 0 {
		return nil, st, fmt.Errorf("%w: tolerances must be positive (atol=%g rtol=%g)", dynamo.ErrInvalidParameter, tol.Abs, tol.Rel)
	}

	span := t1 - t0
	minStep := span * 1e-14
	h := span / 1e5

	tr := &dynamo.Trajectory{
		Ages:   make([]float64, 0, samples),
		States: make([]dynamo.State, 0, samples),
	}
	tr.Ages = append(tr.Ages, t0)
	tr.States = append(tr.States, y0.Clone())

	t := t0
	y := y0.Clone()
	sampleStep := span / float64(samples-1)

	for next := 1; next < samples; next++ {
		target := t0 + float64(next)*sampleStep
		if next == samples-1 {
			target = t1
		}

		for t < target {
			select {
			case <-ctx.Done():
				return nil, st, &dynamo.IntegrationError{Time: t, Steps: st.Steps, Wrapped: ctx.Err()}
			default:
			}
			if st.Steps+st.Rejected >= d.maxSteps {
				return nil, st, &dynamo.IntegrationError{Time: t, Steps: st.Steps, Wrapped: dynamo.ErrTooManySteps}
			}

			if t+h > target {
				h = target - t
			}

			yNew, errRatio, err := d.s.attempt(sys, t, y, h, tol, &st)
			if err != nil {
				return nil, st, &dynamo.IntegrationError{Time: t, Steps: st.Steps, Wrapped: err}
			}

			if errRatio > 1 {
				st.Rejected++
				h *= math.Max(minScale, safety*math.Pow(errRatio, -1/d.s.errOrder()))
				if h < minStep {
					return nil, st, &dynamo.IntegrationError{Time: t, Steps: st.Steps, Wrapped: dynamo.ErrStepTooSmall}
				}
				continue
			}

			if !yNew.IsValid() {
				return nil, st, &dynamo.IntegrationError{Time: t, Steps: st.Steps, Wrapped: dynamo.ErrInvalidState}
			}

			st.Steps++
			t += h
			y = yNew

			if errRatio > 0 {
				h *= math.Min(maxScale, safety*math.Pow(errRatio, -1/(d.s.errOrder()+1)))
			} else {
				h *= maxScale
			}
		}

		tr.Ages = append(tr.Ages, target)
		tr.States = append(tr.States, y.Clone())
	}

	return tr, st, nil
}

// errWeight is the mixed absolute/relative error scale for component i.
func errWeight(yi, yNew float64, tol dynamo.Tolerances) float64 {
	return tol.Abs + tol.Rel*math.Max(math.Abs(yi), math.Abs(yNew))
}

// New builds an integrator by name. "rosenbrock" (alias "stiff") is the
// default for the disease kinetics; "dopri" (alias "rk45") is the
// explicit alternative for non-stiff experiments.
func New(name string) (dynamo.Integrator, error) {
	switch name {
	case "", "rosenbrock", "stiff":
		return NewRosenbrock(), nil
	case "dopri", "rk45":
		return NewDormandPrince(), nil
	default:
		return nil, fmt.Errorf("%w: unknown integrator %q", dynamo.ErrInvalidParameter, name)
	}
}

// Names lists the available integrators.
func Names() []string { return []string{"rosenbrock", "dopri"} }
