package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/neurosim/internal/dynamo"
	"github.com/san-kum/neurosim/internal/model"
)

// Scenario is one fixed simulation configuration: who is simulated,
// over which ages, and how tightly the solver is driven. Scenarios are
// plain values; nothing in the pipeline mutates them.
type Scenario struct {
	Name          string
	Sex           model.Sex
	APOE4         int
	Xi            float64
	AgeStartYears float64
	AgeEndYears   float64
	Samples       int
	Tolerances    dynamo.Tolerances
}

// DaysPerYear converts scenario ages to integration time (ages in days
// are 365 * years; only plot axes use 365.25).
const DaysPerYear = 365.0

func (s Scenario) StartDays() float64 { return DaysPerYear * s.AgeStartYears }
func (s Scenario) EndDays() float64   { return DaysPerYear * s.AgeEndYears }

func (s Scenario) Validate() error {
	if s.Sex != model.Female && s.Sex != model.Male {
		return fmt.Errorf("%w: scenario %q: sex must be 0 or 1", dynamo.ErrInvalidParameter, s.Name)
	}
	if s.APOE4 != 0 && s.APOE4 != 1 {
		return fmt.Errorf("%w: scenario %q: APOE4 must be 0 or 1", dynamo.ErrInvalidParameter, s.Name)
	}
	if !(s.Xi > 0 && s.Xi <= 1) {
		return fmt.Errorf("%w: scenario %q: xi must be in (0,1]", dynamo.ErrInvalidParameter, s.Name)
	}
	if !(s.AgeEndYears > s.AgeStartYears) || s.AgeStartYears < 0 {
		return fmt.Errorf("%w: scenario %q: age range [%g,%g] is invalid", dynamo.ErrInvalidParameter, s.Name, s.AgeStartYears, s.AgeEndYears)
	}
	if s.Samples < 2 {
		return fmt.Errorf("%w: scenario %q: need at least 2 samples", dynamo.ErrInvalidParameter, s.Name)
	}
	if s.Tolerances.Abs <= 0 || s.Tolerances.Rel <= 0 {
		return fmt.Errorf("%w: scenario %q: tolerances must be positive", dynamo.ErrInvalidParameter, s.Name)
	}
	return nil
}

// Parameters derives the scenario's baseline parameter set.
func (s Scenario) Parameters() (*model.Parameters, error) {
	return model.DeriveParameters(s.Sex, s.APOE4, s.Xi)
}

// Runner wires the full pipeline: parameter set -> equilibrium initial
// conditions -> kinetics -> integrator -> trajectory.
type Runner struct {
	integ dynamo.Integrator
}

func NewRunner(integ dynamo.Integrator) *Runner {
	return &Runner{integ: integ}
}

// Run simulates the scenario with its baseline parameters.
func (r *Runner) Run(ctx context.Context, sc Scenario) (*dynamo.Trajectory, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	p, err := sc.Parameters()
	if err != nil {
		return nil, err
	}
	return r.RunWith(ctx, sc, p)
}

// RunWith simulates the scenario with a caller-supplied parameter set,
// typically one derived fresh for a perturbation trial. The scenario is
// assumed validated.
func (r *Runner) RunWith(ctx context.Context, sc Scenario, p *model.Parameters) (*dynamo.Trajectory, error) {
	y0, err := model.InitialConditions(p, sc.StartDays())
	if err != nil {
		return nil, err
	}
	tr, _, err := r.integ.Integrate(ctx, model.NewKinetics(p), y0, sc.StartDays(), sc.EndDays(), sc.Samples, sc.Tolerances)
	if err != nil {
		return nil, err
	}
	return tr, nil
}

// NeuronLossFraction is the fraction of the initial neuron density lost
// by the end of the trajectory.
func NeuronLossFraction(tr *dynamo.Trajectory) float64 {
	first := tr.States[0][dynamo.VarNeurons]
	if first == 0 {
		return 0
	}
	return 1 - tr.Final(dynamo.VarNeurons)/first
}

// OnsetAgeYears is the first sampled age (in years) at which neuron
// density drops below frac of its initial value, or -1 if it never
// does.
func OnsetAgeYears(tr *dynamo.Trajectory, frac float64) float64 {
	threshold := frac * tr.States[0][dynamo.VarNeurons]
	for i, s := range tr.States {
		if s[dynamo.VarNeurons] < threshold {
			return tr.Ages[i] / 365.25
		}
	}
	return -1
}

// PeakValue is the maximum of one state variable over the trajectory.
func PeakValue(tr *dynamo.Trajectory, idx int) float64 {
	peak := tr.States[0][idx]
	for _, s := range tr.States[1:] {
		if s[idx] > peak {
			peak = s[idx]
		}
	}
	return peak
}
