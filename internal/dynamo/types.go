package dynamo

import (
	"context"
	"math"
)

// Dim is the size of the model state vector.
const Dim = 19

// State variable indices, in the fixed semantic order of the model.
// All entries are concentrations in g/mL.
const (
	VarABi       = iota // amyloid-beta monomer, intracellular
	VarABmo             // amyloid-beta monomer, extracellular
	VarABoo             // amyloid-beta oligomer, extracellular
	VarABpo             // amyloid-beta plaque, extracellular
	VarGSK3             // GSK-3 enzyme
	VarTau              // tau protein
	VarNFTi             // tangles, intracellular
	VarNFTo             // tangles, extracellular
	VarNeurons          // living neuron density
	VarAstro            // activated astrocyte density
	VarMicroNA          // resting microglia
	VarMicroPro         // pro-inflammatory microglia
	VarMicroAnti        // anti-inflammatory microglia
	VarMacroPro         // pro-inflammatory macrophages
	VarMacroAnti        // anti-inflammatory macrophages
	VarTGFb             // TGF-beta
	VarIL10             // IL-10
	VarTNFa             // TNF-alpha
	VarMCP1             // MCP-1
)

// VarNames holds a short label per state index, used for CSV headers
// and plot captions.
var VarNames = [Dim]string{
	"AB_i", "ABm_o", "ABo_o", "ABp_o", "G", "tau", "F_i", "F_o", "N",
	"A", "M_NA", "M_pro", "M_anti", "Mhat_pro", "Mhat_anti",
	"T_beta", "I_10", "T_alpha", "P",
}

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// System is the right-hand side of an ODE system y' = f(t, y).
// Derive must be a pure function of its inputs and must report a
// numeric-domain failure (vanished denominator) instead of returning
// NaN entries.
type System interface {
	Derive(t float64, y State) (State, error)
	Dim() int
}

// Trajectory is an ordered sequence of (age, state) samples produced by
// one integration call. It is immutable once produced and owned by the
// caller that requested it.
type Trajectory struct {
	Ages   []float64 // in days
	States []State
}

func (tr *Trajectory) Len() int { return len(tr.Ages) }

// Final returns the value of state variable idx at the last sample.
func (tr *Trajectory) Final(idx int) float64 {
	return tr.States[len(tr.States)-1][idx]
}

// Series extracts the time series of one state variable.
func (tr *Trajectory) Series(idx int) []float64 {
	out := make([]float64, len(tr.States))
	for i, s := range tr.States {
		out[i] = s[idx]
	}
	return out
}

// AgesInYears converts the sample ages from days to years.
func (tr *Trajectory) AgesInYears() []float64 {
	out := make([]float64, len(tr.Ages))
	for i, a := range tr.Ages {
		out[i] = a / 365.25
	}
	return out
}

// Stats reports the work an integrator performed for one call.
type Stats struct {
	Steps       int
	Rejected    int
	Evaluations int
}

// Tolerances holds the caller-supplied error control for one
// integration. The two analysis modes differ by up to 12 orders of
// magnitude in Abs, so nothing here is hardcoded downstream.
type Tolerances struct {
	Abs float64
	Rel float64
}

func DefaultTolerances() Tolerances {
	return Tolerances{Abs: 1e-10, Rel: 1e-10}
}

// Integrator advances a System from t0 to t1 and samples the solution
// at `samples` evenly spaced times (inclusive of both endpoints).
type Integrator interface {
	Name() string
	Integrate(ctx context.Context, sys System, y0 State, t0, t1 float64, samples int, tol Tolerances) (*Trajectory, Stats, error)
}
