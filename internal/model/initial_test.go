package model

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/neurosim/internal/dynamo"
)

const startAge = 365 * 30.0

func TestPositiveRoot(t *testing.T) {
	// x^2 + x - 6 = 0 has roots 2 and -3.
	got, err := positiveRoot(1, 1, -6)
	if err != nil {
		t.Fatalf("positiveRoot: %v", err)
	}
	if math.Abs(got-2) > 1e-12 {
		t.Errorf("positiveRoot(1, 1, -6) = %g, want 2", got)
	}

	// x^2 + 1 = 0 has no real root.
	if _, err := positiveRoot(1, 0, 1); !errors.Is(err, dynamo.ErrEquilibriumDomain) {
		t.Errorf("positiveRoot(1, 0, 1) error = %v, want ErrEquilibriumDomain", err)
	}
}

func TestInitialConditionsNonNegative(t *testing.T) {
	for _, sex := range []Sex{Female, Male} {
		for _, apoe4 := range []int{0, 1} {
			p, err := DeriveParameters(sex, apoe4, 1)
			if err != nil {
				t.Fatalf("DeriveParameters(%v, %d): %v", sex, apoe4, err)
			}
			y0, err := InitialConditions(p, startAge)
			if err != nil {
				t.Fatalf("InitialConditions(%v, %d): %v", sex, apoe4, err)
			}
			if len(y0) != dynamo.Dim {
				t.Fatalf("state has %d entries, want %d", len(y0), dynamo.Dim)
			}
			for i, v := range y0 {
				if v < 0 || math.IsNaN(v) {
					t.Errorf("sex %d apoe4 %d: y0[%s] = %g", sex, apoe4, dynamo.VarNames[i], v)
				}
			}
		}
	}
}

func TestInitialConditionsKnownValues(t *testing.T) {
	p, err := DeriveParameters(Female, 0, 1)
	if err != nil {
		t.Fatalf("DeriveParameters: %v", err)
	}
	y0, err := InitialConditions(p, startAge)
	if err != nil {
		t.Fatalf("InitialConditions: %v", err)
	}

	tests := []struct {
		idx  int
		want float64
	}{
		{dynamo.VarABi, 7.446518e-08},
		{dynamo.VarABmo, 1.595803e-07},
		{dynamo.VarABoo, 3.572969e-10},
		{dynamo.VarABpo, 2.310933e-16},
		{dynamo.VarGSK3, 5.344464e-05},
		{dynamo.VarTau, 6.494732e-07},
		{dynamo.VarNFTi, 4.675121e-11},
		{dynamo.VarNFTo, 5e-17},
		{dynamo.VarNeurons, 0.45},
		{dynamo.VarAstro, 0},
		{dynamo.VarMicroNA, 3.801e-02},
		{dynamo.VarMicroPro, 1e-12},
		{dynamo.VarMicroAnti, 1e-4},
		{dynamo.VarMacroPro, 0},
		{dynamo.VarMacroAnti, 0},
		{dynamo.VarTGFb, 1.887293e-14},
		{dynamo.VarIL10, 1.413639e-11},
		{dynamo.VarTNFa, 1.827060e-21},
		{dynamo.VarMCP1, 1.987681e-19},
	}

	for _, tt := range tests {
		if !relClose(y0[tt.idx], tt.want, 1e-5) {
			t.Errorf("y0[%s] = %g, want %g", dynamo.VarNames[tt.idx], y0[tt.idx], tt.want)
		}
	}
}

// Entries built as closed-form equilibria of their own equation must
// have a near-zero derivative at the start age. The residual that
// remains comes from the dilution coupling to the small but nonzero
// neuron death rate.
func TestInitialConditionsEquilibriumResidual(t *testing.T) {
	equilibria := []int{
		dynamo.VarABi, dynamo.VarABmo, dynamo.VarABoo, dynamo.VarABpo,
		dynamo.VarTau, dynamo.VarNFTi,
		dynamo.VarTGFb, dynamo.VarIL10, dynamo.VarTNFa, dynamo.VarMCP1,
	}

	for _, sex := range []Sex{Female, Male} {
		for _, apoe4 := range []int{0, 1} {
			p, err := DeriveParameters(sex, apoe4, 1)
			if err != nil {
				t.Fatalf("DeriveParameters(%v, %d): %v", sex, apoe4, err)
			}
			y0, err := InitialConditions(p, startAge)
			if err != nil {
				t.Fatalf("InitialConditions(%v, %d): %v", sex, apoe4, err)
			}
			dydt, err := NewKinetics(p).Derive(startAge, y0)
			if err != nil {
				t.Fatalf("Derive(%v, %d): %v", sex, apoe4, err)
			}
			for _, idx := range equilibria {
				if math.Abs(dydt[idx]) > 1e-12 {
					t.Errorf("sex %d apoe4 %d: residual d%s/dt = %g at start",
						sex, apoe4, dynamo.VarNames[idx], dydt[idx])
				}
			}
		}
	}
}

func TestInitialConditionsPlaqueDomain(t *testing.T) {
	p, err := DeriveParameters(Female, 0, 1)
	if err != nil {
		t.Fatalf("DeriveParameters: %v", err)
	}

	// Collapse the plaque clearance capacity below the conversion flux;
	// the plaque equilibrium then has no physical solution.
	q, err := p.WithValue("d_MantiABpo", 1e-30)
	if err != nil {
		t.Fatalf("WithValue: %v", err)
	}
	if _, err := InitialConditions(q, startAge); !errors.Is(err, dynamo.ErrEquilibriumDomain) {
		t.Errorf("InitialConditions with no clearance capacity: error = %v, want ErrEquilibriumDomain", err)
	}
}

func TestInitialConditionsAPOE4RaisesAmyloid(t *testing.T) {
	base, _ := DeriveParameters(Female, 0, 1)
	carrier, _ := DeriveParameters(Female, 1, 1)

	y0Base, err := InitialConditions(base, startAge)
	if err != nil {
		t.Fatalf("baseline: %v", err)
	}
	y0Carrier, err := InitialConditions(carrier, startAge)
	if err != nil {
		t.Fatalf("carrier: %v", err)
	}

	if y0Carrier[dynamo.VarABi] <= y0Base[dynamo.VarABi] {
		t.Errorf("carrier AB_i %g not above baseline %g",
			y0Carrier[dynamo.VarABi], y0Base[dynamo.VarABi])
	}
}
