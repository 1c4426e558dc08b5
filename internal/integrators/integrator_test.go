package integrators

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/neurosim/internal/dynamo"
)

// decay is y' = -k*y with the closed-form solution y0*exp(-k*t).
type decay struct {
	k float64
}

func (d decay) Dim() int { return 1 }

func (d decay) Derive(t float64, y dynamo.State) (dynamo.State, error) {
	return dynamo.State{-d.k * y[0]}, nil
}

// stiffRelax is a classic stiff pair: a fast mode with rate 1000
// coupled to a slow one.
type stiffRelax struct{}

func (stiffRelax) Dim() int { return 2 }

func (stiffRelax) Derive(t float64, y dynamo.State) (dynamo.State, error) {
	return dynamo.State{
		-1000*y[0] + 999*y[1],
		-y[1],
	}, nil
}

func TestIntegratorsAccuracy(t *testing.T) {
	tol := dynamo.Tolerances{Abs: 1e-10, Rel: 1e-8}
	sys := decay{k: 1}
	y0 := dynamo.State{1}

	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			integ, err := New(name)
			if err != nil {
				t.Fatalf("New(%q): %v", name, err)
			}
			tr, st, err := integ.Integrate(context.Background(), sys, y0, 0, 5, 11, tol)
			if err != nil {
				t.Fatalf("Integrate: %v", err)
			}
			if st.Steps == 0 || st.Evaluations == 0 {
				t.Errorf("no work reported: %+v", st)
			}
			for i, age := range tr.Ages {
				want := math.Exp(-age)
				if got := tr.States[i][0]; math.Abs(got-want) > 1e-6 {
					t.Errorf("y(%g) = %g, want %g", age, got, want)
				}
			}
		})
	}
}

func TestIntegrateSampleGrid(t *testing.T) {
	integ := NewRosenbrock()
	tr, _, err := integ.Integrate(context.Background(), decay{k: 0.5}, dynamo.State{2}, 1, 9, 5, dynamo.DefaultTolerances())
	if err != nil {
		t.Fatalf("Integrate: %v", err)
	}

	if tr.Len() != 5 {
		t.Fatalf("got %d samples, want 5", tr.Len())
	}
	want := []float64{1, 3, 5, 7, 9}
	for i, age := range tr.Ages {
		if math.Abs(age-want[i]) > 1e-12 {
			t.Errorf("Ages[%d] = %g, want %g", i, age, want[i])
		}
	}
	if tr.Ages[0] != 1 || tr.Ages[4] != 9 {
		t.Errorf("endpoints not exact: %g, %g", tr.Ages[0], tr.Ages[4])
	}
}

func TestRosenbrockStiff(t *testing.T) {
	integ := NewRosenbrock()
	tol := dynamo.Tolerances{Abs: 1e-10, Rel: 1e-8}
	y0 := dynamo.State{2, 1}

	tr, st, err := integ.Integrate(context.Background(), stiffRelax{}, y0, 0, 10, 21, tol)
	if err != nil {
		t.Fatalf("Integrate: %v", err)
	}

	// Exact solution: y1 = exp(-t), y0 = exp(-1000t) + exp(-t).
	for i, age := range tr.Ages {
		slow := math.Exp(-age)
		fast := math.Exp(-1000*age) + slow
		if math.Abs(tr.States[i][1]-slow) > 1e-6 {
			t.Errorf("slow mode at t=%g: %g, want %g", age, tr.States[i][1], slow)
		}
		if math.Abs(tr.States[i][0]-fast) > 1e-5 {
			t.Errorf("fast mode at t=%g: %g, want %g", age, tr.States[i][0], fast)
		}
	}

	// A stiff solver should cross the fast transient in far fewer steps
	// than an explicit method would need (order 1000*10 evaluations).
	if st.Steps+st.Rejected > 2000 {
		t.Errorf("rosenbrock spent %d steps on a stiff problem", st.Steps+st.Rejected)
	}
}

func TestIntegrateInvalidArgs(t *testing.T) {
	integ := NewRosenbrock()
	sys := decay{k: 1}
	y0 := dynamo.State{1}
	tol := dynamo.DefaultTolerances()
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
	}{
		{"one sample", func() error {
			_, _, err := integ.Integrate(ctx, sys, y0, 0, 1, 1, tol)
			return err
		}},
		{"empty interval", func() error {
			_, _, err := integ.Integrate(ctx, sys, y0, 3, 3, 10, tol)
			return err
		}},
		{"reversed interval", func() error {
			_, _, err := integ.Integrate(ctx, sys, y0, 5, 1, 10, tol)
			return err
		}},
		{"zero tolerance", func() error {
			_, _, err := integ.Integrate(ctx, sys, y0, 0, 1, 10, dynamo.Tolerances{Abs: 0, Rel: 1e-6})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, dynamo.ErrInvalidParameter) {
				t.Errorf("error = %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestIntegrateCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewRosenbrock().Integrate(ctx, decay{k: 1}, dynamo.State{1}, 0, 1, 10, dynamo.DefaultTolerances())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}

	var ie *dynamo.IntegrationError
	if !errors.As(err, &ie) {
		t.Errorf("error %T does not carry integration context", err)
	}
}

func TestIntegrateStepBudget(t *testing.T) {
	d := &driver{s: &rosenbrock{}, maxSteps: 3}
	_, _, err := d.Integrate(context.Background(), decay{k: 1}, dynamo.State{1}, 0, 1000, 2, dynamo.DefaultTolerances())
	if !errors.Is(err, dynamo.ErrTooManySteps) {
		t.Errorf("error = %v, want ErrTooManySteps", err)
	}
}

func TestIntegratePropagatesDeriveError(t *testing.T) {
	sys := failAfter{limit: 0.5}
	_, _, err := NewDormandPrince().Integrate(context.Background(), sys, dynamo.State{1}, 0, 1, 5, dynamo.DefaultTolerances())
	if !errors.Is(err, dynamo.ErrDivisionByZero) {
		t.Errorf("error = %v, want wrapped ErrDivisionByZero", err)
	}
}

// failAfter integrates like decay until t passes limit, then reports a
// kinetics domain failure.
type failAfter struct {
	limit float64
}

func (f failAfter) Dim() int { return 1 }

func (f failAfter) Derive(t float64, y dynamo.State) (dynamo.State, error) {
	if t > f.limit {
		return nil, dynamo.ErrDivisionByZero
	}
	return dynamo.State{-y[0]}, nil
}

func TestNewUnknownName(t *testing.T) {
	if _, err := New("euler"); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("New(euler) error = %v, want ErrInvalidParameter", err)
	}
	for _, alias := range []string{"", "stiff", "rk45"} {
		if _, err := New(alias); err != nil {
			t.Errorf("New(%q) error = %v", alias, err)
		}
	}
}
