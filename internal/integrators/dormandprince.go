package integrators

import (
	"math"

	"github.com/san-kum/neurosim/internal/dynamo"
)

// Dormand-Prince coefficients (RK45).
var (
	dpA2 = 1.0 / 5.0
	dpA3 = 3.0 / 10.0
	dpA4 = 4.0 / 5.0
	dpA5 = 8.0 / 9.0

	dpB21 = 1.0 / 5.0
	dpB31 = 3.0 / 40.0
	dpB32 = 9.0 / 40.0
	dpB41 = 44.0 / 45.0
	dpB42 = -56.0 / 15.0
	dpB43 = 32.0 / 9.0
	dpB51 = 19372.0 / 6561.0
	dpB52 = -25360.0 / 2187.0
	dpB53 = 64448.0 / 6561.0
	dpB54 = -212.0 / 729.0
	dpB61 = 9017.0 / 3168.0
	dpB62 = -355.0 / 33.0
	dpB63 = 46732.0 / 5247.0
	dpB64 = 49.0 / 176.0
	dpB65 = -5103.0 / 18656.0

	dpC1 = 35.0 / 384.0
	dpC3 = 500.0 / 1113.0
	dpC4 = 125.0 / 192.0
	dpC5 = -2187.0 / 6784.0
	dpC6 = 11.0 / 84.0

	dpD1 = dpC1 - 5179.0/57600.0
	dpD3 = dpC3 - 7571.0/16695.0
	dpD4 = dpC4 - 393.0/640.0
	dpD5 = dpC5 + 92097.0/339200.0
	dpD6 = dpC6 - 187.0/2100.0
	dpD7 = -1.0 / 40.0
)

// dormandPrince is the explicit 5(4) pair. It is not suited to the
// stiff disease kinetics at production tolerances but is kept for
// non-stiff experiments and as a cross-check on short intervals.
type dormandPrince struct{}

// NewDormandPrince returns the explicit adaptive integrator.
func NewDormandPrince() dynamo.Integrator {
	return &driver{s: &dormandPrince{}, maxSteps: defaultMaxSteps}
}

func (d *dormandPrince) name() string      { return "dopri" }
func (d *dormandPrince) errOrder() float64 { return 4 }

func (d *dormandPrince) attempt(sys dynamo.System, t float64, y dynamo.State, h float64, tol dynamo.Tolerances, st *dynamo.Stats) (dynamo.State, float64, error) {
	n := len(y)
	stage := func(tt float64, yy dynamo.State) (dynamo.State, error) {
		st.Evaluations++
		return sys.Derive(tt, yy)
	}

	k1, err := stage(t, y)
	if err != nil {
		return nil, 0, err
	}

	ys := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		ys[i] = y[i] + h*dpB21*k1[i]
	}
	k2, err := stage(t+dpA2*h, ys)
	if err != nil {
		return nil, 0, err
	}

	for i := 0; i < n; i++ {
		ys[i] = y[i] + h*(dpB31*k1[i]+dpB32*k2[i])
	}
	k3, err := stage(t+dpA3*h, ys)
	if err != nil {
		return nil, 0, err
	}

	for i := 0; i < n; i++ {
		ys[i] = y[i] + h*(dpB41*k1[i]+dpB42*k2[i]+dpB43*k3[i])
	}
	k4, err := stage(t+dpA4*h, ys)
	if err != nil {
		return nil, 0, err
	}

	for i := 0; i < n; i++ {
		ys[i] = y[i] + h*(dpB51*k1[i]+dpB52*k2[i]+dpB53*k3[i]+dpB54*k4[i])
	}
	k5, err := stage(t+dpA5*h, ys)
	if err != nil {
		return nil, 0, err
	}

	for i := 0; i < n; i++ {
		ys[i] = y[i] + h*(dpB61*k1[i]+dpB62*k2[i]+dpB63*k3[i]+dpB64*k4[i]+dpB65*k5[i])
	}
	k6, err := stage(t+h, ys)
	if err != nil {
		return nil, 0, err
	}

	yOut := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		yOut[i] = y[i] + h*(dpC1*k1[i]+dpC3*k3[i]+dpC4*k4[i]+dpC5*k5[i]+dpC6*k6[i])
	}

	k7, err := stage(t+h, yOut)
	if err != nil {
		return nil, 0, err
	}

	sumSq := 0.0
	for i := 0; i < n; i++ {
		errEst := h * (dpD1*k1[i] + dpD3*k3[i] + dpD4*k4[i] + dpD5*k5[i] + dpD6*k6[i] + dpD7*k7[i])
		w := errWeight(y[i], yOut[i], tol)
		sumSq += (errEst / w) * (errEst / w)
	}
	errRatio := math.Sqrt(sumSq / float64(n))

	return yOut, errRatio, nil
}
