// Package integrators provides adaptive ODE integrators behind the
// [dynamo.Integrator] contract:
//
//   - [NewRosenbrock]: 4th-order linearly implicit Kaps-Rentrop, the
//     default for the stiff disease kinetics
//   - [NewDormandPrince]: explicit 5(4) Runge-Kutta pair
//
// Both share one driver that lands exactly on every requested sample
// age and applies the same safety-factor step-size control. Absolute
// and relative tolerances are always caller-supplied.
package integrators
