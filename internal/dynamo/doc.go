// Package dynamo provides core simulation primitives for the disease model.
//
// The package defines the fundamental contracts shared by every other
// package:
//
//   - [State]: the 19-entry concentration vector (g/mL)
//   - [System]: right-hand side of the ODE system y' = f(t, y)
//   - [Integrator]: advances a System over an age interval and samples it
//   - [Trajectory]: ordered (age, state) samples from one integration
//
// Time is measured in days of age throughout; a scenario spanning ages
// 30 to 80 integrates over [365*30, 365*80].
//
// # Thread safety
//
// States and Trajectories are plain values with no internal
// synchronization. Concurrent sweep evaluations must each own their
// state vector and parameter set; nothing in this package is shared.
package dynamo
