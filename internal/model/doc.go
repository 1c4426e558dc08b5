// Package model implements the disease model itself: the derivation of
// every rate constant from sex, APOE4 status and the microglia scaling
// factor xi ([DeriveParameters]), the equilibrium initial conditions
// ([InitialConditions]) and the 19-equation kinetic right-hand side
// ([Kinetics]).
//
// Concentrations are g/mL and time is age in days. Parameter values are
// immutable; a sensitivity perturbation derives an independent copy via
// [Parameters.WithValue].
package model
