// Package sensitivity implements one-at-a-time (OAT) parameter
// sensitivity analysis: each scalar parameter is multiplied and divided
// by a perturbation factor, the full pipeline is rerun for each
// direction, and the parameter is scored by the mean relative change of
// a biomarker's value at the final sampled age.
//
// Parameter evaluations are independent, each owning a freshly derived
// parameter set, and run on a worker pool. A perturbed run that fails
// to integrate (or times out) skips its parameter and is recorded; a
// failed baseline aborts the scenario's analysis.
//
// [Aggregate] merges per-scenario reports into the cross-scenario
// display table: union of parameters, zeros for missing rows, retained
// only above 20% of the global maximum score.
package sensitivity
