package model

import (
	"fmt"
	"math"

	"github.com/san-kum/neurosim/internal/dynamo"
)

// positiveRoot solves A*x^2 + B*x + C = 0 and returns the larger root.
// For the balance equations here A > 0 and C < 0, so the discriminant
// is positive and exactly one root is positive; the negative root is a
// non-physical concentration and is always discarded.
func positiveRoot(a, b, c float64) (float64, error) {
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, fmt.Errorf("%w: negative discriminant (A=%g B=%g C=%g)", dynamo.ErrEquilibriumDomain, a, b, c)
	}
	return (-b + math.Sqrt(disc)) / (2 * a), nil
}

// InitialConditions builds the initial state vector for an integration
// starting at startAgeDays. Most entries are closed-form equilibria of
// their own equation; the extracellular plaque is solved last because
// its equilibrium depends on the already-fixed microglia and macrophage
// values.
func InitialConditions(p *Parameters, startAgeDays float64) (dynamo.State, error) {
	y0 := make(dynamo.State, dynamo.Dim)
	ap := float64(p.apoe4)

	// Intracellular monomer: production/degradation balance.
	y0[dynamo.VarABi] = p.lambdaABi * (1 + ap*p.deltaAPi) / p.dABi

	// Extracellular monomer: quadratic balance, conversion to oligomer
	// against age-dependent degradation.
	var err error
	y0[dynamo.VarABmo], err = positiveRoot(
		p.kappaABmoABoo*(1+ap*p.deltaAPmo),
		p.DegradationRateABmo(startAgeDays),
		-p.lambdaABmo*(1+ap*p.deltaAPm),
	)
	if err != nil {
		return nil, err
	}

	// Extracellular oligomer: quadratic balance fed by the monomer
	// equilibrium.
	y0[dynamo.VarABoo], err = positiveRoot(
		p.kappaABooABpo,
		p.dABoo,
		-p.kappaABmoABoo*(1+ap*p.deltaAPmo)*y0[dynamo.VarABmo]*y0[dynamo.VarABmo],
	)
	if err != nil {
		return nil, err
	}

	// Plaque (VarABpo) is an equilibrium too, but it needs the immune
	// populations below; it is solved last.

	y0[dynamo.VarGSK3] = p.g0

	// tau: quadratic balance of phosphorylation against NFT conversion
	// and degradation.
	y0[dynamo.VarTau], err = positiveRoot(
		p.kappaTauFi,
		p.dTau,
		-(p.lambdaTau + p.lambdaGTau),
	)
	if err != nil {
		return nil, err
	}

	y0[dynamo.VarNFTi] = p.kappaTauFi * y0[dynamo.VarTau] * y0[dynamo.VarTau] / p.dFi
	y0[dynamo.VarNFTo] = 5e-17
	y0[dynamo.VarNeurons] = p.n0
	y0[dynamo.VarAstro] = 0

	y0[dynamo.VarMicroPro] = 1e-12
	y0[dynamo.VarMicroAnti] = 1e-4

	// Resting microglia: sex-specific total mass minus the activated
	// fractions fixed above.
	m0 := 3.811e-2
	if p.sex == Male {
		m0 = 3.193e-2
	}
	y0[dynamo.VarMicroNA] = m0 - (y0[dynamo.VarMicroPro] + y0[dynamo.VarMicroAnti])

	y0[dynamo.VarMacroPro] = 0
	y0[dynamo.VarMacroAnti] = 0

	// Plaque equilibrium: conversion flux from the oligomer equilibrium
	// against the degradation capacity of the anti-inflammatory
	// populations. Requires D > Psi, otherwise the equilibrium
	// concentration would be negative.
	psi := p.kappaABooABpo * y0[dynamo.VarABoo] * y0[dynamo.VarABoo]
	d := (p.dMantiABpo*y0[dynamo.VarMicroAnti] + p.dMhatantiABpo*y0[dynamo.VarMacroAnti]) * (1 + ap*p.deltaAPdp)
	if d <= psi {
		return nil, fmt.Errorf("%w: plaque degradation capacity %g does not exceed conversion flux %g", dynamo.ErrEquilibriumDomain, d, psi)
	}
	y0[dynamo.VarABpo] = psi * p.kABpo / (d - psi)

	y0[dynamo.VarTGFb] = (p.kappaMantiTb*y0[dynamo.VarMicroAnti] + p.kappaMhatantiTb*y0[dynamo.VarMacroAnti]) / p.dTb
	y0[dynamo.VarIL10] = (p.kappaMantiI10*y0[dynamo.VarMicroAnti] + p.kappaMhatantiI10*y0[dynamo.VarMacroAnti]) / p.dI10
	y0[dynamo.VarTNFa] = (p.kappaMproTa*y0[dynamo.VarMicroPro] + p.kappaMhatproTa*y0[dynamo.VarMacroPro]) / p.dTa
	y0[dynamo.VarMCP1] = (p.kappaMproP*y0[dynamo.VarMicroPro] + p.kappaMhatproP*y0[dynamo.VarMacroPro] + p.kappaAP*y0[dynamo.VarAstro]) / p.dP

	return y0, nil
}
