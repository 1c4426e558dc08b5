package model

import (
	"fmt"
	"math"

	"github.com/san-kum/neurosim/internal/dynamo"
)

// Kinetics is the coupled right-hand side of the disease model. It
// implements dynamo.System over the 19-entry state vector, reading a
// fixed Parameters value and mutating nothing.
type Kinetics struct {
	p *Parameters
}

func NewKinetics(p *Parameters) *Kinetics { return &Kinetics{p: p} }

func (k *Kinetics) Dim() int { return dynamo.Dim }

// hill is the saturating Michaelis-Menten activation x/(x+K).
func hill(x, k float64) float64 { return x / (x + k) }

// sigmoidGate is the sigmoidal death-rate gate 1/(1+exp(-n(x-K)/K)).
func sigmoidGate(x, k, n float64) float64 {
	return 1 / (1 + math.Exp(-n*(x-k)/k))
}

// polarization splits an activation flux between a pro- and an anti-
// inflammatory population from the TNF-alpha and IL-10 environment.
// The same split governs microglia activation and macrophage
// recruitment.
func polarization(beta, ta, kTa, i10, kI10 float64) (pro, anti float64) {
	eTa := hill(ta, kTa)
	eI10 := hill(i10, kI10)
	den := beta*eTa + eI10
	if den == 0 {
		// No signal in either direction: no flux is routed.
		return 0, 0
	}
	return beta * eTa / den, eI10 / den
}

// Derive evaluates the derivative vector at age t (days). The neuron
// derivative is computed first: equations 0, 4, 5 and 6 lose mass in
// proportion to neuron death, through the dilution term
// y[i]/y[8]*|dN/dt|, and must see the already-computed value.
func (k *Kinetics) Derive(t float64, y dynamo.State) (dynamo.State, error) {
	p := k.p
	if len(y) != dynamo.Dim {
		return nil, fmt.Errorf("%w: state has %d entries, want %d", dynamo.ErrInvalidState, len(y), dynamo.Dim)
	}

	neurons := y[dynamo.VarNeurons]
	if neurons <= 0 {
		return nil, fmt.Errorf("%w: neuron density %g at t=%.2f", dynamo.ErrDivisionByZero, neurons, t)
	}
	ins := p.Insulin(t)
	if ins <= 0 {
		return nil, fmt.Errorf("%w: insulin concentration %g at t=%.2f", dynamo.ErrDivisionByZero, ins, t)
	}

	ap := float64(p.apoe4)
	dydt := make(dynamo.State, dynamo.Dim)

	// Living neurons (N): death from intracellular tangles and from
	// TNF-alpha, the latter damped by IL-10.
	dN := -p.dFiN*sigmoidGate(y[dynamo.VarNFTi], p.kFi, p.n)*neurons -
		p.dTaN*hill(y[dynamo.VarTNFa], p.kTa)*(1/(1+y[dynamo.VarIL10]/p.kI10))*neurons
	dydt[dynamo.VarNeurons] = dN

	// Loss of an intracellular species proportional to neuron death.
	dilution := func(yi float64) float64 {
		return yi / neurons * math.Abs(dN)
	}

	// Amyloid-beta monomer inside the neurons (AB^i).
	dydt[dynamo.VarABi] = p.lambdaABi*(1+ap*p.deltaAPi)*(neurons/p.n0) -
		p.dABi*y[dynamo.VarABi] -
		dilution(y[dynamo.VarABi])

	// Amyloid-beta monomer outside the neurons (AB_m^o): spilled by
	// dying neurons, produced by neurons and astrocytes, lost to
	// oligomerization and age-dependent degradation.
	dydt[dynamo.VarABmo] = dilution(y[dynamo.VarABi]) +
		p.lambdaABmo*(1+ap*p.deltaAPm)*(neurons/p.n0) +
		p.lambdaAABmo*(y[dynamo.VarAstro]/p.a0) -
		p.kappaABmoABoo*(1+ap*p.deltaAPmo)*y[dynamo.VarABmo]*y[dynamo.VarABmo] -
		p.DegradationRateABmo(t)*y[dynamo.VarABmo]

	// Amyloid-beta oligomers outside (AB_o^o).
	dydt[dynamo.VarABoo] = p.kappaABmoABoo*(1+ap*p.deltaAPmo)*y[dynamo.VarABmo]*y[dynamo.VarABmo] -
		p.kappaABooABpo*y[dynamo.VarABoo]*y[dynamo.VarABoo] -
		p.dABoo*y[dynamo.VarABoo]

	// Amyloid-beta plaque outside (AB_p^o): cleared by the
	// anti-inflammatory microglia and macrophages, saturating in the
	// plaque concentration.
	dydt[dynamo.VarABpo] = p.kappaABooABpo*y[dynamo.VarABoo]*y[dynamo.VarABoo] -
		(p.dMantiABpo*y[dynamo.VarMicroAnti]+p.dMhatantiABpo*y[dynamo.VarMacroAnti])*
			(1+ap*p.deltaAPdp)*hill(y[dynamo.VarABpo], p.kABpo)

	// GSK-3 (G): production driven by insulin deficit relative to the
	// age-30 baseline.
	dydt[dynamo.VarGSK3] = p.lambdaInsG*(p.ins0/ins)*(neurons/p.n0) -
		p.dG*y[dynamo.VarGSK3] -
		dilution(y[dynamo.VarGSK3])

	// tau proteins.
	dydt[dynamo.VarTau] = p.lambdaTau*(neurons/p.n0) +
		p.lambdaGTau*(y[dynamo.VarGSK3]/p.g0) -
		p.kappaTauFi*y[dynamo.VarTau]*y[dynamo.VarTau]*(neurons/p.n0) -
		dilution(y[dynamo.VarTau]) -
		p.dTau*y[dynamo.VarTau]

	// NFT inside the neurons (F_i).
	dydt[dynamo.VarNFTi] = p.kappaTauFi*y[dynamo.VarTau]*y[dynamo.VarTau]*(neurons/p.n0) -
		dilution(y[dynamo.VarNFTi]) -
		p.dFi*y[dynamo.VarNFTi]

	// NFT outside the neurons (F_o): released by neuron death, cleared
	// by anti-inflammatory microglia.
	dydt[dynamo.VarNFTo] = dilution(y[dynamo.VarNFTi]) -
		p.kappaMFo*hill(y[dynamo.VarMicroAnti], p.kManti)*y[dynamo.VarNFTo] -
		p.dFo*y[dynamo.VarNFTo]

	// Astrocytes (A), activated by plaque and TNF-alpha.
	dydt[dynamo.VarAstro] = (p.kappaABpoA*y[dynamo.VarABpo]+p.kappaTaA*y[dynamo.VarTNFa])*(p.aMax-y[dynamo.VarAstro]) -
		p.dA*y[dynamo.VarAstro]

	// Microglia activation flux, out of the resting pool.
	mActiv := p.kappaFoM*hill(y[dynamo.VarNFTo], p.kFo)*y[dynamo.VarMicroNA] +
		p.kappaABooM*hill(y[dynamo.VarABoo], p.kABooM)*y[dynamo.VarMicroNA]

	dydt[dynamo.VarMicroNA] = p.dMpro*y[dynamo.VarMicroPro] + p.dManti*y[dynamo.VarMicroAnti] - mActiv

	proFrac, antiFrac := polarization(p.beta, y[dynamo.VarTNFa], p.kTaAct, y[dynamo.VarIL10], p.kI10Act)
	tbConv := p.kappaTbMpro * hill(y[dynamo.VarTGFb], p.kTbM) * y[dynamo.VarMicroPro]
	taConv := p.kappaTaManti * hill(y[dynamo.VarTNFa], p.kTaM) * y[dynamo.VarMicroAnti]

	// Proinflammatory microglia (M_pro).
	dydt[dynamo.VarMicroPro] = proFrac*mActiv - tbConv + taConv - p.dMpro*y[dynamo.VarMicroPro]

	// Anti-inflammatory microglia (M_anti).
	dydt[dynamo.VarMicroAnti] = antiFrac*mActiv + tbConv - taConv - p.dManti*y[dynamo.VarMicroAnti]

	// Macrophage recruitment under MCP-1, split by the same
	// polarization environment, capped at mHatMax.
	recruit := p.kappaPMhat * hill(y[dynamo.VarMCP1], p.kP) * (p.mHatMax - (y[dynamo.VarMacroPro] + y[dynamo.VarMacroAnti]))
	tbConvHat := p.kappaTbMhatpro * hill(y[dynamo.VarTGFb], p.kTbMhat) * y[dynamo.VarMacroPro]
	taConvHat := p.kappaTaMhatanti * hill(y[dynamo.VarTNFa], p.kTaMhat) * y[dynamo.VarMacroAnti]

	// Proinflammatory macrophages (hat{M}_pro).
	dydt[dynamo.VarMacroPro] = recruit*proFrac - tbConvHat + taConvHat - p.dMhatpro*y[dynamo.VarMacroPro]

	// Anti-inflammatory macrophages (hat{M}_anti).
	dydt[dynamo.VarMacroAnti] = recruit*antiFrac + tbConvHat - taConvHat - p.dMhatanti*y[dynamo.VarMacroAnti]

	// TGF-beta.
	dydt[dynamo.VarTGFb] = p.kappaMantiTb*y[dynamo.VarMicroAnti] + p.kappaMhatantiTb*y[dynamo.VarMacroAnti] - p.dTb*y[dynamo.VarTGFb]

	// IL-10.
	dydt[dynamo.VarIL10] = p.kappaMantiI10*y[dynamo.VarMicroAnti] + p.kappaMhatantiI10*y[dynamo.VarMacroAnti] - p.dI10*y[dynamo.VarIL10]

	// TNF-alpha.
	dydt[dynamo.VarTNFa] = p.kappaMproTa*y[dynamo.VarMicroPro] + p.kappaMhatproTa*y[dynamo.VarMacroPro] - p.dTa*y[dynamo.VarTNFa]

	// MCP-1.
	dydt[dynamo.VarMCP1] = p.kappaMproP*y[dynamo.VarMicroPro] + p.kappaMhatproP*y[dynamo.VarMacroPro] + p.kappaAP*y[dynamo.VarAstro] - p.dP*y[dynamo.VarMCP1]

	return dydt, nil
}
