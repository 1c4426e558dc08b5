package model

import (
	"fmt"
	"math"

	"github.com/san-kum/neurosim/internal/dynamo"
)

// Sex selects the sex-specific branch of the constant derivation.
type Sex int

const (
	Female Sex = 0
	Male   Sex = 1
)

// Physical constants used by the derivations. 1 cm^3 = 1 mL.
const (
	avogadro = 6.02214076e23 // /mol
	mABm     = 4514.0        // molar mass of an AB42 monomer (g/mol)
	mMhat    = 4.990e-9      // mass of a macrophage or microglia (g)
)

// InsulinConcentration is the brain insulin concentration (g/mL) as a
// function of age in days, linear in age with a sex-specific slope and
// intercept. Derived from peripheral insulin data (molar mass 5808
// g/mol), assuming brain insulin is ten times smaller.
func InsulinConcentration(tDays float64, sex Sex) float64 {
	if sex == Female {
		return 0.1 * (-4.151e-15*tDays + 3.460e-10)
	}
	return 0.1 * (-4.257e-15*tDays + 3.763e-10)
}

// Parameters holds every derived rate and threshold constant of the
// model. A value is immutable after construction; perturbations go
// through WithValue, which returns an independent copy, so concurrent
// sweep evaluations never observe each other's overrides.
type Parameters struct {
	sex   Sex
	apoe4 int
	xi    float64

	rhoBrain float64 // brain density (g/mL)
	n0       float64 // reference neuron density, sex-specific (g/mL)
	a0       float64 // reference astrocyte density, sex-specific (g/mL)

	// AB^i: intracellular amyloid-beta monomer.
	lambdaABi float64 // creation from APP inside neurons (g/mL/day)
	deltaAPi  float64 // APOE4 impact on lambdaABi (unitless)
	dABi      float64 // intracellular monomer degradation (/day)

	// AB_m^o: extracellular amyloid-beta monomer.
	lambdaABmo    float64 // creation outside, without APOE4 (g/mL/day)
	deltaAPm      float64 // APOE4 impact on lambdaABmo (unitless)
	lambdaAABmo   float64 // creation outside by astrocytes (g/mL/day)
	kappaABmoABoo float64 // monomer -> oligomer conversion (mL/g/day)
	deltaAPmo     float64 // APOE4 impact on kappaABmoABoo (unitless)

	// AB_o^o: extracellular amyloid-beta oligomer.
	kappaABooABpo float64 // oligomer -> plaque conversion (mL/g/day)
	dABoo         float64 // oligomer degradation (/day)

	// AB_p^o: extracellular amyloid-beta plaque.
	dMhatantiABpo float64 // plaque degradation by anti-infl. macrophages (/day)
	dMantiABpo    float64 // plaque degradation by anti-infl. microglia (/day)
	deltaAPdp     float64 // APOE4 impact on plaque degradation (unitless, negative)
	kABpo         float64 // half-saturation of plaque degradation (g/mL)

	// G: GSK-3.
	ins0       float64 // normal insulin concentration at age 30, sex-specific (g/mL)
	dG         float64 // GSK-3 degradation (/day)
	g0         float64 // normal GSK-3 concentration, sex-specific (g/mL)
	lambdaInsG float64 // insulin-induced GSK-3 creation (g/mL/day)

	// tau.
	lambdaTau  float64 // baseline tau phosphorylation (g/mL/day)
	lambdaGTau float64 // GSK-3 driven tau phosphorylation (g/mL/day)
	kappaTauFi float64 // tau -> NFT conversion (mL/g/day)
	dTau       float64 // tau degradation / dephosphorylation (/day)

	// F_i: intracellular NFT.
	dFi float64 // intracellular NFT degradation (/day)

	// F_o: extracellular NFT.
	kappaMFo float64 // max NFT clearance by anti-infl. microglia (/day)
	kManti   float64 // half-saturation of that clearance, sex-specific (g/mL)
	dFo      float64 // extracellular NFT degradation (/day)

	// N: living neurons.
	dFiN float64 // max neuron death rate from F_i (/day)
	kFi  float64 // F_i level at half-maximal death rate (g/mL)
	n    float64 // sigmoid sharpness (unitless)
	dTaN float64 // max neuron death rate from TNF-alpha (/day)
	kTa  float64 // TNF-alpha level at half-maximal death rate (g/mL)
	kI10 float64 // IL-10 level halving TNF-alpha driven death (g/mL)

	// A: activated astrocytes.
	aMax       float64 // max astrocyte density (g/mL)
	kappaTaA   float64 // activation by TNF-alpha (mL/g/day)
	kappaABpoA float64 // activation by plaque (mL/g/day)
	dA         float64 // astrocyte death (/day)

	// M_NA: resting microglia.
	kappaFoM   float64 // activation by extracellular NFT (/day), scaled by xi
	kFo        float64 // half-saturation of NFT activation (g/mL)
	kappaABooM float64 // activation by oligomer (/day), scaled by xi
	kABooM     float64 // half-saturation of oligomer activation (g/mL)
	dMpro      float64 // pro-inflammatory microglia degradation (/day)
	dManti     float64 // anti-inflammatory microglia degradation (/day)

	// M_pro / M_anti polarization.
	beta         float64 // pro/anti environmental ratio (unitless)
	kTaAct       float64 // TNF-alpha half-saturation for polarization (g/mL)
	kI10Act      float64 // IL-10 half-saturation for polarization (g/mL)
	kappaTbMpro  float64 // max Mpro -> Manti conversion under TGF-beta (/day)
	kTbM         float64 // TGF-beta half-saturation of that conversion (g/mL)
	kappaTaManti float64 // max Manti -> Mpro conversion under TNF-alpha (/day)
	kTaM         float64 // TNF-alpha half-saturation of that conversion (g/mL)

	// hat{M}_pro / hat{M}_anti: macrophages.
	kappaPMhat      float64 // max macrophage import under MCP-1 (/day)
	kP              float64 // MCP-1 half-saturation of import (g/mL)
	mHatMax         float64 // max macrophage concentration (g/mL)
	kappaTbMhatpro  float64 // max Mhat_pro -> Mhat_anti conversion (/day)
	kTbMhat         float64 // TGF-beta half-saturation of that conversion (g/mL)
	kappaTaMhatanti float64 // max Mhat_anti -> Mhat_pro conversion (/day)
	kTaMhat         float64 // TNF-alpha half-saturation of that conversion (g/mL)
	dMhatpro        float64 // pro-inflammatory macrophage death (/day)
	dMhatanti       float64 // anti-inflammatory macrophage death (/day)

	// T_beta: TGF-beta.
	kappaMhatantiTb float64 // production by anti-infl. macrophages (/day)
	kappaMantiTb    float64 // production by anti-infl. microglia (/day)
	dTb             float64 // TGF-beta degradation (/day)

	// I_10: IL-10.
	kappaMhatantiI10 float64 // production by anti-infl. macrophages (/day)
	kappaMantiI10    float64 // production by anti-infl. microglia (/day)
	dI10             float64 // IL-10 degradation (/day)

	// T_alpha: TNF-alpha.
	kappaMhatproTa float64 // production by pro-infl. macrophages (/day)
	kappaMproTa    float64 // production by pro-infl. microglia (/day)
	dTa            float64 // TNF-alpha degradation (/day)

	// P: MCP-1.
	kappaMhatproP float64 // production by pro-infl. macrophages (/day)
	kappaMproP    float64 // production by pro-infl. microglia (/day)
	kappaAP       float64 // production by astrocytes (/day)
	dP            float64 // MCP-1 degradation (/day)
}

// DeriveParameters computes every constant from the two categorical
// inputs and the microglia activation scaling factor xi in (0,1].
// Construction is the only place defaults are computed; sex and APOE4
// dispatch happens here, once.
func DeriveParameters(sex Sex, apoe4 int, xi float64) (*Parameters, error) {
	if sex != Female && sex != Male {
		return nil, fmt.Errorf("%w: sex must be 0 (female) or 1 (male), got %d", dynamo.ErrInvalidParameter, sex)
	}
	if apoe4 != 0 && apoe4 != 1 {
		return nil, fmt.Errorf("%w: APOE4 status must be 0 or 1, got %d", dynamo.ErrInvalidParameter, apoe4)
	}
	if !(xi > 0 && xi <= 1) {
		return nil, fmt.Errorf("%w: xi must be in (0,1], got %g", dynamo.ErrInvalidParameter, xi)
	}

	ln2 := math.Ln2
	p := &Parameters{sex: sex, apoe4: apoe4, xi: xi}

	p.rhoBrain = 1.03
	if sex == Female {
		p.n0 = 0.45
		p.a0 = 0.10
		p.g0 = 1104e-12 * 47000 * p.rhoBrain
		p.kManti = (1.0 / 4.0) * 3.811e-2
	} else {
		p.n0 = 0.42
		p.a0 = 0.12
		p.g0 = 310e-12 * 47000 * p.rhoBrain
		p.kManti = (1.0 / 4.0) * 3.193e-2
	}

	// Intracellular amyloid-beta monomer.
	p.lambdaABi = (3.63e-12 * 1e-3 * mABm * 86400) / 2
	p.deltaAPi = (8373.0-2178.0)/(5631.0-783.0) - 1
	p.dABi = ln2 / (1.75 / 24.0)

	// Extracellular amyloid-beta monomer.
	p.lambdaABmo = p.lambdaABi
	p.deltaAPm = p.deltaAPi
	p.lambdaAABmo = (1.0 / 13.0) * p.lambdaABmo
	p.kappaABmoABoo = 38 * 1000 * (1 / (2 * mABm)) * 86400
	p.deltaAPmo = 2.7 - 1

	// Extracellular amyloid-beta oligomer.
	p.kappaABooABpo = (3.0 / 7.0) * 1e6 * 1000 / (2 * mABm)
	p.dABoo = 0.3e-3 * 86400

	// Extracellular amyloid-beta plaque.
	p.dMhatantiABpo = ln2 / 3
	p.dMantiABpo = ln2 / 0.85
	p.deltaAPdp = (5.0 / 20.0) - 1
	p.kABpo = (1.11 + 0.53) / 527.4 / 1000

	// GSK-3. Normal insulin is the brain concentration at age 30.
	p.ins0 = InsulinConcentration(365*30, sex)
	p.dG = ln2 / (41.0 / 24.0)
	p.lambdaInsG = p.dG * p.g0

	// tau.
	p.lambdaTau = 26.3e-12
	p.lambdaGTau = ((20.0 / 21.0) - (20.0 / 57.0)) * 1e-6 / 0.5 / 1000 / 1000 * 72500
	p.kappaTauFi = (100.0 / 3.0) * 1e-6 / 19344 * 86400 * 1000
	p.dTau = ln2 / 5.16

	// Intracellular NFT.
	p.dFi = 1e-2 * p.dTau

	// Extracellular NFT.
	p.kappaMFo = 0.4
	p.dFo = 1.0 / 10.0 * p.dTau

	// Living neurons.
	p.dFiN = 1 / (2.51 * 365)
	p.kFi = 1.25e-10
	p.n = 15
	p.dTaN = 7.26e-3 / 365 * 10
	p.kTa = 4.48e-12
	p.kI10 = 2.12e-12

	// Activated astrocytes.
	p.aMax = p.a0
	p.kappaTaA = 0.92 / 100e-9
	p.kappaABpoA = (p.kappaTaA * 2.24e-12) / (2 * p.kABpo)
	p.dA = 0.4

	// Resting microglia. The total activation rate is split 2:1
	// between the NFT and oligomer pathways and scaled by xi.
	totalMaxActivRateM := 0.20 * xi
	p.kappaFoM = totalMaxActivRateM * 2 / 3
	p.kFo = 11 * ((1000 * 72500) / avogadro) * 1000
	p.kappaABooM = totalMaxActivRateM * 1 / 3
	p.kABooM = 0.060 / 527.4 / 1000 * 1.5e2
	p.dMpro = 7.67e-4
	p.dManti = 7.67e-4

	// Microglia polarization.
	p.beta = 1
	p.kTaAct = 2.24e-12
	p.kI10Act = 2.12e-12
	p.kappaTbMpro = 4.8
	p.kTbM = 5.9e-11
	p.kappaTaManti = 4.8
	p.kTaM = 2.24e-12 * 2e2

	// Macrophages.
	p.kappaPMhat = 1.0 / 3.0 * 1e-2
	p.kP = 6.23e-10 * 1e2
	p.mHatMax = (830 * mMhat) / 2e-4
	p.kappaTbMhatpro = 1 / (10.0 / 24.0)
	p.kTbMhat = p.kTbM
	p.kappaTaMhatanti = 1 / (10.0 / 24.0)
	p.kTaMhat = p.kTaM
	p.dMhatpro = 7.67e-4
	p.dMhatanti = 7.67e-4

	// TGF-beta.
	p.kappaMhatantiTb = 10 * (47e-12 / 18 * 24) / (2e6 * mMhat)
	p.kappaMantiTb = p.kappaMhatantiTb
	p.dTb = ln2 / (3.0 / 1440.0)

	// IL-10.
	p.kappaMhatantiI10 = 660e-12 / (2e5 * mMhat)
	p.kappaMantiI10 = p.kappaMhatantiI10
	p.dI10 = ln2 / (3.556 / 24.0)

	// TNF-alpha.
	p.kappaMhatproTa = (1.5e-9 / 18 * 24) / (4e6 * mMhat)
	p.kappaMproTa = p.kappaMhatproTa
	p.dTa = ln2 / (18.2 / 1440.0)

	// MCP-1.
	p.kappaMhatproP = 11e-9 / (2e6 * mMhat)
	p.kappaMproP = p.kappaMhatproP
	p.kappaAP = (1.0 / 10.0) * p.kappaMhatproP
	p.dP = ln2 / (3.0 / 24.0)

	return p, nil
}

func (p *Parameters) Sex() Sex    { return p.sex }
func (p *Parameters) APOE4() int  { return p.apoe4 }
func (p *Parameters) Xi() float64 { return p.xi }

// Insulin is the brain insulin concentration for this parameter set's
// sex at age tDays.
func (p *Parameters) Insulin(tDays float64) float64 {
	return InsulinConcentration(tDays, p.sex)
}

// DegradationRateABmo is the degradation rate (/day) of extracellular
// amyloid-beta monomer at age tDays. The half-life grows linearly with
// age, from 3.8 h at age 30 to 9.4 h at age 80.
func (p *Parameters) DegradationRateABmo(tDays float64) float64 {
	halflife := (7.0/547500.0)*tDays + 11.0/600.0
	return math.Ln2 / halflife
}

// field pairs a stable parameter name with the storage it addresses.
// The names match the research literature, and the order matches the
// derivation order above, which is the order a sweep iterates in.
type field struct {
	name string
	ptr  *float64
}

func (p *Parameters) fields() []field {
	return []field{
		{"rho_cerveau", &p.rhoBrain},
		{"N_0", &p.n0},
		{"A_0", &p.a0},
		{"lambda_ABi", &p.lambdaABi},
		{"delta_APi", &p.deltaAPi},
		{"d_ABi", &p.dABi},
		{"lambda_ABmo", &p.lambdaABmo},
		{"delta_APm", &p.deltaAPm},
		{"lambda_AABmo", &p.lambdaAABmo},
		{"kappa_ABmoABoo", &p.kappaABmoABoo},
		{"delta_APmo", &p.deltaAPmo},
		{"kappa_ABooABpo", &p.kappaABooABpo},
		{"d_ABoo", &p.dABoo},
		{"d_hatMantiABpo", &p.dMhatantiABpo},
		{"d_MantiABpo", &p.dMantiABpo},
		{"delta_APdp", &p.deltaAPdp},
		{"K_ABpo", &p.kABpo},
		{"Ins_0", &p.ins0},
		{"d_G", &p.dG},
		{"G_0", &p.g0},
		{"lambda_InsG", &p.lambdaInsG},
		{"lambda_tau", &p.lambdaTau},
		{"lambda_Gtau", &p.lambdaGTau},
		{"kappa_tauFi", &p.kappaTauFi},
		{"d_tau", &p.dTau},
		{"d_Fi", &p.dFi},
		{"kappa_MFo", &p.kappaMFo},
		{"K_Manti", &p.kManti},
		{"d_Fo", &p.dFo},
		{"d_FiN", &p.dFiN},
		{"K_Fi", &p.kFi},
		{"n", &p.n},
		{"d_TaN", &p.dTaN},
		{"K_Ta", &p.kTa},
		{"K_I10", &p.kI10},
		{"A_max", &p.aMax},
		{"kappa_TaA", &p.kappaTaA},
		{"kappa_ABpoA", &p.kappaABpoA},
		{"d_A", &p.dA},
		{"kappa_FoM", &p.kappaFoM},
		{"K_Fo", &p.kFo},
		{"kappa_ABooM", &p.kappaABooM},
		{"K_ABooM", &p.kABooM},
		{"d_Mpro", &p.dMpro},
		{"d_Manti", &p.dManti},
		{"beta", &p.beta},
		{"K_TaAct", &p.kTaAct},
		{"K_I10Act", &p.kI10Act},
		{"kappa_TbMpro", &p.kappaTbMpro},
		{"K_TbM", &p.kTbM},
		{"kappa_TaManti", &p.kappaTaManti},
		{"K_TaM", &p.kTaM},
		{"kappa_PMhat", &p.kappaPMhat},
		{"K_P", &p.kP},
		{"Mhatmax", &p.mHatMax},
		{"kappa_TbMhatpro", &p.kappaTbMhatpro},
		{"K_TbMhat", &p.kTbMhat},
		{"kappa_TaMhatanti", &p.kappaTaMhatanti},
		{"K_TaMhat", &p.kTaMhat},
		{"d_Mhatpro", &p.dMhatpro},
		{"d_Mhatanti", &p.dMhatanti},
		{"kappa_MhatantiTb", &p.kappaMhatantiTb},
		{"kappa_MantiTb", &p.kappaMantiTb},
		{"d_Tb", &p.dTb},
		{"kappa_MhatantiI10", &p.kappaMhatantiI10},
		{"kappa_MantiI10", &p.kappaMantiI10},
		{"d_I10", &p.dI10},
		{"kappa_MhatproTa", &p.kappaMhatproTa},
		{"kappa_MproTa", &p.kappaMproTa},
		{"d_Ta", &p.dTa},
		{"kappa_MhatproP", &p.kappaMhatproP},
		{"kappa_MproP", &p.kappaMproP},
		{"kappa_AP", &p.kappaAP},
		{"d_P", &p.dP},
	}
}

// Names lists every perturbable scalar parameter, in sweep order. The
// categorical sex and APOE4 inputs are not part of the list.
func (p *Parameters) Names() []string {
	fs := p.fields()
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.name
	}
	return names
}

// Value returns the current value of a named parameter.
func (p *Parameters) Value(name string) (float64, bool) {
	for _, f := range p.fields() {
		if f.name == name {
			return *f.ptr, true
		}
	}
	return 0, false
}

// WithValue returns an independent copy of p with exactly one named
// constant replaced. The receiver is never modified.
func (p *Parameters) WithValue(name string, v float64) (*Parameters, error) {
	clone := *p
	for _, f := range clone.fields() {
		if f.name == name {
			*f.ptr = v
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown parameter %q", dynamo.ErrInvalidParameter, name)
}

// Map returns a name -> value snapshot of every scalar parameter.
func (p *Parameters) Map() map[string]float64 {
	out := make(map[string]float64, len(p.fields()))
	for _, f := range p.fields() {
		out[f.name] = *f.ptr
	}
	return out
}
