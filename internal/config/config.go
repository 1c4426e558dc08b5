package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/neurosim/internal/dynamo"
	"github.com/san-kum/neurosim/internal/model"
	"github.com/san-kum/neurosim/internal/sim"
)

// Defaults for a canonical run: ages 30 to 80, 1000 samples, the
// sensitivity-mode tolerances.
const (
	DefaultAgeStart = 30.0
	DefaultAgeEnd   = 80.0
	DefaultSamples  = 1000
	DefaultAbsTol   = 1e-10
	DefaultRelTol   = 1e-10

	// Tolerances of the trajectory-perturbation mode.
	PerturbAbsTol = 1e-22
	PerturbRelTol = 1e-5

	DefaultFactor = 1.1
)

// Config is the YAML surface of a scenario plus run options.
type Config struct {
	Name       string  `yaml:"name"`
	Sex        int     `yaml:"sex"`    // 0 woman, 1 man
	APOE4      int     `yaml:"apoe4"`  // 0 non-carrier, 1 carrier
	Xi         float64 `yaml:"xi"`     // microglia activation scaling, (0,1]
	AgeStart   float64 `yaml:"age_start"`
	AgeEnd     float64 `yaml:"age_end"`
	Samples    int     `yaml:"samples"`
	AbsTol     float64 `yaml:"atol"`
	RelTol     float64 `yaml:"rtol"`
	Integrator string  `yaml:"integrator"`
	Factor     float64 `yaml:"factor"`    // sensitivity perturbation factor
	Biomarker  string  `yaml:"biomarker"` // AB, tau or N
}

func Default() *Config {
	return &Config{
		Name:       "custom",
		Sex:        int(model.Female),
		APOE4:      0,
		Xi:         1,
		AgeStart:   DefaultAgeStart,
		AgeEnd:     DefaultAgeEnd,
		Samples:    DefaultSamples,
		AbsTol:     DefaultAbsTol,
		RelTol:     DefaultRelTol,
		Integrator: "rosenbrock",
		Factor:     DefaultFactor,
		Biomarker:  "N",
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Scenario converts the config to the pipeline's scenario descriptor.
func (c *Config) Scenario() sim.Scenario {
	return sim.Scenario{
		Name:          c.Name,
		Sex:           model.Sex(c.Sex),
		APOE4:         c.APOE4,
		Xi:            c.Xi,
		AgeStartYears: c.AgeStart,
		AgeEndYears:   c.AgeEnd,
		Samples:       c.Samples,
		Tolerances:    dynamo.Tolerances{Abs: c.AbsTol, Rel: c.RelTol},
	}
}

// BiomarkerIndex resolves the configured biomarker label.
func (c *Config) BiomarkerIndex() (int, error) {
	switch c.Biomarker {
	case "AB", "ab", "plaque":
		return dynamo.VarABpo, nil
	case "tau", "NFT":
		return dynamo.VarNFTi, nil
	case "N", "n", "neurons":
		return dynamo.VarNeurons, nil
	default:
		return 0, fmt.Errorf("%w: unknown biomarker %q (want AB, tau or N)", dynamo.ErrInvalidParameter, c.Biomarker)
	}
}
