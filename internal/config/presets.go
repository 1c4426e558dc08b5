package config

import (
	"sort"

	"github.com/san-kum/neurosim/internal/model"
	"github.com/san-kum/neurosim/internal/sim"
)

// Presets holds the four canonical analysis cases: both sexes, with and
// without the APOE4 risk allele, over ages 30 to 80.
var Presets = map[string]*Config{
	"women-apoe4-": preset("women-apoe4-", model.Female, 0),
	"women-apoe4+": preset("women-apoe4+", model.Female, 1),
	"men-apoe4-":   preset("men-apoe4-", model.Male, 0),
	"men-apoe4+":   preset("men-apoe4+", model.Male, 1),
}

func preset(name string, sex model.Sex, apoe4 int) *Config {
	c := Default()
	c.Name = name
	c.Sex = int(sex)
	c.APOE4 = apoe4
	return c
}

// PresetNames lists the presets in stable order.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PresetScenarios returns the scenarios of all presets, in stable
// order, for a cross-scenario sweep.
func PresetScenarios() []sim.Scenario {
	names := PresetNames()
	out := make([]sim.Scenario, len(names))
	for i, name := range names {
		out[i] = Presets[name].Scenario()
	}
	return out
}
