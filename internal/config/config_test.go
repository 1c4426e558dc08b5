package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/neurosim/internal/dynamo"
	"github.com/san-kum/neurosim/internal/model"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.AgeStart != 30 || cfg.AgeEnd != 80 {
		t.Errorf("default ages %g-%g, want 30-80", cfg.AgeStart, cfg.AgeEnd)
	}
	if cfg.Samples != 1000 {
		t.Errorf("default samples = %d, want 1000", cfg.Samples)
	}
	if err := cfg.Scenario().Validate(); err != nil {
		t.Errorf("default config not runnable: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")

	cfg := Default()
	cfg.Name = "roundtrip"
	cfg.Sex = int(model.Male)
	cfg.APOE4 = 1
	cfg.Xi = 0.7
	cfg.AbsTol = PerturbAbsTol
	cfg.RelTol = PerturbRelTol

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if *loaded != *cfg {
		t.Errorf("round trip changed the config:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("sex: 1\nxi: 0.5\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sex != 1 || cfg.Xi != 0.5 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Samples != DefaultSamples || cfg.AbsTol != DefaultAbsTol {
		t.Errorf("unset fields lost their defaults: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load of a missing file succeeded")
	}
}

func TestBiomarkerIndex(t *testing.T) {
	tests := []struct {
		label string
		want  int
	}{
		{"AB", dynamo.VarABpo},
		{"plaque", dynamo.VarABpo},
		{"tau", dynamo.VarNFTi},
		{"NFT", dynamo.VarNFTi},
		{"N", dynamo.VarNeurons},
		{"neurons", dynamo.VarNeurons},
	}
	for _, tt := range tests {
		cfg := Default()
		cfg.Biomarker = tt.label
		got, err := cfg.BiomarkerIndex()
		if err != nil {
			t.Errorf("BiomarkerIndex(%q): %v", tt.label, err)
			continue
		}
		if got != tt.want {
			t.Errorf("BiomarkerIndex(%q) = %d, want %d", tt.label, got, tt.want)
		}
	}

	cfg := Default()
	cfg.Biomarker = "cortisol"
	if _, err := cfg.BiomarkerIndex(); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("BiomarkerIndex(cortisol) error = %v, want ErrInvalidParameter", err)
	}
}

func TestPresets(t *testing.T) {
	names := PresetNames()
	if len(names) != 4 {
		t.Fatalf("got %d presets, want 4", len(names))
	}

	for _, name := range names {
		cfg := Presets[name]
		if cfg.Name != name {
			t.Errorf("preset %q carries name %q", name, cfg.Name)
		}
		if err := cfg.Scenario().Validate(); err != nil {
			t.Errorf("preset %q not runnable: %v", name, err)
		}
	}

	// Both sexes, each with and without the risk allele.
	kinds := map[[2]int]bool{}
	for _, sc := range PresetScenarios() {
		kinds[[2]int{int(sc.Sex), sc.APOE4}] = true
	}
	if len(kinds) != 4 {
		t.Errorf("presets cover %d sex/APOE4 combinations, want 4", len(kinds))
	}
}
