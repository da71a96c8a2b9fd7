package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning is the opaque price table plus the behavioral defaults the
// command layer consults. Costs are plain lookups; balance lives here,
// not in code.
type Tuning struct {
	Prices Prices `yaml:"prices"`

	// Signal behavior.
	DefaultSignalDensity int  `yaml:"default_signal_density"`
	MaxSignalSpacing     int  `yaml:"max_signal_spacing"`
	MultiAspectEnabled   bool `yaml:"multi_aspect_enabled"`
	MaxSignalAspect      int  `yaml:"max_signal_aspect"`

	// Build behavior.
	DisableDualRailTypes bool `yaml:"disable_dual_rail_types"`
	RealisticBraking     bool `yaml:"realistic_braking"`
	MaxDragLength        int  `yaml:"max_drag_length"`
}

type Prices struct {
	BuildTrack   int64 `yaml:"build_track"`
	RemoveTrack  int64 `yaml:"remove_track"`
	BuildSignal  int64 `yaml:"build_signal"`
	RemoveSignal int64 `yaml:"remove_signal"`
	BuildDepot   int64 `yaml:"build_depot"`
	RemoveDepot  int64 `yaml:"remove_depot"`
	ConvertRail  int64 `yaml:"convert_rail"`
	Foundation   int64 `yaml:"foundation"`
	ClearGround  int64 `yaml:"clear_ground"`
}

func (t *Tuning) applyDefaults() {
	if t.Prices.BuildTrack <= 0 {
		t.Prices.BuildTrack = 250
	}
	if t.Prices.RemoveTrack <= 0 {
		t.Prices.RemoveTrack = 150
	}
	if t.Prices.BuildSignal <= 0 {
		t.Prices.BuildSignal = 500
	}
	if t.Prices.RemoveSignal <= 0 {
		t.Prices.RemoveSignal = 300
	}
	if t.Prices.BuildDepot <= 0 {
		t.Prices.BuildDepot = 3000
	}
	if t.Prices.RemoveDepot <= 0 {
		t.Prices.RemoveDepot = 1500
	}
	if t.Prices.ConvertRail <= 0 {
		t.Prices.ConvertRail = 200
	}
	if t.Prices.Foundation <= 0 {
		t.Prices.Foundation = 1000
	}
	if t.Prices.ClearGround <= 0 {
		t.Prices.ClearGround = 100
	}
	if t.DefaultSignalDensity <= 0 {
		t.DefaultSignalDensity = 4
	}
	if t.MaxSignalSpacing <= 0 {
		t.MaxSignalSpacing = 16
	}
	if t.MaxSignalAspect <= 0 {
		t.MaxSignalAspect = 7
	}
	if t.MaxDragLength <= 0 {
		t.MaxDragLength = 512
	}
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.applyDefaults()
	return t, nil
}

// Default returns the built-in tuning used when no tuning.yaml is given.
func Default() Tuning {
	var t Tuning
	t.applyDefaults()
	return t
}
