package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"railgrid.dev/internal/sim/rail"
)

// Catalogs holds the static definitions loaded once at startup: the rail
// type registry (with its compatibility closure resolved) and the signal
// style set.
type Catalogs struct {
	RailTypes *rail.RailTypeRegistry
	Styles    []rail.SignalStyle

	RailTypesDigest string
	StylesDigest    string
}

type railTypeDef struct {
	Label      string   `yaml:"label"`
	MaxSpeed   int      `yaml:"max_speed"`
	Powered    []string `yaml:"powered"`
	Compatible []string `yaml:"compatible"`
}

type styleDef struct {
	Name            string   `yaml:"name"`
	Types           []string `yaml:"types,omitempty"` // empty = all
	SemaphoreOnly   bool     `yaml:"semaphore_only,omitempty"`
	ElectricOnly    bool     `yaml:"electric_only,omitempty"`
	NoBidirectional bool     `yaml:"no_bidirectional,omitempty"`
	EntranceOnly    bool     `yaml:"entrance_only,omitempty"`
	ExitOnly        bool     `yaml:"exit_only,omitempty"`
}

type catalogFile struct {
	RailTypes []railTypeDef `yaml:"railtypes"`
	Styles    []styleDef    `yaml:"signal_styles"`
}

var signalTypeNames = map[string]rail.SignalType{
	"BLOCK":        rail.SignalBlock,
	"ENTRY":        rail.SignalEntry,
	"EXIT":         rail.SignalExit,
	"COMBO":        rail.SignalCombo,
	"PBS":          rail.SignalPBS,
	"PBS_ONEWAY":   rail.SignalPBSOneWay,
	"NO_ENTRY":     rail.SignalNoEntry,
	"PROGRAMMABLE": rail.SignalProg,
}

// Load reads railtypes.yaml from the config directory and builds the
// registry. Two-pass: allocate all types first so powered/compatible
// lists may reference types defined later in the file.
func Load(configDir string) (*Catalogs, error) {
	path := filepath.Join(configDir, "railtypes.yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("railtypes.yaml: %w", err)
	}
	c, err := build(f)
	if err != nil {
		return nil, fmt.Errorf("railtypes.yaml: %w", err)
	}
	c.RailTypesDigest = sha256Hex(raw)
	c.StylesDigest = c.RailTypesDigest
	return c, nil
}

// Default returns the built-in catalog: rail, electrified, monorail and
// maglev, plus the default signal style and a tunnel-capable style pair.
func Default() *Catalogs {
	c, err := build(catalogFile{
		RailTypes: []railTypeDef{
			{Label: "RAIL", MaxSpeed: 0, Compatible: []string{"ELRL"}},
			{Label: "ELRL", MaxSpeed: 0, Powered: []string{"RAIL"}, Compatible: []string{"RAIL"}},
			{Label: "MONO", MaxSpeed: 0},
			{Label: "MGLV", MaxSpeed: 0},
		},
		Styles: []styleDef{
			{Name: "default"},
			{Name: "banner", SemaphoreOnly: true, NoBidirectional: true},
			{Name: "gate", Types: []string{"PBS", "PBS_ONEWAY"}},
		},
	})
	if err != nil {
		panic(err)
	}
	return c
}

func build(f catalogFile) (*Catalogs, error) {
	if len(f.RailTypes) == 0 {
		return nil, fmt.Errorf("no rail types defined")
	}
	if len(f.RailTypes) > 64 {
		return nil, fmt.Errorf("too many rail types: %d", len(f.RailTypes))
	}

	reg := rail.NewRailTypeRegistry()
	ids := make(map[string]rail.RailType, len(f.RailTypes))
	for _, d := range f.RailTypes {
		if d.Label == "" {
			return nil, fmt.Errorf("rail type with empty label")
		}
		if _, dup := ids[d.Label]; dup {
			return nil, fmt.Errorf("duplicate rail type %q", d.Label)
		}
		ids[d.Label] = reg.Allocate(rail.RailTypeInfo{Label: d.Label, MaxSpeed: d.MaxSpeed})
	}
	for _, d := range f.RailTypes {
		info := reg.Info(ids[d.Label])
		for _, lbl := range d.Powered {
			rt, ok := ids[lbl]
			if !ok {
				return nil, fmt.Errorf("rail type %q powers unknown type %q", d.Label, lbl)
			}
			info.Powered = info.Powered.With(rt)
		}
		for _, lbl := range d.Compatible {
			rt, ok := ids[lbl]
			if !ok {
				return nil, fmt.Errorf("rail type %q compatible with unknown type %q", d.Label, lbl)
			}
			info.Compatible = info.Compatible.With(rt)
		}
	}
	reg.ResolveClosure()

	styles := make([]rail.SignalStyle, 0, len(f.Styles)+1)
	if len(f.Styles) == 0 || f.Styles[0].Name != "default" {
		styles = append(styles, rail.SignalStyle{Name: "default"})
	}
	for _, d := range f.Styles {
		s := rail.SignalStyle{
			Name:            d.Name,
			SemaphoreOnly:   d.SemaphoreOnly,
			ElectricOnly:    d.ElectricOnly,
			NoBidirectional: d.NoBidirectional,
			EntranceOnly:    d.EntranceOnly,
			ExitOnly:        d.ExitOnly,
		}
		for _, tn := range d.Types {
			st, ok := signalTypeNames[tn]
			if !ok {
				return nil, fmt.Errorf("style %q: unknown signal type %q", d.Name, tn)
			}
			s.Types |= 1 << st
		}
		styles = append(styles, s)
	}

	return &Catalogs{RailTypes: reg, Styles: styles}, nil
}

// SignalTypeByName resolves a wire-format signal type name.
func SignalTypeByName(name string) (rail.SignalType, bool) {
	st, ok := signalTypeNames[name]
	return st, ok
}

// RailTypeLabels lists the catalog's rail type labels in allocation
// order, for the welcome message.
func (c *Catalogs) RailTypeLabels() []string {
	out := make([]string, 0, c.RailTypes.Count())
	for i := 0; i < c.RailTypes.Count(); i++ {
		out = append(out, c.RailTypes.Info(rail.RailType(i)).Label)
	}
	return out
}

// Style returns the style definition for an index, falling back to the
// default style for out-of-range values.
func (c *Catalogs) Style(idx uint8) *rail.SignalStyle {
	if int(idx) >= len(c.Styles) {
		return &c.Styles[0]
	}
	return &c.Styles[idx]
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
