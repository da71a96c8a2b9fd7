package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	tun := Default()
	if tun.Prices.BuildTrack != 250 || tun.Prices.RemoveTrack != 150 {
		t.Fatalf("track prices: %+v", tun.Prices)
	}
	if tun.Prices.BuildSignal != 500 || tun.Prices.RemoveSignal != 300 {
		t.Fatalf("signal prices: %+v", tun.Prices)
	}
	if tun.Prices.BuildDepot != 3000 || tun.Prices.RemoveDepot != 1500 {
		t.Fatalf("depot prices: %+v", tun.Prices)
	}
	if tun.Prices.ConvertRail != 200 || tun.Prices.Foundation != 1000 || tun.Prices.ClearGround != 100 {
		t.Fatalf("misc prices: %+v", tun.Prices)
	}
	if tun.DefaultSignalDensity != 4 || tun.MaxSignalSpacing != 16 {
		t.Fatalf("signal defaults: %+v", tun)
	}
	if tun.MaxDragLength != 512 || tun.MaxSignalAspect != 7 {
		t.Fatalf("behavior defaults: %+v", tun)
	}
	if tun.DisableDualRailTypes || tun.RealisticBraking || tun.MultiAspectEnabled {
		t.Fatalf("feature flags should default off")
	}
}

func TestLoadOverridesAndFills(t *testing.T) {
	dir := t.TempDir()
	yml := `prices:
  build_track: 999
default_signal_density: 2
realistic_braking: true
`
	path := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tun, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tun.Prices.BuildTrack != 999 {
		t.Fatalf("override lost: %d", tun.Prices.BuildTrack)
	}
	if tun.Prices.RemoveTrack != 150 {
		t.Fatalf("unset price should fall back to the default: %d", tun.Prices.RemoveTrack)
	}
	if tun.DefaultSignalDensity != 2 || !tun.RealisticBraking {
		t.Fatalf("behavior overrides lost: %+v", tun)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("missing file should error")
	}
}
