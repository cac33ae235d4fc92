package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/litescript/gemscheduler/internal/model"
	"github.com/litescript/gemscheduler/internal/ranker"
)

func TestDefaultMatchesRankerDefaults(t *testing.T) {
	cfg := Default()
	want := ranker.DefaultParameters()
	got := cfg.RankerParameters()
	if got.ThesisFactor != want.ThesisFactor || got.Power != want.Power {
		t.Fatalf("Default()'s RankerParameters() = %+v, want %+v", got, want)
	}
	if cfg.SlotLength != time.Minute {
		t.Fatalf("expected default slot length of 1m, got %v", cfg.SlotLength)
	}
}

func TestDefaultBandParametersRoundTrip(t *testing.T) {
	cfg := Default()
	got := cfg.BandParameters()
	want := ranker.DefaultBandParameters()
	for _, band := range []model.Band{model.Band1, model.Band2, model.Band3, model.Band4} {
		if got[band] != want[band] {
			t.Fatalf("band %v: got %+v, want %+v", band, got[band], want[band])
		}
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
slotLength: 2m
sites:
  - name: GN
    latDeg: 19.8238
    lonDeg: -155.4689
    altMeters: 4213
    band3MinFraction: 0.25
ranker:
  thesisFactor: 1.5
resourceCatalog:
  GN:
    - GMOS
    - GNIRS
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SlotLength != 2*time.Minute {
		t.Fatalf("expected overridden slot length of 2m, got %v", cfg.SlotLength)
	}
	if got := cfg.RankerParameters().ThesisFactor; got != 1.5 {
		t.Fatalf("expected overridden thesis factor 1.5, got %v", got)
	}
	// Unset ranker fields should still fall back to the compiled-in default.
	if got, want := cfg.RankerParameters().Power, ranker.DefaultParameters().Power; got != want {
		t.Fatalf("expected power to fall back to default %v, got %v", want, got)
	}

	site, ok := cfg.SiteByName("GN")
	if !ok {
		t.Fatalf("expected site GN to be present")
	}
	if site.Band3MinFraction != 0.25 {
		t.Fatalf("expected band3MinFraction 0.25, got %v", site.Band3MinFraction)
	}

	resources := cfg.Resources("GN")
	if !model.NewResourceSet("GMOS", "GNIRS").Subset(resources) {
		t.Fatalf("expected GN's resources to include GMOS and GNIRS, got %+v", resources)
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml")); err == nil {
		t.Fatalf("expected an error loading a nonexistent config file")
	}
}
