// Package config loads scheduler configuration (sites, ranker parameters,
// band parameters, resource catalog, night-length defaults) from YAML
// (SPEC_FULL.md §A.2), grounded on the pack's direct yaml.v3 load pattern
// (other_examples/.../internal/config/config.go's DefaultConfig +
// LoadFromFile: compiled-in defaults, then an unmarshal overlay).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/litescript/gemscheduler/internal/model"
	"github.com/litescript/gemscheduler/internal/ranker"
)

// SiteConfig describes one observing site (model.Site plus the band-3
// minimum-fraction tunable that the reference scheduler configures per
// site rather than globally).
type SiteConfig struct {
	Name            string  `yaml:"name"`
	LatDeg          float64 `yaml:"latDeg"`
	LonDeg          float64 `yaml:"lonDeg"`
	AltMeters       float64 `yaml:"altMeters"`
	Band3MinFraction float64 `yaml:"band3MinFraction"`
}

// Site converts a SiteConfig into the model.Site the rest of the
// scheduler operates on.
func (s SiteConfig) Site() model.Site {
	return model.Site{Name: s.Name, LatDeg: s.LatDeg, LonDeg: s.LonDeg, AltMeters: s.AltMeters}
}

// RankerConfig overlays ranker.Parameters fields that operators tune most
// often. Zero values mean "use the compiled-in default" (applied by
// Config.RankerParameters).
type RankerConfig struct {
	ThesisFactor float64 `yaml:"thesisFactor"`
	Power        int     `yaml:"power"`
	MetPower     float64 `yaml:"metPower"`
	VisPower     float64 `yaml:"visPower"`
	WhaPower     float64 `yaml:"whaPower"`
}

// BandConfig overlays one band's ranker.BandParameters.
type BandConfig struct {
	M1  float64 `yaml:"m1"`
	B1  float64 `yaml:"b1"`
	M2  float64 `yaml:"m2"`
	B2  float64 `yaml:"b2"`
	Xb  float64 `yaml:"xb"`
	Xb0 float64 `yaml:"xb0"`
	Xc0 float64 `yaml:"xc0"`
}

// Config is the top-level scheduler configuration.
type Config struct {
	Sites      []SiteConfig `yaml:"sites"`
	Semesters  []string     `yaml:"semesters"`
	ProgramTypes []string   `yaml:"programTypes"`
	ObsClasses []string     `yaml:"obsClasses"`

	SlotLength time.Duration `yaml:"slotLength"`

	Ranker RankerConfig          `yaml:"ranker"`
	Bands  map[string]BandConfig `yaml:"bands"`

	// ResourceCatalog lists, per site name, the resources installed there
	// — the compiled-in equivalent of the resource service adapter
	// (spec.md §6) for operators who don't wire a live one.
	ResourceCatalog map[string][]string `yaml:"resourceCatalog"`
}

// Default returns the scheduler's compiled-in configuration: no sites (a
// deployment always names its own), the reference ranker and band
// parameters, and a one-minute time slot. A zero-value Config yields the
// same ranker and band parameters, since RankerParameters and
// BandParameters fall back to the compiled-in values; Default also writes
// those values into the overlay fields so Load keeps them for any field a
// YAML file does not mention.
func Default() Config {
	p := ranker.DefaultParameters()
	return Config{
		SlotLength: time.Minute,
		Ranker: RankerConfig{
			ThesisFactor: p.ThesisFactor,
			Power:        p.Power,
			MetPower:     p.MetPower,
			VisPower:     p.VisPower,
			WhaPower:     p.WhaPower,
		},
		Bands: bandConfigFromDefaults(ranker.DefaultBandParameters()),
	}
}

func bandConfigFromDefaults(m ranker.BandParameterMap) map[string]BandConfig {
	out := make(map[string]BandConfig, len(m))
	for band, p := range m {
		out[bandName(band)] = BandConfig{M1: p.M1, B1: p.B1, M2: p.M2, B2: p.B2, Xb: p.Xb, Xb0: p.Xb0, Xc0: p.Xc0}
	}
	return out
}

func bandName(b model.Band) string {
	switch b {
	case model.Band1:
		return "Band1"
	case model.Band2:
		return "Band2"
	case model.Band3:
		return "Band3"
	case model.Band4:
		return "Band4"
	default:
		return ""
	}
}

// Load reads a YAML configuration file at path, overlaying it onto the
// compiled-in defaults so an operator's file only needs to mention the
// fields it overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// RankerParameters builds a ranker.Parameters from the config overlay,
// keeping the compiled-in declination-offset coefficients and score
// combiner (neither is operator-tunable via YAML; they are algorithm
// shape, not a dial).
func (c Config) RankerParameters() ranker.Parameters {
	p := ranker.DefaultParameters()
	if c.Ranker.ThesisFactor != 0 {
		p.ThesisFactor = c.Ranker.ThesisFactor
	}
	if c.Ranker.Power != 0 {
		p.Power = c.Ranker.Power
	}
	if c.Ranker.MetPower != 0 {
		p.MetPower = c.Ranker.MetPower
	}
	if c.Ranker.VisPower != 0 {
		p.VisPower = c.Ranker.VisPower
	}
	if c.Ranker.WhaPower != 0 {
		p.WhaPower = c.Ranker.WhaPower
	}
	return p
}

// BandParameters builds a ranker.BandParameterMap from the config
// overlay, falling back to the compiled-in defaults for any band the
// config omits.
func (c Config) BandParameters() ranker.BandParameterMap {
	out := ranker.DefaultBandParameters()
	for name, bc := range c.Bands {
		band, ok := parseBand(name)
		if !ok {
			continue
		}
		out[band] = ranker.BandParameters{M1: bc.M1, B1: bc.B1, M2: bc.M2, B2: bc.B2, Xb: bc.Xb, Xb0: bc.Xb0, Xc0: bc.Xc0}
	}
	return out
}

func parseBand(name string) (model.Band, bool) {
	switch name {
	case "Band1", "1":
		return model.Band1, true
	case "Band2", "2":
		return model.Band2, true
	case "Band3", "3":
		return model.Band3, true
	case "Band4", "4":
		return model.Band4, true
	default:
		return 0, false
	}
}

// SiteByName finds a configured site by name, reporting whether it was
// found.
func (c Config) SiteByName(name string) (SiteConfig, bool) {
	for _, s := range c.Sites {
		if s.Name == name {
			return s, true
		}
	}
	return SiteConfig{}, false
}

// Resources returns the set of resources installed at the named site,
// per the compiled-in resource catalog.
func (c Config) Resources(site string) model.ResourceSet {
	names := c.ResourceCatalog[site]
	rs := make([]model.Resource, len(names))
	for i, n := range names {
		rs[i] = model.Resource(n)
	}
	return model.NewResourceSet(rs...)
}
