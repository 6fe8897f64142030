// Package config holds the generator configuration: the YAML file layout, its
// defaults, validation, and the live store the engine polls.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"procworld/internal/city"
	"procworld/internal/heightmap"
	"procworld/internal/lsystem"
	"procworld/internal/noise"
	"procworld/internal/ocean"
	"procworld/internal/world"
)

// ErrInvalid is wrapped by every ConfigurationError.
var ErrInvalid = errors.New("invalid configuration")

// ConfigurationError names the offending field.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrInvalid }

func invalid(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Duration decodes YAML strings such as "300ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Terrain   TerrainConfig  `yaml:"terrain"`
	Ocean     OceanConfig    `yaml:"ocean"`
	Grass     GrassConfig    `yaml:"grass"`
	Flowers   FlowerConfig   `yaml:"flowers"`
	Trees     TreeConfig     `yaml:"trees"`
	Roads     RoadConfig     `yaml:"roads"`
	Buildings BuildingConfig `yaml:"buildings"`
	Pipeline  PipelineConfig `yaml:"pipeline"`
}

// StreamConfig sizes one domain's chunk window.
type StreamConfig struct {
	Neighborhood int     `yaml:"neighborhood"`
	UnloadRadius float64 `yaml:"unload_radius"`
}

type TerrainConfig struct {
	Seed           int64      `yaml:"seed"`
	Scale          float64    `yaml:"scale"`
	Amplitude      float64    `yaml:"amplitude"`
	Octaves        int        `yaml:"octaves"`
	PhysicalSize   float64    `yaml:"physical_size"`
	Resolution     int        `yaml:"resolution"`
	Position       [3]float64 `yaml:"position"`
	Bilinear       bool       `yaml:"bilinear"`
	RebakeDebounce Duration   `yaml:"rebake_debounce"`
}

// Params converts the section to bake parameters.
func (t TerrainConfig) Params() heightmap.Params {
	return heightmap.Params{
		Seed:         t.Seed,
		Scale:        t.Scale,
		Amplitude:    t.Amplitude,
		Octaves:      t.Octaves,
		PhysicalSize: t.PhysicalSize,
		Resolution:   t.Resolution,
	}
}

// Offset is the terrain position as a vector.
func (t TerrainConfig) Offset() mgl32.Vec3 {
	return mgl32.Vec3{float32(t.Position[0]), float32(t.Position[1]), float32(t.Position[2])}
}

type OceanConfig struct {
	Level float64      `yaml:"level"`
	Waves []WaveConfig `yaml:"waves"`
}

type WaveConfig struct {
	Amplitude  float64    `yaml:"amplitude"`
	Wavelength float64    `yaml:"wavelength"`
	Direction  [2]float64 `yaml:"direction"`
	Speed      float64    `yaml:"speed"`
	Steepness  float64    `yaml:"steepness"`
}

// OceanWaves converts the wave list.
func (o OceanConfig) OceanWaves() []ocean.Wave {
	out := make([]ocean.Wave, len(o.Waves))
	for i, w := range o.Waves {
		out[i] = ocean.Wave{
			Amplitude:  w.Amplitude,
			Wavelength: w.Wavelength,
			Direction:  mgl32.Vec2{float32(w.Direction[0]), float32(w.Direction[1])},
			Speed:      w.Speed,
			Steepness:  w.Steepness,
		}
	}
	return out
}

// ScatterConfig is shared by grass and flowers.
type ScatterConfig struct {
	StreamConfig `yaml:",inline"`
	Seed         int64   `yaml:"seed"`
	SeedOffset   int64   `yaml:"seed_offset"`
	Density      float64 `yaml:"density"`
	Threshold    float64 `yaml:"threshold"`
}

type GrassConfig struct {
	ScatterConfig `yaml:",inline"`
	CrossQuad     bool `yaml:"cross_quad"`
}

type FlowerConfig struct {
	ScatterConfig `yaml:",inline"`
	Petals        int `yaml:"petals"`
}

type TreeConfig struct {
	StreamConfig `yaml:",inline"`
	Seed         int64      `yaml:"seed"`
	Density      float64    `yaml:"density"`
	Varieties    []string   `yaml:"varieties"`
	SizeRange    [2]float64 `yaml:"size_range"`
}

// Species resolves the configured varieties to presets.
func (t TreeConfig) Species() ([]lsystem.Species, error) {
	out := make([]lsystem.Species, 0, len(t.Varieties))
	for i, name := range t.Varieties {
		sp, ok := lsystem.Preset(name)
		if !ok {
			return nil, invalid(fmt.Sprintf("trees.varieties[%d]", i), "unknown species %q (have %s)", name, strings.Join(lsystem.PresetNames(), ", "))
		}
		out = append(out, sp)
	}
	return out, nil
}

type RoadConfig struct {
	StreamConfig `yaml:",inline"`
	Seed         int64 `yaml:"seed"`
}

type BuildingConfig struct {
	StreamConfig `yaml:",inline"`
	Seed         int64             `yaml:"seed"`
	Archetypes   []ArchetypeConfig `yaml:"archetypes"`
}

type ArchetypeConfig struct {
	Name          string     `yaml:"name"`
	Shapes        []string   `yaml:"shapes"`
	Width         [2]float64 `yaml:"width"`
	Height        [2]float64 `yaml:"height"`
	Depth         [2]float64 `yaml:"depth"`
	WindowDensity float64    `yaml:"window_density"`
	FloorHeight   float64    `yaml:"floor_height"`
	Colors        []string   `yaml:"colors"`
}

// CityArchetypes returns the archetypes in band order. Every band must be
// configured exactly once.
func (b BuildingConfig) CityArchetypes() ([]city.Archetype, error) {
	byName := make(map[string]int, len(b.Archetypes))
	for i, a := range b.Archetypes {
		if _, dup := byName[a.Name]; dup {
			return nil, invalid(fmt.Sprintf("buildings.archetypes[%d].name", i), "duplicate archetype %q", a.Name)
		}
		byName[a.Name] = i
	}
	out := make([]city.Archetype, 0, city.NumArchetypes)
	for _, name := range city.ArchetypeNames {
		i, ok := byName[name]
		if !ok {
			return nil, invalid("buildings.archetypes", "missing archetype %q", name)
		}
		a, err := b.Archetypes[i].archetype(fmt.Sprintf("buildings.archetypes[%d]", i))
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if len(b.Archetypes) != city.NumArchetypes {
		return nil, invalid("buildings.archetypes", "%d archetypes, want %d", len(b.Archetypes), city.NumArchetypes)
	}
	return out, nil
}

func (a ArchetypeConfig) archetype(field string) (city.Archetype, error) {
	out := city.Archetype{
		Name:          a.Name,
		Width:         a.Width,
		Height:        a.Height,
		Depth:         a.Depth,
		WindowDensity: a.WindowDensity,
		FloorHeight:   a.FloorHeight,
	}
	if len(a.Shapes) == 0 {
		return out, invalid(field+".shapes", "shape list is empty")
	}
	for j, s := range a.Shapes {
		shape, err := city.ParseShape(s)
		if err != nil {
			return out, invalid(fmt.Sprintf("%s.shapes[%d]", field, j), "%v", err)
		}
		out.Shapes = append(out.Shapes, shape)
	}
	for j, c := range a.Colors {
		v, err := parseHexColor(c)
		if err != nil {
			return out, invalid(fmt.Sprintf("%s.colors[%d]", field, j), "%v", err)
		}
		out.Colors = append(out.Colors, v)
	}
	if err := out.Validate(); err != nil {
		return out, invalid(field, "%v", err)
	}
	return out, nil
}

func parseHexColor(s string) (mgl32.Vec3, error) {
	if len(s) != 7 || s[0] != '#' {
		return mgl32.Vec3{}, fmt.Errorf("color %q must be #RRGGBB", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return mgl32.Vec3{}, fmt.Errorf("color %q must be #RRGGBB", s)
	}
	return city.HexColor(uint32(v)), nil
}

type PipelineConfig struct {
	Workers           int     `yaml:"workers"`
	QueueSize         int     `yaml:"queue_size"`
	DispatchPerSecond float64 `yaml:"dispatch_per_second"`
	DispatchBurst     int     `yaml:"dispatch_burst"`
	// MaxResultsPerTick bounds how many responses one tick applies.
	MaxResultsPerTick int `yaml:"max_results_per_tick"`
}

// Load reads path over the defaults and validates the result. Unknown keys
// are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Marshal encodes c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

const maxDensity = 10

// Validate returns the first *ConfigurationError found.
func (c *Config) Validate() error {
	streams := []struct {
		name string
		s    StreamConfig
	}{
		{"grass", c.Grass.StreamConfig},
		{"flowers", c.Flowers.StreamConfig},
		{"trees", c.Trees.StreamConfig},
		{"roads", c.Roads.StreamConfig},
		{"buildings", c.Buildings.StreamConfig},
	}
	for _, st := range streams {
		if st.s.Neighborhood < 0 {
			return invalid(st.name+".neighborhood", "must not be negative")
		}
		if reach := world.MaxLoadReach(st.s.Neighborhood); st.s.UnloadRadius <= reach {
			return invalid(st.name+".unload_radius", "%g must exceed the load reach %.2f", st.s.UnloadRadius, reach)
		}
	}

	densities := []struct {
		name string
		v    float64
	}{
		{"grass.density", c.Grass.Density},
		{"flowers.density", c.Flowers.Density},
		{"trees.density", c.Trees.Density},
	}
	for _, d := range densities {
		if d.v < 0 || d.v > maxDensity {
			return invalid(d.name, "%g outside [0,%d]", d.v, maxDensity)
		}
	}
	if c.Flowers.Petals < 1 {
		return invalid("flowers.petals", "must be at least 1")
	}

	if len(c.Trees.Varieties) == 0 {
		return invalid("trees.varieties", "at least one species is required")
	}
	if _, err := c.Trees.Species(); err != nil {
		return err
	}
	if r := c.Trees.SizeRange; r[0] <= 0 || r[0] > r[1] {
		return invalid("trees.size_range", "[%g, %g] must be positive and ordered", r[0], r[1])
	}

	if _, err := c.Buildings.CityArchetypes(); err != nil {
		return err
	}

	if len(c.Ocean.Waves) > ocean.MaxWaves {
		return invalid("ocean.waves", "%d waves, at most %d", len(c.Ocean.Waves), ocean.MaxWaves)
	}
	for i, w := range c.Ocean.OceanWaves() {
		if err := w.Validate(); err != nil {
			return invalid(fmt.Sprintf("ocean.waves[%d]", i), "%v", err)
		}
	}

	t := c.Terrain
	switch {
	case t.Resolution < 2:
		return invalid("terrain.resolution", "%d must be at least 2", t.Resolution)
	case t.PhysicalSize <= 0:
		return invalid("terrain.physical_size", "%g must be positive", t.PhysicalSize)
	case t.Octaves < 1 || t.Octaves > noise.MaxOctaves:
		return invalid("terrain.octaves", "%d outside [1,%d]", t.Octaves, noise.MaxOctaves)
	case t.Scale <= 0:
		return invalid("terrain.scale", "%g must be positive", t.Scale)
	}

	p := c.Pipeline
	switch {
	case p.Workers < 1:
		return invalid("pipeline.workers", "must be at least 1")
	case p.QueueSize < 1:
		return invalid("pipeline.queue_size", "must be at least 1")
	case p.DispatchPerSecond < 0:
		return invalid("pipeline.dispatch_per_second", "must not be negative")
	case p.DispatchPerSecond > 0 && p.DispatchBurst < 1:
		return invalid("pipeline.dispatch_burst", "must be at least 1 when dispatch is limited")
	case p.MaxResultsPerTick < 1:
		return invalid("pipeline.max_results_per_tick", "must be at least 1")
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() Config {
	out := *c
	out.Ocean.Waves = append([]WaveConfig(nil), c.Ocean.Waves...)
	out.Trees.Varieties = append([]string(nil), c.Trees.Varieties...)
	if c.Buildings.Archetypes != nil {
		out.Buildings.Archetypes = make([]ArchetypeConfig, len(c.Buildings.Archetypes))
		for i, a := range c.Buildings.Archetypes {
			a.Shapes = append([]string(nil), a.Shapes...)
			a.Colors = append([]string(nil), a.Colors...)
			out.Buildings.Archetypes[i] = a
		}
	}
	return out
}

// Changed lists the yaml names of top level sections that differ between a
// and b.
func Changed(a, b *Config) []string {
	va, vb := reflect.ValueOf(a).Elem(), reflect.ValueOf(b).Elem()
	var out []string
	for i := range va.NumField() {
		if !reflect.DeepEqual(va.Field(i).Interface(), vb.Field(i).Interface()) {
			tag := va.Type().Field(i).Tag.Get("yaml")
			out = append(out, strings.Split(tag, ",")[0])
		}
	}
	return out
}
