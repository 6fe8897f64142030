package config

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"procworld/internal/city"
	"procworld/internal/heightmap"
	"procworld/internal/ocean"
	"procworld/internal/scatter"
)

// Default returns a configuration that runs without a config file.
func Default() Config {
	return Config{
		Terrain: TerrainConfig{
			Scale:          0.03,
			Amplitude:      8,
			Octaves:        4,
			PhysicalSize:   200,
			Resolution:     256,
			Position:       [3]float64{0, -2, 0},
			RebakeDebounce: Duration(heightmap.DefaultDebounce),
		},
		Ocean: OceanConfig{
			Level: 0.5,
			Waves: defaultWaves(),
		},
		Grass: GrassConfig{
			ScatterConfig: ScatterConfig{
				StreamConfig: StreamConfig{Neighborhood: 1, UnloadRadius: 40},
				Seed:         42,
				SeedOffset:   scatter.GrassSeedOffset,
				Density:      1,
				Threshold:    0,
			},
		},
		Flowers: FlowerConfig{
			ScatterConfig: ScatterConfig{
				StreamConfig: StreamConfig{Neighborhood: 1, UnloadRadius: 50},
				Seed:         42,
				SeedOffset:   scatter.FlowerSeedOffset,
				Density:      1,
				Threshold:    0.2,
			},
			Petals: 5,
		},
		Trees: TreeConfig{
			StreamConfig: StreamConfig{Neighborhood: 1, UnloadRadius: 40},
			Seed:         42,
			Density:      0.3,
			Varieties:    []string{"conifer", "deciduous", "bush"},
			SizeRange:    [2]float64{0.8, 1.5},
		},
		Roads: RoadConfig{
			StreamConfig: StreamConfig{Neighborhood: 2, UnloadRadius: 60},
			Seed:         12345,
		},
		Buildings: BuildingConfig{
			StreamConfig: StreamConfig{Neighborhood: 2, UnloadRadius: 60},
			Seed:         12345,
			Archetypes:   defaultArchetypes(),
		},
		Pipeline: PipelineConfig{
			Workers:           4,
			QueueSize:         256,
			DispatchPerSecond: 240,
			DispatchBurst:     64,
			MaxResultsPerTick: 64,
		},
	}
}

func defaultWaves() []WaveConfig {
	ws := ocean.DefaultWaves()
	out := make([]WaveConfig, len(ws))
	for i, w := range ws {
		out[i] = WaveConfig{
			Amplitude:  w.Amplitude,
			Wavelength: w.Wavelength,
			Direction:  [2]float64{float64(w.Direction[0]), float64(w.Direction[1])},
			Speed:      w.Speed,
			Steepness:  w.Steepness,
		}
	}
	return out
}

func defaultArchetypes() []ArchetypeConfig {
	as := city.DefaultArchetypes()
	out := make([]ArchetypeConfig, len(as))
	for i, a := range as {
		c := ArchetypeConfig{
			Name:          a.Name,
			Width:         a.Width,
			Height:        a.Height,
			Depth:         a.Depth,
			WindowDensity: a.WindowDensity,
			FloorHeight:   a.FloorHeight,
		}
		for _, s := range a.Shapes {
			c.Shapes = append(c.Shapes, s.String())
		}
		for _, col := range a.Colors {
			c.Colors = append(c.Colors, hexColor(col))
		}
		out[i] = c
	}
	return out
}

func hexColor(c mgl32.Vec3) string {
	b := func(v float32) int { return int(math.Round(float64(v) * 255)) }
	return fmt.Sprintf("#%02X%02X%02X", b(c[0]), b(c[1]), b(c[2]))
}
