package city

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"procworld/internal/noise"
	"procworld/internal/world"
)

// Shape is a building massing type.
type Shape uint8

const (
	Box Shape = iota
	LShape
	Stepped
	Tower
)

var shapeNames = [...]string{Box: "box", LShape: "L-shape", Stepped: "stepped", Tower: "tower"}

func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return fmt.Sprintf("shape(%d)", s)
}

// ParseShape maps a shape name to its Shape.
func ParseShape(name string) (Shape, error) {
	for i, n := range shapeNames {
		if n == name {
			return Shape(i), nil
		}
	}
	return 0, fmt.Errorf("unknown building shape %q", name)
}

var (
	ErrNoShapes   = errors.New("archetype has no shapes")
	ErrNoColors   = errors.New("archetype has no colors")
	ErrBadRange   = errors.New("range minimum exceeds maximum")
	ErrBadFacade  = errors.New("invalid facade parameters")
	ErrArchetypes = errors.New("wrong number of archetypes")
)

// Archetype is one building class.
type Archetype struct {
	Name          string
	Shapes        []Shape
	Width         [2]float64
	Height        [2]float64
	Depth         [2]float64
	WindowDensity float64
	FloorHeight   float64
	Colors        []mgl32.Vec3
}

// Validate reports the first problem with a.
func (a Archetype) Validate() error {
	if len(a.Shapes) == 0 {
		return ErrNoShapes
	}
	if len(a.Colors) == 0 {
		return ErrNoColors
	}
	for _, r := range [][2]float64{a.Width, a.Height, a.Depth} {
		if r[0] > r[1] || r[0] <= 0 {
			return fmt.Errorf("%w: [%g, %g]", ErrBadRange, r[0], r[1])
		}
	}
	if a.WindowDensity < 0 || a.WindowDensity > 1 || a.FloorHeight <= 0 {
		return fmt.Errorf("%w: window density %g, floor height %g", ErrBadFacade, a.WindowDensity, a.FloorHeight)
	}
	return nil
}

// Archetype bands, in selection order.
const (
	Residential = iota
	Industrial
	Commercial
	Office
	Skyscraper
	NumArchetypes
)

// ArchetypeNames lists the archetypes in band order.
var ArchetypeNames = [NumArchetypes]string{"residential", "industrial", "commercial", "office", "skyscraper"}

// bandEdges are the inclusive upper density bounds of each band.
var bandEdges = [NumArchetypes]float64{0, 0.2, 0.4, 0.6, math.Inf(1)}

const emptyBelow = -0.2

// SelectArchetype maps a density sample to an archetype index. ok is false
// when the density is too low for any building.
func SelectArchetype(density float64) (int, bool) {
	if density < emptyBelow {
		return -1, false
	}
	for i, edge := range bandEdges {
		if density <= edge {
			return i, true
		}
	}
	return Skyscraper, true
}

// DefaultArchetypes returns the built-in archetypes in band order.
func DefaultArchetypes() []Archetype {
	return []Archetype{
		{
			Name: "residential", Shapes: []Shape{Box, LShape},
			Width: [2]float64{6, 8}, Height: [2]float64{6, 15}, Depth: [2]float64{6, 8},
			WindowDensity: 0.4, FloorHeight: 3.0,
			Colors: hexColors(0xD2B48C, 0xF5DEB3, 0xDEB887, 0xBC8F8F),
		},
		{
			Name: "industrial", Shapes: []Shape{Box, LShape},
			Width: [2]float64{8, 9.5}, Height: [2]float64{6, 12}, Depth: [2]float64{8, 9.5},
			WindowDensity: 0.2, FloorHeight: 4.0,
			Colors: hexColors(0x8B4513, 0xA0522D, 0xCD853F, 0x556B2F),
		},
		{
			Name: "commercial", Shapes: []Shape{Box, LShape, Stepped},
			Width: [2]float64{7, 9}, Height: [2]float64{10, 25}, Depth: [2]float64{7, 9},
			WindowDensity: 0.6, FloorHeight: 3.5,
			Colors: hexColors(0xA9A9A9, 0x808080, 0x708090, 0x778899),
		},
		{
			Name: "office", Shapes: []Shape{Box, Stepped, Tower},
			Width: [2]float64{8, 9.5}, Height: [2]float64{20, 40}, Depth: [2]float64{8, 9.5},
			WindowDensity: 0.8, FloorHeight: 3.5,
			Colors: hexColors(0xB0C4DE, 0xADD8E6, 0x87CEEB, 0x4682B4),
		},
		{
			Name: "skyscraper", Shapes: []Shape{Tower, Stepped},
			Width: [2]float64{8, 9.5}, Height: [2]float64{50, 100}, Depth: [2]float64{8, 9.5},
			WindowDensity: 0.9, FloorHeight: 3.5,
			Colors: hexColors(0x191970, 0x000080, 0x483D8B, 0x2F4F4F),
		},
	}
}

func hexColors(vs ...uint32) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(vs))
	for i, v := range vs {
		out[i] = HexColor(v)
	}
	return out
}

// HexColor converts 0xRRGGBB to a linear 0..1 color.
func HexColor(v uint32) mgl32.Vec3 {
	return mgl32.Vec3{float32(v>>16&0xff) / 255, float32(v>>8&0xff) / 255, float32(v&0xff) / 255}
}

// Building is a placed building in chunk-local coordinates.
type Building struct {
	Archetype int
	Shape     Shape
	Width     float64
	Height    float64
	Depth     float64
	Color     mgl32.Vec3
	Rotation  float64
	X, Z      float64
}

const (
	densityFrequency = 0.005
	drawFrequency    = 0.1
	densitySeedShift = 100
	drawSeedShift    = 200
)

// draw offsets, one independent noise stream per property.
const (
	drawWidth    = 0
	drawHeight   = 10
	drawDepth    = 20
	drawShape    = 30
	drawColor    = 40
	drawRotation = 50
)

// Placer decides which building, if any, stands in a chunk. It caches road
// lookups and is not safe for concurrent use.
type Placer struct {
	seed       int64
	field      *noise.Field
	roads      *Classifier
	archetypes []Archetype
}

// NewPlacer validates archetypes, which must be given in band order.
func NewPlacer(seed int64, archetypes []Archetype) (*Placer, error) {
	if len(archetypes) != NumArchetypes {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrArchetypes, len(archetypes), NumArchetypes)
	}
	for _, a := range archetypes {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("archetype %s: %w", a.Name, err)
		}
	}
	field := noise.New(seed)
	return &Placer{
		seed:       seed,
		field:      field,
		roads:      NewClassifierWith(field, seed),
		archetypes: archetypes,
	}, nil
}

// Place decides the building for chunk id. ok is false on road cells and
// where the density is too low.
func (p *Placer) Place(id world.ChunkID) (b Building, ok bool) {
	x, z := id.Origin()
	if p.roads.Type(x, z) != NoRoad {
		return b, false
	}
	density := p.field.Sample3(x*densityFrequency, z*densityFrequency, float64(p.seed+densitySeedShift))
	idx, ok := SelectArchetype(density)
	if !ok {
		return b, false
	}
	a := p.archetypes[idx]
	half := float64(world.ChunkSize) / 2
	b = Building{
		Archetype: idx,
		Shape:     a.Shapes[pick(p.draw(x, z, drawShape), len(a.Shapes))],
		Width:     lerp(a.Width, p.draw(x, z, drawWidth)),
		Height:    lerp(a.Height, p.draw(x, z, drawHeight)),
		Depth:     lerp(a.Depth, p.draw(x, z, drawDepth)),
		Color:     a.Colors[pick(p.draw(x, z, drawColor), len(a.Colors))],
		Rotation:  p.facing(x, z),
		X:         half,
		Z:         half,
	}
	return b, true
}

// draw is an independent uniform sample in [0, 1] for one property.
func (p *Placer) draw(x, z, offset float64) float64 {
	n := p.field.Sample3(x*drawFrequency+offset, z*drawFrequency+offset, float64(p.seed+drawSeedShift))
	return noise.Unit(n)
}

// facing turns the front of the building toward an adjacent road cell.
func (p *Placer) facing(x, z float64) float64 {
	const step = world.ChunkSize
	switch {
	case p.roads.Type(x, z+step) != NoRoad:
		return 0
	case p.roads.Type(x-step, z) != NoRoad:
		return -math.Pi / 2
	case p.roads.Type(x, z-step) != NoRoad:
		return math.Pi
	case p.roads.Type(x+step, z) != NoRoad:
		return math.Pi / 2
	}
	return p.draw(x, z, drawRotation) * 2 * math.Pi
}

// Chunk builds the building payload for one chunk.
func (p *Placer) Chunk(id world.ChunkID) *world.Payload {
	out := &world.Payload{}
	b, ok := p.Place(id)
	if !ok {
		return out
	}
	a := p.archetypes[b.Archetype]
	out.Instances = append(out.Instances, world.Instance{
		X:        float32(b.X),
		Z:        float32(b.Z),
		Rotation: float32(b.Rotation),
		ScaleXZ:  1,
		ScaleY:   1,
		Variant:  b.Archetype,
		Size:     [3]float32{float32(b.Width), float32(b.Height), float32(b.Depth)},
		Tint:     [3]float32{b.Color[0], b.Color[1], b.Color[2]},
	})
	mesh := Facades(Massing(b.Shape, b.Width, b.Height, b.Depth), a.WindowDensity, a.FloorHeight)
	out.Mesh = mesh.Transformed(placement(float32(b.X), float32(b.Z), float32(b.Rotation)))
	return out
}

func lerp(r [2]float64, t float64) float64 {
	return r[0] + t*(r[1]-r[0])
}

func pick(t float64, n int) int {
	return min(max(int(t*float64(n)), 0), n-1)
}
