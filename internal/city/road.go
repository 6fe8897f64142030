package city

import (
	"math"

	"procworld/internal/noise"
	"procworld/internal/world"
)

// RoadType is the category of a road cell.
type RoadType uint8

const (
	NoRoad RoadType = iota
	Street
	Main
)

func (t RoadType) String() string {
	switch t {
	case Main:
		return "main"
	case Street:
		return "street"
	default:
		return "none"
	}
}

// Orientation is the direction a road piece runs.
type Orientation uint8

const (
	Horizontal Orientation = iota
	Vertical
	Intersection
)

func (o Orientation) String() string {
	switch o {
	case Vertical:
		return "vertical"
	case Intersection:
		return "intersection"
	default:
		return "horizontal"
	}
}

// Cell is the classification of one road cell.
type Cell struct {
	Type        RoadType
	Orientation Orientation
}

// IsRoad reports whether the cell carries a road.
func (c Cell) IsRoad() bool { return c.Type != NoRoad }

const (
	mainEvery     = 8
	streetEvery   = 4
	mainCutoff    = -0.5
	streetCutoff  = 0.0
	roadFrequency = 0.01
)

// Sampler is the noise source a Classifier reads. *noise.Field satisfies it.
type Sampler interface {
	Sample3(x, y, z float64) float64
}

// Classifier assigns road categories to world positions. Results are a pure
// function of position and seed; the cache only avoids resampling cells
// already visited. A Classifier is not safe for concurrent use.
type Classifier struct {
	src   Sampler
	seed  int64
	cache map[[2]float64]RoadType
}

// NewClassifier returns a classifier over the simplex field for seed.
func NewClassifier(seed int64) *Classifier {
	return NewClassifierWith(noise.New(seed), seed)
}

// NewClassifierWith uses src as the noise source. seed is passed as the third
// noise coordinate.
func NewClassifierWith(src Sampler, seed int64) *Classifier {
	return &Classifier{src: src, seed: seed, cache: make(map[[2]float64]RoadType)}
}

// Type classifies the cell containing world position (x, z).
func (c *Classifier) Type(x, z float64) RoadType {
	key := [2]float64{x, z}
	if t, ok := c.cache[key]; ok {
		return t
	}
	t := c.classify(x, z)
	c.cache[key] = t
	return t
}

func (c *Classifier) classify(x, z float64) RoadType {
	gx := int64(math.Abs(math.Round(x / world.ChunkSize)))
	gz := int64(math.Abs(math.Round(z / world.ChunkSize)))
	isMain := gx%mainEvery == 0 || gz%mainEvery == 0
	isStreet := gx%streetEvery == 0 || gz%streetEvery == 0
	n := c.src.Sample3(x*roadFrequency, z*roadFrequency, float64(c.seed))
	switch {
	case isMain && n > mainCutoff:
		return Main
	case isStreet && n > streetCutoff:
		return Street
	default:
		return NoRoad
	}
}

// Classify returns the road type at (x, z) and its orientation, derived from
// the four axis neighbors one cell away. A road cell without road neighbors
// runs horizontally.
func (c *Classifier) Classify(x, z float64) Cell {
	t := c.Type(x, z)
	if t == NoRoad {
		return Cell{}
	}
	const step = world.ChunkSize
	alongX := c.Type(x-step, z) != NoRoad || c.Type(x+step, z) != NoRoad
	alongZ := c.Type(x, z-step) != NoRoad || c.Type(x, z+step) != NoRoad
	cell := Cell{Type: t}
	switch {
	case alongX && alongZ:
		cell.Orientation = Intersection
	case alongZ:
		cell.Orientation = Vertical
	default:
		cell.Orientation = Horizontal
	}
	return cell
}

// Classify is a one-shot classification without a shared cache.
func Classify(x, z float64, seed int64) Cell {
	return NewClassifier(seed).Classify(x, z)
}

// Chunk builds the road payload for one chunk: a single piece at the chunk
// center when the chunk origin is a road cell. The payload mesh is in
// chunk-local coordinates.
func Chunk(id world.ChunkID, seed int64) *world.Payload {
	return chunkWith(NewClassifier(seed), id)
}

func chunkWith(c *Classifier, id world.ChunkID) *world.Payload {
	ox, oz := id.Origin()
	cell := c.Classify(ox, oz)
	out := &world.Payload{}
	if !cell.IsRoad() {
		return out
	}
	var rotation float32
	if cell.Orientation == Vertical {
		rotation = math.Pi / 2
	}
	var flags uint8
	if cell.Orientation == Intersection {
		flags |= world.IntersectionFlag
	}
	half := float32(world.ChunkSize) / 2
	tint := RoadColor(cell.Type)
	out.Instances = append(out.Instances, world.Instance{
		X:        half,
		Z:        half,
		Rotation: rotation,
		ScaleXZ:  1,
		ScaleY:   1,
		Variant:  int(cell.Type),
		Flags:    flags,
		Tint:     [3]float32{tint[0], tint[1], tint[2]},
	})
	out.Mesh = Piece(cell).Transformed(placement(half, half, rotation))
	return out
}
