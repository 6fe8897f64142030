package lsystem

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"procworld/internal/lod"
	"procworld/internal/meshing"
	"procworld/internal/noise"
)

// ErrMalformedGrammar is returned when brackets in an expanded string do not
// balance.
var ErrMalformedGrammar = errors.New("lsystem: malformed grammar")

const (
	bendFrequency = 0.5
	bendStrength  = 0.2
	angleJitter   = 10.0 // degrees, full range
)

var (
	axisY     = mgl32.Vec3{0, 1, 0}
	axisZ     = mgl32.Vec3{0, 0, 1}
	barkColor = mgl32.Vec3{0.36, 0.25, 0.15}
)

// State is the turtle's saved state across a branch.
type State struct {
	Position mgl32.Vec3
	Heading  mgl32.Vec3
	Radius   float32
}

// Turtle walks an expanded string and emits branch and leaf geometry.
type Turtle struct {
	species  Species
	segments int
	seed     int64
	field    *noise.Field
	rng      *rand.Rand

	state  State
	length float64
	stack  []State
	mesh   *meshing.Mesh
}

// NewTurtle creates a turtle at the origin heading up.
func NewTurtle(sp Species, segments int, seed int64, rng *rand.Rand) *Turtle {
	return &Turtle{
		species:  sp,
		segments: segments,
		seed:     seed,
		field:    noise.New(seed),
		rng:      rng,
		state:    State{Heading: axisY, Radius: float32(sp.Width)},
		length:   sp.Length,
		mesh:     meshing.NewColored(),
	}
}

// Depth returns the current branch stack depth.
func (t *Turtle) Depth() int {
	return len(t.stack)
}

// Interpret runs the turtle over symbols. It fails with ErrMalformedGrammar on
// a pop with an empty stack or when branches remain open at the end.
func (t *Turtle) Interpret(symbols string) (*meshing.Mesh, error) {
	for i := 0; i < len(symbols); i++ {
		switch symbols[i] {
		case 'F':
			t.forward()
		case 'X':
			t.leaf()
		case '+':
			t.turn(1)
		case '-':
			t.turn(-1)
		case '[':
			t.stack = append(t.stack, t.state)
			t.length *= t.species.LengthDecay
			yaw := float32(t.rng.Float64() * 2 * math.Pi)
			t.state.Heading = mgl32.QuatRotate(yaw, axisY).Rotate(t.state.Heading)
		case ']':
			if len(t.stack) == 0 {
				return nil, fmt.Errorf("%w: unmatched ']' at %d", ErrMalformedGrammar, i)
			}
			t.state = t.stack[len(t.stack)-1]
			t.stack = t.stack[:len(t.stack)-1]
			t.length /= t.species.LengthDecay
		}
	}
	if len(t.stack) != 0 {
		return nil, fmt.Errorf("%w: %d unclosed '['", ErrMalformedGrammar, len(t.stack))
	}
	return t.mesh, nil
}

func (t *Turtle) forward() {
	s := &t.state
	end := s.Position.Add(s.Heading.Mul(float32(t.length)))

	// the bend applies to the heading of the next segment
	p := s.Position
	n := t.field.Sample3(float64(p[0])*bendFrequency, float64(p[1])*bendFrequency, float64(p[2])*bendFrequency+float64(t.seed))
	s.Heading = mgl32.QuatRotate(float32(n*bendStrength), axisZ).Rotate(s.Heading)

	next := s.Radius * float32(t.species.WidthDecay)
	t.mesh.Cylinder(s.Position, end, s.Radius, next, t.segments, barkColor)
	s.Position = end
	s.Radius = next
}

func (t *Turtle) turn(sign float64) {
	deg := t.species.Angle + (t.rng.Float64()-0.5)*angleJitter
	rad := float32(sign * deg * math.Pi / 180)
	t.state.Heading = mgl32.QuatRotate(rad, axisZ).Rotate(t.state.Heading)
}

func (t *Turtle) leaf() {
	size := float32(t.species.LeafSize)
	p := t.state.Position
	c := t.species.LeafColor
	switch t.species.Leaf {
	case LeafDiamond:
		up := axisY
		a := t.mesh.Add(meshing.Vertex{Pos: p.Add(mgl32.Vec3{-size / 2, 0, 0}), Normal: up, UV: mgl32.Vec2{0, 0}, Color: c})
		b := t.mesh.Add(meshing.Vertex{Pos: p.Add(mgl32.Vec3{size / 2, 0, 0}), Normal: up, UV: mgl32.Vec2{1, 0}, Color: c})
		d := t.mesh.Add(meshing.Vertex{Pos: p.Add(mgl32.Vec3{0, size, 0}), Normal: up, UV: mgl32.Vec2{0.5, 1}, Color: c})
		t.mesh.Triangle(a, b, d)
		t.mesh.Triangle(a, d, b)
	case LeafSphere:
		puff := meshing.NewColored()
		puff.CrossedQuads(size, size, c)
		t.mesh.Append(puff.Transformed(mgl32.Translate3D(p[0], p[1]-size/2, p[2])))
	}
}

// SegmentsAt is the cylinder ring resolution for a tier.
func SegmentsAt(t lod.Tier) int {
	if t == lod.High {
		return 6
	}
	return 4
}

// Grow expands and interprets a species at a detail tier. The same seed
// always grows the same tree.
func Grow(sp Species, tier lod.Tier, seed int64) (*meshing.Mesh, error) {
	iterations := lod.TreeIterationsAt(tier, sp.Iterations)
	if iterations == 0 {
		return nil, fmt.Errorf("tier %v has no grown geometry", tier)
	}
	rng := rand.New(rand.NewSource(seed))
	symbols, err := sp.Grammar.Expand(iterations, rng)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sp.Name, err)
	}
	m, err := NewTurtle(sp, SegmentsAt(tier), seed, rng).Interpret(symbols)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sp.Name, err)
	}
	return m, nil
}
