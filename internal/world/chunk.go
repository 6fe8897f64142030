package world

import (
	"fmt"
	"math"

	"procworld/internal/lod"
)

// ChunkSize is the edge length of a chunk cell in world units.
const ChunkSize = 10

// ChunkID identifies a chunk cell by its integer grid coordinates.
type ChunkID struct {
	X, Z int32
}

func (id ChunkID) String() string {
	return fmt.Sprintf("%d,%d", id.X, id.Z)
}

// ChunkOf returns the chunk containing world position (x, z).
func ChunkOf(x, z float64) ChunkID {
	return ChunkID{
		X: int32(math.Floor(x / ChunkSize)),
		Z: int32(math.Floor(z / ChunkSize)),
	}
}

// Origin returns the world position of the chunk's minimum corner. A chunk
// covers [origin, origin+ChunkSize) on both axes.
func (id ChunkID) Origin() (x, z float64) {
	return float64(id.X) * ChunkSize, float64(id.Z) * ChunkSize
}

// Center returns the world position of the cell center.
func (id ChunkID) Center() (x, z float64) {
	ox, oz := id.Origin()
	return ox + ChunkSize/2, oz + ChunkSize/2
}

// Contains reports whether world position (x, z) lies inside the chunk.
func (id ChunkID) Contains(x, z float64) bool {
	ox, oz := id.Origin()
	return x >= ox && x < ox+ChunkSize && z >= oz && z < oz+ChunkSize
}

// DistanceTo returns the distance from the cell center to (x, z).
func (id ChunkID) DistanceTo(x, z float64) float64 {
	cx, cz := id.Center()
	return math.Hypot(cx-x, cz-z)
}

// Offset returns the chunk dx, dz cells away.
func (id ChunkID) Offset(dx, dz int32) ChunkID {
	return ChunkID{X: id.X + dx, Z: id.Z + dz}
}

// MaxLoadReach is the farthest a cell center in a neighborhood of the given
// radius can be from an observer inside the central cell.
func MaxLoadReach(neighborhood int) float64 {
	return (float64(neighborhood) + 0.5) * ChunkSize * math.Sqrt2
}

// GuaranteedLoadRadius is the distance within which every cell center is part
// of the neighborhood, wherever the observer stands in the central cell.
func GuaranteedLoadRadius(neighborhood int) float64 {
	return float64(neighborhood) * ChunkSize
}

// State is a chunk's position in its lifecycle.
type State uint8

const (
	Requested State = iota
	Generating
	Resident
	Evicting
)

func (s State) String() string {
	switch s {
	case Requested:
		return "requested"
	case Generating:
		return "generating"
	case Resident:
		return "resident"
	case Evicting:
		return "evicting"
	default:
		return "unknown"
	}
}

// Chunk is the control loop's record of one cell in one domain.
type Chunk struct {
	ID       ChunkID
	State    State
	Distance float64
	Tier     lod.Tier

	// Generation is the configuration generation the chunk was created under.
	// Responses from another generation are stale.
	Generation uint64
	// RequestID is the id of the outstanding generation request, if any.
	RequestID string

	// Raw is the worker payload in chunk-local coordinates. It is retained so
	// the chunk can be re-coupled after a terrain rebake.
	Raw *Payload
	// Placed is Raw after height coupling, in world coordinates.
	Placed *Payload
	// Err is the last generation error for the chunk.
	Err error
}

// Free drops the chunk's payloads.
func (c *Chunk) Free() {
	c.Raw = nil
	c.Placed = nil
}
