package city

import (
	"github.com/go-gl/mathgl/mgl32"

	"procworld/internal/meshing"
	"procworld/internal/world"
)

const (
	roadWidth   = 8
	roadLift    = 0.05
	stripeWidth = 0.2
	stripeLift  = 0.06
)

var (
	mainColor   = mgl32.Vec3{0.25, 0.25, 0.27}
	streetColor = mgl32.Vec3{0.17, 0.17, 0.18}
	stripeColor = mgl32.Vec3{0.9, 0.8, 0.2}
)

// RoadColor is the asphalt tint for a road type.
func RoadColor(t RoadType) mgl32.Vec3 {
	if t == Main {
		return mainColor
	}
	return streetColor
}

// Piece is the road geometry for a cell, centered on the origin and running
// along x. Vertical pieces get their rotation from the instance, so Piece
// treats them like horizontal ones. Intersections add the two cross arms.
func Piece(c Cell) *meshing.Mesh {
	m := meshing.NewColored()
	if !c.IsRoad() {
		return m
	}
	color := RoadColor(c.Type)
	half := float32(world.ChunkSize) / 2
	hw := float32(roadWidth) / 2
	flat(m, -half, -hw, half, hw, roadLift, color)
	if c.Orientation == Intersection {
		flat(m, -hw, -half, hw, -hw, roadLift, color)
		flat(m, -hw, hw, hw, half, roadLift, color)
		return m
	}
	if c.Type == Main {
		sw := float32(stripeWidth) / 2
		flat(m, -half, -sw, half, sw, stripeLift, stripeColor)
	}
	return m
}

// flat appends an upward facing rectangle spanning [x0,x1] x [z0,z1] at height y.
func flat(m *meshing.Mesh, x0, z0, x1, z1, y float32, color mgl32.Vec3) {
	m.Quad(
		mgl32.Vec3{x0, y, z0},
		mgl32.Vec3{x0, y, z1},
		mgl32.Vec3{x1, y, z0},
		mgl32.Vec3{x1, y, z1},
		mgl32.Vec3{0, 1, 0}, color, false,
	)
}

// placement moves geometry built around the origin to chunk-local (x, z) with
// a yaw of rotation radians.
func placement(x, z, rotation float32) mgl32.Mat4 {
	return mgl32.Translate3D(x, 0, z).Mul4(mgl32.HomogRotate3DY(rotation))
}
