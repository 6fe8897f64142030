package engine

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"

	"procworld/internal/heightmap"
	"procworld/internal/world"
)

// couple places a chunk's raw payload on the terrain. Raw instances are
// chunk-local; the result is in world space.
func couple(s *stream, c *world.Chunk, sampler *heightmap.Sampler, oceanLevel float64) *world.Payload {
	if c.Raw == nil {
		return &world.Payload{}
	}
	if s.coupling == coupleGround {
		return coupleGroundPayload(c.ID, c.Raw, sampler)
	}
	return coupleVegetationPayload(c.ID, c.Raw, sampler, oceanLevel, s.proto)
}

// coupleVegetationPayload keeps instances that stand on covered terrain at or
// above the ocean level and whose variant has geometry.
func coupleVegetationPayload(id world.ChunkID, raw *world.Payload, sampler *heightmap.Sampler, oceanLevel float64, proto *world.Prototype) *world.Payload {
	ox, oz := id.Origin()
	out := &world.Payload{Instances: make([]world.Instance, 0, len(raw.Instances))}
	for _, in := range raw.Instances {
		if proto != nil {
			if v := proto.Variant(in.Variant); v == nil || v.Err != nil {
				continue
			}
		}
		wx, wz := ox+float64(in.X), oz+float64(in.Z)
		h, err := sampler.HeightAt(wx, wz)
		if errors.Is(err, heightmap.ErrOutOfCoverage) || h < oceanLevel {
			continue
		}
		in.X, in.Z, in.Y = float32(wx), float32(wz), float32(h)
		out.Instances = append(out.Instances, in)
	}
	return out
}

// coupleGroundPayload lifts a road or building chunk to the terrain height at
// the chunk center.
func coupleGroundPayload(id world.ChunkID, raw *world.Payload, sampler *heightmap.Sampler) *world.Payload {
	ox, oz := id.Origin()
	cx, cz := id.Center()
	ground := sampler.HeightOr(cx, cz, 0)
	out := &world.Payload{Instances: make([]world.Instance, 0, len(raw.Instances))}
	for _, in := range raw.Instances {
		in.X += float32(ox)
		in.Z += float32(oz)
		in.Y = float32(ground)
		out.Instances = append(out.Instances, in)
	}
	if raw.Mesh != nil {
		out.Mesh = raw.Mesh.Transformed(mgl32.Translate3D(float32(ox), float32(ground), float32(oz)))
	}
	return out
}
