package world

import (
	"procworld/internal/lod"
	"procworld/internal/meshing"
)

// Instance is one placed item: a grass blade, flower, tree, road piece or
// building. X and Z are chunk-local until height coupling moves them to world
// space; Y is the sampled ground height.
type Instance struct {
	X, Z     float32
	Y        float32
	Rotation float32
	ScaleXZ  float32
	ScaleY   float32
	// Variant is the color index, species index, road kind or archetype index
	// depending on the domain.
	Variant int
	// Flags carries domain specific bits such as IntersectionFlag.
	Flags uint8
	// Size is the footprint and height of a building instance.
	Size [3]float32
	// Tint is the base color for instances whose mesh only carries masks.
	Tint [3]float32
}

// IntersectionFlag marks a road piece where both axes continue.
const IntersectionFlag uint8 = 1

// Payload is the content generated for one chunk. Either part may be empty.
type Payload struct {
	Instances []Instance
	// Mesh is raw geometry in the same coordinate space as Instances.
	Mesh *meshing.Mesh
}

// Empty reports whether the payload holds nothing to render.
func (p *Payload) Empty() bool {
	return p == nil || (len(p.Instances) == 0 && (p.Mesh == nil || p.Mesh.VertexCount() == 0))
}

// Prototype is the shared geometry a domain's instances reference.
// Instance.Variant indexes Variants.
type Prototype struct {
	Variants []Variant
}

// Variant is one template at each detail tier. Err is set when the template
// could not be built; instances of a failed variant are skipped.
type Variant struct {
	Name  string
	Tiers [3]*meshing.Mesh // indexed by lod.Tier
	Err   error
}

// Mesh returns the variant's mesh for tier t.
func (v *Variant) Mesh(t lod.Tier) *meshing.Mesh {
	if int(t) >= len(v.Tiers) {
		return nil
	}
	return v.Tiers[t]
}

// Variant returns variant i, or nil when out of range.
func (p *Prototype) Variant(i int) *Variant {
	if p == nil || i < 0 || i >= len(p.Variants) {
		return nil
	}
	return &p.Variants[i]
}
