package noise

import "math"

const (
	f3 = 1.0 / 3.0
	g3 = 1.0 / 6.0

	// MaxOctaves bounds FBM; higher octaves fall below float32 visibility at the
	// amplitudes used for terrain.
	MaxOctaves = 5
)

var grad3 = [12][3]float64{
	{1, 1, 0}, {-1, 1, 0}, {1, -1, 0}, {-1, -1, 0},
	{1, 0, 1}, {-1, 0, 1}, {1, 0, -1}, {-1, 0, -1},
	{0, 1, 1}, {0, -1, 1}, {0, 1, -1}, {0, -1, -1},
}

// Field is a seeded 3D simplex noise sampler. The permutation table is built once
// in New and never mutated, so a Field may be shared between goroutines.
// Re-seeding means constructing a new Field.
type Field struct {
	seed int64
	perm [512]uint8
}

// New builds the permutation table for seed with a linear congruential
// generator (s' = s*1664525 + 1013904223 mod 2^32). The table is duplicated to
// 512 entries so corner lookups never wrap.
func New(seed int64) *Field {
	f := &Field{seed: seed}
	s := uint32(seed)
	var p [256]uint8
	for i := range p {
		s = s*1664525 + 1013904223
		p[i] = uint8(s >> 24) // floor(s / 2^32 * 256)
	}
	for i := range f.perm {
		f.perm[i] = p[i&255]
	}
	return f
}

// Seed returns the seed the field was built from.
func (f *Field) Seed() int64 {
	return f.seed
}

// Sample3 returns simplex noise at (x, y, z), roughly in [-1, 1].
func (f *Field) Sample3(x, y, z float64) float64 {
	// Skew input space to find the simplex cell
	s := (x + y + z) * f3
	i := math.Floor(x + s)
	j := math.Floor(y + s)
	k := math.Floor(z + s)
	t := (i + j + k) * g3
	x0 := x - (i - t)
	y0 := y - (j - t)
	z0 := z - (k - t)

	// Pick the two intermediate corners from the ordering of x0, y0, z0
	var i1, j1, k1, i2, j2, k2 int
	if x0 >= y0 {
		switch {
		case y0 >= z0:
			i1, j1, k1, i2, j2, k2 = 1, 0, 0, 1, 1, 0
		case x0 >= z0:
			i1, j1, k1, i2, j2, k2 = 1, 0, 0, 1, 0, 1
		default:
			i1, j1, k1, i2, j2, k2 = 0, 0, 1, 1, 0, 1
		}
	} else {
		switch {
		case y0 < z0:
			i1, j1, k1, i2, j2, k2 = 0, 0, 1, 0, 1, 1
		case x0 < z0:
			i1, j1, k1, i2, j2, k2 = 0, 1, 0, 0, 1, 1
		default:
			i1, j1, k1, i2, j2, k2 = 0, 1, 0, 1, 1, 0
		}
	}

	x1 := x0 - float64(i1) + g3
	y1 := y0 - float64(j1) + g3
	z1 := z0 - float64(k1) + g3
	x2 := x0 - float64(i2) + 2*g3
	y2 := y0 - float64(j2) + 2*g3
	z2 := z0 - float64(k2) + 2*g3
	x3 := x0 - 1 + 3*g3
	y3 := y0 - 1 + 3*g3
	z3 := z0 - 1 + 3*g3

	ii := int(i) & 255
	jj := int(j) & 255
	kk := int(k) & 255
	p := &f.perm
	gi0 := p[ii+int(p[jj+int(p[kk])])] % 12
	gi1 := p[ii+i1+int(p[jj+j1+int(p[kk+k1])])] % 12
	gi2 := p[ii+i2+int(p[jj+j2+int(p[kk+k2])])] % 12
	gi3 := p[ii+1+int(p[jj+1+int(p[kk+1])])] % 12

	n := corner(gi0, x0, y0, z0) +
		corner(gi1, x1, y1, z1) +
		corner(gi2, x2, y2, z2) +
		corner(gi3, x3, y3, z3)
	return 32 * n
}

func corner(gi uint8, x, y, z float64) float64 {
	t := 0.6 - x*x - y*y - z*z
	if t < 0 {
		return 0
	}
	t *= t
	g := grad3[gi]
	return t * t * (g[0]*x + g[1]*y + g[2]*z)
}

// FBM sums octaves of Sample3 at doubling frequency and halving amplitude.
// octaves is clamped to [1, MaxOctaves].
func (f *Field) FBM(x, y, z float64, octaves int) float64 {
	octaves = min(max(octaves, 1), MaxOctaves)
	sum := 0.0
	amp := 1.0
	freq := 1.0
	for range octaves {
		sum += f.Sample3(x*freq, y*freq, z*freq) * amp
		freq *= 2
		amp *= 0.5
	}
	return sum
}
