package noise

import "math"

// Hash3 is the stateless sin-fract hash used for facade decisions. It returns a
// value in [0, 1) that depends only on the position.
func Hash3(x, y, z float64) float64 {
	v := math.Sin(x*12.9898+y*78.233+z*43.123) * 43758.5453
	return v - math.Floor(v)
}

// Unit maps a sample in [-1, 1] to [0, 1].
func Unit(n float64) float64 {
	return (n + 1) / 2
}
