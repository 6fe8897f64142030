package main

import (
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// observerPath maps elapsed time to an observer position on the XZ plane.
type observerPath func(t time.Duration) mgl32.Vec3

func parsePath(kind string, speed, radius float64) (observerPath, error) {
	if speed < 0 {
		return nil, fmt.Errorf("speed must be >= 0, got %v", speed)
	}
	switch kind {
	case "circle":
		if radius <= 0 {
			return nil, fmt.Errorf("radius must be > 0, got %v", radius)
		}
		return func(t time.Duration) mgl32.Vec3 {
			a := speed * t.Seconds() / radius
			return mgl32.Vec3{float32(radius * math.Cos(a)), 0, float32(radius * math.Sin(a))}
		}, nil
	case "line":
		return func(t time.Duration) mgl32.Vec3 {
			return mgl32.Vec3{float32(speed * t.Seconds()), 0, 0}
		}, nil
	case "still":
		return func(time.Duration) mgl32.Vec3 { return mgl32.Vec3{} }, nil
	}
	return nil, fmt.Errorf("unknown path %q (want circle, line or still)", kind)
}
