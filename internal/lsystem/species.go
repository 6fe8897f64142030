package lsystem

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// LeafStyle selects the geometry emitted for X symbols.
type LeafStyle uint8

const (
	LeafNone LeafStyle = iota
	LeafDiamond
	LeafSphere
)

// ParseLeafStyle maps a style name to a LeafStyle.
func ParseLeafStyle(s string) (LeafStyle, error) {
	switch s {
	case "none", "":
		return LeafNone, nil
	case "diamond":
		return LeafDiamond, nil
	case "sphere":
		return LeafSphere, nil
	}
	return LeafNone, fmt.Errorf("unknown leaf style %q", s)
}

func (l LeafStyle) String() string {
	switch l {
	case LeafDiamond:
		return "diamond"
	case LeafSphere:
		return "sphere"
	default:
		return "none"
	}
}

// Species describes how one kind of tree grows.
type Species struct {
	Name        string
	Grammar     Grammar
	Angle       float64 // degrees
	Iterations  int
	Length      float64
	Width       float64
	LengthDecay float64
	WidthDecay  float64
	Leaf        LeafStyle
	LeafSize    float64
	LeafColor   mgl32.Vec3
}

var presets = map[string]Species{
	"conifer": {
		Grammar: Grammar{Axiom: "X", Rules: []Rule{{Predecessor: 'X', Successor: "F[@[-X]+X]"}}},
		Angle: 25, Iterations: 5, Length: 1.5, Width: 0.4, LengthDecay: 0.8, WidthDecay: 0.7,
		Leaf: LeafDiamond, LeafSize: 0.4, LeafColor: mgl32.Vec3{0.13, 0.33, 0.18},
	},
	"deciduous": {
		Grammar: Grammar{Axiom: "F", Rules: []Rule{{Predecessor: 'F', Successor: "FF+[+F-F-F]-[-F+F+F]"}}},
		Angle: 22, Iterations: 3, Length: 1.2, Width: 0.5, LengthDecay: 0.7, WidthDecay: 0.6,
		Leaf: LeafSphere, LeafSize: 0.6, LeafColor: mgl32.Vec3{0.24, 0.5, 0.2},
	},
	"bush": {
		Grammar: Grammar{Axiom: "X", Rules: []Rule{
			{Predecessor: 'X', Successor: "F[+X]F[-X]+X"},
			{Predecessor: 'F', Successor: "FF"},
		}},
		Angle: 20, Iterations: 4, Length: 0.5, Width: 0.2, LengthDecay: 0.9, WidthDecay: 0.8,
		Leaf: LeafSphere, LeafSize: 0.3, LeafColor: mgl32.Vec3{0.3, 0.55, 0.22},
	},
	"willow": {
		Grammar: Grammar{Axiom: "X", Rules: []Rule{
			{Predecessor: 'X', Successor: "F[+X][-X]FX"},
			{Predecessor: 'F', Successor: "FF"},
		}},
		Angle: 15, Iterations: 4, Length: 1.0, Width: 0.3, LengthDecay: 0.85, WidthDecay: 0.7,
		Leaf: LeafDiamond, LeafSize: 0.3, LeafColor: mgl32.Vec3{0.42, 0.6, 0.3},
	},
	"palm": {
		Grammar: Grammar{Axiom: "F", Rules: []Rule{{Predecessor: 'F', Successor: "F[+F]F[-F]F"}}},
		Angle: 10, Iterations: 4, Length: 1.5, Width: 0.6, LengthDecay: 0.9, WidthDecay: 0.8,
		Leaf: LeafDiamond, LeafSize: 0.8, LeafColor: mgl32.Vec3{0.3, 0.6, 0.25},
	},
}

// Preset returns a built-in species by name.
func Preset(name string) (Species, bool) {
	sp, ok := presets[name]
	if !ok {
		return Species{}, false
	}
	sp.Name = name
	sp.Grammar.Rules = append([]Rule(nil), sp.Grammar.Rules...)
	return sp, true
}

// PresetNames lists the built-in species, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate checks the numeric parameters. Bracket balance is not checked
// here; it surfaces as ErrMalformedGrammar when the tree is grown.
func (s Species) Validate() error {
	if err := s.Grammar.Validate(); err != nil {
		return err
	}
	switch {
	case s.Iterations < 1 || s.Iterations > 8:
		return fmt.Errorf("iterations %d outside [1,8]", s.Iterations)
	case s.Length <= 0 || s.Width <= 0:
		return fmt.Errorf("length %v and width %v must be positive", s.Length, s.Width)
	case s.LengthDecay <= 0 || s.LengthDecay > 1 || s.WidthDecay <= 0 || s.WidthDecay > 1:
		return fmt.Errorf("decays %v/%v outside (0,1]", s.LengthDecay, s.WidthDecay)
	}
	return nil
}
