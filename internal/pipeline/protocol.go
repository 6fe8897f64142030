package pipeline

import (
	"time"

	"procworld/internal/world"
)

// Opcode selects what a worker produces.
type Opcode uint8

const (
	// GeneratePrototype builds a domain's shared geometry template.
	GeneratePrototype Opcode = iota + 1
	// GenerateChunk builds the content of one chunk.
	GenerateChunk
)

func (o Opcode) String() string {
	switch o {
	case GeneratePrototype:
		return "GeneratePrototype"
	case GenerateChunk:
		return "GenerateChunk"
	default:
		return "Unknown"
	}
}

// Domain names a content layer with its own generator and chunk grid.
type Domain string

const (
	Grass     Domain = "grass"
	Flowers   Domain = "flowers"
	Trees     Domain = "trees"
	Roads     Domain = "roads"
	Buildings Domain = "buildings"
)

// Domains lists every content domain in dispatch order.
var Domains = []Domain{Roads, Buildings, Trees, Grass, Flowers}

// Request is sent to a worker. Params must be an immutable value; workers
// never see control loop state.
type Request struct {
	Opcode     Opcode
	ID         string
	Domain     Domain
	ChunkID    world.ChunkID
	Generation uint64
	Params     any
}

// Response is returned by a worker, in any order relative to other responses.
type Response struct {
	Opcode     Opcode
	ID         string
	Domain     Domain
	ChunkID    world.ChunkID
	Generation uint64
	Payload    any
	Err        error
	Elapsed    time.Duration
}
