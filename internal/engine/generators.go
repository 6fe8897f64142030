package engine

import (
	"context"
	"fmt"

	"procworld/internal/city"
	"procworld/internal/lsystem"
	"procworld/internal/pipeline"
	"procworld/internal/scatter"
)

// Request parameters. Each is a value snapshot of the configuration taken by
// the control loop; workers only read them.

type grassPrototype struct{ CrossQuad bool }

type flowerPrototype struct{ Petals int }

type treePrototype struct {
	Species []lsystem.Species
	Seed    int64
}

type roadParams struct{ Seed int64 }

type buildingParams struct {
	Seed       int64
	Archetypes []city.Archetype
}

// generate is the worker side of the pipeline. It touches nothing but the
// request.
func generate(ctx context.Context, req pipeline.Request) (any, error) {
	switch req.Opcode {
	case pipeline.GeneratePrototype:
		return generatePrototype(ctx, req)
	case pipeline.GenerateChunk:
		return generateChunk(req)
	}
	return nil, fmt.Errorf("unknown opcode %d", req.Opcode)
}

func generatePrototype(ctx context.Context, req pipeline.Request) (any, error) {
	switch p := req.Params.(type) {
	case grassPrototype:
		return scatter.GrassPrototype(p.CrossQuad), nil
	case flowerPrototype:
		return scatter.FlowerPrototype(p.Petals), nil
	case treePrototype:
		return lsystem.Prototypes(ctx, p.Species, p.Seed)
	}
	return nil, fmt.Errorf("%s prototype: unexpected params %T", req.Domain, req.Params)
}

func generateChunk(req pipeline.Request) (any, error) {
	id := req.ChunkID
	switch req.Domain {
	case pipeline.Grass:
		if p, ok := req.Params.(scatter.Params); ok {
			return scatter.Grass(id, p), nil
		}
	case pipeline.Flowers:
		if p, ok := req.Params.(scatter.Params); ok {
			return scatter.Flowers(id, p), nil
		}
	case pipeline.Trees:
		if p, ok := req.Params.(lsystem.ForestParams); ok {
			return lsystem.Forest(id, p), nil
		}
	case pipeline.Roads:
		if p, ok := req.Params.(roadParams); ok {
			return city.Chunk(id, p.Seed), nil
		}
	case pipeline.Buildings:
		if p, ok := req.Params.(buildingParams); ok {
			placer, err := city.NewPlacer(p.Seed, p.Archetypes)
			if err != nil {
				return nil, err
			}
			return placer.Chunk(id), nil
		}
	}
	return nil, fmt.Errorf("%s chunk %v: unexpected params %T", req.Domain, id, req.Params)
}
