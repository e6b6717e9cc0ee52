package nearby

import (
	"github.com/l1jgo/mcagent/internal/blockcache"
	"github.com/l1jgo/mcagent/internal/geo"
)

// placeableTypes are the block types a new block can be placed into.
var placeableTypes = map[string]bool{"air": true, "water": true, "lava": true}

// PlacementCandidate is one position where a block could be placed.
type PlacementCandidate struct {
	Position  geo.BlockPosition
	BlockType string // "air", "water", or "lava" — the type being displaced
	Neighbors int    // count of known, non-empty axis neighbors (1..5)
}

// FindPlacementPositions scans the cube of side 2*distance+1 centered on
// center and returns every air/water/lava cell with 1..5 known,
// non-empty axis-neighbors.
func FindPlacementPositions(cache *blockcache.Cache, center geo.BlockPosition, distance int64) []PlacementCandidate {
	var out []PlacementCandidate
	for dx := -distance; dx <= distance; dx++ {
		for dy := -distance; dy <= distance; dy++ {
			for dz := -distance; dz <= distance; dz++ {
				pos := center.Add(dx, dy, dz)
				block, ok := cache.Get(pos)
				if !ok || !placeableTypes[block.BlockType] {
					continue
				}
				n := countKnownNonEmptyNeighbors(cache, pos)
				if n >= 1 && n <= 5 {
					out = append(out, PlacementCandidate{Position: pos, BlockType: block.BlockType, Neighbors: n})
				}
			}
		}
	}
	return out
}

func countKnownNonEmptyNeighbors(cache *blockcache.Cache, pos geo.BlockPosition) int {
	count := 0
	for _, n := range pos.AxisNeighbors() {
		b, ok := cache.Get(n)
		if !ok {
			continue
		}
		if !emptyBlockNames[b.BlockType] {
			count++
		}
	}
	return count
}

// StandCandidate is a position usable as a movement target: an air cell
// with a known non-air block below and air above.
type StandCandidate struct {
	Position geo.BlockPosition
}

// FindStandPositions scans the same cube FindPlacementPositions does and
// returns every cell that is air, has a known non-air block below, and air
// above — the "Move" targets a path planner could walk to.
func FindStandPositions(cache *blockcache.Cache, center geo.BlockPosition, distance int64) []StandCandidate {
	var out []StandCandidate
	for dx := -distance; dx <= distance; dx++ {
		for dy := -distance; dy <= distance; dy++ {
			for dz := -distance; dz <= distance; dz++ {
				pos := center.Add(dx, dy, dz)
				cell, ok := cache.Get(pos)
				if !ok || cell.BlockType != "air" {
					continue
				}
				below, okBelow := cache.Get(pos.Add(0, -1, 0))
				if !okBelow || below.BlockType == "air" {
					continue
				}
				above, okAbove := cache.Get(pos.Add(0, 1, 0))
				if !okAbove || above.BlockType != "air" {
					continue
				}
				out = append(out, StandCandidate{Position: pos})
			}
		}
	}
	return out
}
