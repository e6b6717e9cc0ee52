package blockcache

import (
	"testing"

	"github.com/l1jgo/mcagent/internal/geo"
)

func TestAddUpgradesExistingEntry(t *testing.T) {
	c := NewCache(nil)
	pos := geo.BlockPosition{X: 1, Y: 2, Z: 3}
	c.Add("stone", pos, true)
	c.Add("dirt", pos, false)

	got, ok := c.Get(pos)
	if !ok {
		t.Fatalf("expected block to be present")
	}
	if got.BlockType != "dirt" {
		t.Fatalf("expected overwritten type 'dirt', got %q", got.BlockType)
	}
	if !got.CanSee {
		t.Fatalf("expected CanSee to stay true once OR'd in")
	}
	if got.SeenCount != 2 {
		t.Fatalf("expected SeenCount 2, got %d", got.SeenCount)
	}
}

func TestBlocksInRange(t *testing.T) {
	c := NewCache(nil)
	c.Add("stone", geo.BlockPosition{X: 0, Y: 0, Z: 0}, true)
	c.Add("stone", geo.BlockPosition{X: 10, Y: 0, Z: 0}, true)
	got := c.BlocksInRange(geo.BlockPosition{X: 0, Y: 0, Z: 0}, 5)
	if len(got) != 1 {
		t.Fatalf("expected 1 block in range, got %d", len(got))
	}
}

func TestHasNearbyType(t *testing.T) {
	c := NewCache(nil)
	c.Add("crafting_table", geo.BlockPosition{X: 3, Y: 0, Z: 0}, true)
	if !c.HasNearbyType(geo.BlockPosition{X: 0, Y: 0, Z: 0}, 10, "crafting_table") {
		t.Fatalf("expected to find crafting_table within radius 10")
	}
	if c.HasNearbyType(geo.BlockPosition{X: 0, Y: 0, Z: 0}, 2, "crafting_table") {
		t.Fatalf("expected not to find crafting_table within radius 2")
	}
}
