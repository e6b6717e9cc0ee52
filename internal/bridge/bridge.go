// Package bridge declares the client seam to the out-of-process Minecraft
// bridge: the RPC surface the agent's handlers call to act in the world.
// The concrete transport (HTTP/JSON against the bridge process) is out of
// scope here; this package only fixes the interface every other package
// depends on, plus a thin stub implementation for wiring and tests.
package bridge

import (
	"context"

	"github.com/l1jgo/mcagent/internal/geo"
)

// RawRecipe is one candidate recipe as returned by query_raw_recipe.
// Ingredients is set for shapeless recipes; InShape is set for shaped
// ones (a zero-value Ingredient cell means "empty"). A recipe may carry
// either or both.
type RawRecipe struct {
	Result      Ingredient
	Ingredients []Ingredient
	InShape     [][]Ingredient
	RequiresTable bool
}

// Ingredient is a (name, count) pair, used both for recipe ingredients and
// results.
type Ingredient struct {
	Name  string
	Count int
}

// Client is the set of bridge tools the agent's handlers call into. Every
// method is a single RPC to the bridge process and may block on network
// I/O, hence the context.
type Client interface {
	// QueryAreaBlocks lists blocks within radius of the bot, keyed by type.
	QueryAreaBlocks(ctx context.Context, radius int) (map[string][]geo.BlockPosition, error)
	// MineBlock mines the block at pos.
	MineBlock(ctx context.Context, pos geo.BlockPosition) error
	// KillMob attacks the nearest entity named mob.
	KillMob(ctx context.Context, mob string) error
	// Chat sends a chat message as the bot.
	Chat(ctx context.Context, message string) error
	// QueryRawRecipe returns the bridge's known recipes for item, using a
	// crafting table if useCraftingTable is true.
	QueryRawRecipe(ctx context.Context, item string, useCraftingTable bool) ([]RawRecipe, error)
	// CraftWithRecipe executes a chosen recipe batches times.
	CraftWithRecipe(ctx context.Context, recipe RawRecipe, useCraftingTable bool, batches int) error
}

var _ Client = (*HTTPClient)(nil)
