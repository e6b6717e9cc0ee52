package craft

import (
	"context"
	"testing"

	"github.com/l1jgo/mcagent/internal/bridge"
	"github.com/l1jgo/mcagent/internal/geo"
)

type fakeClient struct {
	recipes map[string][]bridge.RawRecipe // key: item+"/hand" or item+"/table"
}

func key(item string, useTable bool) string {
	if useTable {
		return item + "/table"
	}
	return item + "/hand"
}

func (f *fakeClient) QueryAreaBlocks(ctx context.Context, radius int) (map[string][]geo.BlockPosition, error) {
	return nil, nil
}
func (f *fakeClient) MineBlock(ctx context.Context, pos geo.BlockPosition) error { return nil }
func (f *fakeClient) KillMob(ctx context.Context, mob string) error              { return nil }
func (f *fakeClient) Chat(ctx context.Context, message string) error            { return nil }
func (f *fakeClient) CraftWithRecipe(ctx context.Context, recipe bridge.RawRecipe, useTable bool, batches int) error {
	return nil
}
func (f *fakeClient) QueryRawRecipe(ctx context.Context, item string, useTable bool) ([]bridge.RawRecipe, error) {
	return f.recipes[key(item, useTable)], nil
}

func newTestPlanner(t *testing.T, recipes map[string][]bridge.RawRecipe) (*Planner, *fakeClient) {
	t.Helper()
	client := &fakeClient{recipes: recipes}
	p, err := New(client)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, client
}

func TestPlanLeafSucceedsWithEnoughStock(t *testing.T) {
	p, _ := newTestPlanner(t, nil)
	stock := Stock{"stick": 4}
	steps, ok := p.Plan(context.Background(), "stick", 4, false, stock)
	if !ok {
		t.Fatalf("expected a leaf item already in stock to succeed")
	}
	if len(steps) != 0 {
		t.Fatalf("expected no crafting steps for an already-held leaf item, got %v", steps)
	}
}

func TestPlanLeafFailsWithoutRecipeOrStock(t *testing.T) {
	p, _ := newTestPlanner(t, nil)
	_, ok := p.Plan(context.Background(), "diamond", 1, false, Stock{})
	if ok {
		t.Fatalf("expected planning to fail with no recipe and no stock")
	}
}

func TestPlanUsesStockedIngredient(t *testing.T) {
	recipes := map[string][]bridge.RawRecipe{
		key("stick", false): {{
			Result:      bridge.Ingredient{Name: "stick", Count: 4},
			Ingredients: []bridge.Ingredient{{Name: "oak_planks", Count: 2}},
		}},
	}
	p, _ := newTestPlanner(t, recipes)
	stock := Stock{"oak_planks": 2}
	steps, ok := p.Plan(context.Background(), "stick", 4, false, stock)
	if !ok {
		t.Fatalf("expected planning to succeed using stocked planks")
	}
	if len(steps) != 1 || steps[0].Item != "stick" {
		t.Fatalf("expected a single craft-stick step, got %v", steps)
	}
}

func TestPlanRecursesWhenIngredientAlsoMissing(t *testing.T) {
	recipes := map[string][]bridge.RawRecipe{
		key("stick", false): {{
			Result:      bridge.Ingredient{Name: "stick", Count: 4},
			Ingredients: []bridge.Ingredient{{Name: "oak_planks", Count: 2}},
		}},
		key("oak_planks", false): {{
			Result:      bridge.Ingredient{Name: "oak_planks", Count: 4},
			Ingredients: []bridge.Ingredient{{Name: "oak_log", Count: 1}},
		}},
	}
	p, _ := newTestPlanner(t, recipes)
	stock := Stock{"oak_log": 1}
	steps, ok := p.Plan(context.Background(), "stick", 4, false, stock)
	if !ok {
		t.Fatalf("expected a two-level recursive plan to succeed")
	}
	if len(steps) != 2 {
		t.Fatalf("expected two crafting steps (planks, then stick), got %v", steps)
	}
	if steps[0].Item != "oak_planks" || steps[1].Item != "stick" {
		t.Fatalf("expected planks crafted before the stick, got %v", steps)
	}
}

func TestPlanFallsBackToOtherCraftingMode(t *testing.T) {
	recipes := map[string][]bridge.RawRecipe{
		key("furnace", true): {{
			Result:      bridge.Ingredient{Name: "furnace", Count: 1},
			Ingredients: []bridge.Ingredient{{Name: "cobblestone", Count: 8}},
		}},
	}
	p, _ := newTestPlanner(t, recipes)
	stock := Stock{"cobblestone": 8}
	// preferTable=false but the only recipe requires a table: chooseRecipes
	// must fall back to the other mode.
	steps, ok := p.Plan(context.Background(), "furnace", 1, false, stock)
	if !ok || len(steps) != 1 {
		t.Fatalf("expected fallback to the table-mode recipe to succeed, got steps=%v ok=%v", steps, ok)
	}
}

func TestPriorityItemBlocksReconversionLoop(t *testing.T) {
	recipes := map[string][]bridge.RawRecipe{
		key("coal", false): {{
			Result:      bridge.Ingredient{Name: "coal", Count: 9},
			Ingredients: []bridge.Ingredient{{Name: "coal_block", Count: 1}},
		}},
	}
	p, _ := newTestPlanner(t, recipes)
	// coal_block is the priority member of its conversion pair with coal,
	// so crafting coal may take coal_block only from stock: with none held,
	// planning must fail rather than recurse into crafting coal_block from
	// coal.
	stock := Stock{}
	_, ok := p.Plan(context.Background(), "coal", 9, false, stock)
	if ok {
		t.Fatalf("expected the coal/coal_block conversion pair to refuse reconversion when coal_block is short")
	}
}

// TestCoalBlockPriorityItemDoesNotRecurseIntoCoal is the literal scenario
// from spec.md §8 scenario 5: target coal_block x5, stock holds only 2
// coal_block, and the planner must fail rather than recurse into crafting
// more coal_block out of coal (coal_block, not coal, is the conversion
// pair's priority/non-recursing member).
func TestCoalBlockPriorityItemDoesNotRecurseIntoCoal(t *testing.T) {
	recipes := map[string][]bridge.RawRecipe{
		key("coal_block", false): {{
			Result:      bridge.Ingredient{Name: "coal_block", Count: 1},
			Ingredients: []bridge.Ingredient{{Name: "coal", Count: 9}},
		}},
	}
	p, _ := newTestPlanner(t, recipes)
	stock := Stock{"coal_block": 2}
	_, ok := p.Plan(context.Background(), "coal_block", 5, false, stock)
	if ok {
		t.Fatalf("expected crafting 5 coal_block from a stock of 2 to fail without recursing into coal")
	}
}

func TestNormalizeAppliesAliasTable(t *testing.T) {
	p, _ := newTestPlanner(t, nil)
	if got := p.Normalize("Planks"); got != "oak_planks" {
		t.Fatalf("expected alias 'Planks' to normalize to oak_planks, got %s", got)
	}
}

func TestInShapeIngredientsAreFlattened(t *testing.T) {
	recipes := map[string][]bridge.RawRecipe{
		key("chest", false): {{
			Result: bridge.Ingredient{Name: "chest", Count: 1},
			InShape: [][]bridge.Ingredient{
				{{Name: "oak_planks", Count: 1}, {Name: "oak_planks", Count: 1}},
				{{Name: "", Count: 0}, {Name: "oak_planks", Count: 1}},
			},
		}},
	}
	p, _ := newTestPlanner(t, recipes)
	stock := Stock{"oak_planks": 3}
	steps, ok := p.Plan(context.Background(), "chest", 1, false, stock)
	if !ok || len(steps) != 1 {
		t.Fatalf("expected in-shape ingredients to flatten into a satisfiable recipe, got steps=%v ok=%v", steps, ok)
	}
}
