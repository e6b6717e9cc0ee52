// Package craft implements the recursive crafting planner (C16): name
// normalization through an alias table, conversion-pair leaf handling,
// cheapest-recipe selection, and a depth-capped recursive plan builder.
package craft

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/mcagent/internal/bridge"
)

//go:embed aliases.yaml
var aliasesYAML []byte

//go:embed conversion_pairs.yaml
var conversionPairsYAML []byte

const maxNestingDepth = 128

const emptyMarker = "" // an ingredient cell/name normalized to this is treated as no material

// conversionPair is one group of mutually-convertible items plus which
// member is the non-recursing "priority" leaf.
type conversionPair struct {
	Items    []string
	Priority string
}

type conversionPairsFile struct {
	ConversionPairs []struct {
		Items    []string `yaml:"items"`
		Priority string   `yaml:"priority"`
	} `yaml:"conversion_pairs"`
}

// Planner normalizes item names and builds crafting plans against a
// bridge client's recipe queries.
type Planner struct {
	client   bridge.Client
	aliases  map[string]string
	pairs    map[string]conversionPair // keyed by normalized item name
}

// New loads the bundled alias table and conversion-pairs config and
// returns a Planner bound to client.
func New(client bridge.Client) (*Planner, error) {
	var aliases map[string]string
	if err := yaml.Unmarshal(aliasesYAML, &aliases); err != nil {
		return nil, fmt.Errorf("craft: parsing alias table: %w", err)
	}

	var pairsFile conversionPairsFile
	if err := yaml.Unmarshal(conversionPairsYAML, &pairsFile); err != nil {
		return nil, fmt.Errorf("craft: parsing conversion pairs: %w", err)
	}
	pairs := make(map[string]conversionPair)
	for _, p := range pairsFile.ConversionPairs {
		cp := conversionPair{Items: p.Items, Priority: normalizeWith(aliases, p.Priority)}
		for _, item := range p.Items {
			pairs[normalizeWith(aliases, item)] = cp
		}
	}

	return &Planner{client: client, aliases: aliases, pairs: pairs}, nil
}

// Normalize applies the alias table, case/whitespace-folded.
func (p *Planner) Normalize(name string) string {
	return normalizeWith(p.aliases, name)
}

func normalizeWith(aliases map[string]string, name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if canon, ok := aliases[key]; ok {
		return canon
	}
	return key
}

func (p *Planner) isPriorityItem(item string) bool {
	pair, ok := p.pairs[item]
	return ok && pair.Priority == item
}

func (p *Planner) pairItems(item string) map[string]bool {
	pair, ok := p.pairs[item]
	if !ok {
		return nil
	}
	out := make(map[string]bool, len(pair.Items))
	for _, it := range pair.Items {
		out[normalizeWith(p.aliases, it)] = true
	}
	return out
}

// Stock is the planner's view of current inventory, keyed by normalized
// item name.
type Stock map[string]int

// NewStock builds a Stock from (name, count) pairs, normalizing names.
func (p *Planner) NewStock(items []bridge.Ingredient) Stock {
	s := make(Stock)
	for _, it := range items {
		s[p.Normalize(it.Name)] += it.Count
	}
	return s
}

// Step is one recorded crafting action in a plan, in execution order.
type Step struct {
	Item         string
	Quantity     int
	UseTable     bool
	Recipe       bridge.RawRecipe
}

type validRecipe struct {
	recipe      bridge.RawRecipe
	ingredients []bridge.Ingredient
	cost        int
}

// Plan builds a crafting plan for qty of item using preferTable as the
// preferred crafting mode, evaluating every decision against stock (which
// is never mutated — every recursive call recomputes availability from
// the same original snapshot, exactly like re-reading a fixed inventory
// between sub-steps). Returns the ordered steps, or ok=false if no valid
// plan exists.
func (p *Planner) Plan(ctx context.Context, item string, qty int, preferTable bool, stock Stock) (steps []Step, ok bool) {
	target := p.Normalize(item)
	var out []Step
	if p.tryCraft(ctx, target, qty, preferTable, stock, &out, 0) {
		return out, true
	}
	return nil, false
}

func (p *Planner) tryCraft(ctx context.Context, item string, qty int, preferTable bool, stock Stock, steps *[]Step, depth int) bool {
	if depth >= maxNestingDepth {
		return false
	}

	// A priority item of a conversion pair is a leaf: it comes from stock
	// or not at all, and never recurses into its own pair members (which
	// would just convert back and forth, e.g. coal <-> coal_block).
	if p.isPriorityItem(item) {
		return stock[item] >= qty
	}

	recipes := p.chooseRecipes(ctx, item, preferTable)
	valid := p.validRecipes(recipes)

	if len(valid) == 0 {
		// No recipe at all: the item can only come from stock.
		return stock[item] >= qty
	}

	sortByCost(valid)

	for _, candidate := range valid {
		if p.tryCraftWithRecipe(ctx, item, qty, preferTable, candidate, stock, steps, depth) {
			return true
		}
	}
	return false
}

func (p *Planner) tryCraftWithRecipe(ctx context.Context, item string, qty int, preferTable bool, candidate validRecipe, stock Stock, steps *[]Step, depth int) bool {
	perBatchOut := candidate.recipe.Result.Count
	if perBatchOut <= 0 {
		perBatchOut = 1
	}
	batches := int(math.Ceil(float64(qty) / float64(perBatchOut)))

	// If item is itself the priority member of a conversion pair, never
	// recurse into crafting an ingredient that is one of its own pair
	// partners — that would just convert back and forth (coal <->
	// coal_block) instead of genuinely sourcing the material.
	isPriority := p.isPriorityItem(item)
	pairMembers := p.pairItems(item)

	for _, ing := range candidate.ingredients {
		ingName := p.Normalize(ing.Name)
		needed := ing.Count * batches
		have := stock[ingName]

		if isPriority && pairMembers[ingName] && have < needed {
			return false
		}

		if have < needed {
			missing := needed - have
			if !p.tryCraft(ctx, ingName, missing, preferTable, stock, steps, depth+1) {
				return false
			}
		}
	}

	actualMode := preferTable
	if recs, err := p.client.QueryRawRecipe(ctx, item, preferTable); err != nil || len(recs) == 0 {
		actualMode = !preferTable
	}
	*steps = append(*steps, Step{Item: item, Quantity: qty, UseTable: actualMode, Recipe: candidate.recipe})
	return true
}

// chooseRecipes fetches valid-mode recipes, falling back to the other
// crafting mode when the preferred one returns none.
func (p *Planner) chooseRecipes(ctx context.Context, item string, preferTable bool) []bridge.RawRecipe {
	recs, err := p.client.QueryRawRecipe(ctx, item, preferTable)
	if err != nil || len(recs) == 0 {
		recs, err = p.client.QueryRawRecipe(ctx, item, !preferTable)
		if err != nil {
			return nil
		}
	}
	return recs
}

// validRecipes filters to recipes whose effective, flattened ingredient
// list (from Ingredients, or aggregated from InShape when Ingredients is
// absent) is non-empty after dropping empty/air markers.
func (p *Planner) validRecipes(recipes []bridge.RawRecipe) []validRecipe {
	var out []validRecipe
	for _, rr := range recipes {
		ings := effectiveIngredients(rr)
		if len(ings) == 0 {
			continue
		}
		out = append(out, validRecipe{recipe: rr, ingredients: ings, cost: sumCounts(ings)})
	}
	return out
}

func effectiveIngredients(rr bridge.RawRecipe) []bridge.Ingredient {
	if len(rr.Ingredients) > 0 {
		return dropEmpty(rr.Ingredients)
	}
	if len(rr.InShape) == 0 {
		return nil
	}
	tally := make(map[string]int)
	order := make([]string, 0)
	for _, row := range rr.InShape {
		for _, cell := range row {
			name := strings.ToLower(strings.TrimSpace(cell.Name))
			if name == emptyMarker || name == "air" {
				continue
			}
			count := cell.Count
			if count <= 0 {
				count = 1
			}
			if _, seen := tally[name]; !seen {
				order = append(order, name)
			}
			tally[name] += count
		}
	}
	out := make([]bridge.Ingredient, 0, len(order))
	for _, name := range order {
		out = append(out, bridge.Ingredient{Name: name, Count: tally[name]})
	}
	return out
}

func dropEmpty(ings []bridge.Ingredient) []bridge.Ingredient {
	out := make([]bridge.Ingredient, 0, len(ings))
	for _, ing := range ings {
		name := strings.ToLower(strings.TrimSpace(ing.Name))
		if name == emptyMarker || name == "air" || ing.Count <= 0 {
			continue
		}
		out = append(out, ing)
	}
	return out
}

func sumCounts(ings []bridge.Ingredient) int {
	total := 0
	for _, ing := range ings {
		total += ing.Count
	}
	return total
}

func sortByCost(valid []validRecipe) {
	for i := 1; i < len(valid); i++ {
		j := i
		for j > 0 && valid[j-1].cost > valid[j].cost {
			valid[j-1], valid[j] = valid[j], valid[j-1]
			j--
		}
	}
}

// FeasibilityReport describes the outcome of attempting to plan a craft,
// for surfacing to a caller when planning fails.
type FeasibilityReport struct {
	Feasible bool
	Steps    []Step
	Reason   string
}

// CheckFeasibility runs Plan and wraps the result in a report with a
// human-readable reason on failure.
func (p *Planner) CheckFeasibility(ctx context.Context, item string, qty int, preferTable bool, stock Stock) FeasibilityReport {
	steps, ok := p.Plan(ctx, item, qty, preferTable, stock)
	if ok {
		return FeasibilityReport{Feasible: true, Steps: steps}
	}
	return FeasibilityReport{Feasible: false, Reason: fmt.Sprintf("no viable recipe chain found for %s x%d within current stock", p.Normalize(item), qty)}
}
