package worldmodel

import (
	"fmt"
	"strings"
)

// ToolKind is one of the five tool categories reviewed for coaching advice.
type ToolKind string

const (
	ToolPickaxe ToolKind = "pickaxe"
	ToolAxe     ToolKind = "axe"
	ToolShovel  ToolKind = "shovel"
	ToolHoe     ToolKind = "hoe"
	ToolSword   ToolKind = "sword"
)

// materialTier orders tool materials from weakest to strongest. Gold sits
// below stone despite being a minable-tier above wood, matching vanilla's
// attack/mining-speed ordering rather than alphabetic or mining-level order.
var materialTier = map[string]int{
	"wooden":    1,
	"golden":    2,
	"stone":     3,
	"iron":      4,
	"diamond":   5,
	"netherite": 6,
}

var tierName = map[int]string{
	1: "wooden", 2: "golden", 3: "stone", 4: "iron", 5: "diamond", 6: "netherite",
}

// heldTool is one tool-type item found in the inventory.
type heldTool struct {
	material string
	tier     int
}

func findTools(slots []InventorySlot, kind ToolKind) []heldTool {
	var out []heldTool
	suffix := "_" + string(kind)
	for _, s := range slots {
		if !strings.HasSuffix(s.Name, suffix) {
			continue
		}
		material := strings.TrimSuffix(s.Name, suffix)
		out = append(out, heldTool{material: material, tier: materialTier[material]})
	}
	return out
}

func bestTier(tools []heldTool) int {
	best := 0
	for _, t := range tools {
		if t.tier > best {
			best = t.tier
		}
	}
	return best
}

func listMaterials(tools []heldTool) string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.material
	}
	return strings.Join(names, ", ")
}

// pickaxeAdvice returns a sentence describing what the best pickaxe on hand
// can and cannot mine, or urges crafting one if none is held.
func pickaxeAdvice(tools []heldTool) string {
	if len(tools) == 0 {
		return "No pickaxe in inventory: stone and ore blocks will be slow or impossible to break. Craft one from whatever materials and nearby blocks are available.\n"
	}
	tier := bestTier(tools)
	var capability string
	switch {
	case tier <= 2:
		capability = "can only mine stone and coal ore; smelt or find better materials to upgrade"
	case tier == 3:
		capability = "can mine up through iron ore; upgrade before attempting deeper ores"
	case tier == 4:
		capability = "can mine anything up to diamond ore"
	case tier == 5:
		capability = "can mine anything up to ancient debris, and quickly"
	default:
		capability = "can mine every mineable block"
	}
	if len(tools) == 1 {
		return fmt.Sprintf("Pickaxe on hand: %s (%s).\n", tools[0].material, capability)
	}
	return fmt.Sprintf("Pickaxes on hand: [%s]; best is %s (%s).\n", listMaterials(tools), tierName[tier], capability)
}

func axeAdvice(tools []heldTool) string {
	if len(tools) == 0 {
		return "No axe in inventory: chopping wood will be slow. Craft one.\n"
	}
	tier := bestTier(tools)
	var note string
	switch {
	case tier <= 2:
		note = "durability is low, upgrade soon"
	case tier == 3, tier == 4:
		note = "chops at a moderate pace; upgrade if materials allow"
	default:
		note = "chops wood very quickly"
	}
	if len(tools) == 1 {
		return fmt.Sprintf("Axe on hand: %s (%s).\n", tools[0].material, note)
	}
	return fmt.Sprintf("Axes on hand: [%s]; best is %s (%s).\n", listMaterials(tools), tierName[tier], note)
}

func shovelAdvice(tools []heldTool) string {
	if len(tools) == 0 {
		return "No shovel in inventory: digging dirt, sand, and gravel will be inefficient. Craft one.\n"
	}
	tier := bestTier(tools)
	var note string
	switch {
	case tier <= 2:
		note = "durability is very low, upgrade soon"
	case tier == 3, tier == 4:
		note = "digs at a moderate pace; upgrade if materials allow"
	default:
		note = "digs loose blocks very quickly"
	}
	if len(tools) == 1 {
		return fmt.Sprintf("Shovel on hand: %s (%s).\n", tools[0].material, note)
	}
	return fmt.Sprintf("Shovels on hand: [%s]; best is %s (%s).\n", listMaterials(tools), tierName[tier], note)
}

func hoeAdvice(tools []heldTool) string {
	if len(tools) == 0 {
		return "No hoe in inventory: craft one if farming is planned.\n"
	}
	if len(tools) > 1 {
		return fmt.Sprintf("Hoes on hand: [%s]; drop the extras unless farming multiple plots.\n", listMaterials(tools))
	}
	return ""
}

func swordAdvice(tools []heldTool) string {
	if len(tools) == 0 {
		return "No sword in inventory: combat will be inefficient. Craft one.\n"
	}
	tier := bestTier(tools)
	var note string
	switch {
	case tier <= 2:
		note = "durability and damage are low, upgrade soon"
	case tier == 3, tier == 4:
		note = "moderate damage; upgrade if materials allow"
	default:
		note = "kills most mobs quickly"
	}
	if len(tools) == 1 {
		return fmt.Sprintf("Sword on hand: %s (%s).\n", tools[0].material, note)
	}
	return fmt.Sprintf("Swords on hand: [%s]; carrying more than one wastes inventory space, best is %s (%s).\n",
		listMaterials(tools), tierName[tier], note)
}

// ReviewAllTools returns a combined coaching paragraph covering every tool
// category, to append to the text handed to the LLM prompt builder.
func ReviewAllTools(slots []InventorySlot) string {
	var b strings.Builder
	b.WriteString(pickaxeAdvice(findTools(slots, ToolPickaxe)))
	b.WriteString(axeAdvice(findTools(slots, ToolAxe)))
	b.WriteString(shovelAdvice(findTools(slots, ToolShovel)))
	b.WriteString(hoeAdvice(findTools(slots, ToolHoe)))
	b.WriteString(swordAdvice(findTools(slots, ToolSword)))
	return b.String()
}
