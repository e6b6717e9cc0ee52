// Package worldmodel implements the environment snapshot (C9) and the
// movement monitor (C10): the agent's live picture of its own state and
// surroundings, refreshed from bridge observation payloads.
package worldmodel

import (
	"sync"

	"github.com/l1jgo/mcagent/internal/entity"
	"github.com/l1jgo/mcagent/internal/geo"
)

const maxRecentEvents = 80

// InventorySlot is one entry of the held inventory.
type InventorySlot struct {
	Name  string
	Count int
}

// Inventory is the bot's held items plus slot accounting.
type Inventory struct {
	Slots         []InventorySlot
	FullSlotCount  int
	EmptySlotCount int
	SlotCount      int
}

// Environment is the latest observed snapshot of the bot and its
// surroundings. UpdateFromObservation overwrites the fields an observation
// carries and leaves the rest as they were; NearbyEntities and RecentEvents
// are maintained by UpdateNearbyEntities and PushRecentEvent. Readers take
// a Snapshot to avoid holding the lock.
type Environment struct {
	mu sync.RWMutex

	Username string
	Gamemode string

	Position      geo.Position
	BlockPosition geo.BlockPosition
	HasPosition   bool
	Velocity      geo.Position
	Yaw, Pitch    float64
	OnGround      bool
	IsSleeping    bool

	Weather    string
	TimeOfDay  int64
	Dimension  string
	Biome      string

	Health, MaxHealth, HealthPercentage         float64
	Food, MaxFood, Saturation, FoodPercentage   float64
	ExperiencePoints                            float64
	ExperienceLevel                              int
	Oxygen                                       float64
	Armor                                        float64

	BlockAtCursor  string
	EntityAtCursor string
	HeldItem       string
	UsingHeldItem  bool

	Equipment map[string]string
	Inventory Inventory

	OnlinePlayers []string

	NearbyEntities []entity.Entity

	RecentEvents []string

	OverviewImageBase64 string
	OverviewText        string
}

// NewEnvironment returns an empty Environment.
func NewEnvironment() *Environment {
	return &Environment{Equipment: make(map[string]string)}
}

// Observation is the decoded shape of a bridge `query_environment`-style
// response's `data` object (§4.9). Every field is a pointer/zero-value
// pair so a missing field can be told apart from an explicit zero and the
// previous value preserved, per the "missing fields preserve previous
// values" rule.
type Observation struct {
	Weather       *string
	TimeOfDay     *int64
	Dimension     *string
	Biome         *string
	Username      *string
	Gamemode      *string
	OnlinePlayers []string

	Position *geo.Position
	Velocity *geo.Position
	Yaw      *float64
	Pitch    *float64
	OnGround *bool
	IsSleeping *bool

	Health     *HealthInfo
	Food       *FoodInfo
	Experience *ExperienceInfo
	Oxygen     *float64
	Armor      *float64

	BlockAtCursor  *string
	EntityAtCursor *string
	HeldItem       *string
	UsingHeldItem  *bool

	Equipment map[string]string
	Inventory *Inventory
}

type HealthInfo struct {
	Current, Max, Percentage float64
}

type FoodInfo struct {
	Current, Max, Saturation, Percentage float64
}

type ExperienceInfo struct {
	Points float64
	Level  int
}

// UpdateFromObservation applies a decoded observation on top of the current
// snapshot. Unset pointer fields leave the previous value untouched.
func (e *Environment) UpdateFromObservation(obs Observation) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if obs.Weather != nil {
		e.Weather = *obs.Weather
	}
	if obs.TimeOfDay != nil {
		e.TimeOfDay = *obs.TimeOfDay
	}
	if obs.Dimension != nil {
		e.Dimension = *obs.Dimension
	}
	if obs.Biome != nil {
		e.Biome = *obs.Biome
	}
	if obs.Username != nil {
		e.Username = *obs.Username
	}
	if obs.Gamemode != nil {
		e.Gamemode = *obs.Gamemode
	}
	if obs.OnlinePlayers != nil {
		e.OnlinePlayers = obs.OnlinePlayers
	}
	if obs.Position != nil {
		e.Position = *obs.Position
		e.BlockPosition = obs.Position.Block()
		e.HasPosition = true
	}
	if obs.Velocity != nil {
		e.Velocity = *obs.Velocity
	}
	if obs.Yaw != nil {
		e.Yaw = *obs.Yaw
	}
	if obs.Pitch != nil {
		e.Pitch = *obs.Pitch
	}
	if obs.OnGround != nil {
		e.OnGround = *obs.OnGround
	}
	if obs.IsSleeping != nil {
		e.IsSleeping = *obs.IsSleeping
	}
	if obs.Health != nil {
		e.Health, e.MaxHealth, e.HealthPercentage = obs.Health.Current, obs.Health.Max, obs.Health.Percentage
	}
	if obs.Food != nil {
		e.Food, e.MaxFood, e.Saturation, e.FoodPercentage = obs.Food.Current, obs.Food.Max, obs.Food.Saturation, obs.Food.Percentage
	}
	if obs.Experience != nil {
		e.ExperiencePoints, e.ExperienceLevel = obs.Experience.Points, obs.Experience.Level
	}
	if obs.Oxygen != nil {
		e.Oxygen = *obs.Oxygen
	}
	if obs.Armor != nil {
		e.Armor = *obs.Armor
	}
	if obs.BlockAtCursor != nil {
		e.BlockAtCursor = *obs.BlockAtCursor
	}
	if obs.EntityAtCursor != nil {
		e.EntityAtCursor = *obs.EntityAtCursor
	}
	if obs.HeldItem != nil {
		e.HeldItem = *obs.HeldItem
	}
	if obs.UsingHeldItem != nil {
		e.UsingHeldItem = *obs.UsingHeldItem
	}
	if obs.Equipment != nil {
		e.Equipment = obs.Equipment
	}
	if obs.Inventory != nil {
		e.Inventory = *obs.Inventory
	}
}

// PushRecentEvent appends a human-readable event description, dropping the
// oldest once the bound of maxRecentEvents is exceeded.
func (e *Environment) PushRecentEvent(description string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.RecentEvents = append(e.RecentEvents, description)
	if len(e.RecentEvents) > maxRecentEvents {
		e.RecentEvents = e.RecentEvents[len(e.RecentEvents)-maxRecentEvents:]
	}
}

// UpdateNearbyEntities replaces the nearby-entity list, decoding each raw
// entry into a generic entity.Entity: a player without a name takes its
// username as Name, and an item entity takes the first itemsInfo itemName.
// No per-kind subtype is built.
func (e *Environment) UpdateNearbyEntities(raw []entity.RawMap) {
	out := make([]entity.Entity, 0, len(raw))
	for _, r := range raw {
		out = append(out, decodeNearbyEntity(r))
	}
	e.mu.Lock()
	e.NearbyEntities = out
	e.mu.Unlock()
}

func decodeNearbyEntity(r entity.RawMap) entity.Entity {
	base, _ := entity.DecodeEntityLike(r)
	typ, _ := r["type"].(string)
	name, _ := r["name"].(string)

	switch {
	case typ == "player":
		username, _ := r["username"].(string)
		merged := mergeEntity(base, entity.Entity{Type: typ, Name: name})
		if merged.Name == "" {
			merged.Name = username
		}
		return merged
	case typ == "animal":
		return base
	case name == "item":
		if itemsInfo, ok := r["itemsInfo"].([]any); ok && len(itemsInfo) > 0 {
			if first, ok := itemsInfo[0].(entity.RawMap); ok {
				base.Name, _ = first["itemName"].(string)
			}
		}
		return base
	default:
		return base
	}
}

func mergeEntity(base entity.Entity, override entity.Entity) entity.Entity {
	if override.Type != "" {
		base.Type = override.Type
	}
	if override.Name != "" {
		base.Name = override.Name
	}
	return base
}

// Snapshot is an immutable copy of the Environment, safe to pass across
// goroutines (to the mode manager, to prompt builders) without holding
// Environment's lock.
type Snapshot struct {
	Environment
}

// Snapshot returns a point-in-time copy of the environment.
func (e *Environment) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cp := *e
	cp.Equipment = make(map[string]string, len(e.Equipment))
	for k, v := range e.Equipment {
		cp.Equipment[k] = v
	}
	return Snapshot{Environment: cp}
}
