package event

import (
	"fmt"

	"github.com/l1jgo/mcagent/internal/entity"
	"github.com/l1jgo/mcagent/internal/geo"
)

// Event type constants, matching the wire's `type` field exactly.
const (
	TypeChat          = "chat"
	TypePlayerJoined  = "playerJoined"
	TypePlayerLeft    = "playerLeft"
	TypePlayerMove    = "playerMove"
	TypePlayerRespawn = "playerRespawn"
	TypeDeath         = "death"
	TypeSpawn         = "spawn"
	TypeSpawnReset    = "spawnReset"
	TypeKicked        = "kicked"
	TypeRain          = "rain"
	TypeHealth        = "health"
	TypeBreath        = "breath"
	TypeEntityHurt    = "entityHurt"
	TypeEntityDead    = "entityDead"
	TypePlayerCollect = "playerCollect"
	TypeItemDrop      = "itemDrop"
	TypeBlockBreak    = "blockBreak"
	TypeBlockPlace    = "blockPlace"
	TypeForcedMove    = "forcedMove"
)

// ChatData is the payload of a "chat" event.
type ChatData struct {
	Sender  string
	Message string
	Kind    string
	fields  entity.RawMap
}

func (d ChatData) Description() string   { return fmt.Sprintf("%s says: %s", d.Sender, d.Message) }
func (d ChatData) ContextString() string { return fmt.Sprintf("[chat] %s: %s", d.Sender, d.Message) }
func (d ChatData) AsMap() entity.RawMap  { return d.fields }

func newChatData(f entity.RawMap) Data {
	return ChatData{
		Sender:  fieldString(f, "sender"),
		Message: fieldString(f, "message"),
		Kind:    fieldString(f, "type"),
		fields:  f,
	}
}

// PlayerJoinedData / PlayerLeftData share the same shape: a Player plus a
// raw field map.
type PlayerJoinedData struct {
	Player entity.Player
	fields entity.RawMap
}

func (d PlayerJoinedData) Description() string {
	return fmt.Sprintf("%s joined the game", d.Player.Username)
}
func (d PlayerJoinedData) ContextString() string {
	return fmt.Sprintf("[playerJoined] %s", d.Player.Username)
}
func (d PlayerJoinedData) AsMap() entity.RawMap { return d.fields }

func newPlayerJoinedData(f entity.RawMap) Data {
	p, _ := entity.DecodePlayerLike(f)
	return PlayerJoinedData{Player: p, fields: f}
}

type PlayerLeftData struct {
	Player entity.Player
	fields entity.RawMap
}

func (d PlayerLeftData) Description() string {
	return fmt.Sprintf("%s left the game", d.Player.Username)
}
func (d PlayerLeftData) ContextString() string {
	return fmt.Sprintf("[playerLeft] %s", d.Player.Username)
}
func (d PlayerLeftData) AsMap() entity.RawMap { return d.fields }

func newPlayerLeftData(f entity.RawMap) Data {
	p, _ := entity.DecodePlayerLike(f)
	return PlayerLeftData{Player: p, fields: f}
}

// PlayerMoveData carries the new position of a moved player/entity.
type PlayerMoveData struct {
	Position geo.Position
	HasPos   bool
	fields   entity.RawMap
}

func (d PlayerMoveData) Description() string {
	if d.HasPos {
		return fmt.Sprintf("moved to %.1f,%.1f,%.1f", d.Position.X, d.Position.Y, d.Position.Z)
	}
	return "moved"
}
func (d PlayerMoveData) ContextString() string { return fmt.Sprintf("[playerMove] %s", d.Description()) }
func (d PlayerMoveData) AsMap() entity.RawMap  { return d.fields }

func newPlayerMoveData(f entity.RawMap) Data {
	pos, ok := fieldPosition(f)
	return PlayerMoveData{Position: pos, HasPos: ok, fields: f}
}

// genericData is used for variants whose only spec-mandated behavior is
// "typed header + description/context string + generic field access" —
// death, spawn, spawnReset, kicked, rain, health, breath, playerRespawn,
// playerCollect, itemDrop, blockBreak, blockPlace, forcedMove, entityDead.
type genericData struct {
	eventType string
	summary   string
	fields    entity.RawMap
}

func (d genericData) Description() string   { return d.summary }
func (d genericData) ContextString() string { return fmt.Sprintf("[%s] %s", d.eventType, d.summary) }
func (d genericData) AsMap() entity.RawMap  { return d.fields }

func newGenericData(eventType string, summarize func(entity.RawMap) string) func(entity.RawMap) Data {
	return func(f entity.RawMap) Data {
		return genericData{eventType: eventType, summary: summarize(f), fields: f}
	}
}

// EntityHurtData is the payload of an "entityHurt" event — the trigger for
// the hurt-response pipeline (C15).
type EntityHurtData struct {
	Victim        entity.Entity
	HasVictim     bool
	Source        entity.Entity
	HasSource     bool
	CurrentHealth float64
	HasHealth     bool
	fields        entity.RawMap
}

func (d EntityHurtData) Description() string {
	return fmt.Sprintf("%s was hurt (health=%.1f)", d.Victim.Name, d.CurrentHealth)
}
func (d EntityHurtData) ContextString() string {
	return fmt.Sprintf("[entityHurt] %s hp=%.1f", d.Victim.Name, d.CurrentHealth)
}
func (d EntityHurtData) AsMap() entity.RawMap { return d.fields }

func newEntityHurtData(f entity.RawMap) Data {
	out := EntityHurtData{fields: f}
	if v, ok := f["entity"].(entity.RawMap); ok {
		if e, ok := entity.DecodeEntityLike(v); ok {
			out.Victim, out.HasVictim = e, true
		} else if p, ok := entity.DecodePlayerLike(v); ok {
			out.Victim = entity.Entity{Type: "player", Name: p.Username}
			out.HasVictim = true
		}
	}
	if v, ok := f["source"].(entity.RawMap); ok {
		if e, ok := entity.DecodeEntityLike(v); ok {
			out.Source, out.HasSource = e, true
		} else if p, ok := entity.DecodePlayerLike(v); ok {
			out.Source = entity.Entity{Type: "player", Name: p.Username}
			out.HasSource = true
		}
	}
	if h, ok := f["current_health"]; ok {
		out.CurrentHealth = fieldFloat(entity.RawMap{"h": h}, "h")
		out.HasHealth = true
	}
	return out
}

// builtinConstructors lists every built-in variant constructor, keyed by
// EVENT_TYPE, for NewRegistry to install.
func builtinConstructors() map[string]func(entity.RawMap) Data {
	return map[string]func(entity.RawMap) Data{
		TypeChat:          newChatData,
		TypePlayerJoined:  newPlayerJoinedData,
		TypePlayerLeft:    newPlayerLeftData,
		TypePlayerMove:    newPlayerMoveData,
		TypeEntityHurt:    newEntityHurtData,
		TypePlayerRespawn: newGenericData(TypePlayerRespawn, func(f entity.RawMap) string { return "player respawned" }),
		TypeDeath:         newGenericData(TypeDeath, func(f entity.RawMap) string { return fmt.Sprintf("death: %s", fieldString(f, "message")) }),
		TypeSpawn:         newGenericData(TypeSpawn, func(f entity.RawMap) string { return "entity spawned" }),
		TypeSpawnReset:    newGenericData(TypeSpawnReset, func(f entity.RawMap) string { return "spawn point reset" }),
		TypeKicked:        newGenericData(TypeKicked, func(f entity.RawMap) string { return fmt.Sprintf("kicked: %s", fieldString(f, "reason")) }),
		TypeRain:          newGenericData(TypeRain, func(f entity.RawMap) string { return "rain state changed" }),
		TypeHealth:        newGenericData(TypeHealth, func(f entity.RawMap) string { return fmt.Sprintf("health=%.1f", fieldFloat(f, "health")) }),
		TypeBreath:        newGenericData(TypeBreath, func(f entity.RawMap) string { return fmt.Sprintf("breath=%.1f", fieldFloat(f, "breath")) }),
		TypeEntityDead:    newGenericData(TypeEntityDead, func(f entity.RawMap) string { return fmt.Sprintf("entity died: %s", fieldString(f, "name")) }),
		TypePlayerCollect: newGenericData(TypePlayerCollect, func(f entity.RawMap) string { return fmt.Sprintf("collected %s", fieldString(f, "item")) }),
		TypeItemDrop:      newGenericData(TypeItemDrop, func(f entity.RawMap) string { return fmt.Sprintf("dropped %s", fieldString(f, "item")) }),
		TypeBlockBreak:    newGenericData(TypeBlockBreak, func(f entity.RawMap) string { return fmt.Sprintf("broke %s", fieldString(f, "name")) }),
		TypeBlockPlace:    newGenericData(TypeBlockPlace, func(f entity.RawMap) string { return fmt.Sprintf("placed %s", fieldString(f, "name")) }),
		TypeForcedMove:    newGenericData(TypeForcedMove, func(f entity.RawMap) string { return "forced move" }),
	}
}
