// Package entity holds the shared identity/entity types the event model,
// world model, and combat handler all decode wire payloads into.
package entity

import (
	"strings"

	"github.com/l1jgo/mcagent/internal/geo"
)

// Player is bare player identity, as delivered by the bridge's online-player
// lists and join/leave events.
type Player struct {
	UUID        string
	Username    string
	DisplayName string
	Ping        int
	Gamemode    string
}

// Entity is a generic nearby entity: a mob, a dropped item, another player.
// Subtypes embed it and add the fields their kind carries.
type Entity struct {
	Type      string
	Name      string
	Kind      string // e.g. "hostile"; a second, looser classification axis than Type
	Position  geo.Position
	ID        string
	Distance  float64
	HasHealth bool
	Health    float64
	MaxHealth float64
}

// PlayerEntity is a nearby entity known to be a player.
type PlayerEntity struct {
	Entity
	Username string
}

// AnimalEntity is a nearby passive/neutral mob.
type AnimalEntity struct {
	Entity
}

// ItemEntity is a dropped item stack on the ground.
type ItemEntity struct {
	Entity
	ItemName string
	Count    int
}

// NameContainsAny reports whether name contains any of the given substrings,
// case-sensitively (the wire delivers lowercase Minecraft IDs already).
func NameContainsAny(name string, substrings ...string) bool {
	for _, s := range substrings {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}
