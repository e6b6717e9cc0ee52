package entity

import "github.com/l1jgo/mcagent/internal/geo"

// RawMap is the shape an untyped wire payload field arrives in.
type RawMap = map[string]any

// DecodePositionLike reports whether raw is exactly {x,y,z} and, if so,
// returns the decoded Position.
func DecodePositionLike(raw RawMap) (geo.Position, bool) {
	if len(raw) != 3 {
		return geo.Position{}, false
	}
	x, okX := toFloat(raw["x"])
	y, okY := toFloat(raw["y"])
	z, okZ := toFloat(raw["z"])
	if !okX || !okY || !okZ {
		return geo.Position{}, false
	}
	return geo.Position{X: x, Y: y, Z: z}, true
}

// DecodePlayerLike reports whether raw carries a username or uuid field and,
// if so, decodes the rest of the known Player fields opportunistically.
func DecodePlayerLike(raw RawMap) (Player, bool) {
	username, hasUsername := toString(raw["username"])
	uuid, hasUUID := toString(raw["uuid"])
	if !hasUsername && !hasUUID {
		return Player{}, false
	}
	displayName, _ := toString(raw["displayName"])
	gamemode, _ := toString(raw["gamemode"])
	ping := 0
	if v, ok := toFloat(raw["ping"]); ok {
		ping = int(v)
	}
	return Player{
		UUID:        uuid,
		Username:    username,
		DisplayName: displayName,
		Ping:        ping,
		Gamemode:    gamemode,
	}, true
}

// DecodeEntityLike reports whether raw carries a type field plus either a
// position or a health field (the recognition rule for "entity-like"), and
// if so decodes it into a generic Entity; no subtype (PlayerEntity,
// AnimalEntity, ItemEntity) is built here.
func DecodeEntityLike(raw RawMap) (Entity, bool) {
	typ, hasType := toString(raw["type"])
	_, hasPosition := raw["position"]
	_, hasHealth := raw["health"]
	if !hasType || (!hasPosition && !hasHealth) {
		return Entity{}, false
	}

	e := Entity{Type: typ}
	if name, ok := toString(raw["name"]); ok {
		e.Name = name
	}
	if kind, ok := toString(raw["kind"]); ok {
		e.Kind = kind
	}
	if id, ok := toString(raw["id"]); ok {
		e.ID = id
	}
	if d, ok := toFloat(raw["distance"]); ok {
		e.Distance = d
	}
	if posRaw, ok := raw["position"].(RawMap); ok {
		if pos, ok := DecodePositionLike(posRaw); ok {
			e.Position = pos
		}
	} else if posArr, ok := raw["position"].([]any); ok && len(posArr) == 3 {
		if x, okX := toFloat(posArr[0]); okX {
			if y, okY := toFloat(posArr[1]); okY {
				if z, okZ := toFloat(posArr[2]); okZ {
					e.Position = geo.Position{X: x, Y: y, Z: z}
				}
			}
		}
	}
	if h, ok := toFloat(raw["health"]); ok {
		e.Health = h
		e.HasHealth = true
	}
	if mh, ok := toFloat(raw["maxHealth"]); ok {
		e.MaxHealth = mh
	}
	return e, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}
