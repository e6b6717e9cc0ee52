// Package event implements the typed pub/sub event model: wire-payload
// decoding into per-type variants (C3), a name→constructor registry (C4),
// a bounded event store (C5), and a concurrency-bounded emitter (C6).
package event

import (
	"fmt"

	"github.com/l1jgo/mcagent/internal/clock"
	"github.com/l1jgo/mcagent/internal/entity"
	"github.com/l1jgo/mcagent/internal/geo"
)

// Data is implemented by every event variant's payload. AsMap is the
// escape hatch for callers that need generic field access instead of the
// typed struct (replacing the original's exception-raising __getattr__).
type Data interface {
	Description() string
	ContextString() string
	AsMap() entity.RawMap
}

// Event is the common envelope every variant is wrapped in.
type Event struct {
	Type      string
	GameTick  int64
	Timestamp float64 // raw, as delivered on the wire (may be ms or s)
	PlayerTag string  // best-effort player/username association, used by Store.ByPlayer
	Data      Data
}

// TimestampSeconds normalizes Timestamp via clock.NormalizeTimestamp.
func (e Event) TimestampSeconds() float64 {
	return clock.NormalizeTimestamp(e.Timestamp)
}

// RawPayload is the shape a decoded wire message arrives in:
// {type, gameTick, timestamp, data}.
type RawPayload struct {
	Type      string
	GameTick  int64
	Timestamp float64
	Fields    entity.RawMap
}

// baseData is the fallback Data implementation for unrecognized event
// types: it carries the raw field map unopinionated, per the registry's
// "unknown types fall back to the base event" rule.
type baseData struct {
	eventType string
	fields    entity.RawMap
}

func (b baseData) Description() string { return fmt.Sprintf("%s event", b.eventType) }
func (b baseData) ContextString() string {
	return fmt.Sprintf("[%s] %v", b.eventType, b.fields)
}
func (b baseData) AsMap() entity.RawMap { return b.fields }

func fieldString(fields entity.RawMap, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func fieldFloat(fields entity.RawMap, key string) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func fieldPosition(fields entity.RawMap) (geo.Position, bool) {
	m, ok := fields["position"].(entity.RawMap)
	if !ok {
		return geo.Position{}, false
	}
	return entity.DecodePositionLike(m)
}
