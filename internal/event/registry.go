package event

import (
	"sync"

	"github.com/l1jgo/mcagent/internal/entity"
	"go.uber.org/zap"
)

// Registry maps a wire event type name to the constructor that decodes its
// data payload. Unknown types fall back to the base event.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]func(entity.RawMap) Data
	log          *zap.Logger
}

// NewRegistry returns a Registry pre-populated with every built-in variant
// constructor.
func NewRegistry(log *zap.Logger) *Registry {
	r := &Registry{constructors: make(map[string]func(entity.RawMap) Data), log: log}
	for eventType, ctor := range builtinConstructors() {
		r.constructors[eventType] = ctor
	}
	return r
}

// Register installs (or overwrites) the constructor for eventType. Per
// spec, re-registration overwrites and logs a warning rather than erroring.
func (r *Registry) Register(eventType string, ctor func(entity.RawMap) Data) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.constructors[eventType]; exists {
		r.log.Warn("event: overwriting existing constructor", zap.String("type", eventType))
	}
	r.constructors[eventType] = ctor
}

// CreateFromRawData dispatches payload.Type to its registered constructor,
// falling back to the base event for unrecognized types.
func (r *Registry) CreateFromRawData(payload RawPayload) Event {
	r.mu.RLock()
	ctor, ok := r.constructors[payload.Type]
	r.mu.RUnlock()

	var data Data
	if ok {
		data = ctor(payload.Fields)
	} else {
		data = baseData{eventType: payload.Type, fields: payload.Fields}
	}

	return Event{
		Type:      payload.Type,
		GameTick:  payload.GameTick,
		Timestamp: payload.Timestamp,
		PlayerTag: playerTag(payload.Fields),
		Data:      data,
	}
}

// playerTag extracts a best-effort player/username association for
// Store.ByPlayer, without requiring every variant to expose one uniformly.
func playerTag(f entity.RawMap) string {
	if v, ok := f["username"].(string); ok {
		return v
	}
	if v, ok := f["sender"].(string); ok {
		return v
	}
	if v, ok := f["player_name"].(string); ok {
		return v
	}
	return ""
}

// KnownTypes returns every registered event type, for diagnostics.
func (r *Registry) KnownTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.constructors))
	for t := range r.constructors {
		out = append(out, t)
	}
	return out
}
