package tasks

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/l1jgo/mcagent/internal/geo"
	"github.com/l1jgo/mcagent/internal/persist"
)

// LocationPoint is a named place the agent has been told to remember. It
// marshals as the 3-element positional tuple data/locations.json expects
// ([name, info, {x,y,z}]) rather than as a JSON object.
type LocationPoint struct {
	Name     string
	Info     string
	Position geo.BlockPosition
}

func (l LocationPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{l.Name, l.Info, l.Position})
}

func (l *LocationPoint) UnmarshalJSON(data []byte) error {
	var tuple [3]json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[0], &l.Name); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[1], &l.Info); err != nil {
		return err
	}
	return json.Unmarshal(tuple[2], &l.Position)
}

// Locations is the persistent, name-deduplicated list of remembered points.
type Locations struct {
	mu    sync.Mutex
	store *persist.JSONStore
	items []LocationPoint
}

// NewLocations returns a Locations backed by store, loading any previously
// persisted points.
func NewLocations(store *persist.JSONStore) *Locations {
	l := &Locations{store: store}
	var loaded []LocationPoint
	_ = store.Load(&loaded)
	l.items = loaded
	return l
}

func (l *Locations) saveLocked() error {
	snapshot := append([]LocationPoint(nil), l.items...)
	return l.store.Save(snapshot)
}

// Add inserts a location point, de-conflicting a duplicate name by suffixing
// "-1", "-2", … (first unused index), and returns the name actually stored.
func (l *Locations) Add(name, info string, pos geo.BlockPosition) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing := make(map[string]bool, len(l.items))
	for _, it := range l.items {
		existing[it.Name] = true
	}
	finalName := name
	if existing[finalName] {
		for i := 1; ; i++ {
			candidate := fmt.Sprintf("%s-%d", name, i)
			if !existing[candidate] {
				finalName = candidate
				break
			}
		}
	}
	l.items = append(l.items, LocationPoint{Name: finalName, Info: info, Position: pos})
	return finalName, l.saveLocked()
}

// Remove deletes every point at pos and persists.
func (l *Locations) Remove(pos geo.BlockPosition) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.items[:0:0]
	for _, it := range l.items {
		if it.Position != pos {
			out = append(out, it)
		}
	}
	l.items = out
	return l.saveLocked()
}

// Get returns the point with the given name, if any.
func (l *Locations) Get(name string) (geo.BlockPosition, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, it := range l.items {
		if it.Name == name {
			return it.Position, true
		}
	}
	return geo.BlockPosition{}, false
}

// All returns a snapshot of every remembered location point.
func (l *Locations) All() []LocationPoint {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LocationPoint(nil), l.items...)
}

// Summary renders every point as one "location: [name] info x=..,y=..,z=.."
// line, or a placeholder sentence when no points are set.
func (l *Locations) Summary() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 {
		return "No location points set yet; they can be added."
	}
	lines := make([]string, len(l.items))
	for i, it := range l.items {
		lines[i] = fmt.Sprintf("location: [%s] %s x=%d,y=%d,z=%d", it.Name, it.Info, it.Position.X, it.Position.Y, it.Position.Z)
	}
	return strings.Join(lines, "\n")
}
