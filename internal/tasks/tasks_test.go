package tasks

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/l1jgo/mcagent/internal/geo"
	"github.com/l1jgo/mcagent/internal/persist"
)

func newTestStore(t *testing.T, name string) *persist.JSONStore {
	t.Helper()
	store, err := persist.NewJSONStore(filepath.Join(t.TempDir(), name))
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	return store
}

func TestAddAssignsSequentialID(t *testing.T) {
	l := NewList(newTestStore(t, "todo_list.json"))
	a, _ := l.Add("mine diamonds", "have 1 diamond")
	b, _ := l.Add("build shelter", "4 walls and a roof")
	if a.ID != "1" || b.ID != "2" {
		t.Fatalf("expected sequential ids 1,2, got %s,%s", a.ID, b.ID)
	}
}

func TestDeleteDoesNotRenumber(t *testing.T) {
	l := NewList(newTestStore(t, "todo_list.json"))
	l.Add("a", "crit")
	l.Add("b", "crit")
	if err := l.DeleteByID("1"); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	c, _ := l.Add("c", "crit")
	if c.ID != "3" {
		t.Fatalf("expected new task to get id 3 (no renumbering), got %s", c.ID)
	}
	if _, ok := l.GetByID("2"); !ok {
		t.Fatalf("expected task 2 to survive the deletion of task 1")
	}
}

func TestGetByIDToleratesNonNumeric(t *testing.T) {
	l := NewList(newTestStore(t, "todo_list.json"))
	l.Add("a", "crit")
	if _, ok := l.GetByID("task#1"); !ok {
		t.Fatalf("expected GetByID to extract the digit run from a non-numeric id")
	}
}

func TestCheckIfAllDone(t *testing.T) {
	l := NewList(newTestStore(t, "todo_list.json"))
	a, _ := l.Add("a", "crit")
	if l.CheckIfAllDone() {
		t.Fatalf("expected false with an undone task")
	}
	l.MarkDone(a.ID)
	if !l.CheckIfAllDone() {
		t.Fatalf("expected true once all tasks are done")
	}
	l.SetNeedEdit("pending review")
	if l.CheckIfAllDone() {
		t.Fatalf("expected false while an edit is pending")
	}
}

func TestLocationsDuplicateNameSuffixing(t *testing.T) {
	l := NewLocations(newTestStore(t, "locations.json"))
	n1, _ := l.Add("home", "base", geo.BlockPosition{X: 0, Y: 64, Z: 0})
	n2, _ := l.Add("home", "second base", geo.BlockPosition{X: 10, Y: 64, Z: 0})
	n3, _ := l.Add("home", "third base", geo.BlockPosition{X: 20, Y: 64, Z: 0})
	if n1 != "home" || n2 != "home-1" || n3 != "home-2" {
		t.Fatalf("expected home, home-1, home-2, got %s, %s, %s", n1, n2, n3)
	}
}

func TestLocationsRemoveByPosition(t *testing.T) {
	l := NewLocations(newTestStore(t, "locations.json"))
	l.Add("home", "base", geo.BlockPosition{X: 0, Y: 64, Z: 0})
	if err := l.Remove(geo.BlockPosition{X: 0, Y: 64, Z: 0}); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(l.All()) != 0 {
		t.Fatalf("expected location removed")
	}
}

func TestLocationPointMarshalsAsPositionalTuple(t *testing.T) {
	point := LocationPoint{Name: "home", Info: "base", Position: geo.BlockPosition{X: 1, Y: 64, Z: -3}}
	data, err := json.Marshal(point)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	const want = `["home","base",{"x":1,"y":64,"z":-3}]`
	if string(data) != want {
		t.Fatalf("Marshal = %s, want %s", data, want)
	}

	var got LocationPoint
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != point {
		t.Fatalf("round trip = %+v, want %+v", got, point)
	}
}
