package event

import "testing"

func mkEvent(typ, player string) Event {
	return Event{Type: typ, PlayerTag: player, Data: baseData{eventType: typ, fields: nil}}
}

func TestStoreRecentContainsInserted(t *testing.T) {
	s := NewStore(500)
	e := mkEvent(TypeChat, "Alice")
	s.Add(e)
	recent := s.Recent(10)
	if len(recent) != 1 || recent[0].Type != TypeChat {
		t.Fatalf("expected inserted event in Recent, got %+v", recent)
	}
	byType := s.ByType(TypeChat, 10)
	if len(byType) != 1 {
		t.Fatalf("expected inserted event in ByType, got %+v", byType)
	}
}

func TestStoreInsertionOrderPreserved(t *testing.T) {
	s := NewStore(500)
	for i := 0; i < 5; i++ {
		s.Add(mkEvent(TypeChat, "Alice"))
	}
	s.Add(mkEvent(TypeHealth, "Alice"))
	recent := s.Recent(0)
	if recent[len(recent)-1].Type != TypeHealth {
		t.Fatalf("expected last event to be most recently added")
	}
}

func TestStoreEvictsOldestAtCapacity(t *testing.T) {
	s := NewStore(3)
	s.Add(mkEvent(TypeChat, "a"))
	s.Add(mkEvent(TypeChat, "b"))
	s.Add(mkEvent(TypeChat, "c"))
	s.Add(mkEvent(TypeHealth, "d"))

	all := s.Recent(0)
	if len(all) != 3 {
		t.Fatalf("expected capacity-bounded length 3, got %d", len(all))
	}
	if all[0].PlayerTag != "b" {
		t.Fatalf("expected oldest ('a') to be evicted, got %+v", all)
	}
}

func TestStoreByPlayer(t *testing.T) {
	s := NewStore(500)
	s.Add(mkEvent(TypeChat, "Alice"))
	s.Add(mkEvent(TypeChat, "Bob"))
	got := s.ByPlayer("Bob", 0)
	if len(got) != 1 || got[0].PlayerTag != "Bob" {
		t.Fatalf("expected only Bob's event, got %+v", got)
	}
}

func TestStoreStats(t *testing.T) {
	s := NewStore(500)
	s.Add(mkEvent(TypeChat, "Alice"))
	s.Add(mkEvent(TypeChat, "Bob"))
	s.Add(mkEvent(TypeHealth, "Alice"))
	stats := s.Stats()
	if stats[TypeChat] != 2 || stats[TypeHealth] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
