package entity

import "testing"

func TestDecodePositionLike(t *testing.T) {
	pos, ok := DecodePositionLike(RawMap{"x": 1.0, "y": 2.0, "z": 3.0})
	if !ok || pos.X != 1 || pos.Y != 2 || pos.Z != 3 {
		t.Fatalf("expected decoded position, got %v ok=%v", pos, ok)
	}
	if _, ok := DecodePositionLike(RawMap{"x": 1.0, "y": 2.0}); ok {
		t.Fatalf("expected rejection of incomplete position map")
	}
	if _, ok := DecodePositionLike(RawMap{"x": 1.0, "y": 2.0, "z": 3.0, "w": 4.0}); ok {
		t.Fatalf("expected rejection of position map with extra field")
	}
}

func TestDecodePlayerLike(t *testing.T) {
	p, ok := DecodePlayerLike(RawMap{"username": "Alice", "ping": 42.0})
	if !ok || p.Username != "Alice" || p.Ping != 42 {
		t.Fatalf("expected decoded player, got %+v ok=%v", p, ok)
	}
	if _, ok := DecodePlayerLike(RawMap{"health": 20.0}); ok {
		t.Fatalf("expected rejection of non-player map")
	}
}

func TestDecodeEntityLike(t *testing.T) {
	e, ok := DecodeEntityLike(RawMap{
		"type":   "hostile",
		"name":   "zombie",
		"health": 20.0,
	})
	if !ok || e.Type != "hostile" || e.Name != "zombie" || !e.HasHealth {
		t.Fatalf("expected decoded entity, got %+v ok=%v", e, ok)
	}
	if _, ok := DecodeEntityLike(RawMap{"type": "hostile"}); ok {
		t.Fatalf("expected rejection of entity map without position or health")
	}
}
