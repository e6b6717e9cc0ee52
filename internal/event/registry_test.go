package event

import (
	"testing"

	"github.com/l1jgo/mcagent/internal/entity"
	"go.uber.org/zap"
)

func TestRegistryDecodesKnownType(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	ev := r.CreateFromRawData(RawPayload{
		Type:      TypeChat,
		GameTick:  10,
		Timestamp: 1700000000000,
		Fields:    entity.RawMap{"sender": "Alice", "message": "hi"},
	})
	chat, ok := ev.Data.(ChatData)
	if !ok {
		t.Fatalf("expected ChatData, got %T", ev.Data)
	}
	if chat.Sender != "Alice" || chat.Message != "hi" {
		t.Fatalf("unexpected decoded chat: %+v", chat)
	}
}

func TestRegistryFallsBackToBaseEventForUnknownType(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	ev := r.CreateFromRawData(RawPayload{
		Type:   "somethingNew",
		Fields: entity.RawMap{"foo": "bar"},
	})
	base, ok := ev.Data.(baseData)
	if !ok {
		t.Fatalf("expected baseData fallback, got %T", ev.Data)
	}
	if base.AsMap()["foo"] != "bar" {
		t.Fatalf("expected raw fields preserved, got %+v", base.AsMap())
	}
}
