package thinking

import (
	"testing"

	"github.com/l1jgo/mcagent/internal/entity"
	"github.com/l1jgo/mcagent/internal/event"
)

type fakeChatSource struct{ events []event.Event }

func (f fakeChatSource) ByType(eventType string, limit int) []event.Event { return f.events }

func chatEvent(sender, message string, ts float64) event.Event {
	return event.Event{
		Type:      "chat",
		Timestamp: ts,
		Data:      chatData{sender: sender, message: message},
	}
}

type chatData struct {
	sender, message string
}

func (c chatData) Description() string   { return c.sender + ": " + c.message }
func (c chatData) ContextString() string { return c.Description() }
func (c chatData) AsMap() entity.RawMap {
	return entity.RawMap{"sender": c.sender, "message": c.message}
}

func TestChatHistoryOnChatEventMention(t *testing.T) {
	l := newTestLog(t)
	ch := NewChatHistory("Bot", l)
	if err := ch.OnChatEvent("Alice", "hey Bot can you help"); err != nil {
		t.Fatalf("OnChatEvent: %v", err)
	}
	if !ch.CalledOut() || !ch.NewMessage() {
		t.Fatalf("expected CalledOut and NewMessage both true")
	}
}

func TestChatHistoryIgnoresOwnMessages(t *testing.T) {
	l := newTestLog(t)
	ch := NewChatHistory("Bot", l)
	if err := ch.OnChatEvent("Bot", "talking to myself"); err != nil {
		t.Fatalf("OnChatEvent: %v", err)
	}
	if ch.NewMessage() {
		t.Fatalf("expected own messages not to set NewMessage")
	}
}

func TestChatHistoryRenderRecent(t *testing.T) {
	src := fakeChatSource{events: []event.Event{
		chatEvent("Alice", "hi", 1_700_000_000),
	}}
	ch := NewChatHistory("Bot", newTestLog(t))
	out := ch.RenderRecent(src, 1_700_000_010)
	if out == "" {
		t.Fatalf("expected non-empty rendered chat history")
	}
}
