package thinking

import (
	"fmt"
	"strings"

	"github.com/l1jgo/mcagent/internal/clock"
	"github.com/l1jgo/mcagent/internal/event"
)

const (
	chatWindowSeconds = 1800
	chatMaxLines      = 30
)

// ChatRecord is one chat-history line, keyed off the underlying chat event.
type ChatRecord struct {
	Message   string
	Sender    string
	Type      string
	Timestamp float64
}

// ChatHistory renders recent chat activity pulled from the event store and
// annotates the thinking log when the bot's own name is mentioned.
type ChatHistory struct {
	botUsername string
	log         *Log
	newMessage  bool
	calledOut   bool
}

// NewChatHistory returns a ChatHistory that writes notices to log and
// compares incoming sender names against botUsername to avoid the bot
// mistaking its own chat for someone else's.
func NewChatHistory(botUsername string, log *Log) *ChatHistory {
	return &ChatHistory{botUsername: botUsername, log: log}
}

// chatSource is the subset of the event store chat history reads from.
type chatSource interface {
	ByType(eventType string, limit int) []event.Event
}

// RenderRecent returns up to chatMaxLines chat lines from the last 30
// minutes, formatted "[HH:MM:SS]sender: message", with the bot's own name
// replaced by "you" so it doesn't mistake its own messages for another
// player's.
func (c *ChatHistory) RenderRecent(src chatSource, nowSeconds float64) string {
	events := src.ByType("chat", 50)

	var recent []event.Event
	for _, e := range events {
		if nowSeconds-e.TimestampSeconds() <= chatWindowSeconds {
			recent = append(recent, e)
		}
	}
	if len(recent) > chatMaxLines {
		recent = recent[len(recent)-chatMaxLines:]
	}

	var b strings.Builder
	for _, e := range recent {
		m := e.Data.AsMap()
		sender, _ := m["sender"].(string)
		message, _ := m["message"].(string)
		display := sender
		if sender == c.botUsername {
			display = "you"
		}
		b.WriteString(fmt.Sprintf("[%s]%s: %s\n", clock.FormatClock(e.TimestampSeconds()), display, message))
	}
	return b.String()
}

// OnChatEvent records the incoming chat event's bookkeeping flags and, when
// it wasn't sent by the bot itself, writes a notice to the thinking log —
// a "mentioned" notice if the message names the bot, a plain delivery
// notice otherwise. Matches the original's "always append" behavior: the
// notice is written unconditionally whenever the sender isn't the bot,
// regardless of whether a reply is actually warranted.
func (c *ChatHistory) OnChatEvent(sender, message string) error {
	if sender == c.botUsername {
		return nil
	}
	c.newMessage = true
	if strings.Contains(message, c.botUsername) {
		c.calledOut = true
		return c.log.Add(fmt.Sprintf("player %s mentioned you, consider replying", sender), KindNotice)
	}
	return c.log.Add(fmt.Sprintf("player %s said: %s", sender, message), KindNotice)
}

// NewMessage reports whether an unread player message has arrived.
func (c *ChatHistory) NewMessage() bool { return c.newMessage }

// CalledOut reports whether the bot's name was mentioned in an unread message.
func (c *ChatHistory) CalledOut() bool { return c.calledOut }

// AcknowledgeMessages clears the new-message/called-out flags once the
// planner has consumed them.
func (c *ChatHistory) AcknowledgeMessages() {
	c.newMessage = false
	c.calledOut = false
}
