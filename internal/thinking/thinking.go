// Package thinking implements the bounded thinking log (C11) and the chat
// history feed, the agent's two JSON-persisted textual context buffers.
package thinking

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/l1jgo/mcagent/internal/clock"
	"github.com/l1jgo/mcagent/internal/event"
	"github.com/l1jgo/mcagent/internal/persist"
)

const maxEntries = 20

// Kind is the category a thinking-log entry belongs to; it drives both the
// per-kind merge budgets and (for "event") whether the entry is sourced
// from the log itself or pulled live from the event store.
type Kind string

const (
	KindThinking Kind = "thinking"
	KindAction   Kind = "action"
	KindNotice   Kind = "notice"
	KindEvent    Kind = "event"
)

// Entry is one thinking-log record. It marshals as the 3-element
// positional tuple data/thinking_log.json expects ([text, kind,
// timestamp_s]) rather than as a JSON object.
type Entry struct {
	Text      string
	Kind      Kind
	Timestamp float64
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.Text, e.Kind, e.Timestamp})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var tuple [3]json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[0], &e.Text); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[1], &e.Kind); err != nil {
		return err
	}
	return json.Unmarshal(tuple[2], &e.Timestamp)
}

// budget caps how many of each kind survive into a rendered view.
type budget struct {
	thinking, action, notice, event int
}

var (
	shortBudget = budget{thinking: 3, action: 8, notice: 8, event: 5}
	fullBudget  = budget{thinking: 10, action: 10, notice: 10, event: 10}
)

// Log is the bounded, typed, JSON-persisted thinking log.
type Log struct {
	mu      sync.Mutex
	clk     clock.Clock
	store   *persist.JSONStore
	entries []Entry

	judgeGuidance string
}

// NewLog returns a Log backed by store, loading any previously persisted
// entries. A load failure is non-fatal: the log starts empty.
func NewLog(clk clock.Clock, store *persist.JSONStore) *Log {
	l := &Log{clk: clk, store: store}
	var loaded []Entry
	_ = store.Load(&loaded)
	l.entries = loaded
	return l
}

// SetJudgeGuidance records a guidance string surfaced alongside the log in
// prompt construction (not part of the bounded entry list itself).
func (l *Log) SetJudgeGuidance(guidance string) {
	l.mu.Lock()
	l.judgeGuidance = guidance
	l.mu.Unlock()
}

// JudgeGuidance returns the last guidance string set.
func (l *Log) JudgeGuidance() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.judgeGuidance
}

// Add appends an entry, trims the buffer to maxEntries, and persists.
// A persistence failure is returned to the caller; the in-memory entry is
// kept either way.
func (l *Log) Add(text string, kind Kind) error {
	l.mu.Lock()
	l.entries = append(l.entries, Entry{Text: text, Kind: kind, Timestamp: float64(clock.NowMillis(l.clk)) / 1000})
	if len(l.entries) > maxEntries {
		l.entries = l.entries[len(l.entries)-maxEntries:]
	}
	snapshot := append([]Entry(nil), l.entries...)
	l.mu.Unlock()
	return l.store.Save(snapshot)
}

// Clear empties the log and persists the empty state.
func (l *Log) Clear() error {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
	return l.store.Save([]Entry{})
}

// EventSource is the subset of the event store the thinking log merges its
// rendered view with.
type EventSource interface {
	Recent(n int) []event.Event
}

func (l *Log) split() (thinking, action, notice []Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		switch e.Kind {
		case KindThinking:
			thinking = append(thinking, e)
		case KindAction:
			action = append(action, e)
		case KindNotice:
			notice = append(notice, e)
		}
	}
	return
}

func tail(entries []Entry, n int) []Entry {
	if len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}

// Render merges the thinking log with events pulled live from src,
// respecting the short (bounded) or full per-kind budgets, and produces a
// chronologically sorted "HH:MM:SS:text" view.
func (l *Log) Render(src EventSource, full bool) string {
	b := shortBudget
	eventN := 15
	if full {
		b = fullBudget
		eventN = 20
	}

	thinkingItems, actionItems, noticeItems := l.split()
	thinkingItems = tail(thinkingItems, b.thinking)
	actionItems = tail(actionItems, b.action)
	noticeItems = tail(noticeItems, b.notice)

	var eventItems []Entry
	if src != nil {
		for _, ev := range src.Recent(eventN) {
			eventItems = append(eventItems, Entry{
				Text:      ev.Data.Description(),
				Kind:      KindEvent,
				Timestamp: ev.TimestampSeconds(),
			})
		}
	}
	eventItems = tail(eventItems, b.event)

	all := make([]Entry, 0, len(thinkingItems)+len(actionItems)+len(noticeItems)+len(eventItems))
	all = append(all, noticeItems...)
	all = append(all, actionItems...)
	all = append(all, thinkingItems...)
	all = append(all, eventItems...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp < all[j].Timestamp })

	var sb strings.Builder
	for _, e := range all {
		seconds := clock.NormalizeTimestamp(e.Timestamp)
		sb.WriteString(fmt.Sprintf("%s:%s\n", clock.FormatClock(seconds), e.Text))
	}
	return sb.String()
}
