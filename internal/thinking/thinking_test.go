package thinking

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/l1jgo/mcagent/internal/persist"
)

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

func newTestLog(t *testing.T) *Log {
	t.Helper()
	store, err := persist.NewJSONStore(filepath.Join(t.TempDir(), "thinking_log.json"))
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	return NewLog(fakeClock{t: time.Unix(1_700_000_000, 0)}, store)
}

func TestEntryMarshalsAsPositionalTuple(t *testing.T) {
	e := Entry{Text: "mined a diamond", Kind: KindAction, Timestamp: 1_700_000_000}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	const want = `["mined a diamond","action",1700000000]`
	if string(data) != want {
		t.Fatalf("Marshal = %s, want %s", data, want)
	}

	var got Entry
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != e {
		t.Fatalf("round trip = %+v, want %+v", got, e)
	}
}

func TestLogAddBounded(t *testing.T) {
	l := newTestLog(t)
	for i := 0; i < maxEntries+5; i++ {
		if err := l.Add("entry", KindThinking); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if len(l.entries) != maxEntries {
		t.Fatalf("expected %d entries, got %d", maxEntries, len(l.entries))
	}
}

func TestLogPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thinking_log.json")
	store, err := persist.NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	clk := fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := NewLog(clk, store)
	if err := l.Add("hello", KindAction); err != nil {
		t.Fatalf("Add: %v", err)
	}

	store2, err := persist.NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	reloaded := NewLog(clk, store2)
	if len(reloaded.entries) != 1 || reloaded.entries[0].Text != "hello" {
		t.Fatalf("expected reload to recover the persisted entry, got %+v", reloaded.entries)
	}
}

func TestRenderMergesAndOrdersByTimestamp(t *testing.T) {
	l := newTestLog(t)
	_ = l.Add("thought one", KindThinking)
	_ = l.Add("did something", KindAction)

	out := l.Render(nil, false)
	if !strings.Contains(out, "thought one") || !strings.Contains(out, "did something") {
		t.Fatalf("expected both entries rendered, got %q", out)
	}
}
