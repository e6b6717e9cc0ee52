package wsfanout

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/l1jgo/mcagent/internal/persist"
	"github.com/l1jgo/mcagent/internal/tasks"
)

func newTestServer(t *testing.T) (*httptest.Server, *tasks.List) {
	t.Helper()
	store, err := persist.NewJSONStore(filepath.Join(t.TempDir(), "tasks.json"))
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	list := tasks.NewList(store)

	cfg := Config{HeartbeatInterval: 50 * time.Millisecond, HeartbeatTimeout: 500 * time.Millisecond}
	channel := NewTasksChannel(zap.NewNop(), cfg, list)
	srv := NewServer(zap.NewNop(), channel)

	mux := http.NewServeMux()
	srv.Register(mux)
	return httptest.NewServer(mux), list
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/tasks"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return msg
}

func TestWelcomeEnvelopeOnConnect(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()
	conn := dial(t, srv)
	defer conn.Close()

	msg := readJSON(t, conn)
	if msg["type"] != "welcome" {
		t.Fatalf("expected welcome envelope, got %v", msg)
	}
	cfg, ok := msg["config"].(map[string]any)
	if !ok {
		t.Fatalf("expected config field in welcome envelope, got %v", msg)
	}
	if _, ok := cfg["heartbeat_interval"]; !ok {
		t.Fatalf("expected heartbeat_interval in welcome config, got %v", cfg)
	}
	if id, ok := msg["client_id"].(string); !ok || id == "" {
		t.Fatalf("expected a non-empty client_id in welcome envelope, got %v", msg)
	}
}

func TestPingPongRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()
	conn := dial(t, srv)
	defer conn.Close()
	readJSON(t, conn) // welcome

	if err := conn.WriteJSON(map[string]any{"type": "ping", "timestamp": 123}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	msg := readJSON(t, conn)
	if msg["type"] != "pong" {
		t.Fatalf("expected pong reply, got %v", msg)
	}
}

func TestSubscribeRejectsOutOfRangeInterval(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()
	conn := dial(t, srv)
	defer conn.Close()
	readJSON(t, conn) // welcome

	if err := conn.WriteJSON(map[string]any{"type": "subscribe", "update_interval": 50}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	msg := readJSON(t, conn)
	if msg["type"] != "error" || msg["error_code"] != errInvalidInterval {
		t.Fatalf("expected INVALID_INTERVAL error, got %v", msg)
	}
}

func TestSubscribeSendsAckThenSnapshot(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()
	conn := dial(t, srv)
	defer conn.Close()
	readJSON(t, conn) // welcome

	if err := conn.WriteJSON(map[string]any{"type": "subscribe", "update_interval": 2000}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	ack := readJSON(t, conn)
	if ack["type"] != "subscribed" {
		t.Fatalf("expected subscribed ack, got %v", ack)
	}
	snapshot := readJSON(t, conn)
	if snapshot["type"] != "tasks_update" {
		t.Fatalf("expected an immediate tasks_update snapshot, got %v", snapshot)
	}
}

func TestAddTaskBroadcastsToOtherSubscribersOnly(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()

	subscriber := dial(t, srv)
	defer subscriber.Close()
	readJSON(t, subscriber) // welcome
	if err := subscriber.WriteJSON(map[string]any{"type": "subscribe", "update_interval": 2000}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	readJSON(t, subscriber) // subscribed ack
	readJSON(t, subscriber) // initial snapshot

	actor := dial(t, srv)
	defer actor.Close()
	readJSON(t, actor) // welcome

	if err := actor.WriteJSON(map[string]any{"type": "add_task", "details": "mine 10 logs", "done_criteria": "10 oak_log in inventory"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	ack := readJSON(t, actor)
	if ack["type"] != "task_added" {
		t.Fatalf("expected task_added ack on the originating connection, got %v", ack)
	}

	broadcast := readJSON(t, subscriber)
	if broadcast["type"] != "tasks_update" {
		t.Fatalf("expected tasks_update broadcast on the other subscriber, got %v", broadcast)
	}
}

func TestAddTaskValidatesRequiredFields(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()
	conn := dial(t, srv)
	defer conn.Close()
	readJSON(t, conn) // welcome

	if err := conn.WriteJSON(map[string]any{"type": "add_task", "details": ""}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	msg := readJSON(t, conn)
	if msg["type"] != "error" || msg["error_code"] != errValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", msg)
	}
}

func TestUnknownMessageTypeReturnsError(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()
	conn := dial(t, srv)
	defer conn.Close()
	readJSON(t, conn) // welcome

	if err := conn.WriteJSON(map[string]any{"type": "frobnicate"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	msg := readJSON(t, conn)
	if msg["type"] != "error" || msg["error_code"] != errUnknownMessage {
		t.Fatalf("expected UNKNOWN_MESSAGE_TYPE, got %v", msg)
	}
}

func TestMarkDoneRoundTrip(t *testing.T) {
	srv, list := newTestServer(t)
	defer srv.Close()
	task, err := list.Add("explore the nether", "found a fortress")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	conn := dial(t, srv)
	defer conn.Close()
	readJSON(t, conn) // welcome

	if err := conn.WriteJSON(map[string]any{"type": "mark_done", "task_id": task.ID}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	ack := readJSON(t, conn)
	if ack["type"] != "task_marked_done" {
		t.Fatalf("expected task_marked_done ack, got %v", ack)
	}

	got, ok := list.GetByID(task.ID)
	if !ok || !got.Done {
		t.Fatalf("expected task %s marked done in the underlying list, got %+v ok=%v", task.ID, got, ok)
	}
}
