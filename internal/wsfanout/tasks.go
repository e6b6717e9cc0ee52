package wsfanout

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/l1jgo/mcagent/internal/tasks"
)

const (
	minUpdateInterval = 1000 * time.Millisecond
	maxUpdateInterval = 30000 * time.Millisecond

	errValidation       = "VALIDATION_ERROR"
	errOperationFailed   = "OPERATION_FAILED"
	errInvalidInterval  = "INVALID_INTERVAL"
	errUnknownMessage   = "UNKNOWN_MESSAGE_TYPE"
)

// TasksChannel is the /ws/tasks channel: clients subscribe to receive
// push updates whenever the task list changes, and can also drive the
// list directly (add/update/delete/mark done). Updates are event-driven
// only — nothing here polls the list on a timer.
type TasksChannel struct {
	base *Base
	log  *zap.Logger
	list *tasks.List
}

// NewTasksChannel returns a TasksChannel serving list over a Base
// configured with cfg.
func NewTasksChannel(log *zap.Logger, cfg Config, list *tasks.List) *TasksChannel {
	tc := &TasksChannel{log: log.With(zap.String("channel", "tasks")), list: list}
	tc.base = NewBase("Tasks", log, cfg, tc)
	return tc
}

// HandleConnection runs the connection lifecycle for one client of this
// channel; call from the HTTP upgrade handler after accepting conn.
func (tc *TasksChannel) HandleConnection(conn *websocket.Conn) {
	tc.base.HandleConnection(conn)
}

func (tc *TasksChannel) HandleCustomMessage(conn *websocket.Conn, state *clientState, messageType string, data map[string]any) {
	switch messageType {
	case "subscribe":
		tc.handleSubscribe(conn, state, data)
	case "unsubscribe":
		tc.handleUnsubscribe(conn, state)
	case "get_tasks":
		tc.handleGetTasks(conn)
	case "add_task":
		tc.handleAddTask(conn, data)
	case "update_task":
		tc.handleUpdateTask(conn, data)
	case "delete_task":
		tc.handleDeleteTask(conn, data)
	case "mark_done":
		tc.handleMarkDone(conn, data)
	default:
		tc.base.sendError(conn, "unknown message type: "+messageType, errUnknownMessage)
	}
}

// CleanupClient is a no-op: task updates are event-driven broadcasts, not
// a per-client polling loop with state to tear down.
func (tc *TasksChannel) CleanupClient(conn *websocket.Conn) {}

func (tc *TasksChannel) handleSubscribe(conn *websocket.Conn, state *clientState, data map[string]any) {
	interval := 5000.0
	if raw, ok := data["update_interval"].(float64); ok {
		interval = raw
	}
	ms := time.Duration(interval) * time.Millisecond
	if ms < minUpdateInterval || ms > maxUpdateInterval {
		tc.base.sendError(conn, "update_interval must be between 1000 and 30000 ms", errInvalidInterval)
		return
	}

	state.mu.Lock()
	state.Extra["subscribed"] = true
	state.Extra["update_interval"] = ms
	state.lastHeartbeat = time.Now()
	state.mu.Unlock()

	_ = tc.base.sendJSON(conn, envelope{
		"type":      "subscribed",
		"timestamp": nowMillis(),
		"message":   "subscribed to task updates",
	})
	tc.sendTasksSnapshot(conn)
}

func (tc *TasksChannel) handleUnsubscribe(conn *websocket.Conn, state *clientState) {
	state.mu.Lock()
	state.Extra["subscribed"] = false
	state.mu.Unlock()

	_ = tc.base.sendJSON(conn, envelope{
		"type":      "unsubscribed",
		"timestamp": nowMillis(),
	})
}

func (tc *TasksChannel) handleGetTasks(conn *websocket.Conn) {
	_ = tc.base.sendJSON(conn, envelope{
		"type":      "tasks_list",
		"timestamp": nowMillis(),
		"data":      tc.snapshot(),
	})
}

func (tc *TasksChannel) handleAddTask(conn *websocket.Conn, data map[string]any) {
	details, _ := data["details"].(string)
	doneCriteria, _ := data["done_criteria"].(string)
	if details == "" || doneCriteria == "" {
		tc.base.sendError(conn, "details and done_criteria are required", errValidation)
		return
	}
	task, err := tc.list.Add(details, doneCriteria)
	if err != nil {
		tc.base.sendError(conn, err.Error(), errOperationFailed)
		return
	}
	tc.broadcastUpdate(conn)
	_ = tc.base.sendJSON(conn, envelope{
		"type":      "task_added",
		"timestamp": nowMillis(),
		"data":      task,
	})
}

func (tc *TasksChannel) handleUpdateTask(conn *websocket.Conn, data map[string]any) {
	id, _ := data["task_id"].(string)
	if id == "" {
		tc.base.sendError(conn, "task_id is required", errValidation)
		return
	}
	details, _ := data["details"].(string)
	doneCriteria, _ := data["done_criteria"].(string)
	progress, _ := data["progress"].(string)

	task, err := tc.list.UpdateFields(id, details, doneCriteria, progress)
	if err != nil {
		tc.base.sendError(conn, err.Error(), errOperationFailed)
		return
	}
	tc.broadcastUpdate(conn)
	_ = tc.base.sendJSON(conn, envelope{
		"type":      "task_updated",
		"timestamp": nowMillis(),
		"data":      task,
	})
}

func (tc *TasksChannel) handleDeleteTask(conn *websocket.Conn, data map[string]any) {
	id, _ := data["task_id"].(string)
	if id == "" {
		tc.base.sendError(conn, "task_id is required", errValidation)
		return
	}
	if err := tc.list.DeleteByID(id); err != nil {
		tc.base.sendError(conn, err.Error(), errOperationFailed)
		return
	}
	tc.broadcastUpdate(conn)
	_ = tc.base.sendJSON(conn, envelope{
		"type":      "task_deleted",
		"timestamp": nowMillis(),
		"data":      envelope{"task_id": id},
	})
}

func (tc *TasksChannel) handleMarkDone(conn *websocket.Conn, data map[string]any) {
	id, _ := data["task_id"].(string)
	if id == "" {
		tc.base.sendError(conn, "task_id is required", errValidation)
		return
	}
	if err := tc.list.MarkDone(id); err != nil {
		tc.base.sendError(conn, err.Error(), errOperationFailed)
		return
	}
	task, _ := tc.list.GetByID(id)
	tc.broadcastUpdate(conn)
	_ = tc.base.sendJSON(conn, envelope{
		"type":      "task_marked_done",
		"timestamp": nowMillis(),
		"data":      task,
	})
}

// broadcastUpdate pushes a tasks_update snapshot to every OTHER subscribed
// client; the originator already gets a typed ack from its own handler.
func (tc *TasksChannel) broadcastUpdate(exclude *websocket.Conn) {
	msg := envelope{
		"type":      "tasks_update",
		"timestamp": nowMillis(),
		"data":      tc.snapshot(),
	}
	tc.base.mu.Lock()
	targets := make([]*websocket.Conn, 0, len(tc.base.clients))
	for c, state := range tc.base.clients {
		if c == exclude {
			continue
		}
		state.mu.Lock()
		subscribed, _ := state.Extra["subscribed"].(bool)
		state.mu.Unlock()
		if subscribed {
			targets = append(targets, c)
		}
	}
	tc.base.mu.Unlock()

	for _, c := range targets {
		if err := tc.base.sendJSON(c, msg); err != nil {
			tc.base.cleanupConnection(c)
		}
	}
}

func (tc *TasksChannel) sendTasksSnapshot(conn *websocket.Conn) {
	_ = tc.base.sendJSON(conn, envelope{
		"type":      "tasks_update",
		"timestamp": nowMillis(),
		"data":      tc.snapshot(),
	})
}

func (tc *TasksChannel) snapshot() envelope {
	items := tc.list.All()
	completed := 0
	for _, t := range items {
		if t.Done {
			completed++
		}
	}
	return envelope{
		"tasks":     items,
		"total":     len(items),
		"completed": completed,
		"pending":   len(items) - completed,
		"goal":      tc.list.Goal(),
		"is_done":   tc.list.CheckIfAllDone(),
	}
}
