// Package tasks implements the goal & task list (C12) and the location
// point index, both small JSON-persisted ordered lists driven off the
// agent's planner and the external task-management WebSocket channel.
package tasks

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/l1jgo/mcagent/internal/persist"
)

// Task is one goal the planner is tracking.
type Task struct {
	ID           string `json:"id"`
	Details      string `json:"details"`
	DoneCriteria string `json:"done_criteria"`
	Progress     string `json:"progress"`
	Done         bool   `json:"done"`
}

var digitRun = regexp.MustCompile(`\d+`)

// List is the persistent, insertion-ordered task list. IDs are assigned as
// len(items)+1 at insertion, stringified; deleting a task never renumbers
// the ones that remain, so after a deletion the next addition can receive
// an id a remaining task already holds (delete "1" from ["1","2"] and the
// next Add gets "2"). Lookups by id resolve to the first match.
type List struct {
	mu       sync.Mutex
	store    *persist.JSONStore
	items    []Task
	needEdit string
	goal     string
}

// NewList returns a List backed by store, loading any previously persisted
// tasks.
func NewList(store *persist.JSONStore) *List {
	l := &List{store: store}
	var loaded []Task
	_ = store.Load(&loaded)
	l.items = loaded
	return l
}

func (l *List) saveLocked() error {
	snapshot := append([]Task(nil), l.items...)
	return l.store.Save(snapshot)
}

// Add appends a new task with id = len(items)+1 (as of the moment of
// insertion, not a running counter), "not started" progress, and
// persists.
func (l *List) Add(details, doneCriteria string) (Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := Task{
		ID:           fmt.Sprintf("%d", len(l.items)+1),
		Details:      details,
		DoneCriteria: doneCriteria,
		Progress:     "not started",
	}
	l.items = append(l.items, t)
	return t, l.saveLocked()
}

// resolveIndex finds the index of the task with the given id, first by exact
// match, then — tolerating ids wrapped in other text — by the first run of
// digits in id.
func (l *List) resolveIndex(id string) int {
	for i, t := range l.items {
		if t.ID == id {
			return i
		}
	}
	if digits := digitRun.FindString(id); digits != "" {
		for i, t := range l.items {
			if t.ID == digits {
				return i
			}
		}
	}
	return -1
}

// GetByID returns the task matching id (exact or first-digit-run match) and
// whether it was found.
func (l *List) GetByID(id string) (Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.resolveIndex(id)
	if i < 0 {
		return Task{}, false
	}
	return l.items[i], true
}

// UpdateProgress sets a task's progress string and persists. A no-op if the
// id doesn't resolve.
func (l *List) UpdateProgress(id, progress string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.resolveIndex(id)
	if i < 0 {
		return nil
	}
	l.items[i].Progress = progress
	return l.saveLocked()
}

// UpdateFields overwrites whichever of details/doneCriteria/progress are
// non-empty on the matching task and persists. A no-op if the id doesn't
// resolve.
func (l *List) UpdateFields(id, details, doneCriteria, progress string) (Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.resolveIndex(id)
	if i < 0 {
		return Task{}, fmt.Errorf("task %s not found", id)
	}
	if details != "" {
		l.items[i].Details = details
	}
	if doneCriteria != "" {
		l.items[i].DoneCriteria = doneCriteria
	}
	if progress != "" {
		l.items[i].Progress = progress
	}
	return l.items[i], l.saveLocked()
}

// MarkDone marks a task done and persists. A no-op if the id doesn't
// resolve.
func (l *List) MarkDone(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.resolveIndex(id)
	if i < 0 {
		return nil
	}
	l.items[i].Done = true
	l.items[i].Progress = "done"
	return l.saveLocked()
}

// DeleteByID removes the task matching id (if any) and persists. Remaining
// tasks keep their original ids; no renumbering occurs.
func (l *List) DeleteByID(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.resolveIndex(id)
	if i < 0 {
		return nil
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	return l.saveLocked()
}

// SetGoal sets the high-level goal string surfaced alongside the task
// list (e.g. in the /ws/tasks snapshot). The goal comes from the agent's
// configuration (game.goal), not the persisted task file, mirroring the
// original's config-backed goal singleton rather than a per-list record.
func (l *List) SetGoal(goal string) {
	l.mu.Lock()
	l.goal = goal
	l.mu.Unlock()
}

// Goal returns the current goal string.
func (l *List) Goal() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.goal
}

// SetNeedEdit records a pending-edit sentinel that blocks CheckIfAllDone
// until cleared with an empty string.
func (l *List) SetNeedEdit(reason string) {
	l.mu.Lock()
	l.needEdit = reason
	l.mu.Unlock()
}

// CheckIfAllDone returns true iff every task is done and no edit is pending.
func (l *List) CheckIfAllDone() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range l.items {
		if !t.Done {
			return false
		}
	}
	return l.needEdit == ""
}

// All returns a snapshot of every task, in insertion order.
func (l *List) All() []Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Task(nil), l.items...)
}

// Clear empties the list and persists.
func (l *List) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
	l.needEdit = ""
	return l.saveLocked()
}

// Summary renders a human-readable digest of every task, for prompt
// construction.
func (l *List) Summary() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 {
		return "No tasks created yet; consider creating one."
	}
	out := ""
	for _, t := range l.items {
		if t.Done {
			out += fmt.Sprintf("task(id:%s): %s\nprogress: done, no update needed\n", t.ID, t.Details)
			continue
		}
		out += fmt.Sprintf("task(id:%s): %s\ndone criteria: %s\nprogress: %s\n", t.ID, t.Details, t.DoneCriteria, t.Progress)
	}
	return out
}
