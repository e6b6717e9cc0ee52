package event

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/l1jgo/mcagent/internal/clock"
)

// DefaultMaxListenersPerType is the per-event-type listener cap (§4.6).
const DefaultMaxListenersPerType = 200

// DispatchWidth bounds how many listeners run concurrently for a single
// Emit call (§4.6, §5).
const DispatchWidth = 50

// ErrListenerLimit is returned by On/Once when a type's listener cap would
// be exceeded.
var ErrListenerLimit = fmt.Errorf("event: listener limit exceeded")

// Listener is a callback subscribed to one event type. Callbacks that do
// blocking work are fine: each invocation already runs on its own
// goroutine, bounded by the emitter's semaphore, so a slow listener never
// stalls the dispatcher or its siblings.
type Listener func(ctx context.Context, e Event) error

type registeredListener struct {
	id        string
	eventType string
	once      bool
	callback  Listener
	fnPtr     uintptr
}

// ListenerHandle is returned by On/Once; Remove unregisters the listener.
// Safe to call Remove more than once.
type ListenerHandle struct {
	emitter   *Emitter
	eventType string
	id        string
	removed   bool
	mu        sync.Mutex
}

// Remove unregisters the listener this handle refers to.
func (h *ListenerHandle) Remove() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.removed {
		return
	}
	h.removed = true
	h.emitter.removeByID(h.eventType, h.id)
}

// IsRemoved reports whether Remove has already been called.
func (h *ListenerHandle) IsRemoved() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removed
}

// EventType returns the event type this handle was registered against.
func (h *ListenerHandle) EventType() string { return h.eventType }

// Stats is the aggregate emit/listener statistics the emitter tracks.
type Stats struct {
	TotalEmitted         int64
	TotalListenersCalled int64
	AvgEmitDuration      time.Duration
	MaxEmitDuration      time.Duration
	Errors               int64
}

// Emitter is a bounded-concurrency pub/sub dispatcher: persistent and
// one-shot listeners, a semaphore of width DispatchWidth gating concurrent
// delivery, per-listener panic/error isolation, and aggregate stats.
type Emitter struct {
	mu             sync.RWMutex
	listeners      map[string][]*registeredListener
	onceListeners  map[string][]*registeredListener
	listenerCount  map[string]int
	maxListeners   int
	sem            *semaphore.Weighted
	log            *zap.Logger

	statsMu   sync.Mutex
	stats     Stats
	totalDur  time.Duration
}

// NewEmitter returns an Emitter with the default listener cap and dispatch
// width.
func NewEmitter(log *zap.Logger) *Emitter {
	return &Emitter{
		listeners:     make(map[string][]*registeredListener),
		onceListeners: make(map[string][]*registeredListener),
		listenerCount: make(map[string]int),
		maxListeners:  DefaultMaxListenersPerType,
		sem:           semaphore.NewWeighted(DispatchWidth),
		log:           log,
	}
}

// fnIdentity returns the address of cb's closure object. Registering the
// same func value twice yields the same identity; closures created
// separately (for example one per loop iteration, each capturing its own
// state) are distinct listeners.
func fnIdentity(cb Listener) uintptr {
	return *(*uintptr)(unsafe.Pointer(&cb))
}

// On registers a persistent listener, invoked on every matching Emit.
func (e *Emitter) On(eventType string, cb Listener) (*ListenerHandle, error) {
	return e.register(eventType, cb, false)
}

// Once registers a one-shot listener, invoked at most once then discarded.
func (e *Emitter) Once(eventType string, cb Listener) (*ListenerHandle, error) {
	return e.register(eventType, cb, true)
}

func (e *Emitter) register(eventType string, cb Listener, once bool) (*ListenerHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.listenerCount[eventType] >= e.maxListeners {
		return nil, ErrListenerLimit
	}

	ptr := fnIdentity(cb)
	bucket := e.listeners
	if once {
		bucket = e.onceListeners
	}
	for _, existing := range bucket[eventType] {
		if existing.fnPtr == ptr {
			e.log.Warn("event: duplicate listener registration ignored",
				zap.String("type", eventType))
			return &ListenerHandle{emitter: e, eventType: eventType, id: existing.id}, nil
		}
	}

	rl := &registeredListener{
		id:        newListenerID(),
		eventType: eventType,
		once:      once,
		callback:  cb,
		fnPtr:     ptr,
	}
	bucket[eventType] = append(bucket[eventType], rl)
	e.listenerCount[eventType]++

	return &ListenerHandle{emitter: e, eventType: eventType, id: rl.id}, nil
}

// removeByID removes one listener (from either bucket) by ID.
func (e *Emitter) removeByID(eventType, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if removeMatching(e.listeners, eventType, func(rl *registeredListener) bool { return rl.id == id }) {
		e.listenerCount[eventType]--
		return
	}
	if removeMatching(e.onceListeners, eventType, func(rl *registeredListener) bool { return rl.id == id }) {
		e.listenerCount[eventType]--
	}
}

func removeMatching(bucket map[string][]*registeredListener, eventType string, match func(*registeredListener) bool) bool {
	list, ok := bucket[eventType]
	if !ok {
		return false
	}
	for i, rl := range list {
		if match(rl) {
			bucket[eventType] = append(list[:i], list[i+1:]...)
			if len(bucket[eventType]) == 0 {
				delete(bucket, eventType)
			}
			return true
		}
	}
	return false
}

// Off removes listeners of eventType. If cb is nil, every listener of that
// type is removed (both persistent and once); otherwise only the matching
// callback is removed. Returns whether anything was removed.
func (e *Emitter) Off(eventType string, cb Listener) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cb == nil {
		removedAny := false
		if n := len(e.listeners[eventType]); n > 0 {
			delete(e.listeners, eventType)
			removedAny = true
		}
		if n := len(e.onceListeners[eventType]); n > 0 {
			delete(e.onceListeners, eventType)
			removedAny = true
		}
		if removedAny {
			delete(e.listenerCount, eventType)
		}
		return removedAny
	}

	ptr := fnIdentity(cb)
	removed := removeMatching(e.listeners, eventType, func(rl *registeredListener) bool { return rl.fnPtr == ptr })
	removed = removeMatching(e.onceListeners, eventType, func(rl *registeredListener) bool { return rl.fnPtr == ptr }) || removed
	if removed {
		e.listenerCount[eventType]--
	}
	return removed
}

// RemoveAllListeners removes every listener for eventType, or for every
// type if eventType is empty. Returns the number of listeners removed.
func (e *Emitter) RemoveAllListeners(eventType string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if eventType != "" {
		n := len(e.listeners[eventType]) + len(e.onceListeners[eventType])
		delete(e.listeners, eventType)
		delete(e.onceListeners, eventType)
		delete(e.listenerCount, eventType)
		return n
	}

	total := 0
	for _, l := range e.listeners {
		total += len(l)
	}
	for _, l := range e.onceListeners {
		total += len(l)
	}
	e.listeners = make(map[string][]*registeredListener)
	e.onceListeners = make(map[string][]*registeredListener)
	e.listenerCount = make(map[string]int)
	return total
}

// ListenerCount returns the number of listeners (persistent + once)
// registered for eventType.
func (e *Emitter) ListenerCount(eventType string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[eventType]) + len(e.onceListeners[eventType])
}

// EventNames returns the union of event types with at least one listener.
func (e *Emitter) EventNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	seen := make(map[string]bool)
	for t := range e.listeners {
		seen[t] = true
	}
	for t := range e.onceListeners {
		seen[t] = true
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	return out
}

// GetStats returns a snapshot of the emitter's aggregate statistics.
func (e *Emitter) GetStats() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.stats
}

// Emit dispatches event to every listener registered for event.Type,
// concurrently, bounded by DispatchWidth. Once-listeners fire and are then
// discarded as a batch. Each listener's error/panic is isolated and
// recorded; it never aborts delivery to siblings or propagates to the
// caller.
func (e *Emitter) Emit(ctx context.Context, ev Event) {
	e.mu.Lock()
	persistent := append([]*registeredListener(nil), e.listeners[ev.Type]...)
	once := append([]*registeredListener(nil), e.onceListeners[ev.Type]...)
	if len(once) > 0 {
		delete(e.onceListeners, ev.Type)
		e.listenerCount[ev.Type] -= len(once)
	}
	e.mu.Unlock()

	targets := make([]*registeredListener, 0, len(persistent)+len(once))
	targets = append(targets, persistent...)
	targets = append(targets, once...)
	if len(targets) == 0 {
		return
	}

	start := time.Now()
	var wg sync.WaitGroup
	var calledCount, errCount int64
	var countMu sync.Mutex

	for _, rl := range targets {
		rl := rl
		if err := e.sem.Acquire(ctx, 1); err != nil {
			continue // context cancelled; stop scheduling new listeners
		}
		wg.Add(1)
		go func() {
			defer e.sem.Release(1)
			defer wg.Done()
			if e.safeCall(ctx, rl, ev) {
				countMu.Lock()
				errCount++
				countMu.Unlock()
			}
			countMu.Lock()
			calledCount++
			countMu.Unlock()
		}()
	}
	wg.Wait()

	dur := time.Since(start)
	e.statsMu.Lock()
	e.stats.TotalEmitted++
	e.stats.TotalListenersCalled += calledCount
	e.stats.Errors += errCount
	e.totalDur += dur
	e.stats.AvgEmitDuration = e.totalDur / time.Duration(e.stats.TotalEmitted)
	if dur > e.stats.MaxEmitDuration {
		e.stats.MaxEmitDuration = dur
	}
	e.statsMu.Unlock()
}

// safeCall invokes one listener, recovering from panics and logging any
// failure. Returns true iff the listener failed (error or panic).
func (e *Emitter) safeCall(ctx context.Context, rl *registeredListener, ev Event) (failed bool) {
	defer func() {
		if r := recover(); r != nil {
			failed = true
			e.log.Error("event: listener panicked",
				zap.String("listener_id", rl.id),
				zap.String("type", ev.Type),
				zap.Any("panic", r))
		}
	}()
	if err := rl.callback(ctx, ev); err != nil {
		e.log.Error("event: listener returned error",
			zap.String("listener_id", rl.id),
			zap.String("type", ev.Type),
			zap.Error(err))
		return true
	}
	return false
}

// newListenerID returns a process-unique listener ID, used as the
// ListenerHandle's key into the emitter's registration map.
func newListenerID() string {
	return clock.NewID()
}
