// Package mode implements the mode state machine (C13): a priority-ranked
// registry of behavior modes with handler lifecycle callbacks, auto-restore
// timers, bounded transition history, and an environment-listener fan-out.
package mode

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/mcagent/internal/clock"
)

const (
	ModeMain       = "main_mode"
	ModeCombat     = "combat_mode"
	ModeFurnaceGUI = "furnace_gui"
	ModeChestGUI   = "chest_gui"

	maxHistory = 50
)

// Config is one mode's static behavior parameters.
type Config struct {
	Name            string
	Description     string
	AllowLLMDecision bool
	Priority        int
	MaxDuration     time.Duration // zero means unbounded
	AutoRestore     bool
	RestoreDelay    time.Duration
}

// defaultConfigs is the built-in, closed set of modes from §3; callers may
// extend it at runtime via Manager.AddModeConfig.
func defaultConfigs() map[string]Config {
	return map[string]Config{
		ModeMain: {
			Name:             "main mode",
			Description:      "normal AI decision-making and action",
			AllowLLMDecision: true,
			Priority:         0,
		},
		ModeCombat: {
			Name:             "combat mode",
			Description:      "threat detected, fully program-controlled combat",
			AllowLLMDecision: false,
			Priority:         100,
			MaxDuration:      300 * time.Second,
			AutoRestore:      true,
			RestoreDelay:     10 * time.Second,
		},
		ModeFurnaceGUI: {
			Name:             "furnace GUI mode",
			Description:      "dedicated interface mode while using a furnace",
			AllowLLMDecision: true,
			Priority:         10,
		},
		ModeChestGUI: {
			Name:             "chest GUI mode",
			Description:      "dedicated interface mode while using a chest",
			AllowLLMDecision: true,
			Priority:         10,
		},
	}
}

// Handler is implemented by each mode's behavior. Every method must return
// promptly: OnEnter/OnExit run synchronously inside the mode switch, and a
// handler that blocks stalls every other caller of SetMode.
type Handler interface {
	ModeType() string
	OnEnterMode(ctx context.Context, reason, triggeredBy string)
	OnExitMode(ctx context.Context, reason, triggeredBy string)
	CanEnterMode() bool
	CanExitMode() bool
	CheckTransitions() []Transition
}

// Transition is a handler's suggestion that the manager switch to
// targetMode, ranked against other suggestions by Priority.
type Transition struct {
	TargetMode    string
	Priority      int
	ConditionName string
}

// TransitionRecord is one completed switch, retained in the bounded history.
type TransitionRecord struct {
	TraceID     string
	FromMode    string
	ToMode      string
	Timestamp   time.Time
	Reason      string
	TriggeredBy string
}

// EnvironmentListener receives a fanned-out copy of every environment
// update the manager is notified of.
type EnvironmentListener interface {
	OnEnvironmentUpdated(data any)
}

// Manager is the process-wide mode state machine: one active mode at a
// time, switched under priority rules, with handler callbacks and an
// auto-restore timer.
type Manager struct {
	mu sync.Mutex

	log *zap.Logger

	configs map[string]Config
	current string

	handlers map[string]Handler

	history []TransitionRecord

	modeStartTime time.Time
	restoreCancel context.CancelFunc

	listeners    []EnvironmentListener
	lastEnvData  any
	listenerLock sync.Mutex
}

// NewManager returns a Manager initialized to main_mode with the built-in
// mode configs.
func NewManager(log *zap.Logger) *Manager {
	return &Manager{
		log:           log,
		configs:       defaultConfigs(),
		current:       ModeMain,
		handlers:      make(map[string]Handler),
		modeStartTime: time.Now(),
	}
}

// RegisterHandler registers (or replaces, with a warning) the handler for
// its own ModeType().
func (m *Manager) RegisterHandler(h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.handlers[h.ModeType()]; exists {
		m.log.Warn("mode handler already registered, replacing", zap.String("mode", h.ModeType()))
	}
	m.handlers[h.ModeType()] = h
}

// AddModeConfig registers (or replaces, with a warning) a mode's config,
// the extension point for modes beyond the built-in set.
func (m *Manager) AddModeConfig(key string, cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.configs[key]; exists {
		m.log.Warn("mode config already exists, replacing", zap.String("mode", key))
	}
	m.configs[key] = cfg
}

// Current returns the active mode key.
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// CurrentConfig returns the active mode's config.
func (m *Manager) CurrentConfig() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.configs[m.current]
}

// CanUseLLMDecision reports whether the active mode allows LLM-driven
// decisions (combat_mode is fully program-controlled and returns false).
func (m *Manager) CanUseLLMDecision() bool {
	return m.CurrentConfig().AllowLLMDecision
}

// ModeDuration returns how long the active mode has been active.
func (m *Manager) ModeDuration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.modeStartTime)
}

// IsModeExpired reports whether the active mode has exceeded its
// MaxDuration (a zero MaxDuration never expires).
func (m *Manager) IsModeExpired() bool {
	m.mu.Lock()
	cfg := m.configs[m.current]
	started := m.modeStartTime
	m.mu.Unlock()
	if cfg.MaxDuration == 0 {
		return false
	}
	return time.Since(started) > cfg.MaxDuration
}

// History returns a snapshot of the transition history, oldest first.
func (m *Manager) History() []TransitionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TransitionRecord(nil), m.history...)
}

// ClearHistory empties the transition history.
func (m *Manager) ClearHistory() {
	m.mu.Lock()
	m.history = nil
	m.mu.Unlock()
}

// SetMode attempts to switch to newMode. It refuses if newMode is unknown,
// already active, or if the active mode's priority strictly exceeds
// newMode's priority and newMode isn't main_mode (main_mode can always be
// reached — it's the universal de-escalation target). ctx bounds
// OnEnterMode/OnExitMode calls, which the manager invokes synchronously;
// their panics/errors are logged and swallowed, never abort the switch.
func (m *Manager) SetMode(ctx context.Context, newMode, reason, triggeredBy string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	newConfig, known := m.configs[newMode]
	if !known {
		m.log.Warn("attempted to set unknown mode", zap.String("mode", newMode))
		return false
	}
	if newMode == m.current {
		return false
	}
	currentConfig := m.configs[m.current]
	if currentConfig.Priority > newConfig.Priority && newMode != ModeMain {
		m.log.Warn("mode switch refused: target priority too low",
			zap.String("current", m.current), zap.String("target", newMode))
		return false
	}

	oldMode := m.current
	m.switchModeLocked(ctx, newMode, reason, triggeredBy)
	m.log.Info("mode switched", zap.String("from", oldMode), zap.String("to", newMode), zap.String("reason", reason))
	return true
}

// switchModeLocked performs the actual switch; callers must hold m.mu.
func (m *Manager) switchModeLocked(ctx context.Context, newMode, reason, triggeredBy string) {
	oldMode := m.current

	if h, ok := m.handlers[oldMode]; ok {
		m.callExitLocked(ctx, h, reason, triggeredBy)
	}

	m.history = append(m.history, TransitionRecord{
		TraceID: clock.NewID(),
		FromMode: oldMode, ToMode: newMode, Timestamp: time.Now(),
		Reason: reason, TriggeredBy: triggeredBy,
	})
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}

	m.current = newMode
	m.modeStartTime = time.Now()

	if m.restoreCancel != nil {
		m.restoreCancel()
		m.restoreCancel = nil
	}
	cfg := m.configs[newMode]
	if cfg.AutoRestore && cfg.RestoreDelay > 0 {
		m.scheduleAutoRestoreLocked(cfg.RestoreDelay)
	}

	if h, ok := m.handlers[newMode]; ok {
		m.callEnterLocked(ctx, h, reason, triggeredBy)
	}
}

func (m *Manager) callExitLocked(ctx context.Context, h Handler, reason, triggeredBy string) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("exit-mode handler panicked", zap.Any("panic", r))
		}
	}()
	if !h.CanExitMode() {
		m.log.Warn("handler refused exit", zap.String("mode", h.ModeType()))
		return
	}
	h.OnExitMode(ctx, reason, triggeredBy)
}

func (m *Manager) callEnterLocked(ctx context.Context, h Handler, reason, triggeredBy string) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("enter-mode handler panicked", zap.Any("panic", r))
		}
	}()
	if !h.CanEnterMode() {
		m.log.Warn("handler refused entry", zap.String("mode", h.ModeType()))
		return
	}
	h.OnEnterMode(ctx, reason, triggeredBy)
}

// scheduleAutoRestoreLocked starts a goroutine that restores main_mode
// after delay unless cancelled first. Callers must hold m.mu.
func (m *Manager) scheduleAutoRestoreLocked(delay time.Duration) {
	restoreCtx, cancel := context.WithCancel(context.Background())
	m.restoreCancel = cancel
	go func() {
		select {
		case <-restoreCtx.Done():
			return
		case <-time.After(delay):
		}
		m.SetMode(context.Background(), ModeMain, "auto restore", "system")
	}()
}

// ForceRestoreMainMode switches to main_mode bypassing the priority check.
func (m *Manager) ForceRestoreMainMode(ctx context.Context, reason string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == ModeMain {
		return true
	}
	old := m.current
	m.switchModeLocked(ctx, ModeMain, reason, "system")
	m.log.Info("forced restore to main mode", zap.String("from", old))
	return true
}

// CheckAutoTransitions asks the active handler for transition suggestions,
// picks the highest-priority one satisfying the priority rule (existing
// mode, not a self-transition, priority-compatible), and applies it.
// Returns whether a switch occurred.
func (m *Manager) CheckAutoTransitions(ctx context.Context) bool {
	m.mu.Lock()
	current := m.current
	h, ok := m.handlers[current]
	if !ok {
		m.mu.Unlock()
		return false
	}
	m.mu.Unlock()

	transitions := h.CheckTransitions()
	if len(transitions) == 0 {
		return false
	}
	sort.SliceStable(transitions, func(i, j int) bool { return transitions[i].Priority > transitions[j].Priority })

	m.mu.Lock()
	currentConfig := m.configs[m.current]
	var target string
	for _, t := range transitions {
		targetConfig, known := m.configs[t.TargetMode]
		if !known || t.TargetMode == m.current {
			continue
		}
		if currentConfig.Priority > targetConfig.Priority && t.TargetMode != ModeMain {
			continue
		}
		target = t.TargetMode
		break
	}
	m.mu.Unlock()

	if target == "" {
		return false
	}
	return m.SetMode(ctx, target, "auto-transition check", "auto_transition_check")
}

// NotifyEnvironmentUpdated fans data out to every registered environment
// listener, isolating each listener's panic, and retains data for
// LastEnvironmentData.
func (m *Manager) NotifyEnvironmentUpdated(data any) {
	m.listenerLock.Lock()
	m.lastEnvData = data
	listeners := append([]EnvironmentListener(nil), m.listeners...)
	m.listenerLock.Unlock()

	for _, l := range listeners {
		m.notifyOne(l, data)
	}
}

func (m *Manager) notifyOne(l EnvironmentListener, data any) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("environment listener panicked", zap.Any("panic", r))
		}
	}()
	l.OnEnvironmentUpdated(data)
}

// LastEnvironmentData returns the most recent payload passed to
// NotifyEnvironmentUpdated, or nil if none yet.
func (m *Manager) LastEnvironmentData() any {
	m.listenerLock.Lock()
	defer m.listenerLock.Unlock()
	return m.lastEnvData
}

// RegisterEnvironmentListener adds l to the fan-out list, if not already present.
func (m *Manager) RegisterEnvironmentListener(l EnvironmentListener) {
	m.listenerLock.Lock()
	defer m.listenerLock.Unlock()
	for _, existing := range m.listeners {
		if existing == l {
			return
		}
	}
	m.listeners = append(m.listeners, l)
}

// UnregisterEnvironmentListener removes l from the fan-out list.
func (m *Manager) UnregisterEnvironmentListener(l EnvironmentListener) {
	m.listenerLock.Lock()
	defer m.listenerLock.Unlock()
	for i, existing := range m.listeners {
		if existing == l {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}
