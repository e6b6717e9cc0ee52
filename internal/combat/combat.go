// Package combat implements the combat mode handler (C14): hostile-entity
// classification off environment updates, mode-switch requests, and a
// continuous program-controlled attack loop while combat_mode is active.
package combat

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/l1jgo/mcagent/internal/bridge"
	"github.com/l1jgo/mcagent/internal/mode"
	"github.com/l1jgo/mcagent/internal/thinking"
)

// hostileEntityNames is the closed set of mob names treated as hostile
// regardless of any other field.
var hostileEntityNames = map[string]bool{
	"zombie": true, "skeleton": true, "creeper": true, "spider": true,
	"enderman": true, "witch": true, "blaze": true, "ghast": true,
	"magma_cube": true, "slime": true, "guardian": true, "elder_guardian": true,
	"wither_skeleton": true, "stray": true, "husk": true, "drowned": true,
	"phantom": true, "zombie_villager": true, "skeleton_horse": true,
	"zombie_horse": true, "evoker": true, "vindicator": true, "pillager": true,
	"ravager": true, "vex": true, "warden": true,
}

var substringHostileKeywords = []string{"zombie", "skeleton", "creeper", "spider"}

// rawEntity is the loosely-typed shape an environment update's
// nearby_entities carry each entity in: only the fields classification and
// attack selection need.
type rawEntity struct {
	Type string
	Name string
	Kind string
}

func isHostile(e rawEntity, requireKindCheck bool) bool {
	name := strings.ToLower(e.Name)
	if e.Type == "hostile" {
		return true
	}
	if requireKindCheck && strings.ToLower(e.Kind) == "hostile" {
		return true
	}
	if hostileEntityNames[name] {
		return true
	}
	for _, kw := range substringHostileKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// Config is the threat-detection tuning, loaded once at startup. The three
// zero-value-sensitive fields (ThreatTimeout, AttackInterval,
// MaxAttackAttempts) track the source's "configured vs fallback" range:
// 300s/2.0s/5 when threat_detection config loads, 180s/1.5s/3 on its
// fallback path; callers choose which to pass in.
type Config struct {
	ThreatDetectionRange float64 // default 16
	ThreatMinDistance    float64 // default 0.5 × range
	ThreatTimeout        time.Duration
	AttackInterval       time.Duration
	MaxAttackAttempts    int
	Enabled              bool
}

// DefaultConfig returns the fallback-on-exception defaults (180s timeout,
// 1.5s interval, 3 attempts) — the values the source falls back to when
// loading global_config.threat_detection fails.
func DefaultConfig() Config {
	return Config{
		ThreatDetectionRange: 16,
		ThreatMinDistance:    8,
		ThreatTimeout:        180 * time.Second,
		AttackInterval:       1500 * time.Millisecond,
		MaxAttackAttempts:    3,
		Enabled:              true,
	}
}

// ConfiguredDefault returns the "config loaded successfully" defaults
// (300s timeout, 2.0s interval, 5 attempts) for a given detection range.
func ConfiguredDefault(threatDetectionRange float64) Config {
	return Config{
		ThreatDetectionRange: threatDetectionRange,
		ThreatMinDistance:    threatDetectionRange * 0.5,
		ThreatTimeout:        300 * time.Second,
		AttackInterval:       2 * time.Second,
		MaxAttackAttempts:    5,
		Enabled:              true,
	}
}

type activeThreat struct {
	entity   rawEntity
	distance float64
}

// Handler is the combat_mode handler and environment listener: it
// classifies entity updates into threats, requests mode switches, and
// drives the attack loop while active.
type Handler struct {
	mu sync.Mutex

	log    *zap.Logger
	cfg    Config
	client bridge.Client
	log2   *thinking.Log
	modes  *mode.Manager

	activeThreats  []activeThreat
	threatCount    int
	inCombat       bool
	lastAttackTime time.Time
	threatStart    time.Time
	attackAttempts map[string]int

	attackCancel context.CancelFunc
}

// New returns a combat handler wired to modes, the bridge client, and the
// thinking log. Callers must still RegisterHandler and
// RegisterEnvironmentListener it with modes.
func New(log *zap.Logger, cfg Config, client bridge.Client, tlog *thinking.Log, modes *mode.Manager) *Handler {
	return &Handler{
		log:            log,
		cfg:            cfg,
		client:         client,
		log2:           tlog,
		modes:          modes,
		attackAttempts: make(map[string]int),
	}
}

// ModeType implements mode.Handler.
func (h *Handler) ModeType() string { return mode.ModeCombat }

// CanEnterMode implements mode.Handler: combat mode is gated by the
// enabled flag in Config.
func (h *Handler) CanEnterMode() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cfg.Enabled
}

// CanExitMode implements mode.Handler: combat mode can always be exited.
func (h *Handler) CanExitMode() bool { return true }

// CheckTransitions implements mode.Handler: requests main_mode once there
// are no threats or the combat state has timed out.
func (h *Handler) CheckTransitions() []mode.Transition {
	h.mu.Lock()
	shouldExit := h.threatCount == 0 || h.isThreatTimeoutLocked()
	h.mu.Unlock()
	if !shouldExit {
		return nil
	}
	return []mode.Transition{{
		TargetMode:    mode.ModeMain,
		Priority:      10,
		ConditionName: "threat_cleared_or_timeout",
	}}
}

func (h *Handler) isThreatTimeoutLocked() bool {
	if h.threatStart.IsZero() {
		return false
	}
	return time.Since(h.threatStart) > h.cfg.ThreatTimeout
}

// OnEnterMode implements mode.Handler: marks combat active, stamps the
// start time, and spawns the continuous attack loop.
func (h *Handler) OnEnterMode(ctx context.Context, reason, triggeredBy string) {
	h.mu.Lock()
	h.inCombat = true
	h.threatStart = time.Now()
	if h.attackCancel != nil {
		h.attackCancel()
	}
	attackCtx, cancel := context.WithCancel(context.Background())
	h.attackCancel = cancel
	h.mu.Unlock()

	h.log.Info("entered combat mode", zap.String("reason", reason))
	go h.continuousAttackLoop(attackCtx)
}

// OnExitMode implements mode.Handler: clears combat state and cancels the
// attack loop.
func (h *Handler) OnExitMode(ctx context.Context, reason, triggeredBy string) {
	h.mu.Lock()
	h.inCombat = false
	h.threatStart = time.Time{}
	if h.attackCancel != nil {
		h.attackCancel()
		h.attackCancel = nil
	}
	h.activeThreats = nil
	h.attackAttempts = make(map[string]int)
	h.threatCount = 0
	h.mu.Unlock()

	h.log.Info("exited combat mode", zap.String("reason", reason))
}

// OnEnvironmentUpdated implements mode.EnvironmentListener. data is
// expected to be an *UpdateEvent (the agent's environment-update payload
// shape); updates of any other kind, or whose UpdateType isn't
// "entity_update", are ignored.
func (h *Handler) OnEnvironmentUpdated(data any) {
	upd, ok := data.(*UpdateEvent)
	if !ok || upd.UpdateType != "entity_update" {
		return
	}
	h.processThreatDetection(upd.NearbyEntities)
}

// UpdateEvent is the environment-update payload the combat handler reacts
// to, supplied by whoever calls mode.Manager.NotifyEnvironmentUpdated
// (NewUpdateEvent builds one).
type UpdateEvent struct {
	UpdateType     string
	NearbyEntities []rawEntity
}

// NewUpdateEvent builds an "entity_update" UpdateEvent from plain
// (type,name,kind) tuples.
func NewUpdateEvent(entities []struct{ Type, Name, Kind string }) *UpdateEvent {
	out := make([]rawEntity, len(entities))
	for i, e := range entities {
		out[i] = rawEntity{Type: e.Type, Name: e.Name, Kind: e.Kind}
	}
	return &UpdateEvent{UpdateType: "entity_update", NearbyEntities: out}
}

// processThreatDetection re-classifies nearby entities independently of
// whatever filtering the caller already did (on_environment_updated's own
// locally filtered hostile_entities list is discarded upstream; this is
// the classification that actually drives mode switches, and unlike the
// upstream pass it additionally treats kind=="hostile" as a match).
func (h *Handler) processThreatDetection(entities []rawEntity) {
	var hostiles []rawEntity
	for _, e := range entities {
		if isHostile(e, true) {
			hostiles = append(hostiles, e)
		}
	}

	h.mu.Lock()
	h.threatCount = len(hostiles)
	// Distance is always recorded as 0.0, mirroring the "simplified"
	// upstream behavior; _should_exit_alert_mode's distance check is
	// therefore never the live exit path (see CheckTransitions, which
	// uses threatCount/timeout instead).
	threats := make([]activeThreat, len(hostiles))
	for i, e := range hostiles {
		threats[i] = activeThreat{entity: e, distance: 0.0}
	}
	h.activeThreats = threats
	inCombat := h.inCombat
	threatCount := h.threatCount
	safeToExit := h.shouldExitAlertModeLocked()
	h.mu.Unlock()

	switch {
	case threatCount > 0 && !inCombat:
		h.log.Info("threat detected, requesting combat mode", zap.Int("count", threatCount))
		h.modes.SetMode(context.Background(), mode.ModeCombat,
			fmt.Sprintf("detected %d threat entities", threatCount), "CombatHandler")
	case threatCount == 0 && inCombat && safeToExit:
		h.log.Info("threats cleared, requesting main mode")
		h.modes.SetMode(context.Background(), mode.ModeMain, "threats cleared", "CombatHandler")
	}

	if threatCount > 0 {
		h.logThreatNotice(hostiles)
	}
}

// shouldExitAlertModeLocked reports whether every active threat is beyond
// ThreatMinDistance. Since active threats always carry distance 0.0, this
// returns false whenever any threats are recorded — faithfully
// reproducing the source's effectively-dead distance check. Caller must
// hold h.mu.
func (h *Handler) shouldExitAlertModeLocked() bool {
	for _, t := range h.activeThreats {
		if t.distance <= h.cfg.ThreatMinDistance {
			return false
		}
	}
	return true
}

func (h *Handler) logThreatNotice(hostiles []rawEntity) {
	names := make([]string, 0, 3)
	for i, e := range hostiles {
		if i >= 3 {
			names = append(names, fmt.Sprintf("and %d more", len(hostiles)-3))
			break
		}
		name := e.Name
		if name == "" {
			name = "unknown"
		}
		names = append(names, name)
	}
	_ = h.log2.Add(fmt.Sprintf("threat entities detected: %s", strings.Join(names, ", ")), thinking.KindNotice)
}

// continuousAttackLoop runs once per AttackInterval while combat mode is
// active, attacking up to 3 nearest threats per tick, until cancelled or
// the threat state times out.
func (h *Handler) continuousAttackLoop(ctx context.Context) {
	ticker := time.NewTicker(h.intervalLocked())
	defer ticker.Stop()

	for {
		h.mu.Lock()
		timedOut := h.isThreatTimeoutLocked()
		active := h.inCombat
		h.mu.Unlock()
		if !active {
			return
		}
		if timedOut {
			h.log.Warn("combat state timed out, forcing exit")
			_ = h.log2.Add("threat state timed out, preparing to exit combat mode", thinking.KindNotice)
			h.modes.ForceRestoreMainMode(context.Background(), "combat state timed out")
			return
		}

		h.executeAttacks(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *Handler) intervalLocked() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cfg.AttackInterval
}

// executeAttacks attacks up to the 3 nearest active threats (all
// effectively equidistant at 0.0, so insertion order), skipping any name
// that has exhausted MaxAttackAttempts, each attack retried up to twice
// with a 0.5s backoff.
func (h *Handler) executeAttacks(ctx context.Context) {
	h.mu.Lock()
	sinceLastAttack := time.Since(h.lastAttackTime)
	if h.lastAttackTime.IsZero() {
		sinceLastAttack = h.cfg.AttackInterval
	}
	if sinceLastAttack < h.cfg.AttackInterval {
		h.mu.Unlock()
		return
	}
	threats := append([]activeThreat(nil), h.activeThreats...)
	h.mu.Unlock()

	sort.SliceStable(threats, func(i, j int) bool { return threats[i].distance < threats[j].distance })
	if len(threats) > 3 {
		threats = threats[:3]
	}

	attacked := 0
	for _, t := range threats {
		name := t.entity.Name
		if name == "" {
			name = "hostile entity"
		}

		h.mu.Lock()
		attempts := h.attackAttempts[name]
		limit := h.cfg.MaxAttackAttempts
		h.mu.Unlock()
		if attempts >= limit {
			continue
		}

		if h.attackOnce(ctx, name) {
			h.log.Info("attacked threat", zap.String("mob", name))
			attacked++
			h.mu.Lock()
			h.attackAttempts[name] = 0
			h.mu.Unlock()
		} else {
			h.log.Warn("attack failed", zap.String("mob", name))
			h.mu.Lock()
			h.attackAttempts[name]++
			h.mu.Unlock()
		}
	}

	if attacked > 0 {
		h.mu.Lock()
		h.lastAttackTime = time.Now()
		h.mu.Unlock()
	}
}

// attackOnce calls kill_mob for name, retrying up to twice with a 0.5s
// backoff, and reports whether it ultimately succeeded.
func (h *Handler) attackOnce(ctx context.Context, name string) bool {
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(500*time.Millisecond), 2)
	err := backoff.Retry(func() error {
		return h.client.KillMob(ctx, name)
	}, backoff.WithContext(policy, ctx))
	return err == nil
}

// Status is a snapshot of the handler's combat state, for diagnostics.
type Status struct {
	InCombat      bool
	ThreatCount   int
	ThreatStart   time.Time
	ElapsedTime   time.Duration
	IsTimeout     bool
	AttackAttempts map[string]int
}

// GetStatus returns a snapshot of the handler's current state.
func (h *Handler) GetStatus() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	attempts := make(map[string]int, len(h.attackAttempts))
	for k, v := range h.attackAttempts {
		attempts[k] = v
	}
	var elapsed time.Duration
	if !h.threatStart.IsZero() {
		elapsed = time.Since(h.threatStart)
	}
	return Status{
		InCombat:       h.inCombat,
		ThreatCount:    h.threatCount,
		ThreatStart:    h.threatStart,
		ElapsedTime:    elapsed,
		IsTimeout:      h.isThreatTimeoutLocked(),
		AttackAttempts: attempts,
	}
}

// UpdateConfig merges new values into the live detection config.
func (h *Handler) UpdateConfig(cfg Config) {
	h.mu.Lock()
	h.cfg = cfg
	h.mu.Unlock()
}

// ForceExit restores main_mode immediately, bypassing threat state.
func (h *Handler) ForceExit(ctx context.Context, reason string) {
	h.mu.Lock()
	inCombat := h.inCombat
	h.mu.Unlock()
	if !inCombat {
		return
	}
	h.modes.ForceRestoreMainMode(ctx, reason)
}
