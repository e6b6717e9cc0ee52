// Package hurt implements the reactive hurt-response pipeline (C15):
// classifying the source of incoming damage and escalating to either an
// LLM-mediated negotiation, a program-controlled counterattack, or an
// emergency distress call at critical health.
package hurt

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/l1jgo/mcagent/internal/bridge"
	"github.com/l1jgo/mcagent/internal/llmclient"
	"github.com/l1jgo/mcagent/internal/thinking"
	"github.com/l1jgo/mcagent/internal/worldmodel"
)

// Config tunes the hurt-response thresholds. EnableDamageInterrupt
// defaults off, matching the source's own note that the entityHurt event
// was unreliable enough to ship disabled; callers may still flip it on.
type Config struct {
	EnableDamageInterrupt bool
	LowHealthThreshold    float64 // 6: at or below this, call for help instead of fighting back
	CriticalHealthThreshold float64 // 3: at or below this, force-interrupt and beg for healing
}

// DefaultConfig returns the source's built-in thresholds.
func DefaultConfig() Config {
	return Config{
		EnableDamageInterrupt:   false,
		LowHealthThreshold:      6,
		CriticalHealthThreshold: 3,
	}
}

// DamageSource describes who or what hurt the bot, as decoded off the
// entityHurt event's source field.
type DamageSource struct {
	Type     string // "player", "hostile", or anything else
	Username string
	Name     string
}

func (d DamageSource) displayName() string {
	if d.Username != "" {
		return d.Username
	}
	if d.Name != "" {
		return d.Name
	}
	return "unknown attacker"
}

type sourceKind int

const (
	kindPlayer sourceKind = iota
	kindHostileMob
)

// classify maps a DamageSource to a response strategy. Anything that
// isn't explicitly "hostile" is treated as a player — including a
// genuinely unknown type — matching the source's "assume player, attempt
// negotiation" fallback.
func classify(source *DamageSource) sourceKind {
	if source != nil && source.Type == "hostile" {
		return kindHostileMob
	}
	return kindPlayer
}

// Handler reacts to entityHurt events for the bot's own entity.
type Handler struct {
	log       *zap.Logger
	cfg       Config
	client    bridge.Client
	chat      llmclient.Chat
	tlog      *thinking.Log
	movement  *worldmodel.Movement
	botName   string
}

// New returns a hurt-response handler.
func New(log *zap.Logger, cfg Config, client bridge.Client, chat llmclient.Chat, tlog *thinking.Log, movement *worldmodel.Movement, botName string) *Handler {
	return &Handler{log: log, cfg: cfg, client: client, chat: chat, tlog: tlog, movement: movement, botName: botName}
}

// Enabled reports whether the handler should be subscribed to entityHurt
// at all (EnableDamageInterrupt gates the whole pipeline).
func (h *Handler) Enabled() bool { return h.cfg.EnableDamageInterrupt }

// HandleEntityHurt processes one entityHurt event: victimUsername and
// currentHealth are the hurt entity's name and health, and source is the
// damage source (nil if unknown), all as supplied by the caller; the
// handler does not look up a missing health value itself.
func (h *Handler) HandleEntityHurt(ctx context.Context, victimUsername string, currentHealth float64, source *DamageSource) {
	if victimUsername != h.botName {
		return
	}

	sourceName := "unknown source"
	if source != nil {
		sourceName = source.displayName()
	}
	h.log.Info("entity hurt", zap.Float64("health", currentHealth), zap.String("source", sourceName))

	if currentHealth <= h.cfg.CriticalHealthThreshold {
		h.triggerCriticalHealthInterrupt(ctx, currentHealth, source)
		return
	}

	h.triggerDamageInterrupt(currentHealth, sourceName)
	h.handleDamageResponse(ctx, currentHealth, source)
}

func (h *Handler) triggerDamageInterrupt(currentHealth float64, sourceName string) {
	reason := fmt.Sprintf("took damage from %s! current health: %.0f", sourceName, currentHealth)
	h.movement.TriggerInterrupt(reason)
	_ = h.tlog.Add(fmt.Sprintf("took damage from %s, current health %.0f, interrupting current task", sourceName, currentHealth), thinking.KindNotice)
}

func (h *Handler) triggerCriticalHealthInterrupt(ctx context.Context, currentHealth float64, source *DamageSource) {
	sourceName := "unknown source"
	if source != nil {
		sourceName = source.displayName()
	}
	reason := fmt.Sprintf("critical health! only %.0f left, attacked by %s, interrupting everything to seek healing", currentHealth, sourceName)
	h.movement.TriggerInterrupt(reason)
	_ = h.tlog.Add(fmt.Sprintf("critical health (%.0f)! attacked by %s, interrupting all tasks, healing takes priority", currentHealth, sourceName), thinking.KindNotice)
	h.sendEmergencyDistressCall(ctx, currentHealth, source)
}

func (h *Handler) sendEmergencyDistressCall(ctx context.Context, currentHealth float64, source *DamageSource) {
	mobName, mobType := mobIdentity(source)
	prompt := fmt.Sprintf(
		"My health is only %.0f/20! I'm being attacked by a %s (%s), this is extremely dangerous!\n\n"+
			"Speaking as me, send an urgent distress message to nearby players asking for immediate help.\n\n"+
			"Requirements:\n"+
			"1. Convey that my life is in danger\n"+
			"2. Explain what's attacking me and my remaining health\n"+
			"3. Strongly request players come help right away\n"+
			"4. The tone should be urgent and desperate\n\n"+
			"Reply with only the distress message, no other explanation.", currentHealth, mobType, mobName)

	message, err := h.chat.Chat(ctx, prompt)
	if err != nil || strings.TrimSpace(message) == "" {
		h.log.Error("emergency distress prompt failed", zap.Error(err))
		return
	}
	if err := h.client.Chat(ctx, message); err != nil {
		h.log.Error("failed to send emergency distress call", zap.Error(err))
		return
	}
	_ = h.tlog.Add(fmt.Sprintf("emergency distress call! health only %.0f, attacked by %s: %s", currentHealth, mobType, message), thinking.KindNotice)
}

func (h *Handler) handleDamageResponse(ctx context.Context, currentHealth float64, source *DamageSource) {
	switch classify(source) {
	case kindHostileMob:
		h.handleMobAttack(ctx, currentHealth, source)
	default:
		h.handlePlayerAttack(ctx, currentHealth, source)
	}
}

func (h *Handler) handlePlayerAttack(ctx context.Context, currentHealth float64, source *DamageSource) {
	playerName := "unknown player"
	if source != nil {
		playerName = source.displayName()
	}
	_ = h.tlog.Add(fmt.Sprintf("attacked by player %s! health: %.0f", playerName, currentHealth), thinking.KindNotice)

	prompt := fmt.Sprintf(
		"The player %s just attacked me in-game. My health is %.0f/20.\n\n"+
			"Speaking as me, send a short chat message to try to de-escalate or find out why.\n\n"+
			"Reply with only the chat message, no other explanation.", playerName, currentHealth)

	message, err := h.chat.Chat(ctx, prompt)
	if err != nil || strings.TrimSpace(message) == "" || len(strings.TrimSpace(message)) <= 2 {
		message = fmt.Sprintf("hey %s, why'd you hit me? did I do something?", playerName)
	}
	h.sendChatMessage(ctx, message)
}

func (h *Handler) handleMobAttack(ctx context.Context, currentHealth float64, source *DamageSource) {
	mobName, mobType := mobIdentity(source)
	_ = h.tlog.Add(fmt.Sprintf("attacked by %s (%s)! health: %.0f", mobType, mobName, currentHealth), thinking.KindNotice)

	if currentHealth <= h.cfg.LowHealthThreshold {
		h.triggerDistressCall(ctx, currentHealth, mobName, mobType)
		return
	}
	h.executeMobCounterattack(ctx, currentHealth, mobName, mobType)
}

func (h *Handler) triggerDistressCall(ctx context.Context, currentHealth float64, mobName, mobType string) {
	prompt := fmt.Sprintf(
		"I'm being attacked by a %s (%s)! My health is only %.0f/20, very dangerous!\n\n"+
			"Speaking as me, send a distress message to nearby players asking them to come help.\n\n"+
			"Requirements:\n"+
			"1. Convey that my life is in danger\n"+
			"2. Explain what's attacking me (%s)\n"+
			"3. Ask players to come help soon\n"+
			"4. The tone should be pleading and anxious\n\n"+
			"Reply with only the distress message, no other explanation.", mobType, mobName, currentHealth, mobType)

	message, err := h.chat.Chat(ctx, prompt)
	if err != nil || strings.TrimSpace(message) == "" {
		h.log.Error("distress call prompt failed", zap.Error(err))
		return
	}
	if err := h.client.Chat(ctx, message); err != nil {
		h.log.Error("failed to send distress call", zap.Error(err))
		return
	}
	_ = h.tlog.Add(fmt.Sprintf("low health (%.0f)! called for help: %s", currentHealth, message), thinking.KindNotice)
}

func (h *Handler) executeMobCounterattack(ctx context.Context, currentHealth float64, mobName, mobType string) {
	if err := h.client.KillMob(ctx, mobName); err != nil {
		h.log.Warn("counterattack failed, falling back to LLM combat strategy", zap.String("mob", mobName), zap.Error(err))
		_ = h.tlog.Add(fmt.Sprintf("counterattack on %s failed: %v", mobName, err), thinking.KindNotice)
		h.triggerMobCombatStrategy(ctx, currentHealth, mobName, mobType)
		return
	}
	_ = h.tlog.Add(fmt.Sprintf("counterattacked and killed %s", mobName), thinking.KindAction)
}

func (h *Handler) triggerMobCombatStrategy(ctx context.Context, currentHealth float64, mobName, mobType string) {
	prompt := fmt.Sprintf(
		"Attempting to kill_mob against %s (%s) failed. My health is %.0f/20.\n\n"+
			"Decide a short combat strategy (retreat, re-engage, use an item, etc) and state it in one sentence.",
		mobType, mobName, currentHealth)

	strategy, err := h.chat.Chat(ctx, prompt)
	if err != nil {
		h.log.Error("combat strategy prompt failed", zap.Error(err))
		return
	}
	_ = h.tlog.Add(fmt.Sprintf("combat strategy against %s: %s", mobName, strategy), thinking.KindThinking)
}

func (h *Handler) sendChatMessage(ctx context.Context, message string) {
	if err := h.client.Chat(ctx, message); err != nil {
		h.log.Error("failed to send negotiation message", zap.Error(err))
		return
	}
	_ = h.tlog.Add(fmt.Sprintf("sent negotiation message: %s", message), thinking.KindNotice)
}

func mobIdentity(source *DamageSource) (name, kind string) {
	name, kind = "hostile entity", "unknown creature"
	if source == nil {
		return name, kind
	}
	if source.Name != "" {
		name = source.Name
	}
	if source.Type != "" {
		kind = source.Type
	}
	return name, kind
}
