// Package agent is the composition root (C1-C17): it owns the one
// process-wide instance of every subsystem and wires them together in this
// order — block cache, event registry, emitter, event store, environment
// and movement monitor, mode manager, thinking log, task and location
// lists, bridge client, LLM clients, then the handlers built on them
// (combat, hurt, crafting planner), and last the WebSocket server. The
// configuration is loaded by the caller before New runs.
package agent

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/mcagent/internal/blockcache"
	"github.com/l1jgo/mcagent/internal/bridge"
	"github.com/l1jgo/mcagent/internal/clock"
	"github.com/l1jgo/mcagent/internal/combat"
	"github.com/l1jgo/mcagent/internal/config"
	"github.com/l1jgo/mcagent/internal/craft"
	"github.com/l1jgo/mcagent/internal/event"
	"github.com/l1jgo/mcagent/internal/hurt"
	"github.com/l1jgo/mcagent/internal/llmclient"
	"github.com/l1jgo/mcagent/internal/mode"
	"github.com/l1jgo/mcagent/internal/persist"
	"github.com/l1jgo/mcagent/internal/tasks"
	"github.com/l1jgo/mcagent/internal/thinking"
	"github.com/l1jgo/mcagent/internal/worldmodel"
	"github.com/l1jgo/mcagent/internal/wsfanout"
)

// Agent owns every process-wide subsystem instance and the goroutines
// that drive them.
type Agent struct {
	log *zap.Logger
	cfg *config.Config

	BlockCache *blockcache.Cache
	Registry   *event.Registry
	Emitter    *event.Emitter
	Store      *event.Store
	Env        *worldmodel.Environment
	Movement   *worldmodel.Movement
	Thinking   *thinking.Log
	ChatLog    *thinking.ChatHistory
	Tasks      *tasks.List
	Locations  *tasks.Locations
	Modes      *mode.Manager

	Bridge bridge.Client
	Chat   llmclient.Chat
	Vision llmclient.Vision

	Combat *combat.Handler
	Hurt   *hurt.Handler
	Craft  *craft.Planner

	WS *wsfanout.Server
}

// New builds and wires every subsystem in the order the package comment
// lists. dataDir
// holds the three persisted JSON stores (locations, todo list, thinking
// log); cfg is the already-loaded/migrated configuration.
func New(log *zap.Logger, cfg *config.Config, dataDir string) (*Agent, error) {
	a := &Agent{log: log, cfg: cfg}

	a.BlockCache = blockcache.NewCache(nil)
	a.Registry = event.NewRegistry(log.Named("event"))
	a.Emitter = event.NewEmitter(log.Named("emitter"))
	a.Store = event.NewStore(2000)
	a.Env = worldmodel.NewEnvironment()
	a.Movement = worldmodel.NewMovement()
	a.Modes = mode.NewManager(log.Named("mode"))

	thinkingStore, err := persist.NewJSONStore(filepath.Join(dataDir, "thinking_log.json"))
	if err != nil {
		return nil, fmt.Errorf("agent: thinking log store: %w", err)
	}
	a.Thinking = thinking.NewLog(clock.System{}, thinkingStore)
	a.ChatLog = thinking.NewChatHistory(cfg.Bot.BotName, a.Thinking)

	todoStore, err := persist.NewJSONStore(filepath.Join(dataDir, "todo_list.json"))
	if err != nil {
		return nil, fmt.Errorf("agent: todo list store: %w", err)
	}
	a.Tasks = tasks.NewList(todoStore)
	a.Tasks.SetGoal(cfg.Game.Goal)

	locationsStore, err := persist.NewJSONStore(filepath.Join(dataDir, "locations.json"))
	if err != nil {
		return nil, fmt.Errorf("agent: locations store: %w", err)
	}
	a.Locations = tasks.NewLocations(locationsStore)

	a.Bridge = bridge.NewHTTPClient("http://127.0.0.1:20915")

	textClient, err := llmclient.NewAnthropicClient(log.Named("llm"), cfg.LLM.APIKey, cfg.LLM.Model)
	if err != nil {
		return nil, fmt.Errorf("agent: llm client: %w", err)
	}
	a.Chat = textClient
	if cfg.Visual.Enable {
		visionClient, err := llmclient.NewAnthropicClient(log.Named("vlm"), cfg.VLM.APIKey, cfg.VLM.Model)
		if err != nil {
			return nil, fmt.Errorf("agent: vlm client: %w", err)
		}
		a.Vision = visionClient
	}

	combatCfg := combat.ConfiguredDefault(16)
	if cfg.ThreatDetection != nil {
		combatCfg = combatConfigFromTOML(*cfg.ThreatDetection)
	}
	a.Combat = combat.New(log.Named("combat"), combatCfg, a.Bridge, a.Thinking, a.Modes)
	a.Modes.RegisterHandler(a.Combat)
	a.Modes.RegisterEnvironmentListener(a.Combat)

	a.Hurt = hurt.New(log.Named("hurt"), hurt.DefaultConfig(), a.Bridge, a.Chat, a.Thinking, a.Movement, cfg.Bot.BotName)

	planner, err := craft.New(a.Bridge)
	if err != nil {
		return nil, fmt.Errorf("agent: craft planner: %w", err)
	}
	a.Craft = planner

	tasksChannel := wsfanout.NewTasksChannel(log.Named("ws"), wsfanout.DefaultConfig(), a.Tasks)
	a.WS = wsfanout.NewServer(log.Named("ws"), tasksChannel)

	return a, nil
}

func combatConfigFromTOML(td config.ThreatDetectionConfig) combat.Config {
	return combat.Config{
		ThreatDetectionRange: td.Range,
		ThreatMinDistance:    td.MinDistance,
		ThreatTimeout:        secondsToDuration(td.TimeoutSeconds),
		AttackInterval:       secondsToDuration(td.AttackIntervalSec),
		MaxAttackAttempts:    td.MaxAttackAttempts,
		Enabled:              td.Enabled,
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// modeCheckInterval is how often the mode manager is polled for
// auto-transition suggestions (expired threat timeouts, handler-proposed
// switches) outside of the event-driven OnEnvironmentUpdated path.
const modeCheckInterval = 2 * time.Second

// Run starts the agent's background loops and blocks until ctx is
// cancelled. The combat handler's attack loop is started and stopped by
// mode.Manager itself (OnEnterMode/OnExitMode); Run only drives the
// periodic auto-transition check that notices expired timeouts between
// environment updates.
func (a *Agent) Run(ctx context.Context) error {
	ticker := time.NewTicker(modeCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.Modes.CheckAutoTransitions(ctx)
		}
	}
}
