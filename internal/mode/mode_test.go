package mode

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

type stubHandler struct {
	modeType    string
	entered     int
	exited      int
	canEnter    bool
	canExit     bool
	transitions []Transition
}

func (s *stubHandler) ModeType() string { return s.modeType }
func (s *stubHandler) OnEnterMode(ctx context.Context, reason, triggeredBy string) { s.entered++ }
func (s *stubHandler) OnExitMode(ctx context.Context, reason, triggeredBy string)  { s.exited++ }
func (s *stubHandler) CanEnterMode() bool                                          { return s.canEnter }
func (s *stubHandler) CanExitMode() bool                                           { return s.canExit }
func (s *stubHandler) CheckTransitions() []Transition                              { return s.transitions }

func newTestManager() *Manager {
	return NewManager(zap.NewNop())
}

func TestSetModeRejectsUnknown(t *testing.T) {
	m := newTestManager()
	if m.SetMode(context.Background(), "nonexistent", "", "") {
		t.Fatalf("expected unknown mode to be refused")
	}
}

func TestSetModeRefusesLowerPriority(t *testing.T) {
	m := newTestManager()
	if !m.SetMode(context.Background(), ModeCombat, "threat", "test") {
		t.Fatalf("expected switch to combat mode to succeed")
	}
	if m.SetMode(context.Background(), ModeFurnaceGUI, "", "test") {
		t.Fatalf("expected lower-priority furnace_gui to be refused while in combat_mode")
	}
	if !m.SetMode(context.Background(), ModeMain, "", "test") {
		t.Fatalf("expected main_mode to always be reachable regardless of priority")
	}
}

func TestSetModeCallsHandlerLifecycle(t *testing.T) {
	m := newTestManager()
	h := &stubHandler{modeType: ModeCombat, canEnter: true, canExit: true}
	m.RegisterHandler(h)

	m.SetMode(context.Background(), ModeCombat, "threat", "test")
	if h.entered != 1 {
		t.Fatalf("expected OnEnterMode called once, got %d", h.entered)
	}
	m.SetMode(context.Background(), ModeMain, "done", "test")
	if h.exited != 1 {
		t.Fatalf("expected OnExitMode called once, got %d", h.exited)
	}
}

func TestTransitionHistoryBounded(t *testing.T) {
	m := newTestManager()
	for i := 0; i < maxHistory+10; i++ {
		if i%2 == 0 {
			m.SetMode(context.Background(), ModeCombat, "x", "test")
		} else {
			m.SetMode(context.Background(), ModeMain, "x", "test")
		}
	}
	if len(m.History()) != maxHistory {
		t.Fatalf("expected history bounded to %d, got %d", maxHistory, len(m.History()))
	}
}

func TestTransitionRecordsGetDistinctTraceIDs(t *testing.T) {
	m := newTestManager()
	m.SetMode(context.Background(), ModeCombat, "x", "test")
	m.SetMode(context.Background(), ModeMain, "x", "test")

	history := m.History()
	if len(history) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(history))
	}
	if history[0].TraceID == "" || history[1].TraceID == "" {
		t.Fatalf("expected every transition to carry a trace ID, got %+v", history)
	}
	if history[0].TraceID == history[1].TraceID {
		t.Fatalf("expected distinct trace IDs per transition, got %q twice", history[0].TraceID)
	}
}

func TestCheckAutoTransitionsAppliesHighestPriority(t *testing.T) {
	m := newTestManager()
	h := &stubHandler{
		modeType: ModeMain,
		canEnter: true, canExit: true,
		transitions: []Transition{
			{TargetMode: ModeFurnaceGUI, Priority: 1},
			{TargetMode: ModeCombat, Priority: 5},
		},
	}
	m.RegisterHandler(h)
	switched := m.CheckAutoTransitions(context.Background())
	if !switched {
		t.Fatalf("expected a transition to apply")
	}
	if m.Current() != ModeCombat {
		t.Fatalf("expected the higher-priority transition (combat_mode) to win, got %s", m.Current())
	}
}

func TestNotifyEnvironmentUpdatedFansOutAndIsolatesPanics(t *testing.T) {
	m := newTestManager()
	calls := 0
	m.RegisterEnvironmentListener(listenerFunc(func(data any) { calls++ }))
	m.RegisterEnvironmentListener(listenerFunc(func(data any) { panic("boom") }))
	m.NotifyEnvironmentUpdated("payload")
	if calls != 1 {
		t.Fatalf("expected the non-panicking listener to still run, got %d calls", calls)
	}
	if m.LastEnvironmentData() != "payload" {
		t.Fatalf("expected LastEnvironmentData to retain the payload")
	}
}

type listenerFunc func(data any)

func (f listenerFunc) OnEnvironmentUpdated(data any) { f(data) }

func TestAutoRestoreSwitchesBackAfterDelay(t *testing.T) {
	m := newTestManager()
	m.AddModeConfig(ModeCombat, Config{
		Name: "combat", Priority: 100, AutoRestore: true, RestoreDelay: 20 * time.Millisecond,
	})
	m.SetMode(context.Background(), ModeCombat, "threat", "test")
	if m.Current() != ModeCombat {
		t.Fatalf("expected combat_mode active")
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.Current() == ModeMain {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected auto-restore to main_mode within the deadline")
}
