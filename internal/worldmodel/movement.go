package worldmodel

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/l1jgo/mcagent/internal/geo"
)

const (
	fallingVerticalVelocity = -13
	teleportSpeedThreshold  = 30
	monitorTick             = 500 * time.Millisecond
)

// Notifier receives human-readable notices the monitor wants surfaced on
// the thinking log (falling, landing, teleport).
type Notifier interface {
	Notice(message string)
}

// Movement derives velocity from successive positions and watches for
// falling and teleportation, raising an interrupt flag the mode manager
// polls before committing to its next action.
type Movement struct {
	mu sync.Mutex

	position       geo.Position
	hasPosition    bool
	lastUpdate     time.Time
	velocity       geo.Position
	speed          float64
	verticalSpeed  float64
	horizontalSpeed float64

	falling    bool
	teleported bool
	onGround   bool

	interruptFlag   bool
	interruptReason string
}

// NewMovement returns a Movement with on-ground assumed true, matching the
// conservative default used before the first observation arrives.
func NewMovement() *Movement {
	return &Movement{onGround: true}
}

// SetPosition records a new position sample, deriving velocity/speed from
// the elapsed time since the previous sample and flagging falling or
// teleportation when the derived speed crosses its threshold. The very
// first call only seeds the position; it cannot derive a velocity.
func (m *Movement) SetPosition(pos geo.Position, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasPosition {
		m.position = pos
		m.hasPosition = true
		m.lastUpdate = now
		return
	}

	dt := now.Sub(m.lastUpdate).Seconds()
	m.lastUpdate = now
	if dt <= 0 {
		m.position = pos
		return
	}

	m.velocity = geo.Position{
		X: (pos.X - m.position.X) / dt,
		Y: (pos.Y - m.position.Y) / dt,
		Z: (pos.Z - m.position.Z) / dt,
	}
	m.position = pos
	m.speed = math.Sqrt(m.velocity.X*m.velocity.X + m.velocity.Y*m.velocity.Y + m.velocity.Z*m.velocity.Z)
	m.verticalSpeed = m.velocity.Y
	m.horizontalSpeed = math.Sqrt(m.velocity.X*m.velocity.X + m.velocity.Z*m.velocity.Z)

	if m.verticalSpeed < fallingVerticalVelocity {
		m.falling = true
	}
	if m.speed > teleportSpeedThreshold {
		m.teleported = true
	}
}

// SetOnGround records the latest on-ground flag from the observation feed.
func (m *Movement) SetOnGround(onGround bool) {
	m.mu.Lock()
	m.onGround = onGround
	m.mu.Unlock()
}

// TriggerInterrupt raises the interrupt flag with reason, overwriting any
// reason already set.
func (m *Movement) TriggerInterrupt(reason string) {
	m.mu.Lock()
	m.interruptFlag = true
	m.interruptReason = reason
	m.mu.Unlock()
}

// ClearInterrupt lowers the interrupt flag.
func (m *Movement) ClearInterrupt() {
	m.mu.Lock()
	m.interruptFlag = false
	m.interruptReason = ""
	m.mu.Unlock()
}

// Interrupted reports whether an interrupt is pending and its reason.
func (m *Movement) Interrupted() (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interruptFlag, m.interruptReason
}

// Speed returns the most recently derived total speed, in blocks/second.
func (m *Movement) Speed() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speed
}

// Run starts the 500ms supervisory tick that checks for falling/teleport
// state and raises interrupts + notices. It blocks until ctx is cancelled.
func (m *Movement) Run(ctx context.Context, notifier Notifier) {
	ticker := time.NewTicker(monitorTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkOnce(notifier)
		}
	}
}

func (m *Movement) checkOnce(notifier Notifier) {
	m.mu.Lock()
	pos := m.position
	falling := m.falling
	teleported := m.teleported
	onGround := m.onGround
	vertical := m.verticalSpeed
	if falling && onGround {
		m.falling = false
	}
	if teleported {
		m.teleported = false
	}
	m.mu.Unlock()

	if falling {
		if onGround {
			notifier.Notice(formatLandedNotice(pos))
			m.TriggerInterrupt("just fell and landed, reconsider the current plan")
		} else {
			notifier.Notice(formatFallingNotice(pos, vertical))
		}
	}
	if teleported {
		notifier.Notice(formatTeleportNotice(pos))
		m.TriggerInterrupt("just teleported, reconsider the current plan")
	}
}

func formatLandedNotice(pos geo.Position) string {
	return fmt.Sprintf("Notice: you just fell and have now landed, current position (x=%.1f,y=%.1f,z=%.1f).", pos.X, pos.Y, pos.Z)
}

func formatFallingNotice(pos geo.Position, verticalSpeed float64) string {
	return fmt.Sprintf("Notice: you are falling! current vertical speed %.2f, position (x=%.1f,y=%.1f,z=%.1f).", verticalSpeed, pos.X, pos.Y, pos.Z)
}

func formatTeleportNotice(pos geo.Position) string {
	return fmt.Sprintf("Notice: you were just teleported to a new position (x=%.1f,y=%.1f,z=%.1f).", pos.X, pos.Y, pos.Z)
}
