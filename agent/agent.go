package agent

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentfoundry/types"
)

// Agent is the identity and mutable state shared by every role variant:
// id, lineage position, status, strategy and the owned memory log.
//
// An Agent belongs to exactly one pipeline (or one spawned lineage slot);
// pipelines never share Agent instances.
type Agent struct {
	mu sync.RWMutex

	id         string
	role       types.Role
	generation int
	parentID   string

	status   Status
	strategy Strategy
	memory   *MemoryLog

	createdAt time.Time
	logger    *zap.Logger
	now       func() time.Time
}

// Snapshot is a read-only copy of an agent's state.
type Snapshot struct {
	ID         string        `json:"id"`
	Role       types.Role    `json:"role"`
	Generation int           `json:"generation"`
	ParentID   string        `json:"parent_id,omitempty"`
	Status     Status        `json:"status"`
	Strategy   Strategy      `json:"strategy"`
	Memory     MemorySummary `json:"memory"`
	CreatedAt  time.Time     `json:"created_at"`
}

// NewAgent creates an idle generation-aware agent.
func NewAgent(id string, role types.Role, generation int, parentID string, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Agent{
		id:         id,
		role:       role,
		generation: generation,
		parentID:   parentID,
		status:     StatusIdle,
		strategy:   DefaultStrategy(role),
		memory:     NewMemoryLog(),
		logger:     logger.With(zap.String("component", "agent"), zap.String("agent_id", id)),
		now:        time.Now,
	}
	a.createdAt = a.now()
	return a
}

// WithClock overrides the agent clock (and its memory log's). Test hook.
func (a *Agent) WithClock(now func() time.Time) *Agent {
	if now == nil {
		return a
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.now = now
	a.createdAt = now()
	a.memory.WithClock(now)
	return a
}

// ID returns the agent id.
func (a *Agent) ID() string { return a.id }

// Role returns the agent role.
func (a *Agent) Role() types.Role { return a.role }

// Generation returns the evolution depth; roots are generation 0.
func (a *Agent) Generation() int { return a.generation }

// ParentID returns the spawning parent's id, empty for roots.
func (a *Agent) ParentID() string { return a.parentID }

// CreatedAt returns the creation timestamp.
func (a *Agent) CreatedAt() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.createdAt
}

// Status returns the current lifecycle status.
func (a *Agent) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// Transition moves the agent to a new status, enforcing the state machine.
func (a *Agent) Transition(to Status) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !CanTransition(a.status, to) {
		return types.NewError(types.ErrInvalidTransition, ErrStatusTransition{From: a.status, To: to}.Error())
	}
	a.logger.Debug("status transition",
		zap.String("from", string(a.status)),
		zap.String("to", string(to)))
	a.status = to
	return nil
}

// Strategy returns a copy of the current strategy.
func (a *Agent) Strategy() Strategy {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.strategy.Clone()
}

// SetStrategy replaces the strategy wholesale, e.g. when a child inherits
// its parent's parameters at spawn time.
func (a *Agent) SetStrategy(s Strategy) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.strategy = s.Clone()
}

// AdjustStrategy applies fn to the live strategy under the agent lock.
func (a *Agent) AdjustStrategy(fn func(*Strategy)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(&a.strategy)
}

// Memory returns the agent's memory log.
func (a *Agent) Memory() *MemoryLog { return a.memory }

// Child creates a one-generation-deeper agent inheriting this agent's
// current strategy as its starting point. The child owns a fresh memory log.
func (a *Agent) Child(childID string) *Agent {
	c := NewAgent(childID, a.role, a.generation+1, a.id, a.logger)
	a.mu.RLock()
	c.strategy = a.strategy.Clone()
	c.now = a.now
	a.mu.RUnlock()
	c.createdAt = c.now()
	c.memory.WithClock(c.now)
	return c
}

// Snapshot captures the agent state for queries and persistence.
func (a *Agent) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Snapshot{
		ID:         a.id,
		Role:       a.role,
		Generation: a.generation,
		ParentID:   a.parentID,
		Status:     a.status,
		Strategy:   a.strategy.Clone(),
		Memory:     a.memory.Summary(),
		CreatedAt:  a.createdAt,
	}
}
