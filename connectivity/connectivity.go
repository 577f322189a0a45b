package connectivity

import (
	"context"
	"sync"
)

type State int

const (
	Offline State = iota
	Online
)

func (s State) String() string {
	switch s {
	case Offline:
		return "OFFLINE"
	case Online:
		return "ONLINE"
	default:
		return "INVALID STATE"
	}
}

type Reporter interface {
	CurrentState() State
	WaitForStateChange(context.Context, State) bool
}

// check Monitor compliance to its interface during compile time
var _ Reporter = (*Monitor)(nil)

// Monitor holds whether the station is online and wakes up waiters when that
// changes. The zero state is Offline.
type Monitor struct {
	mu      sync.Mutex
	state   State
	changed chan struct{}
}

func NewMonitor() *Monitor {
	return &Monitor{
		state:   Offline,
		changed: make(chan struct{}),
	}
}

func (m *Monitor) CurrentState() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

func (m *Monitor) SetState(state State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == state {
		return
	}

	m.state = state
	close(m.changed)
	m.changed = make(chan struct{})
}

// WaitForStateChange blocks until the state differs from state and returns
// true, or returns false once ctx is done
func (m *Monitor) WaitForStateChange(ctx context.Context, state State) bool {
	for {
		m.mu.Lock()
		current := m.state
		changed := m.changed
		m.mu.Unlock()

		if current != state {
			return true
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return false
		}
	}
}
