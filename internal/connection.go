package internal

import (
	"sync"
)

// ConnectionState tracks whether a shared transport has been closed.
// Closing is global: every holder of the transport observes it, and it happens
// exactly once no matter how many holders call Close.
type ConnectionState struct {
	once   sync.Once
	closed chan struct{}
}

// NewConnectionState creates an open ConnectionState.
func NewConnectionState() *ConnectionState {
	return &ConnectionState{
		closed: make(chan struct{}),
	}
}

// Close marks the state closed and runs release, both exactly once.
// It reports whether this call was the one that closed it.
func (cs *ConnectionState) Close(release func()) bool {
	closedHere := false
	cs.once.Do(func() {
		if release != nil {
			release()
		}
		close(cs.closed)
		closedHere = true
	})
	return closedHere
}

// Closed reports whether Close has been called.
func (cs *ConnectionState) Closed() bool {
	select {
	case <-cs.closed:
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed once the state is closed.
func (cs *ConnectionState) Done() <-chan struct{} {
	return cs.closed
}
