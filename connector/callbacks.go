package connector

import "github.com/the-lightning-land/wifid/ranking"

// ReasonUnknown is reported to disconnected handlers when the event that
// ended the connection carried no reason, e.g. a lost address.
const ReasonUnknown = -1

type (
	ConnectedHandler    func(candidate ranking.Candidate)
	FailureHandler      func()
	DisconnectedHandler func(ssid string, reason int)
)

// callbacks holds at most one handler per outcome
type callbacks struct {
	connected    ConnectedHandler
	failure      FailureHandler
	disconnected DisconnectedHandler
}

// outcome is a handler invocation prepared under the connector lock and run
// after it was released
type outcome func()

// OnConnected replaces the handler called once an attempt got an address
func (c *Connector) OnConnected(handler ConnectedHandler) {
	c.mu.Lock()
	c.callbacks.connected = handler
	c.mu.Unlock()
}

// OnFailure replaces the handler called when an attempt found no candidate
// or every candidate failed
func (c *Connector) OnFailure(handler FailureHandler) {
	c.mu.Lock()
	c.callbacks.failure = handler
	c.mu.Unlock()
}

// OnDisconnected replaces the handler called when an established connection
// is lost
func (c *Connector) OnDisconnected(handler DisconnectedHandler) {
	c.mu.Lock()
	c.callbacks.disconnected = handler
	c.mu.Unlock()
}

func (c *Connector) connectedOutcome(candidate ranking.Candidate) outcome {
	handler := c.callbacks.connected
	return func() {
		if handler != nil {
			handler(candidate)
		}
	}
}

func (c *Connector) failureOutcome() outcome {
	handler := c.callbacks.failure
	return func() {
		if handler != nil {
			handler()
		}
	}
}

func (c *Connector) disconnectedOutcome(ssid string, reason int) outcome {
	handler := c.callbacks.disconnected
	return func() {
		if handler != nil {
			handler(ssid, reason)
		}
	}
}
