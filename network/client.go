package network

import (
	"sort"
	"sync"
)

// Client is a subscription to the events of a Network
type Client struct {
	Id     uint32
	cancel func()
}

// NewClient creates a subscription handle that calls cancel once when the
// subscription is cancelled. It is meant for Network implementations.
func NewClient(id uint32, cancel func()) *Client {
	return &Client{
		Id:     id,
		cancel: cancel,
	}
}

// Cancel ends the subscription. No delivery to the client starts after
// Cancel returns.
func (c *Client) Cancel() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// hub keeps the subscribed clients of a network and delivers events to them
// through a single dispatch queue.
type hub struct {
	mu       sync.Mutex
	handlers map[uint32]Handler
	nextId   uint32
	queue    *dispatcher
}

func newHub() *hub {
	return &hub{
		handlers: make(map[uint32]Handler),
		queue:    newDispatcher(),
	}
}

func (h *hub) Subscribe(handler Handler) *Client {
	h.mu.Lock()
	id := h.nextId
	h.nextId++
	h.handlers[id] = handler
	h.mu.Unlock()

	return NewClient(id, func() {
		h.deleteClient(id)
	})
}

func (h *hub) deleteClient(id uint32) {
	h.mu.Lock()
	delete(h.handlers, id)
	h.mu.Unlock()
}

// publish queues ev for delivery and reports whether it was accepted
func (h *hub) publish(ev Event) bool {
	return h.queue.enqueue(func() {
		h.deliver(ev)
	})
}

// deliver must only run on the dispatch queue
func (h *hub) deliver(ev Event) {
	h.mu.Lock()
	ids := make([]uint32, 0, len(h.handlers))
	for id := range h.handlers {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		h.mu.Lock()
		handler, ok := h.handlers[id]
		h.mu.Unlock()

		if ok {
			handler(ev)
		}
	}
}

func (h *hub) close() {
	h.queue.stop()
}
