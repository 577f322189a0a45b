package network

import (
	"fmt"
	"sync"
	"time"
)

// IEEE 802.11 reason codes reported by the mock network
const (
	ReasonDeauthLeaving        = 3
	ReasonDisassocLeaving      = 8
	ReasonHandshakeTimeout     = 15
	ReasonNoAccessPointInSight = 201
)

// check MockNetwork compliance to its interface during compile time
var _ Network = (*MockNetwork)(nil)

type MockAp struct {
	Ssid       string
	Passphrase string
	Rssi       int
	Channel    int
}

type RequestKind string

const (
	RequestKindScan       RequestKind = "scan"
	RequestKindConnect    RequestKind = "connect"
	RequestKindDisconnect RequestKind = "disconnect"
)

// Request is a request the mock network received
type Request struct {
	Kind       RequestKind
	Generation Generation
	Ssid       string
	Passphrase string
}

type MockConfig struct {
	Aps    []MockAp
	Delay  time.Duration
	Logger Logger
}

// MockNetwork simulates a station in range of a fixed set of access points.
// Connecting succeeds when the passphrase matches the access point.
type MockNetwork struct {
	*hub
	log        Logger
	mu         sync.Mutex
	aps        []MockAp
	delay      time.Duration
	failScans  bool
	associated string
	generation Generation
	requests   []Request
	nextHost   int
}

func NewMockNetwork(config *MockConfig) *MockNetwork {
	net := &MockNetwork{
		hub:      newHub(),
		aps:      append([]MockAp(nil), config.Aps...),
		delay:    config.Delay,
		nextHost: 2,
	}

	if config.Logger != nil {
		net.log = config.Logger
	} else {
		net.log = noopLogger{}
	}

	return net
}

func (n *MockNetwork) Start() error {
	n.log.Infof("Started mock network with %d access points", len(n.aps))
	return nil
}

func (n *MockNetwork) Stop() error {
	n.close()
	return nil
}

func (n *MockNetwork) RequestScan(gen Generation) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.record(Request{Kind: RequestKindScan, Generation: gen})

	ev := &ScanComplete{Generation: gen}
	if n.failScans {
		ev.Status = 1
	} else {
		for _, ap := range n.aps {
			ev.Observations = append(ev.Observations, Observation{
				Ssid:    ap.Ssid,
				Rssi:    ap.Rssi,
				Channel: ap.Channel,
			})
		}
	}

	n.emit(ev)

	return nil
}

func (n *MockNetwork) RequestConnect(gen Generation, ssid string, passphrase string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.record(Request{Kind: RequestKindConnect, Generation: gen, Ssid: ssid, Passphrase: passphrase})
	n.associated = ""

	for _, ap := range n.aps {
		if ap.Ssid != ssid {
			continue
		}

		if ap.Passphrase != passphrase {
			n.emit(&StationDisconnected{Generation: gen, Ssid: ssid, Reason: ReasonHandshakeTimeout})
			return nil
		}

		n.associated = ssid
		n.emit(&GotAddress{Generation: gen, Ip: fmt.Sprintf("192.168.4.%d", n.nextHost)})
		n.nextHost++

		return nil
	}

	n.emit(&StationDisconnected{Generation: gen, Ssid: ssid, Reason: ReasonNoAccessPointInSight})

	return nil
}

func (n *MockNetwork) RequestDisconnect(gen Generation) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.record(Request{Kind: RequestKindDisconnect, Generation: gen})

	if n.associated != "" {
		n.emit(&StationDisconnected{Generation: gen, Ssid: n.associated, Reason: ReasonDisassocLeaving})
		n.associated = ""
	}

	return nil
}

// Drop simulates the access point going away while associated
func (n *MockNetwork) Drop(reason int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.associated == "" {
		return
	}

	n.emit(&StationDisconnected{Generation: n.generation, Ssid: n.associated, Reason: reason})
	n.associated = ""
}

// Inject delivers an arbitrary event, e.g. a late event of an old attempt
func (n *MockNetwork) Inject(ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.emit(ev)
}

func (n *MockNetwork) SetAps(aps []MockAp) {
	n.mu.Lock()
	n.aps = append([]MockAp(nil), aps...)
	n.mu.Unlock()
}

func (n *MockNetwork) SetScanFailure(fail bool) {
	n.mu.Lock()
	n.failScans = fail
	n.mu.Unlock()
}

// Associated returns the ssid the station is currently associated with
func (n *MockNetwork) Associated() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.associated
}

func (n *MockNetwork) Requests() []Request {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]Request(nil), n.requests...)
}

func (n *MockNetwork) record(req Request) {
	n.generation = req.Generation
	n.requests = append(n.requests, req)
}

// emit must be called with n.mu held
func (n *MockNetwork) emit(ev Event) {
	delay := n.delay

	ok := n.queue.enqueue(func() {
		if delay > 0 {
			time.Sleep(delay)
		}
		n.deliver(ev)
	})
	if !ok {
		n.log.Debugf("Dropped %T after stop", ev)
	}
}
