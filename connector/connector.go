package connector

import (
	"context"
	"strings"
	"sync"

	"github.com/looplab/fsm"
	"github.com/the-lightning-land/wifid/credentials"
	"github.com/the-lightning-land/wifid/network"
	"github.com/the-lightning-land/wifid/ranking"
)

const noCursor = -1

type Config struct {
	Network network.Network
	Logger  Logger
}

// Connector connects the station to the strongest configured access point in
// range and falls back to the next one when an attempt fails.
//
// All methods are safe for concurrent use. Outcome handlers run on the
// goroutine that delivered the triggering event, after the connector released
// its lock, so they may call back into the connector.
type Connector struct {
	log        Logger
	net        network.Network
	mu         sync.Mutex
	machine    *fsm.FSM
	store      *credentials.Store
	candidates []ranking.Candidate
	cursor     int
	generation network.Generation
	callbacks  callbacks
	adapter    *eventAdapter
}

// New creates an idle connector subscribed to the events of config.Network.
// Close releases the subscription.
func New(config *Config) *Connector {
	c := &Connector{
		net:    config.Network,
		store:  credentials.NewStore(),
		cursor: noCursor,
	}

	if config.Logger != nil {
		c.log = config.Logger
	} else {
		c.log = noopLogger{}
	}

	c.machine = fsm.NewFSM(
		stateIdle,
		fsm.Events{
			{Name: eventScan, Src: []string{stateIdle}, Dst: stateScanning},
			{Name: eventConnect, Src: []string{stateScanning}, Dst: stateConnecting},
			{Name: eventExhausted, Src: []string{stateScanning, stateConnecting}, Dst: stateIdle},
			{Name: eventAddress, Src: []string{stateConnecting}, Dst: stateConnected},
			{Name: eventLost, Src: []string{stateConnected}, Dst: stateIdle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				c.log.Debugf("Status changed from %v to %v on %v", e.Src, e.Dst, e.Event)
			},
		},
	)

	c.adapter = newEventAdapter(config.Network, c)

	return c
}

// Close cancels the network subscription. No event reaches the connector
// after Close returns.
func (c *Connector) Close() {
	c.adapter.close()
}

// AddCredential stores a credential for later attempts. It returns false when
// the ssid is empty or longer than 31 bytes, the passphrase is longer than 64
// bytes, or the ssid is already configured.
func (c *Connector) AddCredential(ssid string, passphrase string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.store.Add(ssid, passphrase) {
		c.log.Infof("Rejected credential for %q", ssid)
		return false
	}

	c.log.Debugf("Added credential for %q with passphrase %v", ssid, strings.Repeat("*", len(passphrase)))

	return true
}

// Start begins an attempt: it requests a scan and returns true. It returns
// false when an attempt is already in progress, the station is connected, or
// the scan could not be requested.
func (c *Connector) Start() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.machine.Can(eventScan) {
		c.log.Infof("Not starting, status is %v", c.status())
		return false
	}

	gen := c.generation + 1

	err := c.net.RequestDisconnect(gen)
	if err != nil {
		c.log.Warnf("Could not request disconnect: %v", err)
	}

	err = c.net.RequestScan(gen)
	if err != nil {
		c.log.Errorf("Could not request scan: %v", err)
		return false
	}

	c.generation = gen
	c.transition(eventScan)

	c.log.Infof("Started attempt %d with %d configured access points", gen, c.store.Len())

	return true
}

// Clear forgets all credentials and candidates and returns to Idle. Events of
// the attempt that was in flight are ignored from now on.
func (c *Connector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.Clear()
	c.candidates = nil
	c.cursor = noCursor
	c.generation++
	c.machine.SetState(stateIdle)

	c.log.Infof("Cleared configured access points")
}

func (c *Connector) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.status()
}

// Credentials returns the configured credentials in insertion order
func (c *Connector) Credentials() []credentials.Credential {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store.List()
}

// Candidates returns the candidates ranked by the most recent scan
func (c *Connector) Candidates() []ranking.Candidate {
	c.mu.Lock()
	defer c.mu.Unlock()

	candidates := make([]ranking.Candidate, len(c.candidates))
	copy(candidates, c.candidates)

	return candidates
}

// Current returns the candidate being attempted or connected to
func (c *Connector) Current() (ranking.Candidate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cursor == noCursor {
		return ranking.Candidate{}, false
	}

	return c.candidates[c.cursor], true
}

func (c *Connector) status() Status {
	return statusOfState[c.machine.Current()]
}

func (c *Connector) transition(event string) {
	err := c.machine.Event(context.Background(), event)
	if err != nil {
		c.log.Errorf("Could not apply %v in %v: %v", event, c.machine.Current(), err)
	}
}

// process runs step under the lock unless gen belongs to an earlier attempt,
// then fires the outcome step returned.
func (c *Connector) process(gen network.Generation, name string, step func() outcome) {
	c.mu.Lock()

	if gen != c.generation {
		c.log.Debugf("Dropping %v of attempt %d, current attempt is %d", name, gen, c.generation)
		c.mu.Unlock()
		return
	}

	fire := step()
	c.mu.Unlock()

	if fire != nil {
		fire()
	}
}

func (c *Connector) scanComplete(gen network.Generation, status int, observations []network.Observation) {
	c.process(gen, "scan result", func() outcome {
		if c.status() != Scanning {
			return nil
		}

		if status != 0 {
			c.log.Infof("Scan failed with status %d", status)
			return c.exhaust()
		}

		c.candidates = ranking.Rank(observations, c.store.List())

		c.log.Infof("Scan found %d access points, %d configured", len(observations), len(c.candidates))
		for i, candidate := range c.candidates {
			c.log.Debugf("Candidate %d: %q rssi %d channel %d", i, candidate.Ssid, candidate.Rssi, candidate.Channel)
		}

		c.cursor = 0

		return c.connectCurrent()
	})
}

func (c *Connector) stationDisconnected(gen network.Generation, ssid string, reason int) {
	c.process(gen, "disconnect", func() outcome {
		switch c.status() {
		case Connecting:
			c.log.Infof("Could not connect to %q, reason %d", c.candidates[c.cursor].Ssid, reason)
			return c.advance()
		case Connected:
			if ssid == "" {
				ssid = c.candidates[c.cursor].Ssid
			}
			return c.lose(ssid, reason)
		default:
			return nil
		}
	})
}

func (c *Connector) gotAddress(gen network.Generation, ip string) {
	c.process(gen, "address", func() outcome {
		if c.status() != Connecting {
			return nil
		}

		candidate := c.candidates[c.cursor]
		c.transition(eventAddress)

		c.log.Infof("Connected to %q with address %v", candidate.Ssid, ip)

		return c.connectedOutcome(candidate)
	})
}

func (c *Connector) lostAddress(gen network.Generation) {
	c.process(gen, "address loss", func() outcome {
		switch c.status() {
		case Connecting:
			c.log.Infof("Lost address while connecting to %q", c.candidates[c.cursor].Ssid)
			return c.advance()
		case Connected:
			return c.lose(c.candidates[c.cursor].Ssid, ReasonUnknown)
		default:
			return nil
		}
	})
}

func (c *Connector) advance() outcome {
	c.cursor++
	return c.connectCurrent()
}

// connectCurrent requests a connection to the candidate under the cursor,
// skipping candidates whose request fails, and exhausts the attempt when no
// candidate is left.
func (c *Connector) connectCurrent() outcome {
	for ; c.cursor < len(c.candidates); c.cursor++ {
		candidate := c.candidates[c.cursor]

		err := c.net.RequestConnect(c.generation, candidate.Ssid, candidate.Passphrase)
		if err != nil {
			c.log.Warnf("Could not request connection to %q: %v", candidate.Ssid, err)
			continue
		}

		c.log.Infof("Connecting to %q (rssi %d)", candidate.Ssid, candidate.Rssi)

		if c.status() == Scanning {
			c.transition(eventConnect)
		}

		return nil
	}

	return c.exhaust()
}

func (c *Connector) exhaust() outcome {
	c.log.Infof("Could not connect to any configured access point")

	c.cursor = noCursor
	c.transition(eventExhausted)

	return c.failureOutcome()
}

func (c *Connector) lose(ssid string, reason int) outcome {
	c.log.Infof("Disconnected from %q, reason %d", ssid, reason)

	c.cursor = noCursor
	c.transition(eventLost)

	return c.disconnectedOutcome(ssid, reason)
}
