package network

import (
	"sync"

	"github.com/go-errors/errors"
	"github.com/the-lightning-land/wifid/network/wpa"
	"github.com/vishvananda/netlink"
)

// check WpaNetwork compliance to its interface during compile time
var _ Network = (*WpaNetwork)(nil)

// supplicant states in which the station holds or is building an association
var associatedStates = map[string]bool{
	"authenticating":  true,
	"associating":     true,
	"associated":      true,
	"4way_handshake":  true,
	"group_handshake": true,
	"completed":       true,
}

type WpaConfig struct {
	Interface string
	Logger    Logger
}

// WpaNetwork drives wpa_supplicant over D-Bus and watches the interface
// addresses over netlink. Events of both sources share one dispatch queue.
type WpaNetwork struct {
	*hub
	log              Logger
	wpa              *wpa.Wpa
	ifname           string
	iface            *wpa.Interface
	signals          *wpa.SignalClient
	linkIndex        int
	addrDone         chan struct{}
	mu               sync.Mutex
	generation       Generation
	ssid             string
	state            string
	reason           int
	added            *wpa.Network
	// set when a connect request tears down an association on purpose
	expectDisconnect bool
}

func NewWpaNetwork(config *WpaConfig) *WpaNetwork {
	net := &WpaNetwork{
		hub:    newHub(),
		ifname: config.Interface,
		wpa:    wpa.New(),
	}

	if config.Logger != nil {
		net.log = config.Logger
	} else {
		net.log = noopLogger{}
	}

	return net
}

func (n *WpaNetwork) Start() error {
	err := n.wpa.Start()
	if err != nil {
		return errors.Errorf("could not start wpa: %v", err)
	}

	iface, err := n.wpa.GetInterface(n.ifname)
	if err != nil {
		_ = n.wpa.Stop()
		return errors.Errorf("could not find interface %v: %v", n.ifname, err)
	}

	n.iface = iface

	link, err := netlink.LinkByName(n.ifname)
	if err != nil {
		_ = n.wpa.Stop()
		return errors.Errorf("could not find link %v: %v", n.ifname, err)
	}

	n.linkIndex = link.Attrs().Index

	state, err := iface.State()
	if err != nil {
		n.log.Warnf("Could not read supplicant state: %v", err)
	}

	n.mu.Lock()
	n.state = state
	n.mu.Unlock()

	n.signals, err = iface.Subscribe(n.handleSignal)
	if err != nil {
		_ = n.wpa.Stop()
		return errors.Errorf("could not subscribe to interface signals: %v", err)
	}

	updates := make(chan netlink.AddrUpdate)
	n.addrDone = make(chan struct{})

	err = netlink.AddrSubscribe(updates, n.addrDone)
	if err != nil {
		n.signals.Cancel()
		_ = n.wpa.Stop()
		return errors.Errorf("could not subscribe to address updates: %v", err)
	}

	go n.watchAddresses(updates)

	n.log.Infof("Started wpa network on %v (supplicant state %v)", n.ifname, state)

	return nil
}

func (n *WpaNetwork) Stop() error {
	if n.addrDone != nil {
		close(n.addrDone)
		n.addrDone = nil
	}

	if n.signals != nil {
		n.signals.Cancel()
		n.signals = nil
	}

	n.close()

	n.mu.Lock()
	added := n.added
	n.added = nil
	n.mu.Unlock()

	if added != nil && n.iface != nil {
		err := n.iface.RemoveNetwork(added)
		if err != nil {
			n.log.Warnf("Could not remove network %v: %v", added, err)
		}
	}

	err := n.wpa.Stop()
	if err != nil {
		return errors.Errorf("could not stop wpa: %v", err)
	}

	return nil
}

func (n *WpaNetwork) RequestScan(gen Generation) error {
	n.beginRequest(gen)

	err := n.iface.Scan()
	if err != nil {
		return errors.Errorf("unable to scan: %v", err)
	}

	return nil
}

// RequestConnect replaces the network added by the previous connect request.
// Networks configured outside of wifid stay in place.
func (n *WpaNetwork) RequestConnect(gen Generation, ssid string, passphrase string) error {
	previous := n.beginConnect(gen, ssid)

	if previous != nil {
		err := n.iface.RemoveNetwork(previous)
		if err != nil {
			n.log.Warnf("Could not remove network %v: %v", previous, err)
		}
	}

	net, err := n.iface.AddNetwork(ssid, passphrase)
	if err != nil {
		return errors.Errorf("unable to add network %v: %v", ssid, err)
	}

	n.mu.Lock()
	n.added = net
	n.mu.Unlock()

	err = n.iface.SelectNetwork(net)
	if err != nil {
		return errors.Errorf("unable to select network %v: %v", ssid, err)
	}

	return nil
}

func (n *WpaNetwork) RequestDisconnect(gen Generation) error {
	n.beginRequest(gen)

	err := n.iface.Disconnect()
	if err != nil {
		return errors.Errorf("unable to disconnect: %v", err)
	}

	return nil
}

// beginRequest stamps later events with gen
func (n *WpaNetwork) beginRequest(gen Generation) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.generation = gen
	n.expectDisconnect = false
}

// beginConnect stamps later events with gen and returns the network of the
// previous connect request. Selecting another network ends the current
// association, so the disconnect that follows is not reported.
func (n *WpaNetwork) beginConnect(gen Generation, ssid string) *wpa.Network {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.generation = gen
	n.ssid = ssid
	n.expectDisconnect = associatedStates[n.state]

	previous := n.added
	n.added = nil

	return previous
}

// handleSignal runs on the bus connection's goroutine, so anything that needs
// to talk to wpa_supplicant is deferred to the dispatch queue.
func (n *WpaNetwork) handleSignal(signal interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()

	gen := n.generation

	switch s := signal.(type) {
	case *wpa.ScanDoneSignal:
		n.queue.enqueue(func() {
			n.deliver(n.collectScan(gen, s.Success))
		})

	case *wpa.PropertiesChangedSignal:
		if s.HasDisconnectReason {
			n.reason = s.DisconnectReason
		}

		if !s.HasState {
			return
		}

		previous := n.state
		n.state = s.State

		if s.State != "disconnected" || previous == "disconnected" {
			return
		}

		if n.expectDisconnect {
			n.expectDisconnect = false
			n.log.Debugf("Ignoring disconnect from replaced network")
			return
		}

		reason := n.reason
		if reason < 0 {
			// locally generated
			reason = -reason
		}

		n.publish(&StationDisconnected{
			Generation: gen,
			Ssid:       n.ssid,
			Reason:     reason,
		})
	}
}

func (n *WpaNetwork) collectScan(gen Generation, success bool) *ScanComplete {
	if !success {
		return &ScanComplete{Generation: gen, Status: 1}
	}

	bsss, err := n.iface.BSSs()
	if err != nil {
		n.log.Errorf("Could not list scan results: %v", err)
		return &ScanComplete{Generation: gen, Status: 1}
	}

	ev := &ScanComplete{Generation: gen}

	for _, bss := range bsss {
		b, err := bss.GetAll()
		if err != nil {
			n.log.Debugf("Skipping %v: %v", bss, err)
			continue
		}

		ev.Observations = append(ev.Observations, Observation{
			Ssid:    b.Ssid,
			Rssi:    b.Signal,
			Channel: b.Channel(),
		})
	}

	return ev
}

func (n *WpaNetwork) watchAddresses(updates <-chan netlink.AddrUpdate) {
	for update := range updates {
		if update.LinkIndex != n.linkIndex || update.LinkAddress.IP.To4() == nil {
			continue
		}

		n.mu.Lock()
		gen := n.generation
		n.mu.Unlock()

		if update.NewAddr {
			n.publish(&GotAddress{Generation: gen, Ip: update.LinkAddress.IP.String()})
		} else {
			n.publish(&LostAddress{Generation: gen})
		}
	}
}
