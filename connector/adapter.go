package connector

import "github.com/the-lightning-land/wifid/network"

// receiver is the event side of the connector
type receiver interface {
	scanComplete(gen network.Generation, status int, observations []network.Observation)
	stationDisconnected(gen network.Generation, ssid string, reason int)
	gotAddress(gen network.Generation, ip string)
	lostAddress(gen network.Generation)
}

// eventAdapter owns the subscription to the network and forwards its events
type eventAdapter struct {
	client   *network.Client
	receiver receiver
}

func newEventAdapter(net network.Network, r receiver) *eventAdapter {
	a := &eventAdapter{
		receiver: r,
	}

	a.client = net.Subscribe(a.handle)

	return a
}

func (a *eventAdapter) handle(ev network.Event) {
	switch e := ev.(type) {
	case *network.ScanComplete:
		a.receiver.scanComplete(e.Generation, e.Status, e.Observations)
	case *network.StationDisconnected:
		a.receiver.stationDisconnected(e.Generation, e.Ssid, e.Reason)
	case *network.GotAddress:
		a.receiver.gotAddress(e.Generation, e.Ip)
	case *network.LostAddress:
		a.receiver.lostAddress(e.Generation)
	}
}

func (a *eventAdapter) close() {
	a.client.Cancel()
}
