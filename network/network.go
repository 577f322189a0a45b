package network

// Generation identifies one connection attempt. Every request carries the
// generation of the attempt that issued it and every event reports the
// generation of the request that caused it.
type Generation uint64

// Observation is a single access point reported by a scan
type Observation struct {
	Ssid    string
	Rssi    int
	Channel int
}

// Event is one of *ScanComplete, *StationDisconnected, *GotAddress or *LostAddress
type Event interface {
	EventGeneration() Generation
}

// ScanComplete reports the end of a scan. Status is zero on success.
type ScanComplete struct {
	Generation   Generation
	Status       int
	Observations []Observation
}

type StationDisconnected struct {
	Generation Generation
	Ssid       string
	Reason     int
}

type GotAddress struct {
	Generation Generation
	Ip         string
}

type LostAddress struct {
	Generation Generation
}

func (e *ScanComplete) EventGeneration() Generation        { return e.Generation }
func (e *StationDisconnected) EventGeneration() Generation { return e.Generation }
func (e *GotAddress) EventGeneration() Generation          { return e.Generation }
func (e *LostAddress) EventGeneration() Generation         { return e.Generation }

// Handler receives events. Implementations of Network call handlers one
// event at a time, in the order the events occurred.
type Handler func(Event)

// Network is the station side of the OS networking stack. All requests are
// asynchronous; their results arrive as events.
type Network interface {
	Start() error
	Stop() error
	RequestScan(gen Generation) error
	RequestConnect(gen Generation, ssid string, passphrase string) error
	RequestDisconnect(gen Generation) error
	Subscribe(handler Handler) *Client
}
