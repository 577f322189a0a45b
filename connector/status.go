package connector

type Status int

const (
	// Idle means no attempt is in progress and the station is not connected
	Idle Status = iota
	// Scanning means a scan was requested and its result is awaited
	Scanning
	// Connecting means a candidate is being attempted
	Connecting
	// Connected means the station holds an address on a candidate
	Connected
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Scanning:
		return "Scanning"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	default:
		return "Unknown"
	}
}

// machine states
const (
	stateIdle       = "idle"
	stateScanning   = "scanning"
	stateConnecting = "connecting"
	stateConnected  = "connected"
)

// machine events
const (
	eventScan      = "scan"
	eventConnect   = "connect"
	eventExhausted = "exhausted"
	eventAddress   = "address"
	eventLost      = "lost"
)

var statusOfState = map[string]Status{
	stateIdle:       Idle,
	stateScanning:   Scanning,
	stateConnecting: Connecting,
	stateConnected:  Connected,
}
