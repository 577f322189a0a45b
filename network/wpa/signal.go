package wpa

import (
	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
)

// ScanDoneSignal is emitted by an interface when a scan finished
type ScanDoneSignal struct {
	Success bool
}

// PropertiesChangedSignal carries the interface properties that changed.
// Only the properties the station cares about are decoded.
type PropertiesChangedSignal struct {
	State               string
	HasState            bool
	DisconnectReason    int
	HasDisconnectReason bool
}

// SignalHandler is called on the bus connection's goroutine. It must not
// block and must not call into D-Bus.
type SignalHandler func(signal interface{})

type SignalClient struct {
	id      uint32
	path    dbus.ObjectPath
	handler SignalHandler
	cancel  func()
}

func (c *SignalClient) Cancel() {
	c.cancel()
}

func (c *SignalClient) deliver(iface, name string, signal *dbus.Signal) {
	if iface != interfaceIface {
		return
	}

	decoded, err := decodeSignal(name, signal.Body)
	if err != nil || decoded == nil {
		return
	}

	c.handler(decoded)
}

func decodeSignal(name string, body []interface{}) (interface{}, error) {
	switch name {
	case "ScanDone":
		if len(body) < 1 {
			return nil, errors.Errorf("empty ScanDone signal")
		}

		success, ok := body[0].(bool)
		if !ok {
			return nil, errors.Errorf("could not convert ScanDone body: %v", body[0])
		}

		return &ScanDoneSignal{Success: success}, nil
	case "PropertiesChanged":
		if len(body) < 1 {
			return nil, errors.Errorf("empty PropertiesChanged signal")
		}

		props, ok := body[0].(map[string]dbus.Variant)
		if !ok {
			return nil, errors.Errorf("could not convert PropertiesChanged body: %v", body[0])
		}

		return decodeProperties(props), nil
	default:
		return nil, nil
	}
}

func decodeProperties(props map[string]dbus.Variant) *PropertiesChangedSignal {
	changed := &PropertiesChangedSignal{}

	if val, ok := props["State"]; ok {
		if state, ok := val.Value().(string); ok {
			changed.State = state
			changed.HasState = true
		}
	}

	if val, ok := props["DisconnectReason"]; ok {
		if reason, ok := val.Value().(int32); ok {
			changed.DisconnectReason = int(reason)
			changed.HasDisconnectReason = true
		}
	}

	return changed
}
