package wpa

import (
	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
)

type Interface struct {
	wpa *Wpa
	obj dbus.BusObject
}

func (i *Interface) Scan() error {
	call := i.obj.Call(interfaceIface+".Scan", 0, map[string]interface{}{
		"Type": "active",
	})
	if call.Err != nil {
		return errors.Errorf("could not scan: %v", call.Err)
	}

	return nil
}

func (i *Interface) Disconnect() error {
	call := i.obj.Call(interfaceIface+".Disconnect", 0)
	if call.Err != nil {
		return errors.Errorf("could not disconnect: %v", call.Err)
	}

	return nil
}

// State returns the supplicant state, e.g. "completed" or "disconnected"
func (i *Interface) State() (string, error) {
	v, err := i.obj.GetProperty(interfaceIface + ".State")
	if err != nil {
		return "", errors.Errorf("could not get state: %v", err)
	}

	state, ok := v.Value().(string)
	if !ok {
		return "", errors.Errorf("could not convert state: %v", v)
	}

	return state, nil
}

var signalMembers = []string{"ScanDone", "PropertiesChanged"}

// matcher is the part of the bus object that manages match rules
type matcher interface {
	AddMatchSignal(iface, member string, options ...dbus.MatchOption) *dbus.Call
	RemoveMatchSignal(iface, member string, options ...dbus.MatchOption) *dbus.Call
}

// addMatches adds a match rule per member and removes the ones already added
// when one fails
func addMatches(bus matcher, path dbus.ObjectPath) error {
	for i, member := range signalMembers {
		call := bus.AddMatchSignal(interfaceIface, member, dbus.WithMatchObjectPath(path))
		if call.Err != nil {
			removeMatches(bus, path, signalMembers[:i])
			return errors.Errorf("could not add signal %v: %v", member, call.Err)
		}
	}

	return nil
}

func removeMatches(bus matcher, path dbus.ObjectPath, members []string) {
	for _, member := range members {
		_ = bus.RemoveMatchSignal(interfaceIface, member, dbus.WithMatchObjectPath(path))
	}
}

// Subscribe registers handler for the ScanDone and PropertiesChanged signals
// of this interface
func (i *Interface) Subscribe(handler SignalHandler) (*SignalClient, error) {
	bus := i.wpa.conn.BusObject()
	path := i.obj.Path()

	client := &SignalClient{
		path:    path,
		handler: handler,
	}

	err := addMatches(bus, path)
	if err != nil {
		return nil, err
	}

	client.cancel = func() {
		i.wpa.deleteClient(client.id)
		removeMatches(bus, path, signalMembers)
	}

	i.wpa.addClient(client)

	return client, nil
}

func (i *Interface) BSSs() ([]*BSS, error) {
	v, err := i.obj.GetProperty(interfaceIface + ".BSSs")
	if err != nil {
		return nil, errors.Errorf("could not get bsss: %v", err)
	}

	objectPaths, ok := v.Value().([]dbus.ObjectPath)
	if !ok {
		return nil, errors.Errorf("could not convert result: %v", v)
	}

	var bsss []*BSS

	for _, objectPath := range objectPaths {
		bsss = append(bsss, &BSS{
			obj: i.wpa.conn.Object(busName, objectPath),
		})
	}

	return bsss, nil
}

func (i *Interface) AddNetwork(ssid string, psk string) (*Network, error) {
	args := map[string]interface{}{}

	if psk != "" {
		args["ssid"] = ssid
		args["psk"] = psk
	} else {
		args["ssid"] = ssid
		args["key_mgmt"] = "NONE"
	}

	call := i.obj.Call(interfaceIface+".AddNetwork", 0, args)
	if call.Err != nil {
		return nil, errors.Errorf("could not call: %v", call.Err)
	}

	var objPath dbus.ObjectPath
	err := call.Store(&objPath)
	if err != nil {
		return nil, errors.Errorf("could not store value: %v", err)
	}

	netObj := i.wpa.conn.Object(busName, objPath)

	return &Network{
		wpa: i.wpa,
		obj: netObj,
	}, nil
}

func (i *Interface) SelectNetwork(net *Network) error {
	call := i.obj.Call(interfaceIface+".SelectNetwork", 0, net.obj.Path())
	if call.Err != nil {
		return errors.Errorf("could not select network: %v", call.Err)
	}

	return nil
}

func (i *Interface) RemoveNetwork(net *Network) error {
	call := i.obj.Call(interfaceIface+".RemoveNetwork", 0, net.obj.Path())
	if call.Err != nil {
		return errors.Errorf("could not remove network: %v", call.Err)
	}

	return nil
}
