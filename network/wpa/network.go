package wpa

import "github.com/godbus/dbus/v5"

// Network is a network block configured on an interface
type Network struct {
	wpa *Wpa
	obj dbus.BusObject
}

func (n *Network) String() string {
	return string(n.obj.Path())
}
