package wpa

import (
	"sync"

	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
)

const (
	busName         = "fi.w1.wpa_supplicant1"
	objectPath      = "/fi/w1/wpa_supplicant1"
	interfaceIface  = busName + ".Interface"
	bssIface        = busName + ".BSS"
	propertiesIface = "org.freedesktop.DBus.Properties"
)

// Wpa is a connection to wpa_supplicant on the system bus
type Wpa struct {
	conn       *dbus.Conn
	obj        dbus.BusObject
	mu         sync.Mutex
	clients    map[uint32]*SignalClient
	nextClient uint32
}

func New() *Wpa {
	return &Wpa{
		clients: make(map[uint32]*SignalClient),
	}
}

func (w *Wpa) Start() error {
	conn, err := dbus.SystemBusPrivate(dbus.WithSignalHandler(wpaSignalHandler{w}))
	if err != nil {
		return errors.Errorf("could not connect to system bus: %v", err)
	}

	err = conn.Auth(nil)
	if err != nil {
		_ = conn.Close()
		return errors.Errorf("could not authenticate: %v", err)
	}

	err = conn.Hello()
	if err != nil {
		_ = conn.Close()
		return errors.Errorf("could not greet bus: %v", err)
	}

	w.conn = conn
	w.obj = conn.Object(busName, objectPath)

	return nil
}

func (w *Wpa) Stop() error {
	if w.conn == nil {
		return nil
	}

	err := w.conn.Close()
	if err != nil {
		return errors.Errorf("could not close system bus connection: %v", err)
	}

	w.conn = nil

	return nil
}

// GetInterface resolves the wpa_supplicant object of a network interface, e.g. wlan0
func (w *Wpa) GetInterface(ifname string) (*Interface, error) {
	call := w.obj.Call(busName+".GetInterface", 0, ifname)
	if call.Err != nil {
		return nil, errors.Errorf("could not get interface: %v", call.Err)
	}

	var path dbus.ObjectPath
	err := call.Store(&path)
	if err != nil {
		return nil, errors.Errorf("could not store value: %v", err)
	}

	return &Interface{
		wpa: w,
		obj: w.conn.Object(busName, path),
	}, nil
}

func (w *Wpa) addClient(client *SignalClient) {
	w.mu.Lock()
	client.id = w.nextClient
	w.nextClient++
	w.clients[client.id] = client
	w.mu.Unlock()
}

func (w *Wpa) deleteClient(id uint32) {
	w.mu.Lock()
	delete(w.clients, id)
	w.mu.Unlock()
}

func (w *Wpa) deliverSignal(iface, name string, signal *dbus.Signal) {
	w.mu.Lock()
	var clients []*SignalClient
	for _, client := range w.clients {
		if client.path == signal.Path {
			clients = append(clients, client)
		}
	}
	w.mu.Unlock()

	for _, client := range clients {
		client.deliver(iface, name, signal)
	}
}
