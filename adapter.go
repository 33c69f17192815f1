package bluefruit

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Host is the BLE host stack an Adapter drives: it owns the radio (or the
// simulation of one), exposes the registered services and delivers central
// activity back through the EventHandler passed to Enable.
type Host interface {
	Enable(events EventHandler) error
	SetLocalName(name string) error
	AddService(s *Service) error
	StartAdvertising(options AdvertisementOptions) error
	StopAdvertising() error
	Notify(conn Connection, handle uint16, value []byte) error
	Close() error
}

// EventHandler receives connection and attribute access events from a Host.
// The methods run in the host's event context.
type EventHandler interface {
	HandleConnect(conn Connection, addr MAC)
	HandleDisconnect(conn Connection)
	HandleWrite(conn Connection, handle uint16, offset int, value []byte) error
	HandleRead(conn Connection, handle uint16) ([]byte, error)
}

// Adapter is the GATT access layer of a peripheral. It assigns attribute
// handles, routes central writes and reads to the registered
// characteristics and tracks the current connection.
type Adapter struct {
	host Host
	log  logrus.FieldLogger

	mu                   sync.Mutex
	enabled              bool
	nextHandle           uint16
	services             []*Service
	characteristics      map[uint16]*Characteristic
	conn                 Connection
	peer                 MAC
	defaultAdvertisement *Advertisement

	connectHandler func(conn Connection, addr MAC, connected bool)
}

// NewAdapter returns an adapter on top of the given host. Call Enable before
// registering services.
func NewAdapter(host Host, log logrus.FieldLogger) *Adapter {
	return &Adapter{
		host:            host,
		log:             log.WithField("component", "adapter"),
		nextHandle:      1,
		characteristics: make(map[uint16]*Characteristic),
		conn:            ConnectionInvalid,
		connectHandler:  func(Connection, MAC, bool) {},
	}
}

// Enable configures the BLE stack. It must be called before any
// Bluetooth-related calls (unless otherwise indicated).
func (a *Adapter) Enable() error {
	if a.isEnabled() {
		return nil
	}
	if err := a.host.Enable(a); err != nil {
		return err
	}

	a.mu.Lock()
	a.enabled = true
	a.mu.Unlock()
	a.log.Debug("host enabled")
	return nil
}

// Close releases the host.
func (a *Adapter) Close() error {
	a.mu.Lock()
	a.enabled = false
	a.mu.Unlock()
	return a.host.Close()
}

// SetLocalName sets the GAP device name.
func (a *Adapter) SetLocalName(name string) error {
	if !a.isEnabled() {
		return errNotEnabled
	}
	return a.host.SetLocalName(name)
}

// SetConnectHandler sets a handler function to be called whenever a central
// connects or disconnects.
func (a *Adapter) SetConnectHandler(c func(conn Connection, addr MAC, connected bool)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connectHandler = c
}

// Connection returns the handle of the connected central, or
// ConnectionInvalid.
func (a *Adapter) Connection() Connection {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn
}

// Services returns the registered services in registration order.
func (a *Adapter) Services() []*Service {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*Service(nil), a.services...)
}

func (a *Adapter) isEnabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// AddService creates a new service with the characteristics listed in the
// Service struct. Handles are assigned in declaration order: the service,
// then for each characteristic its declaration, its value and, for
// notifying characteristics, the client configuration descriptor.
func (a *Adapter) AddService(service *Service) error {
	a.mu.Lock()
	if !a.enabled {
		a.mu.Unlock()
		return errNotEnabled
	}

	handle := a.nextHandle
	service.handle = handle
	handle++
	added := make([]*Characteristic, 0, len(service.Characteristics))
	for i := range service.Characteristics {
		cfg := &service.Characteristics[i]
		if cfg.Handle == nil {
			cfg.Handle = &Characteristic{}
		}
		// handle is the characteristic declaration, handle+1 its value.
		char := cfg.Handle
		char.adapter = a
		char.handle = handle + 1
		char.uuid = cfg.UUID
		char.permissions = cfg.Flags
		char.writeEvent = cfg.WriteEvent
		char.readEvent = cfg.ReadEvent
		char.setValue(cfg.Value)
		handle += 2
		if cfg.Flags.Notify() || cfg.Flags.Indicate() {
			handle++
		}
		added = append(added, char)
	}
	service.endHandle = handle - 1
	a.nextHandle = handle
	a.mu.Unlock()

	if err := a.host.AddService(service); err != nil {
		return err
	}

	a.mu.Lock()
	for _, char := range added {
		a.characteristics[char.handle] = char
	}
	a.services = append(a.services, service)
	a.mu.Unlock()

	a.log.WithFields(logrus.Fields{
		"uuid":   service.UUID.String(),
		"start":  service.handle,
		"end":    service.endHandle,
		"nchars": len(added),
	}).Info("service added")
	return nil
}

func (a *Adapter) characteristic(handle uint16) (*Characteristic, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	char, ok := a.characteristics[handle]
	return char, ok
}

func (a *Adapter) notify(conn Connection, handle uint16, value []byte) error {
	if !a.isEnabled() {
		return errNotEnabled
	}
	if conn == ConnectionInvalid {
		return errNotConnected
	}
	return a.host.Notify(conn, handle, value)
}

// HandleConnect records the new connection and calls the connect handler.
func (a *Adapter) HandleConnect(conn Connection, addr MAC) {
	a.mu.Lock()
	a.conn = conn
	a.peer = addr
	handler := a.connectHandler
	a.mu.Unlock()

	a.log.WithFields(logrus.Fields{"conn": conn, "addr": addr.String()}).Info("connected")
	handler(conn, addr, true)
}

// HandleDisconnect clears the connection, calls the connect handler and
// resumes advertising if it was active.
func (a *Adapter) HandleDisconnect(conn Connection) {
	a.mu.Lock()
	if a.conn != conn {
		a.mu.Unlock()
		a.log.WithField("conn", conn).Warn("disconnect for unknown connection")
		return
	}
	addr := a.peer
	a.conn = ConnectionInvalid
	a.peer = MAC{}
	handler := a.connectHandler
	adv := a.defaultAdvertisement
	a.mu.Unlock()

	a.log.WithFields(logrus.Fields{"conn": conn, "addr": addr.String()}).Info("disconnected")
	handler(conn, addr, false)

	if adv != nil {
		if err := adv.resume(); err != nil {
			a.log.WithError(err).Error("resume advertising")
		}
	}
}

// HandleWrite stores a value written by a central and passes it to the
// characteristic's WriteEvent.
func (a *Adapter) HandleWrite(conn Connection, handle uint16, offset int, value []byte) error {
	char, ok := a.characteristic(handle)
	if !ok {
		return errUnknownHandle
	}
	if !(char.permissions.Write() || char.permissions.WriteWithoutResponse()) {
		return errNoWrite
	}
	char.setValue(value)
	if char.writeEvent != nil {
		char.writeEvent(conn, offset, value)
	}
	return nil
}

// HandleRead returns the value of a readable characteristic.
func (a *Adapter) HandleRead(conn Connection, handle uint16) ([]byte, error) {
	char, ok := a.characteristic(handle)
	if !ok {
		return nil, errUnknownHandle
	}
	if !char.permissions.Read() {
		return nil, errNoRead
	}
	if char.readEvent != nil {
		return char.readEvent(conn), nil
	}
	return char.Value(), nil
}
