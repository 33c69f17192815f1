package bluefruit

import (
	"errors"
	"sync"
)

var (
	errLoopbackClosed   = errors.New("bluefruit: loopback host closed")
	errNotAdvertisingLB = errors.New("bluefruit: peripheral is not advertising")
	errUnknownUUID      = errors.New("bluefruit: no characteristic with this UUID")
	errBacklogFull      = errors.New("bluefruit: notification backlog full")
)

// Notification is a value a peripheral sent to a connected central.
type Notification struct {
	Conn   Connection
	Handle uint16
	UUID   UUID
	Value  []byte
}

// Loopback is an in-process Host. Besides serving the peripheral side, it
// plays the central: it can connect, write and read characteristics, and
// collects the notifications the peripheral sends.
type Loopback struct {
	mu            sync.Mutex
	events        EventHandler
	closed        bool
	name          string
	advertising   bool
	advOptions    AdvertisementOptions
	handles       map[UUID]uint16
	uuids         map[uint16]UUID
	nextConn      Connection
	connections   map[Connection]MAC
	notifications chan Notification
}

// NewLoopback returns a loopback host that buffers up to backlog
// notifications.
func NewLoopback(backlog int) *Loopback {
	return &Loopback{
		handles:       make(map[UUID]uint16),
		uuids:         make(map[uint16]UUID),
		nextConn:      1,
		connections:   make(map[Connection]MAC),
		notifications: make(chan Notification, backlog),
	}
}

func (l *Loopback) Enable(events EventHandler) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errLoopbackClosed
	}
	l.events = events
	return nil
}

func (l *Loopback) SetLocalName(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.name = name
	return nil
}

func (l *Loopback) AddService(s *Service) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errLoopbackClosed
	}
	for _, cfg := range s.Characteristics {
		handle := cfg.Handle.Handle()
		l.handles[cfg.UUID] = handle
		l.uuids[handle] = cfg.UUID
	}
	return nil
}

func (l *Loopback) StartAdvertising(options AdvertisementOptions) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errLoopbackClosed
	}
	l.advertising = true
	l.advOptions = options
	return nil
}

func (l *Loopback) StopAdvertising() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.advertising = false
	return nil
}

func (l *Loopback) Notify(conn Connection, handle uint16, value []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errLoopbackClosed
	}
	if _, ok := l.connections[conn]; !ok {
		return errNotConnected
	}
	n := Notification{
		Conn:   conn,
		Handle: handle,
		UUID:   l.uuids[handle],
		Value:  append([]byte(nil), value...),
	}
	select {
	case l.notifications <- n:
		return nil
	default:
		return errBacklogFull
	}
}

func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.advertising = false
	close(l.notifications)
	return nil
}

// LocalName returns the name last set through SetLocalName.
func (l *Loopback) LocalName() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.name
}

// Advertising returns the current advertisement options and whether the
// peripheral is advertising.
func (l *Loopback) Advertising() (AdvertisementOptions, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.advOptions, l.advertising
}

// Notifications returns the channel notifications are delivered on. It is
// closed by Close.
func (l *Loopback) Notifications() <-chan Notification {
	return l.notifications
}

// Connect simulates a central connecting. Like a real peripheral, the
// loopback stops advertising once connected.
func (l *Loopback) Connect(addr MAC) (Connection, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ConnectionInvalid, errLoopbackClosed
	}
	if !l.advertising {
		l.mu.Unlock()
		return ConnectionInvalid, errNotAdvertisingLB
	}
	conn := l.nextConn
	l.nextConn++
	l.connections[conn] = addr
	l.advertising = false
	events := l.events
	l.mu.Unlock()

	if events != nil {
		events.HandleConnect(conn, addr)
	}
	return conn, nil
}

// Disconnect simulates the central dropping the connection.
func (l *Loopback) Disconnect(conn Connection) error {
	l.mu.Lock()
	if _, ok := l.connections[conn]; !ok {
		l.mu.Unlock()
		return errNotConnected
	}
	delete(l.connections, conn)
	events := l.events
	l.mu.Unlock()

	if events != nil {
		events.HandleDisconnect(conn)
	}
	return nil
}

// Write simulates the central writing value to the characteristic with the
// given UUID.
func (l *Loopback) Write(conn Connection, uuid UUID, value []byte) error {
	handle, events, err := l.lookup(conn, uuid)
	if err != nil {
		return err
	}
	return events.HandleWrite(conn, handle, 0, append([]byte(nil), value...))
}

// Read simulates the central reading the characteristic with the given
// UUID.
func (l *Loopback) Read(conn Connection, uuid UUID) ([]byte, error) {
	handle, events, err := l.lookup(conn, uuid)
	if err != nil {
		return nil, err
	}
	return events.HandleRead(conn, handle)
}

func (l *Loopback) lookup(conn Connection, uuid UUID) (uint16, EventHandler, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, nil, errLoopbackClosed
	}
	if _, ok := l.connections[conn]; !ok {
		return 0, nil, errNotConnected
	}
	if l.events == nil {
		return 0, nil, errNotEnabled
	}
	handle, ok := l.handles[uuid]
	if !ok {
		return 0, nil, errUnknownUUID
	}
	return handle, l.events, nil
}
