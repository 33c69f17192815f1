// Some documentation for the BlueZ D-Bus interface:
// https://git.kernel.org/pub/scm/bluetooth/bluez.git/tree/doc

package bluez

import (
	"errors"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/muka/go-bluetooth/api"
	"github.com/muka/go-bluetooth/api/service"
	"github.com/muka/go-bluetooth/bluez/profile/adapter"
	"github.com/muka/go-bluetooth/bluez/profile/advertising"
	"github.com/muka/go-bluetooth/bluez/profile/device"
	"github.com/sirupsen/logrus"

	"tinygo.org/x/bluefruit"
)

const (
	deviceInterface         = "org.bluez.Device1"
	characteristicInterface = "org.bluez.GattCharacteristic1"
	propertiesChanged       = "org.freedesktop.DBus.Properties.PropertiesChanged"
)

var (
	errNotEnabled    = errors.New("bluez: host not enabled")
	errUnknownHandle = errors.New("bluez: unknown characteristic handle")
)

// characteristic is an exported GATT characteristic and the bus connection
// of the application that owns it.
type characteristic struct {
	char *service.Char
	conn *dbus.Conn
}

// Host is a bluefruit.Host backed by bluetoothd.
type Host struct {
	id  string
	log logrus.FieldLogger

	mu        sync.Mutex
	adapter   *adapter.Adapter1
	bus       *dbus.Conn
	signals   chan *dbus.Signal
	events    bluefruit.EventHandler
	apps      []*service.App
	chars     map[uint16]characteristic
	devices   map[dbus.ObjectPath]bluefruit.Connection
	current   bluefruit.Connection
	nextConn  bluefruit.Connection
	cancelAdv func()
}

// New returns a host on the BlueZ adapter with the given id, for example
// hci0. An empty id selects the default adapter.
func New(id string, log logrus.FieldLogger) *Host {
	return &Host{
		id:       id,
		log:      log.WithField("component", "bluez"),
		chars:    make(map[uint16]characteristic),
		devices:  make(map[dbus.ObjectPath]bluefruit.Connection),
		current:  bluefruit.ConnectionInvalid,
		nextConn: 1,
	}
}

// Enable looks up the adapter and starts watching for centrals connecting
// and disconnecting.
func (h *Host) Enable(events bluefruit.EventHandler) (err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.id == "" {
		h.adapter, err = api.GetDefaultAdapter()
		if err != nil {
			return err
		}
		h.id, err = h.adapter.GetAdapterID()
		if err != nil {
			return err
		}
	} else {
		h.adapter, err = api.GetAdapter(h.id)
		if err != nil {
			return err
		}
	}

	h.bus, err = dbus.SystemBus()
	if err != nil {
		return err
	}
	rule := "type='signal',interface='org.freedesktop.DBus.Properties',member='PropertiesChanged',arg0='" + deviceInterface + "'"
	if err := h.bus.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, rule).Err; err != nil {
		return err
	}
	h.signals = make(chan *dbus.Signal, 16)
	h.bus.Signal(h.signals)
	h.events = events
	go h.watch(h.signals)

	h.log.WithField("adapter", h.id).Info("bluez enabled")
	return nil
}

// SetLocalName sets the adapter alias, which BlueZ uses as the GAP device
// name.
func (h *Host) SetLocalName(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.adapter == nil {
		return errNotEnabled
	}
	return h.adapter.SetAlias(name)
}

// AddService exports s as a GATT application of its own.
func (h *Host) AddService(s *bluefruit.Service) error {
	h.mu.Lock()
	id := h.id
	h.mu.Unlock()
	if id == "" {
		return errNotEnabled
	}

	app, err := service.NewApp(service.AppOptions{
		AdapterID: id,
	})
	if err != nil {
		return err
	}

	bluezService, err := app.NewService(s.UUID.String())
	if err != nil {
		return err
	}

	added := make(map[uint16]*service.Char, len(s.Characteristics))
	for _, cfg := range s.Characteristics {
		char, err := bluezService.NewChar(cfg.UUID.String())
		if err != nil {
			return err
		}
		handle := cfg.Handle.Handle()
		char.Properties.Flags = Flags(cfg.Flags)
		char.Properties.Value = cfg.Value
		char.OnRead(func(c *service.Char, options map[string]interface{}) ([]byte, error) {
			return h.read(handle)
		})
		char.OnWrite(func(c *service.Char, value []byte) ([]byte, error) {
			return value, h.write(handle, value)
		})
		if err := bluezService.AddChar(char); err != nil {
			return err
		}
		added[handle] = char
	}

	if err := app.AddService(bluezService); err != nil {
		return err
	}
	if err := app.Run(); err != nil {
		return err
	}

	h.mu.Lock()
	h.apps = append(h.apps, app)
	for handle, char := range added {
		h.chars[handle] = characteristic{char: char, conn: app.DBusConn()}
	}
	h.mu.Unlock()
	return nil
}

// StartAdvertising registers a connectable advertisement.
//
// On Linux with BlueZ, it is not possible to set the advertisement interval.
func (h *Host) StartAdvertising(options bluefruit.AdvertisementOptions) error {
	props := &advertising.LEAdvertisement1Properties{
		Type:      advertising.AdvertisementTypePeripheral,
		Timeout:   1<<16 - 1,
		LocalName: options.LocalName,
	}
	for _, uuid := range options.ServiceUUIDs {
		props.ServiceUUIDs = append(props.ServiceUUIDs, uuid.String())
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.id == "" {
		return errNotEnabled
	}
	if h.cancelAdv != nil {
		h.cancelAdv()
		h.cancelAdv = nil
	}
	cancel, err := api.ExposeAdvertisement(h.id, props, uint32(props.Timeout))
	if err != nil {
		return err
	}
	h.cancelAdv = cancel
	return nil
}

// StopAdvertising unregisters the advertisement.
func (h *Host) StopAdvertising() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelAdv != nil {
		h.cancelAdv()
		h.cancelAdv = nil
	}
	return nil
}

// Notify updates the characteristic value and emits the PropertiesChanged
// signal bluetoothd turns into a notification to subscribed centrals.
func (h *Host) Notify(conn bluefruit.Connection, handle uint16, value []byte) error {
	h.mu.Lock()
	c, ok := h.chars[handle]
	h.mu.Unlock()
	if !ok {
		return errUnknownHandle
	}

	value = append([]byte(nil), value...)
	c.char.Properties.Value = value
	return c.conn.Emit(c.char.Path(), propertiesChanged, characteristicInterface,
		map[string]dbus.Variant{"Value": dbus.MakeVariant(value)}, []string{})
}

// Close unregisters the advertisement and the GATT applications.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelAdv != nil {
		h.cancelAdv()
		h.cancelAdv = nil
	}
	for _, app := range h.apps {
		app.Close()
	}
	h.apps = nil
	if h.bus != nil && h.signals != nil {
		h.bus.RemoveSignal(h.signals)
		close(h.signals)
		h.signals = nil
	}
	return nil
}

func (h *Host) read(handle uint16) ([]byte, error) {
	h.mu.Lock()
	events, conn := h.events, h.current
	h.mu.Unlock()
	if events == nil {
		return nil, errNotEnabled
	}
	return events.HandleRead(conn, handle)
}

func (h *Host) write(handle uint16, value []byte) error {
	h.mu.Lock()
	events, conn := h.events, h.current
	h.mu.Unlock()
	if events == nil {
		return errNotEnabled
	}
	return events.HandleWrite(conn, handle, 0, value)
}

// watch turns Device1 "Connected" property changes on this adapter into
// connect and disconnect events.
func (h *Host) watch(signals <-chan *dbus.Signal) {
	prefix := "/org/bluez/" + h.id + "/"
	for sig := range signals {
		if sig.Name != propertiesChanged || len(sig.Body) < 2 {
			continue
		}
		if iface, ok := sig.Body[0].(string); !ok || iface != deviceInterface {
			continue
		}
		if !strings.HasPrefix(string(sig.Path), prefix) {
			continue
		}
		changed, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok {
			continue
		}
		v, ok := changed["Connected"]
		if !ok {
			continue
		}
		connected, ok := v.Value().(bool)
		if !ok {
			continue
		}
		if connected {
			h.connected(sig.Path)
		} else {
			h.disconnected(sig.Path)
		}
	}
}

func (h *Host) connected(path dbus.ObjectPath) {
	var addr bluefruit.MAC
	dev, err := device.NewDevice1(path)
	if err == nil && dev != nil {
		if addr, err = bluefruit.ParseMAC(dev.Properties.Address); err != nil {
			h.log.WithError(err).WithField("path", path).Warn("central address")
		}
	}

	h.mu.Lock()
	conn := h.nextConn
	h.nextConn++
	if h.nextConn == bluefruit.ConnectionInvalid {
		h.nextConn = 1
	}
	h.devices[path] = conn
	h.current = conn
	events := h.events
	h.mu.Unlock()

	if events != nil {
		events.HandleConnect(conn, addr)
	}
}

func (h *Host) disconnected(path dbus.ObjectPath) {
	h.mu.Lock()
	conn, ok := h.devices[path]
	delete(h.devices, path)
	if ok && h.current == conn {
		h.current = bluefruit.ConnectionInvalid
	}
	events := h.events
	h.mu.Unlock()

	if ok && events != nil {
		events.HandleDisconnect(conn)
	}
}
