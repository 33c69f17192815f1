package bluefruit

import "sync"

// Service is a GATT service to be used in AddService.
type Service struct {
	handle    uint16
	endHandle uint16
	UUID
	Characteristics []CharacteristicConfig
}

// Handle returns the attribute handle of the service declaration, assigned by
// AddService.
func (s *Service) Handle() uint16 {
	return s.handle
}

// WriteEvent is called when a central writes a characteristic value. It runs
// in the host's event context and must not block.
type WriteEvent = func(client Connection, offset int, value []byte)

// ReadEvent, if set, produces the value returned to a central reading the
// characteristic.
type ReadEvent = func(client Connection) []byte

// CharacteristicConfig contains some parameters for the configuration of a
// single characteristic.
//
// The Handle field may be nil. If it is set, it points to a characteristic
// handle that can be used to access the characteristic at a later time.
type CharacteristicConfig struct {
	Handle *Characteristic
	UUID
	Value      []byte
	Flags      CharacteristicPermissions
	WriteEvent WriteEvent
	ReadEvent  ReadEvent
}

// CharacteristicPermissions lists a number of basic permissions/capabilities
// that clients have regarding this characteristic. For example, if you want to
// allow clients to read the value of this characteristic (a common scenario),
// set the Read permission.
type CharacteristicPermissions uint8

// Characteristic permission bitfields.
const (
	CharacteristicBroadcastPermission CharacteristicPermissions = 1 << iota
	CharacteristicReadPermission
	CharacteristicWriteWithoutResponsePermission
	CharacteristicWritePermission
	CharacteristicNotifyPermission
	CharacteristicIndicatePermission
)

// Broadcast returns whether broadcasting of the value is permitted.
func (p CharacteristicPermissions) Broadcast() bool {
	return p&CharacteristicBroadcastPermission != 0
}

// Read returns whether reading of the value is permitted.
func (p CharacteristicPermissions) Read() bool {
	return p&CharacteristicReadPermission != 0
}

// WriteWithoutResponse returns whether writing of the value without response
// is permitted.
func (p CharacteristicPermissions) WriteWithoutResponse() bool {
	return p&CharacteristicWriteWithoutResponsePermission != 0
}

// Write returns whether writing of the value with response is permitted.
func (p CharacteristicPermissions) Write() bool {
	return p&CharacteristicWritePermission != 0
}

// Notify returns whether notifications are permitted.
func (p CharacteristicPermissions) Notify() bool {
	return p&CharacteristicNotifyPermission != 0
}

// Indicate returns whether indications are permitted.
func (p CharacteristicPermissions) Indicate() bool {
	return p&CharacteristicIndicatePermission != 0
}

// Characteristic is a single characteristic in a registered service.
type Characteristic struct {
	adapter     *Adapter
	handle      uint16
	uuid        UUID
	permissions CharacteristicPermissions
	writeEvent  WriteEvent
	readEvent   ReadEvent

	mu    sync.Mutex
	value []byte
}

// Handle returns the attribute handle of the characteristic value.
func (c *Characteristic) Handle() uint16 {
	return c.handle
}

// UUID returns the characteristic type.
func (c *Characteristic) UUID() UUID {
	return c.uuid
}

// Permissions returns the flags the characteristic was registered with.
func (c *Characteristic) Permissions() CharacteristicPermissions {
	return c.permissions
}

// Value returns a copy of the current value.
func (c *Characteristic) Value() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.value...)
}

func (c *Characteristic) setValue(p []byte) {
	c.mu.Lock()
	c.value = append(c.value[:0], p...)
	c.mu.Unlock()
}

// Write replaces the characteristic value with a new value. For notifying
// characteristics the new value is also sent to the connected central.
func (c *Characteristic) Write(p []byte) (n int, err error) {
	if !(c.permissions.Write() || c.permissions.WriteWithoutResponse() ||
		c.permissions.Notify() || c.permissions.Indicate()) {
		return 0, errNoWrite
	}

	c.setValue(p)

	if c.permissions.Notify() || c.permissions.Indicate() {
		if c.adapter == nil {
			return 0, errNotEnabled
		}
		if err := c.Notify(c.adapter.Connection(), p); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Notify sends p as a notification to the given connection without
// changing the stored value.
func (c *Characteristic) Notify(conn Connection, p []byte) error {
	if !(c.permissions.Notify() || c.permissions.Indicate()) {
		return errNoNotify
	}
	if c.adapter == nil {
		return errNotEnabled
	}
	return c.adapter.notify(conn, c.handle, p)
}
