package bluefruit

import (
	"errors"
	"time"
)

var errAdvertisementPacketTooBig = errors.New("bluefruit: advertisement packet overflows")

// Duration is the unit of time used in BLE, in 0.625ms units. This unit of
// time is used throughout the BLE stack.
type Duration uint16

// NewDuration returns a new Duration, in units of 0.625ms. It is used both for
// advertisement intervals and for connection parameters.
func NewDuration(interval time.Duration) Duration {
	return Duration(uint64(interval / (625 * time.Microsecond)))
}

// AdvertisementOptions configures an advertisement instance. More options may
// be added over time.
type AdvertisementOptions struct {
	// The (complete) local name that will be advertised. Optional, omitted if
	// this is a zero-length string.
	LocalName string

	// ServiceUUIDs are the services (16-bit or 128-bit) that are broadcast as
	// part of the advertisement packet, in data types such as "complete list
	// of 128-bit UUIDs".
	ServiceUUIDs []UUID

	// Interval in BLE-specific units. Create an interval by using NewDuration.
	// Hosts that cannot set it (BlueZ) ignore it.
	Interval Duration
}

// Advertisement encapsulates a single advertisement instance.
type Advertisement struct {
	adapter *Adapter
	options *AdvertisementOptions
	payload rawAdvertisementPayload
	active  bool
}

// DefaultAdvertisement returns the default advertisement instance but does not
// configure it.
func (a *Adapter) DefaultAdvertisement() *Advertisement {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.defaultAdvertisement == nil {
		a.defaultAdvertisement = &Advertisement{adapter: a}
	}
	return a.defaultAdvertisement
}

// Configure this advertisement. It may be called again while stopped.
func (adv *Advertisement) Configure(options AdvertisementOptions) error {
	adv.adapter.mu.Lock()
	defer adv.adapter.mu.Unlock()
	if adv.active {
		return errAdvertising
	}
	// Fill empty options with reasonable defaults.
	if options.Interval == 0 {
		// Pick an advertisement interval recommended by Apple (section 35.5
		// Advertising Interval):
		// https://developer.apple.com/accessories/Accessory-Design-Guidelines.pdf
		options.Interval = NewDuration(152500 * time.Microsecond) // 152.5ms
	}

	var payload rawAdvertisementPayload
	if !payload.addFromOptions(options) {
		return errAdvertisementPacketTooBig
	}
	options.ServiceUUIDs = append([]UUID(nil), options.ServiceUUIDs...)
	adv.options = &options
	adv.payload = payload
	return nil
}

// Payload returns the advertising data packet built from the configured
// options.
func (adv *Advertisement) Payload() []byte {
	adv.adapter.mu.Lock()
	defer adv.adapter.mu.Unlock()
	return append([]byte(nil), adv.payload.bytes()...)
}

// Start advertisement. May only be called after it has been configured.
func (adv *Advertisement) Start() error {
	adv.adapter.mu.Lock()
	if adv.options == nil {
		adv.adapter.mu.Unlock()
		return errNotConfigured
	}
	if adv.active {
		adv.adapter.mu.Unlock()
		return errAdvertising
	}
	options := *adv.options
	adv.adapter.mu.Unlock()

	if err := adv.adapter.host.StartAdvertising(options); err != nil {
		return err
	}

	adv.adapter.mu.Lock()
	adv.active = true
	adv.adapter.mu.Unlock()
	return nil
}

// Stop advertisement.
func (adv *Advertisement) Stop() error {
	adv.adapter.mu.Lock()
	if !adv.active {
		adv.adapter.mu.Unlock()
		return errNotAdvertising
	}
	adv.active = false
	adv.adapter.mu.Unlock()

	return adv.adapter.host.StopAdvertising()
}

// Active reports whether the advertisement was started and not stopped.
func (adv *Advertisement) Active() bool {
	adv.adapter.mu.Lock()
	defer adv.adapter.mu.Unlock()
	return adv.active
}

// resume restarts an active advertisement after the host dropped it, which
// happens when a central connects.
func (adv *Advertisement) resume() error {
	adv.adapter.mu.Lock()
	if !adv.active || adv.options == nil {
		adv.adapter.mu.Unlock()
		return nil
	}
	options := *adv.options
	adv.adapter.mu.Unlock()

	return adv.adapter.host.StartAdvertising(options)
}

// rawAdvertisementPayload is an advertising data packet: a sequence of
// length, type, data structures of at most 31 bytes in total.
type rawAdvertisementPayload struct {
	len  uint8
	data [31]byte
}

func (buf *rawAdvertisementPayload) bytes() []byte {
	return buf.data[:buf.len]
}

// addFromOptions fills the payload from options. A local name that does not
// fit next to the service UUIDs is shortened. It returns false if the service
// UUIDs alone overflow the packet.
func (buf *rawAdvertisementPayload) addFromOptions(options AdvertisementOptions) (ok bool) {
	buf.addFlags(0x06) // LE General Discoverable, BR/EDR not supported

	uuidSize := 0
	for _, uuid := range options.ServiceUUIDs {
		if uuid.Is16Bit() {
			uuidSize += 2 + 2
		} else {
			uuidSize += 2 + 16
		}
	}
	if int(buf.len)+uuidSize > len(buf.data) {
		return false
	}

	if name := options.LocalName; name != "" {
		room := len(buf.data) - int(buf.len) - uuidSize - 2
		switch {
		case len(name) <= room:
			buf.addElement(0x09, []byte(name)) // Complete Local Name
		case room > 0:
			buf.addElement(0x08, []byte(name[:room])) // Shortened Local Name
		}
	}

	for _, uuid := range options.ServiceUUIDs {
		buf.addServiceUUID(uuid)
	}
	return true
}

func (buf *rawAdvertisementPayload) addFlags(flags byte) {
	buf.addElement(0x01, []byte{flags})
}

// addServiceUUID adds a complete list of 16-bit or 128-bit service UUIDs
// holding the single given UUID.
func (buf *rawAdvertisementPayload) addServiceUUID(uuid UUID) bool {
	if uuid.Is16Bit() {
		short := uuid.Get16Bit()
		return buf.addElement(0x03, []byte{byte(short), byte(short >> 8)})
	}
	b := uuid.Bytes()
	return buf.addElement(0x07, b[:])
}

func (buf *rawAdvertisementPayload) addElement(typ byte, data []byte) bool {
	if int(buf.len)+len(data)+2 > len(buf.data) {
		return false
	}
	buf.data[buf.len] = byte(len(data) + 1)
	buf.data[buf.len+1] = typ
	copy(buf.data[buf.len+2:], data)
	buf.len += uint8(len(data) + 2)
	return true
}
