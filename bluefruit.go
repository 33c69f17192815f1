// Package bluefruit provides the peripheral-side glue of a BLE UART bridge:
// a GATT access layer over a pluggable host stack, the Nordic UART service
// backed by bounded byte queues, the Device Information service, and the
// task that forwards received bytes to a serial console.
//
// The BLE host itself (BlueZ on Linux, or the in-process Loopback used for
// testing) is supplied through the Host interface.
package bluefruit // import "tinygo.org/x/bluefruit"

import "errors"

var (
	errNotEnabled     = errors.New("bluefruit: adapter not enabled")
	errNotConnected   = errors.New("bluefruit: no connection")
	errNoNotify       = errors.New("bluefruit: characteristic does not support notifications")
	errNoRead         = errors.New("bluefruit: characteristic is not readable")
	errNoWrite        = errors.New("bluefruit: characteristic is not writable")
	errUnknownHandle  = errors.New("bluefruit: unknown attribute handle")
	errAdvertising    = errors.New("bluefruit: advertisement already started")
	errNotConfigured  = errors.New("bluefruit: advertisement not configured")
	errNotAdvertising = errors.New("bluefruit: advertisement not started")
)

// Connection is a connection handle as assigned by the host stack.
type Connection uint16

// ConnectionInvalid is the handle used while no central is connected.
const ConnectionInvalid Connection = 0xFFFF
