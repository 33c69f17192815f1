// Package bluez runs the peripheral on the BlueZ stack, talking to bluetoothd
// over D-Bus. Services are exported as GATT applications and the
// advertisement is registered with the LE advertising manager.
package bluez

import (
	"github.com/muka/go-bluetooth/bluez/profile/gatt"

	"tinygo.org/x/bluefruit"
)

// Flags returns the BlueZ characteristic flags for p.
func Flags(p bluefruit.CharacteristicPermissions) []string {
	var flags []string
	if p.Broadcast() {
		flags = append(flags, gatt.FlagCharacteristicBroadcast)
	}
	if p.Read() {
		flags = append(flags, gatt.FlagCharacteristicRead)
	}
	if p.WriteWithoutResponse() {
		flags = append(flags, gatt.FlagCharacteristicWriteWithoutResponse)
	}
	if p.Write() {
		flags = append(flags, gatt.FlagCharacteristicWrite)
	}
	if p.Notify() {
		flags = append(flags, gatt.FlagCharacteristicNotify)
	}
	if p.Indicate() {
		flags = append(flags, gatt.FlagCharacteristicIndicate)
	}
	return flags
}
