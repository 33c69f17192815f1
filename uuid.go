package bluefruit

// This file implements 16-bit and 128-bit UUIDs as defined in the Bluetooth
// specification.

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

var errInvalidUUID = errors.New("bluefruit: failed to parse UUID")

// UUID is a single UUID as used in the Bluetooth stack. It is represented as a
// [4]uint32 instead of a [16]byte for efficiency, with uuid[3] holding the
// most significant word.
type UUID [4]uint32

// New16BitUUID returns a new 128-bit UUID based on a 16-bit UUID.
//
// Note: only use registered UUIDs. See
// https://www.bluetooth.com/specifications/gatt/services/ for a list.
func New16BitUUID(shortUUID uint16) UUID {
	var u UUID
	u[0] = 0x5F9B34FB
	u[1] = 0x80000080
	u[2] = 0x00001000
	u[3] = uint32(shortUUID)
	return u
}

// NewUUID returns a UUID from its 16 bytes in the usual (big endian) order.
func NewUUID(b [16]byte) UUID {
	return UUID{
		binary.BigEndian.Uint32(b[12:16]),
		binary.BigEndian.Uint32(b[8:12]),
		binary.BigEndian.Uint32(b[4:8]),
		binary.BigEndian.Uint32(b[0:4]),
	}
}

// ParseUUID parses a UUID in the canonical 8-4-4-4-12 form, or a registered
// 16-bit UUID written as four hex digits (for example "180D").
func ParseUUID(s string) (UUID, error) {
	if len(s) == 4 {
		short, err := strconv.ParseUint(s, 16, 16)
		if err != nil {
			return UUID{}, errInvalidUUID
		}
		return New16BitUUID(uint16(short)), nil
	}
	if len(s) != 36 {
		return UUID{}, errInvalidUUID
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return UUID{}, errInvalidUUID
	}
	return NewUUID(parsed), nil
}

// Is16Bit returns whether this UUID is a 16-bit BLE UUID.
func (u UUID) Is16Bit() bool {
	return u.Is32Bit() && u[3] == uint32(uint16(u[3]))
}

// Is32Bit returns whether this UUID is a 32-bit BLE UUID.
func (u UUID) Is32Bit() bool {
	return u[0] == 0x5F9B34FB && u[1] == 0x80000080 && u[2] == 0x00001000
}

// Get16Bit returns bits 96..111 of the UUID: the registered number for a
// 16-bit UUID, or the characteristic index inside a vendor base UUID such as
// the Nordic UART one.
func (u UUID) Get16Bit() uint16 {
	return uint16(u[3])
}

// Bytes returns the UUID in little endian order, as it is sent over the air.
func (u UUID) Bytes() [16]byte {
	var b [16]byte
	binary.LittleEndian.PutUint32(b[0:4], u[0])
	binary.LittleEndian.PutUint32(b[4:8], u[1])
	binary.LittleEndian.PutUint32(b[8:12], u[2])
	binary.LittleEndian.PutUint32(b[12:16], u[3])
	return b
}

// String returns the canonical lower case form, for example
// 00001234-0000-1000-8000-00805f9b34fb.
func (u UUID) String() string {
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%04x%08x",
		u[3], u[2]>>16, u[2]&0xffff, u[1]>>16, u[1]&0xffff, u[0])
}

var (
	// Nordic UART Service: 6E400001-B5A3-F393-E0A9-E50E24DCCA9E. RX is
	// written by the central, TX notifies the central.
	ServiceUUIDNordicUART    = UUID{0x24DCCA9E, 0xE0A9E50E, 0xB5A3F393, 0x6E400001}
	CharacteristicUUIDUARTRX = UUID{0x24DCCA9E, 0xE0A9E50E, 0xB5A3F393, 0x6E400002}
	CharacteristicUUIDUARTTX = UUID{0x24DCCA9E, 0xE0A9E50E, 0xB5A3F393, 0x6E400003}

	ServiceUUIDDeviceInformation = New16BitUUID(0x180A)

	CharacteristicUUIDModelNumberString      = New16BitUUID(0x2A24)
	CharacteristicUUIDSerialNumberString     = New16BitUUID(0x2A25)
	CharacteristicUUIDFirmwareRevision       = New16BitUUID(0x2A26)
	CharacteristicUUIDHardwareRevision       = New16BitUUID(0x2A27)
	CharacteristicUUIDSoftwareRevision       = New16BitUUID(0x2A28)
	CharacteristicUUIDManufacturerNameString = New16BitUUID(0x2A29)
)
