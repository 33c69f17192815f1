package bluefruit

import (
	"errors"
	"strings"
)

// MAC represents a MAC address, in little endian format.
type MAC [6]byte

var errInvalidMAC = errors.New("bluefruit: failed to parse MAC address")

// DefaultAddress is the static device address the Bluefruit firmware
// assigns before the host stack starts.
var DefaultAddress = MAC{0xAD, 0xAF, 0xAD, 0xAF, 0xAD, 0xAF}

// ParseMAC parses the given MAC address, which must be in 11:22:33:AA:BB:CC
// format. Hex digits may be upper or lower case.
func ParseMAC(s string) (mac MAC, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != len(mac) {
		return MAC{}, errInvalidMAC
	}
	for i, part := range parts {
		if len(part) != 2 {
			return MAC{}, errInvalidMAC
		}
		hi, ok1 := hexNibble(part[0])
		lo, ok2 := hexNibble(part[1])
		if !ok1 || !ok2 {
			return MAC{}, errInvalidMAC
		}
		// The first group printed is the most significant byte.
		mac[len(mac)-1-i] = hi<<4 | lo
	}
	return mac, nil
}

// String returns a human-readable version of this MAC address, such as
// 11:22:33:AA:BB:CC.
func (mac MAC) String() string {
	const digits = "0123456789ABCDEF"
	var sb strings.Builder
	sb.Grow(17)
	for i := len(mac) - 1; i >= 0; i-- {
		if i != len(mac)-1 {
			sb.WriteByte(':')
		}
		sb.WriteByte(digits[mac[i]>>4])
		sb.WriteByte(digits[mac[i]&0x0f])
	}
	return sb.String()
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 0xA, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 0xA, true
	}
	return 0, false
}
