package bluefruit

// GetByteArraySize returns the number of bytes in s when it has the form
// XX-XX-...-XX, with exactly two hex digits per byte. It returns 0 for any
// other input, in which case s should be treated as plain text.
func GetByteArraySize(s string) int {
	if len(s) < 2 || (len(s)+1)%3 != 0 {
		return 0
	}
	n := (len(s) + 1) / 3
	for i := 0; i < n; i++ {
		group := s[i*3:]
		if _, ok := hexNibble(group[0]); !ok {
			return 0
		}
		if _, ok := hexNibble(group[1]); !ok {
			return 0
		}
		if i < n-1 && group[2] != '-' {
			return 0
		}
	}
	return n
}

// ParseByteArray decodes a byte array in the form accepted by
// GetByteArraySize into buf and returns the number of bytes decoded. It
// returns 0 if s is malformed or does not fit in buf.
func ParseByteArray(s string, buf []byte) int {
	n := GetByteArraySize(s)
	if n == 0 || n > len(buf) {
		return 0
	}
	for i := 0; i < n; i++ {
		hi, _ := hexNibble(s[i*3])
		lo, _ := hexNibble(s[i*3+1])
		buf[i] = hi<<4 | lo
	}
	return n
}
