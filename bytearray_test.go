package bluefruit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetByteArraySize(t *testing.T) {
	tests := []struct {
		in   string
		size int
	}{
		{"AA", 1},
		{"AA-BB-CC", 3},
		{"0a-1B-ff-00", 4},
		{"", 0},
		{"A", 0},
		{"hello", 0},
		{"AAA", 0},
		{"AA-B", 0},
		{"AA-BBB", 0},
		{"AA:BB", 0},
		{"AA-BB-", 0},
		{"-AA-BB", 0},
		{"AA-GG", 0},
		{"A-BB-CC", 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.size, GetByteArraySize(tc.in), "input %q", tc.in)
	}
}

func TestParseByteArray(t *testing.T) {
	buf := make([]byte, 8)
	n := ParseByteArray("AA-bb-0C", buf)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{0xAA, 0xBB, 0x0C}, buf[:n])
}

func TestParseByteArrayMalformed(t *testing.T) {
	buf := make([]byte, 8)
	assert.Zero(t, ParseByteArray("hello", buf))
	assert.Zero(t, ParseByteArray("A-B", buf))
	assert.Zero(t, ParseByteArray("AA BB", buf))
}

func TestParseByteArrayTooLong(t *testing.T) {
	buf := make([]byte, 2)
	assert.Zero(t, ParseByteArray("01-02-03", buf))
}
