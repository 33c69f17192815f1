//go:build linux || darwin

package rawterm

import (
	"os"

	"golang.org/x/crypto/ssh/terminal"
)

var terminalState *terminal.State

// Getchar returns a single character from stdin. Newlines are encoded with a
// single LF ('\n'). It returns Ctrl-D when stdin is closed.
func Getchar() byte {
	var b [1]byte
	if n, _ := os.Stdin.Read(b[:]); n == 0 {
		return ctrlD
	}
	if b[0] == '\r' {
		return '\n'
	}
	return b[0]
}

// Putchar writes a single character to the terminal. Newlines are expected to
// be encoded as LF symbols ('\n').
func Putchar(ch byte) {
	if ch == '\n' {
		// Terminals expect CRLF.
		Putchar('\r')
	}
	b := [1]byte{ch}
	os.Stdout.Write(b[:])
}

// IsTerminal reports whether stdin is a terminal.
func IsTerminal() bool {
	return terminal.IsTerminal(int(os.Stdin.Fd()))
}

// Configure initializes the terminal for use by raw reading/writing (using
// Getchar/Putchar). It must be restored after use with Restore. You can do this
// with the following code:
//
//	rawterm.Configure()
//	defer rawterm.Restore()
//	// use raw terminal features
func Configure() error {
	state, err := terminal.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return err
	}
	terminalState = state
	return nil
}

// Restore restores the state to before a call to Configure. It does nothing
// if Configure was not called or failed.
func Restore() error {
	if terminalState == nil {
		return nil
	}
	err := terminal.Restore(int(os.Stdin.Fd()), terminalState)
	terminalState = nil
	return err
}
