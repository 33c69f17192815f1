// Package rawterm provides a raw terminal interface for the bridge console.
//
// Newlines are always LF (not CR or CRLF). While terminals generally use a
// different format (CR when pressing the enter key and CRLF for newline) the
// format returned by Getchar and expected as input by Putchar is a single LF
// as newline symbol.
package rawterm

import (
	"io"
	"sync"
)

const (
	ctrlD     = '\x04'
	ctrlX     = '\x18'
	backspace = '\x08'
	del       = '\x7f'
)

// ReadLine reads characters with getc until a newline, echoing them with
// putc. Backspace removes the last character. It returns false when the user
// presses Ctrl-X or Ctrl-D.
func ReadLine(getc func() byte, putc func(byte)) (string, bool) {
	var line []byte
	for {
		ch := getc()
		switch ch {
		case ctrlX, ctrlD:
			return "", false
		case '\n':
			putc('\n')
			return string(line), true
		case backspace, del:
			if len(line) > 0 {
				line = line[:len(line)-1]
				putc(backspace)
				putc(' ')
				putc(backspace)
			}
		default:
			line = append(line, ch)
			putc(ch)
		}
	}
}

// Writer translates LF into CRLF, which a terminal in raw mode needs to
// start a new line.
type Writer struct {
	mu  sync.Mutex
	w   io.Writer
	buf []byte
}

// NewWriter returns a Writer writing to w. It is safe for concurrent use.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write writes p with every LF preceded by CR. It returns len(p) on success.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = w.buf[:0]
	for _, c := range p {
		if c == '\n' {
			w.buf = append(w.buf, '\r')
		}
		w.buf = append(w.buf, c)
	}
	if _, err := w.w.Write(w.buf); err != nil {
		return 0, err
	}
	return len(p), nil
}
