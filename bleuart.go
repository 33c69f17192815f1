package bluefruit

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"tinygo.org/x/bluefruit/fifo"
)

const (
	// DefaultUARTBufferSize is the depth of the inbound and outbound queues.
	DefaultUARTBufferSize = 128

	// DefaultMaxPayload is the largest notification sent at the default
	// ATT MTU of 23 bytes.
	DefaultMaxPayload = 20
)

var errInvalidPayload = errors.New("bluefruit: max payload must be positive")

// UARTConfig configures the UART service.
type UARTConfig struct {
	// BufferSize is the depth of both queues, in bytes.
	BufferSize int

	// Overwritable makes the inbound queue evict the oldest byte when a
	// central writes more than fits. Otherwise the excess is dropped.
	Overwritable bool

	// MaxPayload is the largest notification the TX characteristic sends.
	MaxPayload int
}

// DefaultUARTConfig returns the configuration of a stock Bluefruit UART.
func DefaultUARTConfig() UARTConfig {
	return UARTConfig{
		BufferSize:   DefaultUARTBufferSize,
		Overwritable: true,
		MaxPayload:   DefaultMaxPayload,
	}
}

// UARTStats is a snapshot of the UART queues.
type UARTStats struct {
	RxBuffered int
	RxCapacity int
	RxDropped  uint64
	RxEvicted  uint64
	TxPending  int
	TxCapacity int
}

// UART is the Nordic UART service. Bytes a central writes to the RX
// characteristic are queued for the local reader; bytes queued locally are
// sent to the central as TX notifications.
type UART struct {
	log        logrus.FieldLogger
	rx         *fifo.Queue[byte]
	tx         *fifo.Queue[byte]
	maxPayload int

	rxChar Characteristic
	txChar Characteristic

	mu   sync.Mutex
	conn Connection

	// flushMu keeps Flush the only consumer of tx.
	flushMu sync.Mutex
	dropped uint64
}

// NewUART allocates the queues of a UART service. The service is not visible
// to centrals until it is registered.
func NewUART(cfg UARTConfig, log logrus.FieldLogger) (*UART, error) {
	if cfg.MaxPayload <= 0 {
		return nil, errInvalidPayload
	}
	rx, err := fifo.New[byte](cfg.BufferSize, cfg.Overwritable)
	if err != nil {
		return nil, err
	}
	tx, err := fifo.New[byte](cfg.BufferSize, false)
	if err != nil {
		return nil, err
	}
	return &UART{
		log:        log.WithField("component", "bleuart"),
		rx:         rx,
		tx:         tx,
		maxPayload: cfg.MaxPayload,
		conn:       ConnectionInvalid,
	}, nil
}

// Service returns the GATT definition of the UART. It is meant to be passed
// to AddService once.
func (u *UART) Service() *Service {
	return &Service{
		UUID: ServiceUUIDNordicUART,
		Characteristics: []CharacteristicConfig{
			{
				Handle:     &u.rxChar,
				UUID:       CharacteristicUUIDUARTRX,
				Flags:      CharacteristicWritePermission | CharacteristicWriteWithoutResponsePermission,
				WriteEvent: u.receive,
			},
			{
				Handle: &u.txChar,
				UUID:   CharacteristicUUIDUARTTX,
				Flags:  CharacteristicNotifyPermission | CharacteristicReadPermission,
			},
		},
	}
}

// Register adds the UART service to the adapter.
func (u *UART) Register(a *Adapter) error {
	return a.AddService(u.Service())
}

func (u *UART) receive(client Connection, offset int, value []byte) {
	n := u.rx.WriteN(value)
	if n < len(value) {
		atomic.AddUint64(&u.dropped, uint64(len(value)-n))
		u.log.WithFields(logrus.Fields{
			"conn":    client,
			"len":     len(value),
			"dropped": len(value) - n,
		}).Warn("rx queue full")
		return
	}
	u.log.WithFields(logrus.Fields{"conn": client, "len": n}).Debug("rx")
}

// SetConnHandle sets the connection notifications are sent on. Pass
// ConnectionInvalid when the central disconnects; bytes still queued for
// that central are discarded.
func (u *UART) SetConnHandle(conn Connection) {
	u.mu.Lock()
	prev := u.conn
	u.conn = conn
	u.mu.Unlock()

	if conn == ConnectionInvalid && prev != ConnectionInvalid {
		u.flushMu.Lock()
		pending := u.tx.Len()
		u.tx.Clear()
		u.flushMu.Unlock()
		if pending > 0 {
			u.log.WithFields(logrus.Fields{"conn": prev, "discarded": pending}).Debug("tx cleared on disconnect")
		}
	}
}

// ConnHandle returns the connection notifications are sent on.
func (u *UART) ConnHandle() Connection {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.conn
}

// Write sends p to the central as one or more TX notifications. It returns
// len(p), or 0 and the error of the first notification that failed.
func (u *UART) Write(p []byte) (int, error) {
	conn := u.ConnHandle()
	for off := 0; off < len(p); off += u.maxPayload {
		end := off + u.maxPayload
		if end > len(p) {
			end = len(p)
		}
		if err := u.txChar.Notify(conn, p[off:end]); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Putc queues one byte for the central. It returns 1, or 0 when the outbound
// queue is full.
func (u *UART) Putc(ch byte) int {
	return fifo.PutChar(u.tx, ch)
}

// Puts queues s up to its first NUL byte and flushes the outbound queue. It
// returns the number of bytes queued, or 0 when the flush failed; bytes that
// could not be sent stay queued for the next Flush.
func (u *UART) Puts(s string) int {
	n := fifo.PutString(u.tx, s)
	if err := u.Flush(); err != nil {
		u.log.WithError(err).Debug("puts flush")
		return 0
	}
	return n
}

// Send queues p for the central and flushes the outbound queue. It returns
// the number of bytes queued, or 0 when the flush failed; like Puts, bytes
// that could not be sent stay queued for the next Flush.
func (u *UART) Send(p []byte) int {
	n := u.tx.WriteN(p)
	if err := u.Flush(); err != nil {
		u.log.WithError(err).Debug("send flush")
		return 0
	}
	return n
}

// Flush sends the outbound queue as notifications of at most MaxPayload
// bytes. A chunk leaves the queue only once its notification succeeded.
func (u *UART) Flush() error {
	u.flushMu.Lock()
	defer u.flushMu.Unlock()

	conn := u.ConnHandle()
	chunk := make([]byte, u.maxPayload)
	for {
		n := 0
		for n < len(chunk) {
			b, ok := u.tx.PeekAt(n)
			if !ok {
				break
			}
			chunk[n] = b
			n++
		}
		if n == 0 {
			return nil
		}
		if err := u.txChar.Notify(conn, chunk[:n]); err != nil {
			return err
		}
		u.tx.ReadN(chunk[:n])
	}
}

// ReadN moves up to len(p) received bytes into p and returns how many were
// moved.
func (u *UART) ReadN(p []byte) int {
	return u.rx.ReadN(p)
}

// Getc returns the next received byte, or fifo.EOF when none is queued.
func (u *UART) Getc() int {
	return fifo.GetChar(u.rx)
}

// ReadByte implements io.ByteReader. It returns io.EOF when no byte is
// queued; more may arrive later.
func (u *UART) ReadByte() (byte, error) {
	b, ok := u.rx.Read()
	if !ok {
		return 0, io.EOF
	}
	return b, nil
}

// Buffered returns the number of received bytes waiting to be read.
func (u *UART) Buffered() int {
	return u.rx.Len()
}

// Clear discards all received bytes.
func (u *UART) Clear() {
	u.rx.Clear()
}

// Stats returns a snapshot of both queues.
func (u *UART) Stats() UARTStats {
	return UARTStats{
		RxBuffered: u.rx.Len(),
		RxCapacity: u.rx.Cap(),
		RxDropped:  atomic.LoadUint64(&u.dropped),
		RxEvicted:  u.rx.Evicted(),
		TxPending:  u.tx.Len(),
		TxCapacity: u.tx.Cap(),
	}
}

// Close releases both queues. The UART must not be used afterwards.
func (u *UART) Close() {
	u.rx.Close()
	u.tx.Close()
}
