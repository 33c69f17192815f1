package bluefruit

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultPollInterval is how long the bridge sleeps when nothing was
// received.
const DefaultPollInterval = time.Millisecond

// ByteSource is a non-blocking source of received bytes, such as a UART.
type ByteSource interface {
	// ReadN moves up to len(p) bytes into p and returns how many were moved.
	// It returns 0 immediately when nothing is available.
	ReadN(p []byte) int
}

// Bridge forwards bytes received over BLE to a console.
type Bridge struct {
	src          ByteSource
	dst          io.Writer
	pollInterval time.Duration
	log          logrus.FieldLogger

	forwarded uint64
}

// NewBridge returns a bridge copying from src to dst. A non-positive
// pollInterval selects DefaultPollInterval.
func NewBridge(src ByteSource, dst io.Writer, pollInterval time.Duration, log logrus.FieldLogger) *Bridge {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Bridge{
		src:          src,
		dst:          dst,
		pollInterval: pollInterval,
		log:          log.WithField("component", "bridge"),
	}
}

// Run forwards bytes until ctx is done. Everything available is written out
// before the bridge sleeps for one poll interval. Write errors are logged
// and the bytes involved are lost.
func (b *Bridge) Run(ctx context.Context) error {
	b.log.WithField("poll", b.pollInterval).Info("bridge started")
	defer func() {
		b.log.WithField("forwarded", b.forwarded).Info("bridge stopped")
	}()

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	buf := make([]byte, 64)
	for {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			n := b.src.ReadN(buf)
			if n == 0 {
				break
			}
			if _, err := b.dst.Write(buf[:n]); err != nil {
				b.log.WithError(err).WithField("len", n).Error("console write")
				continue
			}
			b.forwarded += uint64(n)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
