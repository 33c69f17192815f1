package bluefruit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// MaxThroughputCount is the largest number of packets in one run.
	MaxThroughputCount = 100

	// MaxThroughputSize is the largest packet size in one run.
	MaxThroughputSize = 240

	DefaultThroughputCount = 100
	DefaultThroughputSize  = 20
)

// ThroughputResult describes a finished throughput run.
type ThroughputResult struct {
	Count   int
	Size    int
	Failed  int
	Elapsed time.Duration
}

// Total returns the number of bytes queued.
func (r ThroughputResult) Total() int {
	return r.Count * r.Size
}

func (r ThroughputResult) String() string {
	return fmt.Sprintf("Queued %d bytes (%d packets of %d size) in %d milliseconds",
		r.Total(), r.Count, r.Size, r.Elapsed.Milliseconds())
}

// Throughput sends bursts of test packets through a writer, usually a UART.
type Throughput struct {
	w       io.Writer
	limiter *rate.Limiter
	log     logrus.FieldLogger
}

// NewThroughput returns a throughput tester writing to w. packetsPerSecond
// limits how fast packets are sent; zero means unlimited.
func NewThroughput(w io.Writer, packetsPerSecond float64, burst int, log logrus.FieldLogger) *Throughput {
	limit := rate.Inf
	if packetsPerSecond > 0 {
		limit = rate.Limit(packetsPerSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &Throughput{
		w:       w,
		limiter: rate.NewLimiter(limit, burst),
		log:     log.WithField("component", "throughput"),
	}
}

// Run sends count packets of size bytes. Byte i of every packet is the ASCII
// digit i%10. Packets that fail to send are counted in the result, not
// retried.
func (t *Throughput) Run(ctx context.Context, count, size int) (ThroughputResult, error) {
	if count < 0 {
		return ThroughputResult{}, errors.New("count must not be negative")
	}
	if size < 0 {
		return ThroughputResult{}, errors.New("size must not be negative")
	}
	if count > MaxThroughputCount {
		return ThroughputResult{}, fmt.Errorf("count must not exceed %d", MaxThroughputCount)
	}
	if size > MaxThroughputSize {
		return ThroughputResult{}, fmt.Errorf("size must not exceed %d", MaxThroughputSize)
	}

	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i%10) + '0'
	}

	res := ThroughputResult{Count: count, Size: size}
	start := time.Now()
	for i := 0; i < count; i++ {
		if err := t.limiter.Wait(ctx); err != nil {
			return res, err
		}
		if _, err := t.w.Write(data); err != nil {
			res.Failed++
			t.log.WithError(err).WithField("packet", i).Debug("send failed")
		}
	}
	res.Elapsed = time.Since(start)

	t.log.WithFields(logrus.Fields{
		"count":  count,
		"size":   size,
		"failed": res.Failed,
		"ms":     res.Elapsed.Milliseconds(),
	}).Info("throughput run finished")
	return res, nil
}
