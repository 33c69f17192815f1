package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"tinygo.org/x/bluefruit"
)

var errNotSent = errors.New("nothing sent: is a central connected?")

// RegisterUART adds the UART commands: nus and bleuarttx send their
// arguments to the central, bleuartrx prints what the central sent and
// ffstat shows the queue state.
func RegisterUART(s *Shell, u *bluefruit.UART) error {
	send := func(ctx context.Context, w io.Writer, args []string) error {
		return uartSend(u, args)
	}
	for _, cmd := range []Command{
		{Name: "nus", Usage: "<text|XX-XX-..>", Help: "send text or bytes to the central", Run: send},
		{Name: "bleuarttx", Usage: "<text|XX-XX-..>", Help: "send text or bytes to the central", Run: send},
		{Name: "bleuartrx", Help: "print bytes received from the central", Run: func(ctx context.Context, w io.Writer, args []string) error {
			return uartDrain(u, w)
		}},
		{Name: "ffstat", Help: "show UART queue statistics", Run: func(ctx context.Context, w io.Writer, args []string) error {
			st := u.Stats()
			fmt.Fprintf(w, "rx: %d/%d bytes, %d dropped, %d evicted\n", st.RxBuffered, st.RxCapacity, st.RxDropped, st.RxEvicted)
			fmt.Fprintf(w, "tx: %d/%d bytes pending\n", st.TxPending, st.TxCapacity)
			return nil
		}},
	} {
		if err := s.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

func uartSend(u *bluefruit.UART, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: nus <text|XX-XX-..>")
	}

	if len(args) == 1 {
		if size := bluefruit.GetByteArraySize(args[0]); size > 0 {
			buf := make([]byte, size)
			n := bluefruit.ParseByteArray(args[0], buf)
			if u.Send(buf[:n]) == 0 {
				return errNotSent
			}
			return nil
		}
	}

	sent := 0
	for i, arg := range args {
		if i > 0 {
			u.Putc(' ')
		}
		sent += u.Puts(arg)
	}
	if sent == 0 {
		return errNotSent
	}
	return nil
}

func uartDrain(u *bluefruit.UART, w io.Writer) error {
	buf := make([]byte, 64)
	for {
		n := u.ReadN(buf)
		if n == 0 {
			return nil
		}
		if _, err := w.Write(buf[:n]); err != nil {
			return err
		}
	}
}

// RegisterThroughput adds the nustest command.
func RegisterThroughput(s *Shell, t *bluefruit.Throughput) error {
	return s.Register(Command{
		Name:  "nustest",
		Usage: "[count] [size]",
		Help:  fmt.Sprintf("send count (<= %d) packets of size (<= %d) bytes", bluefruit.MaxThroughputCount, bluefruit.MaxThroughputSize),
		Run: func(ctx context.Context, w io.Writer, args []string) error {
			count, size := bluefruit.DefaultThroughputCount, bluefruit.DefaultThroughputSize
			var err error
			if len(args) > 0 {
				if count, err = strconv.Atoi(args[0]); err != nil {
					return fmt.Errorf("invalid count %q", args[0])
				}
			}
			if len(args) > 1 {
				if size, err = strconv.Atoi(args[1]); err != nil {
					return fmt.Errorf("invalid size %q", args[1])
				}
			}

			res, err := t.Run(ctx, count, size)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, res)
			if res.Failed > 0 {
				fmt.Fprintf(w, "%d of %d packets failed\n", res.Failed, res.Count)
			}
			return nil
		},
	})
}
