// Package fifo implements a bounded circular queue of fixed-size items.
//
// A Queue is allocated once with a fixed depth and never grows. It is meant
// to sit between one producer (typically a BLE write callback running in the
// host's event context) and one consumer (a task that drains the queue to a
// serial port or another transport). No operation blocks: a write to a full
// queue either fails or, when the queue was created overwritable, evicts the
// oldest item; a read from an empty queue fails. Callers poll and back off.
//
// Every operation holds an internal mutex for its whole duration, so a Queue
// is safe to share between goroutines. The intended use is still a single
// producer and a single consumer: with several writers the interleaving of
// their items is unspecified.
package fifo
