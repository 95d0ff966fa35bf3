package stream

import (
	"sync"
	"time"
)

// DefaultPumpBuffer bounds the chunk queue between the producer
// goroutine and the consumer.
const DefaultPumpBuffer = 64

// PollResult classifies the outcome of one Poll.
type PollResult int

const (
	// PollChunk means a chunk was delivered.
	PollChunk PollResult = iota
	// PollTimeout means nothing arrived within the timeout; the caller
	// should check cancellation and poll again.
	PollTimeout
	// PollDone means the producer finished; no more chunks will come.
	PollDone
)

// Pump hands chunks from a blocking producer goroutine to a consumer
// through a bounded, ordered queue. Completion is a closed channel
// sentinel; producer errors travel on a side channel. Cancellation is
// cooperative: the consumer sets the flag, the producer observes it
// between chunks and stops. Single producer, single consumer.
type Pump struct {
	chunks chan Chunk
	errCh  chan error
	quit   chan struct{}

	quitOnce sync.Once
	finOnce  sync.Once
}

// NewPump creates a pump with the given buffer size (DefaultPumpBuffer
// if non-positive).
func NewPump(buffer int) *Pump {
	if buffer <= 0 {
		buffer = DefaultPumpBuffer
	}
	return &Pump{
		chunks: make(chan Chunk, buffer),
		errCh:  make(chan error, 1),
		quit:   make(chan struct{}),
	}
}

// Emit queues a chunk for the consumer. Returns false when the pump is
// cancelled; the producer must stop emitting and return.
func (p *Pump) Emit(c Chunk) bool {
	select {
	case <-p.quit:
		return false
	default:
	}
	select {
	case p.chunks <- c:
		return true
	case <-p.quit:
		return false
	}
}

// Finish marks the stream complete. Safe to call once per producer;
// further Emit calls are invalid after Finish.
func (p *Pump) Finish() {
	p.finOnce.Do(func() { close(p.chunks) })
}

// Fail records a producer error and completes the stream. The first
// error wins.
func (p *Pump) Fail(err error) {
	select {
	case p.errCh <- err:
	default:
	}
	p.Finish()
}

// Cancel sets the cooperative cancellation flag. Chunks already queued
// remain readable so partial output is preserved.
func (p *Pump) Cancel() {
	p.quitOnce.Do(func() { close(p.quit) })
}

// Cancelled reports whether Cancel was called.
func (p *Pump) Cancelled() bool {
	select {
	case <-p.quit:
		return true
	default:
		return false
	}
}

// Poll waits up to timeout for the next chunk. PollTimeout gives the
// consumer a chance to observe cancellation between chunks.
func (p *Pump) Poll(timeout time.Duration) (Chunk, PollResult) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case c, ok := <-p.chunks:
		if !ok {
			return Chunk{}, PollDone
		}
		return c, PollChunk
	case <-timer.C:
		return Chunk{}, PollTimeout
	}
}

// Err returns the producer error, if any. Valid after PollDone.
func (p *Pump) Err() error {
	select {
	case err := <-p.errCh:
		return err
	default:
		return nil
	}
}
