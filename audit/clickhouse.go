package audit

import (
	"context"
	"crypto/tls"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

const (
	chBufferSize    = 10_000
	chFlushInterval = 100 * time.Millisecond
	chFlushBatch    = 1000
	chDrainTimeout  = 2 * time.Second
)

// ClickHouseSink persists audit events to ClickHouse asynchronously.
// Record is non-blocking: events are buffered and batch-inserted by a
// background goroutine. A full buffer drops the event with a warning
// rather than stalling a tool call.
type ClickHouseSink struct {
	conn      driver.Conn
	buffer    chan *Event
	done      chan struct{}
	flushed   chan struct{} // closed by flushLoop on return
	closeOnce sync.Once
	logger    *zap.Logger
}

// NewClickHouseSink connects to the DSN and starts the flush loop.
func NewClickHouseSink(dsn string, logger *zap.Logger) (*ClickHouseSink, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	if opts.TLS == nil {
		opts.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, err
	}

	s := &ClickHouseSink{
		conn:    conn,
		buffer:  make(chan *Event, chBufferSize),
		done:    make(chan struct{}),
		flushed: make(chan struct{}),
		logger:  logger,
	}

	go s.flushLoop()
	return s, nil
}

// Record queues the event for async insertion.
func (s *ClickHouseSink) Record(e *Event) error {
	select {
	case s.buffer <- e:
	default:
		s.logger.Warn("clickhouse buffer full, dropping audit event",
			zap.String("call_id", e.CallID),
			zap.String("type", string(e.Type)),
		)
	}
	return nil
}

// Close drains remaining events (up to a deadline) and stops the loop.
func (s *ClickHouseSink) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		<-s.flushed
	})
	return nil
}

func (s *ClickHouseSink) flushLoop() {
	defer close(s.flushed)

	ticker := time.NewTicker(chFlushInterval)
	defer ticker.Stop()

	batch := make([]*Event, 0, chFlushBatch)

	for {
		select {
		case e := <-s.buffer:
			batch = append(batch, e)
			if len(batch) >= chFlushBatch {
				s.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(batch)
				batch = batch[:0]
			}
		case <-s.done:
			drainCtx, cancel := context.WithTimeout(context.Background(), chDrainTimeout)
			defer cancel()
		drainLoop:
			for {
				select {
				case e := <-s.buffer:
					batch = append(batch, e)
				case <-drainCtx.Done():
					break drainLoop
				default:
					break drainLoop
				}
			}
			if len(batch) > 0 {
				s.flush(batch)
			}
			return
		}
	}
}

func (s *ClickHouseSink) flush(events []*Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO tool_events (
			id, session_id, call_id, type, ts,
			tool, risk, arguments, args_hash,
			reason, error, duration_ms
		)
	`)
	if err != nil {
		s.logger.Error("clickhouse prepare batch failed", zap.Error(err))
		return
	}

	for _, e := range events {
		if err := batch.Append(
			e.ID,
			e.SessionID,
			e.CallID,
			string(e.Type),
			e.Time,
			e.Tool,
			e.Risk,
			e.Arguments,
			e.ArgsHash,
			e.Reason,
			e.Error,
			e.Duration,
		); err != nil {
			s.logger.Error("clickhouse append event failed",
				zap.String("call_id", e.CallID),
				zap.Error(err),
			)
		}
	}

	if err := batch.Send(); err != nil {
		s.logger.Error("clickhouse batch send failed",
			zap.Int("batch_size", len(events)),
			zap.Error(err),
		)
	}
}
