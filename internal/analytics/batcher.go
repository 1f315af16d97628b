package analytics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tinypath/tinypath/internal/docstore"
	"github.com/tinypath/tinypath/internal/metrics"
	"github.com/tinypath/tinypath/internal/shortener"
	"go.uber.org/zap"
)

const (
	// DefaultFlushInterval bounds how stale a visit count can get.
	DefaultFlushInterval = 5 * time.Second
	// DefaultFlushCount is the queued-event threshold that forces a flush
	// before the interval elapses.
	DefaultFlushCount = 1000
	// defaultQueueCapacity is generous: the hot path must never wait on
	// the batcher.
	defaultQueueCapacity = 65536

	flushTimeout = 30 * time.Second
)

// FatalFunc is invoked on a transport-level flush failure. The default
// terminates the process; tests swap it out.
type FatalFunc func(msg string, fields ...zap.Field)

// Batcher absorbs visit events from the redirect hot path and flushes them
// to the document store as grouped count increments. One increment-by-N
// partial update is issued per distinct source, serialized on a single
// background goroutine.
type Batcher struct {
	store     docstore.Store
	logger    *zap.Logger
	interval  time.Duration
	threshold int
	fatal     FatalFunc
	metrics   *metrics.Metrics

	events chan shortener.Source
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewBatcher creates a batcher flushing whenever threshold events are queued
// or interval has elapsed since the last flush, whichever comes first.
// Non-positive settings fall back to the defaults.
func NewBatcher(store docstore.Store, interval time.Duration, threshold int, logger *zap.Logger) *Batcher {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}

	if threshold <= 0 {
		threshold = DefaultFlushCount
	}

	b := &Batcher{
		store:     store,
		logger:    logger,
		interval:  interval,
		threshold: threshold,
		events:    make(chan shortener.Source, defaultQueueCapacity),
		done:      make(chan struct{}),
	}
	b.fatal = logger.Fatal

	return b
}

// SetFatalFunc overrides the handler for unrecoverable flush failures.
func (b *Batcher) SetFatalFunc(fatal FatalFunc) {
	b.fatal = fatal
}

// SetMetrics attaches the application metrics. A nil set is fine.
func (b *Batcher) SetMetrics(m *metrics.Metrics) {
	b.metrics = m
}

// Record enqueues one visit for a source. It never blocks: if the queue is
// saturated the event is dropped with a warning, which only happens when
// the store has been unable to keep up for a long while.
func (b *Batcher) Record(source shortener.Source) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Warn("visit event after shutdown", zap.String("source", string(source)))

		return
	}

	select {
	case b.events <- source:
	default:
		b.metrics.VisitQueueDrop()
		b.logger.Warn("visit event queue saturated, dropping event",
			zap.String("source", string(source)))
	}
}

// Start launches the background flush loop.
func (b *Batcher) Start(_ context.Context) error {
	go b.run()

	return nil
}

// Shutdown stops accepting events, flushes everything still queued and only
// then returns, so the store connection can be closed safely afterwards.
func (b *Batcher) Shutdown() error {
	b.mu.Lock()

	if b.closed {
		b.mu.Unlock()

		return nil
	}

	b.closed = true
	close(b.events)
	b.mu.Unlock()

	<-b.done

	return nil
}

// batch accumulates pending increments preserving first-seen order.
type batch struct {
	order  []shortener.Source
	counts map[shortener.Source]int64
	size   int
}

func newBatch() *batch {
	return &batch{counts: make(map[shortener.Source]int64)}
}

func (p *batch) add(source shortener.Source) {
	if _, ok := p.counts[source]; !ok {
		p.order = append(p.order, source)
	}

	p.counts[source]++
	p.size++
}

func (b *Batcher) run() {
	defer close(b.done)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	pending := newBatch()

	for {
		select {
		case source, ok := <-b.events:
			if !ok {
				b.flush(pending)

				return
			}

			pending.add(source)

			if pending.size >= b.threshold {
				b.flush(pending)

				pending = newBatch()
				ticker.Reset(b.interval)
			}
		case <-ticker.C:
			if pending.size > 0 {
				b.flush(pending)

				pending = newBatch()
			}
		}
	}
}

// flush writes the accumulated increments. A missing document is dropped
// with a warning; a transport failure is unrecoverable and escalates to
// the fatal handler, because silently losing analytics forever is worse
// than a visible crash and restart.
func (b *Batcher) flush(pending *batch) {
	if pending.size == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	for _, source := range pending.order {
		err := b.store.IncrementCount(ctx, source, pending.counts[source])
		if err == nil {
			continue
		}

		if errors.Is(err, shortener.ErrNotFound) {
			b.metrics.VisitDrop()
			b.logger.Warn("dropped redirect analytics record",
				zap.String("source", string(source)),
				zap.Int64("visits", pending.counts[source]),
			)

			continue
		}

		b.fatal("visit count flush failed", zap.Error(err))

		return
	}

	b.metrics.VisitFlush()
	b.logger.Debug("flushed visit counts",
		zap.Int("events", pending.size),
		zap.Int("sources", len(pending.order)),
	)
}
