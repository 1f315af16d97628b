package render

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrBusy is returned by Submit when the task queue is full. Callers
// translate it into a 503.
var ErrBusy = errors.New("render pool is at capacity")

// ErrClosed is returned by Submit after Shutdown.
var ErrClosed = errors.New("render pool is closed")

type result struct {
	html string
	err  error
}

type task struct {
	suggestions []Suggestion
	out         chan result
}

// Pool runs template rendering on a fixed set of worker goroutines so a
// slow render never stalls the request-handling path. Each worker parses
// the template on its first task and reuses it afterwards.
type Pool struct {
	tasks  chan *task
	logger *zap.Logger

	// newRenderer is swapped in tests to provoke render failures.
	newRenderer func() (*Renderer, error)

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewPool starts workers goroutines sharing a FIFO queue of queueDepth
// pending tasks.
func NewPool(workers, queueDepth int, logger *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}

	if queueDepth < 0 {
		queueDepth = 0
	}

	p := &Pool{
		tasks:       make(chan *task, queueDepth),
		logger:      logger,
		newRenderer: NewRenderer,
	}

	p.wg.Add(workers)

	for i := 0; i < workers; i++ {
		go p.worker(i)
	}

	return p
}

// Submit enqueues a render task and waits for its HTML. It fails fast with
// ErrBusy instead of queueing without bound under sustained overload.
func (p *Pool) Submit(ctx context.Context, suggestions []Suggestion) (string, error) {
	t := &task{
		suggestions: suggestions,
		out:         make(chan result, 1),
	}

	p.mu.RLock()

	if p.closed {
		p.mu.RUnlock()

		return "", ErrClosed
	}

	select {
	case p.tasks <- t:
		p.mu.RUnlock()
	default:
		p.mu.RUnlock()

		return "", ErrBusy
	}

	select {
	case res := <-t.out:
		return res.html, res.err
	case <-ctx.Done():
		// The task stays queued; its result is discarded when it completes.
		return "", ctx.Err()
	}
}

// QueueDepth reports the number of tasks waiting for a worker.
func (p *Pool) QueueDepth() int {
	return len(p.tasks)
}

// Shutdown stops accepting tasks and waits for in-flight renders to finish.
func (p *Pool) Shutdown() error {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()

		return nil
	}

	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()

	return nil
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	// Lazily initialized so the first task pays the template parse cost
	// and later tasks reuse the renderer.
	var renderer *Renderer

	for t := range p.tasks {
		html, err := p.renderOne(&renderer, t.suggestions)
		if err != nil {
			p.logger.Error("render task failed",
				zap.Int("worker", id),
				zap.Error(err),
			)
		}

		t.out <- result{html: html, err: err}
	}
}

// renderOne isolates a single render. A panic rejects only this task; the
// renderer is discarded so the next task starts from a fresh one, and the
// worker keeps serving.
func (p *Pool) renderOne(renderer **Renderer, suggestions []Suggestion) (html string, err error) {
	defer func() {
		if r := recover(); r != nil {
			*renderer = nil
			err = fmt.Errorf("render panicked: %v", r)
		}
	}()

	if *renderer == nil {
		*renderer, err = p.newRenderer()
		if err != nil {
			*renderer = nil

			return "", err
		}
	}

	return (*renderer).Render(suggestions)
}
