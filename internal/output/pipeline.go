package output

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Sink is one destination for items. Implementations must be safe for
// concurrent use: after an interrupted Close the caller and a stuck consumer
// may both be writing.
type Sink interface {
	Write(Item) error
}

// Submitter accepts items for output.
type Submitter interface {
	Submit(Item)
}

// Pipeline fans items out to its sinks from one background goroutine.
// Submit never blocks and never drops: the queue is unbounded.
type Pipeline struct {
	sinks []Sink

	mu      sync.Mutex
	queue   []Item
	closing bool
	stopped bool
	notify  chan struct{}
	done    chan struct{}

	written    atomic.Int64
	sinkErrors atomic.Int64

	// OnWrite, when set before the first Submit, is called after each item
	// reaches every sink. Used for metrics.
	OnWrite func(sinkErrors int)
}

// New starts a pipeline writing to sinks.
func New(sinks ...Sink) *Pipeline {
	p := &Pipeline{
		sinks:  sinks,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// Submit queues item. Items submitted after the consumer has exited are
// written synchronously on the caller's goroutine.
func (p *Pipeline) Submit(item Item) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		p.deliver(item)
		return
	}
	p.queue = append(p.queue, item)
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Close stops accepting new work for the consumer and waits for it to drain
// every queued item. If ctx ends first, the remaining items are written
// synchronously so nothing submitted before Close is lost.
func (p *Pipeline) Close(ctx context.Context) error {
	p.mu.Lock()
	already := p.closing
	p.closing = true
	p.mu.Unlock()

	if !already {
		select {
		case p.notify <- struct{}{}:
		default:
		}
	}

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
	}

	// The consumer is stuck in a sink. Take the rest of the queue ourselves.
	p.mu.Lock()
	rest := p.queue
	p.queue = nil
	p.stopped = true
	p.mu.Unlock()

	for _, item := range rest {
		p.deliver(item)
	}
	return fmt.Errorf("output drain interrupted: %w", ctx.Err())
}

// Written returns the number of items delivered to the sinks.
func (p *Pipeline) Written() int64 { return p.written.Load() }

// SinkErrors returns the number of failed or panicking sink writes.
func (p *Pipeline) SinkErrors() int64 { return p.sinkErrors.Load() }

func (p *Pipeline) run() {
	defer close(p.done)

	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			if p.closing {
				p.stopped = true
				p.mu.Unlock()
				return
			}
			p.mu.Unlock()
			<-p.notify
			continue
		}
		item := p.queue[0]
		p.queue[0] = Item{}
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.deliver(item)
	}
}

// deliver writes item to every sink concurrently and waits for all of them,
// so items keep their order within each sink.
func (p *Pipeline) deliver(item Item) {
	var failed atomic.Int64
	var g errgroup.Group
	for _, s := range p.sinks {
		s := s
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("sink panic: %v", r)
				}
				if err != nil {
					failed.Add(1)
				}
			}()
			return s.Write(item)
		})
	}
	_ = g.Wait()

	n := failed.Load()
	p.sinkErrors.Add(n)
	p.written.Add(1)
	if p.OnWrite != nil {
		p.OnWrite(int(n))
	}
}
