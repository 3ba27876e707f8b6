// Package sched owns the concurrency shape of the add-on: a single
// engine mutation loop that is the only place live game state may be
// touched, a small worker pool for blocking store lookups, and the
// dispatch pattern that runs a lookup on a worker and resumes on the
// loop.
package sched

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/emberforge/embercore"
	"github.com/pkg/errors"
)

var ErrClosed = errors.New("loop is closed")

// Loop is the engine mutation thread. Everything submitted via Run
// executes serially on the goroutine running Start.
type Loop struct {
	tasks  chan func()
	quit   chan struct{} // Closed by Close; Start drains and exits
	done   chan struct{} // Closed when Start exits
	mutex  sync.Mutex
	closed bool
}

func NewLoop() *Loop {
	return &Loop{
		tasks: make(chan func(), 256),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Start runs the loop until the context is cancelled or Close is
// called. Tasks already queued when Close fires are drained first so no
// accepted continuation is silently dropped.
func (l *Loop) Start(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case f := <-l.tasks:
			f()
		case <-l.quit:
			for {
				select {
				case f := <-l.tasks:
					f()
				default:
					return nil
				}
			}
		case <-ctx.Done():
			return embercore.WithStack(ctx.Err())
		}
	}
}

// Close stops the loop and waits for Start to exit.
func (l *Loop) Close() {
	l.mutex.Lock()
	if !l.closed {
		l.closed = true
		close(l.quit)
	}
	l.mutex.Unlock()
	<-l.done
}

// Run schedules f onto the loop. Fails only when the loop is shut
// down. The mutex makes the closed check authoritative: a task
// accepted here is enqueued before Close can fire the quit signal, so
// the drain in Start always reaches it.
func (l *Loop) Run(f func()) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.closed {
		return embercore.WithStack(ErrClosed)
	}
	select {
	case l.tasks <- f:
		return nil
	case <-l.done:
		// Start exited through context cancellation without Close.
		return embercore.WithStack(ErrClosed)
	}
}

// Pending is a delayed continuation that has not run yet.
type Pending struct {
	timer   *time.Timer
	release func()
	once    sync.Once
}

// Cancel stops the continuation if it has not fired. Releases the
// attached resources either way.
func (p *Pending) Cancel() {
	if p.timer.Stop() {
		p.released()
	}
}

func (p *Pending) released() {
	if p.release != nil {
		p.once.Do(p.release)
	}
}

// RunLater schedules f onto the loop after the delay.
func (l *Loop) RunLater(delay time.Duration, f func()) *Pending {
	return l.RunGuarded(delay, nil, f, nil)
}

// RunGuarded schedules f onto the loop after the delay, re-checking
// guard on the loop just before running: a violated guard skips the
// continuation. release runs exactly once after the continuation runs,
// is skipped, or is cancelled; use it to unregister a temporary
// listener. No partial state is left behind on a skip because nothing
// has mutated yet.
func (l *Loop) RunGuarded(delay time.Duration, guard func() bool, f func(), release func()) *Pending {
	p := &Pending{release: release}
	p.timer = time.AfterFunc(delay, func() {
		err := l.Run(func() {
			defer p.released()
			if guard != nil && !guard() {
				return
			}
			f()
		})
		if err != nil {
			p.released()
		}
	})
	return p
}

// Workers is the pool for blocking I/O. Lookups run here; mutations
// never do.
type Workers struct {
	wg  sync.WaitGroup
	sem chan struct{}
}

func NewWorkers(size int) *Workers {
	if size < 1 {
		size = 1
	}
	return &Workers{sem: make(chan struct{}, size)}
}

func (w *Workers) Go(f func()) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.sem <- struct{}{}
		defer func() { <-w.sem }()
		f()
	}()
}

// Wait blocks until all submitted work has finished.
func (w *Workers) Wait() {
	w.wg.Wait()
}

// Job is one async-resume round trip: Lookup blocks on a worker, Apply
// mutates on the loop. Guard is re-checked on the loop before Apply and
// skips it when violated. Failed (optional) also runs on the loop.
type Job[T any] struct {
	Lookup func() (T, error)
	Apply  func(T)
	Guard  func() bool
	Failed func(error)
}

// Dispatch runs the job. The worker goroutine only performs the lookup;
// all state mutation happens in the continuation on the loop.
func Dispatch[T any](w *Workers, l *Loop, job Job[T]) {
	w.Go(func() {
		result, err := job.Lookup()
		submitErr := l.Run(func() {
			if job.Guard != nil && !job.Guard() {
				return
			}
			if err != nil {
				if job.Failed != nil {
					job.Failed(err)
				} else {
					log.Printf("async lookup: %v", err)
				}
				return
			}
			job.Apply(result)
		})
		if submitErr != nil {
			log.Printf("scheduling continuation: %v", submitErr)
		}
	})
}
