// Package scheduler provides the timing primitives used by the presentation
// core: cancellable periodic tasks, one-shot timers and a serial event loop.
//
// A Task returned by Every or AfterFunc guarantees that once Cancel returns no
// new invocation of its callback begins. A callback already running when
// Cancel is called is allowed to finish; owners guard their own state for that
// window.
package scheduler

import (
	"sync/atomic"
	"time"
)

// Task is a handle to a scheduled callback.
type Task interface {
	Cancel()
}

// Scheduler schedules callbacks against a clock.
type Scheduler interface {
	Now() time.Time
	// Every invokes fn once per interval until the returned Task is cancelled.
	Every(interval time.Duration, fn func()) Task
	// AfterFunc invokes fn once after d unless the returned Task is cancelled.
	AfterFunc(d time.Duration, fn func()) Task
}

type realScheduler struct{}

// New returns a Scheduler backed by the wall clock.
func New() Scheduler {
	return realScheduler{}
}

func (realScheduler) Now() time.Time {
	return time.Now()
}

type tickerTask struct {
	cancelled atomic.Bool
	stop      chan struct{}
}

func (t *tickerTask) Cancel() {
	if t.cancelled.CompareAndSwap(false, true) {
		close(t.stop)
	}
}

func (realScheduler) Every(interval time.Duration, fn func()) Task {
	task := &tickerTask{stop: make(chan struct{})}
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-task.stop:
				return
			case <-ticker.C:
				if task.cancelled.Load() {
					return
				}
				fn()
			}
		}
	}()
	return task
}

type timerTask struct {
	cancelled atomic.Bool
	timer     *time.Timer
}

func (t *timerTask) Cancel() {
	t.cancelled.Store(true)
	t.timer.Stop()
}

func (realScheduler) AfterFunc(d time.Duration, fn func()) Task {
	task := &timerTask{}
	task.timer = time.AfterFunc(d, func() {
		if task.cancelled.Load() {
			return
		}
		fn()
	})
	return task
}
