package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealEveryAndCancel(t *testing.T) {
	s := New()
	var count atomic.Int32
	task := s.Every(5*time.Millisecond, func() { count.Add(1) })

	assert.Eventually(t, func() bool { return count.Load() >= 3 }, time.Second, time.Millisecond)

	task.Cancel()
	// allow an in-flight tick to settle
	time.Sleep(10 * time.Millisecond)
	after := count.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, count.Load())
}

func TestRealAfterFuncCancel(t *testing.T) {
	s := New()
	var fired atomic.Bool
	task := s.AfterFunc(20*time.Millisecond, func() { fired.Store(true) })
	task.Cancel()

	time.Sleep(50 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestRealAfterFuncFires(t *testing.T) {
	s := New()
	done := make(chan struct{})
	s.AfterFunc(5*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}
