package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsInOrder(t *testing.T) {
	l := NewLoop()
	results := make(chan int, 3)
	for i := 0; i < 3; i++ {
		i := i
		require.True(t, l.Post(func() { results <- i }))
	}
	l.Close()
	<-l.Done()

	close(results)
	var got []int
	for v := range results {
		got = append(got, v)
	}
	assert.Equal(t, []int{0, 1, 2}, got)
}

func TestLoopRejectsAfterClose(t *testing.T) {
	l := NewLoop()
	l.Close()
	l.Close()

	assert.False(t, l.Post(func() {}))

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestLoopDrainsQueuedWorkOnClose(t *testing.T) {
	l := NewLoop()
	gate := make(chan struct{})
	ran := make(chan struct{})

	l.Post(func() { <-gate })
	l.Post(func() { close(ran) })
	l.Close()
	close(gate)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("queued callback was dropped")
	}
	<-l.Done()
}
