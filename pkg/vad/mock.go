package vad

import (
	"sync"

	"github.com/realtime-ai/streamview/pkg/media"
)

// MockNode is an AnalysisNode for tests. Every bin reports the same level,
// so the mean magnitude equals the level returned for that read.
type MockNode struct {
	// LevelFunc is consulted on every read. If nil, the level is 0.
	LevelFunc func() byte

	Bins int

	mu        sync.Mutex
	reads     int
	closed    bool
	closeCall int
}

// NewMockNode creates a MockNode that always reports silence.
func NewMockNode() *MockNode {
	return &MockNode{Bins: 256}
}

// NewMockNodeWithLevel creates a MockNode reporting a fixed level.
func NewMockNodeWithLevel(level byte) *MockNode {
	return &MockNode{
		Bins:      256,
		LevelFunc: func() byte { return level },
	}
}

// NewMockNodeWithSequence creates a MockNode reporting levels in order, one
// per read. Once exhausted it keeps reporting the last level.
func NewMockNodeWithSequence(levels []byte) *MockNode {
	idx := 0
	return &MockNode{
		Bins: 256,
		LevelFunc: func() byte {
			if len(levels) == 0 {
				return 0
			}
			level := levels[idx]
			if idx < len(levels)-1 {
				idx++
			}
			return level
		},
	}
}

func (m *MockNode) FrequencyBinCount() int {
	return m.Bins
}

func (m *MockNode) ReadMagnitudes(dst []byte) {
	m.mu.Lock()
	m.reads++
	fn := m.LevelFunc
	m.mu.Unlock()

	var level byte
	if fn != nil {
		level = fn()
	}
	for i := range dst {
		dst[i] = level
	}
}

func (m *MockNode) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.closeCall++
	return nil
}

// Reads returns how many times ReadMagnitudes was called.
func (m *MockNode) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Closed reports whether Close was called.
func (m *MockNode) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// CloseCalls returns how many times Close was called.
func (m *MockNode) CloseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCall
}

// MockFactory hands out MockNodes and records them.
type MockFactory struct {
	// NewNode builds the node for each call. If nil, NewMockNode is used.
	NewNode func(stream *media.Stream) (*MockNode, error)

	mu    sync.Mutex
	nodes []*MockNode
}

func (f *MockFactory) CreateAnalysisNode(stream *media.Stream) (AnalysisNode, error) {
	var (
		node *MockNode
		err  error
	)
	if f.NewNode != nil {
		node, err = f.NewNode(stream)
	} else {
		node = NewMockNode()
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.nodes = append(f.nodes, node)
	f.mu.Unlock()
	return node, nil
}

// Nodes returns every node created so far.
func (f *MockFactory) Nodes() []*MockNode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*MockNode(nil), f.nodes...)
}

var (
	_ AnalysisNode = (*MockNode)(nil)
	_ NodeFactory  = (*MockFactory)(nil)
)
