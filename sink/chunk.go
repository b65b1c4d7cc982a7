package sink

import (
	"sync/atomic"
)

// Chunk is an immutable piece of the uploaded stream.
// It is reference counted so that a producer can recycle its buffer once the sink is done with it.
type Chunk struct {
	data    []byte
	header  bool
	refs    atomic.Int32
	release func([]byte)
}

// NewChunk wraps data in a Chunk holding one reference. data must not be modified afterwards.
func NewChunk(data []byte) *Chunk {
	c := &Chunk{data: data}
	c.refs.Store(1)
	return c
}

// NewHeaderChunk wraps data in a Chunk flagged as a stream header.
// Header chunks pushed in-band are never sent as payload: the captured header set is.
func NewHeaderChunk(data []byte) *Chunk {
	c := NewChunk(data)
	c.header = true
	return c
}

// WithReleaseFunc sets fn to be called with the chunk data when the last reference is released.
func (c *Chunk) WithReleaseFunc(fn func([]byte)) *Chunk {
	c.release = fn
	return c
}

// Bytes returns the chunk data.
func (c *Chunk) Bytes() []byte {
	return c.data
}

// Len returns the chunk size in bytes.
func (c *Chunk) Len() int {
	return len(c.data)
}

// IsHeader reports whether the chunk is a stream header.
func (c *Chunk) IsHeader() bool {
	return c.header
}

// Ref adds a reference and returns c.
func (c *Chunk) Ref() *Chunk {
	c.refs.Add(1)
	return c
}

// Release drops a reference. The release func runs when the last one is gone.
func (c *Chunk) Release() {
	n := c.refs.Add(-1)
	if n == 0 && c.release != nil {
		c.release(c.data)
	}
	if n < 0 {
		panic("sink: chunk released more times than referenced")
	}
}

// Released reports whether every reference was dropped.
func (c *Chunk) Released() bool {
	return c.refs.Load() <= 0
}

func releaseAll(chunks []*Chunk) {
	for _, c := range chunks {
		c.Release()
	}
}
