package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_Release(t *testing.T) {
	var recycled [][]byte
	data := []byte("buffer")
	c := NewChunk(data).WithReleaseFunc(func(b []byte) { recycled = append(recycled, b) })

	c.Ref()
	c.Release()
	assert.False(t, c.Released())
	assert.Empty(t, recycled)

	c.Release()
	assert.True(t, c.Released())
	require.Len(t, recycled, 1)
	assert.Equal(t, data, recycled[0])

	assert.Panics(t, c.Release)
}

func TestChunk_Header(t *testing.T) {
	assert.False(t, NewChunk([]byte("a")).IsHeader())
	assert.True(t, NewHeaderChunk([]byte("a")).IsHeader())
	assert.Equal(t, 3, NewChunk([]byte("abc")).Len())
}

func Test_chunkQueue(t *testing.T) {
	var q chunkQueue

	assert.True(t, q.enqueue(NewChunk([]byte("a"))))
	assert.False(t, q.enqueue(NewChunk([]byte("b"))))
	assert.False(t, q.empty())

	taken := q.take()
	assert.Len(t, taken, 2)
	assert.True(t, q.empty())
	assert.True(t, q.enqueue(NewChunk([]byte("c"))), "the queue is empty again after take")

	h := NewHeaderChunk([]byte("h"))
	q.captureHeaders([]*Chunk{h})
	assert.Equal(t, 1, q.discardAll())
	assert.False(t, h.Released(), "discarding the queue keeps the headers")

	q.reset()
	assert.True(t, h.Released())
	assert.Empty(t, q.headers)
}
