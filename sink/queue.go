package sink

// chunkQueue holds the chunks waiting for the next request and the captured header set.
// It is guarded by the sink mutex.
type chunkQueue struct {
	queued  []*Chunk
	headers []*Chunk
}

// enqueue appends c and reports whether the queue was empty before.
func (q *chunkQueue) enqueue(c *Chunk) bool {
	wasEmpty := len(q.queued) == 0
	q.queued = append(q.queued, c)
	return wasEmpty
}

// take empties the queue and returns its chunks.
func (q *chunkQueue) take() []*Chunk {
	chunks := q.queued
	q.queued = nil
	return chunks
}

// captureHeaders replaces the header set, releasing the previous one.
func (q *chunkQueue) captureHeaders(chunks []*Chunk) {
	releaseAll(q.headers)
	q.headers = append([]*Chunk(nil), chunks...)
}

// discardAll releases every queued chunk without sending it and returns how many there were.
func (q *chunkQueue) discardAll() int {
	n := len(q.queued)
	releaseAll(q.take())
	return n
}

// reset releases the queued chunks and the header set.
func (q *chunkQueue) reset() {
	q.discardAll()
	releaseAll(q.headers)
	q.headers = nil
}

func (q *chunkQueue) empty() bool {
	return len(q.queued) == 0
}
