package region

// A Region is a task-owned bump allocator for transaction-scoped scratch
// memory: synthesized redo rows, decoded record bodies, encode buffers.
// Allocations are only valid until the next Free/FreeAfter; callers that
// need a row to outlive the transaction copy it out first.
type Region struct {
	chunks [][]byte
	used   int
}

const defaultChunkSize = 16 * 1024

// Alloc returns a zeroed slice of n bytes backed by the region.
func (r *Region) Alloc(n int) []byte {
	if n == 0 {
		return nil
	}
	last := len(r.chunks) - 1
	if last < 0 || cap(r.chunks[last])-len(r.chunks[last]) < n {
		size := defaultChunkSize
		if n > size {
			size = n
		}
		r.chunks = append(r.chunks, make([]byte, 0, size))
		last++
	}
	c := r.chunks[last]
	buf := c[len(c) : len(c)+n]
	r.chunks[last] = c[:len(c)+n]
	r.used += n
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

// Copy allocates a region-backed copy of b.
func (r *Region) Copy(b []byte) []byte {
	buf := r.Alloc(len(b))
	copy(buf, b)
	return buf
}

// Used reports the number of bytes currently allocated.
func (r *Region) Used() int {
	return r.used
}

// Free releases everything. The first backing chunk is kept for reuse;
// any further chunks are dropped.
func (r *Region) Free() {
	for i := range r.chunks {
		r.chunks[i] = r.chunks[i][:0]
	}
	if len(r.chunks) > 1 {
		r.chunks = r.chunks[:1]
	}
	r.used = 0
}

// FreeAfter releases everything once the region holds more than limit
// bytes. Long cursor scans call it before each row so the scratch pool
// does not grow without bound.
func (r *Region) FreeAfter(limit int) {
	if r.used > limit {
		r.Free()
	}
}
