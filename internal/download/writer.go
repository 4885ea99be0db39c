package download

import (
	"fmt"
	"sync"
)

// flushTarget receives contiguous segments in index order.
// *assemble.Assembler satisfies it.
type flushTarget interface {
	Append(index int, data []byte) error
}

// inOrderWriter buffers out-of-order segment payloads and flushes the
// contiguous prefix to its target. Workers complete segments in any
// order; the target only ever sees index 0, 1, 2, ...
//
// Because the worker pool admits segments in playlist order, the
// pending map holds at most one payload per in-flight worker.
type inOrderWriter struct {
	mu      sync.Mutex
	target  flushTarget
	next    int
	pending map[int][]byte
}

func newInOrderWriter(target flushTarget) *inOrderWriter {
	return &inOrderWriter{
		target:  target,
		pending: make(map[int][]byte),
	}
}

// add records the payload for index and flushes every segment that is
// now contiguous with the already-written prefix. Duplicate indices are
// rejected.
func (w *inOrderWriter) add(index int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if index < w.next {
		return fmt.Errorf("segment %d already flushed", index)
	}
	if _, dup := w.pending[index]; dup {
		return fmt.Errorf("segment %d buffered twice", index)
	}
	w.pending[index] = data

	for {
		data, ok := w.pending[w.next]
		if !ok {
			return nil
		}
		if err := w.target.Append(w.next, data); err != nil {
			return err
		}
		delete(w.pending, w.next)
		w.next++
	}
}

// flushedThrough reports how many segments have been handed to the
// target so far.
func (w *inOrderWriter) flushedThrough() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.next
}

// buffered reports how many payloads are parked waiting for a gap to
// close.
func (w *inOrderWriter) buffered() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}
