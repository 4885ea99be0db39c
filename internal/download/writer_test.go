package download

import (
	"bytes"
	"errors"
	"testing"
)

// recordingTarget captures appended segments for inspection.
type recordingTarget struct {
	indices []int
	data    []byte
	err     error
}

func (r *recordingTarget) Append(index int, data []byte) error {
	if r.err != nil {
		return r.err
	}
	r.indices = append(r.indices, index)
	r.data = append(r.data, data...)
	return nil
}

func TestInOrderWriterFlushesContiguousPrefix(t *testing.T) {
	target := &recordingTarget{}
	w := newInOrderWriter(target)

	// Complete out of order; only contiguous runs may reach the target.
	if err := w.add(2, []byte("cc")); err != nil {
		t.Fatal(err)
	}
	if err := w.add(1, []byte("b")); err != nil {
		t.Fatal(err)
	}
	if got := w.flushedThrough(); got != 0 {
		t.Fatalf("flushedThrough = %d before segment 0, want 0", got)
	}
	if got := w.buffered(); got != 2 {
		t.Fatalf("buffered = %d, want 2", got)
	}

	if err := w.add(0, []byte("aaa")); err != nil {
		t.Fatal(err)
	}
	if got := w.flushedThrough(); got != 3 {
		t.Fatalf("flushedThrough = %d, want 3", got)
	}
	if got := w.buffered(); got != 0 {
		t.Fatalf("buffered = %d after flush, want 0", got)
	}

	wantIndices := []int{0, 1, 2}
	for i, idx := range target.indices {
		if idx != wantIndices[i] {
			t.Fatalf("flush order %v, want %v", target.indices, wantIndices)
		}
	}
	if !bytes.Equal(target.data, []byte("aaabcc")) {
		t.Fatalf("target data = %q, want %q", target.data, "aaabcc")
	}
}

func TestInOrderWriterRejectsDuplicates(t *testing.T) {
	w := newInOrderWriter(&recordingTarget{})

	if err := w.add(1, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := w.add(1, []byte("x")); err == nil {
		t.Fatal("expected error for duplicate pending index")
	}

	if err := w.add(0, []byte("y")); err != nil {
		t.Fatal(err)
	}
	// Both 0 and 1 are flushed now.
	if err := w.add(0, []byte("y")); err == nil {
		t.Fatal("expected error for already flushed index")
	}
}

func TestInOrderWriterPropagatesTargetError(t *testing.T) {
	sentinel := errors.New("disk full")
	w := newInOrderWriter(&recordingTarget{err: sentinel})

	if err := w.add(0, []byte("a")); !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want %v", err, sentinel)
	}
}

func TestInOrderWriterEmptyPayload(t *testing.T) {
	target := &recordingTarget{}
	w := newInOrderWriter(target)

	if err := w.add(0, nil); err != nil {
		t.Fatal(err)
	}
	if got := w.flushedThrough(); got != 1 {
		t.Fatalf("flushedThrough = %d, want 1", got)
	}
	if len(target.indices) != 1 || target.indices[0] != 0 {
		t.Fatalf("target saw indices %v, want [0]", target.indices)
	}
}
