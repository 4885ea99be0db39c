package assemble

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAssembler_ConcatenatesInOrder(t *testing.T) {
	out := filepath.Join(t.TempDir(), "movie.ts")

	a, err := New(out, "job1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	chunks := [][]byte{[]byte("aaa"), []byte("bb"), []byte("cccc")}
	for i, c := range chunks {
		if err := a.Append(i, c); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}

	written, segments, err := a.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if written != 9 {
		t.Errorf("written = %d, want 9", written)
	}
	if segments != 3 {
		t.Errorf("segments = %d, want 3", segments)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "aaabbcccc" {
		t.Errorf("output = %q", data)
	}
}

func TestAssembler_RejectsOutOfOrder(t *testing.T) {
	out := filepath.Join(t.TempDir(), "movie.ts")

	a, err := New(out, "job1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Abort()

	if err := a.Append(1, []byte("x")); err == nil {
		t.Error("expected error appending index 1 first")
	}
	if err := a.Append(0, []byte("x")); err != nil {
		t.Fatalf("Append(0): %v", err)
	}
	if err := a.Append(0, []byte("x")); err == nil {
		t.Error("expected error appending index 0 twice")
	}
	if err := a.Append(2, []byte("x")); err == nil {
		t.Error("expected error skipping index 1")
	}
}

func TestAssembler_NoPartialFileVisible(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "movie.ts")

	a, err := New(out, "jobX")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Append(0, []byte("data")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// Before Finalize the output path must not exist.
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("final output exists before Finalize")
	}

	if _, _, err := a.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("final output missing after Finalize: %v", err)
	}

	// The .part file must be gone.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries after Finalize, want 1", len(entries))
	}
}

func TestAssembler_AbortRemovesTempState(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "movie.ts")

	a, err := New(out, "jobY")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Append(0, []byte("data")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	a.Abort()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("directory has %d entries after Abort, want 0", len(entries))
	}
}

func TestAssembler_CreatesParentDirs(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "deeper", "movie.ts")

	a, err := New(out, "jobZ")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Append(0, []byte("d")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, _, err := a.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
}
