// Package assemble writes decrypted segments to the final output file.
//
// The Assembler accepts segment bytes strictly in ascending index order
// (the download coordinator's in-order writer delivers them that way,
// and Append rejects anything else) and streams them into a
// .part file next to the output path. Finalize renames the .part file
// into place, so a crashed or aborted job never leaves a half-written
// file masquerading as a finished download.
package assemble

import (
	"fmt"
	"os"
	"path/filepath"
)

// AssemblyError reports an I/O failure while writing the output
// artifact. Always fatal to the job.
type AssemblyError struct {
	Path string
	Err  error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assemble %s: %v", e.Path, e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }

// Assembler concatenates segment bytes into one output file.
type Assembler struct {
	path     string
	partPath string
	file     *os.File

	next     int
	written  int64
	segments int
}

// New creates an Assembler for the given output path. jobID
// disambiguates the temporary .part file so two jobs aimed at the same
// output cannot trample each other. Parent directories are created as
// needed.
func New(outputPath, jobID string) (*Assembler, error) {
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &AssemblyError{Path: outputPath, Err: err}
		}
	}

	partPath := fmt.Sprintf("%s.%s.part", outputPath, jobID)
	file, err := os.Create(partPath)
	if err != nil {
		return nil, &AssemblyError{Path: partPath, Err: err}
	}

	return &Assembler{path: outputPath, partPath: partPath, file: file}, nil
}

// Append writes one segment's bytes. index must be exactly one past the
// previously appended index, starting at 0.
func (a *Assembler) Append(index int, data []byte) error {
	if index != a.next {
		return &AssemblyError{Path: a.partPath, Err: fmt.Errorf("segment %d appended out of order, expected %d", index, a.next)}
	}

	n, err := a.file.Write(data)
	a.written += int64(n)
	if err != nil {
		return &AssemblyError{Path: a.partPath, Err: err}
	}

	a.next++
	a.segments++
	return nil
}

// Finalize flushes and closes the artifact and moves it to its final
// path. It returns the total bytes written and the segment count for
// verification against the playlist.
func (a *Assembler) Finalize() (int64, int, error) {
	if err := a.file.Sync(); err != nil {
		a.file.Close()
		return 0, 0, &AssemblyError{Path: a.partPath, Err: err}
	}
	if err := a.file.Close(); err != nil {
		return 0, 0, &AssemblyError{Path: a.partPath, Err: err}
	}
	if err := os.Rename(a.partPath, a.path); err != nil {
		return 0, 0, &AssemblyError{Path: a.path, Err: err}
	}
	return a.written, a.segments, nil
}

// Abort discards the partial artifact. Safe to call after a failed
// Append; must not be called after Finalize.
func (a *Assembler) Abort() {
	a.file.Close()
	os.Remove(a.partPath)
}
