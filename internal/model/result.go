package model

// SegmentState is the download lifecycle state of a single segment.
type SegmentState string

const (
	// StatePending means no worker has claimed the segment yet.
	StatePending SegmentState = "Pending"

	// StateDownloading means a worker is fetching the segment body.
	StateDownloading SegmentState = "Downloading"

	// StateDownloaded means the raw bytes arrived but are not yet usable.
	StateDownloaded SegmentState = "Downloaded"

	// StateDecrypted is the terminal success state: bytes are plaintext
	// and ready for assembly. Unencrypted segments pass through it too.
	StateDecrypted SegmentState = "Decrypted"

	// StateFailed is the terminal failure state.
	StateFailed SegmentState = "Failed"
)

// String returns the string representation of the state.
func (s SegmentState) String() string {
	return string(s)
}

// Terminal reports whether no further transition is possible.
func (s SegmentState) Terminal() bool {
	return s == StateDecrypted || s == StateFailed
}

// CanTransition reports whether moving from s to next is a legal step of
// the segment state machine. Decrypted is only reachable from
// Downloaded; Failed only from the two in-flight states.
func (s SegmentState) CanTransition(next SegmentState) bool {
	switch s {
	case StatePending:
		return next == StateDownloading
	case StateDownloading:
		return next == StateDownloaded || next == StateFailed
	case StateDownloaded:
		return next == StateDecrypted || next == StateFailed
	default:
		return false
	}
}

// SegmentResult tracks one segment's progress through the pipeline.
//
// Results are owned exclusively by the download coordinator: workers
// receive a Segment description and hand back bytes, they never share a
// live SegmentResult. Bytes is non-nil only between decryption and the
// in-order flush to the assembler.
type SegmentResult struct {
	Index    int
	State    SegmentState
	Bytes    []byte
	Attempts int
	Err      error
}
