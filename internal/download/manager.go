package download

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/RealChuan/hlsget/internal/assemble"
	"github.com/RealChuan/hlsget/internal/config"
	"github.com/RealChuan/hlsget/internal/crypto"
	"github.com/RealChuan/hlsget/internal/model"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrAborted is returned by Run when the job stops because the caller
// cancelled the context rather than because a segment failed.
var ErrAborted = errors.New("download aborted")

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// SegmentFetcher retrieves one segment's raw payload, reporting how
// many attempts it took. *fetch.Fetcher satisfies it.
type SegmentFetcher interface {
	Fetch(ctx context.Context, seg *model.Segment) ([]byte, int, error)
}

// KeyResolver maps a key declaration to key material. *keys.Resolver
// satisfies it.
type KeyResolver interface {
	Resolve(ctx context.Context, ref *model.EncryptionKey) ([]byte, error)
}

// Report summarizes a finished job.
type Report struct {
	JobID    string
	Output   string
	Segments int
	Bytes    int64
	Skipped  []int // indices written as empty placeholders (best-effort only)
}

// Manager coordinates the download of one media playlist.
type Manager struct {
	settings *config.Settings
	fetcher  SegmentFetcher
	keys     KeyResolver

	results []*model.SegmentResult
	skipped []int
	mu      sync.Mutex

	receivedBytes     int64
	completedSegments int32
	totalSegments     int32

	onProgress func(ProgressEvent)
}

// NewManager creates a new download Manager. onProgress may be nil.
func NewManager(settings *config.Settings, fetcher SegmentFetcher, keys KeyResolver, onProgress func(ProgressEvent)) *Manager {
	return &Manager{
		settings:   settings,
		fetcher:    fetcher,
		keys:       keys,
		onProgress: onProgress,
	}
}

// Run downloads every segment of media and assembles the decrypted
// payloads, in playlist order, into outputPath. The output file appears
// only on success; any failure or cancellation leaves no partial output
// behind.
//
// The first segment failure aborts the job unless Settings.BestEffort
// is set, in which case the segment becomes a zero-length placeholder
// and its index is listed in Report.Skipped.
func (m *Manager) Run(ctx context.Context, media *model.MediaPlaylist, outputPath string) (*Report, error) {
	if len(media.Segments) == 0 {
		return nil, errors.New("playlist has no segments")
	}

	jobID := uuid.NewString()
	m.mu.Lock()
	m.results = make([]*model.SegmentResult, len(media.Segments))
	for i := range m.results {
		m.results[i] = &model.SegmentResult{Index: i, State: model.StatePending}
	}
	m.skipped = nil
	m.mu.Unlock()
	atomic.StoreInt32(&m.totalSegments, int32(len(media.Segments)))
	atomic.StoreInt32(&m.completedSegments, 0)
	atomic.StoreInt64(&m.receivedBytes, 0)

	asm, err := assemble.New(outputPath, jobID[:8])
	if err != nil {
		return nil, err
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloading %d segments (%.0fs of media) to %s", len(media.Segments), media.TotalDuration(), outputPath), Level: LevelInfo})

	writer := newInOrderWriter(asm)

	g, gctx := errgroup.WithContext(ctx)
	limit := m.settings.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, seg := range media.Segments {
		seg := seg // capture
		g.Go(func() error {
			return m.process(gctx, seg, writer)
		})
	}

	if err := g.Wait(); err != nil {
		asm.Abort()
		if ctx.Err() != nil {
			m.progress(ProgressEvent{Message: "Download aborted", Level: LevelWarning})
			return nil, ErrAborted
		}
		return nil, err
	}

	bytes, count, err := asm.Finalize()
	if err != nil {
		return nil, err
	}
	if count != len(media.Segments) {
		return nil, fmt.Errorf("assembled %d of %d segments", count, len(media.Segments))
	}

	m.mu.Lock()
	skipped := append([]int(nil), m.skipped...)
	m.mu.Unlock()
	sort.Ints(skipped)

	if len(skipped) > 0 {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Finished %s with %d segments skipped", outputPath, len(skipped)), Level: LevelWarning})
	} else {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Successfully downloaded %s (%d bytes, %d segments)", outputPath, bytes, count), Level: LevelSuccess})
	}

	return &Report{
		JobID:    jobID,
		Output:   outputPath,
		Segments: count,
		Bytes:    bytes,
		Skipped:  skipped,
	}, nil
}

// GetProgress returns current download progress.
func (m *Manager) GetProgress() (received int64, segmentsDone, segmentsTotal int32) {
	return atomic.LoadInt64(&m.receivedBytes),
		atomic.LoadInt32(&m.completedSegments),
		atomic.LoadInt32(&m.totalSegments)
}

// Results returns a snapshot of the per-segment result table.
func (m *Manager) Results() []model.SegmentResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.SegmentResult, len(m.results))
	for i, r := range m.results {
		out[i] = *r
	}
	return out
}

// process runs one segment through fetch, decrypt, and the in-order
// writer. In best-effort mode a failed segment degrades to an empty
// placeholder; writer errors are always fatal.
func (m *Manager) process(ctx context.Context, seg *model.Segment, writer *inOrderWriter) error {
	plain, err := m.produce(ctx, seg)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.fail(seg.Index, err)
		wrapped := fmt.Errorf("segment %d (%s): %w", seg.Index, seg.URI, err)
		if !m.settings.BestEffort {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading segment %d: %v", seg.Index, err), Level: LevelError})
			return wrapped
		}
		m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping segment %d: %v", seg.Index, err), Level: LevelWarning})
		m.mu.Lock()
		m.skipped = append(m.skipped, seg.Index)
		m.mu.Unlock()
		plain = nil
	}

	if err := writer.add(seg.Index, plain); err != nil {
		return err
	}
	atomic.AddInt32(&m.completedSegments, 1)
	return nil
}

// produce fetches and decrypts one segment, advancing its state as it
// goes. The returned buffer is ready for the output file.
func (m *Manager) produce(ctx context.Context, seg *model.Segment) ([]byte, error) {
	if err := m.setState(seg.Index, model.StateDownloading); err != nil {
		return nil, err
	}

	data, attempts, err := m.fetcher.Fetch(ctx, seg)
	m.setAttempts(seg.Index, attempts)
	if err != nil {
		return nil, err
	}
	if attempts > 1 {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Segment %d fetched after %d attempts", seg.Index, attempts), Level: LevelWarning})
	}
	atomic.AddInt64(&m.receivedBytes, int64(len(data)))
	if err := m.setState(seg.Index, model.StateDownloaded); err != nil {
		return nil, err
	}

	plain := data
	if seg.Encrypted() {
		key, kerr := m.keys.Resolve(ctx, seg.Key)
		if kerr != nil {
			return nil, kerr
		}
		plain, err = crypto.DecryptSegment(data, key, seg.Key, seg.Index)
		if err != nil {
			return nil, err
		}
	}
	if err := m.setState(seg.Index, model.StateDecrypted); err != nil {
		return nil, err
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Segment %d done (%d bytes)", seg.Index, len(plain)), Level: LevelVerbose})
	return plain, nil
}

func (m *Manager) setState(index int, next model.SegmentState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.results[index]
	if !r.State.CanTransition(next) {
		return fmt.Errorf("segment %d: illegal state transition %s -> %s", index, r.State, next)
	}
	r.State = next
	return nil
}

func (m *Manager) setAttempts(index, attempts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[index].Attempts = attempts
}

func (m *Manager) fail(index int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.results[index]
	if r.State.CanTransition(model.StateFailed) {
		r.State = model.StateFailed
	}
	r.Err = err
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
