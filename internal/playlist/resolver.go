package playlist

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/RealChuan/hlsget/internal/model"
)

// A master playlist pointing at another master is tolerated once or
// twice (some CDNs chain them) but an unbounded chain is rejected.
const maxMasterDepth = 3

// GetFunc fetches the raw bytes of a remote resource.
type GetFunc func(ctx context.Context, u *url.URL) ([]byte, error)

// Resolver turns a playlist URL or local path into a ready-to-download
// media playlist: it fetches the manifest, parses it, and when the
// manifest is a master playlist, applies the variant policy and recurses
// into the selected rendition.
type Resolver struct {
	get    GetFunc
	policy VariantPolicy
	base   *url.URL
}

// NewResolver creates a Resolver using get for network retrieval and
// policy to choose among master-playlist variants. A nil policy selects
// the highest-bandwidth variant.
func NewResolver(get GetFunc, policy VariantPolicy) *Resolver {
	if policy == nil {
		policy = HighestBandwidth
	}
	return &Resolver{get: get, policy: policy}
}

// SetBase overrides the URL that relative segment and key URIs are
// resolved against. Needed when the manifest is read from a local file
// but its segments live on a remote server.
func (r *Resolver) SetBase(base *url.URL) {
	r.base = base
}

// Resolve loads the manifest at input, which may be an http(s) URL or a
// local file path, and returns the media playlist to download.
func (r *Resolver) Resolve(ctx context.Context, input string) (*model.MediaPlaylist, error) {
	u, err := url.Parse(input)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		data, err := r.get(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("playlist: fetch %s: %w", u, err)
		}
		return r.resolve(ctx, data, u, 0)
	}

	// Local file. Relative URIs resolve against the configured base, or
	// against the file's directory as a last resort (useful in tests).
	data, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("playlist: read %s: %w", input, err)
	}
	base := r.base
	if base == nil {
		abs, err := filepath.Abs(input)
		if err != nil {
			return nil, fmt.Errorf("playlist: resolve path %s: %w", input, err)
		}
		base = &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	}
	return r.resolve(ctx, data, base, 0)
}

func (r *Resolver) resolve(ctx context.Context, data []byte, base *url.URL, depth int) (*model.MediaPlaylist, error) {
	master, media, err := Parse(data, base)
	if err != nil {
		return nil, err
	}
	if media != nil {
		return media, nil
	}

	if depth >= maxMasterDepth {
		return nil, fmt.Errorf("playlist: master playlists nested deeper than %d", maxMasterDepth)
	}

	idx := r.policy(master.Variants)
	if idx < 0 || idx >= len(master.Variants) {
		return nil, fmt.Errorf("playlist: variant policy selected index %d of %d variants", idx, len(master.Variants))
	}
	variant := master.Variants[idx]

	next, err := r.get(ctx, variant.URI)
	if err != nil {
		return nil, fmt.Errorf("playlist: fetch variant %s: %w", variant.URI, err)
	}
	return r.resolve(ctx, next, variant.URI, depth+1)
}
