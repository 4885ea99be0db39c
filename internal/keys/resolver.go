// Package keys fetches and memoizes AES-128 decryption keys.
//
// A playlist typically declares one key shared by hundreds of segments,
// while the download runs many workers; the Resolver guarantees each
// distinct key URI hits the network exactly once regardless of
// concurrency. Failures are memoized too: a key that could not be
// fetched fails every segment that references it without re-fetching.
package keys

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/RealChuan/hlsget/internal/model"
)

const keySize = 16

// KeyFetchError reports that key material could not be obtained or was
// unusable. It is fatal to every segment referencing the key, but not
// to segments under other keys.
type KeyFetchError struct {
	URI string
	Err error
}

func (e *KeyFetchError) Error() string {
	return fmt.Sprintf("key %s: %v", e.URI, e.Err)
}

func (e *KeyFetchError) Unwrap() error { return e.Err }

// GetFunc fetches the raw bytes of a key resource.
type GetFunc func(ctx context.Context, u *url.URL) ([]byte, error)

type entry struct {
	key []byte
	err error
}

// Resolver resolves EncryptionKey references to raw key bytes with
// single-flight fetch semantics: the first caller for a URI performs
// the request, concurrent callers wait for that result, and later
// callers read it from the cache.
type Resolver struct {
	get   GetFunc
	group singleflight.Group

	mu     sync.RWMutex
	cache  map[string]entry
	static []byte
}

// NewResolver creates a Resolver that fetches key bytes with get.
func NewResolver(get GetFunc) *Resolver {
	return &Resolver{get: get, cache: make(map[string]entry)}
}

// SetStatic installs a literal key that answers every resolution
// without touching the network. Used for the user-supplied key
// override.
func (r *Resolver) SetStatic(key []byte) error {
	if len(key) != keySize {
		return &KeyFetchError{URI: "(static)", Err: fmt.Errorf("key must be %d bytes, got %d", keySize, len(key))}
	}
	r.static = key
	return nil
}

// Resolve returns the 16-byte key for ref.
func (r *Resolver) Resolve(ctx context.Context, ref *model.EncryptionKey) ([]byte, error) {
	if r.static != nil {
		return r.static, nil
	}
	if ref == nil || ref.URI == nil {
		return nil, &KeyFetchError{URI: "", Err: fmt.Errorf("no key URI declared")}
	}
	uri := ref.URI.String()

	r.mu.RLock()
	e, ok := r.cache[uri]
	r.mu.RUnlock()
	if ok {
		return e.key, e.err
	}

	v, err, _ := r.group.Do(uri, func() (any, error) {
		key, err := r.fetch(ctx, ref.URI)
		r.mu.Lock()
		r.cache[uri] = entry{key: key, err: err}
		r.mu.Unlock()
		return key, err
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (r *Resolver) fetch(ctx context.Context, u *url.URL) ([]byte, error) {
	data, err := r.get(ctx, u)
	if err != nil {
		return nil, &KeyFetchError{URI: u.String(), Err: err}
	}
	if len(data) != keySize {
		return nil, &KeyFetchError{URI: u.String(), Err: fmt.Errorf("expected %d key bytes, got %d", keySize, len(data))}
	}
	return data, nil
}
