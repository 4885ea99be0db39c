package keys

import (
	"encoding/hex"
	"fmt"
	"net/url"

	"github.com/RealChuan/hlsget/internal/model"
)

// ApplyOverride installs a user-supplied key override. The override is
// either 32 hex characters (a literal AES-128 key, installed as the
// resolver's static key) or an http(s) URL the key is fetched from.
//
// Segments that carry no key declaration are rewritten to AES-128 so
// the override applies to the whole playlist, matching servers that
// omit #EXT-X-KEY but still serve encrypted segments. Declared IVs are
// preserved.
func ApplyOverride(r *Resolver, media *model.MediaPlaylist, override string) error {
	if override == "" {
		return nil
	}

	if key, err := hex.DecodeString(override); err == nil && len(key) == keySize {
		if err := r.SetStatic(key); err != nil {
			return err
		}
		forceEncryption(media, nil)
		return nil
	}

	u, err := url.Parse(override)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("key override %q is neither %d hex characters nor an http(s) URL", override, keySize*2)
	}
	forceEncryption(media, u)
	return nil
}

func forceEncryption(media *model.MediaPlaylist, uri *url.URL) {
	for _, seg := range media.Segments {
		if seg.Key == nil || seg.Key.Method == model.MethodNone {
			seg.Key = &model.EncryptionKey{Method: model.MethodAES128, URI: uri}
			continue
		}
		if uri != nil {
			seg.Key.URI = uri
		}
	}
}
