package model

import "net/url"

// EncryptionMethod identifies the cipher declared by an #EXT-X-KEY tag.
type EncryptionMethod string

const (
	// MethodNone means segments are served as plaintext.
	MethodNone EncryptionMethod = "NONE"

	// MethodAES128 means AES-128 in CBC mode with PKCS#7 padding.
	MethodAES128 EncryptionMethod = "AES-128"
)

// EncryptionKey describes the key material needed to decrypt a run of
// segments. URI is absolute (resolved against the playlist URL). IV is
// nil when the playlist declares none; the decryptor then derives the IV
// from the segment index.
type EncryptionKey struct {
	Method EncryptionMethod
	URI    *url.URL
	IV     []byte
}

// ByteRange is an optional sub-range of a segment resource, from
// #EXT-X-BYTERANGE. Length is the number of bytes, Offset the absolute
// start position within the resource.
type ByteRange struct {
	Offset int64
	Length int64
}

// Segment is one addressable chunk of the media stream.
//
// Index is the segment's position in the media playlist, 0-based and
// contiguous; it is the segment's identity and defines the final output
// ordering even when URIs repeat (byte-range playlists address the same
// resource many times).
type Segment struct {
	Index    int
	URI      *url.URL
	Duration float64
	Range    *ByteRange
	Key      *EncryptionKey
}

// Encrypted reports whether the segment needs decryption after fetch.
func (s *Segment) Encrypted() bool {
	return s.Key != nil && s.Key.Method != MethodNone
}

// VariantStream is one quality option listed in a master playlist.
type VariantStream struct {
	URI        *url.URL
	Bandwidth  int64
	Resolution string
}

// MasterPlaylist lists alternate renditions of the same content.
type MasterPlaylist struct {
	URL      *url.URL
	Variants []VariantStream
}

// MediaPlaylist is the ordered segment list for one rendition.
//
// MediaSequence and TargetDuration are carried through from the manifest
// for reporting; neither affects download behaviour for VOD content.
// Ended records whether #EXT-X-ENDLIST was present.
type MediaPlaylist struct {
	URL            *url.URL
	Segments       []*Segment
	TargetDuration float64
	MediaSequence  int64
	Ended          bool
}

// TotalDuration returns the declared duration of all segments in seconds.
func (p *MediaPlaylist) TotalDuration() float64 {
	var total float64
	for _, seg := range p.Segments {
		total += seg.Duration
	}
	return total
}
