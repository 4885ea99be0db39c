// Package model defines the core data structures used throughout hlsget.
//
// # Playlists
//
// A parsed manifest is either a MasterPlaylist (a list of variant
// streams at different bandwidths) or a MediaPlaylist (the ordered
// segment list that actually gets downloaded):
//
//	media := &model.MediaPlaylist{...}
//	for _, seg := range media.Segments {
//	    fmt.Println(seg.Index, seg.URI)
//	}
//
// Playlists are built once by the playlist package and treated as
// immutable afterwards.
//
// # Segment state
//
// Each segment moves through a fixed state machine during a download:
//
//	Pending → Downloading → Downloaded → Decrypted
//	                 ↘          ↘
//	                    Failed
//
// SegmentState.CanTransition encodes the legal moves; the download
// coordinator owns the per-segment SegmentResult records and is the only
// writer of their state.
package model
