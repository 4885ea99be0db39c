// Package playlist parses HLS-style manifests into the model types.
//
// Two manifest kinds exist: master playlists that list variant streams
// at different bandwidths, and media playlists that list the actual
// segments. Parse detects which kind it was handed; Resolver drives the
// full master → media chain:
//
//	resolver := playlist.NewResolver(client.Get, playlist.HighestBandwidth)
//	media, err := resolver.Resolve(ctx, "https://cdn.example.com/vod/index.m3u8")
//
// Every URI in the result is absolute, resolved against the manifest's
// own URL. Segment indices are assigned in file order, 0-based.
//
// The parser is strict about the tags it understands: a malformed
// duration, byte range, key declaration or IV aborts parsing with a
// *ParseError naming the line, because a half-understood manifest would
// otherwise turn into a silently truncated download.
package playlist
