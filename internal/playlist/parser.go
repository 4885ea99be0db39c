package playlist

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/RealChuan/hlsget/internal/model"
)

// Manifest tags recognized by the parser. Unknown tags are ignored, the
// usual posture for HLS clients; malformed values of known tags are not.
const (
	tagHeader         = "#EXTM3U"
	tagStreamInf      = "#EXT-X-STREAM-INF:"
	tagInf            = "#EXTINF:"
	tagKey            = "#EXT-X-KEY:"
	tagByteRange      = "#EXT-X-BYTERANGE:"
	tagTargetDuration = "#EXT-X-TARGETDURATION:"
	tagMediaSequence  = "#EXT-X-MEDIA-SEQUENCE:"
	tagEndList        = "#EXT-X-ENDLIST"
)

// ParseError reports a malformed manifest. A corrupt manifest must never
// produce a silently truncated download, so any value the parser cannot
// make sense of is fatal.
type ParseError struct {
	Line int
	Text string
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("playlist: line %d: %s (%q)", e.Line, e.Msg, e.Text)
}

func parseErr(line int, text, format string, a ...any) *ParseError {
	return &ParseError{Line: line, Text: text, Msg: fmt.Sprintf(format, a...)}
}

// Parse parses raw manifest text fetched from base. Every URI in the
// result (segments, keys, variants) is resolved to an absolute URL
// against base. The concrete result is a master playlist when
// #EXT-X-STREAM-INF tags are present and a media playlist otherwise.
func Parse(data []byte, base *url.URL) (*model.MasterPlaylist, *model.MediaPlaylist, error) {
	lines := splitLines(string(data))

	if len(lines) == 0 || strings.TrimSpace(lines[0]) != tagHeader {
		return nil, nil, parseErr(1, firstLine(lines), "missing %s header", tagHeader)
	}

	if isMaster(lines) {
		master, err := parseMaster(lines, base)
		return master, nil, err
	}
	media, err := parseMedia(lines, base)
	return nil, media, err
}

func firstLine(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}

func splitLines(data string) []string {
	raw := strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n")
	// Trailing blank lines are noise, interior ones are kept so line
	// numbers in errors stay honest.
	for len(raw) > 0 && strings.TrimSpace(raw[len(raw)-1]) == "" {
		raw = raw[:len(raw)-1]
	}
	return raw
}

func isMaster(lines []string) bool {
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), tagStreamInf) {
			return true
		}
	}
	return false
}

func parseMaster(lines []string, base *url.URL) (*model.MasterPlaylist, error) {
	master := &model.MasterPlaylist{URL: base}

	var pending *model.VariantStream
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		lineNo := i + 1

		switch {
		case strings.HasPrefix(line, tagStreamInf):
			attrs, err := parseAttributes(line[len(tagStreamInf):])
			if err != nil {
				return nil, parseErr(lineNo, line, "bad attribute list: %v", err)
			}
			variant := &model.VariantStream{Resolution: attrs["RESOLUTION"]}
			if bw, ok := attrs["BANDWIDTH"]; ok {
				n, err := strconv.ParseInt(bw, 10, 64)
				if err != nil {
					return nil, parseErr(lineNo, line, "bad BANDWIDTH %q", bw)
				}
				variant.Bandwidth = n
			}
			pending = variant

		case line == "" || strings.HasPrefix(line, "#"):
			continue

		default:
			if pending == nil {
				// A bare URI in a master playlist without a preceding
				// stream-inf tag has nothing to describe it.
				return nil, parseErr(lineNo, line, "variant URI without %s", strings.TrimSuffix(tagStreamInf, ":"))
			}
			u, err := resolveURI(base, line)
			if err != nil {
				return nil, parseErr(lineNo, line, "bad variant URI: %v", err)
			}
			pending.URI = u
			master.Variants = append(master.Variants, *pending)
			pending = nil
		}
	}

	if len(master.Variants) == 0 {
		return nil, parseErr(len(lines), "", "master playlist has no variants")
	}
	return master, nil
}

func parseMedia(lines []string, base *url.URL) (*model.MediaPlaylist, error) {
	media := &model.MediaPlaylist{URL: base}

	var (
		currentKey *model.EncryptionKey
		duration   float64
		haveInf    bool
		nextRange  *model.ByteRange
		prevRange  *model.ByteRange
	)

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		lineNo := i + 1

		switch {
		case strings.HasPrefix(line, tagInf):
			// #EXTINF:<duration>,[<title>]
			val := line[len(tagInf):]
			if idx := strings.Index(val, ","); idx >= 0 {
				val = val[:idx]
			}
			d, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
			if err != nil || d < 0 {
				return nil, parseErr(lineNo, line, "bad segment duration %q", val)
			}
			duration = d
			haveInf = true

		case strings.HasPrefix(line, tagByteRange):
			br, err := parseByteRange(line[len(tagByteRange):], prevRange)
			if err != nil {
				return nil, parseErr(lineNo, line, "bad byte range: %v", err)
			}
			nextRange = br

		case strings.HasPrefix(line, tagKey):
			key, err := parseKey(line[len(tagKey):], base)
			if err != nil {
				return nil, parseErr(lineNo, line, "bad key declaration: %v", err)
			}
			currentKey = key

		case strings.HasPrefix(line, tagTargetDuration):
			d, err := strconv.ParseFloat(line[len(tagTargetDuration):], 64)
			if err != nil {
				return nil, parseErr(lineNo, line, "bad target duration")
			}
			media.TargetDuration = d

		case strings.HasPrefix(line, tagMediaSequence):
			n, err := strconv.ParseInt(line[len(tagMediaSequence):], 10, 64)
			if err != nil {
				return nil, parseErr(lineNo, line, "bad media sequence")
			}
			media.MediaSequence = n

		case line == tagEndList:
			media.Ended = true

		case line == "" || strings.HasPrefix(line, "#"):
			continue

		default:
			if !haveInf {
				return nil, parseErr(lineNo, line, "segment URI without preceding %s", strings.TrimSuffix(tagInf, ":"))
			}
			u, err := resolveURI(base, line)
			if err != nil {
				return nil, parseErr(lineNo, line, "bad segment URI: %v", err)
			}
			seg := &model.Segment{
				Index:    len(media.Segments),
				URI:      u,
				Duration: duration,
				Range:    nextRange,
				Key:      currentKey,
			}
			media.Segments = append(media.Segments, seg)

			if nextRange != nil {
				prevRange = nextRange
			}
			nextRange = nil
			duration = 0
			haveInf = false
		}
	}

	if len(media.Segments) == 0 {
		return nil, parseErr(len(lines), "", "media playlist has no segments")
	}
	return media, nil
}

// parseByteRange parses "<length>[@<offset>]". Without an explicit
// offset the range continues where the previous one ended; a leading
// range with no offset is unresolvable and therefore malformed.
func parseByteRange(val string, prev *model.ByteRange) (*model.ByteRange, error) {
	length, offsetStr, hasOffset := strings.Cut(val, "@")

	n, err := strconv.ParseInt(strings.TrimSpace(length), 10, 64)
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("invalid length %q", length)
	}

	br := &model.ByteRange{Length: n}
	if hasOffset {
		off, err := strconv.ParseInt(strings.TrimSpace(offsetStr), 10, 64)
		if err != nil || off < 0 {
			return nil, fmt.Errorf("invalid offset %q", offsetStr)
		}
		br.Offset = off
	} else {
		if prev == nil {
			return nil, fmt.Errorf("no offset and no previous range to continue")
		}
		br.Offset = prev.Offset + prev.Length
	}
	return br, nil
}

// parseKey parses the attribute list of an #EXT-X-KEY tag.
func parseKey(val string, base *url.URL) (*model.EncryptionKey, error) {
	attrs, err := parseAttributes(val)
	if err != nil {
		return nil, err
	}

	switch model.EncryptionMethod(attrs["METHOD"]) {
	case model.MethodNone:
		// METHOD=NONE switches subsequent segments back to plaintext.
		return nil, nil
	case model.MethodAES128:
	default:
		return nil, fmt.Errorf("unsupported METHOD %q", attrs["METHOD"])
	}

	uriAttr, ok := attrs["URI"]
	if !ok || uriAttr == "" {
		return nil, fmt.Errorf("AES-128 key without URI")
	}
	u, err := resolveURI(base, uriAttr)
	if err != nil {
		return nil, fmt.Errorf("bad key URI: %w", err)
	}

	key := &model.EncryptionKey{Method: model.MethodAES128, URI: u}
	if ivAttr, ok := attrs["IV"]; ok {
		iv, err := parseIV(ivAttr)
		if err != nil {
			return nil, err
		}
		key.IV = iv
	}
	return key, nil
}

func parseIV(val string) ([]byte, error) {
	s := strings.TrimPrefix(strings.TrimPrefix(val, "0x"), "0X")
	iv, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("IV is not valid hex: %q", val)
	}
	if len(iv) != 16 {
		return nil, fmt.Errorf("IV must be 16 bytes, got %d", len(iv))
	}
	return iv, nil
}

// parseAttributes parses an HLS attribute list: comma-separated
// KEY=VALUE pairs where VALUE may be a quoted string containing commas.
func parseAttributes(val string) (map[string]string, error) {
	attrs := make(map[string]string)

	rest := val
	for rest != "" {
		eq := strings.Index(rest, "=")
		if eq < 0 {
			return nil, fmt.Errorf("attribute without value: %q", rest)
		}
		name := strings.TrimSpace(rest[:eq])
		if name == "" {
			return nil, fmt.Errorf("attribute without name: %q", rest)
		}
		rest = rest[eq+1:]

		var value string
		if strings.HasPrefix(rest, `"`) {
			end := strings.Index(rest[1:], `"`)
			if end < 0 {
				return nil, fmt.Errorf("unterminated quoted value for %s", name)
			}
			value = rest[1 : end+1]
			rest = rest[end+2:]
			rest = strings.TrimPrefix(rest, ",")
		} else {
			if idx := strings.Index(rest, ","); idx >= 0 {
				value = rest[:idx]
				rest = rest[idx+1:]
			} else {
				value = rest
				rest = ""
			}
		}
		attrs[name] = strings.TrimSpace(value)
	}
	return attrs, nil
}

// resolveURI resolves ref against base per standard URI-resolution rules.
// Absolute refs pass through untouched.
func resolveURI(base *url.URL, ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return u, nil
	}
	return base.ResolveReference(u), nil
}
