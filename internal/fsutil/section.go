package fsutil

import (
	"bytes"
	"fmt"
)

// Managed sections are marker-delimited regions inside a shared file that
// lola may rewrite. Everything outside a marker pair is opaque and is
// preserved byte-for-byte.

// ManagedMarkerPrefix is the prefix for all lola ownership markers.
const ManagedMarkerPrefix = "<!-- lola:"

// BeginMarker returns the opening marker line for a section key.
func BeginMarker(key string) string {
	return "<!-- lola:BEGIN " + key + " -->"
}

// EndMarker returns the closing marker line for a section key.
func EndMarker(key string) string {
	return "<!-- lola:END " + key + " -->"
}

// IsManagedFile checks if data contains a lola ownership marker.
func IsManagedFile(data []byte) bool {
	return bytes.Contains(data, []byte(ManagedMarkerPrefix))
}

// SpliceSection replaces the managed section for key in data with body,
// wrapping body in begin/end markers. If no section for key exists the
// block is appended at end-of-file. An opening marker without a matching
// closing marker is an error, never silently repaired.
//
// Appending to a file that does not end in a newline first terminates
// the last line. RemoveSection cannot tell that newline apart from one
// the author wrote, so for such files a splice-then-remove round trip
// leaves the original content plus a single trailing newline.
func SpliceSection(data []byte, key string, body []byte) ([]byte, error) {
	begin := []byte(BeginMarker(key))
	end := []byte(EndMarker(key))

	block := make([]byte, 0, len(begin)+len(body)+len(end)+3)
	block = append(block, begin...)
	block = append(block, '\n')
	block = append(block, body...)
	if len(body) > 0 && body[len(body)-1] != '\n' {
		block = append(block, '\n')
	}
	block = append(block, end...)

	start := bytes.Index(data, begin)
	if start >= 0 {
		rest := data[start+len(begin):]
		stop := bytes.Index(rest, end)
		if stop < 0 {
			return nil, fmt.Errorf("FSU_SECTION_UNTERMINATED: marker %q has no matching end marker", BeginMarker(key))
		}
		spanEnd := start + len(begin) + stop + len(end)
		out := make([]byte, 0, len(data)-(spanEnd-start)+len(block))
		out = append(out, data[:start]...)
		out = append(out, block...)
		out = append(out, data[spanEnd:]...)
		return out, nil
	}

	out := make([]byte, 0, len(data)+len(block)+2)
	out = append(out, data...)
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	if len(out) > 0 {
		out = append(out, '\n')
	}
	out = append(out, block...)
	out = append(out, '\n')
	return out, nil
}

// RemoveSection deletes the managed section for key from data, markers
// included. The second return reports whether a section was found. An
// unterminated marker pair is an error.
func RemoveSection(data []byte, key string) ([]byte, bool, error) {
	begin := []byte(BeginMarker(key))
	end := []byte(EndMarker(key))

	start := bytes.Index(data, begin)
	if start < 0 {
		return data, false, nil
	}
	rest := data[start+len(begin):]
	stop := bytes.Index(rest, end)
	if stop < 0 {
		return nil, false, fmt.Errorf("FSU_SECTION_UNTERMINATED: marker %q has no matching end marker", BeginMarker(key))
	}
	spanEnd := start + len(begin) + stop + len(end)
	// Swallow the newline after the end marker and one preceding blank
	// line so removal does not accumulate gaps.
	if spanEnd < len(data) && data[spanEnd] == '\n' {
		spanEnd++
	}
	if start > 1 && data[start-1] == '\n' && data[start-2] == '\n' {
		start--
	}
	out := make([]byte, 0, len(data)-(spanEnd-start))
	out = append(out, data[:start]...)
	out = append(out, data[spanEnd:]...)
	return out, true, nil
}
