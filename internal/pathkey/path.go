// Package pathkey implements Path, the canonical relative-path value used
// throughout syncd: OS-delimiter-agnostic, traversal-safe, and serializable
// to a single slash-joined wire form.
package pathkey

import (
	"encoding/json"
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalidPath is returned when a Path cannot be constructed because it
// has no usable segments after stripping root/parent/current components.
var ErrInvalidPath = errors.New("pathkey: invalid path")

// Path is an ordered, non-empty sequence of path segments. Two Paths are
// equal iff their segment slices are equal element-wise; the zero value is
// not a valid Path.
type Path struct {
	segments []string
}

// punctuationSegments are rejected outright: parent-dir, current-dir, and
// the home-directory shorthand some shells expand client-side.
var punctuationSegments = map[string]bool{
	"..": true,
	".":  true,
	"~":  true,
}

// FromOSPath builds a Path from a local filesystem path, dropping any
// root, drive-letter, current-dir, or parent-dir components and trimming
// whitespace from each remaining segment. It accepts both '/' and '\\' as
// separators so the same input canonicalizes identically on every OS.
func FromOSPath(s string) (Path, error) {
	return fromDelimited(s)
}

// FromSlashString parses a wire-form ("a/b/c") string identically to
// FromOSPath.
func FromSlashString(s string) (Path, error) {
	return fromDelimited(s)
}

func fromDelimited(s string) (Path, error) {
	replaced := strings.NewReplacer("\\", "/").Replace(s)

	raw := strings.Split(replaced, "/")
	segments := make([]string, 0, len(raw))

	for i, seg := range raw {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}

		// A leading drive letter ("C:") is dropped like a root.
		if i == 0 && len(seg) == 2 && seg[1] == ':' &&
			(seg[0] >= 'a' && seg[0] <= 'z' || seg[0] >= 'A' && seg[0] <= 'Z') {
			continue
		}

		// Bare separators collapse to empty above; a traversal or
		// shorthand component (.., ., ~) is dropped rather than rejecting
		// the whole path, so the rest of the segment's siblings survive.
		if punctuationSegments[seg] {
			continue
		}

		segments = append(segments, norm.NFC.String(seg))
	}

	if len(segments) == 0 {
		return Path{}, ErrInvalidPath
	}

	return Path{segments: segments}, nil
}

// Resolve joins the Path's segments under root, producing an OS-native
// absolute path via the caller-supplied join function semantics (the
// standard library's filepath.Join is the expected caller).
func (p Path) Resolve(root string, join func(elem ...string) string) string {
	elems := make([]string, 0, len(p.segments)+1)
	elems = append(elems, root)
	elems = append(elems, p.segments...)

	return join(elems...)
}

// String returns the slash-delimited wire form, e.g. "a/b/c".
func (p Path) String() string {
	return strings.Join(p.segments, "/")
}

// Segments returns a copy of the underlying segment slice.
func (p Path) Segments() []string {
	out := make([]string, len(p.segments))
	copy(out, p.segments)

	return out
}

// IsZero reports whether p is the zero value (never produced by the
// constructors, but useful for map "not found" checks without a pointer).
func (p Path) IsZero() bool {
	return len(p.segments) == 0
}

// Equal reports structural equality over the segment sequence.
func (p Path) Equal(other Path) bool {
	if len(p.segments) != len(other.segments) {
		return false
	}

	for i := range p.segments {
		if p.segments[i] != other.segments[i] {
			return false
		}
	}

	return true
}

// MarshalJSON serializes the Path as its wire-form string.
func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON parses a wire-form string into p.
func (p *Path) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := FromSlashString(s)
	if err != nil {
		return err
	}

	*p = parsed

	return nil
}
