// Package paths implements generic get/set access over a nested,
// heterogeneous assumption document using dotted/bracketed path strings,
// e.g. "assumptions.opex[0].cost_structure.fixed_component.value".
//
// Get tolerates missing intermediates (the caller asks "is there a value
// here?"). Set does not: writing through a path that does not exist in the
// document is a template bug, and Set fails fast with a *PathError before
// any partial mutation can leak out. Set clones only the spine it traverses,
// so the input document is never modified.
package paths

import (
	"fmt"
	"strconv"
	"strings"
)

// SegmentKind distinguishes object keys from array subscripts.
type SegmentKind int

const (
	KindKey SegmentKind = iota
	KindIndex
)

// Segment is one step of a parsed path: either a map key or an array index.
type Segment struct {
	Kind  SegmentKind
	Key   string
	Index int
}

func (s Segment) String() string {
	if s.Kind == KindIndex {
		return fmt.Sprintf("[%d]", s.Index)
	}
	return s.Key
}

// PathError reports a structural failure while resolving a path for writing.
type PathError struct {
	Path    string
	Segment string
	Reason  string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path error at '%s' in '%s': %s", e.Segment, e.Path, e.Reason)
}

// Parse splits a dotted/bracketed path into typed segments.
// "a.b[2].c" -> Key(a), Key(b), Index(2), Key(c)
func Parse(path string) ([]Segment, error) {
	if path == "" {
		return nil, &PathError{Path: path, Segment: "", Reason: "empty path"}
	}

	var segments []Segment
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return nil, &PathError{Path: path, Segment: part, Reason: "empty segment"}
		}

		// Each dot-part may carry trailing [i][j]... subscripts.
		rest := part
		bracket := strings.IndexByte(rest, '[')
		if bracket != 0 {
			key := rest
			if bracket > 0 {
				key = rest[:bracket]
				rest = rest[bracket:]
			} else {
				rest = ""
			}
			segments = append(segments, Segment{Kind: KindKey, Key: key})
		}

		for rest != "" {
			if rest[0] != '[' {
				return nil, &PathError{Path: path, Segment: part, Reason: "malformed subscript"}
			}
			close := strings.IndexByte(rest, ']')
			if close < 2 {
				return nil, &PathError{Path: path, Segment: part, Reason: "unterminated subscript"}
			}
			idx, err := strconv.Atoi(rest[1:close])
			if err != nil || idx < 0 {
				return nil, &PathError{Path: path, Segment: part, Reason: "subscript is not a non-negative integer"}
			}
			segments = append(segments, Segment{Kind: KindIndex, Index: idx})
			rest = rest[close+1:]
		}
	}
	return segments, nil
}

// Get resolves path inside doc. The second return is false when any
// intermediate is missing or of the wrong shape; Get never panics and never
// mutates.
func Get(doc any, path string) (any, bool) {
	segments, err := Parse(path)
	if err != nil {
		return nil, false
	}

	current := doc
	for _, seg := range segments {
		switch seg.Kind {
		case KindKey:
			m, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			current, ok = m[seg.Key]
			if !ok {
				return nil, false
			}
		case KindIndex:
			arr, ok := current.([]any)
			if !ok || seg.Index >= len(arr) {
				return nil, false
			}
			current = arr[seg.Index]
		}
	}
	return current, true
}

// GetNumber resolves path to a float64. JSON decoding yields float64 for all
// numbers; ints are accepted for documents built in Go code.
func GetNumber(doc any, path string) (float64, bool) {
	v, ok := Get(doc, path)
	if !ok {
		return 0, false
	}
	return AsNumber(v)
}

// AsNumber coerces a decoded JSON scalar to float64.
func AsNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Set writes value at path and returns a new document. Only the containers
// along the traversed spine are cloned; untouched subtrees are shared with
// the input. Every intermediate must already exist: drivers may only target
// paths declared in the template.
func Set(doc any, path string, value any) (any, error) {
	segments, err := Parse(path)
	if err != nil {
		return nil, err
	}
	return setSegments(doc, segments, path, value)
}

func setSegments(node any, segments []Segment, fullPath string, value any) (any, error) {
	if len(segments) == 0 {
		return value, nil
	}

	seg := segments[0]
	switch seg.Kind {
	case KindKey:
		m, ok := node.(map[string]any)
		if !ok {
			return nil, &PathError{Path: fullPath, Segment: seg.String(), Reason: "parent is not an object"}
		}
		child, exists := m[seg.Key]
		if !exists {
			return nil, &PathError{Path: fullPath, Segment: seg.String(), Reason: "key does not exist"}
		}
		newChild, err := setSegments(child, segments[1:], fullPath, value)
		if err != nil {
			return nil, err
		}
		clone := make(map[string]any, len(m))
		for k, v := range m {
			clone[k] = v
		}
		clone[seg.Key] = newChild
		return clone, nil

	case KindIndex:
		arr, ok := node.([]any)
		if !ok {
			return nil, &PathError{Path: fullPath, Segment: seg.String(), Reason: "parent is not an array"}
		}
		if seg.Index >= len(arr) {
			return nil, &PathError{Path: fullPath, Segment: seg.String(), Reason: "index out of range"}
		}
		newChild, err := setSegments(arr[seg.Index], segments[1:], fullPath, value)
		if err != nil {
			return nil, err
		}
		clone := make([]any, len(arr))
		copy(clone, arr)
		clone[seg.Index] = newChild
		return clone, nil
	}

	return nil, &PathError{Path: fullPath, Segment: seg.String(), Reason: "unknown segment kind"}
}
