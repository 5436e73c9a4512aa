// Copyright 2011 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package nin

import "strings"

// isPathSeparator reports whether c separates path components. Only '/' is
// recognized: the backslash-normalization half of the original (Windows
// paths written with '\', tracked via a slash_bits bitmask so they can be
// converted back for display) is out of scope for this POSIX-first port.
func isPathSeparator(c byte) bool {
	return c == '/'
}

// CanonicalizePath canonicalizes a path like "foo/../bar.h" into "bar.h":
// it collapses "." components, resolves ".." against the preceding
// component where one exists, and collapses repeated separators. It does
// not touch the filesystem, so "ok" cases that would require it (escaping
// above a symlinked directory) aren't distinguished from ordinary ones.
func CanonicalizePath(path string) string {
	out, _ := CanonicalizePathBits(path)
	return out
}

// CanonicalizePathBits is CanonicalizePath, additionally returning a bitmask
// with bit i set if the i'th separator in the output was written as '\\' in
// the input. This port never produces a set bit (see isPathSeparator); the
// bitmask is retained only so callers ported verbatim from the original
// (e.g. the manifest parser's dyndep-path handling) keep the same shape.
func CanonicalizePathBits(path string) (string, uint64) {
	if len(path) == 0 {
		return path, 0
	}

	const maxPathComponents = 60
	var components [maxPathComponents]int // start offsets into dst, indexed by component
	componentCount := 0

	dst := make([]byte, 0, len(path))
	src := 0
	n := len(path)

	if isPathSeparator(path[src]) {
		// A network path starting with "//" keeps both leading slashes;
		// anything else collapses a leading run of separators to one.
		if n > 1 && isPathSeparator(path[src+1]) {
			dst = append(dst, path[src], path[src+1])
			src += 2
		} else {
			dst = append(dst, path[src])
			src++
		}
	}

	for src < n {
		if path[src] == '.' {
			if src+1 == n || isPathSeparator(path[src+1]) {
				// "." component; eliminate it and the separator after it.
				src += 2
				continue
			}
			if src+1 < n && path[src+1] == '.' && (src+2 == n || isPathSeparator(path[src+2])) {
				// ".." component: back up over the previous component if one
				// exists, else keep it literally (can't go above the root).
				if componentCount > 0 {
					dst = dst[:components[componentCount-1]]
					src += 3
					componentCount--
				} else {
					dst = append(dst, path[src], path[src+1])
					if src+2 < n {
						dst = append(dst, path[src+2])
					}
					src += 3
				}
				continue
			}
		}

		if isPathSeparator(path[src]) {
			src++
			continue
		}

		if componentCount == maxPathComponents {
			panic("path has too many components: " + path)
		}
		components[componentCount] = len(dst)
		componentCount++

		for src < n && !isPathSeparator(path[src]) {
			dst = append(dst, path[src])
			src++
		}
		if src < n {
			dst = append(dst, path[src]) // copy the separator too
			src++
		}
	}

	if len(dst) == 0 {
		return ".", 0
	}
	// Drop a single trailing separator the component loop above copied
	// along with its component (there is no final NUL to account for here,
	// unlike the C original).
	if isPathSeparator(dst[len(dst)-1]) {
		dst = dst[:len(dst)-1]
	}
	return string(dst), 0
}

// isKnownShellSafeCharacter reports whether ch never needs escaping inside
// single quotes in a POSIX shell command line.
func isKnownShellSafeCharacter(ch byte) bool {
	if 'A' <= ch && ch <= 'Z' || 'a' <= ch && ch <= 'z' || '0' <= ch && ch <= '9' {
		return true
	}
	switch ch {
	case '_', '+', '-', '.', '/':
		return true
	}
	return false
}

func stringNeedsShellEscaping(input string) bool {
	for i := 0; i < len(input); i++ {
		if !isKnownShellSafeCharacter(input[i]) {
			return true
		}
	}
	return false
}

// GetShellEscapedString appends input to result, single-quoting it for a
// POSIX shell if it contains any character that isn't known-safe
// unquoted; embedded quotes are closed, escaped, and reopened
// ('it'\''s' for it's), the traditional shell idiom since a single-quoted
// string cannot contain a literal single quote.
func GetShellEscapedString(input string, result *strings.Builder) {
	if !stringNeedsShellEscaping(input) {
		result.WriteString(input)
		return
	}

	const quote = '\''
	result.WriteByte(quote)
	spanStart := 0
	for i := 0; i < len(input); i++ {
		if input[i] == quote {
			result.WriteString(input[spanStart:i])
			result.WriteString(`'\''`)
			spanStart = i + 1
		}
	}
	result.WriteString(input[spanStart:])
	result.WriteByte(quote)
}

// SpellcheckString returns the closest match to text among words (edit
// distance <= 3, replacements allowed), or "" if none is close enough.
func SpellcheckString(text string, words ...string) string {
	const maxValidEditDistance = 3
	minDistance := maxValidEditDistance + 1
	result := ""
	for _, w := range words {
		d := editDistance(w, text, true, maxValidEditDistance)
		if d < minDistance {
			minDistance = d
			result = w
		}
	}
	return result
}
