// Copyright 2015 Google Inc. All Rights Reserved.
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

import (
	"sort"
	"strings"
)

// CLParser filters the output of MSVC's cl.exe, which emits included headers
// on stdout in a funny format when building with /showIncludes. It splits
// that output into the recorded include list and whatever's left, which
// should still be printed to the user.
type CLParser struct {
	includes map[string]struct{}
}

// NewCLParser returns an empty CLParser.
func NewCLParser() *CLParser {
	return &CLParser{includes: map[string]struct{}{}}
}

const clDepsPrefixEnglish = "Note: including file: "

// FilterShowIncludes returns the included path named by a /showIncludes
// line, or "" if line isn't one.
func FilterShowIncludes(line, depsPrefix string) string {
	prefix := depsPrefix
	if prefix == "" {
		prefix = clDepsPrefixEnglish
	}
	if !strings.HasPrefix(line, prefix) {
		return ""
	}
	return strings.TrimLeft(line[len(prefix):], " ")
}

// IsSystemInclude reports whether path looks like a toolchain/SDK header.
// Filtering these out keeps depfiles from growing unboundedly with headers
// that never change.
func IsSystemInclude(path string) bool {
	path = strings.ToLower(path)
	// TODO: this is a heuristic, perhaps there's a better way?
	return strings.Contains(path, "program files") || strings.Contains(path, "microsoft visual studio")
}

// FilterInputFilename reports whether line looks like cl.exe echoing the
// name of the source file it's compiling, which ninja drops rather than
// passes through.
func FilterInputFilename(line string) bool {
	line = strings.ToLower(line)
	// TODO: other extensions, like .asm?
	for _, ext := range []string{".c", ".cc", ".cxx", ".cpp"} {
		if strings.HasSuffix(line, ext) {
			return true
		}
	}
	return false
}

// Parse filters output, the raw combined stdout+stderr of a cl.exe
// invocation, returning the text that should still be printed. Every
// /showIncludes line is consumed into c's recorded include set instead of
// being passed through. Matches the non-Windows-normalizer code path from
// the original: paths are canonicalized with CanonicalizePath rather than
// made relative to a build directory, since nothing in this port's build
// runs cl.exe from anywhere but the current directory.
func (c *CLParser) Parse(output, depsPrefix string) (string, error) {
	defer metricRecord("CLParser::Parse")()

	var filtered strings.Builder
	seenShowIncludes := false

	start := 0
	for start < len(output) {
		end := strings.IndexAny(output[start:], "\r\n")
		if end == -1 {
			end = len(output)
		} else {
			end += start
		}
		line := output[start:end]

		if include := FilterShowIncludes(line, depsPrefix); include != "" {
			seenShowIncludes = true
			normalized := CanonicalizePath(include)
			if !IsSystemInclude(normalized) {
				c.includes[normalized] = struct{}{}
			}
		} else if !seenShowIncludes && FilterInputFilename(line) {
			// cl.exe echoing the input filename; drop it.
			// TODO: if we support compiling multiple output files in a
			// single cl.exe invocation, we should stash the filename.
		} else {
			filtered.WriteString(line)
			filtered.WriteString("\n")
		}

		if end < len(output) && output[end] == '\r' {
			end++
		}
		if end < len(output) && output[end] == '\n' {
			end++
		}
		start = end
	}

	return filtered.String(), nil
}

// Includes returns the filtered, sorted list of headers discovered by Parse.
func (c *CLParser) Includes() []string {
	out := make([]string, 0, len(c.includes))
	for inc := range c.includes {
		out = append(out, inc)
	}
	sort.Strings(out)
	return out
}
