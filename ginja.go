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

import (
	"fmt"
	"os"
	"strings"
)

// Library-internal logging. The CLI layers (cmd/nin) have their own copies
// of these with the same "nin: " prefix convention, since package main can't
// reach these unexported names; both write to the same streams so output
// interleaves correctly regardless of which layer logged it.

func warningf(msg string, s ...interface{}) {
	fmt.Fprintf(os.Stderr, "nin: warning: "+msg+"\n", s...)
}

func errorf(msg string, s ...interface{}) {
	fmt.Fprintf(os.Stderr, "nin: error: "+msg+"\n", s...)
}

func infof(msg string, s ...interface{}) {
	fmt.Fprintf(os.Stdout, "nin: "+msg+"\n", s...)
}

func islatinalpha(c byte) bool {
	// isalpha() is locale-dependent; the manifest grammar only ever deals in
	// ASCII identifiers, so a fixed range is both simpler and correct.
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// stripAnsiEscapeCodes removes all ANSI CSI escape sequences
// (http://www.termsys.demon.co.uk/vtansi.htm) from in, used to compute the
// display width of a build status line that was formatted for a
// color-capable terminal.
func stripAnsiEscapeCodes(in string) string {
	if strings.IndexByte(in, '\x1B') == -1 {
		return in
	}
	var b strings.Builder
	b.Grow(len(in))
	for i := 0; i < len(in); i++ {
		if in[i] != '\x1B' {
			b.WriteByte(in[i])
			continue
		}
		if i+1 >= len(in) {
			break
		}
		if in[i+1] != '[' {
			// Not a CSI; drop just the escape byte and keep scanning.
			continue
		}
		i += 2
		for i < len(in) && !islatinalpha(in[i]) {
			i++
		}
	}
	return b.String()
}
