// Copyright 2013 Google Inc. All Rights Reserved.
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

	"golang.org/x/term"
)

// LineType says whether the next Print should overwrite the previous status
// line (ELIDE, the common case while a build is progressing) or start a
// fresh one (FULL, used for a line that must remain, like a failing
// command's output).
type LineType int

const (
	FULL LineType = iota
	ELIDE
)

// LinePrinter overwrites the current console line with build status,
// leaving ordinary command output (warnings, errors) on lines of their own.
// On a non-terminal (output redirected to a file, or piped) it falls back to
// printing every line in full, since there is no cursor to rewind.
type LinePrinter struct {
	smartTerminal bool
	supportsColor bool

	haveBlankLine bool
	consoleLocked bool

	// Buffered while the console is locked (a subprocess in the "console"
	// pool is running and has exclusive access to the terminal).
	lineBuffer   string
	lineType     LineType
	outputBuffer string
}

// NewLinePrinter detects whether stdout is a terminal ninja can do cursor
// tricks on, the way the original inspects GetConsoleScreenBufferInfo on
// Windows or isatty+$TERM on POSIX; golang.org/x/term wraps the same
// syscalls portably.
func NewLinePrinter() *LinePrinter {
	l := &LinePrinter{haveBlankLine: true}
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		l.smartTerminal = os.Getenv("TERM") != "dumb"
	}
	l.supportsColor = l.smartTerminal || os.Getenv("CLICOLOR_FORCE") == "1"
	return l
}

// IsSmartTerminal reports whether status lines can be overwritten in place.
func (l *LinePrinter) IsSmartTerminal() bool { return l.smartTerminal }

// SetSmartTerminal overrides terminal detection, for tests and for callers
// that need to force plain output (e.g. `-t ...` tool output piped further).
func (l *LinePrinter) SetSmartTerminal(smart bool) { l.smartTerminal = smart }

// SupportsColor reports whether ANSI color codes are worth emitting.
func (l *LinePrinter) SupportsColor() bool { return l.supportsColor }

// Print outputs line, eliding the rest of the terminal width for LineType
// ELIDE so a shorter subsequent line doesn't leave stale characters behind.
func (l *LinePrinter) Print(line string, lineType LineType) {
	if l.consoleLocked {
		l.lineBuffer = line
		l.lineType = lineType
		return
	}

	if l.smartTerminal {
		fmt.Print("\r")
	}

	if l.smartTerminal && lineType == ELIDE {
		width, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || width <= 0 {
			width = 80
		}
		toPrint := line
		if len(toPrint) > width {
			toPrint = elideMiddle(toPrint, width)
		}
		fmt.Print(toPrint)
		if pad := width - len(toPrint); pad > 0 {
			fmt.Print(strings.Repeat(" ", pad))
		}
		os.Stdout.Sync()
		l.haveBlankLine = false
	} else {
		fmt.Println(line)
	}
}

// elideMiddle shortens line to width columns, dropping the middle and
// marking the cut with "...", the way the original's ElideMiddle does for a
// status line wider than the terminal.
func elideMiddle(line string, width int) string {
	const marker = "..."
	if width < len(marker)+1 || len(line) <= width {
		return line
	}
	half := (width - len(marker)) / 2
	return line[:half] + marker + line[len(line)-(width-half-len(marker)):]
}

// PrintOrBuffer writes data directly to stdout, or buffers it while the
// console is locked for an exclusive subprocess.
func (l *LinePrinter) PrintOrBuffer(data string) {
	if l.consoleLocked {
		l.outputBuffer += data
	} else {
		os.Stdout.WriteString(data)
	}
}

// PrintOnNewLine terminates any in-progress status line (if one is present
// and the terminal is smart) before printing output that must not share a
// line with it, such as a failing command's captured output.
func (l *LinePrinter) PrintOnNewLine(data string) {
	if l.consoleLocked && l.lineBuffer != "" {
		l.outputBuffer += l.lineBuffer + "\n"
		l.lineBuffer = ""
	}
	if !l.haveBlankLine {
		fmt.Println()
	}
	if data != "" {
		l.PrintOrBuffer(data)
	}
	l.haveBlankLine = strings.HasSuffix(data, "\n") || data == ""
}

// SetConsoleLocked toggles whether output is buffered instead of printed
// immediately, for the duration a "console" pool subprocess owns the
// terminal directly. Unlocking flushes anything buffered meanwhile.
func (l *LinePrinter) SetConsoleLocked(locked bool) {
	if l.consoleLocked == locked {
		return
	}
	l.consoleLocked = locked

	if !locked {
		if l.lineBuffer != "" {
			l.Print(l.lineBuffer, l.lineType)
			l.lineBuffer = ""
		}
		if l.outputBuffer != "" {
			os.Stdout.WriteString(l.outputBuffer)
			l.outputBuffer = ""
		}
	}
}
