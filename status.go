// Copyright 2016 Google Inc. All Rights Reserved.
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
	"strconv"
	"strings"
)

// Status tracks the state of a build (completion fraction, currently
// running edges) and reports it to the user.
type Status interface {
	PlanHasTotalEdges(total int)
	BuildEdgeStarted(edge *Edge, startTimeMillis int64)
	BuildEdgeFinished(edge *Edge, endTimeMillis int64, success bool, output string)
	BuildLoadDyndeps()
	BuildStarted()
	BuildFinished()

	Info(msg string, args ...interface{})
	Warning(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// StatusPrinter implements Status by printing human-readable progress to
// stdout, overwriting the status line in place on a smart terminal.
type StatusPrinter struct {
	config *BuildConfig

	startedEdges, finishedEdges, totalEdges, runningEdges int
	timeMillis                                            int64

	printer *LinePrinter

	// progressStatusFormat is the NINJA_STATUS template for PrintStatus.
	progressStatusFormat string
	currentRate          slidingRateInfo
}

// slidingRateInfo tracks a moving-average completion rate over the last N
// finished edges, for the %c placeholder.
type slidingRateInfo struct {
	rate       float64
	n          int
	times      []float64
	lastUpdate int
}

func (s *slidingRateInfo) updateRate(updateHint int, timeMillis int64) {
	if updateHint == s.lastUpdate {
		return
	}
	s.lastUpdate = updateHint

	if len(s.times) == s.n {
		s.times = s.times[1:]
	}
	s.times = append(s.times, float64(timeMillis))
	front := s.times[0]
	back := s.times[len(s.times)-1]
	if back != front {
		s.rate = float64(len(s.times)) / ((back - front) / 1e3)
	}
}

// NewStatusPrinter returns a StatusPrinter configured from config and the
// NINJA_STATUS environment variable.
func NewStatusPrinter(config *BuildConfig) *StatusPrinter {
	s := &StatusPrinter{
		config:  config,
		printer: NewLinePrinter(),
		currentRate: slidingRateInfo{
			rate:       -1,
			n:          config.Parallelism,
			lastUpdate: -1,
		},
	}
	// Don't do anything fancy in verbose mode: the full command line is
	// printed for every edge, so there's no status line worth preserving.
	if s.config.Verbosity != Normal {
		s.printer.SetSmartTerminal(false)
	}

	s.progressStatusFormat = os.Getenv("NINJA_STATUS")
	if s.progressStatusFormat == "" {
		s.progressStatusFormat = "[%f/%t] "
	}
	return s
}

func (s *StatusPrinter) PlanHasTotalEdges(total int) {
	s.totalEdges = total
}

func (s *StatusPrinter) BuildEdgeStarted(edge *Edge, startTimeMillis int64) {
	s.startedEdges++
	s.runningEdges++
	s.timeMillis = startTimeMillis
	useConsole := edge.Pool == consolePool
	if useConsole || s.printer.IsSmartTerminal() {
		s.PrintStatus(edge, startTimeMillis)
	}

	if useConsole {
		s.printer.SetConsoleLocked(true)
	}
}

func (s *StatusPrinter) BuildEdgeFinished(edge *Edge, endTimeMillis int64, success bool, output string) {
	s.timeMillis = endTimeMillis
	s.finishedEdges++

	useConsole := edge.Pool == consolePool
	if useConsole {
		s.printer.SetConsoleLocked(false)
	}

	if s.config.Verbosity == Quiet {
		return
	}

	if !useConsole {
		s.PrintStatus(edge, endTimeMillis)
	}

	s.runningEdges--

	// Print the command that is failing before printing its output.
	if !success {
		outputs := ""
		for _, o := range edge.Outputs {
			outputs += o.Path() + " "
		}
		if s.printer.SupportsColor() {
			s.printer.PrintOnNewLine("\x1B[31mFAILED: \x1B[0m" + outputs + "\n")
		} else {
			s.printer.PrintOnNewLine("FAILED: " + outputs + "\n")
		}
		s.printer.PrintOnNewLine(edge.EvaluateCommand(false) + "\n")
	}

	if len(output) != 0 {
		// Subprocess stdout/stderr are piped so ninja can tell whether
		// output is empty. Some compilers (e.g. clang) check
		// isatty(stderr) to decide whether to print colored diagnostics;
		// launching them with a flag that forces color lets ninja support
		// colored output here, and then we strip the escape codes back out
		// again if we're not writing to a smart terminal (so a redirected
		// log doesn't fill up with control characters).
		finalOutput := output
		if !s.printer.SupportsColor() {
			finalOutput = stripAnsiEscapeCodes(output)
		}
		s.printer.PrintOnNewLine(finalOutput)
	}
}

func (s *StatusPrinter) BuildLoadDyndeps() {
	// With -d explain on, start a fresh line before a dyndep file is loaded
	// mid build, when the cursor may be sitting at the end of a status line,
	// so that anything written to stderr during the load doesn't get
	// appended to it; a new status line appears once the build resumes.
	if g_explaining {
		s.printer.PrintOnNewLine("")
	}
}

func (s *StatusPrinter) BuildStarted() {
	s.startedEdges = 0
	s.finishedEdges = 0
	s.runningEdges = 0
}

func (s *StatusPrinter) BuildFinished() {
	s.printer.SetConsoleLocked(false)
	s.printer.PrintOnNewLine("")
}

// formatProgressStatus expands progressStatusFormat's placeholders (see the
// user manual for the list) against the status as of timeMillis. An unknown
// placeholder is reported via Error and yields an empty result, mirroring
// how a malformed $NINJA_STATUS is handled rather than aborting the build.
func (s *StatusPrinter) formatProgressStatus(progressStatusFormat string, timeMillis int64) string {
	var out strings.Builder
	for i := 0; i < len(progressStatusFormat); i++ {
		c := progressStatusFormat[i]
		if c != '%' {
			out.WriteByte(c)
			continue
		}
		i++
		if i >= len(progressStatusFormat) {
			s.Error("unterminated placeholder in $NINJA_STATUS")
			return ""
		}
		switch progressStatusFormat[i] {
		case '%':
			out.WriteByte('%')

		case 's': // Started edges.
			out.WriteString(strconv.Itoa(s.startedEdges))

		case 't': // Total edges.
			out.WriteString(strconv.Itoa(s.totalEdges))

		case 'r': // Running edges.
			out.WriteString(strconv.Itoa(s.runningEdges))

		case 'u': // Unstarted edges.
			out.WriteString(strconv.Itoa(s.totalEdges - s.startedEdges))

		case 'f': // Finished edges.
			out.WriteString(strconv.Itoa(s.finishedEdges))

		case 'o': // Overall finished edges per second.
			if s.timeMillis == 0 {
				out.WriteString("?")
			} else {
				rate := float64(s.finishedEdges) / float64(s.timeMillis) * 1000
				out.WriteString(fmt.Sprintf("%.1f", rate))
			}

		case 'c': // Current rate, averaged over the last -j jobs.
			s.currentRate.updateRate(s.finishedEdges, s.timeMillis)
			if s.currentRate.rate == -1 {
				out.WriteString("?")
			} else {
				out.WriteString(fmt.Sprintf("%.1f", s.currentRate.rate))
			}

		case 'p': // Percentage.
			percent := 0
			if s.totalEdges != 0 {
				percent = (100 * s.finishedEdges) / s.totalEdges
			}
			out.WriteString(fmt.Sprintf("%3d%%", percent))

		case 'e': // Elapsed time.
			out.WriteString(fmt.Sprintf("%.3f", float64(timeMillis)*0.001))

		default:
			s.Error("unknown placeholder '%%%c' in $NINJA_STATUS", progressStatusFormat[i])
			return ""
		}
	}
	return out.String()
}

// PrintStatus prints one status line for edge, unless verbosity suppresses
// it.
func (s *StatusPrinter) PrintStatus(edge *Edge, timeMillis int64) {
	if s.config.Verbosity == Quiet || s.config.Verbosity == NoStatusUpdate {
		return
	}

	forceFullCommand := s.config.Verbosity == Verbose

	toPrint := edge.GetBinding("description")
	if toPrint == "" || forceFullCommand {
		toPrint = edge.GetBinding("command")
	}

	toPrint = s.formatProgressStatus(s.progressStatusFormat, timeMillis) + toPrint

	lineType := ELIDE
	if forceFullCommand {
		lineType = FULL
	}
	s.printer.Print(toPrint, lineType)
}

func (s *StatusPrinter) Warning(msg string, args ...interface{}) {
	warningf(msg, args...)
}

func (s *StatusPrinter) Error(msg string, args ...interface{}) {
	errorf(msg, args...)
}

func (s *StatusPrinter) Info(msg string, args ...interface{}) {
	infof(msg, args...)
}
