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
	"bufio"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/google/renameio"

	"github.com/nin-build/nin/internal/logdiff"
)

// BuildLogUser lets a BuildLog recompaction ask whether a path still
// matters, so entries for outputs no longer named by the manifest are
// dropped instead of preserved forever.
type BuildLogUser interface {
	IsPathDead(path string) bool
}

const buildLogFileSignature = "# ninja log v%d\n"
const buildLogOldestSupportedVersion = 4
const buildLogCurrentVersion = 5

// LogEntry is one build log record: the command that last produced output,
// when it ran, and (for restat rules) the mtime that was actually
// recorded, which may predate the command's own end time.
type LogEntry struct {
	Output      string
	CommandHash uint64
	StartTime   int
	EndTime     int
	Mtime       TimeStamp
}

// HashCommand hashes command the way the build log keys its entries.
// ninja used a 64-bit MurmurHash2; this port uses FNV-1a, a standard-library
// hash of the same class (fast, non-cryptographic, wide enough to make
// collisions a non-concern at build-log scale). As a result, the stored
// hashes of a v5 log written by the original ninja do not match, and every
// such entry looks like a changed command. Pre-v5 logs store the raw command
// text, which Load hashes with HashCommand itself, so they are unaffected.
func HashCommand(command string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(command))
	return h.Sum64()
}

// BuildLog records every command ninja has run, so a rebuild can tell
// whether a command line changed (forcing a rebuild even though mtimes look
// up to date) and, for restat rules, what mtime was last recorded.
type BuildLog struct {
	entries          map[string]*LogEntry
	logFile          *os.File
	logWriter        *bufio.Writer
	logFilePath      string
	needsRecompaction bool

	// Diff, if non-nil, receives a human-readable before/after diff of the
	// log's entries whenever Recompact runs (see internal/logdiff). Left
	// nil in normal operation; set by `ninja -t recompact -v`.
	Diff io.Writer
}

// NewBuildLog returns an empty, unopened BuildLog.
func NewBuildLog() *BuildLog {
	return &BuildLog{entries: map[string]*LogEntry{}}
}

// Entries returns every recorded entry, keyed by output path.
func (b *BuildLog) Entries() map[string]*LogEntry { return b.entries }

// OpenForWrite prepares to append to the log at path, recompacting it
// first if Load flagged it as due. The file itself isn't opened until the
// first RecordCommand or Close.
func (b *BuildLog) OpenForWrite(path string, user BuildLogUser) error {
	if b.needsRecompaction {
		if err := b.Recompact(path, user); err != nil {
			return err
		}
	}
	b.logFilePath = path
	return nil
}

// RecordCommand appends an entry (or updates the in-memory one) for every
// output of edge, and writes it to the log file if one is open.
func (b *BuildLog) RecordCommand(edge *Edge, startTime, endTime int, mtime TimeStamp) error {
	command := edge.EvaluateCommand(true)
	commandHash := HashCommand(command)
	for _, out := range edge.Outputs {
		path := out.Path()
		entry, ok := b.entries[path]
		if !ok {
			entry = &LogEntry{Output: path}
			b.entries[path] = entry
		}
		entry.CommandHash = commandHash
		entry.StartTime = startTime
		entry.EndTime = endTime
		entry.Mtime = mtime

		if err := b.openForWriteIfNeeded(); err != nil {
			return err
		}
		if b.logWriter != nil {
			if err := b.writeEntry(b.logWriter, entry); err != nil {
				return err
			}
			if err := b.logWriter.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close flushes and closes the log file, if one was opened.
func (b *BuildLog) Close() error {
	if err := b.openForWriteIfNeeded(); err != nil {
		return err
	}
	if b.logFile == nil {
		return nil
	}
	err := b.logFile.Close()
	b.logFile = nil
	b.logWriter = nil
	return err
}

func (b *BuildLog) openForWriteIfNeeded() error {
	if b.logFile != nil || b.logFilePath == "" {
		return nil
	}
	f, err := os.OpenFile(b.logFilePath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return err
	}
	b.logFile = f
	b.logWriter = bufio.NewWriter(f)

	fi, err := f.Stat()
	if err != nil {
		return err
	}
	if fi.Size() == 0 {
		if _, err := fmt.Fprintf(b.logWriter, buildLogFileSignature, buildLogCurrentVersion); err != nil {
			return err
		}
		return b.logWriter.Flush()
	}
	return nil
}

// Load reads an existing on-disk log, discarding superseded entries as it
// goes (only the last record for a given output matters). A missing file is
// not an error: a fresh build just has no history yet.
func (b *BuildLog) Load(path string) error {
	defer metricRecord(".ninja_log load")()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64<<10), 1<<20)

	logVersion := 0
	uniqueEntryCount := 0
	totalEntryCount := 0

	for scanner.Scan() {
		line := scanner.Text()
		if logVersion == 0 {
			fmt.Sscanf(line, buildLogFileSignature[:len(buildLogFileSignature)-1], &logVersion)
			if logVersion != 0 && logVersion < buildLogOldestSupportedVersion {
				f.Close()
				os.Remove(path)
				// Don't report this as a failure: an empty log just causes
				// everything to look out of date, which is always safe.
				return nil
			}
			if logVersion != 0 {
				continue
			}
		}

		fields := strings.SplitN(line, "\t", 5)
		if len(fields) < 5 {
			continue
		}
		startTime, _ := strconv.Atoi(fields[0])
		endTime, _ := strconv.Atoi(fields[1])
		restatMtime, _ := strconv.ParseInt(fields[2], 10, 64)
		output := fields[3]
		rest := fields[4]

		entry, ok := b.entries[output]
		if !ok {
			entry = &LogEntry{Output: output}
			b.entries[output] = entry
			uniqueEntryCount++
		}
		totalEntryCount++

		entry.StartTime = startTime
		entry.EndTime = endTime
		entry.Mtime = TimeStamp(restatMtime)
		if logVersion >= 5 {
			hash, _ := strconv.ParseUint(rest, 16, 64)
			entry.CommandHash = hash
		} else {
			entry.CommandHash = HashCommand(rest)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	const minCompactionEntryCount = 100
	const compactionRatio = 3
	if logVersion < buildLogCurrentVersion {
		b.needsRecompaction = true
	} else if totalEntryCount > minCompactionEntryCount && totalEntryCount > uniqueEntryCount*compactionRatio {
		b.needsRecompaction = true
	}

	return nil
}

// LookupByOutput returns the entry recorded for path, or nil.
func (b *BuildLog) LookupByOutput(path string) *LogEntry {
	return b.entries[path]
}

func (b *BuildLog) writeEntry(w *bufio.Writer, entry *LogEntry) error {
	_, err := fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%x\n", entry.StartTime, entry.EndTime, entry.Mtime, entry.Output, entry.CommandHash)
	return err
}

// Recompact rewrites the log from scratch, dropping entries for outputs
// user reports as dead (no longer named by any edge) and writing the
// current version's header. The replacement happens atomically via
// renameio so a crash mid-recompaction never leaves path missing or
// truncated.
func (b *BuildLog) Recompact(path string, user BuildLogUser) error {
	defer metricRecord(".ninja_log recompact")()

	if err := b.Close(); err != nil {
		return err
	}

	var before string
	if b.Diff != nil {
		before = b.snapshotText()
	}

	t, err := renameio.TempFile("", path)
	if err != nil {
		return err
	}
	defer t.Cleanup()

	w := bufio.NewWriter(t)
	if _, err := fmt.Fprintf(w, buildLogFileSignature, buildLogCurrentVersion); err != nil {
		return err
	}

	for output, entry := range b.entries {
		if user != nil && user.IsPathDead(output) {
			delete(b.entries, output)
			continue
		}
		if err := b.writeEntry(w, entry); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if b.Diff != nil {
		fmt.Fprint(b.Diff, logdiff.Render(before, b.snapshotText()))
	}

	return t.CloseAtomicallyReplace()
}

// snapshotText renders the current entries, one per line sorted by output
// path, for use as a Diff before/after image.
func (b *BuildLog) snapshotText() string {
	outputs := make([]string, 0, len(b.entries))
	for output := range b.entries {
		outputs = append(outputs, output)
	}
	sort.Strings(outputs)
	var sb strings.Builder
	for _, output := range outputs {
		entry := b.entries[output]
		fmt.Fprintf(&sb, "%d\t%d\t%d\t%s\t%x\n", entry.StartTime, entry.EndTime, entry.Mtime, entry.Output, entry.CommandHash)
	}
	return sb.String()
}

// Restat re-stats every entry naming one of outputs (or every entry, if
// outputs is empty) and rewrites the log with the refreshed mtimes; used by
// `ninja -t restat`.
func (b *BuildLog) Restat(path string, di DiskInterface, outputs ...string) error {
	defer metricRecord(".ninja_log restat")()

	if err := b.Close(); err != nil {
		return err
	}

	t, err := renameio.TempFile("", path)
	if err != nil {
		return err
	}
	defer t.Cleanup()

	w := bufio.NewWriter(t)
	if _, err := fmt.Fprintf(w, buildLogFileSignature, buildLogCurrentVersion); err != nil {
		return err
	}

	for _, entry := range b.entries {
		restat := len(outputs) == 0
		for _, o := range outputs {
			if o == entry.Output {
				restat = true
				break
			}
		}
		if restat {
			// Stat reports a missing file as (0, nil), not an error; only a
			// genuine stat failure should abort the restat.
			mtime, err := di.Stat(entry.Output)
			if err != nil {
				return err
			}
			entry.Mtime = mtime
		}
		if err := b.writeEntry(w, entry); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return t.CloseAtomicallyReplace()
}
