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
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/google/renameio"
)

// TimeStamp is a file modification time, in nanoseconds since an unspecified
// epoch; only relative comparisons between two TimeStamp values (or against
// 0, meaning "does not exist") are meaningful.
type TimeStamp int64

// FileReader is the minimal interface needed to read a manifest or depfile
// off of disk; it is the subset of DiskInterface the manifest parser and
// depfile/dyndep loaders actually need, so tests can supply an in-memory
// double without implementing the whole of DiskInterface.
//
// ReadFile returns the file's contents with a trailing NUL byte appended:
// the lexer requires NUL-terminated input to detect end-of-file without a
// bounds check on every rule, and this is the one place that invariant can
// be established centrally.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// ErrNotFound is returned (wrapped) by RealDiskInterface.ReadFile when path
// does not exist, so callers can use errors.Is to recover NotFound without a
// second stat.
var ErrNotFound = errors.New("file not found")

// DiskInterface abstracts access to the filesystem so it can be mocked out
// in tests; RealDiskInterface is the implementation that actually hits disk.
type DiskInterface interface {
	FileReader

	// Stat returns the mtime of path, 0 if it does not exist, or an error.
	Stat(path string) (TimeStamp, error)

	// WriteFile writes contents to path, replacing it if it already exists.
	WriteFile(path, contents string) error

	// MakeDirs creates all parent directories for path, like `mkdir -p
	// $(dirname path)`.
	MakeDirs(path string) error

	// RemoveFile removes path. It reports ErrNotFound (via errors.Is) rather
	// than an error if path does not already exist, matching the `rm -f`
	// semantics `ninja -t clean` relies on.
	RemoveFile(path string) error
}

// RealDiskInterface implements DiskInterface against the real filesystem.
// Unlike the original, it does not cache directory listings: that cache
// existed to work around slow per-file stats on Windows network drives, a
// concern this POSIX-first port does not carry (see DESIGN.md).
type RealDiskInterface struct{}

// NewRealDiskInterface returns a RealDiskInterface.
func NewRealDiskInterface() RealDiskInterface {
	return RealDiskInterface{}
}

// Stat implements DiskInterface.
func (RealDiskInterface) Stat(path string) (TimeStamp, error) {
	defer metricRecord("node stat")()
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return -1, err
	}
	mtime := fi.ModTime()
	if mtime.IsZero() {
		// Some environments (e.g. Flatpak) report a zero mtime for files that
		// do exist; treat that as "exists, but ancient" rather than "missing",
		// since 0 is our sentinel for "does not exist".
		return 1, nil
	}
	return TimeStamp(mtime.UnixNano()), nil
}

// WriteFile implements DiskInterface. The write is atomic (write to a
// temporary file that renameio places on the same filesystem as path, then
// rename over path) so a build
// interrupted mid-write (regenerating build.ninja, writing a .rsp file)
// never leaves a half-written file for the next build to trip over.
func (RealDiskInterface) WriteFile(path, contents string) error {
	t, err := renameio.TempFile("", path)
	if err != nil {
		return err
	}
	defer t.Cleanup()
	if _, err := t.Write([]byte(contents)); err != nil {
		return err
	}
	return t.CloseAtomicallyReplace()
}

// MakeDirs implements DiskInterface.
func (r RealDiskInterface) MakeDirs(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}
	return os.MkdirAll(dir, 0777)
}

// ReadFile implements FileReader and DiskInterface. The returned slice has a
// trailing NUL byte appended, per the FileReader contract.
func (RealDiskInterface) ReadFile(path string) ([]byte, error) {
	contents, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errNotFoundPath(path)
		}
		return nil, err
	}
	return append(contents, 0), nil
}

// errNotFoundPath wraps ErrNotFound with the path, kept as a tiny helper
// so both ReadFile and RemoveFile format the same way.
func errNotFoundPath(path string) error {
	return &os.PathError{Op: "open", Path: path, Err: ErrNotFound}
}

// RemoveFile implements DiskInterface.
func (RealDiskInterface) RemoveFile(path string) error {
	// remove() deletes both files and directories on POSIX; os.Remove does
	// the same, so unlike the original there's no separate RemoveDirectory
	// call to pick between.
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return errNotFoundPath(path)
		}
		return err
	}
	return nil
}
