// Copyright 2023 Google Inc. All Rights Reserved.
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

//go:build !windows

package nin

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// JobserverClient implements the client half of GNU make's jobserver
// protocol: tokens are single bytes shared over a pipe or FIFO between
// cooperating build processes. A token acquired via TryAcquire must be
// returned via Release exactly once; the implicit slot every process gets
// for free is not represented here (see RealCommandRunner.CanRunMore).
type JobserverClient struct {
	r, w *os.File
	// fifo is true when r and w are the same *os.File (single named pipe
	// opened O_RDWR), as opposed to the legacy distinct read/write fd pair.
	fifo bool
}

// ParseMakeflags looks for a --jobserver-auth=... (or the older
// --jobserver-fds=...) argument inside the MAKEFLAGS environment variable
// and returns a client for it. Returns (nil, nil) if makeflags names no
// jobserver, the common case of a build invoked directly rather than as a
// recursive make/ninja invocation.
func ParseMakeflags(makeflags string) (*JobserverClient, error) {
	for _, field := range strings.Fields(makeflags) {
		field = strings.TrimPrefix(field, "--")
		var auth string
		switch {
		case strings.HasPrefix(field, "jobserver-auth="):
			auth = field[len("jobserver-auth="):]
		case strings.HasPrefix(field, "jobserver-fds="):
			auth = field[len("jobserver-fds="):]
		default:
			continue
		}
		return newJobserverClient(auth)
	}
	return nil, nil
}

func newJobserverClient(auth string) (*JobserverClient, error) {
	if path := strings.TrimPrefix(auth, "fifo:"); path != auth {
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		if err != nil {
			return nil, fmt.Errorf("jobserver: opening fifo %s: %w", path, err)
		}
		if err := unix.SetNonblock(int(f.Fd()), true); err != nil {
			f.Close()
			return nil, fmt.Errorf("jobserver: setting fifo nonblocking: %w", err)
		}
		return &JobserverClient{r: f, w: f, fifo: true}, nil
	}

	// Named-semaphore auth (Win32) has no Posix equivalent; anything else
	// is the legacy "R,W" inherited fd pair.
	parts := strings.SplitN(auth, ",", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("jobserver: unsupported --jobserver-auth=%q", auth)
	}
	rfd, err1 := strconv.Atoi(parts[0])
	wfd, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return nil, fmt.Errorf("jobserver: malformed fd pair %q", auth)
	}
	r := os.NewFile(uintptr(rfd), "jobserver-r")
	w := os.NewFile(uintptr(wfd), "jobserver-w")
	if r == nil || w == nil {
		return nil, fmt.Errorf("jobserver: invalid fds in %q", auth)
	}
	if err := unix.SetNonblock(rfd, true); err != nil {
		return nil, fmt.Errorf("jobserver: setting read fd nonblocking: %w", err)
	}
	return &JobserverClient{r: r, w: w}, nil
}

// TryAcquire attempts to read a single token byte without blocking. It
// returns true if a token was acquired (the caller now owns a slot it must
// eventually hand back via Release) or false if none is available right
// now — not an error, just "try again once a running child finishes".
func (j *JobserverClient) TryAcquire() bool {
	if j == nil {
		return false
	}
	var buf [1]byte
	n, err := j.r.Read(buf[:])
	return err == nil && n == 1
}

// Release returns one token acquired by a prior successful TryAcquire.
func (j *JobserverClient) Release() {
	if j == nil {
		return
	}
	buf := [1]byte{'+'}
	j.w.Write(buf[:])
}

// Close releases the fds backing the client. Safe to call on a nil client.
func (j *JobserverClient) Close() error {
	if j == nil {
		return nil
	}
	err := j.r.Close()
	if !j.fifo {
		if werr := j.w.Close(); err == nil {
			err = werr
		}
	}
	return err
}
