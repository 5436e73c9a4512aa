// Copyright 2012 Google Inc. All Rights Reserved.
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
)

var (
	g_explaining             = false
	g_keep_depfile           = false
	g_keep_rsp               = false
	g_experimental_statcache = true
)

func EXPLAIN(f string, i ...interface{}) {
	if g_explaining {
		fmt.Fprintf(os.Stderr, "ninja explain: "+f+"\n", i...)
	}
}

// SetExplaining toggles EXPLAIN() output, for `-d explain`.
func SetExplaining(v bool) { g_explaining = v }

// IsExplaining reports whether EXPLAIN() output is enabled.
func IsExplaining() bool { return g_explaining }

// SetKeepDepfile toggles whether depfiles are kept after the build consumes
// them, for `-d keepdepfile`.
func SetKeepDepfile(v bool) { g_keep_depfile = v }

// KeepDepfile reports whether depfiles should be kept after use.
func KeepDepfile() bool { return g_keep_depfile }

// SetKeepRsp toggles whether rsp files are kept after the build consumes
// them, for `-d keeprsp`.
func SetKeepRsp(v bool) { g_keep_rsp = v }

// KeepRsp reports whether rsp files should be kept after use.
func KeepRsp() bool { return g_keep_rsp }

// SetExperimentalStatcache records the `-d nostatcache` setting.
// RealDiskInterface has no stat cache, so the setting changes no behavior.
func SetExperimentalStatcache(v bool) { g_experimental_statcache = v }

// ExperimentalStatcache reports the value recorded by
// SetExperimentalStatcache.
func ExperimentalStatcache() bool { return g_experimental_statcache }
