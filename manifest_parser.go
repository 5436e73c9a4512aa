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

// ManifestParserConcurrency selects whether subninja files are read
// serially, in parseSubninja, or prefetched off the main parse goroutine as
// soon as the statement is seen (see manifestParserConcurrent.subninjas).
type ManifestParserConcurrency int32

const (
	// ParseManifestSerial reads and processes subninja files one at a time,
	// in the order they're encountered. This is the most compatible mode:
	// a `subninja` can observe bindings set by an `include` that runs before
	// it even if both live in the same file.
	ParseManifestSerial ManifestParserConcurrency = iota

	// ParseManifestConcurrent reads subninja files from background goroutines
	// as soon as their statement is parsed, deferring processing (applying
	// their effect to State) until the current file finishes. This hides
	// file I/O latency behind CPU-bound parsing of the rest of the manifest.
	ParseManifestConcurrent
)

// ParseManifestOpts controls manifest parsing behavior.
type ParseManifestOpts struct {
	// ErrOnDupeEdge makes it an error for two build edges to produce the same
	// output; by default it is only a warning.
	ErrOnDupeEdge bool

	// ErrOnPhonyCycle makes a phony rule that lists itself as an input a hard
	// error; by default it is a warning and the self-reference is dropped.
	ErrOnPhonyCycle bool

	// Quiet suppresses the warnings ErrOnDupeEdge/ErrOnPhonyCycle would
	// otherwise print when they're not promoted to errors.
	Quiet bool

	// Concurrency selects how subninja files are prefetched; see
	// ManifestParserConcurrency.
	Concurrency ManifestParserConcurrency
}

// ManifestParser parses a .ninja file's contents into a State.
type ManifestParser interface {
	// Parse parses filename (whose contents are input) and applies its
	// effects to the State given to NewManifestParser.
	Parse(filename string, input []byte) error
}

// NewManifestParser returns a ManifestParser that reads included and
// subninja files via fr and records rules/edges/pools into state.
func NewManifestParser(state *State, fr FileReader, opts ParseManifestOpts) ManifestParser {
	if opts.Concurrency == ParseManifestSerial {
		return &manifestParserSerial{
			fr:      fr,
			options: opts,
			state:   state,
			env:     state.Bindings,
		}
	}
	return &manifestParserConcurrent{
		fr:      fr,
		options: opts,
		state:   state,
		env:     state.Bindings,
	}
}

// ParseManifest is a convenience wrapper around NewManifestParser for
// callers that don't need to hold on to the parser (everything but the top
// level subninja/include machinery, which constructs sub-parsers directly so
// it can share m.env instead of m.state.Bindings).
func ParseManifest(state *State, fr FileReader, opts ParseManifestOpts, filename string, input []byte) error {
	return NewManifestParser(state, fr, opts).Parse(filename, input)
}
