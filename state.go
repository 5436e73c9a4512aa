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
	"sort"
)

// Pool limits how many edges bound to it may run concurrently, tracked by
// total Weight() rather than a plain edge count (so, e.g., a heavy link
// step can be made to count for more than a cheap compile).
type Pool struct {
	Name string

	// Depth is the pool's concurrency limit in weight units; 0 means
	// unlimited (used for the default pool).
	Depth int

	currentUse int
	delayed    []*Edge // kept sorted by (weight, id) ascending; see delayEdge
}

// NewPool returns a Pool named name with the given depth.
func NewPool(name string, depth int) *Pool {
	return &Pool{Name: name, Depth: depth}
}

// isValid reports whether this pool enforces a concurrency limit at all.
func (p *Pool) isValid() bool { return p.Depth > 0 }

// shouldDelayEdge reports whether scheduling another edge right now would
// exceed this pool's depth.
func (p *Pool) shouldDelayEdge() bool {
	return p.Depth != 0 && p.currentUse >= p.Depth
}

// edgeScheduled accounts for edge having started running against this
// pool's depth.
func (p *Pool) edgeScheduled(e *Edge) {
	if p.Depth != 0 {
		p.currentUse += e.Weight()
	}
}

// edgeFinished accounts for edge having finished running.
func (p *Pool) edgeFinished(e *Edge) {
	if p.Depth != 0 {
		p.currentUse -= e.Weight()
	}
}

// delayEdge queues edge to run once capacity frees up, keeping delayed
// ordered by (weight, id) so retrieveReadyEdges drains in a deterministic,
// reproducible order.
func (p *Pool) delayEdge(e *Edge) {
	i := sort.Search(len(p.delayed), func(i int) bool {
		return weightedEdgeLess(e, p.delayed[i])
	})
	p.delayed = append(p.delayed, nil)
	copy(p.delayed[i+1:], p.delayed[i:])
	p.delayed[i] = e
}

// weightedEdgeLess orders by ascending weight, then by ascending id to
// break ties deterministically.
func weightedEdgeLess(a, b *Edge) bool {
	if a.Weight() != b.Weight() {
		return a.Weight() < b.Weight()
	}
	return a.id < b.id
}

// retrieveReadyEdges moves every delayed edge that now fits within depth
// into readySet, removing them from the delayed queue.
func (p *Pool) retrieveReadyEdges(readySet *EdgeSet) {
	for len(p.delayed) > 0 && !p.shouldDelayEdge() {
		e := p.delayed[0]
		p.delayed = p.delayed[1:]
		readySet.Insert(e)
		p.edgeScheduled(e)
	}
}

// Dump prints debugging information about the pool's current usage.
func (p *Pool) Dump() {
	fmt.Printf("%s (%d/%d) ->\n", p.Name, p.currentUse, p.Depth)
	for _, e := range p.delayed {
		fmt.Printf("\t")
		e.Dump("")
	}
}

// defaultPool is every edge's pool unless a `pool = ` binding says
// otherwise; it never delays anything.
var defaultPool = NewPool("", 0)

// consolePool is the built-in pool that serializes every edge bound to it
// and lets them inherit the build's own stdout/stderr, for e.g. an
// interactive sub-build.
var consolePool = NewPool("console", 1)

// State owns every Node, Edge, Pool, and Rule parsed from a manifest, plus
// the root variable scope and the set of default targets.
type State struct {
	// Paths indexes every known Node by its canonical path.
	Paths map[string]*Node

	// Pools indexes every pool declared via `pool NAME` by name; the
	// built-in "" (default) and "console" pools are not included here (use
	// LookupPool, which checks both).
	Pools map[string]*Pool

	// Edges is every build edge, in declaration order.
	Edges []*Edge

	// Bindings is the root variable/rule scope: top-level `name = value`
	// assignments and `rule` blocks live here.
	Bindings *BindingEnv

	// Defaults is the set of targets to build when none are named on the
	// command line, built from `default` statements (or, if none appeared,
	// computed lazily by DefaultNodes from every root node).
	Defaults []*Node
}

// NewState returns an empty State with an empty root scope. The built-in
// default and console pools are not stored in Pools; LookupPool returns them.
func NewState() *State {
	return &State{
		Paths:    map[string]*Node{},
		Pools:    map[string]*Pool{},
		Bindings: NewBindingEnv(nil),
	}
}

// AddPool registers pool. It panics if a pool of the same name (including
// the reserved "" and "console" names) was already registered.
func (s *State) AddPool(pool *Pool) {
	if s.LookupPool(pool.Name) != nil {
		panic("duplicate pool '" + pool.Name + "'")
	}
	s.Pools[pool.Name] = pool
}

// LookupPool returns the pool named name, including the built-in ""
// (default) and "console" pools, or nil.
func (s *State) LookupPool(name string) *Pool {
	switch name {
	case "":
		return defaultPool
	case "console":
		return consolePool
	}
	return s.Pools[name]
}

// addEdge appends a new edge invoking rule and returns it.
func (s *State) addEdge(rule *Rule) *Edge {
	edge := &Edge{Rule: rule, Pool: defaultPool, Env: s.Bindings, id: int32(len(s.Edges))}
	s.Edges = append(s.Edges, edge)
	return edge
}

// GetNode returns the Node for path, creating it (with the given slashBits)
// if this is the first time it's been named.
func (s *State) GetNode(path string, slashBits uint64) *Node {
	if n, ok := s.Paths[path]; ok {
		return n
	}
	n := NewNode(path, slashBits)
	s.Paths[path] = n
	return n
}

// LookupNode returns the Node for path, or nil if path has never been
// named.
func (s *State) LookupNode(path string) *Node {
	return s.Paths[path]
}

// SpellcheckNode returns the closest known path to path, for a "did you
// mean" suggestion, or "" if nothing is close enough.
func (s *State) SpellcheckNode(path string) string {
	words := make([]string, 0, len(s.Paths))
	for p := range s.Paths {
		words = append(words, p)
	}
	sort.Strings(words)
	return SpellcheckString(path, words...)
}

// addIn appends node to edge's inputs and records edge as one of node's
// out-edges.
func (s *State) addIn(edge *Edge, path string, slashBits uint64) {
	node := s.GetNode(path, slashBits)
	edge.Inputs = append(edge.Inputs, node)
	node.AddOutEdge(edge)
}

// addOut appends node to edge's outputs and records edge as node's
// producing edge. It reports false (and does not modify the graph) if
// node is already produced by a different edge.
func (s *State) addOut(edge *Edge, path string, slashBits uint64) bool {
	node := s.GetNode(path, slashBits)
	if node.InEdge != nil {
		return false
	}
	edge.Outputs = append(edge.Outputs, node)
	node.InEdge = edge
	return true
}

// addValidation appends node to edge's validation-only inputs (built if
// out of date, but not treated as something edge itself depends on for
// ordering).
func (s *State) addValidation(edge *Edge, path string, slashBits uint64) {
	node := s.GetNode(path, slashBits)
	edge.Validations = append(edge.Validations, node)
	node.AddOutEdge(edge)
}

// addDefault records path as a default target. It returns an error if path
// has never been named as any edge's output.
func (s *State) addDefault(path string) error {
	node := s.Paths[path]
	if node == nil {
		return fmt.Errorf("unknown target '%s'", path)
	}
	s.Defaults = append(s.Defaults, node)
	return nil
}

// RootNodes returns every node that is not itself an input to another
// edge, i.e. every node only reachable as a final output: the natural set
// of targets to build when nothing is requested and no defaults exist.
func (s *State) RootNodes() []*Node {
	var roots []*Node
	for _, e := range s.Edges {
		for _, out := range e.Outputs {
			if len(out.OutEdges) == 0 {
				roots = append(roots, out)
			}
		}
	}
	return roots
}

// DefaultNodes returns the explicit `default` targets, or RootNodes() if
// none were declared.
func (s *State) DefaultNodes() []*Node {
	if len(s.Defaults) != 0 {
		return s.Defaults
	}
	return s.RootNodes()
}

// Reset clears every node's and edge's cached stat/dirty state, without
// forgetting the graph shape itself, so a fresh RecomputeDirty pass can
// run (e.g. between -t query invocations against a long-lived State).
func (s *State) Reset() {
	for _, n := range s.Paths {
		n.ResetState()
	}
	for _, e := range s.Edges {
		e.OutputsReady = false
		e.DepsLoaded = false
		e.mark = visitNone
	}
}

// Dump prints every known node's and edge's debugging state to stdout.
func (s *State) Dump() {
	paths := make([]string, 0, len(s.Paths))
	for p := range s.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		n := s.Paths[p]
		status := "unknown"
		if n.StatusKnown() {
			if n.Dirty() {
				status = "dirty"
			} else {
				status = "clean"
			}
		}
		fmt.Printf("%s: %s by %p [%d]\n", p, status, n.InEdge, n.id)
	}
	if len(s.Pools) != 0 {
		fmt.Printf("resource_pools:\n")
		for _, pool := range s.Pools {
			if pool.Name != "" {
				pool.Dump()
			}
		}
	}
}
