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
	"fmt"
	"strings"
)

// existenceStatus tracks whether Node.Stat has run and what it found.
type existenceStatus int32

const (
	existenceStatusUnknown existenceStatus = iota
	existenceStatusMissing
	existenceStatusExists
)

// Node is a file in the dependency graph: a path, whether it's dirty, and
// its mtime.
type Node struct {
	path string

	// Set bits starting from the lowest for backslashes CanonicalizePathBits
	// normalized to forward slashes. See PathDecanonicalized.
	slashBits uint64

	// mtime is -1 until Stat runs, 0 if the file doesn't exist, and
	// otherwise either the actual mtime or (for a phony output) the latest
	// mtime of its dependencies.
	mtime TimeStamp

	exists existenceStatus

	// Dirty is true when the underlying file is out-of-date. Note that
	// Edge.OutputsReady is also consulted when judging which edges to build.
	dirty bool

	// DyndepPending records whether dyndep information is expected for this
	// node but hasn't been loaded yet.
	DyndepPending bool

	// InEdge is the Edge that produces this Node, or nil if none is known.
	InEdge *Edge

	// OutEdges are all the Edges that use this Node as an input.
	OutEdges []*Edge

	// id is a dense integer assigned and used by the deps log.
	id int32
}

// NewNode returns a Node for path, with id unassigned (-1).
func NewNode(path string, slashBits uint64) *Node {
	return &Node{path: path, slashBits: slashBits, mtime: -1, id: -1}
}

// Path returns the node's canonical path.
func (n *Node) Path() string { return n.path }

// SlashBits returns the bitmask used by PathDecanonicalized to restore the
// path's original slash style.
func (n *Node) SlashBits() uint64 { return n.slashBits }

// Mtime returns the node's cached mtime; only meaningful once StatusKnown.
func (n *Node) Mtime() TimeStamp { return n.mtime }

// Dirty reports whether the node is known to be out of date.
func (n *Node) Dirty() bool { return n.dirty }

// SetDirty sets the node's dirty bit directly.
func (n *Node) SetDirty(dirty bool) { n.dirty = dirty }

// MarkDirty marks the node out of date.
func (n *Node) MarkDirty() { n.dirty = true }

// ID returns the node's deps-log id, or -1 if unassigned.
func (n *Node) ID() int32 { return n.id }

// SetID sets the node's deps-log id.
func (n *Node) SetID(id int32) { n.id = id }

// AddOutEdge records edge as consuming this node as an input.
func (n *Node) AddOutEdge(edge *Edge) {
	n.OutEdges = append(n.OutEdges, edge)
}

// StatusKnown reports whether Stat has run (successfully or not) for this
// node.
func (n *Node) StatusKnown() bool { return n.exists != existenceStatusUnknown }

// Exists reports whether the node's underlying file was present at the last
// Stat.
func (n *Node) Exists() bool { return n.exists == existenceStatusExists }

// StatIfNecessary stats the node via di unless its status is already known.
func (n *Node) StatIfNecessary(di DiskInterface) error {
	if n.StatusKnown() {
		return nil
	}
	return n.Stat(di)
}

// Stat populates mtime/exists by calling di.Stat.
func (n *Node) Stat(di DiskInterface) error {
	defer metricRecord("node stat")()
	mtime, err := di.Stat(n.path)
	if err != nil {
		return err
	}
	n.mtime = mtime
	if mtime != 0 {
		n.exists = existenceStatusExists
	} else {
		n.exists = existenceStatusMissing
	}
	return nil
}

// ResetState marks the node as not-yet-stat()ed and not dirty, keeping its
// edges intact; used between RecomputeDirty passes on manifest reload.
func (n *Node) ResetState() {
	n.mtime = -1
	n.exists = existenceStatusUnknown
	n.dirty = false
}

// MarkMissing marks the node as already-stat()ed and missing, without
// touching the disk; used for targets that a dry run assumes don't exist.
func (n *Node) MarkMissing() {
	if n.mtime == -1 {
		n.mtime = 0
	}
	n.exists = existenceStatusMissing
}

// UpdatePhonyMtime advances a missing (phony) node's mtime to mtime if it is
// more recent, so a dependent can read "the latest mtime of my inputs" off
// of mtime() even though the phony target itself never exists on disk.
func (n *Node) UpdatePhonyMtime(mtime TimeStamp) {
	if !n.Exists() && mtime > n.mtime {
		n.mtime = mtime
	}
}

// PathDecanonicalized returns path with every separator that slashBits
// marks as originally a backslash rewritten back to one. This port never
// sets a slashBits bit (see isPathSeparator in util.go), so it is
// functionally a passthrough; kept because build.go's command-line
// formatting uses it unconditionally, matching the original.
func (n *Node) PathDecanonicalized() string {
	return PathDecanonicalized(n.path, n.slashBits)
}

// PathDecanonicalized is the free-function form, used when no Node exists
// yet to hold the pair.
func PathDecanonicalized(path string, slashBits uint64) string {
	if slashBits == 0 {
		return path
	}
	buf := []byte(path)
	for i := range buf {
		if buf[i] == '/' {
			if slashBits&1 != 0 {
				buf[i] = '\\'
			}
			slashBits >>= 1
		}
	}
	return string(buf)
}

// Dump prints debugging information about the node to stdout.
func (n *Node) Dump(prefix string) {
	status := "unknown"
	if n.StatusKnown() {
		if n.Dirty() {
			status = "dirty"
		} else {
			status = "clean"
		}
	}
	fmt.Printf("%s <%s 0x%p> mtime: %d, (%s), this: %p\n", prefix, n.path, n, n.mtime, status, n)
	fmt.Printf("  in-edge: ")
	if n.InEdge != nil {
		n.InEdge.Dump("")
	} else {
		fmt.Printf("none\n")
	}
	fmt.Printf(" out edges:\n")
	for _, e := range n.OutEdges {
		e.Dump("  ")
	}
}

// visitMark is the tri-color mark RecomputeDirty/VerifyDAG use to detect a
// dependency cycle during the DFS over edges.
type visitMark int32

const (
	visitNone visitMark = iota
	visitInStack
	visitDone
)

// Edge is a build statement linking input Nodes to output Nodes via a Rule.
type Edge struct {
	Rule *Rule
	Pool *Pool
	Env  *BindingEnv

	Inputs      []*Node
	Outputs     []*Node
	Validations []*Node
	Dyndep      *Node

	mark visitMark
	id   int32

	OutputsReady          bool
	DepsLoaded            bool
	DepsMissing           bool
	GeneratedByDepLoader  bool

	// Inputs is ordered [explicit][implicit][order-only]; ImplicitDeps and
	// OrderOnlyDeps count the trailing two groups.
	ImplicitDeps  int32
	OrderOnlyDeps int32

	// Outputs is ordered [explicit][implicit]; ImplicitOuts counts the
	// trailing group.
	ImplicitOuts int32
}

// IsImplicit reports whether inputs[index] is an implicit (not order-only)
// dependency.
func (e *Edge) IsImplicit(index int) bool {
	return index >= len(e.Inputs)-int(e.OrderOnlyDeps)-int(e.ImplicitDeps) && !e.IsOrderOnly(index)
}

// IsOrderOnly reports whether inputs[index] is an order-only dependency.
func (e *Edge) IsOrderOnly(index int) bool {
	return index >= len(e.Inputs)-int(e.OrderOnlyDeps)
}

// IsImplicitOut reports whether outputs[index] is an implicit output.
func (e *Edge) IsImplicitOut(index int) bool {
	return index >= len(e.Outputs)-int(e.ImplicitOuts)
}

// IsPhony reports whether this edge invokes the built-in phony rule.
func (e *Edge) IsPhony() bool {
	return e.Rule == phonyRule
}

// Weight is the cost charged against a pool's depth while this edge is
// scheduled; phony edges and ordinary edges both cost 1 (ninja has never
// weighted edges differently in practice, despite the hook existing).
func (e *Edge) Weight() int { return 1 }

// AllInputsReady reports whether every input that is itself an edge's
// output has that edge's outputs ready, i.e. this edge could be scheduled
// right now as far as its inputs are concerned.
func (e *Edge) AllInputsReady() bool {
	for _, i := range e.Inputs {
		if i.InEdge != nil && !i.InEdge.OutputsReady {
			return false
		}
	}
	return true
}

// GetBinding looks up key (e.g. "command", "description") against this
// edge's rule, evaluating it in the edge's scope with $in/$out bound.
func (e *Edge) GetBinding(key string) string {
	env := newEdgeEnv(e, shellEscape)
	return env.LookupVariable(key)
}

// GetBindingBool reports whether key is bound to a non-empty value.
func (e *Edge) GetBindingBool(key string) bool {
	return e.GetBinding(key) != ""
}

// getUnescaped looks up key the way GetBinding does, but without shell
// escaping $in/$out: used for bindings that name a path on disk (rspfile,
// dyndep) rather than a shell command fragment.
func (e *Edge) getUnescaped(key string) string {
	env := newEdgeEnv(e, doNotEscape)
	return env.LookupVariable(key)
}

// GetUnescapedDepfile returns the edge's "depfile" binding, unescaped.
func (e *Edge) GetUnescapedDepfile() string { return e.getUnescaped("depfile") }

// GetUnescapedDyndep returns the edge's "dyndep" binding, unescaped.
func (e *Edge) GetUnescapedDyndep() string { return e.getUnescaped("dyndep") }

// GetUnescapedRspfile returns the edge's "rspfile" binding, unescaped.
func (e *Edge) GetUnescapedRspfile() string { return e.getUnescaped("rspfile") }

// EvaluateCommand returns the evaluated "command" binding. When
// inclRspFile is true and the edge has a non-empty rspfile_content, that
// content is appended to the returned string (not to be run, only so
// callers hashing "the command" for the build log also pick up a change to
// the response-file content).
func (e *Edge) EvaluateCommand(inclRspFile bool) string {
	command := e.GetBinding("command")
	if inclRspFile {
		if rspContent := e.GetBinding("rspfile_content"); rspContent != "" {
			command += ";rspfile=" + rspContent
		}
	}
	return command
}

// MaybePhonycycleDiagnostic reports whether this edge matches the shape
// CMake 2.8.12.x/3.0.x emitted for a self-referencing phony rule (`build a:
// phony ... a ...`), which ninja tolerates by default instead of reporting
// a dependency cycle.
func (e *Edge) MaybePhonycycleDiagnostic() bool {
	return e.IsPhony() && len(e.Outputs) == 1 && e.ImplicitOuts == 0 && e.ImplicitDeps == 0
}

// Dump prints debugging information about the edge to stdout.
func (e *Edge) Dump(prefix string) {
	fmt.Printf("%s[ ", prefix)
	for _, i := range e.Inputs {
		fmt.Printf("%s ", i.Path())
	}
	fmt.Printf("--%s-> ", e.Rule.Name)
	for _, o := range e.Outputs {
		fmt.Printf("%s ", o.Path())
	}
	if e.Pool != nil && e.Pool.Name != "" {
		fmt.Printf("(in pool '%s')", e.Pool.Name)
	}
	fmt.Printf("] 0x%p\n", e)
}

// edgeCmp is not used: EdgeSet gets its deterministic, id-ordered retrieval
// from Take, which picks the lowest id from its backing map.
type edgeCmp struct{}

// EdgeSet is an insertion-order-independent, id-ordered set of edges, as
// used for a pool's ready queue.
type EdgeSet struct {
	m map[*Edge]struct{}
}

// NewEdgeSet returns an empty EdgeSet.
func NewEdgeSet() *EdgeSet { return &EdgeSet{m: map[*Edge]struct{}{}} }

// Insert adds edge to the set.
func (s *EdgeSet) Insert(e *Edge) { s.m[e] = struct{}{} }

// Len returns the number of edges in the set.
func (s *EdgeSet) Len() int { return len(s.m) }

// Take removes and returns the lowest-id edge in the set, or nil if empty.
func (s *EdgeSet) Take() *Edge {
	var best *Edge
	for e := range s.m {
		if best == nil || e.id < best.id {
			best = e
		}
	}
	if best != nil {
		delete(s.m, best)
	}
	return best
}

// escapeKind selects whether EdgeEnv.LookupVariable shell-escapes $in/$out.
type escapeKind int

const (
	shellEscape escapeKind = iota
	doNotEscape
)

// edgeEnv is the Env used to evaluate an edge's bindings: it supplies
// $in/$in_newline/$out/$out_newline directly and falls back to the edge's
// rule/scope chain (via BindingEnv.LookupWithFallback) for everything else.
type edgeEnv struct {
	edge      *Edge
	escape    escapeKind
	recursive bool
	lookups   []string
}

func newEdgeEnv(edge *Edge, escape escapeKind) *edgeEnv {
	return &edgeEnv{edge: edge, escape: escape}
}

// LookupVariable implements Env.
func (e *edgeEnv) LookupVariable(name string) string {
	switch name {
	case "in", "in_newline":
		explicitDepsCount := len(e.edge.Inputs) - int(e.edge.ImplicitDeps) - int(e.edge.OrderOnlyDeps)
		sep := byte(' ')
		if name == "in_newline" {
			sep = '\n'
		}
		return e.makePathList(e.edge.Inputs[:explicitDepsCount], sep)
	case "out", "out_newline":
		explicitOutsCount := len(e.edge.Outputs) - int(e.edge.ImplicitOuts)
		sep := byte(' ')
		if name == "out_newline" {
			sep = '\n'
		}
		return e.makePathList(e.edge.Outputs[:explicitOutsCount], sep)
	}

	if e.recursive {
		for _, l := range e.lookups {
			if l == name {
				panic("cycle in rule variables involving '" + name + "'")
			}
		}
	}

	eval := e.edge.Rule.GetBinding(name)
	if e.recursive && eval != nil {
		e.lookups = append(e.lookups, name)
	}
	e.recursive = true
	return e.edge.Env.LookupWithFallback(name, eval, e)
}

// makePathList joins nodes' decanonicalized paths with sep, shell-escaping
// each one first unless escape is doNotEscape.
func (e *edgeEnv) makePathList(nodes []*Node, sep byte) string {
	var b strings.Builder
	for i, n := range nodes {
		if i != 0 {
			b.WriteByte(sep)
		}
		path := n.PathDecanonicalized()
		if e.escape == shellEscape {
			GetShellEscapedString(path, &b)
		} else {
			b.WriteString(path)
		}
	}
	return b.String()
}

// DepfileParserOptions configures the depfile grammar's one policy knob.
type DepfileParserOptions struct {
	// DepfileDistinctTargetLinesAction governs what happens when a depfile
	// names targets on more than one "out: in..." line: by default this is
	// only a warning (ninja historically tolerated it), but can be promoted
	// to a hard error.
	DepfileDistinctTargetLinesAction DupeEdgeAction
}

// DupeEdgeAction selects how a policy violation that's "probably fine" is
// handled: silently tolerated with a warning, or promoted to a hard error.
// Shared between depfile-target-lines and (conceptually) manifest dupe-edge
// policy, both of which the original treats identically.
type DupeEdgeAction int32

const (
	DupeEdgeActionWarn DupeEdgeAction = iota
	DupeEdgeActionError
)

// ImplicitDepLoader loads the implicit dependencies recorded via an edge's
// "depfile" binding or, for "deps = gcc"/"deps = msvc" edges, the deps log.
type ImplicitDepLoader struct {
	state   *State
	di      DiskInterface
	depsLog *DepsLog
	options DepfileParserOptions
}

// NewImplicitDepLoader returns an ImplicitDepLoader; depsLog may be nil if
// the build isn't using a deps log.
func NewImplicitDepLoader(state *State, depsLog *DepsLog, di DiskInterface, options DepfileParserOptions) ImplicitDepLoader {
	return ImplicitDepLoader{state: state, di: di, depsLog: depsLog, options: options}
}

// DepsLogForTest returns the deps log this loader reads from, if any.
func (l *ImplicitDepLoader) DepsLogForTest() *DepsLog { return l.depsLog }

// LoadDeps loads discovered dependencies for edge, from whichever of
// "depfile" or "deps" the edge's rule specifies (an edge only ever has one:
// the manifest parser doesn't reject both being set, but "deps" is checked
// first, matching the original).
func (l *ImplicitDepLoader) LoadDeps(edge *Edge) (bool, error) {
	depsType := edge.GetBinding("deps")
	if depsType != "" {
		return l.loadDepsFromLog(edge)
	}
	depfile := edge.GetUnescapedDepfile()
	if depfile != "" {
		return l.loadDepFile(edge, depfile)
	}
	// No dependency information is expected.
	edge.DepsMissing = false
	return true, nil
}

// loadDepFile parses path (a Makefile-subset depfile) and appends its
// dependencies to edge's inputs as implicit deps.
func (l *ImplicitDepLoader) loadDepFile(edge *Edge, path string) (bool, error) {
	defer metricRecord("depfile load")()
	content, err := l.di.ReadFile(path)
	if err != nil {
		if edge.GetBindingBool("depfile_optional_for_test") {
			return true, nil
		}
		return false, fmt.Errorf("%s: %w", path, err)
	}

	parser := DepfileParser{}
	if err := parser.Parse(content); err != nil {
		return false, fmt.Errorf("%s: %s", path, err)
	}

	if len(parser.outs) == 0 {
		return false, fmt.Errorf("%s: no outputs declared", path)
	}

	// Check that the depfile's first target is the edge's first output.
	primaryOut := edge.Outputs[0].Path()
	if CanonicalizePath(parser.outs[0]) != CanonicalizePath(primaryOut) {
		return false, fmt.Errorf("%s: depfile mentions '%s' as an output, but no such output was declared", path, parser.outs[0])
	}

	// A depfile naming more than one distinct target (multiple "out: in..."
	// lines) is unusual but produced by some generators: warn (or, if
	// configured, error) about it. The dependencies listed on every line
	// are added below.
	for _, out := range parser.outs[1:] {
		if CanonicalizePath(out) == CanonicalizePath(parser.outs[0]) {
			continue
		}
		msg := fmt.Sprintf("%s: depfile has multiple output paths", path)
		if l.options.DepfileDistinctTargetLinesAction == DupeEdgeActionError {
			return false, errors.New(msg)
		}
		warningf("%s", msg)
		break
	}

	l.preallocateSpace(edge, len(parser.ins))
	for _, in := range parser.ins {
		p, slashBits := CanonicalizePathBits(in)
		node := l.state.GetNode(p, slashBits)
		edge.Inputs = append(edge.Inputs, node)
		node.AddOutEdge(edge)
		edge.ImplicitDeps++
	}
	return true, nil
}

// loadDepsFromLog loads dependencies recorded the last time this edge ran,
// from the deps log, for edges whose rule sets "deps" (gcc/msvc style).
// The edge's own depfile, if any, was already consumed by the command that
// wrote the deps log entry and is not re-read here.
func (l *ImplicitDepLoader) loadDepsFromLog(edge *Edge) (bool, error) {
	if l.depsLog == nil || len(edge.Outputs) == 0 {
		edge.DepsMissing = true
		return true, nil
	}
	out := edge.Outputs[0]
	deps := l.depsLog.GetDeps(out)
	if deps == nil {
		edge.DepsMissing = true
		return false, nil
	}

	// The deps log only recorded what out's mtime was the last time this
	// edge's command ran. If out has since been touched or regenerated by
	// some means this build didn't observe (a stat cache mismatch, a
	// restore from SCM, a parallel unrelated tool), the recorded deps can
	// no longer be trusted: treat them the same as if none were recorded.
	mtime, err := l.di.Stat(out.Path())
	if err != nil {
		return false, err
	}
	if mtime == 0 || mtime > deps.Mtime {
		edge.DepsMissing = true
		return false, nil
	}

	l.preallocateSpace(edge, len(deps.Nodes))
	for _, node := range deps.Nodes {
		edge.Inputs = append(edge.Inputs, node)
		node.AddOutEdge(edge)
		edge.ImplicitDeps++
	}
	return true, nil
}

// preallocateSpace inserts count empty slots into edge's inputs just before
// the order-only deps, so appended implicit deps land in the right segment
// of the [explicit][implicit][order-only] layout.
func (l *ImplicitDepLoader) preallocateSpace(edge *Edge, count int) {
	insertAt := len(edge.Inputs) - int(edge.OrderOnlyDeps)
	grown := make([]*Node, len(edge.Inputs)+count)
	copy(grown, edge.Inputs[:insertAt])
	copy(grown[insertAt+count:], edge.Inputs[insertAt:])
	edge.Inputs = grown[:insertAt]
}

// DependencyScan recomputes the dirty/outputs-ready state of the build
// graph by walking it from the requested targets.
type DependencyScan struct {
	buildLog     *BuildLog
	di           DiskInterface
	depLoader    ImplicitDepLoader
	dyndepLoader DyndepLoader

	// Explanations collects the messages of explain() when non-nil. It is
	// left nil in normal operation; -d explain does not set it.
	Explanations *[]string
}

// NewDependencyScan returns a DependencyScan; buildLog may be nil.
func NewDependencyScan(state *State, buildLog *BuildLog, depsLog *DepsLog, di DiskInterface, options DepfileParserOptions) DependencyScan {
	return DependencyScan{
		buildLog:     buildLog,
		di:           di,
		depLoader:    NewImplicitDepLoader(state, depsLog, di, options),
		dyndepLoader: NewDyndepLoader(state, di),
	}
}

// BuildLog returns the build log this scan consults, if any.
func (d *DependencyScan) BuildLog() *BuildLog { return d.buildLog }

// SetBuildLog replaces the build log this scan consults.
func (d *DependencyScan) SetBuildLog(log *BuildLog) { d.buildLog = log }

// DepsLog returns the deps log this scan's implicit dep loader reads from,
// if any.
func (d *DependencyScan) DepsLog() *DepsLog { return d.depLoader.depsLog }

func (d *DependencyScan) explain(format string, args ...interface{}) {
	if d.Explanations == nil {
		return
	}
	*d.Explanations = append(*d.Explanations, fmt.Sprintf(format, args...))
}

// RecomputeDirty computes whether node (and everything upstream of it) is
// dirty, recursively loading depfiles/dyndep files and consulting the build
// log as needed. It is safe to call repeatedly; already-finished edges are
// skipped.
func (d *DependencyScan) RecomputeDirty(node *Node) error {
	var stack []*Node
	return d.recomputeDirty(node, &stack)
}

func (d *DependencyScan) recomputeDirty(node *Node, stack *[]*Node) error {
	edge := node.InEdge
	if edge == nil {
		// A leaf node (no producing edge) we've already visited is done.
		if node.StatusKnown() {
			return nil
		}
		if err := node.StatIfNecessary(d.di); err != nil {
			return err
		}
		if !node.Exists() {
			d.explain("%s has no in-edge and is missing", node.Path())
		}
		node.SetDirty(!node.Exists())
		return nil
	}

	if edge.mark == visitDone {
		return nil
	}

	if err := d.verifyDAG(node, *stack); err != nil {
		return err
	}

	edge.mark = visitInStack
	*stack = append(*stack, node)
	defer func() {
		*stack = (*stack)[:len(*stack)-1]
		edge.mark = visitDone
	}()

	dirty := false
	edge.OutputsReady = true
	edge.DepsMissing = false

	if !edge.DepsLoaded {
		if edge.Dyndep != nil && edge.Dyndep.DyndepPending {
			if err := d.recomputeDirty(edge.Dyndep, stack); err != nil {
				return err
			}
			if edge.Dyndep.InEdge == nil || edge.Dyndep.InEdge.OutputsReady {
				if err := d.LoadDyndeps(edge.Dyndep); err != nil {
					return err
				}
			}
		}
	}

	for _, o := range edge.Outputs {
		if err := o.StatIfNecessary(d.di); err != nil {
			return err
		}
	}

	if !edge.DepsLoaded {
		edge.DepsLoaded = true
		ok, err := d.depLoader.LoadDeps(edge)
		if err != nil {
			return err
		}
		if !ok {
			// Dependency info is missing or stale: rebuild to regenerate it.
			dirty = true
			edge.DepsMissing = true
		}
	}

	var mostRecentInput *Node
	for i, in := range edge.Inputs {
		if err := d.recomputeDirty(in, stack); err != nil {
			return err
		}

		if inEdge := in.InEdge; inEdge != nil {
			if !inEdge.OutputsReady {
				edge.OutputsReady = false
			}
		}

		if !edge.IsOrderOnly(i) {
			if in.Dirty() {
				d.explain("%s is dirty", in.Path())
				dirty = true
			} else if mostRecentInput == nil || in.Mtime() > mostRecentInput.Mtime() {
				mostRecentInput = in
			}
		}
	}

	if !dirty {
		outputsDirty, err := d.recomputeOutputsDirty(edge, mostRecentInput)
		if err != nil {
			return err
		}
		dirty = outputsDirty
	}

	if dirty {
		for _, o := range edge.Outputs {
			o.MarkDirty()
		}
	}

	// A dirty edge's outputs are not ready, except for a phony edge with no
	// inputs at all, which has nothing to do. A clean edge can still be not
	// ready when an input's producing edge is not ready (see above).
	if dirty && !(edge.IsPhony() && len(edge.Inputs) == 0) {
		edge.OutputsReady = false
	}

	return nil
}

// verifyDAG reports an error if edge (node's producing edge) is already on
// stack, i.e. the graph has a cycle through node.
func (d *DependencyScan) verifyDAG(node *Node, stack []*Node) error {
	edge := node.InEdge
	if edge.mark != visitInStack {
		return nil
	}

	start := 0
	for start < len(stack) && stack[start].InEdge != edge {
		start++
	}

	// Report the cycle starting at node (the edge's own output) rather than
	// whichever other output happened to be visited first: running `ninja b`
	// on `build a b: cat c` / `build c: cat a` should report a -> c -> a, not
	// b -> c -> a.
	cycle := append([]*Node{}, stack[start:]...)
	cycle[0] = node

	var b strings.Builder
	b.WriteString("dependency cycle: ")
	for _, n := range cycle {
		b.WriteString(n.Path())
		b.WriteString(" -> ")
	}
	b.WriteString(node.Path())
	if len(cycle) == 1 && edge.MaybePhonycycleDiagnostic() {
		// The manifest parser would have filtered out a self-referencing
		// phony input unless configured to error instead.
		b.WriteString(" [-w phonycycle=err]")
	}
	return errors.New(b.String())
}

func (d *DependencyScan) recomputeOutputsDirty(edge *Edge, mostRecentInput *Node) (bool, error) {
	command := edge.EvaluateCommand(true)
	for _, o := range edge.Outputs {
		dirty, err := d.recomputeOutputDirty(edge, mostRecentInput, command, o)
		if err != nil {
			return false, err
		}
		if dirty {
			return true, nil
		}
	}
	return false, nil
}

func (d *DependencyScan) recomputeOutputDirty(edge *Edge, mostRecentInput *Node, command string, output *Node) (bool, error) {
	if edge.IsPhony() {
		if len(edge.Inputs) == 0 && !output.Exists() {
			d.explain("output %s of phony edge with no inputs doesn't exist", output.Path())
			return true, nil
		}
		if mostRecentInput != nil {
			output.UpdatePhonyMtime(mostRecentInput.Mtime())
		}
		return false, nil
	}

	if !output.Exists() {
		d.explain("output %s doesn't exist", output.Path())
		return true, nil
	}

	var entry *LogEntry
	outputMtime := output.Mtime()
	usedRestat := false
	if mostRecentInput != nil && outputMtime < mostRecentInput.Mtime() {
		if edge.GetBindingBool("restat") && d.buildLog != nil {
			if e := d.buildLog.LookupByOutput(output.Path()); e != nil {
				entry = e
				outputMtime = e.Mtime
				usedRestat = true
			}
		}
		if outputMtime < mostRecentInput.Mtime() {
			restatNote := ""
			if usedRestat {
				restatNote = "restat of "
			}
			d.explain("%soutput %s older than most recent input %s (%d vs %d)",
				restatNote, output.Path(), mostRecentInput.Path(), outputMtime, mostRecentInput.Mtime())
			return true, nil
		}
	}

	if d.buildLog != nil {
		generator := edge.GetBindingBool("generator")
		if entry == nil {
			entry = d.buildLog.LookupByOutput(output.Path())
		}
		if entry != nil {
			if !generator && HashCommand(command) != entry.CommandHash {
				d.explain("command line changed for %s", output.Path())
				return true, nil
			}
			if mostRecentInput != nil && entry.Mtime < mostRecentInput.Mtime() {
				d.explain("recorded mtime of %s older than most recent input %s (%d vs %d)",
					output.Path(), mostRecentInput.Path(), entry.Mtime, mostRecentInput.Mtime())
				return true, nil
			}
		}
		if entry == nil && !generator {
			d.explain("command line not found in log for %s", output.Path())
			return true, nil
		}
	}

	return false, nil
}

// LoadDyndeps loads and applies the dyndep file named by node, updating the
// edges it describes in place.
func (d *DependencyScan) LoadDyndeps(node *Node) error {
	return d.dyndepLoader.LoadDyndeps(node, nil)
}

// LoadDyndepsInto loads and applies node's dyndep file like LoadDyndeps, and
// also copies the loaded per-edge information into ddf; Builder.LoadDyndeps
// uses it to pass that information on to the plan.
func (d *DependencyScan) LoadDyndepsInto(node *Node, ddf *DyndepFile) error {
	return d.dyndepLoader.LoadDyndeps(node, ddf)
}
