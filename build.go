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

// EdgeResult is the outcome Plan.EdgeFinished records for a completed edge.
type EdgeResult int

const (
	EdgeFailed EdgeResult = iota
	EdgeSucceeded
)

// Want enumerates what the plan wants done with an edge.
type Want int

const (
	// WantNothing means we don't want to build the edge, but we might want
	// to build one of its dependents.
	WantNothing Want = iota
	// WantToStart means we want to build the edge but haven't scheduled it.
	WantToStart
	// WantToFinish means we want to build the edge, have scheduled it, and
	// are waiting for it to complete.
	WantToFinish
)

// Plan tracks which edges a build intends to run and which are ready to go.
type Plan struct {
	// want records, for every edge we might build, what we want done with
	// it. An edge absent from want is not part of the plan at all.
	want map[*Edge]Want

	ready *EdgeSet

	builder *Builder

	// commandEdges is the total number of edges with commands (not phony).
	commandEdges int

	// wantedEdges is the total remaining number of wanted edges.
	wantedEdges int
}

// NewPlan returns an empty Plan. builder may be nil in tests that never
// load dyndep files, the only thing that reaches back into the Builder.
func NewPlan(builder *Builder) *Plan {
	return &Plan{want: map[*Edge]Want{}, ready: NewEdgeSet(), builder: builder}
}

// MoreToDo reports whether there's more work to be done.
func (p *Plan) MoreToDo() bool {
	return p.wantedEdges > 0 && p.commandEdges > 0
}

// CommandEdgeCount returns the number of edges with commands to run.
func (p *Plan) CommandEdgeCount() int { return p.commandEdges }

// Reset clears the want and ready sets.
func (p *Plan) Reset() {
	p.commandEdges = 0
	p.wantedEdges = 0
	p.ready = NewEdgeSet()
	p.want = map[*Edge]Want{}
}

// AddTarget adds target (and everything it depends on) to the plan.
func (p *Plan) AddTarget(target *Node) error {
	return p.addSubTarget(target, nil, nil)
}

func (p *Plan) addSubTarget(node, dependent *Node, dyndepWalk map[*Edge]struct{}) error {
	edge := node.InEdge
	if edge == nil { // Leaf node.
		if node.Dirty() {
			referenced := ""
			if dependent != nil {
				referenced = fmt.Sprintf(", needed by '%s',", dependent.Path())
			}
			return fmt.Errorf("'%s'%s missing and no known rule to make it", node.Path(), referenced)
		}
		return nil
	}

	if edge.OutputsReady {
		return nil // Don't need to do anything.
	}

	want, alreadyVisited := p.want[edge]
	if !alreadyVisited {
		want = WantNothing
		p.want[edge] = want
	}

	if dyndepWalk != nil && want == WantToFinish {
		return nil // Already-scheduled edge; nothing more to do.
	}

	// If we do need to build edge and we haven't already marked it as
	// wanted, mark it now.
	if node.Dirty() && want == WantNothing {
		want = WantToStart
		p.want[edge] = want
		p.edgeWanted(edge)
		if dyndepWalk == nil && edge.AllInputsReady() {
			if err := p.scheduleWork(edge); err != nil {
				return err
			}
		}
	}

	if dyndepWalk != nil {
		dyndepWalk[edge] = struct{}{}
	}

	if alreadyVisited {
		return nil // We've already processed the inputs.
	}

	for _, in := range edge.Inputs {
		if err := p.addSubTarget(in, node, dyndepWalk); err != nil {
			return err
		}
	}
	return nil
}

func (p *Plan) edgeWanted(edge *Edge) {
	p.wantedEdges++
	if !edge.IsPhony() {
		p.commandEdges++
	}
}

// FindWork pops a ready edge off the queue of edges to build, or nil if
// there's no work to do.
func (p *Plan) FindWork() *Edge {
	if p.ready.Len() == 0 {
		return nil
	}
	return p.ready.Take()
}

// scheduleWork submits edge (already marked WantToStart) as a candidate
// for execution. The edge may be delayed, e.g. if its pool is full.
func (p *Plan) scheduleWork(edge *Edge) error {
	want := p.want[edge]
	if want == WantToFinish {
		// This edge has already been scheduled. We can get here again if an
		// edge and one of its dependencies share an order-only input, or a
		// node is an output of more than one edge. Don't schedule it twice.
		return nil
	}
	if want != WantToStart {
		return fmt.Errorf("internal error: scheduleWork called on edge with want=%d", want)
	}
	p.want[edge] = WantToFinish

	pool := edge.Pool
	if pool == nil {
		pool = defaultPool
	}
	if pool.shouldDelayEdge() {
		pool.delayEdge(edge)
		pool.retrieveReadyEdges(p.ready)
	} else {
		pool.edgeScheduled(edge)
		p.ready.Insert(edge)
	}
	return nil
}

// EdgeFinished marks edge as done building (whether it succeeded or
// failed). If any of the edge's outputs are dyndep bindings of their
// dependents, LoadDyndeps will be triggered from NodeFinished.
func (p *Plan) EdgeFinished(edge *Edge, result EdgeResult) error {
	want, ok := p.want[edge]
	if !ok {
		return fmt.Errorf("internal error: EdgeFinished on edge not in plan")
	}
	directlyWanted := want != WantNothing

	// See if this job frees up any delayed jobs.
	pool := edge.Pool
	if pool == nil {
		pool = defaultPool
	}
	if directlyWanted {
		pool.edgeFinished(edge)
	}
	pool.retrieveReadyEdges(p.ready)

	// The rest of this function only applies to successful commands.
	if result != EdgeSucceeded {
		return nil
	}

	if directlyWanted {
		p.wantedEdges--
	}
	delete(p.want, edge)
	edge.OutputsReady = true

	// Check off any nodes we were waiting for with this edge.
	for _, o := range edge.Outputs {
		if err := p.NodeFinished(o); err != nil {
			return err
		}
	}
	return nil
}

// NodeFinished updates the plan with knowledge that node is up to date. If
// node is a dyndep binding on any of its dependents, this triggers loading
// dynamic dependencies from the node's path.
func (p *Plan) NodeFinished(node *Node) error {
	if node.DyndepPending {
		if p.builder == nil {
			return fmt.Errorf("internal error: dyndep requires Plan to have a Builder")
		}
		// Load the now-clean dyndep file. This will also update the build
		// plan and schedule any new work that is ready.
		return p.builder.LoadDyndeps(node)
	}

	for _, edge := range node.OutEdges {
		if _, ok := p.want[edge]; !ok {
			continue
		}
		if err := p.edgeMaybeReady(edge); err != nil {
			return err
		}
	}
	return nil
}

func (p *Plan) edgeMaybeReady(edge *Edge) error {
	if edge.AllInputsReady() {
		if p.want[edge] != WantNothing {
			return p.scheduleWork(edge)
		}
		// We do not need to build this edge, but we might need to build
		// one of its dependents.
		return p.EdgeFinished(edge, EdgeSucceeded)
	}
	return nil
}

// CleanNode cleans node during the build, propagating the clean state to
// its dependents when every other input is also known clean.
func (p *Plan) CleanNode(scan *DependencyScan, node *Node) error {
	node.SetDirty(false)

	for _, edge := range node.OutEdges {
		want, ok := p.want[edge]
		if !ok || want == WantNothing {
			continue
		}

		if edge.DepsMissing {
			continue
		}

		end := len(edge.Inputs) - int(edge.OrderOnlyDeps)
		anyDirty := false
		for _, in := range edge.Inputs[:end] {
			if in.Dirty() {
				anyDirty = true
				break
			}
		}
		if anyDirty {
			continue
		}

		var mostRecentInput *Node
		for _, in := range edge.Inputs[:end] {
			if mostRecentInput == nil || in.Mtime() > mostRecentInput.Mtime() {
				mostRecentInput = in
			}
		}

		// Now that we know all inputs are clean, the edge is dirty only if
		// one of its outputs is. If not, clean the outputs too and mark
		// the edge no longer wanted.
		outputsDirty, err := scan.recomputeOutputsDirty(edge, mostRecentInput)
		if err != nil {
			return err
		}
		if !outputsDirty {
			for _, o := range edge.Outputs {
				if err := p.CleanNode(scan, o); err != nil {
					return err
				}
			}

			p.want[edge] = WantNothing
			p.wantedEdges--
			if !edge.IsPhony() {
				p.commandEdges--
			}
		}
	}
	return nil
}

// DyndepsLoaded updates the build plan to account for modifications made
// to the graph by information loaded from a dyndep file.
func (p *Plan) DyndepsLoaded(scan *DependencyScan, node *Node, ddf DyndepFile) error {
	if err := p.refreshDyndepDependents(scan, node); err != nil {
		return err
	}

	// We loaded dyndep information for the out edges of the dyndep node
	// that reference it in a dyndep binding, but they may not be in the
	// plan. Starting with those already in the plan, walk the
	// newly-reachable portion of the graph through the discovered
	// dependencies.
	var dyndepRoots []*Edge
	for edge := range ddf {
		if edge.OutputsReady {
			continue
		}
		if _, ok := p.want[edge]; !ok {
			continue
		}
		dyndepRoots = append(dyndepRoots, edge)
	}

	dyndepWalk := map[*Edge]struct{}{}
	for _, edge := range dyndepRoots {
		dd := ddf[edge]
		for _, in := range dd.ImplicitInputs {
			if err := p.addSubTarget(in, edge.Outputs[0], dyndepWalk); err != nil {
				return err
			}
		}
	}

	// Add out edges from this node that are in the plan (just as
	// NodeFinished would have without taking the dyndep code path).
	for _, edge := range node.OutEdges {
		if _, ok := p.want[edge]; !ok {
			continue
		}
		dyndepWalk[edge] = struct{}{}
	}

	// See if any encountered edges are now ready.
	for edge := range dyndepWalk {
		if _, ok := p.want[edge]; !ok {
			continue
		}
		if err := p.edgeMaybeReady(edge); err != nil {
			return err
		}
	}

	return nil
}

func (p *Plan) refreshDyndepDependents(scan *DependencyScan, node *Node) error {
	// Collect the transitive closure of dependents and mark their edges as
	// not yet visited by RecomputeDirty.
	dependents := map[*Node]struct{}{}
	p.unmarkDependents(node, dependents)

	// Update the dirty state of all dependents and check if their edges
	// have become wanted.
	for n := range dependents {
		if err := scan.RecomputeDirty(n); err != nil {
			return err
		}
		if !n.Dirty() {
			continue
		}

		// This edge was encountered before. However, we may not have
		// wanted to build it if the outputs were not known to be dirty.
		// With dyndep information an output is now known to be dirty, so
		// we want the edge.
		edge := n.InEdge
		if edge == nil || edge.OutputsReady {
			return fmt.Errorf("internal error: dyndep dependent inconsistency")
		}
		want, ok := p.want[edge]
		if !ok {
			return fmt.Errorf("internal error: dyndep dependent not in plan")
		}
		if want == WantNothing {
			p.want[edge] = WantToStart
			p.edgeWanted(edge)
		}
	}
	return nil
}

func (p *Plan) unmarkDependents(node *Node, dependents map[*Node]struct{}) {
	for _, edge := range node.OutEdges {
		if _, ok := p.want[edge]; !ok {
			continue
		}

		if edge.mark != visitNone {
			edge.mark = visitNone
			for _, o := range edge.Outputs {
				if _, seen := dependents[o]; !seen {
					dependents[o] = struct{}{}
					p.unmarkDependents(o, dependents)
				}
			}
		}
	}
}

// Dump prints the current state of the plan, for `-d` debugging.
func (p *Plan) Dump() {
	fmt.Printf("pending: %d\n", len(p.want))
	for edge, want := range p.want {
		if want != WantNothing {
			fmt.Print("want ")
		}
		edge.Dump("")
	}
	fmt.Printf("ready: %d\n", p.ready.Len())
}

// Result is the outcome of waiting for one command to finish.
type Result struct {
	Edge   *Edge
	Status ExitStatus
	Output string
}

// Success reports whether the command completed successfully.
func (r *Result) Success() bool { return r.Status == ExitSuccess }

// CommandRunner abstracts running build subcommands so tests can script
// synchronous, scripted results instead of spawning real processes.
type CommandRunner interface {
	CanRunMore() bool
	StartCommand(edge *Edge) bool
	// WaitForCommand blocks for the next finished command. ok is false if
	// there is nothing left to wait for (the runner was interrupted).
	WaitForCommand() (result Result, ok bool)
	GetActiveEdges() []*Edge
	Abort()
}

// Verbosity controls how much build status the Status sink prints.
type Verbosity int

const (
	Quiet          Verbosity = iota // No output -- used when testing.
	NoStatusUpdate                  // Regular output but suppress the status line.
	Normal                          // Regular output and status updates.
	Verbose
)

// BuildConfig holds options (verbosity, parallelism, ...) passed to a build.
type BuildConfig struct {
	Verbosity       Verbosity
	DryRun          bool
	Parallelism     int
	FailuresAllowed int
	// MaxLoadAvg is the load average ninja must not exceed before starting
	// new commands; zero or negative means no limit.
	MaxLoadAvg           float64
	DepfileParserOptions DepfileParserOptions

	// Jobserver, if non-nil, bounds concurrency across this build and any
	// cooperating make/ninja processes sharing its token pool, on top of
	// the implicit slot every process gets for free. Nil means this build
	// is not running under a jobserver; Parallelism/MaxLoadAvg alone gate
	// concurrency in that case.
	Jobserver *JobserverClient
}

// NewBuildConfig returns a BuildConfig with ninja's defaults.
func NewBuildConfig() BuildConfig {
	return BuildConfig{
		Verbosity:       Normal,
		Parallelism:     1,
		FailuresAllowed: 1,
		MaxLoadAvg:      -1,
	}
}

// RunningEdgeMap maps a running edge to the time (ms since build start) it
// started running.
type RunningEdgeMap map[*Edge]int64

// DryRunCommandRunner is a CommandRunner that pretends every command
// succeeds instantly, for `-n`.
type DryRunCommandRunner struct {
	finished []*Edge
}

func (d *DryRunCommandRunner) CanRunMore() bool { return true }

func (d *DryRunCommandRunner) StartCommand(edge *Edge) bool {
	d.finished = append(d.finished, edge)
	return true
}

func (d *DryRunCommandRunner) WaitForCommand() (Result, bool) {
	if len(d.finished) == 0 {
		return Result{}, false
	}
	edge := d.finished[0]
	d.finished = d.finished[1:]
	return Result{Edge: edge, Status: ExitSuccess}, true
}

func (d *DryRunCommandRunner) GetActiveEdges() []*Edge { return nil }

func (d *DryRunCommandRunner) Abort() {}

// RealCommandRunner runs edges as real subprocesses via a SubprocessSet.
type RealCommandRunner struct {
	config        *BuildConfig
	subprocs      *SubprocessSet
	subprocToEdge map[*Subprocess]*Edge

	// tokensHeld is the number of jobserver tokens currently acquired and
	// not yet released; kept equal to max(0, Running()-1) whenever
	// config.Jobserver is set; see CanRunMore/WaitForCommand.
	tokensHeld int
}

// NewRealCommandRunner returns a RealCommandRunner for config.
func NewRealCommandRunner(config *BuildConfig) *RealCommandRunner {
	return &RealCommandRunner{
		config:        config,
		subprocs:      NewSubprocessSet(),
		subprocToEdge: map[*Subprocess]*Edge{},
	}
}

func (r *RealCommandRunner) GetActiveEdges() []*Edge {
	edges := make([]*Edge, 0, len(r.subprocToEdge))
	for _, e := range r.subprocToEdge {
		edges = append(edges, e)
	}
	return edges
}

func (r *RealCommandRunner) Abort() {
	r.subprocs.Clear()
	for r.tokensHeld > 0 {
		r.tokensHeld--
		r.config.Jobserver.Release()
	}
}

// CanRunMore reports whether one more command may be started right now.
// The maximum number of concurrently running children is
// min(parallelism, jobserverTokensHeld+1): the "+1" is the implicit slot
// every process is guaranteed by convention, free of charge. When a
// jobserver is configured, a call here that would otherwise return true
// for a second-or-later concurrent child first tries to acquire a token;
// failure to acquire one is not an error, just "not yet".
func (r *RealCommandRunner) CanRunMore() bool {
	subprocNumber := r.subprocs.Running() + r.subprocs.Finished()
	if r.config.Parallelism > 0 && subprocNumber >= r.config.Parallelism {
		return false
	}
	running := r.subprocs.Running()
	if running == 0 {
		return true
	}
	if r.config.MaxLoadAvg > 0 && getLoadAverage() >= r.config.MaxLoadAvg {
		return false
	}
	if r.config.Jobserver == nil {
		return true
	}
	if r.tokensHeld >= running {
		return true
	}
	if r.config.Jobserver.TryAcquire() {
		r.tokensHeld++
		return true
	}
	return false
}

func (r *RealCommandRunner) StartCommand(edge *Edge) bool {
	command := edge.EvaluateCommand(false)
	subproc := r.subprocs.Add(command, edge.Pool == consolePool)
	if subproc == nil {
		return false
	}
	r.subprocToEdge[subproc] = edge
	return true
}

func (r *RealCommandRunner) WaitForCommand() (Result, bool) {
	var subproc *Subprocess
	for subproc == nil {
		interrupted := r.subprocs.DoWork()
		subproc = r.subprocs.NextFinished()
		if subproc == nil && interrupted {
			return Result{}, false
		}
	}

	result := Result{
		Status: subproc.Finish(),
		Output: subproc.GetOutput(),
		Edge:   r.subprocToEdge[subproc],
	}
	delete(r.subprocToEdge, subproc)

	if r.config.Jobserver != nil {
		want := r.subprocs.Running() - 1
		if want < 0 {
			want = 0
		}
		for r.tokensHeld > want {
			r.tokensHeld--
			r.config.Jobserver.Release()
		}
	}

	return result, true
}

// Builder drives the build process: starting commands, updating status,
// and recording results to the build and deps logs.
type Builder struct {
	state           *State
	config          *BuildConfig
	plan            *Plan
	commandRunner   CommandRunner
	status          Status
	runningEdges    RunningEdgeMap
	startTimeMillis int64
	di              DiskInterface
	scan            *DependencyScan
}

// NewBuilder returns a Builder ready to have targets added to it. buildLog
// and depsLog may be nil.
func NewBuilder(state *State, config *BuildConfig, buildLog *BuildLog, depsLog *DepsLog, di DiskInterface, status Status, startTimeMillis int64) *Builder {
	b := &Builder{
		state:           state,
		config:          config,
		runningEdges:    RunningEdgeMap{},
		startTimeMillis: startTimeMillis,
		di:              di,
		status:          status,
	}
	b.plan = NewPlan(b)
	scan := NewDependencyScan(state, buildLog, depsLog, di, config.DepfileParserOptions)
	b.scan = &scan
	return b
}

// SetBuildLog is used by tests that need to swap in a fresh log.
func (b *Builder) SetBuildLog(log *BuildLog) { b.scan.SetBuildLog(log) }

// Cleanup deletes output files left behind by interrupted commands.
func (b *Builder) Cleanup() {
	if b.commandRunner == nil {
		return
	}
	activeEdges := b.commandRunner.GetActiveEdges()
	b.commandRunner.Abort()

	for _, e := range activeEdges {
		depfile := e.GetUnescapedDepfile()
		for _, o := range e.Outputs {
			// Only delete this output if it was actually modified. This
			// matters for things like the generator, where we don't want
			// to delete the manifest file if we can avoid it. But if the
			// rule uses a depfile, always delete: consider a rebuild
			// triggered by a modified header mentioned in a depfile, where
			// the command touches its depfile but is interrupted before it
			// touches its output.
			newMtime, err := b.di.Stat(o.Path())
			if err != nil {
				errorf("%s", err)
				continue
			}
			if depfile != "" || o.Mtime() != newMtime {
				b.di.RemoveFile(o.Path())
			}
		}
		if depfile != "" {
			b.di.RemoveFile(depfile)
		}
	}
}

// AddTargetName adds a target to the build by name, scanning its
// dependencies, and returns the resolved node.
func (b *Builder) AddTargetName(name string) (*Node, error) {
	node := b.state.LookupNode(name)
	if node == nil {
		return nil, fmt.Errorf("unknown target: '%s'", name)
	}
	if err := b.AddTarget(node); err != nil {
		return nil, err
	}
	return node, nil
}

// AddTarget adds target to the build, scanning its dependencies.
func (b *Builder) AddTarget(target *Node) error {
	if err := b.scan.RecomputeDirty(target); err != nil {
		return err
	}

	if inEdge := target.InEdge; inEdge != nil {
		if inEdge.OutputsReady {
			return nil // Nothing to do.
		}
	}

	return b.plan.AddTarget(target)
}

// AlreadyUpToDate reports whether the build's targets are already up to
// date, making Build a no-op.
func (b *Builder) AlreadyUpToDate() bool {
	return !b.plan.MoreToDo()
}

// Build runs the build. It is an error to call this when AlreadyUpToDate
// is true.
func (b *Builder) Build() error {
	if b.AlreadyUpToDate() {
		return fmt.Errorf("internal error: Build called with nothing to do")
	}

	b.status.PlanHasTotalEdges(b.plan.CommandEdgeCount())
	pendingCommands := 0
	failuresAllowed := b.config.FailuresAllowed

	if b.commandRunner == nil {
		if b.config.DryRun {
			b.commandRunner = &DryRunCommandRunner{}
		} else {
			b.commandRunner = NewRealCommandRunner(b.config)
		}
	}

	b.status.BuildStarted()

	// This loop runs the entire build: first start as many commands as the
	// command runner will allow, then wait for the next one to finish, and
	// repeat until there's nothing left to do.
	for b.plan.MoreToDo() {
		if failuresAllowed != 0 && b.commandRunner.CanRunMore() {
			if edge := b.plan.FindWork(); edge != nil {
				if edge.GetBindingBool("generator") {
					if buildLog := b.scan.BuildLog(); buildLog != nil {
						buildLog.Close()
					}
				}

				if err := b.StartEdge(edge); err != nil {
					b.Cleanup()
					b.status.BuildFinished()
					return err
				}

				if edge.IsPhony() {
					if err := b.plan.EdgeFinished(edge, EdgeSucceeded); err != nil {
						b.Cleanup()
						b.status.BuildFinished()
						return err
					}
				} else {
					pendingCommands++
				}

				continue
			}
		}

		if pendingCommands > 0 {
			result, ok := b.commandRunner.WaitForCommand()
			if !ok || result.Status == ExitInterrupted {
				b.Cleanup()
				b.status.BuildFinished()
				return fmt.Errorf("interrupted by user")
			}

			pendingCommands--
			if err := b.FinishCommand(&result); err != nil {
				b.Cleanup()
				b.status.BuildFinished()
				return err
			}

			if !result.Success() && failuresAllowed > 0 {
				failuresAllowed--
			}

			continue
		}

		b.status.BuildFinished()
		switch {
		case failuresAllowed == 0:
			if b.config.FailuresAllowed > 1 {
				return fmt.Errorf("subcommands failed")
			}
			return fmt.Errorf("subcommand failed")
		case failuresAllowed < b.config.FailuresAllowed:
			return fmt.Errorf("cannot make progress due to previous errors")
		default:
			return fmt.Errorf("stuck [this is a bug]")
		}
	}

	b.status.BuildFinished()
	return nil
}

// StartEdge starts running edge's command (a no-op beyond bookkeeping for
// a phony edge).
func (b *Builder) StartEdge(edge *Edge) error {
	defer metricRecord("StartEdge")()
	if edge.IsPhony() {
		return nil
	}

	startTimeMillis := GetTimeMillis() - b.startTimeMillis
	b.runningEdges[edge] = startTimeMillis

	b.status.BuildEdgeStarted(edge, startTimeMillis)

	// Create directories necessary for outputs.
	for _, o := range edge.Outputs {
		if err := b.di.MakeDirs(o.Path()); err != nil {
			return err
		}
	}

	// Create response file, if needed.
	if rspfile := edge.GetUnescapedRspfile(); rspfile != "" {
		content := edge.GetBinding("rspfile_content")
		if err := b.di.WriteFile(rspfile, content); err != nil {
			return err
		}
	}

	if !b.commandRunner.StartCommand(edge) {
		return fmt.Errorf("command '%s' failed.", edge.EvaluateCommand(false))
	}

	return nil
}

// FinishCommand updates status and the build/deps logs following a
// command's termination.
func (b *Builder) FinishCommand(result *Result) error {
	defer metricRecord("FinishCommand")()

	edge := result.Edge

	// Extract dependencies from the result, if any, before anything else:
	// this filters the command output (we want to filter /showIncludes
	// text even on a failing compile) and extraction itself can fail,
	// which turns the command into a failure from a build perspective.
	var depsNodes []*Node
	depsType := edge.GetBinding("deps")
	depsPrefix := edge.GetBinding("msvc_deps_prefix")
	if depsType != "" {
		nodes, filtered, err := b.extractDeps(edge, depsType, depsPrefix, result.Output)
		if err != nil {
			if result.Success() {
				if result.Output != "" {
					result.Output += "\n"
				}
				result.Output += err.Error()
				result.Status = ExitFailure
			}
		} else {
			depsNodes = nodes
			result.Output = filtered
		}
	}

	startTimeMillis := b.runningEdges[edge]
	endTimeMillis := GetTimeMillis() - b.startTimeMillis
	delete(b.runningEdges, edge)

	b.status.BuildEdgeFinished(edge, endTimeMillis, result.Success(), result.Output)

	// The rest of this function only applies to successful commands.
	if !result.Success() {
		return b.plan.EdgeFinished(edge, EdgeFailed)
	}

	// Restat the edge outputs.
	var outputMtime TimeStamp
	restat := edge.GetBindingBool("restat")
	if !b.config.DryRun {
		nodeCleaned := false

		for _, o := range edge.Outputs {
			newMtime, err := b.di.Stat(o.Path())
			if err != nil {
				return err
			}
			if newMtime > outputMtime {
				outputMtime = newMtime
			}
			if o.Mtime() == newMtime && restat {
				// The rule command did not change the output: propagate
				// the clean state through the graph. This also covers
				// nonexistent outputs (mtime == 0).
				if err := b.plan.CleanNode(b.scan, o); err != nil {
					return err
				}
				nodeCleaned = true
			}
		}

		if nodeCleaned {
			var restatMtime TimeStamp
			// Find the most recent mtime of any (existing) non-order-only
			// input or the depfile.
			end := len(edge.Inputs) - int(edge.OrderOnlyDeps)
			for _, in := range edge.Inputs[:end] {
				inputMtime, err := b.di.Stat(in.Path())
				if err != nil {
					return err
				}
				if inputMtime > restatMtime {
					restatMtime = inputMtime
				}
			}

			depfile := edge.GetUnescapedDepfile()
			if restatMtime != 0 && depsType == "" && depfile != "" {
				depfileMtime, err := b.di.Stat(depfile)
				if err != nil {
					return err
				}
				if depfileMtime > restatMtime {
					restatMtime = depfileMtime
				}
			}

			// The total number of edges in the plan may have changed.
			b.status.PlanHasTotalEdges(b.plan.CommandEdgeCount())

			outputMtime = restatMtime
		}
	}

	if err := b.plan.EdgeFinished(edge, EdgeSucceeded); err != nil {
		return err
	}

	// Delete any left over response file.
	if rspfile := edge.GetUnescapedRspfile(); rspfile != "" && !g_keep_rsp {
		b.di.RemoveFile(rspfile)
	}

	if buildLog := b.scan.BuildLog(); buildLog != nil {
		if err := buildLog.RecordCommand(edge, int(startTimeMillis), int(endTimeMillis), outputMtime); err != nil {
			return fmt.Errorf("writing to build log: %w", err)
		}
	}

	if depsType != "" && !b.config.DryRun {
		if len(edge.Outputs) == 0 {
			return fmt.Errorf("internal error: deps edge with no outputs should have been rejected by the parser")
		}
		if depsLog := b.scan.DepsLog(); depsLog != nil {
			for _, o := range edge.Outputs {
				depsMtime, err := b.di.Stat(o.Path())
				if err != nil {
					return err
				}
				if err := depsLog.RecordDeps(o, depsMtime, depsNodes); err != nil {
					return fmt.Errorf("writing to deps log: %w", err)
				}
			}
		}
	}
	return nil
}

// extractDeps pulls dependency information for edge's just-run command out
// of output, in the format named by depsType: "gcc" reads a depfile ninja's
// command wrote as a side effect, "msvc" filters /showIncludes lines out of
// output itself. Returns the discovered dependency nodes and (for msvc) the
// output with those lines removed.
func (b *Builder) extractDeps(edge *Edge, depsType, depsPrefix, output string) ([]*Node, string, error) {
	switch depsType {
	case "msvc":
		nodes, filtered := extractMsvcDeps(output, depsPrefix, b.state)
		return nodes, filtered, nil

	case "gcc":
		depfile := edge.GetUnescapedDepfile()
		if depfile == "" {
			return nil, output, fmt.Errorf("edge with deps=gcc but no depfile makes no sense")
		}

		content, err := b.di.ReadFile(depfile)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, output, fmt.Errorf("expected depfile '%s' missing", depfile)
			}
			return nil, output, err
		}

		var parser DepfileParser
		if err := parser.Parse(content); err != nil {
			return nil, output, fmt.Errorf("%s: %w", depfile, err)
		}

		depsNodes := make([]*Node, 0, len(parser.ins))
		for _, in := range parser.ins {
			path, slashBits := CanonicalizePathBits(in)
			depsNodes = append(depsNodes, b.state.GetNode(path, slashBits))
		}

		if !g_keep_depfile {
			if err := b.di.RemoveFile(depfile); err != nil && !errors.Is(err, ErrNotFound) {
				return nil, output, fmt.Errorf("deleting depfile: %w", err)
			}
		}
		return depsNodes, output, nil

	default:
		return nil, output, fmt.Errorf("unknown deps type '%s'", depsType)
	}
}

// extractMsvcDeps splits cl.exe's captured stdout into the /showIncludes
// lines (reporting which headers were pulled in) and everything else,
// simplified from the original's CLParser: it doesn't try to recognize and
// drop the echoed source filename, since that's cosmetic rather than a
// dependency-tracking concern.
func extractMsvcDeps(output, prefix string, state *State) ([]*Node, string) {
	if prefix == "" {
		prefix = "Note: including file:"
	}

	var nodes []*Node
	seen := map[string]struct{}{}
	var kept []string

	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimRight(line, "\r")
		if strings.HasPrefix(trimmed, prefix) {
			path := strings.TrimSpace(trimmed[len(prefix):])
			if path == "" {
				continue
			}
			if _, dup := seen[path]; dup {
				continue
			}
			seen[path] = struct{}{}
			canon, slashBits := CanonicalizePathBits(path)
			nodes = append(nodes, state.GetNode(canon, slashBits))
			continue
		}
		kept = append(kept, line)
	}
	return nodes, strings.Join(kept, "\n")
}

// LoadDyndeps loads the dyndep information provided by node.
func (b *Builder) LoadDyndeps(node *Node) error {
	b.status.BuildLoadDyndeps()

	ddf := DyndepFile{}
	if err := b.scan.LoadDyndepsInto(node, &ddf); err != nil {
		return err
	}

	if err := b.plan.DyndepsLoaded(b.scan, node, ddf); err != nil {
		return err
	}

	// New command edges may have been added to the plan.
	b.status.PlanHasTotalEdges(b.plan.CommandEdgeCount())
	return nil
}
