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
	"sort"
	"testing"
)

// compareEdgesByOutput orders edges by their first output's path, giving
// tests a deterministic way to look at FindWork's otherwise-unordered
// results.
func compareEdgesByOutput(a, b *Edge) bool {
	return a.Outputs[0].Path() < b.Outputs[0].Path()
}

// planTest is a fixture for tests involving Plan. Plan itself doesn't use
// State, but a State is handy to create Nodes and Edges from a manifest.
type planTest struct {
	StateTestWithBuiltinRules
	plan *Plan
}

func newPlanTest(t *testing.T) *planTest {
	p := &planTest{StateTestWithBuiltinRules: NewStateTestWithBuiltinRules(t)}
	p.plan = NewPlan(nil)
	return p
}

// findWorkSorted drains count ready edges from the plan and returns them
// sorted by output path, asserting there is exactly that much work ready.
func (p *planTest) findWorkSorted(t *testing.T, count int) []*Edge {
	t.Helper()
	var edges []*Edge
	for i := 0; i < count; i++ {
		if !p.plan.MoreToDo() {
			t.Fatal("expected more work to do")
		}
		edge := p.plan.FindWork()
		if edge == nil {
			t.Fatal("expected an edge to be ready")
		}
		edges = append(edges, edge)
	}
	if p.plan.FindWork() != nil {
		t.Fatal("expected no more ready work")
	}
	sort.Slice(edges, func(i, j int) bool { return compareEdgesByOutput(edges[i], edges[j]) })
	return edges
}

func TestPlanTest_Basic(t *testing.T) {
	p := newPlanTest(t)
	p.AssertParse(&p.state, "build out: cat mid\nbuild mid: cat in\n", ParseManifestOpts{})
	p.GetNode("mid").MarkDirty()
	p.GetNode("out").MarkDirty()

	if err := p.plan.AddTarget(p.GetNode("out")); err != nil {
		t.Fatal(err)
	}
	if !p.plan.MoreToDo() {
		t.Fatal("expected more to do")
	}

	edge := p.plan.FindWork()
	if edge == nil {
		t.Fatal("expected work")
	}
	if edge.Inputs[0].Path() != "in" || edge.Outputs[0].Path() != "mid" {
		t.Fatalf("got %v -> %v", edge.Inputs[0].Path(), edge.Outputs[0].Path())
	}
	if p.plan.FindWork() != nil {
		t.Fatal("expected only one edge ready")
	}

	if err := p.plan.EdgeFinished(edge, EdgeSucceeded); err != nil {
		t.Fatal(err)
	}

	edge = p.plan.FindWork()
	if edge == nil {
		t.Fatal("expected work")
	}
	if edge.Inputs[0].Path() != "mid" || edge.Outputs[0].Path() != "out" {
		t.Fatalf("got %v -> %v", edge.Inputs[0].Path(), edge.Outputs[0].Path())
	}

	if err := p.plan.EdgeFinished(edge, EdgeSucceeded); err != nil {
		t.Fatal(err)
	}

	if p.plan.MoreToDo() {
		t.Fatal("expected nothing left to do")
	}
	if p.plan.FindWork() != nil {
		t.Fatal("expected no work")
	}
}

// TestPlanTest_DoubleOutputDirect verifies two outputs from one rule can be
// handled as inputs to the next.
func TestPlanTest_DoubleOutputDirect(t *testing.T) {
	p := newPlanTest(t)
	p.AssertParse(&p.state, "build out: cat mid1 mid2\nbuild mid1 mid2: cat in\n", ParseManifestOpts{})
	p.GetNode("mid1").MarkDirty()
	p.GetNode("mid2").MarkDirty()
	p.GetNode("out").MarkDirty()

	if err := p.plan.AddTarget(p.GetNode("out")); err != nil {
		t.Fatal(err)
	}
	if !p.plan.MoreToDo() {
		t.Fatal("expected more to do")
	}

	edge := p.plan.FindWork() // cat in
	if edge == nil {
		t.Fatal("expected work")
	}
	if err := p.plan.EdgeFinished(edge, EdgeSucceeded); err != nil {
		t.Fatal(err)
	}

	edge = p.plan.FindWork() // cat mid1 mid2
	if edge == nil {
		t.Fatal("expected work")
	}
	if err := p.plan.EdgeFinished(edge, EdgeSucceeded); err != nil {
		t.Fatal(err)
	}

	if p.plan.FindWork() != nil {
		t.Fatal("expected done")
	}
}

// TestPlanTest_DoubleOutputIndirect verifies two outputs from one rule can
// eventually be routed to another.
func TestPlanTest_DoubleOutputIndirect(t *testing.T) {
	p := newPlanTest(t)
	p.AssertParse(&p.state, "build out: cat b1 b2\nbuild b1: cat a1\nbuild b2: cat a2\nbuild a1 a2: cat in\n", ParseManifestOpts{})
	for _, n := range []string{"a1", "a2", "b1", "b2", "out"} {
		p.GetNode(n).MarkDirty()
	}

	if err := p.plan.AddTarget(p.GetNode("out")); err != nil {
		t.Fatal(err)
	}
	if !p.plan.MoreToDo() {
		t.Fatal("expected more to do")
	}

	for i := 0; i < 4; i++ {
		edge := p.plan.FindWork()
		if edge == nil {
			t.Fatal("expected work")
		}
		if err := p.plan.EdgeFinished(edge, EdgeSucceeded); err != nil {
			t.Fatal(err)
		}
	}

	if p.plan.FindWork() != nil {
		t.Fatal("expected done")
	}
}

// TestPlanTest_DoubleDependent verifies two edges that depend on one output
// can both execute.
func TestPlanTest_DoubleDependent(t *testing.T) {
	p := newPlanTest(t)
	p.AssertParse(&p.state, "build out: cat a1 a2\nbuild a1: cat mid\nbuild a2: cat mid\nbuild mid: cat in\n", ParseManifestOpts{})
	for _, n := range []string{"mid", "a1", "a2", "out"} {
		p.GetNode(n).MarkDirty()
	}

	if err := p.plan.AddTarget(p.GetNode("out")); err != nil {
		t.Fatal(err)
	}
	if !p.plan.MoreToDo() {
		t.Fatal("expected more to do")
	}

	for i := 0; i < 4; i++ {
		edge := p.plan.FindWork()
		if edge == nil {
			t.Fatal("expected work")
		}
		if err := p.plan.EdgeFinished(edge, EdgeSucceeded); err != nil {
			t.Fatal(err)
		}
	}

	if p.plan.FindWork() != nil {
		t.Fatal("expected done")
	}
}

func (p *planTest) testPoolWithDepthOne(t *testing.T, manifest string) {
	t.Helper()
	p.AssertParse(&p.state, manifest, ParseManifestOpts{})
	p.GetNode("out1").MarkDirty()
	p.GetNode("out2").MarkDirty()

	if err := p.plan.AddTarget(p.GetNode("out1")); err != nil {
		t.Fatal(err)
	}
	if err := p.plan.AddTarget(p.GetNode("out2")); err != nil {
		t.Fatal(err)
	}
	if !p.plan.MoreToDo() {
		t.Fatal("expected more to do")
	}

	edge := p.plan.FindWork()
	if edge == nil {
		t.Fatal("expected work")
	}
	if edge.Inputs[0].Path() != "in" || edge.Outputs[0].Path() != "out1" {
		t.Fatalf("got %v -> %v", edge.Inputs[0].Path(), edge.Outputs[0].Path())
	}

	// The pool has depth 1, so the second edge is not ready yet.
	if p.plan.FindWork() != nil {
		t.Fatal("expected the pool to serialize the second edge")
	}

	if err := p.plan.EdgeFinished(edge, EdgeSucceeded); err != nil {
		t.Fatal(err)
	}

	edge = p.plan.FindWork()
	if edge == nil {
		t.Fatal("expected work")
	}
	if edge.Inputs[0].Path() != "in" || edge.Outputs[0].Path() != "out2" {
		t.Fatalf("got %v -> %v", edge.Inputs[0].Path(), edge.Outputs[0].Path())
	}

	if p.plan.FindWork() != nil {
		t.Fatal("expected no more work")
	}

	if err := p.plan.EdgeFinished(edge, EdgeSucceeded); err != nil {
		t.Fatal(err)
	}

	if p.plan.MoreToDo() {
		t.Fatal("expected done")
	}
	if p.plan.FindWork() != nil {
		t.Fatal("expected no work")
	}
}

func TestPlanTest_PoolWithDepthOne(t *testing.T) {
	p := newPlanTest(t)
	p.testPoolWithDepthOne(t, "pool foobar\n  depth = 1\n"+
		"rule poolcat\n  command = cat $in > $out\n  pool = foobar\n"+
		"build out1: poolcat in\nbuild out2: poolcat in\n")
}

func TestPlanTest_ConsolePool(t *testing.T) {
	p := newPlanTest(t)
	p.testPoolWithDepthOne(t, "rule poolcat\n  command = cat $in > $out\n  pool = console\n"+
		"build out1: poolcat in\nbuild out2: poolcat in\n")
}

func TestPlanTest_PoolsWithDepthTwo(t *testing.T) {
	p := newPlanTest(t)
	p.AssertParse(&p.state, "pool foobar\n  depth = 2\n"+
		"pool bazbin\n  depth = 2\n"+
		"rule foocat\n  command = cat $in > $out\n  pool = foobar\n"+
		"rule bazcat\n  command = cat $in > $out\n  pool = bazbin\n"+
		"build out1: foocat in\nbuild out2: foocat in\nbuild out3: foocat in\n"+
		"build outb1: bazcat in\nbuild outb2: bazcat in\nbuild outb3: bazcat in\n  pool =\n"+
		"build allTheThings: cat out1 out2 out3 outb1 outb2 outb3\n", ParseManifestOpts{})

	for _, n := range []string{"out1", "out2", "out3", "outb1", "outb2", "outb3", "allTheThings"} {
		p.GetNode(n).MarkDirty()
	}
	if err := p.plan.AddTarget(p.GetNode("allTheThings")); err != nil {
		t.Fatal(err)
	}

	// foobar's pool has depth 2: out1 and out2 are ready, out3 is not.
	// bazbin's pool (depth 2) is independent, so outb1/outb2 are also
	// ready; outb3 overrides its pool with an empty one and runs
	// unthrottled, so in total 5 of the 6 leaf edges start ready.
	edges := p.findWorkSorted(t, 5)
	for _, e := range edges {
		if err := p.plan.EdgeFinished(e, EdgeSucceeded); err != nil {
			t.Fatal(err)
		}
	}

	// The remaining pool slot frees up now.
	edge := p.plan.FindWork()
	if edge == nil {
		t.Fatal("expected the last pooled edge to become ready")
	}
	if err := p.plan.EdgeFinished(edge, EdgeSucceeded); err != nil {
		t.Fatal(err)
	}

	edge = p.plan.FindWork()
	if edge == nil || edge.Outputs[0].Path() != "allTheThings" {
		t.Fatal("expected the final cat edge to be ready")
	}
	if err := p.plan.EdgeFinished(edge, EdgeSucceeded); err != nil {
		t.Fatal(err)
	}

	if p.plan.MoreToDo() {
		t.Fatal("expected done")
	}
}

// TestPlanTest_PoolWithFailingEdge verifies that a failed edge in a pool
// releases its pool slot, so the serialized second edge can still start,
// and that the failed edge stays counted as work the plan wants.
func TestPlanTest_PoolWithFailingEdge(t *testing.T) {
	p := newPlanTest(t)
	p.AssertParse(&p.state, "pool foobar\n  depth = 1\n"+
		"rule poolcat\n  command = cat $in > $out\n  pool = foobar\n"+
		"build out1: poolcat in\nbuild out2: poolcat in\n", ParseManifestOpts{})
	p.GetNode("out1").MarkDirty()
	p.GetNode("out2").MarkDirty()

	if err := p.plan.AddTarget(p.GetNode("out1")); err != nil {
		t.Fatal(err)
	}
	if err := p.plan.AddTarget(p.GetNode("out2")); err != nil {
		t.Fatal(err)
	}
	if !p.plan.MoreToDo() {
		t.Fatal("expected more to do")
	}

	edge := p.plan.FindWork()
	if edge == nil {
		t.Fatal("expected work")
	}
	if p.plan.FindWork() != nil {
		t.Fatal("expected pool to serialize the second edge")
	}

	if err := p.plan.EdgeFinished(edge, EdgeFailed); err != nil {
		t.Fatal(err)
	}

	if !p.plan.MoreToDo() {
		t.Fatal("expected the failed job to still be counted as work to do")
	}
	if edge := p.plan.FindWork(); edge == nil || edge.Outputs[0].Path() != "out2" {
		t.Fatal("expected the freed pool slot to let out2 start")
	}
}

// fakeCommandRunner is a scripted CommandRunner for exercising Builder
// without running real subprocesses. It mirrors the on-disk effects of a
// handful of well-known rule names used throughout these tests, against a
// VirtualFileSystem.
type fakeCommandRunner struct {
	fs             *VirtualFileSystem
	commandsRan    []string
	activeEdges    []*Edge
	maxActiveEdges int
}

func newFakeCommandRunner(fs *VirtualFileSystem) *fakeCommandRunner {
	return &fakeCommandRunner{fs: fs, maxActiveEdges: 1}
}

func (f *fakeCommandRunner) CanRunMore() bool {
	return len(f.activeEdges) < f.maxActiveEdges
}

func (f *fakeCommandRunner) StartCommand(edge *Edge) bool {
	f.commandsRan = append(f.commandsRan, edge.EvaluateCommand(false))

	switch edge.Rule.Name {
	case "cat", "touch", "cc":
		for _, o := range edge.Outputs {
			f.fs.Create(o.Path(), "")
		}
	case "true", "fail", "console":
		// No disk effects.
	case "cp":
		if len(edge.Inputs) != 0 && len(edge.Outputs) == 1 {
			if content, err := f.fs.ReadFile(edge.Inputs[0].Path()); err == nil {
				f.fs.WriteFile(edge.Outputs[0].Path(), string(content))
			}
		}
	case "generate-depfile":
		dep := edge.GetBinding("test_dependency")
		depfile := edge.GetUnescapedDepfile()
		contents := ""
		for _, o := range edge.Outputs {
			contents += o.Path() + ": " + dep + "\n"
			f.fs.Create(o.Path(), "")
		}
		f.fs.Create(depfile, contents)
	default:
		return false
	}

	f.activeEdges = append(f.activeEdges, edge)
	sort.Slice(f.activeEdges, func(i, j int) bool { return compareEdgesByOutput(f.activeEdges[i], f.activeEdges[j]) })
	return true
}

func (f *fakeCommandRunner) WaitForCommand() (Result, bool) {
	if len(f.activeEdges) == 0 {
		return Result{}, false
	}

	// All active edges were already completed when started, so any one can
	// be picked; take the last, as the reference implementation does.
	idx := len(f.activeEdges) - 1
	edge := f.activeEdges[idx]
	f.activeEdges = f.activeEdges[:idx]

	result := Result{Edge: edge, Status: ExitSuccess}
	if edge.Rule.Name == "fail" {
		result.Status = ExitFailure
	}
	return result, true
}

func (f *fakeCommandRunner) GetActiveEdges() []*Edge { return f.activeEdges }

func (f *fakeCommandRunner) Abort() { f.activeEdges = nil }

// buildTest bundles the fixtures a Builder-level test needs: an in-memory
// filesystem, a scripted command runner, a silent status printer, and a
// Builder wired up to all three.
type buildTest struct {
	StateTestWithBuiltinRules
	config        BuildConfig
	fs            VirtualFileSystem
	commandRunner *fakeCommandRunner
	status        *StatusPrinter
	builder       *Builder
}

func newBuildTest(t *testing.T) *buildTest {
	b := &buildTest{
		StateTestWithBuiltinRules: NewStateTestWithBuiltinRules(t),
		config:                    NewBuildConfig(),
		fs:                        NewVirtualFileSystem(),
	}
	b.config.Verbosity = Quiet
	b.commandRunner = newFakeCommandRunner(&b.fs)
	b.status = NewStatusPrinter(&b.config)
	b.builder = NewBuilder(&b.state, &b.config, nil, nil, &b.fs, b.status, 0)
	b.builder.commandRunner = b.commandRunner

	b.AssertParse(&b.state, "build cat1: cat in1\nbuild cat2: cat in1 in2\nbuild cat12: cat cat1 cat2\n", ParseManifestOpts{})
	b.fs.Create("in1", "")
	b.fs.Create("in2", "")
	return b
}

func TestBuildTest_NoWork(t *testing.T) {
	b := newBuildTest(t)
	if !b.builder.AlreadyUpToDate() {
		t.Fatal("expected nothing to do before any target is added")
	}
}

func TestBuildTest_OneStep(t *testing.T) {
	b := newBuildTest(t)
	if _, err := b.builder.AddTargetName("cat1"); err != nil {
		t.Fatal(err)
	}
	if b.builder.AlreadyUpToDate() {
		t.Fatal("expected out-of-date")
	}
	if err := b.builder.Build(); err != nil {
		t.Fatal(err)
	}
	if len(b.commandRunner.commandsRan) != 1 {
		t.Fatalf("expected one command, got %d", len(b.commandRunner.commandsRan))
	}
}

func TestBuildTest_TwoStep(t *testing.T) {
	b := newBuildTest(t)
	if _, err := b.builder.AddTargetName("cat12"); err != nil {
		t.Fatal(err)
	}
	if b.builder.AlreadyUpToDate() {
		t.Fatal("expected out-of-date")
	}
	if err := b.builder.Build(); err != nil {
		t.Fatal(err)
	}
	if len(b.commandRunner.commandsRan) != 3 {
		t.Fatalf("expected three commands, got %d", len(b.commandRunner.commandsRan))
	}
	if _, err := b.fs.Stat("cat12"); err != nil {
		t.Fatalf("expected cat12 to exist: %v", err)
	}
}

func TestBuildTest_MissingInput(t *testing.T) {
	b := newBuildTest(t)
	if err := b.fs.RemoveFile("in1"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.builder.AddTargetName("cat1"); err == nil {
		t.Fatal("expected an error for a missing, dirty leaf input")
	}
}

func TestBuildTest_MissingTarget(t *testing.T) {
	b := newBuildTest(t)
	if _, err := b.builder.AddTargetName("nonexistent"); err == nil {
		t.Fatal("expected unknown target error")
	}
}

func TestBuildTest_Fail(t *testing.T) {
	b := newBuildTest(t)
	b.AssertParse(&b.state, "rule fail\n  command = fail\nbuild out: fail\n", ParseManifestOpts{})
	if _, err := b.builder.AddTargetName("out"); err != nil {
		t.Fatal(err)
	}
	if err := b.builder.Build(); err == nil {
		t.Fatal("expected the build to report the failing command")
	}
}

// TestBuildWithLogTest_RestatTest verifies that restat propagates a clean
// state through the graph when a rule's output mtime is unchanged.
func TestBuildWithLogTest_RestatTest(t *testing.T) {
	b := newBuildTest(t)
	b.AssertParse(&b.state,
		"rule true\n  command = true\n  restat = 1\n"+
			"rule cc\n  command = cc\n  restat = 1\n"+
			"build out1: cc in\nbuild out2: true out1\nbuild out3: cat out2\n",
		ParseManifestOpts{})

	b.fs.Create("in", "")
	b.fs.Create("out1", "")
	b.fs.Create("out2", "")
	b.fs.Create("out3", "")
	b.fs.Tick()
	b.fs.Create("in", "")

	if _, err := b.builder.AddTargetName("out3"); err != nil {
		t.Fatal(err)
	}
	if b.builder.AlreadyUpToDate() {
		t.Fatal("expected in to dirty the whole chain")
	}
	if err := b.builder.Build(); err != nil {
		t.Fatal(err)
	}
	// The scripted "cc" rule rewrites out1, but "true" leaves out2's mtime
	// unchanged (restat), so out3's rebuild should have been elided by
	// restat propagation.
	for _, cmd := range b.commandRunner.commandsRan {
		if cmd == "cat out2 > out3" {
			t.Fatal("expected restat to elide the dependent cat rebuild")
		}
	}
}
