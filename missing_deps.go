// Copyright 2019 Google Inc. All Rights Reserved.
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

import "fmt"

// MissingDependencyScannerDelegate receives one notification per missing
// dependency found by MissingDependencyScanner.
type MissingDependencyScannerDelegate interface {
	OnMissingDep(node *Node, path string, generator *Rule)
}

// MissingDependencyPrinter is the default delegate for `-t missingdeps`: it
// prints each missing dependency to stdout.
type MissingDependencyPrinter struct{}

// OnMissingDep implements MissingDependencyScannerDelegate.
func (*MissingDependencyPrinter) OnMissingDep(node *Node, path string, generator *Rule) {
	fmt.Printf("Missing dep: %s uses %s (generated by %s)\n", node.Path(), path, generator.Name)
}

// MissingDependencyScanner walks the build graph looking for targets whose
// depfile/deps-log dependencies name a generated file without a matching
// non-depfile edge dependency on the edge that produces it: a sign the build
// only works by accident, because the generated input happened to already
// exist from an earlier build.
type MissingDependencyScanner struct {
	delegate  MissingDependencyScannerDelegate
	depsLog   *DepsLog
	state     *State
	di        DiskInterface
	depLoader ImplicitDepLoader

	seen               map[*Node]struct{}
	nodesMissingDeps   map[*Node]struct{}
	generatedNodes     map[*Node]struct{}
	generatorRules     map[*Rule]struct{}
	missingDepPathCount int

	adjacencyMap map[*Edge]map[*Edge]bool
}

// NewMissingDependencyScanner returns a scanner reporting to delegate.
func NewMissingDependencyScanner(delegate MissingDependencyScannerDelegate, depsLog *DepsLog, state *State, di DiskInterface) *MissingDependencyScanner {
	return &MissingDependencyScanner{
		delegate:         delegate,
		depsLog:          depsLog,
		state:            state,
		di:               di,
		depLoader:        NewImplicitDepLoader(state, depsLog, di, DepfileParserOptions{}),
		seen:             map[*Node]struct{}{},
		nodesMissingDeps: map[*Node]struct{}{},
		generatedNodes:   map[*Node]struct{}{},
		generatorRules:   map[*Rule]struct{}{},
		adjacencyMap:     map[*Edge]map[*Edge]bool{},
	}
}

// HadMissingDeps reports whether any missing dependency was found.
func (m *MissingDependencyScanner) HadMissingDeps() bool {
	return len(m.nodesMissingDeps) > 0
}

// ProcessNode recursively scans node and its transitive inputs for missing
// dependencies.
func (m *MissingDependencyScanner) ProcessNode(node *Node) {
	if node == nil {
		return
	}
	edge := node.InEdge
	if edge == nil {
		return
	}
	if _, ok := m.seen[node]; ok {
		return
	}
	m.seen[node] = struct{}{}

	for _, in := range edge.Inputs {
		m.ProcessNode(in)
	}

	if edge.GetBinding("deps") != "" {
		if m.depsLog != nil {
			if deps := m.depsLog.GetDeps(node); deps != nil {
				m.processNodeDeps(node, deps.Nodes)
			}
		}
	} else if depfile := edge.GetUnescapedDepfile(); depfile != "" {
		depNodes := m.loadDepfileDeps(edge, depfile)
		if len(depNodes) != 0 {
			m.processNodeDeps(node, depNodes)
		}
	}
}

// loadDepfileDeps parses an edge's depfile and resolves its listed
// dependencies to nodes, without mutating the edge itself: the real build
// has already consumed this depfile, and the scanner only needs to know
// which nodes it names.
func (m *MissingDependencyScanner) loadDepfileDeps(edge *Edge, path string) []*Node {
	content, err := m.di.ReadFile(path)
	if err != nil {
		return nil
	}
	parser := DepfileParser{}
	if err := parser.Parse(content); err != nil {
		return nil
	}
	nodes := make([]*Node, 0, len(parser.ins))
	for _, in := range parser.ins {
		p, slashBits := CanonicalizePathBits(in)
		nodes = append(nodes, m.state.GetNode(p, slashBits))
	}
	return nodes
}

func (m *MissingDependencyScanner) processNodeDeps(node *Node, depNodes []*Node) {
	edge := node.InEdge
	deplogEdges := map[*Edge]struct{}{}
	for _, deplogNode := range depNodes {
		// A dep on build.ninja can mean "always rebuild this target when the
		// build is reconfigured", but build.ninja is often generated by a
		// configuration tool like cmake or gn: the rest of the build
		// implicitly depends on the whole build being reconfigured, so a
		// missing dep path to build.ninja is not an actual problem.
		if deplogNode.Path() == "build.ninja" {
			return
		}
		if deplogEdge := deplogNode.InEdge; deplogEdge != nil {
			deplogEdges[deplogEdge] = struct{}{}
		}
	}

	var missingDeps []*Edge
	for de := range deplogEdges {
		if !m.pathExistsBetween(de, edge) {
			missingDeps = append(missingDeps, de)
		}
	}

	if len(missingDeps) == 0 {
		return
	}
	missingDepsRuleNames := map[string]struct{}{}
	for _, ne := range missingDeps {
		for _, depNode := range depNodes {
			if depNode.InEdge != ne {
				continue
			}
			m.generatedNodes[depNode] = struct{}{}
			m.generatorRules[ne.Rule] = struct{}{}
			missingDepsRuleNames[ne.Rule.Name] = struct{}{}
			m.delegate.OnMissingDep(node, depNode.Path(), ne.Rule)
		}
	}
	m.missingDepPathCount += len(missingDepsRuleNames)
	m.nodesMissingDeps[node] = struct{}{}
}

// PrintStats reports a summary of the scan to stdout.
func (m *MissingDependencyScanner) PrintStats() {
	fmt.Printf("Processed %d nodes.\n", len(m.seen))
	if m.HadMissingDeps() {
		fmt.Printf("Error: There are %d missing dependency paths.\n", m.missingDepPathCount)
		fmt.Printf("%d targets had depfile dependencies on %d distinct generated inputs (from %d rules) without a non-depfile dep path to the generator.\n",
			len(m.nodesMissingDeps), len(m.generatedNodes), len(m.generatorRules))
		fmt.Print("There might be build flakiness if any of the targets listed above are built alone, or not late enough, in a clean output directory.\n")
	} else {
		fmt.Print("No missing dependencies on generated files found.\n")
	}
}

// pathExistsBetween reports whether to is reachable from from by following
// input edges, memoizing results in m.adjacencyMap.
func (m *MissingDependencyScanner) pathExistsBetween(from, to *Edge) bool {
	inner, ok := m.adjacencyMap[from]
	if !ok {
		inner = map[*Edge]bool{}
		m.adjacencyMap[from] = inner
	} else if found, ok := inner[to]; ok {
		return found
	}

	found := false
	for _, in := range to.Inputs {
		if e := in.InEdge; e != nil && (e == from || m.pathExistsBetween(from, e)) {
			found = true
			break
		}
	}
	inner[to] = found
	return found
}
