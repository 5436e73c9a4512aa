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
	"strings"
)

// GraphViz renders the build graph reachable from a set of targets as a
// GraphViz .dot file, for `-t graph`.
type GraphViz struct {
	dyndepLoader DyndepLoader
	visitedNodes map[*Node]struct{}
	visitedEdges map[*Edge]struct{}
}

// NewGraphViz returns a GraphViz over state's graph.
func NewGraphViz(state *State, di DiskInterface) *GraphViz {
	return &GraphViz{
		dyndepLoader: NewDyndepLoader(state, di),
		visitedNodes: map[*Node]struct{}{},
		visitedEdges: map[*Edge]struct{}{},
	}
}

// Start prints the .dot file header.
func (g *GraphViz) Start() {
	fmt.Print("digraph ninja {\n")
	fmt.Print("rankdir=\"LR\"\n")
	fmt.Print("node [fontsize=10, shape=box, height=0.25]\n")
	fmt.Print("edge [fontsize=10]\n")
}

// Finish prints the .dot file closing brace.
func (g *GraphViz) Finish() {
	fmt.Print("}\n")
}

// AddTarget prints node, its producing edge, and recurses into its inputs.
func (g *GraphViz) AddTarget(node *Node) {
	if _, ok := g.visitedNodes[node]; ok {
		return
	}

	pathStr := strings.ReplaceAll(node.Path(), "\\", "/")
	fmt.Printf("\"%p\" [label=\"%s\"]\n", node, pathStr)
	g.visitedNodes[node] = struct{}{}

	edge := node.InEdge
	if edge == nil {
		// Leaf node.
		return
	}

	if _, ok := g.visitedEdges[edge]; ok {
		return
	}
	g.visitedEdges[edge] = struct{}{}

	if edge.Dyndep != nil && edge.Dyndep.DyndepPending {
		if err := g.dyndepLoader.LoadDyndeps(edge.Dyndep, nil); err != nil {
			fmt.Printf("nin: warning: %s\n", err)
		}
	}

	if len(edge.Inputs) == 1 && len(edge.Outputs) == 1 {
		// Can draw simply. Note extra space before label text -- this is
		// cosmetic and feels like a graphviz bug.
		fmt.Printf("\"%p\" -> \"%p\" [label=\" %s\"]\n", edge.Inputs[0], edge.Outputs[0], edge.Rule.Name)
	} else {
		fmt.Printf("\"%p\" [label=\"%s\", shape=ellipse]\n", edge, edge.Rule.Name)
		for _, out := range edge.Outputs {
			fmt.Printf("\"%p\" -> \"%p\"\n", edge, out)
		}
		for i, in := range edge.Inputs {
			orderOnly := ""
			if edge.IsOrderOnly(i) {
				orderOnly = " style=dotted"
			}
			fmt.Printf("\"%p\" -> \"%p\" [arrowhead=none%s]\n", in, edge, orderOnly)
		}
	}

	for _, in := range edge.Inputs {
		g.AddTarget(in)
	}
}
