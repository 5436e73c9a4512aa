// Copyright 2015 Google Inc. All Rights Reserved.
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

// Dyndeps is the dynamically-discovered dependency information for one
// edge, as loaded from a dyndep file.
type Dyndeps struct {
	used             bool
	Restat           bool
	ImplicitInputs   []*Node
	ImplicitOutputs  []*Node
}

// DyndepFile maps an edge to the dyndep information loaded for it from one
// dyndep file.
type DyndepFile map[*Edge]*Dyndeps

// DyndepLoader loads dynamically discovered dependencies, as referenced
// via an edge's "dyndep" binding.
type DyndepLoader struct {
	state *State
	di    DiskInterface
}

// NewDyndepLoader returns a DyndepLoader.
func NewDyndepLoader(state *State, di DiskInterface) DyndepLoader {
	return DyndepLoader{state: state, di: di}
}

// LoadDyndeps loads the dyndep file named by node and applies its
// information to the build graph. If ddf is non-nil, the loaded per-edge
// information is also copied into it; Builder.LoadDyndeps passes a ddf so it
// can hand that information on to the plan, `-t graph` passes nil.
func (d *DyndepLoader) LoadDyndeps(node *Node, ddf *DyndepFile) error {
	node.DyndepPending = false

	file := DyndepFile{}
	if err := d.loadDyndepFile(node, file); err != nil {
		return err
	}
	if ddf != nil {
		for e, dd := range file {
			(*ddf)[e] = dd
		}
	}

	for _, edge := range node.OutEdges {
		if edge.Dyndep != node {
			continue
		}

		dd, ok := file[edge]
		if !ok {
			return fmt.Errorf("'%s' not mentioned in its dyndep file '%s'", edge.Outputs[0].Path(), node.Path())
		}
		dd.used = true
		if err := d.updateEdge(edge, dd); err != nil {
			return err
		}
	}

	for edge, dd := range file {
		if !dd.used {
			return fmt.Errorf("dyndep file '%s' mentions output '%s' whose build statement does not have a dyndep binding for the file", node.Path(), edge.Outputs[0].Path())
		}
	}

	return nil
}

// updateEdge merges dyndeps's discoveries into edge: a restat binding,
// extra implicit outputs, and extra implicit inputs.
func (d *DyndepLoader) updateEdge(edge *Edge, dyndeps *Dyndeps) error {
	if dyndeps.Restat {
		edge.Env.AddBinding("restat", "1")
	}

	edge.Outputs = append(edge.Outputs, dyndeps.ImplicitOutputs...)
	edge.ImplicitOuts += int32(len(dyndeps.ImplicitOutputs))

	for _, n := range dyndeps.ImplicitOutputs {
		if old := n.InEdge; old != nil {
			// This node already has a producing edge. That's fine if it was
			// only a placeholder recorded by ImplicitDepLoader; otherwise two
			// build statements are genuinely fighting over the same output.
			if !old.GeneratedByDepLoader {
				return fmt.Errorf("multiple rules generate %s", n.Path())
			}
			old.Outputs = nil
		}
		n.InEdge = edge
	}

	insertAt := len(edge.Inputs) - int(edge.OrderOnlyDeps)
	grown := make([]*Node, len(edge.Inputs)+len(dyndeps.ImplicitInputs))
	copy(grown, edge.Inputs[:insertAt])
	copy(grown[insertAt:], dyndeps.ImplicitInputs)
	copy(grown[insertAt+len(dyndeps.ImplicitInputs):], edge.Inputs[insertAt:])
	edge.Inputs = grown
	edge.ImplicitDeps += int32(len(dyndeps.ImplicitInputs))

	for _, n := range dyndeps.ImplicitInputs {
		n.AddOutEdge(edge)
	}

	return nil
}

// loadDyndepFile reads file's path and parses it into ddf.
func (d *DyndepLoader) loadDyndepFile(file *Node, ddf DyndepFile) error {
	parser := newDyndepParser(d.state, d.di, ddf)
	return parser.load(file.Path())
}
