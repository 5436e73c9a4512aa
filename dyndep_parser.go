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

// dyndepParser parses the small ninja-dyndep-version=1 grammar: a version
// declaration followed by zero or more `build ... : dyndep ...` statements,
// each recording extra implicit inputs/outputs (and optionally a restat
// flag) for an edge that already exists in state.
type dyndepParser struct {
	state *State
	fr    FileReader
	file  DyndepFile
	env   *BindingEnv
	lexer lexer
}

func newDyndepParser(state *State, fr FileReader, file DyndepFile) *dyndepParser {
	return &dyndepParser{state: state, fr: fr, file: file, env: NewBindingEnv(nil)}
}

// load reads and parses the dyndep file at path.
func (d *dyndepParser) load(path string) error {
	content, err := d.fr.ReadFile(path)
	if err != nil {
		return err
	}
	if err := d.parse(path, content); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// parseTest parses input directly, for tests.
func (d *dyndepParser) parseTest(input string) error {
	return d.parse("input", append([]byte(input), 0))
}

func (d *dyndepParser) parse(filename string, input []byte) error {
	if err := d.lexer.Start(filename, input); err != nil {
		return err
	}

	haveDyndepVersion := false

	for {
		token := d.lexer.ReadToken()
		switch token {
		case BUILD:
			if !haveDyndepVersion {
				return d.lexer.Error("expected 'ninja_dyndep_version = ...'")
			}
			if err := d.parseEdge(); err != nil {
				return err
			}
		case IDENT:
			d.lexer.UnreadToken()
			if haveDyndepVersion {
				return d.lexer.Error("unexpected " + token.String())
			}
			if err := d.parseDyndepVersion(); err != nil {
				return err
			}
			haveDyndepVersion = true
		case ERROR:
			return d.lexer.Error(d.lexer.DescribeLastError())
		case TEOF:
			if !haveDyndepVersion {
				return d.lexer.Error("expected 'ninja_dyndep_version = ...'")
			}
			return nil
		case NEWLINE:
		default:
			return d.lexer.Error("unexpected " + token.String())
		}
	}
}

func (d *dyndepParser) parseDyndepVersion() error {
	name, value, err := d.parseLet()
	if err != nil {
		return err
	}
	if name != "ninja_dyndep_version" {
		return d.lexer.Error("expected 'ninja_dyndep_version = ...'")
	}
	version := value.Evaluate(d.env)
	major, minor := ParseVersion(version)
	if major != 1 || minor != 0 {
		return d.lexer.Error(fmt.Sprintf("unsupported 'ninja_dyndep_version = %s'", version))
	}
	return nil
}

func (d *dyndepParser) parseLet() (string, EvalString, error) {
	key := d.lexer.readIdent()
	if key == "" {
		return "", EvalString{}, d.lexer.Error("expected variable name")
	}
	if err := d.expectToken(EQUALS); err != nil {
		return "", EvalString{}, err
	}
	val, err := d.lexer.readEvalString(false)
	return key, val, err
}

func (d *dyndepParser) expectToken(expected Token) error {
	if token := d.lexer.ReadToken(); token != expected {
		return d.lexer.Error("expected " + expected.String() + ", got " + token.String() + expected.errorHint())
	}
	return nil
}

func (d *dyndepParser) parseEdge() error {
	// The first path names an output that must already have a build edge;
	// this is the edge the rest of the statement attaches dyndep info to.
	out0, err := d.lexer.readEvalString(true)
	if err != nil {
		return err
	}
	if out0.Empty() {
		return d.lexer.Error("expected path")
	}
	path := out0.Evaluate(d.env)
	if path == "" {
		return d.lexer.Error("empty path")
	}
	path = CanonicalizePath(path)
	node := d.state.LookupNode(path)
	if node == nil || node.InEdge == nil {
		return d.lexer.Error("no build statement exists for '" + path + "'")
	}
	edge := node.InEdge
	if _, exists := d.file[edge]; exists {
		return d.lexer.Error("multiple statements for '" + path + "'")
	}
	dyndeps := &Dyndeps{}
	d.file[edge] = dyndeps

	// Disallow a second explicit output.
	out, err := d.lexer.readEvalString(true)
	if err != nil {
		return err
	}
	if !out.Empty() {
		return d.lexer.Error("explicit outputs not supported")
	}

	var outs []EvalString
	if d.lexer.PeekToken(PIPE) {
		for {
			o, err := d.lexer.readEvalString(true)
			if err != nil {
				return err
			}
			if o.Empty() {
				break
			}
			outs = append(outs, o)
		}
	}

	if err := d.expectToken(COLON); err != nil {
		return err
	}

	ruleName := d.lexer.readIdent()
	if ruleName != "dyndep" {
		return d.lexer.Error("expected build command name 'dyndep'")
	}

	// Disallow explicit inputs.
	in, err := d.lexer.readEvalString(true)
	if err != nil {
		return err
	}
	if !in.Empty() {
		return d.lexer.Error("explicit inputs not supported")
	}

	var ins []EvalString
	if d.lexer.PeekToken(PIPE) {
		for {
			i, err := d.lexer.readEvalString(true)
			if err != nil {
				return err
			}
			if i.Empty() {
				break
			}
			ins = append(ins, i)
		}
	}

	if d.lexer.PeekToken(PIPE2) {
		return d.lexer.Error("order-only inputs not supported")
	}

	if err := d.expectToken(NEWLINE); err != nil {
		return err
	}

	if d.lexer.PeekToken(INDENT) {
		key, val, err := d.parseLet()
		if err != nil {
			return err
		}
		if key != "restat" {
			return d.lexer.Error("binding is not 'restat'")
		}
		dyndeps.Restat = val.Evaluate(d.env) != ""
	}

	dyndeps.ImplicitInputs = make([]*Node, 0, len(ins))
	for _, i := range ins {
		p := i.Evaluate(d.env)
		if p == "" {
			return d.lexer.Error("empty path")
		}
		p = CanonicalizePath(p)
		dyndeps.ImplicitInputs = append(dyndeps.ImplicitInputs, d.state.GetNode(p, 0))
	}

	dyndeps.ImplicitOutputs = make([]*Node, 0, len(outs))
	for _, o := range outs {
		p := o.Evaluate(d.env)
		if p == "" {
			return d.lexer.Error("empty path")
		}
		p = CanonicalizePath(p)
		dyndeps.ImplicitOutputs = append(dyndeps.ImplicitOutputs, d.state.GetNode(p, 0))
	}

	return nil
}
