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

import "strings"

// Env is a scope for variable (e.g. "$foo") lookups.
type Env interface {
	LookupVariable(name string) string
}

// EvalStringToken is one piece of a tokenized EvalString: either raw text
// or, when Special is true, the name of a variable to substitute.
type EvalStringToken struct {
	Text    string
	Special bool
}

// TokenListItem is an alias kept for symmetry with the lexer, which builds
// EvalString.Parsed slices token by token as it scans.
type TokenListItem = EvalStringToken

// EvalString is a tokenized string that contains variable references. It
// can be evaluated relative to an Env.
type EvalString struct {
	Parsed []TokenListItem
}

// Empty returns true if the string has no tokens at all (not even an empty
// raw token), matching the C++ original's "empty means nothing was parsed"
// semantics used to detect a missing `=` value.
func (e *EvalString) Empty() bool {
	return len(e.Parsed) == 0
}

// Evaluate expands every token against env, substituting variable values in
// place of Special tokens.
func (e *EvalString) Evaluate(env Env) string {
	if len(e.Parsed) == 1 {
		if !e.Parsed[0].Special {
			return e.Parsed[0].Text
		}
		return env.LookupVariable(e.Parsed[0].Text)
	}
	var b strings.Builder
	for _, p := range e.Parsed {
		if !p.Special {
			b.WriteString(p.Text)
		} else {
			b.WriteString(env.LookupVariable(p.Text))
		}
	}
	return b.String()
}

// AddText appends to the end of an existing raw token if possible, else
// starts a new one.
func (e *EvalString) AddText(text string) {
	if n := len(e.Parsed); n != 0 && !e.Parsed[n-1].Special {
		e.Parsed[n-1].Text += text
	} else {
		e.Parsed = append(e.Parsed, TokenListItem{Text: text})
	}
}

// AddSpecial appends a variable-reference token.
func (e *EvalString) AddSpecial(text string) {
	e.Parsed = append(e.Parsed, TokenListItem{Text: text, Special: true})
}

// Serialize renders the token list in a debug-friendly form: "[tok][$tok]".
func (e *EvalString) Serialize() string {
	var b strings.Builder
	for _, p := range e.Parsed {
		b.WriteByte('[')
		if p.Special {
			b.WriteByte('$')
		}
		b.WriteString(p.Text)
		b.WriteByte(']')
	}
	return b.String()
}

// Unparse renders the original (normalized) textual form: variable
// references are always written as "${name}".
func (e *EvalString) Unparse() string {
	var b strings.Builder
	for _, p := range e.Parsed {
		if p.Special {
			b.WriteString("${")
			b.WriteString(p.Text)
			b.WriteByte('}')
		} else {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// reservedBindings are keys on a Rule that have intrinsic meaning to the
// core engine; all others are permitted but opaque.
var reservedBindings = map[string]bool{
	"command":          true,
	"depfile":          true,
	"dyndep":           true,
	"description":      true,
	"deps":             true,
	"generator":        true,
	"pool":             true,
	"restat":           true,
	"rspfile":          true,
	"rspfile_content":  true,
	"msvc_deps_prefix": true,
}

// IsReservedBinding reports whether var is one of the rule-level bindings
// with built-in meaning to the engine.
func IsReservedBinding(v string) bool {
	return reservedBindings[v]
}

// Rule is an invocable build command and associated metadata (description,
// etc.)
type Rule struct {
	Name     string
	Bindings map[string]*EvalString
}

// NewRule returns a Rule with an initialized, empty binding map.
func NewRule(name string) *Rule {
	return &Rule{Name: name, Bindings: map[string]*EvalString{}}
}

// AddBinding records one `key = value` pair parsed inside a rule block.
func (r *Rule) AddBinding(key string, val *EvalString) {
	r.Bindings[key] = val
}

// GetBinding returns the raw (unevaluated) binding for key, or nil.
func (r *Rule) GetBinding(key string) *EvalString {
	return r.Bindings[key]
}

// phonyRule is the built-in rule that every State seeds its root scope
// with; `build ... : phony ...` statements resolve to it.
var phonyRule = &Rule{Name: "phony", Bindings: map[string]*EvalString{}}

// BindingEnv is an Env that holds its own variable/rule mappings plus a
// pointer to a parent scope; lookups that miss locally fall back to the
// parent. Files parsed via `subninja` get a child BindingEnv; `include`
// merges directly into the including scope instead.
type BindingEnv struct {
	Bindings map[string]string
	Rules    map[string]*Rule
	Parent   *BindingEnv
}

// NewBindingEnv returns a BindingEnv with initialized maps and the given
// (possibly nil) parent.
func NewBindingEnv(parent *BindingEnv) *BindingEnv {
	return &BindingEnv{
		Bindings: map[string]string{},
		Rules:    map[string]*Rule{},
		Parent:   parent,
	}
}

// LookupVariable implements Env.
func (b *BindingEnv) LookupVariable(name string) string {
	if v, ok := b.Bindings[name]; ok {
		return v
	}
	if b.Parent != nil {
		return b.Parent.LookupVariable(name)
	}
	return ""
}

// AddBinding records a fully-evaluated `key = value` pair in this scope.
func (b *BindingEnv) AddBinding(key, val string) {
	b.Bindings[key] = val
}

// AddRule registers rule in this scope. It panics if a rule of the same
// name already exists in this (not a parent) scope; callers are expected to
// check LookupRuleCurrentScope first to produce a clean parse error.
func (b *BindingEnv) AddRule(rule *Rule) {
	if _, ok := b.Rules[rule.Name]; ok {
		panic("duplicate rule '" + rule.Name + "'")
	}
	b.Rules[rule.Name] = rule
}

// LookupRuleCurrentScope returns the rule named ruleName defined directly in
// this scope, ignoring parents.
func (b *BindingEnv) LookupRuleCurrentScope(ruleName string) *Rule {
	return b.Rules[ruleName]
}

// LookupRule walks this scope and its parents for a rule named ruleName.
func (b *BindingEnv) LookupRule(ruleName string) *Rule {
	if r, ok := b.Rules[ruleName]; ok {
		return r
	}
	if b.Parent != nil {
		return b.Parent.LookupRule(ruleName)
	}
	return nil
}

// GetRules returns the rules defined directly in this scope.
func (b *BindingEnv) GetRules() map[string]*Rule {
	return b.Rules
}

// LookupWithFallback returns the value bound to name in this scope; if none
// exists and eval is non-nil, it evaluates eval against env instead; if
// eval is nil, it falls back to the parent scope.
func (b *BindingEnv) LookupWithFallback(name string, eval *EvalString, env Env) string {
	if v, ok := b.Bindings[name]; ok {
		return v
	}
	if eval != nil {
		return eval.Evaluate(env)
	}
	if b.Parent != nil {
		return b.Parent.LookupVariable(name)
	}
	return ""
}
