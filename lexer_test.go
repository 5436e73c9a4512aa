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

import "testing"

// newTestLexer returns a lexer ready to scan s; it appends the trailing NUL
// the grammar requires.
func newTestLexer(s string) *lexer {
	l := &lexer{}
	if err := l.Start("input", append([]byte(s), 0)); err != nil {
		panic(err)
	}
	return l
}

func TestLexerReadVarValue(t *testing.T) {
	l := newTestLexer("plain text $var $VaR ${x}\n")
	eval, err := l.readEvalString(false)
	if err != nil {
		t.Fatal(err)
	}
	if got := eval.Serialize(); got != "[plain text ][$var][ ][$VaR][ ][$x]" {
		t.Fatal(got)
	}
}

func TestLexerReadEvalStringEscapes(t *testing.T) {
	l := newTestLexer("$ $$ab c$: $\ncde\n")
	eval, err := l.readEvalString(false)
	if err != nil {
		t.Fatal(err)
	}
	if got := eval.Serialize(); got != "[ $ab c: cde]" {
		t.Fatal(got)
	}
}

func TestLexerReadIdent(t *testing.T) {
	l := newTestLexer("foo baR baz_123 foo-bar")
	for _, want := range []string{"foo", "baR", "baz_123", "foo-bar"} {
		if got := l.readIdent(); got != want {
			t.Fatalf("readIdent() = %q, want %q", got, want)
		}
	}
}

func TestLexerReadIdentCurlies(t *testing.T) {
	// readIdent includes dots in the name, but inside an expansion
	// $bar.dots stops at the dot (simpleVarname excludes '.').
	l := newTestLexer("foo.dots $bar.dots ${bar.dots}\n")
	if got := l.readIdent(); got != "foo.dots" {
		t.Fatal(got)
	}
	eval, err := l.readEvalString(false)
	if err != nil {
		t.Fatal(err)
	}
	if got := eval.Serialize(); got != "[$bar][.dots ][$bar.dots]" {
		t.Fatal(got)
	}
}

func TestLexerBadEscape(t *testing.T) {
	l := newTestLexer("bad $")
	l.readIdent()
	_, err := l.readEvalString(false)
	if err == nil {
		t.Fatal("expected error")
	}
	want := "input:1: bad $-escape (literal $ must be written as $$)\nbad $\n    ^ near here"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}

func TestLexerCommentEOF(t *testing.T) {
	// Verify we don't run off the end of the string when the EOF is
	// mid-comment, and that a newline-less "#" lexes as ERROR rather than
	// looping forever.
	l := newTestLexer("# foo")
	if token := l.ReadToken(); token != ERROR {
		t.Fatal(token)
	}
}

func TestLexerTabs(t *testing.T) {
	// Verify we print a useful error on a disallowed character.
	l := newTestLexer("   \tfoobar")
	if token := l.ReadToken(); token != INDENT {
		t.Fatal(token)
	}
	if token := l.ReadToken(); token != ERROR {
		t.Fatal(token)
	}
	if got := l.DescribeLastError(); got != "tabs are not allowed, use spaces" {
		t.Fatal(got)
	}
}

