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

// Token is one lexical unit of the manifest language.
type Token int32

const (
	ERROR Token = iota
	BUILD
	COLON
	DEFAULT
	EQUALS
	IDENT
	INCLUDE
	INDENT
	NEWLINE
	PIPE
	PIPE2
	PIPEAT
	POOL
	RULE
	SUBNINJA
	TEOF
)

// String returns a human-readable form of a token, used in error messages.
func (t Token) String() string {
	switch t {
	case ERROR:
		return "lexing error"
	case BUILD:
		return "'build'"
	case COLON:
		return "':'"
	case DEFAULT:
		return "'default'"
	case EQUALS:
		return "'='"
	case IDENT:
		return "identifier"
	case INCLUDE:
		return "'include'"
	case INDENT:
		return "indent"
	case NEWLINE:
		return "newline"
	case PIPE2:
		return "'||'"
	case PIPE:
		return "'|'"
	case PIPEAT:
		return "'|@'"
	case POOL:
		return "'pool'"
	case RULE:
		return "'rule'"
	case SUBNINJA:
		return "'subninja'"
	case TEOF:
		return "eof"
	}
	return ""
}

// errorHint returns an extra human-readable token hint, used in error
// messages.
func (t Token) errorHint() string {
	if t == COLON {
		return " ($ also escapes ':')"
	}
	return ""
}

var keywords = map[string]Token{
	"build":    BUILD,
	"pool":     POOL,
	"rule":     RULE,
	"default":  DEFAULT,
	"include":  INCLUDE,
	"subninja": SUBNINJA,
}

func isVarnameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '.' || c == '-'
}

func isSimpleVarnameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-'
}

// lexerState is the offset of processing a token.
//
// It is meant to be saved when an error message may be printed after the
// parsing continued.
type lexerState struct {
	// ofs is the current read offset into input. lastToken is the offset of
	// the most recently read token, -1 before the first token is read.
	ofs       int
	lastToken int
}

// error constructs an error message with context.
func (l *lexerState) error(message, filename string, input []byte) error {
	line := 1
	lineStart := 0
	for p := 0; p < l.lastToken && p < len(input); p++ {
		if input[p] == '\n' {
			line++
			lineStart = p + 1
		}
	}
	col := 0
	if l.lastToken != -1 {
		col = l.lastToken - lineStart
	}

	c := ""
	const truncateColumn = 72
	if col > 0 && col < truncateColumn && lineStart < len(input) {
		truncated := true
		length := 0
		for ; length < truncateColumn && lineStart+length < len(input); length++ {
			if input[lineStart+length] == 0 || input[lineStart+length] == '\n' {
				truncated = false
				break
			}
		}
		c = string(input[lineStart : lineStart+length])
		if truncated {
			c += "..."
		}
		c += "\n"
		c += strings.Repeat(" ", col)
		c += "^ near here"
	}
	return fmt.Errorf("%s:%d: %s\n%s", filename, line, message, c)
}

// lexer tokenizes the manifest language. Input must end with a trailing NUL
// byte (the sentinel the grammar relies on to detect end-of-file without a
// separate length check at every rule); Start enforces this.
type lexer struct {
	filename string
	input    []byte

	lexerState
}

// Error constructs an error message with context from the last read token.
func (l *lexer) Error(message string) error {
	return l.lexerState.error(message, l.filename, l.input)
}

// Start begins parsing some input. input must end with a NUL byte.
func (l *lexer) Start(filename string, input []byte) error {
	if len(input) == 0 || input[len(input)-1] != 0 {
		return fmt.Errorf("%s: internal error: input is not NUL terminated", filename)
	}
	l.filename = filename
	l.input = input
	l.ofs = 0
	l.lastToken = -1
	return nil
}

// DescribeLastError describes the last ERROR token, or a generic message.
func (l *lexer) DescribeLastError() string {
	if l.lastToken != -1 && l.lastToken < len(l.input) {
		if l.input[l.lastToken] == '\t' {
			return "tabs are not allowed, use spaces"
		}
	}
	return "lexing error"
}

// UnreadToken rewinds to the last read token.
func (l *lexer) UnreadToken() {
	l.ofs = l.lastToken
}

// ReadToken reads and consumes the next token.
func (l *lexer) ReadToken() Token {
	for {
		start := l.ofs
		p := start

		// Leading spaces: decide between a comment, a line ending, or an
		// INDENT by peeking past them.
		for p < len(l.input) && l.input[p] == ' ' {
			p++
		}
		nSpaces := p - start

		if p < len(l.input) && l.input[p] == '#' {
			// Comment: consume through (and including) the newline, but only
			// if one is actually found before EOF -- a "#" with no trailing
			// newline is not a valid comment and falls through to be lexed
			// as whatever follows the (possible) leading spaces instead.
			q := p
			for q < len(l.input) && l.input[q] != '\n' && l.input[q] != 0 {
				q++
			}
			if q < len(l.input) && l.input[q] == '\n' {
				l.ofs = q + 1
				continue
			}
		}

		if p+1 < len(l.input) && l.input[p] == '\r' && l.input[p+1] == '\n' {
			p += 2
			l.lastToken = start
			l.ofs = p
			return NEWLINE
		}
		if p < len(l.input) && l.input[p] == '\n' {
			p++
			l.lastToken = start
			l.ofs = p
			return NEWLINE
		}
		if nSpaces > 0 {
			l.lastToken = start
			l.ofs = p
			l.eatWhitespace()
			return INDENT
		}

		var token Token
		switch {
		case p < len(l.input) && isVarnameByte(l.input[p]):
			q := p
			for q < len(l.input) && isVarnameByte(l.input[q]) {
				q++
			}
			word := string(l.input[p:q])
			if kw, ok := keywords[word]; ok {
				token = kw
			} else {
				token = IDENT
			}
			p = q
		case p < len(l.input) && l.input[p] == '=':
			token = EQUALS
			p++
		case p < len(l.input) && l.input[p] == ':':
			token = COLON
			p++
		case p < len(l.input) && l.input[p] == '|':
			switch {
			case p+1 < len(l.input) && l.input[p+1] == '@':
				token = PIPEAT
				p += 2
			case p+1 < len(l.input) && l.input[p+1] == '|':
				token = PIPE2
				p += 2
			default:
				token = PIPE
				p++
			}
		case p < len(l.input) && l.input[p] == 0:
			token = TEOF
		default:
			token = ERROR
			p++
		}

		l.lastToken = start
		l.ofs = p
		if token != NEWLINE && token != TEOF {
			l.eatWhitespace()
		}
		return token
	}
}

// PeekToken reads a token; if it matches token it is consumed and true is
// returned, else it is unread and false is returned.
func (l *lexer) PeekToken(token Token) bool {
	t := l.ReadToken()
	if t == token {
		return true
	}
	l.UnreadToken()
	return false
}

// eatWhitespace skips spaces and escaped line continuations ("$\n", "$\r\n")
// between tokens.
func (l *lexer) eatWhitespace() {
	p := l.ofs
	for {
		switch {
		case p < len(l.input) && l.input[p] == ' ':
			p++
		case p+2 < len(l.input) && l.input[p] == '$' && l.input[p+1] == '\r' && l.input[p+2] == '\n':
			p += 3
		case p+1 < len(l.input) && l.input[p] == '$' && l.input[p+1] == '\n':
			p += 2
		default:
			l.ofs = p
			return
		}
	}
}

// readIdent reads a simple identifier (a rule or variable name). Returns ""
// if a name can't be read, leaving the offset unchanged.
func (l *lexer) readIdent() string {
	p := l.ofs
	start := p
	for p < len(l.input) && isVarnameByte(l.input[p]) {
		p++
	}
	if p == start {
		l.lastToken = start
		return ""
	}
	out := string(l.input[start:p])
	l.lastToken = start
	l.ofs = p
	l.eatWhitespace()
	return out
}

// readEvalString reads a $-escaped string.
//
// If path is true, read a path (complete with $escapes): it stops at an
// unescaped space, ':', '|' or newline. A terminating space is consumed
// together with the whitespace after it; ':', '|' and a newline are left for
// the next token.
//
// If path is false, read the value side of a var = value line (complete
// with $escapes): spaces, ':' and '|' are literal content; only a newline
// terminates.
func (l *lexer) readEvalString(path bool) (EvalString, error) {
	eval := EvalString{}
	p := l.ofs
	for {
		start := p
		if p >= len(l.input) {
			l.lastToken = start
			return EvalString{}, l.Error("unexpected EOF")
		}
		c := l.input[p]
		switch {
		case c == 0:
			l.lastToken = start
			return EvalString{}, l.Error("unexpected EOF")
		case c == '\r' && p+1 < len(l.input) && l.input[p+1] == '\n':
			if path {
				p = start
			} else {
				p += 2
			}
			l.lastToken = start
			l.ofs = p
			if path {
				l.eatWhitespace()
			}
			return eval, nil
		case c == ' ' || c == ':' || c == '|' || c == '\n':
			if path {
				p = start
				l.lastToken = start
				l.ofs = p
				l.eatWhitespace()
				return eval, nil
			}
			if c == '\n' {
				p++
				l.lastToken = start
				l.ofs = p
				return eval, nil
			}
			eval.AddText(string(l.input[p : p+1]))
			p++
		case c == '$':
			if p+1 >= len(l.input) {
				l.lastToken = start
				return EvalString{}, l.Error("bad $-escape (literal $ must be written as $$)")
			}
			switch next := l.input[p+1]; {
			case next == '$':
				eval.AddText("$")
				p += 2
			case next == ' ':
				eval.AddText(" ")
				p += 2
			case next == ':':
				eval.AddText(":")
				p += 2
			case next == '\r' && p+2 < len(l.input) && l.input[p+2] == '\n':
				p += 3
				for p < len(l.input) && l.input[p] == ' ' {
					p++
				}
			case next == '\n':
				p += 2
				for p < len(l.input) && l.input[p] == ' ' {
					p++
				}
			case next == '{':
				q := p + 2
				for q < len(l.input) && isVarnameByte(l.input[q]) {
					q++
				}
				if q >= len(l.input) || l.input[q] != '}' || q == p+2 {
					l.lastToken = p
					return EvalString{}, l.Error(l.DescribeLastError())
				}
				eval.AddSpecial(string(l.input[p+2 : q]))
				p = q + 1
			case isSimpleVarnameByte(next):
				q := p + 1
				for q < len(l.input) && isSimpleVarnameByte(l.input[q]) {
					q++
				}
				eval.AddSpecial(string(l.input[p+1 : q]))
				p = q
			default:
				l.lastToken = p
				return EvalString{}, l.Error("bad $-escape (literal $ must be written as $$)")
			}
		default:
			q := p
		runLoop:
			for q < len(l.input) {
				switch l.input[q] {
				case '$', ' ', ':', '|', '\r', '\n', 0:
					break runLoop
				default:
					q++
				}
			}
			eval.AddText(string(l.input[p:q]))
			p = q
		}
	}
}
