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

func TestCLParser_ShowIncludes(t *testing.T) {
	if got := FilterShowIncludes("", ""); got != "" {
		t.Fatalf("%q", got)
	}
	if got := FilterShowIncludes("Sample compiler output", ""); got != "" {
		t.Fatalf("%q", got)
	}
	if got := FilterShowIncludes("Note: including file: c:\\Some Files\\foobar.h", ""); got != "c:\\Some Files\\foobar.h" {
		t.Fatalf("%q", got)
	}
	if got := FilterShowIncludes("Note: including file:    c:\\initspaces.h", ""); got != "c:\\initspaces.h" {
		t.Fatalf("%q", got)
	}
	if got := FilterShowIncludes("Non-default prefix: inc file:    c:\\initspaces.h", "Non-default prefix: inc file:"); got != "c:\\initspaces.h" {
		t.Fatalf("%q", got)
	}
}

func TestCLParser_FilterInputFilename(t *testing.T) {
	if !FilterInputFilename("foobar.cc") {
		t.Fatal("foobar.cc")
	}
	if !FilterInputFilename("foo bar.cc") {
		t.Fatal("foo bar.cc")
	}
	if !FilterInputFilename("baz.c") {
		t.Fatal("baz.c")
	}
	if !FilterInputFilename("FOOBAR.CC") {
		t.Fatal("FOOBAR.CC")
	}
	if FilterInputFilename("src\\cl_helper.cc(166) : fatal error C1075: end of file found ...") {
		t.Fatal("unexpected match")
	}
}

func TestCLParser_ParseSimple(t *testing.T) {
	parser := NewCLParser()
	output, err := parser.Parse("foo\r\nNote: inc file prefix:  foo.h\r\nbar\r\n", "Note: inc file prefix:")
	if err != nil {
		t.Fatal(err)
	}
	if output != "foo\nbar\n" {
		t.Fatalf("%q", output)
	}
	if got := parser.Includes(); len(got) != 1 || got[0] != "foo.h" {
		t.Fatalf("%v", got)
	}
}

func TestCLParser_ParseFilenameFilter(t *testing.T) {
	parser := NewCLParser()
	output, err := parser.Parse("foo.cc\r\ncl: warning\r\n", "")
	if err != nil {
		t.Fatal(err)
	}
	if output != "cl: warning\n" {
		t.Fatalf("%q", output)
	}
}

func TestCLParser_NoFilenameFilterAfterShowIncludes(t *testing.T) {
	parser := NewCLParser()
	output, err := parser.Parse("foo.cc\r\nNote: including file: foo.h\r\nsomething something foo.cc\r\n", "")
	if err != nil {
		t.Fatal(err)
	}
	if output != "something something foo.cc\n" {
		t.Fatalf("%q", output)
	}
}

func TestCLParser_ParseSystemInclude(t *testing.T) {
	parser := NewCLParser()
	output, err := parser.Parse("Note: including file: c:\\Program Files\\foo.h\r\nNote: including file: d:\\Microsoft Visual Studio\\bar.h\r\nNote: including file: path.h\r\n", "")
	if err != nil {
		t.Fatal(err)
	}
	if output != "" {
		t.Fatalf("%q", output)
	}
	// The first two includes look like system headers and are dropped.
	if got := parser.Includes(); len(got) != 1 || got[0] != "path.h" {
		t.Fatalf("%v", got)
	}
}

func TestCLParser_DuplicatedHeader(t *testing.T) {
	parser := NewCLParser()
	output, err := parser.Parse("Note: including file: foo.h\r\nNote: including file: bar.h\r\nNote: including file: foo.h\r\n", "")
	if err != nil {
		t.Fatal(err)
	}
	if output != "" {
		t.Fatalf("%q", output)
	}
	if got := parser.Includes(); len(got) != 2 {
		t.Fatalf("%v", got)
	}
}

func TestCLParser_DuplicatedHeaderPathConverted(t *testing.T) {
	parser := NewCLParser()
	input := "Note: including file: sub/./foo.h\r\n" +
		"Note: including file: bar.h\r\n" +
		"Note: including file: sub/foo.h\r\n"
	output, err := parser.Parse(input, "")
	if err != nil {
		t.Fatal(err)
	}
	if output != "" {
		t.Fatalf("%q", output)
	}
	// sub/./foo.h and sub/foo.h canonicalize to the same path.
	if got := parser.Includes(); len(got) != 2 {
		t.Fatalf("%v", got)
	}
}
