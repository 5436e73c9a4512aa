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
	"os"
)

// Cleaner implements the `-t clean`/`-t cleandead` subtools: it removes the
// files an edge produces (and its depfile/rspfile), either for the whole
// graph, specific targets, or specific rules.
type Cleaner struct {
	state        *State
	config       *BuildConfig
	dyndepLoader DyndepLoader
	di           DiskInterface

	removed            map[string]struct{}
	cleaned             map[*Node]struct{}
	cleanedFilesCount int
	status              int
}

// NewCleaner returns a Cleaner operating on state's graph via di.
func NewCleaner(state *State, config *BuildConfig, di DiskInterface) *Cleaner {
	return &Cleaner{
		state:        state,
		config:       config,
		dyndepLoader: NewDyndepLoader(state, di),
		di:           di,
	}
}

// CleanedFilesCount returns the number of files removed so far.
func (c *Cleaner) CleanedFilesCount() int { return c.cleanedFilesCount }

// IsVerbose reports whether individual removed files should be printed.
func (c *Cleaner) IsVerbose() bool {
	return c.config.Verbosity != Quiet && (c.config.Verbosity == Verbose || c.config.DryRun)
}

func (c *Cleaner) removeFile(path string) error { return c.di.RemoveFile(path) }

func (c *Cleaner) fileExists(path string) bool {
	mtime, err := c.di.Stat(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nin: error: %s\n", err)
	}
	return mtime > 0
}

func (c *Cleaner) report(path string) {
	c.cleanedFilesCount++
	if c.IsVerbose() {
		fmt.Printf("Remove %s\n", path)
	}
}

func (c *Cleaner) isAlreadyRemoved(path string) bool {
	_, ok := c.removed[path]
	return ok
}

func (c *Cleaner) remove(path string) {
	if c.isAlreadyRemoved(path) {
		return
	}
	c.removed[path] = struct{}{}
	if c.config.DryRun {
		if c.fileExists(path) {
			c.report(path)
		}
		return
	}
	err := c.removeFile(path)
	switch {
	case err == nil:
		c.report(path)
	case errors.Is(err, ErrNotFound):
		// Already gone; nothing to report.
	default:
		c.status = 1
	}
}

func (c *Cleaner) removeEdgeFiles(edge *Edge) {
	if depfile := edge.GetUnescapedDepfile(); depfile != "" {
		c.remove(depfile)
	}
	if rspfile := edge.GetUnescapedRspfile(); rspfile != "" {
		c.remove(rspfile)
	}
}

func (c *Cleaner) printHeader() {
	if c.config.Verbosity == Quiet {
		return
	}
	if c.IsVerbose() {
		fmt.Print("Cleaning...\n")
	} else {
		fmt.Print("Cleaning... ")
	}
}

func (c *Cleaner) printFooter() {
	if c.config.Verbosity == Quiet {
		return
	}
	fmt.Printf("%d files.\n", c.cleanedFilesCount)
}

func (c *Cleaner) reset() {
	c.status = 0
	c.cleanedFilesCount = 0
	c.removed = map[string]struct{}{}
	c.cleaned = map[*Node]struct{}{}
}

// loadDyndeps loads every edge's dyndep file, if any, before cleaning so the
// dynamically-discovered outputs are cleaned too. Errors are ignored: we
// clean as much of the graph as we know about.
func (c *Cleaner) loadDyndeps() {
	for _, e := range c.state.Edges {
		if dyndep := e.Dyndep; dyndep != nil {
			_ = c.dyndepLoader.LoadDyndeps(dyndep, nil)
		}
	}
}

// CleanAll removes every edge's outputs. Generator outputs are preserved
// unless generator is true.
func (c *Cleaner) CleanAll(generator bool) int {
	c.reset()
	c.printHeader()
	c.loadDyndeps()
	for _, e := range c.state.Edges {
		if e.IsPhony() {
			continue
		}
		if !generator && e.GetBindingBool("generator") {
			continue
		}
		for _, out := range e.Outputs {
			c.remove(out.Path())
		}
		c.removeEdgeFiles(e)
	}
	c.printFooter()
	return c.status
}

// CleanDead removes outputs recorded in the build log that are no longer
// reachable from the current manifest.
func (c *Cleaner) CleanDead(entries map[string]*LogEntry) int {
	c.reset()
	c.printHeader()
	for path := range entries {
		n := c.state.LookupNode(path)
		if n == nil || (n.InEdge == nil && len(n.OutEdges) == 0) {
			c.remove(path)
		}
	}
	c.printFooter()
	return c.status
}

func (c *Cleaner) doCleanTarget(target *Node) {
	if e := target.InEdge; e != nil {
		if !e.IsPhony() {
			c.remove(target.Path())
			c.removeEdgeFiles(e)
		}
		for _, in := range e.Inputs {
			if _, ok := c.cleaned[in]; !ok {
				c.doCleanTarget(in)
			}
		}
	}
	c.cleaned[target] = struct{}{}
}

// CleanTargets removes the outputs of targetNames and everything they
// transitively depend on.
func (c *Cleaner) CleanTargets(targetNames []string) int {
	c.reset()
	c.printHeader()
	c.loadDyndeps()
	for _, name := range targetNames {
		if name == "" {
			fmt.Fprintf(os.Stderr, "nin: error: failed to canonicalize '': empty path\n")
			c.status = 1
			continue
		}
		path, _ := CanonicalizePathBits(name)
		target := c.state.LookupNode(path)
		if target == nil {
			fmt.Fprintf(os.Stderr, "nin: error: unknown target '%s'\n", name)
			c.status = 1
			continue
		}
		if c.IsVerbose() {
			fmt.Printf("Target %s\n", name)
		}
		c.doCleanTarget(target)
	}
	c.printFooter()
	return c.status
}

func (c *Cleaner) doCleanRule(rule *Rule) {
	for _, e := range c.state.Edges {
		if e.Rule.Name == rule.Name {
			for _, out := range e.Outputs {
				c.remove(out.Path())
			}
			c.removeEdgeFiles(e)
		}
	}
}

// CleanRules removes the outputs of every edge using one of ruleNames.
func (c *Cleaner) CleanRules(ruleNames []string) int {
	c.reset()
	c.printHeader()
	c.loadDyndeps()
	for _, name := range ruleNames {
		rule := c.state.Bindings.LookupRule(name)
		if rule == nil {
			fmt.Fprintf(os.Stderr, "nin: error: unknown rule '%s'\n", name)
			c.status = 1
			continue
		}
		if c.IsVerbose() {
			fmt.Printf("Rule %s\n", name)
		}
		c.doCleanRule(rule)
	}
	c.printFooter()
	return c.status
}
