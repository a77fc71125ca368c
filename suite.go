package vrt

import (
	"context"
	"errors"
)

// ErrDuplicateIdentity is returned for a test whose identity is already
// claimed by an earlier test in the same tree.
var ErrDuplicateIdentity = errors.New("vrt: duplicate test identity")

// Hook runs once around the tests of a suite.
type Hook func(ctx context.Context) error

// Suite is a named group of tests and nested suites.
//
// Registration is single-threaded and happens before a run; a Suite must not
// be modified while it is running.
type Suite struct {
	name     string
	opts     []Option
	mode     Mode
	parent   *Suite
	children []any // *Suite or *Test, in registration order

	beforeAll []Hook
	afterAll  []Hook
}

// Test is one registered screenshot test.
type Test struct {
	name     string
	scenario Scenario
	opts     []Option
	mode     Mode
	suite    *Suite
}

// NewSuite creates a root suite. An empty name adds no identity segment.
func NewSuite(name string, opts ...Option) *Suite {
	return &Suite{name: name, opts: opts, mode: newNodeConfig(opts).mode}
}

// Name returns the suite name.
func (s *Suite) Name() string { return s.name }

// Mode returns the suite's own selection mode.
func (s *Suite) Mode() Mode { return s.mode }

// Parent returns the enclosing suite, or nil for a root.
func (s *Suite) Parent() *Suite { return s.parent }

// Describe registers a nested suite and calls body to populate it.
func (s *Suite) Describe(name string, body func(*Suite), opts ...Option) *Suite {
	child := &Suite{name: name, opts: opts, mode: newNodeConfig(opts).mode, parent: s}
	s.children = append(s.children, child)
	if body != nil {
		body(child)
	}
	return child
}

// It registers a test.
func (s *Suite) It(name string, scenario Scenario, opts ...Option) *Test {
	t := &Test{name: name, scenario: scenario, opts: opts, mode: newNodeConfig(opts).mode, suite: s}
	s.children = append(s.children, t)
	return t
}

// BeforeAll registers a hook run before the first selected test of s.
func (s *Suite) BeforeAll(h Hook) { s.beforeAll = append(s.beforeAll, h) }

// AfterAll registers a hook run after the last test of s, if BeforeAll ran.
func (s *Suite) AfterAll(h Hook) { s.afterAll = append(s.afterAll, h) }

// Tests returns every test in s and its descendants, depth first.
func (s *Suite) Tests() []*Test {
	var out []*Test
	s.walk(func(t *Test) { out = append(out, t) })
	return out
}

func (s *Suite) walk(fn func(*Test)) {
	for _, c := range s.children {
		switch n := c.(type) {
		case *Suite:
			n.walk(fn)
		case *Test:
			fn(n)
		}
	}
}

// Name returns the test name.
func (t *Test) Name() string { return t.name }

// Mode returns the test's own selection mode.
func (t *Test) Mode() Mode { return t.mode }

// Suite returns the enclosing suite.
func (t *Test) Suite() *Suite { return t.suite }

// Identity returns the test identity, computed from the names of its suites.
func (t *Test) Identity() string {
	var names []string
	for s := t.suite; s != nil; s = s.parent {
		names = append(names, s.name)
	}
	f := Frame{}
	for i := len(names) - 1; i >= 0; i-- {
		f = f.child(names[i], &nodeConfig{})
	}
	return f.Identity(t.name)
}

// Plan is the outcome of the selection pass over a suite tree.
type Plan struct {
	selected   map[*Test]bool
	active     map[*Suite]bool
	duplicates map[*Test]bool
	focused    bool
	count      int
}

// Select decides which tests of root run.
//
// When any suite or test in the tree is focused, only focused nodes and
// their descendants are selected. A skipped node and all its descendants are
// never selected, even when focused.
func Select(root *Suite) *Plan {
	p := &Plan{
		selected:   make(map[*Test]bool),
		active:     make(map[*Suite]bool),
		duplicates: make(map[*Test]bool),
	}
	p.focused = root.hasFocus()

	seen := make(map[string]bool)
	p.visit(root, false, false, seen)
	return p
}

func (s *Suite) hasFocus() bool {
	if s.mode == ModeFocused {
		return true
	}
	for _, c := range s.children {
		switch n := c.(type) {
		case *Suite:
			if n.hasFocus() {
				return true
			}
		case *Test:
			if n.mode == ModeFocused {
				return true
			}
		}
	}
	return false
}

func (p *Plan) visit(s *Suite, inFocus, skipped bool, seen map[string]bool) bool {
	inFocus = inFocus || s.mode == ModeFocused
	skipped = skipped || s.mode == ModeSkipped

	found := false
	for _, c := range s.children {
		switch n := c.(type) {
		case *Suite:
			if p.visit(n, inFocus, skipped, seen) {
				found = true
			}
		case *Test:
			id := n.Identity()
			if seen[id] {
				p.duplicates[n] = true
			}
			seen[id] = true

			if skipped || n.mode == ModeSkipped {
				continue
			}
			if p.focused && !inFocus && n.mode != ModeFocused {
				continue
			}
			p.selected[n] = true
			p.count++
			found = true
		}
	}
	if found {
		p.active[s] = true
	}
	return found
}

// Selected reports whether t runs.
func (p *Plan) Selected(t *Test) bool { return p.selected[t] }

// Active reports whether s contains at least one selected test.
func (p *Plan) Active(s *Suite) bool { return p.active[s] }

// Duplicate reports whether t repeats the identity of an earlier test.
func (p *Plan) Duplicate(t *Test) bool { return p.duplicates[t] }

// Focused reports whether the tree contains a focused node.
func (p *Plan) Focused() bool { return p.focused }

// Count returns the number of selected tests.
func (p *Plan) Count() int { return p.count }
