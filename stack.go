package vrt

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/vrt/diff"
)

// Separator joins name segments in a test identity.
const Separator = "/"

// nameEscaper percent-encodes path separators so a name is always exactly
// one segment of the storage path.
var nameEscaper = strings.NewReplacer("/", "%2F", `\`, "%5C")

// EscapeName returns name as a single identity segment: NFC-normalized, with
// every path separator percent-encoded.
func EscapeName(name string) string {
	return nameEscaper.Replace(norm.NFC.String(name))
}

// Frame is the naming and tolerance context active inside a suite.
type Frame struct {
	// Prefix is the concatenation of all escaped ancestor names, each
	// followed by Separator.
	Prefix string

	// Thresholds is the tolerance inherited from the nearest ancestor that
	// set one.
	Thresholds diff.Thresholds

	// Density is the device pixel density subjects are created with.
	Density float64
}

// DefaultFrame returns the root frame: empty prefix, default thresholds,
// density 1.
func DefaultFrame() Frame {
	return Frame{Thresholds: diff.DefaultThresholds(), Density: 1}
}

// ShiftThreshold returns the active shift tolerance in pixels.
func (f Frame) ShiftThreshold() int { return f.Thresholds.ShiftThreshold }

// Identity returns the fully qualified identity of a test named name.
func (f Frame) Identity(name string) string {
	return f.Prefix + EscapeName(name)
}

// child derives the frame of a nested suite.
func (f Frame) child(name string, cfg *nodeConfig) Frame {
	c := f
	if name != "" {
		c.Prefix = f.Prefix + EscapeName(name) + Separator
	}
	cfg.applyTo(&c)
	return c
}

// Stack holds the frames of the suites currently being executed.
//
// Frames are strictly nested: a frame must be released before its parent.
// A Stack is owned by one runner and is not safe for concurrent use.
type Stack struct {
	frames []Frame
}

// NewStack creates a stack whose bottom frame is root.
func NewStack(root Frame) *Stack {
	return &Stack{frames: []Frame{root}}
}

// Current returns the innermost frame.
func (s *Stack) Current() Frame {
	return s.frames[len(s.frames)-1]
}

// Depth returns the number of entered suites.
func (s *Stack) Depth() int {
	return len(s.frames) - 1
}

// Enter pushes the frame of a suite named name and returns the function that
// pops it. An empty name groups without adding a prefix segment.
//
// Releasing out of order panics; releasing twice is a no-op.
func (s *Stack) Enter(name string, opts ...Option) (release func()) {
	cfg := newNodeConfig(opts)
	depth := len(s.frames)
	s.frames = append(s.frames, s.Current().child(name, cfg))

	released := false
	return func() {
		if released {
			return
		}
		if len(s.frames) != depth+1 {
			panic("vrt: suite frame released out of order")
		}
		released = true
		s.frames = s.frames[:depth]
	}
}

// Within runs fn inside the frame of a suite named name. The frame is popped
// on every exit path, including a panic in fn.
func (s *Stack) Within(name string, opts []Option, fn func(Frame) error) error {
	release := s.Enter(name, opts...)
	defer release()
	return fn(s.Current())
}
