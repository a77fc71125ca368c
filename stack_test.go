package vrt

import (
	"errors"
	"testing"

	"github.com/gogpu/vrt/diff"
)

func TestEscapeName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"plain", "plain"},
		{"a/b", "a%2Fb"},
		{`a\b`, "a%5Cb"},
		{"//", "%2F%2F"},
		{"with space", "with space"},
		{"e\u0301", "\u00e9"}, // NFC composes the accent
	}
	for _, tt := range tests {
		if got := EscapeName(tt.name); got != tt.want {
			t.Errorf("EscapeName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestStackPrefix(t *testing.T) {
	s := NewStack(DefaultFrame())

	releaseA := s.Enter("a")
	releaseB := s.Enter("b")
	if got := s.Current().Identity("t"); got != "a/b/t" {
		t.Errorf("Identity = %q, want %q", got, "a/b/t")
	}
	if s.Depth() != 2 {
		t.Errorf("Depth = %d, want 2", s.Depth())
	}
	releaseB()
	releaseA()

	if s.Current().Prefix != "" || s.Depth() != 0 {
		t.Errorf("after release: prefix %q depth %d", s.Current().Prefix, s.Depth())
	}
}

func TestStackEscapesSeparator(t *testing.T) {
	s := NewStack(DefaultFrame())
	defer s.Enter("a/b")()

	if got := s.Current().Prefix; got != "a%2Fb/" {
		t.Errorf("Prefix = %q, want %q", got, "a%2Fb/")
	}
}

func TestStackEmptyName(t *testing.T) {
	s := NewStack(DefaultFrame())
	defer s.Enter("outer")()
	defer s.Enter("", WithShiftThreshold(0))()

	f := s.Current()
	if f.Prefix != "outer/" {
		t.Errorf("Prefix = %q, want %q", f.Prefix, "outer/")
	}
	if f.ShiftThreshold() != 0 {
		t.Errorf("ShiftThreshold = %d, want 0", f.ShiftThreshold())
	}
}

func TestStackInheritance(t *testing.T) {
	s := NewStack(DefaultFrame())

	r1 := s.Enter("a", WithShiftThreshold(5), WithDensity(2))
	r2 := s.Enter("b")
	if got := s.Current().ShiftThreshold(); got != 5 {
		t.Errorf("inherited ShiftThreshold = %d, want 5", got)
	}
	if got := s.Current().Density; got != 2 {
		t.Errorf("inherited Density = %v, want 2", got)
	}

	r3 := s.Enter("c", WithShiftThreshold(1))
	if got := s.Current().ShiftThreshold(); got != 1 {
		t.Errorf("overridden ShiftThreshold = %d, want 1", got)
	}
	r3()
	if got := s.Current().ShiftThreshold(); got != 5 {
		t.Errorf("restored ShiftThreshold = %d, want 5", got)
	}
	r2()
	r1()

	f := s.Current()
	if f.ShiftThreshold() != diff.DefaultShiftThreshold || f.Density != 1 {
		t.Errorf("root restored to shift %d density %v", f.ShiftThreshold(), f.Density)
	}
}

func TestStackToleranceOrder(t *testing.T) {
	strict := diff.DefaultThresholds()
	strict.MaxSignificantPixels = 0
	strict.ShiftThreshold = 7

	// The explicit shift wins regardless of option order.
	for _, opts := range [][]Option{
		{WithTolerance(strict), WithShiftThreshold(3)},
		{WithShiftThreshold(3), WithTolerance(strict)},
	} {
		s := NewStack(DefaultFrame())
		release := s.Enter("x", opts...)
		f := s.Current()
		if f.ShiftThreshold() != 3 || f.Thresholds.MaxSignificantPixels != 0 {
			t.Errorf("thresholds = %+v, want strict with shift 3", f.Thresholds)
		}
		release()
	}
}

func TestWithinRestoresOnError(t *testing.T) {
	s := NewStack(DefaultFrame())
	boom := errors.New("boom")

	err := s.Within("a", []Option{WithShiftThreshold(9)}, func(f Frame) error {
		if f.Prefix != "a/" {
			t.Errorf("Prefix = %q, want %q", f.Prefix, "a/")
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Within = %v, want %v", err, boom)
	}
	if s.Depth() != 0 || s.Current().ShiftThreshold() != diff.DefaultShiftThreshold {
		t.Errorf("frame not restored: depth %d shift %d", s.Depth(), s.Current().ShiftThreshold())
	}
}

func TestWithinRestoresOnPanic(t *testing.T) {
	s := NewStack(DefaultFrame())

	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic not propagated")
			}
		}()
		_ = s.Within("outer", nil, func(Frame) error {
			return s.Within("inner", nil, func(Frame) error {
				panic("scenario failed")
			})
		})
	}()

	if s.Depth() != 0 || s.Current().Prefix != "" {
		t.Errorf("after panic: depth %d prefix %q", s.Depth(), s.Current().Prefix)
	}
}

func TestReleaseOutOfOrderPanics(t *testing.T) {
	s := NewStack(DefaultFrame())
	r1 := s.Enter("a")
	r2 := s.Enter("b")

	defer func() {
		if recover() == nil {
			t.Error("out-of-order release did not panic")
		}
		r2()
		r1()
		r1() // second release is a no-op
		if s.Depth() != 0 {
			t.Errorf("Depth = %d, want 0", s.Depth())
		}
	}()
	r1()
}
