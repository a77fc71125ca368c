package vrt

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"iter"
	"strings"
	"testing"

	"github.com/gogpu/vrt/diff"
	"github.com/gogpu/vrt/store/memstore"
)

func newTestHarness(t *testing.T, f *fakeFactory, opts ...HarnessOption) (*Harness, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	h, err := NewHarness(append([]HarnessOption{WithStore(st), WithSubjects(f)}, opts...)...)
	if err != nil {
		t.Fatalf("NewHarness: %v", err)
	}
	return h, st
}

func readMeta(t *testing.T, st *memstore.Store, id string) Metadata {
	t.Helper()
	data, err := st.ReadFile(context.Background(), MetadataKey(id))
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("metadata %s: %v", data, err)
	}
	return m
}

func TestNewHarnessRequires(t *testing.T) {
	if _, err := NewHarness(WithSubjects(newFactory())); !errors.Is(err, ErrNoStore) {
		t.Errorf("without store: err = %v, want ErrNoStore", err)
	}
	if _, err := NewHarness(WithStore(memstore.New())); !errors.Is(err, ErrNoSubjects) {
		t.Errorf("without subjects: err = %v, want ErrNoSubjects", err)
	}
	bad := diff.DefaultThresholds()
	bad.ColorThreshold = 300
	_, err := NewHarness(WithStore(memstore.New()), WithSubjects(newFactory()), WithThresholds(bad))
	if !errors.Is(err, diff.ErrInvalidThresholds) {
		t.Errorf("bad thresholds: err = %v, want ErrInvalidThresholds", err)
	}
}

func TestRecordThenMatch(t *testing.T) {
	ctx := context.Background()
	f := newFactory(solid(32, 32, white))
	h, st := newTestHarness(t, f)
	frame := DefaultFrame()

	first := h.RunTest(ctx, frame, "blank", shots(1))
	if first.Err != nil {
		t.Fatalf("first run: %v", first.Err)
	}
	if first.Status != StatusRecorded {
		t.Errorf("first Status = %v, want recorded", first.Status)
	}
	if m := readMeta(t, st, "blank"); m.NumScreenshots != 1 {
		t.Errorf("numScreenshots = %d, want 1", m.NumScreenshots)
	}
	if _, err := st.ReadFile(ctx, "blank/000.png"); err != nil {
		t.Errorf("baseline image not written: %v", err)
	}

	second := h.RunTest(ctx, frame, "blank", shots(1))
	if second.Err != nil {
		t.Fatalf("second run: %v", second.Err)
	}
	if second.Status != StatusPassed {
		t.Errorf("second Status = %v, want passed", second.Status)
	}
	if len(second.Verdicts) != 1 || second.Verdicts[0].Outcome != diff.Match || second.Verdicts[0].DiffPixels != 0 {
		t.Errorf("second Verdicts = %+v, want one clean match", second.Verdicts)
	}
	if f.destroyed != 2 {
		t.Errorf("destroyed %d subjects, want 2", f.destroyed)
	}
}

func TestCountMismatch(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHarness(t, newFactory(solid(8, 8, white)))

	if r := h.RunTest(ctx, DefaultFrame(), "t", shots(1)); r.Err != nil {
		t.Fatalf("record: %v", r.Err)
	}
	r := h.RunTest(ctx, DefaultFrame(), "t", shots(2))

	var cm *CountMismatchError
	if !errors.As(r.Err, &cm) {
		t.Fatalf("err = %v, want *CountMismatchError", r.Err)
	}
	if cm.Expected != 1 || cm.Actual != 2 {
		t.Errorf("mismatch = (%d, %d), want (1, 2)", cm.Expected, cm.Actual)
	}
	if !errors.Is(r.Err, ErrScreenshotCountMismatch) {
		t.Error("error does not match ErrScreenshotCountMismatch")
	}
	if r.Status != StatusFailed {
		t.Errorf("Status = %v, want failed", r.Status)
	}
}

func TestNoScreenshots(t *testing.T) {
	f := newFactory(solid(8, 8, white))
	h, st := newTestHarness(t, f)

	r := h.RunTest(context.Background(), DefaultFrame(), "empty", Steps())
	if !errors.Is(r.Err, ErrNoScreenshots) {
		t.Fatalf("err = %v, want ErrNoScreenshots", r.Err)
	}
	if st.Len() != 0 {
		t.Errorf("store has %d blobs, want 0", st.Len())
	}
	if f.destroyed != 1 {
		t.Errorf("destroyed = %d, want 1", f.destroyed)
	}
}

type recordingSink struct{ got []*MismatchError }

func (s *recordingSink) WriteMismatch(_ context.Context, err *MismatchError) error {
	s.got = append(s.got, err)
	return nil
}

func TestMismatch(t *testing.T) {
	ctx := context.Background()
	base := solid(64, 64, white)
	f := newFactory(base)
	sink := &recordingSink{}
	h, _ := newTestHarness(t, f, WithArtifacts(sink))

	h.RunTest(ctx, DefaultFrame(), "page", shots(2))

	f.frames = []*Image{base, withBlock(base, 20, 20, 10, black)}
	r := h.RunTest(ctx, DefaultFrame(), "page", shots(2))

	var me *MismatchError
	if !errors.As(r.Err, &me) {
		t.Fatalf("err = %v, want *MismatchError", r.Err)
	}
	if me.Index != 1 {
		t.Errorf("Index = %d, want 1", me.Index)
	}
	if me.Verdict.Outcome != diff.Mismatch || me.Verdict.SignificantPixels <= diff.DefaultMaxSignificantPixels {
		t.Errorf("Verdict = %+v", me.Verdict)
	}
	if n := strings.Count(me.Diagnostic(), "data:image/png;base64,"); n != 3 {
		t.Errorf("Diagnostic has %d images, want 3", n)
	}
	if len(sink.got) != 1 || sink.got[0] != me {
		t.Errorf("artifact sink got %d mismatches, want the returned one", len(sink.got))
	}
	if len(r.Verdicts) != 2 || r.Verdicts[0].Outcome != diff.Match {
		t.Errorf("Verdicts = %+v, want match then mismatch", r.Verdicts)
	}
}

func TestIsolatedNoisePasses(t *testing.T) {
	ctx := context.Background()
	// At MaxSide the normalizer keeps the native scale, so noise stays one
	// pixel wide.
	base := solid(512, 512, white)
	f := newFactory(base)
	h, _ := newTestHarness(t, f)
	h.RunTest(ctx, DefaultFrame(), "noise", shots(1))

	noisy := base.Clone()
	noisy.Set(5, 5, black)
	noisy.Set(300, 400, black)
	noisy.Set(500, 10, black)
	f.frames = []*Image{noisy}

	if r := h.RunTest(ctx, DefaultFrame(), "noise", shots(1)); r.Err != nil {
		t.Fatalf("default tolerance: %v", r.Err)
	}

	strict := DefaultFrame()
	strict.Thresholds.MinClusterSize = 1
	strict.Thresholds.MaxSignificantPixels = 0
	if r := h.RunTest(ctx, strict, "noise", shots(1)); !errors.Is(r.Err, ErrMismatch) {
		t.Errorf("strict tolerance: err = %v, want ErrMismatch", r.Err)
	}
}

func TestMissingBaselineImage(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, opts ...HarnessOption) (*Harness, *memstore.Store) {
		h, st := newTestHarness(t, newFactory(solid(16, 16, white)), opts...)
		data, _ := solid(16, 16, white).EncodePNG()
		if err := st.WriteFile(ctx, MetadataKey("t"), []byte(`{"numScreenshots":2}`)); err != nil {
			t.Fatal(err)
		}
		if err := st.WriteFile(ctx, ImageKey("t", 0), data); err != nil {
			t.Fatal(err)
		}
		return h, st
	}

	t.Run("lenient", func(t *testing.T) {
		h, st := setup(t)
		r := h.RunTest(ctx, DefaultFrame(), "t", shots(2))
		if r.Err != nil {
			t.Fatalf("err = %v, want nil", r.Err)
		}
		if r.Status != StatusPassed {
			t.Errorf("Status = %v, want passed", r.Status)
		}
		if r.Verdicts[1].Outcome != diff.BaselineRecorded {
			t.Errorf("Verdicts[1] = %v, want recorded", r.Verdicts[1].Outcome)
		}
		if _, err := st.ReadFile(ctx, "t/001.png"); err != nil {
			t.Errorf("missing image not recorded: %v", err)
		}
	})

	t.Run("strict", func(t *testing.T) {
		h, st := setup(t, WithStrictBaselines(true))
		r := h.RunTest(ctx, DefaultFrame(), "t", shots(2))

		var me *MissingBaselineError
		if !errors.As(r.Err, &me) || me.Index != 1 {
			t.Fatalf("err = %v, want MissingBaselineError for index 1", r.Err)
		}
		if !errors.Is(r.Err, ErrMissingBaselineImage) {
			t.Error("error does not match ErrMissingBaselineImage")
		}
		if st.Len() != 2 {
			t.Errorf("store has %d blobs, want 2", st.Len())
		}
	})
}

func TestCorruptMetadata(t *testing.T) {
	ctx := context.Background()
	f := newFactory(solid(8, 8, white))
	h, st := newTestHarness(t, f)
	_ = st.WriteFile(ctx, MetadataKey("t"), []byte("{"))

	r := h.RunTest(ctx, DefaultFrame(), "t", shots(1))
	if r.Err == nil || !strings.Contains(r.Err.Error(), MetadataFile) {
		t.Errorf("err = %v, want metadata parse error", r.Err)
	}
	if len(f.configs) != 0 {
		t.Error("subject created despite unreadable metadata")
	}
}

func TestSubjectConfig(t *testing.T) {
	f := newFactory(solid(8, 8, white))
	h, _ := newTestHarness(t, f)

	frame := DefaultFrame()
	frame.Prefix = "suite/"
	frame.Density = 2

	if r := h.RunTest(context.Background(), frame, "hi-dpi", shots(1)); r.Err != nil {
		t.Fatalf("RunTest: %v", r.Err)
	}
	want := SubjectConfig{Identity: "suite/hi-dpi", Density: 2}
	if len(f.configs) != 1 || f.configs[0] != want {
		t.Errorf("configs = %+v, want [%+v]", f.configs, want)
	}
}

func TestScenarioError(t *testing.T) {
	f := newFactory(solid(8, 8, white))
	h, st := newTestHarness(t, f)
	boom := errors.New("boom")

	fail := func(context.Context, Subject) error { return boom }
	r := h.RunTest(context.Background(), DefaultFrame(), "t", Steps(nil, fail))

	if !errors.Is(r.Err, boom) {
		t.Errorf("err = %v, want %v", r.Err, boom)
	}
	if f.destroyed != 1 {
		t.Errorf("destroyed = %d, want 1", f.destroyed)
	}
	if st.Len() != 0 {
		t.Errorf("store has %d blobs after failed scenario", st.Len())
	}
}

// densitySubject renders a 10x10 logical page at whatever density is asked.
type densitySubject struct{}

func (densitySubject) Capture(_ context.Context, density float64) (*Image, error) {
	n := int(10 * density)
	return NewImageFromData(n, n, density, make([]uint8, n*n*4))
}

func (densitySubject) Destroy() error { return nil }

func TestCaptureDensityEnforced(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	subjects := SubjectFactoryFunc(func(context.Context, SubjectConfig) (Subject, error) {
		return densitySubject{}, nil
	})
	h, err := NewHarness(WithStore(st), WithSubjects(subjects))
	if err != nil {
		t.Fatal(err)
	}

	hiDPI := func(ctx context.Context, subj Subject) iter.Seq2[*Image, error] {
		return func(yield func(*Image, error) bool) {
			yield(subj.Capture(ctx, 2))
		}
	}
	frame := DefaultFrame()
	frame.Density = 2

	r := h.RunTest(ctx, frame, "retina", hiDPI)
	if !errors.Is(r.Err, ErrInvalidImage) {
		t.Fatalf("err = %v, want ErrInvalidImage", r.Err)
	}
	if r.Status != StatusFailed {
		t.Errorf("Status = %v, want failed", r.Status)
	}
	if st.Len() != 0 {
		t.Errorf("store has %d blobs, want 0", st.Len())
	}

	r = h.RunTest(ctx, frame, "retina", Snapshot())
	if r.Err != nil || r.Status != StatusRecorded {
		t.Fatalf("Snapshot: status %v, err %v", r.Status, r.Err)
	}
	if got := r.Verdicts[0].Actual.Bounds(); got != image.Rect(0, 0, 10, 10) {
		t.Errorf("recorded size = %v, want 10x10", got)
	}
}

func TestSubjectCreateError(t *testing.T) {
	f := newFactory()
	f.err = errors.New("no browser")
	h, _ := newTestHarness(t, f)

	r := h.RunTest(context.Background(), DefaultFrame(), "t", shots(1))
	if !errors.Is(r.Err, f.err) {
		t.Errorf("err = %v, want %v", r.Err, f.err)
	}
}

func TestSizeChangeIsNormalized(t *testing.T) {
	ctx := context.Background()
	f := newFactory(solid(100, 50, white))
	h, _ := newTestHarness(t, f)
	h.RunTest(ctx, DefaultFrame(), "t", shots(1))

	f.frames = []*Image{solid(101, 50, white)}
	if r := h.RunTest(ctx, DefaultFrame(), "t", shots(1)); r.Err != nil {
		t.Errorf("RunTest: %v", r.Err)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := newFactory(solid(8, 8, white))
	h, _ := newTestHarness(t, f)

	r := h.RunTest(ctx, DefaultFrame(), "t", shots(1))
	if !errors.Is(r.Err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", r.Err)
	}
}
