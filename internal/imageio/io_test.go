package imageio

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"
)

func TestEncodeDecodePNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	img.SetNRGBA(5, 5, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	img.SetNRGBA(1, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 128})

	data, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG() error = %v", err)
	}

	got, err := DecodePNG(data)
	if err != nil {
		t.Fatalf("DecodePNG() error = %v", err)
	}
	if !bytes.Equal(got.Pix, img.Pix) {
		t.Error("decoded pixels differ from encoded image")
	}
}

func TestDecodePNG_Empty(t *testing.T) {
	if _, err := DecodePNG(nil); !errors.Is(err, ErrEmptyData) {
		t.Errorf("DecodePNG(nil) error = %v, want ErrEmptyData", err)
	}
}

func TestDecodePNG_Garbage(t *testing.T) {
	if _, err := DecodePNG([]byte("not a png")); err == nil {
		t.Error("DecodePNG(garbage) error = nil, want error")
	}
}

func TestDataURI(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))

	uri, err := DataURI(img)
	if err != nil {
		t.Fatalf("DataURI() error = %v", err)
	}
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Fatalf("DataURI() = %q, want data:image/png prefix", uri[:min(len(uri), 30)])
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}
	if _, err := DecodePNG(raw); err != nil {
		t.Errorf("payload is not a PNG: %v", err)
	}

	if uri, err := DataURI(nil); uri != "" || err != nil {
		t.Errorf("DataURI(nil) = (%q, %v), want empty", uri, err)
	}
}

func TestToNRGBA(t *testing.T) {
	t.Run("rgba premultiplied", func(t *testing.T) {
		rgba := image.NewRGBA(image.Rect(0, 0, 4, 4))
		rgba.Set(1, 1, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

		got := ToNRGBA(rgba)
		if c := got.NRGBAAt(1, 1); c != (color.NRGBA{R: 200, G: 100, B: 50, A: 255}) {
			t.Errorf("pixel = %v, want (200,100,50,255)", c)
		}
	})

	t.Run("gray", func(t *testing.T) {
		gray := image.NewGray(image.Rect(0, 0, 4, 4))
		gray.SetGray(2, 2, color.Gray{Y: 128})

		if c := ToNRGBA(gray).NRGBAAt(2, 2); c != (color.NRGBA{R: 128, G: 128, B: 128, A: 255}) {
			t.Errorf("pixel = %v, want (128,128,128,255)", c)
		}
	})

	t.Run("nrgba at origin returned as is", func(t *testing.T) {
		n := image.NewNRGBA(image.Rect(0, 0, 3, 3))
		if ToNRGBA(n) != n {
			t.Error("ToNRGBA() copied an origin NRGBA image")
		}
	})

	t.Run("nrgba sub-image rebased", func(t *testing.T) {
		n := image.NewNRGBA(image.Rect(0, 0, 8, 8))
		n.SetNRGBA(5, 6, color.NRGBA{G: 255, A: 255})
		sub := n.SubImage(image.Rect(4, 4, 8, 8)).(*image.NRGBA)

		got := ToNRGBA(sub)
		if got.Rect != image.Rect(0, 0, 4, 4) {
			t.Fatalf("Rect = %v, want 4x4 at origin", got.Rect)
		}
		if c := got.NRGBAAt(1, 2); c != (color.NRGBA{G: 255, A: 255}) {
			t.Errorf("pixel = %v, want green", c)
		}
	})
}
