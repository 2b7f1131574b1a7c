package ocr

import (
	"image"
	"image/color"
	"testing"

	"docsum/internal/extract"
)

func TestCanProcess(t *testing.T) {
	p := NewProcessor(nil)
	for _, kind := range []string{extract.KindPNG, extract.KindJPEG, extract.KindTIFF, extract.KindBMP} {
		if !p.CanProcess(kind) {
			t.Fatalf("expected %s to be supported", kind)
		}
	}
	if p.CanProcess(extract.KindPDF) {
		t.Fatalf("pdf must not be handled by ocr")
	}
}

func TestPreprocessProducesGray(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 200, G: 10, B: 10, A: 255})
	img.Set(1, 0, color.RGBA{R: 10, G: 10, B: 200, A: 255})
	out := Preprocess(img, 20)
	if out.Bounds() != img.Bounds() {
		t.Fatalf("expected bounds %v, got %v", img.Bounds(), out.Bounds())
	}
	for x := 0; x < 2; x++ {
		r, g, b, _ := out.At(x, 0).RGBA()
		if r != g || g != b {
			t.Fatalf("pixel %d is not gray: %d %d %d", x, r, g, b)
		}
	}
}
