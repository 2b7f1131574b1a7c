// Package ocr extracts text from images with Tesseract. It needs cgo and
// the tesseract libraries, so it lives apart from package extract.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"docsum/internal/extract"
)

// Processor runs grayscale and contrast preprocessing followed by OCR.
type Processor struct {
	languages []string
	contrast  float64
}

func NewProcessor(languages []string) *Processor {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Processor{languages: languages, contrast: 20}
}

func (p *Processor) CanProcess(kind string) bool {
	switch kind {
	case extract.KindPNG, extract.KindJPEG, extract.KindTIFF, extract.KindBMP:
		return true
	}
	return false
}

func (p *Processor) Extract(ctx context.Context, r io.Reader) (string, error) {
	// imaging registers the bmp and tiff decoders
	img, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := encode(Preprocess(img, p.contrast))
	if err != nil {
		return "", err
	}

	// a client per call: gosseract clients are not safe for concurrent use
	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(p.languages...); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("load image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Preprocess converts to grayscale and raises contrast.
func Preprocess(img image.Image, contrast float64) image.Image {
	return imaging.AdjustContrast(imaging.Grayscale(img), contrast)
}

func encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
