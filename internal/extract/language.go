package extract

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// LinguaDetector detects the dominant language of a text.
type LinguaDetector struct {
	detector lingua.LanguageDetector
	// sample bounds the text handed to the detector
	sample int
}

// NewLinguaDetector builds a detector over all supported languages. Building
// loads language models and takes a moment; share one instance.
func NewLinguaDetector() *LinguaDetector {
	return &LinguaDetector{
		detector: lingua.NewLanguageDetectorBuilder().FromAllLanguages().Build(),
		sample:   5000,
	}
}

func (d *LinguaDetector) Detect(text string) string {
	if len(text) > d.sample {
		text = strings.ToValidUTF8(text[:d.sample], "")
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
