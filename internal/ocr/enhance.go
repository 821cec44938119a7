package ocr

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// Enhancer produces a derivative of an image that is easier to recognise.
type Enhancer interface {
	Enhance(image []byte) ([]byte, error)
}

// ContrastEnhancer upscales small captures, then sharpens, boosts contrast and
// drops colour. Zero fields take the defaults.
type ContrastEnhancer struct {
	MinWidth int     // captures narrower than this are upscaled; default 1200
	MaxWidth int     // wider captures are shrunk; default 2500
	Contrast float64 // percentage for imaging.AdjustContrast; default 40
	Sharpen  float64 // sigma for imaging.Sharpen; default 2.5
}

func (c ContrastEnhancer) withDefaults() ContrastEnhancer {
	if c.MinWidth <= 0 {
		c.MinWidth = 1200
	}
	if c.MaxWidth <= 0 {
		c.MaxWidth = 2500
	}
	if c.Contrast == 0 {
		c.Contrast = 40
	}
	if c.Sharpen <= 0 {
		c.Sharpen = 2.5
	}
	return c
}

// Enhance returns a PNG-encoded, contrast-enhanced grayscale derivative.
func (c ContrastEnhancer) Enhance(image []byte) ([]byte, error) {
	c = c.withDefaults()

	img, err := imaging.Decode(bytes.NewReader(image), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	switch w := img.Bounds().Dx(); {
	case w < c.MinWidth:
		img = imaging.Resize(img, c.MinWidth, 0, imaging.Lanczos)
	case w > c.MaxWidth:
		img = imaging.Resize(img, c.MaxWidth, 0, imaging.Lanczos)
	}

	img = imaging.Sharpen(img, c.Sharpen)
	img = imaging.AdjustContrast(img, c.Contrast)
	img = imaging.Grayscale(img)
	img = imaging.AdjustGamma(img, 1.1)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
