// Package captions burns caption text into a semi-transparent band at
// the bottom edge of an image. Compositing is pure and deterministic:
// no I/O, and the image dimensions never change.
package captions

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/aal51282/ai-video-generator/models"
)

const (
	// BandHeight is the fixed caption band height in pixels.
	BandHeight = 90

	// WrapLimit is the per-line character budget for word wrapping.
	WrapLimit = 50

	bandAlpha   = 0.5
	fontSize    = 26
	lineHeight  = 30
	bandPadding = 6
)

var (
	fontOnce sync.Once
	baseFont *truetype.Font
	fontErr  error
)

func captionFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		baseFont, fontErr = truetype.Parse(goregular.TTF)
	})
	return baseFont, fontErr
}

// Apply renders text onto a copy of img inside the bottom band and
// returns the result as lossless PNG. Lines beyond the band height draw
// over the image instead of being clipped.
func Apply(img models.RasterImage, text string) (models.RasterImage, error) {
	decoded, err := png.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return models.RasterImage{}, &models.CompositionError{Op: "caption decode", Err: err}
	}

	fnt, err := captionFont()
	if err != nil {
		return models.RasterImage{}, &models.CompositionError{Op: "caption font", Err: err}
	}

	// Upgrade to an alpha-capable format before compositing the band.
	bounds := decoded.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, decoded, bounds.Min, draw.Src)

	w := float64(bounds.Dx())
	h := float64(bounds.Dy())

	dc := gg.NewContextForRGBA(rgba)
	dc.SetRGBA(0, 0, 0, bandAlpha)
	dc.DrawRectangle(0, h-BandHeight, w, BandHeight)
	dc.Fill()

	dc.SetFontFace(truetype.NewFace(fnt, &truetype.Options{Size: fontSize}))
	dc.SetRGB(1, 1, 1)
	for i, line := range WrapLines(text, WrapLimit) {
		y := h - BandHeight + bandPadding + float64(i)*lineHeight + lineHeight/2
		dc.DrawStringAnchored(line, w/2, y, 0.5, 0.5)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return models.RasterImage{}, &models.CompositionError{Op: "caption encode", Err: err}
	}
	return models.RasterImage{
		Data:   buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// WrapLines greedily packs whole words into lines of at most limit
// characters. A single word longer than the budget gets its own line
// rather than being split.
func WrapLines(text string, limit int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) <= limit {
			current += " " + word
		} else {
			lines = append(lines, current)
			current = word
		}
	}
	return append(lines, current)
}
