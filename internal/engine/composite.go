package engine

import (
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/disintegration/imaging"

	"photomark/internal/model"
)

// Composite alpha-blends the watermark layer over the base image using
// source-over blending and returns the result as a new buffer. The
// caller-supplied base is never mutated.
func Composite(base image.Image, layer image.Image) *image.NRGBA {
	out := imaging.Clone(base)
	draw.Draw(out, out.Bounds(), layer, layer.Bounds().Min, draw.Over)
	return out
}

// Encode writes the image in the rule's output format: JPEG output is
// flattened to opaque RGB at the configured quality, PNG keeps the alpha
// channel.
func Encode(w io.Writer, img image.Image, rule model.ExportRule) error {
	if rule.Format == model.FormatPNG {
		return imaging.Encode(w, img, imaging.PNG)
	}
	return imaging.Encode(w, flattenToRGB(img), imaging.JPEG, imaging.JPEGQuality(rule.JPEGQuality))
}

func flattenToRGB(img image.Image) image.Image {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Over)
	return rgba
}
