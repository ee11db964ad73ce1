package engine

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"photomark/internal/model"
)

func textSpec(opacity int) model.WatermarkSpec {
	return model.WatermarkSpec{
		Variant: model.VariantText,
		Text: &model.TextPayload{
			Text:     "draft",
			FontSize: 24,
			Color:    model.RGB{R: 255, G: 255, B: 255},
			Opacity:  opacity,
		},
		Position: model.PositionSpec{Anchor: model.AnchorCenter},
	}
}

func markSpec(scale, opacity int) model.WatermarkSpec {
	return model.WatermarkSpec{
		Variant: model.VariantImage,
		Image: &model.ImagePayload{
			SourcePath:   "logo.png",
			ScalePercent: scale,
			Opacity:      opacity,
		},
		Position: model.PositionSpec{Anchor: model.AnchorTopLeft},
	}
}

func solidMark(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func transparent(layer *image.NRGBA) bool {
	for i := 3; i < len(layer.Pix); i += 4 {
		if layer.Pix[i] != 0 {
			return false
		}
	}
	return true
}

// tightAlphaBounds returns the smallest rectangle containing every pixel
// with non-zero alpha.
func tightAlphaBounds(img *image.NRGBA) (image.Rectangle, bool) {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.NRGBAAt(x, y).A == 0 {
				continue
			}
			minX = min(minX, x)
			minY = min(minY, y)
			maxX = max(maxX, x)
			maxY = max(maxY, y)
		}
	}
	if maxX < minX {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// Rendered text must land exactly where the resolver placed its measured box,
// with descenders inside it rather than clipped off the bottom.
func TestRenderer_TextFillsMeasuredBoxAtAnchor(t *testing.T) {
	spec := model.WatermarkSpec{
		Variant: model.VariantText,
		Text: &model.TextPayload{
			Text:     "Hg",
			FontSize: 48,
			Color:    model.RGB{R: 255, G: 255, B: 255},
			Opacity:  100,
		},
		Position: model.PositionSpec{Anchor: model.AnchorTopLeft},
	}

	r, err := NewRenderer(spec, model.ClampDefault)
	require.NoError(t, err)

	tw, th := measureString(r.face, spec.Text.Text)
	require.Greater(t, th, 0)

	layer, err := r.Layer(600, 300)
	require.NoError(t, err)

	box, ok := tightAlphaBounds(layer)
	require.True(t, ok)

	// Ink starts at the anchor's margin; Ceil rounding of the fractional
	// glyph bounds can shift an edge by at most one pixel.
	require.InDelta(t, Margin, box.Min.X, 1)
	require.InDelta(t, Margin, box.Min.Y, 1)
	require.InDelta(t, tw, box.Dx(), 1)
	require.InDelta(t, th, box.Dy(), 1)
}

func TestRenderer_TextLayerHasContent(t *testing.T) {
	r, err := NewRenderer(textSpec(80), model.ClampDefault)
	require.NoError(t, err)

	layer, err := r.Layer(400, 300)
	require.NoError(t, err)
	require.False(t, transparent(layer))
}

func TestRenderer_ZeroOpacityIsFullyTransparent(t *testing.T) {
	r, err := NewRenderer(textSpec(0), model.ClampDefault)
	require.NoError(t, err)

	layer, err := r.Layer(400, 300)
	require.NoError(t, err)
	require.True(t, transparent(layer))
}

// Rotation of 360 and 0 must produce pixel-identical layers.
func TestRenderer_FullTurnRotationIsIdentity(t *testing.T) {
	plain := textSpec(80)
	turned := textSpec(80)
	turned.Rotation = 360

	r1, err := NewRenderer(plain, model.ClampDefault)
	require.NoError(t, err)
	r2, err := NewRenderer(turned, model.ClampDefault)
	require.NoError(t, err)

	l1, err := r1.Layer(400, 300)
	require.NoError(t, err)
	l2, err := r2.Layer(400, 300)
	require.NoError(t, err)

	require.Equal(t, l1.Pix, l2.Pix)
}

func TestRenderer_StrokeAndShadowChangeOutput(t *testing.T) {
	base := textSpec(80)

	decorated := textSpec(80)
	decorated.Text.Stroke = true
	decorated.Text.Shadow = true

	r1, err := NewRenderer(base, model.ClampDefault)
	require.NoError(t, err)
	r2, err := NewRenderer(decorated, model.ClampDefault)
	require.NoError(t, err)

	l1, err := r1.Layer(400, 300)
	require.NoError(t, err)
	l2, err := r2.Layer(400, 300)
	require.NoError(t, err)

	require.NotEqual(t, l1.Pix, l2.Pix)
}

func TestRenderer_MarkFullOpacityKeepsPixels(t *testing.T) {
	mark := solidMark(10, 10, color.NRGBA{R: 200, G: 10, B: 10, A: 255})

	r, err := NewRendererWithMark(markSpec(100, 100), model.ClampDefault, mark)
	require.NoError(t, err)

	layer, err := r.Layer(100, 100)
	require.NoError(t, err)

	// Top-left anchor puts the mark at (Margin, Margin), untouched.
	got := layer.NRGBAAt(Margin+5, Margin+5)
	require.Equal(t, color.NRGBA{R: 200, G: 10, B: 10, A: 255}, got)
}

func TestRenderer_MarkOpacityMultipliesAlpha(t *testing.T) {
	// 50% opacity composes with alpha already present in the asset.
	mark := solidMark(10, 10, color.NRGBA{R: 200, G: 10, B: 10, A: 128})

	r, err := NewRendererWithMark(markSpec(100, 50), model.ClampDefault, mark)
	require.NoError(t, err)

	layer, err := r.Layer(100, 100)
	require.NoError(t, err)

	got := layer.NRGBAAt(Margin+5, Margin+5)
	require.Equal(t, uint8(64), got.A)
}

func TestRenderer_MarkZeroOpacityIsFullyTransparent(t *testing.T) {
	mark := solidMark(10, 10, color.NRGBA{R: 200, G: 10, B: 10, A: 255})

	r, err := NewRendererWithMark(markSpec(100, 0), model.ClampDefault, mark)
	require.NoError(t, err)

	layer, err := r.Layer(100, 100)
	require.NoError(t, err)
	require.True(t, transparent(layer))
}

func TestRenderer_MarkScalePercent(t *testing.T) {
	mark := solidMark(40, 40, color.NRGBA{R: 0, G: 0, B: 200, A: 255})

	r, err := NewRendererWithMark(markSpec(50, 100), model.ClampDefault, mark)
	require.NoError(t, err)
	require.Equal(t, 20, r.mark.Bounds().Dx())
	require.Equal(t, 20, r.mark.Bounds().Dy())
}

// The image variant never hangs off the canvas: a far-out manual position is
// pulled back to the nearest edge.
func TestRenderer_MarkManualPositionClamped(t *testing.T) {
	mark := solidMark(50, 50, color.NRGBA{R: 10, G: 200, B: 10, A: 255})

	spec := markSpec(100, 100)
	spec.Position = model.PositionSpec{Anchor: model.AnchorManual, ManualX: 90, ManualY: 90}

	r, err := NewRendererWithMark(spec, model.ClampDefault, mark)
	require.NoError(t, err)

	layer, err := r.Layer(100, 100)
	require.NoError(t, err)

	// Clamped to (50, 50), so the far corner is covered.
	require.Equal(t, uint8(255), layer.NRGBAAt(99, 99).A)
	require.Equal(t, uint8(0), layer.NRGBAAt(10, 10).A)
}

// Manually placed text may hang off the canvas under the default policy;
// ClampAlways pulls it back in.
func TestRenderer_ManualTextClampPolicy(t *testing.T) {
	spec := textSpec(80)
	spec.Position = model.PositionSpec{Anchor: model.AnchorManual, ManualX: 1000, ManualY: 1000}

	loose, err := NewRenderer(spec, model.ClampDefault)
	require.NoError(t, err)
	layer, err := loose.Layer(100, 100)
	require.NoError(t, err)
	require.True(t, transparent(layer))

	clamped, err := NewRenderer(spec, model.ClampAlways)
	require.NoError(t, err)
	layer, err = clamped.Layer(100, 100)
	require.NoError(t, err)
	require.False(t, transparent(layer))
}

func TestNewRenderer_Validation(t *testing.T) {
	_, err := NewRenderer(model.WatermarkSpec{Variant: "glitter"}, model.ClampDefault)
	require.ErrorIs(t, err, model.ErrIncorrectVariant)

	empty := textSpec(50)
	empty.Text.Text = "  "
	_, err = NewRenderer(empty, model.ClampDefault)
	require.ErrorIs(t, err, model.ErrEmptyText)

	_, err = NewRenderer(model.WatermarkSpec{Variant: model.VariantImage}, model.ClampDefault)
	require.ErrorIs(t, err, model.ErrEmptyMarkImage)

	// Unreadable asset path surfaces as a decode error.
	broken := markSpec(100, 50)
	broken.Image.SourcePath = "definitely/not/here.png"
	_, err = NewRenderer(broken, model.ClampDefault)
	require.ErrorIs(t, err, model.ErrAssetDecode)
}
