package engine

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"photomark/internal/model"
)

// Renderer draws one watermark variant onto fresh transparent layers. The
// font face and the watermark image (scaled and faded) are prepared once at
// construction, so a batch pays decode/parse cost a single time and every
// per-image render only places pixels.
type Renderer struct {
	spec   model.WatermarkSpec
	policy model.ClampPolicy
	face   font.Face
	mark   *image.NRGBA
}

// NewRenderer prepares a renderer for the given spec. The spec is clamped,
// then validated; for the image variant the watermark asset is decoded from
// its source path.
func NewRenderer(spec model.WatermarkSpec, policy model.ClampPolicy) (*Renderer, error) {
	spec.Normalize()
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	var mark image.Image
	if spec.Variant == model.VariantImage {
		img, err := imaging.Open(spec.Image.SourcePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", model.ErrAssetDecode, spec.Image.SourcePath, err)
		}
		mark = img
	}
	return newRenderer(spec, policy, mark)
}

// NewRendererWithMark is NewRenderer for a watermark image that has already
// been decoded by the caller (uploads, object storage). The image is not
// mutated; scaling and opacity work on a copy.
func NewRendererWithMark(spec model.WatermarkSpec, policy model.ClampPolicy, mark image.Image) (*Renderer, error) {
	spec.Normalize()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.Variant == model.VariantImage && mark == nil {
		return nil, model.ErrEmptyMarkImage
	}
	return newRenderer(spec, policy, mark)
}

// newRenderer expects a normalized, validated spec.
func newRenderer(spec model.WatermarkSpec, policy model.ClampPolicy, mark image.Image) (*Renderer, error) {
	if policy == "" {
		policy = model.ClampDefault
	}

	r := &Renderer{spec: spec, policy: policy}
	switch spec.Variant {
	case model.VariantText:
		r.face = loadFace(spec.Text.FontFamily, spec.Text.FontSize, spec.Text.Bold, spec.Text.Italic)
	case model.VariantImage:
		r.mark = prepareMark(mark, spec.Image.ScalePercent, spec.Image.Opacity)
	}
	return r, nil
}

// Layer renders the watermark onto a new transparent layer of the given
// target size. The returned layer is fully transparent except where the
// watermark was drawn.
func (r *Renderer) Layer(w, h int) (*image.NRGBA, error) {
	layer := image.NewNRGBA(image.Rect(0, 0, w, h))

	switch r.spec.Variant {
	case model.VariantText:
		r.drawText(layer, w, h)
		return layer, nil
	default:
		return layer, r.drawMark(layer, w, h)
	}
}

func (r *Renderer) drawText(layer *image.NRGBA, w, h int) {
	t := r.spec.Text
	bounds, _ := font.BoundString(r.face, t.Text)
	tw := (bounds.Max.X - bounds.Min.X).Ceil()
	th := (bounds.Max.Y - bounds.Min.Y).Ceil()
	if tw <= 0 || th <= 0 {
		return
	}

	alpha := uint8(math.Round(255 * float64(t.Opacity) / 100))
	pos := ResolvePosition(w, h, tw, th, 1.0, r.spec.Position)

	// Stroke and shadow offsets reach at most 2px beyond the glyph box.
	const pad = 4
	glyphs := image.NewNRGBA(image.Rect(0, 0, tw+2*pad, th+2*pad))

	if t.Shadow {
		drawString(glyphs, r.face, bounds, pad+2, pad+2, t.Text, color.NRGBA{A: alpha / 2})
	}
	if t.Stroke {
		for _, dx := range []int{-2, 0, 2} {
			for _, dy := range []int{-2, 0, 2} {
				if dx == 0 && dy == 0 {
					continue
				}
				drawString(glyphs, r.face, bounds, pad+dx, pad+dy, t.Text, color.NRGBA{A: alpha})
			}
		}
	}
	drawString(glyphs, r.face, bounds, pad, pad, t.Text, color.NRGBA{R: t.Color.R, G: t.Color.G, B: t.Color.B, A: alpha})

	content := glyphs
	if r.spec.Rotation != 0 {
		content = imaging.Rotate(glyphs, float64(r.spec.Rotation), color.NRGBA{})
	}

	// Position is resolved pre-rotation; the rotated content re-centers on
	// the anchor point.
	origin := recenter(pos, tw, th, content.Bounds().Dx(), content.Bounds().Dy())
	if r.clampText() {
		origin = clampOrigin(origin, w, h, content.Bounds().Dx(), content.Bounds().Dy())
	}
	pasteOver(layer, content, origin)
}

func (r *Renderer) drawMark(layer *image.NRGBA, w, h int) error {
	if r.mark == nil {
		return model.ErrAssetDecode
	}

	mw := r.mark.Bounds().Dx()
	mh := r.mark.Bounds().Dy()
	pos := ResolvePosition(w, h, mw, mh, 1.0, r.spec.Position)

	content := r.mark
	if r.spec.Rotation != 0 {
		content = imaging.Rotate(r.mark, float64(r.spec.Rotation), color.NRGBA{})
	}

	// The image variant is always kept inside the target bounds.
	origin := recenter(pos, mw, mh, content.Bounds().Dx(), content.Bounds().Dy())
	origin = clampOrigin(origin, w, h, content.Bounds().Dx(), content.Bounds().Dy())
	pasteOver(layer, content, origin)
	return nil
}

// clampText reports whether a text watermark gets pulled back inside the
// target. Manual text placement historically may hang off the canvas unless
// the clamp policy says otherwise.
func (r *Renderer) clampText() bool {
	if r.policy == model.ClampAlways {
		return true
	}
	return !r.spec.Position.Manual()
}

// prepareMark forces the watermark into an alpha-capable buffer, scales it
// with a smoothing filter and multiplies its alpha channel by the opacity so
// pre-existing transparency is preserved.
func prepareMark(img image.Image, scalePercent, opacity int) *image.NRGBA {
	mark := imaging.Clone(img)

	if scalePercent != 100 {
		nw := max(1, int(math.Round(float64(mark.Bounds().Dx())*float64(scalePercent)/100)))
		nh := max(1, int(math.Round(float64(mark.Bounds().Dy())*float64(scalePercent)/100)))
		mark = imaging.Resize(mark, nw, nh, imaging.Lanczos)
	}

	if opacity < 100 {
		for i := 3; i < len(mark.Pix); i += 4 {
			mark.Pix[i] = uint8(int(mark.Pix[i]) * opacity / 100)
		}
	}
	return mark
}

func measureString(face font.Face, s string) (int, int) {
	bounds, _ := font.BoundString(face, s)
	return (bounds.Max.X - bounds.Min.X).Ceil(), (bounds.Max.Y - bounds.Min.Y).Ceil()
}

// drawString paints s so the top-left corner of its tight glyph bounds lands
// at (x, y) in dst. The dot comes from the measured bounds, which keeps
// descenders inside the box; an ascent-based baseline would push them past
// the bottom edge.
func drawString(dst *image.NRGBA, face font.Face, bounds fixed.Rectangle26_6, x, y int, s string, col color.NRGBA) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(x) - bounds.Min.X,
			Y: fixed.I(y) - bounds.Min.Y,
		},
	}
	d.DrawString(s)
}

// recenter shifts a paste origin so content of the rotated/padded size keeps
// its center where content of the resolved size would have had it.
func recenter(pos image.Point, cw, ch, actualW, actualH int) image.Point {
	return image.Pt(
		pos.X+cw/2-actualW/2,
		pos.Y+ch/2-actualH/2,
	)
}

func clampOrigin(p image.Point, w, h, cw, ch int) image.Point {
	return image.Pt(
		max(0, min(p.X, w-cw)),
		max(0, min(p.Y, h-ch)),
	)
}

func pasteOver(dst *image.NRGBA, src image.Image, origin image.Point) {
	r := image.Rect(origin.X, origin.Y, origin.X+src.Bounds().Dx(), origin.Y+src.Bounds().Dy())
	draw.DrawMask(dst, r, src, src.Bounds().Min, src, src.Bounds().Min, draw.Over)
}
