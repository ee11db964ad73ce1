// Package engine implements the watermark placement-and-compositing core:
// anchor geometry, layer rendering and alpha compositing. It is shared
// unchanged between preview-scale and full-resolution export rendering.
package engine

import (
	"image"
	"math"

	"photomark/internal/model"
)

// Margin is the distance, in original pixels, kept between a watermark and
// any edge its anchor touches.
const Margin = 20

// ResolvePosition maps a position spec to the top-left pixel coordinate for
// content of size (contentW, contentH) on a target of size (targetW,
// targetH). Target dimensions are given in original pixels; scale converts
// them into the rendering space (1.0 for export, <1.0 for a preview).
// Content dimensions are expected already in rendering space.
//
// Manual positions are scaled and passed through without margin; edge
// clamping, where wanted, is the caller's job.
func ResolvePosition(targetW, targetH, contentW, contentH int, scale float64, pos model.PositionSpec) image.Point {
	if pos.Manual() {
		return image.Pt(scaled(pos.ManualX, scale), scaled(pos.ManualY, scale))
	}

	w := scaled(targetW, scale)
	h := scaled(targetH, scale)
	m := scaled(Margin, scale)
	cw := contentW
	ch := contentH

	switch pos.Anchor {
	case model.AnchorTopLeft:
		return image.Pt(m, m)
	case model.AnchorTopCenter:
		return image.Pt((w-cw)/2, m)
	case model.AnchorTopRight:
		return image.Pt(w-cw-m, m)
	case model.AnchorMiddleLeft:
		return image.Pt(m, (h-ch)/2)
	case model.AnchorCenter:
		return image.Pt((w-cw)/2, (h-ch)/2)
	case model.AnchorMiddleRight:
		return image.Pt(w-cw-m, (h-ch)/2)
	case model.AnchorBottomLeft:
		return image.Pt(m, h-ch-m)
	case model.AnchorBottomCenter:
		return image.Pt((w-cw)/2, h-ch-m)
	default: // bottom-right, also the default when nothing was selected
		return image.Pt(w-cw-m, h-ch-m)
	}
}

// LetterboxOffset returns the offset a preview caller adds to a resolved
// position when the scaled image is centered inside a larger canvas. The
// resolver itself stays in the scaled-image coordinate frame.
func LetterboxOffset(canvasW, canvasH, imageW, imageH int, scale float64) image.Point {
	return image.Pt(
		(canvasW-scaled(imageW, scale))/2,
		(canvasH-scaled(imageH, scale))/2,
	)
}

func scaled(v int, scale float64) int {
	if scale == 1.0 {
		return v
	}
	return int(math.Round(float64(v) * scale))
}
