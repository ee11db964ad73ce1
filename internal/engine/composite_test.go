package engine

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"photomark/internal/model"
)

func gradientBase(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	return img
}

// Compositing a fully transparent layer must return the base unchanged.
func TestComposite_TransparentLayerIsIdentity(t *testing.T) {
	base := gradientBase(64, 48)
	layer := image.NewNRGBA(base.Bounds())

	out := Composite(base, layer)
	require.Equal(t, base.Pix, out.Pix)
}

func TestComposite_DoesNotMutateBase(t *testing.T) {
	base := gradientBase(32, 32)
	before := make([]uint8, len(base.Pix))
	copy(before, base.Pix)

	layer := image.NewNRGBA(base.Bounds())
	layer.SetNRGBA(10, 10, color.NRGBA{R: 255, A: 255})

	out := Composite(base, layer)
	require.Equal(t, before, base.Pix)
	require.Equal(t, color.NRGBA{R: 255, A: 255}, out.NRGBAAt(10, 10))
}

func TestComposite_SourceOverBlend(t *testing.T) {
	base := gradientBase(16, 16)
	layer := image.NewNRGBA(base.Bounds())
	// Half-transparent white over the base.
	layer.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 128})

	out := Composite(base, layer)
	got := out.NRGBAAt(0, 0)
	require.Equal(t, uint8(255), got.A)
	// Base at (0,0) is (0,0,100); blended red channel lands around 128.
	require.InDelta(t, 128, int(got.R), 2)
}

func TestEncode_PNGKeepsAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	img.SetNRGBA(3, 3, color.NRGBA{R: 255, A: 128})

	var buf bytes.Buffer
	rule := model.ExportRule{Format: model.FormatPNG}
	rule.Normalize()
	require.NoError(t, Encode(&buf, img, rule))

	decoded, err := imaging.Decode(&buf)
	require.NoError(t, err)
	_, _, _, a := decoded.At(3, 3).RGBA()
	require.NotEqual(t, uint32(0xffff), a)
}

func TestEncode_JPEGFlattensToOpaque(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	img.SetNRGBA(3, 3, color.NRGBA{R: 255, A: 128})

	var buf bytes.Buffer
	rule := model.ExportRule{Format: model.FormatJPEG, JPEGQuality: 85}
	require.NoError(t, Encode(&buf, img, rule))

	decoded, err := imaging.Decode(&buf)
	require.NoError(t, err)

	bounds := decoded.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			_, _, _, a := decoded.At(x, y).RGBA()
			require.Equal(t, uint32(0xffff), a)
		}
	}
}
