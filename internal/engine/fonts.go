package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wb-go/wbf/zlog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

var fontDirs = []string{
	"/usr/share/fonts/truetype",
	"/usr/share/fonts/TTF",
	"/usr/local/share/fonts",
	"/Library/Fonts",
	"/System/Library/Fonts/Supplemental",
	"C:/Windows/Fonts",
}

// loadFace resolves a font face for the requested family and style. Any
// resolution failure falls back to the embedded Go fonts so a render never
// aborts on a missing font.
func loadFace(family string, size int, bold, italic bool) font.Face {
	if path := findFontFile(family, bold, italic); path != "" {
		face, err := readFace(path, size)
		if err == nil {
			return face
		}
		zlog.Logger.Warn().Err(err).Str("font", path).Msg("Failed to load font file, using built-in face")
	}
	return builtinFace(size, bold, italic)
}

func readFace(path string, size int) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fnt, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %q: %w", path, err)
	}
	return opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// findFontFile probes the usual system font locations for a family name,
// preferring style-specific files when bold/italic is requested.
func findFontFile(family string, bold, italic bool) string {
	family = strings.TrimSpace(family)
	if family == "" {
		return ""
	}

	// A literal path to a font file is accepted as-is.
	if strings.HasSuffix(strings.ToLower(family), ".ttf") || strings.HasSuffix(strings.ToLower(family), ".otf") {
		if _, err := os.Stat(family); err == nil {
			return family
		}
		return ""
	}

	var styles []string
	switch {
	case bold && italic:
		styles = []string{" Bold Italic", "-BoldItalic", "bi", "z"}
	case bold:
		styles = []string{" Bold", "-Bold", "bd", "b"}
	case italic:
		styles = []string{" Italic", "-Italic", "i"}
	}
	styles = append(styles, "")

	for _, dir := range fontDirs {
		for _, style := range styles {
			for _, ext := range []string{".ttf", ".otf"} {
				p := filepath.Join(dir, family+style+ext)
				if _, err := os.Stat(p); err == nil {
					return p
				}
			}
		}
	}
	return ""
}

func builtinFace(size int, bold, italic bool) font.Face {
	var ttf []byte
	switch {
	case bold && italic:
		ttf = gobolditalic.TTF
	case bold:
		ttf = gobold.TTF
	case italic:
		ttf = goitalic.TTF
	default:
		ttf = goregular.TTF
	}

	fnt, err := opentype.Parse(ttf)
	if err != nil {
		// The embedded Go fonts always parse; keep the regular face as the
		// final safety net anyway.
		fnt, _ = opentype.Parse(goregular.TTF)
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to build built-in font face")
	}
	return face
}
