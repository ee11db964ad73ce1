// Package main (in photomark-subfolder) is the standalone CLI: it runs the
// whole batch locally without the API, queue or object storage.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/wb-go/wbf/zlog"

	"photomark/internal/batch"
	"photomark/internal/model"
	"photomark/internal/storage/localstorage"
	"photomark/internal/templatestore"
)

func main() {
	in := flag.String("in", "", "comma-separated source images and/or directories (required)")
	out := flag.String("out", "", "output directory (required)")

	text := flag.String("text", "", "text watermark content")
	fontFamily := flag.String("font-family", "", "font family name or .ttf/.otf path")
	fontSize := flag.Int("font-size", 36, "text: font size in points")
	bold := flag.Bool("bold", false, "text: bold style")
	italic := flag.Bool("italic", false, "text: italic style")
	colorRGB := flag.String("color", "255,255,255", "text: color as r,g,b")
	textOpacity := flag.Int("text-opacity", 80, "text: opacity 0..100")
	shadow := flag.Bool("shadow", false, "text: drop shadow")
	stroke := flag.Bool("stroke", false, "text: black outline")

	mark := flag.String("mark", "", "image watermark path")
	markScale := flag.Int("mark-scale", 100, "image: scale percent of original size")
	markOpacity := flag.Int("mark-opacity", 80, "image: opacity 0..100")

	anchor := flag.String("anchor", "bottom-right", "placement anchor or 'manual'")
	manualX := flag.Int("x", 0, "manual placement: x in original-image pixels")
	manualY := flag.Int("y", 0, "manual placement: y in original-image pixels")
	rotation := flag.Int("rotation", 0, "rotation in degrees")

	format := flag.String("format", "jpeg", "output format: jpeg or png")
	quality := flag.Int("quality", 90, "jpeg quality 1..100")
	naming := flag.String("naming", "keep-original", "naming rule: keep-original, prefix or suffix")
	prefix := flag.String("prefix", "wm_", "filename prefix for -naming=prefix")
	suffix := flag.String("suffix", "_wm", "filename suffix for -naming=suffix")
	clamp := flag.String("clamp", "default", "clamp policy: default or always")

	workers := flag.Int("workers", 1, "parallel renders; 1 keeps source order")

	storePath := flag.String("templates", defaultStorePath(), "template store file")
	useTemplate := flag.String("template", "", "load the watermark spec from a saved template")
	saveTemplate := flag.String("save-template", "", "save the spec built from flags under this name")
	deleteTemplate := flag.String("delete-template", "", "delete a saved template and exit")
	listTemplates := flag.Bool("list-templates", false, "list saved templates and exit")

	flag.Parse()

	zlog.InitConsole()

	store, err := templatestore.Open(*storePath)
	if err != nil {
		fatal(err)
	}

	switch {
	case *listTemplates:
		for _, name := range store.Names() {
			fmt.Println(name)
		}
		return
	case *deleteTemplate != "":
		if err := store.Delete(*deleteTemplate); err != nil {
			fatal(err)
		}
		if err := store.Save(); err != nil {
			fatal(err)
		}
		fmt.Printf("Template %q deleted\n", *deleteTemplate)
		return
	}

	var spec model.WatermarkSpec
	if *useTemplate != "" {
		spec, err = store.Get(*useTemplate)
		if err != nil {
			fatal(err)
		}
	} else {
		color, err := parseRGB(*colorRGB)
		if err != nil {
			fmt.Fprintln(os.Stderr, "invalid -color:", err)
			os.Exit(2)
		}
		spec, err = buildSpec(specFlags{
			text: *text, fontFamily: *fontFamily, fontSize: *fontSize,
			bold: *bold, italic: *italic, color: color, textOpacity: *textOpacity,
			shadow: *shadow, stroke: *stroke,
			mark: *mark, markScale: *markScale, markOpacity: *markOpacity,
			anchor: *anchor, manualX: *manualX, manualY: *manualY, rotation: *rotation,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			flag.Usage()
			os.Exit(2)
		}
	}

	if *saveTemplate != "" {
		store.Put(*saveTemplate, spec)
		if err := store.Save(); err != nil {
			fatal(err)
		}
		fmt.Printf("Template %q saved to %s\n", *saveTemplate, *storePath)
		if *in == "" {
			return
		}
	}

	if strings.TrimSpace(*in) == "" || strings.TrimSpace(*out) == "" {
		fmt.Fprintln(os.Stderr, "missing -in or -out")
		flag.Usage()
		os.Exit(2)
	}

	job := &model.BatchJob{
		Spec: spec,
		Rule: model.ExportRule{
			OutputDir:   *out,
			NamingRule:  model.NamingRule(*naming),
			Prefix:      *prefix,
			Suffix:      *suffix,
			Format:      parseFormat(*format),
			JPEGQuality: *quality,
			Clamp:       model.ClampPolicy(*clamp),
		},
	}
	if err := collectSources(&job.Sources, *in); err != nil {
		fatal(err)
	}

	local, err := localstorage.New(*out)
	if err != nil {
		fatal(err)
	}

	exporter := batch.Exporter{
		Source:  local,
		Sink:    local,
		Workers: *workers,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := func(index int, filename string, err error) {
		if err != nil {
			fmt.Printf("[%d/%d] %s: FAILED: %v\n", index+1, job.Sources.Len(), filename, err)
			return
		}
		fmt.Printf("[%d/%d] %s: ok\n", index+1, job.Sources.Len(), filename)
	}

	res, runErr := exporter.Run(ctx, job, progress)

	fmt.Printf("Done: %d succeeded, %d failed\n", res.Success, res.Failure)
	switch {
	case res.Aborted:
		fmt.Fprintln(os.Stderr, "Interrupted, remaining images skipped")
		os.Exit(1)
	case runErr != nil:
		fatal(runErr)
	case res.Success == 0:
		os.Exit(1)
	}
}

type specFlags struct {
	text        string
	fontFamily  string
	fontSize    int
	bold        bool
	italic      bool
	color       model.RGB
	textOpacity int
	shadow      bool
	stroke      bool

	mark        string
	markScale   int
	markOpacity int

	anchor   string
	manualX  int
	manualY  int
	rotation int
}

func buildSpec(f specFlags) (model.WatermarkSpec, error) {
	spec := model.WatermarkSpec{
		Rotation: f.rotation,
		Position: model.PositionSpec{
			Anchor:  model.Anchor(strings.ToLower(strings.TrimSpace(f.anchor))),
			ManualX: f.manualX,
			ManualY: f.manualY,
		},
	}

	switch {
	case f.text != "" && f.mark != "":
		return spec, errors.New("-text and -mark are mutually exclusive")
	case f.text != "":
		spec.Variant = model.VariantText
		spec.Text = &model.TextPayload{
			Text:       f.text,
			FontFamily: f.fontFamily,
			FontSize:   f.fontSize,
			Bold:       f.bold,
			Italic:     f.italic,
			Color:      f.color,
			Opacity:    f.textOpacity,
			Shadow:     f.shadow,
			Stroke:     f.stroke,
		}
	case f.mark != "":
		spec.Variant = model.VariantImage
		spec.Image = &model.ImagePayload{
			SourcePath:   f.mark,
			ScalePercent: f.markScale,
			Opacity:      f.markOpacity,
		}
	default:
		return spec, errors.New("one of -text or -mark is required")
	}

	spec.Normalize()
	return spec, spec.Validate()
}

// collectSources expands the -in list: plain files are added as-is,
// directories contribute their image files (non-recursive).
func collectSources(list *model.PathList, in string) error {
	for _, entry := range strings.Split(in, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		info, err := os.Stat(entry)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			list.Add(entry)
			continue
		}

		files, err := os.ReadDir(entry)
		if err != nil {
			return err
		}
		for _, f := range files {
			if f.IsDir() || !isImageFile(f.Name()) {
				continue
			}
			list.Add(filepath.Join(entry, f.Name()))
		}
	}

	if list.Len() == 0 {
		return model.ErrEmptyBatch
	}
	return nil
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff":
		return true
	default:
		return false
	}
}

func parseFormat(raw string) model.Format {
	if strings.EqualFold(strings.TrimSpace(raw), "png") {
		return model.FormatPNG
	}
	return model.FormatJPEG
}

func parseRGB(raw string) (model.RGB, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 3 {
		return model.RGB{}, errors.New("expected format r,g,b")
	}
	vals := [3]uint8{}
	for i := 0; i < 3; i++ {
		p := strings.TrimSpace(parts[i])
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > 255 {
			return model.RGB{}, fmt.Errorf("invalid channel: %q", p)
		}
		vals[i] = uint8(v)
	}
	return model.RGB{R: vals[0], G: vals[1], B: vals[2]}, nil
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "photomark-templates.json"
	}
	return filepath.Join(home, ".photomark", "templates.json")
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
