// Package model provides data-structs for internal app-usage
package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

type (
	Status      string
	Variant     string
	Anchor      string
	NamingRule  string
	Format      string
	ClampPolicy string
)

const (
	StatusCreated Status = "created"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
	StatusAborted Status = "aborted"
)

var StatusMap = map[Status]bool{
	StatusCreated: true,
	StatusRunning: true,
	StatusDone:    true,
	StatusFailed:  true,
	StatusAborted: true,
}

const (
	VariantText  Variant = "text"
	VariantImage Variant = "image"
)

// The nine-point placement grid plus manual pixel placement.
const (
	AnchorTopLeft      Anchor = "top-left"
	AnchorTopCenter    Anchor = "top-center"
	AnchorTopRight     Anchor = "top-right"
	AnchorMiddleLeft   Anchor = "middle-left"
	AnchorCenter       Anchor = "center"
	AnchorMiddleRight  Anchor = "middle-right"
	AnchorBottomLeft   Anchor = "bottom-left"
	AnchorBottomCenter Anchor = "bottom-center"
	AnchorBottomRight  Anchor = "bottom-right"
	AnchorManual       Anchor = "manual"
)

var AnchorMap = map[Anchor]bool{
	AnchorTopLeft:      true,
	AnchorTopCenter:    true,
	AnchorTopRight:     true,
	AnchorMiddleLeft:   true,
	AnchorCenter:       true,
	AnchorMiddleRight:  true,
	AnchorBottomLeft:   true,
	AnchorBottomCenter: true,
	AnchorBottomRight:  true,
	AnchorManual:       true,
}

const (
	NameKeepOriginal NamingRule = "keep-original"
	NamePrefix       NamingRule = "prefix"
	NameSuffix       NamingRule = "suffix"
)

const (
	FormatJPEG Format = "JPEG"
	FormatPNG  Format = "PNG"
)

const (
	// ClampDefault keeps the historical asymmetry: a manually placed text
	// watermark may hang off the canvas, everything else is pulled back in.
	ClampDefault ClampPolicy = "default"
	ClampAlways  ClampPolicy = "always"
)

//---------------------

// RGB is an opaque 8-bit color triple.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// TextPayload describes a text watermark. Shadow and stroke are text-only
// effects, so they live here and not on the spec.
type TextPayload struct {
	Text       string `json:"text"`
	FontFamily string `json:"font_family"`
	FontSize   int    `json:"font_size"`
	Bold       bool   `json:"bold"`
	Italic     bool   `json:"italic"`
	Color      RGB    `json:"color"`
	Opacity    int    `json:"opacity"`
	Shadow     bool   `json:"shadow"`
	Stroke     bool   `json:"stroke"`
}

// ImagePayload describes an image watermark. Opacity is independent from the
// text style and composes with transparency already present in the source.
type ImagePayload struct {
	SourcePath   string `json:"source_path"`
	ScalePercent int    `json:"scale_percent"`
	Opacity      int    `json:"opacity"`
}

// PositionSpec is either one of the nine named anchors or a manual pixel
// position in original-image coordinates. Manual coordinates survive a
// switch back to anchor mode, so reselecting manual reuses them.
type PositionSpec struct {
	Anchor  Anchor `json:"anchor"`
	ManualX int    `json:"manual_x"`
	ManualY int    `json:"manual_y"`
}

// Manual reports whether placement bypasses the anchor grid.
func (p PositionSpec) Manual() bool { return p.Anchor == AnchorManual }

// WatermarkSpec is the immutable-per-render watermark configuration.
// Exactly one payload is active, selected by Variant.
type WatermarkSpec struct {
	Variant  Variant       `json:"variant"`
	Text     *TextPayload  `json:"text,omitempty"`
	Image    *ImagePayload `json:"image,omitempty"`
	Rotation int           `json:"rotation"`
	Position PositionSpec  `json:"position"`
}

// Normalize clamps every range-bound field in place. Out-of-range values are
// clamped, never rejected.
func (s *WatermarkSpec) Normalize() {
	s.Rotation = ((s.Rotation % 360) + 360) % 360
	if s.Position.Anchor == "" {
		s.Position.Anchor = AnchorBottomRight
	}
	if s.Text != nil {
		s.Text.Opacity = ClampPercent(s.Text.Opacity)
		if s.Text.FontSize <= 0 {
			s.Text.FontSize = 36
		}
	}
	if s.Image != nil {
		s.Image.Opacity = ClampPercent(s.Image.Opacity)
		if s.Image.ScalePercent <= 0 {
			s.Image.ScalePercent = 100
		}
	}
}

// Validate reports configuration errors that no clamp can repair.
func (s *WatermarkSpec) Validate() error {
	switch s.Variant {
	case VariantText:
		if s.Text == nil || strings.TrimSpace(s.Text.Text) == "" {
			return ErrEmptyText
		}
	case VariantImage:
		if s.Image == nil || s.Image.SourcePath == "" {
			return ErrEmptyMarkImage
		}
	default:
		return ErrIncorrectVariant
	}
	if !AnchorMap[s.Position.Anchor] && s.Position.Anchor != "" {
		return ErrIncorrectAnchor
	}
	return nil
}

func ClampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

//-------------------

// ExportRule describes where and how rendered results are written.
type ExportRule struct {
	OutputDir   string      `json:"output_dir"`
	NamingRule  NamingRule  `json:"naming_rule"`
	Prefix      string      `json:"prefix"`
	Suffix      string      `json:"suffix"`
	Format      Format      `json:"format"`
	JPEGQuality int         `json:"jpeg_quality"` // 1..100; zero means unset and takes the default
	Clamp       ClampPolicy `json:"clamp,omitempty"`
}

// Normalize fills defaults and clamps the quality range.
func (r *ExportRule) Normalize() {
	if r.NamingRule == "" {
		r.NamingRule = NameKeepOriginal
	}
	if r.Format == "" {
		r.Format = FormatJPEG
	}
	// The JPEG encoder range is 1..100, so quality 0 is not representable
	// as an explicit value; the zero value means unset and gets the default.
	r.JPEGQuality = ClampPercent(r.JPEGQuality)
	if r.JPEGQuality == 0 {
		r.JPEGQuality = 90
	}
	if r.Clamp == "" {
		r.Clamp = ClampDefault
	}
}

// OutputName derives the output filename for a source filename: the stem is
// kept, the extension is forced by the output format, prefix/suffix applied
// per the naming rule.
func (r ExportRule) OutputName(source string) string {
	base := filepath.Base(source)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	switch r.NamingRule {
	case NamePrefix:
		return r.Prefix + name + r.Ext()
	case NameSuffix:
		return name + r.Suffix + r.Ext()
	default:
		return name + r.Ext()
	}
}

// Ext returns the forced output extension for the rule's format.
func (r ExportRule) Ext() string {
	if r.Format == FormatPNG {
		return ".png"
	}
	return ".jpg"
}

// ContentType returns the MIME type of the rule's output format.
func (r ExportRule) ContentType() string {
	if r.Format == FormatPNG {
		return PNG
	}
	return JPEG
}

//-------------------

// PathList is an ordered collection of source paths with duplicate paths
// suppressed on insertion.
type PathList struct {
	paths []string
	seen  map[string]bool
}

// Add appends a path unless it is already present. Returns true if added.
func (l *PathList) Add(path string) bool {
	if l.seen == nil {
		l.seen = make(map[string]bool)
	}
	if l.seen[path] {
		return false
	}
	l.seen[path] = true
	l.paths = append(l.paths, path)
	return true
}

// Paths returns the insertion-ordered slice. Callers must not mutate it.
func (l *PathList) Paths() []string { return l.paths }

// Len reports the number of stored paths.
func (l *PathList) Len() int { return len(l.paths) }

// BatchJob pairs an ordered image collection with one spec/rule applied
// uniformly to all of them. It owns no image data, only paths.
type BatchJob struct {
	Sources PathList
	Spec    WatermarkSpec
	Rule    ExportRule
}

// BatchResult aggregates the outcome of one batch run.
type BatchResult struct {
	Success int
	Failure int
	Aborted bool
}

//-------------------

// Job is the persisted record of a batch job in service mode.
type Job struct {
	UID        uuid.UUID     `json:"uid"`
	Spec       WatermarkSpec `json:"spec"`
	Rule       ExportRule    `json:"rule"`
	SourceKeys StringSlice   `json:"source_keys,omitempty"`
	ResultKeys StringSlice   `json:"result_keys,omitempty"`
	Status     Status        `json:"status,omitempty"`
	Success    int           `json:"success_count"`
	Failure    int           `json:"failure_count"`
	ErrMsg     StringSlice   `json:"errors,omitempty"`
	CreatedAt  *time.Time    `json:"created_at,omitempty"`
	UpdatedAt  *time.Time    `json:"updated_at,omitempty"`
}

// JobCreateData carries a decoded create-request before validation.
type JobCreateData struct {
	Spec      WatermarkSpec
	Rule      ExportRule
	Sources   []UploadedFile
	MarkImg   multipart.File
	MarkCType string
	MarkSize  int64
}

// UploadedFile is one uploaded source image.
type UploadedFile struct {
	File        multipart.File
	Name        string
	ContentType string
	Size        int64
}

// Template is a named, persisted watermark configuration.
type Template struct {
	Name      string        `json:"name"`
	Spec      WatermarkSpec `json:"spec"`
	UpdatedAt *time.Time    `json:"updated_at,omitempty"`
}

type ListRequest struct {
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
	Sort  string `form:"sort"`
	Order string `form:"order"`
}

const (
	ByUUID    = "uid"
	ByCreated = "created"
	OrderASC  = "ascend"
	OrderDESC = "descend"
)

// ------------------

var (
	ErrCommon500        error = errors.New("something went wrong. Try again later") // 500
	ErrIncorrectQuery   error = errors.New("incorrect query parameters")            // 400
	ErrIncorrectID      error = errors.New("incorrect job UUID")                    // 400
	ErrJobNotFound      error = errors.New("specified job UUID doesn't exist")      // 404
	ErrResultNotReady   error = errors.New("requested job is not finished yet")     // 404
	ErrIncorrectVariant error = errors.New("watermark variant is not supported")    // 400
	ErrIncorrectAnchor  error = errors.New("unknown anchor position")               // 400
	ErrEmptyText        error = errors.New("text watermark has no text")            // 400
	ErrEmptyMarkImage   error = errors.New("image watermark has no source image")   // 400
	ErrEmptySource      error = errors.New("empty/incorrect source image provided") // 400
	ErrEmptyBatch       error = errors.New("batch contains no images")              // 400
	ErrNoOutputDir      error = errors.New("no output directory set")               // 400
	ErrIncorrectStatus  error = errors.New("incorrect status provided")             // 400
	ErrUnsupportedType  error = errors.New("unsupported source image format")       // 400
	ErrTemplateNotFound error = errors.New("specified template doesn't exist")      // 404
	ErrAssetDecode      error = errors.New("cannot decode watermark asset")
)

//--------------------

const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	GIF  = "image/gif"
	BMP  = "image/bmp"
	TIFF = "image/tiff"
)

var GetImageFileExt = map[string]string{
	JPEG: ".jpg",
	PNG:  ".png",
	GIF:  ".gif",
	BMP:  ".bmp",
	TIFF: ".tif",
}

var InImageTypeMap = map[string]bool{
	JPEG: true,
	PNG:  true,
	GIF:  true,
	BMP:  true,
	TIFF: true,
}

//--------------------

// Spec and rule live in JSONB columns, so both sides of the sql driver
// boundary are implemented here next to StringSlice.

func (s *WatermarkSpec) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("invalid type for WatermarkSpec")
	}
	if err := json.Unmarshal(b, s); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB to WatermarkSpec: %w", err)
	}
	return nil
}

func (s WatermarkSpec) Value() (driver.Value, error) {
	res, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal WatermarkSpec to JSONB: %w", err)
	}
	return res, nil
}

func (r *ExportRule) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("invalid type for ExportRule")
	}
	if err := json.Unmarshal(b, r); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB to ExportRule: %w", err)
	}
	return nil
}

func (r ExportRule) Value() (driver.Value, error) {
	res, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ExportRule to JSONB: %w", err)
	}
	return res, nil
}

type StringSlice []string

func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = []string{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("invalid type for StringSlice")
	}

	if err := json.Unmarshal(b, s); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB to []StringSlice: %w", err)
	}
	return nil
}

func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 || s == nil {
		return []byte(`[]`), nil
	}
	res, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal []StringSlice to JSONB: %w", err)
	}

	return res, nil
}
