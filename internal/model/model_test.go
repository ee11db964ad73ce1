package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWatermarkSpec_Normalize(t *testing.T) {
	spec := WatermarkSpec{
		Variant:  VariantText,
		Text:     &TextPayload{Text: "draft", Opacity: 150},
		Rotation: -90,
	}
	spec.Normalize()

	require.Equal(t, 270, spec.Rotation)
	require.Equal(t, 100, spec.Text.Opacity)
	require.Equal(t, 36, spec.Text.FontSize)
	require.Equal(t, AnchorBottomRight, spec.Position.Anchor)

	spec.Rotation = 360
	spec.Normalize()
	require.Equal(t, 0, spec.Rotation)
}

func TestWatermarkSpec_NormalizeImageDefaults(t *testing.T) {
	spec := WatermarkSpec{
		Variant: VariantImage,
		Image:   &ImagePayload{SourcePath: "logo.png", Opacity: -5},
	}
	spec.Normalize()

	require.Equal(t, 0, spec.Image.Opacity)
	require.Equal(t, 100, spec.Image.ScalePercent)
}

func TestWatermarkSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    WatermarkSpec
		wantErr error
	}{
		{
			name:    "unknown variant",
			spec:    WatermarkSpec{Variant: "glitter"},
			wantErr: ErrIncorrectVariant,
		},
		{
			name:    "text without payload",
			spec:    WatermarkSpec{Variant: VariantText},
			wantErr: ErrEmptyText,
		},
		{
			name:    "text with blank content",
			spec:    WatermarkSpec{Variant: VariantText, Text: &TextPayload{Text: "   "}},
			wantErr: ErrEmptyText,
		},
		{
			name:    "image without payload",
			spec:    WatermarkSpec{Variant: VariantImage},
			wantErr: ErrEmptyMarkImage,
		},
		{
			name: "bad anchor",
			spec: WatermarkSpec{
				Variant:  VariantText,
				Text:     &TextPayload{Text: "x"},
				Position: PositionSpec{Anchor: "everywhere"},
			},
			wantErr: ErrIncorrectAnchor,
		},
		{
			name: "valid",
			spec: WatermarkSpec{
				Variant:  VariantText,
				Text:     &TextPayload{Text: "x"},
				Position: PositionSpec{Anchor: AnchorCenter},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestExportRule_OutputName(t *testing.T) {
	tests := []struct {
		name   string
		rule   ExportRule
		source string
		want   string
	}{
		{
			name:   "keep original forces jpg",
			rule:   ExportRule{NamingRule: NameKeepOriginal, Format: FormatJPEG},
			source: "/photos/holiday.png",
			want:   "holiday.jpg",
		},
		{
			name:   "prefix",
			rule:   ExportRule{NamingRule: NamePrefix, Prefix: "wm_", Format: FormatPNG},
			source: "photo.jpg",
			want:   "wm_photo.png",
		},
		{
			name:   "suffix",
			rule:   ExportRule{NamingRule: NameSuffix, Suffix: "_done", Format: FormatJPEG},
			source: "sources/uid/photo.jpeg",
			want:   "photo_done.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.rule.OutputName(tt.source))
		})
	}
}

func TestExportRule_Normalize(t *testing.T) {
	rule := ExportRule{}
	rule.Normalize()

	require.Equal(t, NameKeepOriginal, rule.NamingRule)
	require.Equal(t, FormatJPEG, rule.Format)
	require.Equal(t, 90, rule.JPEGQuality)
	require.Equal(t, ClampDefault, rule.Clamp)

	rule = ExportRule{JPEGQuality: 250}
	rule.Normalize()
	require.Equal(t, 100, rule.JPEGQuality)

	// The encoder floor: 1 is the lowest explicit quality, 0 means unset.
	rule = ExportRule{JPEGQuality: 1}
	rule.Normalize()
	require.Equal(t, 1, rule.JPEGQuality)

	rule = ExportRule{JPEGQuality: 0}
	rule.Normalize()
	require.Equal(t, 90, rule.JPEGQuality)
}

func TestExportRule_ContentType(t *testing.T) {
	require.Equal(t, PNG, ExportRule{Format: FormatPNG}.ContentType())
	require.Equal(t, JPEG, ExportRule{Format: FormatJPEG}.ContentType())
}

func TestPathList_AddDeduplicates(t *testing.T) {
	var list PathList

	require.True(t, list.Add("a.jpg"))
	require.True(t, list.Add("b.jpg"))
	require.False(t, list.Add("a.jpg"))

	require.Equal(t, []string{"a.jpg", "b.jpg"}, list.Paths())
	require.Equal(t, 2, list.Len())
}

func TestStringSlice_ScanValue(t *testing.T) {
	s := StringSlice{"one", "two"}

	v, err := s.Value()
	require.NoError(t, err)

	var got StringSlice
	require.NoError(t, got.Scan(v))
	require.Equal(t, s, got)

	var empty StringSlice
	require.NoError(t, empty.Scan(nil))
	require.Empty(t, empty)

	v, err = StringSlice(nil).Value()
	require.NoError(t, err)
	require.Equal(t, []byte(`[]`), v)
}

func TestWatermarkSpec_ScanValue(t *testing.T) {
	spec := WatermarkSpec{
		Variant:  VariantText,
		Text:     &TextPayload{Text: "draft", FontSize: 36, Opacity: 50},
		Rotation: 45,
		Position: PositionSpec{Anchor: AnchorManual, ManualX: 10, ManualY: 20},
	}

	v, err := spec.Value()
	require.NoError(t, err)

	var got WatermarkSpec
	require.NoError(t, got.Scan(v))
	require.Equal(t, spec, got)
}

func TestJob_JSONShape(t *testing.T) {
	job := Job{Status: StatusDone, Success: 4, Failure: 1}

	raw, err := json.Marshal(job)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "done", decoded["status"])
	require.EqualValues(t, 4, decoded["success_count"])
	require.EqualValues(t, 1, decoded["failure_count"])
}
