package service

import (
	"strings"

	"photomark/internal/model"
)

func validateQueryParams(req *model.ListRequest) {
	// Fill in defaults for empty/garbage values.
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 30
	}
	if req.Sort == "" {
		req.Sort = model.ByCreated
	}
	if req.Order == "" {
		req.Order = model.OrderDESC
	}

	// Sort field maps onto a whitelisted column name, never straight into SQL.
	req.Sort = strings.ToLower(req.Sort)
	req.Sort = strings.TrimSpace(req.Sort)
	switch {
	case strings.Contains(req.Sort, model.ByUUID):
		req.Sort = "job_uid"
	case strings.Contains(req.Sort, model.ByCreated):
		req.Sort = "created_at"
	default:
		req.Sort = "created_at"
	}

	req.Order = strings.ToLower(req.Order)
	req.Order = strings.TrimSpace(req.Order)
	switch {
	case strings.Contains(req.Order, model.OrderASC):
		req.Order = "ASC"
	case strings.Contains(req.Order, model.OrderDESC):
		req.Order = "DESC"
	default:
		req.Order = "DESC"
	}
}

func validateNormalizeJobInfo(raw *model.JobCreateData, clean *model.Job) error {
	clean.Spec = raw.Spec
	clean.Rule = raw.Rule
	clean.Spec.Normalize()
	clean.Rule.Normalize()

	if err := validateSpecShape(&clean.Spec); err != nil {
		return err
	}

	// The image-variant asset arrives as an upload, not as a path.
	if clean.Spec.Variant == model.VariantImage &&
		(raw.MarkImg == nil || raw.MarkSize <= 0 || !model.InImageTypeMap[raw.MarkCType]) {
		return model.ErrEmptyMarkImage
	}

	if len(raw.Sources) == 0 {
		return model.ErrEmptyBatch
	}
	for _, f := range raw.Sources {
		if f.File == nil || f.Size <= 0 || !model.InImageTypeMap[f.ContentType] {
			return model.ErrEmptySource
		}
	}

	return nil
}

// validateSpecShape checks everything that does not depend on uploads: the
// variant, the text payload and the anchor. An image-variant spec may have an
// empty source path here since templates store the configuration without the
// asset.
func validateSpecShape(spec *model.WatermarkSpec) error {
	switch spec.Variant {
	case model.VariantText:
		if spec.Text == nil || strings.TrimSpace(spec.Text.Text) == "" {
			return model.ErrEmptyText
		}
	case model.VariantImage:
		if spec.Image == nil {
			return model.ErrEmptyMarkImage
		}
	default:
		return model.ErrIncorrectVariant
	}

	if !model.AnchorMap[spec.Position.Anchor] {
		return model.ErrIncorrectAnchor
	}
	return nil
}
