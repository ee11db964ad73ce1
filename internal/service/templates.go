package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"photomark/internal/model"
	"photomark/internal/mwlogger"
)

// SaveTemplate persists a named watermark configuration; an existing name is
// overwritten.
func (c JobService) SaveTemplate(ctx context.Context, tpl *model.Template) (*model.Template, error) {
	logger := mwlogger.FromContext(ctx)

	tpl.Name = strings.TrimSpace(tpl.Name)
	if tpl.Name == "" {
		return nil, model.ErrIncorrectQuery
	}

	tpl.Spec.Normalize()
	if err := validateSpecShape(&tpl.Spec); err != nil {
		return nil, err
	}

	if err := c.templates.Save(ctx, tpl); err != nil {
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to save template %q in DB", tpl.Name))
		return nil, model.ErrCommon500
	}
	return tpl, nil
}

func (c JobService) GetTemplate(ctx context.Context, name string) (*model.Template, error) {
	logger := mwlogger.FromContext(ctx)

	tpl, err := c.templates.Get(ctx, name)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrTemplateNotFound):
			return nil, model.ErrTemplateNotFound
		default:
			logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch template %q from DB", name))
			return nil, model.ErrCommon500
		}
	}
	return tpl, nil
}

func (c JobService) ListTemplates(ctx context.Context) ([]model.Template, error) {
	logger := mwlogger.FromContext(ctx)

	res, err := c.templates.GetList(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch templates list from DB")
		return nil, model.ErrCommon500
	}
	return res, nil
}

func (c JobService) DeleteTemplate(ctx context.Context, name string) error {
	logger := mwlogger.FromContext(ctx)

	if err := c.templates.Delete(ctx, name); err != nil {
		switch {
		case errors.Is(err, model.ErrTemplateNotFound):
			return model.ErrTemplateNotFound
		default:
			logger.Error().Err(err).Msg(fmt.Sprintf("Failed to delete template %q from DB", name))
			return model.ErrCommon500
		}
	}
	return nil
}
