package main

import (
	"context"
	"io"

	"photomark/internal/model"
)

type JobAPIService interface {
	Create(context.Context, *model.JobCreateData) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error)
	LoadResult(ctx context.Context, id string, filename string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, id string) error
	ReviveOrphans(ctx context.Context, limit int)

	SaveTemplate(ctx context.Context, tpl *model.Template) (*model.Template, error)
	GetTemplate(ctx context.Context, name string) (*model.Template, error)
	ListTemplates(ctx context.Context) ([]model.Template, error)
	DeleteTemplate(ctx context.Context, name string) error
}
