package transport

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"

	"photomark/internal/model"
)

type mockJobService struct {
	createFn     func(ctx context.Context, d *model.JobCreateData) (*model.Job, error)
	deleteFn     func(ctx context.Context, id string) error
	getFn        func(ctx context.Context, id string) (*model.Job, error)
	getListFn    func(ctx context.Context, req *model.ListRequest) ([]model.Job, error)
	loadResultFn func(ctx context.Context, id string, filename string) (io.ReadCloser, string, error)

	saveTplFn   func(ctx context.Context, tpl *model.Template) (*model.Template, error)
	getTplFn    func(ctx context.Context, name string) (*model.Template, error)
	listTplFn   func(ctx context.Context) ([]model.Template, error)
	deleteTplFn func(ctx context.Context, name string) error
}

func (m *mockJobService) Create(ctx context.Context, d *model.JobCreateData) (*model.Job, error) {
	return m.createFn(ctx, d)
}

func (m *mockJobService) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func (m *mockJobService) Get(ctx context.Context, id string) (*model.Job, error) {
	return m.getFn(ctx, id)
}

func (m *mockJobService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error) {
	return m.getListFn(ctx, req)
}

func (m *mockJobService) LoadResult(ctx context.Context, id string, filename string) (io.ReadCloser, string, error) {
	return m.loadResultFn(ctx, id, filename)
}

func (m *mockJobService) SaveTemplate(ctx context.Context, tpl *model.Template) (*model.Template, error) {
	return m.saveTplFn(ctx, tpl)
}

func (m *mockJobService) GetTemplate(ctx context.Context, name string) (*model.Template, error) {
	return m.getTplFn(ctx, name)
}

func (m *mockJobService) ListTemplates(ctx context.Context) ([]model.Template, error) {
	return m.listTplFn(ctx)
}

func (m *mockJobService) DeleteTemplate(ctx context.Context, name string) error {
	return m.deleteTplFn(ctx, name)
}

func init() {
	gin.SetMode(gin.TestMode)
}
