// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"

	"github.com/wb-go/wbf/ginext"

	"photomark/internal/model"
)

type JobHandler struct {
	service JobService
}

type JobService interface {
	Create(ctx context.Context, newJob *model.JobCreateData) (*model.Job, error)
	Delete(ctx context.Context, id string) error // removes the DB record and every stored object
	Get(ctx context.Context, id string) (*model.Job, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error)
	LoadResult(ctx context.Context, id string, filename string) (io.ReadCloser, string, error)

	SaveTemplate(ctx context.Context, tpl *model.Template) (*model.Template, error)
	GetTemplate(ctx context.Context, name string) (*model.Template, error)
	ListTemplates(ctx context.Context) ([]model.Template, error)
	DeleteTemplate(ctx context.Context, name string) error
}

func NewJobHandler(svc JobService) *JobHandler {
	return &JobHandler{
		service: svc,
	}
}

func (h JobHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(200, map[string]string{"message": "pong"})
}

// Create accepts a multipart form: a "spec" JSON field (or a "template" name
// to reuse a saved spec), an optional "rule" JSON field, the source images
// under "images" and, for the image variant, the asset under "watermark".
func (h JobHandler) Create(ctx *ginext.Context) {
	var newJobRaw model.JobCreateData

	specStr := ctx.PostForm("spec")
	tplName := ctx.PostForm("template")
	switch {
	case specStr != "":
		if err := json.Unmarshal([]byte(specStr), &newJobRaw.Spec); err != nil {
			ctx.JSON(400, map[string]string{"error": "failed to parse spec"})
			return
		}
	case tplName != "":
		tpl, err := h.service.GetTemplate(ctx.Request.Context(), tplName)
		if err != nil {
			ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
			return
		}
		newJobRaw.Spec = tpl.Spec
	default:
		ctx.JSON(400, map[string]string{"error": "spec or template is required"})
		return
	}

	if ruleStr := ctx.PostForm("rule"); ruleStr != "" {
		if err := json.Unmarshal([]byte(ruleStr), &newJobRaw.Rule); err != nil {
			ctx.JSON(400, map[string]string{"error": "failed to parse rule"})
			return
		}
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse multipart form"})
		return
	}

	for _, header := range form.File["images"] {
		file, err := header.Open()
		if err != nil {
			ctx.JSON(400, map[string]string{"error": "failed to read source image"})
			return
		}
		defer closeFileFlow(file)
		newJobRaw.Sources = append(newJobRaw.Sources, model.UploadedFile{
			File:        file,
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
		})
	}

	// The watermark asset is required for the image variant only; the
	// service validates that, here it is just optional.
	var wmFile multipart.File
	wmFile, wmHeader, err := ctx.Request.FormFile("watermark")
	if err != nil {
		wmFile = nil
	} else {
		newJobRaw.MarkCType = wmHeader.Header.Get("Content-Type")
		newJobRaw.MarkSize = wmHeader.Size
		defer closeFileFlow(wmFile)
	}
	newJobRaw.MarkImg = wmFile

	res, err := h.service.Create(ctx.Request.Context(), &newJobRaw)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(201, res)
}

func (h JobHandler) GetAllJobs(ctx *ginext.Context) {
	var req model.ListRequest

	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse query-params"})
		return
	}

	res, err := h.service.GetList(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h JobHandler) GetJob(ctx *ginext.Context) {
	id := ctx.Param("id")

	res, err := h.service.Get(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h JobHandler) LoadResult(ctx *ginext.Context) {
	id := ctx.Param("id")
	filename := ctx.Param("name")

	res, cType, err := h.service.LoadResult(ctx.Request.Context(), id, filename)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}
	defer closeFileFlow(res)

	ctx.Writer.Header().Set("Content-Type", cType)
	ctx.Writer.WriteHeader(200)
	if n, err := io.Copy(ctx.Writer, res); err != nil {
		log.Printf("Failed to write response at byte %d for file %q of job %q: %v", n, filename, id, err)
	}
}

func (h JobHandler) Delete(ctx *ginext.Context) {
	id := ctx.Param("id")
	if err := h.service.Delete(ctx.Request.Context(), id); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Status(204)
}
