package transport

import (
	"github.com/wb-go/wbf/ginext"

	"photomark/internal/model"
)

// SaveTemplate upserts a named watermark configuration from a JSON body.
func (h JobHandler) SaveTemplate(ctx *ginext.Context) {
	var tpl model.Template
	if err := ctx.ShouldBindJSON(&tpl); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse template body"})
		return
	}

	res, err := h.service.SaveTemplate(ctx.Request.Context(), &tpl)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(201, res)
}

func (h JobHandler) GetTemplate(ctx *ginext.Context) {
	name := ctx.Param("name")

	res, err := h.service.GetTemplate(ctx.Request.Context(), name)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h JobHandler) GetAllTemplates(ctx *ginext.Context) {
	res, err := h.service.ListTemplates(ctx.Request.Context())
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h JobHandler) DeleteTemplate(ctx *ginext.Context) {
	name := ctx.Param("name")
	if err := h.service.DeleteTemplate(ctx.Request.Context(), name); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Status(204)
}
