package rest

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"scenefacts.ai/internal/persistence/indexdb"
	"scenefacts.ai/internal/protocol"
	"scenefacts.ai/internal/service"
)

type StepLister interface {
	RecentSteps(ctx context.Context, limit int) ([]indexdb.StepSummary, error)
}

// Handler exposes the generator over plain HTTP for callers that do not keep
// a websocket open. Steps is optional.
type Handler struct {
	Service *service.Service
	Steps   StepLister
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(corsMiddleware())
	s.GET("/healthz", h.healthz)

	v1 := s.Group("/v1")
	v1.POST("/describe", h.describe)
	v1.GET("/entities", h.entities)
	v1.GET("/steps", h.steps)
}

type entityView struct {
	ID       int      `json:"id"`
	Centroid [2]int   `json:"centroid"`
	Cells    [][2]int `json:"cells"`
}

func (h Handler) healthz(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]any{
		"ok":        true,
		"substrate": string(h.Service.Generator().Kind()),
	})
}

func (h Handler) describe(c context.Context, ctx *app.RequestContext) {
	body := ctx.Request.Body()
	if len(body) == 0 {
		writeErrorBody(ctx, consts.StatusBadRequest, protocol.ErrProtoBadRequest, "empty body")
		return
	}
	resp, err := h.Service.Describe(c, body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) entities(c context.Context, ctx *app.RequestContext) {
	ents := h.Service.Generator().Entities()
	out := make([]entityView, 0, len(ents))
	for _, e := range ents {
		v := entityView{ID: e.ID, Centroid: e.Centroid.ToArray(), Cells: make([][2]int, 0, len(e.Members))}
		for _, p := range e.Members {
			v.Cells = append(v.Cells, p.ToArray())
		}
		out = append(out, v)
	}
	ctx.JSON(consts.StatusOK, map[string]any{
		"substrate": string(h.Service.Generator().Kind()),
		"entities":  out,
	})
}

func (h Handler) steps(c context.Context, ctx *app.RequestContext) {
	if h.Steps == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "index_disabled", "step index is disabled")
		return
	}
	limit := 100
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 10000 {
			writeErrorBody(ctx, consts.StatusBadRequest, protocol.ErrProtoBadRequest, "limit must be in 1..10000")
			return
		}
		limit = n
	}
	steps, err := h.Steps.RecentSteps(c, limit)
	if err != nil {
		writeErrorBody(ctx, consts.StatusInternalServerError, protocol.ErrInternal, err.Error())
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"steps": steps})
}

func writeError(ctx *app.RequestContext, err error) {
	code := service.ErrorCode(err)
	status := consts.StatusBadRequest
	if code == protocol.ErrInternal {
		status = consts.StatusInternalServerError
	}
	writeErrorBody(ctx, status, code, err.Error())
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
