// Package router wires the HTTP routes to the request handlers.
package router

import (
	"context"
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"

	"career-copilot-go/internal/api/handler"
	"career-copilot-go/internal/config"
	"career-copilot-go/internal/storage"
)

// RegisterRoutes registers the API surface. When API keys are
// configured, every /api/v1 route except the health check requires one.
func RegisterRoutes(h *server.Hertz, cfg *config.Config, documents *handler.DocumentHandler, matches *handler.MatchHandler) {
	api := h.Group("/api/v1")

	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	if len(cfg.Server.APIKeys) > 0 {
		api.Use(apiKeyMiddleware(cfg.Server.APIKeys))
	}

	api.POST("/documents", func(c context.Context, ctx *app.RequestContext) {
		var req handler.IngestRequest
		if err := ctx.BindAndValidate(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		resp, err := documents.HandleIngest(c, &req)
		if err != nil {
			status := consts.StatusInternalServerError
			if errors.Is(err, storage.ErrDuplicateDocument) {
				status = consts.StatusConflict
			}
			ctx.JSON(status, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusCreated, resp)
	})

	api.GET("/documents", func(c context.Context, ctx *app.RequestContext) {
		var req handler.ListRequest
		if err := ctx.BindAndValidate(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		resp, err := documents.HandleList(c, &req)
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.GET("/documents/counts", func(c context.Context, ctx *app.RequestContext) {
		resp, err := documents.HandleCounts(c)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.GET("/documents/:id", func(c context.Context, ctx *app.RequestContext) {
		resp, err := documents.HandleGet(c, ctx.Param("id"))
		if err != nil {
			ctx.JSON(consts.StatusNotFound, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.DELETE("/documents/:id", func(c context.Context, ctx *app.RequestContext) {
		if err := documents.HandleDelete(c, ctx.Param("id")); err != nil {
			ctx.JSON(consts.StatusNotFound, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"status": "deleted"})
	})

	api.POST("/match/rough", func(c context.Context, ctx *app.RequestContext) {
		var req handler.RoughMatchRequest
		if err := ctx.BindAndValidate(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		resp, err := matches.HandleRoughMatch(c, &req)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/match/precise", func(c context.Context, ctx *app.RequestContext) {
		var req handler.PreciseMatchRequest
		if err := ctx.BindAndValidate(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		resp, err := matches.HandlePreciseMatch(c, &req)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/match/hybrid", func(c context.Context, ctx *app.RequestContext) {
		var req handler.HybridMatchRequest
		if err := ctx.BindAndValidate(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		resp, err := matches.HandleHybridMatch(c, &req)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})
}

func apiKeyMiddleware(keys []string) app.HandlerFunc {
	allowed := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		allowed[key] = struct{}{}
	}
	return keyauth.New(
		keyauth.WithKeyLookUp("header:X-API-Key", ""),
		keyauth.WithValidator(func(ctx context.Context, c *app.RequestContext, key string) (bool, error) {
			_, ok := allowed[key]
			return ok, nil
		}),
	)
}
