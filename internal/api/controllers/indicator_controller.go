package controllers

import (
	"errors"
	"time"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/caisdata/cais/internal/perrors"
	"github.com/caisdata/cais/internal/services"
	"github.com/caisdata/cais/internal/services/audit"
	"github.com/caisdata/cais/internal/services/indicator"
	"github.com/caisdata/cais/internal/services/permission"
	"github.com/caisdata/cais/internal/services/quota"
)

type indicatorQueryBody struct {
	Params map[string]interface{} `json:"params"`
}

func RegisterIndicatorRoutes(r *router.Router, svc *services.Services) {
	// List catalog
	r.GET("/api/v1/indicators", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		if module := intQuery(ctx, "module", 0); module > 0 {
			writeOK(ctx, stdCtx, "Indicators retrieved successfully", svc.Catalog.ByModule(module))
			return
		}

		writeOK(ctx, stdCtx, "Indicators retrieved successfully", svc.Catalog.List())
	})

	// Execute indicator query
	r.POST("/api/v1/indicators/{code}/query", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		start := time.Now()

		c, err := claims(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Authentication required", perrors.New(perrors.ErrCodeUnauthorized, "Authentication required", err))
			return
		}

		code, err := pathParam(ctx, "code")
		if err != nil {
			writeError(ctx, stdCtx, "Indicator code is required", perrors.NewErrInvalidRequest("Indicator code is required", err))
			return
		}

		def, err := svc.Catalog.Definition(code)
		if err != nil {
			writeError(ctx, stdCtx, "Unknown indicator", perrors.NewErrNotFound("Unknown indicator", err))
			return
		}

		// Permission first: a denied caller learns nothing about quota or data
		if err := svc.Permission.Authorize(stdCtx, c.TenantID, c.Roles, def.Module, permission.ActionRead); err != nil {
			indicatorQueries.WithLabelValues("denied").Inc()
			writeError(ctx, stdCtx, "Access denied", perrors.NewErrAccessDenied("Access denied", err))
			svc.Audit.Record(auditEntry(ctx, c, start, audit.ActionAccessDenied, "indicator:"+code, audit.Details{
				"module": def.Module,
				"action": string(permission.ActionRead),
			}))
			return
		}

		if def.FeatureFlag != "" {
			enabled, err := svc.Tenant.FlagEnabled(stdCtx, c.TenantID, def.FeatureFlag)
			if err != nil {
				writeError(ctx, stdCtx, "Failed to check feature flag", perrors.NewErrInternalServerError("Failed to check feature flag", err))
				return
			}
			if !enabled {
				writeError(ctx, stdCtx, "Indicator not enabled for tenant", perrors.NewErrAccessDenied("Indicator not enabled for tenant", errors.New("feature flag disabled")))
				return
			}
		}

		if err := svc.Quota.Check(stdCtx, c.TenantID.String(), c.Plan); err != nil {
			if errors.Is(err, quota.ErrQuotaExceeded) {
				indicatorQueries.WithLabelValues("throttled").Inc()
				writeError(ctx, stdCtx, "Query quota exceeded", perrors.NewErrQuotaExceeded("Query quota exceeded", err))
				svc.Audit.Record(auditEntry(ctx, c, start, audit.ActionQuotaExceeded, "indicator:"+code, audit.Details{
					"plan": c.Plan,
				}))
				return
			}
			writeError(ctx, stdCtx, "Failed to check quota", perrors.NewErrInternalServerError("Failed to check quota", err))
			return
		}

		var body indicatorQueryBody
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		result, err := svc.Indicator.Execute(stdCtx, c.TenantID, &indicator.QueryRequest{
			Code:   code,
			Params: body.Params,
		})
		if err != nil {
			switch {
			case errors.Is(err, indicator.ErrIndicatorNotFound):
				writeError(ctx, stdCtx, "Unknown indicator", perrors.NewErrNotFound("Unknown indicator", err))
			case errors.Is(err, indicator.ErrInvalidParams):
				writeError(ctx, stdCtx, "Invalid indicator parameters", perrors.NewErrValidation("Invalid indicator parameters", err))
			case errors.Is(err, indicator.ErrUpstreamUnavailable):
				indicatorQueries.WithLabelValues("upstream_error").Inc()
				writeError(ctx, stdCtx, "Warehouse unavailable", perrors.NewErrUpstreamUnavailable("Warehouse unavailable", err))
			default:
				writeError(ctx, stdCtx, "Failed to execute indicator query", perrors.NewErrInternalServerError("Failed to execute indicator query", err))
			}
			return
		}

		indicatorQueries.WithLabelValues("ok").Inc()
		writeOK(ctx, stdCtx, "Indicator query executed successfully", result)

		svc.Audit.Record(auditEntry(ctx, c, start, audit.ActionIndicatorQuery, "indicator:"+code, audit.Details{
			"module":     def.Module,
			"from_cache": result.FromCache,
			"warnings":   len(result.Warnings),
		}))
	})
}
