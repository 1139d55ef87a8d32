package controllers

import (
	"errors"
	"time"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/caisdata/cais/internal/perrors"
	"github.com/caisdata/cais/internal/services"
	"github.com/caisdata/cais/internal/services/analysis"
	"github.com/caisdata/cais/internal/services/audit"
	"github.com/caisdata/cais/internal/services/permission"
)

func RegisterAnalysisRoutes(r *router.Router, svc *services.Services) {
	// Submit analysis
	r.POST("/api/v1/analyses", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		start := time.Now()

		c, err := claims(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Authentication required", perrors.New(perrors.ErrCodeUnauthorized, "Authentication required", err))
			return
		}

		var body analysis.SubmitRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		job, err := svc.Analysis.Submit(stdCtx, c.TenantID, c.UserID, c.Roles, &body)
		if err != nil {
			switch {
			case errors.Is(err, analysis.ErrUnknownMethod):
				analysisSubmissions.WithLabelValues("invalid").Inc()
				writeError(ctx, stdCtx, "Unknown analysis method", perrors.NewErrValidation("Unknown analysis method", err))
			case errors.Is(err, analysis.ErrMethodNotAllowed):
				analysisSubmissions.WithLabelValues("denied").Inc()
				writeError(ctx, stdCtx, "Analysis method not enabled for tenant", perrors.NewErrAccessDenied("Analysis method not enabled for tenant", err))
			case errors.Is(err, permission.ErrAccessDenied):
				analysisSubmissions.WithLabelValues("denied").Inc()
				writeError(ctx, stdCtx, "Access denied", perrors.NewErrAccessDenied("Access denied", err))
				svc.Audit.Record(auditEntry(ctx, c, start, audit.ActionAccessDenied, "analysis", audit.Details{
					"method": string(body.Method),
					"module": body.Module,
					"action": string(permission.ActionExecute),
				}))
			default:
				analysisSubmissions.WithLabelValues("error").Inc()
				writeError(ctx, stdCtx, "Failed to submit analysis", perrors.NewErrInternalServerError("Failed to submit analysis", err))
			}
			return
		}

		analysisSubmissions.WithLabelValues("ok").Inc()
		writeOK(ctx, stdCtx, "Analysis submitted successfully", job)

		svc.Audit.Record(auditEntry(ctx, c, start, audit.ActionAnalysisSubmit, "analysis:"+job.ID.String(), audit.Details{
			"method": string(job.Method),
			"module": job.Module,
		}))
	})

	// Poll one analysis
	r.GET("/api/v1/analyses/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		c, err := claims(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Authentication required", perrors.New(perrors.ErrCodeUnauthorized, "Authentication required", err))
			return
		}

		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid analysis id", perrors.NewErrInvalidRequest("Invalid analysis id", err))
			return
		}

		job, err := svc.Analysis.Get(stdCtx, c.TenantID, id)
		if err != nil {
			writeError(ctx, stdCtx, "Analysis not found", perrors.NewErrNotFound("Analysis not found", err))
			return
		}

		writeOK(ctx, stdCtx, "Analysis retrieved successfully", job)
	})

	// List recent analyses
	r.GET("/api/v1/analyses", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		c, err := claims(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Authentication required", perrors.New(perrors.ErrCodeUnauthorized, "Authentication required", err))
			return
		}

		jobs, err := svc.Analysis.List(stdCtx, c.TenantID, intQuery(ctx, "limit", 50))
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list analyses", perrors.NewErrInternalServerError("Failed to list analyses", err))
			return
		}

		writeOK(ctx, stdCtx, "Analyses retrieved successfully", jobs)
	})
}
