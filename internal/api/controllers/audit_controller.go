package controllers

import (
	"errors"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/caisdata/cais/internal/perrors"
	"github.com/caisdata/cais/internal/services"
)

func RegisterAuditRoutes(r *router.Router, svc *services.Services) {
	// List recent audit entries for the tenant
	r.GET("/api/v1/audit", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		c, err := claims(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Authentication required", perrors.New(perrors.ErrCodeUnauthorized, "Authentication required", err))
			return
		}

		if !hasRole(c, adminRole) {
			writeError(ctx, stdCtx, "Admin role required", perrors.NewErrAccessDenied("Admin role required", errors.New("missing admin role")))
			return
		}

		entries, err := svc.Audit.List(stdCtx, c.TenantID, intQuery(ctx, "limit", 100))
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list audit entries", perrors.NewErrInternalServerError("Failed to list audit entries", err))
			return
		}

		writeOK(ctx, stdCtx, "Audit entries retrieved successfully", entries)
	})
}
