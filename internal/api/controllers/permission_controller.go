package controllers

import (
	"errors"
	"time"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/caisdata/cais/internal/perrors"
	"github.com/caisdata/cais/internal/services"
	"github.com/caisdata/cais/internal/services/audit"
	"github.com/caisdata/cais/internal/services/permission"
)

// Grant management is restricted to the admin role rather than the grant
// matrix itself, so a tenant can never lock its own administrators out.
const adminRole = "admin"

func RegisterPermissionRoutes(r *router.Router, svc *services.Services) {
	// List grants
	r.GET("/api/v1/permissions", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		c, err := claims(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Authentication required", perrors.New(perrors.ErrCodeUnauthorized, "Authentication required", err))
			return
		}

		grants, err := svc.Permission.ListGrants(stdCtx, c.TenantID)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list grants", perrors.NewErrInternalServerError("Failed to list grants", err))
			return
		}

		writeOK(ctx, stdCtx, "Grants retrieved successfully", grants)
	})

	// Create grant
	r.POST("/api/v1/permissions", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		start := time.Now()

		c, err := claims(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Authentication required", perrors.New(perrors.ErrCodeUnauthorized, "Authentication required", err))
			return
		}

		if !hasRole(c, adminRole) {
			writeError(ctx, stdCtx, "Admin role required", perrors.NewErrAccessDenied("Admin role required", errors.New("missing admin role")))
			return
		}

		var body permission.CreateGrantRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		grant, err := svc.Permission.CreateGrant(stdCtx, c.TenantID, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to create grant", perrors.NewErrInvalidRequest("Failed to create grant", err))
			return
		}

		writeOK(ctx, stdCtx, "Grant created successfully", grant)

		svc.Audit.Record(auditEntry(ctx, c, start, audit.ActionGrantChange, "permission:"+grant.ID.String(), audit.Details{
			"op":     "create",
			"role":   grant.Role,
			"module": grant.Module,
			"action": string(grant.Action),
		}))
	})

	// Delete grant
	r.DELETE("/api/v1/permissions/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		start := time.Now()

		c, err := claims(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Authentication required", perrors.New(perrors.ErrCodeUnauthorized, "Authentication required", err))
			return
		}

		if !hasRole(c, adminRole) {
			writeError(ctx, stdCtx, "Admin role required", perrors.NewErrAccessDenied("Admin role required", errors.New("missing admin role")))
			return
		}

		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid grant id", perrors.NewErrInvalidRequest("Invalid grant id", err))
			return
		}

		if err := svc.Permission.DeleteGrant(stdCtx, c.TenantID, id); err != nil {
			writeError(ctx, stdCtx, "Failed to delete grant", perrors.NewErrNotFound("Failed to delete grant", err))
			return
		}

		writeOK(ctx, stdCtx, "Grant deleted successfully", nil)

		svc.Audit.Record(auditEntry(ctx, c, start, audit.ActionGrantChange, "permission:"+id.String(), audit.Details{
			"op": "delete",
		}))
	})
}
