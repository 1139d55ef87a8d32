package controllers

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/caisdata/cais/internal/perrors"
	"github.com/caisdata/cais/internal/services"
	"github.com/caisdata/cais/internal/services/notification"
)

func RegisterPreferenceRoutes(r *router.Router, svc *services.Services) {
	// List own notification preferences
	r.GET("/api/v1/notification-preferences", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		c, err := claims(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Authentication required", perrors.New(perrors.ErrCodeUnauthorized, "Authentication required", err))
			return
		}

		prefs, err := svc.Notification.ListPreferences(stdCtx, c.TenantID, c.UserID)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list preferences", perrors.NewErrInternalServerError("Failed to list preferences", err))
			return
		}

		writeOK(ctx, stdCtx, "Preferences retrieved successfully", prefs)
	})

	// Create or replace a preference for a channel
	r.PUT("/api/v1/notification-preferences", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		c, err := claims(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Authentication required", perrors.New(perrors.ErrCodeUnauthorized, "Authentication required", err))
			return
		}

		var body notification.UpsertPreferenceRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		pref, err := svc.Notification.UpsertPreference(stdCtx, c.TenantID, c.UserID, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to save preference", perrors.NewErrValidation("Failed to save preference", err))
			return
		}

		writeOK(ctx, stdCtx, "Preference saved successfully", pref)
	})

	// Delete a preference
	r.DELETE("/api/v1/notification-preferences/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		c, err := claims(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Authentication required", perrors.New(perrors.ErrCodeUnauthorized, "Authentication required", err))
			return
		}

		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid preference id", perrors.NewErrInvalidRequest("Invalid preference id", err))
			return
		}

		if err := svc.Notification.DeletePreference(stdCtx, c.TenantID, id); err != nil {
			writeError(ctx, stdCtx, "Failed to delete preference", perrors.NewErrNotFound("Failed to delete preference", err))
			return
		}

		writeOK(ctx, stdCtx, "Preference deleted successfully", nil)
	})
}
