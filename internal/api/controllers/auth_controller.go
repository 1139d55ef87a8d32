package controllers

import (
	"errors"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/caisdata/cais/internal/api/authenticator"
	"github.com/caisdata/cais/internal/perrors"
	"github.com/caisdata/cais/internal/services"
	"github.com/caisdata/cais/internal/services/user"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string     `json:"access_token"`
	User        *user.User `json:"user"`
}

func RegisterAuthRoutes(r *router.Router, svc *services.Services, auth *authenticator.Authenticator) {
	// Login
	r.POST("/api/v1/auth/login", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)

		var body loginRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		if body.Email == "" || body.Password == "" {
			writeError(ctx, stdCtx, "Email and password are required", perrors.NewErrInvalidRequest("Email and password are required", errors.New("missing credentials")))
			return
		}

		u, err := svc.User.Authenticate(stdCtx, body.Email, body.Password)
		if err != nil {
			writeError(ctx, stdCtx, "Invalid credentials", perrors.New(perrors.ErrCodeUnauthorized, "Invalid credentials", err))
			return
		}

		t, err := svc.Tenant.GetByID(stdCtx, u.TenantID)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to load tenant", perrors.NewErrInternalServerError("Failed to load tenant", err))
			return
		}
		if !t.Active {
			writeError(ctx, stdCtx, "Tenant is inactive", perrors.NewErrAccessDenied("Tenant is inactive", errors.New("inactive tenant")))
			return
		}

		token, err := auth.IssueAccessToken(u.TenantID, u.ID, u.Roles, t.Plan)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to issue token", perrors.NewErrInternalServerError("Failed to issue token", err))
			return
		}

		writeOK(ctx, stdCtx, "Login successful", loginResponse{AccessToken: token, User: u})
	})
}
