package controllers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/caisdata/cais/internal/api/authenticator"
	"github.com/caisdata/cais/internal/api/response"
	"github.com/caisdata/cais/internal/services/audit"
)

// requestContext returns a baseline context for handlers. fasthttp does not provide
// a standard context, so we start from Background for downstream calls.
func requestContext(_ *fasthttp.RequestCtx) context.Context {
	return context.Background()
}

func parseBody(ctx *fasthttp.RequestCtx, target any) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return errors.New("request body is empty")
	}

	return json.Unmarshal(body, target)
}

func writeError(ctx *fasthttp.RequestCtx, stdCtx context.Context, message string, err error) {
	response.NewResponse[any](stdCtx, message, nil).WithError(err).Write(ctx)
}

func writeOK(ctx *fasthttp.RequestCtx, stdCtx context.Context, message string, data any) {
	response.NewResponse(stdCtx, message, data).Write(ctx)
}

func pathParam(ctx *fasthttp.RequestCtx, key string) (string, error) {
	val := ctx.UserValue(key)
	if val == nil {
		return "", fmt.Errorf("%s is required", key)
	}

	return fmt.Sprint(val), nil
}

func pathParamUUID(ctx *fasthttp.RequestCtx, key string) (uuid.UUID, error) {
	val, err := pathParam(ctx, key)
	if err != nil {
		return uuid.Nil, err
	}

	return uuid.Parse(val)
}

func intQuery(ctx *fasthttp.RequestCtx, key string, defaultValue int) int {
	raw := ctx.QueryArgs().Peek(key)
	if len(raw) == 0 {
		return defaultValue
	}

	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return defaultValue
	}
	return n
}

// claims returns the authenticated identity stored by the auth middleware.
func claims(ctx *fasthttp.RequestCtx) (*authenticator.Claims, error) {
	val, ok := ctx.UserValue("userClaims").(*authenticator.Claims)
	if !ok || val == nil {
		return nil, errors.New("missing authentication claims")
	}

	return val, nil
}

// auditEntry snapshots the request outcome for the audit trail. Called after
// the response is written so status code and byte count reflect what the
// caller actually received.
func auditEntry(ctx *fasthttp.RequestCtx, c *authenticator.Claims, start time.Time, action, resource string, details audit.Details) *audit.AuditEntry {
	entry := &audit.AuditEntry{
		TenantID:       c.TenantID,
		Action:         action,
		Resource:       resource,
		StatusCode:     ctx.Response.StatusCode(),
		DurationMs:     time.Since(start).Milliseconds(),
		BytesProcessed: int64(len(ctx.Response.Body())),
		IP:             ctx.RemoteIP().String(),
		Details:        details,
	}
	if c.UserID != uuid.Nil {
		userID := c.UserID
		entry.UserID = &userID
	}
	return entry
}

// hasRole reports whether the authenticated user carries a role label.
func hasRole(c *authenticator.Claims, role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
