package notification

import (
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Channel is a delivery mechanism for completion notices.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelWebhook Channel = "webhook"
)

func (c Channel) IsValid() bool {
	return c == ChannelEmail || c == ChannelWebhook
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// NotificationPreference is one user's opt-in for a channel. At most one
// active preference exists per tenant, user and channel.
type NotificationPreference struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TenantID  uuid.UUID `json:"tenant_id" db:"tenant_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Channel   Channel   `json:"channel" db:"channel"`
	Endpoint  string    `json:"endpoint" db:"endpoint"`
	Enabled   bool      `json:"enabled" db:"enabled"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UpsertPreferenceRequest creates or replaces the preference for a channel.
type UpsertPreferenceRequest struct {
	Channel  Channel `json:"channel"`
	Endpoint string  `json:"endpoint"`
	Enabled  bool    `json:"enabled"`
}

func (r *UpsertPreferenceRequest) Validate() error {
	if !r.Channel.IsValid() {
		return fmt.Errorf("channel must be one of: email, webhook")
	}
	if r.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}

	switch r.Channel {
	case ChannelEmail:
		if !emailPattern.MatchString(r.Endpoint) {
			return fmt.Errorf("endpoint is not a valid email address")
		}
	case ChannelWebhook:
		u, err := url.Parse(r.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("endpoint is not a valid http(s) URL")
		}
	}

	return nil
}

// Completion is the payload delivered when an analysis job reaches a terminal
// state.
type Completion struct {
	AnalysisID uuid.UUID `json:"analysis_id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	UserID     uuid.UUID `json:"user_id"`
	Method     string    `json:"method"`
	Status     string    `json:"status"`
}
