package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

// EmailProvider sends one completion email. The default provider only logs;
// wiring a real transport is a deployment concern.
type EmailProvider interface {
	Send(ctx context.Context, to string, completion *Completion) error
}

// LogEmailProvider records the email that would have been sent.
type LogEmailProvider struct {
	logger *slog.Logger
}

func NewLogEmailProvider() *LogEmailProvider {
	return &LogEmailProvider{logger: slog.Default().With("provider", "email")}
}

func (p *LogEmailProvider) Send(ctx context.Context, to string, completion *Completion) error {
	p.logger.Info("analysis completion email",
		slog.String("to", to),
		slog.String("analysis_id", completion.AnalysisID.String()),
		slog.String("status", completion.Status))
	return nil
}

// preferenceSource is the repo surface the dispatcher needs; narrowed for
// tests.
type preferenceSource interface {
	ListEnabled(ctx context.Context, tenantID, userID uuid.UUID) ([]NotificationPreference, error)
}

// NotificationService delivers completion notices and manages preferences.
// Delivery is best effort: a failed webhook or email never changes the job
// outcome and is not retried.
type NotificationService struct {
	repo   *NotificationRepo
	source preferenceSource
	email  EmailProvider
	client *fasthttp.Client
	logger *slog.Logger
}

func NewNotificationService(repo *NotificationRepo, email EmailProvider) *NotificationService {
	return &NotificationService{
		repo:   repo,
		source: repo,
		email:  email,
		client: &fasthttp.Client{
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		logger: slog.Default().With("service", "notification"),
	}
}

// newServiceWithSource wires an alternate preference source, used by tests.
func newServiceWithSource(source preferenceSource, email EmailProvider) *NotificationService {
	return &NotificationService{
		source: source,
		email:  email,
		client: &fasthttp.Client{
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
		logger: slog.Default().With("service", "notification"),
	}
}

// NotifyCompletion fans the completion out to every enabled preference of the
// submitting user. Callers invoke it exactly once per terminal transition;
// errors here are logged and swallowed.
func (s *NotificationService) NotifyCompletion(ctx context.Context, completion *Completion) {
	prefs, err := s.source.ListEnabled(ctx, completion.TenantID, completion.UserID)
	if err != nil {
		s.logger.Error("failed to load notification preferences",
			slog.String("analysis_id", completion.AnalysisID.String()), slog.Any("error", err))
		return
	}

	for _, pref := range prefs {
		var deliverErr error
		switch pref.Channel {
		case ChannelWebhook:
			deliverErr = s.postWebhook(pref.Endpoint, completion)
		case ChannelEmail:
			deliverErr = s.email.Send(ctx, pref.Endpoint, completion)
		}

		if deliverErr != nil {
			s.logger.Warn("notification delivery failed",
				slog.String("analysis_id", completion.AnalysisID.String()),
				slog.String("channel", string(pref.Channel)),
				slog.Any("error", deliverErr))
		}
	}
}

func (s *NotificationService) postWebhook(endpoint string, completion *Completion) error {
	body, err := json.Marshal(completion)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := s.client.DoTimeout(req, resp, 10*time.Second); err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	if code := resp.StatusCode(); code >= 300 {
		return fmt.Errorf("webhook returned status %d", code)
	}

	return nil
}

// UpsertPreference validates and stores a preference.
func (s *NotificationService) UpsertPreference(ctx context.Context, tenantID, userID uuid.UUID, req *UpsertPreferenceRequest) (*NotificationPreference, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Upsert(ctx, tenantID, userID, req)
}

func (s *NotificationService) ListPreferences(ctx context.Context, tenantID, userID uuid.UUID) ([]NotificationPreference, error) {
	return s.repo.ListByUser(ctx, tenantID, userID)
}

func (s *NotificationService) DeletePreference(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.repo.Delete(ctx, tenantID, id)
}
