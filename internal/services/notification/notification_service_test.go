package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertRequestValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     UpsertPreferenceRequest
		wantErr bool
	}{
		{"valid email", UpsertPreferenceRequest{Channel: ChannelEmail, Endpoint: "analista@porto.gov.br", Enabled: true}, false},
		{"valid webhook", UpsertPreferenceRequest{Channel: ChannelWebhook, Endpoint: "https://hooks.example.com/analyses", Enabled: true}, false},
		{"bad channel", UpsertPreferenceRequest{Channel: "sms", Endpoint: "x"}, true},
		{"empty endpoint", UpsertPreferenceRequest{Channel: ChannelEmail, Endpoint: ""}, true},
		{"malformed email", UpsertPreferenceRequest{Channel: ChannelEmail, Endpoint: "not-an-email"}, true},
		{"webhook wrong scheme", UpsertPreferenceRequest{Channel: ChannelWebhook, Endpoint: "ftp://example.com"}, true},
		{"webhook no host", UpsertPreferenceRequest{Channel: ChannelWebhook, Endpoint: "https://"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

type stubPrefs struct {
	prefs []NotificationPreference
	err   error
}

func (s *stubPrefs) ListEnabled(ctx context.Context, tenantID, userID uuid.UUID) ([]NotificationPreference, error) {
	return s.prefs, s.err
}

type recordingEmail struct {
	sent []string
	err  error
}

func (r *recordingEmail) Send(ctx context.Context, to string, completion *Completion) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, to)
	return nil
}

func TestNotifyCompletionDeliversToEnabledChannels(t *testing.T) {
	email := &recordingEmail{}
	svc := newServiceWithSource(&stubPrefs{prefs: []NotificationPreference{
		{Channel: ChannelEmail, Endpoint: "analista@porto.gov.br", Enabled: true},
	}}, email)

	svc.NotifyCompletion(context.Background(), &Completion{
		AnalysisID: uuid.New(),
		Method:     "did",
		Status:     "succeeded",
	})

	require.Len(t, email.sent, 1)
	assert.Equal(t, "analista@porto.gov.br", email.sent[0])
}

func TestNotifyCompletionSwallowsDeliveryErrors(t *testing.T) {
	email := &recordingEmail{err: errors.New("smtp down")}
	svc := newServiceWithSource(&stubPrefs{prefs: []NotificationPreference{
		{Channel: ChannelEmail, Endpoint: "analista@porto.gov.br", Enabled: true},
		// Unreachable webhook endpoint; delivery must not panic or block.
		{Channel: ChannelWebhook, Endpoint: "http://127.0.0.1:1/hook", Enabled: true},
	}}, email)

	assert.NotPanics(t, func() {
		svc.NotifyCompletion(context.Background(), &Completion{AnalysisID: uuid.New(), Status: "failed"})
	})
}

func TestNotifyCompletionSwallowsSourceErrors(t *testing.T) {
	svc := newServiceWithSource(&stubPrefs{err: errors.New("db down")}, &recordingEmail{})

	assert.NotPanics(t, func() {
		svc.NotifyCompletion(context.Background(), &Completion{AnalysisID: uuid.New(), Status: "succeeded"})
	})
}
