package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rankpay/pkg/email"
	"github.com/dmitrymomot/rankpay/pkg/webhook"
	"github.com/dmitrymomot/rankpay/svc/notify"
)

func sampleNotification() notify.Notification {
	return notify.Notification{
		ID:           uuid.NewString(),
		Type:         notify.TypeSubscriptionConfirmed,
		ProviderID:   uuid.New(),
		Amount:       20,
		TotalPoints:  25,
		Email:        "owner@example.com",
		BacklinkHome: true,
		Timestamp:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestWebhookNotifier(t *testing.T) {
	t.Parallel()

	t.Run("delivers signed payload", func(t *testing.T) {
		t.Parallel()

		const secret = "whsec_test"
		var got notify.Notification
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			sig, err := webhook.SignatureFromHeader(r.Header)
			if assert.NoError(t, err) {
				assert.NoError(t, webhook.VerifySignature(secret, body, sig, time.Minute))
			}
			assert.Equal(t, "subscription_confirmed", r.Header.Get("X-Notification-Type"))
			assert.NoError(t, json.Unmarshal(body, &got))
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		n, err := notify.NewWebhookNotifier(notify.Config{
			WebhookURL:     srv.URL,
			WebhookSecret:  secret,
			WebhookTimeout: time.Second,
		})
		require.NoError(t, err)

		msg := sampleNotification()
		require.NoError(t, n.Notify(context.Background(), msg))
		assert.Equal(t, msg.ProviderID, got.ProviderID)
		assert.Equal(t, int64(25), got.TotalPoints)
		assert.True(t, got.BacklinkHome)
	})

	t.Run("permanent failure is not retried", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		n, err := notify.NewWebhookNotifier(notify.Config{WebhookURL: srv.URL, WebhookRetries: 3, WebhookTimeout: time.Second})
		require.NoError(t, err)

		err = n.Notify(context.Background(), sampleNotification())
		assert.ErrorIs(t, err, notify.ErrDeliveryFailed)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("requires url", func(t *testing.T) {
		t.Parallel()

		_, err := notify.NewWebhookNotifier(notify.Config{})
		assert.ErrorIs(t, err, notify.ErrMissingURL)
	})
}

type mockEmailSender struct {
	mock.Mock
}

func (m *mockEmailSender) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	return m.Called(ctx, params).Error(0)
}

func TestEmailNotifier(t *testing.T) {
	t.Parallel()

	t.Run("renders amount and options", func(t *testing.T) {
		t.Parallel()

		sender := &mockEmailSender{}
		sender.On("SendEmail", mock.Anything, mock.MatchedBy(func(p email.SendEmailParams) bool {
			return p.SendTo == "owner@example.com" &&
				p.Subject == "Your payment was confirmed" &&
				p.Tag == "subscription_confirmed"
		})).Return(nil).Once()

		n, err := notify.NewEmailNotifier(sender, notify.Config{Currency: "EUR", Language: "en"})
		require.NoError(t, err)

		require.NoError(t, n.Notify(context.Background(), sampleNotification()))
		sender.AssertExpectations(t)

		params := sender.Calls[0].Arguments.Get(1).(email.SendEmailParams)
		assert.Contains(t, params.BodyHTML, "Backlink on home page")
		assert.Contains(t, params.BodyHTML, "25")
		assert.Contains(t, n.FormatAmount(20), "20")
	})

	t.Run("missing recipient", func(t *testing.T) {
		t.Parallel()

		n, err := notify.NewEmailNotifier(&mockEmailSender{}, notify.Config{Currency: "EUR", Language: "en"})
		require.NoError(t, err)

		msg := sampleNotification()
		msg.Email = ""
		assert.ErrorIs(t, n.Notify(context.Background(), msg), notify.ErrMissingEmail)
	})

	t.Run("sender failure", func(t *testing.T) {
		t.Parallel()

		sender := &mockEmailSender{}
		sender.On("SendEmail", mock.Anything, mock.Anything).Return(email.ErrFailedToSendEmail)

		n, err := notify.NewEmailNotifier(sender, notify.Config{Currency: "EUR", Language: "en"})
		require.NoError(t, err)

		err = n.Notify(context.Background(), sampleNotification())
		assert.ErrorIs(t, err, notify.ErrDeliveryFailed)
		assert.ErrorIs(t, err, email.ErrFailedToSendEmail)
	})

	t.Run("invalid currency", func(t *testing.T) {
		t.Parallel()

		_, err := notify.NewEmailNotifier(&mockEmailSender{}, notify.Config{Currency: "??"})
		assert.Error(t, err)
	})
}

func TestMulti(t *testing.T) {
	t.Parallel()

	errA := errors.New("a failed")
	var reached bool
	m := notify.Multi{
		notify.NotifierFunc(func(context.Context, notify.Notification) error { return errA }),
		nil,
		notify.NotifierFunc(func(context.Context, notify.Notification) error { reached = true; return nil }),
		notify.Nop{},
	}

	err := m.Notify(context.Background(), sampleNotification())
	assert.ErrorIs(t, err, errA)
	assert.True(t, reached)
}
