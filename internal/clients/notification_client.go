package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/middleware"
)

// PasswordResetEmail is the payload sent to the notification service.
type PasswordResetEmail struct {
	To       string            `json:"to"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data"`
}

// NotificationSender delivers transactional emails.
type NotificationSender interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// HTTPNotificationClient implements NotificationSender using HTTP.
type HTTPNotificationClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.LoggerV2
}

// NewHTTPNotificationClient creates a new HTTP-based notification client.
func NewHTTPNotificationClient(cfg config.ServiceConfig, logger *logging.LoggerV2) *HTTPNotificationClient {
	return &HTTPNotificationClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// SendPasswordReset emails a reset token to the account owner.
func (c *HTTPNotificationClient) SendPasswordReset(ctx context.Context, email, token string) error {
	c.logger.Debug("Sending password reset email", logging.Fields{"to": email})

	body, err := json.Marshal(&PasswordResetEmail{
		To:       email,
		Template: "password_reset",
		Data:     map[string]string{"token": token},
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/v2/notifications/email", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	c.setHeaders(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to send password reset email", logging.Fields{
			"to":    email,
			"error": err.Error(),
		})
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	c.logger.Info("Password reset email sent", logging.Fields{"to": email})
	return nil
}

func (c *HTTPNotificationClient) setHeaders(ctx context.Context, req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if requestID := middleware.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(middleware.HeaderRequestID, requestID)
	}
}

// LogNotificationSender logs reset tokens instead of sending them. It is
// used when no notification service is configured.
type LogNotificationSender struct {
	logger *logging.LoggerV2
}

func NewLogNotificationSender(logger *logging.LoggerV2) *LogNotificationSender {
	return &LogNotificationSender{logger: logger}
}

func (s *LogNotificationSender) SendPasswordReset(ctx context.Context, email, token string) error {
	s.logger.Info("Password reset requested", logging.Fields{"to": email, "token": token})
	return nil
}

// MockNotificationClient records sent resets for tests.
type MockNotificationClient struct {
	Resets map[string]string
	Err    error
}

func NewMockNotificationClient() *MockNotificationClient {
	return &MockNotificationClient{Resets: make(map[string]string)}
}

func (m *MockNotificationClient) SendPasswordReset(ctx context.Context, email, token string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Resets[email] = token
	return nil
}
