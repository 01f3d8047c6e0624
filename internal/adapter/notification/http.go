package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"
)

// HTTPNotifier implements Notifier against the notification service HTTP API.
type HTTPNotifier struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

type userMessage struct {
	UserID  int64  `json:"user_id"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type adminMessage struct {
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
}

// NewHTTPNotifier creates an HTTP notifier with default timeout.
func NewHTTPNotifier(baseURL string, logger *slog.Logger) (*HTTPNotifier, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse notification url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("notification url must be absolute")
	}
	return &HTTPNotifier{
		baseURL: parsed,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// NotifyUser posts a notification addressed to one buyer.
func (n *HTTPNotifier) NotifyUser(ctx context.Context, userID int64, subject, message string) error {
	return n.post(ctx, "/api/notifications/user", userMessage{UserID: userID, Subject: subject, Message: message})
}

// NotifyAdmins posts an alert addressed to the admin channel.
func (n *HTTPNotifier) NotifyAdmins(ctx context.Context, subject, message string, priority Priority) error {
	return n.post(ctx, "/api/notifications/admin", adminMessage{Subject: subject, Message: message, Priority: string(priority)})
}

func (n *HTTPNotifier) post(ctx context.Context, endpointPath string, payload any) error {
	endpoint := *n.baseURL
	endpoint.Path = path.Join(endpoint.Path, endpointPath)

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		respBody, _ := io.ReadAll(resp.Body)
		n.logger.Error("notification request failed",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(respBody)),
		)
		return fmt.Errorf("notification error: %s", resp.Status)
	}
	return nil
}
