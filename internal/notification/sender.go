package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/reelhunter/recruiter/internal/backend"
	"github.com/reelhunter/recruiter/pkg/httpclient"
)

// Message is an HTML email to a single recipient.
type Message struct {
	To       string `json:"to" validate:"required,email"`
	Subject  string `json:"subject" validate:"required"`
	HTMLBody string `json:"html_body" validate:"required"`
}

// Sender delivers a message and returns the provider's message id.
type Sender interface {
	Name() string
	Send(ctx context.Context, from SenderConfig, msg Message) (string, error)
}

// DevSender logs messages instead of sending them.
type DevSender struct {
	logger *slog.Logger
}

// NewDevSender creates a DevSender.
func NewDevSender(logger *slog.Logger) *DevSender {
	return &DevSender{logger: logger}
}

// Name returns the name of this sender.
func (s *DevSender) Name() string { return "dev" }

// Send logs the message and returns a synthetic id.
func (s *DevSender) Send(ctx context.Context, from SenderConfig, msg Message) (string, error) {
	id := "dev-" + uuid.NewString()

	preview := previewBody(msg.HTMLBody)
	s.logger.InfoContext(ctx, "dev sender: email not sent",
		slog.String("message_id", id),
		slog.String("from", from.Header()),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body_preview", preview),
	)
	return id, nil
}

const previewRunes = 100

// previewBody shortens body to at most previewRunes characters, cutting only
// on a rune boundary.
func previewBody(body string) string {
	if utf8.RuneCountInString(body) <= previewRunes {
		return body
	}
	runes := 0
	for i := range body {
		if runes == previewRunes {
			return body[:i] + "..."
		}
		runes++
	}
	return body
}

// RelaySender posts messages to the hosted send-email function.
type RelaySender struct {
	doer     httpclient.Doer
	endpoint string
	anonKey  string
}

// NewRelaySender creates a RelaySender for the backend at baseURL.
func NewRelaySender(doer httpclient.Doer, baseURL, anonKey string) *RelaySender {
	return &RelaySender{
		doer:     doer,
		endpoint: strings.TrimRight(baseURL, "/") + "/functions/v1/send-email",
		anonKey:  anonKey,
	}
}

// Name returns the name of this sender.
func (s *RelaySender) Name() string { return "relay" }

type relayRequest struct {
	To      []string `json:"to"`
	From    string   `json:"from"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"replyTo,omitempty"`
}

type relayResponse struct {
	MessageID string `json:"messageId"`
}

// Send delivers msg through the relay.
func (s *RelaySender) Send(ctx context.Context, from SenderConfig, msg Message) (string, error) {
	body, err := json.Marshal(relayRequest{
		To:      []string{msg.To},
		From:    from.Header(),
		Subject: msg.Subject,
		HTML:    msg.HTMLBody,
		ReplyTo: from.ReplyTo,
	})
	if err != nil {
		return "", fmt.Errorf("marshal relay request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.anonKey)
	req.Header.Set("Authorization", "Bearer "+s.anonKey)

	resp, err := s.doer.Do(ctx, req)
	if err != nil {
		return "", backend.Classify("send email", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", backend.Classify("send email", httpclient.ParseResponseError(resp, "email-relay"))
	}

	var out relayResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", backend.Classify("send email", err)
	}
	return out.MessageID, nil
}
