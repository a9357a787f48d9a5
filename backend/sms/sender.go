// Package sms delivers one-time codes to phones.
package sms

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Sender delivers message to phone. A nil error means the gateway accepted it.
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// LogSender is used when no gateway is configured, e.g. in development. The
// message carries the code, so it goes to Out (stdout when nil) and never
// through slog, whose records end up in log_entries.
type LogSender struct {
	Out io.Writer
}

func (s LogSender) Send(ctx context.Context, phone, message string) error {
	out := s.Out
	if out == nil {
		out = os.Stdout
	}
	if _, err := fmt.Fprintf(out, "sms to %s: %s\n", phone, message); err != nil {
		return fmt.Errorf("write sms: %w", err)
	}
	slog.InfoContext(ctx, "sms not sent: no gateway configured", "source", "sms", "phone", phone)
	return nil
}

// HTTPSender posts a form to an HTTP SMS gateway.
type HTTPSender struct {
	URL      string
	APIKey   string
	SenderID string
	Client   *http.Client
}

func NewHTTPSender(gatewayURL, apiKey, senderID string) *HTTPSender {
	return &HTTPSender{
		URL:      gatewayURL,
		APIKey:   apiKey,
		SenderID: senderID,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSender) Send(ctx context.Context, phone, message string) error {
	start := time.Now()

	form := url.Values{}
	form.Set("senderid", s.SenderID)
	form.Set("msgType", "text")
	form.Set("msg", message)
	form.Set("mobile", phone)
	form.Set("output", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s.APIKey != "" {
		req.Header.Set("apikey", s.APIKey)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		slog.ErrorContext(ctx, "sms gateway unreachable", "source", "sms", "phone", phone, "error", err.Error())
		return fmt.Errorf("sms gateway: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.ErrorContext(ctx, "sms gateway rejected message", "source", "sms", "phone", phone,
			"status", resp.StatusCode, "duration", time.Since(start).String(), "response", string(body))
		return fmt.Errorf("sms gateway status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	slog.InfoContext(ctx, "sms sent", "source", "sms", "phone", phone, "duration", time.Since(start).String())
	return nil
}

// CodeMessage is the text sent with a one-time code.
func CodeMessage(code string, ttl time.Duration) string {
	return fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(ttl.Minutes()))
}
