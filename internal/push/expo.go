// Package push delivers best-effort push notifications through the Expo
// push API, retrying rate-limited attempts with exponential backoff.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultAPIURL is Expo's production push endpoint.
const DefaultAPIURL = "https://exp.host/--/api/v2/push/send"

// Message is one element of an Expo push batch.
type Message struct {
	To    string `json:"to"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// APIError is a non-2xx response from the push provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("push api: status %d: %s", e.StatusCode, e.Body)
}

// IsRateLimited reports whether err is the provider telling us to back off.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// IsPushToken reports whether token has the Expo push token shape. Anything
// else is rejected before going near the network.
func IsPushToken(token string) bool {
	if !strings.HasSuffix(token, "]") {
		return false
	}
	return strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken[")
}

// API is the delivery call the sender retries.
type API interface {
	SendPush(ctx context.Context, msg Message) error
}

// Client talks to the Expo push HTTP API.
type Client struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

func NewClient(apiURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		url:    apiURL,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "ExpoClient").Logger(),
	}
}

type ticket struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

type pushResponse struct {
	Data []ticket `json:"data"`
}

// SendPush delivers a single-element batch. Non-2xx statuses come back as
// *APIError so callers can inspect the status code.
func (c *Client) SendPush(ctx context.Context, msg Message) error {
	payload, err := json.Marshal([]Message{msg})
	if err != nil {
		return fmt.Errorf("marshal push batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("push api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode push api response: %w", err)
	}
	if len(out.Data) > 0 {
		c.logger.Debug().Str("ticket", out.Data[0].ID).Str("status", out.Data[0].Status).Msg("Push accepted")
	}
	return nil
}
