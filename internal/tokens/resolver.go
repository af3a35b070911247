// Package tokens resolves a user's registered push-delivery tokens from the
// token directory service.
package tokens

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Resolver struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

func NewResolver(baseURL string, timeout time.Duration, logger zerolog.Logger) *Resolver {
	return &Resolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "TokenResolver").Logger(),
	}
}

type tokenRecord struct {
	ExpoPushToken string `json:"expoPushToken"`
}

type tokenResponse struct {
	Items []tokenRecord `json:"items"`
}

// Resolve returns the push tokens registered for a user, skipping records
// without one. Every failure mode — transport, non-success status, bad body —
// is logged and collapses to an empty result; the caller never sees an error.
func (r *Resolver) Resolve(ctx context.Context, userID string) []string {
	endpoint := fmt.Sprintf("%s/api/notifications/token/%s", r.baseURL, url.PathEscape(userID))
	log := r.logger.With().Str("user", userID).Logger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		log.Error().Err(err).Msg("Error building token directory request")
		return nil
	}

	resp, err := r.client.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("Token directory request failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Error().Int("status", resp.StatusCode).Msg("Token directory returned non-success status")
		return nil
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Error().Err(err).Msg("Error decoding token directory response")
		return nil
	}

	resolved := make([]string, 0, len(body.Items))
	for _, item := range body.Items {
		if item.ExpoPushToken != "" {
			resolved = append(resolved, item.ExpoPushToken)
		}
	}
	return resolved
}
