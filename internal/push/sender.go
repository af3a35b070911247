package push

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const (
	maxAttempts  = 5
	initialDelay = 1000 * time.Millisecond
	pushTitle    = "New message"
)

// Sender delivers one push notification per call. Rate-limited attempts are
// retried with doubling delays (1s, 2s, 4s, 8s) up to five attempts total;
// any other failure is terminal on the spot. Delivery is best-effort: every
// outcome is absorbed here and only logged, the caller never learns of it.
type Sender struct {
	api    API
	logger zerolog.Logger

	// timer overrides backoff's wall-clock timer in tests.
	timer backoff.Timer
}

func NewSender(api API, logger zerolog.Logger) *Sender {
	return &Sender{
		api:    api,
		logger: logger.With().Str("component", "PushSender").Logger(),
	}
}

// Send pushes body to one destination token. An invalid token is a no-op,
// not an error.
func (s *Sender) Send(ctx context.Context, token, body string) {
	log := s.logger.With().Str("token", token).Logger()

	if !IsPushToken(token) {
		log.Warn().Msg("Not a valid push token, skipping")
		return
	}

	msg := Message{To: token, Title: pushTitle, Body: body}

	attempts := 0
	operation := func() error {
		attempts++
		err := s.api.SendPush(ctx, msg)
		if err == nil {
			return nil
		}
		if !IsRateLimited(err) {
			// Terminal: only rate limiting is worth waiting out.
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialDelay
	policy.RandomizationFactor = 0
	policy.Multiplier = 2
	policy.MaxInterval = 8 * time.Second
	policy.MaxElapsedTime = 0

	err := backoff.RetryNotifyWithTimer(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, maxAttempts-1), ctx),
		nil,
		s.timer,
	)
	if err != nil {
		log.Error().Err(err).Int("attempts", attempts).Msg("Push delivery failed")
		return
	}
	log.Info().Int("attempts", attempts).Msg("Push delivered")
}
