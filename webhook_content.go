package nationbuilder

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

// maxWebhookBody limits the size of an accepted webhook delivery.
const maxWebhookBody = 1 << 20

// WebhookContent is the body NationBuilder posts to a webhook URL.
type WebhookContent[T any] struct {
	NationSlug string `json:"nation_slug"`
	Payload    T      `json:"payload"`
	// Token is the secret configured for the webhook in the control panel.
	Token   string `json:"token"`
	Version int    `json:"version"`
}

// PersonWebhookPayload is delivered for person events.
type PersonWebhookPayload struct {
	Person Person `json:"person"`
}

// DonationWebhookPayload is delivered for donation events.
type DonationWebhookPayload struct {
	Donation Donation `json:"donation"`
}

// ParseWebhook reads a webhook delivery from r.
// If token is not empty, the delivery must carry the same token, otherwise
// [ErrWebhookToken] is returned.
func ParseWebhook[T any](r io.Reader, token string) (*WebhookContent[T], error) {
	var content WebhookContent[T]
	if err := json.NewDecoder(io.LimitReader(r, maxWebhookBody)).Decode(&content); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}

	if token != "" && subtle.ConstantTimeCompare([]byte(content.Token), []byte(token)) != 1 {
		return nil, ErrWebhookToken
	}

	return &content, nil
}

// WebhookHandler returns a handler receiving webhook deliveries and passing
// them to fn. A failing fn answers with 500, so NationBuilder retries the delivery.
func WebhookHandler[T any](
	token string,
	fn func(*http.Request, *WebhookContent[T]) error,
	logger zerolog.Logger,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		content, err := ParseWebhook[T](r.Body, token)
		switch {
		case errors.Is(err, ErrWebhookToken):
			logger.Warn().Str("remote", r.RemoteAddr).Msg("webhook with invalid token")
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		case err != nil:
			logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("invalid webhook")
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		if err := fn(r, content); err != nil {
			logger.Error().Err(err).Str("nation", content.NationSlug).Msg("handle webhook")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		logger.Debug().Str("nation", content.NationSlug).Int("version", content.Version).Msg("webhook handled")
		w.WriteHeader(http.StatusOK)
	})
}
