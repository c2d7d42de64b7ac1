package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"google.golang.org/api/idtoken"
)

// PubSubAuthMiddleware validates the OIDC token of a Pub/Sub push request.
// It bypasses authentication if isLocalDev is true.
func PubSubAuthMiddleware(isLocalDev bool, audience, expectedEmail string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return pubSubAuth(isLocalDev, audience, expectedEmail, idtoken.Validate, logger)
}

type tokenValidator func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

func pubSubAuth(isLocalDev bool, audience, expectedEmail string, validate tokenValidator, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isLocalDev {
				logger.Debug().Msg("Skipping Pub/Sub authentication for local environment")
				next.ServeHTTP(w, r)
				return
			}
			if audience == "" || expectedEmail == "" {
				logger.Error().Msg("Pub/Sub auth configured without an audience or expected email; requests will be denied")
				writeError(w, http.StatusInternalServerError, "push authentication is not configured")
				return
			}

			scheme, token := splitAuthorization(r.Header.Get("Authorization"))
			if scheme != "bearer" || token == "" {
				logger.Warn().Msg("Missing or malformed Authorization header in Pub/Sub push request")
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			payload, err := validate(r.Context(), token, audience)
			if err != nil {
				logger.Error().Err(err).Msg("Failed to validate Pub/Sub JWT")
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			email, _ := payload.Claims["email"].(string)
			if email != expectedEmail {
				logger.Warn().
					Str("token_email", email).
					Str("expected_email", expectedEmail).
					Msg("Pub/Sub JWT email does not match expected service account")
				writeError(w, http.StatusForbidden, "token email does not match expected service account")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
