package middleware

import (
	"net/http"
	"strings"
	"time"

	"dominoboard/internal/model"
	"dominoboard/internal/util"

	"github.com/rs/zerolog"
	initdata "github.com/telegram-mini-apps/init-data-golang"
)

// AdminChecker answers whether a Telegram user is an administrator.
type AdminChecker interface {
	IsAdmin(telegramID int64) bool
}

type AuthConfig struct {
	BotToken    string
	InitDataTTL time.Duration
	// JWTSecret verifies Supabase service-role tokens. Empty disables them.
	JWTSecret string
	Admins    AdminChecker
}

// AuthMiddleware authenticates Telegram Mini App init data or a Supabase service-role JWT.
//
// Init data is read from "Authorization: tma <init-data>", the X-Telegram-Init-Data
// header or the init_data query parameter. "Authorization: Bearer <jwt>" is accepted
// only for the service_role role and grants admin rights.
func AuthMiddleware(cfg AuthConfig, logger zerolog.Logger) func(http.Handler) http.Handler {
	lg := logger.With().Str("middleware", "auth").Logger()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, credential := splitAuthorization(r.Header.Get("Authorization"))
			if scheme == "bearer" {
				id, ok := serviceIdentity(credential, cfg.JWTSecret, lg)
				if !ok {
					writeError(w, http.StatusUnauthorized, "invalid service token")
					return
				}
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
				return
			}

			raw := credential
			if scheme != "tma" {
				raw = r.Header.Get("X-Telegram-Init-Data")
			}
			if raw == "" {
				raw = r.URL.Query().Get("init_data")
			}
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "missing init data")
				return
			}
			if cfg.BotToken == "" {
				lg.Error().Msg("Init data validation is not configured")
				writeError(w, http.StatusInternalServerError, "init data validation is not configured")
				return
			}
			if err := initdata.Validate(raw, cfg.BotToken, cfg.InitDataTTL); err != nil {
				lg.Warn().Err(err).Msg("Invalid init data")
				writeError(w, http.StatusUnauthorized, "invalid init data")
				return
			}
			parsed, err := initdata.Parse(raw)
			if err != nil || parsed.User.ID == 0 {
				writeError(w, http.StatusUnauthorized, "init data has no user")
				return
			}

			id := &Identity{
				Actor: model.Actor{TelegramID: parsed.User.ID},
				Profile: model.TelegramProfile{
					TelegramID: parsed.User.ID,
					Username:   parsed.User.Username,
					FirstName:  parsed.User.FirstName,
					LastName:   parsed.User.LastName,
					PhotoURL:   parsed.User.PhotoURL,
				},
			}
			if cfg.Admins != nil {
				id.IsAdmin = cfg.Admins.IsAdmin(parsed.User.ID)
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func serviceIdentity(token, secret string, lg zerolog.Logger) (*Identity, bool) {
	claims, err := util.ValidateJWT(token, secret)
	if err != nil {
		lg.Warn().Err(err).Msg("Invalid service token")
		return nil, false
	}
	if claims.Role != util.RoleServiceRole {
		lg.Warn().Str("role", claims.Role).Msg("Bearer token is not a service-role token")
		return nil, false
	}
	return &Identity{Actor: model.Actor{IsAdmin: true, IsService: true}}, true
}

func splitAuthorization(header string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return strings.ToLower(parts[0]), strings.TrimSpace(parts[1])
}

// RequireAdmin rejects callers that are neither listed admins nor service-role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !id.IsAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
