package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"dominoboard/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const botToken = "123456:TEST-token"

type adminSet map[int64]bool

func (a adminSet) IsAdmin(id int64) bool { return a[id] }

// signInitData builds init data the way Telegram signs it for Mini Apps.
func signInitData(t *testing.T, token string, userJSON string, authDate time.Time) string {
	t.Helper()
	values := map[string]string{
		"auth_date": strconv.FormatInt(authDate.Unix(), 10),
		"query_id":  "AAHdF6IQAAAAAN0XohDhrOrc",
		"user":      userJSON,
	}
	pairs := make([]string, 0, len(values))
	for k, v := range values {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(token))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))

	q := url.Values{}
	for k, v := range values {
		q.Set(k, v)
	}
	q.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return q.Encode()
}

func runAuth(t *testing.T, cfg AuthConfig, req *http.Request) (*httptest.ResponseRecorder, *Identity) {
	t.Helper()
	var got *Identity
	h := AuthMiddleware(cfg, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, got
}

func TestAuthMiddlewareInitData(t *testing.T) {
	raw := signInitData(t, botToken, `{"id":42,"first_name":"Ann","username":"ace"}`, time.Now())
	cfg := AuthConfig{BotToken: botToken, InitDataTTL: time.Hour, Admins: adminSet{42: true}}

	t.Run("tma authorization header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/user-management/profile", nil)
		req.Header.Set("Authorization", "tma "+raw)
		rec, id := runAuth(t, cfg, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.NotNil(t, id)
		assert.Equal(t, int64(42), id.TelegramID)
		assert.Equal(t, "ace", id.Profile.Username)
		assert.True(t, id.IsAdmin)
		assert.False(t, id.IsService)
	})

	t.Run("custom header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Telegram-Init-Data", raw)
		rec, id := runAuth(t, AuthConfig{BotToken: botToken}, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.False(t, id.IsAdmin)
	})

	t.Run("query parameter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?init_data="+url.QueryEscape(raw), nil)
		rec, _ := runAuth(t, cfg, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("wrong bot token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "tma "+raw)
		rec, _ := runAuth(t, AuthConfig{BotToken: "999:other"}, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired", func(t *testing.T) {
		old := signInitData(t, botToken, `{"id":42,"first_name":"Ann"}`, time.Now().Add(-48*time.Hour))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "tma "+old)
		rec, _ := runAuth(t, cfg, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing", func(t *testing.T) {
		rec, _ := runAuth(t, cfg, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"missing init data"}`, rec.Body.String())
	})
}

func TestAuthMiddlewareServiceRole(t *testing.T) {
	cfg := AuthConfig{BotToken: botToken, JWTSecret: "jwt-secret"}
	sign := func(role string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, util.Claims{
			Role:             role,
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		}).SignedString([]byte("jwt-secret"))
		require.NoError(t, err)
		return s
	}

	req := httptest.NewRequest(http.MethodPost, "/stats-management/stats", nil)
	req.Header.Set("Authorization", "Bearer "+sign(util.RoleServiceRole))
	rec, id := runAuth(t, cfg, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, id.IsAdmin)
	assert.True(t, id.IsService)

	req = httptest.NewRequest(http.MethodPost, "/stats-management/stats", nil)
	req.Header.Set("Authorization", "Bearer "+sign("authenticated"))
	rec, _ = runAuth(t, cfg, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	h := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), &Identity{}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := &Identity{}
	admin.IsAdmin = true
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), admin))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
