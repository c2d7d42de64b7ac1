package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"dominoboard/internal/model"
)

type contextKey string

const UserContextKey = contextKey("user")

// Identity is what the auth middleware learned about the caller.
type Identity struct {
	model.Actor
	Profile model.TelegramProfile
}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, UserContextKey, id)
}

func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(UserContextKey).(*Identity)
	return id, ok && id != nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
