package route

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"npocal/src-server/access"
	"npocal/src-server/jwt"
	"npocal/src-server/model"
	"npocal/src-server/utils"
)

type PrincipalCtxKeyType string

const (
	PrincipalCtxKey     PrincipalCtxKeyType = "principal"
	SessionCookieName   string              = "session-token"
	authorizationHeader string              = "Authorization"
	bearerPrefix        string              = "Bearer "
)

// Resolves the caller into a principal and stashes it in the request
// context. No or invalid credentials resolve to the anonymous principal;
// whether anonymous is enough is decided downstream per operation. The
// role always comes from the users table, not from the token, so a role
// change applies on the next evaluation.
func AuthMiddleware(as *utils.AppState, next func(http.ResponseWriter, *http.Request)) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		token := func() string {
			if header := r.Header.Get(authorizationHeader); strings.HasPrefix(header, bearerPrefix) {
				return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
			}
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				return strings.TrimSpace(cookie.Value)
			}
			return ""
		}()
		if token == "" {
			next(w, r.WithContext(context.WithValue(r.Context(), PrincipalCtxKey, access.Anonymous())))
			return
		}

		payload, err := jwt.Decode(token, as.Config.GetJWTSecret())
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Invalid token"))
			return
		}
		if time.Unix(payload.IssuedAt, 0).UTC().
			Add(as.Config.GetJWTExpire()).Before(time.Now()) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Token expired"))
			return
		}

		startTimer := time.Now()
		userModel := new(model.User)
		if err := as.BunDB.
			NewSelect().
			Model(userModel).
			Where("id = ?", payload.UserID).
			Scan(r.Context()); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Unknown account"))
			slog.Debug("can't find user for token", "user_id", payload.UserID, "error", err)
			return
		}
		select {
		case as.MetricChans.DatabaseReadForAuthMiddleware <- float64(time.Since(startTimer).Microseconds()):
		default:
		}

		principal := access.Principal{
			ID:   userModel.ID,
			Role: userModel.Role,
		}
		next(w, r.WithContext(context.WithValue(r.Context(), PrincipalCtxKey, principal)))
	}
}

// Get the principal the middleware resolved; anonymous when the request
// never went through the middleware.
func PrincipalFromRequest(r *http.Request) access.Principal {
	if principal, ok := r.Context().Value(PrincipalCtxKey).(access.Principal); ok {
		return principal
	}
	return access.Anonymous()
}
