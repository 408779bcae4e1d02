package middleware

import (
	"context"
	"net/http"
	"strings"

	authcore "github.com/salonkit/authcore"
)

type accessPayloadContextKey struct{}

// PayloadFromContext extracts the verified access payload injected by
// [Guard] or [RequireSurface].
func PayloadFromContext(ctx context.Context) (*authcore.AccessPayload, bool) {
	payload, ok := ctx.Value(accessPayloadContextKey{}).(*authcore.AccessPayload)
	return payload, ok
}

// Guard returns middleware that verifies the bearer access token and
// injects the payload into the request context. Every rejection is a bare
// 401; the reason is never surfaced to the client.
func Guard(service *authcore.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if service == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			payload, err := service.Authorize(r.Context(), raw)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), accessPayloadContextKey{}, payload)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSurface returns middleware that additionally requires the token
// to carry the given surface. A valid token for the wrong surface is a
// 403, not a 401: the caller is authenticated but in the wrong app.
func RequireSurface(service *authcore.Service, surface authcore.Surface) func(http.Handler) http.Handler {
	guard := Guard(service)
	return func(next http.Handler) http.Handler {
		return guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			payload, ok := PayloadFromContext(r.Context())
			if !ok || payload.Surface != surface {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
