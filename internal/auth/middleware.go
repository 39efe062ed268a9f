package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/UkralStul/geoposts-service/internal/logging"
)

type contextKey string

const userIDKey = contextKey("auth_user_id")

// FailureHandler пишет ответ, когда токен отсутствует или недействителен.
type FailureHandler func(w http.ResponseWriter, r *http.Request, err error)

// Middleware требует заголовок Authorization: Bearer <token> и кладет id
// пользователя из токена в контекст запроса.
func Middleware(m *Manager, onFailure FailureHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				onFailure(w, r, ErrMissingToken)
				return
			}

			claims, err := m.ValidateToken(token)
			if err != nil {
				logging.Ctx(r.Context()).Debug().Err(err).Msg("rejected token")
				onFailure(w, r, err)
				return
			}

			ctx := WithUserID(r.Context(), claims.Subject)
			ctx = logging.ContextWithUserID(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID возвращает id аутентифицированного пользователя.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// WithUserID кладет id пользователя в контекст (для тестов и фоновых задач).
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// bearerToken достает токен из заголовка. Браузер не может задать заголовки
// для websocket, поэтому при апгрейде принимается и ?access_token=.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" && strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		token := r.URL.Query().Get("access_token")
		return token, token != ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
