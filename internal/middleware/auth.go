// Package middleware содержит HTTP middleware сервера.
package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/maynagashev/contactkeeper/internal/token"
)

// Тип для ключа контекста.
type contextKey string

// UserIDKey - ключ ID аутентифицированного пользователя в контексте запроса.
const UserIDKey contextKey = "userID"

// Authenticator проверяет JWT токен из заголовка Authorization и кладет ID
// пользователя в контекст запроса.
func Authenticator(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Println("[AuthMiddleware] Заголовок Authorization отсутствует")
				http.Error(w, "Требуется аутентификация", http.StatusUnauthorized)
				return
			}

			// Ожидаем формат "Bearer <token>"
			headerParts := strings.Split(authHeader, " ")
			if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") || headerParts[1] == "" {
				log.Println("[AuthMiddleware] Неверный формат заголовка Authorization")
				http.Error(w, "Неверный формат токена", http.StatusUnauthorized)
				return
			}

			userID, err := token.Parse(secret, headerParts[1])
			if err != nil {
				log.Printf("[AuthMiddleware] Ошибка проверки токена: %v", err)
				http.Error(w, "Невалидный токен", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext извлекает ID пользователя из контекста запроса.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}

// WithUserID возвращает контекст с ID пользователя. Используется в тестах обработчиков.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// LongPollTimeout снимает таймаут записи для long-poll обработчиков, если сервер
// его задает.
func LongPollTimeout(limit time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := http.NewResponseController(w)
			if err := rc.SetWriteDeadline(time.Now().Add(limit)); err != nil {
				log.Printf("[LongPoll] Не удалось продлить таймаут записи: %v", err)
			}
			next.ServeHTTP(w, r)
		})
	}
}
