package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/maynagashev/contactkeeper/internal/apperr"
	"github.com/maynagashev/contactkeeper/internal/middleware"
)

// ErrorResponse - тело ответа с ошибкой предметной области.
type ErrorResponse struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

// statusByKind сопоставляет виду ошибки HTTP-статус. Неизвестные виды дают 500.
var statusByKind = map[apperr.Kind]int{
	apperr.KindNotAuthorized:    http.StatusForbidden,
	apperr.KindNotOwner:         http.StatusForbidden,
	apperr.KindInvalidInput:     http.StatusBadRequest,
	apperr.KindAmbiguousVariant: http.StatusBadRequest,
	apperr.KindInvalidField:     http.StatusBadRequest,
	apperr.KindNotFound:         http.StatusNotFound,
	apperr.KindConflict:         http.StatusConflict,
	apperr.KindDecryption:       http.StatusInternalServerError,
	apperr.KindConfig:           http.StatusInternalServerError,
}

// StatusFor возвращает HTTP-статус для ошибки.
func StatusFor(err error) int {
	if status, ok := statusByKind[apperr.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// writeError пишет ошибку в формате ErrorResponse. Для внутренних ошибок клиент
// получает общее сообщение, подробности остаются в логе.
func writeError(w http.ResponseWriter, op string, err error) {
	status := StatusFor(err)
	resp := ErrorResponse{Kind: apperr.KindOf(err), Message: apperr.MessageOf(err)}
	if status == http.StatusInternalServerError {
		log.Printf("[%s] Внутренняя ошибка: %v", op, err)
	} else {
		log.Printf("[%s] Запрос отклонен (%s): %s", op, resp.Kind, resp.Message)
	}
	writeJSON(w, op, status, resp)
}

// writeJSON сериализует v в тело ответа с указанным статусом.
func writeJSON(w http.ResponseWriter, op string, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Статус уже отправлен, остается только залогировать
		log.Printf("[%s] Ошибка кодирования ответа: %v", op, err)
	}
}

// decodeJSON разбирает тело запроса в dst. Ошибка разбора - invalid-input.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "Неверный формат запроса", err)
	}
	return nil
}

// requireUser достает ID пользователя, положенный middleware аутентификации.
func requireUser(w http.ResponseWriter, r *http.Request, op string) (int64, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		log.Printf("[%s] Не удалось получить userID из контекста", op)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return 0, false
	}
	return userID, true
}

// uuidParam разбирает параметр маршрута как UUID.
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindInvalidInput, "параметр "+name+" должен быть UUID", err)
	}
	return id, nil
}
