package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/maynagashev/contactkeeper/internal/apperr"
	"github.com/maynagashev/contactkeeper/models"
)

// Ограничения ожидания уведомлений.
const (
	DefaultChangesTimeout = 30 * time.Second
	MaxChangesTimeout     = 60 * time.Second
)

// ChangeWaiter ждет следующее уведомление об изменении персоны.
// Реализуется *notify.Hub.
type ChangeWaiter interface {
	Wait(ctx context.Context, timeout time.Duration) (*models.ChangeEvent, error)
}

// ChangesHandler обслуживает long-poll подписку на изменения персон.
type ChangesHandler struct {
	waiter ChangeWaiter
}

// NewChangesHandler создает новый экземпляр ChangesHandler.
func NewChangesHandler(w ChangeWaiter) *ChangesHandler {
	return &ChangesHandler{waiter: w}
}

// Wait ждет изменения не дольше timeout (по умолчанию 30s, максимум 60s).
// Возвращает {"id": ...} или 204, если за это время ничего не изменилось.
func (h *ChangesHandler) Wait(w http.ResponseWriter, r *http.Request) {
	const op = "ChangesHandler:Wait"
	if _, ok := requireUser(w, r, op); !ok {
		return
	}

	timeout, err := parseChangesTimeout(r.URL.Query().Get("timeout"))
	if err != nil {
		writeError(w, op, err)
		return
	}

	ev, err := h.waiter.Wait(r.Context(), timeout)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Клиент ушел, отвечать некому
			return
		}
		writeError(w, op, err)
		return
	}
	if ev == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, op, http.StatusOK, ev)
}

// parseChangesTimeout принимает длительность Go ("45s") или число секунд ("45").
func parseChangesTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return DefaultChangesTimeout, nil
	}
	timeout, err := time.ParseDuration(raw)
	if err != nil {
		seconds, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return 0, apperr.Wrap(apperr.KindInvalidInput, "неверный формат параметра timeout", err)
		}
		timeout = time.Duration(seconds) * time.Second
	}
	if timeout <= 0 {
		return 0, apperr.New(apperr.KindInvalidInput, "timeout должен быть положительным")
	}
	if timeout > MaxChangesTimeout {
		timeout = MaxChangesTimeout
	}
	return timeout, nil
}
