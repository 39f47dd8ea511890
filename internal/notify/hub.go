// Package notify раздает уведомления об изменениях персон клиентам, ожидающим
// их в long-poll запросах. Источник уведомлений - PostgreSQL LISTEN.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/maynagashev/contactkeeper/models"
)

// Hub рассылает события всем текущим подписчикам. Подписчик, не успевший
// забрать предыдущее событие, новое пропускает.
type Hub struct {
	mu   sync.Mutex
	subs map[chan models.ChangeEvent]struct{}
}

// NewHub создает пустой Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan models.ChangeEvent]struct{})}
}

// Subscribe регистрирует подписчика. Вызывающий обязан вызвать cancel.
func (h *Hub) Subscribe() (events <-chan models.ChangeEvent, cancel func()) {
	ch := make(chan models.ChangeEvent, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
		})
	}
}

// Publish отправляет событие всем подписчикам без блокировки.
func (h *Hub) Publish(ev models.ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers возвращает текущее число подписчиков.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Wait ждет следующее событие не дольше timeout. По истечении времени возвращает
// (nil, nil), при отмене ctx - ошибку контекста.
func (h *Hub) Wait(ctx context.Context, timeout time.Duration) (*models.ChangeEvent, error) {
	events, cancel := h.Subscribe()
	defer cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev := <-events:
		return &ev, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run читает уведомления PostgreSQL и публикует их в Hub до отмены ctx или
// закрытия канала. nil в канале означает переподключение слушателя: часть
// уведомлений могла потеряться, клиенты узнают о них при следующем опросе.
func (h *Hub) Run(ctx context.Context, notifications <-chan *pq.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifications:
			if !ok {
				log.Println("[Notify] Канал уведомлений закрыт")
				return
			}
			if n == nil {
				log.Println("[Notify] Соединение слушателя восстановлено")
				continue
			}
			var ev models.ChangeEvent
			if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
				log.Printf("[Notify] Некорректное уведомление в канале %s: %v", n.Channel, err)
				continue
			}
			h.Publish(ev)
		}
	}
}
