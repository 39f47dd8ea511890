package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
)

const (
	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
	pingInterval         = 90 * time.Second
)

// Listener - подписка на канал PostgreSQL NOTIFY.
type Listener struct {
	listener *pq.Listener
	channel  string
}

// Listen подключается к PostgreSQL и подписывается на channel.
func Listen(dsn, channel string) (*Listener, error) {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("[Notify] Ошибка слушателя PostgreSQL (событие %d): %v", ev, err)
		}
	}
	l := pq.NewListener(dsn, minReconnectInterval, maxReconnectInterval, reportProblem)
	if err := l.Listen(channel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("ошибка подписки на канал %s: %w", channel, err)
	}
	log.Printf("[Notify] Подписка на канал %s установлена", channel)
	return &Listener{listener: l, channel: channel}, nil
}

// Serve передает уведомления в hub и периодически проверяет соединение.
// Возвращается при отмене ctx.
func (l *Listener) Serve(ctx context.Context, hub *Hub) {
	go hub.Run(ctx, l.listener.Notify)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.listener.Ping(); err != nil {
				log.Printf("[Notify] Проверка соединения слушателя не прошла: %v", err)
			}
		}
	}
}

// Close отписывается и закрывает соединение.
func (l *Listener) Close() error {
	if err := l.listener.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия слушателя: %w", err)
	}
	return nil
}
