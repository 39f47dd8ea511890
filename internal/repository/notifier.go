package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/maynagashev/contactkeeper/models"
)

// PersonaChannel - канал PostgreSQL NOTIFY для изменений персон.
const PersonaChannel = "personas"

// ChangePublisher публикует уведомления об изменениях.
type ChangePublisher interface {
	// PersonaChanged ставит уведомление в очередь транзакции q. PostgreSQL доставляет
	// его слушателям только после фиксации транзакции и отбрасывает при откате.
	PersonaChanged(ctx context.Context, q DBTX, personaID uuid.UUID) error
}

// postgresChangePublisher реализует ChangePublisher через pg_notify.
type postgresChangePublisher struct {
	channel string
}

// NewPostgresChangePublisher создает публикатор для канала PersonaChannel.
func NewPostgresChangePublisher() ChangePublisher {
	return &postgresChangePublisher{channel: PersonaChannel}
}

func (p *postgresChangePublisher) PersonaChanged(ctx context.Context, q DBTX, personaID uuid.UUID) error {
	payload, err := json.Marshal(models.ChangeEvent{ID: personaID})
	if err != nil {
		return fmt.Errorf("ошибка сериализации уведомления: %w", err)
	}
	if _, err = q.ExecContext(ctx, `SELECT pg_notify($1, $2)`, p.channel, string(payload)); err != nil {
		log.Printf("[Notify] Ошибка постановки уведомления о персоне %s: %v", personaID, err)
		return fmt.Errorf("ошибка выполнения pg_notify: %w", err)
	}
	return nil
}
