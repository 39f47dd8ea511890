package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/maynagashev/contactkeeper/models"
)

// AccessRepository хранит владельцев персон и выданные доступы на чтение.
type AccessRepository interface {
	// GetOwner возвращает владельца персоны. exists=false, если персоны нет.
	// При lock=true строка персоны блокируется до конца транзакции.
	GetOwner(ctx context.Context, q DBTX, personaID uuid.UUID, lock bool) (ownerID *int64, exists bool, err error)
	HasShare(ctx context.Context, q DBTX, personaID uuid.UUID, userID int64) (bool, error)
	SetOwner(ctx context.Context, q DBTX, personaID uuid.UUID, userID int64) error
	// AddShare идемпотентна: повторная выдача доступа не является ошибкой.
	AddShare(ctx context.Context, q DBTX, personaID uuid.UUID, userID int64) error
	RemoveShare(ctx context.Context, q DBTX, personaID uuid.UUID, userID int64) error
	ListShares(ctx context.Context, q DBTX, personaID uuid.UUID) ([]models.Share, error)
}

// postgresAccessRepository реализует AccessRepository для PostgreSQL.
type postgresAccessRepository struct{}

// NewPostgresAccessRepository создает новый экземпляр репозитория доступов.
func NewPostgresAccessRepository() AccessRepository {
	return &postgresAccessRepository{}
}

func (r *postgresAccessRepository) GetOwner(
	ctx context.Context,
	q DBTX,
	personaID uuid.UUID,
	lock bool,
) (*int64, bool, error) {
	query := `SELECT owner_id FROM personas WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	var owner sql.NullInt64
	err := q.GetContext(ctx, &owner, query, personaID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		log.Printf("[AccessRepo] Ошибка получения владельца персоны %s: %v", personaID, err)
		return nil, false, fmt.Errorf("ошибка выполнения запроса на получение владельца: %w", err)
	}
	if !owner.Valid {
		return nil, true, nil
	}
	ownerID := owner.Int64
	return &ownerID, true, nil
}

func (r *postgresAccessRepository) HasShare(
	ctx context.Context,
	q DBTX,
	personaID uuid.UUID,
	userID int64,
) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM persona_shares WHERE persona_id = $1 AND user_id = $2)`
	var exists bool
	if err := q.GetContext(ctx, &exists, query, personaID, userID); err != nil {
		log.Printf("[AccessRepo] Ошибка проверки доступа пользователя %d к персоне %s: %v", userID, personaID, err)
		return false, fmt.Errorf("ошибка выполнения запроса на проверку доступа: %w", err)
	}
	return exists, nil
}

func (r *postgresAccessRepository) SetOwner(ctx context.Context, q DBTX, personaID uuid.UUID, userID int64) error {
	query := `UPDATE personas SET owner_id = $2 WHERE id = $1`
	res, err := q.ExecContext(ctx, query, personaID, userID)
	if err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolationCode {
			log.Printf("[AccessRepo] Попытка передать персону несуществующему пользователю %d", userID)
			return ErrUserNotFound
		}
		log.Printf("[AccessRepo] Ошибка смены владельца персоны %s: %v", personaID, err)
		return fmt.Errorf("ошибка выполнения запроса на смену владельца: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPersonaNotFound
	}
	log.Printf("[AccessRepo] Владелец персоны %s изменен на пользователя %d", personaID, userID)
	return nil
}

func (r *postgresAccessRepository) AddShare(ctx context.Context, q DBTX, personaID uuid.UUID, userID int64) error {
	query := `INSERT INTO persona_shares (persona_id, user_id) VALUES ($1, $2)
	          ON CONFLICT (persona_id, user_id) DO NOTHING`
	if _, err := q.ExecContext(ctx, query, personaID, userID); err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolationCode {
			log.Printf("[AccessRepo] Попытка выдать доступ несуществующему пользователю %d", userID)
			return ErrUserNotFound
		}
		log.Printf("[AccessRepo] Ошибка выдачи доступа пользователю %d к персоне %s: %v", userID, personaID, err)
		return fmt.Errorf("ошибка выполнения запроса на выдачу доступа: %w", err)
	}
	return nil
}

func (r *postgresAccessRepository) RemoveShare(ctx context.Context, q DBTX, personaID uuid.UUID, userID int64) error {
	query := `DELETE FROM persona_shares WHERE persona_id = $1 AND user_id = $2`
	if _, err := q.ExecContext(ctx, query, personaID, userID); err != nil {
		log.Printf("[AccessRepo] Ошибка отзыва доступа пользователя %d к персоне %s: %v", userID, personaID, err)
		return fmt.Errorf("ошибка выполнения запроса на отзыв доступа: %w", err)
	}
	return nil
}

func (r *postgresAccessRepository) ListShares(ctx context.Context, q DBTX, personaID uuid.UUID) ([]models.Share, error) {
	query := `SELECT s.persona_id, s.user_id, u.username
	          FROM persona_shares s
	          JOIN users u ON u.id = s.user_id
	          WHERE s.persona_id = $1
	          ORDER BY u.username`
	shares := make([]models.Share, 0)
	if err := q.SelectContext(ctx, &shares, query, personaID); err != nil {
		log.Printf("[AccessRepo] Ошибка получения списка доступов персоны %s: %v", personaID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение доступов: %w", err)
	}
	return shares, nil
}
