package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
)

// DBTX - общий интерфейс *sqlx.DB и *sqlx.Tx. Методы репозиториев принимают его,
// чтобы одна операция сервиса выполнялась в одной транзакции.
type DBTX interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Transactor выполняет функцию внутри транзакции.
type Transactor interface {
	// WithinTx открывает транзакцию, вызывает fn и фиксирует транзакцию, если fn
	// вернула nil. При ошибке или панике транзакция откатывается.
	WithinTx(ctx context.Context, fn func(tx DBTX) error) error
}

// Убедимся, что sqlxTransactor удовлетворяет интерфейсу Transactor.
var _ Transactor = (*sqlxTransactor)(nil)

type sqlxTransactor struct {
	db *sqlx.DB
}

// NewTransactor создает Transactor поверх подключения sqlx.
func NewTransactor(db *sqlx.DB) Transactor {
	return &sqlxTransactor{db: db}
}

func (t *sqlxTransactor) WithinTx(ctx context.Context, fn func(tx DBTX) error) (err error) {
	tx, err := t.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Printf("[Tx] Ошибка отката транзакции: %v", rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}
