package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // регистрация драйвера postgres
)

// PoolConfig задает параметры пула соединений.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// DefaultPoolConfig возвращает параметры пула, с которыми работает сервер.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    20,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		PingTimeout:     5 * time.Second,
	}
}

// NewPostgresDB открывает пул соединений с базой контактов и проверяет,
// что сервер PostgreSQL отвечает.
func NewPostgresDB(dsn string) (*sqlx.DB, error) {
	log.Printf("[DB] Открытие пула соединений с базой контактов")

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err = PreparePool(context.Background(), db, DefaultPoolConfig()); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Printf("[DB] Не удалось закрыть пул после ошибки: %v", closeErr)
		}
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	return db, nil
}

// PreparePool настраивает пул и пингует базу с ограничением по времени.
func PreparePool(ctx context.Context, db *sqlx.DB, cfg PoolConfig) error {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if cfg.PingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.PingTimeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("база не отвечает на ping: %w", err)
	}

	log.Printf("[DB] Пул готов: до %d соединений, %d простаивающих", cfg.MaxOpenConns, cfg.MaxIdleConns)
	return nil
}
