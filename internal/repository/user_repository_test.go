package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/contactkeeper/internal/repository"
	"github.com/maynagashev/contactkeeper/models"
)

var (
	userColumns     = []string{"id", "username", "password_hash", "created_at", "updated_at"}
	insertUserQuery = regexp.QuoteMeta(`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id`)
)

func newUserRepo(t *testing.T) (repository.UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return repository.NewPostgresUserRepository(sqlx.NewDb(sqlDB, "sqlmock")), mock
}

func TestUserRepository_CreateUser(t *testing.T) {
	owner := &models.User{Username: "jack", PasswordHash: "$2a$10$hash"}

	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantID  int64
		wantErr error
		errText string
	}{
		{
			name: "Новый владелец контактов",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(insertUserQuery).WithArgs("jack", "$2a$10$hash").
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
			},
			wantID: 42,
		},
		{
			name: "Логин уже зарегистрирован",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(insertUserQuery).WithArgs("jack", "$2a$10$hash").
					WillReturnError(&pq.Error{Code: "23505", Constraint: "users_username_key"})
			},
			wantErr: repository.ErrUsernameTaken,
		},
		{
			name: "Обрыв соединения",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(insertUserQuery).WithArgs("jack", "$2a$10$hash").
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: sql.ErrConnDone,
			errText: "создание пользователя",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newUserRepo(t)
			tt.setup(mock)

			id, err := repo.CreateUser(context.Background(), owner)

			assert.Equal(t, tt.wantID, id)
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
				if tt.errText != "" {
					assert.Contains(t, err.Error(), tt.errText)
				}
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_Lookup(t *testing.T) {
	created := time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)
	gibbs := &models.User{ID: 5, Username: "gibbs", PasswordHash: "hash", CreatedAt: created, UpdatedAt: created}
	byName := regexp.QuoteMeta(`FROM users WHERE username = $1`)
	byID := regexp.QuoteMeta(`FROM users WHERE id = $1`)

	tests := []struct {
		name     string
		query    string
		arg      any
		lookup   func(repo repository.UserRepository) (*models.User, error)
		rows     *sqlmock.Rows
		dbErr    error
		wantUser *models.User
		wantErr  error
	}{
		{
			name:  "По логину",
			query: byName,
			arg:   "gibbs",
			lookup: func(repo repository.UserRepository) (*models.User, error) {
				return repo.GetUserByUsername(context.Background(), "gibbs")
			},
			rows:     sqlmock.NewRows(userColumns).AddRow(int64(5), "gibbs", "hash", created, created),
			wantUser: gibbs,
		},
		{
			name:  "Логин не найден",
			query: byName,
			arg:   "davy",
			lookup: func(repo repository.UserRepository) (*models.User, error) {
				return repo.GetUserByUsername(context.Background(), "davy")
			},
			dbErr:   sql.ErrNoRows,
			wantErr: repository.ErrUserNotFound,
		},
		{
			name:  "По ID из токена",
			query: byID,
			arg:   int64(5),
			lookup: func(repo repository.UserRepository) (*models.User, error) {
				return repo.GetUserByID(context.Background(), 5)
			},
			rows:     sqlmock.NewRows(userColumns).AddRow(int64(5), "gibbs", "hash", created, created),
			wantUser: gibbs,
		},
		{
			name:  "ID удаленного пользователя",
			query: byID,
			arg:   int64(404),
			lookup: func(repo repository.UserRepository) (*models.User, error) {
				return repo.GetUserByID(context.Background(), 404)
			},
			dbErr:   sql.ErrNoRows,
			wantErr: repository.ErrUserNotFound,
		},
		{
			name:  "Ошибка базы",
			query: byID,
			arg:   int64(5),
			lookup: func(repo repository.UserRepository) (*models.User, error) {
				return repo.GetUserByID(context.Background(), 5)
			},
			dbErr:   errors.New("relation users does not exist"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newUserRepo(t)
			exp := mock.ExpectQuery(tt.query).WithArgs(tt.arg)
			if tt.rows != nil {
				exp.WillReturnRows(tt.rows)
			} else {
				exp.WillReturnError(tt.dbErr)
			}

			user, err := tt.lookup(repo)

			assert.Equal(t, tt.wantUser, user)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.dbErr != nil:
				require.Error(t, err)
				assert.NotErrorIs(t, err, repository.ErrUserNotFound)
				assert.Contains(t, err.Error(), "получение пользователя")
			default:
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestNewPostgresUserRepository(t *testing.T) {
	assert.NotNil(t, repository.NewPostgresUserRepository(nil))
}
