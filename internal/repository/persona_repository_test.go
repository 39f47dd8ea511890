package repository_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/contactkeeper/internal/repository"
	"github.com/maynagashev/contactkeeper/models"
)

func strPtr(s string) *string { return &s }

func TestPersonaRepository_List(t *testing.T) {
	idA, idB := uuid.New(), uuid.New()
	tagID := uuid.New()
	columns := []string{"id", "entity_name", "l_name", "f_name", "title", "organization"}

	tests := []struct {
		name      string
		filter    models.PersonaFilter
		mockSetup func(mock sqlmock.Sqlmock)
		wantLen   int
	}{
		{
			name:   "Без фильтров",
			filter: models.PersonaFilter{},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM personas p WHERE \(p.owner_id = \$1 OR EXISTS .+\) ORDER BY entity_name, p.id`).
					WithArgs(int64(1)).
					WillReturnRows(sqlmock.NewRows(columns).
						AddRow(idA.String(), "Hector Barbossa", "Barbossa", "Hector", nil, nil).
						AddRow(idB.String(), "Joshamee Gibbs", "Gibbs", "Joshamee", nil, nil))
			},
			wantLen: 2,
		},
		{
			name:   "Поиск по фрагменту",
			filter: models.PersonaFilter{Frag: "  barbossa "},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`@@ plainto_tsquery('simple', $2)`)).
					WithArgs(int64(1), "barbossa").
					WillReturnRows(sqlmock.NewRows(columns).AddRow(idA.String(), "Hector Barbossa", "Barbossa", "Hector", nil, nil))
			},
			wantLen: 1,
		},
		{
			name:   "Фрагмент, включенные персоны и тег",
			filter: models.PersonaFilter{Frag: "gibbs", Included: []uuid.UUID{idA}, TagID: &tagID},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`OR p.id = ANY($3::uuid[])) AND EXISTS (SELECT 1 FROM tagpersona tp WHERE tp.persona_id = p.id AND tp.tag_id = $4)`)).
					WithArgs(int64(1), "gibbs", sqlmock.AnyArg(), tagID).
					WillReturnRows(sqlmock.NewRows(columns).
						AddRow(idA.String(), "Hector Barbossa", "Barbossa", "Hector", nil, nil).
						AddRow(idB.String(), "Joshamee Gibbs", "Gibbs", "Joshamee", nil, nil))
			},
			wantLen: 2,
		},
		{
			name:   "Только включенные персоны",
			filter: models.PersonaFilter{Included: []uuid.UUID{idB}},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`AND p.id = ANY($2::uuid[])`)).
					WithArgs(int64(1), sqlmock.AnyArg()).
					WillReturnRows(sqlmock.NewRows(columns))
			},
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.mockSetup(mock)

			items, err := repository.NewPostgresPersonaRepository().List(context.Background(), db, 1, tt.filter)
			require.NoError(t, err)
			assert.NotNil(t, items)
			assert.Len(t, items, tt.wantLen)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPersonaRepository_Get(t *testing.T) {
	personaID := uuid.New()
	tagID := uuid.New()
	columns := []string{
		"id", "corporate_entity", "l_name", "f_name", "title", "organization", "memo",
		"birthday", "anniversary", "owner_id", "entity_name", "tag_ids",
	}
	query := regexp.QuoteMeta(`FROM personas p WHERE p.id = $1`)

	t.Run("Персона с тегами", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(query).WithArgs(personaID).WillReturnRows(sqlmock.NewRows(columns).
			AddRow(personaID.String(), false, "Barbossa", "Hector", "Captain", nil, nil,
				time.Date(1680, time.May, 17, 0, 0, 0, 0, time.UTC), nil, int64(1),
				"Captain Hector Barbossa", "{"+tagID.String()+"}"))

		p, err := repository.NewPostgresPersonaRepository().Get(context.Background(), db, personaID)
		require.NoError(t, err)
		assert.Equal(t, personaID, p.ID)
		assert.Equal(t, "Captain Hector Barbossa", p.EntityName)
		require.NotNil(t, p.OwnerID)
		assert.Equal(t, int64(1), *p.OwnerID)
		assert.Equal(t, []string{tagID.String()}, p.TagIDs)
		require.NotNil(t, p.Birthday)
		assert.Equal(t, "1680-05-17", p.Birthday.String())
		assert.Nil(t, p.Anniversary)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Персона без тегов", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(query).WithArgs(personaID).WillReturnRows(sqlmock.NewRows(columns).
			AddRow(personaID.String(), true, nil, nil, nil, "Black Pearl Ltd", nil,
				nil, nil, int64(1), "", "{}"))

		p, err := repository.NewPostgresPersonaRepository().Get(context.Background(), db, personaID)
		require.NoError(t, err)
		assert.True(t, p.CorporateEntity)
		assert.Equal(t, []string{}, p.TagIDs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Персона не найдена", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(query).WithArgs(personaID).WillReturnRows(sqlmock.NewRows(columns))

		p, err := repository.NewPostgresPersonaRepository().Get(context.Background(), db, personaID)
		require.ErrorIs(t, err, repository.ErrPersonaNotFound)
		assert.Nil(t, p)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPersonaRepository_InsertUpdate(t *testing.T) {
	persona := &models.Persona{ID: uuid.New(), LName: strPtr("Barbossa"), FName: strPtr("Hector")}
	args := []driver.Value{persona.ID.String(), false, "Barbossa", "Hector", nil, nil, nil, nil, nil}
	insert := regexp.QuoteMeta(`INSERT INTO personas (id, corporate_entity, l_name, f_name, title, organization, memo, birthday, anniversary)`)
	update := regexp.QuoteMeta(`UPDATE personas SET corporate_entity = $2`)
	repo := repository.NewPostgresPersonaRepository()

	t.Run("Создание", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(insert).WithArgs(args...).WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.Insert(context.Background(), db, persona))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Создание существующей", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(insert).WillReturnError(&pq.Error{Code: "23505"})
		require.ErrorIs(t, repo.Insert(context.Background(), db, persona), repository.ErrPersonaExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Обновление", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(update).WithArgs(args...).WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.Update(context.Background(), db, persona))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Обновление только переданных полей", func(t *testing.T) {
		db, mock := newMockDB(t)
		birthday := models.NewDate(1680, time.May, 17)
		partial := &models.Persona{
			ID: persona.ID, LName: strPtr("Barbossa"), Birthday: &birthday,
			Fields: map[string]bool{"l_name": true, "memo": true, "birthday": true},
		}
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE personas SET l_name = $2, memo = $3, birthday = $4 WHERE id = $1`)).
			WithArgs(persona.ID.String(), "Barbossa", nil, "1680-05-17").
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.Update(context.Background(), db, partial))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Обновление отсутствующей", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
		require.ErrorIs(t, repo.Update(context.Background(), db, persona), repository.ErrPersonaNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPersonaRepository_Delete(t *testing.T) {
	personaID := uuid.New()

	t.Run("Каскадное удаление", func(t *testing.T) {
		db, mock := newMockDB(t)
		for _, bitType := range models.BitTypes {
			mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM `+string(bitType)+` WHERE persona_id = $1`)).
				WithArgs(personaID).WillReturnResult(sqlmock.NewResult(0, 1))
		}
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tagpersona WHERE persona_id = $1`)).
			WithArgs(personaID).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM personas WHERE id = $1`)).
			WithArgs(personaID).WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repository.NewPostgresPersonaRepository().Delete(context.Background(), db, personaID))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Ошибка удаления записей прерывает операцию", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM urls WHERE persona_id = $1`)).
			WithArgs(personaID).WillReturnError(errors.New("deadlock detected"))

		err := repository.NewPostgresPersonaRepository().Delete(context.Background(), db, personaID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "urls")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPersonaRepository_Tags(t *testing.T) {
	personaID := uuid.New()
	tagIDs := []uuid.UUID{uuid.New(), uuid.New()}
	repo := repository.NewPostgresPersonaRepository()

	t.Run("Пустые списки не обращаются к БД", func(t *testing.T) {
		db, mock := newMockDB(t)
		require.NoError(t, repo.AddTags(context.Background(), db, personaID, nil))
		require.NoError(t, repo.RemoveTags(context.Background(), db, personaID, []uuid.UUID{}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Добавление тегов", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO tagpersona (tag_id, persona_id) SELECT unnest($2::uuid[]), $1`)).
			WithArgs(personaID, sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 2))
		require.NoError(t, repo.AddTags(context.Background(), db, personaID, tagIDs))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Несуществующий тег", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO tagpersona`)).
			WillReturnError(&pq.Error{Code: "23503"})
		require.ErrorIs(t, repo.AddTags(context.Background(), db, personaID, tagIDs), repository.ErrTagNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Удаление тегов", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tagpersona WHERE persona_id = $1 AND tag_id = ANY($2::uuid[])`)).
			WithArgs(personaID, sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 2))
		require.NoError(t, repo.RemoveTags(context.Background(), db, personaID, tagIDs))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
