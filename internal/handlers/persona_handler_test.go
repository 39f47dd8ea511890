package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/contactkeeper/internal/apperr"
	"github.com/maynagashev/contactkeeper/models"
)

func TestPersonaHandler_List(t *testing.T) {
	idA, idB := uuid.New(), uuid.New()
	tagID := uuid.New()

	tests := []struct {
		name           string
		query          string
		wantFilter     *models.PersonaFilter
		expectedStatus int
	}{
		{
			name:           "Без параметров",
			query:          "",
			wantFilter:     &models.PersonaFilter{},
			expectedStatus: http.StatusOK,
		},
		{
			name:  "Фрагмент, тег и включенные персоны",
			query: "?frag=barbossa&tag_id=" + tagID.String() + "&included=" + idA.String() + ";" + idB.String(),
			wantFilter: &models.PersonaFilter{
				Frag:     "barbossa",
				TagID:    &tagID,
				Included: []uuid.UUID{idA, idB},
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Пустые элементы included пропускаются",
			query:          "?included=;" + idA.String() + ";",
			wantFilter:     &models.PersonaFilter{Included: []uuid.UUID{idA}},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Неверный tag_id",
			query:          "?tag_id=pirates",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Неверный included",
			query:          "?included=" + idA.String() + ";black-pearl",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newHandlerEnv()
			items := []models.PersonaListItem{{ID: idA, EntityName: "Hector Barbossa"}}
			if tt.wantFilter != nil {
				env.personas.On("List", mock.Anything, testUserID, *tt.wantFilter).Return(items, nil).Once()
			}

			rr := env.do(http.MethodGet, "/api/personas/list"+tt.query, nil)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedStatus == http.StatusOK {
				var resp models.PersonaListResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				assert.Equal(t, items, resp.Personas)
			} else {
				assert.Equal(t, apperr.KindInvalidInput, decodeError(t, rr).Kind)
			}
			env.assertExpectations(t)
		})
	}
}

func TestPersonaHandler_New(t *testing.T) {
	env := newHandlerEnv()
	personaID := uuid.New()
	env.personas.On("New", mock.Anything, testUserID).Return(&models.PersonaResponse{
		Persona: []models.Persona{{ID: personaID, TagIDs: []string{}}},
		Keys:    map[string]bool{"new_row": true},
	}).Once()

	rr := env.do(http.MethodGet, "/api/persona/new", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), personaID.String())
	assert.Contains(t, rr.Body.String(), `"new_row":true`)
	env.assertExpectations(t)
}

func TestPersonaHandler_Get(t *testing.T) {
	personaID := uuid.New()

	tests := []struct {
		name           string
		path           string
		mockResp       *models.PersonaResponse
		mockErr        error
		callsService   bool
		expectedStatus int
		expectedKind   apperr.Kind
	}{
		{
			name:           "Персона доступна",
			path:           "/api/persona/" + personaID.String(),
			mockResp:       &models.PersonaResponse{Persona: []models.Persona{{ID: personaID}}},
			callsService:   true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Нет доступа",
			path:           "/api/persona/" + personaID.String(),
			mockErr:        apperr.ErrNotAuthorized,
			callsService:   true,
			expectedStatus: http.StatusForbidden,
			expectedKind:   apperr.KindNotAuthorized,
		},
		{
			name:           "Ошибка расшифровки",
			path:           "/api/persona/" + personaID.String(),
			mockErr:        apperr.Wrap(apperr.KindDecryption, "не удалось расшифровать секрет", errors.New("auth failed")),
			callsService:   true,
			expectedStatus: http.StatusInternalServerError,
			expectedKind:   apperr.KindDecryption,
		},
		{
			name:           "Внутренняя ошибка",
			path:           "/api/persona/" + personaID.String(),
			mockErr:        errors.New("connection reset"),
			callsService:   true,
			expectedStatus: http.StatusInternalServerError,
			expectedKind:   apperr.KindInternal,
		},
		{
			name:           "ID не является UUID",
			path:           "/api/persona/barbossa",
			expectedStatus: http.StatusBadRequest,
			expectedKind:   apperr.KindInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newHandlerEnv()
			if tt.callsService {
				env.personas.On("Get", mock.Anything, testUserID, personaID).Return(tt.mockResp, tt.mockErr).Once()
			}

			rr := env.do(http.MethodGet, tt.path, nil)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedKind != "" {
				resp := decodeError(t, rr)
				assert.Equal(t, tt.expectedKind, resp.Kind)
				assert.NotContains(t, resp.Message, "connection reset")
			}
			env.assertExpectations(t)
		})
	}
}

func TestPersonaHandler_Put(t *testing.T) {
	personaID := uuid.New()
	path := "/api/persona/" + personaID.String()

	t.Run("Сохранение персоны", func(t *testing.T) {
		env := newHandlerEnv()
		body := `{"persona": [{"l_name": "Barbossa", "f_name": "Hector"}], "tagdeltas": [{"tags_add": [], "tags_remove": []}]}`
		env.personas.On("Put", mock.Anything, testUserID, personaID,
			mock.MatchedBy(func(req *models.PutPersonaRequest) bool {
				return len(req.Persona) == 1 && *req.Persona[0].LName == "Barbossa" && len(req.TagDeltas) == 1
			})).
			Return(&models.PersonaResponse{Persona: []models.Persona{{ID: personaID}}}, nil).Once()

		rr := env.do(http.MethodPut, path, strings.NewReader(body))

		assert.Equal(t, http.StatusOK, rr.Code)
		env.assertExpectations(t)
	})

	t.Run("Дата рождения без времени", func(t *testing.T) {
		env := newHandlerEnv()
		birthday := models.NewDate(1680, time.May, 17)
		body := `{"persona": [{"l_name": "Barbossa", "birthday": "1680-05-17"}]}`
		env.personas.On("Put", mock.Anything, testUserID, personaID,
			mock.MatchedBy(func(req *models.PutPersonaRequest) bool {
				p := req.Persona[0]
				return p.Birthday != nil && *p.Birthday == birthday && p.Has("l_name") && !p.Has("f_name")
			})).
			Return(&models.PersonaResponse{Persona: []models.Persona{{ID: personaID, Birthday: &birthday}}}, nil).Once()

		rr := env.do(http.MethodPut, path, strings.NewReader(body))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"birthday":"1680-05-17"`)
		env.assertExpectations(t)
	})

	t.Run("Не владелец", func(t *testing.T) {
		env := newHandlerEnv()
		env.personas.On("Put", mock.Anything, testUserID, personaID, mock.Anything).
			Return(nil, apperr.ErrNotOwner).Once()

		rr := env.do(http.MethodPut, path, strings.NewReader(`{"persona": [{"l_name": "Sparrow"}]}`))

		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, apperr.KindNotOwner, decodeError(t, rr).Kind)
		env.assertExpectations(t)
	})

	t.Run("Сломанный JSON", func(t *testing.T) {
		env := newHandlerEnv()
		rr := env.do(http.MethodPut, path, strings.NewReader(`{"persona": [`))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, apperr.KindInvalidInput, decodeError(t, rr).Kind)
		env.assertExpectations(t)
	})
}

func TestPersonaHandler_Delete(t *testing.T) {
	personaID := uuid.New()

	t.Run("Удаление", func(t *testing.T) {
		env := newHandlerEnv()
		env.personas.On("Delete", mock.Anything, testUserID, personaID).Return(nil).Once()

		rr := env.do(http.MethodDelete, "/api/persona/"+personaID.String(), nil)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		env.assertExpectations(t)
	})

	t.Run("Не владелец", func(t *testing.T) {
		env := newHandlerEnv()
		env.personas.On("Delete", mock.Anything, testUserID, personaID).Return(apperr.ErrNotOwner).Once()

		rr := env.do(http.MethodDelete, "/api/persona/"+personaID.String(), nil)

		assert.Equal(t, http.StatusForbidden, rr.Code)
		env.assertExpectations(t)
	})
}

func TestPersonaHandler_Sharing(t *testing.T) {
	personaID := uuid.New()

	t.Run("Изменение доступа", func(t *testing.T) {
		env := newHandlerEnv()
		env.personas.On("Reshare", mock.Anything, testUserID, personaID,
			&models.ReshareRequest{Add: []int64{2, 3}, Remove: []int64{4}}).
			Return(&models.PersonaResponse{Shares: []models.Share{{PersonaID: personaID, UserID: 2, Username: "gibbs"}}}, nil).
			Once()

		rr := env.do(http.MethodPut, "/api/persona/"+personaID.String()+"/reshare",
			strings.NewReader(`{"add": [2, 3], "remove": [4]}`))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"username":"gibbs"`)
		env.assertExpectations(t)
	})

	t.Run("Неизвестный пользователь", func(t *testing.T) {
		env := newHandlerEnv()
		env.personas.On("Reshare", mock.Anything, testUserID, personaID, mock.Anything).
			Return(nil, apperr.New(apperr.KindNotFound, "пользователь не найден")).Once()

		rr := env.do(http.MethodPut, "/api/persona/"+personaID.String()+"/reshare",
			strings.NewReader(`{"add": [404]}`))

		assert.Equal(t, http.StatusNotFound, rr.Code)
		env.assertExpectations(t)
	})

	t.Run("Передача владения", func(t *testing.T) {
		env := newHandlerEnv()
		env.personas.On("Reown", mock.Anything, testUserID, personaID, &models.ReownRequest{UserID: 2}).
			Return(nil).Once()

		rr := env.do(http.MethodPut, "/api/persona/"+personaID.String()+"/reown",
			strings.NewReader(`{"user_id": 2}`))

		assert.Equal(t, http.StatusNoContent, rr.Code)
		env.assertExpectations(t)
	})
}
