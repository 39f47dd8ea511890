package services

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/maynagashev/contactkeeper/internal/access"
	"github.com/maynagashev/contactkeeper/internal/apperr"
	"github.com/maynagashev/contactkeeper/internal/cipher"
	"github.com/maynagashev/contactkeeper/internal/repository"
	"github.com/maynagashev/contactkeeper/models"
)

// Ключи метаданных ответа.
const (
	KeyNewRow  = "new_row"
	KeyIsOwner = "is_owner"
)

// PersonaService определяет операции над персонами.
type PersonaService interface {
	List(ctx context.Context, userID int64, filter models.PersonaFilter) ([]models.PersonaListItem, error)
	// New возвращает шаблон новой персоны. В БД ничего не сохраняется.
	New(ctx context.Context, userID int64) *models.PersonaResponse
	Get(ctx context.Context, userID int64, personaID uuid.UUID) (*models.PersonaResponse, error)
	// Put создает персону (пользователь становится владельцем) или обновляет существующую.
	Put(ctx context.Context, userID int64, personaID uuid.UUID, req *models.PutPersonaRequest) (*models.PersonaResponse, error)
	Delete(ctx context.Context, userID int64, personaID uuid.UUID) error
	Reshare(ctx context.Context, userID int64, personaID uuid.UUID, req *models.ReshareRequest) (*models.PersonaResponse, error)
	Reown(ctx context.Context, userID int64, personaID uuid.UUID, req *models.ReownRequest) error
}

// Убедимся, что personaService удовлетворяет интерфейсу PersonaService.
var _ PersonaService = (*personaService)(nil)

type personaService struct {
	store  Store
	guard  *access.Guard
	cipher *cipher.Cipher
}

// NewPersonaService создает сервис персон.
func NewPersonaService(store Store, guard *access.Guard, c *cipher.Cipher) PersonaService {
	return &personaService{store: store, guard: guard, cipher: c}
}

func (s *personaService) List(
	ctx context.Context,
	userID int64,
	filter models.PersonaFilter,
) ([]models.PersonaListItem, error) {
	var items []models.PersonaListItem
	err := s.store.Tx.WithinTx(ctx, func(tx repository.DBTX) error {
		var listErr error
		items, listErr = s.store.Personas.List(ctx, tx, userID, filter)
		return listErr
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *personaService) New(_ context.Context, userID int64) *models.PersonaResponse {
	log.Printf("[PersonaService] Шаблон новой персоны для пользователя %d", userID)
	return &models.PersonaResponse{
		Persona: []models.Persona{{ID: uuid.New(), TagIDs: []string{}}},
		Bits:    []models.Bit{},
		Shares:  []models.Share{},
		Keys:    map[string]bool{KeyNewRow: true},
	}
}

func (s *personaService) Get(ctx context.Context, userID int64, personaID uuid.UUID) (*models.PersonaResponse, error) {
	var resp *models.PersonaResponse
	err := s.store.Tx.WithinTx(ctx, func(tx repository.DBTX) error {
		decision, err := s.guard.RequireShare(ctx, tx, userID, personaID)
		if err != nil {
			return err
		}
		resp, err = s.load(ctx, tx, decision)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *personaService) Put(
	ctx context.Context,
	userID int64,
	personaID uuid.UUID,
	req *models.PutPersonaRequest,
) (*models.PersonaResponse, error) {
	persona, deltas, err := validatePutPersona(personaID, req)
	if err != nil {
		return nil, err
	}

	var resp *models.PersonaResponse
	err = s.store.Tx.WithinTx(ctx, func(tx repository.DBTX) error {
		decision, err := s.guard.RequireOwner(ctx, tx, userID, personaID, true)
		if err != nil {
			return err
		}

		if decision.Exists {
			err = s.store.Personas.Update(ctx, tx, persona)
		} else {
			err = s.store.Personas.Insert(ctx, tx, persona)
		}
		if err != nil {
			return mapRepoErr(err)
		}
		if decision.New {
			if err = s.guard.ClaimOwnership(ctx, tx, userID, personaID); err != nil {
				return err
			}
			decision.Role = access.RoleOwner
		}

		if err = s.store.Personas.RemoveTags(ctx, tx, personaID, deltas.TagsRemove); err != nil {
			return mapRepoErr(err)
		}
		if err = s.store.Personas.AddTags(ctx, tx, personaID, deltas.TagsAdd); err != nil {
			return mapRepoErr(err)
		}

		if err = s.store.Changes.PersonaChanged(ctx, tx, personaID); err != nil {
			return err
		}
		resp, err = s.load(ctx, tx, decision)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[PersonaService] Персона %s сохранена пользователем %d", personaID, userID)
	return resp, nil
}

func (s *personaService) Delete(ctx context.Context, userID int64, personaID uuid.UUID) error {
	err := s.store.Tx.WithinTx(ctx, func(tx repository.DBTX) error {
		if _, err := s.guard.RequireOwner(ctx, tx, userID, personaID, false); err != nil {
			return err
		}
		if err := s.store.Personas.Delete(ctx, tx, personaID); err != nil {
			return mapRepoErr(err)
		}
		return s.store.Changes.PersonaChanged(ctx, tx, personaID)
	})
	if err != nil {
		return err
	}
	log.Printf("[PersonaService] Персона %s удалена пользователем %d", personaID, userID)
	return nil
}

func (s *personaService) Reshare(
	ctx context.Context,
	userID int64,
	personaID uuid.UUID,
	req *models.ReshareRequest,
) (*models.PersonaResponse, error) {
	var resp *models.PersonaResponse
	err := s.store.Tx.WithinTx(ctx, func(tx repository.DBTX) error {
		if err := s.guard.Reshare(ctx, tx, userID, personaID, req.Add, req.Remove); err != nil {
			return err
		}
		if err := s.store.Changes.PersonaChanged(ctx, tx, personaID); err != nil {
			return err
		}
		var err error
		resp, err = s.load(ctx, tx, access.Decision{PersonaID: personaID, UserID: userID, Role: access.RoleOwner})
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *personaService) Reown(ctx context.Context, userID int64, personaID uuid.UUID, req *models.ReownRequest) error {
	if req.UserID <= 0 {
		return apperr.New(apperr.KindInvalidInput, "не указан новый владелец")
	}
	return s.store.Tx.WithinTx(ctx, func(tx repository.DBTX) error {
		if err := s.guard.Reown(ctx, tx, userID, personaID, req.UserID); err != nil {
			return err
		}
		return s.store.Changes.PersonaChanged(ctx, tx, personaID)
	})
}

// load собирает персону, ее записи с расшифрованными паролями и список доступов.
func (s *personaService) load(ctx context.Context, tx repository.DBTX, decision access.Decision) (*models.PersonaResponse, error) {
	persona, err := s.store.Personas.Get(ctx, tx, decision.PersonaID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	bitList, err := s.store.Bits.ListByPersona(ctx, tx, decision.PersonaID)
	if err != nil {
		return nil, err
	}
	for i := range bitList {
		if err = revealPassword(s.cipher, &bitList[i]); err != nil {
			log.Printf("[PersonaService] Не удалось расшифровать пароль записи %s персоны %s",
				bitList[i].ID, decision.PersonaID)
			return nil, err
		}
	}
	shares, err := s.store.Access.ListShares(ctx, tx, decision.PersonaID)
	if err != nil {
		return nil, err
	}
	return &models.PersonaResponse{
		Persona: []models.Persona{*persona},
		Bits:    bitList,
		Shares:  shares,
		Keys:    map[string]bool{KeyIsOwner: decision.Role == access.RoleOwner},
	}, nil
}

// validatePutPersona проверяет форму запроса и приводит поля юридического лица.
func validatePutPersona(personaID uuid.UUID, req *models.PutPersonaRequest) (*models.Persona, models.TagDeltas, error) {
	var deltas models.TagDeltas
	if req == nil || len(req.Persona) != 1 {
		return nil, deltas, apperr.New(apperr.KindInvalidInput, "таблица persona должна содержать ровно одну строку")
	}
	if len(req.TagDeltas) > 1 {
		return nil, deltas, apperr.New(apperr.KindInvalidInput, "таблица tagdeltas должна содержать не более одной строки")
	}

	persona := req.Persona[0]
	switch persona.ID {
	case uuid.Nil:
		persona.ID = personaID
	case personaID:
	default:
		return nil, deltas, apperr.New(apperr.KindInvalidInput, "ID персоны в теле не совпадает с адресом запроса")
	}

	if persona.CorporateEntity {
		for name, field := range map[string]**string{"f_name": &persona.FName, "title": &persona.Title} {
			if *field == nil {
				continue
			}
			if **field != "" {
				return nil, deltas, apperr.Newf(apperr.KindInvalidInput,
					"поле %s должно быть пустым для юридического лица", name)
			}
			*field = nil
		}
	}

	if len(req.TagDeltas) == 1 {
		deltas = req.TagDeltas[0]
		removed := make(map[uuid.UUID]struct{}, len(deltas.TagsRemove))
		for _, id := range deltas.TagsRemove {
			removed[id] = struct{}{}
		}
		for _, id := range deltas.TagsAdd {
			if _, ok := removed[id]; ok {
				return nil, deltas, apperr.Newf(apperr.KindInvalidInput,
					"тег %s одновременно добавляется и удаляется", id)
			}
		}
	}
	return &persona, deltas, nil
}
