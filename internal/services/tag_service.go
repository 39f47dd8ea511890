package services

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/maynagashev/contactkeeper/internal/apperr"
	"github.com/maynagashev/contactkeeper/internal/repository"
	"github.com/maynagashev/contactkeeper/models"
)

// TagService определяет операции над тегами. Теги общие для всех пользователей.
type TagService interface {
	List(ctx context.Context) ([]models.TagListItem, error)
	New(ctx context.Context) *models.TagResponse
	Get(ctx context.Context, tagID uuid.UUID) (*models.TagResponse, error)
	Put(ctx context.Context, tagID uuid.UUID, req *models.PutTagRequest) (*models.TagResponse, error)
}

// Убедимся, что tagService удовлетворяет интерфейсу TagService.
var _ TagService = (*tagService)(nil)

type tagService struct {
	store Store
}

// NewTagService создает сервис тегов.
func NewTagService(store Store) TagService {
	return &tagService{store: store}
}

func (s *tagService) List(ctx context.Context) ([]models.TagListItem, error) {
	var items []models.TagListItem
	err := s.store.Tx.WithinTx(ctx, func(tx repository.DBTX) error {
		var err error
		items, err = s.store.Tags.List(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *tagService) New(_ context.Context) *models.TagResponse {
	return &models.TagResponse{
		Tag:  []models.Tag{{ID: uuid.New()}},
		Keys: map[string]bool{KeyNewRow: true},
	}
}

func (s *tagService) Get(ctx context.Context, tagID uuid.UUID) (*models.TagResponse, error) {
	var tag *models.Tag
	err := s.store.Tx.WithinTx(ctx, func(tx repository.DBTX) error {
		var err error
		tag, err = s.store.Tags.Get(ctx, tx, tagID)
		return mapRepoErr(err)
	})
	if err != nil {
		return nil, err
	}
	return &models.TagResponse{Tag: []models.Tag{*tag}}, nil
}

func (s *tagService) Put(ctx context.Context, tagID uuid.UUID, req *models.PutTagRequest) (*models.TagResponse, error) {
	if req == nil || len(req.Tag) != 1 {
		return nil, apperr.New(apperr.KindInvalidInput, "таблица tag должна содержать ровно одну строку")
	}
	tag := req.Tag[0]
	switch tag.ID {
	case uuid.Nil:
		tag.ID = tagID
	case tagID:
	default:
		return nil, apperr.New(apperr.KindInvalidInput, "ID тега в теле не совпадает с адресом запроса")
	}
	tag.Name = strings.TrimSpace(tag.Name)
	if tag.Name == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "имя тега не может быть пустым")
	}
	if strings.Contains(tag.Name, models.TagPathSeparator) {
		return nil, apperr.New(apperr.KindInvalidInput, "имя тега содержит недопустимый символ")
	}

	err := s.store.Tx.WithinTx(ctx, func(tx repository.DBTX) error {
		if tag.ParentID != nil {
			if err := s.checkParent(ctx, tx, tag.ID, *tag.ParentID); err != nil {
				return err
			}
		}
		return mapRepoErr(s.store.Tags.Upsert(ctx, tx, &tag))
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[TagService] Тег %s сохранен", tag.ID)
	return &models.TagResponse{Tag: []models.Tag{tag}}, nil
}

// checkParent проверяет, что родитель существует и не приводит к циклу, а дерево
// вместе с потомками тега не становится глубже repository.MaxTagDepth.
func (s *tagService) checkParent(ctx context.Context, tx repository.DBTX, tagID, parentID uuid.UUID) error {
	if parentID == tagID {
		return apperr.New(apperr.KindInvalidInput, "тег не может быть родителем самому себе")
	}
	chain, err := s.store.Tags.Chain(ctx, tx, parentID, repository.MaxTagDepth)
	if err != nil {
		return err
	}
	if len(chain) == 0 {
		return apperr.New(apperr.KindNotFound, "родительский тег не найден")
	}
	for _, id := range chain {
		if id == tagID {
			return apperr.New(apperr.KindInvalidInput, "родитель тега приводит к циклу")
		}
	}
	if len(chain)+1 > repository.MaxTagDepth {
		return apperr.Newf(apperr.KindInvalidInput, "глубина дерева тегов не может превышать %d", repository.MaxTagDepth)
	}

	// Потомки переносимого тега опускаются вместе с ним
	height, err := s.store.Tags.Height(ctx, tx, tagID, repository.MaxTagDepth+1)
	if err != nil {
		return err
	}
	if len(chain)+max(height, 1) > repository.MaxTagDepth {
		return apperr.Newf(apperr.KindInvalidInput,
			"после переноса глубина дерева тегов превысит %d", repository.MaxTagDepth)
	}
	return nil
}
