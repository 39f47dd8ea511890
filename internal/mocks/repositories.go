// Package mocks содержит моки на testify/mock для тестов сервисов, Guard и обработчиков.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/maynagashev/contactkeeper/internal/repository"
	"github.com/maynagashev/contactkeeper/models"
)

// Transactor выполняет fn без настоящей транзакции. Committed/RolledBack
// отражают исход последнего вызова.
type Transactor struct {
	Calls      int
	Committed  int
	RolledBack int
}

func (t *Transactor) WithinTx(_ context.Context, fn func(tx repository.DBTX) error) error {
	t.Calls++
	if err := fn(nil); err != nil {
		t.RolledBack++
		return err
	}
	t.Committed++
	return nil
}

// AccessRepository - мок repository.AccessRepository.
type AccessRepository struct {
	mock.Mock
}

func (m *AccessRepository) GetOwner(
	ctx context.Context,
	q repository.DBTX,
	personaID uuid.UUID,
	lock bool,
) (*int64, bool, error) {
	args := m.Called(ctx, q, personaID, lock)
	var owner *int64
	if ret := args.Get(0); ret != nil {
		//nolint:errcheck // Ошибки кастования в моках приемлемы
		owner = ret.(*int64)
	}
	return owner, args.Bool(1), args.Error(2)
}

func (m *AccessRepository) HasShare(ctx context.Context, q repository.DBTX, personaID uuid.UUID, userID int64) (bool, error) {
	args := m.Called(ctx, q, personaID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *AccessRepository) SetOwner(ctx context.Context, q repository.DBTX, personaID uuid.UUID, userID int64) error {
	return m.Called(ctx, q, personaID, userID).Error(0)
}

func (m *AccessRepository) AddShare(ctx context.Context, q repository.DBTX, personaID uuid.UUID, userID int64) error {
	return m.Called(ctx, q, personaID, userID).Error(0)
}

func (m *AccessRepository) RemoveShare(ctx context.Context, q repository.DBTX, personaID uuid.UUID, userID int64) error {
	return m.Called(ctx, q, personaID, userID).Error(0)
}

func (m *AccessRepository) ListShares(ctx context.Context, q repository.DBTX, personaID uuid.UUID) ([]models.Share, error) {
	args := m.Called(ctx, q, personaID)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]models.Share), args.Error(1)
}

// PersonaRepository - мок repository.PersonaRepository.
type PersonaRepository struct {
	mock.Mock
}

func (m *PersonaRepository) List(
	ctx context.Context,
	q repository.DBTX,
	userID int64,
	filter models.PersonaFilter,
) ([]models.PersonaListItem, error) {
	args := m.Called(ctx, q, userID, filter)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]models.PersonaListItem), args.Error(1)
}

func (m *PersonaRepository) Get(ctx context.Context, q repository.DBTX, personaID uuid.UUID) (*models.Persona, error) {
	args := m.Called(ctx, q, personaID)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.Persona), args.Error(1)
}

func (m *PersonaRepository) Insert(ctx context.Context, q repository.DBTX, persona *models.Persona) error {
	return m.Called(ctx, q, persona).Error(0)
}

func (m *PersonaRepository) Update(ctx context.Context, q repository.DBTX, persona *models.Persona) error {
	return m.Called(ctx, q, persona).Error(0)
}

func (m *PersonaRepository) Delete(ctx context.Context, q repository.DBTX, personaID uuid.UUID) error {
	return m.Called(ctx, q, personaID).Error(0)
}

func (m *PersonaRepository) AddTags(ctx context.Context, q repository.DBTX, personaID uuid.UUID, tagIDs []uuid.UUID) error {
	return m.Called(ctx, q, personaID, tagIDs).Error(0)
}

func (m *PersonaRepository) RemoveTags(
	ctx context.Context,
	q repository.DBTX,
	personaID uuid.UUID,
	tagIDs []uuid.UUID,
) error {
	return m.Called(ctx, q, personaID, tagIDs).Error(0)
}

// BitRepository - мок repository.BitRepository.
type BitRepository struct {
	mock.Mock
}

func (m *BitRepository) ListByPersona(ctx context.Context, q repository.DBTX, personaID uuid.UUID) ([]models.Bit, error) {
	args := m.Called(ctx, q, personaID)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]models.Bit), args.Error(1)
}

func (m *BitRepository) Get(ctx context.Context, q repository.DBTX, personaID, bitID uuid.UUID) (*models.Bit, error) {
	args := m.Called(ctx, q, personaID, bitID)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.Bit), args.Error(1)
}

func (m *BitRepository) Upsert(ctx context.Context, q repository.DBTX, bit *models.Bit) error {
	return m.Called(ctx, q, bit).Error(0)
}

func (m *BitRepository) Delete(ctx context.Context, q repository.DBTX, personaID, bitID uuid.UUID) error {
	return m.Called(ctx, q, personaID, bitID).Error(0)
}

func (m *BitRepository) GetPositions(
	ctx context.Context,
	q repository.DBTX,
	personaID uuid.UUID,
	bitIDs ...uuid.UUID,
) ([]models.BitPosition, error) {
	args := m.Called(ctx, q, personaID, bitIDs)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]models.BitPosition), args.Error(1)
}

func (m *BitRepository) SetSequence(ctx context.Context, q repository.DBTX, pos models.BitPosition, sequence int) error {
	return m.Called(ctx, q, pos, sequence).Error(0)
}

func (m *BitRepository) MaxSequence(ctx context.Context, q repository.DBTX, personaID uuid.UUID) (int, error) {
	args := m.Called(ctx, q, personaID)
	return args.Int(0), args.Error(1)
}

func (m *BitRepository) GetPasswordEnc(ctx context.Context, q repository.DBTX, personaID, bitID uuid.UUID) ([]byte, error) {
	args := m.Called(ctx, q, personaID, bitID)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]byte), args.Error(1)
}

func (m *BitRepository) SetPasswordEnc(
	ctx context.Context,
	q repository.DBTX,
	personaID, bitID uuid.UUID,
	enc []byte,
) error {
	return m.Called(ctx, q, personaID, bitID, enc).Error(0)
}

// TagRepository - мок repository.TagRepository.
type TagRepository struct {
	mock.Mock
}

func (m *TagRepository) List(ctx context.Context, q repository.DBTX) ([]models.TagListItem, error) {
	args := m.Called(ctx, q)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]models.TagListItem), args.Error(1)
}

func (m *TagRepository) Get(ctx context.Context, q repository.DBTX, tagID uuid.UUID) (*models.Tag, error) {
	args := m.Called(ctx, q, tagID)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.Tag), args.Error(1)
}

func (m *TagRepository) Upsert(ctx context.Context, q repository.DBTX, tag *models.Tag) error {
	return m.Called(ctx, q, tag).Error(0)
}

func (m *TagRepository) Chain(ctx context.Context, q repository.DBTX, tagID uuid.UUID, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, q, tagID, limit)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]uuid.UUID), args.Error(1)
}

func (m *TagRepository) Height(ctx context.Context, q repository.DBTX, tagID uuid.UUID, limit int) (int, error) {
	args := m.Called(ctx, q, tagID, limit)
	return args.Int(0), args.Error(1)
}

// UserRepository - мок repository.UserRepository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	args := m.Called(ctx, user)
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return args.Get(0).(int64), args.Error(1)
}

func (m *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.User), args.Error(1)
}

func (m *UserRepository) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.User), args.Error(1)
}

// ChangePublisher - мок repository.ChangePublisher.
type ChangePublisher struct {
	mock.Mock
}

func (m *ChangePublisher) PersonaChanged(ctx context.Context, q repository.DBTX, personaID uuid.UUID) error {
	return m.Called(ctx, q, personaID).Error(0)
}

var (
	_ repository.Transactor        = (*Transactor)(nil)
	_ repository.AccessRepository  = (*AccessRepository)(nil)
	_ repository.PersonaRepository = (*PersonaRepository)(nil)
	_ repository.BitRepository     = (*BitRepository)(nil)
	_ repository.TagRepository     = (*TagRepository)(nil)
	_ repository.UserRepository    = (*UserRepository)(nil)
	_ repository.ChangePublisher   = (*ChangePublisher)(nil)
)
