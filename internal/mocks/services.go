package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/maynagashev/contactkeeper/internal/services"
	"github.com/maynagashev/contactkeeper/models"
)

// AuthService - мок services.AuthService.
type AuthService struct {
	mock.Mock
}

func (m *AuthService) Register(ctx context.Context, username, password string) error {
	return m.Called(ctx, username, password).Error(0)
}

func (m *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.Error(1)
}

func (m *AuthService) CurrentUser(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1) //nolint:errcheck // Ошибки кастования в моках приемлемы
}

// PersonaService - мок services.PersonaService.
type PersonaService struct {
	mock.Mock
}

func (m *PersonaService) List(
	ctx context.Context,
	userID int64,
	filter models.PersonaFilter,
) ([]models.PersonaListItem, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PersonaListItem), args.Error(1) //nolint:errcheck // Ошибки кастования в моках приемлемы
}

func (m *PersonaService) New(ctx context.Context, userID int64) *models.PersonaResponse {
	args := m.Called(ctx, userID)
	return args.Get(0).(*models.PersonaResponse) //nolint:errcheck // Ошибки кастования в моках приемлемы
}

func (m *PersonaService) Get(ctx context.Context, userID int64, personaID uuid.UUID) (*models.PersonaResponse, error) {
	args := m.Called(ctx, userID, personaID)
	return personaResponse(args.Get(0)), args.Error(1)
}

func (m *PersonaService) Put(
	ctx context.Context,
	userID int64,
	personaID uuid.UUID,
	req *models.PutPersonaRequest,
) (*models.PersonaResponse, error) {
	args := m.Called(ctx, userID, personaID, req)
	return personaResponse(args.Get(0)), args.Error(1)
}

func (m *PersonaService) Delete(ctx context.Context, userID int64, personaID uuid.UUID) error {
	return m.Called(ctx, userID, personaID).Error(0)
}

func (m *PersonaService) Reshare(
	ctx context.Context,
	userID int64,
	personaID uuid.UUID,
	req *models.ReshareRequest,
) (*models.PersonaResponse, error) {
	args := m.Called(ctx, userID, personaID, req)
	return personaResponse(args.Get(0)), args.Error(1)
}

func (m *PersonaService) Reown(ctx context.Context, userID int64, personaID uuid.UUID, req *models.ReownRequest) error {
	return m.Called(ctx, userID, personaID, req).Error(0)
}

func personaResponse(ret interface{}) *models.PersonaResponse {
	if ret == nil {
		return nil
	}
	return ret.(*models.PersonaResponse) //nolint:errcheck // Ошибки кастования в моках приемлемы
}

// BitService - мок services.BitService.
type BitService struct {
	mock.Mock
}

func (m *BitService) New(
	ctx context.Context,
	userID int64,
	personaID uuid.UUID,
	bitType models.BitType,
) (*models.BitResponse, error) {
	args := m.Called(ctx, userID, personaID, bitType)
	return bitResponse(args.Get(0)), args.Error(1)
}

func (m *BitService) Get(ctx context.Context, userID int64, personaID, bitID uuid.UUID) (*models.BitResponse, error) {
	args := m.Called(ctx, userID, personaID, bitID)
	return bitResponse(args.Get(0)), args.Error(1)
}

func (m *BitService) Put(
	ctx context.Context,
	userID int64,
	personaID, bitID uuid.UUID,
	req *models.PutBitRequest,
) (*models.BitResponse, error) {
	args := m.Called(ctx, userID, personaID, bitID, req)
	return bitResponse(args.Get(0)), args.Error(1)
}

func (m *BitService) Delete(ctx context.Context, userID int64, personaID, bitID uuid.UUID) error {
	return m.Called(ctx, userID, personaID, bitID).Error(0)
}

func (m *BitService) RotatePassword(ctx context.Context, userID int64, personaID, bitID uuid.UUID) error {
	return m.Called(ctx, userID, personaID, bitID).Error(0)
}

func (m *BitService) Reorder(ctx context.Context, userID int64, personaID uuid.UUID, req *models.ReorderRequest) error {
	return m.Called(ctx, userID, personaID, req).Error(0)
}

func bitResponse(ret interface{}) *models.BitResponse {
	if ret == nil {
		return nil
	}
	return ret.(*models.BitResponse) //nolint:errcheck // Ошибки кастования в моках приемлемы
}

// TagService - мок services.TagService.
type TagService struct {
	mock.Mock
}

func (m *TagService) List(ctx context.Context) ([]models.TagListItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TagListItem), args.Error(1) //nolint:errcheck // Ошибки кастования в моках приемлемы
}

func (m *TagService) New(ctx context.Context) *models.TagResponse {
	return tagResponse(m.Called(ctx).Get(0))
}

func (m *TagService) Get(ctx context.Context, tagID uuid.UUID) (*models.TagResponse, error) {
	args := m.Called(ctx, tagID)
	return tagResponse(args.Get(0)), args.Error(1)
}

func (m *TagService) Put(ctx context.Context, tagID uuid.UUID, req *models.PutTagRequest) (*models.TagResponse, error) {
	args := m.Called(ctx, tagID, req)
	return tagResponse(args.Get(0)), args.Error(1)
}

func tagResponse(ret interface{}) *models.TagResponse {
	if ret == nil {
		return nil
	}
	return ret.(*models.TagResponse) //nolint:errcheck // Ошибки кастования в моках приемлемы
}

var (
	_ services.AuthService    = (*AuthService)(nil)
	_ services.PersonaService = (*PersonaService)(nil)
	_ services.BitService     = (*BitService)(nil)
	_ services.TagService     = (*TagService)(nil)
)
