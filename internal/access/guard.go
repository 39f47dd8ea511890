// Package access проверяет права пользователя на персону: владелец может изменять
// персону и ее записи, пользователь с доступом - только читать.
package access

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/maynagashev/contactkeeper/internal/apperr"
	"github.com/maynagashev/contactkeeper/internal/repository"
)

// Role - роль пользователя по отношению к персоне.
type Role int

// Роли.
const (
	RoleNone Role = iota
	RoleShareholder
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RoleShareholder:
		return "shareholder"
	case RoleOwner:
		return "owner"
	}
	return "none"
}

// Decision - результат успешной проверки прав.
type Decision struct {
	PersonaID uuid.UUID
	UserID    int64
	Role      Role
	// New - у персоны еще нет владельца (или ее еще нет в БД) и пользователь может ее занять.
	New bool
	// Exists - строка персоны уже есть в БД.
	Exists bool
}

// Guard проверяет права доступа. Все методы принимают транзакцию, в которой
// затем выполняется сама операция.
type Guard struct {
	repo repository.AccessRepository
}

// NewGuard создает Guard поверх репозитория доступов.
func NewGuard(repo repository.AccessRepository) *Guard {
	return &Guard{repo: repo}
}

// RequireShare пропускает владельца и пользователей с доступом на чтение.
// Остальным, как и для несуществующей персоны, возвращается not-authorized.
func (g *Guard) RequireShare(ctx context.Context, q repository.DBTX, userID int64, personaID uuid.UUID) (Decision, error) {
	owner, exists, err := g.repo.GetOwner(ctx, q, personaID, false)
	if err != nil {
		return Decision{}, err
	}
	if !exists {
		log.Printf("[Guard] Пользователь %d запросил несуществующую персону %s", userID, personaID)
		return Decision{}, apperr.ErrNotAuthorized
	}
	if owner != nil && *owner == userID {
		return Decision{PersonaID: personaID, UserID: userID, Role: RoleOwner, Exists: true}, nil
	}

	shared, err := g.repo.HasShare(ctx, q, personaID, userID)
	if err != nil {
		return Decision{}, err
	}
	if !shared {
		log.Printf("[Guard] Отказано: у пользователя %d нет доступа к персоне %s", userID, personaID)
		return Decision{}, apperr.ErrNotAuthorized
	}
	return Decision{PersonaID: personaID, UserID: userID, Role: RoleShareholder, Exists: true}, nil
}

// RequireOwner пропускает только владельца. Строка персоны блокируется до конца
// транзакции, поэтому изменения одной персоны выполняются последовательно.
// При allowNew проверка проходит и для персоны без владельца: так новая персона
// получает владельца при первом сохранении.
func (g *Guard) RequireOwner(
	ctx context.Context,
	q repository.DBTX,
	userID int64,
	personaID uuid.UUID,
	allowNew bool,
) (Decision, error) {
	owner, exists, err := g.repo.GetOwner(ctx, q, personaID, true)
	if err != nil {
		return Decision{}, err
	}
	if owner == nil {
		if allowNew {
			return Decision{PersonaID: personaID, UserID: userID, Role: RoleNone, New: true, Exists: exists}, nil
		}
		log.Printf("[Guard] Отказано: у персоны %s нет владельца, пользователь %d", personaID, userID)
		return Decision{}, apperr.ErrNotOwner
	}
	if *owner != userID {
		log.Printf("[Guard] Отказано: пользователь %d не владелец персоны %s", userID, personaID)
		return Decision{}, apperr.ErrNotOwner
	}
	return Decision{PersonaID: personaID, UserID: userID, Role: RoleOwner, Exists: true}, nil
}

// ClaimOwnership назначает пользователя владельцем новой персоны и выдает ему доступ.
// Вызывается в той же транзакции, что и вставка персоны.
func (g *Guard) ClaimOwnership(ctx context.Context, q repository.DBTX, userID int64, personaID uuid.UUID) error {
	if err := g.repo.SetOwner(ctx, q, personaID, userID); err != nil {
		return mapRepoErr(err)
	}
	if err := g.repo.AddShare(ctx, q, personaID, userID); err != nil {
		return mapRepoErr(err)
	}
	log.Printf("[Guard] Пользователь %d стал владельцем персоны %s", userID, personaID)
	return nil
}

// Reown передает владение персоной другому пользователю. Новый владелец получает
// доступ, прежний владелец свой доступ сохраняет.
func (g *Guard) Reown(ctx context.Context, q repository.DBTX, userID int64, personaID uuid.UUID, newOwner int64) error {
	if _, err := g.RequireOwner(ctx, q, userID, personaID, false); err != nil {
		return err
	}
	if err := g.repo.AddShare(ctx, q, personaID, newOwner); err != nil {
		return mapRepoErr(err)
	}
	if err := g.repo.SetOwner(ctx, q, personaID, newOwner); err != nil {
		return mapRepoErr(err)
	}
	log.Printf("[Guard] Персона %s передана от пользователя %d пользователю %d", personaID, userID, newOwner)
	return nil
}

// Reshare выдает и отзывает доступ на чтение. Отозвать доступ у владельца нельзя.
func (g *Guard) Reshare(
	ctx context.Context,
	q repository.DBTX,
	userID int64,
	personaID uuid.UUID,
	add, remove []int64,
) error {
	if _, err := g.RequireOwner(ctx, q, userID, personaID, false); err != nil {
		return err
	}
	for _, id := range remove {
		if id == userID {
			return apperr.New(apperr.KindInvalidInput, "нельзя отозвать доступ у владельца персоны")
		}
	}
	for _, id := range add {
		if err := g.repo.AddShare(ctx, q, personaID, id); err != nil {
			return mapRepoErr(err)
		}
	}
	for _, id := range remove {
		if err := g.repo.RemoveShare(ctx, q, personaID, id); err != nil {
			return mapRepoErr(err)
		}
	}
	log.Printf("[Guard] Доступ к персоне %s изменен: +%d, -%d", personaID, len(add), len(remove))
	return nil
}

func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return apperr.Wrap(apperr.KindNotFound, "пользователь не найден", err)
	case errors.Is(err, repository.ErrPersonaNotFound):
		return apperr.Wrap(apperr.KindNotFound, "персона не найдена", err)
	}
	return err
}
