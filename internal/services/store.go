package services

import (
	"errors"

	"github.com/maynagashev/contactkeeper/internal/apperr"
	"github.com/maynagashev/contactkeeper/internal/cipher"
	"github.com/maynagashev/contactkeeper/internal/repository"
	"github.com/maynagashev/contactkeeper/models"
)

// Store объединяет репозитории, с которыми работают сервисы персон, записей и тегов.
type Store struct {
	Tx       repository.Transactor
	Personas repository.PersonaRepository
	Bits     repository.BitRepository
	Tags     repository.TagRepository
	Access   repository.AccessRepository
	Changes  repository.ChangePublisher
}

// mapRepoErr переводит ошибки репозиториев в ошибки предметной области.
func mapRepoErr(err error) error {
	var appErr *apperr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repository.ErrPersonaNotFound):
		return apperr.Wrap(apperr.KindNotFound, "персона не найдена", err)
	case errors.Is(err, repository.ErrPersonaExists):
		return apperr.Wrap(apperr.KindConflict, "персона с таким ID уже существует", err)
	case errors.Is(err, repository.ErrBitNotFound):
		return apperr.Wrap(apperr.KindNotFound, "запись персоны не найдена", err)
	case errors.Is(err, repository.ErrTagNotFound):
		return apperr.Wrap(apperr.KindNotFound, "тег не найден", err)
	case errors.Is(err, repository.ErrUserNotFound):
		return apperr.Wrap(apperr.KindNotFound, "пользователь не найден", err)
	}
	return err
}

// revealPassword расшифровывает пароль записи-ссылки для ответа клиенту.
// Зашифрованное значение из ответа убирается.
func revealPassword(c *cipher.Cipher, bit *models.Bit) error {
	u, ok := bit.URL()
	if !ok {
		return nil
	}
	password, err := c.Decrypt(u.PasswordEnc)
	if err != nil {
		return err
	}
	u.Password = password
	u.PasswordEnc = nil
	return nil
}
