package services

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/maynagashev/contactkeeper/internal/access"
	"github.com/maynagashev/contactkeeper/internal/apperr"
	"github.com/maynagashev/contactkeeper/internal/bits"
	"github.com/maynagashev/contactkeeper/internal/cipher"
	"github.com/maynagashev/contactkeeper/internal/repository"
	"github.com/maynagashev/contactkeeper/models"
)

// BitService определяет операции над записями персон.
type BitService interface {
	// New возвращает шаблон новой записи указанного вида. В БД ничего не сохраняется.
	New(ctx context.Context, userID int64, personaID uuid.UUID, bitType models.BitType) (*models.BitResponse, error)
	Get(ctx context.Context, userID int64, personaID, bitID uuid.UUID) (*models.BitResponse, error)
	// Put определяет вид записи по переданным полям, шифрует пароль и сохраняет запись.
	Put(ctx context.Context, userID int64, personaID, bitID uuid.UUID, req *models.PutBitRequest) (*models.BitResponse, error)
	Delete(ctx context.Context, userID int64, personaID, bitID uuid.UUID) error
	// RotatePassword перешифровывает пароль записи основным ключом.
	RotatePassword(ctx context.Context, userID int64, personaID, bitID uuid.UUID) error
	// Reorder меняет порядок двух записей так, чтобы BitA оказалась перед BitB.
	Reorder(ctx context.Context, userID int64, personaID uuid.UUID, req *models.ReorderRequest) error
}

// Убедимся, что bitService удовлетворяет интерфейсу BitService.
var _ BitService = (*bitService)(nil)

type bitService struct {
	store  Store
	guard  *access.Guard
	cipher *cipher.Cipher
}

// NewBitService создает сервис записей.
func NewBitService(store Store, guard *access.Guard, c *cipher.Cipher) BitService {
	return &bitService{store: store, guard: guard, cipher: c}
}

func (s *bitService) New(
	ctx context.Context,
	userID int64,
	personaID uuid.UUID,
	bitType models.BitType,
) (*models.BitResponse, error) {
	if !bitType.Valid() {
		return nil, apperr.Newf(apperr.KindInvalidInput, "неизвестный вид записи: %q", bitType)
	}
	err := s.store.Tx.WithinTx(ctx, func(tx repository.DBTX) error {
		_, err := s.guard.RequireOwner(ctx, tx, userID, personaID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	bit, err := bits.New(personaID, bitType)
	if err != nil {
		return nil, err
	}
	return &models.BitResponse{Bit: []models.Bit{*bit}, Keys: map[string]bool{KeyNewRow: true}}, nil
}

func (s *bitService) Get(ctx context.Context, userID int64, personaID, bitID uuid.UUID) (*models.BitResponse, error) {
	var bit *models.Bit
	err := s.store.Tx.WithinTx(ctx, func(tx repository.DBTX) error {
		if _, err := s.guard.RequireShare(ctx, tx, userID, personaID); err != nil {
			return err
		}
		var err error
		bit, err = s.store.Bits.Get(ctx, tx, personaID, bitID)
		return mapRepoErr(err)
	})
	if err != nil {
		return nil, err
	}
	if err = revealPassword(s.cipher, bit); err != nil {
		return nil, err
	}
	return &models.BitResponse{Bit: []models.Bit{*bit}}, nil
}

func (s *bitService) Put(
	ctx context.Context,
	userID int64,
	personaID, bitID uuid.UUID,
	req *models.PutBitRequest,
) (*models.BitResponse, error) {
	if req == nil || len(req.Bit) != 1 {
		return nil, apperr.New(apperr.KindInvalidInput, "таблица bit должна содержать ровно одну строку")
	}
	bit, err := bits.Decode(personaID, bitID, req.Bit[0])
	if err != nil {
		return nil, err
	}
	if u, ok := bit.URL(); ok && u.PasswordSet {
		if u.PasswordEnc, err = s.cipher.Encrypt(u.Password); err != nil {
			return nil, err
		}
		u.Password = nil
	}

	var saved *models.Bit
	err = s.store.Tx.WithinTx(ctx, func(tx repository.DBTX) error {
		if _, err := s.guard.RequireOwner(ctx, tx, userID, personaID, false); err != nil {
			return err
		}

		existing, err := s.store.Bits.GetPositions(ctx, tx, personaID, bitID)
		if err != nil {
			return err
		}
		if len(existing) > 0 && existing[0].BitType != bit.Type() {
			return apperr.Newf(apperr.KindInvalidInput,
				"запись %s имеет вид %s, изменить вид записи нельзя", bitID, existing[0].BitType)
		}

		if err = s.store.Bits.Upsert(ctx, tx, bit); err != nil {
			if errors.Is(err, repository.ErrBitNotFound) {
				return apperr.Wrap(apperr.KindConflict, "запись с таким ID принадлежит другой персоне", err)
			}
			return err
		}
		if err = s.store.Changes.PersonaChanged(ctx, tx, personaID); err != nil {
			return err
		}
		saved, err = s.store.Bits.Get(ctx, tx, personaID, bitID)
		return mapRepoErr(err)
	})
	if err != nil {
		return nil, err
	}
	if err = revealPassword(s.cipher, saved); err != nil {
		return nil, err
	}
	log.Printf("[BitService] Запись %s (%s) персоны %s сохранена пользователем %d", bitID, bit.Type(), personaID, userID)
	return &models.BitResponse{Bit: []models.Bit{*saved}}, nil
}

func (s *bitService) Delete(ctx context.Context, userID int64, personaID, bitID uuid.UUID) error {
	return s.store.Tx.WithinTx(ctx, func(tx repository.DBTX) error {
		if _, err := s.guard.RequireOwner(ctx, tx, userID, personaID, false); err != nil {
			return err
		}
		if err := s.store.Bits.Delete(ctx, tx, personaID, bitID); err != nil {
			return mapRepoErr(err)
		}
		return s.store.Changes.PersonaChanged(ctx, tx, personaID)
	})
}

func (s *bitService) RotatePassword(ctx context.Context, userID int64, personaID, bitID uuid.UUID) error {
	return s.store.Tx.WithinTx(ctx, func(tx repository.DBTX) error {
		if _, err := s.guard.RequireOwner(ctx, tx, userID, personaID, false); err != nil {
			return err
		}
		enc, err := s.store.Bits.GetPasswordEnc(ctx, tx, personaID, bitID)
		if err != nil {
			return mapRepoErr(err)
		}
		if enc == nil {
			return nil
		}
		rotated, err := s.cipher.Rotate(enc)
		if err != nil {
			log.Printf("[BitService] Не удалось перешифровать пароль записи %s", bitID)
			return err
		}
		if err = s.store.Bits.SetPasswordEnc(ctx, tx, personaID, bitID, rotated); err != nil {
			return mapRepoErr(err)
		}
		log.Printf("[BitService] Пароль записи %s персоны %s перешифрован", bitID, personaID)
		return s.store.Changes.PersonaChanged(ctx, tx, personaID)
	})
}

func (s *bitService) Reorder(ctx context.Context, userID int64, personaID uuid.UUID, req *models.ReorderRequest) error {
	if req == nil || req.BitA == uuid.Nil || req.BitB == uuid.Nil {
		return apperr.New(apperr.KindInvalidInput, "нужно указать bit_a и bit_b")
	}
	if req.BitA == req.BitB {
		return apperr.New(apperr.KindInvalidInput, "нельзя переставить запись саму с собой")
	}
	return s.store.Tx.WithinTx(ctx, func(tx repository.DBTX) error {
		if _, err := s.guard.RequireOwner(ctx, tx, userID, personaID, false); err != nil {
			return err
		}
		positions, err := s.store.Bits.GetPositions(ctx, tx, personaID, req.BitA, req.BitB)
		if err != nil {
			return err
		}
		var a, b *models.BitPosition
		for i := range positions {
			switch positions[i].ID {
			case req.BitA:
				a = &positions[i]
			case req.BitB:
				b = &positions[i]
			}
		}

		maxSeq := 0
		if bits.Tied(a, b) {
			if maxSeq, err = s.store.Bits.MaxSequence(ctx, tx, personaID); err != nil {
				return err
			}
		}
		seqA, seqB, err := bits.Reorder(personaID, a, b, maxSeq)
		if err != nil {
			return err
		}
		if err = s.store.Bits.SetSequence(ctx, tx, *a, seqA); err != nil {
			return mapRepoErr(err)
		}
		if err = s.store.Bits.SetSequence(ctx, tx, *b, seqB); err != nil {
			return mapRepoErr(err)
		}
		return s.store.Changes.PersonaChanged(ctx, tx, personaID)
	})
}
