package bits

import (
	"github.com/google/uuid"

	"github.com/maynagashev/contactkeeper/internal/apperr"
	"github.com/maynagashev/contactkeeper/models"
)

// Reorder вычисляет новые номера двух записей одной персоны так, чтобы a оказалась
// перед b. Нумерация общая для всех видов записей персоны: записи обмениваются
// своими номерами, меньший достается a. Если номера совпадают, b получает номер
// после maxSeq (наибольшего номера среди записей персоны), чтобы номера остались
// уникальными.
// Если какой-либо записи нет (например, ее удалили параллельно) или она принадлежит
// другой персоне, возвращается ошибка not-found.
func Reorder(personaID uuid.UUID, a, b *models.BitPosition, maxSeq int) (seqA, seqB int, err error) {
	if a == nil || b == nil || a.PersonaID != personaID || b.PersonaID != personaID {
		return 0, 0, apperr.New(apperr.KindNotFound, "одна из переставляемых записей не найдена у персоны")
	}
	if a.ID == b.ID {
		return 0, 0, apperr.New(apperr.KindInvalidInput, "нельзя переставить запись саму с собой")
	}

	lo, hi := a.Sequence, b.Sequence
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo == hi {
		// Совпадающие номера остались от записей без нумерации
		hi = max(maxSeq, lo) + 1
	}
	return lo, hi, nil
}

// Tied сообщает, что у записей одинаковые номера и для перестановки нужен
// наибольший номер персоны.
func Tied(a, b *models.BitPosition) bool {
	return a != nil && b != nil && a.Sequence == b.Sequence
}
