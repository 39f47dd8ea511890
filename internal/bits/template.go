package bits

import (
	"github.com/google/uuid"

	"github.com/maynagashev/contactkeeper/internal/apperr"
	"github.com/maynagashev/contactkeeper/models"
)

// New возвращает пустую запись указанного вида с новым идентификатором.
// Запись не сохраняется, это шаблон для редактирования на клиенте.
func New(personaID uuid.UUID, bitType models.BitType) (*models.Bit, error) {
	data, err := models.NewBitData(bitType)
	if err != nil {
		return nil, apperr.Newf(apperr.KindInvalidInput,
			"неизвестный вид записи %q, допустимы: urls, email_addresses, phone_numbers, street_addresses", bitType)
	}
	return &models.Bit{
		ID:        uuid.New(),
		PersonaID: personaID,
		IsPrimary: false,
		Data:      data,
	}, nil
}
