package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BitType - вид записи (bit), прикрепленной к персоне. Совпадает с именем таблицы.
type BitType string

// Виды записей.
const (
	BitTypeURL     BitType = "urls"
	BitTypeEmail   BitType = "email_addresses"
	BitTypePhone   BitType = "phone_numbers"
	BitTypeAddress BitType = "street_addresses"
)

// BitTypes перечисляет все виды записей в фиксированном порядке.
var BitTypes = []BitType{BitTypeURL, BitTypeEmail, BitTypePhone, BitTypeAddress}

// Valid сообщает, является ли значение известным видом записи.
func (t BitType) Valid() bool {
	for _, bt := range BitTypes {
		if t == bt {
			return true
		}
	}
	return false
}

// Bit - запись персоны. Общие поля хранятся здесь, поля конкретного вида - в Data.
type Bit struct {
	ID        uuid.UUID
	PersonaID uuid.UUID
	Name      *string
	Memo      *string
	IsPrimary bool
	Sequence  int
	Data      BitData

	// Fields - поля, переданные в запросе. nil означает, что переданы все поля.
	Fields map[string]bool
}

// Has сообщает, было ли поле передано в запросе.
func (b *Bit) Has(field string) bool {
	return b.Fields == nil || b.Fields[field]
}

// BitData - поля конкретного вида записи. Реализации: *URLData, *EmailData,
// *PhoneData, *AddressData.
type BitData interface {
	BitType() BitType
}

// URLData - ссылка с учетными данными.
// Password заполняется только на границе API, в БД хранится PasswordEnc.
// PasswordSet отмечает, что пароль был передан в запросе; иначе сохраненный
// секрет не изменяется.
type URLData struct {
	URL           *string    `json:"url"`
	Username      *string    `json:"username"`
	Password      *string    `json:"password"`
	PasswordEnc   []byte     `json:"-"`
	PasswordSet   bool       `json:"-"`
	PwResetDt     *time.Time `json:"pw_reset_dt"`
	PwNextResetDt *time.Time `json:"pw_next_reset_dt"`
}

// EmailData - адрес электронной почты.
type EmailData struct {
	Email *string `json:"email"`
}

// PhoneData - номер телефона.
type PhoneData struct {
	Number *string `json:"number"`
}

// AddressData - почтовый адрес.
type AddressData struct {
	Address1 *string `json:"address1"`
	Address2 *string `json:"address2"`
	City     *string `json:"city"`
	State    *string `json:"state"`
	Zip      *string `json:"zip"`
	Country  *string `json:"country"`
}

func (*URLData) BitType() BitType     { return BitTypeURL }
func (*EmailData) BitType() BitType   { return BitTypeEmail }
func (*PhoneData) BitType() BitType   { return BitTypePhone }
func (*AddressData) BitType() BitType { return BitTypeAddress }

// NewBitData возвращает пустые данные для указанного вида записи.
func NewBitData(t BitType) (BitData, error) {
	switch t {
	case BitTypeURL:
		return &URLData{}, nil
	case BitTypeEmail:
		return &EmailData{}, nil
	case BitTypePhone:
		return &PhoneData{}, nil
	case BitTypeAddress:
		return &AddressData{}, nil
	}
	return nil, fmt.Errorf("неизвестный вид записи: %q", t)
}

// Type возвращает вид записи или пустую строку, если данные не заданы.
func (b *Bit) Type() BitType {
	if b.Data == nil {
		return ""
	}
	return b.Data.BitType()
}

// URL возвращает данные ссылки, если запись является ссылкой.
func (b *Bit) URL() (*URLData, bool) {
	d, ok := b.Data.(*URLData)
	return d, ok
}

// MarshalJSON сериализует запись плоским объектом: общие поля, bit_type и поля вида.
func (b Bit) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"id":         b.ID,
		"persona_id": b.PersonaID,
		"bit_type":   b.Type(),
		"name":       b.Name,
		"memo":       b.Memo,
		"is_primary": b.IsPrimary,
		"sequence":   b.Sequence,
	}
	if b.Data != nil {
		raw, err := json.Marshal(b.Data)
		if err != nil {
			return nil, fmt.Errorf("ошибка сериализации полей записи: %w", err)
		}
		var fields map[string]json.RawMessage
		if err = json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("ошибка сериализации полей записи: %w", err)
		}
		for k, v := range fields {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

// BitPosition - положение записи в порядке отображения персоны.
type BitPosition struct {
	ID        uuid.UUID `db:"id"`
	PersonaID uuid.UUID `db:"persona_id"`
	BitType   BitType   `db:"bit_type"`
	Sequence  int       `db:"sequence"`
}

// PutBitRequest - тело запроса на сохранение записи. Строка передается как набор
// полей, по которому определяется вид записи.
type PutBitRequest struct {
	Bit []map[string]json.RawMessage `json:"bit"`
}

// BitResponse - ответ с одной записью.
type BitResponse struct {
	Bit  []Bit           `json:"bit"`
	Keys map[string]bool `json:"keys,omitempty"`
}
