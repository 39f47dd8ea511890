// Package bits определяет виды записей персоны по набору переданных полей,
// создает шаблоны новых записей и вычисляет порядок при перестановке.
package bits

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/maynagashev/contactkeeper/internal/apperr"
	"github.com/maynagashev/contactkeeper/models"
)

// Поля идентичности, которые не участвуют в определении вида.
const (
	fieldID        = "id"
	fieldPersonaID = "persona_id"
)

// CommonFields - поля, общие для всех видов записей.
var CommonFields = []string{"name", "memo", "is_primary"}

// variantFields - допустимые поля каждого вида. Первое поле - отличительное.
var variantFields = map[models.BitType][]string{
	models.BitTypeURL:     {"url", "username", "password", "pw_reset_dt", "pw_next_reset_dt"},
	models.BitTypeEmail:   {"email"},
	models.BitTypePhone:   {"number"},
	models.BitTypeAddress: {"address1", "address2", "city", "state", "zip", "country"},
}

// AllowedFields возвращает все допустимые поля вида записи (общие + собственные).
func AllowedFields(t models.BitType) []string {
	own, ok := variantFields[t]
	if !ok {
		return nil
	}
	return append(append([]string(nil), CommonFields...), own...)
}

// DistinguishingField возвращает поле, по которому распознается вид записи.
func DistinguishingField(t models.BitType) string {
	own := variantFields[t]
	if len(own) == 0 {
		return ""
	}
	return own[0]
}

// Classify определяет вид записи по именам переданных полей.
// Поля id и persona_id игнорируются. Ровно одно отличительное поле должно
// присутствовать, а остальные поля должны входить в набор допустимых для этого вида.
func Classify(fields []string) (models.BitType, error) {
	present := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f == fieldID || f == fieldPersonaID {
			continue
		}
		present[f] = struct{}{}
	}

	var matched []models.BitType
	for _, t := range models.BitTypes {
		if _, ok := present[DistinguishingField(t)]; ok {
			matched = append(matched, t)
		}
	}
	switch len(matched) {
	case 0:
		return "", apperr.New(apperr.KindAmbiguousVariant,
			"не передано ни одного поля, определяющего вид записи (url, email, number, address1)")
	case 1:
	default:
		names := make([]string, 0, len(matched))
		for _, t := range matched {
			names = append(names, string(t))
		}
		return "", apperr.Newf(apperr.KindAmbiguousVariant,
			"набор полей подходит сразу к нескольким видам записей: %s", strings.Join(names, ", "))
	}

	bitType := matched[0]
	allowed := make(map[string]struct{})
	for _, f := range AllowedFields(bitType) {
		allowed[f] = struct{}{}
	}
	var extra []string
	for f := range present {
		if _, ok := allowed[f]; !ok {
			extra = append(extra, f)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return "", apperr.Newf(apperr.KindInvalidField,
			"поля %s недопустимы для записи вида %s", strings.Join(extra, ", "), bitType)
	}
	return bitType, nil
}

// Decode определяет вид записи по строке запроса и разбирает ее в models.Bit.
// Идентификаторы записи и персоны берутся из аргументов, значения в строке
// должны с ними совпадать, если переданы. Переданные поля отмечаются в Bit.Fields:
// при сохранении существующей записи меняются только они.
func Decode(personaID, bitID uuid.UUID, row map[string]json.RawMessage) (*models.Bit, error) {
	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	bitType, err := Classify(names)
	if err != nil {
		return nil, err
	}

	if err = checkIdentity(row, fieldID, bitID); err != nil {
		return nil, err
	}
	if err = checkIdentity(row, fieldPersonaID, personaID); err != nil {
		return nil, err
	}

	var common struct {
		Name      *string `json:"name"`
		Memo      *string `json:"memo"`
		IsPrimary *bool   `json:"is_primary"`
	}
	if err = decodeFields(row, CommonFields, &common); err != nil {
		return nil, err
	}

	data, err := models.NewBitData(bitType)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "неизвестный вид записи", err)
	}
	if err = decodeFields(row, variantFields[bitType], data); err != nil {
		return nil, err
	}
	if u, ok := data.(*models.URLData); ok {
		_, u.PasswordSet = row["password"]
	}

	bit := &models.Bit{
		ID:        bitID,
		PersonaID: personaID,
		Name:      common.Name,
		Memo:      common.Memo,
		Data:      data,
		Fields:    make(map[string]bool, len(names)),
	}
	for _, name := range names {
		if name != fieldID && name != fieldPersonaID {
			bit.Fields[name] = true
		}
	}
	if common.IsPrimary != nil {
		bit.IsPrimary = *common.IsPrimary
	}
	return bit, nil
}

func checkIdentity(row map[string]json.RawMessage, field string, expected uuid.UUID) error {
	raw, ok := row[field]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	var got uuid.UUID
	if err := json.Unmarshal(raw, &got); err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "поле "+field+" должно быть UUID", err)
	}
	if got != expected {
		return apperr.Newf(apperr.KindInvalidInput, "поле %s не совпадает с адресом запроса", field)
	}
	return nil
}

// decodeFields собирает подмножество полей строки в JSON-объект и разбирает его в dst.
func decodeFields(row map[string]json.RawMessage, fields []string, dst interface{}) error {
	subset := make(map[string]json.RawMessage, len(fields))
	for _, f := range fields {
		if raw, ok := row[f]; ok {
			subset[f] = raw
		}
	}
	raw, err := json.Marshal(subset)
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "неверный формат записи", err)
	}
	if err = json.Unmarshal(raw, dst); err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "неверный формат значения поля записи", err)
	}
	return nil
}
