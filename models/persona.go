package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Persona представляет контакт: человека или организацию.
// OwnerID равен nil только у новой, еще не сохраненной персоны.
type Persona struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	CorporateEntity bool       `db:"corporate_entity" json:"corporate_entity"`
	LName           *string    `db:"l_name" json:"l_name"`
	FName           *string    `db:"f_name" json:"f_name"`
	Title           *string    `db:"title" json:"title"`
	Organization    *string    `db:"organization" json:"organization"`
	Memo            *string    `db:"memo" json:"memo"`
	Birthday        *Date      `db:"birthday" json:"birthday"`
	Anniversary     *Date      `db:"anniversary" json:"anniversary"`
	OwnerID         *int64     `db:"owner_id" json:"owner_id"`
	EntityName      string     `db:"entity_name" json:"entity_name"` // Вычисляется в БД
	TagIDs          []string   `db:"-" json:"tag_ids"`

	// Fields - поля, переданные в запросе. nil означает, что переданы все поля.
	Fields map[string]bool `db:"-" json:"-"`
}

// Has сообщает, было ли поле передано в запросе.
func (p *Persona) Has(field string) bool {
	return p.Fields == nil || p.Fields[field]
}

// UnmarshalJSON разбирает строку персоны и запоминает, какие поля в ней были.
func (p *Persona) UnmarshalJSON(data []byte) error {
	type plain Persona
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	var present map[string]json.RawMessage
	if err := json.Unmarshal(data, &present); err != nil {
		return err
	}
	v.Fields = make(map[string]bool, len(present))
	for name := range present {
		v.Fields[name] = true
	}
	*p = Persona(v)
	return nil
}

// PersonaListItem - строка списка персон.
type PersonaListItem struct {
	ID           uuid.UUID `db:"id" json:"id"`
	EntityName   string    `db:"entity_name" json:"entity_name"`
	LName        *string   `db:"l_name" json:"l_name"`
	FName        *string   `db:"f_name" json:"f_name"`
	Title        *string   `db:"title" json:"title"`
	Organization *string   `db:"organization" json:"organization"`
}

// PersonaFilter - параметры фильтрации списка персон.
type PersonaFilter struct {
	Frag     string      // Фрагмент для полнотекстового поиска
	TagID    *uuid.UUID  // Фильтр по тегу
	Included []uuid.UUID // Персоны, которые возвращаются независимо от Frag
}

// Share - пользователь, которому открыт доступ на чтение персоны.
type Share struct {
	PersonaID uuid.UUID `db:"persona_id" json:"persona_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Username  string    `db:"username" json:"username"`
}

// TagDeltas - изменение набора тегов персоны.
type TagDeltas struct {
	TagsAdd    []uuid.UUID `json:"tags_add"`
	TagsRemove []uuid.UUID `json:"tags_remove"`
}

// PutPersonaRequest - тело запроса на сохранение персоны.
// Таблицы передаются списками строк: persona должна содержать ровно одну строку,
// tagdeltas - не более одной.
type PutPersonaRequest struct {
	Persona   []Persona   `json:"persona"`
	TagDeltas []TagDeltas `json:"tagdeltas,omitempty"`
}

// PersonaResponse - ответ с одной персоной и всем, что к ней относится.
type PersonaResponse struct {
	Persona []Persona       `json:"persona"`
	Bits    []Bit           `json:"bits"`
	Shares  []Share         `json:"shares"`
	Keys    map[string]bool `json:"keys,omitempty"`
}

// PersonaListResponse - ответ со списком персон.
type PersonaListResponse struct {
	Personas []PersonaListItem `json:"personas"`
}

// ReshareRequest - изменение списка пользователей с доступом на чтение.
type ReshareRequest struct {
	Add    []int64 `json:"add"`
	Remove []int64 `json:"remove"`
}

// ReownRequest - передача владения персоной.
type ReownRequest struct {
	UserID int64 `json:"user_id"`
}

// ReorderRequest - запрос на перестановку двух записей: BitA должна оказаться перед BitB.
type ReorderRequest struct {
	BitA uuid.UUID `json:"bit_a"`
	BitB uuid.UUID `json:"bit_b"`
}

// ChangeEvent - уведомление об изменении персоны.
type ChangeEvent struct {
	ID uuid.UUID `json:"id"`
}
