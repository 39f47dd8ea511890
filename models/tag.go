package models

import "github.com/google/uuid"

// TagPathSeparator разделяет имена предков в пути тега.
const TagPathSeparator = "\u001C"

// Tag - иерархическая метка для группировки персон.
type Tag struct {
	ID       uuid.UUID  `db:"id" json:"id"`
	Name     string     `db:"name" json:"name"`
	ParentID *uuid.UUID `db:"parent_id" json:"parent_id"`
	Memo     *string    `db:"memo" json:"memo"`
}

// TagListItem - строка списка тегов с вычисленным путем.
type TagListItem struct {
	ID       uuid.UUID `db:"id" json:"id"`
	Name     string    `db:"name" json:"name"`
	PathName string    `db:"path_name" json:"path_name"`
}

// PutTagRequest - тело запроса на сохранение тега (ровно одна строка).
type PutTagRequest struct {
	Tag []Tag `json:"tag"`
}

// TagResponse - ответ с одним тегом.
type TagResponse struct {
	Tag  []Tag           `json:"tag"`
	Keys map[string]bool `json:"keys,omitempty"`
}

// TagListResponse - ответ со списком тегов.
type TagListResponse struct {
	Tags []TagListItem `json:"tags"`
}
