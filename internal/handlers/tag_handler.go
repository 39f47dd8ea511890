package handlers

import (
	"net/http"

	"github.com/maynagashev/contactkeeper/internal/services"
	"github.com/maynagashev/contactkeeper/models"
)

// TagHandler обрабатывает HTTP-запросы к тегам.
type TagHandler struct {
	service services.TagService
}

// NewTagHandler создает новый экземпляр TagHandler.
func NewTagHandler(s services.TagService) *TagHandler {
	return &TagHandler{service: s}
}

// List возвращает все теги, упорядоченные по пути.
func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	const op = "TagHandler:List"
	items, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, op, http.StatusOK, models.TagListResponse{Tags: items})
}

func (h *TagHandler) New(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, "TagHandler:New", http.StatusOK, h.service.New(r.Context()))
}

func (h *TagHandler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "TagHandler:Get"
	tagID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, op, err)
		return
	}
	resp, err := h.service.Get(r.Context(), tagID)
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, op, http.StatusOK, resp)
}

func (h *TagHandler) Put(w http.ResponseWriter, r *http.Request) {
	const op = "TagHandler:Put"
	tagID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, op, err)
		return
	}
	var req models.PutTagRequest
	if err = decodeJSON(r, &req); err != nil {
		writeError(w, op, err)
		return
	}
	resp, err := h.service.Put(r.Context(), tagID, &req)
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, op, http.StatusOK, resp)
}
