package handlers

import (
	"net/http"

	"github.com/maynagashev/contactkeeper/internal/services"
	"github.com/maynagashev/contactkeeper/models"
)

// BitHandler обрабатывает HTTP-запросы к записям персон.
type BitHandler struct {
	service services.BitService
}

// NewBitHandler создает новый экземпляр BitHandler.
func NewBitHandler(s services.BitService) *BitHandler {
	return &BitHandler{service: s}
}

// New возвращает шаблон записи вида из параметра bit_type.
func (h *BitHandler) New(w http.ResponseWriter, r *http.Request) {
	const op = "BitHandler:New"
	userID, ok := requireUser(w, r, op)
	if !ok {
		return
	}
	personaID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, op, err)
		return
	}

	bitType := models.BitType(r.URL.Query().Get("bit_type"))
	resp, err := h.service.New(r.Context(), userID, personaID, bitType)
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, op, http.StatusOK, resp)
}

func (h *BitHandler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "BitHandler:Get"
	userID, ok := requireUser(w, r, op)
	if !ok {
		return
	}
	personaID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, op, err)
		return
	}
	bitID, err := uuidParam(r, "bit_id")
	if err != nil {
		writeError(w, op, err)
		return
	}

	resp, err := h.service.Get(r.Context(), userID, personaID, bitID)
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, op, http.StatusOK, resp)
}

func (h *BitHandler) Put(w http.ResponseWriter, r *http.Request) {
	const op = "BitHandler:Put"
	userID, ok := requireUser(w, r, op)
	if !ok {
		return
	}
	personaID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, op, err)
		return
	}
	bitID, err := uuidParam(r, "bit_id")
	if err != nil {
		writeError(w, op, err)
		return
	}
	var req models.PutBitRequest
	if err = decodeJSON(r, &req); err != nil {
		writeError(w, op, err)
		return
	}

	resp, err := h.service.Put(r.Context(), userID, personaID, bitID, &req)
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, op, http.StatusOK, resp)
}

func (h *BitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "BitHandler:Delete"
	userID, ok := requireUser(w, r, op)
	if !ok {
		return
	}
	personaID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, op, err)
		return
	}
	bitID, err := uuidParam(r, "bit_id")
	if err != nil {
		writeError(w, op, err)
		return
	}

	if err = h.service.Delete(r.Context(), userID, personaID, bitID); err != nil {
		writeError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RotatePassword перешифровывает пароль записи основным ключом.
func (h *BitHandler) RotatePassword(w http.ResponseWriter, r *http.Request) {
	const op = "BitHandler:RotatePassword"
	userID, ok := requireUser(w, r, op)
	if !ok {
		return
	}
	personaID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, op, err)
		return
	}
	bitID, err := uuidParam(r, "bit_id")
	if err != nil {
		writeError(w, op, err)
		return
	}

	if err = h.service.RotatePassword(r.Context(), userID, personaID, bitID); err != nil {
		writeError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reorder ставит запись bit_a перед bit_b.
func (h *BitHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	const op = "BitHandler:Reorder"
	userID, ok := requireUser(w, r, op)
	if !ok {
		return
	}
	personaID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, op, err)
		return
	}
	var req models.ReorderRequest
	if err = decodeJSON(r, &req); err != nil {
		writeError(w, op, err)
		return
	}

	if err = h.service.Reorder(r.Context(), userID, personaID, &req); err != nil {
		writeError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
