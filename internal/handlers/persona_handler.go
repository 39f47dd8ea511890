package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/maynagashev/contactkeeper/internal/apperr"
	"github.com/maynagashev/contactkeeper/internal/services"
	"github.com/maynagashev/contactkeeper/models"
)

// Разделитель идентификаторов в параметре included.
const includedSeparator = ";"

// PersonaHandler обрабатывает HTTP-запросы к персонам.
type PersonaHandler struct {
	service services.PersonaService
}

// NewPersonaHandler создает новый экземпляр PersonaHandler.
func NewPersonaHandler(s services.PersonaService) *PersonaHandler {
	return &PersonaHandler{service: s}
}

// List возвращает персоны, доступные пользователю.
// Параметры: frag - фрагмент для поиска, tag_id - тег, included - id через ";".
func (h *PersonaHandler) List(w http.ResponseWriter, r *http.Request) {
	const op = "PersonaHandler:List"
	userID, ok := requireUser(w, r, op)
	if !ok {
		return
	}

	filter, err := parsePersonaFilter(r)
	if err != nil {
		writeError(w, op, err)
		return
	}

	items, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, op, http.StatusOK, models.PersonaListResponse{Personas: items})
}

// New возвращает шаблон новой персоны.
func (h *PersonaHandler) New(w http.ResponseWriter, r *http.Request) {
	const op = "PersonaHandler:New"
	userID, ok := requireUser(w, r, op)
	if !ok {
		return
	}
	writeJSON(w, op, http.StatusOK, h.service.New(r.Context(), userID))
}

// Get возвращает персону с записями и списком доступов.
func (h *PersonaHandler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "PersonaHandler:Get"
	userID, ok := requireUser(w, r, op)
	if !ok {
		return
	}
	personaID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, op, err)
		return
	}

	resp, err := h.service.Get(r.Context(), userID, personaID)
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, op, http.StatusOK, resp)
}

// Put создает или обновляет персону.
func (h *PersonaHandler) Put(w http.ResponseWriter, r *http.Request) {
	const op = "PersonaHandler:Put"
	userID, ok := requireUser(w, r, op)
	if !ok {
		return
	}
	personaID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, op, err)
		return
	}
	var req models.PutPersonaRequest
	if err = decodeJSON(r, &req); err != nil {
		writeError(w, op, err)
		return
	}

	resp, err := h.service.Put(r.Context(), userID, personaID, &req)
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, op, http.StatusOK, resp)
}

// Delete удаляет персону вместе с записями.
func (h *PersonaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "PersonaHandler:Delete"
	userID, ok := requireUser(w, r, op)
	if !ok {
		return
	}
	personaID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, op, err)
		return
	}

	if err = h.service.Delete(r.Context(), userID, personaID); err != nil {
		writeError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reshare изменяет список пользователей с доступом на чтение.
func (h *PersonaHandler) Reshare(w http.ResponseWriter, r *http.Request) {
	const op = "PersonaHandler:Reshare"
	userID, ok := requireUser(w, r, op)
	if !ok {
		return
	}
	personaID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, op, err)
		return
	}
	var req models.ReshareRequest
	if err = decodeJSON(r, &req); err != nil {
		writeError(w, op, err)
		return
	}

	resp, err := h.service.Reshare(r.Context(), userID, personaID, &req)
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, op, http.StatusOK, resp)
}

// Reown передает владение персоной другому пользователю.
func (h *PersonaHandler) Reown(w http.ResponseWriter, r *http.Request) {
	const op = "PersonaHandler:Reown"
	userID, ok := requireUser(w, r, op)
	if !ok {
		return
	}
	personaID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, op, err)
		return
	}
	var req models.ReownRequest
	if err = decodeJSON(r, &req); err != nil {
		writeError(w, op, err)
		return
	}

	if err = h.service.Reown(r.Context(), userID, personaID, &req); err != nil {
		writeError(w, op, err)
		return
	}
	log.Printf("[%s] Персона %s передана пользователю %d", op, personaID, req.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func parsePersonaFilter(r *http.Request) (models.PersonaFilter, error) {
	query := r.URL.Query()
	filter := models.PersonaFilter{Frag: query.Get("frag")}

	if raw := query.Get("tag_id"); raw != "" {
		tagID, err := uuid.Parse(raw)
		if err != nil {
			return filter, apperr.Wrap(apperr.KindInvalidInput, "параметр tag_id должен быть UUID", err)
		}
		filter.TagID = &tagID
	}

	for _, raw := range strings.Split(query.Get("included"), includedSeparator) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, apperr.Wrap(apperr.KindInvalidInput, "параметр included должен содержать UUID", err)
		}
		filter.Included = append(filter.Included, id)
	}
	return filter, nil
}
