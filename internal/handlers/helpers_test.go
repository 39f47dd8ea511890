package handlers_test

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/contactkeeper/internal/handlers"
	"github.com/maynagashev/contactkeeper/internal/middleware"
	"github.com/maynagashev/contactkeeper/internal/mocks"
)

const testUserID = int64(1)

type handlerEnv struct {
	personas *mocks.PersonaService
	bits     *mocks.BitService
	tags     *mocks.TagService
	router   *chi.Mux
}

// newHandlerEnv собирает роутер с обработчиками на моках сервисов. Маршруты
// совпадают с маршрутами сервера.
func newHandlerEnv() *handlerEnv {
	env := &handlerEnv{
		personas: new(mocks.PersonaService),
		bits:     new(mocks.BitService),
		tags:     new(mocks.TagService),
	}
	ph := handlers.NewPersonaHandler(env.personas)
	bh := handlers.NewBitHandler(env.bits)
	th := handlers.NewTagHandler(env.tags)

	r := chi.NewRouter()
	r.Get("/api/personas/list", ph.List)
	r.Get("/api/persona/new", ph.New)
	r.Route("/api/persona/{id}", func(r chi.Router) {
		r.Get("/", ph.Get)
		r.Put("/", ph.Put)
		r.Delete("/", ph.Delete)
		r.Put("/reshare", ph.Reshare)
		r.Put("/reown", ph.Reown)
		r.Get("/bit/new", bh.New)
		r.Put("/bits/reorder", bh.Reorder)
		r.Get("/bit/{bit_id}", bh.Get)
		r.Put("/bit/{bit_id}", bh.Put)
		r.Delete("/bit/{bit_id}", bh.Delete)
		r.Put("/bit/{bit_id}/rotate-password", bh.RotatePassword)
	})
	r.Get("/api/tags/list", th.List)
	r.Get("/api/tag/new", th.New)
	r.Get("/api/tag/{id}", th.Get)
	r.Put("/api/tag/{id}", th.Put)
	env.router = r
	return env
}

// do выполняет запрос от имени testUserID.
func (e *handlerEnv) do(method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	req = req.WithContext(middleware.WithUserID(req.Context(), testUserID))
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *handlerEnv) assertExpectations(t *testing.T) {
	t.Helper()
	e.personas.AssertExpectations(t)
	e.bits.AssertExpectations(t)
	e.tags.AssertExpectations(t)
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) handlers.ErrorResponse {
	t.Helper()
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var resp handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

