package services_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maynagashev/contactkeeper/internal/access"
	"github.com/maynagashev/contactkeeper/internal/cipher"
	"github.com/maynagashev/contactkeeper/internal/mocks"
	"github.com/maynagashev/contactkeeper/internal/services"
)

// testEnv - сервисы поверх моков репозиториев.
type testEnv struct {
	tx       *mocks.Transactor
	personas *mocks.PersonaRepository
	bits     *mocks.BitRepository
	tags     *mocks.TagRepository
	access   *mocks.AccessRepository
	changes  *mocks.ChangePublisher
	cipher   *cipher.Cipher

	personaService services.PersonaService
	bitService     services.BitService
	tagService     services.TagService
}

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func newTestCipher(t *testing.T, primary []byte, legacy ...[]byte) *cipher.Cipher {
	t.Helper()
	c, err := cipher.New(primary, legacy...)
	require.NoError(t, err)
	return c
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		tx:       &mocks.Transactor{},
		personas: new(mocks.PersonaRepository),
		bits:     new(mocks.BitRepository),
		tags:     new(mocks.TagRepository),
		access:   new(mocks.AccessRepository),
		changes:  new(mocks.ChangePublisher),
		cipher:   newTestCipher(t, testKey(1)),
	}
	env.build()
	return env
}

// build пересоздает сервисы, например после замены шифра.
func (e *testEnv) build() {
	store := services.Store{
		Tx:       e.tx,
		Personas: e.personas,
		Bits:     e.bits,
		Tags:     e.tags,
		Access:   e.access,
		Changes:  e.changes,
	}
	guard := access.NewGuard(e.access)
	e.personaService = services.NewPersonaService(store, guard, e.cipher)
	e.bitService = services.NewBitService(store, guard, e.cipher)
	e.tagService = services.NewTagService(store)
}

func (e *testEnv) assertExpectations(t *testing.T) {
	t.Helper()
	e.personas.AssertExpectations(t)
	e.bits.AssertExpectations(t)
	e.tags.AssertExpectations(t)
	e.access.AssertExpectations(t)
	e.changes.AssertExpectations(t)
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(s string) *string { return &s }
