package cipher_test

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/contactkeeper/internal/apperr"
	"github.com/maynagashev/contactkeeper/internal/cipher"
)

func key(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func ptr(s string) *string {
	return &s
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := cipher.New(key(1))
	require.NoError(t, err)

	for _, secret := range []string{"s3cr3t!", "", "пароль с юникодом", string(bytes.Repeat([]byte("x"), 4096))} {
		enc, encErr := c.Encrypt(ptr(secret))
		require.NoError(t, encErr)
		assert.NotEqual(t, []byte(secret), enc)

		dec, decErr := c.Decrypt(enc)
		require.NoError(t, decErr)
		require.NotNil(t, dec)
		assert.Equal(t, secret, *dec)
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	c, err := cipher.New(key(1))
	require.NoError(t, err)

	first, err := c.Encrypt(ptr("одно и то же"))
	require.NoError(t, err)
	second, err := c.Encrypt(ptr("одно и то же"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestNilMapsToNil(t *testing.T) {
	c, err := cipher.New(key(1))
	require.NoError(t, err)

	enc, err := c.Encrypt(nil)
	require.NoError(t, err)
	assert.Nil(t, enc)

	dec, err := c.Decrypt(nil)
	require.NoError(t, err)
	assert.Nil(t, dec)

	rotated, err := c.Rotate(nil)
	require.NoError(t, err)
	assert.Nil(t, rotated)
}

func TestLegacyKeyFallbackAndRotation(t *testing.T) {
	oldCipher, err := cipher.New(key(7))
	require.NoError(t, err)
	enc, err := oldCipher.Encrypt(ptr("старый секрет"))
	require.NoError(t, err)

	t.Run("Без устаревшего ключа расшифровка невозможна", func(t *testing.T) {
		c, newErr := cipher.New(key(1))
		require.NoError(t, newErr)
		_, decErr := c.Decrypt(enc)
		require.Error(t, decErr)
		assert.ErrorIs(t, decErr, apperr.ErrDecryption)
	})

	t.Run("Устаревший ключ в списке", func(t *testing.T) {
		c, newErr := cipher.New(key(1), key(9), key(7))
		require.NoError(t, newErr)
		assert.Equal(t, 3, c.KeyCount())

		dec, decErr := c.Decrypt(enc)
		require.NoError(t, decErr)
		assert.Equal(t, "старый секрет", *dec)

		rotated, rotErr := c.Rotate(enc)
		require.NoError(t, rotErr)
		assert.NotEqual(t, enc, rotated)

		primaryOnly, primErr := cipher.New(key(1))
		require.NoError(t, primErr)
		dec, decErr = primaryOnly.Decrypt(rotated)
		require.NoError(t, decErr)
		assert.Equal(t, "старый секрет", *dec)
	})
}

func TestDecryptCorrupted(t *testing.T) {
	c, err := cipher.New(key(1))
	require.NoError(t, err)
	enc, err := c.Encrypt(ptr("secret"))
	require.NoError(t, err)

	tampered := append([]byte(nil), enc...)
	tampered[len(tampered)-1] ^= 0xff

	tests := []struct {
		name string
		data []byte
	}{
		{name: "Пустой шифротекст", data: []byte{}},
		{name: "Слишком короткий", data: []byte{1, 2, 3}},
		{name: "Неизвестная версия формата", data: append([]byte{9}, enc[1:]...)},
		{name: "Измененный шифротекст", data: tampered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, decErr := c.Decrypt(tt.data)
			require.Error(t, decErr)
			assert.ErrorIs(t, decErr, apperr.ErrDecryption)

			_, rotErr := c.Rotate(tt.data)
			assert.ErrorIs(t, rotErr, apperr.ErrDecryption)
		})
	}
}

func TestConfigErrors(t *testing.T) {
	t.Run("Нет основного ключа", func(t *testing.T) {
		_, err := cipher.New(nil)
		assert.ErrorIs(t, err, apperr.ErrConfig)
	})

	t.Run("Неверная длина ключа", func(t *testing.T) {
		_, err := cipher.New([]byte("short"))
		assert.ErrorIs(t, err, apperr.ErrConfig)
	})

	t.Run("Слишком много устаревших ключей", func(t *testing.T) {
		_, err := cipher.New(key(1), key(2), key(3), key(4), key(5))
		assert.ErrorIs(t, err, apperr.ErrConfig)
	})

	t.Run("Неинициализированный шифр", func(t *testing.T) {
		var c *cipher.Cipher
		_, err := c.Decrypt([]byte("x"))
		assert.ErrorIs(t, err, apperr.ErrConfig)
		_, err = c.Encrypt(ptr("x"))
		assert.ErrorIs(t, err, apperr.ErrConfig)
	})
}

func TestNewFromEncoded(t *testing.T) {
	primary := base64.URLEncoding.EncodeToString(key(1))
	legacy := base64.StdEncoding.EncodeToString(key(2))

	t.Run("Корректные ключи", func(t *testing.T) {
		c, err := cipher.NewFromEncoded(primary, []string{legacy})
		require.NoError(t, err)
		assert.Equal(t, 2, c.KeyCount())
	})

	t.Run("Пустой основной ключ", func(t *testing.T) {
		_, err := cipher.NewFromEncoded("  ", nil)
		assert.ErrorIs(t, err, apperr.ErrConfig)
	})

	t.Run("Не base64", func(t *testing.T) {
		_, err := cipher.NewFromEncoded("!!!не-base64!!!", nil)
		assert.ErrorIs(t, err, apperr.ErrConfig)
	})

	t.Run("Короткий ключ", func(t *testing.T) {
		_, err := cipher.NewFromEncoded(base64.URLEncoding.EncodeToString([]byte("short")), nil)
		assert.ErrorIs(t, err, apperr.ErrConfig)
	})

	t.Run("Сгенерированный ключ", func(t *testing.T) {
		generated, err := cipher.GenerateKey()
		require.NoError(t, err)
		c, err := cipher.NewFromEncoded(generated, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, c.KeyCount())
	})
}
