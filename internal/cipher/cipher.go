// Package cipher шифрует секреты записей-ссылок (urls) для хранения в БД.
//
// Шифрование всегда выполняется основным ключом. Расшифровка пробует основной
// ключ, затем устаревшие ключи в том порядке, в котором они заданы в конфигурации.
// Формат шифротекста: версия (1 байт) || nonce (24 байта) || XChaCha20-Poly1305.
package cipher

import (
	stdcipher "crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/maynagashev/contactkeeper/internal/apperr"
)

const (
	// MaxLegacyKeys - максимальное количество устаревших ключей.
	MaxLegacyKeys = 3

	formatVersion byte = 1
	headerSize         = 1 + chacha20poly1305.NonceSizeX
)

// Cipher хранит основной ключ и упорядоченный список устаревших ключей.
// После создания не изменяется и безопасен для конкурентного использования.
type Cipher struct {
	aeads []stdcipher.AEAD // [0] - основной ключ, далее устаревшие по порядку
}

// New создает Cipher из сырых 32-байтных ключей.
func New(primary []byte, legacy ...[]byte) (*Cipher, error) {
	if len(primary) == 0 {
		return nil, apperr.New(apperr.KindConfig, "не задан основной ключ шифрования")
	}
	if len(legacy) > MaxLegacyKeys {
		return nil, apperr.Newf(apperr.KindConfig,
			"слишком много устаревших ключей: %d (максимум %d)", len(legacy), MaxLegacyKeys)
	}

	c := &Cipher{aeads: make([]stdcipher.AEAD, 0, 1+len(legacy))}
	for i, key := range append([][]byte{primary}, legacy...) {
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindConfig, fmt.Sprintf("неверный ключ шифрования #%d", i), err)
		}
		c.aeads = append(c.aeads, aead)
	}
	return c, nil
}

// NewFromEncoded создает Cipher из ключей в base64 (url-safe, как в переменных окружения).
func NewFromEncoded(primary string, legacy []string) (*Cipher, error) {
	primaryKey, err := DecodeKey(primary)
	if err != nil {
		return nil, err
	}
	legacyKeys := make([][]byte, 0, len(legacy))
	for _, encoded := range legacy {
		key, decodeErr := DecodeKey(encoded)
		if decodeErr != nil {
			return nil, decodeErr
		}
		legacyKeys = append(legacyKeys, key)
	}
	return New(primaryKey, legacyKeys...)
}

// DecodeKey декодирует ключ из base64. Принимаются url-safe и стандартный алфавиты.
func DecodeKey(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, apperr.New(apperr.KindConfig, "пустой ключ шифрования")
	}
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.StdEncoding, base64.RawURLEncoding, base64.RawStdEncoding} {
		key, err := enc.DecodeString(encoded)
		if err == nil {
			if len(key) != chacha20poly1305.KeySize {
				return nil, apperr.Newf(apperr.KindConfig,
					"ключ шифрования должен быть длиной %d байт, получено %d", chacha20poly1305.KeySize, len(key))
			}
			return key, nil
		}
	}
	return nil, apperr.New(apperr.KindConfig, "ключ шифрования не является корректной строкой base64")
}

// GenerateKey возвращает новый случайный ключ в формате base64 (url-safe).
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("ошибка генерации ключа: %w", err)
	}
	return base64.URLEncoding.EncodeToString(key), nil
}

// Encrypt шифрует секрет основным ключом. nil переходит в nil без обращения к шифру.
func (c *Cipher) Encrypt(plaintext *string) ([]byte, error) {
	if plaintext == nil {
		return nil, nil
	}
	if c == nil || len(c.aeads) == 0 {
		return nil, apperr.New(apperr.KindConfig, "ключи шифрования не настроены")
	}
	return c.seal([]byte(*plaintext))
}

// Decrypt расшифровывает секрет, перебирая ключи в порядке: основной, затем устаревшие.
func (c *Cipher) Decrypt(ciphertext []byte) (*string, error) {
	if ciphertext == nil {
		return nil, nil
	}
	plain, err := c.open(ciphertext)
	if err != nil {
		return nil, err
	}
	s := string(plain)
	return &s, nil
}

// Rotate перешифровывает секрет основным ключом. Открытый текст не покидает метод.
func (c *Cipher) Rotate(ciphertext []byte) ([]byte, error) {
	if ciphertext == nil {
		return nil, nil
	}
	plain, err := c.open(ciphertext)
	if err != nil {
		return nil, err
	}
	defer clear(plain)
	return c.seal(plain)
}

// KeyCount возвращает количество настроенных ключей (основной + устаревшие).
func (c *Cipher) KeyCount() int {
	if c == nil {
		return 0
	}
	return len(c.aeads)
}

func (c *Cipher) seal(plain []byte) ([]byte, error) {
	aead := c.aeads[0]
	out := make([]byte, headerSize, headerSize+len(plain)+aead.Overhead())
	out[0] = formatVersion
	nonce := out[1:headerSize]
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("ошибка генерации nonce: %w", err)
	}
	return aead.Seal(out, nonce, plain, []byte{formatVersion}), nil
}

func (c *Cipher) open(ciphertext []byte) ([]byte, error) {
	if c == nil || len(c.aeads) == 0 {
		return nil, apperr.New(apperr.KindConfig, "ключи шифрования не настроены")
	}
	if len(ciphertext) < headerSize+chacha20poly1305.Overhead || ciphertext[0] != formatVersion {
		return nil, apperr.Wrap(apperr.KindDecryption, "секрет поврежден или имеет неизвестный формат", errInvalidFormat)
	}
	nonce := ciphertext[1:headerSize]
	for _, aead := range c.aeads {
		plain, err := aead.Open(nil, nonce, ciphertext[headerSize:], []byte{formatVersion})
		if err == nil {
			return plain, nil
		}
	}
	return nil, apperr.Wrap(apperr.KindDecryption, "секрет не расшифровывается ни одним из настроенных ключей", errNoMatchingKey)
}

var (
	errInvalidFormat = errors.New("неверный формат шифротекста")
	errNoMatchingKey = errors.New("ни один ключ не подошел")
)
