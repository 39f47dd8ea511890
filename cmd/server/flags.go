package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
)

const (
	// Порт по умолчанию для HTTPS (непривилегированный).
	defaultServerPort = "8443"

	// Переменные окружения.
	envServerPort         = "SERVER_PORT"
	envTLSCertFile        = "TLS_CERT_FILE"
	envTLSKeyFile         = "TLS_KEY_FILE"
	envDatabaseDSN        = "DATABASE_DSN"
	envJWTSecret          = "JWT_SECRET" //nolint:gosec // Имя переменной окружения, а не секрет
	envContactsKey        = "LMS_CONTACTS_KEY"
	envContactsLegacyKeys = "LMS_CONTACTS_LEGACY_KEYS"
)

// config хранит конфигурацию сервера.
type config struct {
	Port               string
	CertFile           string
	KeyFile            string
	DatabaseDSN        string
	JWTSecret          string
	ContactsKey        string   // Основной ключ шифрования паролей (base64)
	ContactsLegacyKeys []string // Устаревшие ключи в порядке проверки
}

// parseFlags разбирает флаги и переменные окружения, возвращает config или ошибку.
// Флаги имеют приоритет над переменными окружения.
func parseFlags() (*config, error) {
	cfg := &config{}
	var legacyKeys string

	flag.StringVar(&cfg.Port, "port", "",
		fmt.Sprintf("Порт для запуска HTTPS-сервера (env: %s, default: %s)", envServerPort, defaultServerPort))
	flag.StringVar(&cfg.CertFile, "cert-file", "",
		fmt.Sprintf("Путь к файлу TLS-сертификата (env: %s)", envTLSCertFile))
	flag.StringVar(&cfg.KeyFile, "key-file", "",
		fmt.Sprintf("Путь к файлу TLS-ключа (env: %s)", envTLSKeyFile))
	flag.StringVar(&cfg.DatabaseDSN, "database-dsn", "",
		fmt.Sprintf("Строка подключения к базе данных (env: %s)", envDatabaseDSN))
	flag.StringVar(&cfg.JWTSecret, "jwt-secret", "",
		fmt.Sprintf("Секрет для подписи JWT токенов (env: %s)", envJWTSecret))
	flag.StringVar(&cfg.ContactsKey, "contacts-key", "",
		fmt.Sprintf("Основной ключ шифрования паролей, base64 32 байта (env: %s)", envContactsKey))
	flag.StringVar(&legacyKeys, "contacts-legacy-keys", "",
		fmt.Sprintf("Устаревшие ключи шифрования через запятую, не более 3 (env: %s)", envContactsLegacyKeys))

	flag.Parse()

	// Применяем переменные окружения, если флаги не заданы
	if cfg.Port == "" {
		cfg.Port = getEnv(envServerPort, defaultServerPort)
	}
	if cfg.CertFile == "" {
		cfg.CertFile = getEnv(envTLSCertFile, "")
	}
	if cfg.KeyFile == "" {
		cfg.KeyFile = getEnv(envTLSKeyFile, "")
	}
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = getEnv(envDatabaseDSN, "")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = getEnv(envJWTSecret, "")
	}
	if cfg.ContactsKey == "" {
		cfg.ContactsKey = getEnv(envContactsKey, "")
	}
	if legacyKeys == "" {
		legacyKeys = getEnv(envContactsLegacyKeys, "")
	}
	cfg.ContactsLegacyKeys = splitKeys(legacyKeys)

	// Проверяем обязательные параметры
	if cfg.CertFile == "" {
		return nil, errors.New("не указан путь к файлу сертификата (--cert-file или " + envTLSCertFile + ")")
	}
	if cfg.KeyFile == "" {
		return nil, errors.New("не указан путь к файлу ключа (--key-file или " + envTLSKeyFile + ")")
	}
	if cfg.DatabaseDSN == "" {
		return nil, errors.New("не указана строка подключения к БД (--database-dsn или " + envDatabaseDSN + ")")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("не указан секрет JWT (--jwt-secret или " + envJWTSecret + ")")
	}
	if cfg.ContactsKey == "" {
		return nil, errors.New("не указан ключ шифрования (--contacts-key или " + envContactsKey + ")")
	}

	return cfg, nil
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	log.Printf("Переменная окружения '%s' не установлена, используется значение по умолчанию: '%s'", key, fallback)
	return fallback
}

// splitKeys разбирает список ключей через запятую, пропуская пустые элементы.
func splitKeys(raw string) []string {
	var keys []string
	for _, key := range strings.Split(raw, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}
