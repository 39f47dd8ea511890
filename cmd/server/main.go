package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Драйвер PostgreSQL

	"github.com/maynagashev/contactkeeper/internal/access"
	"github.com/maynagashev/contactkeeper/internal/cipher"
	"github.com/maynagashev/contactkeeper/internal/handlers"
	appmiddleware "github.com/maynagashev/contactkeeper/internal/middleware"
	"github.com/maynagashev/contactkeeper/internal/migrations"
	"github.com/maynagashev/contactkeeper/internal/notify"
	"github.com/maynagashev/contactkeeper/internal/repository"
	"github.com/maynagashev/contactkeeper/internal/services"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 30 * time.Second
	defaultShutdownTimeout = 15 * time.Second
)

// Точки подмены для тестов.
var (
	newPostgresDB = repository.NewPostgresDB
	migrateUp     = migrations.MigrateUp
)

// Структура для хранения инициализированных зависимостей.
type dependencies struct {
	db             *sqlx.DB
	hub            *notify.Hub
	authHandler    *handlers.AuthHandler
	personaHandler *handlers.PersonaHandler
	bitHandler     *handlers.BitHandler
	tagHandler     *handlers.TagHandler
	changesHandler *handlers.ChangesHandler
}

// main - точка входа. Вызывает run и обрабатывает ошибку.
func main() {
	if err := run(); err != nil {
		log.Printf("Ошибка выполнения сервера: %v", err)
		os.Exit(1)
	}
}

// run содержит основную логику запуска сервера и возвращает ошибку.
func run() error {
	log.Println("Запуск сервера ContactKeeper...")

	cfg, err := parseFlags()
	if err != nil {
		return fmt.Errorf("ошибка конфигурации: %w", err)
	}

	deps, err := setupDependencies(cfg)
	if err != nil {
		return fmt.Errorf("ошибка инициализации зависимостей: %w", err)
	}
	defer func() {
		if closeErr := deps.db.Close(); closeErr != nil {
			log.Printf("Ошибка закрытия соединения с БД: %v", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Уведомления об изменениях персон приходят через PostgreSQL NOTIFY
	listener, err := notify.Listen(cfg.DatabaseDSN, repository.PersonaChannel)
	if err != nil {
		return fmt.Errorf("ошибка подписки на изменения персон: %w", err)
	}
	defer func() {
		if closeErr := listener.Close(); closeErr != nil {
			log.Printf("Ошибка закрытия слушателя уведомлений: %v", closeErr)
		}
	}()
	go listener.Serve(ctx, deps.hub)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      setupRouter(deps, []byte(cfg.JWTSecret)),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("Запуск HTTPS-сервера на порту %s...", cfg.Port)
		log.Printf("Используется сертификат: %s", cfg.CertFile)
		log.Printf("Используется ключ: %s", cfg.KeyFile)
		serveErr <- server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
	}()

	select {
	case err = <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ошибка запуска HTTPS-сервера: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Println("Получен сигнал завершения, останавливаем сервер...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err = server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка остановки HTTPS-сервера: %w", err)
	}
	log.Println("Сервер остановлен")
	return nil
}

// setupDependencies инициализирует и возвращает все необходимые зависимости сервера.
func setupDependencies(cfg *config) (*dependencies, error) {
	// 1. Ключи шифрования проверяются до подключения к БД
	c, err := cipher.NewFromEncoded(cfg.ContactsKey, cfg.ContactsLegacyKeys)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации шифрования: %w", err)
	}
	log.Printf("Шифрование паролей настроено, ключей: %d", c.KeyCount())

	// 2. Подключение к БД и миграции
	db, err := newPostgresDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации БД: %w", err)
	}
	log.Println("Соединение с БД успешно установлено.")

	if err = migrateUp(db.DB); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Printf("Ошибка закрытия соединения с БД при ошибке миграции: %v", closeErr)
		}
		return nil, fmt.Errorf("ошибка миграции БД: %w", err)
	}

	// 3. Создание репозиториев
	store := services.Store{
		Tx:       repository.NewTransactor(db),
		Personas: repository.NewPostgresPersonaRepository(),
		Bits:     repository.NewPostgresBitRepository(),
		Tags:     repository.NewPostgresTagRepository(),
		Access:   repository.NewPostgresAccessRepository(),
		Changes:  repository.NewPostgresChangePublisher(),
	}
	userRepo := repository.NewPostgresUserRepository(db)
	guard := access.NewGuard(store.Access)

	// 4. Создание сервисов
	authService := services.NewAuthService(userRepo, []byte(cfg.JWTSecret))
	personaService := services.NewPersonaService(store, guard, c)
	bitService := services.NewBitService(store, guard, c)
	tagService := services.NewTagService(store)

	// 5. Создание обработчиков
	hub := notify.NewHub()
	return &dependencies{
		db:             db,
		hub:            hub,
		authHandler:    handlers.NewAuthHandler(authService),
		personaHandler: handlers.NewPersonaHandler(personaService),
		bitHandler:     handlers.NewBitHandler(bitService),
		tagHandler:     handlers.NewTagHandler(tagService),
		changesHandler: handlers.NewChangesHandler(hub),
	}, nil
}

// setupRouter настраивает и возвращает роутер chi.
func setupRouter(deps *dependencies, jwtSecret []byte) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong\n"))
	})

	r.Route("/api", func(r chi.Router) {
		// Публичные маршруты (регистрация, вход)
		r.Post("/register", deps.authHandler.Register)
		r.Post("/login", deps.authHandler.Login)

		// Приватные маршруты (требуют аутентификации)
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Authenticator(jwtSecret))

			r.Get("/me", deps.authHandler.Me)

			r.Get("/personas/list", deps.personaHandler.List)
			r.With(appmiddleware.LongPollTimeout(handlers.MaxChangesTimeout+defaultWriteTimeout)).
				Get("/personas/changes", deps.changesHandler.Wait)
			r.Get("/persona/new", deps.personaHandler.New)

			r.Route("/persona/{id}", func(r chi.Router) {
				r.Get("/", deps.personaHandler.Get)
				r.Put("/", deps.personaHandler.Put)
				r.Delete("/", deps.personaHandler.Delete)
				r.Put("/reshare", deps.personaHandler.Reshare)
				r.Put("/reown", deps.personaHandler.Reown)

				r.Get("/bit/new", deps.bitHandler.New)
				r.Put("/bits/reorder", deps.bitHandler.Reorder)
				r.Route("/bit/{bit_id}", func(r chi.Router) {
					r.Get("/", deps.bitHandler.Get)
					r.Put("/", deps.bitHandler.Put)
					r.Delete("/", deps.bitHandler.Delete)
					r.Put("/rotate-password", deps.bitHandler.RotatePassword)
				})
			})

			r.Get("/tags/list", deps.tagHandler.List)
			r.Get("/tag/new", deps.tagHandler.New)
			r.Route("/tag/{id}", func(r chi.Router) {
				r.Get("/", deps.tagHandler.Get)
				r.Put("/", deps.tagHandler.Put)
			})
		})
	})
	return r
}
