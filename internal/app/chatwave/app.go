package chatwave

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/chatwave-backend/internal/cache"
	"github.com/magabrotheeeer/chatwave-backend/internal/chatapi"
	"github.com/magabrotheeeer/chatwave-backend/internal/config"
	"github.com/magabrotheeeer/chatwave-backend/internal/lib/jwt"
	"github.com/magabrotheeeer/chatwave-backend/internal/lib/sl"
	"github.com/magabrotheeeer/chatwave-backend/internal/migrations"
	"github.com/magabrotheeeer/chatwave-backend/internal/paypal"
	"github.com/magabrotheeeer/chatwave-backend/internal/rabbitmq"
	authservice "github.com/magabrotheeeer/chatwave-backend/internal/services/auth"
	entitlementservice "github.com/magabrotheeeer/chatwave-backend/internal/services/entitlement"
	"github.com/magabrotheeeer/chatwave-backend/internal/services/geoip"
	"github.com/magabrotheeeer/chatwave-backend/internal/services/oauthprovider"
	paymentservice "github.com/magabrotheeeer/chatwave-backend/internal/services/payment"
	"github.com/magabrotheeeer/chatwave-backend/internal/storage/repository"

	"github.com/streadway/amqp"
)

// App — собранное основное приложение.
type App struct {
	server   *http.Server
	logger   *slog.Logger
	db       *repository.Storage
	amqpConn *amqp.Connection
}

// New инициализирует хранилище, миграции, кэш, брокер и сервисы,
// собирает маршруты и возвращает готовое приложение.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	// Брокер нужен только для писем-квитанций: его отсутствие не должно
	// останавливать прием платежей.
	var amqpConn *amqp.Connection
	var publisher paymentservice.EventPublisher
	if cfg.RabbitMQURL != "" {
		amqpConn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			logger.Warn("rabbitmq unavailable, activation emails disabled", sl.Err(err))
		} else {
			ch, err := rabbitmq.SetupChannel(amqpConn, rabbitmq.DefaultQueues())
			if err != nil {
				logger.Warn("rabbitmq channel setup failed, activation emails disabled", sl.Err(err))
			} else {
				publisher = rabbitmq.NewNotifier(ch)
			}
		}
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := authservice.NewAuthService(db, jwtMaker, cfg.AdminEmail, logger)
	providers := oauthprovider.NewRegistry(cfg.OAuth)
	entitlements := entitlementservice.NewEntitlementService(db, logger)
	paypalClient := paypal.NewClient(cfg.PayPal, cacheRedis)
	payments := paymentservice.NewPaymentService(paypalClient, db, db, publisher, cfg.AppURL, logger)
	geo := geoip.NewGeoIPService(db, logger)
	chat := chatapi.NewClient(cfg.Chat)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, db, authService, providers, entitlements,
		payments, geo, chat, cfg.AppURL, cfg.AdminEmail)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:   srv,
		logger:   logger,
		db:       db,
		amqpConn: amqpConn,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if a.amqpConn != nil {
			_ = a.amqpConn.Close()
		}
		_ = a.db.DB.Close()
		return err
	}
}
