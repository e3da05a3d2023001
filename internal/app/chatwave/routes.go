// Package chatwave собирает основное приложение: хранилище, сервисы,
// маршруты и HTTP-сервер.
package chatwave

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/chatwave-backend/internal/chatapi"
	"github.com/magabrotheeeer/chatwave-backend/internal/http/handlers/admin/setsubscription"
	"github.com/magabrotheeeer/chatwave-backend/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/chatwave-backend/internal/http/handlers/auth/oauthexchange"
	"github.com/magabrotheeeer/chatwave-backend/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/chatwave-backend/internal/http/handlers/oauth/callback"
	"github.com/magabrotheeeer/chatwave-backend/internal/http/handlers/oauth/start"
	sessioncreate "github.com/magabrotheeeer/chatwave-backend/internal/http/handlers/session/create"
	"github.com/magabrotheeeer/chatwave-backend/internal/http/handlers/subscription/captureorder"
	"github.com/magabrotheeeer/chatwave-backend/internal/http/handlers/subscription/createorder"
	"github.com/magabrotheeeer/chatwave-backend/internal/http/handlers/subscription/plans"
	"github.com/magabrotheeeer/chatwave-backend/internal/http/handlers/subscription/verifymobile"
	"github.com/magabrotheeeer/chatwave-backend/internal/http/middlewarectx"
	authservice "github.com/magabrotheeeer/chatwave-backend/internal/services/auth"
	entitlementservice "github.com/magabrotheeeer/chatwave-backend/internal/services/entitlement"
	"github.com/magabrotheeeer/chatwave-backend/internal/services/geoip"
	"github.com/magabrotheeeer/chatwave-backend/internal/services/oauthprovider"
	paymentservice "github.com/magabrotheeeer/chatwave-backend/internal/services/payment"
	"github.com/magabrotheeeer/chatwave-backend/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger,
	db *repository.Storage,
	authService *authservice.AuthService,
	providers *oauthprovider.Registry,
	entitlements *entitlementservice.EntitlementService,
	payments *paymentservice.PaymentService,
	geo *geoip.GeoIPService,
	chat *chatapi.Client,
	appURL, adminEmail string) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService, geo).ServeHTTP)
		r.Post("/login", login.New(logger, authService, geo).ServeHTTP)
		r.Post("/auth/oauth", oauthexchange.New(logger, authService).ServeHTTP)
		r.Get("/auth/oauth/{provider}", start.New(logger, providers).ServeHTTP)
		r.Get("/auth/oauth/{provider}/callback", callback.New(logger, providers, authService, appURL).ServeHTTP)
		r.Get("/plans", plans.New(logger).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/session", sessioncreate.New(logger, entitlements, chat).ServeHTTP)
			r.Post("/subscription/order", createorder.New(logger, payments).ServeHTTP)
			r.Post("/subscription/capture", captureorder.New(logger, payments).ServeHTTP)
			r.Post("/subscription/verify-mobile", verifymobile.New(logger, payments).ServeHTTP)
			r.Post("/admin/subscription", setsubscription.New(logger, db, adminEmail).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
