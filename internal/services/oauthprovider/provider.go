// Package oauthprovider инкапсулирует протокольные различия внешних
// OAuth-провайдеров (Google, Facebook, X) за единым интерфейсом.
package oauthprovider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/magabrotheeeer/chatwave-backend/internal/config"
)

// Ошибки уровня пакета.
var (
	ErrUnknownProvider = errors.New("unknown oauth provider")
	ErrEmailMissing    = errors.New("provider did not return email")
)

// Profile — нормализованный профиль пользователя от провайдера.
type Profile struct {
	Provider  string
	SubjectID string
	Email     string
	Name      *string
}

// Provider — один внешний OAuth-провайдер.
type Provider interface {
	// Name возвращает каноническое имя провайдера (google, facebook, x).
	Name() string

	// UsesPKCE сообщает, требует ли провайдер PKCE-обмена.
	UsesPKCE() bool

	// AuthURL строит URL страницы согласия. codeChallenge учитывается
	// только провайдерами с PKCE.
	AuthURL(state, codeChallenge string) string

	// Exchange обменивает код авторизации на профиль пользователя.
	Exchange(ctx context.Context, code, codeVerifier string) (*Profile, error)
}

// Registry хранит настроенные провайдеры по имени.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry собирает провайдеры из конфигурации. Провайдер без
// client id не регистрируется и выдает ErrUnknownProvider при обращении.
func NewRegistry(cfg config.OAuth) *Registry {
	httpClient := &http.Client{Timeout: cfg.TimeoutOAuth}
	r := &Registry{providers: make(map[string]Provider)}
	if cfg.Google.ClientID != "" {
		r.register(newGoogleProvider(cfg.Google, callbackURL(cfg, "google"), httpClient))
	}
	if cfg.Facebook.ClientID != "" {
		r.register(newFacebookProvider(cfg.Facebook, callbackURL(cfg, "facebook"), httpClient))
	}
	if cfg.X.ClientID != "" {
		r.register(newXProvider(cfg.X, callbackURL(cfg, "x"), httpClient))
	}
	return r
}

// Get возвращает провайдера по имени.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

func (r *Registry) register(p Provider) {
	r.providers[p.Name()] = p
}

func callbackURL(cfg config.OAuth, name string) string {
	return strings.TrimRight(cfg.CallbackBaseURL, "/") + "/api/v1/auth/oauth/" + name + "/callback"
}
