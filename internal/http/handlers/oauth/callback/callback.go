// Package callback реализует HTTP-обработчик возврата с страницы согласия
// провайдера: обмен кода на профиль, сведение к учетной записи и редирект
// с токеном в веб-страницу или мобильную оболочку.
package callback

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/chatwave-backend/internal/http/handlers/oauth/start"
	"github.com/magabrotheeeer/chatwave-backend/internal/lib/pkce"
	"github.com/magabrotheeeer/chatwave-backend/internal/lib/sl"
	"github.com/magabrotheeeer/chatwave-backend/internal/services/auth"
	"github.com/magabrotheeeer/chatwave-backend/internal/services/oauthprovider"
)

// DeepLinkScheme — схема deep link мобильного приложения.
const DeepLinkScheme = "chatwave"

// Registry отдает провайдера по имени из пути запроса.
type Registry interface {
	Get(name string) (oauthprovider.Provider, error)
}

// Service описывает интерфейс сведения OAuth-профиля к учетной записи.
type Service interface {
	LoginWithOAuth(ctx context.Context, profile auth.OAuthProfile) (*auth.Session, error)
}

// Handler обрабатывает возврат с OAuth-провайдера.
type Handler struct {
	log       *slog.Logger
	providers Registry
	service   Service
	appURL    string
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, providers Registry, service Service, appURL string) *Handler {
	return &Handler{
		log:       log,
		providers: providers,
		service:   service,
		appURL:    strings.TrimRight(appURL, "/"),
	}
}

// ServeHTTP godoc
// @Summary Возврат с OAuth-провайдера
// @Description Обменивает код авторизации на токен сессии и редиректит на /embed или в chatwave:// deep link.
// @Tags OAuth
// @Param provider path string true "Провайдер: google, facebook, x"
// @Param code query string true "Код авторизации"
// @Param state query string true "Состояние, выданное при старте потока"
// @Success 302 "Редирект с токеном"
// @Router /auth/oauth/{provider}/callback [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.oauth.callback"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	providerName := chi.URLParam(r, "provider")
	provider, err := h.providers.Get(providerName)
	if err != nil {
		log.Error("unknown provider", sl.Err(err))
		h.redirectError(w, r, "unknown_provider")
		return
	}

	query := r.URL.Query()
	if errParam := query.Get("error"); errParam != "" {
		log.Info("provider returned error", slog.String("error", errParam))
		h.redirectError(w, r, "access_denied")
		return
	}
	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		log.Error("missing code or state in callback")
		h.redirectError(w, r, "invalid_callback")
		return
	}

	flow := state
	verifier := ""
	if provider.UsesPKCE() {
		flow, verifier, err = pkce.DecodeState(state)
		if err != nil {
			log.Error("failed to decode state", sl.Err(err))
			h.redirectError(w, r, "invalid_state")
			return
		}
	}

	profile, err := provider.Exchange(r.Context(), code, verifier)
	if err != nil {
		log.Error("code exchange failed", sl.Err(err))
		h.redirectError(w, r, "oauth_failed")
		return
	}

	session, err := h.service.LoginWithOAuth(r.Context(), auth.OAuthProfile{
		Provider:  profile.Provider,
		SubjectID: profile.SubjectID,
		Email:     profile.Email,
		Name:      profile.Name,
	})
	if err != nil {
		log.Error("oauth login failed", sl.Err(err))
		h.redirectError(w, r, "oauth_failed")
		return
	}

	log.Info("oauth callback success",
		slog.String("provider", provider.Name()),
		slog.String("user_uid", session.UserUID),
		slog.String("flow", flow))

	var target string
	if flow == start.FlowMobile {
		target = DeepLinkScheme + "://oauth/" + provider.Name() +
			"?token=" + url.QueryEscape(session.Token)
	} else {
		target = h.appURL + "/embed?token=" + url.QueryEscape(session.Token)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) redirectError(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, h.appURL+"/login?error="+url.QueryEscape(reason), http.StatusFound)
}
