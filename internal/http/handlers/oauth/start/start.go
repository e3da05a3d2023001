// Package start реализует HTTP-обработчик начала серверного OAuth-потока:
// редирект на страницу согласия провайдера.
package start

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/chatwave-backend/internal/http/response"
	"github.com/magabrotheeeer/chatwave-backend/internal/lib/pkce"
	"github.com/magabrotheeeer/chatwave-backend/internal/lib/sl"
	"github.com/magabrotheeeer/chatwave-backend/internal/services/oauthprovider"
)

// Поддерживаемые значения потока. Поток решает, куда вернется токен:
// в веб-страницу или в мобильную оболочку через deep link.
const (
	FlowWeb    = "web"
	FlowMobile = "mobile"
)

// Registry отдает провайдера по имени из пути запроса.
type Registry interface {
	Get(name string) (oauthprovider.Provider, error)
}

// Handler обрабатывает запуск OAuth-потока.
type Handler struct {
	log       *slog.Logger
	providers Registry
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, providers Registry) *Handler {
	return &Handler{log: log, providers: providers}
}

// ServeHTTP godoc
// @Summary Начало OAuth-потока
// @Description Редиректит на страницу согласия провайдера. Параметр flow (web или mobile) определяет возврат токена.
// @Tags OAuth
// @Produce  json
// @Param provider path string true "Провайдер: google, facebook, x"
// @Param flow query string false "Поток: web (по умолчанию) или mobile"
// @Success 302 "Редирект на провайдера"
// @Failure 404 {object} response.ErrorResponse "Неизвестный провайдер"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/oauth/{provider} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.oauth.start"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	providerName := chi.URLParam(r, "provider")
	provider, err := h.providers.Get(providerName)
	if err != nil {
		log.Error("unknown provider", sl.Err(err))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("unknown oauth provider"))
		return
	}

	flow := r.URL.Query().Get("flow")
	if flow != FlowMobile {
		flow = FlowWeb
	}

	state := flow
	challenge := ""
	if provider.UsesPKCE() {
		verifier, err := pkce.NewVerifier()
		if err != nil {
			log.Error("failed to generate pkce verifier", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal service error"))
			return
		}
		state = pkce.EncodeState(flow, verifier)
		challenge = pkce.Challenge(verifier)
	}

	log.Info("redirecting to provider",
		slog.String("provider", provider.Name()),
		slog.String("flow", flow))
	http.Redirect(w, r, provider.AuthURL(state, challenge), http.StatusFound)
}
