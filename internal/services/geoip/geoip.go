// Package geoip определяет страну пользователя по IP при регистрации
// и входе. Лучший результат — обогащенный профиль; любая ошибка здесь
// не влияет на основной сценарий.
package geoip

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/magabrotheeeer/chatwave-backend/internal/lib/sl"
)

const lookupTimeout = 5 * time.Second

// CountryUpdater сохраняет страну на профиле пользователя.
type CountryUpdater interface {
	UpdateUserCountry(ctx context.Context, userUID, country string) error
}

// GeoIPService резолвит страну по IP через внешний справочник.
type GeoIPService struct {
	users      CountryUpdater
	httpClient *http.Client
	baseURL    string
	log        *slog.Logger
}

// NewGeoIPService создает новый экземпляр GeoIPService.
func NewGeoIPService(users CountryUpdater, log *slog.Logger) *GeoIPService {
	return &GeoIPService{
		users:      users,
		httpClient: &http.Client{Timeout: lookupTimeout},
		baseURL:    "https://ipapi.co",
		log:        log,
	}
}

// ClientIP извлекает IP клиента из запроса: первый адрес из
// X-Forwarded-For, иначе RemoteAddr. IPv4-mapped префикс убирается.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip := strings.TrimSpace(strings.Split(fwd, ",")[0])
		return strings.TrimPrefix(ip, "::ffff:")
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return strings.TrimPrefix(host, "::ffff:")
}

// LookupCountry возвращает двухбуквенный код страны для IP.
func (s *GeoIPService) LookupCountry(ctx context.Context, ip string) (string, error) {
	const op = "geoip.LookupCountry"
	if ip == "" || ip == "127.0.0.1" || ip == "::1" {
		return "", fmt.Errorf("%s: local address", op)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+ip+"/country/", nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	country := strings.TrimSpace(string(body))
	if len(country) != 2 {
		return "", fmt.Errorf("%s: unexpected body %q", op, country)
	}
	return country, nil
}

// EnrichUserCountry резолвит страну и сохраняет ее на профиле.
// Вызывается из горутины обработчика; ошибки только логируются.
func (s *GeoIPService) EnrichUserCountry(ctx context.Context, userUID, ip string) {
	country, err := s.LookupCountry(ctx, ip)
	if err != nil {
		s.log.Debug("country lookup failed", sl.Err(err))
		return
	}
	if err := s.users.UpdateUserCountry(ctx, userUID, country); err != nil {
		s.log.Warn("failed to store user country", sl.Err(err))
	}
}
