// Package paypal реализует клиент REST API PayPal: client-credentials
// обмен, создание и захват заказов. Access-токен кэшируется в Redis
// до истечения срока его действия.
package paypal

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/magabrotheeeer/chatwave-backend/internal/cache"
	"github.com/magabrotheeeer/chatwave-backend/internal/config"
)

const (
	liveAPIBase    = "https://api-m.paypal.com"
	sandboxAPIBase = "https://api-m.sandbox.paypal.com"

	accessTokenCacheKey = "paypal:access_token"
)

// Client клиент PayPal. Выполняет один запрос без повторов; политика
// повторов принадлежит вызывающему слою.
type Client struct {
	clientID     string
	clientSecret string
	apiURL       string
	httpClient   *http.Client
	cache        *cache.Cache
}

// NewClient создаёт новый клиент PayPal. Песочница выбирается флагом конфига.
func NewClient(cfg config.PayPal, tokenCache *cache.Cache) *Client {
	apiURL := liveAPIBase
	if cfg.Sandbox {
		apiURL = sandboxAPIBase
	}
	return &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		apiURL:       apiURL,
		httpClient:   &http.Client{Timeout: cfg.TimeoutPayPal},
		cache:        tokenCache,
	}
}

// Configured сообщает, заданы ли учетные данные провайдера.
func (c *Client) Configured() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// AccessToken возвращает действующий access-токен, выполняя
// client-credentials обмен при отсутствии свежего значения в кэше.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	const op = "paypal.AccessToken"

	if c.cache != nil {
		var cached string
		if found, err := c.cache.Get(ctx, accessTokenCacheKey, &cached); err == nil && found {
			return cached, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiURL+"/v1/oauth2/token", strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%s: empty access token", op)
	}

	if c.cache != nil && tok.ExpiresIn > 60 {
		ttl := time.Duration(tok.ExpiresIn-60) * time.Second
		// Кэш — только оптимизация, его недоступность не срывает оплату.
		_ = c.cache.Set(ctx, accessTokenCacheKey, tok.AccessToken, ttl)
	}
	return tok.AccessToken, nil
}

// CreateOrder создает заказ с intent=CAPTURE и возвращает ответ провайдера.
func (c *Client) CreateOrder(ctx context.Context, reqParams CreateOrderRequest) (*Order, error) {
	const op = "paypal.CreateOrder"

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqParams); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiURL+"/v2/checkout/orders", &buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.dropStaleToken(ctx, resp.StatusCode)
		return nil, fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &order, nil
}

// CaptureOrder выполняет захват ранее одобренного заказа.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) error {
	const op = "paypal.CaptureOrder"

	token, err := c.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiURL+"/v2/checkout/orders/"+orderID+"/capture", strings.NewReader("{}"))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.dropStaleToken(ctx, resp.StatusCode)
		return fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}
	return nil
}

// dropStaleToken сбрасывает кэшированный токен после отказа авторизации,
// чтобы следующий вызов выполнил обмен заново.
func (c *Client) dropStaleToken(ctx context.Context, statusCode int) {
	if statusCode == http.StatusUnauthorized && c.cache != nil {
		_ = c.cache.Invalidate(ctx, accessTokenCacheKey)
	}
}
