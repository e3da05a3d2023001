// Package chatapi — клиент внешнего чат-API: выпуск клиентских
// сессий для фронтенда.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/magabrotheeeer/chatwave-backend/internal/config"
)

// ErrNotConfigured возвращается, когда ключ чат-API не задан.
var ErrNotConfigured = errors.New("chat api is not configured")

// Session — короткоживущая клиентская сессия чата.
type Session struct {
	ClientSecret string `json:"client_secret"`
	ExpiresAfter int64  `json:"expires_after"`
}

// Client выпускает сессии у провайдера чата.
type Client struct {
	apiKey     string
	workflowID string
	apiBase    string
	httpClient *http.Client
}

// NewClient создает новый экземпляр Client.
func NewClient(cfg config.Chat) *Client {
	return &Client{
		apiKey:     cfg.APIKey,
		workflowID: cfg.WorkflowID,
		apiBase:    strings.TrimRight(cfg.APIBase, "/"),
		httpClient: &http.Client{Timeout: cfg.TimeoutChat},
	}
}

// CreateSession выпускает клиентскую сессию чата для пользователя.
func (c *Client) CreateSession(ctx context.Context, userUID string) (*Session, error) {
	const op = "chatapi.CreateSession"

	if c.apiKey == "" || c.workflowID == "" {
		return nil, ErrNotConfigured
	}

	payload := map[string]any{
		"workflow": map[string]string{"id": c.workflowID},
		"user":     userUID,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/v1/chatkit/sessions", &buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OpenAI-Beta", "chatkit_beta=v1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("%s: unexpected status %s: %s", op, resp.Status, string(body))
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &session, nil
}
