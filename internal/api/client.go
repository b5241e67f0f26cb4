package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
)

// AuthMode описывает способ авторизации запросов
type AuthMode struct {
	kind          authKind
	devUserID     string
	tokenProvider func(ctx context.Context) (string, error)
}

type authKind int

const (
	authNone authKind = iota
	authDevUserID
	authBearer
)

func AuthNone() AuthMode { return AuthMode{kind: authNone} }

func AuthDevUserID(userID string) AuthMode {
	return AuthMode{kind: authDevUserID, devUserID: userID}
}

func AuthBearer(provider func(ctx context.Context) (string, error)) AuthMode {
	return AuthMode{kind: authBearer, tokenProvider: provider}
}

// Error — ошибка ответа API с кодом и телом
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("API вернул статус %d: %s", e.StatusCode, e.Body)
}

// Client — клиент удалённого API. Потокобезопасен,
// режим авторизации можно менять на лету.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu       sync.RWMutex
	authMode AuthMode
}

func NewClient(baseURL string, authMode AuthMode) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		authMode:   authMode,
	}
}

func (c *Client) SetAuthMode(mode AuthMode) {
	c.mu.Lock()
	c.authMode = mode
	c.mu.Unlock()

	switch mode.kind {
	case authDevUserID:
		log.Printf("🔑 Режим авторизации: dev-пользователь %s", mode.devUserID)
	case authBearer:
		log.Printf("🔑 Режим авторизации: bearer-токен")
	default:
		log.Printf("🔑 Режим авторизации: гость")
	}
}

// IsAuthenticated сообщает, есть ли удалённая идентичность
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authMode.kind != authNone
}

func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.send(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.send(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.send(ctx, http.MethodPut, path, body, out)
}

func (c *Client) send(ctx context.Context, method, path string, body, out interface{}) error {
	req, err := c.buildRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка запроса %s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out == nil || len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("ошибка декодирования ответа %s: %v", path, err)
	}
	return nil
}

func (c *Client) buildRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ошибка кодирования запроса: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.mu.RLock()
	mode := c.authMode
	c.mu.RUnlock()

	switch mode.kind {
	case authDevUserID:
		req.Header.Set("X-User-Id", mode.devUserID)
	case authBearer:
		token, err := mode.tokenProvider(ctx)
		if err != nil {
			return nil, fmt.Errorf("ошибка получения токена: %v", err)
		}
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, fmt.Errorf("пустой токен авторизации")
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}
