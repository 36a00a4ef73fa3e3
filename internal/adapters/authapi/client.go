// Package authapi calls the HorizonX login endpoint.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"horizonx-console/internal/domain"
	"horizonx-console/internal/logger"

	"github.com/golang-jwt/jwt/v5"
)

const (
	loginPath       = "/auth/login"
	accessTokenName = "access_token"
	maxBodySize     = 1 << 20
)

type Client struct {
	baseURL string
	http    *http.Client
	log     logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

type envelope struct {
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

type loginData struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
}

func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*domain.Session, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("authapi: marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("authapi: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authapi: login request: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("authapi: read response: %w", err)
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && res.StatusCode < 300 {
			return nil, fmt.Errorf("authapi: decode response: %w", err)
		}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		c.log.Debug("authapi: login rejected", "status", res.StatusCode, "message", env.Message)
		return nil, &domain.APIError{
			StatusCode: res.StatusCode,
			Message:    env.Message,
			Fields:     env.Errors,
		}
	}

	data, err := decodeLoginData(env.Data)
	if err != nil {
		return nil, err
	}

	if data.AccessToken == "" {
		for _, cookie := range res.Cookies() {
			if cookie.Name == accessTokenName {
				data.AccessToken = cookie.Value
				break
			}
		}
	}

	return &domain.Session{
		User:        data.User,
		AccessToken: data.AccessToken,
		ExpiresAt:   tokenExpiry(data.AccessToken),
	}, nil
}

// decodeLoginData accepts {"user": {...}, "access_token": "..."} as well as a
// bare user object, which older servers return with the token in a cookie.
func decodeLoginData(raw json.RawMessage) (*loginData, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errors.New("authapi: response has no data")
	}

	var data loginData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("authapi: decode login data: %w", err)
	}
	if data.User != nil {
		return &data, nil
	}

	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("authapi: decode user: %w", err)
	}
	if user.ID == 0 && user.Email == "" {
		return nil, errors.New("authapi: response has no user")
	}

	data.User = &user
	return &data, nil
}

// tokenExpiry reads exp without verifying the signature; the console only uses
// it to bound the session lifetime.
func tokenExpiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
