package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/frahmantamala/hr-portal/internal/access"
	"github.com/frahmantamala/hr-portal/internal/transport/httpclient"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Client talks to the auth collaborator.
type Client struct {
	*httpclient.Client
}

func NewClient(base *httpclient.Client) *Client {
	return &Client{Client: base}
}

func (c *Client) Login(ctx context.Context, dto LoginDTO) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.DoJSON(ctx, http.MethodPost, "/api/v1/auth/login", dto, &resp); err != nil {
		if httpclient.IsStatus(err, http.StatusUnauthorized) || httpclient.IsStatus(err, http.StatusBadRequest) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("auth login: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("auth login: response carries no access token")
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, dto RegisterDTO) (string, error) {
	var resp MessageResponse
	if err := c.DoJSON(ctx, http.MethodPost, "/api/v1/auth/register", dto, &resp); err != nil {
		return "", fmt.Errorf("auth register: %w", err)
	}
	return resp.Message, nil
}

func (c *Client) VerifyEmail(ctx context.Context, token string) (string, error) {
	var resp MessageResponse
	if err := c.DoJSON(ctx, http.MethodPost, "/api/v1/auth/verify-email", VerifyEmailDTO{Token: token}, &resp); err != nil {
		if httpclient.IsStatus(err, http.StatusBadRequest) || httpclient.IsStatus(err, http.StatusNotFound) {
			return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return "", fmt.Errorf("auth verify email: %w", err)
	}
	return resp.Message, nil
}

func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrInvalidToken
	}
	var resp TokenPair
	if err := c.DoJSON(ctx, http.MethodPost, "/api/v1/auth/refresh", RefreshTokenDTO{RefreshToken: refreshToken}, &resp); err != nil {
		if httpclient.IsStatus(err, http.StatusUnauthorized) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return nil, fmt.Errorf("auth refresh: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: refresh returned no access token", ErrInvalidToken)
	}
	if resp.RefreshToken == "" {
		resp.RefreshToken = refreshToken
	}
	return &resp, nil
}

func (c *Client) GetCurrentUser(ctx context.Context) (*access.Identity, error) {
	var user access.Identity
	if err := c.DoJSON(ctx, http.MethodGet, "/api/v1/auth/me", nil, &user); err != nil {
		return nil, fmt.Errorf("auth current user: %w", err)
	}
	return &user, nil
}
