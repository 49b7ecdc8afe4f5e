package client

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

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/models"
)

const maxErrorBody = 4 << 10

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type setRoleRequest struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type userResponse struct {
	User *models.User `json:"user"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HTTPClient talks to the auth server's JSON API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient returns a client for the server at baseURL
// (e.g. "http://127.0.0.1:8080"). Every request is bounded by timeout.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Register(ctx context.Context, in models.RegisterInput) (*models.User, string, error) {
	req := registerRequest{Name: in.Name, Email: in.Email, Password: in.Password}

	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", req, &resp, mapRegisterStatus); err != nil {
		return nil, "", err
	}
	if resp.User == nil || resp.Token == "" {
		return nil, "", fmt.Errorf("register: incomplete response: %w", ErrUnavailable)
	}
	return resp.User, resp.Token, nil
}

func (c *HTTPClient) Login(ctx context.Context, creds models.Credentials) (*models.User, string, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", creds, &resp, mapLoginStatus); err != nil {
		return nil, "", err
	}
	if resp.User == nil || resp.Token == "" {
		return nil, "", fmt.Errorf("login: incomplete response: %w", ErrUnavailable)
	}
	return resp.User, resp.Token, nil
}

func (c *HTTPClient) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil, mapSessionStatus)
}

func (c *HTTPClient) Me(ctx context.Context, token string) (*models.User, error) {
	var resp userResponse
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &resp, mapSessionStatus); err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (c *HTTPClient) SetRole(ctx context.Context, token string, email string, role models.Role) (*models.User, error) {
	var resp userResponse
	req := setRoleRequest{Email: email, Role: role}
	if err := c.do(ctx, http.MethodPut, "/auth/users/role", token, req, &resp, mapSessionStatus); err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, in, out any, mapStatus func(int, string) error) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthHeaderName, common.BearerValue(token))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, path, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return mapStatus(resp.StatusCode, readErrorMessage(resp.Body))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w: %v", path, ErrUnavailable, err)
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return ""
	}
	var e errorResponse
	if err := json.Unmarshal(b, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(b))
}

// mapCommonStatus handles the statuses that mean the same thing on every
// endpoint. It returns nil when the status is endpoint specific.
func mapCommonStatus(status int, msg string) error {
	switch {
	case status == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", common.ErrValidation, msg)
	case status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", common.ErrForbidden, msg)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", common.ErrorNotFound, msg)
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, status, msg)
	}
	return nil
}

func mapRegisterStatus(status int, msg string) error {
	if status == http.StatusConflict {
		return common.ErrDuplicateEmail
	}
	return mapSessionStatus(status, msg)
}

func mapLoginStatus(status int, msg string) error {
	if status == http.StatusUnauthorized {
		return common.ErrInvalidCredentials
	}
	return mapSessionStatus(status, msg)
}

func mapSessionStatus(status int, msg string) error {
	if status == http.StatusUnauthorized {
		return common.ErrTokenExpiredOrInvalid
	}
	if err := mapCommonStatus(status, msg); err != nil {
		return err
	}
	return errors.New("unexpected status " + http.StatusText(status) + ": " + msg)
}
