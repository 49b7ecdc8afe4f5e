package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/", time.Second)
}

var testUser = &models.User{ID: "u-1", Name: "Ann", Email: "ann@example.com", Role: models.RoleUser}

func TestHTTPClient_Register_Success(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/register", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusCreated, map[string]any{"token": "a.b.c", "user": testUser})
	})

	u, tok, err := c.Register(context.Background(), models.RegisterInput{
		Name: "Ann", Email: "ann@example.com", Password: "Secret1!", ConfirmPassword: "Secret1!", Role: models.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, "a.b.c", tok)
	assert.Equal(t, testUser.ID, u.ID)

	assert.Equal(t, map[string]any{"name": "Ann", "email": "ann@example.com", "password": "Secret1!"}, got,
		"only name, email and password are sent")
}

func TestHTTPClient_Register_Conflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
	})

	_, _, err := c.Register(context.Background(), models.RegisterInput{Name: "A", Email: "a@b.c", Password: "x"})
	require.ErrorIs(t, err, common.ErrDuplicateEmail)
}

func TestHTTPClient_Login(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var creds models.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password != "right" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid email or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"token": "t.o.k", "user": testUser})
	})

	u, tok, err := c.Login(context.Background(), models.Credentials{Email: "ann@example.com", Password: "right"})
	require.NoError(t, err)
	assert.Equal(t, "t.o.k", tok)
	assert.Equal(t, "ann@example.com", u.Email)

	_, _, err = c.Login(context.Background(), models.Credentials{Email: "ann@example.com", Password: "wrong"})
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestHTTPClient_Login_IncompleteResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"user": testUser})
	})

	_, _, err := c.Login(context.Background(), models.Credentials{Email: "a", Password: "b"})
	require.ErrorIs(t, err, common.ErrNetworkFailure)
}

func TestHTTPClient_LogoutSendsBearer(t *testing.T) {
	var auth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/logout", r.URL.Path)
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.Logout(context.Background(), "a.b.c"))
	assert.Equal(t, "Bearer a.b.c", auth)
}

func TestHTTPClient_Me(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token expired or invalid"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": testUser})
	})

	u, err := c.Me(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)

	_, err = c.Me(context.Background(), "bad")
	require.ErrorIs(t, err, common.ErrTokenExpiredOrInvalid)
}

func TestHTTPClient_SetRole(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/auth/users/role", r.URL.Path)
		var req setRoleRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		switch req.Email {
		case "ann@example.com":
			u := *testUser
			u.Role = req.Role
			writeJSON(w, http.StatusOK, map[string]any{"user": u})
		case "forbidden@example.com":
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		}
	})

	u, err := c.SetRole(context.Background(), "tok", "ann@example.com", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)

	_, err = c.SetRole(context.Background(), "tok", "forbidden@example.com", models.RoleAdmin)
	require.ErrorIs(t, err, common.ErrForbidden)

	_, err = c.SetRole(context.Background(), "tok", "ghost@example.com", models.RoleAdmin)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestHTTPClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"validation", http.StatusBadRequest, `{"error":"name: too short"}`, common.ErrValidation},
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, common.ErrNetworkFailure},
		{"bad gateway plain text", http.StatusBadGateway, `upstream down`, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, _, err := c.Register(context.Background(), models.RegisterInput{})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHTTPClient_UnexpectedStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	err := c.Logout(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}

func TestHTTPClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url, time.Second)
	_, _, err := c.Login(context.Background(), models.Credentials{Email: "a", Password: "b"})
	require.ErrorIs(t, err, common.ErrNetworkFailure)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClient_BadJSONResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{not json"))
	})
	_, err := c.Me(context.Background(), "tok")
	require.ErrorIs(t, err, ErrUnavailable)
}
