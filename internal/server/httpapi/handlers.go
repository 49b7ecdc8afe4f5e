package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/models"
	"github.com/dmitrijs2005/shopkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/shopkeeper/internal/server/services"
	"github.com/dmitrijs2005/shopkeeper/internal/token"
)

const maxBodyBytes = 1 << 20

// UserService is the part of services.UserService the API needs.
type UserService interface {
	Register(ctx context.Context, in models.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, creds models.Credentials) (*services.AuthResult, error)
	Authenticate(ctx context.Context, tok string) (*token.Claims, error)
	Me(ctx context.Context, claims *token.Claims) (*models.User, error)
	Logout(ctx context.Context, claims *token.Claims) error
	SetRole(ctx context.Context, actor *token.Claims, email string, role models.Role) (*models.User, error)
}

type registerRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword,omitempty"`
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

// Handler serves the /auth endpoints.
type Handler struct {
	users   UserService
	metrics *metrics.Metrics
	log     logging.Logger
}

// NewHandler builds the handler set over users.
func NewHandler(users UserService, m *metrics.Metrics, log logging.Logger) *Handler {
	return &Handler{users: users, metrics: m, log: log}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.users.Register(r.Context(), models.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	h.record("register", err)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{Token: res.Token, User: res.User})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if !h.decode(w, r, &creds) {
		return
	}

	res, err := h.users.Login(r.Context(), creds)
	h.record("login", err)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: res.Token, User: res.User})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())

	err := h.users.Logout(r.Context(), claims)
	h.record("logout", err)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())

	u, err := h.users.Me(r.Context(), claims)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: u})
}

func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	claims, _ := ClaimsFrom(r.Context())

	u, err := h.users.SetRole(r.Context(), claims, req.Email, req.Role)
	h.record("set_role", err)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: u})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error(r.Context(), "request failed", "route", routePattern(r), "error", err)
	}
	writeError(w, status, msg)
}

func (h *Handler) record(event string, err error) {
	switch {
	case err == nil:
		h.metrics.AuthEvent(event, metrics.OutcomeSuccess)
	case isClientError(err):
		h.metrics.AuthEvent(event, metrics.OutcomeRejected)
	default:
		h.metrics.AuthEvent(event, metrics.OutcomeError)
	}
}

func isClientError(err error) bool {
	for _, target := range []error{
		common.ErrValidation, common.ErrDuplicateEmail, common.ErrInvalidCredentials,
		common.ErrTokenExpiredOrInvalid, common.ErrForbidden, common.ErrorNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
