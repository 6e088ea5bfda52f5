package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/omi/internal/apperror"
	"github.com/sakif/omi/internal/auth"
	"github.com/sakif/omi/internal/model"
	"github.com/sakif/omi/internal/service"
)

// AuthHandler serves account registration, login and the caller's profile.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister → create an account and return a token
//   - HandleLogin    → exchange email + password for a token
//   - HandleMe       → return the authenticated user
//   - HandleUpdateMe → change name, email or password
//
// Presence checks live in AuthService so the messages match across clients;
// the DTO tags only check format.
type AuthHandler struct {
	svc      *service.AuthService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:      svc,
		validate: newValidator(),
		logger:   logger,
	}
}

type registerRequest struct {
	Email    string  `json:"email"    validate:"omitempty,email,max=255"`
	Password string  `json:"password" validate:"max=72"`
	Name     *string `json:"name"     validate:"omitempty,max=100"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User    *model.User `json:"user"`
	Token   string      `json:"token"`
	Message string      `json:"message"`
}

// HandleRegister creates an account.
//
// HTTP: POST /api/auth/register
// REQUEST BODY: {"email": "a@x.com", "password": "...", "name": "Ann"}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, h.logger, validationError(err))
		return
	}

	result, err := h.svc.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		User:    result.User,
		Token:   result.Token,
		Message: "User created successfully",
	})
}

// HandleLogin issues a token for valid credentials.
//
// HTTP: POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		User:    result.User,
		Token:   result.Token,
		Message: "Login successful",
	})
}

// HandleMe returns the authenticated user's profile.
//
// HTTP: GET /api/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	user, err := h.svc.Me(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdateMe applies a partial profile update. Omitted fields are left
// alone; "name": null clears the name.
//
// HTTP: PUT /api/auth/me
func (h *AuthHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	var patch model.UserPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if patch.Email.Set && patch.Email.Value != "" {
		if err := h.validate.Var(patch.Email.Value, "email"); err != nil {
			writeError(w, h.logger, apperror.ValidationFailed("email", "Invalid email address"))
			return
		}
	}

	user, err := h.svc.UpdateMe(r.Context(), userID, patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// requireUser reads the caller's id from the context set by
// auth.RequireAuth. A route mounted without the middleware is a wiring bug,
// reported as 401 rather than served anonymously.
func requireUser(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, logger, apperror.Unauthorized("Access token required"))
		return "", false
	}
	return userID, true
}
