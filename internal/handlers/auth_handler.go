package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"carbon-filing/internal/auth"
	"carbon-filing/internal/repository"
	"carbon-filing/pkg/validator"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService *auth.Service
	users       *repository.UserRepository
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, users *repository.UserRepository) *AuthHandler {
	return &AuthHandler{authService: authService, users: users}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued token and user profile
type LoginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID          uint   `json:"id"`
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
		Role        string `json:"role"`
	} `json:"user"`
}

// Login handles user login
// @Summary Log in
// @Description Verify credentials and issue a JWT
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse "Login successful"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := validator.ValidateStruct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.GetByEmail(req.Email)
	if err != nil {
		slog.Error("Login lookup failed", "email", req.Email, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	if user == nil || !user.IsActive {
		respondWithError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := h.authService.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		respondWithError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.authService.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		slog.Error("Token generation failed", "user_id", user.ID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	slog.Info("User logged in", "user_id", user.ID)

	var resp LoginResponse
	resp.Token = token
	resp.User.ID = user.ID
	resp.User.Email = user.Email
	resp.User.DisplayName = user.DisplayName
	resp.User.Role = user.Role
	_ = JSONResponse(w, resp)
}
