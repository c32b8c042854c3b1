package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"skillmatrix/internal/middleware"
	"skillmatrix/internal/service"
)

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	authService *service.AuthService
	userService *service.UserService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, userService *service.UserService) *AuthHandler {
	return &AuthHandler{authService: authService, userService: userService}
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Login authenticates a user by login or email
// @Summary Log in
// @Description Authenticate with login or email plus password, returns an access/refresh token pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "Credentials"
// @Success 200 {object} service.TokenPair
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrMsgInvalidRequestBody, http.StatusBadRequest)
		return
	}
	if req.Login == "" || req.Password == "" {
		http.Error(w, "Login and password are required", http.StatusBadRequest)
		return
	}

	pair, err := h.authService.Login(req.Login, req.Password, clientIP(r), r.UserAgent())
	if err != nil {
		slog.Warn("Login failed", "login", req.Login, "error", err)
		writeServiceError(w, err)
		return
	}

	JSONResponse(w, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a new pair
// @Summary Refresh tokens
// @Description Exchange a valid refresh token for a fresh access/refresh pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body refreshRequest true "Refresh token"
// @Success 200 {object} service.TokenPair
// @Failure 401 {object} map[string]string "Invalid token"
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrMsgInvalidRequestBody, http.StatusBadRequest)
		return
	}

	pair, err := h.authService.Refresh(req.RefreshToken, clientIP(r), r.UserAgent())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	JSONResponse(w, pair)
}

// Logout revokes the presented token's session
// @Summary Log out
// @Description Revoke the session behind the presented access token
// @Tags Auth
// @Security BearerAuth
// @Success 204 "Logged out"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}
	jti, _ := middleware.GetTokenJTI(r)

	if err := h.authService.Logout(jti, userID, clientIP(r), r.UserAgent()); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll revokes every session of the current user
// @Summary Log out everywhere
// @Description Revoke all sessions of the current user
// @Tags Auth
// @Security BearerAuth
// @Success 204 "Logged out"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	if err := h.authService.LogoutAll(userID, clientIP(r), r.UserAgent()); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword replaces the current user's password
// @Summary Change password
// @Description Verify the current password and replace it, revoking all sessions
// @Tags Auth
// @Security BearerAuth
// @Accept json
// @Param request body changePasswordRequest true "Passwords"
// @Success 204 "Password changed"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Wrong current password"
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrMsgInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.authService.ChangePassword(userID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me returns the current user's profile
// @Summary Current user
// @Description Return the profile behind the presented token
// @Tags Auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, ErrMsgUserIDNotFound, http.StatusUnauthorized)
		return
	}

	user, err := h.userService.Get(userID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	JSONResponse(w, user)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	return r.RemoteAddr
}
