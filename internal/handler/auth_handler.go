package handler

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"letterdesk/internal/errors"
	"letterdesk/internal/model"
	"letterdesk/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
	userService service.UserService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, userService service.UserService) *AuthHandler {
	return &AuthHandler{authService: authService, userService: userService}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,max=255"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest represents a logout request.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse represents an authentication response.
type AuthResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	User         *model.User `json:"user,omitempty"`
}

// Register godoc
// @Summary Register a new staff user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if stderrors.Is(err, service.ErrUserAlreadyExists) {
			return echo.NewHTTPError(http.StatusConflict, errors.ErrorResponse{
				Error: err.Error(),
				Code:  "USER_ALREADY_EXISTS",
			})
		}
		return fail(c, err)
	}

	return c.JSON(http.StatusCreated, user)
}

// Login godoc
// @Summary Login user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	tokens, user, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if stderrors.Is(err, service.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Error: err.Error(),
				Code:  "INVALID_CREDENTIALS",
			})
		}
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, AuthResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User:         user,
	})
}

// Refresh godoc
// @Summary Refresh access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	accessToken, err := h.authService.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		if stderrors.Is(err, service.ErrInvalidRefreshToken) {
			return invalidRefreshToken(err)
		}
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, AuthResponse{AccessToken: accessToken})
}

// Logout godoc
// @Summary Logout user
// @Description Revokes the refresh token. A bearer access token, when sent, is revoked as well.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LogoutRequest true "Refresh token"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	var req LogoutRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	accessToken := strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	if err := h.authService.Logout(c.Request().Context(), req.RefreshToken, accessToken); err != nil {
		if stderrors.Is(err, service.ErrInvalidRefreshToken) {
			return invalidRefreshToken(err)
		}
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "logged out successfully"})
}

// Me godoc
// @Summary Current user profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Router /me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	user, err := h.userService.GetUser(c.Request().Context(), actor, actor.UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

func invalidRefreshToken(err error) error {
	return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
		Error: err.Error(),
		Code:  "INVALID_REFRESH_TOKEN",
	})
}
