package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Techmanna/seat-reservation-api/internal/config"
	"github.com/Techmanna/seat-reservation-api/internal/model"
	"github.com/Techmanna/seat-reservation-api/internal/repository"
	"github.com/Techmanna/seat-reservation-api/internal/utils"
)

// AuthHandler issues admin access tokens. Customers never authenticate;
// only the settings management endpoint sits behind a login.
type AuthHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResp struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// Login handles POST /api/auth/login for admin users.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, Envelope{Success: false, Message: "Invalid request body", Error: "invalid request body"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, Envelope{Success: false, Message: "Login failed", Error: "email and password are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err == repository.ErrNotFound {
		return c.JSON(http.StatusUnauthorized, Envelope{Success: false, Message: "Login failed", Error: "invalid credentials"})
	}
	if err != nil {
		return fail(c, "Login failed", err)
	}
	if u.Role != model.RoleAdmin || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, Envelope{Success: false, Message: "Login failed", Error: "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, "Login failed", err)
	}
	return ok(c, http.StatusOK, "Login successful", loginResp{Token: access.Token, Expires: access.Exp})
}
