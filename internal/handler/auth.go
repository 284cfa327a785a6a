package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-pos/internal/config"
	"github.com/iliyamo/cinema-pos/internal/model"
	"github.com/iliyamo/cinema-pos/internal/observability"
	"github.com/iliyamo/cinema-pos/internal/repository"
	"github.com/iliyamo/cinema-pos/internal/utils"
)

// AuthHandler bundles dependencies for operator auth endpoints.
type AuthHandler struct {
	Cfg       config.Config
	Operators *repository.OperatorRepo
	Tokens    *repository.TokenRepo
	Log       observability.Logger
}

func NewAuthHandler(cfg config.Config, o *repository.OperatorRepo, t *repository.TokenRepo, log observability.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Operators: o, Tokens: t, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role"` // STAFF | MANAGER, defaults to STAFF
}
type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type operatorPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type authResp struct {
	Operator operatorPart `json:"operator"`
	Access   tokenPart    `json:"access"`
	Refresh  tokenPart    `json:"refresh"`
}

// Register: a MANAGER creates another operator account.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, CodeBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := c.Validate(&req); err != nil {
		return apiError(c, http.StatusBadRequest, CodeBadRequest, "valid email and password (8+ chars) required")
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role != model.RoleManager {
		role = model.RoleStaff
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Operators.Create(ctx, req.Email, req.Password, role, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return apiError(c, http.StatusConflict, CodeConflict, "email already exists")
		}
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, operatorPart{ID: id, Email: req.Email, Role: role})
}

// Login: verify and return a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, CodeBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return apiError(c, http.StatusBadRequest, CodeBadRequest, "email/password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	o, err := h.Operators.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.BurnPasswordCheck(req.Password)
			return apiError(c, http.StatusUnauthorized, CodeUnauthorized, "invalid credentials")
		}
		return writeError(c, h.Log, err)
	}
	if !o.IsActive || !utils.VerifyPassword(o.PasswordHash, req.Password) {
		return apiError(c, http.StatusUnauthorized, CodeUnauthorized, "invalid credentials")
	}
	return h.issue(ctx, c, o, http.StatusOK)
}

// Refresh: validate by hash, revoke old, issue new.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return apiError(c, http.StatusBadRequest, CodeBadRequest, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	opID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return apiError(c, http.StatusUnauthorized, CodeUnauthorized, "invalid refresh")
	}
	_ = h.Tokens.RevokeByHash(ctx, hash)

	o, err := h.Operators.GetByID(ctx, opID)
	if err != nil || !o.IsActive {
		return apiError(c, http.StatusUnauthorized, CodeUnauthorized, "invalid refresh")
	}
	return h.issue(ctx, c, o, http.StatusOK)
}

func (h *AuthHandler) issue(ctx context.Context, c echo.Context, o model.Operator, status int) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, o.ID, o.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return writeError(c, h.Log, errors.Wrap(err, "issue access"))
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return writeError(c, h.Log, errors.Wrap(err, "issue refresh"))
	}
	if err := h.Tokens.StoreRefresh(ctx, o.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return writeError(c, h.Log, errors.Wrap(err, "save refresh"))
	}
	return c.JSON(status, authResp{
		Operator: operatorPart{ID: o.ID, Email: o.Email, Role: o.Role},
		Access:   tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh:  tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	})
}

// Logout revokes one session when a refresh_token is posted, or every
// session of the caller when only a bearer token is sent.
func (h *AuthHandler) Logout(c echo.Context) error {
	var opID uint64
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer ")); err == nil {
			opID = claims.OperatorID
		}
	}

	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch {
	case refreshToken != "":
		hash := utils.HashRefreshRaw(refreshToken)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			return apiError(c, http.StatusUnauthorized, CodeUnauthorized, "invalid refresh token")
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return writeError(c, h.Log, err)
		}
	case opID != 0:
		if err := h.Tokens.RevokeAllForOperator(ctx, opID); err != nil {
			return writeError(c, h.Log, err)
		}
	default:
		return apiError(c, http.StatusBadRequest, CodeBadRequest, "provide Authorization header or refresh_token")
	}
	return c.NoContent(http.StatusNoContent)
}

// Me: the authenticated operator as seen by the token.
func (h *AuthHandler) Me(c echo.Context) error {
	op, err := operatorID(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"operator_id": op, "role": c.Get("role")})
}
