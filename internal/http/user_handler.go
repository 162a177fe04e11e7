package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bar-bartender/internal/domain"
	"bar-bartender/internal/service"
)

// UserHandler atiende el alta con verificacion y las sesiones.
type UserHandler struct {
	logger       *zap.Logger
	registration *service.RegistrationService
	userServ     *service.UserService
	jwtServ      *service.JWTService
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(
	logger *zap.Logger,
	registration *service.RegistrationService,
	userServ *service.UserService,
	jwtServ *service.JWTService,
) *UserHandler {
	return &UserHandler{
		logger:       logger,
		registration: registration,
		userServ:     userServ,
		jwtServ:      jwtServ,
	}
}

// Register maneja POST /auth/register.
func (h *UserHandler) Register(c *gin.Context) {
	var req struct {
		Username        string `json:"username"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "register", err)
		return
	}

	pending, err := h.registration.Start(c.Request.Context(), service.RegistrationInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		respondError(c, h.logger, "start registration", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "verification_sent", "pending": pending})
}

// ResendCode maneja POST /auth/register/resend.
func (h *UserHandler) ResendCode(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "resend code", err)
		return
	}

	pending, err := h.registration.Resend(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, h.logger, "resend verification code", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "verification_sent", "pending": pending})
}

// VerifyRegistration maneja POST /auth/register/verify. La cuenta queda
// creada y el cliente debe iniciar sesion.
func (h *UserHandler) VerifyRegistration(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
		Code  string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "verify registration", err)
		return
	}

	user, err := h.registration.Verify(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		respondError(c, h.logger, "verify registration", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Login maneja POST /auth/login.
func (h *UserHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "login", err)
		return
	}

	user, err := h.userServ.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, "login", err)
		return
	}

	tokens, err := h.issueTokens(user)
	if err != nil {
		h.logger.Error("jwt issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue tokens"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "tokens": tokens})
}

// Me maneja GET /auth/me.
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	user, err := h.userServ.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "load user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// RefreshToken maneja POST /auth/refresh.
func (h *UserHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "refresh", err)
		return
	}
	if h.jwtServ == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "jwt not configured"})
		return
	}
	tokens, err := h.jwtServ.RefreshPair(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// Logout maneja POST /auth/logout.
func (h *UserHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "logout", err)
		return
	}
	if h.jwtServ == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "jwt not configured"})
		return
	}
	_ = h.jwtServ.RevokeRefresh(req.RefreshToken)
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) issueTokens(user domain.User) (service.TokenPair, error) {
	if h.jwtServ == nil {
		return service.TokenPair{}, errors.New("jwt not configured")
	}
	return h.jwtServ.GeneratePair(user)
}
