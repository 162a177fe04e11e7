package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bar-bartender/internal/repository"
	"bar-bartender/internal/service"
)

var errorStatuses = []struct {
	status int
	errs   []error
}{
	{http.StatusBadRequest, []error{
		service.ErrInvalidEmail, service.ErrInvalidUsername, service.ErrPasswordTooShort,
		service.ErrPasswordMismatch, service.ErrCodeInvalid,
		service.ErrInvalidProduct, service.ErrInvalidHomemade, service.ErrNoIngredients,
		service.ErrUnknownIngredient, service.ErrNothingSelected,
		service.ErrInvalidRecipe, service.ErrInvalidCategory,
	}},
	{http.StatusUnauthorized, []error{service.ErrInvalidCredentials}},
	{http.StatusNotFound, []error{repository.ErrNotFound, service.ErrUserNotFound}},
	{http.StatusConflict, []error{
		service.ErrEmailTaken, service.ErrUsernameTaken, service.ErrItemNumberTaken, repository.ErrDuplicate,
	}},
	{http.StatusGone, []error{service.ErrCodeExpired, service.ErrNoPendingSignup}},
	{http.StatusTooManyRequests, []error{service.ErrRateLimited, service.ErrTooManyAttempts}},
	{http.StatusServiceUnavailable, []error{service.ErrEmailSendFailure}},
}

// statusFor traduce errores de servicio a codigos HTTP; 0 si no es conocido.
func statusFor(err error) int {
	for _, group := range errorStatuses {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.status
			}
		}
	}
	return 0
}

// respondError responde con el mensaje del error conocido o con un 500
// generico que solo queda en el log.
func respondError(c *gin.Context, logger *zap.Logger, op string, err error) {
	if status := statusFor(err); status != 0 {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	logger.Error(op+" failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "could not " + op})
}

func badRequest(c *gin.Context, logger *zap.Logger, what string, err error) {
	logger.Warn("invalid "+what+" request", zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}
