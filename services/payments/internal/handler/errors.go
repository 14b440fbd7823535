package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/send-money/pkg/logger"
	"example.com/send-money/services/payments/internal/domain"
)

// ErrorResponse — стандартный формат ошибки API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HandleError маппит доменные ошибки на HTTP статусы.
func HandleError(c *gin.Context, err error, method string) {
	log := logger.FromContext(c.Request.Context())

	switch {
	case errors.Is(err, domain.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Платёж не найден"})

	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrFieldConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "conflict", Message: err.Error()})

	case errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidPayment):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_argument", Message: err.Error()})

	default:
		log.Error().Err(err).Str("method", method).Msg("Внутренняя ошибка")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Внутренняя ошибка сервера"})
	}
}

func invalidRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: msg})
}
