package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/send-money/pkg/logger"
	"example.com/send-money/services/sendmoney/internal/domain"
	"example.com/send-money/services/sendmoney/internal/service"
)

// ErrorResponse — стандартный формат ошибки API.
type ErrorResponse struct {
	Error          string `json:"error"`
	Message        string `json:"message"`
	ShortReference string `json:"short_payment_ref,omitempty"`
}

// HandleError преобразует ошибку сценария оплаты в HTTP ответ.
// Плательщику уходит только короткая ссылка на платёж, подробности — в лог.
func HandleError(c *gin.Context, err error, method string) {
	log := logger.FromContext(c.Request.Context())

	var flowErr *service.FlowError

	switch {
	case errors.Is(err, domain.ErrInvalidPrisonerNumber):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_argument",
			Message: "Неверный номер заключённого",
		})
	case errors.Is(err, domain.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_argument",
			Message: "Неверная сумма перевода",
		})
	case errors.Is(err, service.ErrFlowAborted):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "flow_aborted",
			Message: "Платёж уже обработан, начните оплату заново",
		})
	case errors.As(err, &flowErr):
		log.Warn().Err(err).Str("method", method).Msg("Сбой сценария оплаты")
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:          "payment_error",
			Message:        "Не удалось обработать платёж, попробуйте позже",
			ShortReference: flowErr.ShortReference,
		})
	default:
		log.Error().Err(err).Str("method", method).Msg("Внутренняя ошибка")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Внутренняя ошибка сервера",
		})
	}
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorResponse{
		Error:   "not_found",
		Message: "Способ оплаты недоступен",
	})
}

func invalidRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_request",
		Message: message,
	})
}
