// Package handler содержит HTTP API платежей: создание, чтение, список и PATCH.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"example.com/send-money/services/payments/internal/domain"
	"example.com/send-money/services/payments/internal/service"
)

// PaymentHandler обрабатывает запросы к /payments/.
type PaymentHandler struct {
	svc service.PaymentService
}

// NewPaymentHandler создаёт обработчик платежей.
func NewPaymentHandler(svc service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// Create — POST /payments/
func (h *PaymentHandler) Create(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err.Error())
		return
	}

	dob, err := time.Parse(dateLayout, req.PrisonerDOB)
	if err != nil {
		invalidRequest(c, "prisoner_dob: ожидается формат YYYY-MM-DD")
		return
	}

	payment, err := h.svc.Create(c.Request.Context(), service.CreatePaymentRequest{
		Amount:         req.Amount,
		ServiceCharge:  req.ServiceCharge,
		RecipientName:  req.RecipientName,
		PrisonerNumber: req.PrisonerNumber,
		PrisonerDOB:    dob,
	})
	if err != nil {
		HandleError(c, err, "Create")
		return
	}

	c.JSON(http.StatusCreated, toPaymentResponse(payment))
}

// Get — GET /payments/:ref/
func (h *PaymentHandler) Get(c *gin.Context) {
	payment, err := h.svc.Get(c.Request.Context(), c.Param("ref"))
	if err != nil {
		HandleError(c, err, "Get")
		return
	}

	c.JSON(http.StatusOK, toPaymentResponse(payment))
}

// List — GET /payments/?status=&modified_before=&offset=&limit=
func (h *PaymentHandler) List(c *gin.Context) {
	var q ListPaymentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		invalidRequest(c, err.Error())
		return
	}

	req := service.ListRequest{Offset: q.Offset, Limit: q.Limit}
	if q.Status != "" {
		status := domain.PaymentStatus(q.Status)
		req.Status = &status
	}
	if q.ModifiedBefore != "" {
		before, err := time.Parse(time.RFC3339, q.ModifiedBefore)
		if err != nil {
			invalidRequest(c, "modified_before: ожидается RFC3339")
			return
		}
		req.ModifiedBefore = &before
	}

	result, err := h.svc.List(c.Request.Context(), req)
	if err != nil {
		HandleError(c, err, "List")
		return
	}

	resp := ListPaymentsResponse{
		Count:   result.Count,
		Results: make([]PaymentResponse, 0, len(result.Payments)),
	}
	for _, p := range result.Payments {
		resp.Results = append(resp.Results, toPaymentResponse(p))
	}

	c.JSON(http.StatusOK, resp)
}

// Patch — PATCH /payments/:ref/
func (h *PaymentHandler) Patch(c *gin.Context) {
	var req PatchPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err.Error())
		return
	}

	payment, err := h.svc.Patch(c.Request.Context(), c.Param("ref"), req.toUpdate())
	if err != nil {
		HandleError(c, err, "Patch")
		return
	}

	c.JSON(http.StatusOK, toPaymentResponse(payment))
}
