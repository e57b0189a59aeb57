package payment

import (
	"net/http"
	"strconv"

	"staybook/internal/domain"
	"staybook/internal/middleware"
	"staybook/internal/pkg/acquiring"
	"staybook/internal/pkg/apperr"
	"staybook/internal/pkg/response"
	"staybook/internal/pkg/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments", h.CreatePayment)
	rg.GET("/payments", h.ListPayments)
	rg.GET("/payments/:id", h.GetPayment)
	rg.POST("/payments/:id/invoice", h.CreateInvoice)
	rg.POST("/payments/:id/check-status", h.CheckStatus)
	rg.PATCH("/payments/:id/confirm",
		middleware.RequireRole(string(domain.RoleAdmin), string(domain.RoleLandlord)),
		h.ConfirmManually)
	rg.PATCH("/payments/:id/cancel", h.Cancel)
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/webhook/:secret", h.Webhook)
}

// CreatePayment godoc
// @Summary      Create payment
// @Description  Opens a pending payment for a booking
// @Tags         Payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body CreatePaymentRequest true "Payment payload"
// @Success      201 {object} PaymentResponse
// @Failure      400 {object} response.ErrorBody
// @Failure      404 {object} response.ErrorBody
// @Failure      409 {object} response.ErrorBody
// @Router       /payments [post]
func (h *Handler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(validator.BindError("Invalid request body", err))
		return
	}
	p, err := h.service.CreatePayment(c.Request.Context(), middleware.CurrentActor(c), CreateInput{
		BookingID: req.BookingID,
		Type:      req.Type,
		Amount:    req.Amount,
		Currency:  req.Currency,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, toPaymentResponse(p))
}

func (h *Handler) ListPayments(c *gin.Context) {
	bookingID, err := strconv.ParseInt(c.Query("bookingId"), 10, 64)
	if err != nil || bookingID <= 0 {
		_ = c.Error(apperr.Validation("VALIDATION_ERROR", "bookingId query parameter is required", map[string]any{"field": "bookingId"}))
		return
	}
	items, err := h.service.ListByBooking(c.Request.Context(), middleware.CurrentActor(c), bookingID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	out := make([]PaymentResponse, 0, len(items))
	for i := range items {
		out = append(out, toPaymentResponse(&items[i]))
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) GetPayment(c *gin.Context) {
	id, ok := paymentID(c)
	if !ok {
		return
	}
	p, err := h.service.Get(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, toPaymentResponse(p))
}

// CreateInvoice godoc
// @Summary      Create provider invoice
// @Description  Returns the hosted payment page URL, or null for payments not paid through the provider
// @Tags         Payments
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "Payment ID"
// @Success      200 {object} InvoiceResponse
// @Failure      502 {object} response.ErrorBody
// @Router       /payments/{id}/invoice [post]
func (h *Handler) CreateInvoice(c *gin.Context) {
	id, ok := paymentID(c)
	if !ok {
		return
	}
	url, err := h.service.CreateExternalInvoice(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	resp := InvoiceResponse{PaymentID: id}
	if url != "" {
		resp.InvoiceURL = &url
	}
	response.Success(c, http.StatusOK, resp)
}

func (h *Handler) CheckStatus(c *gin.Context) {
	id, ok := paymentID(c)
	if !ok {
		return
	}
	var req CheckStatusRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(validator.BindError("Invalid request body", err))
			return
		}
	}

	ctx := c.Request.Context()
	actor := middleware.CurrentActor(c)
	completed, err := h.service.CheckExternalStatus(ctx, actor, id, req.InvoiceID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	p, err := h.service.Get(ctx, actor, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, CheckStatusResponse{PaymentID: id, Completed: completed, Status: string(p.Status)})
}

func (h *Handler) ConfirmManually(c *gin.Context) {
	id, ok := paymentID(c)
	if !ok {
		return
	}
	p, err := h.service.ConfirmManually(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, toPaymentResponse(p))
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := paymentID(c)
	if !ok {
		return
	}
	p, err := h.service.Cancel(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, toPaymentResponse(p))
}

// Webhook godoc
// @Summary      Provider webhook
// @Description  Applies an invoice status notification. Non-success statuses are acknowledged without effect.
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Param        secret path string true "Shared webhook secret"
// @Success      200 {object} WebhookResponse
// @Failure      400 {object} response.ErrorBody
// @Failure      401 {object} response.ErrorBody
// @Failure      404 {object} response.ErrorBody
// @Router       /payments/webhook/{secret} [post]
func (h *Handler) Webhook(c *gin.Context) {
	if err := h.service.VerifyWebhookSecret(c.Param("secret")); err != nil {
		_ = c.Error(err)
		return
	}
	var payload acquiring.StatusPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		_ = c.Error(validator.BindError("Invalid webhook payload", err))
		return
	}

	res, err := h.service.HandleWebhook(c.Request.Context(), c.Param("secret"), payload)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, WebhookResponse{Status: "ok", Applied: res.Applied})
}

func paymentID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		_ = c.Error(apperr.Validation("INVALID_ID", "invalid payment id", map[string]any{"field": "id"}))
		return 0, false
	}
	return id, true
}
