package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/port/input"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// PaymentHandler is a primary adapter (HTTP handler)
type PaymentHandler struct {
	log            *slog.Logger
	paymentService input.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService input.PaymentService, log *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		log:            log,
		paymentService: paymentService,
	}
}

// Register mounts the payment routes on g (normally /api/v1)
func (h *PaymentHandler) Register(g *echo.Group) {
	g.POST("/payments", h.CreatePayment)
	g.GET("/payments", h.ListPayments)
	g.GET("/payments/:id", h.GetPayment)
	g.GET("/payments/status/:status", h.ListPaymentsByStatus)
	g.GET("/payments/user/:userId", h.ListPaymentsForUser)
}

// CreatePaymentRequest represents the HTTP request to create a payment.
// Amount accepts a JSON number or a decimal string.
type CreatePaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	SenderID    string          `json:"senderId"`
	ReceiverID  string          `json:"receiverId"`
	Description string          `json:"description"`
}

// PaymentResponse represents the HTTP response for a payment
type PaymentResponse struct {
	ID          string `json:"id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	SenderID    string `json:"senderId"`
	ReceiverID  string `json:"receiverId"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toHTTPResponse(r *input.PaymentResponse) PaymentResponse {
	return PaymentResponse{
		ID:          r.ID.String(),
		Amount:      r.Amount.StringFixed(2),
		Currency:    string(r.Currency),
		Status:      string(r.Status),
		SenderID:    r.SenderID,
		ReceiverID:  r.ReceiverID,
		Description: r.Description,
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   r.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toHTTPResponses(rs []*input.PaymentResponse) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, toHTTPResponse(r))
	}
	return out
}

// CreatePayment handles payment creation
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	var req CreatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
	}

	// Convert to service request
	serviceReq := input.CreatePaymentRequest{
		Amount:      req.Amount,
		Currency:    core.Currency(req.Currency),
		SenderID:    req.SenderID,
		ReceiverID:  req.ReceiverID,
		Description: req.Description,
	}

	// Call service (input port)
	response, err := h.paymentService.CreatePayment(c.Request().Context(), serviceReq)
	if err != nil {
		return h.fail(c, err, "Failed to create payment")
	}

	return c.JSON(http.StatusCreated, toHTTPResponse(response))
}

// GetPayment handles payment retrieval by ID
func (h *PaymentHandler) GetPayment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid payment ID"})
	}

	response, err := h.paymentService.GetPayment(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err, "Failed to retrieve payment")
	}

	return c.JSON(http.StatusOK, toHTTPResponse(response))
}

// ListPayments returns every payment
func (h *PaymentHandler) ListPayments(c echo.Context) error {
	responses, err := h.paymentService.ListPayments(c.Request().Context())
	if err != nil {
		return h.fail(c, err, "Failed to list payments")
	}
	return c.JSON(http.StatusOK, toHTTPResponses(responses))
}

// ListPaymentsByStatus returns payments currently in the path status
func (h *PaymentHandler) ListPaymentsByStatus(c echo.Context) error {
	status, err := core.ParsePaymentStatus(c.Param("status"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	responses, err := h.paymentService.ListPaymentsByStatus(c.Request().Context(), status)
	if err != nil {
		return h.fail(c, err, "Failed to list payments")
	}
	return c.JSON(http.StatusOK, toHTTPResponses(responses))
}

// ListPaymentsForUser returns payments sent or received by the path user
func (h *PaymentHandler) ListPaymentsForUser(c echo.Context) error {
	responses, err := h.paymentService.ListPaymentsForUser(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return h.fail(c, err, "Failed to list payments")
	}
	return c.JSON(http.StatusOK, toHTTPResponses(responses))
}

// fail maps core errors to status codes. Internal errors are not echoed back.
func (h *PaymentHandler) fail(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, core.ErrInvalidPayment), errors.Is(err, core.ErrInvalidStatus):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, core.ErrPaymentNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "Payment not found"})
	default:
		h.log.ErrorContext(c.Request().Context(), fallback, "path", c.Path(), "err", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: fallback})
	}
}
