package payment

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"wayantrails/internal/gateway"
	"wayantrails/internal/pkg/response"
)

// Razorpay sends the webhook transport signature in this header.
const webhookSignatureHeader = "X-Razorpay-Signature"

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublic mounts the endpoints the gateway itself calls: the browser
// redirect callback and the server-to-server webhook. Both authenticate by
// signature, not by session.
func (h *Handler) RegisterPublic(rg *gin.RouterGroup) {
	rg.POST("/payments/verify", h.VerifyPayment)
	rg.POST("/payments/webhook", h.Webhook)
	rg.GET("/payments/methods", h.Methods)
}

// RegisterProtected mounts the authenticated payment routes.
func (h *Handler) RegisterProtected(rg *gin.RouterGroup) {
	rg.POST("/payments/order", h.CreateOrder)
	rg.GET("/payments/status/:booking_id", h.Status)
}

// RegisterStaff mounts the back-office payment routes.
func (h *Handler) RegisterStaff(rg *gin.RouterGroup) {
	rg.POST("/payments/link", h.CreatePaymentLink)
	rg.POST("/payments/refund", h.Refund)
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Validation(c, "booking_id is required")
		return
	}

	resp, err := h.service.CreateOrder(c.Request.Context(), req)
	if err != nil {
		writePaymentError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"order": resp})
}

func (h *Handler) CreatePaymentLink(c *gin.Context) {
	var req CreatePaymentLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Validation(c, "booking_id is required")
		return
	}

	resp, err := h.service.CreatePaymentLink(c.Request.Context(), c.GetInt64("user_id"), req)
	if err != nil {
		writePaymentError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"payment_link": resp})
}

func (h *Handler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Validation(c, "order id, payment id and signature are required")
		return
	}

	resp, err := h.service.ProcessPaymentSuccess(c.Request.Context(), req)
	if err != nil {
		writePaymentError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"payment": resp})
}

func (h *Handler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Validation(c, "unreadable body")
		return
	}

	err = h.service.HandleWebhook(c.Request.Context(), body, c.GetHeader(webhookSignatureHeader))
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			response.Error(c, http.StatusUnauthorized, "INVALID_SIGNATURE", "Webhook signature verification failed")
			return
		}
		// Non-2xx makes the provider retry, which is what we want for
		// transient failures.
		writePaymentError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"received": true})
}

func (h *Handler) Refund(c *gin.Context) {
	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Validation(c, "booking_id is required")
		return
	}

	resp, err := h.service.CreateRefund(c.Request.Context(), req)
	if err != nil {
		writePaymentError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"refund": resp})
}

func (h *Handler) Status(c *gin.Context) {
	rows, err := h.service.PaymentStatus(c.Request.Context(), c.Param("booking_id"))
	if err != nil {
		writePaymentError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"payments": rows})
}

func (h *Handler) Methods(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"methods": h.service.Methods()})
}

func writePaymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.Validation(c, "Invalid payment request")
	case errors.Is(err, ErrInvalidSignature):
		response.Error(c, http.StatusBadRequest, "INVALID_SIGNATURE", "Payment signature verification failed")
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrBookingNotFound):
		response.NotFound(c, "Payment or booking not found")
	case errors.Is(err, ErrForbidden):
		response.Forbidden(c, "You cannot act on this payment")
	case errors.Is(err, ErrNotPayable):
		response.Conflict(c, "Booking is not in a payable state")
	case errors.Is(err, ErrNotSettled):
		response.Conflict(c, "No settled payment to refund")
	case errors.Is(err, ErrAlreadyRefunded):
		response.Conflict(c, "Payment was already refunded")
	case errors.Is(err, ErrAmountExceeds):
		response.Validation(c, "Refund amount exceeds the amount paid")
	case errors.Is(err, gateway.ErrUnavailable):
		response.Error(c, http.StatusBadGateway, "GATEWAY_UNAVAILABLE", "Payment provider is temporarily unavailable")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
	}
}
