package booking

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"wayantrails/internal/pkg/jwt"
	"wayantrails/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublic mounts routes that work without a full login: booking intake
// (guest checkout) and the advisory availability check.
func (h *Handler) RegisterPublic(rg *gin.RouterGroup) {
	rg.POST("/bookings", h.CreateBooking)
	rg.GET("/bookings/availability", h.CheckAvailability)
}

// RegisterProtected mounts the authenticated booking routes.
func (h *Handler) RegisterProtected(rg *gin.RouterGroup) {
	rg.GET("/bookings/:booking_id", h.GetBooking)
	rg.GET("/bookings/:booking_id/refund-quote", h.RefundQuote)
	rg.GET("/bookings/:booking_id/whatsapp-link", h.WhatsAppLink)
	rg.POST("/bookings/:booking_id/cancel", h.CancelBooking)
}

// RegisterStaff mounts the back-office routes.
func (h *Handler) RegisterStaff(rg *gin.RouterGroup) {
	rg.GET("/bookings/number/:number", h.GetByNumber)
	rg.GET("/bookings/:booking_id/history", h.History)
	rg.POST("/bookings/:booking_id/confirm", h.ConfirmBooking)
	rg.POST("/bookings/:booking_id/complete", h.CompleteBooking)
	rg.POST("/bookings/:booking_id/no-show", h.MarkNoShow)
}

func actorFrom(c *gin.Context) Actor {
	return Actor{
		UserID:  c.GetInt64("user_id"),
		IsStaff: c.GetString("role") == jwt.RoleStaff,
	}
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Validation(c, "Invalid request body")
		return
	}

	resp, err := h.service.CreateBooking(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"booking": resp})
}

func (h *Handler) GetBooking(c *gin.Context) {
	resp, err := h.service.GetBooking(c.Request.Context(), actorFrom(c), c.Param("booking_id"))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": resp})
}

func (h *Handler) GetByNumber(c *gin.Context) {
	resp, err := h.service.GetBookingByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": resp})
}

func (h *Handler) History(c *gin.Context) {
	rows, err := h.service.History(c.Request.Context(), c.Param("booking_id"))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"history": rows})
}

func (h *Handler) ConfirmBooking(c *gin.Context) {
	var req ConfirmBookingRequest
	_ = c.ShouldBindJSON(&req) // empty body is fine for confirm

	resp, err := h.service.ConfirmBooking(c.Request.Context(), actorFrom(c), c.Param("booking_id"), req)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": resp})
}

func (h *Handler) WhatsAppLink(c *gin.Context) {
	link, err := h.service.WhatsAppLink(c.Request.Context(), actorFrom(c), c.Param("booking_id"))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"whatsapp_link": link})
}

func (h *Handler) CancelBooking(c *gin.Context) {
	var req CancelBookingRequest
	_ = c.ShouldBindJSON(&req)

	resp, quote, err := h.service.CancelBooking(c.Request.Context(), actorFrom(c), c.Param("booking_id"), req)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": resp, "refund": quote})
}

func (h *Handler) RefundQuote(c *gin.Context) {
	quote, err := h.service.RefundQuote(c.Request.Context(), actorFrom(c), c.Param("booking_id"))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"refund": quote})
}

func (h *Handler) CompleteBooking(c *gin.Context) {
	resp, err := h.service.CompleteBooking(c.Request.Context(), actorFrom(c), c.Param("booking_id"))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": resp})
}

func (h *Handler) MarkNoShow(c *gin.Context) {
	resp, err := h.service.MarkNoShow(c.Request.Context(), actorFrom(c), c.Param("booking_id"))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": resp})
}

func (h *Handler) CheckAvailability(c *gin.Context) {
	var q CheckAvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Validation(c, "content_type, object_id and date are required")
		return
	}

	resp, err := h.service.CheckAvailability(c.Request.Context(), q)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"availability": resp})
}

func writeBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.Validation(c, "Invalid booking request")
	case errors.Is(err, ErrPastDate):
		response.Validation(c, "Date must be in the future")
	case errors.Is(err, ErrAmountMismatch):
		response.Validation(c, "Item totals do not match the base amount")
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "Booking not found")
	case errors.Is(err, ErrForbidden):
		response.Forbidden(c, "You cannot act on this booking")
	case errors.Is(err, ErrNotAvailable):
		response.Conflict(c, "No slots available for the selected dates")
	case errors.Is(err, ErrInvalidTransition):
		response.Conflict(c, "Booking is not in a state that allows this operation")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
	}
}
