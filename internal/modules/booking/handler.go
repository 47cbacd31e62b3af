package booking

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"racklab/internal/domain"
	"racklab/internal/middleware"
	"racklab/internal/modules/ledger"
	"racklab/internal/modules/schedule"
	"racklab/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	bookings := rg.Group("/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListMyBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.DELETE("/:id", h.CancelBooking)
	}
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin", middleware.AdminOnly())
	{
		admin.PATCH("/bookings/:id", h.AdminEditBooking)
	}
}

func (h *Handler) CreateBooking(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_INTERVAL", "Invalid request body")
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), userID, req)
	if err != nil {
		writeBookingError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"booking": b})
}

func (h *Handler) ListMyBookings(c *gin.Context) {
	userID := c.GetInt64("user_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	bookings, err := h.service.ListMyBookings(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list bookings")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"bookings": bookings})
}

func (h *Handler) GetBooking(c *gin.Context) {
	userID := c.GetInt64("user_id")
	role := domain.UserRole(c.GetString("role"))

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Booking not found")
		return
	}

	b, err := h.service.GetBooking(c.Request.Context(), id, userID, role)
	if err != nil {
		writeBookingError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) CancelBooking(c *gin.Context) {
	userID := c.GetInt64("user_id")
	role := domain.UserRole(c.GetString("role"))

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Booking not found")
		return
	}

	b, err := h.service.CancelBooking(c.Request.Context(), id, userID, role)
	if err != nil {
		writeBookingError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) AdminEditBooking(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Booking not found")
		return
	}

	var req AdminEditBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_INTERVAL", "Invalid request body")
		return
	}

	b, err := h.service.AdminEditBooking(c.Request.Context(), id, req)
	if err != nil {
		writeBookingError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

// writeBookingError maps each error kind to a stable code so the UI can
// render specific guidance instead of a generic failure.
func writeBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, schedule.ErrInvalidInterval):
		response.Error(c, http.StatusBadRequest, "INVALID_INTERVAL", "Invalid booking time range")
	case errors.Is(err, ledger.ErrInvalidAmount):
		response.Error(c, http.StatusBadRequest, "INVALID_AMOUNT", "Invalid token amount")
	case errors.Is(err, schedule.ErrSlotConflict):
		response.Error(c, http.StatusConflict, "SLOT_CONFLICT", "Slot is no longer available")
	case errors.Is(err, ledger.ErrInsufficientTokens):
		response.Error(c, http.StatusPaymentRequired, "INSUFFICIENT_TOKENS", "Insufficient token balance")
	case errors.Is(err, ErrRackUnavailable):
		response.Error(c, http.StatusConflict, "RACK_UNAVAILABLE", "Rack is not available")
	case errors.Is(err, ErrAlreadyTerminal):
		response.Error(c, http.StatusConflict, "ALREADY_TERMINAL", "Booking is already completed or cancelled")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Not allowed to act on this booking")
	case errors.Is(err, ErrNotFound), errors.Is(err, ledger.ErrUserNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Booking not found")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Operation failed")
	}
}
