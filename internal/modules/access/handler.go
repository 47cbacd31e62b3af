package access

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"racklab/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/bookings/:id/access", h.StartAccess)
	rg.GET("/bookings/:id/access", h.GetSession)
}

func (h *Handler) StartAccess(c *gin.Context) {
	userID := c.GetInt64("user_id")

	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Booking not found")
		return
	}

	sess, err := h.service.StartAccess(c.Request.Context(), bookingID, userID)
	if err != nil {
		writeAccessError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"endpoint_url": sess.EndpointURL,
		"activated_at": sess.ActivatedAt,
	})
}

func (h *Handler) GetSession(c *gin.Context) {
	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Booking not found")
		return
	}

	sess, err := h.service.GetSession(c.Request.Context(), bookingID)
	if err != nil {
		writeAccessError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": sess})
}

func writeAccessError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Not the booking owner")
	case errors.Is(err, ErrNotYetStarted):
		response.Error(c, http.StatusConflict, "NOT_YET_STARTED", "Booking window has not started")
	case errors.Is(err, ErrExpired):
		response.Error(c, http.StatusConflict, "EXPIRED", "Booking window has expired")
	case errors.Is(err, ErrNotConfirmed):
		response.Error(c, http.StatusConflict, "NOT_CONFIRMED", "Booking is not confirmed")
	case errors.Is(err, ErrProvisioningFailed):
		response.Error(c, http.StatusBadGateway, "PROVISIONING_FAILED", "Remote access provisioning failed, try again")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Operation failed")
	}
}
