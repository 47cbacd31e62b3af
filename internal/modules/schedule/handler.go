package schedule

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"racklab/internal/domain"
	"racklab/internal/middleware"
	"racklab/internal/pkg/response"
)

// RackCatalog is the rack surface the schedule exposes: the read-only
// list prospective bookers see, plus the maintenance toggle admins flip
// when a rack goes down.
type RackCatalog interface {
	List(ctx context.Context) ([]domain.Rack, error)
	UpdateStatus(ctx context.Context, id int64, status domain.RackStatus) error
}

type Handler struct {
	service *Service
	racks   RackCatalog
}

func NewHandler(service *Service, racks RackCatalog) *Handler {
	return &Handler{service: service, racks: racks}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	racks := rg.Group("/racks")
	{
		racks.GET("", h.ListRacks)
		racks.GET("/:id/slots", h.ListSlots)
	}
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin", middleware.AdminOnly())
	{
		admin.PATCH("/racks/:id/status", h.SetRackStatus)
	}
}

type SetRackStatusRequest struct {
	Status domain.RackStatus `json:"status" binding:"required"`
}

// SetRackStatus is the maintenance toggle. Flipping a rack to
// not_available stops new bookings; existing bookings are untouched.
func (h *Handler) SetRackStatus(c *gin.Context) {
	rackID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid rack id")
		return
	}

	var req SetRackStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if req.Status != domain.RackAvailable && req.Status != domain.RackNotAvailable {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown rack status")
		return
	}

	if err := h.racks.UpdateStatus(c.Request.Context(), rackID, req.Status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Rack not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update rack status")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"rack_id": rackID, "status": req.Status})
}

func (h *Handler) ListRacks(c *gin.Context) {
	racks, err := h.racks.List(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list racks")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"racks": racks})
}

// ListSlots renders the booked intervals of a rack within [from, to) so
// clients can show what is taken. The server-side conflict check remains
// authoritative regardless of what the client renders.
func (h *Handler) ListSlots(c *gin.Context) {
	rackID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_INTERVAL", "Invalid rack id")
		return
	}

	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_INTERVAL", "Invalid or missing 'from' (RFC3339)")
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_INTERVAL", "Invalid or missing 'to' (RFC3339)")
		return
	}

	slots, err := h.service.ListUpcoming(c.Request.Context(), rackID, from, to)
	if err != nil {
		if errors.Is(err, ErrInvalidInterval) {
			response.Error(c, http.StatusBadRequest, "INVALID_INTERVAL", err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list slots")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"rack_id": rackID, "slots": slots})
}
