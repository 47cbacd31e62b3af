package access

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"racklab/internal/pkg/jwt"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WatchState is the countdown payload pushed to watching clients. The
// remaining seconds are a rendering hint; access itself is enforced
// server-side on every StartAccess/GetSession call.
type WatchState struct {
	BookingStatus    string `json:"booking_status"`
	Active           bool   `json:"active"`
	EndpointURL      string `json:"endpoint_url,omitempty"`
	RemainingSeconds int64  `json:"remaining_seconds"`
}

type WSHandler struct {
	service    *Service
	jwtService *jwt.Service
}

func NewWSHandler(service *Service, jwtService *jwt.Service) *WSHandler {
	return &WSHandler{service: service, jwtService: jwtService}
}

func (h *WSHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/bookings/:id/access/watch", h.HandleWatch)
}

// HandleWatch streams the session state on a ticker until the booking
// window elapses or the client goes away.
//
// Endpoint: GET /bookings/:id/access/watch?token=JWT_TOKEN
//
// Authentication via query parameter; websocket clients cannot send
// headers.
func (h *WSHandler) HandleWatch(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is required. Use ?token=YOUR_JWT_TOKEN"})
		return
	}

	claims, err := h.jwtService.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	bookingID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		return
	}

	// Authorize before upgrading so a stranger never holds a socket.
	if _, err := h.watchState(c, bookingID, claims.UserID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to watch this booking"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("access_watch upgrade_failed booking_id=%d error=%q", bookingID, err)
		return
	}
	defer conn.Close()

	log.Printf("access_watch connected booking_id=%d user_id=%d", bookingID, claims.UserID)
	defer log.Printf("access_watch disconnected booking_id=%d user_id=%d", bookingID, claims.UserID)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		state, err := h.watchState(c, bookingID, claims.UserID)
		if err != nil {
			return
		}
		if err := conn.WriteJSON(state); err != nil {
			return
		}
		if state.RemainingSeconds <= 0 {
			return
		}

		<-ticker.C
	}
}

func (h *WSHandler) watchState(c *gin.Context, bookingID, userID int64) (*WatchState, error) {
	ctx := c.Request.Context()

	b, err := h.service.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, ErrForbidden
	}

	state := &WatchState{BookingStatus: string(b.Status)}

	now := h.service.clock.Now()
	if remaining := b.EndTime.Sub(now); remaining > 0 {
		state.RemainingSeconds = int64(remaining.Seconds())
	}

	sess, err := h.service.GetSession(ctx, bookingID)
	if err == nil && sess.IsActive {
		state.Active = true
		state.EndpointURL = sess.EndpointURL
	} else if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}
	return state, nil
}
