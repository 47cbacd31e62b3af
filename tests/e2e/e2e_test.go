package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"racklab/internal/database"
	"racklab/internal/domain"
	"racklab/internal/middleware"
	"racklab/internal/modules/access"
	"racklab/internal/modules/auth"
	"racklab/internal/modules/booking"
	"racklab/internal/modules/ledger"
	"racklab/internal/modules/schedule"
	"racklab/internal/pkg/clock"
	jwtsvc "racklab/internal/pkg/jwt"
	"racklab/internal/repository"
)

type E2ETestSuite struct {
	router *gin.Engine
	db     *gorm.DB
	clk    *clock.MockClock
	rackID int64
}

type TestResponse struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   *ErrorDetail           `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var e2eBase = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func setupTestSuite(t *testing.T) *E2ETestSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:e2e_%s?mode=memory&cache=shared", t.Name())
	db, err := database.Connect(dsn)
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, database.Migrate(db))

	userRepo := repository.NewUserRepository(db)
	rackRepo := repository.NewRackRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	clk := clock.NewMockClock(e2eBase)
	j := jwtsvc.New("e2e-test-secret", time.Hour)

	ledgerService := ledger.NewService(db)
	scheduleService := schedule.NewService(db)
	accessService := access.NewService(bookingRepo, sessionRepo, access.NewDevProvisioner(""), clk)
	bookingService := booking.NewService(
		db, bookingRepo, rackRepo,
		ledgerService, scheduleService, accessService,
		clk, 0,
	)

	authHandler := auth.NewHandler(auth.NewService(userRepo, j))
	ledgerHandler := ledger.NewHandler(ledgerService)
	scheduleHandler := schedule.NewHandler(scheduleService, rackRepo)
	bookingHandler := booking.NewHandler(bookingService)
	accessHandler := access.NewHandler(accessService)

	r := gin.New()
	r.Use(middleware.ErrorLogger())

	v1 := r.Group("/api/v1")
	authHandler.RegisterRoutes(v1)
	scheduleHandler.RegisterRoutes(v1)

	protected := v1.Group("/")
	protected.Use(middleware.Auth(j))
	ledgerHandler.RegisterRoutes(protected)
	bookingHandler.RegisterRoutes(protected)
	bookingHandler.RegisterAdminRoutes(protected)
	scheduleHandler.RegisterAdminRoutes(protected)
	accessHandler.RegisterRoutes(protected)

	rack := &domain.Rack{Name: "aci-rack-1", Status: domain.RackAvailable, HourlyRate: 25}
	require.NoError(t, db.Create(rack).Error)

	return &E2ETestSuite{router: r, db: db, clk: clk, rackID: rack.ID}
}

func (s *E2ETestSuite) request(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, TestResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	var resp TestResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	return rr, resp
}

func (s *E2ETestSuite) registerUser(t *testing.T, email string, tokens int64) string {
	t.Helper()

	rr, resp := s.request(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email":    email,
		"password": "password123",
		"name":     "Test User",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	token := resp.Data["token"].(string)

	if tokens > 0 {
		rr, _ = s.request(t, http.MethodPost, "/api/v1/wallet/topup", token, map[string]any{"amount": tokens})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}
	return token
}

func (s *E2ETestSuite) createAdmin(t *testing.T, email string) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	require.NoError(t, err)
	u := &domain.User{Email: email, PasswordHash: string(hash), Role: domain.RoleAdmin, Name: "Admin"}
	require.NoError(t, s.db.Create(u).Error)

	rr, resp := s.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return resp.Data["token"].(string)
}

func (s *E2ETestSuite) balance(t *testing.T, token string) float64 {
	t.Helper()
	rr, resp := s.request(t, http.MethodGet, "/api/v1/wallet", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return resp.Data["balance"].(float64)
}

func bookingID(t *testing.T, resp TestResponse) int64 {
	t.Helper()
	b, ok := resp.Data["booking"].(map[string]interface{})
	require.True(t, ok, "response has no booking: %+v", resp)
	return int64(b["id"].(float64))
}

func TestBookingFlow(t *testing.T) {
	s := setupTestSuite(t)
	alice := s.registerUser(t, "alice@e2e.local", 100)
	bob := s.registerUser(t, "bob@e2e.local", 100)

	start := e2eBase.Add(time.Hour)
	end := start.Add(2 * time.Hour)

	// Alice books 10:00-12:00 at 25 tokens per hour.
	rr, resp := s.request(t, http.MethodPost, "/api/v1/bookings", alice, map[string]any{
		"rack_id":    s.rackID,
		"start_time": start.Format(time.RFC3339),
		"end_time":   end.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	id := bookingID(t, resp)
	assert.Equal(t, float64(50), s.balance(t, alice))

	// The slot shows up on the public schedule.
	slotsPath := fmt.Sprintf("/api/v1/racks/%d/slots?from=%s&to=%s",
		s.rackID,
		e2eBase.Format(time.RFC3339),
		e2eBase.Add(24*time.Hour).Format(time.RFC3339),
	)
	rr, resp = s.request(t, http.MethodGet, slotsPath, "", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Len(t, resp.Data["slots"], 1)

	// Bob cannot take an overlapping slot.
	rr, resp = s.request(t, http.MethodPost, "/api/v1/bookings", bob, map[string]any{
		"rack_id":    s.rackID,
		"start_time": start.Add(time.Hour).Format(time.RFC3339),
		"end_time":   end.Add(time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "SLOT_CONFLICT", resp.Error.Code)
	assert.Equal(t, float64(100), s.balance(t, bob))

	// Alice cancels and gets her tokens back.
	rr, _ = s.request(t, http.MethodDelete, fmt.Sprintf("/api/v1/bookings/%d", id), alice, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, float64(100), s.balance(t, alice))

	// Cancelling again must not refund again.
	rr, resp = s.request(t, http.MethodDelete, fmt.Sprintf("/api/v1/bookings/%d", id), alice, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "ALREADY_TERMINAL", resp.Error.Code)
	assert.Equal(t, float64(100), s.balance(t, alice))
}

func TestInsufficientTokens(t *testing.T) {
	s := setupTestSuite(t)
	poor := s.registerUser(t, "poor@e2e.local", 10)

	start := e2eBase.Add(time.Hour)
	rr, resp := s.request(t, http.MethodPost, "/api/v1/bookings", poor, map[string]any{
		"rack_id":    s.rackID,
		"start_time": start.Format(time.RFC3339),
		"end_time":   start.Add(2 * time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusPaymentRequired, rr.Code)
	assert.Equal(t, "INSUFFICIENT_TOKENS", resp.Error.Code)
	assert.Equal(t, float64(10), s.balance(t, poor))
}

func TestAccessSessionFlow(t *testing.T) {
	s := setupTestSuite(t)
	alice := s.registerUser(t, "alice@e2e.local", 100)

	start := e2eBase.Add(time.Hour)
	end := start.Add(2 * time.Hour)
	rr, resp := s.request(t, http.MethodPost, "/api/v1/bookings", alice, map[string]any{
		"rack_id":    s.rackID,
		"start_time": start.Format(time.RFC3339),
		"end_time":   end.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	id := bookingID(t, resp)
	accessPath := fmt.Sprintf("/api/v1/bookings/%d/access", id)

	// Too early.
	rr, resp = s.request(t, http.MethodPost, accessPath, alice, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "NOT_YET_STARTED", resp.Error.Code)

	// Inside the window.
	s.clk.Set(start.Add(30 * time.Minute))
	rr, resp = s.request(t, http.MethodPost, accessPath, alice, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.NotEmpty(t, resp.Data["endpoint_url"])

	rr, _ = s.request(t, http.MethodGet, accessPath, alice, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	// After the window the endpoint is gone.
	s.clk.Set(end.Add(time.Minute))
	rr, resp = s.request(t, http.MethodPost, accessPath, alice, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "EXPIRED", resp.Error.Code)
}

func TestAdminEditBooking(t *testing.T) {
	s := setupTestSuite(t)
	alice := s.registerUser(t, "alice@e2e.local", 100)
	admin := s.createAdmin(t, "admin@e2e.local")

	start := e2eBase.Add(time.Hour)
	rr, resp := s.request(t, http.MethodPost, "/api/v1/bookings", alice, map[string]any{
		"rack_id":    s.rackID,
		"start_time": start.Format(time.RFC3339),
		"end_time":   start.Add(2 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	id := bookingID(t, resp)
	editPath := fmt.Sprintf("/api/v1/admin/bookings/%d", id)

	// Members cannot touch the admin surface.
	rr, _ = s.request(t, http.MethodPatch, editPath, alice, map[string]any{"new_cost": 10})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// Lowering the cost refunds the difference.
	rr, _ = s.request(t, http.MethodPatch, editPath, admin, map[string]any{"new_cost": 10})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, float64(90), s.balance(t, alice))
}

func TestRackMaintenanceToggle(t *testing.T) {
	s := setupTestSuite(t)
	alice := s.registerUser(t, "alice@e2e.local", 100)
	admin := s.createAdmin(t, "admin@e2e.local")

	statusPath := fmt.Sprintf("/api/v1/admin/racks/%d/status", s.rackID)
	slot := map[string]any{
		"rack_id":    s.rackID,
		"start_time": e2eBase.Add(time.Hour).Format(time.RFC3339),
		"end_time":   e2eBase.Add(3 * time.Hour).Format(time.RFC3339),
	}

	// Members cannot touch the admin surface.
	rr, _ := s.request(t, http.MethodPatch, statusPath, alice, map[string]any{"status": "not_available"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// Down for maintenance: new bookings are rejected.
	rr, _ = s.request(t, http.MethodPatch, statusPath, admin, map[string]any{"status": "not_available"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr, resp := s.request(t, http.MethodPost, "/api/v1/bookings", alice, slot)
	require.Equal(t, http.StatusConflict, rr.Code, rr.Body.String())
	require.NotNil(t, resp.Error)
	assert.Equal(t, "RACK_UNAVAILABLE", resp.Error.Code)
	assert.Equal(t, float64(100), s.balance(t, alice))

	// Back in service: the same slot books normally.
	rr, _ = s.request(t, http.MethodPatch, statusPath, admin, map[string]any{"status": "available"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr, _ = s.request(t, http.MethodPost, "/api/v1/bookings", alice, slot)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	// Garbage statuses and unknown racks are rejected up front.
	rr, resp = s.request(t, http.MethodPatch, statusPath, admin, map[string]any{"status": "on-fire"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)

	rr, resp = s.request(t, http.MethodPatch, "/api/v1/admin/racks/9999/status", admin, map[string]any{"status": "not_available"})
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestWalletRequiresAuth(t *testing.T) {
	s := setupTestSuite(t)

	rr, _ := s.request(t, http.MethodGet, "/api/v1/wallet", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr, _ = s.request(t, http.MethodPost, "/api/v1/bookings", "", map[string]any{"rack_id": 1})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
