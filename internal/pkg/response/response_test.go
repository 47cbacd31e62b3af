package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func serve(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/", handler)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	var env Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid envelope: %v", err)
	}
	return rr, env
}

func TestSuccessEnvelope(t *testing.T) {
	rr, env := serve(t, func(c *gin.Context) {
		Success(c, http.StatusOK, gin.H{"balance": 50})
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if !env.Success || env.Error != nil {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if env.Data.(map[string]any)["balance"].(float64) != 50 {
		t.Fatalf("data lost in envelope: %+v", env.Data)
	}
}

func TestErrorEnvelope(t *testing.T) {
	rr, env := serve(t, func(c *gin.Context) {
		Error(c, http.StatusConflict, "SLOT_CONFLICT", "Slot is no longer available")
	})

	if rr.Code != http.StatusConflict {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if env.Success || env.Error == nil {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if env.Error.Code != "SLOT_CONFLICT" {
		t.Fatalf("unexpected code: %q", env.Error.Code)
	}
	if env.Error.Details != nil {
		t.Fatalf("details must be omitted when absent: %+v", env.Error)
	}
}

func TestErrorWithDetailsEnvelope(t *testing.T) {
	_, env := serve(t, func(c *gin.Context) {
		ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", "email is required")
	})

	if env.Error == nil || env.Error.Details != "email is required" {
		t.Fatalf("details lost: %+v", env.Error)
	}
}
