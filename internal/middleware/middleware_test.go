package middleware

import (
	"context"
	"io"
	"strings"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sjperalta/firma-api/internal/ratelimit"
	"github.com/sjperalta/firma-api/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, role string, expiresAt time.Time, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "admin",
		"role": role,
		"exp":  expiresAt.Unix(),
		"iat":  time.Now().Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func adminRouter() *gin.Engine {
	r := gin.New()
	r.GET("/private", Auth(testSecret), RequireAdmin(), func(c *gin.Context) {
		c.String(http.StatusOK, GetAdminUser(c))
	})
	return r
}

func TestAuth(t *testing.T) {
	router := adminRouter()

	tests := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"bad format", "Token abc", "", http.StatusUnauthorized},
		{"garbage", "Bearer abc", "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "admin", time.Now().Add(time.Hour), "other"), "", http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, "admin", time.Now().Add(-time.Hour), testSecret), "", http.StatusUnauthorized},
		{"not admin", "Bearer " + signToken(t, "viewer", time.Now().Add(time.Hour), testSecret), "", http.StatusForbidden},
		{"valid", "Bearer " + signToken(t, "admin", time.Now().Add(time.Hour), testSecret), "", http.StatusOK},
		{"query token", "", "?token=" + signToken(t, "admin", time.Now().Add(time.Hour), testSecret), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "admin", w.Body.String())
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		id, _ := c.Request.Context().Value(logger.RequestIDKey).(string)
		c.String(http.StatusOK, id)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Body.String(), 36)
	assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://admin.example.com"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://admin.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

type failingLimiter struct{}

func (failingLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, assert.AnError
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(0)
	r := gin.New()
	r.POST("/requests/:id/send-otp", RateLimit(limiter, "send-otp", 2, time.Minute, KeyByParam("id")), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	hit := func(id string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/requests/"+id+"/send-otp", nil))
		return w
	}

	assert.Equal(t, http.StatusOK, hit("a").Code)
	assert.Equal(t, http.StatusOK, hit("a").Code)
	w := hit("a")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Another request has its own budget
	assert.Equal(t, http.StatusOK, hit("b").Code)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	r := gin.New()
	r.GET("/:id", RateLimit(failingLimiter{}, "x", 1, time.Minute, KeyByParam("id")), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/k", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestKeyByJSONField(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(0)
	r := gin.New()
	r.POST("/verify-otp", RateLimit(limiter, "verify-otp", 1, time.Minute, KeyByJSONField("request_id")), func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusOK, string(body))
	})

	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/verify-otp", strings.NewReader(body)))
		return w
	}

	body := `{"request_id":"r1","otp":"123456"}`
	w := post(body)
	require.Equal(t, http.StatusOK, w.Code)
	// The handler still sees the whole body
	assert.Equal(t, body, w.Body.String())

	assert.Equal(t, http.StatusTooManyRequests, post(body).Code)
	assert.Equal(t, http.StatusOK, post(`{"request_id":"r2"}`).Code)

	// Unkeyed bodies pass through untouched
	for _, b := range []string{"", "not json", `{"request_id":42}`} {
		w := post(b)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, b, w.Body.String())
	}
}
