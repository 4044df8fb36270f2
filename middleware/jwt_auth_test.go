package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marketinni/backend/config"
)

func setupAuthTest(t *testing.T) *gin.Engine {
	t.Helper()
	config.AppConfig = &config.Config{
		JWTSecret:     "test-secret",
		TokenLifetime: time.Hour,
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", JWTAuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":    c.GetString("user_id"),
			"user_email": c.GetString("user_email"),
		})
	})
	return router
}

func doRequest(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	router := setupAuthTest(t)

	token, err := IssueToken("user-1", "user@example.com", "Test User")
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	w := doRequest(router, "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestJWTAuthRejectsMissingHeader(t *testing.T) {
	router := setupAuthTest(t)

	w := doRequest(router, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}

func TestJWTAuthRejectsMalformedHeader(t *testing.T) {
	router := setupAuthTest(t)

	w := doRequest(router, "Token abc123")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}

func TestJWTAuthRejectsTamperedToken(t *testing.T) {
	router := setupAuthTest(t)

	token, err := IssueToken("user-1", "user@example.com", "")
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	config.AppConfig.JWTSecret = "rotated-secret"

	w := doRequest(router, "Bearer "+token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 after secret rotation, got %d", w.Code)
	}
}

func TestJWTAuthRejectsExpiredToken(t *testing.T) {
	router := setupAuthTest(t)
	config.AppConfig.TokenLifetime = -time.Minute

	token, err := IssueToken("user-1", "user@example.com", "")
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	w := doRequest(router, "Bearer "+token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for expired token, got %d", w.Code)
	}
}
