package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"storefront/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func init() {
	gin.SetMode(gin.TestMode)
	os.Setenv("JWT_SECRET", "test-secret-key-for-unit-tests")
}

func setupTestRouter() *gin.Engine {
	r := gin.New()

	protected := r.Group("/api")
	protected.Use(AuthMiddleware())
	protected.GET("/test", func(c *gin.Context) {
		userID, _ := UserID(c)
		c.JSON(http.StatusOK, gin.H{
			"user_id": userID,
			"role":    c.GetString(ContextUserRole),
		})
	})

	staff := r.Group("/api/staff")
	staff.Use(AuthMiddleware(), StaffMiddleware())
	staff.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "staff access granted"})
	})

	optional := r.Group("/api/optional")
	optional.Use(OptionalAuth())
	optional.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"access": int(Authorize(c))})
	})

	return r
}

func serve(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	token, err := utils.GenerateToken(5, "test@test.com", "customer")
	if err != nil {
		t.Fatal(err)
	}

	w := serve(setupTestRouter(), "/api/test", token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != `{"role":"customer","user_id":5}` {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	w := serve(setupTestRouter(), "/api/test", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAuthMiddlewareMalformedToken(t *testing.T) {
	w := serve(setupTestRouter(), "/api/test", "not-a-valid-token")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAuthMiddlewareInvalidFormatNoBearer(t *testing.T) {
	token, _ := utils.GenerateToken(1, "test@test.com", "customer")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	req.Header.Set("Authorization", token)
	setupTestRouter().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}

func TestAuthMiddlewareExpiredToken(t *testing.T) {
	claims := utils.Claims{
		UserID: 1,
		Email:  "expired@test.com",
		Role:   "customer",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			Issuer:    "storefront",
		},
	}
	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	expiredToken, _ := tokenObj.SignedString([]byte(os.Getenv("JWT_SECRET")))

	w := serve(setupTestRouter(), "/api/test", expiredToken)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestStaffMiddleware(t *testing.T) {
	r := setupTestRouter()
	cases := map[string]int{
		"customer": http.StatusForbidden,
		"staff":    http.StatusOK,
		"admin":    http.StatusOK,
	}
	for role, want := range cases {
		token, _ := utils.GenerateToken(1, role+"@test.com", role)
		if w := serve(r, "/api/staff/test", token); w.Code != want {
			t.Errorf("role %s: expected %d, got %d", role, want, w.Code)
		}
	}
}

func TestOptionalAuth(t *testing.T) {
	r := setupTestRouter()

	if w := serve(r, "/api/optional/test", ""); w.Body.String() != `{"access":0}` {
		t.Errorf("expected anonymous access, got %s", w.Body.String())
	}

	token, _ := utils.GenerateToken(2, "c@test.com", "customer")
	if w := serve(r, "/api/optional/test", token); w.Body.String() != `{"access":1}` {
		t.Errorf("expected customer access, got %s", w.Body.String())
	}

	if w := serve(r, "/api/optional/test", "garbage"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for an invalid token, got %d", w.Code)
	}
}
