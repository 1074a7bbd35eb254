package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return token
}

func newAuthTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", AuthMiddleware(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"owner": ownerID(c)})
	})
	return r
}

func doRequest(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	r := newAuthTestRouter()
	token := signToken(t, testSecret, jwt.MapClaims{"sub": "owner1"})

	w := doRequest(r, "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if body := w.Body.String(); body != `{"owner":"owner1"}` {
		t.Errorf("Unexpected body: %s", body)
	}
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	r := newAuthTestRouter()

	w := doRequest(r, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	r := newAuthTestRouter()

	for _, header := range []string{"Bearer", "Token abc", "abc"} {
		w := doRequest(r, header)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("Header %q: expected 401, got %d", header, w.Code)
		}
	}
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	r := newAuthTestRouter()
	token := signToken(t, "other-secret", jwt.MapClaims{"sub": "owner1"})

	w := doRequest(r, "Bearer "+token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}

func TestAuthMiddleware_MissingSubject(t *testing.T) {
	r := newAuthTestRouter()
	token := signToken(t, testSecret, jwt.MapClaims{"aud": "documind"})

	w := doRequest(r, "Bearer "+token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
}
