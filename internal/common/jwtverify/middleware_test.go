package jwtverify

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/parcelworks/assessor-backend/internal/common/logger"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func signToken(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":  "7",
		"usr":  "alice",
		"role": "appraiser",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
}

func callMiddleware(t *testing.T, authorization string) (*httptest.ResponseRecorder, Claims, bool) {
	t.Helper()
	log, _ := logger.New("", "jwt-test", "error")

	var captured Claims
	var ok bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, ok = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/collab/sessions", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	Middleware(testSecret, log)(next).ServeHTTP(rec, req)
	return rec, captured, ok
}

func TestMiddleware_ValidToken(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, validClaims())

	rec, claims, ok := callMiddleware(t, "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !ok {
		t.Fatal("expected claims in request context")
	}
	if claims.UserID != 7 || claims.Username != "alice" || claims.Role != "appraiser" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestMiddleware_MissingHeader(t *testing.T) {
	rec, _, ok := callMiddleware(t, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if ok {
		t.Error("expected no claims in context")
	}
}

func TestMiddleware_WrongScheme(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, validClaims())

	rec, _, _ := callMiddleware(t, "Basic "+token)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestMiddleware_ExpiredToken(t *testing.T) {
	claims := validClaims()
	claims["exp"] = time.Now().Add(-time.Hour).Unix()
	token := signToken(t, jwt.SigningMethodHS256, claims)

	rec, _, _ := callMiddleware(t, "Bearer "+token)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestMiddleware_NonNumericSubject(t *testing.T) {
	claims := validClaims()
	claims["sub"] = "not-a-number"
	token := signToken(t, jwt.SigningMethodHS256, claims)

	rec, _, _ := callMiddleware(t, "Bearer "+token)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestParseToken_RejectsUnexpectedMethod(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS384, validClaims()).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := ParseToken(token, []byte(testSecret)); err == nil {
		t.Error("expected an error for a non-HS256 token")
	}
}
