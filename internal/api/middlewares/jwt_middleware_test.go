package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func protected(t *testing.T, secret string) (http.Handler, *string) {
	var seen string
	handler := JWT(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserID(r.Context())
		if !ok {
			t.Fatal("user missing from context")
		}
		seen = id
		w.WriteHeader(http.StatusOK)
	}))
	return handler, &seen
}

func TestJWTAcceptsValidToken(t *testing.T) {
	handler, seen := protected(t, "secret")

	token := signToken(t, "secret", jwt.MapClaims{"user_id": "u-1"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if *seen != "u-1" {
		t.Fatalf("user = %q", *seen)
	}
}

func TestJWTFallsBackToSubClaim(t *testing.T) {
	handler, seen := protected(t, "secret")

	token := signToken(t, "secret", jwt.MapClaims{"sub": "u-2"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || *seen != "u-2" {
		t.Fatalf("status = %d user = %q", rec.Code, *seen)
	}
}

func TestJWTRejectsMissingAndBadTokens(t *testing.T) {
	handler, _ := protected(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header: status = %d", rec.Code)
	}

	wrong := signToken(t, "other-secret", jwt.MapClaims{"user_id": "u-1"})
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+wrong)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: status = %d", rec.Code)
	}
}
