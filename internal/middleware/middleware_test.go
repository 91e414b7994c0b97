package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rental-inventory/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

func init() { gin.SetMode(gin.TestMode) }

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer \"abc.def.ghi\"", "abc.def.ghi", true},
		{"Bearer abc.def.ghi, extra", "abc.def.ghi", true},
		{"Basic Zm9vOmJhcg==", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractBearerToken(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("ExtractBearerToken(%q) = %q, %v", tt.in, got, ok)
		}
	}
}

func staffEngine(secret string) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), StaffAttribution(secret, zap.NewNop()))
	r.GET("/whoami", func(c *gin.Context) {
		name, _ := service.StaffFromContext(c.Request.Context())
		c.String(http.StatusOK, name)
	})
	return r
}

func signed(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestStaffAttribution(t *testing.T) {
	const secret = "test-secret"
	r := staffEngine(secret)
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name   string
		header map[string]string
		status int
		body   string
	}{
		{"header only", map[string]string{HeaderStaff: "alice"}, http.StatusOK, "alice"},
		{"token name wins", map[string]string{
			HeaderStaff:     "mallory",
			"Authorization": "Bearer " + signed(t, secret, jwt.MapClaims{"name": "bob", "exp": exp}),
		}, http.StatusOK, "bob"},
		{"subject fallback", map[string]string{
			"Authorization": "Bearer " + signed(t, secret, jwt.MapClaims{"sub": "carol", "exp": exp}),
		}, http.StatusOK, "carol"},
		{"wrong secret", map[string]string{
			"Authorization": "Bearer " + signed(t, "other", jwt.MapClaims{"name": "eve", "exp": exp}),
		}, http.StatusUnauthorized, ""},
		{"expired", map[string]string{
			"Authorization": "Bearer " + signed(t, secret, jwt.MapClaims{"name": "bob", "exp": time.Now().Add(-time.Hour).Unix()}),
		}, http.StatusUnauthorized, ""},
		{"anonymous", nil, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if tt.status == http.StatusOK && w.Body.String() != tt.body {
				t.Fatalf("staff = %q, want %q", w.Body.String(), tt.body)
			}
			if w.Header().Get(HeaderRequestID) == "" {
				t.Fatalf("request id header missing")
			}
		})
	}
}

func TestStaffAttribution_TokenIgnoredWithoutSecret(t *testing.T) {
	r := staffEngine("")
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	req.Header.Set(HeaderStaff, "dave")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "dave" {
		t.Fatalf("unexpected response: %d %q", w.Code, w.Body.String())
	}
}
