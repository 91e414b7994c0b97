package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"rental-inventory/internal/dto"
	"rental-inventory/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	CtxStaffName = "staff_name"
	HeaderStaff  = "X-Staff-Name"
)

// StaffAttribution resolves who is calling and stores it for inventory log
// attribution. With a secret configured a bearer token is verified (HS256)
// and its "name" claim wins, falling back to "sub". Without a token the
// X-Staff-Name header is used as is.
func StaffAttribution(secret string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		staff := strings.TrimSpace(c.GetHeader(HeaderStaff))

		if authz := c.GetHeader("Authorization"); authz != "" && secret != "" {
			token, ok := ExtractBearerToken(authz)
			if !ok || token == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid Authorization header"))
				return
			}
			name, err := staffFromToken(token, secret)
			if err != nil {
				log.Warn("staff token rejected", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid token"))
				return
			}
			staff = name
		}

		if staff != "" {
			c.Set(CtxStaffName, staff)
			c.Request = c.Request.WithContext(service.WithStaff(c.Request.Context(), staff))
		}
		c.Next()
	}
}

func staffFromToken(raw, secret string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if name, ok := claims["name"].(string); ok && name != "" {
		return name, nil
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token carries no staff name")
	}
	return sub, nil
}

// ExtractBearerToken returns the token of a "Bearer <token>" header value,
// tolerating quotes and trailing garbage after a comma or space.
func ExtractBearerToken(authz string) (string, bool) {
	if authz == "" {
		return "", false
	}
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	t := strings.Trim(strings.TrimSpace(parts[1]), " \"'")
	if i := strings.IndexRune(t, ','); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	if i := strings.IndexByte(t, ' '); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return strings.Trim(t, " \"'"), true
}
