package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderDriverName optionally names the driver recording a scan.
const HeaderDriverName = "X-Driver-Name"

// RequireBearer rejects requests whose Authorization header does not carry a
// token accepted by v.
func RequireBearer(v Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.GetHeader("Authorization"))
		if err := v.Validate(token); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "unauthorized",
			})
			return
		}
		c.Next()
	}
}

// BearerToken extracts the credential from an "Authorization: Bearer x" header.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// DriverName returns the driver identity attached to a request, if any.
func DriverName(c *gin.Context) string {
	name := strings.TrimSpace(c.GetHeader(HeaderDriverName))
	if name == "" {
		return "driver"
	}
	return name
}
