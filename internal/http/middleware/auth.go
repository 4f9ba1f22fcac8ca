// README: Webhook auth guard; the signature itself is verified by the LINE SDK.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const SignatureHeader = "X-Line-Signature"

// RequireSignature rejects callback requests that carry no signature header at all.
func RequireSignature() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(SignatureHeader) == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing signature"})
			return
		}
		c.Next()
	}
}
