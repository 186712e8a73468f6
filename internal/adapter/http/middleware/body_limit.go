package middleware

import (
	"net/http"

	"crypto-checkout-gateway/pkg/apperror"
	"crypto-checkout-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// BodyLimit caps the request body at maxBytes. A declared Content-Length over
// the cap is refused with 413 before any handler runs; chunked bodies are cut
// off by the reader and fail at binding.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, apperror.ErrBodyTooLarge())
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
