package middleware

import (
	"net/http"

	"github.com/arflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

const (
	// IdempotencyKeyHeader lets clients make payment submissions safe to retry
	IdempotencyKeyHeader = "Idempotency-Key"
	idempotencyKeyCtx    = "idempotency_key"
	maxIdempotencyKeyLen = 255
)

// IdempotencyKey validates the optional Idempotency-Key header and stores it
// for the handler. The payment service owns the deduplication itself.
func IdempotencyKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if len(key) > maxIdempotencyKeyLen {
			abort(c, http.StatusBadRequest, dto.ErrCodeInvalidInput,
				"Idempotency-Key must be at most 255 characters")
			return
		}
		if key != "" {
			c.Set(idempotencyKeyCtx, key)
		}
		c.Next()
	}
}

// GetIdempotencyKey returns the key stored by IdempotencyKey
func GetIdempotencyKey(c *gin.Context) string {
	return c.GetString(idempotencyKeyCtx)
}
