package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
)

// FallbackError is the body returned when a handler panics. Clients render
// it as a full-page error with the listed recovery actions.
type FallbackError struct {
	Error   string   `json:"error"`
	Actions []string `json:"actions"`
}

var fallback = FallbackError{
	Error:   "Something went wrong.",
	Actions: []string{"back", "home"},
}

// Recovery turns a panic anywhere below it into a 500 with the generic
// fallback body.
func Recovery(logger *logging.LoggerV2) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Recovered from panic", logging.Fields{
					"panic":      fmt.Sprint(r),
					"path":       c.Request.URL.Path,
					"request_id": RequestIDFromContext(c.Request.Context()),
					"stack":      string(debug.Stack()),
				})
				c.AbortWithStatusJSON(http.StatusInternalServerError, fallback)
			}
		}()
		c.Next()
	}
}
