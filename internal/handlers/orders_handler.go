package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/orders-service/internal/pipeline"
)

// maxBodyBytes caps the accepted request body.
const maxBodyBytes = 1 << 20

// OrderCreator turns a raw create-order body into a response. Reject answers
// a request whose body could not be read.
type OrderCreator interface {
	Handle(ctx context.Context, body []byte) pipeline.Response
	Reject(ctx context.Context, cause error) pipeline.Response
}

// RegisterOrdersRoutes registers routes for order API.
func RegisterOrdersRoutes(r *gin.Engine, creator OrderCreator, logger *slog.Logger) {
	r.POST("/orders", func(c *gin.Context) {
		ctx := c.Request.Context()

		var resp pipeline.Response
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
		if err != nil {
			logger.WarnContext(ctx, "failed to read request body", "error", err)
			resp = creator.Reject(ctx, err)
		} else {
			resp = creator.Handle(ctx, body)
		}

		for k, v := range resp.Headers {
			c.Header(k, v)
		}
		c.Data(resp.StatusCode, resp.Headers["Content-Type"], resp.Body)
	})
}

// RegisterHealthRoutes registers the liveness probe.
func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// RequestLogger logs one line per request once it has been served.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.InfoContext(c.Request.Context(), "request served",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
		)
	}
}
