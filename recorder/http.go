package recorder

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ncobase/lamet/ctxutil"
	"github.com/ncobase/lamet/logging/logger"
	"github.com/ncobase/lamet/types"
)

// DefaultHTTPMetric is the timer recorded for every request.
const DefaultHTTPMetric = "http.request"

// HTTPMiddleware stores the request path and a trace id in the request
// context, so path ignore rules apply to everything recorded while serving
// it, and times the request as name with method, route and status tags.
func HTTPMiddleware(sink Sink, name string) gin.HandlerFunc {
	if name == "" {
		name = DefaultHTTPMetric
	}
	return func(c *gin.Context) {
		start := time.Now()

		ctx := ctxutil.SetRequestPath(c.Request.Context(), c.Request.URL.Path)
		ctx, _ = ctxutil.EnsureTraceID(ctx)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		_, err := sink.Record(ctx, types.Observation{
			Name:  name,
			Value: float64(time.Since(start)) / float64(time.Millisecond),
			Tags: types.Tags{
				"method": c.Request.Method,
				"route":  route,
				"status": strconv.Itoa(c.Writer.Status()),
			},
			Kind: types.KindTimer,
			Unit: "ms",
		})
		if err != nil {
			logger.Warnf(ctx, "failed to record request: %v", err)
		}
	}
}
