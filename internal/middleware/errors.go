package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/waleedsbi/atm-master/internal/httputil"
	"github.com/waleedsbi/atm-master/internal/metrics"
)

func respondError(c *gin.Context, code int, errCode, message string) {
	metrics.ErrorsTotal.WithLabelValues(errCode).Inc()
	httputil.RespondError(c, code, errCode, message)
}
