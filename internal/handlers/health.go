package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DBPinger is the subset of the database handle used by health checks.
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// HealthChecker reports the availability of the record store and the
// downstream identifier resolver.
type HealthChecker struct {
	db           DBPinger
	resolverBase string
	httpClient   *http.Client
	logger       *zap.Logger
}

// NewHealthChecker builds a health checker probing the given resolver base URL.
func NewHealthChecker(db DBPinger, resolverBase string, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		db:           db,
		resolverBase: resolverBase,
		httpClient:   &http.Client{Timeout: 5 * time.Second},
		logger:       logger.Named("health"),
	}
}

// Register wires the health endpoint to the router.
func (h *HealthChecker) Register(router *gin.Engine) {
	router.GET("/health", h.handle)
}

func (h *HealthChecker) handle(c *gin.Context) {
	status := gin.H{}
	overall := http.StatusOK

	if err := h.db.PingContext(c.Request.Context()); err != nil {
		status["database"] = "unavailable"
		overall = http.StatusServiceUnavailable
		h.logger.Warn("health check failed: database ping", zap.Error(err))
	} else {
		status["database"] = "ok"
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, h.resolverBase+"/health", nil)
	if err != nil {
		status["resolver"] = "unreachable"
		overall = http.StatusServiceUnavailable
	} else {
		resp, err := h.httpClient.Do(req)
		switch {
		case err != nil:
			status["resolver"] = "unreachable"
			overall = http.StatusServiceUnavailable
			h.logger.Warn("health check failed: resolver unreachable", zap.Error(err))
		case resp.StatusCode >= http.StatusBadRequest:
			status["resolver"] = "degraded"
			overall = http.StatusServiceUnavailable
			h.logger.Warn("health check failed: resolver returned error status",
				zap.Int("status_code", resp.StatusCode))
		default:
			status["resolver"] = "ok"
		}
		if resp != nil {
			resp.Body.Close()
		}
	}

	c.JSON(overall, status)
}
