package inference

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/staff-onboard/internal/metrics"
)

// MaxImageSize bounds the accepted image payload.
const MaxImageSize int64 = 8 << 20

// RegisterRoutes wires the resolver HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, classifier *Classifier, appMetrics *metrics.Metrics, logger *zap.Logger) {
	log := logger.Named("resolver_handlers")

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "labels": len(classifier.Labels())})
	})

	router.POST("/process_image", func(c *gin.Context) {
		file, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
			return
		}
		if file.Size > MaxImageSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds the upload limit"})
			return
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open image"})
			return
		}
		defer src.Close()

		data, err := io.ReadAll(io.LimitReader(src, MaxImageSize))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
			return
		}

		start := time.Now()
		label, err := classifier.Resolve(data)
		appMetrics.InferenceDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			if errors.Is(err, ErrUnreadableImage) {
				appMetrics.InferenceRequests.WithLabelValues("unreadable").Inc()
				c.JSON(http.StatusBadRequest, gin.H{"error": "image could not be decoded"})
				return
			}
			appMetrics.InferenceRequests.WithLabelValues("failure").Inc()
			log.Error("inference failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process image"})
			return
		}

		appMetrics.InferenceRequests.WithLabelValues("success").Inc()
		c.JSON(http.StatusOK, gin.H{"employee_id": label})
	})
}
