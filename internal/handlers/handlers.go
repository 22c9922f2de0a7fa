package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/staff-onboard/internal/blobstore"
	"github.com/example/staff-onboard/internal/identifier"
	"github.com/example/staff-onboard/internal/models"
	"github.com/example/staff-onboard/internal/repository"
	"github.com/example/staff-onboard/internal/usecase"
)

// DefaultMaxUploadSize bounds the accepted photo size when the config does
// not override it.
const DefaultMaxUploadSize int64 = 8 << 20

var allowedPhotoTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
}

// RegisterRoutes wires the employee HTTP handlers to the Gin router. The
// middleware (typically bearer-token auth) guards the employee surface
// only; health and metrics stay open.
func RegisterRoutes(
	router *gin.Engine,
	uc *usecase.OnboardingUseCase,
	logger *zap.Logger,
	maxUploadSize int64,
	middleware ...gin.HandlerFunc,
) {
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}
	log := logger.Named("handlers")

	employees := router.Group("/employees", middleware...)

	employees.POST("/new", func(c *gin.Context) {
		form, err := models.ParseOnboardingForm(
			c.PostForm("first_name"),
			c.PostForm("last_name"),
			c.PostForm("age"),
			c.PostForm("position"),
			c.PostForm("remote"),
		)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		file, err := c.FormFile("photo")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
			return
		}
		if file.Size > maxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "photo exceeds the upload limit"})
			return
		}
		contentType := file.Header.Get("Content-Type")
		if !allowedPhotoTypes[contentType] {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "photo must be image/png or image/jpeg"})
			return
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open photo"})
			return
		}
		defer src.Close()

		data, err := io.ReadAll(io.LimitReader(src, maxUploadSize+1))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read photo"})
			return
		}
		if int64(len(data)) > maxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "photo exceeds the upload limit"})
			return
		}

		photo := identifier.Photo{
			Filename:    file.Filename,
			ContentType: contentType,
			Data:        data,
		}

		employee, err := uc.CreateEmployee(c.Request.Context(), form, photo)
		if err != nil {
			status, message := classifyCreateError(err)
			if status >= http.StatusInternalServerError {
				log.Error("onboarding request failed", zap.Error(err))
			}
			c.JSON(status, gin.H{"error": message})
			return
		}

		c.JSON(http.StatusCreated, employee)
	})

	employees.GET("/list", func(c *gin.Context) {
		filter := models.EmployeeFilter{
			Name:     c.Query("name"),
			Position: c.Query("position"),
		}
		if raw := c.Query("remote"); raw != "" {
			remote, err := strconv.ParseBool(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "remote must be a boolean"})
				return
			}
			filter.Remote = &remote
		}

		records, err := uc.ListEmployees(c.Request.Context(), filter)
		if err != nil {
			log.Error("listing failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list employees"})
			return
		}
		if records == nil {
			records = []models.Employee{}
		}
		c.JSON(http.StatusOK, records)
	})

	employees.GET("/stats", func(c *gin.Context) {
		stats, err := uc.GetStats(c.Request.Context())
		if err != nil {
			log.Error("stats aggregation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate stats"})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	employees.GET("/:id", func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
			return
		}

		employee, err := uc.GetEmployee(c.Request.Context(), uint(id))
		if err != nil {
			if errors.Is(err, repository.ErrEmployeeNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "employee not found"})
				return
			}
			log.Error("lookup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load employee"})
			return
		}
		c.JSON(http.StatusOK, employee)
	})
}

// classifyCreateError maps pipeline failures to HTTP outcomes without
// leaking internal detail. Resolver failures of any class surface as a
// single "could not resolve identifier" response.
func classifyCreateError(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, identifier.ErrUnavailable),
		errors.Is(err, identifier.ErrRejected),
		errors.Is(err, identifier.ErrMalformedResponse):
		return http.StatusBadGateway, "could not resolve employee identifier from photo"
	case errors.Is(err, blobstore.ErrStorage):
		return http.StatusInternalServerError, "failed to store photo"
	default:
		return http.StatusInternalServerError, "failed to create employee"
	}
}
