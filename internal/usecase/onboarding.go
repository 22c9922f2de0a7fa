package usecase

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/staff-onboard/internal/identifier"
	"github.com/example/staff-onboard/internal/logging"
	"github.com/example/staff-onboard/internal/metrics"
	"github.com/example/staff-onboard/internal/models"
	"github.com/example/staff-onboard/internal/repository"
)

// EmployeeStore defines the persistence operations needed by the
// onboarding flow.
type EmployeeStore interface {
	Create(ctx context.Context, requestID string, employee *models.Employee) error
	List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, error)
	GetByID(ctx context.Context, id uint) (*models.Employee, error)
	AggregateStats(ctx context.Context) (*repository.EmployeeStats, error)
}

// BlobStore defines the photo persistence operations needed by the
// onboarding flow.
type BlobStore interface {
	Save(filename string, r io.Reader) (string, error)
}

// OnboardingUseCase orchestrates the create pipeline: photo persistence,
// remote identifier resolution, record persistence. The three side effects
// run strictly in that order and each is gated on the previous one, so a
// failed resolver call can orphan a blob but never a record.
type OnboardingUseCase struct {
	store    EmployeeStore
	blobs    BlobStore
	resolver identifier.Resolver
	cache    Cache
	metrics  *metrics.Metrics
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewOnboardingUseCase constructs a new use case instance. cache may be
// nil, which disables identifier caching.
func NewOnboardingUseCase(
	store EmployeeStore,
	blobs BlobStore,
	resolver identifier.Resolver,
	cache Cache,
	appMetrics *metrics.Metrics,
	logger *zap.Logger,
	cacheTTL time.Duration,
) *OnboardingUseCase {
	return &OnboardingUseCase{
		store:    store,
		blobs:    blobs,
		resolver: resolver,
		cache:    cache,
		metrics:  appMetrics,
		logger:   logger.Named("onboarding_usecase"),
		cacheTTL: cacheTTL,
	}
}

// CreateEmployee runs the full onboarding pipeline for a validated form
// and its photo. Any failure short-circuits the remaining steps and leaves
// no partial record behind.
func (uc *OnboardingUseCase) CreateEmployee(
	ctx context.Context,
	form *models.OnboardingForm,
	photo identifier.Photo,
) (*models.Employee, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.create_employee", requestID)

	if err := form.Validate(); err != nil {
		return nil, err
	}
	if len(photo.Data) == 0 {
		return nil, fmt.Errorf("%w: photo is empty", models.ErrInvalidInput)
	}

	key, err := uc.writeBlob(photo)
	if err != nil {
		uc.metrics.OnboardingRequests.WithLabelValues("failure").Inc()
		opLogger.Error("photo persistence failed", zap.Error(err))
		return nil, logging.NewOperationError("usecase.store_photo", requestID, err)
	}
	opLogger.Debug("photo stored", zap.String("blob_key", key))

	resolvedID, err := uc.resolveIdentifier(ctx, requestID, photo, opLogger)
	if err != nil {
		uc.metrics.OnboardingRequests.WithLabelValues("failure").Inc()
		opLogger.Error("identifier resolution failed", zap.Error(err))
		return nil, err
	}

	employee := &models.Employee{
		FirstName:          form.FirstName,
		LastName:           form.LastName,
		Age:                form.Age,
		Position:           form.Position,
		Remote:             form.Remote,
		PhotoReference:     key,
		PhotoFilename:      photo.Filename,
		ResolvedIdentifier: resolvedID,
		CreatedAt:          time.Now().UTC(),
	}

	start := time.Now()
	err = uc.store.Create(ctx, requestID, employee)
	uc.metrics.StageDuration.WithLabelValues("record_write").Observe(time.Since(start).Seconds())
	if err != nil {
		uc.metrics.OnboardingRequests.WithLabelValues("failure").Inc()
		opLogger.Error("record persistence failed", zap.Error(err))
		return nil, err
	}

	uc.metrics.OnboardingRequests.WithLabelValues("success").Inc()
	opLogger.Info("employee onboarded",
		zap.Uint("employee_id", employee.ID),
		zap.String("resolved_identifier", resolvedID))
	return employee, nil
}

// ListEmployees returns the records matching the filter.
func (uc *OnboardingUseCase) ListEmployees(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, error) {
	return uc.store.List(ctx, filter)
}

// GetEmployee returns a single record by id.
func (uc *OnboardingUseCase) GetEmployee(ctx context.Context, id uint) (*models.Employee, error) {
	return uc.store.GetByID(ctx, id)
}

// GetStats returns aggregate numbers over the persisted records.
func (uc *OnboardingUseCase) GetStats(ctx context.Context) (*repository.EmployeeStats, error) {
	return uc.store.AggregateStats(ctx)
}

func (uc *OnboardingUseCase) writeBlob(photo identifier.Photo) (string, error) {
	start := time.Now()
	key, err := uc.blobs.Save(photo.Filename, bytes.NewReader(photo.Data))
	uc.metrics.StageDuration.WithLabelValues("blob_write").Observe(time.Since(start).Seconds())
	return key, err
}

// resolveIdentifier consults the cache first. The resolver is deterministic
// for fixed model and label artifacts, so identical photo bytes always map
// to the same identifier and are safe to cache by content hash. Cache
// failures degrade to a direct resolver call.
func (uc *OnboardingUseCase) resolveIdentifier(
	ctx context.Context,
	requestID string,
	photo identifier.Photo,
	opLogger *zap.Logger,
) (string, error) {
	sum := sha256.Sum256(photo.Data)
	cacheKey := "resolved:" + hex.EncodeToString(sum[:])

	if uc.cache != nil {
		if cached, err := uc.cache.Get(ctx, cacheKey); err == nil && strings.TrimSpace(cached) != "" {
			uc.metrics.CacheLookups.WithLabelValues("hit").Inc()
			opLogger.Debug("identifier served from cache")
			return cached, nil
		}
		uc.metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	start := time.Now()
	resolvedID, err := uc.resolver.Resolve(ctx, requestID, photo)
	uc.metrics.StageDuration.WithLabelValues("resolve").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, cacheKey, resolvedID, uc.cacheTTL); err != nil {
			opLogger.Warn("failed to cache resolved identifier", zap.Error(err))
		}
	}
	return resolvedID, nil
}
