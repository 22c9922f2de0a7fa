package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/staff-onboard/internal/logging"
	"github.com/example/staff-onboard/internal/models"
)

// ErrEmployeeNotFound reports a lookup miss. Callers map it to a 404.
var ErrEmployeeNotFound = errors.New("employee not found")

// EmployeeRepository provides persistence APIs for employee records.
type EmployeeRepository struct {
	db             *gorm.DB
	logger         *zap.Logger
	positionExact  bool
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// EmployeeStats aggregates the persisted records.
type EmployeeStats struct {
	TotalCount  int64   `json:"total_count"`
	RemoteCount int64   `json:"remote_count"`
	AverageAge  float64 `json:"average_age"`
}

// NewEmployeeRepository creates a new repository instance. positionExact
// switches the position filter from substring to exact matching.
func NewEmployeeRepository(db *gorm.DB, logger *zap.Logger, positionExact bool) *EmployeeRepository {
	return &EmployeeRepository{
		db:             db,
		logger:         logger.Named("employee_repository"),
		positionExact:  positionExact,
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// AutoMigrate ensures the schema is available.
func (r *EmployeeRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&models.Employee{})
}

// Create persists a new employee record. The id is assigned by the store
// and written back into the struct.
func (r *EmployeeRepository) Create(ctx context.Context, requestID string, employee *models.Employee) error {
	return r.executeWithRetry(ctx, "repository.create_employee", requestID, func() error {
		return r.db.WithContext(ctx).Create(employee).Error
	})
}

// List returns the records matching the filter in insertion (id) order.
// The name filter is a case-sensitive substring match against the first OR
// last name; remote is an exact match.
func (r *EmployeeRepository) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, error) {
	query := r.db.WithContext(ctx).Model(&models.Employee{})

	if filter.Name != "" {
		pattern := "%" + filter.Name + "%"
		query = query.Where("first_name LIKE ? OR last_name LIKE ?", pattern, pattern)
	}
	if filter.Position != "" {
		if r.positionExact {
			query = query.Where("position = ?", filter.Position)
		} else {
			query = query.Where("position LIKE ?", "%"+filter.Position+"%")
		}
	}
	if filter.Remote != nil {
		query = query.Where("remote = ?", *filter.Remote)
	}

	var employees []models.Employee
	if err := query.Order("id").Find(&employees).Error; err != nil {
		return nil, err
	}
	return employees, nil
}

// GetByID retrieves a single record by its store-assigned id.
func (r *EmployeeRepository) GetByID(ctx context.Context, id uint) (*models.Employee, error) {
	var employee models.Employee
	if err := r.db.WithContext(ctx).First(&employee, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	return &employee, nil
}

// Count returns the number of persisted records.
func (r *EmployeeRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Employee{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// AggregateStats summarizes the persisted records.
func (r *EmployeeRepository) AggregateStats(ctx context.Context) (*EmployeeStats, error) {
	var stats EmployeeStats
	row := r.db.WithContext(ctx).Model(&models.Employee{}).
		Select("COUNT(*) AS total_count, COALESCE(SUM(CASE WHEN remote THEN 1 ELSE 0 END), 0) AS remote_count, COALESCE(AVG(age), 0) AS average_age").
		Row()
	if err := row.Scan(&stats.TotalCount, &stats.RemoteCount, &stats.AverageAge); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *EmployeeRepository) executeWithRetry(ctx context.Context, operation, requestID string, fn func() error) error {
	if r.retryAttempts <= 1 {
		return logging.NewOperationError(operation, requestID, fn())
	}

	backoff := r.initialBackoff
	opLogger := logging.WithOperation(r.logger, operation, requestID)
	var err error
	for attempt := 0; attempt < r.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= r.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("query succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if !isTransientError(err) || attempt == r.retryAttempts-1 {
			opLogger.Error("query failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, requestID, err)
		}

		opLogger.Warn("transient store error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
