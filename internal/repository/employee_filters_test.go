package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/staff-onboard/internal/models"
)

func newTestRepository(t *testing.T, positionExact bool) *EmployeeRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open in-memory database")

	repo := NewEmployeeRepository(db, zap.NewNop(), positionExact)
	require.NoError(t, repo.AutoMigrate(context.Background()))
	return repo
}

func seedEmployees(t *testing.T, repo *EmployeeRepository) (ann, bob models.Employee) {
	t.Helper()
	ctx := context.Background()

	ann = models.Employee{FirstName: "Ann", LastName: "Lee", Age: 30, Position: "eng", Remote: false, ResolvedIdentifier: "emp-001"}
	bob = models.Employee{FirstName: "Bob", LastName: "Lee", Age: 41, Position: "sales", Remote: true, ResolvedIdentifier: "emp-002"}

	require.NoError(t, repo.Create(ctx, "seed-1", &ann))
	require.NoError(t, repo.Create(ctx, "seed-2", &bob))
	return ann, bob
}

func TestListFiltersByNameSubstringOverBothNames(t *testing.T) {
	repo := newTestRepository(t, false)
	seedEmployees(t, repo)

	got, err := repo.List(context.Background(), models.EmployeeFilter{Name: "Lee"})
	require.NoError(t, err)
	assert.Len(t, got, 2, "last-name match should return both records")

	got, err = repo.List(context.Background(), models.EmployeeFilter{Name: "nn"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ann", got[0].FirstName, "substring should match first names too")
}

func TestListFiltersByRemoteExactly(t *testing.T) {
	repo := newTestRepository(t, false)
	_, bob := seedEmployees(t, repo)

	remote := true
	got, err := repo.List(context.Background(), models.EmployeeFilter{Remote: &remote})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, bob.FirstName, got[0].FirstName)

	remote = false
	got, err = repo.List(context.Background(), models.EmployeeFilter{Remote: &remote})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ann", got[0].FirstName)
}

func TestListFiltersByPositionSubstringByDefault(t *testing.T) {
	repo := newTestRepository(t, false)
	seedEmployees(t, repo)

	got, err := repo.List(context.Background(), models.EmployeeFilter{Position: "eng"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ann", got[0].FirstName)

	got, err = repo.List(context.Background(), models.EmployeeFilter{Position: "al"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Bob", got[0].FirstName, "substring mode should match inside the label")
}

func TestListFiltersByPositionExactWhenConfigured(t *testing.T) {
	repo := newTestRepository(t, true)
	seedEmployees(t, repo)

	got, err := repo.List(context.Background(), models.EmployeeFilter{Position: "al"})
	require.NoError(t, err)
	assert.Empty(t, got, "exact mode should not match substrings")

	got, err = repo.List(context.Background(), models.EmployeeFilter{Position: "sales"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Bob", got[0].FirstName)
}

func TestListWithoutFiltersReturnsAllInInsertionOrder(t *testing.T) {
	repo := newTestRepository(t, false)
	ann, bob := seedEmployees(t, repo)

	got, err := repo.List(context.Background(), models.EmployeeFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ann.ID, got[0].ID)
	assert.Equal(t, bob.ID, got[1].ID)
}

func TestGetByIDReturnsCreatedRecordUnchanged(t *testing.T) {
	repo := newTestRepository(t, false)
	ann, _ := seedEmployees(t, repo)

	got, err := repo.GetByID(context.Background(), ann.ID)
	require.NoError(t, err)
	assert.Equal(t, ann.FirstName, got.FirstName)
	assert.Equal(t, ann.ResolvedIdentifier, got.ResolvedIdentifier)
	assert.Equal(t, ann.ID, got.ID)
}

func TestGetByIDMissReturnsNotFound(t *testing.T) {
	repo := newTestRepository(t, false)

	_, err := repo.GetByID(context.Background(), 9999)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
}

func TestAggregateStatsSummarizesRecords(t *testing.T) {
	repo := newTestRepository(t, false)
	seedEmployees(t, repo)

	stats, err := repo.AggregateStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalCount)
	assert.Equal(t, int64(1), stats.RemoteCount)
	assert.InDelta(t, 35.5, stats.AverageAge, 0.01)
}
