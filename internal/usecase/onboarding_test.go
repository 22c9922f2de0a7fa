package usecase

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/example/staff-onboard/internal/blobstore"
	"github.com/example/staff-onboard/internal/identifier"
	"github.com/example/staff-onboard/internal/metrics"
	"github.com/example/staff-onboard/internal/models"
	"github.com/example/staff-onboard/internal/repository"
)

type stubStore struct {
	created   []*models.Employee
	createErr error
	nextID    uint
}

func (s *stubStore) Create(ctx context.Context, requestID string, employee *models.Employee) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.nextID++
	employee.ID = s.nextID
	s.created = append(s.created, employee)
	return nil
}

func (s *stubStore) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, error) {
	var out []models.Employee
	for _, e := range s.created {
		out = append(out, *e)
	}
	return out, nil
}

func (s *stubStore) GetByID(ctx context.Context, id uint) (*models.Employee, error) {
	for _, e := range s.created {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, repository.ErrEmployeeNotFound
}

func (s *stubStore) AggregateStats(ctx context.Context) (*repository.EmployeeStats, error) {
	return &repository.EmployeeStats{TotalCount: int64(len(s.created))}, nil
}

type stubBlobs struct {
	saved   map[string][]byte
	saveErr error
}

func (s *stubBlobs) Save(filename string, r io.Reader) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	key := "blob-" + filename
	if s.saved == nil {
		s.saved = map[string][]byte{}
	}
	s.saved[key] = data
	return key, nil
}

type stubResolver struct {
	id    string
	err   error
	calls int
}

func (s *stubResolver) Resolve(ctx context.Context, requestID string, photo identifier.Photo) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.id, nil
}

type stubCache struct {
	values  map[string]string
	setErr  error
	getErr  error
	setKeys []string
	getKeys []string
}

func (s *stubCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	s.setKeys = append(s.setKeys, key)
	if s.setErr != nil {
		return s.setErr
	}
	if s.values == nil {
		s.values = map[string]string{}
	}
	s.values[key] = value.(string)
	return nil
}

func (s *stubCache) Get(ctx context.Context, key string) (string, error) {
	s.getKeys = append(s.getKeys, key)
	if s.getErr != nil {
		return "", s.getErr
	}
	return s.values[key], nil
}

func validForm() *models.OnboardingForm {
	return &models.OnboardingForm{
		FirstName: "Ann",
		LastName:  "Lee",
		Age:       34,
		Position:  "engineer",
		Remote:    false,
	}
}

func testPhoto() identifier.Photo {
	return identifier.Photo{Filename: "badge.png", ContentType: "image/png", Data: []byte("image bytes")}
}

func newTestUseCase(store EmployeeStore, blobs BlobStore, resolver identifier.Resolver, cache Cache) *OnboardingUseCase {
	appMetrics := metrics.NewMetrics(prometheus.NewRegistry())
	return NewOnboardingUseCase(store, blobs, resolver, cache, appMetrics, zap.NewNop(), time.Minute)
}

func TestCreateEmployeePersistsResolvedIdentifier(t *testing.T) {
	store := &stubStore{}
	blobs := &stubBlobs{}
	resolver := &stubResolver{id: "emp-042"}
	uc := newTestUseCase(store, blobs, resolver, nil)

	employee, err := uc.CreateEmployee(context.Background(), validForm(), testPhoto())
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(store.created))
	}
	if employee.ResolvedIdentifier != "emp-042" {
		t.Fatalf("expected resolved identifier emp-042, got %s", employee.ResolvedIdentifier)
	}
	if employee.PhotoReference != "blob-badge.png" {
		t.Fatalf("expected photo reference blob-badge.png, got %s", employee.PhotoReference)
	}
	if _, ok := blobs.saved[employee.PhotoReference]; !ok {
		t.Fatalf("record references a blob that was never written")
	}
	if employee.ID == 0 {
		t.Fatal("expected store-assigned id")
	}
}

func TestCreateEmployeeIsRetrievableAfterCreation(t *testing.T) {
	store := &stubStore{}
	uc := newTestUseCase(store, &stubBlobs{}, &stubResolver{id: "emp-001"}, nil)

	created, err := uc.CreateEmployee(context.Background(), validForm(), testPhoto())
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	fetched, err := uc.GetEmployee(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("expected record to be retrievable, got %v", err)
	}
	if *fetched != *created {
		t.Fatalf("fetched record differs from created one:\n%+v\n%+v", fetched, created)
	}
}

func TestCreateEmployeeLeavesNoRecordOnResolverFailure(t *testing.T) {
	store := &stubStore{}
	resolver := &stubResolver{err: identifier.ErrRejected}
	uc := newTestUseCase(store, &stubBlobs{}, resolver, nil)

	_, err := uc.CreateEmployee(context.Background(), validForm(), testPhoto())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, identifier.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if len(store.created) != 0 {
		t.Fatalf("expected no record after resolver failure, got %d", len(store.created))
	}
}

func TestCreateEmployeeStorageFailureSkipsResolver(t *testing.T) {
	store := &stubStore{}
	blobs := &stubBlobs{saveErr: blobstore.ErrStorage}
	resolver := &stubResolver{id: "emp-042"}
	uc := newTestUseCase(store, blobs, resolver, nil)

	_, err := uc.CreateEmployee(context.Background(), validForm(), testPhoto())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, blobstore.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if resolver.calls != 0 {
		t.Fatalf("expected resolver to be skipped, got %d calls", resolver.calls)
	}
	if len(store.created) != 0 {
		t.Fatalf("expected no record after storage failure, got %d", len(store.created))
	}
}

func TestCreateEmployeeRejectsInvalidForm(t *testing.T) {
	store := &stubStore{}
	blobs := &stubBlobs{}
	uc := newTestUseCase(store, blobs, &stubResolver{id: "x"}, nil)

	form := validForm()
	form.Age = -1
	_, err := uc.CreateEmployee(context.Background(), form, testPhoto())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(blobs.saved) != 0 {
		t.Fatalf("expected no blob writes for invalid input, got %d", len(blobs.saved))
	}
}

func TestCreateEmployeeServesIdentifierFromCache(t *testing.T) {
	store := &stubStore{}
	resolver := &stubResolver{id: "emp-fresh"}
	cache := &stubCache{}
	uc := newTestUseCase(store, &stubBlobs{}, resolver, cache)

	first, err := uc.CreateEmployee(context.Background(), validForm(), testPhoto())
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	second, err := uc.CreateEmployee(context.Background(), validForm(), testPhoto())
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}

	if resolver.calls != 1 {
		t.Fatalf("expected a single resolver call, got %d", resolver.calls)
	}
	if first.ResolvedIdentifier != second.ResolvedIdentifier {
		t.Fatalf("cache returned a different identifier: %s vs %s",
			first.ResolvedIdentifier, second.ResolvedIdentifier)
	}
}

func TestCreateEmployeeToleratesCacheFailures(t *testing.T) {
	store := &stubStore{}
	cache := &stubCache{setErr: errors.New("redis down"), getErr: errors.New("redis down")}
	uc := newTestUseCase(store, &stubBlobs{}, &stubResolver{id: "emp-042"}, cache)

	employee, err := uc.CreateEmployee(context.Background(), validForm(), testPhoto())
	if err != nil {
		t.Fatalf("expected cache failures to be tolerated, got %v", err)
	}
	if employee.ResolvedIdentifier != "emp-042" {
		t.Fatalf("expected emp-042, got %s", employee.ResolvedIdentifier)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected one record, got %d", len(store.created))
	}
}
