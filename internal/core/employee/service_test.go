package employee

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"
)

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type fakeEmployeeRepo struct {
	employees map[int64]*Employee
	sequence  int64

	// updateErr は Update 呼び出しで返すエラーを上書きします。
	updateErr error
	createErr error
}

func newFakeEmployeeRepo() *fakeEmployeeRepo {
	return &fakeEmployeeRepo{employees: make(map[int64]*Employee)}
}

func (r *fakeEmployeeRepo) List(_ context.Context) ([]*Employee, error) {
	ids := make([]int64, 0, len(r.employees))
	for id := range r.employees {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]*Employee, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.employees[id].Clone())
	}
	return out, nil
}

func (r *fakeEmployeeRepo) FindByID(_ context.Context, id int64) (*Employee, error) {
	emp, ok := r.employees[id]
	if !ok {
		return nil, ErrEmployeeNotFound
	}
	return emp.Clone(), nil
}

func (r *fakeEmployeeRepo) ExistsByID(_ context.Context, id int64) (bool, error) {
	_, ok := r.employees[id]
	return ok, nil
}

func (r *fakeEmployeeRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, emp := range r.employees {
		if emp.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeEmployeeRepo) ExistsByEmailExcludingID(_ context.Context, email string, id int64) (bool, error) {
	for _, emp := range r.employees {
		if emp.Email == email && emp.ID != id {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeEmployeeRepo) Create(_ context.Context, e *Employee) (*Employee, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, existing := range r.employees {
		if existing.Email == e.Email {
			return nil, ErrEmailAlreadyExists
		}
	}

	clone := e.Clone()
	r.sequence++
	clone.ID = r.sequence
	clone.Version = 0
	r.employees[clone.ID] = clone
	return clone.Clone(), nil
}

func (r *fakeEmployeeRepo) Update(_ context.Context, e *Employee) (*Employee, error) {
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	stored, ok := r.employees[e.ID]
	if !ok {
		return nil, ErrEmployeeNotFound
	}
	if stored.Version != e.Version {
		return nil, ErrVersionConflict
	}
	for _, existing := range r.employees {
		if existing.ID != e.ID && existing.Email == e.Email {
			return nil, ErrEmailAlreadyExists
		}
	}

	clone := e.Clone()
	clone.Version = stored.Version + 1
	clone.CreatedAt = stored.CreatedAt
	r.employees[e.ID] = clone
	return clone.Clone(), nil
}

func (r *fakeEmployeeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.employees[id]; !ok {
		return ErrEmployeeNotFound
	}
	delete(r.employees, id)
	return nil
}

type recordingTxManager struct {
	readOnly  int
	readWrite int
}

func (m *recordingTxManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	m.readOnly++
	return fn(ctx)
}

func (m *recordingTxManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	m.readWrite++
	return fn(ctx)
}

func adaFields() Fields {
	return Fields{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		Department: "Engineering",
		Position:   "Analyst",
		HireDate:   time.Date(1843, 1, 1, 0, 0, 0, 0, time.UTC),
		Active:     true,
	}
}

func TestService_CreateEmployee_Success(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tx := &recordingTxManager{}
	svc := NewService(repo, &stubClock{now: now}, tx)

	in := adaFields()
	in.FirstName = "  Ada "
	in.Email = " ada@example.com "
	in.HireDate = time.Date(1843, 1, 1, 15, 30, 0, 0, time.FixedZone("JST", 9*60*60))

	created, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{Fields: in})
	if err != nil {
		t.Fatalf("CreateEmployee returned error: %v", err)
	}

	if created.ID != 1 {
		t.Fatalf("expected assigned id 1, got %d", created.ID)
	}
	if created.FirstName != "Ada" || created.Email != "ada@example.com" {
		t.Fatalf("expected trimmed fields, got %+v", created)
	}
	if !created.HireDate.Equal(time.Date(1843, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected normalized hire date, got %v", created.HireDate)
	}
	if !created.CreatedAt.Equal(now) || !created.UpdatedAt.Equal(now) {
		t.Fatalf("expected timestamps to use clock now")
	}
	if tx.readWrite != 1 {
		t.Fatalf("expected create to run in one read-write transaction, got %d", tx.readWrite)
	}

	found, err := svc.GetEmployee(context.Background(), GetEmployeeInput{ID: created.ID})
	if err != nil {
		t.Fatalf("GetEmployee returned error: %v", err)
	}
	if *found != *created {
		t.Fatalf("expected stored record %+v, got %+v", created, found)
	}
}

func TestService_CreateEmployee_DuplicateEmail(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeEmployeeRepo(), nil, nil)

	if _, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{Fields: adaFields()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := adaFields()
	other.FirstName = "Augusta"
	_, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{Fields: other})
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestService_CreateEmployee_StoreConstraintViolation(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	repo.createErr = ErrEmailAlreadyExists
	svc := NewService(repo, nil, nil)

	_, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{Fields: adaFields()})
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected store violation to surface as ErrEmailAlreadyExists, got %v", err)
	}
}

func TestService_CreateEmployee_InvalidInput(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		mutate func(*Fields)
		want   error
	}{
		"blank first name": {func(f *Fields) { f.FirstName = "  " }, ErrInvalidFirstName},
		"blank last name":  {func(f *Fields) { f.LastName = "" }, ErrInvalidLastName},
		"blank email":      {func(f *Fields) { f.Email = " " }, ErrInvalidEmail},
		"zero hire date":   {func(f *Fields) { f.HireDate = time.Time{} }, ErrInvalidHireDate},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			repo := newFakeEmployeeRepo()
			svc := NewService(repo, nil, nil)

			in := adaFields()
			tc.mutate(&in)

			_, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{Fields: in})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if len(repo.employees) != 0 {
				t.Fatalf("expected nothing persisted")
			}
		})
	}
}

func TestService_GetEmployee_NotFound(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeEmployeeRepo(), nil, nil)

	_, err := svc.GetEmployee(context.Background(), GetEmployeeInput{ID: 42})
	if !errors.Is(err, ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestService_GetEmployee_InvalidID(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeEmployeeRepo(), nil, nil)

	_, err := svc.GetEmployee(context.Background(), GetEmployeeInput{ID: 0})
	if !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestService_ListEmployees(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	tx := &recordingTxManager{}
	svc := NewService(repo, nil, tx)

	empty, err := svc.ListEmployees(context.Background())
	if err != nil {
		t.Fatalf("ListEmployees returned error: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		in := adaFields()
		in.Email = email
		if _, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{Fields: in}); err != nil {
			t.Fatalf("CreateEmployee returned error: %v", err)
		}
	}

	all, err := svc.ListEmployees(context.Background())
	if err != nil {
		t.Fatalf("ListEmployees returned error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 employees, got %d", len(all))
	}
	for i, emp := range all {
		if emp.ID != int64(i+1) {
			t.Fatalf("expected insertion order, got id %d at %d", emp.ID, i)
		}
	}
	if tx.readOnly != 2 {
		t.Fatalf("expected read-only transactions for list, got %d", tx.readOnly)
	}
}

func TestService_UpdateEmployee_FullReplace(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	clk := &stubClock{now: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)}
	svc := NewService(repo, clk, nil)

	created, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{Fields: adaFields()})
	if err != nil {
		t.Fatalf("CreateEmployee returned error: %v", err)
	}

	clk.now = clk.now.Add(24 * time.Hour)
	replacement := Fields{
		FirstName:  "Augusta",
		LastName:   "King",
		Email:      "augusta@example.com",
		Department: "",
		Position:   "Countess",
		HireDate:   time.Date(1852, 11, 27, 0, 0, 0, 0, time.UTC),
		Active:     false,
	}

	updated, err := svc.UpdateEmployee(context.Background(), UpdateEmployeeInput{ID: created.ID, Fields: replacement})
	if err != nil {
		t.Fatalf("UpdateEmployee returned error: %v", err)
	}

	if updated.Version != created.Version+1 {
		t.Fatalf("expected version to increment, got %d", updated.Version)
	}
	if !updated.UpdatedAt.Equal(clk.now) {
		t.Fatalf("expected updated_at to be refreshed")
	}

	found, err := svc.GetEmployee(context.Background(), GetEmployeeInput{ID: created.ID})
	if err != nil {
		t.Fatalf("GetEmployee returned error: %v", err)
	}
	got := Fields{
		FirstName:  found.FirstName,
		LastName:   found.LastName,
		Email:      found.Email,
		Department: found.Department,
		Position:   found.Position,
		HireDate:   found.HireDate,
		Active:     found.Active,
	}
	if got != replacement {
		t.Fatalf("expected %+v, got %+v", replacement, got)
	}
}

func TestService_UpdateEmployee_NotFound(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeEmployeeRepo(), nil, nil)

	_, err := svc.UpdateEmployee(context.Background(), UpdateEmployeeInput{ID: 7, Fields: adaFields()})
	if !errors.Is(err, ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestService_UpdateEmployee_EmailTakenByOther(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeEmployeeRepo(), nil, nil)

	if _, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{Fields: adaFields()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := adaFields()
	second.Email = "charles@example.com"
	created, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{Fields: second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second.Email = "ada@example.com"
	_, err = svc.UpdateEmployee(context.Background(), UpdateEmployeeInput{ID: created.ID, Fields: second})
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestService_UpdateEmployee_VersionConflict(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	svc := NewService(repo, nil, nil)

	created, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{Fields: adaFields()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	repo.updateErr = ErrVersionConflict
	_, err = svc.UpdateEmployee(context.Background(), UpdateEmployeeInput{ID: created.ID, Fields: adaFields()})
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestService_UpdateEmployee_StoreErrorPassesThrough(t *testing.T) {
	t.Parallel()

	repo := newFakeEmployeeRepo()
	svc := NewService(repo, nil, nil)

	created, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{Fields: adaFields()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	storeErr := errors.New("connection reset")
	repo.updateErr = storeErr
	_, err = svc.UpdateEmployee(context.Background(), UpdateEmployeeInput{ID: created.ID, Fields: adaFields()})
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error to pass through, got %v", err)
	}
}

func TestService_DeleteEmployee(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeEmployeeRepo(), nil, nil)

	created, err := svc.CreateEmployee(context.Background(), CreateEmployeeInput{Fields: adaFields()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.DeleteEmployee(context.Background(), DeleteEmployeeInput{ID: created.ID}); err != nil {
		t.Fatalf("DeleteEmployee returned error: %v", err)
	}

	if _, err := svc.GetEmployee(context.Background(), GetEmployeeInput{ID: created.ID}); !errors.Is(err, ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound after delete, got %v", err)
	}

	if err := svc.DeleteEmployee(context.Background(), DeleteEmployeeInput{ID: created.ID}); !errors.Is(err, ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound on second delete, got %v", err)
	}
}

func TestService_Scenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := NewService(newFakeEmployeeRepo(), nil, nil)

	created, err := svc.CreateEmployee(ctx, CreateEmployeeInput{Fields: adaFields()})
	if err != nil {
		t.Fatalf("CreateEmployee returned error: %v", err)
	}
	if created.ID != 1 {
		t.Fatalf("expected id 1, got %d", created.ID)
	}

	if _, err := svc.CreateEmployee(ctx, CreateEmployeeInput{Fields: adaFields()}); !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}

	inactive := adaFields()
	inactive.Active = false
	if _, err := svc.UpdateEmployee(ctx, UpdateEmployeeInput{ID: 1, Fields: inactive}); err != nil {
		t.Fatalf("UpdateEmployee with own email returned error: %v", err)
	}

	found, err := svc.GetEmployee(ctx, GetEmployeeInput{ID: 1})
	if err != nil {
		t.Fatalf("GetEmployee returned error: %v", err)
	}
	if found.Active {
		t.Fatalf("expected active=false after update")
	}

	if err := svc.DeleteEmployee(ctx, DeleteEmployeeInput{ID: 1}); err != nil {
		t.Fatalf("DeleteEmployee returned error: %v", err)
	}
	if _, err := svc.GetEmployee(ctx, GetEmployeeInput{ID: 1}); !errors.Is(err, ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
}
