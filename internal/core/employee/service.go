package employee

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// Service は社員に関するユースケースをまとめます。
type Service struct {
	repo  Repository
	clock Clock
	tx    TransactionManager
}

// UseCase は社員ユースケースの公開インターフェースです。
type UseCase interface {
	ListEmployees(ctx context.Context) ([]*Employee, error)
	GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error)
	CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error)
	UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error)
	DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Service{repo: repo, clock: clock, tx: tx}
}

// Fields は作成・更新で受け付ける可変項目です。更新時もすべての項目を明示的に指定します。
type Fields struct {
	FirstName  string
	LastName   string
	Email      string
	Department string
	Position   string
	HireDate   time.Time
	Active     bool
}

// CreateEmployeeInput は社員作成時の入力です。
type CreateEmployeeInput struct {
	Fields
}

// UpdateEmployeeInput は社員更新時の入力です。ID はパスから与えられます。
type UpdateEmployeeInput struct {
	ID int64
	Fields
}

// DeleteEmployeeInput は社員削除時の入力です。
type DeleteEmployeeInput struct {
	ID int64
}

// GetEmployeeInput は社員取得時の入力です。
type GetEmployeeInput struct {
	ID int64
}

// ListEmployees はすべての社員を ID 順に返します。
func (s *Service) ListEmployees(ctx context.Context) ([]*Employee, error) {
	var employees []*Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.List(txCtx)
		if err != nil {
			return err
		}
		employees = found
		return nil
	}); err != nil {
		return nil, err
	}

	if employees == nil {
		employees = []*Employee{}
	}
	return employees, nil
}

// GetEmployee は社員を取得します。
func (s *Service) GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error) {
	if err := validateID(in.ID); err != nil {
		return nil, err
	}

	var result *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// CreateEmployee は新しい社員を作成します。
func (s *Service) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error) {
	fields, err := normalizeFields(in.Fields)
	if err != nil {
		return nil, err
	}

	var created *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		exists, err := s.repo.ExistsByEmail(txCtx, fields.Email)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%s: %w", fields.Email, ErrEmailAlreadyExists)
		}

		now := s.clock.Now()
		emp := &Employee{CreatedAt: now, UpdatedAt: now}
		fields.applyTo(emp)

		result, err := s.repo.Create(txCtx, emp)
		if err != nil {
			return err
		}

		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateEmployee は社員情報を全項目置き換えで更新します。
func (s *Service) UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error) {
	if err := validateID(in.ID); err != nil {
		return nil, err
	}

	fields, err := normalizeFields(in.Fields)
	if err != nil {
		return nil, err
	}

	var updated *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}

		if fields.Email != existing.Email {
			taken, err := s.repo.ExistsByEmailExcludingID(txCtx, fields.Email, existing.ID)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%s: %w", fields.Email, ErrEmailAlreadyExists)
			}
		}

		fields.applyTo(existing)
		existing.UpdatedAt = s.clock.Now()

		result, err := s.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}

		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteEmployee は社員を物理削除します。
func (s *Service) DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error {
	if err := validateID(in.ID); err != nil {
		return err
	}

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		exists, err := s.repo.ExistsByID(txCtx, in.ID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("id %d: %w", in.ID, ErrEmployeeNotFound)
		}
		return s.repo.Delete(txCtx, in.ID)
	})
}

func validateID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("id %d: %w", id, ErrInvalidID)
	}
	return nil
}

func normalizeFields(in Fields) (Fields, error) {
	out := Fields{
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Email:      strings.TrimSpace(in.Email),
		Department: strings.TrimSpace(in.Department),
		Position:   strings.TrimSpace(in.Position),
		Active:     in.Active,
	}

	if out.FirstName == "" {
		return Fields{}, ErrInvalidFirstName
	}
	if out.LastName == "" {
		return Fields{}, ErrInvalidLastName
	}
	if out.Email == "" {
		return Fields{}, ErrInvalidEmail
	}
	if in.HireDate.IsZero() {
		return Fields{}, ErrInvalidHireDate
	}
	out.HireDate = NormalizeDate(in.HireDate)

	return out, nil
}

func (f Fields) applyTo(e *Employee) {
	e.FirstName = f.FirstName
	e.LastName = f.LastName
	e.Email = f.Email
	e.Department = f.Department
	e.Position = f.Position
	e.HireDate = f.HireDate
	e.Active = f.Active
}

// NormalizeDate は日付部分のみを残し UTC の 0 時に揃えます。
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
