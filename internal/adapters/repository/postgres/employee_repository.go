package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/codex-employee-api/internal/core/employee"
	pgdb "github.com/ogurasousui/codex-employee-api/internal/platform/db/postgres"
	"github.com/ogurasousui/codex-employee-api/internal/platform/metrics"
)

const (
	uniqueViolationCode        = "23505"
	checkViolationCode         = "23514"
	serializationFailureCode   = "40001"
	employeeEmailUniqueKeyName = "employees_email_key"
)

const employeeColumns = `id, first_name, last_name, email, department, position, hire_date, active, version, created_at, updated_at`

const (
	listEmployeesQuery = `SELECT ` + employeeColumns + ` FROM employees ORDER BY id ASC`

	findEmployeeByIDQuery = `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`

	existsByIDQuery = `SELECT EXISTS (SELECT 1 FROM employees WHERE id = $1)`

	existsByEmailQuery = `SELECT EXISTS (SELECT 1 FROM employees WHERE email = $1)`

	existsByEmailExcludingIDQuery = `SELECT EXISTS (SELECT 1 FROM employees WHERE email = $1 AND id <> $2)`

	insertEmployeeQuery = `
        INSERT INTO employees (first_name, last_name, email, department, position, hire_date, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING ` + employeeColumns

	updateEmployeeQuery = `
        UPDATE employees
           SET first_name = $1,
               last_name = $2,
               email = $3,
               department = $4,
               position = $5,
               hire_date = $6,
               active = $7,
               updated_at = $8,
               version = version + 1
         WHERE id = $9 AND version = $10
        RETURNING ` + employeeColumns

	deleteEmployeeQuery = `DELETE FROM employees WHERE id = $1`
)

// EmployeeRepository は PostgreSQL を利用した社員永続化の実装です。
type EmployeeRepository struct {
	pool    pgdb.Queryer
	metrics *metrics.Metrics
}

// NewEmployeeRepository は EmployeeRepository を生成します。m が nil の場合はメトリクスを記録しません。
func NewEmployeeRepository(pool pgdb.Queryer, m *metrics.Metrics) *EmployeeRepository {
	return &EmployeeRepository{pool: pool, metrics: m}
}

// List は社員を ID 昇順で全件取得します。
func (r *EmployeeRepository) List(ctx context.Context) ([]*employee.Employee, error) {
	defer r.metrics.ObserveQuery("list_employees", time.Now())

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, listEmployeesQuery)
	if err != nil {
		return nil, translatePgError(err)
	}
	defer rows.Close()

	employees := make([]*employee.Employee, 0)
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, translatePgError(err)
		}
		employees = append(employees, emp)
	}

	if err := rows.Err(); err != nil {
		return nil, translatePgError(err)
	}

	return employees, nil
}

// FindByID は ID で社員を取得します。
func (r *EmployeeRepository) FindByID(ctx context.Context, id int64) (*employee.Employee, error) {
	defer r.metrics.ObserveQuery("find_employee_by_id", time.Now())

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	found, err := scanEmployee(exec.QueryRow(ctx, findEmployeeByIDQuery, id))
	if err != nil {
		return nil, translatePgError(err)
	}
	return found, nil
}

// ExistsByID は ID の社員が存在するかを返します。
func (r *EmployeeRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	defer r.metrics.ObserveQuery("exists_employee_by_id", time.Now())
	return r.exists(ctx, existsByIDQuery, id)
}

// ExistsByEmail はメールアドレスが使用済みかを返します。
func (r *EmployeeRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	defer r.metrics.ObserveQuery("exists_employee_by_email", time.Now())
	return r.exists(ctx, existsByEmailQuery, email)
}

// ExistsByEmailExcludingID は id 以外の社員がメールアドレスを使用しているかを返します。
func (r *EmployeeRepository) ExistsByEmailExcludingID(ctx context.Context, email string, id int64) (bool, error) {
	defer r.metrics.ObserveQuery("exists_employee_by_email_excluding_id", time.Now())
	return r.exists(ctx, existsByEmailExcludingIDQuery, email, id)
}

func (r *EmployeeRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)

	var exists bool
	if err := exec.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, translatePgError(err)
	}
	return exists, nil
}

// Create は社員を新規作成します。ID と version はデータベースが採番します。
func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	defer r.metrics.ObserveQuery("insert_employee", time.Now())

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, insertEmployeeQuery,
		e.FirstName,
		e.LastName,
		e.Email,
		e.Department,
		e.Position,
		employee.NormalizeDate(e.HireDate),
		e.Active,
		e.CreatedAt,
		e.UpdatedAt,
	)

	created, err := scanEmployee(row)
	if err != nil {
		return nil, translatePgError(err)
	}
	return created, nil
}

// Update は e.Version が保存済みの version と一致する場合に限り全項目を更新します。
func (r *EmployeeRepository) Update(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	defer r.metrics.ObserveQuery("update_employee", time.Now())

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, updateEmployeeQuery,
		e.FirstName,
		e.LastName,
		e.Email,
		e.Department,
		e.Position,
		employee.NormalizeDate(e.HireDate),
		e.Active,
		e.UpdatedAt,
		e.ID,
		e.Version,
	)

	updated, err := scanEmployee(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, translatePgError(err)
	}

	// 0 件更新は行の消失か version 不一致のどちらかです。
	exists, existsErr := r.exists(ctx, existsByIDQuery, e.ID)
	if existsErr != nil {
		return nil, existsErr
	}
	if exists {
		return nil, fmt.Errorf("id %d version %d: %w", e.ID, e.Version, employee.ErrVersionConflict)
	}
	return nil, employee.ErrEmployeeNotFound
}

// Delete は社員を削除します。
func (r *EmployeeRepository) Delete(ctx context.Context, id int64) error {
	defer r.metrics.ObserveQuery("delete_employee", time.Now())

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, deleteEmployeeQuery, id)
	if err != nil {
		return translatePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

func scanEmployee(row pgx.Row) (*employee.Employee, error) {
	var (
		emp      employee.Employee
		hireDate time.Time
	)

	if err := row.Scan(
		&emp.ID,
		&emp.FirstName,
		&emp.LastName,
		&emp.Email,
		&emp.Department,
		&emp.Position,
		&hireDate,
		&emp.Active,
		&emp.Version,
		&emp.CreatedAt,
		&emp.UpdatedAt,
	); err != nil {
		return nil, err
	}

	emp.HireDate = employee.NormalizeDate(hireDate.UTC())
	emp.CreatedAt = emp.CreatedAt.UTC()
	emp.UpdatedAt = emp.UpdatedAt.UTC()
	return &emp, nil
}

func translatePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return employee.ErrEmployeeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			if pgErr.ConstraintName == "" || pgErr.ConstraintName == employeeEmailUniqueKeyName {
				return fmt.Errorf("%s: %w", pgErr.Detail, employee.ErrEmailAlreadyExists)
			}
		case checkViolationCode:
			switch pgErr.ConstraintName {
			case "employees_first_name_check":
				return employee.ErrInvalidFirstName
			case "employees_last_name_check":
				return employee.ErrInvalidLastName
			}
		case serializationFailureCode:
			return fmt.Errorf("%s: %w", pgErr.Message, employee.ErrVersionConflict)
		}
	}

	return err
}
