package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/ogurasousui/codex-employee-api/internal/core/employee"
	sqlitedb "github.com/ogurasousui/codex-employee-api/internal/platform/db/sqlite"
	"github.com/ogurasousui/codex-employee-api/internal/platform/metrics"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339Nano
)

const employeeColumns = `id, first_name, last_name, email, department, position, hire_date, active, version, created_at, updated_at`

const (
	listEmployeesQuery            = `SELECT ` + employeeColumns + ` FROM employees ORDER BY id ASC`
	findEmployeeByIDQuery         = `SELECT ` + employeeColumns + ` FROM employees WHERE id = ?`
	existsByIDQuery               = `SELECT EXISTS (SELECT 1 FROM employees WHERE id = ?)`
	existsByEmailQuery            = `SELECT EXISTS (SELECT 1 FROM employees WHERE email = ?)`
	existsByEmailExcludingIDQuery = `SELECT EXISTS (SELECT 1 FROM employees WHERE email = ? AND id <> ?)`
	insertEmployeeQuery           = `INSERT INTO employees (first_name, last_name, email, department, position, hire_date, active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	updateEmployeeQuery = `UPDATE employees
   SET first_name = ?, last_name = ?, email = ?, department = ?, position = ?,
       hire_date = ?, active = ?, updated_at = ?, version = version + 1
 WHERE id = ? AND version = ?`
	deleteEmployeeQuery = `DELETE FROM employees WHERE id = ?`
)

// EmployeeRepository は SQLite を利用した社員永続化の実装です。
type EmployeeRepository struct {
	db      sqlitedb.Queryer
	metrics *metrics.Metrics
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(db sqlitedb.Queryer, m *metrics.Metrics) *EmployeeRepository {
	return &EmployeeRepository{db: db, metrics: m}
}

// List は社員を ID 昇順で全件取得します。
func (r *EmployeeRepository) List(ctx context.Context) ([]*employee.Employee, error) {
	defer r.metrics.ObserveQuery("list_employees", time.Now())

	rows, err := sqlitedb.QueryerFromContext(ctx, r.db).QueryContext(ctx, listEmployeesQuery)
	if err != nil {
		return nil, translateSQLiteError(err)
	}
	defer rows.Close()

	employees := make([]*employee.Employee, 0)
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, translateSQLiteError(err)
	}

	return employees, nil
}

// FindByID は ID で社員を取得します。
func (r *EmployeeRepository) FindByID(ctx context.Context, id int64) (*employee.Employee, error) {
	defer r.metrics.ObserveQuery("find_employee_by_id", time.Now())

	row := sqlitedb.QueryerFromContext(ctx, r.db).QueryRowContext(ctx, findEmployeeByIDQuery, id)
	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateSQLiteError(err)
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
	var exists bool
	if err := sqlitedb.QueryerFromContext(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, translateSQLiteError(err)
	}
	return exists, nil
}

// Create は社員を新規作成します。
func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	defer r.metrics.ObserveQuery("insert_employee", time.Now())

	exec := sqlitedb.QueryerFromContext(ctx, r.db)
	res, err := exec.ExecContext(ctx, insertEmployeeQuery,
		e.FirstName,
		e.LastName,
		e.Email,
		e.Department,
		e.Position,
		e.HireDate.UTC().Format(dateLayout),
		e.Active,
		e.CreatedAt.UTC().Format(timestampLayout),
		e.UpdatedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return nil, translateSQLiteError(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("sqlite: last insert id: %w", err)
	}

	return r.FindByID(ctx, id)
}

// Update は e.Version が保存済みの version と一致する場合に限り全項目を更新します。
func (r *EmployeeRepository) Update(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	defer r.metrics.ObserveQuery("update_employee", time.Now())

	exec := sqlitedb.QueryerFromContext(ctx, r.db)
	res, err := exec.ExecContext(ctx, updateEmployeeQuery,
		e.FirstName,
		e.LastName,
		e.Email,
		e.Department,
		e.Position,
		e.HireDate.UTC().Format(dateLayout),
		e.Active,
		e.UpdatedAt.UTC().Format(timestampLayout),
		e.ID,
		e.Version,
	)
	if err != nil {
		return nil, translateSQLiteError(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.exists(ctx, existsByIDQuery, e.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("id %d version %d: %w", e.ID, e.Version, employee.ErrVersionConflict)
		}
		return nil, employee.ErrEmployeeNotFound
	}

	return r.FindByID(ctx, e.ID)
}

// Delete は社員を削除します。
func (r *EmployeeRepository) Delete(ctx context.Context, id int64) error {
	defer r.metrics.ObserveQuery("delete_employee", time.Now())

	res, err := sqlitedb.QueryerFromContext(ctx, r.db).ExecContext(ctx, deleteEmployeeQuery, id)
	if err != nil {
		return translateSQLiteError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (*employee.Employee, error) {
	var (
		emp                  employee.Employee
		hireDate             string
		createdAt, updatedAt string
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
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if emp.HireDate, err = time.Parse(dateLayout, hireDate); err != nil {
		return nil, fmt.Errorf("sqlite: parse hire_date %q: %w", hireDate, err)
	}
	if emp.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
		return nil, fmt.Errorf("sqlite: parse created_at %q: %w", createdAt, err)
	}
	if emp.UpdatedAt, err = time.Parse(timestampLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("sqlite: parse updated_at %q: %w", updatedAt, err)
	}

	return &emp, nil
}

func translateSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return employee.ErrEmployeeNotFound
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%s: %w", sqliteErr.Error(), employee.ErrEmailAlreadyExists)
		case sqlite3.ErrConstraintCheck:
			if strings.Contains(sqliteErr.Error(), "last_name") {
				return fmt.Errorf("%s: %w", sqliteErr.Error(), employee.ErrInvalidLastName)
			}
			return fmt.Errorf("%s: %w", sqliteErr.Error(), employee.ErrInvalidFirstName)
		}
	}

	return err
}
