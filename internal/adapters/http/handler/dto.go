package handler

import (
	"fmt"
	"time"

	"github.com/ogurasousui/codex-employee-api/internal/core/employee"
)

const dateLayout = "2006-01-02"

// EmployeeRequest は作成・更新リクエストの本文です。更新は全項目置き換えのため同じ形を使います。
type EmployeeRequest struct {
	FirstName  string  `json:"firstName" binding:"required"`
	LastName   string  `json:"lastName" binding:"required"`
	Email      string  `json:"email" binding:"required,email"`
	Department *string `json:"department" binding:"required"`
	Position   *string `json:"position" binding:"required"`
	HireDate   string  `json:"hireDate" binding:"required"`
	Active     *bool   `json:"active" binding:"required"`
}

// EmployeeResponse はレスポンスで返す社員表現です。
type EmployeeResponse struct {
	ID         int64  `json:"id"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Position   string `json:"position"`
	HireDate   string `json:"hireDate"`
	Active     bool   `json:"active"`
	Version    int64  `json:"version"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (r EmployeeRequest) toFields() (employee.Fields, error) {
	hireDate, err := time.Parse(dateLayout, r.HireDate)
	if err != nil {
		return employee.Fields{}, fmt.Errorf("hireDate must be formatted as YYYY-MM-DD: %w", employee.ErrInvalidHireDate)
	}

	return employee.Fields{
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Email:      r.Email,
		Department: deref(r.Department),
		Position:   deref(r.Position),
		HireDate:   hireDate,
		Active:     r.Active != nil && *r.Active,
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toEmployeeResponse(e *employee.Employee) EmployeeResponse {
	return EmployeeResponse{
		ID:         e.ID,
		FirstName:  e.FirstName,
		LastName:   e.LastName,
		Email:      e.Email,
		Department: e.Department,
		Position:   e.Position,
		HireDate:   e.HireDate.Format(dateLayout),
		Active:     e.Active,
		Version:    e.Version,
	}
}

func toEmployeeResponses(list []*employee.Employee) []EmployeeResponse {
	out := make([]EmployeeResponse, 0, len(list))
	for _, e := range list {
		out = append(out, toEmployeeResponse(e))
	}
	return out
}
