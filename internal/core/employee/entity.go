package employee

import "time"

// Employee は社員エンティティです。
type Employee struct {
	ID         int64
	FirstName  string
	LastName   string
	Email      string
	Department string
	Position   string
	HireDate   time.Time
	Active     bool
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Clone は Employee のコピーを返します。
func (e *Employee) Clone() *Employee {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}
