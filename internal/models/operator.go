package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Operator is a person responsible for a set of bins. Stored in the
// Firestore "operators" collection.
type Operator struct {
	ID           string     `json:"id" firestore:"-" db:"id"`
	Name         string     `json:"name" firestore:"name" db:"name"`
	Email        string     `json:"email" firestore:"email" db:"email"`
	Phone        string     `json:"phone,omitempty" firestore:"phone" db:"phone"`
	AssignedBins StringList `json:"assignedBins" firestore:"assignedBins" db:"assigned_bins"`
	Password     string     `json:"-" firestore:"password" db:"password"` // bcrypt hash, never returned
	Role         string     `json:"role" firestore:"role" db:"role"`
	CreatedAt    string     `json:"createdAt,omitempty" firestore:"createdAt" db:"created_at"`
	UpdatedAt    string     `json:"updatedAt,omitempty" firestore:"updatedAt,omitempty" db:"updated_at"`
}

// RoleOperator and RoleAdmin are the two login roles.
const (
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

// CreateOperatorRequest is the request body for POST /operators
type CreateOperatorRequest struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
	AssignedBins []string `json:"assignedBins"`
	Password     string   `json:"password"`
}

// UpdateOperatorRequest is the request body for PUT /operators/:id
type UpdateOperatorRequest struct {
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	AssignedBins *[]string `json:"assignedBins,omitempty"`
	Password     string    `json:"password"` // plain text, hashed by the handler
}

// SortOperators orders operators by id.
func SortOperators(ops []Operator) {
	sort.SliceStable(ops, func(i, j int) bool {
		return NaturalLess(ops[i].ID, ops[j].ID)
	})
}

// AssignsBin reports whether binID is in the operator's assignment list (case-insensitive).
func (o *Operator) AssignsBin(binID string) bool {
	for _, id := range o.AssignedBins {
		if strings.EqualFold(id, binID) {
			return true
		}
	}
	return false
}

// StringList is a []string persisted as a JSON array in SQL columns.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("StringList: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("StringList: %w", err)
	}
	*l = out
	return nil
}
