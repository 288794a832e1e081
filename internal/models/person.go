package models

import (
	"strings"
	"time"

	"github.com/dei-rnl/thesis-service/internal/apperr"
)

type Role string

const (
	RoleCoordinator Role = "COORDINATOR"
	RoleStaff       Role = "STAFF"
	RoleStudent     Role = "STUDENT"
	RoleTeacher     Role = "TEACHER"
	RoleSC          Role = "SC"
)

func (r Role) String() string {
	return string(r)
}

func IsValidRole(role string) bool {
	switch Role(role) {
	case RoleCoordinator, RoleStaff, RoleStudent, RoleTeacher, RoleSC:
		return true
	default:
		return false
	}
}

// ParseRole accepts the role name case-insensitively.
func ParseRole(value string) (Role, error) {
	role := strings.ToUpper(strings.TrimSpace(value))
	if !IsValidRole(role) {
		return "", apperr.New(apperr.InvalidRole, value)
	}
	return Role(role), nil
}

type Person struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	IstID     string    `json:"ist_id" db:"ist_id"`
	Email     string    `json:"email" db:"email"`
	Role      Role      `json:"type" db:"type"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
