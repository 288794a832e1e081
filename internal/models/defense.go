package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dei-rnl/thesis-service/internal/apperr"
)

// DefenseStatus is the defense workflow state. Persisted as its label,
// like ThesisStatus.
type DefenseStatus int

const (
	DefenseStatusUnscheduled DefenseStatus = iota
	DefenseStatusScheduled
	DefenseStatusUnderReview
	DefenseStatusSubmittedToFenix
)

var defenseStatusNames = map[DefenseStatus]string{
	DefenseStatusUnscheduled:      "UNSCHEDULED",
	DefenseStatusScheduled:        "DEFENSE_SCHEDULED",
	DefenseStatusUnderReview:      "UNDER_REVIEW",
	DefenseStatusSubmittedToFenix: "SUBMITTED_TO_FENIX",
}

var defenseStatusLabels = map[DefenseStatus]string{
	DefenseStatusUnscheduled:      "Por Agendar",
	DefenseStatusScheduled:        "Defesa Agendada",
	DefenseStatusUnderReview:      "Em Revisão",
	DefenseStatusSubmittedToFenix: "Submetido ao Fenix",
}

func (s DefenseStatus) Name() string {
	return defenseStatusNames[s]
}

// Label is the stable storage encoding of the status.
func (s DefenseStatus) Label() string {
	return defenseStatusLabels[s]
}

func (s DefenseStatus) String() string {
	return s.Name()
}

// ParseDefenseStatus accepts the symbolic name case-insensitively.
func ParseDefenseStatus(value string) (DefenseStatus, error) {
	name := strings.ToUpper(strings.TrimSpace(value))
	for status, n := range defenseStatusNames {
		if n == name {
			return status, nil
		}
	}
	return 0, apperr.New(apperr.InvalidDefenseState, value)
}

// DefenseStatusFromLabel decodes the storage form, failing on unknown values.
func DefenseStatusFromLabel(label string) (DefenseStatus, error) {
	for status, l := range defenseStatusLabels {
		if l == label {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown defense status label: %q", label)
}

func (s DefenseStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Name())
}

func (s *DefenseStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	status, err := ParseDefenseStatus(name)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

func (s DefenseStatus) Value() (driver.Value, error) {
	return s.Label(), nil
}

func (s *DefenseStatus) Scan(src interface{}) error {
	var label string
	switch v := src.(type) {
	case string:
		label = v
	case []byte:
		label = string(v)
	default:
		return fmt.Errorf("cannot scan defense status from %T", src)
	}
	status, err := DefenseStatusFromLabel(label)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

type DefenseTransition struct {
	From DefenseStatus
	To   DefenseStatus
	Role Role
}

var defenseRevertRules = map[DefenseStatus]DefenseTransition{
	DefenseStatusSubmittedToFenix: {DefenseStatusSubmittedToFenix, DefenseStatusUnderReview, RoleCoordinator},
	DefenseStatusUnderReview:      {DefenseStatusUnderReview, DefenseStatusScheduled, RoleCoordinator},
}

// DefenseRevertRule returns the single legal revert transition out of the
// given state, if any. DEFENSE_SCHEDULED and UNSCHEDULED have no prior state.
func DefenseRevertRule(from DefenseStatus) (DefenseTransition, bool) {
	rule, ok := defenseRevertRules[from]
	return rule, ok
}

const (
	MinGrade = 0.0
	MaxGrade = 20.0
)

type DefenseWorkflow struct {
	ID          string        `json:"id" db:"id"`
	StudentID   string        `json:"student_id" db:"student_id"`
	ThesisID    string        `json:"thesis_id" db:"thesis_id"`
	Status      DefenseStatus `json:"status" db:"status"`
	DefenseDate *time.Time    `json:"defense_date,omitempty" db:"defense_date"`
	Grade       *float64      `json:"grade,omitempty" db:"grade"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}
