package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dei-rnl/thesis-service/internal/apperr"
)

// ThesisStatus is the thesis workflow state. The persisted form is the
// human-readable label (the historical database values), not the symbolic
// name used on the wire.
type ThesisStatus int

const (
	ThesisStatusProposalSubmitted ThesisStatus = iota
	ThesisStatusApprovedBySC
	ThesisStatusJuryPresidentAssigned
	ThesisStatusDocumentSigned
	ThesisStatusSubmittedToFenix
)

var thesisStatusNames = map[ThesisStatus]string{
	ThesisStatusProposalSubmitted:     "PROPOSAL_SUBMITTED",
	ThesisStatusApprovedBySC:          "APPROVED_BY_SC",
	ThesisStatusJuryPresidentAssigned: "JURY_PRESIDENT_ASSIGNED",
	ThesisStatusDocumentSigned:        "DOCUMENT_SIGNED",
	ThesisStatusSubmittedToFenix:      "SUBMITTED_TO_FENIX",
}

var thesisStatusLabels = map[ThesisStatus]string{
	ThesisStatusProposalSubmitted:     "Proposta de Júri Submetida",
	ThesisStatusApprovedBySC:          "Aprovado pelo SC",
	ThesisStatusJuryPresidentAssigned: "Presidente do Júri Atribuído",
	ThesisStatusDocumentSigned:        "Documento Assinado",
	ThesisStatusSubmittedToFenix:      "Submetido ao Fenix",
}

func (s ThesisStatus) Name() string {
	return thesisStatusNames[s]
}

// Label is the stable storage encoding of the status.
func (s ThesisStatus) Label() string {
	return thesisStatusLabels[s]
}

func (s ThesisStatus) String() string {
	return s.Name()
}

// ParseThesisStatus accepts the symbolic name case-insensitively.
func ParseThesisStatus(value string) (ThesisStatus, error) {
	name := strings.ToUpper(strings.TrimSpace(value))
	for status, n := range thesisStatusNames {
		if n == name {
			return status, nil
		}
	}
	return 0, apperr.New(apperr.InvalidThesisState, value)
}

// ThesisStatusFromLabel decodes the storage form. Unrecognized values fail
// explicitly rather than mapping to a default.
func ThesisStatusFromLabel(label string) (ThesisStatus, error) {
	for status, l := range thesisStatusLabels {
		if l == label {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown thesis status label: %q", label)
}

func (s ThesisStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Name())
}

func (s *ThesisStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	status, err := ParseThesisStatus(name)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// Value implements driver.Valuer, encoding the status as its label.
func (s ThesisStatus) Value() (driver.Value, error) {
	return s.Label(), nil
}

// Scan implements sql.Scanner, decoding the stored label.
func (s *ThesisStatus) Scan(src interface{}) error {
	var label string
	switch v := src.(type) {
	case string:
		label = v
	case []byte:
		label = string(v)
	default:
		return fmt.Errorf("cannot scan thesis status from %T", src)
	}
	status, err := ThesisStatusFromLabel(label)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// ThesisTransition is one legal move of the thesis state machine together
// with the role allowed to take it.
type ThesisTransition struct {
	From ThesisStatus
	To   ThesisStatus
	Role Role
}

var thesisForwardRules = map[ThesisStatus]ThesisTransition{
	ThesisStatusProposalSubmitted:     {ThesisStatusProposalSubmitted, ThesisStatusApprovedBySC, RoleSC},
	ThesisStatusApprovedBySC:          {ThesisStatusApprovedBySC, ThesisStatusJuryPresidentAssigned, RoleCoordinator},
	ThesisStatusJuryPresidentAssigned: {ThesisStatusJuryPresidentAssigned, ThesisStatusDocumentSigned, RoleCoordinator},
	ThesisStatusDocumentSigned:        {ThesisStatusDocumentSigned, ThesisStatusSubmittedToFenix, RoleStaff},
}

var thesisRevertRules = map[ThesisStatus]ThesisTransition{
	ThesisStatusSubmittedToFenix:      {ThesisStatusSubmittedToFenix, ThesisStatusDocumentSigned, RoleStaff},
	ThesisStatusDocumentSigned:        {ThesisStatusDocumentSigned, ThesisStatusJuryPresidentAssigned, RoleCoordinator},
	ThesisStatusJuryPresidentAssigned: {ThesisStatusJuryPresidentAssigned, ThesisStatusApprovedBySC, RoleCoordinator},
	ThesisStatusApprovedBySC:          {ThesisStatusApprovedBySC, ThesisStatusProposalSubmitted, RoleSC},
}

// ThesisForwardRule returns the single legal forward transition out of the
// given state, if any.
func ThesisForwardRule(from ThesisStatus) (ThesisTransition, bool) {
	rule, ok := thesisForwardRules[from]
	return rule, ok
}

// ThesisRevertRule returns the single legal revert transition out of the
// given state, if any. PROPOSAL_SUBMITTED has no prior state.
func ThesisRevertRule(from ThesisStatus) (ThesisTransition, bool) {
	rule, ok := thesisRevertRules[from]
	return rule, ok
}

const (
	MinTitleLength = 3
	MaxJurySize    = 5
)

type ThesisWorkflow struct {
	ID              string       `json:"id" db:"id"`
	StudentID       string       `json:"student_id" db:"student_id"`
	Title           string       `json:"title" db:"title"`
	Status          ThesisStatus `json:"status" db:"status"`
	SubmissionDate  time.Time    `json:"submission_date" db:"submission_date"`
	JuryMemberIDs   []string     `json:"jury_member_ids" db:"jury_member_ids"`
	JuryPresidentID *string      `json:"jury_president_id,omitempty" db:"jury_president_id"`
	DocumentPath    *string      `json:"document_path,omitempty" db:"document_path"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// HasJuryMember reports whether the given person id is in the jury list.
func (t *ThesisWorkflow) HasJuryMember(personID string) bool {
	for _, id := range t.JuryMemberIDs {
		if id == personID {
			return true
		}
	}
	return false
}
