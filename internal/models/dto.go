package models

import "time"

// Data Transfer Objects

type CreatePersonRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=255"`
	IstID string `json:"ist_id" validate:"required,max=32"`
	Email string `json:"email" validate:"required,email,max=255"`
	Type  string `json:"type" validate:"required"`
}

type SubmitProposalRequest struct {
	StudentID     string   `json:"student_id" validate:"required,uuid"`
	Title         string   `json:"title" validate:"required,min=3,max=255"`
	JuryMemberIDs []string `json:"jury_member_ids" validate:"required,min=1,max=5"`
}

type AssignPresidentRequest struct {
	PresidentID string `json:"president_id" validate:"required,uuid"`
}

type UploadDocumentRequest struct {
	DocumentPath string `json:"document_path" validate:"required"`
}

type RejectProposalRequest struct {
	Comments string `json:"comments,omitempty"`
}

type ScheduleDefenseRequest struct {
	ThesisID    string    `json:"thesis_id" validate:"required,uuid"`
	DefenseDate time.Time `json:"defense_date" validate:"required"`
}

type UpdateScheduleRequest struct {
	DefenseDate time.Time `json:"defense_date" validate:"required"`
}

type AssignGradeRequest struct {
	Grade float64 `json:"grade" validate:"required"`
}

// ThesisDetails is the detailed read shape, with the people referenced by
// the workflow resolved against the person directory.
type ThesisDetails struct {
	ThesisWorkflow
	Student     *Person  `json:"student,omitempty"`
	JuryMembers []Person `json:"jury_members,omitempty"`
}

// StudentWorkflow is one row of the dashboard read-model.
type StudentWorkflow struct {
	Student       Person         `json:"student"`
	ThesisID      *string        `json:"thesis_id,omitempty"`
	ThesisTitle   *string        `json:"thesis_title,omitempty"`
	ThesisStatus  *ThesisStatus  `json:"thesis_status,omitempty"`
	DefenseID     *string        `json:"defense_id,omitempty"`
	DefenseStatus *DefenseStatus `json:"defense_status,omitempty"`
	DefenseDate   *time.Time     `json:"defense_date,omitempty"`
	Grade         *float64       `json:"grade,omitempty"`
}

// Dashboard aggregates workflow state for display. Recomputed on every
// request, never cached.
type Dashboard struct {
	Role                  Role              `json:"role"`
	Students              []StudentWorkflow `json:"students"`
	ThesesNeedingAction   []ThesisWorkflow  `json:"theses_needing_action,omitempty"`
	DefensesNeedingAction []DefenseWorkflow `json:"defenses_needing_action,omitempty"`
}
