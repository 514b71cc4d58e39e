package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LetterType is an admin-defined category of letters (e.g. appointment, clearance).
type LetterType struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"size:255;not null;uniqueIndex"`
	Code        string    `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FieldType is the input kind of a template field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldEmail    FieldType = "email"
	FieldSelect   FieldType = "select"
)

// FieldSpec describes one input of a letter template.
type FieldSpec struct {
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Options     []string  `json:"options,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
}

// LetterTemplate renders letters of a type from a field schema and a body.
// Body is a text/template referencing fields as {{.field_name}}.
type LetterTemplate struct {
	ID           uint        `json:"id" gorm:"primaryKey"`
	LetterTypeID uint        `json:"letter_type_id" gorm:"not null;index"`
	Name         string      `json:"name" gorm:"size:255;not null"`
	Subject      string      `json:"subject" gorm:"size:255"`
	Body         string      `json:"body" gorm:"type:text;not null"`
	Fields       []FieldSpec `json:"fields" gorm:"type:json;serializer:json"`
	Active       bool        `json:"active" gorm:"default:true;index"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`

	LetterType *LetterType `json:"letter_type,omitempty" gorm:"foreignKey:LetterTypeID"`
}

// LetterStatus represents the workflow state of a letter.
type LetterStatus string

const (
	LetterDraft    LetterStatus = "draft"
	LetterPending  LetterStatus = "pending"
	LetterApproved LetterStatus = "approved"
	LetterRejected LetterStatus = "rejected"
)

// Editable reports whether the creator may still change the letter.
func (s LetterStatus) Editable() bool {
	return s == LetterDraft || s == LetterRejected
}

// Letter is a letter instance filled in from a template.
type Letter struct {
	ID           uuid.UUID         `json:"id" gorm:"type:char(36);primaryKey"`
	ReferenceNo  string            `json:"reference_no" gorm:"size:40;not null;uniqueIndex"`
	LetterTypeID uint              `json:"letter_type_id" gorm:"not null;index"`
	TemplateID   uint              `json:"template_id" gorm:"not null;index"`
	Subject      string            `json:"subject" gorm:"size:255;not null"`
	Recipient    string            `json:"recipient" gorm:"size:255"`
	Data         map[string]string `json:"data" gorm:"type:json;serializer:json"`
	Body         string            `json:"body" gorm:"type:text"`
	Status       LetterStatus      `json:"status" gorm:"type:varchar(20);not null;default:'draft';index"`
	Remarks      string            `json:"remarks,omitempty" gorm:"type:text"`
	CreatedBy    uint              `json:"created_by" gorm:"not null;index"`
	ApprovedBy   *uint             `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time        `json:"approved_at,omitempty"`
	OfficeID     *uint             `json:"office_id,omitempty" gorm:"index"`
	DepartmentID *uint             `json:"department_id,omitempty" gorm:"index"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	DeletedAt    gorm.DeletedAt    `json:"-" gorm:"index"`

	Template *LetterTemplate `json:"template,omitempty" gorm:"foreignKey:TemplateID"`
}

// BeforeCreate sets UUID before creating the record.
func (l *Letter) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// ActivityAction names a workflow event on a letter.
type ActivityAction string

const (
	ActivityCreated   ActivityAction = "created"
	ActivityUpdated   ActivityAction = "updated"
	ActivitySubmitted ActivityAction = "submitted"
	ActivityApproved  ActivityAction = "approved"
	ActivityRejected  ActivityAction = "rejected"
	ActivityDeleted   ActivityAction = "deleted"
)

// LetterActivity is an entry in a letter's history.
// Every workflow action is logged regardless of who performed it.
type LetterActivity struct {
	ID        uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	LetterID  uuid.UUID      `json:"letter_id" gorm:"type:char(36);not null;index"`
	ActorID   uint           `json:"actor_id" gorm:"not null;index"`
	Action    ActivityAction `json:"action" gorm:"type:varchar(20);not null"`
	Remarks   string         `json:"remarks,omitempty" gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at"`
}

// BeforeCreate sets UUID before creating the record.
func (a *LetterActivity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
