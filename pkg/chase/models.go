package chase

import (
	"time"

	"gorm.io/datatypes"
)

// Document types attached to a chase.
const (
	DocumentTypeMedicalRecord = 1
)

type ChaseModel struct {
	ID                 int       `gorm:"primaryKey;column:id"`
	OrganizationID     int       `gorm:"column:organization_id;index"`
	ProjectID          int       `gorm:"column:project_id;index"`
	MeasureID          int       `gorm:"column:measure_id"`
	MeasureCode        string    `gorm:"column:measure_code"`
	WorkflowStatusID   int       `gorm:"column:workflow_status_id;index"`
	WorkflowStatusName string    `gorm:"column:workflow_status_name"`
	AssignedTo         string    `gorm:"column:assigned_to"`
	CreatedAt          time.Time `gorm:"column:created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

func (ChaseModel) TableName() string {
	return "chases"
}

type DocumentPageModel struct {
	DocumentPageID int `gorm:"primaryKey;autoIncrement;column:document_page_id"`
	ChaseID        int `gorm:"column:chase_id;index"`
	DocumentTypeID int `gorm:"column:document_type_id"`
	PageNumber     int `gorm:"column:page_number"`
}

func (DocumentPageModel) TableName() string {
	return "chase_document_pages"
}

type CommentModel struct {
	ID              int       `gorm:"primaryKey;autoIncrement;column:id"`
	ChaseID         int       `gorm:"column:chase_id;index"`
	CommentText     string    `gorm:"column:comment_text"`
	CreatedByUserID int       `gorm:"column:created_by_user_id"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (CommentModel) TableName() string {
	return "chase_comments"
}

// EntityEventModel holds extracted entity data recorded against a chase. The
// reconciliation fallback path reads these; accepting a no-match system
// result deletes the matching row.
type EntityEventModel struct {
	EventID                int            `gorm:"primaryKey;autoIncrement;column:event_id"`
	ChaseID                int            `gorm:"column:chase_id;index"`
	EntityTypeID           int            `gorm:"column:entity_type_id"`
	EntityTypeName         string         `gorm:"column:entity_type_name"`
	EntityTypeDisplayOrder int            `gorm:"column:entity_type_display_order"`
	Attributes             datatypes.JSON `gorm:"column:attributes"`
	CreatedAt              time.Time      `gorm:"column:created_at"`
}

func (EntityEventModel) TableName() string {
	return "chase_entity_events"
}

type MeasureNumeratorModel struct {
	ID            int    `gorm:"primaryKey;autoIncrement;column:id"`
	ProjectID     int    `gorm:"column:project_id;index"`
	MeasureID     int    `gorm:"column:measure_id;index"`
	NumeratorCode string `gorm:"column:numerator_code"`
	NumeratorName string `gorm:"column:numerator_name"`
	DisplayOrder  int    `gorm:"column:display_order"`
}

func (MeasureNumeratorModel) TableName() string {
	return "measure_numerators"
}
