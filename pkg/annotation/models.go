package annotation

import (
	"time"

	"gorm.io/datatypes"
)

// AnnotationModel is the persisted annotation aggregate for one chase
// document, one row per chase. Pages holds the full page/annotation tree as
// JSON; writes replace the whole document.
type AnnotationModel struct {
	ChaseID         int            `gorm:"primaryKey;column:chase_id"`
	Pages           datatypes.JSON `gorm:"column:pages;type:jsonb"`
	UpdatedByUserID int            `gorm:"column:updated_by_user_id"`
	CreatedAt       time.Time      `gorm:"column:created_at"`
	UpdatedAt       time.Time      `gorm:"column:updated_at"`
}

func (AnnotationModel) TableName() string {
	return "chase_document_annotations"
}
