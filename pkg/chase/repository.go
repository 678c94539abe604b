package chase

import (
	"context"
	"errors"
	"time"

	"github.com/medreview-ai/platform/pkg/common/models"
	"gorm.io/gorm"
)

var ErrChaseNotFound = errors.New("chase not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&ChaseModel{},
		&DocumentPageModel{},
		&CommentModel{},
		&EntityEventModel{},
		&MeasureNumeratorModel{},
	)
}

func (r *Repository) GetChaseDetail(ctx context.Context, chaseID int) (*ChaseModel, error) {
	var chase ChaseModel
	result := r.db.WithContext(ctx).First(&chase, chaseID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrChaseNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &chase, nil
}

func (r *Repository) GetDocumentPages(ctx context.Context, chaseID, documentTypeID, begPage, endPage int) ([]models.ChaseDocumentPage, error) {
	var rows []DocumentPageModel
	result := r.db.WithContext(ctx).
		Where("chase_id = ? AND document_type_id = ? AND page_number BETWEEN ? AND ?",
			chaseID, documentTypeID, begPage, endPage).
		Order("page_number ASC").
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	pages := make([]models.ChaseDocumentPage, 0, len(rows))
	for _, row := range rows {
		pages = append(pages, models.ChaseDocumentPage{
			DocumentPageID: row.DocumentPageID,
			PageNumber:     row.PageNumber,
		})
	}
	return pages, nil
}

// GetNlpEvents lists the entity-type occurrences recorded for a chase, one
// per entity type, for the reconciliation fallback baseline.
func (r *Repository) GetNlpEvents(ctx context.Context, chaseID int) ([]models.ChaseNlpEvent, error) {
	var rows []EntityEventModel
	result := r.db.WithContext(ctx).
		Distinct("entity_type_id", "entity_type_name", "entity_type_display_order").
		Where("chase_id = ?", chaseID).
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	events := make([]models.ChaseNlpEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, models.ChaseNlpEvent{
			EntityTypeID:           row.EntityTypeID,
			EntityTypeName:         row.EntityTypeName,
			EntityTypeDisplayOrder: row.EntityTypeDisplayOrder,
		})
	}
	return events, nil
}

func (r *Repository) AddComment(ctx context.Context, chaseID int, text string, callerUserID int) error {
	comment := CommentModel{
		ChaseID:         chaseID,
		CommentText:     text,
		CreatedByUserID: callerUserID,
		CreatedAt:       time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&comment).Error
}

// DeleteEvent removes the extracted entity data for one event. Deleting an
// already-deleted event is a no-op, which keeps the commit path's side
// effects safe to repeat.
func (r *Repository) DeleteEvent(ctx context.Context, chaseID, eventID, callerUserID int) error {
	return r.db.WithContext(ctx).
		Where("chase_id = ? AND event_id = ?", chaseID, eventID).
		Delete(&EntityEventModel{}).Error
}

func (r *Repository) GetNumeratorsByMeasure(ctx context.Context, projectID, measureID int) ([]MeasureNumeratorModel, error) {
	var rows []MeasureNumeratorModel
	result := r.db.WithContext(ctx).
		Where("project_id = ? AND measure_id = ?", projectID, measureID).
		Order("display_order ASC").
		Find(&rows)
	return rows, result.Error
}
