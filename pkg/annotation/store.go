package annotation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/medreview-ai/platform/pkg/common/models"
	"gorm.io/gorm"
)

// Store is the gorm-backed annotation aggregate store.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&AnnotationModel{})
}

// Get loads the annotation aggregate for a chase, nil when none exists yet.
func (s *Store) Get(ctx context.Context, chaseID int) (*models.ChaseDocumentAnnotation, error) {
	var row AnnotationModel
	result := s.db.WithContext(ctx).First(&row, "chase_id = ?", chaseID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}

	var aggregate models.ChaseDocumentAnnotation
	if err := json.Unmarshal(row.Pages, &aggregate); err != nil {
		return nil, fmt.Errorf("failed to decode annotation aggregate for chase %d: %w", chaseID, err)
	}
	return &aggregate, nil
}

// Save writes the full aggregate in one replace-on-write.
func (s *Store) Save(ctx context.Context, chaseID int, aggregate *models.ChaseDocumentAnnotation, callerUserID int) error {
	encoded, err := json.Marshal(aggregate)
	if err != nil {
		return fmt.Errorf("failed to encode annotation aggregate for chase %d: %w", chaseID, err)
	}

	now := time.Now().UTC()
	row := AnnotationModel{
		ChaseID:         chaseID,
		Pages:           encoded,
		UpdatedByUserID: callerUserID,
		UpdatedAt:       now,
	}

	var existing AnnotationModel
	result := s.db.WithContext(ctx).First(&existing, "chase_id = ?", chaseID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		row.CreatedAt = now
		return s.db.WithContext(ctx).Create(&row).Error
	}
	if result.Error != nil {
		return result.Error
	}

	row.CreatedAt = existing.CreatedAt
	return s.db.WithContext(ctx).Save(&row).Error
}

// DeleteBySource strips every annotation with the given source from the
// aggregates of the listed chases. Rows left without pages are removed
// outright. Safe to repeat.
func (s *Store) DeleteBySource(ctx context.Context, chaseIDs []int, source models.AnnotationSource) error {
	for _, chaseID := range chaseIDs {
		aggregate, err := s.Get(ctx, chaseID)
		if err != nil {
			return err
		}
		if aggregate == nil {
			continue
		}

		StripSource(aggregate, source)
		if len(aggregate.Pages) == 0 {
			if err := s.db.WithContext(ctx).Delete(&AnnotationModel{}, "chase_id = ?", chaseID).Error; err != nil {
				return err
			}
			continue
		}
		if err := s.Save(ctx, chaseID, aggregate, 0); err != nil {
			return err
		}
	}
	return nil
}

// StripSource removes every annotation carrying the given source from all
// pages of the aggregate, dropping pages that end up empty.
func StripSource(aggregate *models.ChaseDocumentAnnotation, source models.AnnotationSource) {
	pages := aggregate.Pages[:0]
	for _, page := range aggregate.Pages {
		kept := page.Annotations[:0]
		for _, item := range page.Annotations {
			if item.AnnotationSourceID != source {
				kept = append(kept, item)
			}
		}
		page.Annotations = kept
		if len(page.Annotations) > 0 {
			pages = append(pages, page)
		}
	}
	aggregate.Pages = pages
}
