package annotation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/medreview-ai/platform/pkg/chase"
	"github.com/medreview-ai/platform/pkg/common/logger"
	"github.com/medreview-ai/platform/pkg/common/models"
	"github.com/medreview-ai/platform/pkg/geometry"
	"github.com/medreview-ai/platform/pkg/workflow"
)

const maxDocumentPage = 99999

type DocumentStore interface {
	Get(ctx context.Context, chaseID int) (*models.ChaseDocumentAnnotation, error)
	Save(ctx context.Context, chaseID int, aggregate *models.ChaseDocumentAnnotation, callerUserID int) error
	DeleteBySource(ctx context.Context, chaseIDs []int, source models.AnnotationSource) error
}

type PageSource interface {
	GetDocumentPages(ctx context.Context, chaseID, documentTypeID, begPage, endPage int) ([]models.ChaseDocumentPage, error)
}

type ChaseSource interface {
	GetChaseDetail(ctx context.Context, chaseID int) (*chase.ChaseModel, error)
}

type Locker interface {
	Acquire(ctx context.Context, chaseID int) (func(), error)
}

type Publisher interface {
	PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error
}

// Syncer maintains the NLP-sourced annotation overlay for chase documents.
type Syncer struct {
	store    DocumentStore
	pages    PageSource
	chases   ChaseSource
	locker   Locker
	catalog  workflow.Catalog
	producer Publisher
}

func NewSyncer(store DocumentStore, pages PageSource, chases ChaseSource, locker Locker, catalog workflow.Catalog, producer Publisher) *Syncer {
	return &Syncer{
		store:    store,
		pages:    pages,
		chases:   chases,
		locker:   locker,
		catalog:  catalog,
		producer: producer,
	}
}

// SyncNlpAnnotations rebuilds the NLP annotations for a chase document from
// the accepted supporting locations. All existing NLP annotations are
// replaced; manual annotations are untouched. The whole aggregate is written
// back in one replace-on-write under a per-chase lock. When the lock cannot
// be taken the sync proceeds anyway and the write is last-writer-wins.
func (s *Syncer) SyncNlpAnnotations(ctx context.Context, req models.ChaseNlpAnnotationRequest) error {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, req.ChaseID)
		if err != nil {
			logger.Log.WithError(err).WithField("chase_id", req.ChaseID).Warn("annotation sync proceeding without lock")
		} else {
			defer release()
		}
	}

	aggregate, err := s.store.Get(ctx, req.ChaseID)
	if err != nil {
		return fmt.Errorf("failed to load annotation aggregate for chase %d: %w", req.ChaseID, err)
	}
	if aggregate == nil {
		aggregate = &models.ChaseDocumentAnnotation{ChaseDocumentID: req.ChaseID}
	}

	StripSource(aggregate, models.AnnotationSourceNLP)

	pages, err := s.pages.GetDocumentPages(ctx, req.ChaseID, chase.DocumentTypeMedicalRecord, 1, maxDocumentPage)
	if err != nil {
		return fmt.Errorf("failed to load document pages for chase %d: %w", req.ChaseID, err)
	}
	pageIDByNumber := make(map[int]int, len(pages))
	for _, page := range pages {
		pageIDByNumber[page.PageNumber] = page.DocumentPageID
	}

	now := time.Now().UTC()
	for _, location := range req.SupportingLocations {
		documentPageID, ok := pageIDByNumber[location.PageNumber]
		if !ok {
			logger.Log.WithFields(map[string]interface{}{
				"chase_id":    req.ChaseID,
				"page_number": location.PageNumber,
			}).Warn("skipping supporting location with no matching document page")
			continue
		}

		rect := geometry.FromCorners(location.BoundingBox)
		appendAnnotation(aggregate, documentPageID, models.Annotation{
			AnnotationSourceID: models.AnnotationSourceNLP,
			UserID:             req.CallerUserID,
			CreateDate:         now,
			AnnotationKey:      annotationKey(location),
			StartX:             rect.StartX,
			WidthX:             rect.WidthX,
			StartY:             rect.StartY,
			HeightY:            rect.HeightY,
		})
	}

	if err := s.store.Save(ctx, req.ChaseID, aggregate, req.CallerUserID); err != nil {
		return fmt.Errorf("failed to save annotation aggregate for chase %d: %w", req.ChaseID, err)
	}

	if s.producer != nil {
		payload := map[string]interface{}{
			"chaseId":      req.ChaseID,
			"callerUserId": req.CallerUserID,
			"locations":    len(req.SupportingLocations),
		}
		if err := s.producer.PublishEvent(ctx, "annotations-synced", "chase-review-service", payload); err != nil {
			logger.Log.WithError(err).WithField("chase_id", req.ChaseID).Warn("failed to publish annotation sync event")
		}
	}

	return nil
}

// PurgeOnRegress deletes all NLP annotations for a chase whose current
// workflow status has fallen back to the early lifecycle. Statuses past the
// abstraction threshold leave annotations alone.
func (s *Syncer) PurgeOnRegress(ctx context.Context, chaseID int) error {
	detail, err := s.chases.GetChaseDetail(ctx, chaseID)
	if err != nil {
		return err
	}
	if !s.catalog.IsRegressed(detail.WorkflowStatusID) {
		return nil
	}
	return s.purge(ctx, []int{chaseID})
}

// PurgeOnBulkRegress applies the regress purge to a batch of moved chases,
// resolving each new status name through the workflow catalog.
func (s *Syncer) PurgeOnBulkRegress(ctx context.Context, changes []models.BulkChaseStatusChange) error {
	var chaseIDs []int
	for _, change := range changes {
		statusID := s.catalog.IDForName(change.NewWorkflowStatusName)
		if s.catalog.IsRegressed(statusID) {
			chaseIDs = append(chaseIDs, change.ChaseID)
		}
	}
	if len(chaseIDs) == 0 {
		return nil
	}
	return s.purge(ctx, chaseIDs)
}

func (s *Syncer) purge(ctx context.Context, chaseIDs []int) error {
	if err := s.store.DeleteBySource(ctx, chaseIDs, models.AnnotationSourceNLP); err != nil {
		return fmt.Errorf("failed to purge nlp annotations: %w", err)
	}

	logger.Log.WithField("chase_ids", chaseIDs).Info("purged nlp annotations after workflow regress")

	if s.producer != nil {
		payload := map[string]interface{}{"chaseIds": chaseIDs}
		if err := s.producer.PublishEvent(ctx, "annotations-purged", "chase-review-service", payload); err != nil {
			logger.Log.WithError(err).Warn("failed to publish annotation purge event")
		}
	}
	return nil
}

// annotationKey identifies the reconciled result an annotation belongs to:
// the extracted event when known, else the measure, else the bare page.
func annotationKey(location models.SupportingLocation) string {
	if location.EventID != "" {
		return location.EventID
	}
	if location.Measure != "" {
		return location.Measure
	}
	return strconv.Itoa(location.PageNumber)
}

func appendAnnotation(aggregate *models.ChaseDocumentAnnotation, documentPageID int, item models.Annotation) {
	for i := range aggregate.Pages {
		if aggregate.Pages[i].ChaseDocumentPageID == documentPageID {
			aggregate.Pages[i].Annotations = append(aggregate.Pages[i].Annotations, item)
			return
		}
	}
	aggregate.Pages = append(aggregate.Pages, models.ChaseDocumentPageAnnotation{
		ChaseDocumentPageID: documentPageID,
		Annotations:         []models.Annotation{item},
	})
}
