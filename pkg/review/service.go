package review

import (
	"context"

	"github.com/medreview-ai/platform/pkg/annotation"
	"github.com/medreview-ai/platform/pkg/chase"
	"github.com/medreview-ai/platform/pkg/common/models"
	"github.com/medreview-ai/platform/pkg/highlight"
	"github.com/medreview-ai/platform/pkg/reconcile"
)

// Service is the review surface for a chase: the reconciled system results,
// the highlight views over the provider payload, and the annotation overlay.
type Service struct {
	reconciler *reconcile.Service
	highlights *highlight.Service
	syncer     *annotation.Syncer
	chases     *chase.Repository
}

func NewService(reconciler *reconcile.Service, highlights *highlight.Service, syncer *annotation.Syncer, chases *chase.Repository) *Service {
	return &Service{
		reconciler: reconciler,
		highlights: highlights,
		syncer:     syncer,
		chases:     chases,
	}
}

func (s *Service) SystemResults(ctx context.Context, chaseID int) *models.ChaseNlpData {
	return s.reconciler.SystemResults(ctx, chaseID)
}

func (s *Service) SaveReviewedData(ctx context.Context, data *models.ChaseNlpData, callerUserID int) error {
	return s.reconciler.SaveDecisions(ctx, data, callerUserID)
}

func (s *Service) SyncAnnotations(ctx context.Context, req models.ChaseNlpAnnotationRequest) error {
	return s.syncer.SyncNlpAnnotations(ctx, req)
}

// MoveBack reacts to a chase moving backwards in its workflow, purging the
// NLP annotation overlay when the chase has regressed far enough.
func (s *Service) MoveBack(ctx context.Context, chaseID int) error {
	return s.syncer.PurgeOnRegress(ctx, chaseID)
}

func (s *Service) DiagnosisHighlights(ctx context.Context, chaseID int, query highlight.DiagnosisQuery) *models.DocumentPageNlpMatches {
	return s.highlights.DiagnosisHighlights(ctx, chaseID, query)
}

func (s *Service) DiagnosisDOSHighlights(ctx context.Context, chaseID int, query highlight.DiagnosisQuery) *models.DocumentPageNlpMatches {
	return s.highlights.DiagnosisDOSHighlights(ctx, chaseID, query)
}

func (s *Service) NegativeExclusionHighlights(ctx context.Context, chaseID int) *models.DocumentPageNlpMatches {
	return s.highlights.NegativeExclusionHighlights(ctx, chaseID)
}

func (s *Service) TemplateHighlights(ctx context.Context, chaseID int) *models.DocumentPageNlpMatches {
	return s.highlights.TemplateHighlights(ctx, chaseID)
}

func (s *Service) MemberHighlights(ctx context.Context, chaseID int) *models.DocumentPageNlpMatches {
	return s.highlights.MemberHighlights(ctx, chaseID)
}

func (s *Service) NumeratorsByMeasure(ctx context.Context, projectID, measureID int) ([]chase.MeasureNumeratorModel, error) {
	return s.chases.GetNumeratorsByMeasure(ctx, projectID, measureID)
}
