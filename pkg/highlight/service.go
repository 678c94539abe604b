package highlight

import (
	"context"
	"sort"
	"strings"

	"github.com/medreview-ai/platform/pkg/common/logger"
	"github.com/medreview-ai/platform/pkg/common/models"
	"github.com/medreview-ai/platform/pkg/geometry"
	"github.com/medreview-ai/platform/pkg/nlp"
)

const (
	statusPositive = "POSITIVE"
	statusNegative = "NEGATIVE"
)

type PayloadSource interface {
	GetCompletedResponse(ctx context.Context, chaseID int) (*nlp.SubmissionResponse, error)
}

// Service projects read-only highlight views over the provider payload. Every
// view re-fetches the payload; there is no shared cache between them.
type Service struct {
	source PayloadSource
}

func NewService(source PayloadSource) *Service {
	return &Service{source: source}
}

// DiagnosisQuery narrows the encounter/diagnosis traversal. When EncounterID
// is zero or matches no encounter, selection falls back to comparing the
// free-form DOS strings verbatim.
type DiagnosisQuery struct {
	EncounterID   int
	DOSFrom       string
	DOSThrough    string
	DiagnosisCode string
}

// selectEncounters filters by encounter id first; when the id is absent or
// selects nothing, the DOS-pair match takes over.
func (q DiagnosisQuery) selectEncounters(encounters []nlp.Encounter) []nlp.Encounter {
	if q.EncounterID > 0 {
		var matched []nlp.Encounter
		for _, encounter := range encounters {
			if encounter.EncounterID == q.EncounterID {
				matched = append(matched, encounter)
			}
		}
		if len(matched) > 0 {
			return matched
		}
	}

	var matched []nlp.Encounter
	for _, encounter := range encounters {
		if encounter.DOSFrom == q.DOSFrom && encounter.DOSThrough == q.DOSThrough {
			matched = append(matched, encounter)
		}
	}
	return matched
}

func (q DiagnosisQuery) matchesDiagnosis(diagnosis nlp.Diagnosis) bool {
	return strings.EqualFold(diagnosis.Code, q.DiagnosisCode)
}

// DiagnosisHighlights returns one highlight per positive evidence span of the
// queried diagnosis, ordered by page number.
func (s *Service) DiagnosisHighlights(ctx context.Context, chaseID int, query DiagnosisQuery) *models.DocumentPageNlpMatches {
	response := s.fetch(ctx, chaseID)
	if response == nil {
		return nil
	}

	matches := traverseDiagnoses(query.selectEncounters(response.Encounters), query.matchesDiagnosis, func(diagnosis nlp.Diagnosis) []models.NlpHighlight {
		var highlights []models.NlpHighlight
		for _, evidence := range diagnosis.Evidences {
			if !strings.EqualFold(evidence.Status, statusPositive) {
				continue
			}
			highlights = append(highlights, evidenceHighlight(diagnosis, evidence))
		}
		return highlights
	})

	sort.SliceStable(matches.NlpMatches, func(i, j int) bool {
		return matches.NlpMatches[i].PageNumber < matches.NlpMatches[j].PageNumber
	})
	return matches
}

// DiagnosisDOSHighlights returns the date-of-service evidence for the queried
// diagnosis, restricted to the page the provider recorded as the DOS page.
func (s *Service) DiagnosisDOSHighlights(ctx context.Context, chaseID int, query DiagnosisQuery) *models.DocumentPageNlpMatches {
	response := s.fetch(ctx, chaseID)
	if response == nil {
		return nil
	}

	return traverseDiagnoses(query.selectEncounters(response.Encounters), query.matchesDiagnosis, func(diagnosis nlp.Diagnosis) []models.NlpHighlight {
		if diagnosis.DOSPageNumber == nil {
			return nil
		}
		for _, evidence := range diagnosis.DOSEvidences {
			if evidence.PageNo != *diagnosis.DOSPageNumber {
				continue
			}
			return []models.NlpHighlight{evidenceHighlight(diagnosis, evidence)}
		}
		return nil
	})
}

// NegativeExclusionHighlights returns every negative evidence span across all
// encounters and diagnoses, unfiltered by encounter or code.
func (s *Service) NegativeExclusionHighlights(ctx context.Context, chaseID int) *models.DocumentPageNlpMatches {
	response := s.fetch(ctx, chaseID)
	if response == nil {
		return nil
	}

	allDiagnoses := func(nlp.Diagnosis) bool { return true }
	return traverseDiagnoses(response.Encounters, allDiagnoses, func(diagnosis nlp.Diagnosis) []models.NlpHighlight {
		var highlights []models.NlpHighlight
		for _, evidence := range diagnosis.Evidences {
			if !strings.EqualFold(evidence.Status, statusNegative) {
				continue
			}
			highlights = append(highlights, evidenceHighlight(diagnosis, evidence))
		}
		return highlights
	})
}

// TemplateHighlights returns one highlight per detected template section,
// regardless of section status.
func (s *Service) TemplateHighlights(ctx context.Context, chaseID int) *models.DocumentPageNlpMatches {
	response := s.fetch(ctx, chaseID)
	if response == nil {
		return nil
	}

	matches := &models.DocumentPageNlpMatches{}
	for _, page := range response.NLPSections {
		for _, section := range page.Sections {
			matches.NlpMatches = append(matches.NlpMatches, models.NlpHighlight{
				PageNumber:     page.PageNumber,
				Text:           section.Name,
				Status:         section.Status,
				DocumentPageID: page.DocumentPageID,
				BoundingBoxes:  geometry.CornerPoints(section.BoundingBox),
			})
		}
	}
	return matches
}

// MemberHighlights returns member-identity detections. Unlike the other views
// these carry the full polygon point list, not a corner pair.
func (s *Service) MemberHighlights(ctx context.Context, chaseID int) *models.DocumentPageNlpMatches {
	response := s.fetch(ctx, chaseID)
	if response == nil {
		return nil
	}

	matches := &models.DocumentPageNlpMatches{}
	for _, detail := range response.MemberDetails {
		if detail.MemberName == "" {
			continue
		}
		var points []models.Point
		for _, group := range detail.BoundingBox {
			points = append(points, group...)
		}
		matches.NlpMatches = append(matches.NlpMatches, models.NlpHighlight{
			PageNumber:     detail.PageNumber,
			Text:           detail.MemberName,
			DocumentPageID: detail.DocumentPageID,
			BoundingBoxes:  points,
		})
	}
	return matches
}

func (s *Service) fetch(ctx context.Context, chaseID int) *nlp.SubmissionResponse {
	response, err := s.source.GetCompletedResponse(ctx, chaseID)
	if err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"chase_id": chaseID,
			"source":   "Highlights",
		}).Warn("failed to fetch provider payload")
		return nil
	}
	return response
}

// traverseDiagnoses is the single encounter/diagnosis walk shared by the
// evidence views; each view contributes only its selection and projection.
func traverseDiagnoses(
	encounters []nlp.Encounter,
	matchDiagnosis func(nlp.Diagnosis) bool,
	project func(nlp.Diagnosis) []models.NlpHighlight,
) *models.DocumentPageNlpMatches {
	matches := &models.DocumentPageNlpMatches{}
	for _, encounter := range encounters {
		for _, diagnosis := range encounter.Diagnosis {
			if !matchDiagnosis(diagnosis) {
				continue
			}
			matches.NlpMatches = append(matches.NlpMatches, project(diagnosis)...)
		}
	}
	return matches
}

func evidenceHighlight(diagnosis nlp.Diagnosis, evidence nlp.Evidence) models.NlpHighlight {
	return models.NlpHighlight{
		PageNumber:     evidence.PageNo,
		Text:           evidence.Text,
		Status:         evidence.Status,
		DocumentPageID: diagnosis.DocumentPageID,
		DiagnosisDOS:   diagnosis.DOSFrom,
		DOSPageNumber:  diagnosis.DOSPageNumber,
		BoundingBoxes:  geometry.CornerPoints(evidence.BoundingBox),
	}
}
