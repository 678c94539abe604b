package reconcile

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/medreview-ai/platform/pkg/common/logger"
	"github.com/medreview-ai/platform/pkg/common/models"
	"github.com/medreview-ai/platform/pkg/nlp"
)

const submittedComment = "Bot System Results Submitted"

// ValidationError rejects a malformed decision submission with a message fit
// for the reviewer's screen.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type PayloadSource interface {
	GetCompletedResponse(ctx context.Context, chaseID int) (*nlp.SubmissionResponse, error)
}

type DecisionStore interface {
	Get(ctx context.Context, chaseID int) (*models.ChaseNlpData, error)
	Save(ctx context.Context, data *models.ChaseNlpData, callerUserID int) error
}

type EventSource interface {
	GetNlpEvents(ctx context.Context, chaseID int) ([]models.ChaseNlpEvent, error)
	DeleteEvent(ctx context.Context, chaseID, eventID, callerUserID int) error
}

type CommentStore interface {
	AddComment(ctx context.Context, chaseID int, text string, callerUserID int) error
}

type Publisher interface {
	PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error
}

// Service merges provider match evidence with persisted reviewer decisions
// and commits reviewed decisions back.
type Service struct {
	source    PayloadSource
	decisions DecisionStore
	events    EventSource
	comments  CommentStore
	producer  Publisher
}

func NewService(source PayloadSource, decisions DecisionStore, events EventSource, comments CommentStore, producer Publisher) *Service {
	return &Service{
		source:    source,
		decisions: decisions,
		events:    events,
		comments:  comments,
		producer:  producer,
	}
}

// SystemResults computes the reconciled view for a chase. It never fails:
// missing or unparsable provider data degrades to a nil result, logged at
// warning level, because this feeds a review page that must always render.
func (s *Service) SystemResults(ctx context.Context, chaseID int) *models.ChaseNlpData {
	response, err := s.source.GetCompletedResponse(ctx, chaseID)
	if err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"chase_id": chaseID,
			"source":   "SystemResults",
		}).Warn("failed to fetch provider payload")
		return nil
	}
	if response == nil {
		return nil
	}

	var data *models.ChaseNlpData
	if len(response.Events) > 0 {
		data = s.fromProviderEvents(chaseID, response.Events)
	} else {
		// No data entry was performed; report every known entity-type
		// occurrence as a match so the page shows a baseline, not a blank.
		events, err := s.events.GetNlpEvents(ctx, chaseID)
		if err != nil {
			logger.Log.WithError(err).WithFields(map[string]interface{}{
				"chase_id": chaseID,
				"source":   "SystemResults",
			}).Warn("failed to load fallback entity-type events")
			return nil
		}
		if len(events) > 0 {
			data = fromFallbackEvents(chaseID, events)
		}
	}
	if data == nil {
		return nil
	}

	s.overlayDecisions(ctx, data)
	setBotPageNumber(data)

	return data
}

func (s *Service) fromProviderEvents(chaseID int, events []nlp.ExtractionEvent) *models.ChaseNlpData {
	data := &models.ChaseNlpData{
		ChaseID:    chaseID,
		Numerators: make([]models.ChaseNlpNumerator, 0, len(events)),
	}

	for _, event := range events {
		matchResult := classifyMatch(event.Matched)
		switch matchResult {
		case models.MatchResultMatch:
			data.TotalMatch++
		case models.MatchResultNoMatch:
			data.TotalNoMatch++
		case models.MatchResultPartialMatch:
			data.TotalPartialMatch++
		}

		numerator := models.ChaseNlpNumerator{
			EntityTypeID:           event.EntityTypeID,
			EntityTypeName:         event.EntityTypeName,
			EntityTypeDisplayOrder: event.EntityTypeDisplayOrder,
			MatchResult:            matchResult,
			EventID:                event.EventID,
			BotPageNumber:          strconv.Itoa(event.SuggestedPageNumber),
		}

		if len(event.SupportingLocations) > 0 {
			numerator.SupportingLocation = &models.SupportingLocationSet{
				Locations: append([]models.SupportingLocation(nil), event.SupportingLocations...),
			}
		}

		var resultValues []string
		for _, attribute := range event.Attributes {
			switch {
			case strings.EqualFold(attribute.AttributeType, "date"):
				numerator.DateOfService = attribute.AttributeValue
			case strings.EqualFold(attribute.AttributeType, "numeric") &&
				strings.Contains(strings.ToUpper(attribute.AttributeCode), "CHARTPAGENUMBER"):
				numerator.MedicalRecordPageNumber = attribute.AttributeValue
			case attribute.AttributeValue != "":
				resultValues = append(resultValues, attribute.AttributeValue)
			}
		}
		numerator.Result = strings.Join(resultValues, ", ")

		data.Numerators = append(data.Numerators, numerator)
	}

	sortNumerators(data.Numerators)
	return data
}

func fromFallbackEvents(chaseID int, events []models.ChaseNlpEvent) *models.ChaseNlpData {
	data := &models.ChaseNlpData{
		ChaseID:    chaseID,
		TotalMatch: len(events),
		Numerators: make([]models.ChaseNlpNumerator, 0, len(events)),
	}

	for _, event := range events {
		data.Numerators = append(data.Numerators, models.ChaseNlpNumerator{
			EntityTypeID:           event.EntityTypeID,
			EntityTypeName:         event.EntityTypeName,
			EntityTypeDisplayOrder: event.EntityTypeDisplayOrder,
			MatchResult:            models.MatchResultMatch,
		})
	}

	sortNumerators(data.Numerators)
	return data
}

// overlayDecisions copies the reviewer's persisted tri-state verdicts onto
// the freshly computed numerators. A store failure leaves the system view
// intact rather than discarding it.
func (s *Service) overlayDecisions(ctx context.Context, data *models.ChaseNlpData) {
	persisted, err := s.decisions.Get(ctx, data.ChaseID)
	if err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"chase_id": data.ChaseID,
			"source":   "SystemResults",
		}).Warn("failed to load persisted decisions")
		return
	}
	if persisted == nil {
		return
	}

	for i := range data.Numerators {
		data.Numerators[i].Accepted = models.DecisionUnset
		for _, prior := range persisted.Numerators {
			if prior.EntityTypeID == data.Numerators[i].EntityTypeID {
				data.Numerators[i].Accepted = prior.Accepted
				break
			}
		}
	}

	sortNumerators(data.Numerators)
	data.ReviewedByUser = true
	data.SystemResultsReviewed = persisted.SystemResultsReviewed
}

// SaveDecisions persists the reviewer's verdicts. When the submission marks
// system results as reviewed, every no-match result the reviewer accepted has
// its underlying extracted event deleted and an audit comment is appended.
// The deletions are terminal; there is no undo from here.
func (s *Service) SaveDecisions(ctx context.Context, data *models.ChaseNlpData, callerUserID int) error {
	if data == nil || len(data.Numerators) == 0 {
		return &ValidationError{
			Message: "Invalid data entry. Please make sure you have entered all values and try again.",
		}
	}

	data.CallerUserID = callerUserID
	if err := s.decisions.Save(ctx, data, callerUserID); err != nil {
		return err
	}

	if data.SystemResultsReviewed {
		s.processSystemResults(ctx, data, callerUserID)

		if s.producer != nil {
			payload := map[string]interface{}{
				"chaseId":      data.ChaseID,
				"callerUserId": callerUserID,
				"totalMatch":   data.TotalMatch,
				"totalNoMatch": data.TotalNoMatch,
			}
			if err := s.producer.PublishEvent(ctx, "decision-submitted", "chase-review-service", payload); err != nil {
				logger.Log.WithError(err).WithField("chase_id", data.ChaseID).Warn("failed to publish decision event")
			}
		}
	}

	return nil
}

func (s *Service) processSystemResults(ctx context.Context, data *models.ChaseNlpData, callerUserID int) {
	for _, numerator := range data.Numerators {
		if numerator.MatchResult != models.MatchResultNoMatch || numerator.Accepted != models.DecisionAccepted {
			continue
		}
		if numerator.EventID == "" {
			continue
		}

		eventID, err := strconv.Atoi(numerator.EventID)
		if err != nil || eventID <= 0 {
			continue
		}

		if err := s.events.DeleteEvent(ctx, data.ChaseID, eventID, callerUserID); err != nil {
			logger.Log.WithError(err).WithFields(map[string]interface{}{
				"chase_id": data.ChaseID,
				"event_id": eventID,
			}).Warn("failed to delete extracted event data")
			continue
		}

		logger.Log.WithFields(map[string]interface{}{
			"chase_id": data.ChaseID,
			"event_id": eventID,
		}).Info("deleted extracted event data for accepted no-match")
	}

	if err := s.comments.AddComment(ctx, data.ChaseID, submittedComment, callerUserID); err != nil {
		logger.Log.WithError(err).WithField("chase_id", data.ChaseID).Warn("failed to add submission comment")
	}
}

func classifyMatch(matched string) models.MatchResult {
	switch strings.ToUpper(matched) {
	case "YES":
		return models.MatchResultMatch
	case "NO":
		return models.MatchResultNoMatch
	case "PARTIAL":
		return models.MatchResultPartialMatch
	default:
		return models.MatchResultNoMatch
	}
}

func sortNumerators(numerators []models.ChaseNlpNumerator) {
	sort.SliceStable(numerators, func(i, j int) bool {
		return numerators[i].EntityTypeDisplayOrder < numerators[j].EntityTypeDisplayOrder
	})
}

// dateLayouts covers the date spellings observed in provider supporting
// locations, spelled-out month names included.
var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"2006-01-02",
	"01-02-2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"01/02/2006 15:04",
	"2006-01-02T15:04:05",
}

func parsesAsDate(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, trimmed); err == nil {
			return true
		}
	}
	return false
}

// setBotPageNumber refines the provider's suggested page with the first
// supporting location whose text reads as a date of service, lowest page
// first.
func setBotPageNumber(data *models.ChaseNlpData) {
	for i := range data.Numerators {
		set := data.Numerators[i].SupportingLocation
		if set == nil || len(set.Locations) == 0 {
			continue
		}

		best := 0
		found := false
		for _, location := range set.Locations {
			if !parsesAsDate(location.Text) {
				continue
			}
			if !found || location.PageNumber < best {
				best = location.PageNumber
				found = true
			}
		}
		if found {
			data.Numerators[i].BotPageNumber = strconv.Itoa(best)
		}
	}
}
