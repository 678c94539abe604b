package reconcile

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/medreview-ai/platform/pkg/common/logger"
	"github.com/medreview-ai/platform/pkg/common/models"
	"github.com/medreview-ai/platform/pkg/nlp"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type fakeSource struct {
	response *nlp.SubmissionResponse
	err      error
}

func (f *fakeSource) GetCompletedResponse(ctx context.Context, chaseID int) (*nlp.SubmissionResponse, error) {
	return f.response, f.err
}

type fakeDecisions struct {
	stored    *models.ChaseNlpData
	getErr    error
	saveCalls int
}

func (f *fakeDecisions) Get(ctx context.Context, chaseID int) (*models.ChaseNlpData, error) {
	return f.stored, f.getErr
}

func (f *fakeDecisions) Save(ctx context.Context, data *models.ChaseNlpData, callerUserID int) error {
	f.saveCalls++
	f.stored = data
	return nil
}

type fakeEvents struct {
	events  []models.ChaseNlpEvent
	deleted []int
}

func (f *fakeEvents) GetNlpEvents(ctx context.Context, chaseID int) ([]models.ChaseNlpEvent, error) {
	return f.events, nil
}

func (f *fakeEvents) DeleteEvent(ctx context.Context, chaseID, eventID, callerUserID int) error {
	f.deleted = append(f.deleted, eventID)
	return nil
}

type fakeComments struct {
	comments []string
}

func (f *fakeComments) AddComment(ctx context.Context, chaseID int, text string, callerUserID int) error {
	f.comments = append(f.comments, text)
	return nil
}

func newTestService(source *fakeSource, decisions *fakeDecisions, events *fakeEvents, comments *fakeComments) *Service {
	if decisions == nil {
		decisions = &fakeDecisions{}
	}
	if events == nil {
		events = &fakeEvents{}
	}
	if comments == nil {
		comments = &fakeComments{}
	}
	return NewService(source, decisions, events, comments, nil)
}

func providerResponse(events ...nlp.ExtractionEvent) *nlp.SubmissionResponse {
	return &nlp.SubmissionResponse{Events: events}
}

func TestSystemResultsClassificationAndCounts(t *testing.T) {
	source := &fakeSource{response: providerResponse(
		nlp.ExtractionEvent{EntityTypeID: 1, Matched: "yes", EntityTypeDisplayOrder: 1},
		nlp.ExtractionEvent{EntityTypeID: 2, Matched: "NO", EntityTypeDisplayOrder: 2},
		nlp.ExtractionEvent{EntityTypeID: 3, Matched: "Partial", EntityTypeDisplayOrder: 3},
		nlp.ExtractionEvent{EntityTypeID: 4, Matched: "maybe", EntityTypeDisplayOrder: 4},
	)}

	data := newTestService(source, nil, nil, nil).SystemResults(context.Background(), 42)
	if data == nil {
		t.Fatal("expected a reconciled result")
	}

	if data.TotalMatch != 1 || data.TotalNoMatch != 2 || data.TotalPartialMatch != 1 {
		t.Fatalf("counts = %d/%d/%d, want 1/2/1", data.TotalMatch, data.TotalNoMatch, data.TotalPartialMatch)
	}
	if total := data.TotalMatch + data.TotalNoMatch + data.TotalPartialMatch; total != len(data.Numerators) {
		t.Fatalf("count sum %d != numerator count %d", total, len(data.Numerators))
	}
	if data.Numerators[3].MatchResult != models.MatchResultNoMatch {
		t.Fatalf("unknown verdict should classify as no-match, got %v", data.Numerators[3].MatchResult)
	}
}

func TestSystemResultsIsIdempotent(t *testing.T) {
	source := &fakeSource{response: providerResponse(
		nlp.ExtractionEvent{EntityTypeID: 2, EntityTypeName: "BP", Matched: "YES", EntityTypeDisplayOrder: 2},
		nlp.ExtractionEvent{EntityTypeID: 1, EntityTypeName: "A1c", Matched: "NO", EntityTypeDisplayOrder: 1},
	)}
	service := newTestService(source, nil, nil, nil)

	first := service.SystemResults(context.Background(), 7)
	second := service.SystemResults(context.Background(), 7)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated reconciliation diverged:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestSystemResultsOrdersByDisplayOrder(t *testing.T) {
	source := &fakeSource{response: providerResponse(
		nlp.ExtractionEvent{EntityTypeID: 3, Matched: "YES", EntityTypeDisplayOrder: 30},
		nlp.ExtractionEvent{EntityTypeID: 1, Matched: "YES", EntityTypeDisplayOrder: 10},
		nlp.ExtractionEvent{EntityTypeID: 2, Matched: "YES", EntityTypeDisplayOrder: 20},
	)}

	data := newTestService(source, nil, nil, nil).SystemResults(context.Background(), 7)

	for i := 1; i < len(data.Numerators); i++ {
		if data.Numerators[i-1].EntityTypeDisplayOrder > data.Numerators[i].EntityTypeDisplayOrder {
			t.Fatalf("numerators out of display order: %+v", data.Numerators)
		}
	}
}

func TestSystemResultsExtractsAttributes(t *testing.T) {
	source := &fakeSource{response: providerResponse(
		nlp.ExtractionEvent{
			EntityTypeID: 1,
			Matched:      "YES",
			Attributes: []nlp.EventAttribute{
				{AttributeType: "Date", AttributeValue: "03/14/2021"},
				{AttributeType: "numeric", AttributeCode: "SystolicChartPageNumber", AttributeValue: "12"},
				{AttributeType: "text", AttributeValue: "138"},
				{AttributeType: "text", AttributeValue: "88"},
				{AttributeType: "text", AttributeValue: ""},
			},
		},
	)}

	data := newTestService(source, nil, nil, nil).SystemResults(context.Background(), 7)
	numerator := data.Numerators[0]

	if numerator.DateOfService != "03/14/2021" {
		t.Fatalf("DateOfService = %q", numerator.DateOfService)
	}
	if numerator.MedicalRecordPageNumber != "12" {
		t.Fatalf("MedicalRecordPageNumber = %q", numerator.MedicalRecordPageNumber)
	}
	if numerator.Result != "138, 88" {
		t.Fatalf("Result = %q, want %q", numerator.Result, "138, 88")
	}
}

func TestSystemResultsFallbackWhenNoEvents(t *testing.T) {
	source := &fakeSource{response: &nlp.SubmissionResponse{}}
	events := &fakeEvents{events: []models.ChaseNlpEvent{
		{EntityTypeID: 1, EntityTypeName: "A1c", EntityTypeDisplayOrder: 1},
		{EntityTypeID: 2, EntityTypeName: "BP", EntityTypeDisplayOrder: 2},
		{EntityTypeID: 3, EntityTypeName: "Eye Exam", EntityTypeDisplayOrder: 3},
	}}

	data := newTestService(source, nil, events, nil).SystemResults(context.Background(), 7)
	if data == nil {
		t.Fatal("expected fallback result")
	}

	if len(data.Numerators) != 3 {
		t.Fatalf("expected 3 numerators, got %d", len(data.Numerators))
	}
	if data.TotalMatch != 3 || data.TotalNoMatch != 0 || data.TotalPartialMatch != 0 {
		t.Fatalf("fallback counts = %d/%d/%d, want 3/0/0", data.TotalMatch, data.TotalNoMatch, data.TotalPartialMatch)
	}
	for _, numerator := range data.Numerators {
		if numerator.MatchResult != models.MatchResultMatch {
			t.Fatalf("fallback numerator not a match: %+v", numerator)
		}
	}
}

func TestSystemResultsOverlaysPersistedDecisions(t *testing.T) {
	source := &fakeSource{response: providerResponse(
		nlp.ExtractionEvent{EntityTypeID: 1, Matched: "YES", EntityTypeDisplayOrder: 1},
		nlp.ExtractionEvent{EntityTypeID: 2, Matched: "NO", EntityTypeDisplayOrder: 2},
	)}
	decisions := &fakeDecisions{stored: &models.ChaseNlpData{
		SystemResultsReviewed: true,
		Numerators: []models.ChaseNlpNumerator{
			{EntityTypeID: 2, Accepted: models.DecisionAccepted},
		},
	}}

	data := newTestService(source, decisions, nil, nil).SystemResults(context.Background(), 7)

	if !data.ReviewedByUser {
		t.Fatal("expected ReviewedByUser after overlay")
	}
	if !data.SystemResultsReviewed {
		t.Fatal("expected SystemResultsReviewed carried over")
	}
	if data.Numerators[0].Accepted != models.DecisionUnset {
		t.Fatalf("entity without a persisted verdict should stay unset, got %v", data.Numerators[0].Accepted)
	}
	if data.Numerators[1].Accepted != models.DecisionAccepted {
		t.Fatalf("persisted verdict lost: %v", data.Numerators[1].Accepted)
	}
}

func TestSystemResultsDegradesOnSourceFailure(t *testing.T) {
	source := &fakeSource{err: errors.New("provider unavailable")}

	if data := newTestService(source, nil, nil, nil).SystemResults(context.Background(), 7); data != nil {
		t.Fatalf("expected nil result on source failure, got %+v", data)
	}
}

func TestSystemResultsNilWhenNoCompletedResponse(t *testing.T) {
	source := &fakeSource{}

	if data := newTestService(source, nil, nil, nil).SystemResults(context.Background(), 7); data != nil {
		t.Fatalf("expected nil result without a completed response, got %+v", data)
	}
}

func TestSystemResultsRefinesBotPageNumber(t *testing.T) {
	source := &fakeSource{response: providerResponse(
		nlp.ExtractionEvent{
			EntityTypeID:        1,
			Matched:             "YES",
			SuggestedPageNumber: 9,
			SupportingLocations: []models.SupportingLocation{
				{PageNumber: 6, Text: "blood pressure"},
				{PageNumber: 4, Text: "03/14/2021"},
				{PageNumber: 2, Text: "follow up"},
			},
		},
	)}

	data := newTestService(source, nil, nil, nil).SystemResults(context.Background(), 7)

	if data.Numerators[0].BotPageNumber != "4" {
		t.Fatalf("BotPageNumber = %q, want %q", data.Numerators[0].BotPageNumber, "4")
	}
}

func TestParsesAsDateSpellings(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"03/14/2021", true},
		{"3/4/2021", true},
		{"2021-03-14", true},
		{"03-14-2021", true},
		{"Mar 14, 2021", true},
		{"March 14, 2021", true},
		{"14 March 2021", true},
		{" 03/14/2021 ", true},
		{"blood pressure", false},
		{"", false},
		{"138/88", false},
	}

	for _, tc := range cases {
		if got := parsesAsDate(tc.text); got != tc.want {
			t.Fatalf("parsesAsDate(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestSaveDecisionsRejectsEmptySubmission(t *testing.T) {
	decisions := &fakeDecisions{}
	service := newTestService(&fakeSource{}, decisions, nil, nil)

	err := service.SaveDecisions(context.Background(), &models.ChaseNlpData{ChaseID: 7}, 99)

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if decisions.saveCalls != 0 {
		t.Fatal("validation failure must not persist anything")
	}
}

func TestSaveDecisionsDeletesAcceptedNoMatchEvents(t *testing.T) {
	decisions := &fakeDecisions{}
	events := &fakeEvents{}
	comments := &fakeComments{}
	service := newTestService(&fakeSource{}, decisions, events, comments)

	data := &models.ChaseNlpData{
		ChaseID:               7,
		SystemResultsReviewed: true,
		Numerators: []models.ChaseNlpNumerator{
			{EntityTypeID: 1, MatchResult: models.MatchResultNoMatch, Accepted: models.DecisionAccepted, EventID: "11"},
			{EntityTypeID: 2, MatchResult: models.MatchResultMatch, Accepted: models.DecisionAccepted, EventID: "12"},
			{EntityTypeID: 3, MatchResult: models.MatchResultNoMatch, Accepted: models.DecisionRejected, EventID: "13"},
			{EntityTypeID: 4, MatchResult: models.MatchResultNoMatch, Accepted: models.DecisionAccepted, EventID: ""},
		},
	}

	if err := service.SaveDecisions(context.Background(), data, 99); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if decisions.saveCalls != 1 {
		t.Fatalf("expected one persistence call, got %d", decisions.saveCalls)
	}
	if len(events.deleted) != 1 || events.deleted[0] != 11 {
		t.Fatalf("expected only event 11 deleted, got %v", events.deleted)
	}
	if len(comments.comments) != 1 || comments.comments[0] != submittedComment {
		t.Fatalf("expected submission comment, got %v", comments.comments)
	}
}

func TestSaveDecisionsWithoutReviewSkipsSideEffects(t *testing.T) {
	decisions := &fakeDecisions{}
	events := &fakeEvents{}
	comments := &fakeComments{}
	service := newTestService(&fakeSource{}, decisions, events, comments)

	data := &models.ChaseNlpData{
		ChaseID: 7,
		Numerators: []models.ChaseNlpNumerator{
			{EntityTypeID: 1, MatchResult: models.MatchResultNoMatch, Accepted: models.DecisionAccepted, EventID: "11"},
		},
	}

	if err := service.SaveDecisions(context.Background(), data, 99); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(events.deleted) != 0 {
		t.Fatalf("no deletions expected before system results are reviewed, got %v", events.deleted)
	}
	if len(comments.comments) != 0 {
		t.Fatalf("no comment expected, got %v", comments.comments)
	}
}
