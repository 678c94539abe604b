package highlight

import (
	"context"
	"errors"
	"os"
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

func box(points ...models.Point) [][]models.Point {
	groups := make([][]models.Point, 0, len(points))
	for _, point := range points {
		groups = append(groups, []models.Point{point})
	}
	return groups
}

func intPtr(v int) *int { return &v }

func sampleResponse() *nlp.SubmissionResponse {
	return &nlp.SubmissionResponse{
		Encounters: []nlp.Encounter{
			{
				EncounterID: 1,
				DOSFrom:     "01/05/2021",
				DOSThrough:  "01/05/2021",
				Diagnosis: []nlp.Diagnosis{
					{
						Code:           "E11.9",
						DocumentPageID: 100,
						DOSPageNumber:  intPtr(3),
						DOSFrom:        "01/05/2021",
						Evidences: []nlp.Evidence{
							{PageNo: 8, Text: "diabetes", Status: "POSITIVE", BoundingBox: box(models.Point{X: 0.1, Y: 0.2}, models.Point{X: 0.3, Y: 0.4})},
							{PageNo: 2, Text: "dm type 2", Status: "positive", BoundingBox: box(models.Point{X: 0.1, Y: 0.2}, models.Point{X: 0.3, Y: 0.4})},
							{PageNo: 5, Text: "no retinopathy", Status: "NEGATIVE", BoundingBox: box(models.Point{X: 0.1, Y: 0.2}, models.Point{X: 0.3, Y: 0.4})},
						},
						DOSEvidences: []nlp.Evidence{
							{PageNo: 9, Text: "01/05/2021", Status: "POSITIVE"},
							{PageNo: 3, Text: "01/05/2021", Status: "POSITIVE"},
						},
					},
				},
			},
			{
				EncounterID: 2,
				DOSFrom:     "02/10/2021",
				DOSThrough:  "02/11/2021",
				Diagnosis: []nlp.Diagnosis{
					{
						Code:           "E11.9",
						DocumentPageID: 200,
						Evidences: []nlp.Evidence{
							{PageNo: 14, Text: "other encounter", Status: "POSITIVE"},
							{PageNo: 15, Text: "excluded", Status: "NEGATIVE"},
						},
					},
				},
			},
		},
		NLPSections: []nlp.SectionPage{
			{
				DocumentPageID: 300,
				PageNumber:     1,
				Sections: []nlp.Section{
					{Name: "Progress Note", Status: "DETECTED"},
					{Name: "Medication List", Status: "SUSPECT"},
				},
			},
		},
		MemberDetails: []nlp.MemberDetail{
			{
				DocumentPageID: 400,
				PageNumber:     1,
				MemberName:     "Jane Doe",
				BoundingBox: [][]models.Point{
					{{X: 0.1, Y: 0.1}, {X: 0.2, Y: 0.1}},
					{{X: 0.2, Y: 0.15}},
				},
			},
			{DocumentPageID: 401, PageNumber: 2, MemberName: ""},
		},
	}
}

func TestDiagnosisHighlightsSelectsByEncounterID(t *testing.T) {
	service := NewService(&fakeSource{response: sampleResponse()})

	matches := service.DiagnosisHighlights(context.Background(), 7, DiagnosisQuery{EncounterID: 1, DiagnosisCode: "e11.9"})
	if matches == nil {
		t.Fatal("expected highlights")
	}

	if len(matches.NlpMatches) != 2 {
		t.Fatalf("expected 2 positive highlights from encounter 1, got %d", len(matches.NlpMatches))
	}
	for _, match := range matches.NlpMatches {
		if match.DocumentPageID != 100 {
			t.Fatalf("highlight leaked from a non-matching encounter: %+v", match)
		}
	}
	if matches.NlpMatches[0].PageNumber != 2 || matches.NlpMatches[1].PageNumber != 8 {
		t.Fatalf("highlights not ordered by page: %+v", matches.NlpMatches)
	}
}

func TestDiagnosisHighlightsFallsBackToDOSMatch(t *testing.T) {
	service := NewService(&fakeSource{response: sampleResponse()})

	matches := service.DiagnosisHighlights(context.Background(), 7, DiagnosisQuery{
		DOSFrom:       "02/10/2021",
		DOSThrough:    "02/11/2021",
		DiagnosisCode: "E11.9",
	})

	if len(matches.NlpMatches) != 1 || matches.NlpMatches[0].PageNumber != 14 {
		t.Fatalf("DOS fallback selected the wrong encounter: %+v", matches.NlpMatches)
	}
}

func TestDiagnosisHighlightsUnknownEncounterIDFallsBackToDOSMatch(t *testing.T) {
	service := NewService(&fakeSource{response: sampleResponse()})

	matches := service.DiagnosisHighlights(context.Background(), 7, DiagnosisQuery{
		EncounterID:   99,
		DOSFrom:       "02/10/2021",
		DOSThrough:    "02/11/2021",
		DiagnosisCode: "E11.9",
	})

	if len(matches.NlpMatches) != 1 || matches.NlpMatches[0].PageNumber != 14 {
		t.Fatalf("id miss must fall back to the DOS match, got %+v", matches.NlpMatches)
	}
}

func TestDiagnosisDOSHighlightsUnknownEncounterIDFallsBackToDOSMatch(t *testing.T) {
	service := NewService(&fakeSource{response: sampleResponse()})

	matches := service.DiagnosisDOSHighlights(context.Background(), 7, DiagnosisQuery{
		EncounterID:   99,
		DOSFrom:       "01/05/2021",
		DOSThrough:    "01/05/2021",
		DiagnosisCode: "E11.9",
	})

	if len(matches.NlpMatches) != 1 || matches.NlpMatches[0].PageNumber != 3 {
		t.Fatalf("id miss must fall back to the DOS match, got %+v", matches.NlpMatches)
	}
}

func TestDiagnosisDOSHighlightsFiltersByRecordedPage(t *testing.T) {
	service := NewService(&fakeSource{response: sampleResponse()})

	matches := service.DiagnosisDOSHighlights(context.Background(), 7, DiagnosisQuery{EncounterID: 1, DiagnosisCode: "E11.9"})

	if len(matches.NlpMatches) != 1 {
		t.Fatalf("expected exactly one DOS highlight, got %d", len(matches.NlpMatches))
	}
	if matches.NlpMatches[0].PageNumber != 3 {
		t.Fatalf("DOS highlight should come from the recorded DOS page, got page %d", matches.NlpMatches[0].PageNumber)
	}
}

func TestNegativeExclusionHighlightsSpanAllEncounters(t *testing.T) {
	service := NewService(&fakeSource{response: sampleResponse()})

	matches := service.NegativeExclusionHighlights(context.Background(), 7)

	if len(matches.NlpMatches) != 2 {
		t.Fatalf("expected 2 negative highlights, got %d", len(matches.NlpMatches))
	}
	for _, match := range matches.NlpMatches {
		if match.Status != "NEGATIVE" {
			t.Fatalf("non-negative highlight in exclusion view: %+v", match)
		}
	}
}

func TestTemplateHighlights(t *testing.T) {
	service := NewService(&fakeSource{response: sampleResponse()})

	matches := service.TemplateHighlights(context.Background(), 7)

	if len(matches.NlpMatches) != 2 {
		t.Fatalf("expected 2 section highlights, got %d", len(matches.NlpMatches))
	}
	if matches.NlpMatches[0].Text != "Progress Note" || matches.NlpMatches[0].Status != "DETECTED" {
		t.Fatalf("section name/status not carried: %+v", matches.NlpMatches[0])
	}
}

func TestMemberHighlightsFlattenPolygonPoints(t *testing.T) {
	service := NewService(&fakeSource{response: sampleResponse()})

	matches := service.MemberHighlights(context.Background(), 7)

	if len(matches.NlpMatches) != 1 {
		t.Fatalf("nameless member detections must be skipped, got %d highlights", len(matches.NlpMatches))
	}
	match := matches.NlpMatches[0]
	if match.Text != "Jane Doe" {
		t.Fatalf("Text = %q", match.Text)
	}
	if len(match.BoundingBoxes) != 3 {
		t.Fatalf("expected all 3 polygon points flattened, got %d", len(match.BoundingBoxes))
	}
}

func TestHighlightsNilWithoutCompletedResponse(t *testing.T) {
	service := NewService(&fakeSource{})

	if matches := service.DiagnosisHighlights(context.Background(), 7, DiagnosisQuery{EncounterID: 1}); matches != nil {
		t.Fatalf("expected nil without a completed response, got %+v", matches)
	}
}

func TestHighlightsNilOnSourceFailure(t *testing.T) {
	service := NewService(&fakeSource{err: errors.New("provider unavailable")})

	if matches := service.MemberHighlights(context.Background(), 7); matches != nil {
		t.Fatalf("expected nil on source failure, got %+v", matches)
	}
}
