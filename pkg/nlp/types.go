package nlp

import "github.com/medreview-ai/platform/pkg/common/models"

// SubmissionResponse is the completed analysis the external NLP provider
// produces for one chase document. Events carry numerator-level match
// verdicts; Encounters carry per-diagnosis evidence spans; NLPSections and
// MemberDetails are page-level template and member-identity detections.
type SubmissionResponse struct {
	Events        []ExtractionEvent `json:"events"`
	Encounters    []Encounter       `json:"encounters"`
	NLPSections   []SectionPage     `json:"nlpSections"`
	MemberDetails []MemberDetail    `json:"memberDetails"`
}

type ExtractionEvent struct {
	EventID                string                      `json:"eventId"`
	EntityTypeID           int                         `json:"entityTypeId"`
	EntityTypeName         string                      `json:"entityTypeName"`
	EntityTypeDisplayOrder int                         `json:"entityTypeDisplayOrder"`
	Matched                string                      `json:"matched"` // YES, NO, PARTIAL
	SuggestedPageNumber    int                         `json:"suggestedPageNumber"`
	Attributes             []EventAttribute            `json:"attributes"`
	SupportingLocations    []models.SupportingLocation `json:"supportingLocations"`
}

type EventAttribute struct {
	AttributeType  string `json:"attributeType"`
	AttributeCode  string `json:"attributeCode"`
	AttributeValue string `json:"attributeValue"`
}

// Encounter dates are free-form provider strings, never parsed into times;
// encounter selection compares them verbatim.
type Encounter struct {
	EncounterID int         `json:"encounterId"`
	DOSFrom     string      `json:"dosFrom"`
	DOSThrough  string      `json:"dosThrough"`
	Diagnosis   []Diagnosis `json:"diagnosis"`
}

type Diagnosis struct {
	Code           string     `json:"code"`
	DocumentPageID int        `json:"documentPageId"`
	DOSPageNumber  *int       `json:"dosPageNumber"`
	DOSFrom        string     `json:"dosFrom"`
	Evidences      []Evidence `json:"evidences"`
	DOSEvidences   []Evidence `json:"dosEvidences"`
}

type Evidence struct {
	PageNo      int              `json:"pageNo"`
	Text        string           `json:"text"`
	Status      string           `json:"status"` // POSITIVE, NEGATIVE
	BoundingBox [][]models.Point `json:"boundingBox"`
}

type SectionPage struct {
	DocumentPageID int       `json:"documentPageId"`
	PageNumber     int       `json:"pageNumber"`
	Sections       []Section `json:"sections"`
}

type Section struct {
	Name        string           `json:"name"`
	Status      string           `json:"status"`
	BoundingBox [][]models.Point `json:"boundingBox"`
}

type MemberDetail struct {
	DocumentPageID int              `json:"documentPageId"`
	PageNumber     int              `json:"pageNumber"`
	MemberName     string           `json:"memberName"`
	BoundingBox    [][]models.Point `json:"boundingBox"`
}
