package models

import "time"

// Event bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // decision-submitted, annotations-synced, annotations-purged, chase-moveback
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// MatchResult classifies how the NLP provider scored a numerator against the chart.
type MatchResult int

const (
	MatchResultMatch MatchResult = iota + 1
	MatchResultNoMatch
	MatchResultPartialMatch
)

// ReviewDecision is the reviewer's tri-state verdict on a system result. The
// zero value means the reviewer has not acted yet; the persistence sentinel for
// it lives at the decision-store boundary only.
type ReviewDecision int

const (
	DecisionUnset ReviewDecision = iota
	DecisionAccepted
	DecisionRejected
)

// AnnotationSource tags who produced a page annotation.
type AnnotationSource int

const (
	AnnotationSourceManual AnnotationSource = iota + 1
	AnnotationSourceNLP
)

// Point is a fractional 0..1 page coordinate as emitted by the OCR layer.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SupportingLocation references where evidence was found on a chart page.
// BoundingBox carries the provider's ordered corner points, top-left first.
type SupportingLocation struct {
	EventID        string  `json:"eventId,omitempty"`
	Measure        string  `json:"measure,omitempty"`
	DocumentPageID int     `json:"documentPageId,omitempty"`
	PageNumber     int     `json:"pageNumber"`
	Text           string  `json:"text,omitempty"`
	BoundingBox    []Point `json:"boundingBox"`
}

type SupportingLocationSet struct {
	Locations []SupportingLocation `json:"locations"`
}

type ChaseNlpNumerator struct {
	EntityTypeID            int                    `json:"entityTypeId"`
	EntityTypeName          string                 `json:"entityTypeName"`
	EntityTypeDisplayOrder  int                    `json:"entityTypeDisplayOrder"`
	MatchResult             MatchResult            `json:"matchResult"`
	Result                  string                 `json:"result"`
	EventID                 string                 `json:"eventId"`
	DateOfService           string                 `json:"dateOfService,omitempty"`
	MedicalRecordPageNumber string                 `json:"medicalRecordPageNumber,omitempty"`
	BotPageNumber           string                 `json:"botPageNumber,omitempty"`
	Accepted                ReviewDecision         `json:"accepted"`
	SupportingLocation      *SupportingLocationSet `json:"supportingLocation,omitempty"`
}

type ChaseNlpData struct {
	ChaseID               int                 `json:"chaseId"`
	OrganizationID        int                 `json:"organizationId"`
	CallerUserID          int                 `json:"callerUserId"`
	TotalMatch            int                 `json:"totalMatch"`
	TotalNoMatch          int                 `json:"totalNoMatch"`
	TotalPartialMatch     int                 `json:"totalPartialMatch"`
	Numerators            []ChaseNlpNumerator `json:"numerators"`
	ReviewedByUser        bool                `json:"reviewedByUser"`
	SystemResultsReviewed bool                `json:"systemResultsReviewed"`
}

// ChaseNlpEvent is a previously recorded entity-type occurrence for a chase,
// used as the fallback baseline when the provider returned no events.
type ChaseNlpEvent struct {
	EntityTypeID           int    `json:"entityTypeId"`
	EntityTypeName         string `json:"entityTypeName"`
	EntityTypeDisplayOrder int    `json:"entityTypeDisplayOrder"`
}

// Highlight projections
type NlpHighlight struct {
	PageNumber     int     `json:"pageNumber"`
	Text           string  `json:"text"`
	Status         string  `json:"status,omitempty"`
	DocumentPageID int     `json:"documentPageId"`
	DiagnosisDOS   string  `json:"diagnosisDos,omitempty"`
	DOSPageNumber  *int    `json:"dosPageNumber,omitempty"`
	BoundingBoxes  []Point `json:"boundingBoxes"`
}

type DocumentPageNlpMatches struct {
	NlpMatches []NlpHighlight `json:"nlpMatches"`
}

// Annotation overlay aggregate
type Annotation struct {
	AnnotationSourceID AnnotationSource `json:"annotationSourceId"`
	UserID             int              `json:"userId"`
	CreateDate         time.Time        `json:"createDate"`
	AnnotationKey      string           `json:"annotationKey"`
	StartX             float64          `json:"startX"`
	WidthX             float64          `json:"widthX"`
	StartY             float64          `json:"startY"`
	HeightY            float64          `json:"heightY"`
}

type ChaseDocumentPageAnnotation struct {
	ChaseDocumentPageID int          `json:"chaseDocumentPageId"`
	Annotations         []Annotation `json:"annotations"`
}

type ChaseDocumentAnnotation struct {
	ChaseDocumentID int                           `json:"chaseDocumentId"`
	Pages           []ChaseDocumentPageAnnotation `json:"chaseDocumentPages"`
}

type ChaseDocumentPage struct {
	DocumentPageID int `json:"documentPageId"`
	PageNumber     int `json:"pageNumber"`
}

type ChaseNlpAnnotationRequest struct {
	ChaseID             int                  `json:"chaseId"`
	CallerUserID        int                  `json:"callerUserId"`
	SupportingLocations []SupportingLocation `json:"supportingLocations"`
}

type WorkflowStatusItem struct {
	WorkflowStatusID   int    `json:"workflowStatusId" yaml:"id"`
	WorkflowStatusName string `json:"workflowStatusName" yaml:"name"`
}

// BulkChaseStatusChange describes one chase of a bulk move-back, carrying the
// workflow status name the chase landed on.
type BulkChaseStatusChange struct {
	ChaseID               int    `json:"chaseId"`
	NewWorkflowStatusName string `json:"newWorkflowStatusName"`
}
