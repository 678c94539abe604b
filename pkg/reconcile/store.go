package reconcile

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/medreview-ai/platform/pkg/common/models"
	"gorm.io/gorm"
)

// acceptedSentinel stands in for an unset reviewer decision inside the
// persisted XML, which cannot carry a true null. The translation happens in
// this file only; business logic sees models.DecisionUnset.
const acceptedSentinel = -1

type DecisionModel struct {
	ChaseID               int       `gorm:"primaryKey;column:chase_id"`
	OrganizationID        int       `gorm:"column:organization_id;index"`
	NumeratorsAsXML       string    `gorm:"column:numerators_as_xml;type:text"`
	SystemResultsReviewed bool      `gorm:"column:system_results_reviewed"`
	UpdatedByUserID       int       `gorm:"column:updated_by_user_id"`
	CreatedAt             time.Time `gorm:"column:created_at"`
	UpdatedAt             time.Time `gorm:"column:updated_at"`
}

func (DecisionModel) TableName() string {
	return "chase_nlp_data"
}

// Store is the gorm-backed DecisionStore.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&DecisionModel{})
}

func (s *Store) Get(ctx context.Context, chaseID int) (*models.ChaseNlpData, error) {
	var row DecisionModel
	result := s.db.WithContext(ctx).First(&row, "chase_id = ?", chaseID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}

	data, err := decisionsFromXML(row.NumeratorsAsXML)
	if err != nil {
		return nil, fmt.Errorf("failed to decode persisted decisions for chase %d: %w", chaseID, err)
	}
	data.ChaseID = row.ChaseID
	data.OrganizationID = row.OrganizationID
	data.SystemResultsReviewed = row.SystemResultsReviewed
	return data, nil
}

func (s *Store) Save(ctx context.Context, data *models.ChaseNlpData, callerUserID int) error {
	encoded, err := decisionsToXML(data)
	if err != nil {
		return fmt.Errorf("failed to encode decisions for chase %d: %w", data.ChaseID, err)
	}

	row := DecisionModel{
		ChaseID:               data.ChaseID,
		OrganizationID:        data.OrganizationID,
		NumeratorsAsXML:       encoded,
		SystemResultsReviewed: data.SystemResultsReviewed,
		UpdatedByUserID:       callerUserID,
		UpdatedAt:             time.Now().UTC(),
	}

	var existing DecisionModel
	result := s.db.WithContext(ctx).First(&existing, "chase_id = ?", data.ChaseID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		row.CreatedAt = row.UpdatedAt
		return s.db.WithContext(ctx).Create(&row).Error
	}
	if result.Error != nil {
		return result.Error
	}

	row.CreatedAt = existing.CreatedAt
	return s.db.WithContext(ctx).Save(&row).Error
}

// Persistence shadow of the numerator list. The supporting locations are
// deliberately absent: only the reviewer's verdicts survive across requests,
// the rest is recomputed from the provider payload on every read.
type xmlDecisionDoc struct {
	XMLName               xml.Name       `xml:"chaseNlpData"`
	ChaseID               int            `xml:"chaseId"`
	TotalMatch            int            `xml:"totalMatch"`
	TotalNoMatch          int            `xml:"totalNoMatch"`
	TotalPartialMatch     int            `xml:"totalPartialMatch"`
	SystemResultsReviewed bool           `xml:"systemResultsReviewed"`
	Numerators            []xmlNumerator `xml:"numerators>numerator"`
}

type xmlNumerator struct {
	EntityTypeID            int    `xml:"entityTypeId"`
	EntityTypeName          string `xml:"entityTypeName"`
	EntityTypeDisplayOrder  int    `xml:"entityTypeDisplayOrder"`
	MatchResult             int    `xml:"matchResult"`
	Result                  string `xml:"result"`
	EventID                 string `xml:"eventId"`
	DateOfService           string `xml:"dateOfService"`
	MedicalRecordPageNumber string `xml:"medicalRecordPageNumber"`
	BotPageNumber           string `xml:"botPageNumber"`
	Accepted                int    `xml:"accepted"`
}

func decisionsToXML(data *models.ChaseNlpData) (string, error) {
	doc := xmlDecisionDoc{
		ChaseID:               data.ChaseID,
		TotalMatch:            data.TotalMatch,
		TotalNoMatch:          data.TotalNoMatch,
		TotalPartialMatch:     data.TotalPartialMatch,
		SystemResultsReviewed: data.SystemResultsReviewed,
		Numerators:            make([]xmlNumerator, 0, len(data.Numerators)),
	}

	for _, numerator := range data.Numerators {
		accepted := int(numerator.Accepted)
		if numerator.Accepted == models.DecisionUnset {
			accepted = acceptedSentinel
		}
		doc.Numerators = append(doc.Numerators, xmlNumerator{
			EntityTypeID:            numerator.EntityTypeID,
			EntityTypeName:          numerator.EntityTypeName,
			EntityTypeDisplayOrder:  numerator.EntityTypeDisplayOrder,
			MatchResult:             int(numerator.MatchResult),
			Result:                  numerator.Result,
			EventID:                 numerator.EventID,
			DateOfService:           numerator.DateOfService,
			MedicalRecordPageNumber: numerator.MedicalRecordPageNumber,
			BotPageNumber:           numerator.BotPageNumber,
			Accepted:                accepted,
		})
	}

	encoded, err := xml.Marshal(doc)
	if err != nil {
		return "", err
	}

	// Downstream consumers of the stored XML expect the sentinel spelled as
	// a literal null element value.
	return strings.ReplaceAll(string(encoded),
		fmt.Sprintf("<accepted>%d</accepted>", acceptedSentinel),
		"<accepted>null</accepted>"), nil
}

func decisionsFromXML(encoded string) (*models.ChaseNlpData, error) {
	if encoded == "" {
		return &models.ChaseNlpData{}, nil
	}

	normalized := strings.ReplaceAll(encoded,
		"<accepted>null</accepted>",
		fmt.Sprintf("<accepted>%d</accepted>", acceptedSentinel))

	var doc xmlDecisionDoc
	if err := xml.Unmarshal([]byte(normalized), &doc); err != nil {
		return nil, err
	}

	data := &models.ChaseNlpData{
		ChaseID:               doc.ChaseID,
		TotalMatch:            doc.TotalMatch,
		TotalNoMatch:          doc.TotalNoMatch,
		TotalPartialMatch:     doc.TotalPartialMatch,
		SystemResultsReviewed: doc.SystemResultsReviewed,
		Numerators:            make([]models.ChaseNlpNumerator, 0, len(doc.Numerators)),
	}

	for _, numerator := range doc.Numerators {
		accepted := models.ReviewDecision(numerator.Accepted)
		if numerator.Accepted == acceptedSentinel {
			accepted = models.DecisionUnset
		}
		data.Numerators = append(data.Numerators, models.ChaseNlpNumerator{
			EntityTypeID:            numerator.EntityTypeID,
			EntityTypeName:          numerator.EntityTypeName,
			EntityTypeDisplayOrder:  numerator.EntityTypeDisplayOrder,
			MatchResult:             models.MatchResult(numerator.MatchResult),
			Result:                  numerator.Result,
			EventID:                 numerator.EventID,
			DateOfService:           numerator.DateOfService,
			MedicalRecordPageNumber: numerator.MedicalRecordPageNumber,
			BotPageNumber:           numerator.BotPageNumber,
			Accepted:                accepted,
		})
	}

	return data, nil
}
