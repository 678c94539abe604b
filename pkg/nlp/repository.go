package nlp

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Request lifecycle statuses for the provider request log.
const (
	RequestStatusSubmitted = 1
	RequestStatusCompleted = 2
	RequestStatusFailed    = 3
)

var ErrRequestNotFound = errors.New("nlp request not found")

type RequestModel struct {
	ID              int            `gorm:"primaryKey;autoIncrement;column:id"`
	ChaseID         int            `gorm:"column:chase_id;index"`
	RequestStatusID int            `gorm:"column:request_status_id;index"`
	RequestDetail   datatypes.JSON `gorm:"column:request_detail"`
	ResponseDetail  datatypes.JSON `gorm:"column:response_detail"`
	CreatedAt       time.Time      `gorm:"column:created_at"`
	UpdatedAt       time.Time      `gorm:"column:updated_at"`
}

func (RequestModel) TableName() string {
	return "nlp_requests"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&RequestModel{})
}

// GetRequest returns the latest request for a chase in the given status.
func (r *Repository) GetRequest(ctx context.Context, chaseID int, statusID int) (*RequestModel, error) {
	var request RequestModel
	result := r.db.WithContext(ctx).
		Where("chase_id = ? AND request_status_id = ?", chaseID, statusID).
		Order("updated_at DESC").
		First(&request)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrRequestNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &request, nil
}

// UpdateRequestResponseLog records the provider's response payload against the
// chase's request row and advances its status, creating the row when the
// provider responds before the submission was logged.
func (r *Repository) UpdateRequestResponseLog(ctx context.Context, chaseID int, statusID int, responseDetail []byte) error {
	var request RequestModel
	result := r.db.WithContext(ctx).
		Where("chase_id = ?", chaseID).
		Order("updated_at DESC").
		First(&request)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		request = RequestModel{
			ChaseID:         chaseID,
			RequestStatusID: statusID,
			ResponseDetail:  datatypes.JSON(responseDetail),
			CreatedAt:       time.Now().UTC(),
			UpdatedAt:       time.Now().UTC(),
		}
		return r.db.WithContext(ctx).Create(&request).Error
	}
	if result.Error != nil {
		return result.Error
	}

	request.RequestStatusID = statusID
	request.ResponseDetail = datatypes.JSON(responseDetail)
	request.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(&request).Error
}
