// Package feedback records satisfaction ratings for delivered orders and
// closes the associated care assignment. This is the only place the core
// ends an assignment automatically.
package feedback

import (
	"errors"

	"github.com/EmanuelRealGamboa/clinica-camsa/internal/apperr"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service handles feedback submission and the staff read surface
type Service struct {
	db *gorm.DB
}

// NewService creates a feedback service on top of db
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Submit records feedback for a delivered order placed from deviceUID and
// ends the order's care assignment if it is still active. One feedback per
// order.
func (s *Service) Submit(orderID uint, deviceUID string, rating int, comment string) (*models.Feedback, error) {
	if rating < 1 || rating > 5 {
		return nil, apperr.Validationf("satisfaction_rating must be between 1 and 5")
	}

	var created models.Feedback
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var device models.Device
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("device_uid = ? AND is_active = ?", deviceUID, true).
			First(&device).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("device not found or inactive")
		}
		if err != nil {
			return err
		}

		var order models.Order
		err = tx.Preload("PatientAssignment").First(&order, orderID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("order not found")
		}
		if err != nil {
			return err
		}

		if order.DeviceID == nil || *order.DeviceID != device.ID {
			return apperr.Validationf("this order does not belong to this device")
		}
		if order.Status != models.OrderStatusDelivered {
			return apperr.Validationf("feedback can only be submitted for delivered orders")
		}

		var existing int64
		if err := tx.Model(&models.Feedback{}).Where("order_id = ?", order.ID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperr.Validationf("feedback already submitted for this order")
		}

		var staffID *uint
		if order.PatientAssignment != nil {
			staffID = &order.PatientAssignment.StaffID
		}

		created = models.Feedback{
			OrderID:            order.ID,
			RoomID:             order.RoomID,
			PatientID:          order.PatientID,
			StaffID:            staffID,
			SatisfactionRating: rating,
		}
		if comment != "" {
			created.Comment = &comment
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		// Feedback on a delivered order marks the end of the care episode
		if order.PatientAssignment != nil && order.PatientAssignment.IsActive {
			order.PatientAssignment.EndCare()
			if err := tx.Save(order.PatientAssignment).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// ListFilter narrows the staff feedback listing
type ListFilter struct {
	Rating  *int
	StaffID *uint
	RoomID  *uint
}

// List returns feedbacks newest first, optionally filtered
func (s *Service) List(filter ListFilter) ([]models.Feedback, error) {
	q := s.db.Preload("Order").Preload("Room").Preload("Patient").Preload("Staff").
		Order("created_at DESC")
	if filter.Rating != nil {
		q = q.Where("satisfaction_rating = ?", *filter.Rating)
	}
	if filter.StaffID != nil {
		q = q.Where("staff_id = ?", *filter.StaffID)
	}
	if filter.RoomID != nil {
		q = q.Where("room_id = ?", *filter.RoomID)
	}

	var feedbacks []models.Feedback
	err := q.Find(&feedbacks).Error
	return feedbacks, err
}
