// Package clinic implements the assignment gate: resolving the active care
// assignment for a kiosk device and answering per-category order limits.
package clinic

import (
	"errors"

	"github.com/EmanuelRealGamboa/clinica-camsa/internal/apperr"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service resolves care assignments and manages their lifecycle end
type Service struct {
	db *gorm.DB
}

// NewService creates an assignment gate on top of db
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ActiveAssignmentTx returns the active care assignment for a device within
// the caller's transaction, or nil if the device has none. If data ever holds
// more than one active assignment per device, the most recently started wins.
func (s *Service) ActiveAssignmentTx(tx *gorm.DB, deviceID uint) (*models.PatientAssignment, error) {
	var assignment models.PatientAssignment
	err := tx.Where("device_id = ? AND is_active = ?", deviceID, true).
		Order("started_at DESC").
		Preload("Patient").
		Preload("Room").
		Preload("Staff").
		First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ActiveForDeviceUID resolves the device by UID and its active assignment,
// for the public kiosk assignment endpoint.
func (s *Service) ActiveForDeviceUID(deviceUID string) (*models.Device, *models.PatientAssignment, error) {
	var device models.Device
	err := s.db.Where("device_uid = ?", deviceUID).First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, apperr.NotFoundf("device not found")
	}
	if err != nil {
		return nil, nil, err
	}
	assignment, err := s.ActiveAssignmentTx(s.db, device.ID)
	if err != nil {
		return nil, nil, err
	}
	return &device, assignment, nil
}

// LimitFor looks up the per-category order cap on an assignment.
// 0 means unlimited, as does an absent key. The limit map is stored as JSON,
// so values arrive as float64 after a database round trip.
func LimitFor(assignment *models.PatientAssignment, categoryCode string) int {
	if assignment == nil || assignment.OrderLimits == nil {
		return 0
	}
	raw, ok := assignment.OrderLimits[categoryCode]
	if !ok {
		return 0
	}
	switch v := raw.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

// EndAssignment marks an assignment as ended (staff action). Fails if the
// assignment does not exist or has already ended.
func (s *Service) EndAssignment(assignmentID uint) (*models.PatientAssignment, error) {
	var assignment models.PatientAssignment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&assignment, assignmentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("assignment not found")
		}
		if err != nil {
			return err
		}
		if !assignment.IsActive {
			return apperr.Validationf("assignment has already ended")
		}
		assignment.EndCare()
		return tx.Save(&assignment).Error
	})
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}
