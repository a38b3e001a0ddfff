package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DeviceType defines the kind of kiosk client
type DeviceType string

const (
	DeviceTypeIPad  DeviceType = "IPAD"
	DeviceTypeWeb   DeviceType = "WEB"
	DeviceTypeOther DeviceType = "OTHER"
)

// Room is a hospital room
type Room struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"uniqueIndex;not null" json:"code"` // e.g. "101", "A-205"
	Floor     string    `json:"floor,omitempty"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Room) TableName() string {
	return "rooms"
}

// Patient is a person under care
type Patient struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FullName  string    `gorm:"not null" json:"full_name"`
	PhoneE164 string    `json:"phone_e164"` // "+1234567890"
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Patient) TableName() string {
	return "patients"
}

// Device represents a bedside kiosk (iPad or web client). Kiosks authenticate
// by device UID only; inactive devices cannot place orders.
type Device struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	DeviceUID  string     `gorm:"uniqueIndex;not null" json:"device_uid"`
	DeviceType DeviceType `gorm:"default:'IPAD'" json:"device_type"`
	RoomID     *uint      `gorm:"index" json:"room_id,omitempty"`
	IsActive   bool       `gorm:"default:true" json:"is_active"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	Room *Room `gorm:"foreignKey:RoomID" json:"room,omitempty"`
}

func (Device) TableName() string {
	return "devices"
}

// DefaultOrderLimits returns the default per-category order limits for a new
// care assignment: one drink and one snack. 0 means unlimited.
func DefaultOrderLimits() datatypes.JSONMap {
	return datatypes.JSONMap{"DRINK": 1, "SNACK": 1}
}

// PatientAssignment links a patient to the staff member, device and room
// providing care. At most one assignment should be active per device; the
// gate resolves the newest one if data ever violates that.
type PatientAssignment struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	PatientID   uint               `gorm:"index:idx_assignment_patient_active;not null" json:"patient_id"`
	StaffID     uint               `gorm:"index:idx_assignment_staff_active;not null" json:"staff_id"`
	DeviceID    uint               `gorm:"index:idx_assignment_device_active;not null" json:"device_id"`
	RoomID      uint               `gorm:"not null" json:"room_id"`
	OrderLimits datatypes.JSONMap  `json:"order_limits"` // category code -> max count, 0 = unlimited
	IsActive    bool               `gorm:"default:true;index:idx_assignment_patient_active;index:idx_assignment_staff_active;index:idx_assignment_device_active" json:"is_active"`
	StartedAt   time.Time          `json:"started_at"`
	EndedAt     *time.Time         `json:"ended_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`

	Patient *Patient   `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Staff   *StaffUser `gorm:"foreignKey:StaffID" json:"staff,omitempty"`
	Device  *Device    `gorm:"foreignKey:DeviceID" json:"device,omitempty"`
	Room    *Room      `gorm:"foreignKey:RoomID" json:"room,omitempty"`
}

func (PatientAssignment) TableName() string {
	return "patient_assignments"
}

// BeforeCreate fills in the start timestamp and default limits
func (a *PatientAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.StartedAt.IsZero() {
		a.StartedAt = time.Now().UTC()
	}
	if a.OrderLimits == nil {
		a.OrderLimits = DefaultOrderLimits()
	}
	return nil
}

// EndCare marks the assignment as ended. Persisting is the caller's job.
func (a *PatientAssignment) EndCare() {
	now := time.Now().UTC()
	a.IsActive = false
	a.EndedAt = &now
}
