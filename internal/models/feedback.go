package models

import (
	"time"
)

// Feedback is a satisfaction rating for a delivered order. Submitting one
// ends the order's care assignment.
type Feedback struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	OrderID            uint      `gorm:"uniqueIndex;not null" json:"order_id"`
	RoomID             *uint     `json:"room_id,omitempty"`
	PatientID          *uint     `json:"patient_id,omitempty"`
	StaffID            *uint     `gorm:"index" json:"staff_id,omitempty"`
	SatisfactionRating int       `gorm:"not null;check:satisfaction_rating BETWEEN 1 AND 5" json:"satisfaction_rating"`
	Comment            *string   `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt          time.Time `json:"created_at"`

	Order   *Order     `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	Room    *Room      `gorm:"foreignKey:RoomID" json:"room,omitempty"`
	Patient *Patient   `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Staff   *StaffUser `gorm:"foreignKey:StaffID" json:"staff,omitempty"`
}

func (Feedback) TableName() string {
	return "feedbacks"
}
