package testutil

import (
	"fmt"
	"testing"

	"github.com/EmanuelRealGamboa/clinica-camsa/internal/models"
	"gorm.io/gorm"
)

// CreateProduct inserts a category (reused by code) and a product under it
func CreateProduct(tb testing.TB, db *gorm.DB, name, categoryCode string) *models.Product {
	tb.Helper()

	category := models.ProductCategory{Name: categoryCode, Code: categoryCode, IsActive: true}
	if err := db.Where(models.ProductCategory{Code: categoryCode}).FirstOrCreate(&category).Error; err != nil {
		tb.Fatalf("failed to create category: %v", err)
	}

	product := models.Product{
		CategoryID: category.ID,
		Name:       name,
		UnitLabel:  "unidad",
		IsActive:   true,
	}
	if err := db.Create(&product).Error; err != nil {
		tb.Fatalf("failed to create product: %v", err)
	}
	return &product
}

// Kiosk bundles everything a placed order needs
type Kiosk struct {
	Room       *models.Room
	Patient    *models.Patient
	Staff      *models.StaffUser
	Device     *models.Device
	Assignment *models.PatientAssignment
}

// CreateKiosk sets up a room, patient, staff member, device and an active
// care assignment binding them together.
func CreateKiosk(tb testing.TB, db *gorm.DB, deviceUID string) *Kiosk {
	tb.Helper()

	room := models.Room{Code: "room-for-" + deviceUID, Floor: "1", IsActive: true}
	if err := db.Create(&room).Error; err != nil {
		tb.Fatalf("failed to create room: %v", err)
	}

	patient := models.Patient{FullName: "Patient for " + deviceUID, IsActive: true}
	if err := db.Create(&patient).Error; err != nil {
		tb.Fatalf("failed to create patient: %v", err)
	}

	staff := models.StaffUser{
		Email:    fmt.Sprintf("staff-%s@test.local", deviceUID),
		Password: "x",
		FullName: "Staff for " + deviceUID,
		Role:     "staff",
		IsActive: true,
	}
	if err := db.Create(&staff).Error; err != nil {
		tb.Fatalf("failed to create staff user: %v", err)
	}

	roomID := room.ID
	device := models.Device{
		DeviceUID:  deviceUID,
		DeviceType: models.DeviceTypeIPad,
		RoomID:     &roomID,
		IsActive:   true,
	}
	if err := db.Create(&device).Error; err != nil {
		tb.Fatalf("failed to create device: %v", err)
	}

	assignment := models.PatientAssignment{
		PatientID: patient.ID,
		StaffID:   staff.ID,
		DeviceID:  device.ID,
		RoomID:    room.ID,
		IsActive:  true,
	}
	if err := db.Create(&assignment).Error; err != nil {
		tb.Fatalf("failed to create assignment: %v", err)
	}

	return &Kiosk{
		Room:       &room,
		Patient:    &patient,
		Staff:      &staff,
		Device:     &device,
		Assignment: &assignment,
	}
}
