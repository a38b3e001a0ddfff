package main

import (
	"fmt"
	"log"

	"github.com/EmanuelRealGamboa/clinica-camsa/internal/config"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/database"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/models"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/services/inventory"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/utils"
)

func main() {
	fmt.Println("🌱 Clinica CAMSA Demo Data Seeder")

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	fmt.Println("✅ Connected to database")
	fmt.Println()

	// Run migrations first
	fmt.Println("🔨 Running database migrations...")
	err = db.AutoMigrate(
		&models.StaffUser{},
		&models.ProductCategory{},
		&models.Product{},
		&models.Room{},
		&models.Patient{},
		&models.Device{},
		&models.PatientAssignment{},
		&models.InventoryBalance{},
		&models.InventoryMovement{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusEvent{},
		&models.Feedback{},
	)
	if err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	fmt.Println("✅ Migrations complete")
	fmt.Println()

	// Check if data already exists
	var productCount int64
	db.Model(&models.Product{}).Count(&productCount)
	if productCount > 0 {
		fmt.Printf("⚠️  Database already has %d products. Clear it first? (y/N): ", productCount)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("❌ Aborted. Database not modified.")
			return
		}

		// Clear existing data
		fmt.Println("🗑️  Clearing existing data...")
		db.Exec("TRUNCATE TABLE feedbacks CASCADE")
		db.Exec("TRUNCATE TABLE order_status_events CASCADE")
		db.Exec("TRUNCATE TABLE order_items CASCADE")
		db.Exec("TRUNCATE TABLE orders CASCADE")
		db.Exec("TRUNCATE TABLE inventory_movements CASCADE")
		db.Exec("TRUNCATE TABLE inventory_balances CASCADE")
		db.Exec("TRUNCATE TABLE patient_assignments CASCADE")
		db.Exec("TRUNCATE TABLE devices CASCADE")
		db.Exec("TRUNCATE TABLE patients CASCADE")
		db.Exec("TRUNCATE TABLE rooms CASCADE")
		db.Exec("TRUNCATE TABLE products CASCADE")
		db.Exec("TRUNCATE TABLE product_categories CASCADE")
		fmt.Println("✅ Data cleared")
	}

	fmt.Println()
	fmt.Println("📦 Creating demo data...")
	fmt.Println()

	// 1. Admin user
	fmt.Println("👤 Creating staff users...")
	adminPassword, err := utils.HashPassword("admin12345")
	if err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}
	admin := models.StaffUser{
		Email:    "admin@clinica-camsa.test",
		Password: adminPassword,
		FullName: "Admin",
		Role:     "admin",
		IsActive: true,
	}
	db.Where(models.StaffUser{Email: admin.Email}).FirstOrCreate(&admin)

	nursePassword, _ := utils.HashPassword("nurse12345")
	nurse := models.StaffUser{
		Email:    "nurse@clinica-camsa.test",
		Password: nursePassword,
		FullName: "Maria Lopez",
		Role:     "staff",
		IsActive: true,
	}
	db.Where(models.StaffUser{Email: nurse.Email}).FirstOrCreate(&nurse)
	fmt.Printf("   admin@clinica-camsa.test / admin12345\n")
	fmt.Printf("   nurse@clinica-camsa.test / nurse12345\n")

	// 2. Categories and products
	fmt.Println("🛒 Creating catalog...")
	drinks := models.ProductCategory{Name: "Bebidas", Code: "DRINK", SortOrder: 1, IsActive: true}
	snacks := models.ProductCategory{Name: "Snacks", Code: "SNACK", SortOrder: 2, IsActive: true}
	meals := models.ProductCategory{Name: "Comidas", Code: "MEAL", SortOrder: 3, IsActive: true}
	for _, c := range []*models.ProductCategory{&drinks, &snacks, &meals} {
		db.Where(models.ProductCategory{Code: c.Code}).FirstOrCreate(c)
	}

	products := []models.Product{
		{CategoryID: drinks.ID, Name: "Agua natural 600ml", UnitLabel: "botella", IsActive: true},
		{CategoryID: drinks.ID, Name: "Jugo de manzana", UnitLabel: "vaso", IsActive: true},
		{CategoryID: drinks.ID, Name: "Te de manzanilla", UnitLabel: "taza", IsActive: true},
		{CategoryID: snacks.ID, Name: "Gelatina", UnitLabel: "unidad", IsActive: true},
		{CategoryID: snacks.ID, Name: "Galletas integrales", UnitLabel: "paquete", IsActive: true},
		{CategoryID: meals.ID, Name: "Caldo de pollo", UnitLabel: "plato", IsActive: true},
		{CategoryID: meals.ID, Name: "Sandwich de pavo", UnitLabel: "unidad", IsActive: true},
	}
	for i := range products {
		db.Where(models.Product{Name: products[i].Name}).FirstOrCreate(&products[i])
	}
	fmt.Printf("   %d products in %d categories\n", len(products), 3)

	// 3. Initial stock through the ledger so movements are recorded
	fmt.Println("📦 Receiving initial stock...")
	ledger := inventory.NewLedger(db.DB)
	for i := range products {
		if _, _, err := ledger.Receive(products[i].ID, 25, &admin.ID, "Initial stock"); err != nil {
			log.Printf("⚠️  Receive failed for %s: %v", products[i].Name, err)
		}
	}

	// 4. Rooms, patients and devices
	fmt.Println("🏥 Creating rooms and devices...")
	var rooms []models.Room
	for _, code := range []string{"101", "102", "103", "201", "202"} {
		room := models.Room{Code: code, Floor: code[:1], IsActive: true}
		db.Where(models.Room{Code: code}).FirstOrCreate(&room)
		rooms = append(rooms, room)
	}

	var devices []models.Device
	for _, room := range rooms {
		roomID := room.ID
		device := models.Device{
			DeviceUID:  fmt.Sprintf("ipad-room-%s", room.Code),
			DeviceType: models.DeviceTypeIPad,
			RoomID:     &roomID,
			IsActive:   true,
		}
		db.Where(models.Device{DeviceUID: device.DeviceUID}).FirstOrCreate(&device)
		devices = append(devices, device)
	}

	patient := models.Patient{FullName: "Juan Perez", PhoneE164: "+525512345678", IsActive: true}
	db.Where(models.Patient{FullName: patient.FullName}).FirstOrCreate(&patient)

	// 5. One active care assignment so a kiosk can order right away
	fmt.Println("🛏️  Creating care assignment...")
	assignment := models.PatientAssignment{
		PatientID: patient.ID,
		StaffID:   nurse.ID,
		DeviceID:  devices[0].ID,
		RoomID:    rooms[0].ID,
		IsActive:  true,
	}
	var existing int64
	db.Model(&models.PatientAssignment{}).
		Where("device_id = ? AND is_active = ?", devices[0].ID, true).
		Count(&existing)
	if existing == 0 {
		db.Create(&assignment)
	}

	fmt.Println()
	fmt.Printf("✅ Done. Kiosk device UID: %s\n", devices[0].DeviceUID)
}
