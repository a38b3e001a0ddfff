package feedback_test

import (
	"testing"

	"github.com/EmanuelRealGamboa/clinica-camsa/internal/apperr"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/models"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/services/clinic"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/services/feedback"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/services/inventory"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/services/orders"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/testutil"
	"gorm.io/gorm"
)

// deliveredOrder runs the happy order path up to DELIVERED
func deliveredOrder(t *testing.T, db *gorm.DB, kiosk *testutil.Kiosk) *models.Order {
	t.Helper()
	ledger := inventory.NewLedger(db)
	service := orders.NewService(db, ledger, clinic.NewService(db), nil)

	product := testutil.CreateProduct(t, db, "Te de manzanilla", "DRINK")
	if _, _, err := ledger.Receive(product.ID, 10, nil, ""); err != nil {
		t.Fatalf("Receive failed: %v", err)
	}

	order, err := service.Create(kiosk.Device.DeviceUID, []orders.LineRequest{{ProductID: product.ID, Quantity: 1}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	order, err = service.ChangeStatus(order.ID, models.OrderStatusDelivered, &kiosk.Staff.ID, "")
	if err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	return order
}

func TestSubmitEndsCareAssignment(t *testing.T) {
	db := testutil.OpenTestDB(t)
	service := feedback.NewService(db)
	kiosk := testutil.CreateKiosk(t, db, "ipad-301")
	order := deliveredOrder(t, db, kiosk)

	created, err := service.Submit(order.ID, "ipad-301", 5, "Excelente servicio")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if created.SatisfactionRating != 5 {
		t.Errorf("rating = %d, want 5", created.SatisfactionRating)
	}
	if created.Comment == nil || *created.Comment != "Excelente servicio" {
		t.Errorf("comment not stored")
	}
	if created.StaffID == nil || *created.StaffID != kiosk.Staff.ID {
		t.Errorf("staff not attributed from the assignment")
	}

	// Feedback closes the care episode
	var assignment models.PatientAssignment
	if err := db.First(&assignment, kiosk.Assignment.ID).Error; err != nil {
		t.Fatalf("failed to reload assignment: %v", err)
	}
	if assignment.IsActive {
		t.Errorf("assignment still active after feedback")
	}
	if assignment.EndedAt == nil {
		t.Errorf("ended_at not set")
	}
}

func TestSubmitValidations(t *testing.T) {
	db := testutil.OpenTestDB(t)
	service := feedback.NewService(db)
	kiosk := testutil.CreateKiosk(t, db, "ipad-302")
	order := deliveredOrder(t, db, kiosk)

	for _, rating := range []int{0, 6, -1} {
		if _, err := service.Submit(order.ID, "ipad-302", rating, ""); !apperr.IsValidation(err) {
			t.Errorf("Submit(rating=%d) error = %v, want validation error", rating, err)
		}
	}

	if _, err := service.Submit(order.ID, "no-such-device", 4, ""); !apperr.IsNotFound(err) {
		t.Errorf("unknown device error = %v, want not found", err)
	}
	if _, err := service.Submit(9999, "ipad-302", 4, ""); !apperr.IsNotFound(err) {
		t.Errorf("unknown order error = %v, want not found", err)
	}
}

func TestSubmitRejectsForeignDevice(t *testing.T) {
	db := testutil.OpenTestDB(t)
	service := feedback.NewService(db)
	kiosk := testutil.CreateKiosk(t, db, "ipad-303")
	testutil.CreateKiosk(t, db, "ipad-304")
	order := deliveredOrder(t, db, kiosk)

	if _, err := service.Submit(order.ID, "ipad-304", 4, ""); !apperr.IsValidation(err) {
		t.Errorf("foreign device error = %v, want validation error", err)
	}
}

func TestSubmitRequiresDeliveredOrder(t *testing.T) {
	db := testutil.OpenTestDB(t)
	service := feedback.NewService(db)
	testutil.CreateKiosk(t, db, "ipad-305")

	ledger := inventory.NewLedger(db)
	orderSvc := orders.NewService(db, ledger, clinic.NewService(db), nil)
	product := testutil.CreateProduct(t, db, "Gelatina", "SNACK")
	if _, _, err := ledger.Receive(product.ID, 5, nil, ""); err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	order, err := orderSvc.Create("ipad-305", []orders.LineRequest{{ProductID: product.ID, Quantity: 1}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := service.Submit(order.ID, "ipad-305", 4, ""); !apperr.IsValidation(err) {
		t.Errorf("undelivered order error = %v, want validation error", err)
	}
}

func TestSubmitOncePerOrder(t *testing.T) {
	db := testutil.OpenTestDB(t)
	service := feedback.NewService(db)
	kiosk := testutil.CreateKiosk(t, db, "ipad-306")
	order := deliveredOrder(t, db, kiosk)

	if _, err := service.Submit(order.ID, "ipad-306", 3, ""); err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}
	if _, err := service.Submit(order.ID, "ipad-306", 5, ""); !apperr.IsValidation(err) {
		t.Errorf("second Submit error = %v, want validation error", err)
	}
}

func TestListFilters(t *testing.T) {
	db := testutil.OpenTestDB(t)
	service := feedback.NewService(db)

	first := testutil.CreateKiosk(t, db, "ipad-307")
	second := testutil.CreateKiosk(t, db, "ipad-308")
	if _, err := service.Submit(deliveredOrder(t, db, first).ID, "ipad-307", 5, ""); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := service.Submit(deliveredOrder(t, db, second).ID, "ipad-308", 2, ""); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	all, err := service.List(feedback.ListFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("feedbacks = %d, want 2", len(all))
	}

	rating := 2
	low, err := service.List(feedback.ListFilter{Rating: &rating})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(low) != 1 || low[0].SatisfactionRating != 2 {
		t.Errorf("filtered by rating = %+v, want one 2-star entry", low)
	}

	byStaff, err := service.List(feedback.ListFilter{StaffID: &first.Staff.ID})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(byStaff) != 1 || byStaff[0].StaffID == nil || *byStaff[0].StaffID != first.Staff.ID {
		t.Errorf("filtered by staff = %+v, want the first kiosk's entry", byStaff)
	}
}
