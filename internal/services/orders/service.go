// Package orders implements the order lifecycle engine: creation against an
// active care assignment, the status state machine, and cancellation, each as
// one atomic transaction orchestrating the stock ledger.
package orders

import (
	"errors"
	"sort"
	"time"

	"github.com/EmanuelRealGamboa/clinica-camsa/internal/apperr"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/models"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/services/clinic"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/services/inventory"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActiveStatuses are the statuses a kiosk still cares about
var ActiveStatuses = []models.OrderStatus{
	models.OrderStatusPlaced,
	models.OrderStatusPreparing,
	models.OrderStatusReady,
}

// LineRequest is one requested order line from the kiosk
type LineRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// Service drives orders through their lifecycle
type Service struct {
	db       *gorm.DB
	ledger   *inventory.Ledger
	clinic   *clinic.Service
	notifier Notifier
}

// NewService wires the lifecycle engine. notifier may be NopNotifier.
func NewService(db *gorm.DB, ledger *inventory.Ledger, clinicSvc *clinic.Service, notifier Notifier) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{db: db, ledger: ledger, clinic: clinicSvc, notifier: notifier}
}

// Create places an order from a kiosk as one atomic unit: validate device and
// assignment, lock every requested product's balance, reserve all lines or
// none, write the order with its items and initial status event. The staff
// notification fires only after the transaction commits.
func (s *Service) Create(deviceUID string, lines []LineRequest) (*models.Order, error) {
	if deviceUID == "" {
		return nil, apperr.Validationf("device_uid is required")
	}
	if len(lines) == 0 {
		return nil, apperr.Validationf("order must contain at least one item")
	}
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, apperr.Validationf("quantity must be at least 1")
		}
	}

	// Balance rows are locked in ascending product id order so that two
	// orders naming the same products in opposite order cannot deadlock.
	sorted := make([]LineRequest, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ProductID < sorted[j].ProductID
	})

	var created models.Order
	var staffEvent NewOrderEvent
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

		assignment, err := s.clinic.ActiveAssignmentTx(tx, device.ID)
		if err != nil {
			return err
		}
		if assignment == nil {
			return apperr.Validationf("no active patient assigned to this device")
		}

		now := time.Now().UTC()
		if err := tx.Model(&device).Update("last_seen_at", now).Error; err != nil {
			return err
		}

		// Lock products and balances, checking availability line by line.
		// pending tracks quantities already claimed by earlier lines of the
		// same order so duplicate product lines cannot double-spend.
		type checkedLine struct {
			product models.Product
			qty     int
		}
		var checks []checkedLine
		pending := map[uint]int{}
		for _, line := range sorted {
			product, err := inventory.LockProductTx(tx, line.ProductID, true)
			if err != nil {
				return err
			}
			balance, err := inventory.LockBalanceTx(tx, product.ID)
			if err != nil {
				return err
			}
			available := balance.Available() - pending[product.ID]
			if available < line.Quantity {
				return apperr.Validationf("insufficient inventory for %s: available %d, requested %d", product.Name, available, line.Quantity)
			}
			pending[product.ID] += line.Quantity
			checks = append(checks, checkedLine{product: *product, qty: line.Quantity})
		}

		order := models.Order{
			DeviceID:            &device.ID,
			PatientAssignmentID: &assignment.ID,
			RoomID:              &assignment.RoomID,
			PatientID:           &assignment.PatientID,
			Status:              models.OrderStatusPlaced,
			PlacedAt:            now,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for i := range checks {
			item := models.OrderItem{
				OrderID:   order.ID,
				ProductID: checks[i].product.ID,
				Quantity:  checks[i].qty,
				UnitLabel: checks[i].product.UnitLabel, // snapshot
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			if _, err := s.ledger.ReserveTx(tx, &checks[i].product, checks[i].qty, &order); err != nil {
				return err
			}
		}

		event := models.OrderStatusEvent{
			OrderID:    order.ID,
			FromStatus: "",
			ToStatus:   string(models.OrderStatusPlaced),
			ChangedAt:  now,
			Note:       "Order placed from kiosk",
		}
		if err := tx.Create(&event).Error; err != nil {
			return err
		}

		if err := tx.Preload("Items").Preload("Items.Product").Preload("Room").
			First(&created, order.ID).Error; err != nil {
			return err
		}

		roomCode := ""
		if assignment.Room != nil {
			roomCode = assignment.Room.Code
		}
		staffEvent = NewOrderEvent{
			Type:      EventNewOrder,
			OrderID:   order.ID,
			RoomCode:  roomCode,
			DeviceUID: device.DeviceUID,
			PlacedAt:  order.PlacedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NewOrder(staffEvent)
	return &created, nil
}

// ChangeStatus moves an order to a new status. Only terminal states restrict
// transitions: any non-terminal status may move to any other, backwards
// included, so staff can correct mistakes. Delivery consumes the order's
// reservations.
func (s *Service) ChangeStatus(orderID uint, toStatus models.OrderStatus, actorID *uint, note string) (*models.Order, error) {
	if !models.ValidOrderStatus(toStatus) {
		return nil, apperr.Validationf("invalid status %q", string(toStatus))
	}

	var deviceUID string
	var kioskEvent StatusChangedEvent
	err := s.db.Transaction(func(tx *gorm.DB) error {
		order, err := lockOrderTx(tx, orderID)
		if err != nil {
			return err
		}
		fromStatus := order.Status
		if fromStatus == models.OrderStatusDelivered {
			return apperr.Validationf("cannot change status of delivered order")
		}
		if fromStatus == models.OrderStatusCancelled {
			return apperr.Validationf("cannot change status of cancelled order")
		}

		now := time.Now().UTC()
		if toStatus == models.OrderStatusDelivered {
			items, err := itemsByProductID(tx, order.ID)
			if err != nil {
				return err
			}
			for _, item := range items {
				if _, err := s.ledger.ConsumeTx(tx, item.ProductID, item.Quantity, order, actorID); err != nil {
					return err
				}
			}
			order.DeliveredAt = &now
		}
		if toStatus == models.OrderStatusCancelled {
			order.CancelledAt = &now
		}

		order.Status = toStatus
		if err := tx.Save(order).Error; err != nil {
			return err
		}

		event := models.OrderStatusEvent{
			OrderID:     order.ID,
			FromStatus:  string(fromStatus),
			ToStatus:    string(toStatus),
			ChangedByID: actorID,
			ChangedAt:   now,
			Note:        note,
		}
		if err := tx.Create(&event).Error; err != nil {
			return err
		}

		deviceUID, err = orderDeviceUID(tx, order)
		if err != nil {
			return err
		}
		kioskEvent = StatusChangedEvent{
			Type:       EventOrderStatusChanged,
			OrderID:    order.ID,
			Status:     toStatus,
			FromStatus: fromStatus,
			ChangedAt:  now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if deviceUID != "" {
		s.notifier.StatusChanged(deviceUID, kioskEvent)
	}
	return s.Get(orderID)
}

// Cancel cancels an order and releases every reservation it holds. Delivered
// orders cannot be cancelled; cancelling twice fails.
func (s *Service) Cancel(orderID uint, actorID *uint, note string) (*models.Order, error) {
	var deviceUID string
	var kioskEvent StatusChangedEvent
	err := s.db.Transaction(func(tx *gorm.DB) error {
		order, err := lockOrderTx(tx, orderID)
		if err != nil {
			return err
		}
		fromStatus := order.Status
		if fromStatus == models.OrderStatusDelivered {
			return apperr.Validationf("cannot cancel delivered order")
		}
		if fromStatus == models.OrderStatusCancelled {
			return apperr.Validationf("order is already cancelled")
		}

		items, err := itemsByProductID(tx, order.ID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if _, err := s.ledger.ReleaseTx(tx, item.ProductID, item.Quantity, order, actorID); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		order.Status = models.OrderStatusCancelled
		order.CancelledAt = &now
		if err := tx.Save(order).Error; err != nil {
			return err
		}

		if note == "" {
			note = "Order cancelled"
		}
		event := models.OrderStatusEvent{
			OrderID:     order.ID,
			FromStatus:  string(fromStatus),
			ToStatus:    string(models.OrderStatusCancelled),
			ChangedByID: actorID,
			ChangedAt:   now,
			Note:        note,
		}
		if err := tx.Create(&event).Error; err != nil {
			return err
		}

		deviceUID, err = orderDeviceUID(tx, order)
		if err != nil {
			return err
		}
		kioskEvent = StatusChangedEvent{
			Type:       EventOrderStatusChanged,
			OrderID:    order.ID,
			Status:     models.OrderStatusCancelled,
			FromStatus: fromStatus,
			ChangedAt:  now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if deviceUID != "" {
		s.notifier.StatusChanged(deviceUID, kioskEvent)
	}
	return s.Get(orderID)
}

// Get returns one order with items, status history and clinic context
func (s *Service) Get(orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Items").Preload("Items.Product").
		Preload("StatusEvents", func(db *gorm.DB) *gorm.DB {
			return db.Order("changed_at DESC, id DESC")
		}).
		Preload("Device").Preload("Room").Preload("Patient").
		First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("order not found")
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns orders, newest first, for the staff dashboard. A non-nil
// forStaffID narrows the listing to that staff member's active care
// assignment; with no active assignment the listing is empty.
func (s *Service) List(forStaffID *uint) ([]models.Order, error) {
	q := s.db.Preload("Items").Preload("Items.Product").
		Preload("Device").Preload("Room").Preload("Patient").
		Order("placed_at DESC")
	q, err := s.scopeToStaff(q, forStaffID)
	if err != nil {
		return nil, err
	}

	var orders []models.Order
	err = q.Find(&orders).Error
	return orders, err
}

// Queue returns orders in the given statuses for the kitchen queue view.
// Unknown statuses are ignored; an empty selection defaults to
// PLACED,PREPARING. forStaffID scopes like List.
func (s *Service) Queue(statuses []models.OrderStatus, forStaffID *uint) ([]models.Order, error) {
	var valid []models.OrderStatus
	for _, st := range statuses {
		if models.ValidOrderStatus(st) {
			valid = append(valid, st)
		}
	}
	if len(valid) == 0 {
		valid = []models.OrderStatus{models.OrderStatusPlaced, models.OrderStatusPreparing}
	}

	q := s.db.Preload("Items").Preload("Items.Product").
		Preload("Device").Preload("Room").Preload("Patient").
		Where("status IN ?", valid).
		Order("placed_at DESC")
	q, err := s.scopeToStaff(q, forStaffID)
	if err != nil {
		return nil, err
	}

	var orders []models.Order
	err = q.Find(&orders).Error
	return orders, err
}

// scopeToStaff narrows a listing to the orders of the staff member's
// active care assignment (its device and patient).
func (s *Service) scopeToStaff(q *gorm.DB, staffID *uint) (*gorm.DB, error) {
	if staffID == nil {
		return q, nil
	}

	var assignment models.PatientAssignment
	err := s.db.Where("staff_id = ? AND is_active = ?", *staffID, true).
		Order("started_at DESC").
		First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// No active assignment means no orders of one's own
		return q.Where("1 = 0"), nil
	}
	if err != nil {
		return nil, err
	}
	return q.Where("device_id = ? AND patient_id = ?", assignment.DeviceID, assignment.PatientID), nil
}

// ActiveForDevice returns a kiosk's undelivered, uncancelled orders. This is
// the pull-based reconciliation path for kiosks that reconnect after missing
// realtime events.
func (s *Service) ActiveForDevice(deviceUID string) ([]models.Order, error) {
	var device models.Device
	err := s.db.Where("device_uid = ?", deviceUID).First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("device not found")
	}
	if err != nil {
		return nil, err
	}

	var orders []models.Order
	err = s.db.Preload("Items").Preload("Items.Product").
		Where("device_id = ? AND status IN ?", device.ID, ActiveStatuses).
		Order("placed_at DESC").
		Find(&orders).Error
	return orders, err
}

func lockOrderTx(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("order not found")
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// itemsByProductID loads an order's items sorted by product id, keeping the
// balance lock acquisition order consistent with order creation.
func itemsByProductID(tx *gorm.DB, orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := tx.Where("order_id = ?", orderID).
		Order("product_id").
		Find(&items).Error
	return items, err
}

func orderDeviceUID(tx *gorm.DB, order *models.Order) (string, error) {
	if order.DeviceID == nil {
		return "", nil
	}
	var device models.Device
	if err := tx.First(&device, *order.DeviceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return device.DeviceUID, nil
}
